package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/mediassist/resource-api/pkg/errors"
)

type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}

func Success(c *gin.Context, code int, data interface{}) {
	c.JSON(code, NewSuccessResponse(data))
}

// Error translates an application error into an HTTP response. Untyped
// errors are treated as internal and their detail is not leaked.
func Error(c *gin.Context, err error) {
	code := apperrors.CodeOf(err)
	status := httpStatus(code)

	message := err.Error()
	if code == apperrors.ErrInternal {
		message = "internal server error"
	}
	c.JSON(status, NewErrorResponse(message))
}

func httpStatus(code apperrors.ErrorCode) int {
	switch code {
	case apperrors.ErrValidation:
		return http.StatusBadRequest
	case apperrors.ErrUnauthorized:
		return http.StatusUnauthorized
	case apperrors.ErrForbidden:
		return http.StatusForbidden
	case apperrors.ErrNotFound:
		return http.StatusNotFound
	case apperrors.ErrConflict:
		return http.StatusConflict
	case apperrors.ErrTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
