package inventory

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mediassist/resource-api/internal/handler"
	"github.com/mediassist/resource-api/internal/middleware"
	"github.com/mediassist/resource-api/internal/model"
	"github.com/mediassist/resource-api/internal/service/directory"
	"github.com/mediassist/resource-api/internal/service/inventory"
	apperrors "github.com/mediassist/resource-api/pkg/errors"
	"github.com/mediassist/resource-api/pkg/validator"
)

type Handler struct {
	service   *inventory.Service
	directory *directory.Service
	validator *validator.Validator
}

func NewHandler(service *inventory.Service, directory *directory.Service, validator *validator.Validator) *Handler {
	return &Handler{service: service, directory: directory, validator: validator}
}

// RegisterPublicRoutes exposes read access to per-facility counts.
func (h *Handler) RegisterPublicRoutes(r *gin.RouterGroup) {
	r.GET("/facilities/:id/resources", h.List)
}

// RegisterAdminRoutes exposes the count mutations.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.POST("/facilities/:id/resources/adjust", h.Adjust)
	r.PUT("/facilities/:id/resources", h.SetTotals)
	r.PUT("/facilities/:id/resources/bulk", h.BulkSetTotals)
}

func (h *Handler) List(c *gin.Context) {
	facilityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.Error(c, apperrors.NewValidation("invalid facility ID", err))
		return
	}

	categories, err := h.service.List(c.Request.Context(), facilityID, model.ResourceKind(c.Query("kind")))
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusOK, categories)
}

func (h *Handler) Adjust(c *gin.Context) {
	facilityID, ok := h.authorizedFacility(c)
	if !ok {
		return
	}

	var req model.AdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.Error(c, apperrors.NewValidation("invalid request body", err))
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		handler.Error(c, err)
		return
	}

	available, err := h.service.Adjust(c.Request.Context(), facilityID, req.Kind, req.Name, req.Delta)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusOK, gin.H{
		"facility_id":     facilityID,
		"kind":            req.Kind,
		"name":            req.Name,
		"available_count": available,
	})
}

func (h *Handler) SetTotals(c *gin.Context) {
	facilityID, ok := h.authorizedFacility(c)
	if !ok {
		return
	}

	var req model.SetTotalsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.Error(c, apperrors.NewValidation("invalid request body", err))
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		handler.Error(c, err)
		return
	}

	result, err := h.service.SetTotals(c.Request.Context(), facilityID, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusOK, result)
}

func (h *Handler) BulkSetTotals(c *gin.Context) {
	facilityID, ok := h.authorizedFacility(c)
	if !ok {
		return
	}

	var req model.BulkSetTotalsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.Error(c, apperrors.NewValidation("invalid request body", err))
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		handler.Error(c, err)
		return
	}

	results, err := h.service.BulkSetTotals(c.Request.Context(), facilityID, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusOK, results)
}

func (h *Handler) authorizedFacility(c *gin.Context) (uuid.UUID, bool) {
	facilityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.Error(c, apperrors.NewValidation("invalid facility ID", err))
		return uuid.Nil, false
	}

	actor, ok := middleware.CurrentActor(c)
	if !ok {
		handler.Error(c, apperrors.NewUnauthorized("not authenticated", nil))
		return uuid.Nil, false
	}
	if err := h.directory.AuthorizeAdmin(c.Request.Context(), actor, facilityID); err != nil {
		handler.Error(c, err)
		return uuid.Nil, false
	}
	return facilityID, true
}
