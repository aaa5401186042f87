package appointment

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mediassist/resource-api/internal/handler"
	"github.com/mediassist/resource-api/internal/middleware"
	"github.com/mediassist/resource-api/internal/model"
	"github.com/mediassist/resource-api/internal/service/schedule"
	apperrors "github.com/mediassist/resource-api/pkg/errors"
	"github.com/mediassist/resource-api/pkg/validator"
)

type Handler struct {
	service   *schedule.Service
	validator *validator.Validator
}

func NewHandler(service *schedule.Service, validator *validator.Validator) *Handler {
	return &Handler{service: service, validator: validator}
}

// RegisterPublicRoutes exposes slot discovery.
func (h *Handler) RegisterPublicRoutes(r *gin.RouterGroup) {
	r.GET("/providers/:id/slots", h.Slots)
}

// RegisterPatientRoutes exposes booking for patients.
func (h *Handler) RegisterPatientRoutes(r *gin.RouterGroup) {
	r.POST("/appointments", h.Book)
}

// RegisterSharedRoutes exposes lifecycle operations for patients and
// doctors; ownership is enforced by the service.
func (h *Handler) RegisterSharedRoutes(r *gin.RouterGroup) {
	r.GET("/appointments", h.List)
	r.GET("/appointments/:id", h.Get)
	r.POST("/appointments/:id/cancel", h.Cancel)
	r.POST("/appointments/:id/complete", h.Complete)
}

func (h *Handler) Slots(c *gin.Context) {
	providerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.Error(c, apperrors.NewValidation("invalid provider ID", err))
		return
	}

	date, err := time.Parse("2006-01-02", c.Query("date"))
	if err != nil {
		handler.Error(c, apperrors.NewValidation("invalid or missing date, expected YYYY-MM-DD", err))
		return
	}

	slots, err := h.service.ProposeSlots(c.Request.Context(), providerID, date)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusOK, slots)
}

func (h *Handler) Book(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		handler.Error(c, apperrors.NewUnauthorized("not authenticated", nil))
		return
	}

	var req model.BookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.Error(c, apperrors.NewValidation("invalid request body", err))
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		handler.Error(c, err)
		return
	}

	appointment, err := h.service.Book(c.Request.Context(), actor.UserID, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusCreated, appointment)
}

func (h *Handler) List(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		handler.Error(c, apperrors.NewUnauthorized("not authenticated", nil))
		return
	}

	appointments, err := h.service.ListForActor(c.Request.Context(), actor)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusOK, appointments)
}

func (h *Handler) Get(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		handler.Error(c, apperrors.NewUnauthorized("not authenticated", nil))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.Error(c, apperrors.NewValidation("invalid appointment ID", err))
		return
	}

	appointment, err := h.service.GetForActor(c.Request.Context(), id, actor)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusOK, appointment)
}

func (h *Handler) Cancel(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		handler.Error(c, apperrors.NewUnauthorized("not authenticated", nil))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.Error(c, apperrors.NewValidation("invalid appointment ID", err))
		return
	}

	var req model.CancelAppointmentRequest
	_ = c.ShouldBindJSON(&req)

	appointment, err := h.service.Cancel(c.Request.Context(), id, actor, req.Reason)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusOK, appointment)
}

func (h *Handler) Complete(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		handler.Error(c, apperrors.NewUnauthorized("not authenticated", nil))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.Error(c, apperrors.NewValidation("invalid appointment ID", err))
		return
	}

	appointment, err := h.service.Complete(c.Request.Context(), id, actor)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusOK, appointment)
}
