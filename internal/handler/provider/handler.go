package provider

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mediassist/resource-api/internal/handler"
	"github.com/mediassist/resource-api/internal/middleware"
	"github.com/mediassist/resource-api/internal/model"
	"github.com/mediassist/resource-api/internal/service/provider"
	apperrors "github.com/mediassist/resource-api/pkg/errors"
	"github.com/mediassist/resource-api/pkg/validator"
)

type Handler struct {
	service   *provider.Service
	validator *validator.Validator
}

func NewHandler(service *provider.Service, validator *validator.Validator) *Handler {
	return &Handler{service: service, validator: validator}
}

// RegisterPublicRoutes exposes provider discovery.
func (h *Handler) RegisterPublicRoutes(r *gin.RouterGroup) {
	r.GET("/providers", h.List)
	r.GET("/providers/:id", h.Get)
	r.GET("/providers/:id/windows", h.ListWindows)
}

// RegisterDoctorRoutes exposes schedule self-management.
func (h *Handler) RegisterDoctorRoutes(r *gin.RouterGroup) {
	r.GET("/me/provider", h.Me)
	r.PUT("/me/availability", h.ReplaceWindows)
	r.PUT("/me/duty", h.SetDuty)
}

func (h *Handler) List(c *gin.Context) {
	filters := &model.ProviderFilters{
		Specialization: c.Query("specialization"),
		AvailableOnly:  c.Query("available") == "true",
	}
	if raw := c.Query("facility_id"); raw != "" {
		facilityID, err := uuid.Parse(raw)
		if err != nil {
			handler.Error(c, apperrors.NewValidation("invalid facility ID", err))
			return
		}
		filters.FacilityID = facilityID
	}

	providers, err := h.service.List(c.Request.Context(), filters)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusOK, providers)
}

func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.Error(c, apperrors.NewValidation("invalid provider ID", err))
		return
	}

	provider, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusOK, provider)
}

func (h *Handler) ListWindows(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.Error(c, apperrors.NewValidation("invalid provider ID", err))
		return
	}

	windows, err := h.service.ListWindows(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusOK, windows)
}

func (h *Handler) Me(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		handler.Error(c, apperrors.NewUnauthorized("not authenticated", nil))
		return
	}

	provider, err := h.service.GetByUserID(c.Request.Context(), actor.UserID)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusOK, provider)
}

func (h *Handler) ReplaceWindows(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		handler.Error(c, apperrors.NewUnauthorized("not authenticated", nil))
		return
	}

	var req model.UpdateAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.Error(c, apperrors.NewValidation("invalid request body", err))
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		handler.Error(c, err)
		return
	}

	windows, err := h.service.ReplaceWindows(c.Request.Context(), actor.UserID, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusOK, windows)
}

func (h *Handler) SetDuty(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		handler.Error(c, apperrors.NewUnauthorized("not authenticated", nil))
		return
	}

	var req model.SetDutyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.Error(c, apperrors.NewValidation("invalid request body", err))
		return
	}

	provider, err := h.service.SetDuty(c.Request.Context(), actor.UserID, req.Available)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusOK, provider)
}
