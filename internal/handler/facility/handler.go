package facility

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mediassist/resource-api/internal/handler"
	"github.com/mediassist/resource-api/internal/middleware"
	"github.com/mediassist/resource-api/internal/model"
	"github.com/mediassist/resource-api/internal/service/directory"
	apperrors "github.com/mediassist/resource-api/pkg/errors"
	"github.com/mediassist/resource-api/pkg/validator"
)

type Handler struct {
	service   *directory.Service
	validator *validator.Validator
}

func NewHandler(service *directory.Service, validator *validator.Validator) *Handler {
	return &Handler{service: service, validator: validator}
}

// RegisterPublicRoutes exposes the read-only directory.
func (h *Handler) RegisterPublicRoutes(r *gin.RouterGroup) {
	r.GET("/facilities", h.List)
	r.GET("/emergency/facilities", h.EmergencySearch)
	r.GET("/facilities/:id", h.Get)
	r.GET("/facilities/:id/status", h.Status)
}

// RegisterAdminRoutes exposes facility management.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.POST("/facilities", h.Create)
	r.PUT("/facilities/:id", h.Update)
	r.DELETE("/facilities/:id", h.Delete)
}

func (h *Handler) List(c *gin.Context) {
	filters := &model.FacilityFilters{
		City:   c.Query("city"),
		Status: model.FacilityStatus(c.Query("status")),
	}

	facilities, err := h.service.List(c.Request.Context(), filters)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusOK, facilities)
}

func (h *Handler) EmergencySearch(c *gin.Context) {
	facilities, err := h.service.EmergencySearch(c.Request.Context(), c.Query("city"))
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusOK, facilities)
}

func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.Error(c, apperrors.NewValidation("invalid facility ID", err))
		return
	}

	facility, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusOK, facility)
}

func (h *Handler) Status(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.Error(c, apperrors.NewValidation("invalid facility ID", err))
		return
	}

	status, err := h.service.Status(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusOK, gin.H{"facility_id": id, "status": status})
}

func (h *Handler) Create(c *gin.Context) {
	var req model.CreateFacilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.Error(c, apperrors.NewValidation("invalid request body", err))
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		handler.Error(c, err)
		return
	}

	facility, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusCreated, facility)
}

func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.Error(c, apperrors.NewValidation("invalid facility ID", err))
		return
	}

	if err := h.requireOwnFacility(c, id); err != nil {
		handler.Error(c, err)
		return
	}

	var req model.UpdateFacilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.Error(c, apperrors.NewValidation("invalid request body", err))
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		handler.Error(c, err)
		return
	}

	facility, err := h.service.Update(c.Request.Context(), id, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusOK, facility)
}

func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.Error(c, apperrors.NewValidation("invalid facility ID", err))
		return
	}

	if err := h.requireOwnFacility(c, id); err != nil {
		handler.Error(c, err)
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusOK, gin.H{"message": "facility deleted"})
}

// requireOwnFacility restricts admins to the facility they registered.
func (h *Handler) requireOwnFacility(c *gin.Context, facilityID uuid.UUID) error {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		return apperrors.NewUnauthorized("not authenticated", nil)
	}
	if actor.Role != model.RoleHospitalAdmin {
		return apperrors.NewForbidden("admin role required", nil)
	}
	return h.service.AuthorizeAdmin(c.Request.Context(), actor, facilityID)
}
