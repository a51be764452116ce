package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/havenbridge/booking-api/internal/service"
	appErrors "github.com/havenbridge/booking-api/pkg/errors"
	"github.com/havenbridge/booking-api/pkg/response"
)

// AppointmentTypeHandler manages appointment type endpoints.
type AppointmentTypeHandler struct {
	service *service.AppointmentTypeService
}

// NewAppointmentTypeHandler constructs handler.
func NewAppointmentTypeHandler(svc *service.AppointmentTypeService) *AppointmentTypeHandler {
	return &AppointmentTypeHandler{service: svc}
}

// List godoc
// @Summary List appointment types
// @Tags AppointmentTypes
// @Produce json
// @Param active query bool false "Only active types"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /appointment-types [get]
func (h *AppointmentTypeHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	activeOnly := c.Query("active") == "true"
	types, err := h.service.List(c.Request.Context(), claims.StaffID, activeOnly)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, types, nil)
}

// Get godoc
// @Summary Get appointment type
// @Tags AppointmentTypes
// @Produce json
// @Param id path string true "Appointment type ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /appointment-types/{id} [get]
func (h *AppointmentTypeHandler) Get(c *gin.Context) {
	apptType, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, apptType, nil)
}

// Create godoc
// @Summary Create appointment type
// @Tags AppointmentTypes
// @Accept json
// @Produce json
// @Param payload body service.AppointmentTypeRequest true "Appointment type payload"
// @Success 201 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Security BearerAuth
// @Router /appointment-types [post]
func (h *AppointmentTypeHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.AppointmentTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	apptType, err := h.service.Create(c.Request.Context(), claims.StaffID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, apptType)
}

// Update godoc
// @Summary Update appointment type
// @Tags AppointmentTypes
// @Accept json
// @Produce json
// @Param id path string true "Appointment type ID"
// @Param payload body service.AppointmentTypeRequest true "Appointment type payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Security BearerAuth
// @Router /appointment-types/{id} [put]
func (h *AppointmentTypeHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.AppointmentTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	apptType, err := h.service.Update(c.Request.Context(), claims.StaffID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, apptType, nil)
}

// Deactivate godoc
// @Summary Deactivate appointment type
// @Description Hides the type from new bookings. Existing appointments are untouched.
// @Tags AppointmentTypes
// @Produce json
// @Param id path string true "Appointment type ID"
// @Success 204 "No Content"
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /appointment-types/{id} [delete]
func (h *AppointmentTypeHandler) Deactivate(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.service.Deactivate(c.Request.Context(), claims.StaffID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
