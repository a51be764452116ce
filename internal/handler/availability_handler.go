package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/havenbridge/booking-api/internal/service"
	appErrors "github.com/havenbridge/booking-api/pkg/errors"
	"github.com/havenbridge/booking-api/pkg/response"
)

// AvailabilityHandler serves the public slot lookup endpoint.
type AvailabilityHandler struct {
	service *service.AvailabilityService
}

// NewAvailabilityHandler constructs handler.
func NewAvailabilityHandler(svc *service.AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{service: svc}
}

// Get godoc
// @Summary Resolve available slots
// @Description Returns bookable slots for a staff member and appointment type over a date range, ordered by start time in the requested timezone, together with the appointment type details the booking form needs.
// @Tags Availability
// @Produce json
// @Param staff_id query string true "Staff ID"
// @Param appointment_type_id query string true "Appointment type ID"
// @Param date_from query string true "Start of the range (YYYY-MM-DD)"
// @Param date_to query string false "End of the range, inclusive (YYYY-MM-DD)"
// @Param timezone query string false "IANA timezone for presentation"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /availability [get]
func (h *AvailabilityHandler) Get(c *gin.Context) {
	var req service.AvailabilityRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}

	result, err := h.service.Resolve(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
