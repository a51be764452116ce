package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/havenbridge/booking-api/internal/service"
	appErrors "github.com/havenbridge/booking-api/pkg/errors"
	"github.com/havenbridge/booking-api/pkg/response"
)

// BookingHandler serves the public booking submission endpoint.
type BookingHandler struct {
	service *service.BookingService
}

// NewBookingHandler constructs handler.
func NewBookingHandler(svc *service.BookingService) *BookingHandler {
	return &BookingHandler{service: svc}
}

// Submit godoc
// @Summary Submit a booking
// @Description Books a slot for a client. Retries carrying the same Idempotency-Key replay the original appointment with status 200 instead of creating a duplicate.
// @Tags Bookings
// @Accept json
// @Produce json
// @Param Idempotency-Key header string true "Client retry key"
// @Param payload body service.BookingRequest true "Booking payload"
// @Success 200 {object} response.Envelope "Replayed from an earlier submission"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /bookings [post]
func (h *BookingHandler) Submit(c *gin.Context) {
	var req service.BookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.IdempotencyKey = c.GetHeader("Idempotency-Key")

	result, err := h.service.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if result.Replayed {
		response.JSON(c, http.StatusOK, result.Appointment, nil)
		return
	}
	response.Created(c, result.Appointment)
}
