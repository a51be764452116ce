package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/havenbridge/booking-api/internal/service"
	appErrors "github.com/havenbridge/booking-api/pkg/errors"
	"github.com/havenbridge/booking-api/pkg/response"
)

// AvailabilityRuleHandler manages weekly availability rule endpoints.
type AvailabilityRuleHandler struct {
	service *service.AvailabilityRuleService
}

// NewAvailabilityRuleHandler constructs handler.
func NewAvailabilityRuleHandler(svc *service.AvailabilityRuleService) *AvailabilityRuleHandler {
	return &AvailabilityRuleHandler{service: svc}
}

// List godoc
// @Summary List weekly availability rules
// @Tags Availability
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /availability-rules [get]
func (h *AvailabilityRuleHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	rules, err := h.service.List(c.Request.Context(), claims.StaffID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rules, nil)
}

// Replace godoc
// @Summary Replace the weekly availability rule set
// @Description Swaps the caller's complete rule set. Weekdays missing from the payload end up with no availability.
// @Tags Availability
// @Accept json
// @Produce json
// @Param payload body service.ReplaceRulesRequest true "Rule set"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Security BearerAuth
// @Router /availability-rules [put]
func (h *AvailabilityRuleHandler) Replace(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.ReplaceRulesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	rules, err := h.service.Replace(c.Request.Context(), claims.StaffID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rules, nil)
}
