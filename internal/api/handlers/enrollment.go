package handlers

import (
	"net/http"

	"github.com/one39/enrollment/internal/api/dto"
	"github.com/one39/enrollment/internal/domain/enrollment"
	"github.com/one39/enrollment/internal/pkg/logger"
	"github.com/one39/enrollment/internal/pkg/utils"
	"github.com/one39/enrollment/internal/pkg/validator"
)

// EnrollmentHandler serves the two checkout calls made by the registration form
type EnrollmentHandler struct {
	service   enrollment.Service
	logger    *logger.Logger
	validator *validator.Validator
}

// NewEnrollmentHandler creates a new enrollment handler
func NewEnrollmentHandler(service enrollment.Service, log *logger.Logger, val *validator.Validator) *EnrollmentHandler {
	return &EnrollmentHandler{service: service, logger: log, validator: val}
}

// CreatePayment creates the customer and a setup intent
// @Summary Start enrollment
// @Description Create a payment customer and a setup intent for card collection
// @Tags Enrollment
// @Accept json
// @Produce json
// @Param request body dto.CreatePaymentRequest true "Registration form"
// @Success 200 {object} dto.CreatePaymentResponse
// @Failure 400 {object} utils.ErrorResponse "Invalid plan or request"
// @Failure 405 {object} utils.ErrorResponse "Method not allowed"
// @Failure 500 {object} utils.ErrorResponse "Payment provider error"
// @Router /api/create-payment [post]
func (h *EnrollmentHandler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req dto.CreatePaymentRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	result, err := h.service.Start(r.Context(), enrollment.StartRequest{
		Registrant: enrollment.Registrant{
			Name:       req.Name,
			Email:      req.Email,
			Phone:      req.Phone,
			Coach:      req.Coach,
			ChurchName: req.ChurchName,
			Position:   req.Position,
		},
		PlanID: req.PlanID,
	})
	if err != nil {
		appErr := toAppError(err)
		h.logger.WithError(err).With("plan_id", req.PlanID).Error("Create payment failed")
		utils.WriteError(w, appErr)
		return
	}

	utils.WriteJSON(w, http.StatusOK, dto.CreatePaymentResponse{
		ClientSecret: result.ClientSecret,
		CustomerID:   result.CustomerID,
	})
}

// ConfirmPayment bills the collected payment method for the chosen plan
// @Summary Confirm enrollment
// @Description Attach the payment method, charge or subscribe per plan, and record the enrollment
// @Tags Enrollment
// @Accept json
// @Produce json
// @Param request body dto.ConfirmPaymentRequest true "Confirmation"
// @Success 200 {object} utils.SuccessResponse
// @Failure 400 {object} utils.ErrorResponse "Invalid plan or enrollment closed"
// @Failure 405 {object} utils.ErrorResponse "Method not allowed"
// @Failure 500 {object} utils.ErrorResponse "Payment provider error"
// @Router /api/confirm-payment [post]
func (h *EnrollmentHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	var req dto.ConfirmPaymentRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	h.logger.WithFields(map[string]interface{}{
		"customer_id": req.CustomerID,
		"plan_id":     req.PlanID,
	}).Info("Confirm payment request")

	outcome, err := h.service.Confirm(r.Context(), enrollment.ConfirmRequest{
		Registrant: enrollment.Registrant{
			Name:       req.Name,
			Email:      req.Email,
			Phone:      req.Phone,
			Coach:      req.Coach,
			ChurchName: req.ChurchName,
			Position:   req.Position,
		},
		CustomerID:      req.CustomerID,
		PaymentMethodID: req.PaymentMethodID,
		PlanID:          req.PlanID,
	})
	if err != nil {
		appErr := toAppError(err)
		h.logger.WithError(err).WithFields(map[string]interface{}{
			"customer_id": req.CustomerID,
			"plan_id":     req.PlanID,
			"status":      appErr.StatusCode,
		}).Error("Confirm payment failed")
		utils.WriteError(w, appErr)
		return
	}

	h.logger.WithFields(map[string]interface{}{
		"customer_id":   req.CustomerID,
		"subscriptions": len(outcome.SubscriptionIDs),
		"charges":       len(outcome.PaymentIntentIDs),
	}).Info("Enrollment complete")

	utils.WriteSuccess(w)
}
