package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tripcrew/backend/internal/apperr"
	"github.com/tripcrew/backend/internal/dto"
	"github.com/tripcrew/backend/internal/models"
	"github.com/tripcrew/backend/internal/notify"
	"github.com/tripcrew/backend/internal/paypal"
	"github.com/tripcrew/backend/internal/services"
	"github.com/tripcrew/backend/internal/utils"
)

// PaymentsHandler manages the staged payments on trip subscriptions.
type PaymentsHandler struct {
	payments *services.Payments
	trips    *services.Trips
	groups   *services.Groups
	paypal   *paypal.Client // nil when PayPal is not configured
	sink     notify.Sink
}

// NewPaymentsHandler creates a new PaymentsHandler. paypalClient may be
// nil; the capture endpoint then reports the integration as unavailable.
func NewPaymentsHandler(payments *services.Payments, trips *services.Trips, groups *services.Groups, paypalClient *paypal.Client, sink notify.Sink) *PaymentsHandler {
	return &PaymentsHandler{payments: payments, trips: trips, groups: groups, paypal: paypalClient, sink: sink}
}

// Dispatch routes /api/trips/{id}/payments and its subresources.
func (h *PaymentsHandler) Dispatch(w http.ResponseWriter, r *http.Request, tripID uuid.UUID, parts []string) {
	if len(parts) == 0 || parts[0] == "" {
		if r.Method == http.MethodGet {
			h.Status(w, r, tripID)
			return
		}
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	switch parts[0] {
	case "capture":
		if r.Method == http.MethodPost {
			h.Capture(w, r, tripID)
			return
		}
	case "manual":
		if r.Method == http.MethodPost {
			h.Manual(w, r, tripID)
			return
		}
	}
	http.Error(w, "Not found", http.StatusNotFound)
}

// Capture handles POST /api/trips/{id}/payments/capture
// @Summary Capture a PayPal payment for a stage
// @Description Capture the approved PayPal order and mark the stage paid. Retrying a captured stage is a no-op.
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Trip id"
// @Param request body dto.CapturePaymentRequest true "Stage and PayPal order id"
// @Success 200 {object} dto.PaymentResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse "Capture did not complete"
// @Failure 503 {object} dto.ErrorResponse "PayPal not configured"
// @Router /api/trips/{id}/payments/capture [post]
func (h *PaymentsHandler) Capture(w http.ResponseWriter, r *http.Request, tripID uuid.UUID) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.WriteErrorResponse(w, http.StatusUnauthorized, "Unauthorized", "Invalid user context")
		return
	}

	var req dto.CapturePaymentRequest
	if err := utils.DecodeJSONRequest(w, r, &req); err != nil {
		return
	}

	if h.paypal == nil {
		utils.WriteErrorResponse(w, http.StatusServiceUnavailable, "Payments unavailable", "PayPal is not configured")
		return
	}

	capture, err := h.paypal.CaptureOrder(r.Context(), req.OrderID)
	if err != nil {
		utils.WriteErrorResponse(w, http.StatusBadGateway, "Capture failed", "PayPal did not confirm the payment")
		return
	}
	if !capture.Completed() {
		utils.WriteErrorResponse(w, http.StatusBadGateway, "Capture incomplete", "PayPal reported status "+capture.Status)
		return
	}

	amount, err := decimal.NewFromString(capture.Amount)
	if err != nil {
		utils.WriteErrorResponse(w, http.StatusBadGateway, "Capture failed", "PayPal returned a malformed amount")
		return
	}

	stage := models.PaymentStage(req.Stage)
	member, err := h.payments.RecordPaymentCaptured(r.Context(), tripID, userID, stage, capture.ID, amount)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	h.sink.Notify("Payment received", "Your "+req.Stage+" payment was recorded.", apperr.SeveritySuccess)
	utils.WriteJSONResponse(w, http.StatusOK, dto.PaymentResponse{
		Subscription: toSubscriptionResponse(member),
		Stages:       stageStates(member),
		Notification: &dto.Notification{
			Title:    "Payment received",
			Message:  "Your " + req.Stage + " payment was recorded.",
			Severity: string(apperr.SeveritySuccess),
		},
	})
}

// Manual handles POST /api/trips/{id}/payments/manual
// @Summary Record a payment collected outside PayPal
// @Description Mark a stage paid for any subscriber without a PayPal transaction; group admins only
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Trip id"
// @Param request body dto.ManualPaymentRequest true "Subscriber, stage and amount"
// @Success 200 {object} dto.PaymentResponse
// @Failure 403 {object} dto.ErrorResponse "Not a group admin"
// @Router /api/trips/{id}/payments/manual [post]
func (h *PaymentsHandler) Manual(w http.ResponseWriter, r *http.Request, tripID uuid.UUID) {
	requesterID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.WriteErrorResponse(w, http.StatusUnauthorized, "Unauthorized", "Invalid user context")
		return
	}

	var req dto.ManualPaymentRequest
	if err := utils.DecodeJSONRequest(w, r, &req); err != nil {
		return
	}

	targetID, err := uuid.Parse(req.UserID)
	if err != nil {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Invalid user id", "User id must be a UUID")
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Validation error", "amount must be a decimal amount")
		return
	}

	trip, err := h.trips.Get(r.Context(), tripID)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}
	if err := h.requireGroupAdmin(r, trip.GroupID, requesterID); err != nil {
		utils.WriteAppError(w, err)
		return
	}

	member, err := h.payments.RecordManualPayment(r.Context(), tripID, targetID, models.PaymentStage(req.Stage), amount)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	h.sink.Notify("Payment recorded", "The "+req.Stage+" payment was marked as paid.", apperr.SeveritySuccess)
	utils.WriteJSONResponse(w, http.StatusOK, dto.PaymentResponse{
		Subscription: toSubscriptionResponse(member),
		Stages:       stageStates(member),
	})
}

// Status handles GET /api/trips/{id}/payments
// @Summary Get the caller's payment status for a trip
// @Description Return the subscription with each stage classified; half-written stages surface as a conflict
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Trip id"
// @Success 200 {object} dto.PaymentResponse
// @Failure 409 {object} dto.PaymentResponse "A stage could not be verified"
// @Router /api/trips/{id}/payments [get]
func (h *PaymentsHandler) Status(w http.ResponseWriter, r *http.Request, tripID uuid.UUID) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.WriteErrorResponse(w, http.StatusUnauthorized, "Unauthorized", "Invalid user context")
		return
	}

	member, states, err := h.payments.Verify(r.Context(), tripID, userID)
	if err != nil && !errors.Is(err, apperr.ErrPaymentUnverified) {
		utils.WriteAppError(w, err)
		return
	}

	resp := dto.PaymentResponse{
		Subscription: toSubscriptionResponse(member),
		Stages:       stagesToStrings(states),
	}
	status := http.StatusOK
	if err != nil {
		status = http.StatusConflict
		resp.Notification = &dto.Notification{
			Title:    apperr.ErrPaymentUnverified.Title,
			Message:  apperr.ErrPaymentUnverified.Message,
			Severity: string(apperr.ErrPaymentUnverified.Severity),
		}
	}
	utils.WriteJSONResponse(w, status, resp)
}

func (h *PaymentsHandler) requireGroupAdmin(r *http.Request, groupID, requesterID uuid.UUID) error {
	members, err := h.groups.Members(r.Context(), groupID, requesterID)
	if err != nil {
		return err
	}
	for _, m := range members {
		if m.UserID == requesterID && m.IsAdmin() {
			return nil
		}
	}
	return apperr.ErrNotAuthorized
}

func stageStates(member *models.TripMember) map[string]string {
	states := map[models.PaymentStage]services.StageState{
		models.StageDown:  services.VerifyStage(member, models.StageDown),
		models.StageFull:  services.VerifyStage(member, models.StageFull),
		models.StageFinal: services.VerifyStage(member, models.StageFinal),
	}
	return stagesToStrings(states)
}

func stagesToStrings(states map[models.PaymentStage]services.StageState) map[string]string {
	out := make(map[string]string, len(states))
	for stage, state := range states {
		out[string(stage)] = string(state)
	}
	return out
}
