package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tripcrew/backend/internal/apperr"
	"github.com/tripcrew/backend/internal/dto"
	"github.com/tripcrew/backend/internal/models"
	"github.com/tripcrew/backend/internal/notify"
	"github.com/tripcrew/backend/internal/services"
	"github.com/tripcrew/backend/internal/utils"
)

// TripsHandler manages trip and subscription endpoints
type TripsHandler struct {
	trips    *services.Trips
	payments *PaymentsHandler
	sink     notify.Sink
}

// NewTripsHandler creates a new TripsHandler
func NewTripsHandler(trips *services.Trips, payments *PaymentsHandler, sink notify.Sink) *TripsHandler {
	return &TripsHandler{trips: trips, payments: payments, sink: sink}
}

// Trips dispatches by HTTP method for /api/trips
func (h *TripsHandler) Trips(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.CreateTrip(w, r)
	case http.MethodGet:
		h.ListTrips(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// TripByID dispatches /api/trips/{id} and its subresources.
func (h *TripsHandler) TripByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/trips/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")

	tripID, err := uuid.Parse(parts[0])
	if err != nil {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Invalid trip id", "Trip id must be a UUID")
		return
	}

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			h.TripDetail(w, r, tripID)
		case http.MethodDelete:
			h.DeleteTrip(w, r, tripID)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	switch parts[1] {
	case "subscribe":
		switch r.Method {
		case http.MethodPost:
			h.Subscribe(w, r, tripID)
			return
		case http.MethodDelete:
			h.Unsubscribe(w, r, tripID)
			return
		}
	case "subscribers":
		switch r.Method {
		case http.MethodGet:
			h.ListSubscribers(w, r, tripID)
			return
		case http.MethodDelete:
			h.RemoveSubscriber(w, r, tripID)
			return
		}
	case "payments":
		h.payments.Dispatch(w, r, tripID, parts[2:])
		return
	}
	http.Error(w, "Not found", http.StatusNotFound)
}

// CreateTrip handles POST /api/trips
// @Summary Create a trip
// @Description Create a trip in a group; the creator is subscribed automatically
// @Tags trips
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateTripRequest true "Trip payload"
// @Success 201 {object} dto.TripResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse "Not a group member"
// @Router /api/trips [post]
func (h *TripsHandler) CreateTrip(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.WriteErrorResponse(w, http.StatusUnauthorized, "Unauthorized", "Invalid user context")
		return
	}

	var req dto.CreateTripRequest
	if err := utils.DecodeJSONRequest(w, r, &req); err != nil {
		return
	}

	groupID, err := uuid.Parse(req.GroupID)
	if err != nil {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Invalid group id", "Group id must be a UUID")
		return
	}

	dateFrom, err := utils.ParseDate(req.DateFrom)
	if err != nil {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Validation error", "date_from must be ISO 8601 format (YYYY-MM-DD or RFC3339)")
		return
	}
	dateTo, err := utils.ParseDate(req.DateTo)
	if err != nil {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Validation error", "date_to must be ISO 8601 format (YYYY-MM-DD or RFC3339)")
		return
	}
	if dateTo.Before(dateFrom) {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Validation error", "date_to must not be before date_from")
		return
	}

	params := services.TripParams{
		Name:        strings.TrimSpace(req.Name),
		Destination: strings.TrimSpace(req.Destination),
		Description: req.Description,
		DateFrom:    dateFrom,
		DateTo:      dateTo,
		Currency:    req.Currency,
	}
	if params.DownPayment, err = parseAmount(req.DownPayment); err != nil {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Validation error", "down_payment must be a decimal amount")
		return
	}
	if params.FullPayment, err = parseAmount(req.FullPayment); err != nil {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Validation error", "full_payment must be a decimal amount")
		return
	}
	if params.FinalPayment, err = parseAmount(req.FinalPayment); err != nil {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Validation error", "final_payment must be a decimal amount")
		return
	}

	trip, err := h.trips.CreateTrip(r.Context(), groupID, userID, params)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	h.sink.Notify("Trip created", trip.Name+" was added to the group.", apperr.SeveritySuccess)
	utils.WriteJSONResponse(w, http.StatusCreated, toTripResponse(trip))
}

// ListTrips handles GET /api/trips?group_id={id}
// @Summary List a group's trips
// @Tags trips
// @Produce json
// @Security BearerAuth
// @Param group_id query string true "Group id"
// @Success 200 {object} dto.TripListResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/trips [get]
func (h *TripsHandler) ListTrips(w http.ResponseWriter, r *http.Request) {
	if _, ok := utils.GetUserIDFromContext(r.Context()); !ok {
		utils.WriteErrorResponse(w, http.StatusUnauthorized, "Unauthorized", "Invalid user context")
		return
	}

	groupID, err := uuid.Parse(r.URL.Query().Get("group_id"))
	if err != nil {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Invalid group id", "group_id query parameter must be a UUID")
		return
	}

	trips, err := h.trips.ListByGroup(r.Context(), groupID)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	resp := dto.TripListResponse{Trips: make([]dto.TripResponse, 0, len(trips))}
	for i := range trips {
		resp.Trips = append(resp.Trips, toTripResponse(&trips[i]))
	}
	utils.WriteJSONResponse(w, http.StatusOK, resp)
}

// TripDetail handles GET /api/trips/{id}
func (h *TripsHandler) TripDetail(w http.ResponseWriter, r *http.Request, tripID uuid.UUID) {
	if _, ok := utils.GetUserIDFromContext(r.Context()); !ok {
		utils.WriteErrorResponse(w, http.StatusUnauthorized, "Unauthorized", "Invalid user context")
		return
	}

	trip, err := h.trips.Get(r.Context(), tripID)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, toTripResponse(trip))
}

// DeleteTrip handles DELETE /api/trips/{id}
// @Summary Delete a trip
// @Description Delete a trip and its subscriptions; only the creator may do this
// @Tags trips
// @Produce json
// @Security BearerAuth
// @Param id path string true "Trip id"
// @Success 204 "Deleted"
// @Failure 403 {object} dto.ErrorResponse "Not the creator"
// @Router /api/trips/{id} [delete]
func (h *TripsHandler) DeleteTrip(w http.ResponseWriter, r *http.Request, tripID uuid.UUID) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.WriteErrorResponse(w, http.StatusUnauthorized, "Unauthorized", "Invalid user context")
		return
	}

	if err := h.trips.DeleteTrip(r.Context(), tripID, userID); err != nil {
		utils.WriteAppError(w, err)
		return
	}

	h.sink.Notify("Trip deleted", "The trip and its subscriptions were removed.", apperr.SeverityDestructive)
	w.WriteHeader(http.StatusNoContent)
}

// Subscribe handles POST /api/trips/{id}/subscribe
// @Summary Subscribe to a trip
// @Tags trips
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Trip id"
// @Param request body dto.SubscribeRequest false "Extra attendees"
// @Success 201 {object} dto.SubscriptionResponse
// @Failure 403 {object} dto.ErrorResponse "Not a group member"
// @Failure 409 {object} dto.ErrorResponse "Trip closed or already subscribed"
// @Router /api/trips/{id}/subscribe [post]
func (h *TripsHandler) Subscribe(w http.ResponseWriter, r *http.Request, tripID uuid.UUID) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.WriteErrorResponse(w, http.StatusUnauthorized, "Unauthorized", "Invalid user context")
		return
	}

	var req dto.SubscribeRequest
	if r.ContentLength > 0 {
		if err := utils.DecodeJSONRequest(w, r, &req); err != nil {
			return
		}
	}

	additional := make([]time.Time, 0, len(req.Additional))
	for _, s := range req.Additional {
		bd, err := time.Parse("2006-01-02", s)
		if err != nil {
			utils.WriteErrorResponse(w, http.StatusBadRequest, "Validation error", "additional entries must be YYYY-MM-DD birthdates")
			return
		}
		additional = append(additional, bd)
	}

	member, err := h.trips.Subscribe(r.Context(), tripID, userID, additional)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	h.sink.Notify("Subscribed", "You joined the trip.", apperr.SeveritySuccess)
	utils.WriteJSONResponse(w, http.StatusCreated, toSubscriptionResponse(member))
}

// Unsubscribe handles DELETE /api/trips/{id}/subscribe
// @Summary Unsubscribe from a trip
// @Tags trips
// @Produce json
// @Security BearerAuth
// @Param id path string true "Trip id"
// @Success 204 "Unsubscribed"
// @Failure 409 {object} dto.ErrorResponse "Payments recorded"
// @Router /api/trips/{id}/subscribe [delete]
func (h *TripsHandler) Unsubscribe(w http.ResponseWriter, r *http.Request, tripID uuid.UUID) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.WriteErrorResponse(w, http.StatusUnauthorized, "Unauthorized", "Invalid user context")
		return
	}

	if err := h.trips.Unsubscribe(r.Context(), tripID, userID); err != nil {
		utils.WriteAppError(w, err)
		return
	}

	h.sink.Notify("Unsubscribed", "You left the trip.", apperr.SeverityDefault)
	w.WriteHeader(http.StatusNoContent)
}

// ListSubscribers handles GET /api/trips/{id}/subscribers
func (h *TripsHandler) ListSubscribers(w http.ResponseWriter, r *http.Request, tripID uuid.UUID) {
	if _, ok := utils.GetUserIDFromContext(r.Context()); !ok {
		utils.WriteErrorResponse(w, http.StatusUnauthorized, "Unauthorized", "Invalid user context")
		return
	}

	members, err := h.trips.Subscribers(r.Context(), tripID)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	resp := dto.SubscriberListResponse{Subscribers: make([]dto.SubscriptionResponse, 0, len(members))}
	for i := range members {
		resp.Subscribers = append(resp.Subscribers, toSubscriptionResponse(&members[i]))
	}
	utils.WriteJSONResponse(w, http.StatusOK, resp)
}

// RemoveSubscriber handles DELETE /api/trips/{id}/subscribers
// @Summary Remove a subscriber from a trip
// @Description Remove another user's subscription; trip creator or group admin only. Paid subscriptions need the override flag.
// @Tags trips
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Trip id"
// @Param request body dto.RemoveSubscriberRequest true "Target user"
// @Success 204 "Removed"
// @Failure 403 {object} dto.ErrorResponse "Not authorized"
// @Failure 409 {object} dto.ErrorResponse "Payments recorded"
// @Router /api/trips/{id}/subscribers [delete]
func (h *TripsHandler) RemoveSubscriber(w http.ResponseWriter, r *http.Request, tripID uuid.UUID) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.WriteErrorResponse(w, http.StatusUnauthorized, "Unauthorized", "Invalid user context")
		return
	}

	var req dto.RemoveSubscriberRequest
	if err := utils.DecodeJSONRequest(w, r, &req); err != nil {
		return
	}
	targetID, err := uuid.Parse(req.UserID)
	if err != nil {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Invalid user id", "User id must be a UUID")
		return
	}

	if err := h.trips.RemoveSubscriber(r.Context(), tripID, userID, targetID, req.Override); err != nil {
		utils.WriteAppError(w, err)
		return
	}

	h.sink.Notify("Subscriber removed", "The subscription was removed from the trip.", apperr.SeverityDestructive)
	w.WriteHeader(http.StatusNoContent)
}

func parseAmount(s *string) (*decimal.Decimal, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func toTripResponse(t *models.Trip) dto.TripResponse {
	return dto.TripResponse{
		ID:           t.ID.String(),
		GroupID:      t.GroupID.String(),
		Name:         t.Name,
		Destination:  t.Destination,
		Description:  t.Description,
		DateFrom:     utils.FormatDate(t.DateFrom),
		DateTo:       utils.FormatDate(t.DateTo),
		Status:       t.Status,
		DownPayment:  amountString(t.DownPayment),
		FullPayment:  amountString(t.FullPayment),
		FinalPayment: amountString(t.FinalPayment),
		Currency:     t.Currency,
		CreatedBy:    t.CreatedBy.String(),
		CreatedAt:    utils.FormatTimestamp(t.CreatedAt),
		UpdatedAt:    utils.FormatTimestamp(t.UpdatedAt),
	}
}

func toSubscriptionResponse(m *models.TripMember) dto.SubscriptionResponse {
	resp := dto.SubscriptionResponse{
		TripID:       m.TripID.String(),
		UserID:       m.UserID.String(),
		Role:         m.Role,
		SubscribedAt: utils.FormatTimestamp(m.SubscribedAt),

		DownPayment:         m.DownPayment,
		DownPaymentPaypalID: m.DownPaymentPaypalID,
		DownPaymentAmount:   amountString(m.DownPaymentAmount),

		FullPayment:         m.FullPayment,
		FullPaymentPaypalID: m.FullPaymentPaypalID,
		FullPaymentAmount:   amountString(m.FullPaymentAmount),

		FinalPayment:         m.FinalPayment,
		FinalPaymentPaypalID: m.FinalPaymentPaypalID,
		FinalPaymentAmount:   amountString(m.FinalPaymentAmount),
	}
	for _, bd := range m.Additional {
		resp.Additional = append(resp.Additional, utils.FormatDate(bd))
	}
	return resp
}

func amountString(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}
