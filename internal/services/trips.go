package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tripcrew/backend/internal/apperr"
	"github.com/tripcrew/backend/internal/models"
	"github.com/tripcrew/backend/internal/store"
)

// Trips drives the trip lifecycle and subscription rules.
type Trips struct {
	store store.Gateway
	now   func() time.Time
}

// NewTrips creates the trip lifecycle service.
func NewTrips(gw store.Gateway) *Trips {
	return &Trips{store: gw, now: time.Now}
}

// DeriveStatus classifies a trip's date range against now. Pure.
func DeriveStatus(dateFrom, dateTo, now time.Time) string {
	switch {
	case now.Before(dateFrom):
		return models.TripStatusUpcoming
	case now.After(dateTo):
		return models.TripStatusDone
	}
	return models.TripStatusCurrent
}

// statusRank orders the lifecycle; reconciliation never moves backward.
func statusRank(status string) int {
	switch status {
	case models.TripStatusUpcoming:
		return 0
	case models.TripStatusCurrent:
		return 1
	case models.TripStatusDone:
		return 2
	}
	return -1
}

// ReconcileStatus recomputes the trip's status and persists it when it
// advanced. The cached column never regresses for a fixed date range.
func (s *Trips) ReconcileStatus(ctx context.Context, trip *models.Trip) (*models.Trip, error) {
	derived := DeriveStatus(trip.DateFrom, trip.DateTo, s.now())
	if derived == trip.Status || statusRank(derived) < statusRank(trip.Status) {
		return trip, nil
	}

	if err := s.store.UpdateTripStatus(ctx, trip.ID, derived, s.now()); err != nil {
		slog.Warn("ReconcileStatus failed", "trip_id", trip.ID, "status", derived, "error", err)
		if errors.Is(err, store.ErrTimeout) {
			return nil, apperr.ErrTimeout
		}
		return nil, apperr.ErrUnknown
	}

	updated := *trip
	updated.Status = derived
	slog.Info("trip status reconciled", "trip_id", trip.ID, "from", trip.Status, "to", derived)
	return &updated, nil
}

// TripParams carries the descriptive fields of a new trip.
type TripParams struct {
	Name         string
	Destination  string
	Description  string
	DateFrom     time.Time
	DateTo       time.Time
	Currency     string
	DownPayment  *decimal.Decimal
	FullPayment  *decimal.Decimal
	FinalPayment *decimal.Decimal
}

// CreateTrip inserts a trip into the group. The creator must be a group
// member and is subscribed to the trip automatically.
func (s *Trips) CreateTrip(ctx context.Context, groupID, creatorID uuid.UUID, params TripParams) (*models.Trip, error) {
	if _, err := s.store.GetGroupMember(ctx, groupID, creatorID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.ErrNotAuthorized
		}
		return nil, s.readErr("CreateTrip", err)
	}

	now := s.now()
	trip := &models.Trip{
		ID:           uuid.New(),
		GroupID:      groupID,
		Name:         params.Name,
		Destination:  params.Destination,
		Description:  params.Description,
		DateFrom:     params.DateFrom,
		DateTo:       params.DateTo,
		Status:       DeriveStatus(params.DateFrom, params.DateTo, now),
		DownPayment:  params.DownPayment,
		FullPayment:  params.FullPayment,
		FinalPayment: params.FinalPayment,
		Currency:     params.Currency,
		CreatedBy:    creatorID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.InsertTrip(ctx, trip); err != nil {
		slog.Warn("CreateTrip failed", "group_id", groupID, "error", err)
		switch {
		case errors.Is(err, store.ErrForeignKey):
			return nil, apperr.ErrUnknownGroup
		case errors.Is(err, store.ErrTimeout):
			return nil, apperr.ErrTimeout
		}
		return nil, apperr.ErrUnknown
	}

	member := &models.TripMember{
		TripID:       trip.ID,
		UserID:       creatorID,
		Role:         models.RoleAdmin,
		SubscribedAt: now,
	}
	if err := s.store.InsertTripMember(ctx, member); err != nil {
		slog.Error("creator subscription failed after trip insert", "trip_id", trip.ID, "error", err)
		return nil, apperr.ErrUnknown
	}

	slog.Info("trip created", "trip_id", trip.ID, "group_id", groupID, "creator_id", creatorID)
	return trip, nil
}

// Get returns the trip with its status reconciled on read.
func (s *Trips) Get(ctx context.Context, tripID uuid.UUID) (*models.Trip, error) {
	trip, err := s.store.GetTrip(ctx, tripID)
	if err != nil {
		return nil, s.readErr("Get", err)
	}
	return s.ReconcileStatus(ctx, trip)
}

// ListByGroup returns the group's trips, each reconciled on read.
func (s *Trips) ListByGroup(ctx context.Context, groupID uuid.UUID) ([]models.Trip, error) {
	trips, err := s.store.ListTripsByGroup(ctx, groupID)
	if err != nil {
		return nil, s.readErr("ListByGroup", err)
	}
	for i := range trips {
		reconciled, err := s.ReconcileStatus(ctx, &trips[i])
		if err != nil {
			return nil, err
		}
		trips[i] = *reconciled
	}
	return trips, nil
}

// Subscribe adds userID to the trip with all payment flags cleared.
// Only future trips accept subscriptions; once date_from has arrived the
// window is closed.
func (s *Trips) Subscribe(ctx context.Context, tripID, userID uuid.UUID, additional []time.Time) (*models.TripMember, error) {
	trip, err := s.store.GetTrip(ctx, tripID)
	if err != nil {
		return nil, s.readErr("Subscribe", err)
	}
	if !s.now().Before(trip.DateFrom) {
		return nil, apperr.ErrTripClosed
	}
	if _, err := s.store.GetGroupMember(ctx, trip.GroupID, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.ErrNotAuthorized
		}
		return nil, s.readErr("Subscribe", err)
	}

	member := &models.TripMember{
		TripID:       tripID,
		UserID:       userID,
		Role:         models.RoleMember,
		SubscribedAt: s.now(),
		Additional:   additional,
	}
	if err := s.store.InsertTripMember(ctx, member); err != nil {
		slog.Warn("Subscribe failed", "trip_id", tripID, "user_id", userID, "error", err)
		switch {
		case errors.Is(err, store.ErrUniqueViolation):
			return nil, apperr.ErrAlreadySubscribed
		case errors.Is(err, store.ErrForeignKey):
			return nil, apperr.ErrUnknownGroup
		case errors.Is(err, store.ErrTimeout):
			return nil, apperr.ErrTimeout
		}
		return nil, apperr.ErrUnknown
	}

	slog.Info("user subscribed", "trip_id", tripID, "user_id", userID)
	return member, nil
}

// Unsubscribe removes the caller's subscription. Subscriptions with any
// captured payment stage are locked.
func (s *Trips) Unsubscribe(ctx context.Context, tripID, userID uuid.UUID) error {
	member, err := s.store.GetTripMember(ctx, tripID, userID)
	if err != nil {
		return s.readErr("Unsubscribe", err)
	}
	if member.HasAnyPayment() {
		return apperr.ErrPaymentLocked
	}

	if err := s.store.DeleteTripMember(ctx, tripID, userID); err != nil {
		slog.Warn("Unsubscribe failed", "trip_id", tripID, "user_id", userID, "error", err)
		if errors.Is(err, store.ErrTimeout) {
			return apperr.ErrTimeout
		}
		return apperr.ErrUnknown
	}

	slog.Info("user unsubscribed", "trip_id", tripID, "user_id", userID)
	return nil
}

// RemoveSubscriber is the admin path for taking someone off a trip. The
// default path refuses once any payment stage is captured; override is
// the explicit payment-aware confirmation.
func (s *Trips) RemoveSubscriber(ctx context.Context, tripID, requesterID, targetUserID uuid.UUID, override bool) error {
	trip, err := s.store.GetTrip(ctx, tripID)
	if err != nil {
		return s.readErr("RemoveSubscriber", err)
	}
	if trip.CreatedBy != requesterID {
		requester, err := s.store.GetGroupMember(ctx, trip.GroupID, requesterID)
		if err != nil || !requester.IsAdmin() {
			return apperr.ErrNotAuthorized
		}
	}

	member, err := s.store.GetTripMember(ctx, tripID, targetUserID)
	if err != nil {
		return s.readErr("RemoveSubscriber", err)
	}
	if member.HasAnyPayment() && !override {
		return apperr.ErrPaymentLocked
	}

	if err := s.store.DeleteTripMember(ctx, tripID, targetUserID); err != nil {
		if errors.Is(err, store.ErrTimeout) {
			return apperr.ErrTimeout
		}
		return apperr.ErrUnknown
	}

	slog.Info("subscriber removed", "trip_id", tripID, "target_user_id", targetUserID, "override", override)
	return nil
}

// DeleteTrip removes the trip and its subscriptions. Creator-only.
func (s *Trips) DeleteTrip(ctx context.Context, tripID, requesterID uuid.UUID) error {
	trip, err := s.store.GetTrip(ctx, tripID)
	if err != nil {
		return s.readErr("DeleteTrip", err)
	}
	if trip.CreatedBy != requesterID {
		return apperr.ErrNotAuthorized
	}

	if err := s.store.DeleteTrip(ctx, tripID); err != nil {
		slog.Warn("DeleteTrip failed", "trip_id", tripID, "error", err)
		if errors.Is(err, store.ErrTimeout) {
			return apperr.ErrTimeout
		}
		return apperr.ErrUnknown
	}

	slog.Info("trip deleted", "trip_id", tripID, "requester_id", requesterID)
	return nil
}

// Subscribers returns the trip's subscriptions.
func (s *Trips) Subscribers(ctx context.Context, tripID uuid.UUID) ([]models.TripMember, error) {
	members, err := s.store.ListTripMembers(ctx, tripID)
	if err != nil {
		return nil, s.readErr("Subscribers", err)
	}
	return members, nil
}

func (s *Trips) readErr(op string, err error) error {
	slog.Error("store read failed", "op", op, "error", err)
	switch {
	case errors.Is(err, store.ErrTimeout):
		return apperr.ErrTimeout
	case errors.Is(err, store.ErrMalformedID):
		return apperr.ErrMalformedInvite
	}
	// Unknown trips and subscriptions have no dedicated code; they are
	// surfaced, never swallowed.
	return apperr.ErrUnknown
}
