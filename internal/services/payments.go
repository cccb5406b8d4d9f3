package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tripcrew/backend/internal/apperr"
	"github.com/tripcrew/backend/internal/models"
	"github.com/tripcrew/backend/internal/store"
)

// StageState is the verified view of one payment stage.
type StageState string

const (
	StageUnpaid StageState = "unpaid"
	StagePaid   StageState = "paid"
	// StageUnverified means the flag is set but neither a transaction id
	// nor a recorded amount backs it up: a half-written update. The stage
	// still counts as paid for the deletion lock, but is reported so it
	// can be repaired.
	StageUnverified StageState = "unverified"
)

// Payments records the staged payments on trip subscriptions.
type Payments struct {
	store store.Gateway
}

// NewPayments creates the payment ledger.
func NewPayments(gw store.Gateway) *Payments {
	return &Payments{store: gw}
}

// RecordPaymentCaptured marks a stage paid with its PayPal transaction id.
// Capturing an already-captured stage is a no-op, so a retried capture
// callback is never double-processed. Flag and transaction id are written
// together.
func (p *Payments) RecordPaymentCaptured(ctx context.Context, tripID, userID uuid.UUID, stage models.PaymentStage, transactionID string, amount decimal.Decimal) (*models.TripMember, error) {
	if !stage.Valid() {
		return nil, apperr.ErrUnknown
	}

	member, err := p.store.GetTripMember(ctx, tripID, userID)
	if err != nil {
		return nil, p.readErr(err)
	}
	if member.StagePaid(stage) {
		slog.Info("payment stage already captured, skipping", "trip_id", tripID, "user_id", userID, "stage", stage)
		return member, nil
	}

	if err := p.store.SetPaymentStage(ctx, tripID, userID, stage, &transactionID, &amount); err != nil {
		slog.Error("RecordPaymentCaptured failed", "trip_id", tripID, "user_id", userID, "stage", stage, "error", err)
		return nil, p.readErr(err)
	}

	slog.Info("payment captured", "trip_id", tripID, "user_id", userID, "stage", stage, "paypal_id", transactionID)
	return p.store.GetTripMember(ctx, tripID, userID)
}

// RecordManualPayment marks a stage paid without a PayPal transaction,
// for payments an admin collected outside the checkout. Same idempotency
// and co-update rules as the captured path, minus the transaction id.
func (p *Payments) RecordManualPayment(ctx context.Context, tripID, userID uuid.UUID, stage models.PaymentStage, amount decimal.Decimal) (*models.TripMember, error) {
	if !stage.Valid() {
		return nil, apperr.ErrUnknown
	}

	member, err := p.store.GetTripMember(ctx, tripID, userID)
	if err != nil {
		return nil, p.readErr(err)
	}
	if member.StagePaid(stage) {
		return member, nil
	}

	if err := p.store.SetPaymentStage(ctx, tripID, userID, stage, nil, &amount); err != nil {
		slog.Error("RecordManualPayment failed", "trip_id", tripID, "user_id", userID, "stage", stage, "error", err)
		return nil, p.readErr(err)
	}

	slog.Info("manual payment recorded", "trip_id", tripID, "user_id", userID, "stage", stage)
	return p.store.GetTripMember(ctx, tripID, userID)
}

// HasAnyPayment reports whether any stage of the subscription is paid.
// This is the predicate that locks membership mutations.
func (p *Payments) HasAnyPayment(ctx context.Context, tripID, userID uuid.UUID) (bool, error) {
	member, err := p.store.GetTripMember(ctx, tripID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, p.readErr(err)
	}
	return member.HasAnyPayment(), nil
}

// VerifyStage classifies one stage of a subscription snapshot, detecting
// flags with no backing transaction id or amount.
func VerifyStage(member *models.TripMember, stage models.PaymentStage) StageState {
	if !member.StagePaid(stage) {
		return StageUnpaid
	}
	if member.StagePaypalID(stage) == nil && member.StageAmount(stage) == nil {
		return StageUnverified
	}
	return StagePaid
}

// Verify returns the subscription with each stage classified; an
// unverified stage surfaces as PaymentUnverified alongside the snapshot
// so callers can flag it without losing the row.
func (p *Payments) Verify(ctx context.Context, tripID, userID uuid.UUID) (*models.TripMember, map[models.PaymentStage]StageState, error) {
	member, err := p.store.GetTripMember(ctx, tripID, userID)
	if err != nil {
		return nil, nil, p.readErr(err)
	}

	states := map[models.PaymentStage]StageState{
		models.StageDown:  VerifyStage(member, models.StageDown),
		models.StageFull:  VerifyStage(member, models.StageFull),
		models.StageFinal: VerifyStage(member, models.StageFinal),
	}
	for stage, state := range states {
		if state == StageUnverified {
			slog.Warn("inconsistent payment stage", "trip_id", tripID, "user_id", userID, "stage", stage)
			return member, states, apperr.ErrPaymentUnverified
		}
	}
	return member, states, nil
}

func (p *Payments) readErr(err error) error {
	switch {
	case errors.Is(err, store.ErrTimeout):
		return apperr.ErrTimeout
	}
	return apperr.ErrUnknown
}
