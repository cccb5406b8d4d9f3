package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Trip lifecycle status values, derived from the trip's date range.
// Persisted literally; a trip only ever moves forward through them.
const (
	TripStatusUpcoming = "upcoming"
	TripStatusCurrent  = "current"
	TripStatusDone     = "done"
)

// Trip represents a travel trip owned by a group.
type Trip struct {
	ID          uuid.UUID        `json:"id" db:"id"`
	GroupID     uuid.UUID        `json:"group_id" db:"group_id"`
	Name        string           `json:"name" db:"name"`
	Destination string           `json:"destination" db:"destination"`
	Description string           `json:"description" db:"description"`
	DateFrom    time.Time        `json:"date_from" db:"date_from"`
	DateTo      time.Time        `json:"date_to" db:"date_to"`
	Status      string           `json:"status" db:"status"`
	DownPayment *decimal.Decimal `json:"down_payment" db:"down_payment"`
	FullPayment *decimal.Decimal `json:"full_payment" db:"full_payment"`
	FinalPayment *decimal.Decimal `json:"final_payment" db:"final_payment"`
	Currency    string           `json:"currency" db:"currency"`
	CreatedBy   uuid.UUID        `json:"created_by" db:"created_by"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at" db:"updated_at"`
}

// PaymentStage identifies one of the three staged payments on a subscription.
type PaymentStage string

const (
	StageDown  PaymentStage = "down"
	StageFull  PaymentStage = "full"
	StageFinal PaymentStage = "final"
)

// Valid reports whether s is one of the three known stages.
func (s PaymentStage) Valid() bool {
	switch s {
	case StageDown, StageFull, StageFinal:
		return true
	}
	return false
}

// TripMember is a user's subscription to a trip, carrying the three
// payment-stage flags with their PayPal transaction ids and amounts.
// Identity is the (trip_id, user_id) pair.
type TripMember struct {
	TripID       uuid.UUID `json:"trip_id" db:"trip_id"`
	UserID       uuid.UUID `json:"user_id" db:"user_id"`
	Role         string    `json:"role" db:"role"`
	SubscribedAt time.Time `json:"subscribed_at" db:"subscribed_at"`

	DownPayment         bool             `json:"down_payment" db:"down_payment"`
	DownPaymentPaypalID *string          `json:"down_payment_paypal_id" db:"down_payment_paypal_id"`
	DownPaymentAmount   *decimal.Decimal `json:"down_payment_amount" db:"down_payment_amount"`

	FullPayment         bool             `json:"full_payment" db:"full_payment"`
	FullPaymentPaypalID *string          `json:"full_payment_paypal_id" db:"full_payment_paypal_id"`
	FullPaymentAmount   *decimal.Decimal `json:"full_payment_amount" db:"full_payment_amount"`

	FinalPayment         bool             `json:"final_payment" db:"final_payment"`
	FinalPaymentPaypalID *string          `json:"final_payment_paypal_id" db:"final_payment_paypal_id"`
	FinalPaymentAmount   *decimal.Decimal `json:"final_payment_amount" db:"final_payment_amount"`

	// Additional holds birthdates of extra attendees travelling on this
	// subscription (children, plus-ones without accounts).
	Additional []time.Time `json:"additional" db:"additional"`
}

// StagePaid reports whether the given payment stage has been captured.
func (m *TripMember) StagePaid(stage PaymentStage) bool {
	switch stage {
	case StageDown:
		return m.DownPayment
	case StageFull:
		return m.FullPayment
	case StageFinal:
		return m.FinalPayment
	}
	return false
}

// StagePaypalID returns the transaction id recorded for the stage, if any.
func (m *TripMember) StagePaypalID(stage PaymentStage) *string {
	switch stage {
	case StageDown:
		return m.DownPaymentPaypalID
	case StageFull:
		return m.FullPaymentPaypalID
	case StageFinal:
		return m.FinalPaymentPaypalID
	}
	return nil
}

// StageAmount returns the amount recorded for the stage, if any.
func (m *TripMember) StageAmount(stage PaymentStage) *decimal.Decimal {
	switch stage {
	case StageDown:
		return m.DownPaymentAmount
	case StageFull:
		return m.FullPaymentAmount
	case StageFinal:
		return m.FinalPaymentAmount
	}
	return nil
}

// HasAnyPayment reports whether any of the three stages has been paid.
// Subscriptions with money on them are locked against deletion.
func (m *TripMember) HasAnyPayment() bool {
	return m.DownPayment || m.FullPayment || m.FinalPayment
}
