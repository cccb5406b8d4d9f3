package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripcrew/backend/internal/apperr"
	"github.com/tripcrew/backend/internal/models"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestRecordPaymentCapturedIdempotent(t *testing.T) {
	f := newTripFixture(t)
	payments := NewPayments(f.gw)
	trip := f.createTrip(t, time.Now().Add(48*time.Hour), time.Now().Add(96*time.Hour))

	_, err := f.trips.Subscribe(context.Background(), trip.ID, f.member, nil)
	require.NoError(t, err)

	first, err := payments.RecordPaymentCaptured(context.Background(), trip.ID, f.member, models.StageFull, "TXN1", dec("950.00"))
	require.NoError(t, err)
	assert.True(t, first.FullPayment)
	require.NotNil(t, first.FullPaymentPaypalID)
	assert.Equal(t, "TXN1", *first.FullPaymentPaypalID)
	require.NotNil(t, first.FullPaymentAmount)
	assert.True(t, first.FullPaymentAmount.Equal(dec("950.00")))

	// A retried capture callback changes nothing, not even the id.
	second, err := payments.RecordPaymentCaptured(context.Background(), trip.ID, f.member, models.StageFull, "TXN2", dec("950.00"))
	require.NoError(t, err)
	assert.True(t, second.FullPayment)
	assert.Equal(t, "TXN1", *second.FullPaymentPaypalID)
	assert.True(t, second.FullPaymentAmount.Equal(dec("950.00")))
}

func TestPaymentStagesAreIndependent(t *testing.T) {
	f := newTripFixture(t)
	payments := NewPayments(f.gw)
	trip := f.createTrip(t, time.Now().Add(48*time.Hour), time.Now().Add(96*time.Hour))

	_, err := f.trips.Subscribe(context.Background(), trip.ID, f.member, nil)
	require.NoError(t, err)

	sub, err := payments.RecordPaymentCaptured(context.Background(), trip.ID, f.member, models.StageDown, "PAYID-1", dec("120.00"))
	require.NoError(t, err)
	assert.True(t, sub.DownPayment)
	assert.False(t, sub.FullPayment)
	assert.False(t, sub.FinalPayment)

	sub, err = payments.RecordPaymentCaptured(context.Background(), trip.ID, f.member, models.StageFinal, "PAYID-3", dec("80.00"))
	require.NoError(t, err)
	assert.True(t, sub.DownPayment)
	assert.False(t, sub.FullPayment)
	assert.True(t, sub.FinalPayment)
}

func TestRecordManualPayment(t *testing.T) {
	f := newTripFixture(t)
	payments := NewPayments(f.gw)
	trip := f.createTrip(t, time.Now().Add(48*time.Hour), time.Now().Add(96*time.Hour))

	_, err := f.trips.Subscribe(context.Background(), trip.ID, f.member, nil)
	require.NoError(t, err)

	sub, err := payments.RecordManualPayment(context.Background(), trip.ID, f.member, models.StageDown, dec("120.00"))
	require.NoError(t, err)
	assert.True(t, sub.DownPayment)
	assert.Nil(t, sub.DownPaymentPaypalID)
	require.NotNil(t, sub.DownPaymentAmount)
	assert.True(t, sub.DownPaymentAmount.Equal(dec("120.00")))

	// Manual entries carry an amount, so they verify as paid.
	assert.Equal(t, StagePaid, VerifyStage(sub, models.StageDown))

	// Idempotent like the captured path.
	again, err := payments.RecordManualPayment(context.Background(), trip.ID, f.member, models.StageDown, dec("999.00"))
	require.NoError(t, err)
	assert.True(t, again.DownPaymentAmount.Equal(dec("120.00")))
}

func TestHasAnyPayment(t *testing.T) {
	f := newTripFixture(t)
	payments := NewPayments(f.gw)
	trip := f.createTrip(t, time.Now().Add(48*time.Hour), time.Now().Add(96*time.Hour))

	_, err := f.trips.Subscribe(context.Background(), trip.ID, f.member, nil)
	require.NoError(t, err)

	paid, err := payments.HasAnyPayment(context.Background(), trip.ID, f.member)
	require.NoError(t, err)
	assert.False(t, paid)

	_, err = payments.RecordPaymentCaptured(context.Background(), trip.ID, f.member, models.StageDown, "PAYID-1", dec("120.00"))
	require.NoError(t, err)

	paid, err = payments.HasAnyPayment(context.Background(), trip.ID, f.member)
	require.NoError(t, err)
	assert.True(t, paid)
}

func TestVerifyDetectsHalfWrittenStage(t *testing.T) {
	f := newTripFixture(t)
	payments := NewPayments(f.gw)
	trip := f.createTrip(t, time.Now().Add(48*time.Hour), time.Now().Add(96*time.Hour))

	_, err := f.trips.Subscribe(context.Background(), trip.ID, f.member, nil)
	require.NoError(t, err)

	// Simulate a store that set the flag without id or amount.
	require.NoError(t, f.gw.SetPaymentStage(context.Background(), trip.ID, f.member, models.StageFull, nil, nil))

	sub, states, err := payments.Verify(context.Background(), trip.ID, f.member)
	assert.ErrorIs(t, err, apperr.ErrPaymentUnverified)
	require.NotNil(t, sub)
	assert.Equal(t, StageUnverified, states[models.StageFull])
	assert.Equal(t, StageUnpaid, states[models.StageDown])

	// The flag still locks the subscription; I4 never loosens.
	assert.True(t, sub.HasAnyPayment())
}

func TestVerifyCleanSubscription(t *testing.T) {
	f := newTripFixture(t)
	payments := NewPayments(f.gw)
	trip := f.createTrip(t, time.Now().Add(48*time.Hour), time.Now().Add(96*time.Hour))

	_, err := f.trips.Subscribe(context.Background(), trip.ID, f.member, nil)
	require.NoError(t, err)
	_, err = payments.RecordPaymentCaptured(context.Background(), trip.ID, f.member, models.StageDown, "PAYID-1", dec("120.00"))
	require.NoError(t, err)

	_, states, err := payments.Verify(context.Background(), trip.ID, f.member)
	require.NoError(t, err)
	assert.Equal(t, StagePaid, states[models.StageDown])
	assert.Equal(t, StageUnpaid, states[models.StageFull])
	assert.Equal(t, StageUnpaid, states[models.StageFinal])
}
