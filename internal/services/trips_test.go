package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripcrew/backend/internal/apperr"
	"github.com/tripcrew/backend/internal/models"
	"github.com/tripcrew/backend/internal/store/memstore"
)

type tripFixture struct {
	gw     *memstore.Store
	groups *Groups
	trips  *Trips
	admin  uuid.UUID
	member uuid.UUID
	group  *models.Group
}

func newTripFixture(t *testing.T) *tripFixture {
	t.Helper()
	gw := memstore.New()
	f := &tripFixture{
		gw:     gw,
		groups: NewGroups(gw),
		trips:  NewTrips(gw),
		admin:  uuid.New(),
		member: uuid.New(),
	}

	group, err := f.groups.CreateGroup(context.Background(), "Alps2025", nil, f.admin)
	require.NoError(t, err)
	f.group = group

	_, err = f.groups.JoinGroup(context.Background(), group.ID.String(), f.member)
	require.NoError(t, err)
	return f
}

func (f *tripFixture) createTrip(t *testing.T, from, to time.Time) *models.Trip {
	t.Helper()
	trip, err := f.trips.CreateTrip(context.Background(), f.group.ID, f.admin, TripParams{
		Name:        "Summit week",
		Destination: "Zermatt",
		DateFrom:    from,
		DateTo:      to,
		Currency:    "EUR",
	})
	require.NoError(t, err)
	return trip
}

func TestDeriveStatus(t *testing.T) {
	from := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 7, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		now  time.Time
		want string
	}{
		{"before range", time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), models.TripStatusUpcoming},
		{"first day", from, models.TripStatusCurrent},
		{"inside range", time.Date(2025, 7, 5, 0, 0, 0, 0, time.UTC), models.TripStatusCurrent},
		{"last day", to, models.TripStatusCurrent},
		{"after range", time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC), models.TripStatusDone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveStatus(from, to, tt.now))
		})
	}
}

func TestReconcileStatusMovesForwardOnly(t *testing.T) {
	f := newTripFixture(t)
	from := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 7, 10, 0, 0, 0, 0, time.UTC)

	f.trips.now = func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) }
	trip := f.createTrip(t, from, to)
	assert.Equal(t, models.TripStatusUpcoming, trip.Status)

	// Clock inside the range: upcoming advances to current.
	f.trips.now = func() time.Time { return time.Date(2025, 7, 5, 0, 0, 0, 0, time.UTC) }
	got, err := f.trips.Get(context.Background(), trip.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TripStatusCurrent, got.Status)

	// Past the range: current advances to done.
	f.trips.now = func() time.Time { return time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC) }
	got, err = f.trips.Get(context.Background(), trip.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TripStatusDone, got.Status)

	// Repeated reconciliation at the same instant is a no-op, and the
	// cached status never regresses.
	got, err = f.trips.Get(context.Background(), trip.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TripStatusDone, got.Status)
}

func TestSubscribe(t *testing.T) {
	f := newTripFixture(t)
	trip := f.createTrip(t, time.Now().Add(48*time.Hour), time.Now().Add(96*time.Hour))

	sub, err := f.trips.Subscribe(context.Background(), trip.ID, f.member, nil)
	require.NoError(t, err)
	assert.False(t, sub.DownPayment)
	assert.False(t, sub.FullPayment)
	assert.False(t, sub.FinalPayment)

	// Subscribing twice with the same pair is rejected.
	_, err = f.trips.Subscribe(context.Background(), trip.ID, f.member, nil)
	assert.ErrorIs(t, err, apperr.ErrAlreadySubscribed)
}

func TestSubscribeClosedTrip(t *testing.T) {
	f := newTripFixture(t)
	// Trip already started: the subscription window has passed.
	trip := f.createTrip(t, time.Now().Add(-24*time.Hour), time.Now().Add(48*time.Hour))

	_, err := f.trips.Subscribe(context.Background(), trip.ID, f.member, nil)
	assert.ErrorIs(t, err, apperr.ErrTripClosed)
}

func TestSubscribeRequiresGroupMembership(t *testing.T) {
	f := newTripFixture(t)
	trip := f.createTrip(t, time.Now().Add(48*time.Hour), time.Now().Add(96*time.Hour))

	_, err := f.trips.Subscribe(context.Background(), trip.ID, uuid.New(), nil)
	assert.ErrorIs(t, err, apperr.ErrNotAuthorized)
}

func TestUnsubscribe(t *testing.T) {
	f := newTripFixture(t)
	trip := f.createTrip(t, time.Now().Add(48*time.Hour), time.Now().Add(96*time.Hour))

	_, err := f.trips.Subscribe(context.Background(), trip.ID, f.member, nil)
	require.NoError(t, err)

	require.NoError(t, f.trips.Unsubscribe(context.Background(), trip.ID, f.member))

	subs, err := f.trips.Subscribers(context.Background(), trip.ID)
	require.NoError(t, err)
	require.Len(t, subs, 1) // creator remains
	assert.Equal(t, f.admin, subs[0].UserID)
}

func TestUnsubscribePaymentLocked(t *testing.T) {
	f := newTripFixture(t)
	payments := NewPayments(f.gw)
	trip := f.createTrip(t, time.Now().Add(48*time.Hour), time.Now().Add(96*time.Hour))

	_, err := f.trips.Subscribe(context.Background(), trip.ID, f.member, nil)
	require.NoError(t, err)

	_, err = payments.RecordPaymentCaptured(context.Background(), trip.ID, f.member, models.StageDown, "PAYID-1", dec("120.00"))
	require.NoError(t, err)

	err = f.trips.Unsubscribe(context.Background(), trip.ID, f.member)
	assert.ErrorIs(t, err, apperr.ErrPaymentLocked)

	// The subscription row is unchanged.
	sub, err := f.gw.GetTripMember(context.Background(), trip.ID, f.member)
	require.NoError(t, err)
	assert.True(t, sub.DownPayment)
	require.NotNil(t, sub.DownPaymentPaypalID)
	assert.Equal(t, "PAYID-1", *sub.DownPaymentPaypalID)
}

func TestRemoveSubscriberPaymentOverride(t *testing.T) {
	f := newTripFixture(t)
	payments := NewPayments(f.gw)
	trip := f.createTrip(t, time.Now().Add(48*time.Hour), time.Now().Add(96*time.Hour))

	_, err := f.trips.Subscribe(context.Background(), trip.ID, f.member, nil)
	require.NoError(t, err)
	_, err = payments.RecordPaymentCaptured(context.Background(), trip.ID, f.member, models.StageDown, "PAYID-1", dec("120.00"))
	require.NoError(t, err)

	err = f.trips.RemoveSubscriber(context.Background(), trip.ID, f.admin, f.member, false)
	assert.ErrorIs(t, err, apperr.ErrPaymentLocked)

	require.NoError(t, f.trips.RemoveSubscriber(context.Background(), trip.ID, f.admin, f.member, true))
}

func TestDeleteTripCreatorOnly(t *testing.T) {
	f := newTripFixture(t)
	trip := f.createTrip(t, time.Now().Add(48*time.Hour), time.Now().Add(96*time.Hour))

	err := f.trips.DeleteTrip(context.Background(), trip.ID, f.member)
	assert.ErrorIs(t, err, apperr.ErrNotAuthorized)

	require.NoError(t, f.trips.DeleteTrip(context.Background(), trip.ID, f.admin))

	_, err = f.trips.Get(context.Background(), trip.ID)
	assert.Error(t, err)
}

func TestCreateTripRequiresMembership(t *testing.T) {
	f := newTripFixture(t)

	_, err := f.trips.CreateTrip(context.Background(), f.group.ID, uuid.New(), TripParams{
		Name:     "Gatecrash",
		DateFrom: time.Now().Add(48 * time.Hour),
		DateTo:   time.Now().Add(96 * time.Hour),
	})
	assert.ErrorIs(t, err, apperr.ErrNotAuthorized)
}
