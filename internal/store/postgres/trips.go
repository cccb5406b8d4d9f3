package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tripcrew/backend/internal/models"
	"github.com/tripcrew/backend/internal/store"
)

const tripColumns = `id, group_id, name, destination, description, date_from, date_to, status,
       down_payment, full_payment, final_payment, currency, created_by, created_at, updated_at`

// InsertTrip persists a new trip row.
func (s *Store) InsertTrip(ctx context.Context, t *models.Trip) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO trips (id, group_id, name, destination, description, date_from, date_to, status,
                            down_payment, full_payment, final_payment, currency, created_by, created_at, updated_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		t.ID, t.GroupID, t.Name, t.Destination, t.Description, t.DateFrom, t.DateTo, t.Status,
		t.DownPayment, t.FullPayment, t.FinalPayment, t.Currency, t.CreatedBy, t.CreatedAt, t.UpdatedAt,
	)
	return mapErr(err)
}

// GetTrip loads a trip by id.
func (s *Store) GetTrip(ctx context.Context, id uuid.UUID) (*models.Trip, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var t models.Trip
	err := s.pool.QueryRow(ctx,
		`SELECT `+tripColumns+` FROM trips WHERE id = $1`, id).Scan(
		&t.ID, &t.GroupID, &t.Name, &t.Destination, &t.Description, &t.DateFrom, &t.DateTo, &t.Status,
		&t.DownPayment, &t.FullPayment, &t.FinalPayment, &t.Currency, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	return &t, nil
}

// ListTripsByGroup returns all trips of a group ordered by start date.
func (s *Store) ListTripsByGroup(ctx context.Context, groupID uuid.UUID) ([]models.Trip, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT `+tripColumns+` FROM trips WHERE group_id = $1 ORDER BY date_from`, groupID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	trips := make([]models.Trip, 0)
	for rows.Next() {
		var t models.Trip
		if err := rows.Scan(
			&t.ID, &t.GroupID, &t.Name, &t.Destination, &t.Description, &t.DateFrom, &t.DateTo, &t.Status,
			&t.DownPayment, &t.FullPayment, &t.FinalPayment, &t.Currency, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, mapErr(err)
		}
		trips = append(trips, t)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(err)
	}
	return trips, nil
}

// UpdateTripStatus persists a recomputed lifecycle status.
func (s *Store) UpdateTripStatus(ctx context.Context, id uuid.UUID, status string, updatedAt time.Time) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	ct, err := s.pool.Exec(ctx,
		`UPDATE trips SET status = $1, updated_at = $2 WHERE id = $3`, status, updatedAt, id)
	if err != nil {
		return mapErr(err)
	}
	if ct.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteTrip removes a trip; subscriptions cascade.
func (s *Store) DeleteTrip(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	ct, err := s.pool.Exec(ctx, `DELETE FROM trips WHERE id = $1`, id)
	if err != nil {
		return mapErr(err)
	}
	if ct.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

const tripMemberColumns = `trip_id, user_id, role, subscribed_at,
       down_payment, down_payment_paypal_id, down_payment_amount,
       full_payment, full_payment_paypal_id, full_payment_amount,
       final_payment, final_payment_paypal_id, final_payment_amount,
       additional`

// InsertTripMember adds a subscription row.
func (s *Store) InsertTripMember(ctx context.Context, m *models.TripMember) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO trip_members (trip_id, user_id, role, subscribed_at,
                                   down_payment, down_payment_paypal_id, down_payment_amount,
                                   full_payment, full_payment_paypal_id, full_payment_amount,
                                   final_payment, final_payment_paypal_id, final_payment_amount,
                                   additional)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		m.TripID, m.UserID, m.Role, m.SubscribedAt,
		m.DownPayment, m.DownPaymentPaypalID, m.DownPaymentAmount,
		m.FullPayment, m.FullPaymentPaypalID, m.FullPaymentAmount,
		m.FinalPayment, m.FinalPaymentPaypalID, m.FinalPaymentAmount,
		m.Additional,
	)
	return mapErr(err)
}

// GetTripMember loads one subscription by its composite key.
func (s *Store) GetTripMember(ctx context.Context, tripID, userID uuid.UUID) (*models.TripMember, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var m models.TripMember
	err := s.pool.QueryRow(ctx,
		`SELECT `+tripMemberColumns+` FROM trip_members WHERE trip_id = $1 AND user_id = $2`,
		tripID, userID).Scan(
		&m.TripID, &m.UserID, &m.Role, &m.SubscribedAt,
		&m.DownPayment, &m.DownPaymentPaypalID, &m.DownPaymentAmount,
		&m.FullPayment, &m.FullPaymentPaypalID, &m.FullPaymentAmount,
		&m.FinalPayment, &m.FinalPaymentPaypalID, &m.FinalPaymentAmount,
		&m.Additional,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	return &m, nil
}

// ListTripMembers returns all subscriptions of a trip.
func (s *Store) ListTripMembers(ctx context.Context, tripID uuid.UUID) ([]models.TripMember, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT `+tripMemberColumns+` FROM trip_members WHERE trip_id = $1 ORDER BY subscribed_at`, tripID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	members := make([]models.TripMember, 0)
	for rows.Next() {
		var m models.TripMember
		if err := rows.Scan(
			&m.TripID, &m.UserID, &m.Role, &m.SubscribedAt,
			&m.DownPayment, &m.DownPaymentPaypalID, &m.DownPaymentAmount,
			&m.FullPayment, &m.FullPaymentPaypalID, &m.FullPaymentAmount,
			&m.FinalPayment, &m.FinalPaymentPaypalID, &m.FinalPaymentAmount,
			&m.Additional,
		); err != nil {
			return nil, mapErr(err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(err)
	}
	return members, nil
}

// ListSubscriptionsForUserInGroup returns the user's subscriptions on
// trips belonging to the group.
func (s *Store) ListSubscriptionsForUserInGroup(ctx context.Context, groupID, userID uuid.UUID) ([]models.TripMember, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT tm.trip_id, tm.user_id, tm.role, tm.subscribed_at,
                tm.down_payment, tm.down_payment_paypal_id, tm.down_payment_amount,
                tm.full_payment, tm.full_payment_paypal_id, tm.full_payment_amount,
                tm.final_payment, tm.final_payment_paypal_id, tm.final_payment_amount,
                tm.additional
           FROM trip_members tm
           JOIN trips t ON t.id = tm.trip_id
          WHERE t.group_id = $1 AND tm.user_id = $2`, groupID, userID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	members := make([]models.TripMember, 0)
	for rows.Next() {
		var m models.TripMember
		if err := rows.Scan(
			&m.TripID, &m.UserID, &m.Role, &m.SubscribedAt,
			&m.DownPayment, &m.DownPaymentPaypalID, &m.DownPaymentAmount,
			&m.FullPayment, &m.FullPaymentPaypalID, &m.FullPaymentAmount,
			&m.FinalPayment, &m.FinalPaymentPaypalID, &m.FinalPaymentAmount,
			&m.Additional,
		); err != nil {
			return nil, mapErr(err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(err)
	}
	return members, nil
}

// DeleteTripMember removes a subscription row.
func (s *Store) DeleteTripMember(ctx context.Context, tripID, userID uuid.UUID) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	ct, err := s.pool.Exec(ctx,
		`DELETE FROM trip_members WHERE trip_id = $1 AND user_id = $2`, tripID, userID)
	if err != nil {
		return mapErr(err)
	}
	if ct.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// SetPaymentStage sets one stage's flag, transaction id and amount in a
// single UPDATE so a half-written stage is never observable.
func (s *Store) SetPaymentStage(ctx context.Context, tripID, userID uuid.UUID, stage models.PaymentStage, paypalID *string, amount *decimal.Decimal) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var flag string
	switch stage {
	case models.StageDown:
		flag = "down_payment"
	case models.StageFull:
		flag = "full_payment"
	case models.StageFinal:
		flag = "final_payment"
	default:
		return fmt.Errorf("%w: payment stage %q", store.ErrMalformedID, stage)
	}

	// Column names come from the fixed switch above, never from input.
	query := fmt.Sprintf(
		`UPDATE trip_members SET %s = TRUE, %s_paypal_id = $1, %s_amount = $2 WHERE trip_id = $3 AND user_id = $4`,
		flag, flag, flag)

	ct, err := s.pool.Exec(ctx, query, paypalID, amount, tripID, userID)
	if err != nil {
		return mapErr(err)
	}
	if ct.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
