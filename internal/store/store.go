// Package store abstracts the relational data store behind the
// coordination services. Implementations translate their native failure
// modes into the structured conflict errors below; services never see a
// driver error.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tripcrew/backend/internal/models"
)

// Structured conflict codes reported by a Gateway. Wrapped errors are
// fine; services discriminate with errors.Is.
var (
	// ErrNotFound signals that no row matched the given key or filter.
	ErrNotFound = errors.New("store: not found")

	// ErrUniqueViolation signals a unique-constraint conflict.
	ErrUniqueViolation = errors.New("store: unique violation")

	// ErrForeignKey signals a write referencing a missing parent row.
	ErrForeignKey = errors.New("store: foreign key violation")

	// ErrMalformedID signals an identifier the store could not parse.
	ErrMalformedID = errors.New("store: malformed identifier")

	// ErrLastAdmin signals that the store's own last-admin check rejected
	// a membership delete or demote. The database is the final authority
	// for this invariant; the in-process guard is only a fast path.
	ErrLastAdmin = errors.New("store: last admin constraint")

	// ErrTimeout signals that the store call exceeded its deadline.
	ErrTimeout = errors.New("store: timeout")
)

// Gateway is the persistence collaborator consumed by the services.
// Every call honors ctx cancellation and applies the implementation's
// query timeout; none of them blocks indefinitely.
type Gateway interface {
	// Users
	InsertUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// Groups
	// CreateGroupWithAdmin inserts the group and its creator's admin
	// membership as one atomic unit.
	CreateGroupWithAdmin(ctx context.Context, group *models.Group, member *models.GroupMember) error
	GetGroup(ctx context.Context, id uuid.UUID) (*models.Group, error)
	UpdateGroupName(ctx context.Context, id uuid.UUID, name string) error
	// DeleteGroup removes the group, cascading to its memberships, trips
	// and trip subscriptions.
	DeleteGroup(ctx context.Context, id uuid.UUID) error

	// Group memberships
	InsertGroupMember(ctx context.Context, member *models.GroupMember) error
	GetGroupMember(ctx context.Context, groupID, userID uuid.UUID) (*models.GroupMember, error)
	ListGroupMembers(ctx context.Context, groupID uuid.UUID) ([]models.GroupMember, error)
	ListMembershipsForUser(ctx context.Context, userID uuid.UUID) ([]models.GroupMember, error)
	DeleteGroupMember(ctx context.Context, groupID, userID uuid.UUID) error
	UpdateGroupMemberRole(ctx context.Context, groupID, userID uuid.UUID, role string) error
	UpdateGroupMemberFavourite(ctx context.Context, groupID, userID uuid.UUID, favourite bool) error

	// Trips
	InsertTrip(ctx context.Context, trip *models.Trip) error
	GetTrip(ctx context.Context, id uuid.UUID) (*models.Trip, error)
	ListTripsByGroup(ctx context.Context, groupID uuid.UUID) ([]models.Trip, error)
	UpdateTripStatus(ctx context.Context, id uuid.UUID, status string, updatedAt time.Time) error
	// DeleteTrip removes the trip, cascading to its subscriptions.
	DeleteTrip(ctx context.Context, id uuid.UUID) error

	// Trip subscriptions
	InsertTripMember(ctx context.Context, member *models.TripMember) error
	GetTripMember(ctx context.Context, tripID, userID uuid.UUID) (*models.TripMember, error)
	ListTripMembers(ctx context.Context, tripID uuid.UUID) ([]models.TripMember, error)
	// ListSubscriptionsForUserInGroup returns the user's subscriptions on
	// trips owned by the group.
	ListSubscriptionsForUserInGroup(ctx context.Context, groupID, userID uuid.UUID) ([]models.TripMember, error)
	DeleteTripMember(ctx context.Context, tripID, userID uuid.UUID) error
	// SetPaymentStage sets the stage flag together with its transaction id
	// and amount in a single update. Partial writes are not observable.
	SetPaymentStage(ctx context.Context, tripID, userID uuid.UUID, stage models.PaymentStage, paypalID *string, amount *decimal.Decimal) error

	// Close releases any resources held by the store.
	Close()
}
