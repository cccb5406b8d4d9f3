// Package memstore is an in-memory store.Gateway used by tests. It
// enforces the same constraints as the SQL schema: unique group names,
// composite-key uniqueness on memberships and subscriptions, foreign
// keys, delete cascades, and the last-admin check the database trigger
// provides in production.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tripcrew/backend/internal/models"
	"github.com/tripcrew/backend/internal/store"
)

type memberKey struct {
	a uuid.UUID
	b uuid.UUID
}

// Store keeps all rows in maps guarded by one mutex.
type Store struct {
	mu          sync.Mutex
	users       map[uuid.UUID]models.User
	groups      map[uuid.UUID]models.Group
	members     map[memberKey]models.GroupMember
	trips       map[uuid.UUID]models.Trip
	tripMembers map[memberKey]models.TripMember
}

var _ store.Gateway = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		users:       make(map[uuid.UUID]models.User),
		groups:      make(map[uuid.UUID]models.Group),
		members:     make(map[memberKey]models.GroupMember),
		trips:       make(map[uuid.UUID]models.Trip),
		tripMembers: make(map[memberKey]models.TripMember),
	}
}

// Close is a no-op.
func (s *Store) Close() {}

// Users

func (s *Store) InsertUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return store.ErrUniqueViolation
		}
	}
	s.users[u.ID] = *u
	return nil
}

func (s *Store) GetUser(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			out := u
			return &out, nil
		}
	}
	return nil, store.ErrNotFound
}

// Groups

func (s *Store) CreateGroupWithAdmin(_ context.Context, g *models.Group, m *models.GroupMember) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.groups {
		if existing.Name == g.Name {
			return store.ErrUniqueViolation
		}
	}
	s.groups[g.ID] = *g
	s.members[memberKey{g.ID, m.UserID}] = *m
	return nil
}

func (s *Store) GetGroup(_ context.Context, id uuid.UUID) (*models.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &g, nil
}

func (s *Store) UpdateGroupName(_ context.Context, id uuid.UUID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[id]
	if !ok {
		return store.ErrNotFound
	}
	for otherID, existing := range s.groups {
		if otherID != id && existing.Name == name {
			return store.ErrUniqueViolation
		}
	}
	g.Name = name
	s.groups[id] = g
	return nil
}

func (s *Store) DeleteGroup(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.groups, id)
	for k := range s.members {
		if k.a == id {
			delete(s.members, k)
		}
	}
	for tripID, t := range s.trips {
		if t.GroupID != id {
			continue
		}
		delete(s.trips, tripID)
		for k := range s.tripMembers {
			if k.a == tripID {
				delete(s.tripMembers, k)
			}
		}
	}
	return nil
}

// Group memberships

func (s *Store) InsertGroupMember(_ context.Context, m *models.GroupMember) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[m.GroupID]; !ok {
		return store.ErrForeignKey
	}
	key := memberKey{m.GroupID, m.UserID}
	if _, ok := s.members[key]; ok {
		return store.ErrUniqueViolation
	}
	s.members[key] = *m
	return nil
}

func (s *Store) GetGroupMember(_ context.Context, groupID, userID uuid.UUID) (*models.GroupMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[memberKey{groupID, userID}]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &m, nil
}

func (s *Store) ListGroupMembers(_ context.Context, groupID uuid.UUID) ([]models.GroupMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.GroupMember, 0)
	for k, m := range s.members {
		if k.a == groupID {
			out = append(out, m)
		}
	}
	sortByJoin(out)
	return out, nil
}

func (s *Store) ListMembershipsForUser(_ context.Context, userID uuid.UUID) ([]models.GroupMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.GroupMember, 0)
	for k, m := range s.members {
		if k.b == userID {
			out = append(out, m)
		}
	}
	sortByJoin(out)
	return out, nil
}

func (s *Store) DeleteGroupMember(_ context.Context, groupID, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := memberKey{groupID, userID}
	m, ok := s.members[key]
	if !ok {
		return store.ErrNotFound
	}
	if m.Role == models.RoleAdmin && s.adminCountLocked(groupID) == 1 {
		return store.ErrLastAdmin
	}
	delete(s.members, key)
	return nil
}

func (s *Store) UpdateGroupMemberRole(_ context.Context, groupID, userID uuid.UUID, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := memberKey{groupID, userID}
	m, ok := s.members[key]
	if !ok {
		return store.ErrNotFound
	}
	if m.Role == models.RoleAdmin && role != models.RoleAdmin && s.adminCountLocked(groupID) == 1 {
		return store.ErrLastAdmin
	}
	m.Role = role
	s.members[key] = m
	return nil
}

func (s *Store) UpdateGroupMemberFavourite(_ context.Context, groupID, userID uuid.UUID, favourite bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := memberKey{groupID, userID}
	m, ok := s.members[key]
	if !ok {
		return store.ErrNotFound
	}
	m.Favourite = favourite
	s.members[key] = m
	return nil
}

// Trips

func (s *Store) InsertTrip(_ context.Context, t *models.Trip) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[t.GroupID]; !ok {
		return store.ErrForeignKey
	}
	s.trips[t.ID] = *t
	return nil
}

func (s *Store) GetTrip(_ context.Context, id uuid.UUID) (*models.Trip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trips[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &t, nil
}

func (s *Store) ListTripsByGroup(_ context.Context, groupID uuid.UUID) ([]models.Trip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Trip, 0)
	for _, t := range s.trips {
		if t.GroupID == groupID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DateFrom.Before(out[j].DateFrom) })
	return out, nil
}

func (s *Store) UpdateTripStatus(_ context.Context, id uuid.UUID, status string, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trips[id]
	if !ok {
		return store.ErrNotFound
	}
	t.Status = status
	t.UpdatedAt = updatedAt
	s.trips[id] = t
	return nil
}

func (s *Store) DeleteTrip(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.trips[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.trips, id)
	for k := range s.tripMembers {
		if k.a == id {
			delete(s.tripMembers, k)
		}
	}
	return nil
}

// Trip subscriptions

func (s *Store) InsertTripMember(_ context.Context, m *models.TripMember) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.trips[m.TripID]; !ok {
		return store.ErrForeignKey
	}
	key := memberKey{m.TripID, m.UserID}
	if _, ok := s.tripMembers[key]; ok {
		return store.ErrUniqueViolation
	}
	s.tripMembers[key] = *m
	return nil
}

func (s *Store) GetTripMember(_ context.Context, tripID, userID uuid.UUID) (*models.TripMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.tripMembers[memberKey{tripID, userID}]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &m, nil
}

func (s *Store) ListTripMembers(_ context.Context, tripID uuid.UUID) ([]models.TripMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.TripMember, 0)
	for k, m := range s.tripMembers {
		if k.a == tripID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubscribedAt.Before(out[j].SubscribedAt) })
	return out, nil
}

func (s *Store) ListSubscriptionsForUserInGroup(_ context.Context, groupID, userID uuid.UUID) ([]models.TripMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.TripMember, 0)
	for k, m := range s.tripMembers {
		if k.b != userID {
			continue
		}
		if t, ok := s.trips[k.a]; ok && t.GroupID == groupID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *Store) DeleteTripMember(_ context.Context, tripID, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := memberKey{tripID, userID}
	if _, ok := s.tripMembers[key]; !ok {
		return store.ErrNotFound
	}
	delete(s.tripMembers, key)
	return nil
}

func (s *Store) SetPaymentStage(_ context.Context, tripID, userID uuid.UUID, stage models.PaymentStage, paypalID *string, amount *decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := memberKey{tripID, userID}
	m, ok := s.tripMembers[key]
	if !ok {
		return store.ErrNotFound
	}
	switch stage {
	case models.StageDown:
		m.DownPayment = true
		m.DownPaymentPaypalID = paypalID
		m.DownPaymentAmount = amount
	case models.StageFull:
		m.FullPayment = true
		m.FullPaymentPaypalID = paypalID
		m.FullPaymentAmount = amount
	case models.StageFinal:
		m.FinalPayment = true
		m.FinalPaymentPaypalID = paypalID
		m.FinalPaymentAmount = amount
	default:
		return store.ErrMalformedID
	}
	s.tripMembers[key] = m
	return nil
}

func (s *Store) adminCountLocked(groupID uuid.UUID) int {
	n := 0
	for k, m := range s.members {
		if k.a == groupID && m.Role == models.RoleAdmin {
			n++
		}
	}
	return n
}

func sortByJoin(members []models.GroupMember) {
	sort.Slice(members, func(i, j int) bool {
		if members[i].JoinedAt.Equal(members[j].JoinedAt) {
			return members[i].GroupID.String()+members[i].UserID.String() <
				members[j].GroupID.String()+members[j].UserID.String()
		}
		return members[i].JoinedAt.Before(members[j].JoinedAt)
	})
}
