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

func newGroupsService() *Groups {
	return NewGroups(memstore.New())
}

func TestCreateGroup(t *testing.T) {
	svc := newGroupsService()
	creator := uuid.New()

	group, err := svc.CreateGroup(context.Background(), "Alps2025", nil, creator)
	require.NoError(t, err)
	require.NotNil(t, group)
	assert.Equal(t, "Alps2025", group.Name)
	assert.Equal(t, creator, group.CreatedBy)

	members, err := svc.Members(context.Background(), group.ID, creator)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, models.RoleAdmin, members[0].Role)
	assert.True(t, members[0].Favourite)
}

func TestCreateGroupDuplicateName(t *testing.T) {
	svc := newGroupsService()

	_, err := svc.CreateGroup(context.Background(), "Dupes", nil, uuid.New())
	require.NoError(t, err)

	_, err = svc.CreateGroup(context.Background(), "Dupes", nil, uuid.New())
	assert.ErrorIs(t, err, apperr.ErrDuplicateName)
}

func TestJoinGroup(t *testing.T) {
	svc := newGroupsService()
	creator := uuid.New()
	joiner := uuid.New()

	group, err := svc.CreateGroup(context.Background(), "Alps2025", nil, creator)
	require.NoError(t, err)

	joined, err := svc.JoinGroup(context.Background(), group.ID.String(), joiner)
	require.NoError(t, err)
	assert.Equal(t, group.ID, joined.ID)

	members, err := svc.Members(context.Background(), group.ID, joiner)
	require.NoError(t, err)
	require.Len(t, members, 2)

	// Second join with the same pair is rejected, first one sticks.
	_, err = svc.JoinGroup(context.Background(), group.ID.String(), joiner)
	assert.ErrorIs(t, err, apperr.ErrAlreadyMember)
}

func TestJoinGroupMalformedInvite(t *testing.T) {
	svc := newGroupsService()

	_, err := svc.JoinGroup(context.Background(), "not-a-uuid", uuid.New())
	assert.ErrorIs(t, err, apperr.ErrMalformedInvite)
}

func TestJoinGroupUnknownGroup(t *testing.T) {
	svc := newGroupsService()

	_, err := svc.JoinGroup(context.Background(), uuid.New().String(), uuid.New())
	assert.ErrorIs(t, err, apperr.ErrUnknownGroup)
}

// Scenario: the sole admin cannot walk away from a populated group; after
// promoting someone else they can.
func TestLeaveGroupLastAdmin(t *testing.T) {
	svc := newGroupsService()
	u1 := uuid.New()
	u2 := uuid.New()

	group, err := svc.CreateGroup(context.Background(), "Alps2025", nil, u1)
	require.NoError(t, err)
	_, err = svc.JoinGroup(context.Background(), group.ID.String(), u2)
	require.NoError(t, err)

	err = svc.LeaveGroup(context.Background(), group.ID, u1)
	assert.ErrorIs(t, err, apperr.ErrLastAdminCannotLeave)

	// Membership set unchanged after the failed leave.
	members, err := svc.Members(context.Background(), group.ID, u1)
	require.NoError(t, err)
	assert.Len(t, members, 2)

	_, err = svc.SetAdminRole(context.Background(), group.ID, u1, u2, true)
	require.NoError(t, err)

	require.NoError(t, svc.LeaveGroup(context.Background(), group.ID, u1))

	members, err = svc.Members(context.Background(), group.ID, u2)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, u2, members[0].UserID)
	assert.Equal(t, models.RoleAdmin, members[0].Role)
}

func TestLeaveGroupAsMember(t *testing.T) {
	svc := newGroupsService()
	u1 := uuid.New()
	u2 := uuid.New()

	group, err := svc.CreateGroup(context.Background(), "Alps2025", nil, u1)
	require.NoError(t, err)
	_, err = svc.JoinGroup(context.Background(), group.ID.String(), u2)
	require.NoError(t, err)

	require.NoError(t, svc.LeaveGroup(context.Background(), group.ID, u2))
}

func TestRemoveMember(t *testing.T) {
	svc := newGroupsService()
	admin := uuid.New()
	member := uuid.New()

	group, err := svc.CreateGroup(context.Background(), "Alps2025", nil, admin)
	require.NoError(t, err)
	_, err = svc.JoinGroup(context.Background(), group.ID.String(), member)
	require.NoError(t, err)

	// Non-admin cannot remove anyone.
	err = svc.RemoveMember(context.Background(), group.ID, member, admin)
	assert.ErrorIs(t, err, apperr.ErrNotAuthorized)

	// Removing the last admin is refused even for an admin requester.
	err = svc.RemoveMember(context.Background(), group.ID, admin, admin)
	assert.ErrorIs(t, err, apperr.ErrLastAdminCannotBeRemoved)

	require.NoError(t, svc.RemoveMember(context.Background(), group.ID, admin, member))

	members, err := svc.Members(context.Background(), group.ID, admin)
	require.NoError(t, err)
	assert.Len(t, members, 1)
}

func TestRemoveMemberPaymentLocked(t *testing.T) {
	f := newTripFixture(t)
	payments := NewPayments(f.gw)
	trip := f.createTrip(t, time.Now().Add(48*time.Hour), time.Now().Add(96*time.Hour))

	_, err := f.trips.Subscribe(context.Background(), trip.ID, f.member, nil)
	require.NoError(t, err)
	_, err = payments.RecordPaymentCaptured(context.Background(), trip.ID, f.member, models.StageDown, "PAYID-1", dec("120.00"))
	require.NoError(t, err)

	err = f.groups.RemoveMember(context.Background(), f.group.ID, f.admin, f.member)
	assert.ErrorIs(t, err, apperr.ErrPaymentLocked)

	// Without payments the removal goes through.
	require.NoError(t, f.trips.RemoveSubscriber(context.Background(), trip.ID, f.admin, f.member, true))
	require.NoError(t, f.groups.RemoveMember(context.Background(), f.group.ID, f.admin, f.member))
}

func TestSetAdminRoleDemoteLastAdmin(t *testing.T) {
	svc := newGroupsService()
	admin := uuid.New()
	member := uuid.New()

	group, err := svc.CreateGroup(context.Background(), "Alps2025", nil, admin)
	require.NoError(t, err)
	_, err = svc.JoinGroup(context.Background(), group.ID.String(), member)
	require.NoError(t, err)

	_, err = svc.SetAdminRole(context.Background(), group.ID, admin, admin, false)
	assert.ErrorIs(t, err, apperr.ErrLastAdminCannotBeDemoted)

	// Promote the member, then the original admin may step down.
	promoted, err := svc.SetAdminRole(context.Background(), group.ID, admin, member, true)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, promoted.Role)

	demoted, err := svc.SetAdminRole(context.Background(), group.ID, admin, admin, false)
	require.NoError(t, err)
	assert.Equal(t, models.RoleMember, demoted.Role)
}

func TestSetAdminRoleRequiresAdmin(t *testing.T) {
	svc := newGroupsService()
	admin := uuid.New()
	member := uuid.New()

	group, err := svc.CreateGroup(context.Background(), "Alps2025", nil, admin)
	require.NoError(t, err)
	_, err = svc.JoinGroup(context.Background(), group.ID.String(), member)
	require.NoError(t, err)

	_, err = svc.SetAdminRole(context.Background(), group.ID, member, member, true)
	assert.ErrorIs(t, err, apperr.ErrNotAuthorized)
}

func TestRenameGroup(t *testing.T) {
	svc := newGroupsService()
	admin := uuid.New()

	group, err := svc.CreateGroup(context.Background(), "Alps2025", nil, admin)
	require.NoError(t, err)
	_, err = svc.CreateGroup(context.Background(), "Dolomites", nil, uuid.New())
	require.NoError(t, err)

	renamed, err := svc.RenameGroup(context.Background(), group.ID, admin, "Alps2026")
	require.NoError(t, err)
	assert.Equal(t, "Alps2026", renamed.Name)

	_, err = svc.RenameGroup(context.Background(), group.ID, admin, "Dolomites")
	assert.ErrorIs(t, err, apperr.ErrDuplicateName)
}

func TestRenameGroupRequiresAdmin(t *testing.T) {
	svc := newGroupsService()
	admin := uuid.New()
	member := uuid.New()

	group, err := svc.CreateGroup(context.Background(), "Alps2025", nil, admin)
	require.NoError(t, err)
	_, err = svc.JoinGroup(context.Background(), group.ID.String(), member)
	require.NoError(t, err)

	_, err = svc.RenameGroup(context.Background(), group.ID, member, "Hijacked")
	assert.ErrorIs(t, err, apperr.ErrNotAuthorized)
}

func TestDeleteGroupCascades(t *testing.T) {
	gw := memstore.New()
	groups := NewGroups(gw)
	trips := NewTrips(gw)
	admin := uuid.New()

	group, err := groups.CreateGroup(context.Background(), "Alps2025", nil, admin)
	require.NoError(t, err)

	trip, err := trips.CreateTrip(context.Background(), group.ID, admin, TripParams{
		Name:     "Summit week",
		DateFrom: time.Now().Add(48 * time.Hour),
		DateTo:   time.Now().Add(96 * time.Hour),
		Currency: "EUR",
	})
	require.NoError(t, err)

	require.NoError(t, groups.DeleteGroup(context.Background(), group.ID, admin))

	_, err = trips.Get(context.Background(), trip.ID)
	assert.Error(t, err)
	_, err = groups.Members(context.Background(), group.ID, admin)
	assert.Error(t, err)
}

func TestFavouriteSelectsActiveGroup(t *testing.T) {
	svc := newGroupsService()
	user := uuid.New()

	base := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }
	first, err := svc.CreateGroup(context.Background(), "First", nil, user)
	require.NoError(t, err)

	svc.now = func() time.Time { return base.Add(time.Minute) }
	second, err := svc.CreateGroup(context.Background(), "Second", nil, user)
	require.NoError(t, err)

	// Both creations flag favourite; the earliest joined wins.
	active, err := svc.ActiveGroup(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, first.ID, active.ID)

	_, err = svc.SetFavourite(context.Background(), user, first.ID, false)
	require.NoError(t, err)

	active, err = svc.ActiveGroup(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, second.ID, active.ID)
}

func TestActiveGroupWithoutMemberships(t *testing.T) {
	svc := newGroupsService()

	active, err := svc.ActiveGroup(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestIsLastAdmin(t *testing.T) {
	groupID := uuid.New()
	u1 := uuid.New()
	u2 := uuid.New()

	admin := func(id uuid.UUID) models.GroupMember {
		return models.GroupMember{GroupID: groupID, UserID: id, Role: models.RoleAdmin}
	}
	member := func(id uuid.UUID) models.GroupMember {
		return models.GroupMember{GroupID: groupID, UserID: id, Role: models.RoleMember}
	}

	tests := []struct {
		name    string
		members []models.GroupMember
		userID  uuid.UUID
		want    bool
	}{
		{"sole admin", []models.GroupMember{admin(u1)}, u1, true},
		{"sole admin with members", []models.GroupMember{admin(u1), member(u2)}, u1, true},
		{"two admins", []models.GroupMember{admin(u1), admin(u2)}, u1, false},
		{"not the admin", []models.GroupMember{admin(u1), member(u2)}, u2, false},
		{"empty set", nil, u1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsLastAdmin(tt.members, tt.userID))
		})
	}
}
