// Package services implements the group and trip membership coordination
// rules. Services are stateless between calls: every operation reads what
// it needs, applies its guards, performs the write through the store
// gateway, and returns the authoritative post-state or a named error from
// the apperr taxonomy.
package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tripcrew/backend/internal/apperr"
	"github.com/tripcrew/backend/internal/models"
	"github.com/tripcrew/backend/internal/store"
)

// Groups coordinates group membership and admin-role integrity.
type Groups struct {
	store store.Gateway
	now   func() time.Time
}

// NewGroups creates the group membership service.
func NewGroups(gw store.Gateway) *Groups {
	return &Groups{store: gw, now: time.Now}
}

// CreateGroup inserts a group owned by creatorID together with the
// creator's admin membership (favourite, so a first group becomes the
// active one). Name collisions surface as DuplicateName.
func (s *Groups) CreateGroup(ctx context.Context, name string, description *string, creatorID uuid.UUID) (*models.Group, error) {
	now := s.now()
	group := &models.Group{
		ID:          uuid.New(),
		Name:        name,
		Description: description,
		CreatedBy:   creatorID,
		CreatedAt:   now,
	}
	member := &models.GroupMember{
		GroupID:   group.ID,
		UserID:    creatorID,
		Role:      models.RoleAdmin,
		Favourite: true,
		JoinedAt:  now,
	}

	if err := s.store.CreateGroupWithAdmin(ctx, group, member); err != nil {
		slog.Warn("CreateGroup failed", "name", name, "creator_id", creatorID, "error", err)
		switch {
		case errors.Is(err, store.ErrUniqueViolation):
			return nil, apperr.ErrDuplicateName
		case errors.Is(err, store.ErrTimeout):
			return nil, apperr.ErrTimeout
		}
		return nil, apperr.ErrUnknown
	}

	slog.Info("group created", "group_id", group.ID, "name", name, "creator_id", creatorID)
	return group, nil
}

// JoinGroup adds userID as a plain member. The invite code is the group's
// id; its syntax is checked before any write.
func (s *Groups) JoinGroup(ctx context.Context, inviteCode string, userID uuid.UUID) (*models.Group, error) {
	groupID, err := uuid.Parse(inviteCode)
	if err != nil {
		return nil, apperr.ErrMalformedInvite
	}

	member := &models.GroupMember{
		GroupID:   groupID,
		UserID:    userID,
		Role:      models.RoleMember,
		Favourite: false,
		JoinedAt:  s.now(),
	}
	if err := s.store.InsertGroupMember(ctx, member); err != nil {
		slog.Warn("JoinGroup failed", "group_id", groupID, "user_id", userID, "error", err)
		switch {
		case errors.Is(err, store.ErrUniqueViolation):
			return nil, apperr.ErrAlreadyMember
		case errors.Is(err, store.ErrForeignKey):
			return nil, apperr.ErrUnknownGroup
		case errors.Is(err, store.ErrMalformedID):
			return nil, apperr.ErrMalformedInvite
		case errors.Is(err, store.ErrTimeout):
			return nil, apperr.ErrTimeout
		}
		return nil, apperr.ErrUnknown
	}

	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, s.readErr("JoinGroup", err)
	}
	slog.Info("user joined group", "group_id", groupID, "user_id", userID)
	return group, nil
}

// LeaveGroup removes the caller's own membership. The sole admin cannot
// leave; the group would be orphaned.
func (s *Groups) LeaveGroup(ctx context.Context, groupID, userID uuid.UUID) error {
	members, err := s.store.ListGroupMembers(ctx, groupID)
	if err != nil {
		return s.readErr("LeaveGroup", err)
	}
	if IsLastAdmin(members, userID) {
		return apperr.ErrLastAdminCannotLeave
	}

	if err := s.store.DeleteGroupMember(ctx, groupID, userID); err != nil {
		slog.Warn("LeaveGroup failed", "group_id", groupID, "user_id", userID, "error", err)
		switch {
		case errors.Is(err, store.ErrLastAdmin):
			// A concurrent demotion slipped past the snapshot check; the
			// store's verdict is reported exactly like the fast path.
			return apperr.ErrLastAdminCannotLeave
		case errors.Is(err, store.ErrNotFound):
			return apperr.ErrUnknownGroup
		case errors.Is(err, store.ErrTimeout):
			return apperr.ErrTimeout
		}
		return apperr.ErrUnknown
	}

	slog.Info("user left group", "group_id", groupID, "user_id", userID)
	return nil
}

// DeleteGroup removes the whole group. Admin-only; memberships, trips and
// their subscriptions cascade.
func (s *Groups) DeleteGroup(ctx context.Context, groupID, requesterID uuid.UUID) error {
	if err := s.requireAdmin(ctx, groupID, requesterID); err != nil {
		return err
	}

	if err := s.store.DeleteGroup(ctx, groupID); err != nil {
		slog.Warn("DeleteGroup failed", "group_id", groupID, "error", err)
		switch {
		case errors.Is(err, store.ErrNotFound):
			return apperr.ErrUnknownGroup
		case errors.Is(err, store.ErrTimeout):
			return apperr.ErrTimeout
		}
		return apperr.ErrUnknown
	}

	slog.Info("group deleted", "group_id", groupID, "requester_id", requesterID)
	return nil
}

// RenameGroup changes the group name. Admin-only; collisions surface as
// DuplicateName.
func (s *Groups) RenameGroup(ctx context.Context, groupID, requesterID uuid.UUID, newName string) (*models.Group, error) {
	if err := s.requireAdmin(ctx, groupID, requesterID); err != nil {
		return nil, err
	}

	if err := s.store.UpdateGroupName(ctx, groupID, newName); err != nil {
		slog.Warn("RenameGroup failed", "group_id", groupID, "name", newName, "error", err)
		switch {
		case errors.Is(err, store.ErrUniqueViolation):
			return nil, apperr.ErrDuplicateName
		case errors.Is(err, store.ErrNotFound):
			return nil, apperr.ErrUnknownGroup
		case errors.Is(err, store.ErrTimeout):
			return nil, apperr.ErrTimeout
		}
		return nil, apperr.ErrUnknown
	}

	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, s.readErr("RenameGroup", err)
	}
	slog.Info("group renamed", "group_id", groupID, "name", newName)
	return group, nil
}

// RemoveMember removes targetUserID from the group. Requester must be
// admin; the last admin cannot be removed, and members whose trip
// subscriptions carry payments are locked.
func (s *Groups) RemoveMember(ctx context.Context, groupID, requesterID, targetUserID uuid.UUID) error {
	members, err := s.store.ListGroupMembers(ctx, groupID)
	if err != nil {
		return s.readErr("RemoveMember", err)
	}
	if !isAdminIn(members, requesterID) {
		return apperr.ErrNotAuthorized
	}
	if IsLastAdmin(members, targetUserID) {
		return apperr.ErrLastAdminCannotBeRemoved
	}

	// Membership changes are unsafe once money has moved. The default
	// path refuses; unwinding payments is a manual, payment-aware action.
	subs, err := s.store.ListSubscriptionsForUserInGroup(ctx, groupID, targetUserID)
	if err != nil {
		return s.readErr("RemoveMember", err)
	}
	for _, sub := range subs {
		if sub.HasAnyPayment() {
			return apperr.ErrPaymentLocked
		}
	}

	if err := s.store.DeleteGroupMember(ctx, groupID, targetUserID); err != nil {
		slog.Warn("RemoveMember failed", "group_id", groupID, "target_user_id", targetUserID, "error", err)
		switch {
		case errors.Is(err, store.ErrLastAdmin):
			return apperr.ErrLastAdminCannotBeRemoved
		case errors.Is(err, store.ErrNotFound):
			return apperr.ErrUnknownGroup
		case errors.Is(err, store.ErrTimeout):
			return apperr.ErrTimeout
		}
		return apperr.ErrUnknown
	}

	slog.Info("member removed", "group_id", groupID, "target_user_id", targetUserID, "requester_id", requesterID)
	return nil
}

// SetAdminRole promotes or demotes targetUserID. Requester must be admin;
// the last admin cannot be demoted.
func (s *Groups) SetAdminRole(ctx context.Context, groupID, requesterID, targetUserID uuid.UUID, makeAdmin bool) (*models.GroupMember, error) {
	members, err := s.store.ListGroupMembers(ctx, groupID)
	if err != nil {
		return nil, s.readErr("SetAdminRole", err)
	}
	if !isAdminIn(members, requesterID) {
		return nil, apperr.ErrNotAuthorized
	}
	if !makeAdmin && IsLastAdmin(members, targetUserID) {
		return nil, apperr.ErrLastAdminCannotBeDemoted
	}

	role := models.RoleMember
	if makeAdmin {
		role = models.RoleAdmin
	}
	if err := s.store.UpdateGroupMemberRole(ctx, groupID, targetUserID, role); err != nil {
		slog.Warn("SetAdminRole failed", "group_id", groupID, "target_user_id", targetUserID, "role", role, "error", err)
		switch {
		case errors.Is(err, store.ErrLastAdmin):
			return nil, apperr.ErrLastAdminCannotBeDemoted
		case errors.Is(err, store.ErrNotFound):
			return nil, apperr.ErrUnknownGroup
		case errors.Is(err, store.ErrTimeout):
			return nil, apperr.ErrTimeout
		}
		return nil, apperr.ErrUnknown
	}

	member, err := s.store.GetGroupMember(ctx, groupID, targetUserID)
	if err != nil {
		return nil, s.readErr("SetAdminRole", err)
	}
	slog.Info("member role changed", "group_id", groupID, "target_user_id", targetUserID, "role", role)
	return member, nil
}

// SetFavourite flips the favourite flag on the caller's own membership.
// Deliberately no cross-membership rule: more than one favourite may
// exist, and active-group resolution takes the first by join order.
func (s *Groups) SetFavourite(ctx context.Context, userID, groupID uuid.UUID, favourite bool) (*models.GroupMember, error) {
	if err := s.store.UpdateGroupMemberFavourite(ctx, groupID, userID, favourite); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return nil, apperr.ErrUnknownGroup
		case errors.Is(err, store.ErrTimeout):
			return nil, apperr.ErrTimeout
		}
		return nil, apperr.ErrUnknown
	}
	return s.store.GetGroupMember(ctx, groupID, userID)
}

// ListForUser returns all groups the user belongs to, in join order.
func (s *Groups) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Group, error) {
	memberships, err := s.store.ListMembershipsForUser(ctx, userID)
	if err != nil {
		return nil, s.readErr("ListForUser", err)
	}
	groups := make([]models.Group, 0, len(memberships))
	for _, m := range memberships {
		g, err := s.store.GetGroup(ctx, m.GroupID)
		if err != nil {
			return nil, s.readErr("ListForUser", err)
		}
		groups = append(groups, *g)
	}
	return groups, nil
}

// Get returns a group by id.
func (s *Groups) Get(ctx context.Context, groupID uuid.UUID) (*models.Group, error) {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, s.readErr("Get", err)
	}
	return group, nil
}

// ActiveGroup resolves the user's active group: the first favourite in
// join order, else the first membership, else nil.
func (s *Groups) ActiveGroup(ctx context.Context, userID uuid.UUID) (*models.Group, error) {
	memberships, err := s.store.ListMembershipsForUser(ctx, userID)
	if err != nil {
		return nil, s.readErr("ActiveGroup", err)
	}
	if len(memberships) == 0 {
		return nil, nil
	}
	active := memberships[0]
	for _, m := range memberships {
		if m.Favourite {
			active = m
			break
		}
	}
	return s.store.GetGroup(ctx, active.GroupID)
}

// Members returns the group's membership snapshot, requester must belong
// to the group.
func (s *Groups) Members(ctx context.Context, groupID, requesterID uuid.UUID) ([]models.GroupMember, error) {
	members, err := s.store.ListGroupMembers(ctx, groupID)
	if err != nil {
		return nil, s.readErr("Members", err)
	}
	for _, m := range members {
		if m.UserID == requesterID {
			return members, nil
		}
	}
	return nil, apperr.ErrNotAuthorized
}

func (s *Groups) requireAdmin(ctx context.Context, groupID, requesterID uuid.UUID) error {
	member, err := s.store.GetGroupMember(ctx, groupID, requesterID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.ErrNotAuthorized
		}
		return s.readErr("requireAdmin", err)
	}
	if !member.IsAdmin() {
		return apperr.ErrNotAuthorized
	}
	return nil
}

func (s *Groups) readErr(op string, err error) error {
	slog.Error("store read failed", "op", op, "error", err)
	switch {
	case errors.Is(err, store.ErrTimeout):
		return apperr.ErrTimeout
	case errors.Is(err, store.ErrNotFound):
		return apperr.ErrUnknownGroup
	case errors.Is(err, store.ErrMalformedID):
		return apperr.ErrMalformedInvite
	}
	return apperr.ErrUnknown
}

func isAdminIn(members []models.GroupMember, userID uuid.UUID) bool {
	for _, m := range members {
		if m.UserID == userID && m.IsAdmin() {
			return true
		}
	}
	return false
}
