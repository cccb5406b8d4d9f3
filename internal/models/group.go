package models

import (
	"time"

	"github.com/google/uuid"
)

// Membership role values. These are persisted literally and must not change.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// Group represents a named collection of users sharing trips.
// The group id doubles as the invite code shared out-of-band.
type Group struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description *string   `json:"description" db:"description"`
	CreatedBy   uuid.UUID `json:"created_by" db:"created_by"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// GroupMember binds a user to a group. Identity is the (group_id, user_id)
// pair; a user cannot hold two memberships in the same group.
type GroupMember struct {
	GroupID   uuid.UUID `json:"group_id" db:"group_id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	Role      string    `json:"role" db:"role"`
	Favourite bool      `json:"favourite" db:"favourite"`
	JoinedAt  time.Time `json:"joined_at" db:"joined_at"`
}

// IsAdmin reports whether the membership carries the admin role.
func (m *GroupMember) IsAdmin() bool {
	return m.Role == RoleAdmin
}
