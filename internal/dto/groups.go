package dto

// CreateGroupRequest is the payload for creating a group
type CreateGroupRequest struct {
	Name        string  `json:"name" validate:"required,min=1,max=100"`
	Description *string `json:"description,omitempty"`
}

// JoinGroupRequest is the payload for joining a group via invite code
type JoinGroupRequest struct {
	InviteCode string `json:"invite_code" validate:"required"`
}

// RenameGroupRequest is the payload for renaming a group
type RenameGroupRequest struct {
	Name string `json:"name" validate:"required,min=1,max=100"`
}

// SetRoleRequest is the payload for promoting or demoting a member
type SetRoleRequest struct {
	UserID    string `json:"user_id" validate:"required,uuid"`
	MakeAdmin bool   `json:"make_admin"`
}

// SetFavouriteRequest is the payload for flagging a favourite group
type SetFavouriteRequest struct {
	Favourite bool `json:"favourite"`
}

// GroupResponse is the public view of a group. The group id doubles as
// the invite code.
type GroupResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	InviteCode  string  `json:"invite_code"`
	CreatedBy   string  `json:"created_by"`
	CreatedAt   string  `json:"created_at"`
}

// GroupMemberResponse is the public view of a membership
type GroupMemberResponse struct {
	GroupID   string `json:"group_id"`
	UserID    string `json:"user_id"`
	Role      string `json:"role"`
	Favourite bool   `json:"favourite"`
	JoinedAt  string `json:"joined_at"`
}

// GroupListResponse wraps a user's groups with the resolved active group
type GroupListResponse struct {
	Groups        []GroupResponse `json:"groups"`
	ActiveGroupID *string         `json:"active_group_id,omitempty"`
}

// GroupMembersResponse wraps a group's membership snapshot
type GroupMembersResponse struct {
	Members []GroupMemberResponse `json:"members"`
}
