package handlers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/tripcrew/backend/internal/apperr"
	"github.com/tripcrew/backend/internal/dto"
	"github.com/tripcrew/backend/internal/models"
	"github.com/tripcrew/backend/internal/notify"
	"github.com/tripcrew/backend/internal/services"
	"github.com/tripcrew/backend/internal/utils"
)

// GroupsHandler manages group and membership endpoints
type GroupsHandler struct {
	groups *services.Groups
	sink   notify.Sink
}

// NewGroupsHandler creates a new GroupsHandler
func NewGroupsHandler(groups *services.Groups, sink notify.Sink) *GroupsHandler {
	return &GroupsHandler{groups: groups, sink: sink}
}

// Groups dispatches by HTTP method for /api/groups
func (h *GroupsHandler) Groups(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.CreateGroup(w, r)
	case http.MethodGet:
		h.ListGroups(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// GroupByID dispatches /api/groups/{id} and its subresources.
func (h *GroupsHandler) GroupByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/groups/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")

	groupID, err := uuid.Parse(parts[0])
	if err != nil {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Invalid group id", "Group id must be a UUID")
		return
	}

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			h.GroupDetail(w, r, groupID)
		case http.MethodPut, http.MethodPatch:
			h.RenameGroup(w, r, groupID)
		case http.MethodDelete:
			h.DeleteGroup(w, r, groupID)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	switch parts[1] {
	case "members":
		if len(parts) == 3 && r.Method == http.MethodDelete {
			h.RemoveMember(w, r, groupID, parts[2])
			return
		}
		if r.Method == http.MethodGet {
			h.ListMembers(w, r, groupID)
			return
		}
	case "leave":
		if r.Method == http.MethodPost {
			h.LeaveGroup(w, r, groupID)
			return
		}
	case "role":
		if r.Method == http.MethodPut {
			h.SetRole(w, r, groupID)
			return
		}
	case "favourite":
		if r.Method == http.MethodPut {
			h.SetFavourite(w, r, groupID)
			return
		}
	}
	http.Error(w, "Not found", http.StatusNotFound)
}

// CreateGroup handles POST /api/groups
// @Summary Create a group
// @Description Create a group; the creator becomes its first admin
// @Tags groups
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateGroupRequest true "Group payload"
// @Success 201 {object} dto.GroupResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse "Name already taken"
// @Router /api/groups [post]
func (h *GroupsHandler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.WriteErrorResponse(w, http.StatusUnauthorized, "Unauthorized", "Invalid user context")
		return
	}

	var req dto.CreateGroupRequest
	if err := utils.DecodeJSONRequest(w, r, &req); err != nil {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Validation error", "name is required")
		return
	}

	group, err := h.groups.CreateGroup(r.Context(), req.Name, req.Description, userID)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	h.sink.Notify("Group created", "Share the invite code to bring people in.", apperr.SeveritySuccess)
	utils.WriteJSONResponse(w, http.StatusCreated, toGroupResponse(group))
}

// ListGroups handles GET /api/groups
// @Summary List the caller's groups
// @Description List every group the caller belongs to, with the resolved active group
// @Tags groups
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.GroupListResponse
// @Router /api/groups [get]
func (h *GroupsHandler) ListGroups(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.WriteErrorResponse(w, http.StatusUnauthorized, "Unauthorized", "Invalid user context")
		return
	}

	groups, err := h.groups.ListForUser(r.Context(), userID)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	resp := dto.GroupListResponse{Groups: make([]dto.GroupResponse, 0, len(groups))}
	for i := range groups {
		resp.Groups = append(resp.Groups, toGroupResponse(&groups[i]))
	}

	if active, err := h.groups.ActiveGroup(r.Context(), userID); err == nil && active != nil {
		id := active.ID.String()
		resp.ActiveGroupID = &id
	}

	utils.WriteJSONResponse(w, http.StatusOK, resp)
}

// JoinGroup handles POST /api/groups/join
// @Summary Join a group via invite code
// @Tags groups
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.JoinGroupRequest true "Invite code"
// @Success 200 {object} dto.GroupResponse
// @Failure 400 {object} dto.ErrorResponse "Malformed invite code"
// @Failure 404 {object} dto.ErrorResponse "Unknown group"
// @Failure 409 {object} dto.ErrorResponse "Already a member"
// @Router /api/groups/join [post]
func (h *GroupsHandler) JoinGroup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.WriteErrorResponse(w, http.StatusUnauthorized, "Unauthorized", "Invalid user context")
		return
	}

	var req dto.JoinGroupRequest
	if err := utils.DecodeJSONRequest(w, r, &req); err != nil {
		return
	}

	group, err := h.groups.JoinGroup(r.Context(), strings.TrimSpace(req.InviteCode), userID)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	h.sink.Notify("Joined group", "You are now a member of "+group.Name+".", apperr.SeveritySuccess)
	utils.WriteJSONResponse(w, http.StatusOK, toGroupResponse(group))
}

// GroupDetail handles GET /api/groups/{id}
func (h *GroupsHandler) GroupDetail(w http.ResponseWriter, r *http.Request, groupID uuid.UUID) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.WriteErrorResponse(w, http.StatusUnauthorized, "Unauthorized", "Invalid user context")
		return
	}

	// Membership check doubles as the visibility rule.
	if _, err := h.groups.Members(r.Context(), groupID, userID); err != nil {
		utils.WriteAppError(w, err)
		return
	}

	group, err := h.groups.Get(r.Context(), groupID)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	utils.WriteJSONResponse(w, http.StatusOK, toGroupResponse(group))
}

// RenameGroup handles PUT /api/groups/{id}
// @Summary Rename a group
// @Tags groups
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Group id"
// @Param request body dto.RenameGroupRequest true "New name"
// @Success 200 {object} dto.GroupResponse
// @Failure 403 {object} dto.ErrorResponse "Not an admin"
// @Failure 409 {object} dto.ErrorResponse "Name already taken"
// @Router /api/groups/{id} [put]
func (h *GroupsHandler) RenameGroup(w http.ResponseWriter, r *http.Request, groupID uuid.UUID) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.WriteErrorResponse(w, http.StatusUnauthorized, "Unauthorized", "Invalid user context")
		return
	}

	var req dto.RenameGroupRequest
	if err := utils.DecodeJSONRequest(w, r, &req); err != nil {
		return
	}

	group, err := h.groups.RenameGroup(r.Context(), groupID, userID, strings.TrimSpace(req.Name))
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	utils.WriteJSONResponse(w, http.StatusOK, toGroupResponse(group))
}

// DeleteGroup handles DELETE /api/groups/{id}
// @Summary Delete a group
// @Description Delete a group and everything under it: memberships, trips, subscriptions
// @Tags groups
// @Produce json
// @Security BearerAuth
// @Param id path string true "Group id"
// @Success 204 "Deleted"
// @Failure 403 {object} dto.ErrorResponse "Not an admin"
// @Router /api/groups/{id} [delete]
func (h *GroupsHandler) DeleteGroup(w http.ResponseWriter, r *http.Request, groupID uuid.UUID) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.WriteErrorResponse(w, http.StatusUnauthorized, "Unauthorized", "Invalid user context")
		return
	}

	if err := h.groups.DeleteGroup(r.Context(), groupID, userID); err != nil {
		utils.WriteAppError(w, err)
		return
	}

	h.sink.Notify("Group deleted", "The group and all of its trips were removed.", apperr.SeverityDestructive)
	w.WriteHeader(http.StatusNoContent)
}

// LeaveGroup handles POST /api/groups/{id}/leave
// @Summary Leave a group
// @Tags groups
// @Produce json
// @Security BearerAuth
// @Param id path string true "Group id"
// @Success 204 "Left"
// @Failure 409 {object} dto.ErrorResponse "Last admin cannot leave"
// @Router /api/groups/{id}/leave [post]
func (h *GroupsHandler) LeaveGroup(w http.ResponseWriter, r *http.Request, groupID uuid.UUID) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.WriteErrorResponse(w, http.StatusUnauthorized, "Unauthorized", "Invalid user context")
		return
	}

	if err := h.groups.LeaveGroup(r.Context(), groupID, userID); err != nil {
		utils.WriteAppError(w, err)
		return
	}

	h.sink.Notify("Left group", "You are no longer a member of this group.", apperr.SeverityDefault)
	w.WriteHeader(http.StatusNoContent)
}

// ListMembers handles GET /api/groups/{id}/members
func (h *GroupsHandler) ListMembers(w http.ResponseWriter, r *http.Request, groupID uuid.UUID) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.WriteErrorResponse(w, http.StatusUnauthorized, "Unauthorized", "Invalid user context")
		return
	}

	members, err := h.groups.Members(r.Context(), groupID, userID)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	resp := dto.GroupMembersResponse{Members: make([]dto.GroupMemberResponse, 0, len(members))}
	for i := range members {
		resp.Members = append(resp.Members, toGroupMemberResponse(&members[i]))
	}
	utils.WriteJSONResponse(w, http.StatusOK, resp)
}

// RemoveMember handles DELETE /api/groups/{id}/members/{userID}
// @Summary Remove a member from a group
// @Tags groups
// @Produce json
// @Security BearerAuth
// @Param id path string true "Group id"
// @Param userID path string true "Member's user id"
// @Success 204 "Removed"
// @Failure 403 {object} dto.ErrorResponse "Not an admin"
// @Failure 409 {object} dto.ErrorResponse "Last admin or payments recorded"
// @Router /api/groups/{id}/members/{userID} [delete]
func (h *GroupsHandler) RemoveMember(w http.ResponseWriter, r *http.Request, groupID uuid.UUID, targetIDStr string) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.WriteErrorResponse(w, http.StatusUnauthorized, "Unauthorized", "Invalid user context")
		return
	}

	targetID, err := uuid.Parse(targetIDStr)
	if err != nil {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Invalid user id", "User id must be a UUID")
		return
	}

	if err := h.groups.RemoveMember(r.Context(), groupID, userID, targetID); err != nil {
		utils.WriteAppError(w, err)
		return
	}

	h.sink.Notify("Member removed", "The member was removed from the group.", apperr.SeverityDestructive)
	w.WriteHeader(http.StatusNoContent)
}

// SetRole handles PUT /api/groups/{id}/role
// @Summary Promote or demote a group member
// @Tags groups
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Group id"
// @Param request body dto.SetRoleRequest true "Target user and role"
// @Success 200 {object} dto.GroupMemberResponse
// @Failure 403 {object} dto.ErrorResponse "Not an admin"
// @Failure 409 {object} dto.ErrorResponse "Last admin cannot be demoted"
// @Router /api/groups/{id}/role [put]
func (h *GroupsHandler) SetRole(w http.ResponseWriter, r *http.Request, groupID uuid.UUID) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.WriteErrorResponse(w, http.StatusUnauthorized, "Unauthorized", "Invalid user context")
		return
	}

	var req dto.SetRoleRequest
	if err := utils.DecodeJSONRequest(w, r, &req); err != nil {
		return
	}
	targetID, err := uuid.Parse(req.UserID)
	if err != nil {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Invalid user id", "User id must be a UUID")
		return
	}

	member, err := h.groups.SetAdminRole(r.Context(), groupID, userID, targetID, req.MakeAdmin)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	utils.WriteJSONResponse(w, http.StatusOK, toGroupMemberResponse(member))
}

// SetFavourite handles PUT /api/groups/{id}/favourite
// @Summary Flag or unflag a group as favourite
// @Tags groups
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Group id"
// @Param request body dto.SetFavouriteRequest true "Favourite flag"
// @Success 200 {object} dto.GroupMemberResponse
// @Router /api/groups/{id}/favourite [put]
func (h *GroupsHandler) SetFavourite(w http.ResponseWriter, r *http.Request, groupID uuid.UUID) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.WriteErrorResponse(w, http.StatusUnauthorized, "Unauthorized", "Invalid user context")
		return
	}

	var req dto.SetFavouriteRequest
	if err := utils.DecodeJSONRequest(w, r, &req); err != nil {
		return
	}

	member, err := h.groups.SetFavourite(r.Context(), userID, groupID, req.Favourite)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	utils.WriteJSONResponse(w, http.StatusOK, toGroupMemberResponse(member))
}

func toGroupResponse(g *models.Group) dto.GroupResponse {
	return dto.GroupResponse{
		ID:          g.ID.String(),
		Name:        g.Name,
		Description: g.Description,
		InviteCode:  g.ID.String(),
		CreatedBy:   g.CreatedBy.String(),
		CreatedAt:   utils.FormatTimestamp(g.CreatedAt),
	}
}

func toGroupMemberResponse(m *models.GroupMember) dto.GroupMemberResponse {
	return dto.GroupMemberResponse{
		GroupID:   m.GroupID.String(),
		UserID:    m.UserID.String(),
		Role:      m.Role,
		Favourite: m.Favourite,
		JoinedAt:  utils.FormatTimestamp(m.JoinedAt),
	}
}
