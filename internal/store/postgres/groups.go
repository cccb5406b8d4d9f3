package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/tripcrew/backend/internal/models"
	"github.com/tripcrew/backend/internal/store"
)

// CreateGroupWithAdmin inserts the group and the creator's admin
// membership in one transaction, so a group never exists without an admin.
func (s *Store) CreateGroupWithAdmin(ctx context.Context, g *models.Group, m *models.GroupMember) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return mapErr(err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO groups (id, name, description, created_by, created_at)
         VALUES ($1, $2, $3, $4, $5)`,
		g.ID, g.Name, g.Description, g.CreatedBy, g.CreatedAt,
	)
	if err != nil {
		return mapErr(err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO group_members (group_id, user_id, role, favourite, joined_at)
         VALUES ($1, $2, $3, $4, $5)`,
		m.GroupID, m.UserID, m.Role, m.Favourite, m.JoinedAt,
	)
	if err != nil {
		return mapErr(err)
	}

	return mapErr(tx.Commit(ctx))
}

// GetGroup loads a group by id.
func (s *Store) GetGroup(ctx context.Context, id uuid.UUID) (*models.Group, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var g models.Group
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, description, created_by, created_at FROM groups WHERE id = $1`, id).Scan(
		&g.ID, &g.Name, &g.Description, &g.CreatedBy, &g.CreatedAt,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	return &g, nil
}

// UpdateGroupName renames a group.
func (s *Store) UpdateGroupName(ctx context.Context, id uuid.UUID, name string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	ct, err := s.pool.Exec(ctx, `UPDATE groups SET name = $1 WHERE id = $2`, name, id)
	if err != nil {
		return mapErr(err)
	}
	if ct.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteGroup removes a group. Memberships, trips, and trip subscriptions
// go with it via ON DELETE CASCADE.
func (s *Store) DeleteGroup(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	ct, err := s.pool.Exec(ctx, `DELETE FROM groups WHERE id = $1`, id)
	if err != nil {
		return mapErr(err)
	}
	if ct.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

const memberColumns = `group_id, user_id, role, favourite, joined_at`

// InsertGroupMember adds a membership row.
func (s *Store) InsertGroupMember(ctx context.Context, m *models.GroupMember) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO group_members (group_id, user_id, role, favourite, joined_at)
         VALUES ($1, $2, $3, $4, $5)`,
		m.GroupID, m.UserID, m.Role, m.Favourite, m.JoinedAt,
	)
	return mapErr(err)
}

// GetGroupMember loads one membership by its composite key.
func (s *Store) GetGroupMember(ctx context.Context, groupID, userID uuid.UUID) (*models.GroupMember, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var m models.GroupMember
	err := s.pool.QueryRow(ctx,
		`SELECT `+memberColumns+` FROM group_members WHERE group_id = $1 AND user_id = $2`,
		groupID, userID).Scan(&m.GroupID, &m.UserID, &m.Role, &m.Favourite, &m.JoinedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &m, nil
}

// ListGroupMembers returns all memberships of a group ordered by join time.
func (s *Store) ListGroupMembers(ctx context.Context, groupID uuid.UUID) ([]models.GroupMember, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT `+memberColumns+` FROM group_members WHERE group_id = $1 ORDER BY joined_at`, groupID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	return scanMembers(rows)
}

// ListMembershipsForUser returns all of a user's memberships ordered by
// join time; the first favourite in this order is the active group.
func (s *Store) ListMembershipsForUser(ctx context.Context, userID uuid.UUID) ([]models.GroupMember, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT `+memberColumns+` FROM group_members WHERE user_id = $1 ORDER BY joined_at`, userID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	return scanMembers(rows)
}

// DeleteGroupMember removes one membership. The last-admin trigger can
// reject this with a check violation, surfaced as store.ErrLastAdmin.
func (s *Store) DeleteGroupMember(ctx context.Context, groupID, userID uuid.UUID) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	ct, err := s.pool.Exec(ctx,
		`DELETE FROM group_members WHERE group_id = $1 AND user_id = $2`, groupID, userID)
	if err != nil {
		return mapErr(err)
	}
	if ct.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// UpdateGroupMemberRole changes a membership's role. Demoting the last
// admin trips the same trigger as DeleteGroupMember.
func (s *Store) UpdateGroupMemberRole(ctx context.Context, groupID, userID uuid.UUID, role string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	ct, err := s.pool.Exec(ctx,
		`UPDATE group_members SET role = $1 WHERE group_id = $2 AND user_id = $3`,
		role, groupID, userID)
	if err != nil {
		return mapErr(err)
	}
	if ct.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// UpdateGroupMemberFavourite flips the favourite flag on one membership.
func (s *Store) UpdateGroupMemberFavourite(ctx context.Context, groupID, userID uuid.UUID, favourite bool) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	ct, err := s.pool.Exec(ctx,
		`UPDATE group_members SET favourite = $1 WHERE group_id = $2 AND user_id = $3`,
		favourite, groupID, userID)
	if err != nil {
		return mapErr(err)
	}
	if ct.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

type memberRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanMembers(rows memberRows) ([]models.GroupMember, error) {
	members := make([]models.GroupMember, 0)
	for rows.Next() {
		var m models.GroupMember
		if err := rows.Scan(&m.GroupID, &m.UserID, &m.Role, &m.Favourite, &m.JoinedAt); err != nil {
			return nil, mapErr(err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(err)
	}
	return members, nil
}
