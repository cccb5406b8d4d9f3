package services

import (
	"github.com/google/uuid"

	"github.com/tripcrew/backend/internal/models"
)

// IsLastAdmin reports whether userID is the only admin in the membership
// snapshot. It is evaluated against a freshly read member set right
// before a mutating write; the database constraint remains the final
// authority when two requests race.
func IsLastAdmin(members []models.GroupMember, userID uuid.UUID) bool {
	admins := 0
	var last uuid.UUID
	for _, m := range members {
		if m.IsAdmin() {
			admins++
			last = m.UserID
		}
	}
	return admins == 1 && last == userID
}
