package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered account. Identity and sessions are owned by
// the auth layer; the coordination services only ever hold the user id.
type User struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"` // Hidden from JSON responses
	FirstName    string     `json:"first_name" db:"first_name"`
	LastName     string     `json:"last_name" db:"last_name"`
	AvatarURL    *string    `json:"avatar_url" db:"avatar_url"`
	BirthDate    *time.Time `json:"birth_date" db:"birth_date"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}
