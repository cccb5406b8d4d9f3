package utils

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = validator.New()

// DecodeJSONRequest decodes and validates a JSON request body. On failure
// it writes the error response itself and returns the error so callers
// can simply return.
func DecodeJSONRequest(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return err
	}
	if err := validate.Struct(dst); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "Validation error", err.Error())
		return err
	}
	return nil
}

type contextKey string

// UserIDKey is the request-context key holding the authenticated user id.
const UserIDKey contextKey = "user_id"

// GetUserIDFromContext extracts the authenticated user id placed in the
// request context by the auth middleware.
func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(UserIDKey).(uuid.UUID)
	return id, ok
}
