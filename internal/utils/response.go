package utils

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tripcrew/backend/internal/apperr"
	"github.com/tripcrew/backend/internal/dto"
)

// WriteJSONResponse writes a JSON response to the HTTP response writer
func WriteJSONResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// WriteErrorResponse writes a JSON error response
func WriteErrorResponse(w http.ResponseWriter, status int, errTitle, message string) {
	WriteJSONResponse(w, status, dto.ErrorResponse{Error: errTitle, Message: message})
}

// WriteAppError maps a taxonomy error to its HTTP status and writes the
// centrally defined title/message/severity. Anything that is not an
// *apperr.Error is reported as Unknown; raw store errors never reach the
// client.
func WriteAppError(w http.ResponseWriter, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		appErr = apperr.ErrUnknown
	}
	WriteJSONResponse(w, StatusForError(appErr), dto.ErrorResponse{
		Error:    appErr.Title,
		Message:  appErr.Message,
		Code:     appErr.Code,
		Severity: string(appErr.Severity),
	})
}

// StatusForError returns the HTTP status for a taxonomy error.
func StatusForError(err *apperr.Error) int {
	switch err {
	case apperr.ErrMalformedInvite:
		return http.StatusBadRequest
	case apperr.ErrNotAuthorized:
		return http.StatusForbidden
	case apperr.ErrUnknownGroup:
		return http.StatusNotFound
	case apperr.ErrDuplicateName,
		apperr.ErrAlreadyMember,
		apperr.ErrAlreadySubscribed,
		apperr.ErrLastAdminCannotLeave,
		apperr.ErrLastAdminCannotBeRemoved,
		apperr.ErrLastAdminCannotBeDemoted,
		apperr.ErrTripClosed,
		apperr.ErrPaymentLocked,
		apperr.ErrPaymentUnverified:
		return http.StatusConflict
	case apperr.ErrTimeout:
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}
