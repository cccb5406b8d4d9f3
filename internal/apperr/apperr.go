// Package apperr defines the coordination engine's error taxonomy.
//
// Every service operation returns either a value or one of the named
// errors below; raw persistence errors never cross the service boundary.
// The user-facing title, message and severity live here so every caller
// renders the same text for the same failure.
package apperr

// Severity classifies how the UI should present a notification.
type Severity string

const (
	SeverityDefault     Severity = "default"
	SeverityDestructive Severity = "destructive"
	SeveritySuccess     Severity = "success"
	SeverityInfo        Severity = "info"
)

// Error is a named engine failure with its user-facing presentation.
type Error struct {
	Code     string   `json:"code"`
	Title    string   `json:"title"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// New creates a new engine error.
func New(code, title, message string, severity Severity) *Error {
	return &Error{Code: code, Title: title, Message: message, Severity: severity}
}

// The full taxonomy. Compare with errors.Is; the values are sentinels.
var (
	ErrDuplicateName          = New("DUPLICATE_NAME", "Name taken", "A group with this name already exists", SeverityDestructive)
	ErrAlreadyMember          = New("ALREADY_MEMBER", "Already joined", "You are already a member of this group", SeverityInfo)
	ErrMalformedInvite        = New("MALFORMED_INVITE", "Invalid invite", "This invite code is not valid", SeverityDestructive)
	ErrUnknownGroup           = New("UNKNOWN_GROUP", "Group not found", "No group matches this invite code", SeverityDestructive)
	ErrLastAdminCannotLeave   = New("LAST_ADMIN_CANNOT_LEAVE", "You are the last admin", "Promote another member to admin before leaving", SeverityDestructive)
	ErrLastAdminCannotBeRemoved = New("LAST_ADMIN_CANNOT_BE_REMOVED", "Last admin", "The last admin of a group cannot be removed", SeverityDestructive)
	ErrLastAdminCannotBeDemoted = New("LAST_ADMIN_CANNOT_BE_DEMOTED", "Last admin", "The last admin of a group cannot be demoted", SeverityDestructive)
	ErrNotAuthorized          = New("NOT_AUTHORIZED", "Not allowed", "You are not allowed to perform this action", SeverityDestructive)
	ErrTripClosed             = New("TRIP_CLOSED", "Trip closed", "This trip no longer accepts subscriptions", SeverityInfo)
	ErrAlreadySubscribed      = New("ALREADY_SUBSCRIBED", "Already subscribed", "You are already subscribed to this trip", SeverityInfo)
	ErrPaymentLocked          = New("PAYMENT_LOCKED", "Payment recorded", "Subscriptions with payments cannot be removed", SeverityDestructive)
	ErrPaymentUnverified      = New("PAYMENT_UNVERIFIED", "Payment unverified", "A payment on this subscription could not be verified", SeverityDestructive)
	ErrTimeout                = New("TIMEOUT", "Timed out", "The operation took too long, please retry", SeverityDestructive)
	ErrUnknown                = New("UNKNOWN", "Something went wrong", "An unexpected error occurred", SeverityDestructive)
)
