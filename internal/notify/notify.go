// Package notify carries outcome descriptors to whatever renders them.
// The services never render anything; they hand a title, message and
// severity to a Sink and move on.
package notify

import (
	"log/slog"

	"github.com/tripcrew/backend/internal/apperr"
)

// Sink receives user-facing outcome descriptors. Fire-and-forget; no
// return value is consumed.
type Sink interface {
	Notify(title, message string, severity apperr.Severity)
}

// LogSink writes notifications to the structured log. It is the default
// sink when no UI channel is attached.
type LogSink struct{}

// Notify implements Sink.
func (LogSink) Notify(title, message string, severity apperr.Severity) {
	slog.Info("notification", "title", title, "message", message, "severity", severity)
}

// FromError builds the notification descriptor for a taxonomy error.
func FromError(err *apperr.Error) (title, message string, severity apperr.Severity) {
	return err.Title, err.Message, err.Severity
}
