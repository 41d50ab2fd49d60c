package meetup

import (
	"errors"
	"fmt"
)

// Error categories. Every error returned by the service wraps one of them so
// the transport layer can map it with errors.Is.
var (
	ErrValidation  = errors.New("validation failed")
	ErrConflict    = errors.New("conflict")
	ErrForbidden   = errors.New("forbidden")
	ErrNotFound    = errors.New("not found")
	ErrGeoMismatch = errors.New("location mismatch")
)

var (
	ErrEventNotFound    = fmt.Errorf("event %w", ErrNotFound)
	ErrRequestNotFound  = fmt.Errorf("request %w", ErrNotFound)
	ErrChatNotFound     = fmt.Errorf("chat %w", ErrNotFound)
	ErrNotEventCreator  = fmt.Errorf("%w: only the event creator can do this", ErrForbidden)
	ErrNotEventParty    = fmt.Errorf("%w: not a party of this event", ErrForbidden)
	ErrUserSuspended    = fmt.Errorf("%w: account is suspended", ErrForbidden)
	ErrUserBlocked      = fmt.Errorf("%w: user is blocked", ErrForbidden)
	ErrActiveEventLimit = fmt.Errorf("%w: creator already has an active event", ErrConflict)
	ErrAlreadyRequested = fmt.Errorf("%w: join already requested", ErrConflict)
	ErrEventTaken       = fmt.Errorf("%w: event is already matched", ErrConflict)
	ErrRequestHandled   = fmt.Errorf("%w: request is no longer pending", ErrConflict)
	ErrChatLocked       = fmt.Errorf("%w: chat is locked", ErrConflict)
	ErrChatExpired      = fmt.Errorf("%w: chat has expired", ErrConflict)
	ErrQuotaExhausted   = fmt.Errorf("%w: message quota exhausted", ErrConflict)
	ErrAlreadyCheckedIn = fmt.Errorf("%w: already checked in", ErrConflict)
	ErrFeedbackGiven    = fmt.Errorf("%w: feedback already submitted", ErrConflict)
	ErrTooFarFromHub    = fmt.Errorf("%w: too far from the hub", ErrGeoMismatch)
)

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// stateError reports a transition attempted from the wrong state.
func stateError(action string, status Status) error {
	return fmt.Errorf("%w: cannot %s an event in status %s", ErrConflict, action, status)
}
