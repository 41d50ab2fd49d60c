package notification

import "errors"

var (
	ErrNotFound        = errors.New("notification not found")
	ErrForbidden       = errors.New("forbidden")
	ErrNilNotification = errors.New("notification cannot be nil")
)
