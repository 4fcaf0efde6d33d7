// Package service holds the booking and attendance rules and the read
// models assembled from several repositories.  Handlers translate the
// sentinel errors below into HTTP statuses.
package service

import "errors"

var (
	// ErrInvalidRange: the end date precedes the start date.
	ErrInvalidRange = errors.New("end date must not be before start date")
	// ErrOverlapConflict: the range shares a day with an existing reservation.
	ErrOverlapConflict = errors.New("dates overlap an existing reservation")
	// ErrAlreadyAttending: the user already attends the event.
	ErrAlreadyAttending = errors.New("already attending this event")
	// ErrNotAuthorized: the reservation or attendance is not the caller's,
	// or does not exist.  The two cases are deliberately not distinguished.
	ErrNotAuthorized = errors.New("not authorized")
	// ErrNotFound: the listing or event does not exist.
	ErrNotFound = errors.New("not found")
)
