// Package queue defines message payloads exchanged over the message broker
// and the consumer that records them.
package queue

import "time"

// Activity event types.
const (
	ReservationCreated   = "reservation.created"
	ReservationCancelled = "reservation.cancelled"
	AttendanceCreated    = "attendance.created"
	AttendanceCancelled  = "attendance.cancelled"
)

// ActivityEvent is published after a booking or attendance change commits.
// It carries enough for downstream consumers to log or notify without
// querying the primary database.  Dates are YYYY-MM-DD; OccurredAt is
// RFC 3339 UTC.
type ActivityEvent struct {
	Type          string `json:"type"`
	ActorID       uint64 `json:"actor_id"`
	TargetKind    string `json:"target_kind"` // resource | space | event
	TargetID      uint64 `json:"target_id"`
	ReservationID uint64 `json:"reservation_id,omitempty"`
	AttendanceID  uint64 `json:"attendance_id,omitempty"`
	StartDate     string `json:"start_date,omitempty"`
	EndDate       string `json:"end_date,omitempty"`
	OccurredAt    string `json:"occurred_at"`
}

// Stamp sets OccurredAt from t.
func (e *ActivityEvent) Stamp(t time.Time) {
	e.OccurredAt = t.UTC().Format(time.RFC3339)
}
