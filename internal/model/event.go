package model

// Event is a single-date happening organized by a user.
type Event struct {
	ID            uint64 `json:"id" db:"event_id"`
	OwnerID       uint64 `json:"organizer_id" db:"user_id"`
	OrganizerName string `json:"organizer,omitempty" db:"organizer_name"`
	Title         string `json:"title" db:"title"`
	Description   string `json:"description" db:"description"`
	Image         string `json:"image,omitempty" db:"images"`
	Category      string `json:"category" db:"category"`
	Date          Date   `json:"date" db:"date"`
}

// Attendance registers a user for an event; (EventID, UserID) is unique.
type Attendance struct {
	ID        uint64    `json:"id" db:"attendance_id"`
	EventID   uint64    `json:"event_id" db:"event_id"`
	UserID    uint64    `json:"user_id" db:"user_id"`
	CreatedAt Timestamp `json:"created_at" db:"created_at"`
}

// AttendingEvent is an event seen from an attendee, carrying the attendance
// id needed to cancel.
type AttendingEvent struct {
	Event
	AttendanceID uint64 `json:"attendance_id" db:"attendance_id"`
}
