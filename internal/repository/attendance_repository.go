package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/neighborhood-exchange/internal/model"
)

// AttendanceRepo records which users attend which events.  The
// (event_id, user_id) pair is unique in the schema as well.
type AttendanceRepo struct {
	db *sqlx.DB
}

func NewAttendanceRepo(db *sqlx.DB) *AttendanceRepo { return &AttendanceRepo{db: db} }

// ExistsTx reports whether userID already attends eventID.
func (r *AttendanceRepo) ExistsTx(ctx context.Context, tx *sqlx.Tx, eventID, userID uint64) (bool, error) {
	var n int
	if err := tx.GetContext(ctx, &n,
		"SELECT COUNT(*) FROM event_attendance WHERE event_id = ? AND user_id = ?", eventID, userID); err != nil {
		return false, err
	}
	return n > 0, nil
}

// CreateTx inserts a. A duplicate pair gives ErrConflict.
func (r *AttendanceRepo) CreateTx(ctx context.Context, tx *sqlx.Tx, a *model.Attendance) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = model.NewTimestamp(time.Now().UTC())
	}
	res, err := tx.ExecContext(ctx,
		"INSERT INTO event_attendance (event_id, user_id, created_at) VALUES (?, ?, ?)",
		a.EventID, a.UserID, a.CreatedAt)
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	return nil
}

// GetOwnedTx loads and locks an attendance row of userID; ErrNotFound when
// missing or held by someone else.
func (r *AttendanceRepo) GetOwnedTx(ctx context.Context, tx *sqlx.Tx, attendanceID, userID uint64) (*model.Attendance, error) {
	var a model.Attendance
	err := tx.GetContext(ctx, &a,
		`SELECT attendance_id, event_id, user_id, created_at FROM event_attendance
		 WHERE attendance_id = ? AND user_id = ? FOR UPDATE`, attendanceID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AttendanceRepo) DeleteTx(ctx context.Context, tx *sqlx.Tx, attendanceID uint64) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM event_attendance WHERE attendance_id = ?", attendanceID)
	return err
}

// Attending lists the events userID attends with the attendance id.
func (r *AttendanceRepo) Attending(ctx context.Context, userID uint64) ([]model.AttendingEvent, error) {
	out := []model.AttendingEvent{}
	err := r.db.SelectContext(ctx, &out,
		`SELECT e.event_id, e.user_id, u.name AS organizer_name, e.title,
			COALESCE(e.description,'') AS description, COALESCE(e.images,'') AS images,
			COALESCE(e.category,'') AS category, e.date, a.attendance_id
		 FROM event_attendance a
		 JOIN events e ON e.event_id = a.event_id
		 JOIN users u ON u.user_id = e.user_id
		 WHERE a.user_id = ?
		 ORDER BY e.date, e.event_id`, userID)
	return out, err
}

// Upcoming lists attended events dated today or later.
func (r *AttendanceRepo) Upcoming(ctx context.Context, userID uint64, today model.Date) ([]model.UpcomingItem, error) {
	out := []model.UpcomingItem{}
	err := r.db.SelectContext(ctx, &out,
		`SELECT 'event' AS kind, e.title, e.date AS start_date, NULL AS end_date, u.name AS counterpart
		 FROM event_attendance a
		 JOIN events e ON e.event_id = a.event_id
		 JOIN users u ON u.user_id = e.user_id
		 WHERE a.user_id = ? AND e.date >= ?
		 ORDER BY e.date, e.title`, userID, today)
	return out, err
}

// RecentForOrganizer lists attendance by other users of organizerID's
// events since the given instant, newest first.
func (r *AttendanceRepo) RecentForOrganizer(ctx context.Context, organizerID uint64, since time.Time) ([]model.Notification, error) {
	out := []model.Notification{}
	err := r.db.SelectContext(ctx, &out,
		`SELECT 'event_attendance' AS kind, e.title, u.name AS user_name, a.created_at
		 FROM event_attendance a
		 JOIN events e ON e.event_id = a.event_id
		 JOIN users u ON u.user_id = a.user_id
		 WHERE e.user_id = ? AND a.user_id <> ? AND a.created_at >= ?
		 ORDER BY a.created_at DESC`, organizerID, organizerID, model.NewTimestamp(since.UTC()))
	return out, err
}
