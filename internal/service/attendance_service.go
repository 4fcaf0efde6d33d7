package service

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/iliyamo/neighborhood-exchange/internal/model"
	"github.com/iliyamo/neighborhood-exchange/internal/queue"
	"github.com/iliyamo/neighborhood-exchange/internal/repository"
)

// AttendanceService registers users for events.  Like bookings, the check
// and the insert run under the event's row lock; the unique key on
// (event_id, user_id) backs it up.
type AttendanceService struct {
	DB         *sqlx.DB
	Events     *repository.EventRepo
	Attendance *repository.AttendanceRepo
	Publisher  EventPublisher
	Now        func() time.Time
}

func NewAttendanceService(db *sqlx.DB, pub EventPublisher) *AttendanceService {
	return &AttendanceService{
		DB:         db,
		Events:     repository.NewEventRepo(db),
		Attendance: repository.NewAttendanceRepo(db),
		Publisher:  pub,
		Now:        time.Now,
	}
}

// Attend registers userID for eventID and returns the attendance id.
// Errors: ErrNotFound, ErrAlreadyAttending.
func (s *AttendanceService) Attend(ctx context.Context, eventID, userID uint64) (uint64, error) {
	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "begin attendance tx")
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := s.Events.LockTx(ctx, tx, eventID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, ErrNotFound
		}
		return 0, errors.Wrapf(err, "lock event %d", eventID)
	}
	exists, err := s.Attendance.ExistsTx(ctx, tx, eventID, userID)
	if err != nil {
		return 0, errors.Wrap(err, "check attendance")
	}
	if exists {
		return 0, ErrAlreadyAttending
	}
	now := s.Now()
	a := model.Attendance{EventID: eventID, UserID: userID, CreatedAt: model.NewTimestamp(now.UTC())}
	if err := s.Attendance.CreateTx(ctx, tx, &a); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return 0, ErrAlreadyAttending
		}
		return 0, errors.Wrap(err, "insert attendance")
	}
	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "commit attendance")
	}
	committed = true

	publishAfterCommit(ctx, s.Publisher, queue.ActivityEvent{
		Type:         queue.AttendanceCreated,
		ActorID:      userID,
		TargetKind:   "event",
		TargetID:     eventID,
		AttendanceID: a.ID,
	}, now)
	return a.ID, nil
}

// CancelAttendance removes an attendance row held by userID.  Like
// reservation cancellation, a missing row and someone else's row both give
// ErrNotAuthorized.
func (s *AttendanceService) CancelAttendance(ctx context.Context, attendanceID, userID uint64) error {
	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin attendance tx")
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	a, err := s.Attendance.GetOwnedTx(ctx, tx, attendanceID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotAuthorized
		}
		return errors.Wrap(err, "load attendance")
	}
	if err := s.Attendance.DeleteTx(ctx, tx, a.ID); err != nil {
		return errors.Wrap(err, "delete attendance")
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit attendance cancel")
	}
	committed = true

	publishAfterCommit(ctx, s.Publisher, queue.ActivityEvent{
		Type:         queue.AttendanceCancelled,
		ActorID:      userID,
		TargetKind:   "event",
		TargetID:     a.EventID,
		AttendanceID: a.ID,
	}, s.Now())
	return nil
}
