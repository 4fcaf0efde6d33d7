package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/neighborhood-exchange/internal/queue"
)

const (
	lockEventSQL       = `SELECT event_id FROM events WHERE event_id = \? FOR UPDATE`
	attendanceCountSQL = `SELECT COUNT\(\*\) FROM event_attendance WHERE event_id = \? AND user_id = \?`
	insertAttendance   = `INSERT INTO event_attendance \(event_id, user_id, created_at\)`
)

func newAttendanceService(t *testing.T) (*AttendanceService, sqlmock.Sqlmock, *recordingPublisher) {
	db, mock := newMock(t)
	pub := &recordingPublisher{}
	s := NewAttendanceService(db, pub)
	s.Now = func() time.Time { return fixedNow }
	return s, mock, pub
}

func TestAttend(t *testing.T) {
	cases := []struct {
		name    string
		setup   func(sqlmock.Sqlmock)
		wantID  uint64
		wantErr error
	}{
		{
			name: "first registration",
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectBegin()
				m.ExpectQuery(lockEventSQL).WithArgs(4).WillReturnRows(sqlmock.NewRows([]string{"event_id"}).AddRow(4))
				m.ExpectQuery(attendanceCountSQL).WithArgs(4, 9).WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
				m.ExpectExec(insertAttendance).WithArgs(4, 9, "2025-01-03 09:30:00").WillReturnResult(sqlmock.NewResult(21, 1))
				m.ExpectCommit()
			},
			wantID: 21,
		},
		{
			name: "already attending",
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectBegin()
				m.ExpectQuery(lockEventSQL).WithArgs(4).WillReturnRows(sqlmock.NewRows([]string{"event_id"}).AddRow(4))
				m.ExpectQuery(attendanceCountSQL).WithArgs(4, 9).WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
				m.ExpectRollback()
			},
			wantErr: ErrAlreadyAttending,
		},
		{
			name: "unique key race",
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectBegin()
				m.ExpectQuery(lockEventSQL).WithArgs(4).WillReturnRows(sqlmock.NewRows([]string{"event_id"}).AddRow(4))
				m.ExpectQuery(attendanceCountSQL).WithArgs(4, 9).WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
				m.ExpectExec(insertAttendance).WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
				m.ExpectRollback()
			},
			wantErr: ErrAlreadyAttending,
		},
		{
			name: "unknown event",
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectBegin()
				m.ExpectQuery(lockEventSQL).WithArgs(4).WillReturnRows(sqlmock.NewRows([]string{"event_id"}))
				m.ExpectRollback()
			},
			wantErr: ErrNotFound,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, mock, pub := newAttendanceService(t)
			tc.setup(mock)
			id, err := s.Attend(context.Background(), 4, 9)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
			if id != tc.wantID {
				t.Fatalf("id = %d, want %d", id, tc.wantID)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatal(err)
			}
			wantEvents := 0
			if tc.wantErr == nil {
				wantEvents = 1
			}
			if len(pub.events) != wantEvents {
				t.Fatalf("published %v", pub.types())
			}
		})
	}
}

func TestCancelAttendance(t *testing.T) {
	const owned = `FROM event_attendance\s+WHERE attendance_id = \? AND user_id = \? FOR UPDATE`

	t.Run("owner", func(t *testing.T) {
		s, mock, pub := newAttendanceService(t)
		mock.ExpectBegin()
		mock.ExpectQuery(owned).WithArgs(21, 9).WillReturnRows(
			sqlmock.NewRows([]string{"attendance_id", "event_id", "user_id", "created_at"}).AddRow(21, 4, 9, fixedNow))
		mock.ExpectExec(`DELETE FROM event_attendance WHERE attendance_id = \?`).WithArgs(21).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		if err := s.CancelAttendance(context.Background(), 21, 9); err != nil {
			t.Fatalf("CancelAttendance: %v", err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Fatal(err)
		}
		if got := pub.types(); len(got) != 1 || got[0] != queue.AttendanceCancelled {
			t.Fatalf("published %v", got)
		}
	})

	t.Run("someone else", func(t *testing.T) {
		s, mock, _ := newAttendanceService(t)
		mock.ExpectBegin()
		mock.ExpectQuery(owned).WithArgs(21, 8).WillReturnRows(sqlmock.NewRows([]string{"attendance_id"}))
		mock.ExpectRollback()

		if err := s.CancelAttendance(context.Background(), 21, 8); !errors.Is(err, ErrNotAuthorized) {
			t.Fatalf("err = %v, want ErrNotAuthorized", err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Fatal(err)
		}
	})
}
