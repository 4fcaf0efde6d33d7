package service

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/iliyamo/neighborhood-exchange/internal/model"
	"github.com/iliyamo/neighborhood-exchange/internal/queue"
)

const (
	lockResourceSQL   = `SELECT resource_id FROM resources WHERE resource_id = \? FOR UPDATE`
	rangesResourceSQL = `SELECT reservation_start_date AS start_date, reservation_end_date AS end_date\s+FROM resource_reservations WHERE resource_id = \?`
	insertResourceSQL = `INSERT INTO resource_reservations \(resource_id, user_id, reservation_start_date, reservation_end_date, created_at\)`
)

func newReservationService(t *testing.T) (*ReservationService, sqlmock.Sqlmock, *recordingPublisher) {
	db, mock := newMock(t)
	pub := &recordingPublisher{}
	s := NewReservationService(db, pub, time.UTC)
	s.Now = func() time.Time { return fixedNow }
	return s, mock, pub
}

func expectRanges(mock sqlmock.Sqlmock, listingID uint64, existing ...model.DateRange) {
	rows := sqlmock.NewRows([]string{"start_date", "end_date"})
	for _, r := range existing {
		rows.AddRow(r.Start.Time(), r.End.Time())
	}
	mock.ExpectQuery(rangesResourceSQL).WithArgs(listingID).WillReturnRows(rows)
}

func expectLock(mock sqlmock.Sqlmock, listingID uint64) {
	mock.ExpectQuery(lockResourceSQL).WithArgs(listingID).
		WillReturnRows(sqlmock.NewRows([]string{"resource_id"}).AddRow(listingID))
}

func TestReserveSucceedsAfterExistingRange(t *testing.T) {
	s, mock, pub := newReservationService(t)

	mock.ExpectBegin()
	expectLock(mock, 7)
	expectRanges(mock, 7, rng("2025-01-01", "2025-01-05"))
	mock.ExpectExec(insertResourceSQL).
		WithArgs(7, 3, "2025-01-06", "2025-01-08", "2025-01-03 09:30:00").
		WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectCommit()

	id, err := s.Reserve(context.Background(), model.KindResource, 7, 3, rng("2025-01-06", "2025-01-08"))
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if id != 11 {
		t.Fatalf("id = %d, want 11", id)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
	if len(pub.events) != 1 {
		t.Fatalf("published %d events, want 1", len(pub.events))
	}
	ev := pub.events[0]
	if ev.Type != queue.ReservationCreated || ev.ReservationID != 11 || ev.TargetKind != "resource" ||
		ev.StartDate != "2025-01-06" || ev.EndDate != "2025-01-08" || ev.OccurredAt != "2025-01-03T09:30:00Z" {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestReserveTouchingEndpointConflicts(t *testing.T) {
	s, mock, pub := newReservationService(t)

	mock.ExpectBegin()
	expectLock(mock, 7)
	expectRanges(mock, 7, rng("2025-01-01", "2025-01-05"))
	mock.ExpectRollback()

	_, err := s.Reserve(context.Background(), model.KindResource, 7, 4, rng("2025-01-05", "2025-01-10"))
	if !errors.Is(err, ErrOverlapConflict) {
		t.Fatalf("err = %v, want ErrOverlapConflict", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
	if len(pub.events) != 0 {
		t.Fatalf("conflict published %v", pub.types())
	}
}

func TestReserveInvalidRangeTouchesNoStore(t *testing.T) {
	s, mock, _ := newReservationService(t)

	_, err := s.Reserve(context.Background(), model.KindResource, 7, 3, rng("2025-01-10", "2025-01-09"))
	if !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("err = %v, want ErrInvalidRange", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestReserveUnknownListing(t *testing.T) {
	s, mock, _ := newReservationService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(lockResourceSQL).WithArgs(99).WillReturnRows(sqlmock.NewRows([]string{"resource_id"}))
	mock.ExpectRollback()

	_, err := s.Reserve(context.Background(), model.KindResource, 99, 3, rng("2025-01-01", "2025-01-01"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestReserveStoreFailureIsWrapped(t *testing.T) {
	s, mock, _ := newReservationService(t)
	boom := errors.New("connection reset")

	mock.ExpectBegin()
	expectLock(mock, 7)
	mock.ExpectQuery(rangesResourceSQL).WithArgs(7).WillReturnError(boom)
	mock.ExpectRollback()

	_, err := s.Reserve(context.Background(), model.KindResource, 7, 3, rng("2025-01-01", "2025-01-02"))
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped %v", err, boom)
	}
}

// Two users book adjacent ranges on one listing; a single day inside the
// first range is then refused.
func TestReserveSequenceOnOneListing(t *testing.T) {
	s, mock, _ := newReservationService(t)
	ctx := context.Background()

	steps := []struct {
		user     uint64
		r        model.DateRange
		existing []model.DateRange
		wantErr  error
	}{
		{1, rng("2025-03-01", "2025-03-03"), nil, nil},
		{2, rng("2025-03-04", "2025-03-06"), []model.DateRange{rng("2025-03-01", "2025-03-03")}, nil},
		{2, rng("2025-03-02", "2025-03-02"), []model.DateRange{rng("2025-03-01", "2025-03-03"), rng("2025-03-04", "2025-03-06")}, ErrOverlapConflict},
	}
	for i, st := range steps {
		mock.ExpectBegin()
		expectLock(mock, 5)
		expectRanges(mock, 5, st.existing...)
		if st.wantErr == nil {
			mock.ExpectExec(insertResourceSQL).WillReturnResult(sqlmock.NewResult(int64(i+1), 1))
			mock.ExpectCommit()
		} else {
			mock.ExpectRollback()
		}
		_, err := s.Reserve(ctx, model.KindResource, 5, st.user, st.r)
		if !errors.Is(err, st.wantErr) {
			t.Fatalf("step %d: err = %v, want %v", i, err, st.wantErr)
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestReserveSpaceUsesSpaceTables(t *testing.T) {
	s, mock, _ := newReservationService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT space_id FROM spaces WHERE space_id = \? FOR UPDATE`).WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"space_id"}).AddRow(2))
	mock.ExpectQuery(`FROM space_reservations WHERE space_id = \?`).WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"start_date", "end_date"}))
	mock.ExpectExec(`INSERT INTO space_reservations \(space_id,`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	if _, err := s.Reserve(context.Background(), model.KindSpace, 2, 3, rng("2025-02-01", "2025-02-02")); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

const ownedReservationSQL = `FROM resource_reservations WHERE reservation_id = \? AND user_id = \? FOR UPDATE`

func TestCancelByOwnerResetsAvailability(t *testing.T) {
	s, mock, pub := newReservationService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(ownedReservationSQL).WithArgs(5, 3).WillReturnRows(
		sqlmock.NewRows([]string{"reservation_id", "listing_id", "user_id", "start_date", "end_date", "created_at"}).
			AddRow(5, 7, 3, day("2025-01-01"), day("2025-01-05"), fixedNow))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM resource_reservations WHERE reservation_id = ?")).
		WithArgs(5).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE resources SET availability = ? WHERE resource_id = ?")).
		WithArgs("available", 7).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := s.Cancel(context.Background(), model.KindResource, 5, 3); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
	if got := pub.types(); len(got) != 1 || got[0] != queue.ReservationCancelled {
		t.Fatalf("published %v", got)
	}
	if ev := pub.events[0]; ev.TargetID != 7 || ev.StartDate != "2025-01-01" {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestCancelByOtherUserIsNotAuthorized(t *testing.T) {
	s, mock, pub := newReservationService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(ownedReservationSQL).WithArgs(5, 4).
		WillReturnRows(sqlmock.NewRows([]string{"reservation_id"}))
	mock.ExpectRollback()

	err := s.Cancel(context.Background(), model.KindResource, 5, 4)
	if !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("err = %v, want ErrNotAuthorized", err)
	}
	// No DELETE was expected, so any issued statement would have failed here.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
	if len(pub.events) != 0 {
		t.Fatalf("published %v", pub.types())
	}
}

func TestPublishFailureDoesNotFailReserve(t *testing.T) {
	s, mock, pub := newReservationService(t)
	pub.err = errors.New("broker down")

	mock.ExpectBegin()
	expectLock(mock, 7)
	expectRanges(mock, 7)
	mock.ExpectExec(insertResourceSQL).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	if _, err := s.Reserve(context.Background(), model.KindResource, 7, 3, rng("2025-01-01", "2025-01-01")); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
}

func TestListingDerivesStatusFromRanges(t *testing.T) {
	s, mock, _ := newReservationService(t)
	listingCols := []string{"id", "user_id", "owner_name", "title", "description", "images", "category", "availability", "reserved_today", "date_posted"}

	mock.ExpectQuery(`FROM resources l\s+JOIN users u ON u.user_id = l.user_id WHERE l.resource_id = \?`).
		WithArgs("2025-01-03", "2025-01-03", 7).
		WillReturnRows(sqlmock.NewRows(listingCols).
			AddRow(7, 1, "Ann", "Drill", "", "", "tools", "available", true, fixedNow))
	mock.ExpectQuery(rangesResourceSQL).WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"start_date", "end_date"}).
			AddRow(day("2025-01-02"), day("2025-01-04")))

	l, ranges, err := s.Listing(context.Background(), model.KindResource, 7)
	if err != nil {
		t.Fatalf("Listing: %v", err)
	}
	if l.Status != model.StatusReserved || l.Availability != "available" || len(ranges) != 1 {
		t.Fatalf("got status %q availability %q ranges %v", l.Status, l.Availability, ranges)
	}
}
