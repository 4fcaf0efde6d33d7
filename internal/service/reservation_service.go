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

// ReservationService books and cancels date-range reservations of
// resources and spaces.
//
// Booking is a read-check-write sequence.  It is made safe under
// concurrent requests by taking the listing's row lock (SELECT ... FOR
// UPDATE) before reading existing reservations, so bookings of one listing
// are serialized by the database while different listings proceed in
// parallel.
type ReservationService struct {
	DB           *sqlx.DB
	Listings     *repository.ListingRepo
	Reservations *repository.ReservationRepo
	Publisher    EventPublisher
	Location     *time.Location
	Now          func() time.Time
}

func NewReservationService(db *sqlx.DB, pub EventPublisher, loc *time.Location) *ReservationService {
	return &ReservationService{
		DB:           db,
		Listings:     repository.NewListingRepo(db),
		Reservations: repository.NewReservationRepo(db),
		Publisher:    pub,
		Location:     loc,
		Now:          time.Now,
	}
}

// Today is the current calendar date in the service's time zone.
func (s *ReservationService) Today() model.Date {
	return model.Today(s.Now(), s.Location)
}

// Reserve records a reservation of [r.Start, r.End] on the listing for
// userID and returns its id.  The owner may reserve their own listing.
//
// Errors: ErrInvalidRange when r.End < r.Start (checked before any store
// access), ErrNotFound when the listing does not exist, ErrOverlapConflict
// when r shares a day with an existing reservation.
func (s *ReservationService) Reserve(ctx context.Context, kind model.ListingKind, listingID, userID uint64, r model.DateRange) (uint64, error) {
	if !r.Valid() {
		return 0, ErrInvalidRange
	}

	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "begin reservation tx")
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := s.Listings.LockTx(ctx, tx, kind, listingID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, ErrNotFound
		}
		return 0, errors.Wrapf(err, "lock %s %d", kind, listingID)
	}
	existing, err := s.Reservations.RangesTx(ctx, tx, kind, listingID)
	if err != nil {
		return 0, errors.Wrap(err, "load reservations")
	}
	if hit, ok := r.FirstOverlap(existing); ok {
		return 0, errors.Wrapf(ErrOverlapConflict, "%s overlaps %s", r, hit)
	}

	now := s.Now()
	res := model.Reservation{
		Kind:      kind,
		ListingID: listingID,
		UserID:    userID,
		Start:     r.Start,
		End:       r.End,
		CreatedAt: model.NewTimestamp(now.UTC()),
	}
	if err := s.Reservations.CreateTx(ctx, tx, &res); err != nil {
		return 0, errors.Wrap(err, "insert reservation")
	}
	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "commit reservation")
	}
	committed = true

	publishAfterCommit(ctx, s.Publisher, queue.ActivityEvent{
		Type:          queue.ReservationCreated,
		ActorID:       userID,
		TargetKind:    string(kind),
		TargetID:      listingID,
		ReservationID: res.ID,
		StartDate:     r.Start.String(),
		EndDate:       r.End.String(),
	}, now)
	return res.ID, nil
}

// Cancel deletes a reservation made by userID and resets the listing's
// stored availability flag to "available" in the same transaction.
// ErrNotAuthorized covers both "not yours" and "no such reservation".
func (s *ReservationService) Cancel(ctx context.Context, kind model.ListingKind, reservationID, userID uint64) error {
	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin cancel tx")
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := s.Reservations.GetOwnedTx(ctx, tx, kind, reservationID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotAuthorized
		}
		return errors.Wrap(err, "load reservation")
	}
	if err := s.Reservations.DeleteTx(ctx, tx, kind, res.ID); err != nil {
		return errors.Wrap(err, "delete reservation")
	}
	if err := s.Listings.ResetAvailabilityTx(ctx, tx, kind, res.ListingID); err != nil {
		return errors.Wrap(err, "reset availability")
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit cancel")
	}
	committed = true

	publishAfterCommit(ctx, s.Publisher, queue.ActivityEvent{
		Type:          queue.ReservationCancelled,
		ActorID:       userID,
		TargetKind:    string(kind),
		TargetID:      res.ListingID,
		ReservationID: res.ID,
		StartDate:     res.Start.String(),
		EndDate:       res.End.String(),
	}, s.Now())
	return nil
}

// ListingReservations returns the booked ranges of a listing, so clients
// can grey out taken dates.
func (s *ReservationService) ListingReservations(ctx context.Context, kind model.ListingKind, listingID uint64) ([]model.DateRange, error) {
	ok, err := s.Listings.Exists(ctx, kind, listingID)
	if err != nil {
		return nil, errors.Wrap(err, "check listing")
	}
	if !ok {
		return nil, ErrNotFound
	}
	ranges, err := s.Reservations.Ranges(ctx, kind, listingID)
	return ranges, errors.Wrap(err, "load reservations")
}

// Listing returns one listing with its status derived from its reservations
// for today, together with the booked ranges.
func (s *ReservationService) Listing(ctx context.Context, kind model.ListingKind, listingID uint64) (*model.Listing, []model.DateRange, error) {
	today := s.Today()
	l, err := s.Listings.GetByID(ctx, kind, listingID, today)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, errors.Wrap(err, "load listing")
	}
	ranges, err := s.Reservations.Ranges(ctx, kind, listingID)
	if err != nil {
		return nil, nil, errors.Wrap(err, "load reservations")
	}
	l.Status = model.EffectiveAvailability(l.Availability, ranges, today)
	return l, ranges, nil
}
