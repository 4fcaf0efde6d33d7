package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/neighborhood-exchange/internal/model"
)

// ReservationRepo stores date-range reservations for resources and spaces.
// Writes take a transaction opened by the caller; the caller holds the
// listing row lock (ListingRepo.LockTx) while it checks and inserts.
type ReservationRepo struct {
	db *sqlx.DB
}

func NewReservationRepo(db *sqlx.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// Ranges returns every reserved range of a listing, earliest first.
func (r *ReservationRepo) Ranges(ctx context.Context, kind model.ListingKind, listingID uint64) ([]model.DateRange, error) {
	return r.ranges(ctx, r.db, kind, listingID)
}

// RangesTx is Ranges inside tx, so the read sees the locked state.
func (r *ReservationRepo) RangesTx(ctx context.Context, tx *sqlx.Tx, kind model.ListingKind, listingID uint64) ([]model.DateRange, error) {
	return r.ranges(ctx, tx, kind, listingID)
}

func (r *ReservationRepo) ranges(ctx context.Context, q sqlx.QueryerContext, kind model.ListingKind, listingID uint64) ([]model.DateRange, error) {
	t, err := tablesFor(kind)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT reservation_start_date AS start_date, reservation_end_date AS end_date
		FROM %s WHERE %s = ? ORDER BY reservation_start_date`, t.reservations, t.id)
	out := []model.DateRange{}
	if err := sqlx.SelectContext(ctx, q, &out, query, listingID); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateTx inserts res and fills its ID.  CreatedAt defaults to now with
// second precision.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sqlx.Tx, res *model.Reservation) error {
	t, err := tablesFor(res.Kind)
	if err != nil {
		return err
	}
	if res.CreatedAt.IsZero() {
		res.CreatedAt = model.NewTimestamp(time.Now().UTC())
	}
	q := fmt.Sprintf(`INSERT INTO %s (%s, user_id, reservation_start_date, reservation_end_date, created_at)
		VALUES (?, ?, ?, ?, ?)`, t.reservations, t.id)
	result, err := tx.ExecContext(ctx, q, res.ListingID, res.UserID, res.Start, res.End, res.CreatedAt)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	return nil
}

// GetOwnedTx loads and locks a reservation made by userID.  A reservation
// that does not exist and one held by someone else both give ErrNotFound.
func (r *ReservationRepo) GetOwnedTx(ctx context.Context, tx *sqlx.Tx, kind model.ListingKind, reservationID, userID uint64) (*model.Reservation, error) {
	t, err := tablesFor(kind)
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf(`SELECT reservation_id, %s AS listing_id, user_id,
		reservation_start_date AS start_date, reservation_end_date AS end_date, created_at
		FROM %s WHERE reservation_id = ? AND user_id = ? FOR UPDATE`, t.id, t.reservations)
	var res model.Reservation
	if err := tx.GetContext(ctx, &res, q, reservationID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	res.Kind = kind
	return &res, nil
}

// DeleteTx removes one reservation by id.
func (r *ReservationRepo) DeleteTx(ctx context.Context, tx *sqlx.Tx, kind model.ListingKind, reservationID uint64) error {
	t, err := tablesFor(kind)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE reservation_id = ?", t.reservations), reservationID)
	return err
}

// ListByUser returns the user's reservations of a kind with the listing
// title and its owner's name, most recent start first.
func (r *ReservationRepo) ListByUser(ctx context.Context, kind model.ListingKind, userID uint64) ([]model.Reservation, error) {
	t, err := tablesFor(kind)
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf(`SELECT rv.reservation_id, rv.%[2]s AS listing_id, rv.user_id,
		rv.reservation_start_date AS start_date, rv.reservation_end_date AS end_date, rv.created_at,
		l.title AS listing_title, u.name AS owner_name
		FROM %[3]s rv
		JOIN %[1]s l ON l.%[2]s = rv.%[2]s
		JOIN users u ON u.user_id = l.user_id
		WHERE rv.user_id = ?
		ORDER BY rv.reservation_start_date DESC, rv.reservation_id DESC`, t.listing, t.id, t.reservations)
	out := []model.Reservation{}
	if err := r.db.SelectContext(ctx, &out, q, userID); err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Kind = kind
	}
	return out, nil
}

// Upcoming returns the user's active and future reservations of both kinds:
// those with end >= today or start >= today.
func (r *ReservationRepo) Upcoming(ctx context.Context, userID uint64, today model.Date) ([]model.UpcomingItem, error) {
	var parts []string
	var args []any
	for _, kind := range []model.ListingKind{model.KindResource, model.KindSpace} {
		t, _ := tablesFor(kind)
		parts = append(parts, fmt.Sprintf(`SELECT '%[4]s' AS kind, l.title,
			rv.reservation_start_date AS start_date, rv.reservation_end_date AS end_date,
			u.name AS counterpart
			FROM %[3]s rv
			JOIN %[1]s l ON l.%[2]s = rv.%[2]s
			JOIN users u ON u.user_id = l.user_id
			WHERE rv.user_id = ? AND (rv.reservation_end_date >= ? OR rv.reservation_start_date >= ?)`,
			t.listing, t.id, t.reservations, kind))
		args = append(args, userID, today, today)
	}
	q := parts[0] + " UNION ALL " + parts[1] + " ORDER BY start_date, title"
	out := []model.UpcomingItem{}
	if err := r.db.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, err
	}
	return out, nil
}

// RecentForOwner returns reservations made by other users on ownerID's
// resources and spaces since the given instant, newest first.
func (r *ReservationRepo) RecentForOwner(ctx context.Context, ownerID uint64, since time.Time) ([]model.Notification, error) {
	var parts []string
	var args []any
	for _, kind := range []model.ListingKind{model.KindResource, model.KindSpace} {
		t, _ := tablesFor(kind)
		parts = append(parts, fmt.Sprintf(`SELECT '%[4]s_reservation' AS kind, l.title,
			u.name AS user_name, rv.created_at
			FROM %[3]s rv
			JOIN %[1]s l ON l.%[2]s = rv.%[2]s
			JOIN users u ON u.user_id = rv.user_id
			WHERE l.user_id = ? AND rv.user_id <> ? AND rv.created_at >= ?`,
			t.listing, t.id, t.reservations, kind))
		args = append(args, ownerID, ownerID, model.NewTimestamp(since.UTC()))
	}
	q := parts[0] + " UNION ALL " + parts[1] + " ORDER BY created_at DESC"
	out := []model.Notification{}
	if err := r.db.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, err
	}
	return out, nil
}
