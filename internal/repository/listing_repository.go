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

// ListingRepo provides CRUD for resources and spaces.  Both kinds share
// one implementation; the kind picks the tables.
type ListingRepo struct {
	db *sqlx.DB
}

func NewListingRepo(db *sqlx.DB) *ListingRepo { return &ListingRepo{db: db} }

// selectListing builds the common projection.  reserved_today is 1 when a
// reservation of the listing covers the day bound to the two ? markers.
func selectListing(t listingTables) string {
	return fmt.Sprintf(`SELECT l.%[2]s AS id, l.user_id, u.name AS owner_name, l.title,
		COALESCE(l.description,'') AS description, COALESCE(l.images,'') AS images,
		COALESCE(l.category,'') AS category, COALESCE(l.availability,'') AS availability,
		EXISTS (SELECT 1 FROM %[3]s r
		        WHERE r.%[2]s = l.%[2]s
		          AND r.reservation_start_date <= ? AND r.reservation_end_date >= ?) AS reserved_today,
		l.date_posted
		FROM %[1]s l
		JOIN users u ON u.user_id = l.user_id`, t.listing, t.id, t.reservations)
}

func finishListings(kind model.ListingKind, ls []model.Listing) {
	for i := range ls {
		ls[i].Kind = kind
		ls[i].ResolveStatus()
	}
}

// Create inserts a listing owned by l.OwnerID and fills ID and DatePosted.
func (r *ListingRepo) Create(ctx context.Context, l *model.Listing) error {
	t, err := tablesFor(l.Kind)
	if err != nil {
		return err
	}
	if l.DatePosted.IsZero() {
		l.DatePosted = model.NewTimestamp(time.Now().UTC())
	}
	if l.Availability == "" {
		l.Availability = model.AvailabilityAvailable
	}
	q := fmt.Sprintf(`INSERT INTO %s (user_id, title, description, images, category, availability, date_posted)
		VALUES (?, ?, ?, NULLIF(?,''), ?, ?, ?)`, t.listing)
	res, err := r.db.ExecContext(ctx, q, l.OwnerID, l.Title, l.Description, l.Image, l.Category, l.Availability, l.DatePosted)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	l.ID = uint64(id)
	l.Status = l.Availability
	return nil
}

// GetByID fetches a listing regardless of owner, with its status for today.
func (r *ListingRepo) GetByID(ctx context.Context, kind model.ListingKind, id uint64, today model.Date) (*model.Listing, error) {
	t, err := tablesFor(kind)
	if err != nil {
		return nil, err
	}
	var l model.Listing
	q := selectListing(t) + fmt.Sprintf(" WHERE l.%s = ?", t.id)
	if err := r.db.GetContext(ctx, &l, q, today, today, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	l.Kind = kind
	l.ResolveStatus()
	return &l, nil
}

// Browse lists listings not owned by callerID.  A non-empty q.Text is
// matched against owner name, title, description, category and the stored
// availability flag.  Newest first.
func (r *ListingRepo) Browse(ctx context.Context, kind model.ListingKind, callerID uint64, q BrowseQuery, today model.Date) ([]model.Listing, int64, error) {
	t, err := tablesFor(kind)
	if err != nil {
		return nil, 0, err
	}
	where := " WHERE l.user_id <> ?"
	args := []any{callerID}
	if q.Text != "" {
		where += ` AND (u.name LIKE ? OR l.title LIKE ? OR l.description LIKE ?
			OR l.category LIKE ? OR l.availability LIKE ?)`
		p := likePattern(q.Text)
		args = append(args, p, p, p, p, p)
	}

	var total int64
	countSQL := fmt.Sprintf("SELECT COUNT(*) FROM %s l JOIN users u ON u.user_id = l.user_id", t.listing) + where
	if err := r.db.GetContext(ctx, &total, countSQL, args...); err != nil {
		return nil, 0, err
	}

	limit, offset := q.limits()
	dataSQL := selectListing(t) + where + fmt.Sprintf(" ORDER BY l.date_posted DESC, l.%s DESC LIMIT ? OFFSET ?", t.id)
	dataArgs := append([]any{today, today}, args...)
	dataArgs = append(dataArgs, limit, offset)

	out := []model.Listing{}
	if err := r.db.SelectContext(ctx, &out, dataSQL, dataArgs...); err != nil {
		return nil, 0, err
	}
	finishListings(kind, out)
	return out, total, nil
}

// ListByOwner returns the owner's listings, newest first.
func (r *ListingRepo) ListByOwner(ctx context.Context, kind model.ListingKind, ownerID uint64, today model.Date) ([]model.Listing, error) {
	t, err := tablesFor(kind)
	if err != nil {
		return nil, err
	}
	q := selectListing(t) + fmt.Sprintf(" WHERE l.user_id = ? ORDER BY l.date_posted DESC, l.%s DESC", t.id)
	out := []model.Listing{}
	if err := r.db.SelectContext(ctx, &out, q, today, today, ownerID); err != nil {
		return nil, err
	}
	finishListings(kind, out)
	return out, nil
}

// Newest returns the most recently posted listing of a kind, or ErrNotFound.
func (r *ListingRepo) Newest(ctx context.Context, kind model.ListingKind, today model.Date) (*model.Listing, error) {
	t, err := tablesFor(kind)
	if err != nil {
		return nil, err
	}
	var l model.Listing
	q := selectListing(t) + fmt.Sprintf(" ORDER BY l.date_posted DESC, l.%s DESC LIMIT 1", t.id)
	if err := r.db.GetContext(ctx, &l, q, today, today); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	l.Kind = kind
	l.ResolveStatus()
	return &l, nil
}

// Update writes the editable fields if the listing belongs to l.OwnerID.
// It returns ErrNotFound when no row matches (missing or not owned).
func (r *ListingRepo) Update(ctx context.Context, l *model.Listing) error {
	t, err := tablesFor(l.Kind)
	if err != nil {
		return err
	}
	q := fmt.Sprintf(`UPDATE %s
		SET title = ?, description = ?, images = NULLIF(?,''), category = ?, availability = ?
		WHERE %s = ? AND user_id = ?`, t.listing, t.id)
	res, err := r.db.ExecContext(ctx, q, l.Title, l.Description, l.Image, l.Category, l.Availability, l.ID, l.OwnerID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes an owned listing together with its reservations and
// reviews in one transaction.  ErrNotFound when missing or not owned.
func (r *ListingRepo) Delete(ctx context.Context, kind model.ListingKind, id, ownerID uint64) (err error) {
	t, err := tablesFor(kind)
	if err != nil {
		return err
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var got uint64
	lock := fmt.Sprintf("SELECT %[2]s FROM %[1]s WHERE %[2]s = ? AND user_id = ? FOR UPDATE", t.listing, t.id)
	if err = tx.GetContext(ctx, &got, lock, id, ownerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrNotFound
		}
		return err
	}
	for _, table := range []string{t.reservations, t.reviews, t.listing} {
		if _, err = tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE %s = ?", table, t.id), id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LockTx takes the per-listing row lock for the rest of tx.  Concurrent
// bookings of the same listing queue here until commit or rollback.
// ErrNotFound when the listing does not exist.
func (r *ListingRepo) LockTx(ctx context.Context, tx *sqlx.Tx, kind model.ListingKind, id uint64) error {
	t, err := tablesFor(kind)
	if err != nil {
		return err
	}
	var got uint64
	q := fmt.Sprintf("SELECT %[2]s FROM %[1]s WHERE %[2]s = ? FOR UPDATE", t.listing, t.id)
	if err := tx.GetContext(ctx, &got, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// Exists reports whether the listing exists, without locking.
func (r *ListingRepo) Exists(ctx context.Context, kind model.ListingKind, id uint64) (bool, error) {
	t, err := tablesFor(kind)
	if err != nil {
		return false, err
	}
	var n int
	q := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = ?", t.listing, t.id)
	if err := r.db.GetContext(ctx, &n, q, id); err != nil {
		return false, err
	}
	return n > 0, nil
}

// ResetAvailabilityTx sets the stored flag back to "available".
func (r *ListingRepo) ResetAvailabilityTx(ctx context.Context, tx *sqlx.Tx, kind model.ListingKind, id uint64) error {
	t, err := tablesFor(kind)
	if err != nil {
		return err
	}
	q := fmt.Sprintf("UPDATE %s SET availability = ? WHERE %s = ?", t.listing, t.id)
	_, err = tx.ExecContext(ctx, q, model.AvailabilityAvailable, id)
	return err
}
