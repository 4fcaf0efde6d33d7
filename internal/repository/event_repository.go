package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/neighborhood-exchange/internal/model"
)

// EventRepo provides CRUD and browse queries for events.
type EventRepo struct {
	db *sqlx.DB
}

func NewEventRepo(db *sqlx.DB) *EventRepo { return &EventRepo{db: db} }

const selectEvent = `SELECT e.event_id, e.user_id, u.name AS organizer_name, e.title,
	COALESCE(e.description,'') AS description, COALESCE(e.images,'') AS images,
	COALESCE(e.category,'') AS category, e.date
	FROM events e
	JOIN users u ON u.user_id = e.user_id`

func (r *EventRepo) Create(ctx context.Context, e *model.Event) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO events (user_id, title, description, images, category, date) VALUES (?, ?, ?, NULLIF(?,''), ?, ?)`,
		e.OwnerID, e.Title, e.Description, e.Image, e.Category, e.Date)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	return nil
}

func (r *EventRepo) GetByID(ctx context.Context, id uint64) (*model.Event, error) {
	var e model.Event
	if err := r.db.GetContext(ctx, &e, selectEvent+" WHERE e.event_id = ?", id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

// Browse lists events organized by other users.  Without a search text
// only events dated today or later are returned, soonest first; with one,
// every date is searched.
func (r *EventRepo) Browse(ctx context.Context, callerID uint64, q BrowseQuery, today model.Date) ([]model.Event, int64, error) {
	where := " WHERE e.user_id <> ?"
	args := []any{callerID}
	if q.Text == "" {
		where += " AND e.date >= ?"
		args = append(args, today)
	} else {
		where += " AND (u.name LIKE ? OR e.title LIKE ? OR e.description LIKE ? OR e.category LIKE ?)"
		p := likePattern(q.Text)
		args = append(args, p, p, p, p)
	}

	var total int64
	if err := r.db.GetContext(ctx, &total,
		"SELECT COUNT(*) FROM events e JOIN users u ON u.user_id = e.user_id"+where, args...); err != nil {
		return nil, 0, err
	}
	limit, offset := q.limits()
	out := []model.Event{}
	err := r.db.SelectContext(ctx, &out,
		selectEvent+where+" ORDER BY e.date, e.event_id LIMIT ? OFFSET ?",
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *EventRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]model.Event, error) {
	out := []model.Event{}
	err := r.db.SelectContext(ctx, &out, selectEvent+" WHERE e.user_id = ? ORDER BY e.date DESC, e.event_id DESC", ownerID)
	return out, err
}

// Newest returns the most recently created event, or ErrNotFound.
func (r *EventRepo) Newest(ctx context.Context) (*model.Event, error) {
	var e model.Event
	if err := r.db.GetContext(ctx, &e, selectEvent+" ORDER BY e.event_id DESC LIMIT 1"); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

// Update writes the editable fields if the event belongs to e.OwnerID.
func (r *EventRepo) Update(ctx context.Context, e *model.Event) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE events SET title = ?, description = ?, images = NULLIF(?,''), category = ?, date = ?
		 WHERE event_id = ? AND user_id = ?`,
		e.Title, e.Description, e.Image, e.Category, e.Date, e.ID, e.OwnerID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes an owned event and its attendance rows in one transaction.
func (r *EventRepo) Delete(ctx context.Context, id, ownerID uint64) (err error) {
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
	if err = tx.GetContext(ctx, &got, "SELECT event_id FROM events WHERE event_id = ? AND user_id = ? FOR UPDATE", id, ownerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrNotFound
		}
		return err
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM event_attendance WHERE event_id = ?", id); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM events WHERE event_id = ?", id); err != nil {
		return err
	}
	return tx.Commit()
}

// LockTx locks the event row for the rest of tx; ErrNotFound if missing.
func (r *EventRepo) LockTx(ctx context.Context, tx *sqlx.Tx, id uint64) error {
	var got uint64
	if err := tx.GetContext(ctx, &got, "SELECT event_id FROM events WHERE event_id = ? FOR UPDATE", id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return nil
}
