package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/neighborhood-exchange/internal/model"
)

// ReviewRepo stores append-only reviews of users, resources and spaces.
type ReviewRepo struct {
	db *sqlx.DB
}

func NewReviewRepo(db *sqlx.DB) *ReviewRepo { return &ReviewRepo{db: db} }

type reviewTables struct {
	reviews   string // review table
	targetCol string // column referencing the target in reviews and target tables
	target    string // users | resources | spaces
	nameCol   string // target column shown as item_name
}

func reviewTablesFor(kind model.ReviewKind) (reviewTables, error) {
	switch kind {
	case model.ReviewUser:
		return reviewTables{"user_reviews", "user_id", "users", "name"}, nil
	case model.ReviewResource:
		return reviewTables{"resource_reviews", "resource_id", "resources", "title"}, nil
	case model.ReviewSpace:
		return reviewTables{"space_reviews", "space_id", "spaces", "title"}, nil
	}
	return reviewTables{}, fmt.Errorf("unknown review kind %q", kind)
}

// selectReviews projects one review table joined with its target and
// reviewer into model.Review columns.
func selectReviews(kind model.ReviewKind, t reviewTables) string {
	return fmt.Sprintf(`SELECT rv.review_id, '%[5]s' AS kind, rv.%[2]s AS target_id,
		tg.%[4]s AS item_name, rv.reviewer_id, ru.name AS reviewer_name,
		rv.rating, COALESCE(rv.comment,'') AS comment, rv.timestamp
		FROM %[1]s rv
		JOIN %[3]s tg ON tg.%[2]s = rv.%[2]s
		JOIN users ru ON ru.user_id = rv.reviewer_id`, t.reviews, t.targetCol, t.target, t.nameCol, kind)
}

// Create inserts rv after checking that its target exists (ErrNotFound
// otherwise).  Timestamp defaults to now.
func (r *ReviewRepo) Create(ctx context.Context, rv *model.Review) error {
	t, err := reviewTablesFor(rv.Kind)
	if err != nil {
		return err
	}
	var n int
	if err := r.db.GetContext(ctx, &n,
		fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = ?", t.target, t.targetCol), rv.TargetID); err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	if rv.Timestamp.IsZero() {
		rv.Timestamp = model.NewTimestamp(time.Now().UTC())
	}
	res, err := r.db.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO %s (%s, reviewer_id, rating, comment, timestamp) VALUES (?, ?, ?, ?, ?)", t.reviews, t.targetCol),
		rv.TargetID, rv.ReviewerID, rv.Rating, rv.Comment, rv.Timestamp)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rv.ID = uint64(id)
	return nil
}

// ListReceived returns reviews about userID (kind user) or about listings
// userID owns (resource, space), newest first.
func (r *ReviewRepo) ListReceived(ctx context.Context, kind model.ReviewKind, userID uint64) ([]model.Review, error) {
	t, err := reviewTablesFor(kind)
	if err != nil {
		return nil, err
	}
	where := " WHERE tg.user_id = ?"
	out := []model.Review{}
	if err := r.db.SelectContext(ctx, &out, selectReviews(kind, t)+where+" ORDER BY rv.timestamp DESC, rv.review_id DESC", userID); err != nil {
		return nil, err
	}
	return out, nil
}

// Search matches text against the reviewed item's name and the comment
// across all three review kinds.  An empty text returns the latest reviews.
func (r *ReviewRepo) Search(ctx context.Context, text string, limit int) ([]model.Review, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var parts []string
	var args []any
	for _, kind := range []model.ReviewKind{model.ReviewUser, model.ReviewResource, model.ReviewSpace} {
		t, _ := reviewTablesFor(kind)
		q := selectReviews(kind, t)
		if text != "" {
			q += fmt.Sprintf(" WHERE tg.%s LIKE ? OR rv.comment LIKE ?", t.nameCol)
			p := likePattern(text)
			args = append(args, p, p)
		}
		parts = append(parts, "("+q+")")
	}
	q := strings.Join(parts, " UNION ALL ") + " ORDER BY timestamp DESC, review_id DESC LIMIT ?"
	args = append(args, limit)
	out := []model.Review{}
	if err := r.db.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, err
	}
	return out, nil
}

// TopRatedUsers ranks users by average received rating.
func (r *ReviewRepo) TopRatedUsers(ctx context.Context, n int) ([]model.UserSummary, error) {
	out := []model.UserSummary{}
	err := r.db.SelectContext(ctx, &out,
		`SELECT u.user_id, u.name, AVG(rv.rating) AS avg_rating
		 FROM user_reviews rv
		 JOIN users u ON u.user_id = rv.user_id
		 GROUP BY u.user_id, u.name
		 ORDER BY avg_rating DESC, u.user_id
		 LIMIT ?`, n)
	return out, err
}
