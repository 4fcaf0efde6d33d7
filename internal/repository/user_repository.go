package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/neighborhood-exchange/internal/model"
)

type UserRepo struct{ DB *sqlx.DB }

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{DB: db} }

const userCols = `user_id, name, email, password_hash, COALESCE(profile_image,'') AS profile_image,
	COALESCE(location,'') AS location, created_at`

// NormalizeEmail lower-cases and trims an address the way it is stored.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create inserts user (password already hashed) and returns its ID.
func (r *UserRepo) Create(ctx context.Context, u *model.User) (uint64, error) {
	u.Email = NormalizeEmail(u.Email)
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (name, email, password_hash, profile_image, location) VALUES (?,?,?,NULLIF(?,''),?)",
		u.Name, u.Email, u.PasswordHash, u.ProfileImage, u.Location)
	if err != nil {
		if isDuplicate(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	u.ID = uint64(id)
	return u.ID, nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	var u model.User
	err := r.DB.GetContext(ctx, &u,
		"SELECT "+userCols+" FROM users WHERE email=? LIMIT 1", NormalizeEmail(email))
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrNotFound
	}
	return u, err
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	var u model.User
	err := r.DB.GetContext(ctx, &u,
		"SELECT "+userCols+" FROM users WHERE user_id=? LIMIT 1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrNotFound
	}
	return u, err
}

// Exists reports whether a user row with id exists.
func (r *UserRepo) Exists(ctx context.Context, id uint64) (bool, error) {
	var n int
	if err := r.DB.GetContext(ctx, &n, "SELECT COUNT(*) FROM users WHERE user_id=?", id); err != nil {
		return false, err
	}
	return n > 0, nil
}

// UpdateProfile writes the editable profile fields.  The email stays unique.
func (r *UserRepo) UpdateProfile(ctx context.Context, u model.User) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET name=?, email=?, location=?, profile_image=NULLIF(?,'') WHERE user_id=?",
		u.Name, NormalizeEmail(u.Email), u.Location, u.ProfileImage, u.ID)
	if err != nil {
		if isDuplicate(err) {
			return ErrEmailExists
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdatePasswordHash replaces a stored hash, used when upgrading legacy rows.
func (r *UserRepo) UpdatePasswordHash(ctx context.Context, id uint64, hash string) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET password_hash=? WHERE user_id=?", hash, id)
	return err
}

// ListOthers returns every user except exceptID, ordered by name.
func (r *UserRepo) ListOthers(ctx context.Context, exceptID uint64) ([]model.UserSummary, error) {
	out := []model.UserSummary{}
	err := r.DB.SelectContext(ctx, &out,
		"SELECT user_id, name FROM users WHERE user_id <> ? ORDER BY name, user_id", exceptID)
	return out, err
}
