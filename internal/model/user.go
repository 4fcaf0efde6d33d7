package model

// User represents an application user record as stored in the `users`
// table.  PasswordHash is never serialized.
type User struct {
	ID           uint64    `json:"id" db:"user_id"`
	Name         string    `json:"name" db:"name"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	ProfileImage string    `json:"profile_image,omitempty" db:"profile_image"`
	Location     string    `json:"location" db:"location"`
	CreatedAt    Timestamp `json:"created_at" db:"created_at"`
}

// UserSummary is the public face of a user in pick lists and rankings.
type UserSummary struct {
	ID        uint64  `json:"id" db:"user_id"`
	Name      string  `json:"name" db:"name"`
	AvgRating float64 `json:"avg_rating,omitempty" db:"avg_rating"`
}

// RefreshToken models an entry in the `refresh_tokens` table.  The plain
// token is not stored; only its SHA‑256 hash.
type RefreshToken struct {
	ID        uint64     `db:"id"`
	UserID    uint64     `db:"user_id"`
	TokenHash string     `db:"token_hash"`
	ExpiresAt Timestamp  `db:"expires_at"`
	RevokedAt *Timestamp `db:"revoked_at"`
	CreatedAt Timestamp  `db:"created_at"`
}
