package utils

import (
	"crypto/subtle"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword returns bcrypt hash using the given cost.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares bcrypt hash and plain password.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// IsBcryptHash reports whether stored looks like a bcrypt hash ($2a$, $2b$, $2y$).
func IsBcryptHash(stored string) bool {
	return len(stored) == 60 && (strings.HasPrefix(stored, "$2a$") ||
		strings.HasPrefix(stored, "$2b$") || strings.HasPrefix(stored, "$2y$"))
}

// CheckPassword verifies plain against stored.  When allowLegacy is set,
// a stored value that is not a bcrypt hash is compared as plaintext and
// needsRehash is true on a match so the caller can upgrade the row.
func CheckPassword(stored, plain string, allowLegacy bool) (ok, needsRehash bool) {
	if IsBcryptHash(stored) {
		return VerifyPassword(stored, plain), false
	}
	if !allowLegacy || stored == "" {
		return false, false
	}
	ok = subtle.ConstantTimeCompare([]byte(stored), []byte(plain)) == 1
	return ok, ok
}
