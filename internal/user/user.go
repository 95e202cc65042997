// Package user defines the account entity used throughout the application,
// particularly for authentication and profile management.
package user

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// DefaultName is assigned to accounts created without an explicit name.
const DefaultName = "No Name"

// passwordHashCost is the bcrypt work factor used for new passwords.
const passwordHashCost = 8

// User represents a registered account.
// PasswordHash holds a salted bcrypt hash of the account password and
// must never be serialized into any response.
type User struct {
	// ID is the unique identifier of the user, meaning a UUID.
	// It is assigned by the storage layer at creation and never changes.
	ID string

	// Email is the account email, stored trimmed and lowercased.
	// It is unique across all users (case-insensitively).
	Email string

	// Name is the display name of the user.
	Name string

	// PasswordHash is the salted one-way hash of the account password.
	PasswordHash string
}

// NormalizeEmail trims surrounding whitespace and lowercases an email
// address so that lookups and the uniqueness constraint are
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeName trims surrounding whitespace from a display name.
func NormalizeName(name string) string {
	return strings.TrimSpace(name)
}

// SetPassword hashes the plaintext password with bcrypt and stores the
// result in PasswordHash. The plaintext is never retained.
func (u *User) SetPassword(plaintext string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), passwordHashCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)

	return nil
}

// CheckPassword reports whether the plaintext password matches the
// stored hash.
func (u *User) CheckPassword(plaintext string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(plaintext)) == nil
}
