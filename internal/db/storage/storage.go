// Package storage declares the contract every account storage backend
// must satisfy, together with the sentinel errors the backends report.
package storage

import (
	"context"
	"errors"

	"github.com/patric-chuzhbe/usersvc/internal/user"
)

// ErrNotFound is reported when a lookup finds no matching user.
var ErrNotFound = errors.New("user not found")

// ErrEmailExists is reported when a create or save would violate the
// case-insensitive uniqueness constraint on the email column.
var ErrEmailExists = errors.New("a user with that email already exists")

// Storage is the full set of operations the credential handler requires
// from an account storage backend. The backend is the sole arbiter of
// the email-uniqueness invariant: callers always attempt the write and
// interpret ErrEmailExists, never check-then-act.
type Storage interface {
	FindUserByEmail(ctx context.Context, email string) (*user.User, error)

	FindUserByID(ctx context.Context, userID string) (*user.User, error)

	CreateUser(ctx context.Context, usr *user.User) (string, error)

	SaveUser(ctx context.Context, usr *user.User) error

	DeleteUserByID(ctx context.Context, userID string) error

	GetNumberOfUsers(ctx context.Context) (int64, error)

	Ping(ctx context.Context) error

	Close() error
}
