// Package service implements the credential handler: the five account
// operations (authenticate, create, read, update, delete) together with
// the error taxonomy they expose to the transport layer.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/patric-chuzhbe/usersvc/internal/auth"
	"github.com/patric-chuzhbe/usersvc/internal/db/storage"
	"github.com/patric-chuzhbe/usersvc/internal/logger"
	"github.com/patric-chuzhbe/usersvc/internal/models"
	"github.com/patric-chuzhbe/usersvc/internal/user"
)

// ErrMissingFields is returned when the client input is incomplete.
var ErrMissingFields = errors.New("missing fields")

// ErrInvalidCredentials is returned for every authentication failure.
// It deliberately conflates "no such user" and "wrong password" so a
// caller cannot distinguish the two.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrInvalidEmail is returned when a supplied email is not
// syntactically valid.
var ErrInvalidEmail = errors.New("invalid email address")

// ErrEmailExists is returned when an operation would break the
// case-insensitive uniqueness constraint on emails.
var ErrEmailExists = storage.ErrEmailExists

type accountKeeper interface {
	FindUserByEmail(ctx context.Context, email string) (*user.User, error)

	FindUserByID(ctx context.Context, userID string) (*user.User, error)

	CreateUser(ctx context.Context, usr *user.User) (string, error)

	SaveUser(ctx context.Context, usr *user.User) error

	DeleteUserByID(ctx context.Context, userID string) error

	GetNumberOfUsers(ctx context.Context) (int64, error)

	Ping(ctx context.Context) error
}

var emailValidator = validator.New()

// Service is the credential handler. It is stateless between requests:
// the store handle and the token manager are read-only after
// construction, so a single instance serves concurrent requests.
type Service struct {
	db     accountKeeper
	tokens *auth.TokenManager
}

// New creates a Service on top of the given account store and token manager.
func New(db accountKeeper, tokens *auth.TokenManager) *Service {
	return &Service{
		db:     db,
		tokens: tokens,
	}
}

// Authenticate checks the email/password pair and issues an access
// token bound to the matching user. Store lookup failures are treated
// identically to "not found" so the response never reveals whether the
// account exists.
func (s *Service) Authenticate(ctx context.Context, email, password string) (string, error) {
	if email == "" || password == "" {
		return "", ErrMissingFields
	}

	usr, err := s.db.FindUserByEmail(ctx, user.NormalizeEmail(email))
	if err != nil {
		// Deliberate: transient lookup errors are folded into the
		// "invalid credentials" answer to keep the response uniform.
		if !errors.Is(err, storage.ErrNotFound) {
			logger.Log.Debugln("login lookup failed, answering as not found:", err)
		}
		return "", ErrInvalidCredentials
	}

	if !usr.CheckPassword(password) {
		return "", ErrInvalidCredentials
	}

	token, err := s.tokens.IssueToken(usr.ID)
	if err != nil {
		return "", fmt.Errorf("in internal/service/service.go/Authenticate(): error while `s.tokens.IssueToken()` calling: %w", err)
	}

	return token, nil
}

// Create registers a new account. The password is hashed before the
// record is constructed; the plaintext is never persisted. The store is
// the sole arbiter of the uniqueness constraint, so Create always
// attempts the write and interprets the store's rejection.
func (s *Service) Create(ctx context.Context, name, email, password string) error {
	if email == "" || password == "" {
		return ErrMissingFields
	}

	normalizedEmail := user.NormalizeEmail(email)
	if err := emailValidator.Var(normalizedEmail, "email"); err != nil {
		return ErrInvalidEmail
	}

	normalizedName := user.NormalizeName(name)
	if normalizedName == "" {
		normalizedName = user.DefaultName
	}

	usr := &user.User{
		Email: normalizedEmail,
		Name:  normalizedName,
	}
	if err := usr.SetPassword(password); err != nil {
		return fmt.Errorf("in internal/service/service.go/Create(): error while `usr.SetPassword()` calling: %w", err)
	}

	_, err := s.db.CreateUser(ctx, usr)
	if err != nil {
		if errors.Is(err, storage.ErrEmailExists) {
			return ErrEmailExists
		}
		return fmt.Errorf("in internal/service/service.go/Create(): error while `s.db.CreateUser()` calling: %w", err)
	}

	return nil
}

// Read verifies the token and returns the sanitized profile of the user
// it is bound to.
func (s *Service) Read(ctx context.Context, tokenString string) (*models.Profile, error) {
	if tokenString == "" {
		return nil, ErrMissingFields
	}

	usr, err := s.userFromToken(ctx, tokenString)
	if err != nil {
		return nil, err
	}

	return &models.Profile{
		Name:  usr.Name,
		Email: usr.Email,
	}, nil
}

// Update applies a partial profile update: only non-empty fields are
// touched. After persisting it re-reads the record so the response
// reflects the actually committed state.
func (s *Service) Update(ctx context.Context, tokenString, name, email string) (*models.Profile, error) {
	if tokenString == "" {
		return nil, ErrMissingFields
	}

	usr, err := s.userFromToken(ctx, tokenString)
	if err != nil {
		return nil, err
	}

	if normalizedName := user.NormalizeName(name); normalizedName != "" {
		usr.Name = normalizedName
	}

	if email != "" {
		normalizedEmail := user.NormalizeEmail(email)
		if err := emailValidator.Var(normalizedEmail, "email"); err != nil {
			return nil, ErrInvalidEmail
		}
		usr.Email = normalizedEmail
	}

	err = s.db.SaveUser(ctx, usr)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrEmailExists):
			return nil, ErrEmailExists
		case errors.Is(err, storage.ErrNotFound):
			return nil, ErrInvalidCredentials
		default:
			return nil, fmt.Errorf("in internal/service/service.go/Update(): error while `s.db.SaveUser()` calling: %w", err)
		}
	}

	committed, err := s.db.FindUserByID(ctx, usr.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("in internal/service/service.go/Update(): error while `s.db.FindUserByID()` calling: %w", err)
	}

	return &models.Profile{
		Name:  committed.Name,
		Email: committed.Email,
	}, nil
}

// Delete removes the account the token is bound to, but only after
// re-confirming the email/password pair. A leaked or stale token alone
// must never be enough for the destructive operation.
func (s *Service) Delete(ctx context.Context, tokenString, email, password string) error {
	if tokenString == "" || email == "" || password == "" {
		return ErrMissingFields
	}

	usr, err := s.userFromToken(ctx, tokenString)
	if err != nil {
		return err
	}

	if user.NormalizeEmail(email) != usr.Email || !usr.CheckPassword(password) {
		return ErrInvalidCredentials
	}

	err = s.db.DeleteUserByID(ctx, usr.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrInvalidCredentials
		}
		return fmt.Errorf("in internal/service/service.go/Delete(): error while `s.db.DeleteUserByID()` calling: %w", err)
	}

	return nil
}

// GetStats returns aggregate account numbers for the internal stats endpoint.
func (s *Service) GetStats(ctx context.Context) (*models.StatsResponse, error) {
	usersCount, err := s.db.GetNumberOfUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("in internal/service/service.go/GetStats(): error while `s.db.GetNumberOfUsers()` calling: %w", err)
	}

	return &models.StatsResponse{Users: usersCount}, nil
}

// Ping checks the health of the storage layer.
func (s *Service) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *Service) userFromToken(ctx context.Context, tokenString string) (*user.User, error) {
	userID, err := s.tokens.ParseToken(tokenString)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	usr, err := s.db.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("in internal/service/service.go/userFromToken(): error while `s.db.FindUserByID()` calling: %w", err)
	}

	return usr, nil
}
