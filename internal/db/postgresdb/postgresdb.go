// Package postgresdb provides a PostgreSQL-based implementation of the
// account storage contract. The database enforces the email-uniqueness
// invariant via a unique index; unique-violation errors are translated
// into storage.ErrEmailExists so callers never inspect driver errors.
package postgresdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pressly/goose/v3"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/patric-chuzhbe/usersvc/internal/db/storage"
	"github.com/patric-chuzhbe/usersvc/internal/user"
)

// pgUniqueViolationCode is the PostgreSQL error code reported when an
// insert or update breaks a unique constraint.
const pgUniqueViolationCode = "23505"

// PostgresDB is a PostgreSQL-backed implementation of the account store.
type PostgresDB struct {
	database          *sql.DB
	connectionTimeout time.Duration
}

type initOptions struct {
	DBPreReset bool
}

// InitOption defines a functional option for configuring database initialization.
type InitOption func(*initOptions)

// WithDBPreReset enables or disables resetting the database schema before migration.
// It can be used for test setups or development purposes.
func WithDBPreReset(value bool) InitOption {
	return func(options *initOptions) {
		options.DBPreReset = value
	}
}

// New establishes a connection to the PostgreSQL database,
// runs schema migrations, and returns a configured PostgresDB instance.
// Optionally accepts initialization options, such as WithDBPreReset.
func New(
	ctx context.Context,
	databaseDSN string,
	connectionTimeout time.Duration,
	migrationsDir string,
	optionsProto ...InitOption,
) (*PostgresDB, error) {
	options := &initOptions{
		DBPreReset: false,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	database, err := sql.Open("pgx", databaseDSN)
	if err != nil {
		return nil, err
	}

	result := &PostgresDB{
		database:          database,
		connectionTimeout: connectionTimeout,
	}

	if options.DBPreReset {
		if err := result.resetDB(ctx); err != nil {
			return nil,
				fmt.Errorf(
					"in internal/db/postgresdb/postgresdb.go/New(): error while `result.resetDB()` calling: %w",
					err,
				)
		}
	}

	if err := goose.SetDialect("postgres"); err != nil {
		return nil,
			fmt.Errorf(
				"in internal/db/postgresdb/postgresdb.go/New(): error while `goose.SetDialect()` calling: %w",
				err,
			)
	}

	if err := goose.Up(result.database, migrationsDir); err != nil {
		return nil,
			fmt.Errorf(
				"in internal/db/postgresdb/postgresdb.go/New(): error while `goose.Up()` calling: %w",
				err,
			)
	}

	return result, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolationCode
}

// FindUserByEmail fetches a user by the normalized email.
// Returns storage.ErrNotFound when no row matches.
func (db *PostgresDB) FindUserByEmail(ctx context.Context, email string) (*user.User, error) {
	row := db.database.QueryRowContext(
		ctx,
		`SELECT id, email, name, password_hash FROM users WHERE email = $1`,
		email,
	)

	return scanUser(row)
}

// FindUserByID fetches a user by its UUID.
// Returns storage.ErrNotFound when no row matches.
func (db *PostgresDB) FindUserByID(ctx context.Context, userID string) (*user.User, error) {
	row := db.database.QueryRowContext(
		ctx,
		`SELECT id, email, name, password_hash FROM users WHERE id = $1`,
		userID,
	)

	return scanUser(row)
}

func scanUser(row *sql.Row) (*user.User, error) {
	usr := &user.User{}
	err := row.Scan(&usr.ID, &usr.Email, &usr.Name, &usr.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}

	return usr, nil
}

// CreateUser inserts a new user record and returns the database-assigned ID.
// A unique-index violation on the email column is reported as storage.ErrEmailExists.
func (db *PostgresDB) CreateUser(ctx context.Context, usr *user.User) (string, error) {
	row := db.database.QueryRowContext(
		ctx,
		`INSERT INTO users (email, name, password_hash) VALUES ($1, $2, $3) RETURNING id`,
		usr.Email,
		usr.Name,
		usr.PasswordHash,
	)

	var userIDFromDB string
	err := row.Scan(&userIDFromDB)
	if err != nil {
		if isUniqueViolation(err) {
			return "", storage.ErrEmailExists
		}
		return "", err
	}

	return userIDFromDB, nil
}

// SaveUser updates the mutable fields of an existing user record in place.
// Returns storage.ErrNotFound for an unknown ID and storage.ErrEmailExists
// when the new email collides with another account.
func (db *PostgresDB) SaveUser(ctx context.Context, usr *user.User) error {
	result, err := db.database.ExecContext(
		ctx,
		`UPDATE users SET email = $1, name = $2, password_hash = $3 WHERE id = $4`,
		usr.Email,
		usr.Name,
		usr.PasswordHash,
		usr.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrEmailExists
		}
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return storage.ErrNotFound
	}

	return nil
}

// DeleteUserByID removes the user record.
// Returns storage.ErrNotFound when there was nothing to remove.
func (db *PostgresDB) DeleteUserByID(ctx context.Context, userID string) error {
	result, err := db.database.ExecContext(
		ctx,
		`DELETE FROM users WHERE id = $1`,
		userID,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return storage.ErrNotFound
	}

	return nil
}

// GetNumberOfUsers returns the total number of registered accounts.
func (db *PostgresDB) GetNumberOfUsers(ctx context.Context) (int64, error) {
	row := db.database.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`)

	var usersCount int64
	err := row.Scan(&usersCount)
	if err != nil {
		return 0, err
	}

	return usersCount, nil
}

// Ping verifies connectivity with the PostgreSQL database within the configured timeout.
func (db *PostgresDB) Ping(ctx context.Context) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	return db.database.PingContext(ctxWithTimeout)
}

// Close closes the database connection and releases any associated resources.
func (db *PostgresDB) Close() error {
	return db.database.Close()
}

func (db *PostgresDB) resetDB(ctx context.Context) error {
	_, err := db.database.ExecContext(
		ctx,
		`
			DO $$
			DECLARE
				r RECORD;
			BEGIN
				FOR r IN (SELECT tablename FROM pg_tables WHERE schemaname = 'public') LOOP
					EXECUTE 'DROP TABLE IF EXISTS ' || quote_ident(r.tablename) || ' CASCADE';
				END LOOP;
			END $$;
		`,
	)
	if err != nil {
		return fmt.Errorf(
			"in internal/db/postgresdb/postgresdb.go/resetDB(): error while `db.database.ExecContext()` calling: %w",
			err,
		)
	}
	return nil
}
