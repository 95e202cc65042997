// Package jsondb implements the account storage contract on top of a
// single JSON document file. The whole data set is kept in memory and
// flushed back to the file on Close.
package jsondb

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/thoas/go-funk"

	"github.com/patric-chuzhbe/usersvc/internal/db/storage"
	"github.com/patric-chuzhbe/usersvc/internal/user"
)

// JSONDB is a file-backed account store. All mutating and reading
// operations are guarded by a single mutex, which makes the store the
// arbiter of the email-uniqueness invariant under concurrent requests.
type JSONDB struct {
	fileName string
	mutex    sync.RWMutex
	Cache    CacheStruct
}

// CacheStruct is the serialized shape of the database file.
type CacheStruct struct {
	Users map[string]*user.User
}

func initDBFile(fileName string) error {
	dbFile, err := os.OpenFile(fileName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(dbFile, `{
	"Users": {}
}`)
	if err != nil {
		return err
	}
	return dbFile.Close()
}

func parseJSONFile(fileName string, cache *CacheStruct) error {
	file, err := os.Open(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	err = decoder.Decode(cache)
	if err != nil {
		return err
	}

	return nil
}

func writeToJSONFile(fileName string, cache interface{}) error {
	jsonData, err := json.MarshalIndent(cache, "", "\t")
	if err != nil {
		return fmt.Errorf("error marshaling JSON: %w", err)
	}

	file, err := os.OpenFile(fileName, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("error opening file: %w", err)
	}
	defer file.Close()

	_, err = file.Write(jsonData)
	if err != nil {
		return fmt.Errorf("error writing to file: %w", err)
	}

	return nil
}

// New loads the database file, creating and initializing it when it
// does not exist yet.
func New(fileName string) (*JSONDB, error) {
	theDB := JSONDB{
		fileName: fileName,
		Cache:    CacheStruct{},
	}

	err := parseJSONFile(theDB.fileName, &theDB.Cache)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		err := initDBFile(fileName)
		if err != nil {
			return nil, err
		}
		err = parseJSONFile(theDB.fileName, &theDB.Cache)
		if err != nil {
			return nil, err
		}
	}

	if theDB.Cache.Users == nil {
		theDB.Cache.Users = map[string]*user.User{}
	}

	return &theDB, nil
}

func (db *JSONDB) findUserByEmailLocked(email string) *user.User {
	found := funk.Find(
		funk.Values(db.Cache.Users),
		func(usr *user.User) bool { return usr.Email == email },
	)
	if found == nil {
		return nil
	}

	return found.(*user.User)
}

// FindUserByEmail returns the user with the given (already normalized)
// email or storage.ErrNotFound.
func (db *JSONDB) FindUserByEmail(ctx context.Context, email string) (*user.User, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	usr := db.findUserByEmailLocked(email)
	if usr == nil {
		return nil, storage.ErrNotFound
	}

	userCopy := *usr

	return &userCopy, nil
}

// FindUserByID returns the user with the given ID or storage.ErrNotFound.
func (db *JSONDB) FindUserByID(ctx context.Context, userID string) (*user.User, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	usr, found := db.Cache.Users[userID]
	if !found {
		return nil, storage.ErrNotFound
	}

	userCopy := *usr

	return &userCopy, nil
}

// CreateUser assigns a new UUID to the user and stores it. It returns
// storage.ErrEmailExists when another user already holds the email.
func (db *JSONDB) CreateUser(ctx context.Context, usr *user.User) (string, error) {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	if db.findUserByEmailLocked(usr.Email) != nil {
		return "", storage.ErrEmailExists
	}

	userCopy := *usr
	userCopy.ID = uuid.New().String()
	db.Cache.Users[userCopy.ID] = &userCopy

	return userCopy.ID, nil
}

// SaveUser replaces the stored record with the given one. It returns
// storage.ErrNotFound for an unknown ID and storage.ErrEmailExists when
// the email is held by a different user.
func (db *JSONDB) SaveUser(ctx context.Context, usr *user.User) error {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	if _, found := db.Cache.Users[usr.ID]; !found {
		return storage.ErrNotFound
	}

	if holder := db.findUserByEmailLocked(usr.Email); holder != nil && holder.ID != usr.ID {
		return storage.ErrEmailExists
	}

	userCopy := *usr
	db.Cache.Users[userCopy.ID] = &userCopy

	return nil
}

// DeleteUserByID removes the record or returns storage.ErrNotFound.
func (db *JSONDB) DeleteUserByID(ctx context.Context, userID string) error {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	if _, found := db.Cache.Users[userID]; !found {
		return storage.ErrNotFound
	}

	delete(db.Cache.Users, userID)

	return nil
}

// GetNumberOfUsers returns the total number of stored accounts.
func (db *JSONDB) GetNumberOfUsers(ctx context.Context) (int64, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	return int64(len(db.Cache.Users)), nil
}

// Ping always succeeds for the file-backed store.
func (db *JSONDB) Ping(ctx context.Context) error {
	return nil
}

// Close flushes the in-memory data set back to the database file.
func (db *JSONDB) Close() error {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	return writeToJSONFile(db.fileName, db.Cache)
}
