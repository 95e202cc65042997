// Package memorystorage provides an in-memory account store used when
// neither a database DSN nor a storage file is configured. It reuses the
// jsondb cache without ever touching the filesystem.
package memorystorage

import (
	"github.com/patric-chuzhbe/usersvc/internal/db/jsondb"
	"github.com/patric-chuzhbe/usersvc/internal/user"
)

// MemoryStorage keeps all accounts in process memory.
type MemoryStorage struct {
	*jsondb.JSONDB
}

// New returns an empty in-memory store.
func New() (*MemoryStorage, error) {
	return &MemoryStorage{
		JSONDB: &jsondb.JSONDB{
			Cache: jsondb.CacheStruct{
				Users: map[string]*user.User{},
			},
		},
	}, nil
}

// Close is a no-op: there is no file to flush.
func (theStorage *MemoryStorage) Close() error {
	return nil
}
