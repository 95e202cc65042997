// Package mockstorage provides a testify-based mock implementation
// of the account storage contract.
//
// Use it in service and router tests to simulate storage behavior,
// including failure modes a real backend only shows under load.
package mockstorage

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/patric-chuzhbe/usersvc/internal/user"
)

// StorageMock is a testify mock that implements the storage.Storage
// interface used by the credential handler.
type StorageMock struct {
	mock.Mock
}

// FindUserByEmail mocks the email lookup.
func (m *StorageMock) FindUserByEmail(ctx context.Context, email string) (*user.User, error) {
	args := m.Called(ctx, email)
	usr, _ := args.Get(0).(*user.User)
	return usr, args.Error(1)
}

// FindUserByID mocks the ID lookup.
func (m *StorageMock) FindUserByID(ctx context.Context, userID string) (*user.User, error) {
	args := m.Called(ctx, userID)
	usr, _ := args.Get(0).(*user.User)
	return usr, args.Error(1)
}

// CreateUser mocks account creation.
func (m *StorageMock) CreateUser(ctx context.Context, usr *user.User) (string, error) {
	args := m.Called(ctx, usr)
	return args.String(0), args.Error(1)
}

// SaveUser mocks the in-place record update.
func (m *StorageMock) SaveUser(ctx context.Context, usr *user.User) error {
	args := m.Called(ctx, usr)
	return args.Error(0)
}

// DeleteUserByID mocks account removal.
func (m *StorageMock) DeleteUserByID(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// GetNumberOfUsers mocks the aggregate account counter.
func (m *StorageMock) GetNumberOfUsers(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	count, _ := args.Get(0).(int64)
	return count, args.Error(1)
}

// Ping mocks the health check.
func (m *StorageMock) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Close mocks resource release.
func (m *StorageMock) Close() error {
	args := m.Called()
	return args.Error(0)
}
