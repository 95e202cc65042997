package service

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/usersvc/internal/auth"
	"github.com/patric-chuzhbe/usersvc/internal/db/memorystorage"
	"github.com/patric-chuzhbe/usersvc/internal/logger"
	"github.com/patric-chuzhbe/usersvc/internal/mockstorage"
	"github.com/patric-chuzhbe/usersvc/internal/user"
)

const testSigningKey = "some signing key"

func TestMain(m *testing.M) {
	if err := logger.Init("debug"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func newTestService(t *testing.T) (*Service, *auth.TokenManager) {
	t.Helper()

	theStorage, err := memorystorage.New()
	require.NoError(t, err)

	tokens := auth.New([]byte(testSigningKey), 24*time.Hour)

	return New(theStorage, tokens), tokens
}

func TestCreateThenAuthenticate(t *testing.T) {
	svc, tokens := newTestService(t)
	ctx := context.Background()

	err := svc.Create(ctx, "Ann", "Ann@Example.com", "secret1")
	require.NoError(t, err)

	token, err := svc.Authenticate(ctx, "ann@example.com", "secret1")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, err := tokens.ParseToken(token)
	require.NoError(t, err)
	assert.NotEmpty(t, userID, "the token should be bound to the created user's id")

	profile, err := svc.Read(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "Ann", profile.Name)
	assert.Equal(t, "ann@example.com", profile.Email)
}

func TestAuthenticateFailuresAreIndistinguishable(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	err := svc.Create(ctx, "", "ann@example.com", "secret1")
	require.NoError(t, err)

	_, wrongPasswordErr := svc.Authenticate(ctx, "ann@example.com", "wrong")
	_, unknownEmailErr := svc.Authenticate(ctx, "nobody@example.com", "secret1")

	assert.ErrorIs(t, wrongPasswordErr, ErrInvalidCredentials)
	assert.ErrorIs(t, unknownEmailErr, ErrInvalidCredentials)
	assert.Equal(
		t,
		wrongPasswordErr,
		unknownEmailErr,
		"wrong password and unknown email should produce the identical error",
	)
}

func TestAuthenticateTreatsLookupFailureAsNotFound(t *testing.T) {
	theStorage := &mockstorage.StorageMock{}
	theStorage.
		On("FindUserByEmail", mock.Anything, "ann@example.com").
		Return(nil, errors.New("the store is on fire"))

	svc := New(theStorage, auth.New([]byte(testSigningKey), 24*time.Hour))

	_, err := svc.Authenticate(context.Background(), "ann@example.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials, "a transient lookup error should answer exactly like not-found")
	theStorage.AssertExpectations(t)
}

func TestAuthenticateMissingFields(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{name: "no email", email: "", password: "secret1"},
		{name: "no password", email: "ann@example.com", password: ""},
		{name: "neither", email: "", password: ""},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := svc.Authenticate(ctx, test.email, test.password)
			assert.ErrorIs(t, err, ErrMissingFields)
		})
	}
}

func TestCreateDuplicateEmailCaseInsensitive(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	err := svc.Create(ctx, "", "A@x.com", "secret1")
	require.NoError(t, err)

	err = svc.Create(ctx, "", "a@x.com", "another secret")
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Create(ctx, "Ann", "", "secret1"), ErrMissingFields)
	assert.ErrorIs(t, svc.Create(ctx, "Ann", "ann@example.com", ""), ErrMissingFields)
	assert.ErrorIs(t, svc.Create(ctx, "Ann", "not an email", "secret1"), ErrInvalidEmail)
}

func TestCreateMapsUnexpectedStoreFailure(t *testing.T) {
	theStorage := &mockstorage.StorageMock{}
	theStorage.
		On("CreateUser", mock.Anything, mock.Anything).
		Return("", errors.New("connection reset"))

	svc := New(theStorage, auth.New([]byte(testSigningKey), 24*time.Hour))

	err := svc.Create(context.Background(), "Ann", "ann@example.com", "secret1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrEmailExists)
	assert.NotErrorIs(t, err, ErrMissingFields)
	theStorage.AssertExpectations(t)
}

func TestCreateDefaultsName(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	err := svc.Create(ctx, "   ", "ann@example.com", "secret1")
	require.NoError(t, err)

	token, err := svc.Authenticate(ctx, "ann@example.com", "secret1")
	require.NoError(t, err)

	profile, err := svc.Read(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.DefaultName, profile.Name)
}

func TestReadRejectsBadTokens(t *testing.T) {
	svc, tokens := newTestService(t)
	ctx := context.Background()

	_, err := svc.Read(ctx, "")
	assert.ErrorIs(t, err, ErrMissingFields)

	_, err = svc.Read(ctx, "tampered.token.value")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	expiredTokens := auth.New([]byte(testSigningKey), -time.Minute)
	expiredToken, err := expiredTokens.IssueToken("some-user-id")
	require.NoError(t, err)

	_, err = svc.Read(ctx, expiredToken)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// A valid token whose user is gone must also read as invalid credentials.
	orphanToken, err := tokens.IssueToken("nonexistent-user-id")
	require.NoError(t, err)

	_, err = svc.Read(ctx, orphanToken)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestReadNeverExposesPasswordField(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Create(ctx, "Ann", "ann@example.com", "secret1"))

	token, err := svc.Authenticate(ctx, "ann@example.com", "secret1")
	require.NoError(t, err)

	profile, err := svc.Read(ctx, token)
	require.NoError(t, err)

	serialized, err := json.Marshal(profile)
	require.NoError(t, err)
	assert.NotContains(t, string(serialized), "password")
	assert.NotContains(t, string(serialized), "hash")
}

func TestUpdatePartialSemantics(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Create(ctx, "Ann", "ann@example.com", "secret1"))
	token, err := svc.Authenticate(ctx, "ann@example.com", "secret1")
	require.NoError(t, err)

	profile, err := svc.Update(ctx, token, "Annie", "")
	require.NoError(t, err)
	assert.Equal(t, "Annie", profile.Name)
	assert.Equal(t, "ann@example.com", profile.Email, "an omitted email should stay untouched")

	profile, err = svc.Update(ctx, token, "", "Annie@Example.org")
	require.NoError(t, err)
	assert.Equal(t, "Annie", profile.Name, "an omitted name should stay untouched")
	assert.Equal(t, "annie@example.org", profile.Email)

	// Applying the same update twice yields the same final state.
	again, err := svc.Update(ctx, token, "", "annie@example.org")
	require.NoError(t, err)
	assert.Equal(t, profile, again)
}

func TestUpdateDuplicateEmail(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Create(ctx, "Ann", "ann@example.com", "secret1"))
	require.NoError(t, svc.Create(ctx, "Bob", "bob@example.com", "secret2"))

	token, err := svc.Authenticate(ctx, "bob@example.com", "secret2")
	require.NoError(t, err)

	_, err = svc.Update(ctx, token, "", "Ann@Example.com")
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestDeleteRequiresMatchingCredentials(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Create(ctx, "Ann", "ann@example.com", "secret1"))
	token, err := svc.Authenticate(ctx, "ann@example.com", "secret1")
	require.NoError(t, err)

	err = svc.Delete(ctx, token, "ann@example.com", "wrong password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	err = svc.Delete(ctx, token, "other@example.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// The record must be intact after the failed attempts.
	_, err = svc.Read(ctx, token)
	require.NoError(t, err)

	err = svc.Delete(ctx, token, "Ann@Example.com", "secret1")
	require.NoError(t, err)

	_, err = svc.Read(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidCredentials, "the deleted account should be gone")
}

func TestEndToEndScenario(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Create(ctx, "", "a@b.com", "secret1"))

	token, err := svc.Authenticate(ctx, "a@b.com", "secret1")
	require.NoError(t, err)

	profile, err := svc.Read(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.DefaultName, profile.Name)
	assert.Equal(t, "a@b.com", profile.Email)

	profile, err = svc.Update(ctx, token, "Ann", "")
	require.NoError(t, err)
	assert.Equal(t, "Ann", profile.Name)
	assert.Equal(t, "a@b.com", profile.Email)

	require.NoError(t, svc.Delete(ctx, token, "a@b.com", "secret1"))

	_, err = svc.Authenticate(ctx, "a@b.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestGetStats(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	stats, err := svc.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.Users)

	require.NoError(t, svc.Create(ctx, "Ann", "ann@example.com", "secret1"))
	require.NoError(t, svc.Create(ctx, "Bob", "bob@example.com", "secret2"))

	stats, err = svc.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Users)
}

func TestUpdateSurvivesStorePersistedNormalization(t *testing.T) {
	// The response must reflect what the store actually committed,
	// not the in-memory mutation.
	stored := &user.User{
		ID:    "some-user-id",
		Email: "ann@example.com",
		Name:  "Ann",
	}
	require.NoError(t, stored.SetPassword("secret1"))

	committed := &user.User{
		ID:    "some-user-id",
		Email: "annie@example.org",
		Name:  "Committed Name",
	}

	theStorage := &mockstorage.StorageMock{}
	theStorage.On("FindUserByID", mock.Anything, "some-user-id").Return(stored, nil).Once()
	theStorage.On("SaveUser", mock.Anything, mock.Anything).Return(nil)
	theStorage.On("FindUserByID", mock.Anything, "some-user-id").Return(committed, nil).Once()

	tokens := auth.New([]byte(testSigningKey), 24*time.Hour)
	token, err := tokens.IssueToken("some-user-id")
	require.NoError(t, err)

	svc := New(theStorage, tokens)

	profile, err := svc.Update(context.Background(), token, "Requested Name", "annie@example.org")
	require.NoError(t, err)
	assert.Equal(t, "Committed Name", profile.Name, "the re-read value should win over the requested one")
	assert.Equal(t, "annie@example.org", profile.Email)

	theStorage.AssertExpectations(t)
}
