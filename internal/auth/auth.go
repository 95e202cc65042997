// Package auth provides issuance and verification of the signed access
// tokens returned by the login operation. Tokens are stateless JWTs:
// validity is purely a function of the HMAC signature and the embedded
// expiry, no server-side session record exists.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// ErrInvalidToken is returned by ParseToken for tokens that are
// malformed, carry a wrong signature, are expired, or name no user.
var ErrInvalidToken = errors.New("invalid access token")

// Claims represents the JWT claims used by the system.
// It embeds standard JWT claims and adds a user-specific identifier.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
}

// TokenManager signs and verifies access tokens with a process-wide
// secret key. It holds no mutable state and is safe for concurrent use.
type TokenManager struct {
	// signingSecretKey is the key used to sign JWTs.
	signingSecretKey []byte

	// tokenTTL is how long an issued token stays valid.
	tokenTTL time.Duration
}

// New creates a TokenManager with the given signing secret and token lifetime.
func New(signingSecretKey []byte, tokenTTL time.Duration) *TokenManager {
	return &TokenManager{
		signingSecretKey: signingSecretKey,
		tokenTTL:         tokenTTL,
	}
}

// IssueToken builds a signed JWT bound to the given user ID, expiring
// tokenTTL after issuance.
func (manager *TokenManager) IssueToken(userID string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(
		jwt.SigningMethodHS256,
		Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(manager.tokenTTL)),
			},
			UserID: userID,
		},
	)

	tokenString, err := token.SignedString(manager.signingSecretKey)
	if err != nil {
		return "", fmt.Errorf("in internal/auth/auth.go/IssueToken(): error while `token.SignedString()` calling: %w", err)
	}

	return tokenString, nil
}

// ParseToken verifies the signature and expiry of a token string and
// returns the user ID it is bound to. Every verification failure is
// reported as ErrInvalidToken so callers need a single error branch.
func (manager *TokenManager) ParseToken(tokenString string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return manager.signingSecretKey, nil
		},
	)
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	if claims.UserID == "" {
		return "", ErrInvalidToken
	}

	return claims.UserID, nil
}
