// Package models contains the request and response shapes of the HTTP
// API together with the machine-readable error codes carried by error
// responses.
package models

// AuthRequest is the login request body.
type AuthRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse carries the signed access token issued on login.
type AuthResponse struct {
	AccessToken string `json:"accessToken"`
}

// SignupRequest is the account creation request body.
// Name is optional and defaults server-side.
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UpdateRequest is the partial profile update request body.
// Empty fields are left untouched.
type UpdateRequest struct {
	Name  string `json:"name"`
	Email string `json:"email" validate:"omitempty,email"`
}

// DeleteRequest re-supplies the account credentials for deletion.
// A valid token alone is not sufficient for this operation.
type DeleteRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Profile is the sanitized view of an account returned by the read and
// update operations. It never contains the password hash.
type Profile struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// SuccessResponse is returned by operations without a richer result.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// StatsResponse is returned by the internal stats endpoint.
type StatsResponse struct {
	Users int64 `json:"users"`
}

// ErrorResponse is the uniform error body: a short machine-readable
// code plus a human-readable message.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Machine-readable error codes used in ErrorResponse.Code.
const (
	ErrCodeMissingFields      = "missing_fields"
	ErrCodeInvalidCredentials = "invalid_credentials"
	ErrCodeInvalidEmail       = "invalid_email"
	ErrCodeEmailExists        = "email_exists"
	ErrCodeInternal           = "internal_error"
)
