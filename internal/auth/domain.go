package auth

import (
	"time"

	"github.com/grand-nerud/backoffice/internal/shared"
)

// Caller-facing authentication failures. All of them map to 401.
var (
	ErrTokenAbsent        = shared.NewError(shared.ErrUnauthorized, "token is absent")
	ErrTokenFormat        = shared.NewError(shared.ErrUnauthorized, "incorrect token format")
	ErrTokenExpired       = shared.NewError(shared.ErrUnauthorized, "token expired")
	ErrUserNotPresent     = shared.NewError(shared.ErrUnauthorized, "user is not present")
	ErrInvalidCredentials = shared.NewError(shared.ErrUnauthorized, "incorrect email or password")
)

// Token is an issued access token.
type Token struct {
	Value     string
	ID        string
	Subject   string
	ExpiresAt time.Time
}

// LoginInput carries login credentials.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is returned in the body of a successful login. The token is
// also set as a cookie.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// failureReason labels a failure for metrics.
func failureReason(err error) string {
	switch err {
	case ErrTokenAbsent:
		return "absent"
	case ErrTokenFormat:
		return "format"
	case ErrTokenExpired:
		return "expired"
	case ErrUserNotPresent:
		return "user"
	case ErrInvalidCredentials:
		return "credentials"
	default:
		return "other"
	}
}
