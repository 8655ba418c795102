// Package identity describes the authenticated principal and the provider that supplies it.
package identity

import (
	"context"

	"github.com/pkg/errors"
)

// provider error codes
var (
	ErrInvalidCredential = errors.New("identity: invalid credential")
	ErrUserNotFound      = errors.New("identity: user not found")
	ErrUserDisabled      = errors.New("identity: user disabled")
	ErrEmailInUse        = errors.New("identity: email already in use")
	ErrNotSignedIn       = errors.New("identity: not signed in")
)

// Identity is an authenticated principal's public profile.
type Identity struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// Credentials are what a user types in the login form.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Profile holds the editable parts of an Identity.
type Profile struct {
	DisplayName string `json:"display_name" validate:"omitempty,max=100"`
	AvatarURL   string `json:"avatar_url" validate:"omitempty,url"`
}

// Provider wraps an authentication service.
// Loading is true until the first identity event has been delivered.
type Provider interface {
	Subscribe(fn func(*Identity)) (unsubscribe func())
	Loading() bool
	Current() *Identity
	Login(ctx context.Context, creds Credentials) (Identity, error)
	Logout(ctx context.Context) error
}

// Message maps a provider error to what the login form shows.
func Message(err error) string {
	switch errors.Cause(err) {
	case nil:
		return ""
	case ErrInvalidCredential, ErrUserNotFound:
		return "Invalid email or password."
	case ErrUserDisabled:
		return "This account has been disabled."
	case ErrEmailInUse:
		return "An account with this email already exists."
	case ErrNotSignedIn:
		return "You are not signed in."
	default:
		return "Something went wrong, please try again."
	}
}
