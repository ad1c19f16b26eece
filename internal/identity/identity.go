package identity

import (
	"context"
	"errors"
)

// Identity is the authenticated principal reported by the identity provider.
type Identity struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
	PhotoURL    string `json:"photo_url,omitempty"`
}

// Provider authenticates end users against the hosted identity service.
type Provider interface {
	// VerifyToken restores a session from a provider ID token.
	VerifyToken(ctx context.Context, idToken string) (*Identity, error)
	SignInWithPassword(ctx context.Context, email, password string) (*Identity, error)
	// SignInWithGoogle exchanges a Google OAuth ID token for a provider identity.
	SignInWithGoogle(ctx context.Context, googleIDToken string) (*Identity, error)
	Register(ctx context.Context, displayName, email, password string) (*Identity, error)
	SendPasswordReset(ctx context.Context, email string) error
	// RevokeSessions invalidates every provider refresh token for uid.
	RevokeSessions(ctx context.Context, uid string) error
}

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailNotFound      = errors.New("email not found")
	ErrEmailExists        = errors.New("email already exists")
	ErrInvalidToken       = errors.New("invalid id token")
	ErrUserNotFound       = errors.New("user not found")
)
