package auth

import (
	"time"

	"github.com/jgechelper/backend/pkg/enums"
)

// TokenRequest carries a provider or Google ID token.
type TokenRequest struct {
	IDToken string `json:"id_token" validate:"required"`
}

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type PasswordResetRequest struct {
	Email string `json:"email"`
}

type RefreshRequest struct {
	SessionID    string `json:"session_id" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// UserView is the signed-in principal as seen by the client.
type UserView struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	DisplayName string     `json:"display_name,omitempty"`
	PhotoURL    string     `json:"photo_url,omitempty"`
	Role        enums.Role `json:"role"`
}

// SessionResponse is returned by every sign-in flow.
type SessionResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	SessionID    string    `json:"session_id"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         UserView  `json:"user"`
}
