package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/jgechelper/backend/pkg/enums"
)

// AccessTokenPayload captures the resolved identity and role at mint time.
type AccessTokenPayload struct {
	UserID string
	Email  string
	Role   enums.Role
	JTI    string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID string     `json:"user_id"`
	Email  string     `json:"email"`
	Role   enums.Role `json:"role"`
	jwt.RegisteredClaims
}
