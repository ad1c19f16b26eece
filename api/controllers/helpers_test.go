package controllers

import (
	"context"
	"testing"
	"time"

	pkgAuth "github.com/jgechelper/backend/pkg/auth"
	"github.com/jgechelper/backend/pkg/auth/session"
	"github.com/jgechelper/backend/pkg/config"
	"github.com/jgechelper/backend/pkg/enums"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "jgechelper", ExpirationMinutes: 60}

type allowSessions struct{}

func (allowSessions) HasSession(ctx context.Context, accessID string) (bool, error) {
	return true, nil
}

func mintToken(t *testing.T, uid, email string, role enums.Role) (string, string) {
	t.Helper()
	jti := session.NewAccessID()
	token, err := pkgAuth.MintAccessToken(testJWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uid,
		Email:  email,
		Role:   role,
		JTI:    jti,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token, jti
}
