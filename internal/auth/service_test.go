package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jgechelper/backend/internal/identity"
	"github.com/jgechelper/backend/internal/users"
	pkgAuth "github.com/jgechelper/backend/pkg/auth"
	"github.com/jgechelper/backend/pkg/auth/session"
	"github.com/jgechelper/backend/pkg/config"
	"github.com/jgechelper/backend/pkg/enums"
	pkgerrors "github.com/jgechelper/backend/pkg/errors"
	"github.com/jgechelper/backend/pkg/logger"
)

type stubProvider struct {
	id       *identity.Identity
	err      error
	resetErr error
	revoked  []string
}

func (s *stubProvider) VerifyToken(ctx context.Context, idToken string) (*identity.Identity, error) {
	return s.id, s.err
}

func (s *stubProvider) SignInWithPassword(ctx context.Context, email, password string) (*identity.Identity, error) {
	return s.id, s.err
}

func (s *stubProvider) SignInWithGoogle(ctx context.Context, googleIDToken string) (*identity.Identity, error) {
	return s.id, s.err
}

func (s *stubProvider) Register(ctx context.Context, displayName, email, password string) (*identity.Identity, error) {
	return s.id, s.err
}

func (s *stubProvider) SendPasswordReset(ctx context.Context, email string) error {
	return s.resetErr
}

func (s *stubProvider) RevokeSessions(ctx context.Context, uid string) error {
	s.revoked = append(s.revoked, uid)
	return nil
}

type stubSessions struct {
	generated map[string]string
	revoked   []string
	rotateErr error
	rotateFor string
}

func (s *stubSessions) Generate(ctx context.Context, accessID, userID string) (string, error) {
	if s.generated == nil {
		s.generated = map[string]string{}
	}
	s.generated[accessID] = userID
	return "refresh-" + accessID, nil
}

func (s *stubSessions) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, string, error) {
	if s.rotateErr != nil {
		return "", "", "", s.rotateErr
	}
	return "rotated", "refresh-rotated", s.rotateFor, nil
}

func (s *stubSessions) Revoke(ctx context.Context, accessID string) error {
	s.revoked = append(s.revoked, accessID)
	return nil
}

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "jgechelper", ExpirationMinutes: 30, SessionTTLMinutes: 120}

func buildTestService(t *testing.T, provider *stubProvider, store *memoryUsers) (Service, *stubSessions) {
	t.Helper()
	resolver := newTestResolver(t, store, &recordingRevoker{}, &recordingRevoker{})
	sessions := &stubSessions{}
	svc, err := NewService(ServiceParams{
		Provider:       provider,
		Resolver:       resolver,
		Users:          store,
		SessionManager: sessions,
		JWTConfig:      testJWT,
		AuthConfig:     config.AuthConfig{BannedRedirect: "/?banned=true"},
		Logger:         logger.New(logger.Options{ServiceName: "auth-test"}),
		Now:            func() time.Time { return time.Now() },
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc, sessions
}

func TestLoginIssuesSessionWithResolvedRole(t *testing.T) {
	provider := &stubProvider{id: &identity.Identity{UID: "a1", Email: "admin@jgec.ac.in"}}
	svc, sessions := buildTestService(t, provider, newMemoryUsers())

	resp, err := svc.Login(context.Background(), LoginRequest{Email: "admin@jgec.ac.in", Password: "pw"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.Role != enums.RoleAdmin || claims.Subject != "a1" {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if claims.ID != resp.SessionID || sessions.generated[resp.SessionID] != "a1" {
		t.Fatalf("expected session %s stored for a1", resp.SessionID)
	}
	if resp.RefreshToken == "" {
		t.Fatalf("expected refresh token to be set")
	}
}

func TestLoginFailureUsesGenericMessage(t *testing.T) {
	provider := &stubProvider{err: identity.ErrEmailNotFound}
	svc, _ := buildTestService(t, provider, newMemoryUsers())

	_, err := svc.Login(context.Background(), LoginRequest{Email: "x@jgec.ac.in", Password: "pw"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeAuthFailed || typed.Message() != "Invalid email or password" {
		t.Fatalf("expected auth failure with generic message, got %v", err)
	}
}

func TestBannedSignInReturnsRedirect(t *testing.T) {
	store := newMemoryUsers()
	store.records["b1"] = users.Record{ID: "b1", Role: enums.RoleUser, Status: enums.UserStatusBanned}
	provider := &stubProvider{id: &identity.Identity{UID: "b1"}}
	svc, sessions := buildTestService(t, provider, store)

	_, err := svc.Session(context.Background(), TokenRequest{IDToken: "tok"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeBanned {
		t.Fatalf("expected banned error, got %v", err)
	}
	details, _ := typed.Details().(map[string]string)
	if details["redirect"] != "/?banned=true" {
		t.Fatalf("expected banned redirect, got %v", typed.Details())
	}
	if len(sessions.generated) != 0 {
		t.Fatalf("banned user must not receive a session")
	}
}

func TestRegisterMessages(t *testing.T) {
	svc, _ := buildTestService(t, &stubProvider{err: identity.ErrEmailExists}, newMemoryUsers())
	_, err := svc.Register(context.Background(), RegisterRequest{Name: "A", Email: "a@jgec.ac.in", Password: "secret1"})
	if typed := pkgerrors.As(err); typed == nil || typed.Message() != "An account already exists with this email." {
		t.Fatalf("unexpected duplicate error %v", err)
	}

	svc, _ = buildTestService(t, &stubProvider{err: errors.New("boom")}, newMemoryUsers())
	_, err = svc.Register(context.Background(), RegisterRequest{Name: "A", Email: "a@jgec.ac.in", Password: "secret1"})
	if typed := pkgerrors.As(err); typed == nil || typed.Message() != "Registration failed. Try again." {
		t.Fatalf("unexpected register error %v", err)
	}
}

func TestPasswordResetMessages(t *testing.T) {
	cases := []struct {
		email string
		err   error
		want  string
	}{
		{email: " ", want: "Please enter your email first."},
		{email: "a@jgec.ac.in", err: identity.ErrEmailNotFound, want: "No account found with this email."},
		{email: "a@jgec.ac.in", err: errors.New("smtp"), want: "Failed to send reset email."},
	}
	for _, tc := range cases {
		svc, _ := buildTestService(t, &stubProvider{resetErr: tc.err}, newMemoryUsers())
		err := svc.PasswordReset(context.Background(), PasswordResetRequest{Email: tc.email})
		if typed := pkgerrors.As(err); typed == nil || typed.Message() != tc.want {
			t.Fatalf("email %q: expected %q, got %v", tc.email, tc.want, err)
		}
	}

	svc, _ := buildTestService(t, &stubProvider{}, newMemoryUsers())
	if err := svc.PasswordReset(context.Background(), PasswordResetRequest{Email: "a@jgec.ac.in"}); err != nil {
		t.Fatalf("expected reset to succeed, got %v", err)
	}
}

func TestRefreshRejectsBannedUser(t *testing.T) {
	store := newMemoryUsers()
	store.records["b1"] = users.Record{ID: "b1", Role: enums.RoleUser, Status: enums.UserStatusBanned}
	svc, sessions := buildTestService(t, &stubProvider{}, store)
	sessions.rotateFor = "b1"

	_, err := svc.Refresh(context.Background(), RefreshRequest{SessionID: "old", RefreshToken: "tok"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeBanned) {
		t.Fatalf("expected banned error, got %v", err)
	}
	if len(sessions.revoked) != 1 || sessions.revoked[0] != "rotated" {
		t.Fatalf("expected rotated session revoked, got %v", sessions.revoked)
	}
}

func TestRefreshInvalidToken(t *testing.T) {
	svc, sessions := buildTestService(t, &stubProvider{}, newMemoryUsers())
	sessions.rotateErr = session.ErrInvalidRefreshToken

	_, err := svc.Refresh(context.Background(), RefreshRequest{SessionID: "old", RefreshToken: "bad"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestLogoutRevokesBothSessions(t *testing.T) {
	provider := &stubProvider{}
	svc, sessions := buildTestService(t, provider, newMemoryUsers())

	if err := svc.Logout(context.Background(), "u1", "sess-1"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if len(sessions.revoked) != 1 || sessions.revoked[0] != "sess-1" {
		t.Fatalf("expected app session revoked, got %v", sessions.revoked)
	}
	if len(provider.revoked) != 1 || provider.revoked[0] != "u1" {
		t.Fatalf("expected provider tokens revoked, got %v", provider.revoked)
	}
}
