package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jgechelper/backend/internal/identity"
	"github.com/jgechelper/backend/internal/repo"
	"github.com/jgechelper/backend/internal/users"
	pkgAuth "github.com/jgechelper/backend/pkg/auth"
	"github.com/jgechelper/backend/pkg/auth/session"
	"github.com/jgechelper/backend/pkg/config"
	pkgerrors "github.com/jgechelper/backend/pkg/errors"
	"github.com/jgechelper/backend/pkg/logger"
)

// User-facing auth failure messages.
const (
	msgInvalidCredentials = "Invalid email or password"
	msgEmailNotFound      = "No account found with this email."
	msgResetFailed        = "Failed to send reset email."
	msgGoogleFailed       = "Google Sign In failed. Please try again."
	msgRegisterFailed     = "Registration failed. Try again."
	msgEmailExists        = "An account already exists with this email."
	msgEmailRequired      = "Please enter your email first."
	msgSessionInvalid     = "Your session has expired. Please sign in again."
	msgBanned             = "Your account has been suspended."
)

// Service defines the behavior needed by the auth controller.
type Service interface {
	Session(ctx context.Context, req TokenRequest) (*SessionResponse, error)
	Google(ctx context.Context, req TokenRequest) (*SessionResponse, error)
	Login(ctx context.Context, req LoginRequest) (*SessionResponse, error)
	Register(ctx context.Context, req RegisterRequest) (*SessionResponse, error)
	PasswordReset(ctx context.Context, req PasswordResetRequest) error
	Refresh(ctx context.Context, req RefreshRequest) (*SessionResponse, error)
	Logout(ctx context.Context, userID, sessionID string) error
	Me(ctx context.Context, userID string) (*UserView, error)
}

type roleResolver interface {
	Resolve(ctx context.Context, id *identity.Identity) (Resolution, error)
}

type userReader interface {
	Get(ctx context.Context, id string) (*users.Record, error)
}

type sessionManager interface {
	Generate(ctx context.Context, accessID, userID string) (string, error)
	Rotate(ctx context.Context, oldAccessID, provided string) (string, string, string, error)
	Revoke(ctx context.Context, accessID string) error
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	Provider       identity.Provider
	Resolver       roleResolver
	Users          userReader
	SessionManager sessionManager
	JWTConfig      config.JWTConfig
	AuthConfig     config.AuthConfig
	Logger         *logger.Logger
	Now            func() time.Time
}

type service struct {
	provider identity.Provider
	resolver roleResolver
	users    userReader
	session  sessionManager
	jwtCfg   config.JWTConfig
	authCfg  config.AuthConfig
	logg     *logger.Logger
	now      func() time.Time
}

// NewService constructs an auth service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Provider == nil {
		return nil, fmt.Errorf("identity provider is required")
	}
	if params.Resolver == nil {
		return nil, fmt.Errorf("role resolver is required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("users store is required")
	}
	if params.SessionManager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		provider: params.Provider,
		resolver: params.Resolver,
		users:    params.Users,
		session:  params.SessionManager,
		jwtCfg:   params.JWTConfig,
		authCfg:  params.AuthConfig,
		logg:     params.Logger,
		now:      now,
	}, nil
}

func (s *service) Session(ctx context.Context, req TokenRequest) (*SessionResponse, error) {
	id, err := s.provider.VerifyToken(ctx, req.IDToken)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidToken) || errors.Is(err, identity.ErrUserNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeAuthFailed, err, msgSessionInvalid)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "verify session")
	}
	return s.signIn(ctx, id)
}

func (s *service) Google(ctx context.Context, req TokenRequest) (*SessionResponse, error) {
	id, err := s.provider.SignInWithGoogle(ctx, req.IDToken)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeAuthFailed, err, msgGoogleFailed)
	}
	return s.signIn(ctx, id)
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*SessionResponse, error) {
	id, err := s.provider.SignInWithPassword(ctx, req.Email, req.Password)
	if err != nil {
		// all provider failures share one message
		return nil, pkgerrors.Wrap(pkgerrors.CodeAuthFailed, err, msgInvalidCredentials)
	}
	return s.signIn(ctx, id)
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*SessionResponse, error) {
	id, err := s.provider.Register(ctx, req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, identity.ErrEmailExists) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeAuthFailed, err, msgEmailExists)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeAuthFailed, err, msgRegisterFailed)
	}
	return s.signIn(ctx, id)
}

func (s *service) PasswordReset(ctx context.Context, req PasswordResetRequest) error {
	email := strings.TrimSpace(req.Email)
	if email == "" {
		return pkgerrors.New(pkgerrors.CodeAuthFailed, msgEmailRequired)
	}
	if err := s.provider.SendPasswordReset(ctx, email); err != nil {
		if errors.Is(err, identity.ErrEmailNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeAuthFailed, err, msgEmailNotFound)
		}
		return pkgerrors.Wrap(pkgerrors.CodeAuthFailed, err, msgResetFailed)
	}
	return nil
}

func (s *service) Refresh(ctx context.Context, req RefreshRequest) (*SessionResponse, error) {
	accessID, refreshToken, userID, err := s.session.Rotate(ctx, req.SessionID, req.RefreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, msgSessionInvalid)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rotate session")
	}

	rec, err := s.users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, msgSessionInvalid)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve role")
	}
	if rec.Banned() {
		_ = s.session.Revoke(ctx, accessID)
		return nil, s.bannedError()
	}

	view := UserView{
		ID:          rec.ID,
		Email:       rec.Email,
		DisplayName: rec.DisplayName,
		PhotoURL:    rec.PhotoURL,
		Role:        rec.Role,
	}
	return s.mint(accessID, refreshToken, view)
}

// Logout drops the app session and the provider refresh tokens. The user
// record is left untouched.
func (s *service) Logout(ctx context.Context, userID, sessionID string) error {
	if strings.TrimSpace(sessionID) != "" {
		if err := s.session.Revoke(ctx, sessionID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
		}
	}
	if strings.TrimSpace(userID) != "" {
		if err := s.provider.RevokeSessions(ctx, userID); err != nil && !errors.Is(err, identity.ErrUserNotFound) {
			s.logg.Warn(s.logg.WithUserID(ctx, userID), "auth.logout.provider_revoke_failed: "+err.Error())
		}
	}
	return nil
}

func (s *service) Me(ctx context.Context, userID string) (*UserView, error) {
	rec, err := s.users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	if rec.Banned() {
		return nil, s.bannedError()
	}
	return &UserView{
		ID:          rec.ID,
		Email:       rec.Email,
		DisplayName: rec.DisplayName,
		PhotoURL:    rec.PhotoURL,
		Role:        rec.Role,
	}, nil
}

func (s *service) signIn(ctx context.Context, id *identity.Identity) (*SessionResponse, error) {
	res, err := s.resolver.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.Banned {
		return nil, s.bannedError()
	}
	if !res.SignedIn() {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "resolve role")
	}

	accessID := session.NewAccessID()
	refreshToken, err := s.session.Generate(ctx, accessID, res.Identity.UID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store refresh token")
	}
	return s.mint(accessID, refreshToken, UserView{
		ID:          res.Identity.UID,
		Email:       res.Identity.Email,
		DisplayName: res.Identity.DisplayName,
		PhotoURL:    res.Identity.PhotoURL,
		Role:        res.Role,
	})
}

func (s *service) mint(accessID, refreshToken string, view UserView) (*SessionResponse, error) {
	now := s.now()
	accessToken, err := pkgAuth.MintAccessToken(s.jwtCfg, now, pkgAuth.AccessTokenPayload{
		UserID: view.ID,
		Email:  view.Email,
		Role:   view.Role,
		JTI:    accessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	return &SessionResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		SessionID:    accessID,
		ExpiresAt:    now.Add(s.jwtCfg.AccessTTL()).UTC(),
		User:         view,
	}, nil
}

func (s *service) bannedError() error {
	redirect := s.authCfg.BannedRedirect
	if redirect == "" {
		redirect = "/?banned=true"
	}
	return pkgerrors.New(pkgerrors.CodeBanned, msgBanned).WithDetails(map[string]string{"redirect": redirect})
}
