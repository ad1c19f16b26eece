package identity

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"
)

const (
	googleProviderID    = "google.com"
	passwordResetAction = "PASSWORD_RESET"
)

// authClient is the Firebase Admin surface the provider needs.
type authClient interface {
	VerifyIDTokenAndCheckRevoked(ctx context.Context, idToken string) (*auth.Token, error)
	GetUser(ctx context.Context, uid string) (*auth.UserRecord, error)
	CreateUser(ctx context.Context, user *auth.UserToCreate) (*auth.UserRecord, error)
	UpdateUser(ctx context.Context, uid string, user *auth.UserToUpdate) (*auth.UserRecord, error)
	RevokeRefreshTokens(ctx context.Context, uid string) error
}

// toolkit covers the end-user flows the Admin SDK does not expose.
type toolkit interface {
	verifyPassword(ctx context.Context, email, password string) (string, error)
	verifyAssertion(ctx context.Context, googleIDToken string) (string, error)
	sendOob(ctx context.Context, email string) error
}

type firebaseProvider struct {
	auth    authClient
	toolkit toolkit
}

// FirebaseParams bundles what NewFirebaseProvider needs.
type FirebaseParams struct {
	Auth       *auth.Client
	WebAPIKey  string
	RequestURI string
}

// NewFirebaseProvider builds a Provider backed by Firebase Authentication.
func NewFirebaseProvider(ctx context.Context, params FirebaseParams) (Provider, error) {
	if params.Auth == nil {
		return nil, fmt.Errorf("firebase auth client is required")
	}
	if strings.TrimSpace(params.WebAPIKey) == "" {
		return nil, fmt.Errorf("firebase web api key is required")
	}
	svc, err := identitytoolkit.NewService(ctx, option.WithAPIKey(params.WebAPIKey))
	if err != nil {
		return nil, fmt.Errorf("creating identity toolkit client: %w", err)
	}
	return &firebaseProvider{
		auth:    params.Auth,
		toolkit: &identityToolkit{svc: svc, requestURI: params.RequestURI},
	}, nil
}

func newFirebaseProvider(a authClient, tk toolkit) *firebaseProvider {
	return &firebaseProvider{auth: a, toolkit: tk}
}

func (p *firebaseProvider) VerifyToken(ctx context.Context, idToken string) (*Identity, error) {
	if strings.TrimSpace(idToken) == "" {
		return nil, ErrInvalidToken
	}
	token, err := p.auth.VerifyIDTokenAndCheckRevoked(ctx, idToken)
	if err != nil {
		if auth.IsIDTokenRevoked(err) || auth.IsIDTokenInvalid(err) || auth.IsUserDisabled(err) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("verify id token: %w", err)
	}
	return p.lookup(ctx, token.UID)
}

func (p *firebaseProvider) SignInWithPassword(ctx context.Context, email, password string) (*Identity, error) {
	uid, err := p.toolkit.verifyPassword(ctx, strings.TrimSpace(email), password)
	if err != nil {
		return nil, mapToolkitError(err)
	}
	return p.lookup(ctx, uid)
}

func (p *firebaseProvider) SignInWithGoogle(ctx context.Context, googleIDToken string) (*Identity, error) {
	if strings.TrimSpace(googleIDToken) == "" {
		return nil, ErrInvalidToken
	}
	uid, err := p.toolkit.verifyAssertion(ctx, googleIDToken)
	if err != nil {
		return nil, mapToolkitError(err)
	}
	return p.lookup(ctx, uid)
}

// Register creates the account, then sets its display name.
func (p *firebaseProvider) Register(ctx context.Context, displayName, email, password string) (*Identity, error) {
	created, err := p.auth.CreateUser(ctx, (&auth.UserToCreate{}).
		Email(strings.TrimSpace(email)).
		Password(password))
	if err != nil {
		if auth.IsEmailAlreadyExists(err) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	record := created
	if name := strings.TrimSpace(displayName); name != "" {
		updated, err := p.auth.UpdateUser(ctx, created.UID, (&auth.UserToUpdate{}).DisplayName(name))
		if err != nil {
			return nil, fmt.Errorf("set display name: %w", err)
		}
		record = updated
	}
	return fromRecord(record), nil
}

func (p *firebaseProvider) SendPasswordReset(ctx context.Context, email string) error {
	if err := p.toolkit.sendOob(ctx, strings.TrimSpace(email)); err != nil {
		return mapToolkitError(err)
	}
	return nil
}

func (p *firebaseProvider) RevokeSessions(ctx context.Context, uid string) error {
	if err := p.auth.RevokeRefreshTokens(ctx, uid); err != nil {
		if auth.IsUserNotFound(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("revoke refresh tokens: %w", err)
	}
	return nil
}

func (p *firebaseProvider) lookup(ctx context.Context, uid string) (*Identity, error) {
	record, err := p.auth.GetUser(ctx, uid)
	if err != nil {
		if auth.IsUserNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return fromRecord(record), nil
}

func fromRecord(record *auth.UserRecord) *Identity {
	if record == nil || record.UserInfo == nil {
		return nil
	}
	return &Identity{
		UID:         record.UID,
		Email:       record.Email,
		DisplayName: record.DisplayName,
		PhotoURL:    record.PhotoURL,
	}
}

// mapToolkitError folds identity toolkit error messages onto sentinel errors.
func mapToolkitError(err error) error {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	msg := apiErr.Message
	switch {
	case strings.HasPrefix(msg, "EMAIL_NOT_FOUND"):
		return ErrEmailNotFound
	case strings.HasPrefix(msg, "INVALID_PASSWORD"),
		strings.HasPrefix(msg, "INVALID_LOGIN_CREDENTIALS"),
		strings.HasPrefix(msg, "USER_DISABLED"):
		return ErrInvalidCredentials
	case strings.HasPrefix(msg, "EMAIL_EXISTS"):
		return ErrEmailExists
	case strings.HasPrefix(msg, "INVALID_IDP_RESPONSE"), strings.HasPrefix(msg, "INVALID_ID_TOKEN"):
		return ErrInvalidToken
	}
	return err
}

type identityToolkit struct {
	svc        *identitytoolkit.Service
	requestURI string
}

func (t *identityToolkit) verifyPassword(ctx context.Context, email, password string) (string, error) {
	resp, err := t.svc.Relyingparty.VerifyPassword(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		return "", err
	}
	return resp.LocalId, nil
}

func (t *identityToolkit) verifyAssertion(ctx context.Context, googleIDToken string) (string, error) {
	body := url.Values{}
	body.Set("id_token", googleIDToken)
	body.Set("providerId", googleProviderID)

	resp, err := t.svc.Relyingparty.VerifyAssertion(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyAssertionRequest{
		PostBody:          body.Encode(),
		RequestUri:        t.requestURI,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		return "", err
	}
	return resp.LocalId, nil
}

func (t *identityToolkit) sendOob(ctx context.Context, email string) error {
	_, err := t.svc.Relyingparty.GetOobConfirmationCode(&identitytoolkit.Relyingparty{
		RequestType: passwordResetAction,
		Email:       email,
	}).Context(ctx).Do()
	return err
}
