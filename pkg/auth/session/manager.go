package session

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jgechelper/backend/pkg/config"
	redisclient "github.com/jgechelper/backend/pkg/redis"
	redislib "github.com/redis/go-redis/v9"
)

const (
	refreshTokenBytes = 32
	valueSeparator    = "|"
)

var ErrInvalidRefreshToken = errors.New("invalid refresh token")

type sessionStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

type sessionKeyer interface {
	AccessSessionKey(accessID string) string
}

// Manager stores server-side sessions keyed by the access token jti. Each
// entry remembers its owner so a ban can invalidate every session at once.
type Manager struct {
	store sessionStore
	keyer sessionKeyer
	ttl   time.Duration
}

// AccessSessionChecker exposes the read-only surface needed by middleware.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

// NewManager constructs a session manager backed by Redis.
func NewManager(client *redisclient.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	ttl := cfg.SessionTTL()
	if ttl <= 0 {
		return nil, fmt.Errorf("session ttl must be positive")
	}
	if accessTTL := cfg.AccessTTL(); ttl <= accessTTL {
		return nil, fmt.Errorf("session ttl (%s) must exceed access token ttl (%s)", ttl, accessTTL)
	}

	return &Manager{
		store: client,
		keyer: client,
		ttl:   ttl,
	}, nil
}

// Generate creates a refresh token for the access ID and records its owner.
func (m *Manager) Generate(ctx context.Context, accessID, userID string) (string, error) {
	if strings.TrimSpace(accessID) == "" {
		return "", fmt.Errorf("access id is required")
	}
	if strings.TrimSpace(userID) == "" {
		return "", fmt.Errorf("user id is required")
	}
	token, err := generateRefreshToken()
	if err != nil {
		return "", err
	}
	if err := m.store.Set(ctx, m.keyer.AccessSessionKey(accessID), encodeValue(userID, token), m.ttl); err != nil {
		return "", err
	}
	return token, nil
}

// Rotate validates the refresh token, drops the prior session, and returns a
// fresh access ID and refresh token owned by the same user.
func (m *Manager) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, string, error) {
	if strings.TrimSpace(oldAccessID) == "" || strings.TrimSpace(provided) == "" {
		return "", "", "", ErrInvalidRefreshToken
	}

	key := m.keyer.AccessSessionKey(oldAccessID)
	stored, err := m.store.Get(ctx, key)
	if err != nil {
		return "", "", "", wrapNotFound(err)
	}
	userID, token, ok := decodeValue(stored)
	if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(provided)) != 1 {
		return "", "", "", ErrInvalidRefreshToken
	}
	if revoked, err := m.userRevoked(ctx, userID); err != nil {
		return "", "", "", err
	} else if revoked {
		return "", "", "", ErrInvalidRefreshToken
	}

	newAccessID := NewAccessID()
	newToken, err := m.Generate(ctx, newAccessID, userID)
	if err != nil {
		return "", "", "", err
	}
	if err := m.store.Del(ctx, key); err != nil {
		return "", "", "", err
	}

	return newAccessID, newToken, userID, nil
}

// Revoke deletes the session tied to the access identifier.
func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return fmt.Errorf("access id is required")
	}
	return m.store.Del(ctx, m.keyer.AccessSessionKey(accessID))
}

// RevokeUser invalidates every session owned by userID until RestoreUser is called.
func (m *Manager) RevokeUser(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("user id is required")
	}
	return m.store.Set(ctx, m.revokedKey(userID), time.Now().UTC().Unix(), m.ttl)
}

// RestoreUser lifts a RevokeUser marker.
func (m *Manager) RestoreUser(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("user id is required")
	}
	return m.store.Del(ctx, m.revokedKey(userID))
}

// HasSession reports whether the access ID still maps to a live, unrevoked session.
func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	if strings.TrimSpace(accessID) == "" {
		return false, fmt.Errorf("access id is required")
	}
	stored, err := m.store.Get(ctx, m.keyer.AccessSessionKey(accessID))
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return false, nil
		}
		return false, err
	}
	userID, _, ok := decodeValue(stored)
	if !ok {
		return false, nil
	}
	revoked, err := m.userRevoked(ctx, userID)
	if err != nil {
		return false, err
	}
	return !revoked, nil
}

func (m *Manager) userRevoked(ctx context.Context, userID string) (bool, error) {
	if _, err := m.store.Get(ctx, m.revokedKey(userID)); err != nil {
		if errors.Is(err, redislib.Nil) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (m *Manager) revokedKey(userID string) string {
	return m.keyer.AccessSessionKey("revoked:" + userID)
}

// NewAccessID produces a stable identifier used as the JWT jti/Redis key.
func NewAccessID() string {
	return uuid.NewString()
}

func encodeValue(userID, token string) string {
	return userID + valueSeparator + token
}

func decodeValue(raw string) (string, string, bool) {
	userID, token, ok := strings.Cut(raw, valueSeparator)
	if !ok || userID == "" || token == "" {
		return "", "", false
	}
	return userID, token, true
}

func generateRefreshToken() (string, error) {
	bytes := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generating refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

func wrapNotFound(err error) error {
	if errors.Is(err, redislib.Nil) || errors.Is(err, ErrInvalidRefreshToken) {
		return ErrInvalidRefreshToken
	}
	return err
}
