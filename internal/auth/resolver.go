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
	"github.com/jgechelper/backend/pkg/enums"
	pkgerrors "github.com/jgechelper/backend/pkg/errors"
	"github.com/jgechelper/backend/pkg/logger"
	"github.com/jgechelper/backend/pkg/metrics"
	"golang.org/x/sync/singleflight"
)

// resolveTimeout bounds one shared store round trip. It is detached from
// the caller so one disconnecting client cannot fail the others.
const resolveTimeout = 10 * time.Second

// Resolution outcomes recorded in metrics.
const (
	OutcomeReturning = "returning"
	OutcomeCreated   = "created"
	OutcomeRaced     = "raced"
	OutcomeBanned    = "banned"
	OutcomeError     = "error"
)

// Resolution is the result of mapping an identity to its persisted role.
// A zero Resolution means signed out. Role is empty whenever resolution failed.
type Resolution struct {
	Identity *identity.Identity
	Role     enums.Role
	Banned   bool
	Outcome  string
}

// SignedIn reports whether the resolution carries a usable identity and role.
func (r Resolution) SignedIn() bool {
	return r.Identity != nil && r.Role.IsValid() && !r.Banned
}

type userStore interface {
	Get(ctx context.Context, id string) (*users.Record, error)
	CreateIfAbsent(ctx context.Context, rec users.Record) (bool, error)
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}

type providerSessions interface {
	RevokeSessions(ctx context.Context, uid string) error
}

type userSessions interface {
	RevokeUser(ctx context.Context, userID string) error
}

// ResolverParams bundles the resolver dependencies.
type ResolverParams struct {
	Users       userStore
	Provider    providerSessions
	Sessions    userSessions
	AdminEmails []string
	Metrics     *metrics.Metrics
	Logger      *logger.Logger
	Now         func() time.Time
}

// Resolver assigns a role once per identity and keeps lastLogin fresh.
type Resolver struct {
	users    userStore
	provider providerSessions
	sessions userSessions
	admins   map[string]struct{}
	metrics  *metrics.Metrics
	logg     *logger.Logger
	now      func() time.Time
	flight   singleflight.Group
}

func NewResolver(params ResolverParams) (*Resolver, error) {
	if params.Users == nil {
		return nil, fmt.Errorf("users store is required")
	}
	if params.Provider == nil {
		return nil, fmt.Errorf("identity provider is required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	admins := make(map[string]struct{}, len(params.AdminEmails))
	for _, email := range params.AdminEmails {
		if e := normalizeEmail(email); e != "" {
			admins[e] = struct{}{}
		}
	}
	return &Resolver{
		users:    params.Users,
		provider: params.Provider,
		sessions: params.Sessions,
		admins:   admins,
		metrics:  params.Metrics,
		logg:     params.Logger,
		now:      now,
	}, nil
}

// Resolve maps id to its role. Concurrent calls for one identity share a
// single store round trip.
func (r *Resolver) Resolve(ctx context.Context, id *identity.Identity) (Resolution, error) {
	if id == nil {
		return Resolution{}, nil
	}
	start := r.now()
	v, err, _ := r.flight.Do(id.UID, func() (any, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), resolveTimeout)
		defer cancel()
		return r.resolve(shared, *id)
	})
	res, _ := v.(Resolution)
	if err != nil {
		res = Resolution{Identity: id, Outcome: OutcomeError}
	}
	r.metrics.ObserveResolution(res.Outcome, r.now().Sub(start))
	return res, err
}

func (r *Resolver) resolve(ctx context.Context, id identity.Identity) (Resolution, error) {
	ctx = r.logg.WithUserID(ctx, id.UID)

	rec, err := r.users.Get(ctx, id.UID)
	switch {
	case err == nil:
		return r.returning(ctx, id, rec)
	case errors.Is(err, repo.ErrNotFound):
		return r.firstSignIn(ctx, id)
	default:
		r.logg.Error(ctx, "auth.role.read_failed", err)
		return Resolution{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve role")
	}
}

func (r *Resolver) returning(ctx context.Context, id identity.Identity, rec *users.Record) (Resolution, error) {
	if rec.Banned() {
		r.signOut(ctx, id.UID)
		r.logg.Info(ctx, "auth.role.banned_sign_in")
		return Resolution{Banned: true, Outcome: OutcomeBanned}, nil
	}
	if err := r.users.TouchLastLogin(ctx, id.UID, r.now().UTC()); err != nil {
		r.logg.Error(ctx, "auth.role.touch_failed", err)
		return Resolution{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve role")
	}
	return Resolution{Identity: &id, Role: rec.Role, Outcome: OutcomeReturning}, nil
}

func (r *Resolver) firstSignIn(ctx context.Context, id identity.Identity) (Resolution, error) {
	role := r.classify(id.Email)
	now := r.now().UTC()
	created, err := r.users.CreateIfAbsent(ctx, users.Record{
		ID:          id.UID,
		Email:       id.Email,
		DisplayName: id.DisplayName,
		PhotoURL:    id.PhotoURL,
		Role:        role,
		Status:      enums.UserStatusActive,
		CreatedAt:   now,
		LastLogin:   now,
	})
	if err != nil {
		r.logg.Error(ctx, "auth.role.create_failed", err)
		return Resolution{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve role")
	}
	if created {
		r.logg.Info(r.logg.WithRole(ctx, string(role)), "auth.role.assigned")
		return Resolution{Identity: &id, Role: role, Outcome: OutcomeCreated}, nil
	}

	// another writer created the record first; its role wins
	rec, err := r.users.Get(ctx, id.UID)
	if err != nil {
		r.logg.Error(ctx, "auth.role.reread_failed", err)
		return Resolution{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve role")
	}
	if rec.Banned() {
		r.signOut(ctx, id.UID)
		return Resolution{Banned: true, Outcome: OutcomeBanned}, nil
	}
	return Resolution{Identity: &id, Role: rec.Role, Outcome: OutcomeRaced}, nil
}

// classify consults the admin allowlist. Only first sign-ins reach it.
func (r *Resolver) classify(email string) enums.Role {
	if _, ok := r.admins[normalizeEmail(email)]; ok {
		return enums.RoleAdmin
	}
	return enums.RoleUser
}

func (r *Resolver) signOut(ctx context.Context, uid string) {
	if err := r.provider.RevokeSessions(ctx, uid); err != nil {
		r.logg.Warn(ctx, "auth.signout.provider_failed: "+err.Error())
	}
	if err := r.sessions.RevokeUser(ctx, uid); err != nil {
		r.logg.Warn(ctx, "auth.signout.sessions_failed: "+err.Error())
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
