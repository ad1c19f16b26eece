package users

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jgechelper/backend/internal/repo"
	"github.com/jgechelper/backend/pkg/enums"
	pkgerrors "github.com/jgechelper/backend/pkg/errors"
	"github.com/jgechelper/backend/pkg/logger"
)

// Sort orders accepted by List.
const (
	SortNewest = "newest"
	SortOldest = "oldest"
	SortName   = "name"
	SortStatus = "status"
)

// Summary is the admin-facing view of a user record.
type Summary struct {
	ID          string           `json:"id"`
	Email       string           `json:"email"`
	DisplayName string           `json:"display_name"`
	Name        string           `json:"name"`
	PhotoURL    string           `json:"photo_url,omitempty"`
	Role        enums.Role       `json:"role"`
	Status      enums.UserStatus `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
	LastLogin   time.Time        `json:"last_login"`
}

// Service backs the admin users page.
type Service interface {
	List(ctx context.Context, sortBy string) ([]Summary, error)
	SetStatus(ctx context.Context, actorID, targetID string, status enums.UserStatus) (*Summary, error)
}

type providerSessions interface {
	RevokeSessions(ctx context.Context, uid string) error
}

type appSessions interface {
	RevokeUser(ctx context.Context, userID string) error
	RestoreUser(ctx context.Context, userID string) error
}

type ServiceParams struct {
	Repo     Repository
	Provider providerSessions
	Sessions appSessions
	Logger   *logger.Logger
}

type service struct {
	repo     Repository
	provider providerSessions
	sessions appSessions
	logg     *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("users repository is required")
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
	return &service{
		repo:     params.Repo,
		provider: params.Provider,
		sessions: params.Sessions,
		logg:     params.Logger,
	}, nil
}

func (s *service) List(ctx context.Context, sortBy string) ([]Summary, error) {
	sortBy = strings.ToLower(strings.TrimSpace(sortBy))
	if sortBy == "" {
		sortBy = SortNewest
	}
	less, ok := sorters[sortBy]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sort must be one of newest, oldest, name, status")
	}

	records, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list users")
	}
	out := make([]Summary, 0, len(records))
	for _, rec := range records {
		out = append(out, ToSummary(rec))
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out, nil
}

func (s *service) SetStatus(ctx context.Context, actorID, targetID string, status enums.UserStatus) (*Summary, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "status must be active or banned")
	}
	if strings.TrimSpace(targetID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if actorID == targetID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "you cannot change your own status")
	}

	rec, err := s.repo.Get(ctx, targetID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	if rec.Role == enums.RoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin accounts cannot be banned")
	}

	if err := s.repo.SetStatus(ctx, targetID, status); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update user status")
	}
	rec.Status = status

	ctx = s.logg.WithFields(ctx, map[string]any{"target_user_id": targetID, "status": string(status)})
	if status == enums.UserStatusBanned {
		if err := s.sessions.RevokeUser(ctx, targetID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke app sessions")
		}
		if err := s.provider.RevokeSessions(ctx, targetID); err != nil {
			// the status write already blocks the next resolution
			s.logg.Warn(ctx, "users.ban.provider_revoke_failed: "+err.Error())
		}
		s.logg.Info(ctx, "auth.user.banned")
	} else {
		if err := s.sessions.RestoreUser(ctx, targetID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restore app sessions")
		}
		s.logg.Info(ctx, "auth.user.unbanned")
	}

	summary := ToSummary(*rec)
	return &summary, nil
}

// ToSummary converts a record, filling Name from the email local part when
// the display name is empty.
func ToSummary(rec Record) Summary {
	return Summary{
		ID:          rec.ID,
		Email:       rec.Email,
		DisplayName: rec.DisplayName,
		Name:        displayName(rec),
		PhotoURL:    rec.PhotoURL,
		Role:        rec.Role,
		Status:      rec.Status.Normalize(),
		CreatedAt:   rec.CreatedAt,
		LastLogin:   rec.LastLogin,
	}
}

func displayName(rec Record) string {
	if name := strings.TrimSpace(rec.DisplayName); name != "" {
		return name
	}
	local, _, _ := strings.Cut(rec.Email, "@")
	return local
}

var sorters = map[string]func(a, b Summary) bool{
	SortNewest: func(a, b Summary) bool { return a.CreatedAt.After(b.CreatedAt) },
	SortOldest: func(a, b Summary) bool { return a.CreatedAt.Before(b.CreatedAt) },
	SortName: func(a, b Summary) bool {
		return strings.ToLower(a.Name) < strings.ToLower(b.Name)
	},
	SortStatus: func(a, b Summary) bool {
		return string(a.Role)+string(a.Status) < string(b.Role)+string(b.Status)
	},
}
