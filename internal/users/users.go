package users

import (
	"context"
	"time"

	"github.com/jgechelper/backend/pkg/enums"
)

// Record is the persisted application user keyed by identity id.
type Record struct {
	ID          string
	Email       string
	DisplayName string
	PhotoURL    string
	Role        enums.Role
	Status      enums.UserStatus
	CreatedAt   time.Time
	LastLogin   time.Time
}

// Banned reports whether the record carries the banned status.
func (r Record) Banned() bool {
	return r.Status.Normalize() == enums.UserStatusBanned
}

// Repository is implemented by the Firestore and SQL backends.
type Repository interface {
	// Get returns repo.ErrNotFound when no record exists for id.
	Get(ctx context.Context, id string) (*Record, error)
	// CreateIfAbsent writes rec unless a record with the same id exists.
	CreateIfAbsent(ctx context.Context, rec Record) (bool, error)
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
	List(ctx context.Context) ([]Record, error)
	SetStatus(ctx context.Context, id string, status enums.UserStatus) error
	Count(ctx context.Context) (int64, error)
}
