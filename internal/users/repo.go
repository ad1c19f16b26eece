package users

import (
	"context"
	"time"

	"github.com/jgechelper/backend/internal/repo"
	"github.com/jgechelper/backend/pkg/db/models"
	"github.com/jgechelper/backend/pkg/enums"
	"gorm.io/gorm"
)

// SQLRepository stores users in the users table.
type SQLRepository struct {
	repo.Base
}

// NewSQLRepository constructs a users repo bound to the provided GORM DB.
func NewSQLRepository(db *gorm.DB) *SQLRepository {
	return &SQLRepository{Base: repo.NewBase(db)}
}

func (r *SQLRepository) Get(ctx context.Context, id string) (*Record, error) {
	var m models.User
	if err := r.First(ctx, &m, id); err != nil {
		return nil, err
	}
	rec := fromModel(m)
	return &rec, nil
}

func (r *SQLRepository) CreateIfAbsent(ctx context.Context, rec Record) (bool, error) {
	m := toModel(rec)
	return r.InsertIfAbsent(ctx, &m)
}

func (r *SQLRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	res := r.DB(ctx).Model(&models.User{}).Where("id = ?", id).UpdateColumn("last_login", at.UTC())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *SQLRepository) List(ctx context.Context) ([]Record, error) {
	var rows []models.User
	if err := r.DB(ctx).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(rows))
	for _, m := range rows {
		out = append(out, fromModel(m))
	}
	return out, nil
}

func (r *SQLRepository) SetStatus(ctx context.Context, id string, status enums.UserStatus) error {
	res := r.DB(ctx).Model(&models.User{}).Where("id = ?", id).UpdateColumn("status", string(status))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *SQLRepository) Count(ctx context.Context) (int64, error) {
	return r.Base.Count(ctx, &models.User{})
}

func toModel(rec Record) models.User {
	return models.User{
		ID:          rec.ID,
		Email:       rec.Email,
		DisplayName: rec.DisplayName,
		PhotoURL:    rec.PhotoURL,
		Role:        string(rec.Role),
		Status:      string(rec.Status.Normalize()),
		CreatedAt:   rec.CreatedAt.UTC(),
		LastLogin:   rec.LastLogin.UTC(),
	}
}

func fromModel(m models.User) Record {
	return Record{
		ID:          m.ID,
		Email:       m.Email,
		DisplayName: m.DisplayName,
		PhotoURL:    m.PhotoURL,
		Role:        enums.Role(m.Role),
		Status:      enums.UserStatus(m.Status).Normalize(),
		CreatedAt:   m.CreatedAt,
		LastLogin:   m.LastLogin,
	}
}
