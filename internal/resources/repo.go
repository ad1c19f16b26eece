package resources

import (
	"context"

	"github.com/jgechelper/backend/internal/repo"
	"github.com/jgechelper/backend/pkg/db/models"
	"github.com/jgechelper/backend/pkg/enums"
	"gorm.io/gorm"
)

// SQLRepository stores resources in the resources table.
type SQLRepository struct {
	repo.Base
}

func NewSQLRepository(db *gorm.DB) *SQLRepository {
	return &SQLRepository{Base: repo.NewBase(db)}
}

func (r *SQLRepository) Create(ctx context.Context, res Resource) error {
	m := toModel(res)
	return r.DB(ctx).Create(&m).Error
}

func (r *SQLRepository) Get(ctx context.Context, id string) (*Resource, error) {
	var m models.Resource
	if err := r.First(ctx, &m, id); err != nil {
		return nil, err
	}
	res := fromModel(m)
	return &res, nil
}

func (r *SQLRepository) List(ctx context.Context) ([]Resource, error) {
	return r.find(r.DB(ctx))
}

func (r *SQLRepository) ListSection(ctx context.Context, branch enums.Branch, semester string) ([]Resource, error) {
	return r.find(r.DB(ctx).Where("branch = ? AND semester = ?", string(branch), semester))
}

func (r *SQLRepository) Recent(ctx context.Context, limit int) ([]Resource, error) {
	return r.find(r.DB(ctx).Limit(limit))
}

func (r *SQLRepository) SetVisible(ctx context.Context, id string, visible bool) error {
	res := r.DB(ctx).Model(&models.Resource{}).Where("id = ?", id).UpdateColumn("visible", visible)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *SQLRepository) Delete(ctx context.Context, id string) error {
	res := r.DB(ctx).Where("id = ?", id).Delete(&models.Resource{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *SQLRepository) Count(ctx context.Context) (int64, error) {
	return r.Base.Count(ctx, &models.Resource{})
}

func (r *SQLRepository) find(q *gorm.DB) ([]Resource, error) {
	var rows []models.Resource
	if err := q.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Resource, 0, len(rows))
	for _, m := range rows {
		out = append(out, fromModel(m))
	}
	return out, nil
}

func toModel(res Resource) models.Resource {
	return models.Resource{
		ID:          res.ID,
		Title:       res.Title,
		Subject:     res.Subject,
		Branch:      string(res.Branch),
		Semester:    res.Semester,
		Type:        string(res.Type),
		DownloadURL: res.DownloadURL,
		FileName:    res.FileName,
		StoragePath: res.StoragePath,
		Visible:     res.Visible,
		CreatedAt:   res.CreatedAt.UTC(),
	}
}

func fromModel(m models.Resource) Resource {
	return Resource{
		ID:          m.ID,
		Title:       m.Title,
		Subject:     m.Subject,
		Branch:      enums.Branch(m.Branch),
		Semester:    m.Semester,
		Type:        enums.ResourceType(m.Type),
		DownloadURL: m.DownloadURL,
		FileName:    m.FileName,
		StoragePath: m.StoragePath,
		Visible:     m.Visible,
		CreatedAt:   m.CreatedAt,
	}
}
