package notices

import (
	"context"

	"github.com/jgechelper/backend/internal/repo"
	"github.com/jgechelper/backend/pkg/db/models"
	"github.com/jgechelper/backend/pkg/enums"
	"gorm.io/gorm"
)

type SQLRepository struct {
	repo.Base
}

func NewSQLRepository(db *gorm.DB) *SQLRepository {
	return &SQLRepository{Base: repo.NewBase(db)}
}

func (r *SQLRepository) Create(ctx context.Context, n Notice) error {
	m := models.Notice{
		ID:             n.ID,
		Title:          n.Title,
		Category:       string(n.Category),
		Description:    n.Description,
		Priority:       string(n.Priority),
		Visible:        n.Visible,
		AttachmentURL:  n.AttachmentURL,
		AttachmentName: n.AttachmentName,
		StoragePath:    n.StoragePath,
		CreatedAt:      n.CreatedAt.UTC(),
	}
	return r.DB(ctx).Create(&m).Error
}

func (r *SQLRepository) Get(ctx context.Context, id string) (*Notice, error) {
	var m models.Notice
	if err := r.First(ctx, &m, id); err != nil {
		return nil, err
	}
	n := fromModel(m)
	return &n, nil
}

func (r *SQLRepository) List(ctx context.Context) ([]Notice, error) {
	return r.find(r.DB(ctx))
}

func (r *SQLRepository) Recent(ctx context.Context, limit int) ([]Notice, error) {
	return r.find(r.DB(ctx).Limit(limit))
}

func (r *SQLRepository) SetVisible(ctx context.Context, id string, visible bool) error {
	res := r.DB(ctx).Model(&models.Notice{}).Where("id = ?", id).UpdateColumn("visible", visible)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *SQLRepository) Delete(ctx context.Context, id string) error {
	res := r.DB(ctx).Where("id = ?", id).Delete(&models.Notice{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *SQLRepository) Count(ctx context.Context) (int64, error) {
	return r.Base.Count(ctx, &models.Notice{})
}

func (r *SQLRepository) find(q *gorm.DB) ([]Notice, error) {
	var rows []models.Notice
	if err := q.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Notice, 0, len(rows))
	for _, m := range rows {
		out = append(out, fromModel(m))
	}
	return out, nil
}

func fromModel(m models.Notice) Notice {
	category := enums.NoticeCategory(m.Category)
	if category == "" {
		category = enums.NoticeCategoryGeneral
	}
	return Notice{
		ID:             m.ID,
		Title:          m.Title,
		Category:       category,
		Description:    m.Description,
		Priority:       enums.NoticePriority(m.Priority),
		Visible:        m.Visible,
		AttachmentURL:  m.AttachmentURL,
		AttachmentName: m.AttachmentName,
		StoragePath:    m.StoragePath,
		CreatedAt:      m.CreatedAt,
	}
}
