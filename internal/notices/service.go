package notices

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jgechelper/backend/internal/repo"
	"github.com/jgechelper/backend/pkg/enums"
	pkgerrors "github.com/jgechelper/backend/pkg/errors"
	"github.com/jgechelper/backend/pkg/logger"
	"github.com/jgechelper/backend/pkg/storage/gcs"
)

type CreateRequest struct {
	Title          string `json:"title" validate:"required,max=200"`
	Category       string `json:"category" validate:"notice_category"`
	Description    string `json:"description" validate:"required"`
	AttachmentURL  string `json:"attachment_url" validate:"omitempty,url"`
	AttachmentName string `json:"attachment_name" validate:"omitempty,max=255"`
	StoragePath    string `json:"storage_path" validate:"omitempty,max=1024"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Notice, error)
	ListAll(ctx context.Context) ([]Notice, error)
	ListPublic(ctx context.Context) ([]Notice, error)
	ToggleVisibility(ctx context.Context, id string) (*Notice, error)
	Delete(ctx context.Context, id string) error
}

type blobDeleter interface {
	Bucket() string
	Delete(ctx context.Context, path string) error
}

type ServiceParams struct {
	Repo   Repository
	Blobs  blobDeleter
	Logger *logger.Logger
	Now    func() time.Time
}

type service struct {
	repo  Repository
	blobs blobDeleter
	logg  *logger.Logger
	now   func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("notices repository is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{repo: params.Repo, blobs: params.Blobs, logg: params.Logger, now: now}, nil
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*Notice, error) {
	title, desc := strings.TrimSpace(req.Title), strings.TrimSpace(req.Description)
	if title == "" || desc == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title and description are required")
	}
	category, err := enums.ParseNoticeCategory(strings.TrimSpace(req.Category))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown notice category")
	}

	n := Notice{
		ID:             uuid.NewString(),
		Title:          title,
		Category:       category,
		Description:    desc,
		Priority:       category.Priority(),
		Visible:        true,
		AttachmentURL:  strings.TrimSpace(req.AttachmentURL),
		AttachmentName: strings.TrimSpace(req.AttachmentName),
		StoragePath:    strings.TrimSpace(req.StoragePath),
		CreatedAt:      s.now().UTC(),
	}
	if n.AttachmentURL == "" {
		n.AttachmentName, n.StoragePath = "", ""
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save notice")
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"notice_id": n.ID,
		"category":  string(n.Category),
	}), "notices.created")
	return &n, nil
}

func (s *service) ListAll(ctx context.Context) ([]Notice, error) {
	out, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notices")
	}
	return out, nil
}

func (s *service) ListPublic(ctx context.Context) ([]Notice, error) {
	all, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, n := range all {
		if n.Visible {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *service) ToggleVisibility(ctx context.Context, id string) (*Notice, error) {
	n, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	next := !n.Visible
	if err := s.repo.SetVisible(ctx, id, next); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "notice not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update notice visibility")
	}
	n.Visible = next
	return n, nil
}

func (s *service) Delete(ctx context.Context, id string) error {
	n, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "notice not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete notice")
	}
	ctx = s.logg.WithField(ctx, "notice_id", id)
	s.logg.Info(ctx, "notices.deleted")

	if s.blobs == nil || n.AttachmentURL == "" {
		return nil
	}
	path := n.StoragePath
	if path == "" {
		path = gcs.PathFromDownloadURL(s.blobs.Bucket(), n.AttachmentURL)
	}
	if path == "" {
		return nil
	}
	if err := s.blobs.Delete(ctx, path); err != nil && !errors.Is(err, gcs.ErrObjectNotFound) {
		s.logg.Warn(s.logg.WithField(ctx, "path", path), "notices.attachment_delete_failed: "+err.Error())
	}
	return nil
}

func (s *service) load(ctx context.Context, id string) (*Notice, error) {
	if strings.TrimSpace(id) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "notice id is required")
	}
	n, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "notice not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load notice")
	}
	return n, nil
}
