package resources

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

// CreateRequest is the metadata saved after the file has been uploaded.
type CreateRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Subject     string `json:"subject" validate:"required,max=200"`
	Branch      string `json:"branch" validate:"required,branch"`
	Semester    string `json:"semester" validate:"required,semester"`
	Type        string `json:"type" validate:"required,resource_type"`
	DownloadURL string `json:"download_url" validate:"required,url"`
	FileName    string `json:"file_name" validate:"omitempty,max=255"`
	StoragePath string `json:"storage_path" validate:"omitempty,max=1024"`
}

// ListQuery selects one branch/semester section of the public library.
type ListQuery struct {
	Branch   string
	Semester string
	Q        string
}

// Catalog lists the selectable library sections.
type Catalog struct {
	Branches  []BranchEntry        `json:"branches"`
	Semesters []string             `json:"semesters"`
	Types     []enums.ResourceType `json:"types"`
}

type BranchEntry struct {
	Code enums.Branch `json:"code"`
	Name string       `json:"name"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Resource, error)
	ListAll(ctx context.Context) ([]Resource, error)
	ToggleVisibility(ctx context.Context, id string) (*Resource, error)
	Delete(ctx context.Context, id string) error
	ListPublic(ctx context.Context, q ListQuery) ([]Resource, error)
	Catalog() Catalog
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
		return nil, fmt.Errorf("resources repository is required")
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

func (s *service) Create(ctx context.Context, req CreateRequest) (*Resource, error) {
	branch, err := enums.ParseBranch(strings.TrimSpace(req.Branch))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown branch")
	}
	semester := strings.TrimSpace(req.Semester)
	if !enums.IsValidSemester(semester) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown semester")
	}
	kind, err := enums.ParseResourceType(strings.TrimSpace(req.Type))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown resource type")
	}
	title, subject := strings.TrimSpace(req.Title), strings.TrimSpace(req.Subject)
	if title == "" || subject == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title and subject are required")
	}

	res := Resource{
		ID:          uuid.NewString(),
		Title:       title,
		Subject:     subject,
		Branch:      branch,
		Semester:    semester,
		Type:        kind,
		DownloadURL: strings.TrimSpace(req.DownloadURL),
		FileName:    strings.TrimSpace(req.FileName),
		StoragePath: strings.TrimSpace(req.StoragePath),
		Visible:     true,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.repo.Create(ctx, res); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save resource")
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"resource_id": res.ID,
		"branch":      string(res.Branch),
		"semester":    res.Semester,
	}), "resources.created")
	return &res, nil
}

func (s *service) ListAll(ctx context.Context) ([]Resource, error) {
	out, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list resources")
	}
	return out, nil
}

// ToggleVisibility hides a visible resource and shows a hidden one. A
// resource that never recorded visibility counts as visible.
func (s *service) ToggleVisibility(ctx context.Context, id string) (*Resource, error) {
	res, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	next := !res.Visible
	if err := s.repo.SetVisible(ctx, id, next); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "resource not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update resource visibility")
	}
	res.Visible = next
	return res, nil
}

// Delete removes the record first; the stored file is cleaned up best effort.
func (s *service) Delete(ctx context.Context, id string) error {
	res, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "resource not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete resource")
	}
	ctx = s.logg.WithField(ctx, "resource_id", id)
	s.logg.Info(ctx, "resources.deleted")
	removeBlob(ctx, s.blobs, s.logg, res.StoragePath, res.DownloadURL)
	return nil
}

func (s *service) ListPublic(ctx context.Context, q ListQuery) ([]Resource, error) {
	branch, err := enums.ParseBranch(strings.TrimSpace(q.Branch))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown branch")
	}
	semester := strings.TrimSpace(q.Semester)
	if !enums.IsValidSemester(semester) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown semester")
	}

	rows, err := s.repo.ListSection(ctx, branch, semester)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list resources")
	}
	needle := strings.ToLower(strings.TrimSpace(q.Q))
	out := make([]Resource, 0, len(rows))
	for _, res := range rows {
		if !res.Visible {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(res.Title), needle) &&
			!strings.Contains(strings.ToLower(res.Subject), needle) {
			continue
		}
		out = append(out, res)
	}
	return out, nil
}

func (s *service) Catalog() Catalog {
	branches := enums.Branches()
	entries := make([]BranchEntry, 0, len(branches))
	for _, b := range branches {
		entries = append(entries, BranchEntry{Code: b, Name: b.DisplayName()})
	}
	return Catalog{
		Branches:  entries,
		Semesters: enums.Semesters(),
		Types:     enums.ResourceTypes(),
	}
}

func (s *service) load(ctx context.Context, id string) (*Resource, error) {
	if strings.TrimSpace(id) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "resource id is required")
	}
	res, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "resource not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load resource")
	}
	return res, nil
}

// removeBlob deletes the stored object behind a record. Failures are logged.
func removeBlob(ctx context.Context, blobs blobDeleter, logg *logger.Logger, path, downloadURL string) {
	if blobs == nil {
		return
	}
	if path == "" {
		path = gcs.PathFromDownloadURL(blobs.Bucket(), downloadURL)
	}
	if path == "" {
		return
	}
	if err := blobs.Delete(ctx, path); err != nil && !errors.Is(err, gcs.ErrObjectNotFound) {
		logg.Warn(logg.WithField(ctx, "path", path), "resources.blob_delete_failed: "+err.Error())
	}
}
