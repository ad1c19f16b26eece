package resources

import (
	"context"
	"time"

	"github.com/jgechelper/backend/pkg/enums"
)

// Resource is one uploaded study material and its metadata.
type Resource struct {
	ID          string             `json:"id"`
	Title       string             `json:"title"`
	Subject     string             `json:"subject"`
	Branch      enums.Branch       `json:"branch"`
	Semester    string             `json:"semester"`
	Type        enums.ResourceType `json:"type"`
	DownloadURL string             `json:"download_url"`
	FileName    string             `json:"file_name,omitempty"`
	StoragePath string             `json:"storage_path,omitempty"`
	Visible     bool               `json:"visible"`
	CreatedAt   time.Time          `json:"created_at"`
}

// Repository is implemented by the Firestore and SQL backends. Every list is
// ordered by CreatedAt descending.
type Repository interface {
	Create(ctx context.Context, res Resource) error
	// Get returns repo.ErrNotFound when id is unknown.
	Get(ctx context.Context, id string) (*Resource, error)
	List(ctx context.Context) ([]Resource, error)
	ListSection(ctx context.Context, branch enums.Branch, semester string) ([]Resource, error)
	Recent(ctx context.Context, limit int) ([]Resource, error)
	SetVisible(ctx context.Context, id string, visible bool) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
}
