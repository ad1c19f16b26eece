package notices

import (
	"context"
	"time"

	"github.com/jgechelper/backend/pkg/enums"
)

// Notice is a board announcement with an optional attachment.
type Notice struct {
	ID             string               `json:"id"`
	Title          string               `json:"title"`
	Category       enums.NoticeCategory `json:"category"`
	Description    string               `json:"description"`
	Priority       enums.NoticePriority `json:"priority"`
	Visible        bool                 `json:"visible"`
	AttachmentURL  string               `json:"attachment_url,omitempty"`
	AttachmentName string               `json:"attachment_name,omitempty"`
	StoragePath    string               `json:"storage_path,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
}

// Repository is implemented by the Firestore and SQL backends. Lists are
// newest first.
type Repository interface {
	Create(ctx context.Context, n Notice) error
	Get(ctx context.Context, id string) (*Notice, error)
	List(ctx context.Context) ([]Notice, error)
	Recent(ctx context.Context, limit int) ([]Notice, error)
	SetVisible(ctx context.Context, id string, visible bool) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
}
