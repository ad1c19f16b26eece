package notices

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/jgechelper/backend/internal/repo"
	"github.com/jgechelper/backend/pkg/enums"
	"github.com/jgechelper/backend/pkg/firebase"
)

const collection = "notices"

type noticeDoc struct {
	Title          string    `firestore:"title"`
	Category       string    `firestore:"category"`
	Description    string    `firestore:"description"`
	Priority       string    `firestore:"priority"`
	Visible        *bool     `firestore:"visible,omitempty"`
	AttachmentURL  string    `firestore:"attachmentUrl,omitempty"`
	AttachmentName string    `firestore:"attachmentName,omitempty"`
	StoragePath    string    `firestore:"storagePath,omitempty"`
	CreatedAt      time.Time `firestore:"createdAt"`
}

type FirestoreRepository struct {
	client *firestore.Client
}

func NewFirestoreRepository(client *firestore.Client) *FirestoreRepository {
	return &FirestoreRepository{client: client}
}

func (r *FirestoreRepository) Create(ctx context.Context, n Notice) error {
	visible := n.Visible
	_, err := r.client.Collection(collection).Doc(n.ID).Create(ctx, noticeDoc{
		Title:          n.Title,
		Category:       string(n.Category),
		Description:    n.Description,
		Priority:       string(n.Priority),
		Visible:        &visible,
		AttachmentURL:  n.AttachmentURL,
		AttachmentName: n.AttachmentName,
		StoragePath:    n.StoragePath,
		CreatedAt:      n.CreatedAt,
	})
	if firebase.IsAlreadyExists(err) {
		return repo.ErrAlreadyExists
	}
	return err
}

func (r *FirestoreRepository) Get(ctx context.Context, id string) (*Notice, error) {
	snap, err := r.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		if firebase.IsNotFound(err) {
			return nil, repo.ErrNotFound
		}
		return nil, err
	}
	n, err := decode(snap)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *FirestoreRepository) List(ctx context.Context) ([]Notice, error) {
	return r.find(ctx, r.client.Collection(collection).Query)
}

func (r *FirestoreRepository) Recent(ctx context.Context, limit int) ([]Notice, error) {
	return r.find(ctx, r.client.Collection(collection).Limit(limit))
}

func (r *FirestoreRepository) SetVisible(ctx context.Context, id string, visible bool) error {
	_, err := r.client.Collection(collection).Doc(id).Update(ctx, []firestore.Update{{Path: "visible", Value: visible}})
	if firebase.IsNotFound(err) {
		return repo.ErrNotFound
	}
	return err
}

func (r *FirestoreRepository) Delete(ctx context.Context, id string) error {
	_, err := r.client.Collection(collection).Doc(id).Delete(ctx, firestore.Exists)
	if firebase.IsNotFound(err) {
		return repo.ErrNotFound
	}
	return err
}

func (r *FirestoreRepository) Count(ctx context.Context) (int64, error) {
	return firebase.Count(ctx, r.client.Collection(collection).Query)
}

func (r *FirestoreRepository) find(ctx context.Context, q firestore.Query) ([]Notice, error) {
	snaps, err := q.OrderBy("createdAt", firestore.Desc).Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	out := make([]Notice, 0, len(snaps))
	for _, snap := range snaps {
		n, err := decode(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func decode(snap *firestore.DocumentSnapshot) (Notice, error) {
	var doc noticeDoc
	if err := snap.DataTo(&doc); err != nil {
		return Notice{}, err
	}
	category := enums.NoticeCategory(doc.Category)
	if category == "" {
		category = enums.NoticeCategoryGeneral
	}
	priority := enums.NoticePriority(doc.Priority)
	if priority == "" {
		priority = category.Priority()
	}
	return Notice{
		ID:             snap.Ref.ID,
		Title:          doc.Title,
		Category:       category,
		Description:    doc.Description,
		Priority:       priority,
		Visible:        doc.Visible == nil || *doc.Visible,
		AttachmentURL:  doc.AttachmentURL,
		AttachmentName: doc.AttachmentName,
		StoragePath:    doc.StoragePath,
		CreatedAt:      doc.CreatedAt,
	}, nil
}
