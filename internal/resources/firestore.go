package resources

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/jgechelper/backend/internal/repo"
	"github.com/jgechelper/backend/pkg/enums"
	"github.com/jgechelper/backend/pkg/firebase"
)

const collection = "resources"

// resourceDoc keeps the field names the web client writes. Visible is a
// pointer because older documents omit it.
type resourceDoc struct {
	Title       string    `firestore:"title"`
	Subject     string    `firestore:"subject"`
	Branch      string    `firestore:"branch"`
	Semester    string    `firestore:"semester"`
	Type        string    `firestore:"type"`
	DownloadURL string    `firestore:"downloadURL"`
	FileName    string    `firestore:"fileName,omitempty"`
	StoragePath string    `firestore:"storagePath,omitempty"`
	Visible     *bool     `firestore:"visible,omitempty"`
	CreatedAt   time.Time `firestore:"createdAt"`
}

type FirestoreRepository struct {
	client *firestore.Client
}

func NewFirestoreRepository(client *firestore.Client) *FirestoreRepository {
	return &FirestoreRepository{client: client}
}

func (r *FirestoreRepository) Create(ctx context.Context, res Resource) error {
	visible := res.Visible
	doc := resourceDoc{
		Title:       res.Title,
		Subject:     res.Subject,
		Branch:      string(res.Branch),
		Semester:    res.Semester,
		Type:        string(res.Type),
		DownloadURL: res.DownloadURL,
		FileName:    res.FileName,
		StoragePath: res.StoragePath,
		Visible:     &visible,
		CreatedAt:   res.CreatedAt,
	}
	_, err := r.client.Collection(collection).Doc(res.ID).Create(ctx, doc)
	if firebase.IsAlreadyExists(err) {
		return repo.ErrAlreadyExists
	}
	return err
}

func (r *FirestoreRepository) Get(ctx context.Context, id string) (*Resource, error) {
	snap, err := r.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		if firebase.IsNotFound(err) {
			return nil, repo.ErrNotFound
		}
		return nil, err
	}
	res, err := decode(snap)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *FirestoreRepository) List(ctx context.Context) ([]Resource, error) {
	return r.find(ctx, r.client.Collection(collection).Query)
}

func (r *FirestoreRepository) ListSection(ctx context.Context, branch enums.Branch, semester string) ([]Resource, error) {
	q := r.client.Collection(collection).
		Where("branch", "==", string(branch)).
		Where("semester", "==", semester)
	return r.find(ctx, q)
}

func (r *FirestoreRepository) Recent(ctx context.Context, limit int) ([]Resource, error) {
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

func (r *FirestoreRepository) find(ctx context.Context, q firestore.Query) ([]Resource, error) {
	snaps, err := q.OrderBy("createdAt", firestore.Desc).Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	out := make([]Resource, 0, len(snaps))
	for _, snap := range snaps {
		res, err := decode(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}

func decode(snap *firestore.DocumentSnapshot) (Resource, error) {
	var doc resourceDoc
	if err := snap.DataTo(&doc); err != nil {
		return Resource{}, err
	}
	return Resource{
		ID:          snap.Ref.ID,
		Title:       doc.Title,
		Subject:     doc.Subject,
		Branch:      enums.Branch(doc.Branch),
		Semester:    doc.Semester,
		Type:        enums.ResourceType(doc.Type),
		DownloadURL: doc.DownloadURL,
		FileName:    doc.FileName,
		StoragePath: doc.StoragePath,
		Visible:     doc.Visible == nil || *doc.Visible,
		CreatedAt:   doc.CreatedAt,
	}, nil
}
