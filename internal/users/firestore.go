package users

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/jgechelper/backend/internal/repo"
	"github.com/jgechelper/backend/pkg/enums"
	"github.com/jgechelper/backend/pkg/firebase"
)

const collection = "users"

type userDoc struct {
	Email       string    `firestore:"email"`
	DisplayName string    `firestore:"displayName"`
	PhotoURL    string    `firestore:"photoURL"`
	Role        string    `firestore:"role"`
	Status      string    `firestore:"status,omitempty"`
	CreatedAt   time.Time `firestore:"createdAt"`
	LastLogin   time.Time `firestore:"lastLogin"`
}

// FirestoreRepository stores users as users/{uid} documents.
type FirestoreRepository struct {
	client *firestore.Client
}

func NewFirestoreRepository(client *firestore.Client) *FirestoreRepository {
	return &FirestoreRepository{client: client}
}

func (r *FirestoreRepository) Get(ctx context.Context, id string) (*Record, error) {
	snap, err := r.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		if firebase.IsNotFound(err) {
			return nil, repo.ErrNotFound
		}
		return nil, err
	}
	rec, err := decode(snap)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// CreateIfAbsent relies on Create failing with AlreadyExists.
func (r *FirestoreRepository) CreateIfAbsent(ctx context.Context, rec Record) (bool, error) {
	doc := userDoc{
		Email:       rec.Email,
		DisplayName: rec.DisplayName,
		PhotoURL:    rec.PhotoURL,
		Role:        string(rec.Role),
		Status:      string(rec.Status),
		CreatedAt:   rec.CreatedAt,
		LastLogin:   rec.LastLogin,
	}
	if _, err := r.client.Collection(collection).Doc(rec.ID).Create(ctx, doc); err != nil {
		if firebase.IsAlreadyExists(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *FirestoreRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	_, err := r.client.Collection(collection).Doc(id).Set(ctx, map[string]any{"lastLogin": at}, firestore.MergeAll)
	return err
}

func (r *FirestoreRepository) List(ctx context.Context) ([]Record, error) {
	snaps, err := r.client.Collection(collection).Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(snaps))
	for _, snap := range snaps {
		rec, err := decode(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *FirestoreRepository) SetStatus(ctx context.Context, id string, status enums.UserStatus) error {
	_, err := r.client.Collection(collection).Doc(id).Update(ctx, []firestore.Update{{Path: "status", Value: string(status)}})
	if firebase.IsNotFound(err) {
		return repo.ErrNotFound
	}
	return err
}

func (r *FirestoreRepository) Count(ctx context.Context) (int64, error) {
	return firebase.Count(ctx, r.client.Collection(collection).Query)
}

func decode(snap *firestore.DocumentSnapshot) (Record, error) {
	var doc userDoc
	if err := snap.DataTo(&doc); err != nil {
		return Record{}, err
	}
	return Record{
		ID:          snap.Ref.ID,
		Email:       doc.Email,
		DisplayName: doc.DisplayName,
		PhotoURL:    doc.PhotoURL,
		Role:        enums.Role(doc.Role),
		Status:      enums.UserStatus(doc.Status).Normalize(),
		CreatedAt:   doc.CreatedAt,
		LastLogin:   doc.LastLogin,
	}, nil
}
