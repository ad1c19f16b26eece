package maintenance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/jgechelper/backend/internal/repo"
	"github.com/jgechelper/backend/pkg/db"
	"github.com/jgechelper/backend/pkg/db/models"
	"github.com/jgechelper/backend/pkg/firebase"
	"gorm.io/gorm"
)

const (
	settingsCollection = "settings"
	settingsDocID      = "general"
)

// Store reads and merge-writes the raw settings/general document. A nil
// value in Merge removes the field.
type Store interface {
	Load(ctx context.Context) (map[string]any, error)
	Merge(ctx context.Context, fields map[string]any) error
}

// FirestoreStore keeps the settings document in Firestore.
type FirestoreStore struct {
	client *firestore.Client
}

func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

func (s *FirestoreStore) doc() *firestore.DocumentRef {
	return s.client.Collection(settingsCollection).Doc(settingsDocID)
}

func (s *FirestoreStore) Load(ctx context.Context) (map[string]any, error) {
	snap, err := s.doc().Get(ctx)
	if err != nil {
		if firebase.IsNotFound(err) {
			return map[string]any{}, nil
		}
		return nil, err
	}
	return snap.Data(), nil
}

func (s *FirestoreStore) Merge(ctx context.Context, fields map[string]any) error {
	data := make(map[string]any, len(fields))
	for k, v := range fields {
		if v == nil {
			data[k] = firestore.Delete
			continue
		}
		data[k] = v
	}
	_, err := s.doc().Set(ctx, data, firestore.MergeAll)
	return err
}

// SQLStore keeps the settings document as JSON in the settings table.
type SQLStore struct {
	repo.Base
	conn *db.Client
	now  func() time.Time
}

func NewSQLStore(conn *db.Client) *SQLStore {
	return &SQLStore{Base: repo.NewBase(conn.DB()), conn: conn, now: time.Now}
}

func (s *SQLStore) Load(ctx context.Context) (map[string]any, error) {
	var row models.Setting
	if err := s.First(ctx, &row, settingsDocID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return map[string]any{}, nil
		}
		return nil, err
	}
	return decodeSetting(row)
}

// Merge runs its read-modify-write inside one transaction.
func (s *SQLStore) Merge(ctx context.Context, fields map[string]any) error {
	return s.conn.WithTx(ctx, func(tx *gorm.DB) error {
		var row models.Setting
		data := map[string]any{}
		err := tx.First(&row, "id = ?", settingsDocID).Error
		switch {
		case err == nil:
			if data, err = decodeSetting(row); err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			row.ID = settingsDocID
		default:
			return err
		}

		for k, v := range fields {
			if v == nil {
				delete(data, k)
				continue
			}
			data[k] = v
		}
		encoded, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("encode settings: %w", err)
		}
		row.Data = string(encoded)
		row.UpdatedAt = s.now().UTC()
		return tx.Save(&row).Error
	})
}

func decodeSetting(row models.Setting) (map[string]any, error) {
	data := map[string]any{}
	if row.Data == "" {
		return data, nil
	}
	if err := json.Unmarshal([]byte(row.Data), &data); err != nil {
		return nil, fmt.Errorf("decode settings %s: %w", row.ID, err)
	}
	return data, nil
}
