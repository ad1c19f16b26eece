package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jgechelper/backend/pkg/db"
)

var (
	// ErrNotFound is returned by every store backend when a record is absent.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists marks a create that lost to an existing record.
	ErrAlreadyExists = errors.New("record already exists")
)

// Base provides a shared foundation for gorm-backed repositories.
type Base struct {
	db *gorm.DB
}

// NewBase constructs a Base repository backed by the provided GORM connection.
func NewBase(conn *gorm.DB) Base {
	return Base{db: conn}
}

// DB returns the GORM connection bound to the supplied context (if any).
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// InsertIfAbsent inserts value unless its primary key already exists and
// reports whether the row was written. A clash on any other unique column
// maps onto ErrAlreadyExists.
func (b Base) InsertIfAbsent(ctx context.Context, value any) (bool, error) {
	res := b.DB(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(value)
	if res.Error != nil {
		if db.IsUniqueViolation(res.Error, "") {
			return false, ErrAlreadyExists
		}
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// First loads the row matching id into dest, mapping a miss onto ErrNotFound.
func (b Base) First(ctx context.Context, dest any, id string) error {
	err := b.DB(ctx).First(dest, "id = ?", id).Error
	if db.IsNotFound(err) {
		return ErrNotFound
	}
	return err
}

// Count returns the number of rows in model's table.
func (b Base) Count(ctx context.Context, model any) (int64, error) {
	var n int64
	if err := b.DB(ctx).Model(model).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
