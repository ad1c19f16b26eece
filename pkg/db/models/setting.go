package models

import "time"

// Setting stores a singleton settings document as raw JSON so the
// maintenance normalizer sees the same loosely typed shape Firestore returns.
type Setting struct {
	ID        string    `gorm:"column:id;type:text;primaryKey"`
	Data      string    `gorm:"column:data;type:text;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

func (Setting) TableName() string { return "settings" }
