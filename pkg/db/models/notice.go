package models

import "time"

// Notice is a board announcement.
type Notice struct {
	ID             string    `gorm:"column:id;type:text;primaryKey"`
	Title          string    `gorm:"column:title;type:text;not null"`
	Category       string    `gorm:"column:category;type:text;not null"`
	Description    string    `gorm:"column:description;type:text;not null"`
	Priority       string    `gorm:"column:priority;type:text;not null"`
	Visible        bool      `gorm:"column:visible;not null;default:true"`
	AttachmentURL  string    `gorm:"column:attachment_url;type:text"`
	AttachmentName string    `gorm:"column:attachment_name;type:text"`
	StoragePath    string    `gorm:"column:storage_path;type:text"`
	CreatedAt      time.Time `gorm:"column:created_at;not null;index"`
}

func (Notice) TableName() string { return "notices" }
