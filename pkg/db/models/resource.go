package models

import "time"

// Resource is a study material upload.
type Resource struct {
	ID          string    `gorm:"column:id;type:text;primaryKey"`
	Title       string    `gorm:"column:title;type:text;not null"`
	Subject     string    `gorm:"column:subject;type:text;not null"`
	Branch      string    `gorm:"column:branch;type:text;not null;index:idx_resources_branch_semester"`
	Semester    string    `gorm:"column:semester;type:text;not null;index:idx_resources_branch_semester"`
	Type        string    `gorm:"column:type;type:text;not null"`
	DownloadURL string    `gorm:"column:download_url;type:text;not null"`
	FileName    string    `gorm:"column:file_name;type:text"`
	StoragePath string    `gorm:"column:storage_path;type:text"`
	Visible     bool      `gorm:"column:visible;not null;default:true"`
	CreatedAt   time.Time `gorm:"column:created_at;not null;index"`
}

func (Resource) TableName() string { return "resources" }
