package models

import "time"

// User mirrors the users/{uid} document for the SQL backend.
type User struct {
	ID          string    `gorm:"column:id;type:text;primaryKey"`
	Email       string    `gorm:"column:email;type:text;not null;index"`
	DisplayName string    `gorm:"column:display_name;type:text"`
	PhotoURL    string    `gorm:"column:photo_url;type:text"`
	Role        string    `gorm:"column:role;type:text;not null"`
	Status      string    `gorm:"column:status;type:text;not null;default:active"`
	CreatedAt   time.Time `gorm:"column:created_at;not null"`
	LastLogin   time.Time `gorm:"column:last_login;not null"`
}

func (User) TableName() string { return "users" }
