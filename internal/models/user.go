package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a user in the system.
type User struct {
	gorm.Model
	Nickname     string `gorm:"size:255;unique;not null"`
	Email        string `gorm:"size:255;unique;not null"`
	PasswordHash string `gorm:"size:255;not null"`
	Bio          string `gorm:"size:512"`

	// AvatarPath is an opaque reference into the blob-storage service;
	// this backend never reads or writes the file itself.
	AvatarPath string `gorm:"size:512"`

	// Presence fields. Only the presence registry writes these.
	IsOnline bool `gorm:"not null;default:false;index"`
	LastSeen *time.Time
}
