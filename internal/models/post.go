package models

import (
	"time"

	"gorm.io/gorm"
)

// Post represents an ephemeral post. Every post carries an expiry; the feed
// only serves unexpired rows and a background sweeper removes the rest.
type Post struct {
	gorm.Model
	UserID  uint   `gorm:"not null;index"`
	Content string `gorm:"not null"`

	// MediaPath references the blob-storage service.
	MediaPath string `gorm:"size:512"`
	MediaType string `gorm:"size:50"`

	ExpiresAt time.Time `gorm:"not null;index"`

	User User `gorm:"foreignKey:UserID"`
}
