package models

import (
	"time"

	"gorm.io/gorm"
)

type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeImage MessageType = "image"
	MessageTypeVideo MessageType = "video"
	MessageTypeAudio MessageType = "audio"
	MessageTypeFile  MessageType = "file"
)

// Message represents a direct message between two users. Records are
// immutable after creation except for the read flag and timestamp, which
// flip false->true exactly once, in bulk, when the recipient acknowledges
// a conversation. Messages are never deleted.
type Message struct {
	gorm.Model
	SenderID    uint        `gorm:"not null;index:idx_messages_pair"`
	RecipientID uint        `gorm:"not null;index:idx_messages_pair"`
	Type        MessageType `gorm:"size:50;not null;default:'text'"`
	Content     string      `gorm:"not null"`

	// File metadata, set only for non-text messages. FilePath references
	// the blob-storage service.
	FilePath string `gorm:"size:512"`
	FileSize int64
	FileName string `gorm:"size:255"`

	IsRead bool `gorm:"not null;default:false;index"`
	ReadAt *time.Time

	Sender    User `gorm:"foreignKey:SenderID"`
	Recipient User `gorm:"foreignKey:RecipientID"`
}
