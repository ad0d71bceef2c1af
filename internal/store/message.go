package store

import (
	"time"

	"wisp/backend/internal/models"

	"gorm.io/gorm"
)

// MessageStore persists direct messages. It is the durable record of a
// conversation; realtime fan-out is only an optimization on top of it.
type MessageStore struct {
	db *gorm.DB
}

func NewMessageStore(db *gorm.DB) *MessageStore {
	return &MessageStore{db: db}
}

// Create persists a new message and fills in its id and timestamps.
func (s *MessageStore) Create(message *models.Message) error {
	return s.db.Create(message).Error
}

// FindBetween returns the most recent messages exchanged between two users,
// in chronological order. A limit <= 0 returns the full history.
func (s *MessageStore) FindBetween(a, b uint, limit int) ([]models.Message, error) {
	query := s.db.
		Where("(sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)", a, b, b, a).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var messages []models.Message
	if err := query.Find(&messages).Error; err != nil {
		return nil, err
	}

	// Reverse into chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// MarkReadBulk flips every unread message from sender to recipient to read in
// a single update. The is_read filter is evaluated at execution time, so
// messages created after this call remain unread regardless of interleaving.
func (s *MessageStore) MarkReadBulk(senderID, recipientID uint) (time.Time, int64, error) {
	readAt := time.Now()
	result := s.db.Model(&models.Message{}).
		Where("sender_id = ? AND recipient_id = ? AND is_read = ?", senderID, recipientID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": readAt})
	return readAt, result.RowsAffected, result.Error
}
