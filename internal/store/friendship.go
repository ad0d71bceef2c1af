package store

import (
	"wisp/backend/internal/models"

	"gorm.io/gorm"
)

// FriendshipStore reads the friendship graph. The messaging core only ever
// consumes the accepted projection; it never mutates edges.
type FriendshipStore struct {
	db *gorm.DB
}

func NewFriendshipStore(db *gorm.DB) *FriendshipStore {
	return &FriendshipStore{db: db}
}

// AreFriends reports whether an accepted edge exists between the two users,
// in either orientation.
func (s *FriendshipStore) AreFriends(a, b uint) (bool, error) {
	var count int64
	err := s.db.Model(&models.Friendship{}).
		Where("status = ?", models.StatusAccepted).
		Where("(requester_id = ? AND recipient_id = ?) OR (requester_id = ? AND recipient_id = ?)", a, b, b, a).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Get returns the edge between two users regardless of who requested it, or
// gorm.ErrRecordNotFound if no edge exists.
func (s *FriendshipStore) Get(a, b uint) (*models.Friendship, error) {
	var edge models.Friendship
	err := s.db.
		Where("(requester_id = ? AND recipient_id = ?) OR (requester_id = ? AND recipient_id = ?)", a, b, b, a).
		First(&edge).Error
	if err != nil {
		return nil, err
	}
	return &edge, nil
}
