package store

import (
	stderrors "errors"
	"time"

	"wisp/backend/internal/models"
	"wisp/backend/pkg/errors"

	"gorm.io/gorm"
)

// UserStore looks up user records and persists presence changes onto them.
type UserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

// Get returns the user with the given id, or errors.ErrUserNotFound.
func (s *UserStore) Get(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// SetPresence updates the online flag and last-seen timestamp on the user
// row. Updating a user that does not exist affects zero rows and is not an
// error, matching the registry's idempotency contract.
func (s *UserStore) SetPresence(userID uint, online bool, lastSeen time.Time) error {
	return s.db.Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{"is_online": online, "last_seen": lastSeen}).Error
}
