package models

import "time"

// FriendshipStatus defines the state of a relationship between two users.
type FriendshipStatus string

const (
	// StatusPending means a friend request has been sent but not yet answered.
	StatusPending FriendshipStatus = "pending"

	// StatusAccepted means the friend request was accepted, and the users are now friends.
	StatusAccepted FriendshipStatus = "accepted"

	// StatusDeclined means the recipient turned the request down.
	StatusDeclined FriendshipStatus = "declined"

	// StatusBlocked means one side blocked the other; no new requests or messages.
	StatusBlocked FriendshipStatus = "blocked"
)

// Friendship represents the relationship edge between two users.
// The primary key is a composite of (RequesterID, RecipientID); at most one
// edge exists per unordered pair, so every lookup and insert checks both
// orientations before touching the table.
type Friendship struct {
	RequesterID uint             `gorm:"primaryKey"`
	RecipientID uint             `gorm:"primaryKey"`
	Status      FriendshipStatus `gorm:"type:varchar(20);not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Requester User `gorm:"foreignKey:RequesterID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Recipient User `gorm:"foreignKey:RecipientID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}
