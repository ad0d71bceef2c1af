package realtime

import (
	"encoding/json"
	stderrors "errors"
	"log"
	"os"
	"strings"
	"time"

	"wisp/backend/internal/hub"
	"wisp/backend/internal/models"
	"wisp/backend/internal/presence"
	"wisp/backend/pkg/errors"
)

// FriendshipGraph answers whether two users are connected. Messaging is
// friendship-gated, so every send consults it.
type FriendshipGraph interface {
	AreFriends(a, b uint) (bool, error)
}

// MessageStore is the durable record of conversations.
type MessageStore interface {
	Create(message *models.Message) error
	FindBetween(a, b uint, limit int) ([]models.Message, error)
	MarkReadBulk(senderID, recipientID uint) (time.Time, int64, error)
}

// UserDirectory resolves user ids to records for display-name enrichment.
type UserDirectory interface {
	Get(id uint) (*models.User, error)
}

// Controller is the realtime session controller. It owns the protocol
// dispatch for every live connection and exposes the same core operations to
// the non-realtime HTTP fallback, where fan-out simply finds no subscribers.
type Controller struct {
	friends  FriendshipGraph
	messages MessageStore
	users    UserDirectory
	presence *presence.Registry
	hub      *hub.Hub
	logger   *log.Logger
}

func NewController(friends FriendshipGraph, messages MessageStore, users UserDirectory, registry *presence.Registry, h *hub.Hub) *Controller {
	return &Controller{
		friends:  friends,
		messages: messages,
		users:    users,
		presence: registry,
		hub:      h,
		logger:   log.New(os.Stdout, "[REALTIME] ", log.LstdFlags),
	}
}

// SendMessage validates, gates on friendship, persists and fans out a text
// message. Persistence is only attempted after validation succeeds, so a
// failed send leaves no partial record. The returned message carries the
// assigned id and timestamp for the delivery acknowledgment.
func (ctl *Controller) SendMessage(senderID, recipientID uint, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if senderID == 0 || recipientID == 0 || content == "" {
		return nil, errors.Validation(errors.ErrEmptyMessage)
	}

	friends, err := ctl.friends.AreFriends(senderID, recipientID)
	if err != nil {
		return nil, errors.Infrastructure(err)
	}
	if !friends {
		return nil, errors.Authorization(errors.ErrNotFriends)
	}

	sender, err := ctl.users.Get(senderID)
	if err != nil {
		return nil, wrapLookup(err)
	}
	recipient, err := ctl.users.Get(recipientID)
	if err != nil {
		return nil, wrapLookup(err)
	}

	message := &models.Message{
		SenderID:    senderID,
		RecipientID: recipientID,
		Type:        models.MessageTypeText,
		Content:     content,
	}
	if err := ctl.messages.Create(message); err != nil {
		return nil, errors.Infrastructure(err)
	}

	// Fan out after a successful persist: once to the shared pair channel and
	// once to the recipient's mailbox, which covers a recipient who has not
	// opened this conversation yet. Best-effort; the store stays authoritative.
	event := hub.Event{
		Type:    EventNewMessage,
		Payload: newMessagePayload(message, sender.Nickname, recipient.Nickname),
	}
	ctl.hub.Publish(hub.PairChannel(senderID, recipientID), event)
	ctl.hub.PublishToUser(recipientID, event)

	return message, nil
}

// MarkMessagesRead bulk-flips every unread message from sender to recipient
// and, if the original sender has a live connection, pushes a read receipt to
// it. The cutoff is the store's own execution time, so messages arriving
// after the call stay unread.
//
// The receipt goes through the sender's mailbox channel rather than the raw
// presence handle: the hub sends under its own lock, so a handle closed by a
// concurrent disconnect is simply no longer subscribed instead of a send on a
// closed channel.
func (ctl *Controller) MarkMessagesRead(senderID, recipientID uint) (time.Time, error) {
	if senderID == 0 || recipientID == 0 {
		return time.Time{}, errors.Validation(errors.ErrBadRequest)
	}

	readAt, _, err := ctl.messages.MarkReadBulk(senderID, recipientID)
	if err != nil {
		return time.Time{}, errors.Infrastructure(err)
	}

	if status, ok := ctl.presence.Lookup(senderID); ok && status.Online {
		ctl.hub.PublishToUser(senderID, hub.Event{
			Type:    EventMessagesRead,
			Payload: MessagesReadPayload{RecipientID: recipientID, ReadAt: readAt},
		})
	}

	return readAt, nil
}

// Conversation returns the chronological message history between two users.
func (ctl *Controller) Conversation(a, b uint, limit int) ([]models.Message, error) {
	messages, err := ctl.messages.FindBetween(a, b, limit)
	if err != nil {
		return nil, errors.Infrastructure(err)
	}
	return messages, nil
}

func wrapLookup(err error) error {
	if stderrors.Is(err, errors.ErrUserNotFound) {
		return err
	}
	return errors.Infrastructure(err)
}

// sendEvent delivers an event on a connection's own send channel. Only safe
// from that connection's read loop, which never outlives the channel; any
// cross-connection push must go through the hub instead.
func sendEvent(handle hub.Client, event hub.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	select {
	case handle <- data:
	default:
	}
}
