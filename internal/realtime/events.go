package realtime

import (
	"encoding/json"
	"time"

	"wisp/backend/internal/models"
)

// Client -> server events.
const (
	EventUserConnected    = "user-connected"
	EventJoinChat         = "join-chat"
	EventSendMessage      = "send-message"
	EventMarkMessagesRead = "mark-messages-read"
	EventTypingStart      = "typing-start"
	EventTypingStop       = "typing-stop"
	EventUserActive       = "user-active"
	EventUserInactive     = "user-inactive"
	EventUserDisconnected = "user-disconnected"
)

// Server -> client events. user-status-update lives in the presence package.
const (
	EventNewMessage            = "new-message"
	EventMessageDelivered      = "message-delivered"
	EventMessageError          = "message-error"
	EventMessagesRead          = "messages-read"
	EventUserTyping            = "user-typing"
	EventFriendRequestReceived = "friend-request-received"
	EventFriendRequestResponse = "friend-request-response"
)

// Envelope is the wire framing for client -> server events. The payload is
// decoded per event type.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ConnectPayload binds a socket to a user identity.
type ConnectPayload struct {
	UserID   uint   `json:"userId"`
	Username string `json:"username"`
}

// PairPayload addresses one direction of a conversation. Used by join-chat,
// mark-messages-read and the typing events.
type PairPayload struct {
	SenderID    uint `json:"senderId"`
	RecipientID uint `json:"recipientId"`
}

// SendMessagePayload carries a new text message.
type SendMessagePayload struct {
	SenderID    uint   `json:"senderId"`
	RecipientID uint   `json:"recipientId"`
	Content     string `json:"content"`
}

// MessagePayload is the enriched message sent as new-message.
type MessagePayload struct {
	ID            uint               `json:"id"`
	SenderID      uint               `json:"senderId"`
	SenderName    string             `json:"senderName"`
	RecipientID   uint               `json:"recipientId"`
	RecipientName string             `json:"recipientName"`
	Type          models.MessageType `json:"type"`
	Content       string             `json:"content"`
	IsRead        bool               `json:"isRead"`
	CreatedAt     time.Time          `json:"createdAt"`
}

// DeliveredPayload acknowledges a successful send to the sender alone.
type DeliveredPayload struct {
	MessageID uint      `json:"messageId"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorPayload reports a failed operation to the originating client alone.
type ErrorPayload struct {
	Error string `json:"error"`
}

// MessagesReadPayload is pushed to the original sender when the recipient
// acknowledges a conversation.
type MessagesReadPayload struct {
	RecipientID uint      `json:"recipientId"`
	ReadAt      time.Time `json:"readAt"`
}

// TypingPayload is the ephemeral user-typing broadcast.
type TypingPayload struct {
	UserID   uint `json:"userId"`
	IsTyping bool `json:"isTyping"`
}

// decodeUserID accepts either a bare id or a {"userId": n} object, since the
// presence ping events carry just a user id.
func decodeUserID(raw json.RawMessage) (uint, error) {
	var id uint
	if err := json.Unmarshal(raw, &id); err == nil && id != 0 {
		return id, nil
	}
	var payload struct {
		UserID uint `json:"userId"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return 0, err
	}
	return payload.UserID, nil
}

func newMessagePayload(message *models.Message, senderName, recipientName string) MessagePayload {
	return MessagePayload{
		ID:            message.ID,
		SenderID:      message.SenderID,
		SenderName:    senderName,
		RecipientID:   message.RecipientID,
		RecipientName: recipientName,
		Type:          message.Type,
		Content:       message.Content,
		IsRead:        message.IsRead,
		CreatedAt:     message.CreatedAt,
	}
}
