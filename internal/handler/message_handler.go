package handler

import (
	"net/http"
	"strconv"
	"time"
	"wisp/backend/internal/realtime"
	"wisp/backend/pkg/errors"

	"github.com/gin-gonic/gin"
)

// Chat is the realtime session controller shared with the websocket layer.
// The HTTP fallback below drives the same send/read pipeline; fan-out simply
// finds no subscribers when the parties have no live socket.
var Chat *realtime.Controller

// SendMessageInput defines the structure for the non-realtime send fallback.
type SendMessageInput struct {
	RecipientID uint   `json:"recipient_id" binding:"required" example:"2"`
	Content     string `json:"content" binding:"required" example:"hello"`
}

// MessageResponse mirrors a persisted message for HTTP clients.
type MessageResponse struct {
	ID          uint       `json:"id"`
	SenderID    uint       `json:"sender_id"`
	RecipientID uint       `json:"recipient_id"`
	Type        string     `json:"type"`
	Content     string     `json:"content"`
	IsRead      bool       `json:"is_read"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// SendMessage godoc
// @Summary      Send a direct message
// @Description  Persists and delivers a message to a friend. Fallback for clients without a live socket.
// @Tags         messages
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body SendMessageInput true "Message"
// @Success      201  {object}  MessageResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse "Sender and recipient are not friends"
// @Failure      500  {object}  ErrorResponse
// @Router       /messages [post]
func SendMessage(c *gin.Context) {
	viewerID, _ := c.Get("userID")

	var input SendMessageInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	message, err := Chat.SendMessage(viewerID.(uint), input.RecipientID, input.Content)
	if err != nil {
		c.JSON(errors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, MessageResponse{
		ID:          message.ID,
		SenderID:    message.SenderID,
		RecipientID: message.RecipientID,
		Type:        string(message.Type),
		Content:     message.Content,
		IsRead:      message.IsRead,
		CreatedAt:   message.CreatedAt,
	})
}

// GetConversation godoc
// @Summary      Get conversation history
// @Description  Returns the chronological message history with another user.
// @Tags         messages
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int  true   "Other User ID"
// @Param        limit query     int  false  "Maximum number of messages" default(50)
// @Success      200   {array}   MessageResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      401   {object}  ErrorResponse
// @Failure      500   {object}  ErrorResponse
// @Router       /messages/{id} [get]
func GetConversation(c *gin.Context) {
	viewerID, _ := c.Get("userID")
	otherUserID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 {
		limit = 50
	}

	messages, err := Chat.Conversation(viewerID.(uint), uint(otherUserID), limit)
	if err != nil {
		c.JSON(errors.HTTPStatusFromError(err), gin.H{"error": "Failed to fetch conversation"})
		return
	}

	responses := make([]MessageResponse, 0, len(messages))
	for _, m := range messages {
		responses = append(responses, MessageResponse{
			ID:          m.ID,
			SenderID:    m.SenderID,
			RecipientID: m.RecipientID,
			Type:        string(m.Type),
			Content:     m.Content,
			IsRead:      m.IsRead,
			ReadAt:      m.ReadAt,
			CreatedAt:   m.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, responses)
}

// MarkConversationRead godoc
// @Summary      Mark a conversation read
// @Description  Flips all unread messages from the given user to the authenticated user to read.
// @Tags         messages
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Sender User ID"
// @Success      200  {object}  map[string]string "{"read_at": "..."}"
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /messages/{id}/read [post]
func MarkConversationRead(c *gin.Context) {
	viewerID, _ := c.Get("userID")
	senderUserID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	readAt, err := Chat.MarkMessagesRead(uint(senderUserID), viewerID.(uint))
	if err != nil {
		c.JSON(errors.HTTPStatusFromError(err), gin.H{"error": "Failed to mark messages read"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"read_at": readAt.Format(time.RFC3339)})
}
