package realtime

import (
	"encoding/json"
	stderrors "errors"

	"wisp/backend/internal/hub"
	"wisp/backend/pkg/errors"
)

// Dispatch routes one protocol event for a connection. Events on the same
// connection arrive from a single read loop, so two handlers for the same
// session never run concurrently; sessions interleave freely with each other.
// A handler failure is logged and, where the protocol defines a client-facing
// error event, reported to the originating connection only.
func (ctl *Controller) Dispatch(c *Client, env Envelope) {
	defer func() {
		if r := recover(); r != nil {
			ctl.logger.Printf("Recovered from panic in %q handler (session %s): %v", env.Type, c.id, r)
		}
	}()

	switch env.Type {
	case EventUserConnected:
		ctl.handleUserConnected(c, env.Payload)
	case EventJoinChat:
		ctl.handleJoinChat(c, env.Payload)
	case EventSendMessage:
		ctl.handleSendMessage(c, env.Payload)
	case EventMarkMessagesRead:
		ctl.handleMarkMessagesRead(c, env.Payload)
	case EventTypingStart:
		ctl.handleTyping(c, env.Payload, true)
	case EventTypingStop:
		ctl.handleTyping(c, env.Payload, false)
	case EventUserActive:
		ctl.handleActivity(c, env.Payload, true)
	case EventUserInactive:
		ctl.handleActivity(c, env.Payload, false)
	case EventUserDisconnected:
		ctl.handleUserDisconnected(c, env.Payload)
	default:
		ctl.logger.Printf("Unknown event %q from session %s", env.Type, c.id)
	}
}

// handleUserConnected binds the socket to a user identity, marks the user
// online and subscribes the connection to its personal mailbox.
func (ctl *Controller) handleUserConnected(c *Client, raw json.RawMessage) {
	var payload ConnectPayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.UserID == 0 {
		ctl.logger.Printf("Invalid user-connected payload from session %s: %v", c.id, err)
		return
	}

	c.userID = payload.UserID
	c.username = payload.Username

	ctl.hub.Subscribe(hub.MailboxChannel(c.userID), c.send)
	ctl.presence.SetOnline(c.userID, c.send)
	ctl.logger.Printf("Session %s identified as user %d (%s)", c.id, c.userID, c.username)
}

// handleJoinChat subscribes the connection to the pair channel for a
// conversation. Ignored before identity binding; an out-of-order join is a
// protocol error to log, never a reason to drop the connection.
func (ctl *Controller) handleJoinChat(c *Client, raw json.RawMessage) {
	if c.userID == 0 {
		ctl.logger.Printf("Protocol error: join-chat before user-connected on session %s", c.id)
		return
	}

	var payload PairPayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.SenderID == 0 || payload.RecipientID == 0 {
		ctl.logger.Printf("Invalid join-chat payload from user %d: %v", c.userID, err)
		return
	}

	ctl.hub.Subscribe(hub.PairChannel(payload.SenderID, payload.RecipientID), c.send)
}

// handleSendMessage runs the full send pipeline and always reports exactly
// one terminal outcome to the sender: message-delivered or message-error.
func (ctl *Controller) handleSendMessage(c *Client, raw json.RawMessage) {
	var payload SendMessagePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		c.sendError("Invalid message payload")
		return
	}

	message, err := ctl.SendMessage(payload.SenderID, payload.RecipientID, payload.Content)
	if err != nil {
		ctl.reportError(c, err, "Failed to send message")
		return
	}

	sendEvent(c.send, hub.Event{
		Type:    EventMessageDelivered,
		Payload: DeliveredPayload{MessageID: message.ID, Timestamp: message.CreatedAt},
	})
}

func (ctl *Controller) handleMarkMessagesRead(c *Client, raw json.RawMessage) {
	if c.userID == 0 {
		ctl.logger.Printf("Protocol error: mark-messages-read before user-connected on session %s", c.id)
		return
	}

	var payload PairPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		c.sendError("Invalid mark-messages-read payload")
		return
	}

	if _, err := ctl.MarkMessagesRead(payload.SenderID, payload.RecipientID); err != nil {
		ctl.reportError(c, err, "Failed to mark messages read")
	}
}

// handleTyping forwards a typing indicator to the pair channel only. Never
// persisted, never sent to the mailbox.
func (ctl *Controller) handleTyping(c *Client, raw json.RawMessage, isTyping bool) {
	if c.userID == 0 {
		ctl.logger.Printf("Protocol error: typing event before user-connected on session %s", c.id)
		return
	}

	var payload PairPayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.SenderID == 0 || payload.RecipientID == 0 {
		ctl.logger.Printf("Invalid typing payload from user %d: %v", c.userID, err)
		return
	}

	ctl.hub.Publish(hub.PairChannel(payload.SenderID, payload.RecipientID), hub.Event{
		Type:    EventUserTyping,
		Payload: TypingPayload{UserID: payload.SenderID, IsTyping: isTyping},
	})
}

// handleActivity processes the explicit user-active / user-inactive pings
// used for idle-timeout UX, independent of transport connect and disconnect.
func (ctl *Controller) handleActivity(c *Client, raw json.RawMessage, active bool) {
	if c.userID == 0 {
		ctl.logger.Printf("Protocol error: activity ping before user-connected on session %s", c.id)
		return
	}

	userID, err := decodeUserID(raw)
	if err != nil || userID == 0 {
		ctl.logger.Printf("Invalid activity payload from session %s: %v", c.id, err)
		return
	}

	if active {
		ctl.presence.SetOnline(userID, c.send)
	} else {
		ctl.presence.SetOffline(userID)
	}
}

// handleUserDisconnected is the explicit client-sent logout. It converges on
// the same reconciliation as a transport disconnect.
func (ctl *Controller) handleUserDisconnected(c *Client, raw json.RawMessage) {
	if c.userID == 0 {
		ctl.logger.Printf("Protocol error: user-disconnected before user-connected on session %s", c.id)
		return
	}

	userID, err := decodeUserID(raw)
	if err != nil || userID == 0 {
		ctl.logger.Printf("Invalid user-disconnected payload from session %s: %v", c.id, err)
		return
	}

	ctl.presence.SetOffline(userID)
}

// disconnect reconciles state when the transport closes. A connection that
// never identified produces no presence mutation and no broadcast.
func (ctl *Controller) disconnect(c *Client) {
	ctl.hub.Unregister(c.send)
	if c.userID != 0 {
		ctl.presence.SetOffline(c.userID)
		ctl.logger.Printf("User %d disconnected (session %s)", c.userID, c.id)
	}
}

// reportError maps a failed operation onto a message-error event for the
// originating client. Infrastructure failures are logged in full but reported
// generically; other failures carry their own message.
func (ctl *Controller) reportError(c *Client, err error, generic string) {
	if stderrors.Is(err, errors.ErrInternalServer) {
		ctl.logger.Printf("%s (user %d): %v", generic, c.userID, err)
		c.sendError(generic)
		return
	}
	c.sendError(err.Error())
}
