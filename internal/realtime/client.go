package realtime

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"wisp/backend/internal/hub"
)

// Client is one live socket session. It starts unauthenticated; the identity
// binds on the first user-connected event and stays for the connection's
// lifetime.
type Client struct {
	id         uuid.UUID
	controller *Controller
	conn       *websocket.Conn
	send       hub.Client

	userID   uint // 0 until user-connected
	username string
}

// NewClient wraps an upgraded websocket connection in a session and registers
// it with the hub. The caller starts ReadPump and WritePump.
func (ctl *Controller) NewClient(conn *websocket.Conn) *Client {
	c := &Client{
		id:         uuid.New(),
		controller: ctl,
		conn:       conn,
		send:       make(hub.Client, 256),
	}
	ctl.hub.Register(c.send)
	return c
}

// ReadPump reads protocol events off the socket and dispatches them in
// arrival order. It owns the disconnect reconciliation.
func (c *Client) ReadPump() {
	defer func() {
		c.controller.disconnect(c)
		c.conn.Close()
	}()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.controller.logger.Printf("Read error on session %s: %v", c.id, err)
			}
			break
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			c.controller.logger.Printf("Malformed event from session %s: %v", c.id, err)
			continue
		}

		c.controller.Dispatch(c, env)
	}
}

// WritePump drains the send channel onto the socket until the hub closes it.
func (c *Client) WritePump() {
	defer c.conn.Close()

	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// sendError emits a message-error event to this connection alone.
func (c *Client) sendError(message string) {
	sendEvent(c.send, hub.Event{
		Type:    EventMessageError,
		Payload: ErrorPayload{Error: message},
	})
}
