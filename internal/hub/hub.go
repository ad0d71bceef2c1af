package hub

import (
	"encoding/json"
	"sort"
	"strconv"
	"sync"
)

// Event represents a real-time event to be sent to clients.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Client represents a single client connection. It's essentially a channel
// that the websocket write pump listens to.
type Client chan []byte

// PairChannel returns the channel identifier for the conversation between two
// users. Both ids are rendered as decimal strings, sorted lexicographically
// and joined with ":", so PairChannel(a, b) == PairChannel(b, a) and distinct
// pairs can never collide (":" cannot occur inside a decimal id).
func PairChannel(a, b uint) string {
	ids := []string{
		strconv.FormatUint(uint64(a), 10),
		strconv.FormatUint(uint64(b), 10),
	}
	sort.Strings(ids)
	return ids[0] + ":" + ids[1]
}

// MailboxChannel returns the personal delivery channel for a user, used to
// reach them regardless of which conversation they are currently viewing.
func MailboxChannel(userID uint) string {
	return strconv.FormatUint(uint64(userID), 10)
}

// Hub manages all active channels and their subscribed clients.
type Hub struct {
	clients  map[Client]bool
	channels map[string]map[Client]bool
	mu       sync.RWMutex
}

// GlobalHub is the singleton instance of our Hub.
var GlobalHub = NewHub()

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		clients:  make(map[Client]bool),
		channels: make(map[string]map[Client]bool),
	}
}

// Register adds a new client connection to the hub.
func (h *Hub) Register(client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = true
}

// Unregister removes a client from the hub and from every channel it joined,
// and closes its send channel to signal the write pump to stop.
func (h *Hub) Unregister(client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)

	for id, subscribers := range h.channels {
		delete(subscribers, client)
		if len(subscribers) == 0 {
			delete(h.channels, id)
		}
	}

	close(client)
}

// Subscribe adds a client to a channel. A no-op if the client already joined;
// a client may belong to many channels at once.
func (h *Hub) Subscribe(channelID string, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	if _, ok := h.channels[channelID]; !ok {
		h.channels[channelID] = make(map[Client]bool)
	}
	h.channels[channelID][client] = true
}

// Publish sends an event to every client subscribed to the channel.
// Delivery is at-most-once and best-effort: with no subscribers the event is
// simply dropped, and a full client buffer is skipped rather than blocked on.
func (h *Hub) Publish(channelID string, event Event) {
	messageBytes, err := json.Marshal(event)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.channels[channelID] {
		// Use a non-blocking send to prevent a slow client from blocking the hub.
		select {
		case client <- messageBytes:
		default:
			// Client channel is full, maybe they are disconnected or slow.
			// The unregister logic will handle cleaning this up eventually.
		}
	}
}

// PublishToUser sends an event to a user's personal mailbox channel.
func (h *Hub) PublishToUser(userID uint, event Event) {
	h.Publish(MailboxChannel(userID), event)
}

// BroadcastAll sends an event to every registered client except the given one
// (pass nil to reach everyone).
func (h *Hub) BroadcastAll(event Event, except Client) {
	messageBytes, err := json.Marshal(event)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if client == except {
			continue
		}
		select {
		case client <- messageBytes:
		default:
		}
	}
}
