package presence

import (
	"log"
	"os"
	"sync"
	"time"

	"wisp/backend/internal/hub"
)

// EventStatusUpdate is broadcast to all other connected clients whenever a
// user's presence changes.
const EventStatusUpdate = "user-status-update"

// StatusPayload is the payload of a user-status-update event.
type StatusPayload struct {
	UserID   uint      `json:"userId"`
	IsOnline bool      `json:"isOnline"`
	LastSeen time.Time `json:"lastSeen"`
}

// Status is the live presence view for one user.
type Status struct {
	Online   bool
	LastSeen time.Time
	Handle   hub.Client
}

// UserStore persists presence changes onto the user record.
type UserStore interface {
	SetPresence(userID uint, online bool, lastSeen time.Time) error
}

// Broadcaster fans a presence change out to connected clients.
// *hub.Hub satisfies it.
type Broadcaster interface {
	BroadcastAll(event hub.Event, except hub.Client)
}

// Registry is the process-wide source of truth for "is user X reachable now".
// It maps user ids to their current connection handle and online state.
// Every mutation is persisted best-effort and broadcast fire-and-forget;
// all mutators are safe to call for unknown or already-offline users.
type Registry struct {
	mu      sync.RWMutex
	entries map[uint]*Status

	store       UserStore
	broadcaster Broadcaster
	logger      *log.Logger
}

// NewRegistry creates a Registry. Both store and broadcaster may be nil
// (tests, or the non-realtime path).
func NewRegistry(store UserStore, broadcaster Broadcaster) *Registry {
	return &Registry{
		entries:     make(map[uint]*Status),
		store:       store,
		broadcaster: broadcaster,
		logger:      log.New(os.Stdout, "[PRESENCE] ", log.LstdFlags),
	}
}

// SetOnline marks the user online and records their connection handle.
// Idempotent; a user connecting from a second tab simply overwrites the
// handle (last writer wins).
func (r *Registry) SetOnline(userID uint, handle hub.Client) {
	now := time.Now()

	r.mu.Lock()
	r.entries[userID] = &Status{Online: true, LastSeen: now, Handle: handle}
	r.mu.Unlock()

	r.persist(userID, true, now)
	r.broadcast(userID, true, now, handle)
}

// SetOffline marks the user offline, stamps last-seen and clears the handle.
// The broadcast excludes the connection that held the user, so a client going
// idle never receives its own status update.
func (r *Registry) SetOffline(userID uint) {
	now := time.Now()

	r.mu.Lock()
	var prior hub.Client
	if entry, ok := r.entries[userID]; ok {
		prior = entry.Handle
	}
	r.entries[userID] = &Status{Online: false, LastSeen: now}
	r.mu.Unlock()

	r.persist(userID, false, now)
	r.broadcast(userID, false, now, prior)
}

// Touch updates last-seen without changing the online flag (heartbeat).
func (r *Registry) Touch(userID uint) {
	now := time.Now()

	r.mu.Lock()
	entry, ok := r.entries[userID]
	if !ok {
		entry = &Status{}
		r.entries[userID] = entry
	}
	entry.LastSeen = now
	online := entry.Online
	handle := entry.Handle
	r.mu.Unlock()

	r.persist(userID, online, now)
	r.broadcast(userID, online, now, handle)
}

// Lookup reports the current presence for a user. The second return value is
// false for users the registry has never seen.
func (r *Registry) Lookup(userID uint) (Status, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[userID]
	if !ok {
		return Status{}, false
	}
	return *entry, true
}

func (r *Registry) persist(userID uint, online bool, lastSeen time.Time) {
	if r.store == nil {
		return
	}
	if err := r.store.SetPresence(userID, online, lastSeen); err != nil {
		r.logger.Printf("Failed to persist presence for user %d: %v", userID, err)
	}
}

func (r *Registry) broadcast(userID uint, online bool, lastSeen time.Time, except hub.Client) {
	if r.broadcaster == nil {
		return
	}
	r.broadcaster.BroadcastAll(hub.Event{
		Type:    EventStatusUpdate,
		Payload: StatusPayload{UserID: userID, IsOnline: online, LastSeen: lastSeen},
	}, except)
}
