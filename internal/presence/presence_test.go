package presence

import (
	"sync"
	"testing"
	"time"

	"wisp/backend/internal/hub"
)

type persistCall struct {
	userID   uint
	online   bool
	lastSeen time.Time
}

type fakeStore struct {
	mu    sync.Mutex
	calls []persistCall
}

func (s *fakeStore) SetPresence(userID uint, online bool, lastSeen time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, persistCall{userID, online, lastSeen})
	return nil
}

type broadcastCall struct {
	event  hub.Event
	except hub.Client
}

type fakeBroadcaster struct {
	mu    sync.Mutex
	calls []broadcastCall
}

func (b *fakeBroadcaster) BroadcastAll(event hub.Event, except hub.Client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, broadcastCall{event, except})
}

func (b *fakeBroadcaster) last(t *testing.T) broadcastCall {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.calls) == 0 {
		t.Fatal("Expected a broadcast, got none")
	}
	return b.calls[len(b.calls)-1]
}

func TestSetOnlineThenLookup(t *testing.T) {
	registry := NewRegistry(nil, nil)
	handle := make(hub.Client, 1)

	registry.SetOnline(42, handle)

	status, ok := registry.Lookup(42)
	if !ok {
		t.Fatal("Lookup after SetOnline should find the user")
	}
	if !status.Online {
		t.Error("Status should be online")
	}
	if status.Handle == nil {
		t.Error("Handle should be recorded")
	}
}

func TestSetOnlineThenSetOffline(t *testing.T) {
	registry := NewRegistry(nil, nil)
	handle := make(hub.Client, 1)

	registry.SetOnline(42, handle)
	before := time.Now()
	registry.SetOffline(42)

	status, ok := registry.Lookup(42)
	if !ok {
		t.Fatal("Lookup after SetOffline should still find the user")
	}
	if status.Online {
		t.Error("Status should be offline")
	}
	if status.Handle != nil {
		t.Error("Handle should be cleared on SetOffline")
	}
	if status.LastSeen.Before(before) {
		t.Errorf("LastSeen %v should be no earlier than the SetOffline call at %v", status.LastSeen, before)
	}
}

func TestLastWriterWinsHandle(t *testing.T) {
	registry := NewRegistry(nil, nil)
	first := make(hub.Client, 1)
	second := make(hub.Client, 1)

	registry.SetOnline(42, first)
	registry.SetOnline(42, second)

	status, _ := registry.Lookup(42)
	status.Handle <- []byte("x")
	select {
	case <-second:
	default:
		t.Error("The most recent handle should win")
	}
}

func TestTouchKeepsOnlineFlag(t *testing.T) {
	registry := NewRegistry(nil, nil)
	handle := make(hub.Client, 1)

	registry.SetOnline(42, handle)
	online, _ := registry.Lookup(42)
	time.Sleep(time.Millisecond)
	registry.Touch(42)

	status, _ := registry.Lookup(42)
	if !status.Online {
		t.Error("Touch should not change the online flag")
	}
	if !status.LastSeen.After(online.LastSeen) {
		t.Error("Touch should advance last-seen")
	}
}

func TestMutatorsSafeOnUnknownUser(t *testing.T) {
	registry := NewRegistry(&fakeStore{}, &fakeBroadcaster{})

	// None of these may panic for users the registry has never seen.
	registry.SetOffline(7)
	registry.Touch(8)

	if status, ok := registry.Lookup(7); !ok || status.Online {
		t.Error("SetOffline on an unknown user should record them offline")
	}
	if _, ok := registry.Lookup(999); ok {
		t.Error("Lookup of a never-seen user should report not found")
	}
}

func TestMutationsPersistAndBroadcast(t *testing.T) {
	fs := &fakeStore{}
	fb := &fakeBroadcaster{}
	registry := NewRegistry(fs, fb)
	handle := make(hub.Client, 1)

	registry.SetOnline(42, handle)

	call := fb.last(t)
	if call.event.Type != EventStatusUpdate {
		t.Errorf("Broadcast type = %q, want %q", call.event.Type, EventStatusUpdate)
	}
	payload, ok := call.event.Payload.(StatusPayload)
	if !ok {
		t.Fatalf("Broadcast payload has type %T, want StatusPayload", call.event.Payload)
	}
	if payload.UserID != 42 || !payload.IsOnline {
		t.Errorf("Broadcast payload = %+v, want online user 42", payload)
	}
	if call.except == nil {
		t.Error("The user's own connection should be excluded from its status broadcast")
	}

	registry.SetOffline(42)

	call = fb.last(t)
	if payload := call.event.Payload.(StatusPayload); payload.IsOnline {
		t.Error("SetOffline broadcast should report offline")
	}
	if call.except == nil {
		t.Error("The connection that held the user should be excluded from its own offline broadcast")
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()
	if len(fs.calls) != 2 {
		t.Fatalf("Expected 2 persisted presence changes, got %d", len(fs.calls))
	}
	if fs.calls[0].online != true || fs.calls[1].online != false {
		t.Error("Persisted presence should mirror the registry mutations in order")
	}
}
