package hub

import (
	"encoding/json"
	"testing"
)

type testEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func receive(t *testing.T, client Client) testEvent {
	t.Helper()
	select {
	case data := <-client:
		var event testEvent
		if err := json.Unmarshal(data, &event); err != nil {
			t.Fatalf("Failed to decode event: %v", err)
		}
		return event
	default:
		t.Fatal("Expected an event, got none")
		return testEvent{}
	}
}

func assertEmpty(t *testing.T, client Client) {
	t.Helper()
	select {
	case data := <-client:
		t.Fatalf("Expected no event, got %s", data)
	default:
	}
}

func TestPairChannelSymmetric(t *testing.T) {
	ids := []uint{1, 2, 3, 9, 10, 42, 100, 123456}
	for _, a := range ids {
		for _, b := range ids {
			if PairChannel(a, b) != PairChannel(b, a) {
				t.Errorf("PairChannel(%d, %d) = %q, PairChannel(%d, %d) = %q; want equal",
					a, b, PairChannel(a, b), b, a, PairChannel(b, a))
			}
		}
	}
}

func TestPairChannelCollisionFree(t *testing.T) {
	ids := []uint{1, 2, 3, 9, 10, 12, 21, 42, 100, 210, 123456}
	for _, a := range ids {
		for _, b := range ids {
			for _, c := range ids {
				if b == c {
					continue
				}
				if PairChannel(a, b) == PairChannel(a, c) {
					t.Errorf("PairChannel(%d, %d) == PairChannel(%d, %d) == %q; distinct pairs must not collide",
						a, b, a, c, PairChannel(a, b))
				}
			}
		}
	}
}

func TestPairChannelKnownValues(t *testing.T) {
	if got := PairChannel(2, 1); got != "1:2" {
		t.Errorf("PairChannel(2, 1) = %q, want %q", got, "1:2")
	}
	// Lexicographic order on the decimal strings, not numeric order.
	if got := PairChannel(9, 10); got != "10:9" {
		t.Errorf("PairChannel(9, 10) = %q, want %q", got, "10:9")
	}
}

func TestPublishReachesSubscribers(t *testing.T) {
	h := NewHub()
	a := make(Client, 4)
	b := make(Client, 4)
	h.Register(a)
	h.Register(b)

	channel := PairChannel(1, 2)
	h.Subscribe(channel, a)
	h.Subscribe(channel, b)
	h.Subscribe(channel, b) // Joining twice is a no-op.

	h.Publish(channel, Event{Type: "test", Payload: "hello"})

	for _, client := range []Client{a, b} {
		event := receive(t, client)
		if event.Type != "test" {
			t.Errorf("Event type = %q, want %q", event.Type, "test")
		}
		assertEmpty(t, client)
	}
}

func TestPublishWithoutSubscribersDropsEvent(t *testing.T) {
	h := NewHub()
	// Best-effort delivery: no subscribers, no panic, nothing queued.
	h.Publish(PairChannel(7, 8), Event{Type: "test"})
}

func TestPublishToUserTargetsMailboxOnly(t *testing.T) {
	h := NewHub()
	a := make(Client, 4)
	b := make(Client, 4)
	h.Register(a)
	h.Register(b)
	h.Subscribe(MailboxChannel(1), a)
	h.Subscribe(MailboxChannel(2), b)

	h.PublishToUser(2, Event{Type: "notify"})

	if event := receive(t, b); event.Type != "notify" {
		t.Errorf("Event type = %q, want %q", event.Type, "notify")
	}
	assertEmpty(t, a)
}

func TestBroadcastAllExcept(t *testing.T) {
	h := NewHub()
	a := make(Client, 4)
	b := make(Client, 4)
	c := make(Client, 4)
	for _, client := range []Client{a, b, c} {
		h.Register(client)
	}

	h.BroadcastAll(Event{Type: "status"}, b)

	receive(t, a)
	receive(t, c)
	assertEmpty(t, b)
}

func TestUnregisterLeavesAllChannels(t *testing.T) {
	h := NewHub()
	a := make(Client, 4)
	b := make(Client, 4)
	h.Register(a)
	h.Register(b)

	channel := PairChannel(1, 2)
	h.Subscribe(channel, a)
	h.Subscribe(channel, b)
	h.Subscribe(MailboxChannel(1), a)

	h.Unregister(a)

	if _, open := <-a; open {
		t.Error("Unregister should close the client's send channel")
	}

	h.Publish(channel, Event{Type: "test"})
	receive(t, b)

	// Unregistering twice must not panic or close twice.
	h.Unregister(a)
}

func TestSubscribeUnknownClientIgnored(t *testing.T) {
	h := NewHub()
	stranger := make(Client, 1)
	h.Subscribe(PairChannel(1, 2), stranger)
	h.Publish(PairChannel(1, 2), Event{Type: "test"})
	assertEmpty(t, stranger)
}
