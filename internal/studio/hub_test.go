package studio

import "testing"

func TestHubPublishAndClose(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe(4)
	defer cancel()

	hub.Publish(Event{Type: EventImage, ImageVersion: 2})
	ev := <-ch
	if ev.Type != EventImage || ev.ImageVersion != 2 {
		t.Fatalf("event = %+v, want image v2", ev)
	}
	if ev.At.IsZero() {
		t.Fatalf("event timestamp not set")
	}

	hub.Close()
	ev, ok := <-ch
	if !ok || ev.Type != EventClosed {
		t.Fatalf("final event = %+v (ok=%v), want closed", ev, ok)
	}
	if _, ok := <-ch; ok {
		t.Fatalf("channel still open after close")
	}
	if n := hub.Subscribers(); n != 0 {
		t.Fatalf("Subscribers() = %d, want 0", n)
	}
}

func TestHubPublishDoesNotBlockOnFullBuffer(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe(1)
	for i := 0; i < 5; i++ {
		hub.Publish(Event{Type: EventCandidates, Candidates: i})
	}
	if ev := <-ch; ev.Candidates != 0 {
		t.Fatalf("first event = %d, want 0", ev.Candidates)
	}
	cancel()
	cancel()
	if n := hub.Subscribers(); n != 0 {
		t.Fatalf("Subscribers() = %d after cancel, want 0", n)
	}
}

func TestHubSubscribeAfterClose(t *testing.T) {
	hub := NewHub()
	hub.Close()
	ch, cancel := hub.Subscribe(1)
	defer cancel()
	if _, ok := <-ch; ok {
		t.Fatalf("subscription on closed hub delivered an event")
	}
}
