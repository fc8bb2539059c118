package studio

import (
	"sync"
	"time"

	"studio/internal/workflow"
)

// Event types published on a session hub.
const (
	EventPanel      = "panel"
	EventImage      = "image"
	EventCandidates = "candidates"
	EventClosed     = "closed"
)

// Event is one change notification for subscribers of a session.
type Event struct {
	Type         string             `json:"type"`
	Panel        *workflow.Snapshot `json:"panel,omitempty"`
	ImageVersion int                `json:"image_version,omitempty"`
	Candidates   int                `json:"candidates,omitempty"`
	At           time.Time          `json:"at"`
}

// Hub fans events out to subscribers. Publish never blocks: a subscriber
// whose buffer is full misses the event and catches up from the next one,
// since every panel event carries a full snapshot.
type Hub struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	next   int
	closed bool
}

func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan Event)}
}

// Subscribe registers a listener. The returned cancel func is idempotent.
func (h *Hub) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	id := h.next
	h.next++
	h.subs[id] = ch
	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if c, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(c)
		}
	}
}

func (h *Hub) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Close sends a final closed event and ends every subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	final := Event{Type: EventClosed, At: time.Now().UTC()}
	for id, ch := range h.subs {
		select {
		case ch <- final:
		default:
		}
		close(ch)
		delete(h.subs, id)
	}
}

// Subscribers returns the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
