package events

import "sync"

// Hub fans change notifications out to in-process subscribers (the SSE
// handlers of connected browsers). Subscribe returns an unsubscribe
// function; callers must invoke it when the view goes away so no
// listener leaks.
type Hub struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan struct{})}
}

// Subscribe registers a listener. The returned channel receives one
// value per broadcast; slow listeners coalesce notifications instead
// of blocking the broadcaster.
func (h *Hub) Subscribe() (<-chan struct{}, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan struct{}, 1)
	h.subs[id] = ch

	unsubscribe := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(ch)
		}
	}
	return ch, unsubscribe
}

// Broadcast notifies every subscriber that something changed. The
// notification carries no payload; subscribers re-fetch.
func (h *Hub) Broadcast() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.subs {
		select {
		case ch <- struct{}{}:
		default: // already pending, coalesce
		}
	}
}

// Len reports the number of live subscriptions.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
