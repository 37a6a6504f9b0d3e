package service

import (
	"sync"

	"influx_events/internal/models"
)

// Subscription receives events written after it was created.
type Subscription struct {
	C  <-chan models.StoredEvent
	ch chan models.StoredEvent
}

// Hub fans written events out to subscribers. A subscriber whose buffer is
// full misses the event; writers never block.
type Hub struct {
	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	buffer int
	onDrop func()
}

func NewHub(buffer int, onDrop func()) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	if onDrop == nil {
		onDrop = func() {}
	}
	return &Hub{subs: make(map[*Subscription]struct{}), buffer: buffer, onDrop: onDrop}
}

func (h *Hub) Subscribe() *Subscription {
	ch := make(chan models.StoredEvent, h.buffer)
	s := &Subscription{C: ch, ch: ch}
	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
	return s
}

// Unsubscribe closes s.C. Calling it twice is safe.
func (h *Hub) Unsubscribe(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[s]; ok {
		delete(h.subs, s)
		close(s.ch)
	}
}

func (h *Hub) Publish(e models.StoredEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.subs {
		select {
		case s.ch <- e:
		default:
			h.onDrop()
		}
	}
}

// Subscribers reports the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
