// Package realtime fans order lifecycle events out to per-user subscriber
// channels. The hub is in-process; handlers expose it over SSE.
package realtime

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"campuseats/internal/domain"
)

type OrderEvent struct {
	OrderID   uuid.UUID          `json:"orderId"`
	Status    domain.OrderStatus `json:"status"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

type Hub struct {
	mu   sync.RWMutex
	subs map[uuid.UUID]map[chan OrderEvent]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[uuid.UUID]map[chan OrderEvent]struct{})}
}

// Publish delivers the event to every subscriber of the user's channel.
// Slow subscribers are skipped rather than blocking the settlement path.
func (h *Hub) Publish(userID uuid.UUID, ev OrderEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[userID] {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribe registers a channel on the user's stream. The returned cancel
// func must be called when the consumer goes away.
func (h *Hub) Subscribe(userID uuid.UUID) (<-chan OrderEvent, func()) {
	ch := make(chan OrderEvent, 8)

	h.mu.Lock()
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[chan OrderEvent]struct{})
	}
	h.subs[userID][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		delete(h.subs[userID], ch)
		if len(h.subs[userID]) == 0 {
			delete(h.subs, userID)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}
