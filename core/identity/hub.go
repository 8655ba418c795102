package identity

import (
	"sort"
	"sync"
)

// Hub fans identity events out to subscribers.
// The zero value is ready to use.
type Hub struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func(*Identity)
}

// Subscribe registers fn; the returned func unregisters it and is safe to call twice.
func (h *Hub) Subscribe(fn func(*Identity)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.subs == nil {
		h.subs = make(map[int]func(*Identity))
	}
	id := h.nextID
	h.nextID++
	h.subs[id] = fn

	return func() {
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
	}
}

// Publish delivers idn to every subscriber, in registration order.
// Subscribers run outside the lock so they may subscribe or unsubscribe.
func (h *Hub) Publish(idn *Identity) {
	h.mu.Lock()
	ids := make([]int, 0, len(h.subs))
	for id := range h.subs {
		ids = append(ids, id)
	}
	fns := make([]func(*Identity), 0, len(ids))
	sort.Ints(ids)
	for _, id := range ids {
		fns = append(fns, h.subs[id])
	}
	h.mu.Unlock()

	for _, fn := range fns {
		var cp *Identity
		if idn != nil {
			c := *idn
			cp = &c
		}
		fn(cp)
	}
}

// Len returns the number of active subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
