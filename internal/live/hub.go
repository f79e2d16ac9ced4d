// Package live keeps readers current with the store. Repositories call
// Hub.Notify after every committed write; subscriptions re-run their query
// and push a fresh snapshot.
package live

import (
	"sync"

	"bear-kitchen/internal/database"
)

// Hub is the observer registry on the store's write path.
type Hub struct {
	mu        sync.Mutex
	next      uint64
	observers map[database.Collection]map[uint64]func()
}

func NewHub() *Hub {
	return &Hub{observers: make(map[database.Collection]map[uint64]func())}
}

// Observe registers fn for writes to c and returns a func that removes it.
// fn runs on the writer's goroutine and must not block.
func (h *Hub) Observe(c database.Collection, fn func()) (remove func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.next++
	key := h.next
	if h.observers[c] == nil {
		h.observers[c] = make(map[uint64]func())
	}
	h.observers[c][key] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.observers[c], key)
			h.mu.Unlock()
		})
	}
}

// Notify implements database.Notifier.
func (h *Hub) Notify(c database.Collection) {
	h.mu.Lock()
	fns := make([]func(), 0, len(h.observers[c]))
	for _, fn := range h.observers[c] {
		fns = append(fns, fn)
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Count returns the number of observers registered for c.
func (h *Hub) Count(c database.Collection) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.observers[c])
}
