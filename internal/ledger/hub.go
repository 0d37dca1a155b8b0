package ledger

import (
	"context"
	"sync"
	"time"
)

const (
	KindTransaction Kind = "transaction"
	KindBudget      Kind = "budget"
	KindGoal        Kind = "goal"

	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

type (
	Kind string
	Op   string

	// Change describes one successful write to a user's ledger.
	Change struct {
		UserID string
		Kind   Kind
		Op     Op
		ID     string // transaction/goal id, or the budget tag
		Origin string // process that performed the write
		At     time.Time
	}
)

// Hub fans change events out to in-process subscribers, per user.
//
// Delivery never blocks the publisher. Each subscriber has a one-slot buffer:
// a pending event already means "reload", so further events are dropped until
// it is consumed.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[chan Change]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan Change]struct{})}
}

// Subscribe registers interest in userID's changes. The returned cancel
// function unregisters and closes the channel; it is safe to call twice.
func (h *Hub) Subscribe(userID string) (<-chan Change, func()) {
	ch := make(chan Change, 1)

	h.mu.Lock()
	set, ok := h.subs[userID]
	if !ok {
		set = make(map[chan Change]struct{})
		h.subs[userID] = set
	}
	set[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if set, ok := h.subs[userID]; ok {
				delete(set, ch)
				if len(set) == 0 {
					delete(h.subs, userID)
				}
			}
			close(ch)
		})
	}
	return ch, cancel
}

// Publish implements Notifier for local delivery.
func (h *Hub) Publish(_ context.Context, c Change) error {
	if c.At.IsZero() {
		c.At = time.Now()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[c.UserID] {
		select {
		case ch <- c:
		default:
		}
	}
	return nil
}

// Subscribers returns the number of live subscribers for userID.
func (h *Hub) Subscribers(userID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[userID])
}
