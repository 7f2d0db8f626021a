package notifications

import (
	"sync"

	model "bidbook/internal/models"
)

const subscriberBuffer = 16

// Registry maps user IDs to live push channels. Insertion happens on
// connect, removal on disconnect; concurrent access is mutex-guarded.
type Registry struct {
	mu   sync.RWMutex
	subs map[string]map[chan model.Notification]struct{}
}

// NewRegistry creates an empty push registry
func NewRegistry() *Registry {
	return &Registry{subs: make(map[string]map[chan model.Notification]struct{})}
}

// Subscribe opens a push channel for the user. The returned cancel
// function removes the channel and must be called on disconnect.
func (r *Registry) Subscribe(userID string) (<-chan model.Notification, func()) {
	ch := make(chan model.Notification, subscriberBuffer)

	r.mu.Lock()
	set, ok := r.subs[userID]
	if !ok {
		set = make(map[chan model.Notification]struct{})
		r.subs[userID] = set
	}
	set[ch] = struct{}{}
	r.mu.Unlock()

	cancel := func() {
		r.mu.Lock()
		if set, ok := r.subs[userID]; ok {
			delete(set, ch)
			if len(set) == 0 {
				delete(r.subs, userID)
			}
		}
		r.mu.Unlock()
	}
	return ch, cancel
}

// Push delivers a notification to every live channel of the user.
// Full channels are skipped; live delivery is best-effort only.
func (r *Registry) Push(userID string, n model.Notification) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	delivered := 0
	for ch := range r.subs[userID] {
		select {
		case ch <- n:
			delivered++
		default:
		}
	}
	return delivered
}

// Connected reports whether the user has at least one live channel
func (r *Registry) Connected(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs[userID]) > 0
}
