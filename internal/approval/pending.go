package approval

import "sync"

// decision is a human signal delivered to one pending request.
type decision struct {
	approved  bool
	actorID   string
	actorName string
}

// pendingRegistry correlates external decision signals to outstanding
// requests by request ID. Each entry resolves at most once; signals for
// unknown or already-resolved IDs are discarded by the caller when Resolve
// reports false.
type pendingRegistry struct {
	mu      sync.Mutex
	waiting map[string]chan decision
}

func newPendingRegistry() *pendingRegistry {
	return &pendingRegistry{
		waiting: make(map[string]chan decision),
	}
}

// Register creates a pending entry and returns the channel the decision will
// arrive on. The channel is buffered so a resolver never blocks on a waiter
// that has already given up.
func (r *pendingRegistry) Register(id string) <-chan decision {
	ch := make(chan decision, 1)
	r.mu.Lock()
	r.waiting[id] = ch
	r.mu.Unlock()
	return ch
}

// Resolve delivers a decision to the pending entry and removes it. Returns
// false when no entry exists, which covers both stale and duplicate signals.
func (r *pendingRegistry) Resolve(id string, d decision) bool {
	r.mu.Lock()
	ch, ok := r.waiting[id]
	if ok {
		delete(r.waiting, id)
	}
	r.mu.Unlock()

	if !ok {
		return false
	}
	ch <- d
	return true
}

// Cancel removes a pending entry without delivering a decision. Used when
// the waiter resolves by timeout or context cancellation so late signals are
// discarded instead of hitting a dead channel.
func (r *pendingRegistry) Cancel(id string) {
	r.mu.Lock()
	delete(r.waiting, id)
	r.mu.Unlock()
}

// Len reports the number of outstanding requests.
func (r *pendingRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.waiting)
}
