// Package inbox buffers received application payloads until the owning
// agent drains them.
package inbox

import "sync"

// Inbox is a lock-guarded FIFO of payload strings. Growth is unbounded;
// an agent that never drains simply accumulates.
type Inbox struct {
	mu   sync.Mutex
	msgs []string
}

// New returns an empty inbox.
func New() *Inbox {
	return &Inbox{}
}

// Push appends payload in arrival order.
func (i *Inbox) Push(payload string) {
	i.mu.Lock()
	i.msgs = append(i.msgs, payload)
	i.mu.Unlock()
}

// Drain atomically returns everything received so far and empties the
// inbox. Each payload is delivered to exactly one Drain call.
func (i *Inbox) Drain() []string {
	i.mu.Lock()
	out := i.msgs
	i.msgs = nil
	i.mu.Unlock()
	return out
}

// Len returns the number of buffered payloads.
func (i *Inbox) Len() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.msgs)
}
