// Package directory tracks the set of peer addresses an agent knows about.
package directory

import (
	"sort"
	"sync"
)

// Directory is an agent's view of mesh membership: a deduplicated set of
// peer addresses guarded by a single lock. The agent's own address is a
// member from construction and only a Clear (triggered by a kill order)
// removes it.
type Directory struct {
	mu    sync.RWMutex
	self  string
	peers map[string]struct{}
}

// New returns a directory seeded with the agent's own address.
func New(self string) *Directory {
	d := &Directory{
		self:  self,
		peers: make(map[string]struct{}),
	}
	d.peers[self] = struct{}{}
	return d
}

// Self returns the owning agent's address.
func (d *Directory) Self() string {
	return d.self
}

// Add records addr. Adding the agent's own address or a known peer is a
// no-op.
func (d *Directory) Add(addr string) {
	if addr == d.self {
		return
	}
	d.mu.Lock()
	d.peers[addr] = struct{}{}
	d.mu.Unlock()
}

// Merge records every address in addrs, skipping self, duplicates and
// empty entries. Used when an inbound ping carries a peer's membership
// view.
func (d *Directory) Merge(addrs []string) {
	d.mu.Lock()
	for _, addr := range addrs {
		if addr == "" || addr == d.self {
			continue
		}
		d.peers[addr] = struct{}{}
	}
	d.mu.Unlock()
}

// RemoveAll drops every listed address that is present. Used by the
// prober after a liveness sweep.
func (d *Directory) RemoveAll(addrs []string) {
	d.mu.Lock()
	for _, addr := range addrs {
		delete(d.peers, addr)
	}
	d.mu.Unlock()
}

// Clear empties the directory, the agent's own address included. This is
// how a kill order makes the agent leave the mesh.
func (d *Directory) Clear() {
	d.mu.Lock()
	d.peers = make(map[string]struct{})
	d.mu.Unlock()
}

// Snapshot returns a sorted point-in-time copy. Callers iterate the copy
// outside the lock, so a snapshot is never held across network I/O. The
// ordering keeps gossip payloads deterministic.
func (d *Directory) Snapshot() []string {
	d.mu.RLock()
	out := make([]string, 0, len(d.peers))
	for addr := range d.peers {
		out = append(out, addr)
	}
	d.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Contains reports whether addr is currently known.
func (d *Directory) Contains(addr string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.peers[addr]
	return ok
}

// Size returns the number of known addresses, self included.
func (d *Directory) Size() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.peers)
}
