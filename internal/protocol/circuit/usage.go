package circuit

import (
	"sync"

	"onionnet/internal/domain"
)

// UsageTracker counts how often each node was selected.
type UsageTracker struct {
	mtx    sync.Mutex
	counts map[domain.NodeID]uint64
}

// NewUsageTracker returns an empty tracker.
func NewUsageTracker() *UsageTracker {
	return &UsageTracker{counts: make(map[domain.NodeID]uint64)}
}

// Count returns the number of times id was selected.
func (u *UsageTracker) Count(id domain.NodeID) uint64 {
	u.mtx.Lock()
	defer u.mtx.Unlock()
	return u.counts[id]
}

// Snapshot returns a copy of all counts.
func (u *UsageTracker) Snapshot() map[domain.NodeID]uint64 {
	u.mtx.Lock()
	defer u.mtx.Unlock()
	out := make(map[domain.NodeID]uint64, len(u.counts))
	for k, v := range u.counts {
		out[k] = v
	}
	return out
}

// weight must be called with mtx held.
func (u *UsageTracker) weight(id domain.NodeID) float64 {
	return 1 / float64(u.counts[id]+1)
}
