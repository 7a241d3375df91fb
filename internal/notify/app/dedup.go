package app

import (
	"sync"
	"time"

	"gratitude_chat_service/internal/notify/domain"
)

const (
	// dedupTTL window inside which a repeated event key is suppressed
	dedupTTL = 5 * time.Minute
	// dedupSweepSize entry count that triggers an eviction sweep
	dedupSweepSize = 1024
)

// DedupStore process-wide, time-bounded set membership used to suppress a
// second visible alert when the realtime channel and a remote push both
// deliver the same underlying event.
type DedupStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]time.Time // key -> expiry
	now     func() time.Time     // swapped in tests
}

// NewDedupStore create a DedupStore with the default TTL
func NewDedupStore() *DedupStore {
	return &DedupStore{
		ttl:     dedupTTL,
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

// ShouldSuppress check-and-set in one step: the first call for a key inside
// the TTL window records it and returns false ("show it"), later calls
// return true ("suppress") until the window expires. Expired entries are
// treated as absent even before eviction.
func (d *DedupStore) ShouldSuppress(kind domain.Kind, eventID string) bool {
	key := domain.DedupeKey(kind, eventID)

	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if expiry, ok := d.entries[key]; ok && now.Before(expiry) {
		return true
	}
	d.entries[key] = now.Add(d.ttl)

	if len(d.entries) > dedupSweepSize {
		for k, expiry := range d.entries {
			if !now.Before(expiry) {
				delete(d.entries, k)
			}
		}
	}
	return false
}
