package whale

import (
	"sync"
	"time"
)

// BurstTracker counts per-wallet trades inside a sliding window to catch
// rapid-fire position building.
type BurstTracker struct {
	mu     sync.Mutex
	trades map[string][]time.Time
	window time.Duration
}

// NewBurstTracker creates a tracker with the given window.
func NewBurstTracker(window time.Duration) *BurstTracker {
	return &BurstTracker{trades: make(map[string][]time.Time), window: window}
}

// RecordAt adds a trade at ts for the wallet and returns how many of its
// trades fall inside the window ending at ts.
func (b *BurstTracker) RecordAt(wallet string, ts time.Time) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	cutoff := ts.Add(-b.window)
	kept := b.trades[wallet][:0]
	for _, t := range b.trades[wallet] {
		if t.After(cutoff) && !t.After(ts) {
			kept = append(kept, t)
		}
	}
	kept = append(kept, ts)
	b.trades[wallet] = kept
	return len(kept)
}

// Cleanup drops wallets with no trades inside the window ending now.
func (b *BurstTracker) Cleanup(now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	cutoff := now.Add(-b.window)
	for w, ts := range b.trades {
		if len(ts) == 0 || !ts[len(ts)-1].After(cutoff) {
			delete(b.trades, w)
		}
	}
}
