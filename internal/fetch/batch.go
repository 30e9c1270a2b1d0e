package fetch

import (
	"context"
	"sync"
	"time"
)

// Batch runs fn over items in chunks of batchSize, concurrently within a
// chunk, waiting delay between chunks. The inter-chunk delay is mandatory
// against venue 429s; callers pass the venue-specific gap. A chunk in
// flight always drains fully, even on cancellation, so partially-populated
// cache entries are never left behind; the delay between chunks is the
// cancellation point.
func Batch[T any](ctx context.Context, items []T, batchSize int, delay time.Duration, fn func(context.Context, T)) {
	if batchSize <= 0 {
		batchSize = 1
	}
	for start := 0; start < len(items); start += batchSize {
		end := start + batchSize
		if end > len(items) {
			end = len(items)
		}

		var wg sync.WaitGroup
		for _, item := range items[start:end] {
			wg.Add(1)
			go func(it T) {
				defer wg.Done()
				fn(ctx, it)
			}(item)
		}
		wg.Wait()

		if end < len(items) {
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
		}
	}
}
