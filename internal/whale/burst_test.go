package whale

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/polysentry/polysentry/internal/model"
)

var burstNow = time.Date(2025, 6, 17, 12, 0, 0, 0, time.UTC)

func TestBurstTracker_SlidingWindow(t *testing.T) {
	b := NewBurstTracker(60 * time.Second)

	assert.Equal(t, 1, b.RecordAt("w1", burstNow))
	assert.Equal(t, 2, b.RecordAt("w1", burstNow.Add(20*time.Second)))
	assert.Equal(t, 3, b.RecordAt("w1", burstNow.Add(40*time.Second)))

	// 70s after the first trade, it has slid out of the window.
	assert.Equal(t, 3, b.RecordAt("w1", burstNow.Add(70*time.Second)))

	// Other wallets are independent.
	assert.Equal(t, 1, b.RecordAt("w2", burstNow.Add(40*time.Second)))
}

func TestBurstTracker_Cleanup(t *testing.T) {
	b := NewBurstTracker(60 * time.Second)
	b.RecordAt("stale", burstNow)
	b.RecordAt("active", burstNow.Add(5*time.Minute))

	b.Cleanup(burstNow.Add(5*time.Minute + 30*time.Second))

	assert.NotContains(t, b.trades, "stale")
	assert.Contains(t, b.trades, "active")
}

func TestClassifyWallet(t *testing.T) {
	now := burstNow
	old := now.Add(-200 * 24 * time.Hour).Unix()
	recent := now.Add(-2 * 24 * time.Hour).Unix()

	cases := []struct {
		name string
		act  model.ActivitySummary
		want string
	}{
		{"fresh insider", model.ActivitySummary{TotalTrades: 3, TotalVolume: 25000, FirstSeen: recent}, ProfileFreshInsider},
		{"plain fresh", model.ActivitySummary{TotalTrades: 2, TotalVolume: 300, FirstSeen: recent}, ProfileFresh},
		{"market maker", model.ActivitySummary{TotalTrades: 5000, MarketCount: 400, TotalVolume: 2e6, FirstSeen: old}, ProfileMarketMaker},
		{"veteran whale", model.ActivitySummary{TotalTrades: 200, MarketCount: 30, TotalVolume: 80000, FirstSeen: old}, ProfileVeteranWhale},
		{"young whale", model.ActivitySummary{TotalTrades: 50, MarketCount: 10, TotalVolume: 80000, FirstSeen: recent}, ProfileWhale},
		{"retail", model.ActivitySummary{TotalTrades: 40, MarketCount: 8, TotalVolume: 900, FirstSeen: old}, ProfileRetail},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, classifyWallet(tc.act, now))
		})
	}
}
