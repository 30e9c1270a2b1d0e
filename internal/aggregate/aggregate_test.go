package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polysentry/polysentry/internal/model"
)

// Tuesday 14:00 UTC, comfortably inside regular hours.
var aggNow = time.Date(2025, 6, 17, 14, 0, 0, 0, time.UTC)

func trade(wallet string, usd float64, side, outcome string, ts time.Time) model.Trade {
	// Size*price = usd with price fixed at 0.5.
	return model.Trade{
		Timestamp: ts.Unix(),
		MarketID:  "m1",
		Outcome:   outcome,
		Side:      side,
		Size:      usd / 0.5,
		Price:     0.5,
		Wallet:    wallet,
	}
}

func TestTrades_WalletAndFlowAggregation(t *testing.T) {
	ts := aggNow.Add(-1 * time.Hour)
	trades := []model.Trade{
		trade("w1", 600, model.SideBuy, "Yes", ts),
		trade("w1", 500, model.SideBuy, "Yes", ts),
		trade("w2", 200, model.SideBuy, "No", ts),
		trade("w3", 100, model.SideSell, "Yes", ts),
	}

	res := Trades(trades, model.TradeCapScan)

	require.Equal(t, 3, res.TotalWallets())
	assert.Equal(t, 4, res.TradeCount)
	assert.InDelta(t, 1300, res.TotalBuyVolume, 0.01)
	assert.InDelta(t, 100, res.TotalSellVolume, 0.01)
	assert.InDelta(t, 1100, res.BuyVolumeByOutcome["Yes"], 0.01)
	assert.InDelta(t, 200, res.BuyVolumeByOutcome["No"], 0.01)
	assert.InDelta(t, 1100, res.MaxWalletVolume, 0.01)
	assert.False(t, res.Capped)

	// w1 crossed $1000 cumulative, the only large position.
	assert.Equal(t, 1, res.LargePositions())
}

func TestTrades_CapDetection(t *testing.T) {
	trades := make([]model.Trade, model.TradeCapScan)
	for i := range trades {
		trades[i] = trade("w", 10, model.SideBuy, "Yes", aggNow)
	}
	assert.True(t, Trades(trades, model.TradeCapScan).Capped)
	assert.False(t, Trades(trades[:model.TradeCapScan-1], model.TradeCapScan).Capped)

	// The pulse path trips at its own, smaller cap.
	assert.True(t, Trades(trades[:model.TradeCapPulse], model.TradeCapPulse).Capped)
}

func TestVolumeFloorBoundary(t *testing.T) {
	// Exactly 10 wallets and $500 passes; 9 wallets or $499 is filtered.
	mk := func(wallets int, usdPer float64) *Result {
		var trades []model.Trade
		for i := 0; i < wallets; i++ {
			trades = append(trades, trade(string(rune('a'+i)), usdPer, model.SideBuy, "Yes", aggNow))
		}
		return Trades(trades, model.TradeCapScan)
	}

	assert.False(t, mk(10, 50).BelowVolumeFloor())  // 10 wallets, $500
	assert.True(t, mk(9, 56).BelowVolumeFloor())    // 9 wallets, $504
	assert.True(t, mk(10, 49.9).BelowVolumeFloor()) // 10 wallets, $499
}

func TestOffHoursWindow(t *testing.T) {
	cases := []struct {
		name string
		ts   time.Time
		want bool
	}{
		{"tuesday 03:00 utc", time.Date(2025, 6, 17, 3, 0, 0, 0, time.UTC), true},
		{"tuesday 10:59 utc", time.Date(2025, 6, 17, 10, 59, 0, 0, time.UTC), true},
		{"tuesday 11:00 utc", time.Date(2025, 6, 17, 11, 0, 0, 0, time.UTC), false},
		{"tuesday 02:59 utc", time.Date(2025, 6, 17, 2, 59, 0, 0, time.UTC), false},
		{"saturday noon", time.Date(2025, 6, 21, 12, 0, 0, 0, time.UTC), true},
		{"sunday evening", time.Date(2025, 6, 22, 20, 0, 0, 0, time.UTC), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := Trades([]model.Trade{trade("w", 600, model.SideBuy, "Yes", tc.ts)}, 0)
			assert.Equal(t, tc.want, res.OffHoursTrades == 1)
			if tc.want {
				// $600 is over the large-trade bar, so it lands in the
				// off-hours large tally too.
				assert.InDelta(t, 600, res.OffHoursLargeUSD, 0.01)
			}
		})
	}
}

func TestOffHoursLargeTally(t *testing.T) {
	late := time.Date(2025, 6, 17, 4, 0, 0, 0, time.UTC)
	trades := []model.Trade{
		trade("w1", 100, model.SideBuy, "Yes", late),
		trade("w2", 100, model.SideBuy, "Yes", late),
		trade("w3", 100, model.SideBuy, "No", late),
		trade("w4", 4, model.SideBuy, "Yes", late), // under the $5 bar
	}
	res := Trades(trades, 0)

	assert.Equal(t, 4, res.OffHoursTrades)
	// Small off-hours trades count too; only sub-$5 dust is excluded.
	assert.InDelta(t, 300, res.OffHoursLargeUSD, 0.01)
}

func TestFreshWallets(t *testing.T) {
	old := aggNow.Add(-30 * 24 * time.Hour)
	recent := aggNow.Add(-2 * 24 * time.Hour)

	trades := []model.Trade{
		trade("vet", 5000, model.SideBuy, "Yes", old),
		trade("vet", 100, model.SideBuy, "Yes", recent), // first seen 30d ago, not fresh
		trade("fresh", 80, model.SideBuy, "Yes", recent),
		trade("tiny", 20, model.SideBuy, "Yes", recent), // under the $50 volume bar
	}
	res := Trades(trades, model.TradeCapScan)

	assert.Equal(t, 1, res.FreshWallets(aggNow))
}
