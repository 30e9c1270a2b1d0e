package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/polysentry/polysentry/internal/model"
	"github.com/polysentry/polysentry/internal/signals"
)

func TestBelowOutputFloor(t *testing.T) {
	mk := func(wallets int, volume float64) *MarketScore {
		return &MarketScore{Signals: &signals.MarketSignals{TotalWallets: wallets, TotalVolume: volume}}
	}

	assert.False(t, belowOutputFloor(mk(10, 500)))
	assert.True(t, belowOutputFloor(mk(9, 5000)), "wallet half of the floor")
	assert.True(t, belowOutputFloor(mk(50, 499)), "volume half of the floor")

	// Lightweight entries carry no aggregates and pass through.
	assert.False(t, belowOutputFloor(&MarketScore{}))
}

func TestSplitDeep(t *testing.T) {
	markets := []model.Market{
		{ID: "a", Volume24h: 100},
		{ID: "b", Volume24h: 900},
		{ID: "c", Volume24h: 500},
	}

	deep, light := splitDeep(markets, 2)
	assert.Equal(t, []string{"b", "c"}, []string{deep[0].ID, deep[1].ID})
	assert.Equal(t, "a", light[0].ID)

	deep, light = splitDeep(markets, 5)
	assert.Len(t, deep, 3)
	assert.Empty(t, light)
}
