package kalshi

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polysentry/polysentry/internal/model"
)

func obj(t *testing.T, raw string) model.Obj {
	t.Helper()
	o := model.DecodeObj(json.RawMessage(raw))
	require.NotNil(t, o)
	return o
}

func TestDecodeMarket_CentsToProbability(t *testing.T) {
	o := obj(t, `{
		"ticker": "FEDCUT-25SEP",
		"title": "Fed cuts rates in September?",
		"last_price": 62,
		"volume_24h": 15000,
		"volume": 80000,
		"liquidity": 250000
	}`)

	m, ok := decodeMarket(o, "Fed decision", "September meeting")
	require.True(t, ok)
	assert.Equal(t, "FEDCUT-25SEP", m.ID)
	assert.Equal(t, "kalshi", m.Venue)
	assert.Equal(t, []string{"Yes", "No"}, m.Outcomes)
	assert.InDelta(t, 0.62, m.OutcomePrices[0], 1e-9)
	assert.InDelta(t, 0.38, m.OutcomePrices[1], 1e-9)
	assert.InDelta(t, 2500, m.Liquidity, 1e-9)
	assert.False(t, m.HasWalletIdentity)
}

func TestDecodeMarket_MidpointFallback(t *testing.T) {
	o := obj(t, `{"ticker": "T1", "title": "q", "yes_bid": 40, "yes_ask": 50}`)
	m, ok := decodeMarket(o, "", "")
	require.True(t, ok)
	assert.InDelta(t, 0.45, m.OutcomePrices[0], 1e-9)
}

func TestDecodeMarket_MissingTicker(t *testing.T) {
	o := obj(t, `{"title": "no ticker"}`)
	_, ok := decodeMarket(o, "", "")
	assert.False(t, ok)
}

func TestDecodeTrades_PseudoWalletsAndSides(t *testing.T) {
	objs := []model.Obj{
		obj(t, `{"trade_id": "t1", "count": 10, "yes_price": 30, "taker_side": "yes", "created_time": "2025-06-17T12:00:00Z"}`),
		obj(t, `{"trade_id": "t2", "count": 5, "yes_price": 30, "taker_side": "no"}`),
		obj(t, `{"count": 5, "yes_price": 30}`),
		obj(t, `{"trade_id": "t4", "count": 0, "yes_price": 30}`),
	}

	trades := decodeTrades(objs, "T1")
	require.Len(t, trades, 2)

	// Yes taker buys Yes at the yes price.
	assert.Equal(t, "Yes", trades[0].Outcome)
	assert.InDelta(t, 0.30, trades[0].Price, 1e-9)
	assert.Equal(t, "k_t1", trades[0].Wallet)
	assert.Equal(t, model.SideBuy, trades[0].Side)

	// No taker buys No at the complement when no_price is absent.
	assert.Equal(t, "No", trades[1].Outcome)
	assert.InDelta(t, 0.70, trades[1].Price, 1e-9)
	assert.Equal(t, "k_t2", trades[1].Wallet)

	// Every pseudo-wallet is unique; wallet clustering is meaningless on
	// this venue and the flag downstream says so.
	assert.NotEqual(t, trades[0].Wallet, trades[1].Wallet)
}

func TestSportTickerExclusion(t *testing.T) {
	assert.True(t, sportTickerRe.MatchString("KXNBA-FINALS"))
	assert.True(t, sportTickerRe.MatchString("KXUFC-300"))
	assert.False(t, sportTickerRe.MatchString("KXCPI-25"))
	assert.False(t, sportTickerRe.MatchString("FEDCUT-25SEP"))
}
