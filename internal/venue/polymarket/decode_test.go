package polymarket

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polysentry/polysentry/internal/model"
)

func TestDecodeMarkets_StringEncodedArrays(t *testing.T) {
	// The gamma API string-encodes outcomes and prices inside JSON.
	raw := json.RawMessage(`[{
		"conditionId": "0xabc",
		"slug": "fed-cut-september",
		"question": "Will the Fed cut rates in September?",
		"outcomes": "[\"Yes\", \"No\"]",
		"outcomePrices": "[\"0.62\", \"0.38\"]",
		"clobTokenIds": "[\"111\", \"222\"]",
		"volume24hr": 15000.5,
		"liquidityNum": 40000,
		"endDate": "2025-09-18T00:00:00Z"
	}]`)

	markets := decodeMarkets(raw)
	require.Len(t, markets, 1)
	m := markets[0]

	assert.Equal(t, "0xabc", m.ID)
	assert.Equal(t, "polymarket", m.Venue)
	assert.Equal(t, []string{"Yes", "No"}, m.Outcomes)
	require.Len(t, m.OutcomePrices, 2)
	assert.InDelta(t, 0.62, m.OutcomePrices[0], 1e-9)
	assert.Equal(t, []string{"111", "222"}, m.TokenIDs)
	assert.InDelta(t, 15000.5, m.Volume24h, 1e-9)
	assert.True(t, m.HasWalletIdentity)
}

func TestDecodeMarkets_CommaFallbackAndMissingID(t *testing.T) {
	raw := json.RawMessage(`[
		{"conditionId": "0x1", "question": "q", "outcomes": "YES,NO"},
		{"question": "no id, dropped"}
	]`)

	markets := decodeMarkets(raw)
	require.Len(t, markets, 1)
	assert.Equal(t, []string{"YES", "NO"}, markets[0].Outcomes)
}

func TestDecodeTrades_WalletFieldPriority(t *testing.T) {
	// "wallet" outranks "proxyWallet" when both are present.
	raw := json.RawMessage(`[
		{"side": "BUY", "outcome": "Yes", "size": 100, "price": 0.27,
		 "wallet": "0xprimary", "proxyWallet": "0xproxy", "timestamp": 1750161600},
		{"side": "SELL", "outcome": "Yes", "size": 50, "price": 0.28,
		 "proxyWallet": "0xproxy", "timestamp": 1750161600},
		{"side": "MERGE", "outcome": "Yes", "size": 10, "price": 0.5},
		{"side": "BUY", "outcome": "Yes", "size": 0, "price": 0.5}
	]`)

	trades := decodeTrades(raw, "m1")
	require.Len(t, trades, 2)

	assert.Equal(t, "0xprimary", trades[0].Wallet)
	assert.Equal(t, model.SideBuy, trades[0].Side)
	assert.InDelta(t, 27, trades[0].USD(), 1e-9)

	// Falls through to proxyWallet when the primary alias is absent.
	assert.Equal(t, "0xproxy", trades[1].Wallet)
	assert.Equal(t, model.SideSell, trades[1].Side)
}

func TestDecodeTrades_MillisecondTimestamps(t *testing.T) {
	raw := json.RawMessage(`[
		{"side": "BUY", "outcome": "Yes", "size": 10, "price": 0.5, "wallet": "w", "timestamp": 1750161600000}
	]`)
	trades := decodeTrades(raw, "m1")
	require.Len(t, trades, 1)
	assert.Equal(t, int64(1750161600), trades[0].Timestamp)
}

func TestSummarizeActivity(t *testing.T) {
	raw := json.RawMessage(`[
		{"type": "TRADE", "usdcSize": 500, "conditionId": "0x1", "timestamp": 1750000000},
		{"type": "TRADE", "size": 100, "price": 0.4, "conditionId": "0x2", "timestamp": 1749000000},
		{"type": "REDEEM", "usdcSize": 900}
	]`)

	sum := summarizeActivity("0xw", raw)
	assert.Equal(t, 2, sum.TotalTrades, "non-trade activity is skipped")
	assert.InDelta(t, 540, sum.TotalVolume, 1e-9)
	assert.Equal(t, 2, sum.MarketCount)
	assert.Equal(t, int64(1749000000), sum.FirstSeen)
}
