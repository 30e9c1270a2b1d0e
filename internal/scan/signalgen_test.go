package scan

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polysentry/polysentry/internal/config"
	"github.com/polysentry/polysentry/internal/score"
	"github.com/polysentry/polysentry/internal/signals"
)

var sgNow = time.Date(2025, 6, 17, 12, 0, 0, 0, time.UTC)

func scoredMarket(yes float64, daysToEnd float64, threat int) *MarketScore {
	return &MarketScore{
		Venue:         "polymarket",
		MarketID:      "m1",
		Slug:          "test-market",
		Question:      "Will it happen?",
		CurrentPrices: []float64{yes, 1 - yes},
		DaysToEnd:     daysToEnd,
		EndDate:       sgNow.Add(time.Duration(daysToEnd*24) * time.Hour),
		Signals: &signals.MarketSignals{
			MinorityOutcome: "Yes",
			MajorityOutcome: "No",
			MinorityPrice:   yes,
			MajorityPrice:   1 - yes,
			MinorityRatio:   0.5,
		},
		Score: &score.Result{ThreatScore: threat, ThreatLevel: score.Level(threat)},
	}
}

func TestFLBSignal_WindowBounds(t *testing.T) {
	// 5c longshot sits inside the (0.02, 0.10) FLB window.
	sig, ok := flbSignal(scoredMarket(0.05, 60, 10), sgNow)
	require.True(t, ok)
	assert.Equal(t, ActionBuyNo, sig.Action)
	// Edge is the expected 60% decay of the yes price.
	assert.InDelta(t, 0.03, sig.Edge.Edge, 0.001)

	// The window is exclusive on both ends.
	_, ok = flbSignal(scoredMarket(0.02, 60, 10), sgNow)
	assert.False(t, ok, "0.02 is the extreme-longshot floor, not FLB territory")
	_, ok = flbSignal(scoredMarket(0.10, 60, 10), sgNow)
	assert.False(t, ok)
	_, ok = flbSignal(scoredMarket(0.50, 60, 10), sgNow)
	assert.False(t, ok)
}

func TestBondSignal(t *testing.T) {
	// 95c favorite resolving in ~36.5 days: spread 0.05 over 0.95,
	// annualized x10.
	ms := scoredMarket(0.95, 36.5, 5)
	ms.Signals.MinorityOutcome = "No"
	ms.Signals.MajorityOutcome = "Yes"
	ms.Signals.MinorityPrice = 0.05
	ms.Signals.MajorityPrice = 0.95

	sig, ok := bondSignal(ms, sgNow)
	require.True(t, ok)
	assert.Equal(t, ActionBond, sig.Action)
	assert.InDelta(t, 52.6, sig.AnnualizedYield, 0.1)

	// Out past a year there is no bond trade.
	far := scoredMarket(0.95, 400, 5)
	far.Signals.MinorityOutcome = "No"
	far.Signals.MajorityOutcome = "Yes"
	far.Signals.MinorityPrice = 0.05
	far.Signals.MajorityPrice = 0.95
	_, ok = bondSignal(far, sgNow)
	assert.False(t, ok)

	// 90c exactly does not qualify.
	_, ok = bondSignal(scoredMarket(0.90, 30, 5), sgNow)
	assert.False(t, ok)
}

func TestThreatSignal_Tiers(t *testing.T) {
	// Critical threat with a real edge becomes a high-confidence buy.
	hot := scoredMarket(0.27, 10, 75)
	sig, ok := threatSignal(hot, sgNow)
	require.True(t, ok)
	assert.Equal(t, ActionBuyYes, sig.Action)
	assert.Equal(t, TierHigh, sig.Confidence)
	assert.Positive(t, sig.Edge.Edge)

	// Moderate threat only earns a watch.
	warm := scoredMarket(0.30, 10, 30)
	sig, ok = threatSignal(warm, sgNow)
	require.True(t, ok)
	assert.Equal(t, ActionWatch, sig.Action)

	// Below the moderate band nothing is emitted.
	_, ok = threatSignal(scoredMarket(0.30, 10, 10), sgNow)
	assert.False(t, ok)

	// Live events are an explicit avoid.
	live := scoredMarket(0.45, 0.1, 0)
	live.LiveEvent = true
	sig, ok = threatSignal(live, sgNow)
	require.True(t, ok)
	assert.Equal(t, ActionAvoid, sig.Action)
}

func TestSignalFilters(t *testing.T) {
	sig := Signal{
		Action:     ActionBuyYes,
		Confidence: TierMedium,
		Edge:       Edge{Edge: 0.04},
		Timing:     Timing{DaysToResolution: 30},
	}

	assert.True(t, passes(sig, config.SignalOptions{}))
	assert.True(t, passes(sig, config.SignalOptions{MinConfidence: TierMedium}))
	assert.False(t, passes(sig, config.SignalOptions{MinConfidence: TierHigh}))
	assert.False(t, passes(sig, config.SignalOptions{ActionFilter: ActionBond}))
	assert.False(t, passes(sig, config.SignalOptions{MaxDays: 14}))
	assert.False(t, passes(sig, config.SignalOptions{MinEdge: 0.05}))
	assert.True(t, passes(sig, config.SignalOptions{MinEdge: 0.04}))
}

func TestRiskFlags(t *testing.T) {
	ms := scoredMarket(0.30, 10, 50)
	ms.VenueHasWalletIdentity = false
	ms.Liquidity = 1000
	ms.Signals.SampleCapped = true

	flags := riskFlags(ms)
	assert.Contains(t, flags, "no_wallet_identity")
	assert.Contains(t, flags, "capped_sample")
	assert.Contains(t, flags, "thin_liquidity")
}
