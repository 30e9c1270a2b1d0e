// Package signals derives the per-market quantitative signals the score
// pipeline consumes: fresh-wallet pressure, flow direction, position
// sizing, and a fair-value estimate used by trading signals.
package signals

import (
	"math"
	"time"

	"github.com/polysentry/polysentry/internal/aggregate"
	"github.com/polysentry/polysentry/internal/model"
)

// MarketSignals is the derived signal set for one market, produced fresh
// each scan and owned by the orchestrator response.
type MarketSignals struct {
	TotalWallets     int     `json:"total_wallets"`
	TotalVolume      float64 `json:"total_volume"`
	TradeCount       int     `json:"trade_count"`
	SampleCapped     bool    `json:"sample_capped"`
	FreshWalletCount int     `json:"fresh_wallet_count"`
	FreshWalletRatio float64 `json:"fresh_wallet_ratio"`
	FreshBaseline    float64 `json:"fresh_baseline"`
	FreshExcess      float64 `json:"fresh_wallet_excess"`
	LargePosCount    int     `json:"large_position_count"`
	LargePosRatio    float64 `json:"large_position_ratio"`

	FlowDirection    string  `json:"flow_direction_v2"`
	FlowImbalance    float64 `json:"flow_imbalance"`
	MinorityRatio    float64 `json:"minority_flow_ratio"`
	MinorityOutcome  string  `json:"minority_outcome"`
	MajorityOutcome  string  `json:"majority_outcome"`
	MinoritySideFlow float64 `json:"minority_side_flow"`
	MajoritySideFlow float64 `json:"majority_side_flow"`
	MinorityPrice    float64 `json:"minority_price"`
	MajorityPrice    float64 `json:"majority_price"`

	VolumeVsLiquidity float64 `json:"volume_vs_liquidity"`
	OffHoursFraction  float64 `json:"off_hours_fraction"`
	OffHoursLargeUSD  float64 `json:"off_hours_large_usd"`
	MaxWalletVolume   float64 `json:"max_wallet_volume"`
}

// Thresholds for the 4-way flow label over the minority share r.
const (
	minorityHeavyR = 0.3
	mixedR         = 0.1
)

// Derive computes signals from aggregates and current prices. The caller
// picks the sample cap (295 scan, 195 pulse) when aggregating, so the
// capped-sample baseline already matches the call path here.
func Derive(agg *aggregate.Result, m *model.Market, now time.Time) *MarketSignals {
	s := &MarketSignals{
		TotalWallets:     agg.TotalWallets(),
		TotalVolume:      agg.TotalVolume(),
		TradeCount:       agg.TradeCount,
		SampleCapped:     agg.Capped,
		FreshWalletCount: agg.FreshWallets(now),
		LargePosCount:    agg.LargePositions(),
		OffHoursFraction: agg.OffHoursFraction(),
		OffHoursLargeUSD: agg.OffHoursLargeUSD,
		MaxWalletVolume:  agg.MaxWalletVolume,
		FlowDirection:    model.FlowNeutral,
	}

	if s.TotalWallets > 0 {
		s.FreshWalletRatio = float64(s.FreshWalletCount) / float64(s.TotalWallets)
		s.LargePosRatio = float64(s.LargePosCount) / float64(s.TotalWallets)
	}
	s.FreshBaseline = model.FreshBaselineRatio
	if s.SampleCapped {
		s.FreshBaseline = model.FreshBaselineRatioCapped
	}
	s.FreshExcess = math.Max(0, s.FreshWalletRatio-s.FreshBaseline)

	deriveFlow(s, agg, m)

	if m.Liquidity > 0 {
		s.VolumeVsLiquidity = math.Min(m.Volume24h/m.Liquidity, 5) / 5
	}
	return s
}

// deriveFlow labels buy-flow imbalance between the minority outcome (the
// lower-priced one) and the majority outcome.
func deriveFlow(s *MarketSignals, agg *aggregate.Result, m *model.Market) {
	if len(m.Outcomes) < 2 || len(m.OutcomePrices) < 2 || len(m.Outcomes) != len(m.OutcomePrices) {
		return
	}

	minIdx, majIdx := 0, 0
	for i, p := range m.OutcomePrices {
		if p < m.OutcomePrices[minIdx] {
			minIdx = i
		}
		if p > m.OutcomePrices[majIdx] {
			majIdx = i
		}
	}
	if minIdx == majIdx {
		majIdx = 1 - minIdx // equal prices on a binary; keep sides distinct
	}

	s.MinorityOutcome = m.Outcomes[minIdx]
	s.MajorityOutcome = m.Outcomes[majIdx]
	s.MinorityPrice = m.OutcomePrices[minIdx]
	s.MajorityPrice = m.OutcomePrices[majIdx]
	s.MinoritySideFlow = agg.BuyVolumeByOutcome[s.MinorityOutcome]
	s.MajoritySideFlow = agg.BuyVolumeByOutcome[s.MajorityOutcome]

	total := s.MinoritySideFlow + s.MajoritySideFlow
	if total <= 0 {
		s.FlowDirection = model.FlowNeutral
		return
	}
	r := s.MinoritySideFlow / total
	s.MinorityRatio = r
	s.FlowImbalance = (s.MinoritySideFlow - s.MajoritySideFlow) / total

	switch {
	case r > minorityHeavyR:
		s.FlowDirection = model.FlowMinorityHeavy
	case r > mixedR:
		s.FlowDirection = model.FlowMixed
	default:
		s.FlowDirection = model.FlowMajorityAligned
	}
}

// FairValue estimates where the minority price "should" be given observed
// flow. Blend: 60% flow-implied, 25% price plus a large-position boost,
// 15% price plus a fresh-wallet boost, clamped to [0.05, 0.95].
func (s *MarketSignals) FairValue() float64 {
	flowImplied := clamp(s.MinorityRatio, 0, 1)
	largeBoost := math.Min(0.15, s.LargePosRatio*0.5)
	freshBoost := math.Min(0.15, s.FreshExcess)

	fv := 0.60*flowImplied + 0.25*(s.MinorityPrice+largeBoost) + 0.15*(s.MinorityPrice+freshBoost)
	return clamp(fv, 0.05, 0.95)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
