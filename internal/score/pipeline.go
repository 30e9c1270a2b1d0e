// Package score implements the layered threat-score pipeline: a weighted
// raw conviction, then multipliers, hard caps, dampenings and the live
// zero-out, applied in a fixed order. Every modifier that fires is
// recorded on the result so a reader can reconstruct the score by hand.
package score

import (
	"fmt"
	"math"
	"time"

	"github.com/polysentry/polysentry/internal/model"
	"github.com/polysentry/polysentry/internal/signals"
)

// Input carries everything the pipeline needs for one market.
type Input struct {
	Market   *model.Market
	Signals  *signals.MarketSignals
	Category string
	Live     bool
	Now      time.Time
}

// Breakdown is the conviction decomposition, weights fixed at 5/3/2/1.
type Breakdown struct {
	FlowScore      float64 `json:"flow_v2_score"`
	FlowComponent  float64 `json:"flow_component"`
	LargeComponent float64 `json:"large_position_component"`
	FreshComponent float64 `json:"fresh_wallet_component"`
	VolLiqComponent float64 `json:"volume_liquidity_component"`
	RawConviction  float64 `json:"raw_conviction"`
	TotalWeight    float64 `json:"total_weight"`
}

// Result is the final score with its full modifier trail.
type Result struct {
	ThreatScore int       `json:"threat_score"`
	ThreatLevel string    `json:"threat_level"`
	Breakdown   Breakdown `json:"breakdown"`

	// Named modifier flags, true only when the rule fired.
	FwFlowDampenFactor   float64 `json:"fw_flow_dampen_factor"`
	FwContextMultiplier  float64 `json:"fw_excess_multiplier,omitempty"`
	OffHoursMultiplier   float64 `json:"off_hours_multiplier"`
	ConsensusDampened    bool    `json:"consensus_dampened"`
	LargePositionFloor   bool    `json:"large_position_floor,omitempty"`
	FreshExcessCapped    bool    `json:"fresh_excess_capped,omitempty"`
	NewMarketBoost       int     `json:"new_market_boost,omitempty"`
	VeteranFlowBonus     int     `json:"veteran_flow_bonus,omitempty"`
	NearExpiryConsensus  bool    `json:"near_expiry_consensus,omitempty"`
	CategoryDampenFactor float64 `json:"category_dampen_factor,omitempty"`
	ContextDampenFactor  float64 `json:"context_dampen_factor,omitempty"`
	ExtremeLongshotCap   bool    `json:"extreme_longshot_capped,omitempty"`
	LiveEventZeroed      bool    `json:"live_event,omitempty"`

	// Applied records each modifier in firing order, Notes carries the
	// human-readable annotations (veteran flow and the like).
	Applied []string `json:"applied_modifiers,omitempty"`
	Notes   []string `json:"notes,omitempty"`
}

func (r *Result) fire(name string) { r.Applied = append(r.Applied, name) }

// Fresh-excess dampening per flow direction: majority-aligned flow means
// the fresh cohort is just following consensus.
var freshFlowDampen = map[string]float64{
	model.FlowMajorityAligned: 0.2,
	model.FlowNeutral:         0.2,
	model.FlowMixed:           0.6,
	model.FlowMinorityHeavy:   1.0,
}

// Evaluate runs the full pipeline. Pure function of its input; feeding the
// same input twice yields identical output.
func Evaluate(in Input) *Result {
	s := in.Signals
	m := in.Market
	res := &Result{OffHoursMultiplier: 1.0, FwFlowDampenFactor: freshFlowDampen[s.FlowDirection]}

	daysToEnd := m.DaysToEnd(in.Now)
	minPrice := m.MinPrice()
	maxPrice := m.MaxPrice()

	// 1. Dampen fresh excess by flow direction.
	freshEff := s.FreshExcess * res.FwFlowDampenFactor

	// 2. Context multiplier: sports longshots attract fresh lottery
	// money that says nothing about information asymmetry.
	sportsLongshot := in.Category == model.CategorySports && minPrice < 0.05 && daysToEnd > 90
	if sportsLongshot {
		freshEff *= 0.5
		res.FwContextMultiplier = 0.5
		res.fire("fw_context_multiplier")
	}

	// 3. Flow score in [0, 5].
	var flowScore float64
	switch s.FlowDirection {
	case model.FlowMinorityHeavy:
		flowScore = 4 + math.Min(1, s.MinorityRatio)
	case model.FlowMixed:
		flowScore = 2 + math.Min(1, s.MinorityRatio*3)
	case model.FlowMajorityAligned:
		flowScore = math.Abs(s.FlowImbalance)
	}

	// 4. Raw conviction, total weight 11.
	volLiqMult := 1.0
	if s.FlowDirection == model.FlowMajorityAligned {
		volLiqMult = 0.5
	}
	b := Breakdown{
		FlowScore:       flowScore,
		FlowComponent:   model.WeightFlow * (flowScore / 5),
		LargeComponent:  model.WeightLargePos * s.LargePosRatio,
		FreshComponent:  model.WeightFresh * math.Min(freshEff/0.4, 1),
		VolLiqComponent: model.WeightVolLiq * (s.VolumeVsLiquidity * volLiqMult),
		TotalWeight:     model.WeightTotal,
	}
	b.RawConviction = b.FlowComponent + b.LargeComponent + b.FreshComponent + b.VolLiqComponent
	res.Breakdown = b

	// 5. Off-hours multiplier.
	switch {
	case s.OffHoursLargeUSD >= 5000:
		res.OffHoursMultiplier = 1.5
	case s.OffHoursLargeUSD >= 1000:
		res.OffHoursMultiplier = 1.3
	case s.OffHoursFraction > 0.5:
		res.OffHoursMultiplier = 1.15
	}
	if res.OffHoursMultiplier != 1.0 {
		res.fire("off_hours_multiplier")
	}

	// 6. Scale to [0, 100].
	score := math.Round(b.RawConviction / model.WeightTotal * 100 * res.OffHoursMultiplier)

	// 7. Consensus dampening: near-certain price with no fresh anomaly.
	if maxPrice >= 0.98 && s.FreshExcess <= 0.20 {
		score *= 0.4
		res.ConsensusDampened = true
		res.fire("consensus_dampened")
	}

	// 8. No large positions caps conviction at 50.
	if s.LargePosCount == 0 && score > 50 {
		score = 50
		res.LargePositionFloor = true
		res.fire("large_position_floor")
	}

	// 9. Zero fresh excess caps at 6. Heavy minority flow at veteran
	// scale is exempt: established wallets carry no fresh cohort by
	// definition and the cap would silence exactly the markets the
	// veteran bonus exists for.
	veteranScale := s.FlowDirection == model.FlowMinorityHeavy && s.MinoritySideFlow >= 50000
	if s.FreshExcess <= 0 && score > 6 && !veteranScale {
		score = 6
		res.FreshExcessCapped = true
		res.fire("fresh_excess_capped")
	}

	// 10. New-market boost, suppressed under consensus dampening.
	if m.AgeHours(in.Now) > 0 && m.AgeHours(in.Now) < 48 && !res.ConsensusDampened {
		boost := 3
		if s.MaxWalletVolume >= 10000 {
			boost = 5
		} else if s.TotalVolume >= 50000 {
			boost = 4
		}
		score += float64(boost)
		res.NewMarketBoost = boost
		res.fire("new_market_boost")
	}

	// 11. Veteran minority-flow bonus: heavy minority money from aged
	// wallets is the strongest single tell this pipeline knows.
	if s.FlowDirection == model.FlowMinorityHeavy && s.FreshExcess < 0.05 &&
		s.MinoritySideFlow >= 50000 && !res.ConsensusDampened {
		base := 2
		switch {
		case s.MinoritySideFlow >= 500000:
			base = 6
		case s.MinoritySideFlow >= 250000:
			base = 4
		case s.MinoritySideFlow >= 100000:
			base = 3
		}
		mult := 1.0
		switch {
		case daysToEnd <= 7:
			mult = 1.5
		case daysToEnd <= 30:
			mult = 1.2
		case daysToEnd > 365:
			mult = 0.5
		}
		bonus := int(math.Round(float64(base) * mult))
		score += float64(bonus)
		res.VeteranFlowBonus = bonus
		res.fire("veteran_flow_bonus")
		res.Notes = append(res.Notes, fmt.Sprintf(
			"veteran capital: $%.0f minority-side flow from established wallets (%.0fd to resolution)",
			s.MinoritySideFlow, daysToEnd))
	}

	// 12. Near-expiry consensus.
	if daysToEnd > 0 && daysToEnd < 2 && maxPrice >= 0.95 {
		score *= 0.3
		res.NearExpiryConsensus = true
		res.fire("near_expiry_consensus")
	}

	// 13. Category dampening; the largest fired factor wins.
	if factor, name := dampenFactor(in, daysToEnd); factor > 0 {
		score = math.Round(score * (1 - factor))
		res.CategoryDampenFactor = factor
		res.fire(name)
	}

	// 14. Consensus hard cap.
	if res.ConsensusDampened {
		hardCap := 10.0
		if s.FreshExcess < 0.10 {
			hardCap = 5.0
		}
		if score > hardCap {
			score = hardCap
			res.fire("consensus_hard_cap")
		}
	}

	// 15. Context dampening and the extreme-longshot cap.
	switch in.Category {
	case model.CategoryGeopolitical:
		score *= 0.6
		res.ContextDampenFactor = 0.6
		res.fire("geopolitical_news_cycle")
	case model.CategoryPolitical:
		if maxPrice >= 0.90 {
			score *= 0.7
			res.ContextDampenFactor = 0.7
			res.fire("political_consensus")
		}
	}
	extremeLongshot := minPrice < model.ExtremeLongshotPrice ||
		(in.Category == model.CategorySports && minPrice < 0.05 && daysToEnd > 90)
	if extremeLongshot && s.FreshExcess <= 0.20 && score > 3 {
		score = 3
		res.ExtremeLongshotCap = true
		res.fire("extreme_longshot_capped")
	}

	// 16. Live events score zero, always.
	if in.Live {
		score = 0
		res.LiveEventZeroed = true
		res.fire("live_event_zeroed")
	}

	// 17. Clamp and band.
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	res.ThreatScore = int(math.Round(score))
	res.ThreatLevel = Level(res.ThreatScore)
	return res
}

// Level maps a score to its threat band.
func Level(score int) string {
	switch {
	case score >= model.BandCritical:
		return model.LevelCritical
	case score >= model.BandHigh:
		return model.LevelHigh
	case score >= model.BandModerate:
		return model.LevelModerate
	default:
		return model.LevelLow
	}
}
