package scan

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/polysentry/polysentry/internal/config"
	"github.com/polysentry/polysentry/internal/model"
	"github.com/polysentry/polysentry/internal/persist"
)

// Signal actions.
const (
	ActionBuyYes = "BUY_YES"
	ActionBuyNo  = "BUY_NO"
	ActionWatch  = "WATCH"
	ActionAvoid  = "AVOID"
	ActionBond   = "BOND"
)

// Confidence tiers, ordered.
const (
	TierHigh   = "HIGH"
	TierMedium = "MEDIUM"
	TierLow    = "LOW"
)

var tierRank = map[string]int{TierLow: 0, TierMedium: 1, TierHigh: 2}

// Edge is the fair-value block of a signal.
type Edge struct {
	FairValue float64 `json:"fair_value"`
	Edge      float64 `json:"edge"`
	EdgePct   float64 `json:"edge_pct"`
}

// Timing is the resolution block of a signal.
type Timing struct {
	Resolves         time.Time `json:"resolves,omitempty"`
	DaysToResolution float64   `json:"days_to_resolution"`
	Urgency          string    `json:"urgency"`
}

// Signal is one actionable output of the signal pass.
type Signal struct {
	Venue      string       `json:"venue"`
	MarketID   string       `json:"market_id"`
	Slug       string       `json:"slug,omitempty"`
	Question   string       `json:"question"`
	Action     string       `json:"action"`
	Confidence string       `json:"confidence"`
	Thesis     string       `json:"thesis"`
	Signals    *MarketScore `json:"signals,omitempty"`
	Edge       Edge         `json:"edge"`
	Timing     Timing       `json:"timing"`
	RiskFlags  []string     `json:"risk_flags,omitempty"`

	// AnnualizedYield is set on BOND signals only.
	AnnualizedYield float64 `json:"annualized_yield,omitempty"`
}

// SignalsMeta summarizes the signal pass and its filters.
type SignalsMeta struct {
	Generated   int                  `json:"generated"`
	Emitted     int                  `json:"emitted"`
	Filters     config.SignalOptions `json:"filters"`
	GeneratedAt time.Time            `json:"generated_at"`
}

// SignalsResult is the signal document.
type SignalsResult struct {
	Signals []Signal    `json:"signals"`
	Meta    SignalsMeta `json:"meta"`
}

// Signals runs a scan and turns scored markets into actionable calls,
// plus the price-only FLB and bond sweeps. Emitted BUY/BOND calls are
// appended to the post log for later backtesting.
func (o *Orchestrator) Signals(ctx context.Context, opts config.SignalOptions) (*SignalsResult, error) {
	scanRes, err := o.Scan(ctx, o.eng.Config.Scan)
	if err != nil {
		return nil, err
	}
	now := o.eng.Now()

	var all []Signal
	for i := range scanRes.Scan {
		ms := &scanRes.Scan[i]
		if ms.Signals == nil || ms.Score == nil {
			continue
		}
		if sig, ok := threatSignal(ms, now); ok {
			all = append(all, sig)
		}
		if sig, ok := flbSignal(ms, now); ok {
			all = append(all, sig)
		}
		if sig, ok := bondSignal(ms, now); ok {
			all = append(all, sig)
		}
	}

	res := &SignalsResult{Meta: SignalsMeta{Generated: len(all), Filters: opts, GeneratedAt: now}}
	for _, sig := range all {
		if !passes(sig, opts) {
			continue
		}
		res.Signals = append(res.Signals, sig)
		if sig.Action == ActionBuyYes || sig.Action == ActionBuyNo || sig.Action == ActionBond {
			o.logPost(sig)
		}
	}
	sort.SliceStable(res.Signals, func(i, j int) bool {
		if tierRank[res.Signals[i].Confidence] != tierRank[res.Signals[j].Confidence] {
			return tierRank[res.Signals[i].Confidence] > tierRank[res.Signals[j].Confidence]
		}
		return res.Signals[i].Edge.Edge > res.Signals[j].Edge.Edge
	})
	res.Meta.Emitted = len(res.Signals)
	return res, nil
}

// threatSignal converts a threat score plus fair-value edge into a call.
func threatSignal(ms *MarketScore, now time.Time) (Signal, bool) {
	s := ms.Signals
	fv := s.FairValue()
	edge := fv - s.MinorityPrice

	sig := Signal{
		Venue:    ms.Venue,
		MarketID: ms.MarketID,
		Slug:     ms.Slug,
		Question: ms.Question,
		Signals:  ms,
		Edge: Edge{
			FairValue: round2(fv),
			Edge:      round2(edge),
			EdgePct:   pct(edge, s.MinorityPrice),
		},
		Timing: timing(ms, now),
	}
	sig.RiskFlags = riskFlags(ms)

	threat := ms.Score.ThreatScore
	switch {
	case ms.LiveEvent || ms.Score.CategoryDampenFactor >= 0.4:
		sig.Action = ActionAvoid
		sig.Confidence = TierLow
		sig.Thesis = "dampened or live market, signal quality too low to act"
	case threat >= model.BandCritical && edge > 0.05:
		sig.Action = buySide(s.MinorityOutcome)
		sig.Confidence = TierHigh
		sig.Thesis = fmt.Sprintf("critical threat %d with %s flow into %s at %.2f, fair value %.2f",
			threat, s.FlowDirection, s.MinorityOutcome, s.MinorityPrice, fv)
	case threat >= model.BandHigh && edge > 0.03:
		sig.Action = buySide(s.MinorityOutcome)
		sig.Confidence = TierMedium
		sig.Thesis = fmt.Sprintf("high threat %d, minority side underpriced by %.0f%%",
			threat, pct(edge, s.MinorityPrice))
	case threat >= model.BandModerate:
		sig.Action = ActionWatch
		sig.Confidence = TierLow
		sig.Thesis = fmt.Sprintf("moderate threat %d, watching for flow confirmation", threat)
	default:
		return Signal{}, false
	}
	return sig, true
}

// flbSignal is the price-only favorite-longshot-bias sweep: longshots in
// (0.02, 0.10) lose about 60% of their price on average.
func flbSignal(ms *MarketScore, now time.Time) (Signal, bool) {
	yes := yesPriceOf(ms)
	if yes <= model.ExtremeLongshotPrice || yes >= 0.10 {
		return Signal{}, false
	}
	edge := yes * model.FLBLossRate
	return Signal{
		Venue:      ms.Venue,
		MarketID:   ms.MarketID,
		Slug:       ms.Slug,
		Question:   ms.Question,
		Action:     ActionBuyNo,
		Confidence: TierLow,
		Thesis: fmt.Sprintf("favorite-longshot bias: yes at %.2f is historically overpriced by ~%.0f%%",
			yes, model.FLBLossRate*100),
		Edge:      Edge{FairValue: round2(yes * (1 - model.FLBLossRate)), Edge: round2(edge), EdgePct: pct(edge, yes)},
		Timing:    timing(ms, now),
		RiskFlags: []string{"price_only_signal"},
	}, true
}

// bondSignal treats near-certain favorites as yield instruments.
func bondSignal(ms *MarketScore, now time.Time) (Signal, bool) {
	yes := yesPriceOf(ms)
	days := ms.DaysToEnd
	if yes <= 0.90 || yes >= 1.0 || days <= 0 || days > 365 {
		return Signal{}, false
	}
	spread := 1 - yes
	annualized := (spread / yes) * (365 / days) * 100
	return Signal{
		Venue:      ms.Venue,
		MarketID:   ms.MarketID,
		Slug:       ms.Slug,
		Question:   ms.Question,
		Action:     ActionBond,
		Confidence: TierLow,
		Thesis: fmt.Sprintf("bond: yes at %.2f resolving in %.0fd yields %.1f%% annualized",
			yes, days, annualized),
		Edge:            Edge{FairValue: 1.0, Edge: round2(spread), EdgePct: pct(spread, yes)},
		Timing:          timing(ms, now),
		AnnualizedYield: math.Round(annualized*10) / 10,
	}, true
}

func buySide(minorityOutcome string) string {
	if strings.EqualFold(minorityOutcome, "no") {
		return ActionBuyNo
	}
	return ActionBuyYes
}

func yesPriceOf(ms *MarketScore) float64 {
	if ms.Signals != nil {
		if strings.EqualFold(ms.Signals.MinorityOutcome, "yes") {
			return ms.Signals.MinorityPrice
		}
		if strings.EqualFold(ms.Signals.MajorityOutcome, "yes") {
			return ms.Signals.MajorityPrice
		}
	}
	if len(ms.CurrentPrices) > 0 {
		return ms.CurrentPrices[0]
	}
	return 0
}

func timing(ms *MarketScore, now time.Time) Timing {
	t := Timing{Resolves: ms.EndDate, DaysToResolution: math.Round(ms.DaysToEnd*10) / 10}
	switch {
	case ms.DaysToEnd > 0 && ms.DaysToEnd <= 2:
		t.Urgency = "IMMEDIATE"
	case ms.DaysToEnd <= 14:
		t.Urgency = "NEAR"
	default:
		t.Urgency = "FAR"
	}
	return t
}

func riskFlags(ms *MarketScore) []string {
	var flags []string
	if !ms.VenueHasWalletIdentity {
		flags = append(flags, "no_wallet_identity")
	}
	if ms.Signals.SampleCapped {
		flags = append(flags, "capped_sample")
	}
	if ms.Liquidity > 0 && ms.Liquidity < 5000 {
		flags = append(flags, "thin_liquidity")
	}
	if ms.Score != nil && ms.Score.ConsensusDampened {
		flags = append(flags, "consensus_priced")
	}
	return flags
}

func passes(sig Signal, opts config.SignalOptions) bool {
	if opts.ActionFilter != "" && sig.Action != opts.ActionFilter {
		return false
	}
	if min, ok := tierRank[opts.MinConfidence]; ok && tierRank[sig.Confidence] < min {
		return false
	}
	if opts.MaxDays > 0 && sig.Timing.DaysToResolution > float64(opts.MaxDays) {
		return false
	}
	if opts.MinEdge > 0 && sig.Edge.Edge < opts.MinEdge && sig.Action != ActionBond {
		return false
	}
	return true
}

func (o *Orchestrator) logPost(sig Signal) {
	score := 0
	flow := ""
	if sig.Signals != nil && sig.Signals.Score != nil {
		score = sig.Signals.Score.ThreatScore
	}
	if sig.Signals != nil && sig.Signals.Signals != nil {
		flow = sig.Signals.Signals.FlowDirection
	}
	err := o.eng.Persist.AppendPost(persist.PostRecord{
		Slug:          sig.Slug,
		Question:      sig.Question,
		Score:         score,
		YesPrice:      yesPriceOf(sig.Signals),
		FlowDirection: flow,
		Timestamp:     o.eng.Now(),
	})
	if err != nil {
		log.Warn().Str("slug", sig.Slug).Err(err).Msg("post log append failed")
	}
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func pct(edge, base float64) float64 {
	if base <= 0 {
		return 0
	}
	return math.Round(edge / base * 1000) / 10
}
