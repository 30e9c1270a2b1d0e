package scan

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/polysentry/polysentry/internal/aggregate"
	"github.com/polysentry/polysentry/internal/classify"
	"github.com/polysentry/polysentry/internal/config"
	"github.com/polysentry/polysentry/internal/fetch"
	"github.com/polysentry/polysentry/internal/model"
	"github.com/polysentry/polysentry/internal/score"
	"github.com/polysentry/polysentry/internal/signals"
	"github.com/polysentry/polysentry/internal/whale"
)

// Pulse shape bounds. The pulse path uses the smaller trade cap, which
// also moves the capped-sample fresh baseline.
const (
	pulseCandidates = 30
	hotMarketCount  = 10
)

// PulseStats is the aggregate block of the pulse document.
type PulseStats struct {
	HighestScore  int     `json:"highest_score"`
	ThreatLevel   string  `json:"threat_level"`
	TotalWallets  int     `json:"total_wallets"`
	TotalVolume   float64 `json:"total_volume"`
	MarketsScored int     `json:"markets_scored"`
}

// WhalePulse is the venue-wide whale aggregate.
type WhalePulse struct {
	TradeCount24h       int                 `json:"whale_trade_count_24h"`
	ConcentrationAlerts []string            `json:"concentration_alerts,omitempty"`
	TopPositions        []whale.TopPosition `json:"top_positions,omitempty"`
}

// PulseResult is the pulse document.
type PulseResult struct {
	Pulse      PulseStats    `json:"pulse"`
	Whale      *WhalePulse   `json:"whale_intelligence,omitempty"`
	HotMarkets []MarketScore `json:"hot_markets"`
	Timestamp  time.Time     `json:"timestamp"`
}

// Pulse runs a fast market-temperature pass over the top markets.
func (o *Orchestrator) Pulse(ctx context.Context) (*PulseResult, error) {
	now := o.eng.Now()
	markets, err := o.gather(ctx, defaultPulseOptions())
	if err != nil {
		return nil, err
	}
	deep, _ := splitDeep(markets, pulseCandidates)

	results := make(chan MarketScore, len(deep))
	idx := make([]*model.Market, len(deep))
	for i := range deep {
		idx[i] = &deep[i]
	}
	fetch.Batch(ctx, idx, scanBatchSize, scanBatchDelay, func(ctx context.Context, m *model.Market) {
		if ms, ok := o.pulseOne(ctx, m, now); ok {
			results <- ms
		}
	})
	close(results)

	res := &PulseResult{Timestamp: now}
	var scored []MarketScore
	for ms := range results {
		scored = append(scored, ms)
		res.Pulse.TotalWallets += ms.Signals.TotalWallets
		res.Pulse.TotalVolume += ms.Signals.TotalVolume
		if ms.ThreatScore() > res.Pulse.HighestScore {
			res.Pulse.HighestScore = ms.ThreatScore()
		}
	}
	res.Pulse.MarketsScored = len(scored)
	res.Pulse.ThreatLevel = score.Level(res.Pulse.HighestScore)

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].ThreatScore() != scored[j].ThreatScore() {
			return scored[i].ThreatScore() > scored[j].ThreatScore()
		}
		return scored[i].MarketID < scored[j].MarketID
	})
	if len(scored) > hotMarketCount {
		scored = scored[:hotMarketCount]
	}
	res.HotMarkets = scored
	res.Whale = o.whalePulse(ctx, scored, now)

	log.Info().Int("scored", res.Pulse.MarketsScored).Int("highest", res.Pulse.HighestScore).Msg("pulse complete")
	return res, nil
}

// pulseOne is the lighter variant of scoreOne: pulse trade cap, no whale
// or velocity enrichment.
func (o *Orchestrator) pulseOne(ctx context.Context, m *model.Market, now time.Time) (ms MarketScore, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("market", m.ID).Interface("panic", r).Msg("pulse scoring panicked, skipped")
			ok = false
		}
	}()

	src := o.venueOf(m.Venue)
	if src == nil {
		return ms, false
	}
	trades, err := src.Trades(ctx, *m, model.TradeCapPulse)
	if err != nil || len(trades) < model.MinTradesForScore {
		return ms, false
	}
	agg := aggregate.Trades(trades, model.TradeCapPulse)
	if agg.BelowVolumeFloor() {
		return ms, false
	}

	sig := signals.Derive(agg, m, now)
	category := classify.Category(m.Question, m.Description)
	live := classify.LiveEvent(m.Question, m.Description, m.EndDate, now)
	result := score.Evaluate(score.Input{Market: m, Signals: sig, Category: category, Live: live, Now: now})

	ms = o.baseEntry(m, nil)
	ms.Category = category
	ms.LiveEvent = live
	ms.Signals = sig
	ms.Score = result
	return ms, true
}

// whalePulse aggregates whale intel over the hot markets.
func (o *Orchestrator) whalePulse(ctx context.Context, hot []MarketScore, now time.Time) *WhalePulse {
	if o.eng.Whales == nil {
		return nil
	}
	wp := &WhalePulse{}
	for i := range hot {
		ms := &hot[i]
		if !ms.VenueHasWalletIdentity {
			continue
		}
		m := model.Market{ID: ms.MarketID, Venue: ms.Venue, Question: ms.Question, OutcomePrices: ms.CurrentPrices}
		intel := o.eng.Whales.Analyze(ctx, &m, now)
		wp.TradeCount24h += intel.WhaleTradeCount24h
		if intel.ConcentrationFlag {
			wp.ConcentrationAlerts = append(wp.ConcentrationAlerts, ms.Question)
		}
		wp.TopPositions = append(wp.TopPositions, intel.TopPositions...)
	}
	sort.SliceStable(wp.TopPositions, func(i, j int) bool {
		return wp.TopPositions[i].Size > wp.TopPositions[j].Size
	})
	if len(wp.TopPositions) > 5 {
		wp.TopPositions = wp.TopPositions[:5]
	}
	return wp
}

func defaultPulseOptions() config.ScanOptions {
	return config.ScanOptions{Exchange: "all"}
}
