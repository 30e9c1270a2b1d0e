package scan

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/polysentry/polysentry/internal/aggregate"
	"github.com/polysentry/polysentry/internal/classify"
	"github.com/polysentry/polysentry/internal/config"
	"github.com/polysentry/polysentry/internal/engine"
	"github.com/polysentry/polysentry/internal/fetch"
	"github.com/polysentry/polysentry/internal/metrics"
	"github.com/polysentry/polysentry/internal/model"
	"github.com/polysentry/polysentry/internal/score"
	"github.com/polysentry/polysentry/internal/signals"
	"github.com/polysentry/polysentry/internal/velocity"
	"github.com/polysentry/polysentry/internal/venue"
)

// Scan shape bounds.
const (
	deepCandidates    = 50
	lightweightLimit  = 500
	scanBatchSize     = 20
	scanBatchDelay    = 150 * time.Millisecond
	engineVersion     = "polysentry/2"
)

// Orchestrator runs scans against the shared engine.
type Orchestrator struct {
	eng *engine.Engine
}

// New creates an orchestrator.
func New(eng *engine.Engine) *Orchestrator {
	return &Orchestrator{eng: eng}
}

// Scan runs a full surveillance pass: deep-score the top markets by
// volume, list the rest lightweight, cross-match venues, sort by threat.
// Per-market failures are logged and skipped, never fatal to the scan.
func (o *Orchestrator) Scan(ctx context.Context, opts config.ScanOptions) (*Result, error) {
	start := o.eng.Now()
	metrics.ScansTotal.Inc()
	metrics.ThreatLevelGauge.Reset()
	defer func() { metrics.ScanDuration.Observe(time.Since(start).Seconds()) }()

	markets, err := o.gather(ctx, opts)
	if err != nil {
		return nil, err
	}

	res := &Result{Meta: Meta{
		TotalMarketsAnalyzed: len(markets),
		Engine:               engineVersion,
		Timestamp:            start,
	}}

	crossMatches := matchAcrossVenues(markets)

	deep, light := splitDeep(markets, deepCandidates)
	scored := o.deepScore(ctx, deep, crossMatches, &res.Meta)

	for i := range light {
		res.Scan = append(res.Scan, o.lightweightEntry(&light[i], crossMatches))
	}
	res.Scan = append(res.Scan, scored...)

	// Volume-floor filter on output: lightweight entries have no
	// aggregates and pass through on raw volume.
	kept := res.Scan[:0]
	for _, ms := range res.Scan {
		if belowOutputFloor(&ms) {
			res.Meta.VolumeFloorFiltered++
			continue
		}
		kept = append(kept, ms)
	}
	res.Scan = kept

	sort.SliceStable(res.Scan, func(i, j int) bool {
		return res.Scan[i].ThreatScore() > res.Scan[j].ThreatScore()
	})
	if opts.Limit > 0 && len(res.Scan) > opts.Limit {
		res.Scan = res.Scan[:opts.Limit]
	}
	res.Meta.MarketsScanned = len(res.Scan)

	metrics.MarketsScored.Add(float64(len(scored)))
	log.Info().
		Int("analyzed", res.Meta.TotalMarketsAnalyzed).
		Int("scored", len(scored)).
		Int("floor_filtered", res.Meta.VolumeFloorFiltered).
		Dur("elapsed", time.Since(start)).
		Msg("scan complete")
	return res, nil
}

// gather pulls the market universe from the selected venues, deduped by
// (venue, market_id). A single slug bypasses the universe fetch.
func (o *Orchestrator) gather(ctx context.Context, opts config.ScanOptions) ([]model.Market, error) {
	if opts.Slug != "" && o.eng.Resolver != nil {
		if m, ok := o.eng.Resolver.MarketBySlug(ctx, opts.Slug); ok {
			return []model.Market{m}, nil
		}
		return nil, nil
	}

	seen := make(map[[2]string]struct{})
	var out []model.Market
	for _, v := range o.eng.VenuesFor(opts.Exchange) {
		markets, err := v.Markets(ctx, lightweightLimit)
		if err != nil {
			log.Warn().Str("venue", v.Name()).Err(err).Msg("market list unavailable")
			continue
		}
		for _, m := range markets {
			k := [2]string{m.Venue, m.ID}
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, m)
		}
	}
	return out, nil
}

// splitDeep takes the top n markets by 24h volume for deep scoring and
// leaves the rest as the lightweight set.
func splitDeep(markets []model.Market, n int) (deep, light []model.Market) {
	sorted := make([]model.Market, len(markets))
	copy(sorted, markets)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Volume24h > sorted[j].Volume24h })
	if len(sorted) <= n {
		return sorted, nil
	}
	return sorted[:n], sorted[n:]
}

// deepScore runs the full pipeline on the deep set in bounded batches.
func (o *Orchestrator) deepScore(ctx context.Context, deep []model.Market, cross map[[2]string]*CrossVenueMatch, meta *Meta) []MarketScore {
	var (
		out     []MarketScore
		results = make(chan MarketScore, len(deep))
	)
	idx := make([]*model.Market, len(deep))
	for i := range deep {
		idx[i] = &deep[i]
	}

	fetch.Batch(ctx, idx, scanBatchSize, scanBatchDelay, func(ctx context.Context, m *model.Market) {
		ms, ok := o.scoreOne(ctx, m, cross)
		if ok {
			results <- ms
		}
	})
	close(results)

	for ms := range results {
		if ms.Signals == nil {
			meta.VolumeFloorFiltered++
			continue
		}
		if ms.Score != nil && ms.Score.CategoryDampenFactor > 0 {
			meta.DampenedMarkets++
		}
		out = append(out, ms)
	}
	// Batch fan-out loses input order; restore it for determinism.
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Venue != out[j].Venue {
			return out[i].Venue < out[j].Venue
		}
		return out[i].MarketID < out[j].MarketID
	})
	return out
}

// scoreOne runs aggregate -> signals -> score -> whale -> velocity for a
// single market. Returns ok=false when the market must be skipped
// entirely; a below-floor market returns with nil Signals so the caller
// can count it.
func (o *Orchestrator) scoreOne(ctx context.Context, m *model.Market, cross map[[2]string]*CrossVenueMatch) (ms MarketScore, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("market", m.ID).Interface("panic", r).Msg("market scoring panicked, skipped")
			ok = false
		}
	}()
	now := o.eng.Now()

	src := o.venueOf(m.Venue)
	if src == nil {
		return ms, false
	}
	trades, err := src.Trades(ctx, *m, model.TradeCapScan)
	if err != nil {
		log.Debug().Str("market", m.ID).Err(err).Msg("trades unavailable, skipped")
		return ms, false
	}
	if len(trades) < model.MinTradesForScore {
		return ms, false
	}

	agg := aggregate.Trades(trades, model.TradeCapScan)
	ms = o.baseEntry(m, cross)
	if agg.BelowVolumeFloor() {
		metrics.MarketsFiltered.WithLabelValues("volume_floor").Inc()
		return ms, true
	}

	sig := signals.Derive(agg, m, now)
	category := classify.Category(m.Question, m.Description)
	live := classify.LiveEvent(m.Question, m.Description, m.EndDate, now)

	result := score.Evaluate(score.Input{
		Market:   m,
		Signals:  sig,
		Category: category,
		Live:     live,
		Now:      now,
	})

	ms.Category = category
	ms.LiveEvent = live
	ms.Signals = sig
	ms.Score = result

	if o.eng.Whales != nil && src.HasWalletIdentity() {
		ms.Whale = o.eng.Whales.Analyze(ctx, m, now)
	}

	snap := velocity.Snapshot{
		TS:               now,
		Volume24h:        m.Volume24h,
		TotalWallets:     sig.TotalWallets,
		FreshWallets:     sig.FreshWalletCount,
		FlowDirection:    sig.FlowDirection,
		MinoritySideFlow: sig.MinoritySideFlow,
		MajoritySideFlow: sig.MajoritySideFlow,
		ThreatScore:      result.ThreatScore,
	}
	vel := o.eng.Velocity.Assess(m.ID, snap)
	ms.Velocity = &vel
	o.eng.Velocity.Record(m.ID, snap)

	metrics.ThreatLevelGauge.WithLabelValues(result.ThreatLevel).Inc()
	return ms, true
}

// baseEntry fills the identification block shared by deep and lightweight
// output.
func (o *Orchestrator) baseEntry(m *model.Market, cross map[[2]string]*CrossVenueMatch) MarketScore {
	return MarketScore{
		Venue:                  m.Venue,
		MarketID:               m.ID,
		Slug:                   m.Slug,
		Question:               m.Question,
		Category:               classify.Category(m.Question, m.Description),
		CurrentPrices:          m.OutcomePrices,
		Volume24h:              m.Volume24h,
		Liquidity:              m.Liquidity,
		EndDate:                m.EndDate,
		DaysToEnd:              m.DaysToEnd(o.eng.Now()),
		VenueHasWalletIdentity: m.HasWalletIdentity,
		Cross:                  cross[[2]string{m.Venue, m.ID}],
	}
}

// lightweightEntry emits metadata only, score stays zero.
func (o *Orchestrator) lightweightEntry(m *model.Market, cross map[[2]string]*CrossVenueMatch) MarketScore {
	return o.baseEntry(m, cross)
}

// belowOutputFloor is the output-side half of the volume floor: a scored
// market under 10 wallets or $500 total volume is dropped even if it
// slipped past the aggregation-side check.
func belowOutputFloor(ms *MarketScore) bool {
	if ms.Signals == nil {
		return false
	}
	return ms.Signals.TotalWallets < model.VolumeFloorWallets ||
		ms.Signals.TotalVolume < model.VolumeFloorUSD
}

func (o *Orchestrator) venueOf(name string) venue.Source {
	for _, v := range o.eng.Venues {
		if v.Name() == name {
			return v
		}
	}
	return nil
}
