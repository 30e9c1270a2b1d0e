// Package whale profiles the large-holder side of a market: concentration,
// fresh whales, PnL divergence and counter-flow against the consensus price.
package whale

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/polysentry/polysentry/internal/fetch"
	"github.com/polysentry/polysentry/internal/model"
	"github.com/polysentry/polysentry/internal/venue"
)

// Fetch bounds for the holder/position/activity fan-out.
const (
	profileBatchSize  = 10
	profileBatchDelay = 100 * time.Millisecond
	maxFreshProfiles  = 5
)

// Wallet archetype labels used in whale profiles.
const (
	ProfileFreshInsider = "fresh_insider"
	ProfileFresh        = "fresh"
	ProfileVeteranWhale = "veteran_whale"
	ProfileWhale        = "whale"
	ProfileMarketMaker  = "market_maker"
	ProfileRetail       = "retail"
)

// PnL divergence labels over the top-10 positions.
const (
	WhalesWinning = "WHALES_WINNING"
	WhalesLosing  = "WHALES_LOSING"
	WhalesMixed   = "WHALES_MIXED"
)

// Intel is the whale intelligence block attached to a deep-scanned market.
type Intel struct {
	TopHolderConcentration float64        `json:"top_holder_concentration"`
	ConcentrationFlag      bool           `json:"concentration_flag"`
	FreshWhales            []FreshWhale   `json:"fresh_whales,omitempty"`
	PnLDivergence          string         `json:"pnl_divergence,omitempty"`
	CounterFlow            bool           `json:"counter_flow"`
	CounterFlowNote        string         `json:"counter_flow_note,omitempty"`
	WhaleBuyRatio24h       float64        `json:"whale_buy_ratio_24h"`
	WhaleTradeCount24h     int            `json:"whale_trade_count_24h"`
	TopPositions           []TopPosition  `json:"top_positions,omitempty"`
	BurstWallets           []string       `json:"burst_wallets,omitempty"`
	Profiles               map[string]string `json:"profiles,omitempty"`
}

// TopPosition is one of the largest positions in the market.
type TopPosition struct {
	Wallet  string  `json:"wallet"`
	Size    float64 `json:"size"`
	CashPnL float64 `json:"cash_pnl"`
}

// Analyzer runs the concurrent holder/position/trade fetches for a market.
type Analyzer struct {
	source venue.WhaleSource
	bursts *BurstTracker
}

// NewAnalyzer wires an analyzer onto a whale data source.
func NewAnalyzer(source venue.WhaleSource) *Analyzer {
	return &Analyzer{source: source, bursts: NewBurstTracker(60 * time.Second)}
}

// Analyze fetches holders, positions and whale trades concurrently and
// derives the intel block. Per-surface failures degrade to empty data.
func (a *Analyzer) Analyze(ctx context.Context, m *model.Market, now time.Time) *Intel {
	var (
		holders   []model.Holder
		positions []model.Position
		trades    []model.Trade
		wg        sync.WaitGroup
	)
	wg.Add(3)
	go func() { defer wg.Done(); holders, _ = a.source.Holders(ctx, m.ID) }()
	go func() { defer wg.Done(); positions, _ = a.source.Positions(ctx, m.ID) }()
	go func() { defer wg.Done(); trades, _ = a.source.WhaleTrades(ctx, m.ID) }()
	wg.Wait()

	intel := &Intel{Profiles: make(map[string]string)}
	a.concentration(intel, holders)
	a.pnlDivergence(intel, positions)
	a.counterFlow(intel, m, trades, now)
	a.freshWhales(ctx, intel, holders, now)
	a.burstScan(intel, trades, now)
	return intel
}

// concentration measures the top-5 token share; over half the float in
// five wallets is flagged.
func (a *Analyzer) concentration(intel *Intel, holders []model.Holder) {
	if len(holders) == 0 {
		return
	}
	sorted := make([]model.Holder, len(holders))
	copy(sorted, holders)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Tokens > sorted[j].Tokens })

	var total, top5 float64
	for i, h := range sorted {
		total += h.Tokens
		if i < 5 {
			top5 += h.Tokens
		}
	}
	if total > 0 {
		intel.TopHolderConcentration = round2(top5 / total)
		intel.ConcentrationFlag = intel.TopHolderConcentration > 0.5
	}
}

// pnlDivergence labels whether the ten biggest positions are in profit
// and records the top five for the pulse aggregate.
func (a *Analyzer) pnlDivergence(intel *Intel, positions []model.Position) {
	if len(positions) == 0 {
		return
	}
	sorted := make([]model.Position, len(positions))
	copy(sorted, positions)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Size > sorted[j].Size })
	if len(sorted) > 10 {
		sorted = sorted[:10]
	}

	for i, p := range sorted {
		if i == 5 {
			break
		}
		intel.TopPositions = append(intel.TopPositions, TopPosition{
			Wallet:  p.Wallet,
			Size:    p.Size,
			CashPnL: p.CashPnL,
		})
	}

	pos, neg := 0, 0
	for _, p := range sorted {
		switch {
		case p.CashPnL > 0:
			pos++
		case p.CashPnL < 0:
			neg++
		}
	}
	switch {
	case pos > neg:
		intel.PnLDivergence = WhalesWinning
	case neg > pos:
		intel.PnLDivergence = WhalesLosing
	default:
		intel.PnLDivergence = WhalesMixed
	}
}

// counterFlow flags whales trading against a confident consensus price.
func (a *Analyzer) counterFlow(intel *Intel, m *model.Market, trades []model.Trade, now time.Time) {
	cutoff := now.Add(-24 * time.Hour).Unix()
	var buys, total float64
	for _, t := range trades {
		if t.Timestamp < cutoff {
			continue
		}
		intel.WhaleTradeCount24h++
		total += t.USD()
		if t.Side == model.SideBuy {
			buys += t.USD()
		}
	}
	if total <= 0 {
		return
	}
	ratio := buys / total
	intel.WhaleBuyRatio24h = round2(ratio)

	majority := m.MaxPrice()
	if majority > 0.75 && ratio < 0.3 {
		intel.CounterFlow = true
		intel.CounterFlowNote = "whales exiting a >75c favorite"
	}
	if majority < 0.25 && ratio > 0.7 {
		intel.CounterFlow = true
		intel.CounterFlowNote = "whales accumulating a <25c longshot"
	}
}

// freshWhales profiles up to five of the largest holders; a large holder
// whose lifetime trade count is tiny is the classic fresh-insider shape.
func (a *Analyzer) freshWhales(ctx context.Context, intel *Intel, holders []model.Holder, now time.Time) {
	if len(holders) == 0 {
		return
	}
	sorted := make([]model.Holder, len(holders))
	copy(sorted, holders)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Tokens > sorted[j].Tokens })
	if len(sorted) > maxFreshProfiles {
		sorted = sorted[:maxFreshProfiles]
	}

	var mu sync.Mutex
	fetch.Batch(ctx, sorted, profileBatchSize, profileBatchDelay, func(ctx context.Context, h model.Holder) {
		act, err := a.source.WalletActivity(ctx, h.Wallet)
		if err != nil {
			log.Debug().Str("wallet", h.Wallet).Err(err).Msg("activity unavailable")
			return
		}
		profile := classifyWallet(act, now)
		mu.Lock()
		defer mu.Unlock()
		intel.Profiles[h.Wallet] = profile
		if act.TotalTrades > 0 && act.TotalTrades < 5 {
			intel.FreshWhales = append(intel.FreshWhales, FreshWhale{
				Wallet:      h.Wallet,
				Tokens:      h.Tokens,
				TotalTrades: act.TotalTrades,
				Profile:     profile,
			})
		}
	})

	sort.Slice(intel.FreshWhales, func(i, j int) bool {
		return intel.FreshWhales[i].Tokens > intel.FreshWhales[j].Tokens
	})
}

// burstScan runs whale trades through the 60s burst window and records
// wallets firing three or more trades inside it.
func (a *Analyzer) burstScan(intel *Intel, trades []model.Trade, now time.Time) {
	seen := make(map[string]struct{})
	for _, t := range trades {
		if t.Wallet == "" {
			continue
		}
		if a.bursts.RecordAt(t.Wallet, time.Unix(t.Timestamp, 0)) >= 3 {
			if _, dup := seen[t.Wallet]; !dup {
				seen[t.Wallet] = struct{}{}
				intel.BurstWallets = append(intel.BurstWallets, t.Wallet)
			}
		}
	}
	sort.Strings(intel.BurstWallets)
}

// FreshWhale is one profiled large holder with low lifetime activity.
type FreshWhale struct {
	Wallet      string  `json:"wallet"`
	Tokens      float64 `json:"tokens"`
	TotalTrades int     `json:"total_trades"`
	Profile     string  `json:"profile"`
}

// classifyWallet buckets a wallet by lifetime volume, trade count, market
// spread and age.
func classifyWallet(act model.ActivitySummary, now time.Time) string {
	ageDays := 0.0
	if act.FirstSeen > 0 {
		ageDays = now.Sub(time.Unix(act.FirstSeen, 0)).Hours() / 24
	}
	switch {
	case act.TotalTrades < 5 && act.TotalVolume >= 10000:
		return ProfileFreshInsider
	case act.TotalTrades < 5:
		return ProfileFresh
	case act.TotalTrades >= 1000 && act.MarketCount >= 100:
		return ProfileMarketMaker
	case act.TotalVolume >= 50000 && ageDays > 90:
		return ProfileVeteranWhale
	case act.TotalVolume >= 50000:
		return ProfileWhale
	default:
		return ProfileRetail
	}
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
