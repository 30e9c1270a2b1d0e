// Package correlation finds wallet cohorts trading across multiple markets.
// Shared-wallet pairs are clustered with union-find and ranked by how much
// of the same capital shows up in how many places.
package correlation

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/polysentry/polysentry/internal/fetch"
	"github.com/polysentry/polysentry/internal/model"
	"github.com/polysentry/polysentry/internal/venue"
)

// Trade-fetch fan-out bounds.
const (
	tradeBatchSize  = 15
	tradeBatchDelay = 100 * time.Millisecond
)

// Cluster strength labels by max shared wallets across any member pair.
const (
	StrengthStrong   = "STRONG"
	StrengthModerate = "MODERATE"
	StrengthWeak     = "WEAK"
)

// Options bound a correlation run.
type Options struct {
	WindowHours      int `yaml:"window_hours"`
	MinSharedWallets int `yaml:"min_shared_wallets"`
	MaxMarkets       int `yaml:"max_markets"`
}

// DefaultOptions returns the standard correlation run bounds.
func DefaultOptions() Options {
	return Options{WindowHours: 24, MinSharedWallets: 3, MaxMarkets: 30}
}

// Pair is one market pair with its shared-wallet overlap.
type Pair struct {
	MarketA       string   `json:"market_a"`
	MarketB       string   `json:"market_b"`
	QuestionA     string   `json:"question_a"`
	QuestionB     string   `json:"question_b"`
	SharedWallets int      `json:"shared_wallets"`
	Wallets       []string `json:"wallets,omitempty"`
}

// Cluster is a connected group of markets linked by shared wallets.
type Cluster struct {
	Markets        []string `json:"markets"`
	Questions      []string `json:"questions"`
	SharedWallets  int      `json:"shared_wallets"`
	MaxPairShared  int      `json:"max_pair_shared"`
	CombinedVolume float64  `json:"combined_volume"`
	TopWallets     []string `json:"top_wallets,omitempty"`
	Strength       string   `json:"strength"`
}

// Report is the output of one correlation run.
type Report struct {
	GeneratedAt     time.Time `json:"generated_at"`
	WindowHours     int       `json:"window_hours"`
	MarketsAnalyzed int       `json:"markets_analyzed"`
	MultiWallets    int       `json:"multi_market_wallets"`
	Pairs           []Pair    `json:"pairs"`
	Clusters        []Cluster `json:"clusters"`
}

// Engine runs correlation scans against a trade source.
type Engine struct {
	source venue.Source
}

// NewEngine wires an engine onto a venue trade source.
func NewEngine(source venue.Source) *Engine {
	return &Engine{source: source}
}

// Run fetches recent trades for the given markets and builds the report.
// Wallets that touched fewer than two markets inside the window are
// dropped before any pairing.
func (e *Engine) Run(ctx context.Context, markets []*model.Market, opts Options) *Report {
	if opts.MaxMarkets > 0 && len(markets) > opts.MaxMarkets {
		markets = markets[:opts.MaxMarkets]
	}

	byID := make(map[string]*model.Market, len(markets))
	for _, m := range markets {
		byID[m.ID] = m
	}

	walletMarkets := e.walletIndex(ctx, markets, opts)
	report := &Report{
		GeneratedAt:     time.Now().UTC(),
		WindowHours:     opts.WindowHours,
		MarketsAnalyzed: len(markets),
	}
	for _, ms := range walletMarkets {
		if len(ms) >= 2 {
			report.MultiWallets++
		}
	}

	pairs := buildPairs(walletMarkets, byID, opts.MinSharedWallets)
	report.Pairs = pairs
	report.Clusters = buildClusters(pairs, byID, walletMarkets)

	log.Info().
		Int("markets", len(markets)).
		Int("multi_wallets", report.MultiWallets).
		Int("pairs", len(pairs)).
		Int("clusters", len(report.Clusters)).
		Msg("correlation run complete")
	return report
}

// walletIndex builds wallet -> market-ID set from recent trades, with
// per-wallet volume for the top-wallet ranking.
func (e *Engine) walletIndex(ctx context.Context, markets []*model.Market, opts Options) map[string]map[string]float64 {
	cutoff := time.Now().Add(-time.Duration(opts.WindowHours) * time.Hour).Unix()
	index := make(map[string]map[string]float64)
	results := make(chan []model.Trade, len(markets))

	fetch.Batch(ctx, markets, tradeBatchSize, tradeBatchDelay, func(ctx context.Context, m *model.Market) {
		trades, err := e.source.Trades(ctx, *m, model.TradeCapScan)
		if err != nil {
			log.Debug().Str("market", m.ID).Err(err).Msg("correlation trade fetch failed")
			return
		}
		for i := range trades {
			trades[i].MarketID = m.ID
		}
		results <- trades
	})
	close(results)

	for trades := range results {
		for _, t := range trades {
			if t.Wallet == "" || t.Timestamp < cutoff {
				continue
			}
			if index[t.Wallet] == nil {
				index[t.Wallet] = make(map[string]float64)
			}
			index[t.Wallet][t.MarketID] += t.USD()
		}
	}
	return index
}

// buildPairs counts shared wallets per market pair. Only wallets active in
// two or more markets contribute.
func buildPairs(index map[string]map[string]float64, byID map[string]*model.Market, minShared int) []Pair {
	type key struct{ a, b string }
	shared := make(map[key][]string)

	for wallet, ms := range index {
		if len(ms) < 2 {
			continue
		}
		ids := make([]string, 0, len(ms))
		for id := range ms {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for i := 0; i < len(ids); i++ {
			for j := i + 1; j < len(ids); j++ {
				k := key{ids[i], ids[j]}
				shared[k] = append(shared[k], wallet)
			}
		}
	}

	var pairs []Pair
	for k, wallets := range shared {
		if len(wallets) < minShared {
			continue
		}
		sort.Strings(wallets)
		p := Pair{MarketA: k.a, MarketB: k.b, SharedWallets: len(wallets), Wallets: wallets}
		if m := byID[k.a]; m != nil {
			p.QuestionA = m.Question
		}
		if m := byID[k.b]; m != nil {
			p.QuestionB = m.Question
		}
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].SharedWallets != pairs[j].SharedWallets {
			return pairs[i].SharedWallets > pairs[j].SharedWallets
		}
		if pairs[i].MarketA != pairs[j].MarketA {
			return pairs[i].MarketA < pairs[j].MarketA
		}
		return pairs[i].MarketB < pairs[j].MarketB
	})
	return pairs
}

// buildClusters unions qualifying pairs and summarizes each connected
// component.
func buildClusters(pairs []Pair, byID map[string]*model.Market, index map[string]map[string]float64) []Cluster {
	if len(pairs) == 0 {
		return nil
	}
	uf := newUnionFind()
	for _, p := range pairs {
		uf.union(p.MarketA, p.MarketB)
	}

	type acc struct {
		markets map[string]struct{}
		wallets map[string]struct{}
		maxPair int
	}
	groups := make(map[string]*acc)
	for _, p := range pairs {
		root := uf.find(p.MarketA)
		g := groups[root]
		if g == nil {
			g = &acc{markets: make(map[string]struct{}), wallets: make(map[string]struct{})}
			groups[root] = g
		}
		g.markets[p.MarketA] = struct{}{}
		g.markets[p.MarketB] = struct{}{}
		for _, w := range p.Wallets {
			g.wallets[w] = struct{}{}
		}
		if p.SharedWallets > g.maxPair {
			g.maxPair = p.SharedWallets
		}
	}

	var clusters []Cluster
	for _, g := range groups {
		c := Cluster{SharedWallets: len(g.wallets), MaxPairShared: g.maxPair}
		for id := range g.markets {
			c.Markets = append(c.Markets, id)
			if m := byID[id]; m != nil {
				c.CombinedVolume += m.Volume24h
			}
		}
		sort.Strings(c.Markets)
		for _, id := range c.Markets {
			if m := byID[id]; m != nil {
				c.Questions = append(c.Questions, m.Question)
			}
		}
		c.TopWallets = topWallets(g.wallets, g.markets, index, 5)
		c.Strength = strength(c.MaxPairShared)
		clusters = append(clusters, c)
	}
	sort.Slice(clusters, func(i, j int) bool {
		if clusters[i].SharedWallets != clusters[j].SharedWallets {
			return clusters[i].SharedWallets > clusters[j].SharedWallets
		}
		return clusters[i].Markets[0] < clusters[j].Markets[0]
	})
	return clusters
}

// topWallets ranks a cluster's wallets by combined volume across the
// cluster's markets, ties broken lexically so the output is stable.
func topWallets(wallets map[string]struct{}, markets map[string]struct{}, index map[string]map[string]float64, n int) []string {
	volume := make(map[string]float64, len(wallets))
	ranked := make([]string, 0, len(wallets))
	for w := range wallets {
		for id, usd := range index[w] {
			if _, in := markets[id]; in {
				volume[w] += usd
			}
		}
		ranked = append(ranked, w)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if volume[ranked[i]] != volume[ranked[j]] {
			return volume[ranked[i]] > volume[ranked[j]]
		}
		return ranked[i] < ranked[j]
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

func strength(maxPairShared int) string {
	switch {
	case maxPairShared >= 20:
		return StrengthStrong
	case maxPairShared >= 10:
		return StrengthModerate
	default:
		return StrengthWeak
	}
}
