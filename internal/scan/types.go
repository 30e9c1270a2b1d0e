// Package scan is the orchestrator: it fans out venue fetches, runs the
// aggregate/signal/score pipeline per market, and assembles the scan,
// pulse, signal and scorecard documents the HTTP layer serves.
package scan

import (
	"time"

	"github.com/polysentry/polysentry/internal/score"
	"github.com/polysentry/polysentry/internal/signals"
	"github.com/polysentry/polysentry/internal/velocity"
	"github.com/polysentry/polysentry/internal/whale"
)

// MarketScore is one fully scored market in the scan output.
type MarketScore struct {
	Venue         string    `json:"venue"`
	MarketID      string    `json:"market_id"`
	Slug          string    `json:"slug,omitempty"`
	Question      string    `json:"question"`
	Category      string    `json:"market_category"`
	CurrentPrices []float64 `json:"current_prices"`
	Volume24h     float64   `json:"volume_24h"`
	Liquidity     float64   `json:"liquidity"`
	EndDate       time.Time `json:"end_date,omitempty"`
	DaysToEnd     float64   `json:"days_to_end"`
	LiveEvent     bool      `json:"live_event"`

	// False for venues that synthesize per-trade pseudo-wallets, so
	// consumers can discount wallet-based signals.
	VenueHasWalletIdentity bool `json:"venue_has_wallet_identity"`

	Signals  *signals.MarketSignals `json:"signals,omitempty"`
	Score    *score.Result          `json:"score,omitempty"`
	Velocity *velocity.Score        `json:"velocity,omitempty"`
	Whale    *whale.Intel           `json:"whale_intelligence,omitempty"`
	Cross    *CrossVenueMatch       `json:"cross_exchange,omitempty"`
}

// ThreatScore returns the final score, zero when the market was only
// lightweight-listed.
func (ms *MarketScore) ThreatScore() int {
	if ms.Score == nil {
		return 0
	}
	return ms.Score.ThreatScore
}

// CrossVenueMatch annotates a market paired across venues.
type CrossVenueMatch struct {
	Venue         string  `json:"venue"`
	MarketID      string  `json:"market_id"`
	Question      string  `json:"question"`
	Similarity    float64 `json:"similarity"`
	YesPriceHere  float64 `json:"yes_price_here"`
	YesPriceThere float64 `json:"yes_price_there"`
	Divergence    float64 `json:"divergence"`
}

// Meta summarizes one scan run.
type Meta struct {
	MarketsScanned        int       `json:"markets_scanned"`
	TotalMarketsAnalyzed  int       `json:"total_markets_analyzed"`
	VolumeFloorFiltered   int       `json:"volume_floor_filtered"`
	DampenedMarkets       int       `json:"dampened_markets"`
	Engine                string    `json:"engine"`
	Timestamp             time.Time `json:"timestamp"`
}

// Result is the scan document.
type Result struct {
	Scan []MarketScore `json:"scan"`
	Meta Meta          `json:"meta"`
}
