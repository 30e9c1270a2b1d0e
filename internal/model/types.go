package model

import "time"

// Trade side as reported by the venue.
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// Flow direction labels over minority/majority buy-volume imbalance.
const (
	FlowMinorityHeavy   = "MINORITY_HEAVY"
	FlowMixed           = "MIXED"
	FlowMajorityAligned = "MAJORITY_ALIGNED"
	FlowNeutral         = "NEUTRAL"
)

// Threat level bands.
const (
	LevelCritical = "CRITICAL"
	LevelHigh     = "HIGH"
	LevelModerate = "MODERATE"
	LevelLow      = "LOW"
)

// Market categories produced by the classifier.
const (
	CategoryGeopolitical = "geopolitical"
	CategoryPolitical    = "political"
	CategoryCrypto       = "crypto"
	CategorySports       = "sports"
	CategoryGeneral      = "general"
)

// Market is the canonical, venue-neutral market record. It is immutable
// inside the engine; adapters normalize venue payloads into it.
type Market struct {
	ID            string    `json:"market_id"`
	Slug          string    `json:"slug,omitempty"`
	Venue         string    `json:"venue"`
	Question      string    `json:"question"`
	Description   string    `json:"description,omitempty"`
	Outcomes      []string  `json:"outcomes"`
	OutcomePrices []float64 `json:"outcome_prices"`
	Volume24h     float64   `json:"volume_24h"`
	VolumeTotal   float64   `json:"volume_total"`
	Liquidity     float64   `json:"liquidity"`
	CreatedAt     time.Time `json:"created_at,omitempty"`
	EndDate       time.Time `json:"end_date,omitempty"`
	ClosedTime    time.Time `json:"closed_time,omitempty"`
	Tags          []string  `json:"tags,omitempty"`

	// TokenIDs are the venue's per-outcome asset identifiers, used to
	// subscribe the live trade stream. Empty on venues without one.
	TokenIDs []string `json:"token_ids,omitempty"`

	// False for venues that synthesize per-trade pseudo-wallets; wallet
	// based signals are meaningless there and consumers may filter.
	HasWalletIdentity bool `json:"venue_has_wallet_identity"`
}

// MaxPrice returns the highest outcome price (the market consensus side).
func (m *Market) MaxPrice() float64 {
	max := 0.0
	for _, p := range m.OutcomePrices {
		if p > max {
			max = p
		}
	}
	return max
}

// MinPrice returns the lowest outcome price, or 0 when prices are absent.
func (m *Market) MinPrice() float64 {
	if len(m.OutcomePrices) == 0 {
		return 0
	}
	min := m.OutcomePrices[0]
	for _, p := range m.OutcomePrices[1:] {
		if p < min {
			min = p
		}
	}
	return min
}

// DaysToEnd returns days until the market end date, negative when past.
func (m *Market) DaysToEnd(now time.Time) float64 {
	if m.EndDate.IsZero() {
		return 0
	}
	return m.EndDate.Sub(now).Hours() / 24
}

// AgeHours returns hours since market creation, 0 when unknown.
func (m *Market) AgeHours(now time.Time) float64 {
	if m.CreatedAt.IsZero() {
		return 0
	}
	return now.Sub(m.CreatedAt).Hours()
}

// Trade is a single venue trade normalized into the canonical shape.
// Derived USD notional is Size * Price.
type Trade struct {
	Timestamp int64   `json:"timestamp"` // unix seconds
	MarketID  string  `json:"market_id"`
	Outcome   string  `json:"outcome"`
	Side      string  `json:"side"` // BUY or SELL
	Size      float64 `json:"size"` // contracts
	Price     float64 `json:"price"`
	Wallet    string  `json:"wallet"`
}

// USD returns the trade notional in dollars.
func (t *Trade) USD() float64 { return t.Size * t.Price }

// WalletAgg accumulates one wallet's activity within a single market scan.
type WalletAgg struct {
	Wallet      string  `json:"wallet"`
	FirstSeen   int64   `json:"first_seen"` // unix seconds
	VolumeUSD   float64 `json:"volume_usd"`
	TradeCount  int     `json:"trade_count"`
	BuyVolume   float64 `json:"buy_volume"`
	SellVolume  float64 `json:"sell_volume"`
	MarketCount int     `json:"market_count,omitempty"`
}

// AgeDays is the wallet age relative to now, derived from first observed trade.
func (w *WalletAgg) AgeDays(now time.Time) float64 {
	return float64(now.Unix()-w.FirstSeen) / 86400
}

// Fresh reports whether the wallet qualifies as a fresh wallet:
// younger than 7 days with more than $50 of cumulative volume.
func (w *WalletAgg) Fresh(now time.Time) bool {
	return w.AgeDays(now) < FreshWalletMaxAgeDays && w.VolumeUSD > FreshWalletMinVolumeUSD
}

// LargePosition reports whether the wallet holds at least $1,000 in the market.
func (w *WalletAgg) LargePosition() bool {
	return w.VolumeUSD >= LargePositionUSD
}

// Holder is a top-of-book token holder used by whale intelligence.
type Holder struct {
	Wallet string  `json:"wallet"`
	Tokens float64 `json:"tokens"`
}

// Position is a wallet position with realized/unrealized PnL, available on
// venues that expose wallet identity.
type Position struct {
	Wallet     string  `json:"wallet"`
	Size       float64 `json:"size"`
	AvgPrice   float64 `json:"avg_price"`
	CashPnL    float64 `json:"cash_pnl"`
	Outcome    string  `json:"outcome"`
	InitialUSD float64 `json:"initial_usd"`
}

// ActivitySummary is a cross-market profile of one wallet.
type ActivitySummary struct {
	Wallet      string  `json:"wallet"`
	TotalTrades int     `json:"total_trades"`
	TotalVolume float64 `json:"total_volume"`
	MarketCount int     `json:"market_count"`
	WinRate     float64 `json:"win_rate"`
	FirstSeen   int64   `json:"first_seen"`
}
