// Package aggregate folds a per-market trade stream into the wallet and
// flow aggregates that signal derivation consumes.
package aggregate

import (
	"time"

	"github.com/polysentry/polysentry/internal/model"
)

// Result holds everything derived from one market's trade stream in one
// pass. Trades are processed in venue order; the result is independent of
// cross-market ordering.
type Result struct {
	Wallets            map[string]*model.WalletAgg
	BuyVolumeByOutcome map[string]float64
	TotalBuyVolume     float64
	TotalSellVolume    float64
	TradeCount         int
	OffHoursTrades     int
	OffHoursLargeUSD   float64
	MaxWalletVolume    float64

	// Capped is true when the venue returned a truncated sample, which
	// raises the fresh-wallet baseline downstream.
	Capped bool
}

// TotalVolume is buy plus sell notional.
func (r *Result) TotalVolume() float64 { return r.TotalBuyVolume + r.TotalSellVolume }

// TotalWallets is the distinct wallet count.
func (r *Result) TotalWallets() int { return len(r.Wallets) }

// OffHoursFraction is the share of trades in the off-hours window.
func (r *Result) OffHoursFraction() float64 {
	if r.TradeCount == 0 {
		return 0
	}
	return float64(r.OffHoursTrades) / float64(r.TradeCount)
}

// BelowVolumeFloor reports whether the market fails the deep-scan floor
// (fewer than 10 wallets or under $500 total volume).
func (r *Result) BelowVolumeFloor() bool {
	return r.TotalWallets() < model.VolumeFloorWallets || r.TotalVolume() < model.VolumeFloorUSD
}

// Trades aggregates a trade stream. capAt is the venue sample cap for
// this call path (scan and pulse use different caps); a stream at or over
// the cap marks the result as truncated.
func Trades(trades []model.Trade, capAt int) *Result {
	res := &Result{
		Wallets:            make(map[string]*model.WalletAgg),
		BuyVolumeByOutcome: make(map[string]float64),
	}
	if capAt > 0 && len(trades) >= capAt {
		res.Capped = true
	}

	for i := range trades {
		t := &trades[i]
		usd := t.USD()
		res.TradeCount++

		w, ok := res.Wallets[t.Wallet]
		if !ok {
			w = &model.WalletAgg{Wallet: t.Wallet, FirstSeen: t.Timestamp}
			res.Wallets[t.Wallet] = w
		}
		if t.Timestamp > 0 && (w.FirstSeen == 0 || t.Timestamp < w.FirstSeen) {
			w.FirstSeen = t.Timestamp
		}
		w.VolumeUSD += usd
		w.TradeCount++
		if w.VolumeUSD > res.MaxWalletVolume {
			res.MaxWalletVolume = w.VolumeUSD
		}

		switch t.Side {
		case model.SideBuy:
			w.BuyVolume += usd
			res.TotalBuyVolume += usd
			res.BuyVolumeByOutcome[t.Outcome] += usd
		case model.SideSell:
			w.SellVolume += usd
			res.TotalSellVolume += usd
		}

		if offHours(t.Timestamp) {
			res.OffHoursTrades++
			if usd >= model.OffHoursLargeTradeUSD {
				res.OffHoursLargeUSD += usd
			}
		}
	}
	return res
}

// offHours reports whether the trade falls in the UTC [3,11) window or on
// a weekend. The window approximates overnight US-Eastern and is kept as
// plain UTC on purpose; it does not follow DST.
func offHours(ts int64) bool {
	if ts <= 0 {
		return false
	}
	t := time.Unix(ts, 0).UTC()
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return true
	}
	h := t.Hour()
	return h >= model.OffHoursStartUTC && h < model.OffHoursEndUTC
}

// FreshWallets counts wallets that qualify as fresh at now.
func (r *Result) FreshWallets(now time.Time) int {
	n := 0
	for _, w := range r.Wallets {
		if w.Fresh(now) {
			n++
		}
	}
	return n
}

// LargePositions counts wallets at or above the large-position notional.
func (r *Result) LargePositions() int {
	n := 0
	for _, w := range r.Wallets {
		if w.LargePosition() {
			n++
		}
	}
	return n
}
