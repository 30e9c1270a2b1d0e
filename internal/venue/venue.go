// Package venue defines the iterator surfaces the engine consumes. The
// engine never talks to a venue API directly; adapters normalize each
// venue's market and trade records into the canonical model.
package venue

import (
	"context"

	"github.com/polysentry/polysentry/internal/model"
)

// Venue names as they appear in output documents.
const (
	Polymarket = "polymarket"
	Kalshi     = "kalshi"
)

// Source lists markets and streams per-market trades for one venue.
type Source interface {
	Name() string

	// HasWalletIdentity is false when the venue has no real wallet on
	// trades and the adapter synthesizes per-trade pseudo-wallets.
	HasWalletIdentity() bool

	// Markets returns open markets, best-effort. A venue outage yields
	// an empty slice, not an error, unless nothing at all is available.
	Markets(ctx context.Context, limit int) ([]model.Market, error)

	// Trades returns up to limit most recent trades for the market.
	Trades(ctx context.Context, m model.Market, limit int) ([]model.Trade, error)
}

// WhaleSource exposes the holder/position/activity surfaces that whale
// intelligence needs. Only Polymarket implements it.
type WhaleSource interface {
	Holders(ctx context.Context, marketID string) ([]model.Holder, error)
	Positions(ctx context.Context, marketID string) ([]model.Position, error)
	WhaleTrades(ctx context.Context, marketID string) ([]model.Trade, error)
	WalletActivity(ctx context.Context, wallet string) (model.ActivitySummary, error)
}

// Resolver looks a market up by slug, used by the scorecard loop to price
// historical calls.
type Resolver interface {
	MarketBySlug(ctx context.Context, slug string) (model.Market, bool)
}
