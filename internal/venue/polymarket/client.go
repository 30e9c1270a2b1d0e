// Package polymarket adapts the Polymarket gamma/data APIs into the
// canonical model. Outcomes and prices arrive as JSON arrays encoded
// inside string fields and are parsed defensively; unparseable values
// coerce silently to empty so a single bad market never stops a scan.
package polymarket

import (
	"context"
	"fmt"
	"net/url"

	"github.com/rs/zerolog/log"

	"github.com/polysentry/polysentry/internal/cache"
	"github.com/polysentry/polysentry/internal/fetch"
	"github.com/polysentry/polysentry/internal/model"
	"github.com/polysentry/polysentry/internal/venue"
)

const (
	// DefaultGammaURL serves market metadata.
	DefaultGammaURL = "https://gamma-api.polymarket.com"
	// DefaultDataURL serves trades, holders, positions and activity.
	DefaultDataURL = "https://data-api.polymarket.com"
)

// Client is the Polymarket adapter. Market ID is the conditionId.
type Client struct {
	gammaURL string
	dataURL  string
	fetcher  *fetch.Client
	cache    *cache.Store
}

// New creates a Polymarket adapter. Empty URLs fall back to production endpoints.
func New(fetcher *fetch.Client, store *cache.Store, gammaURL, dataURL string) *Client {
	if gammaURL == "" {
		gammaURL = DefaultGammaURL
	}
	if dataURL == "" {
		dataURL = DefaultDataURL
	}
	return &Client{gammaURL: gammaURL, dataURL: dataURL, fetcher: fetcher, cache: store}
}

func (c *Client) Name() string            { return venue.Polymarket }
func (c *Client) HasWalletIdentity() bool { return true }

// Markets lists open markets ordered by 24h volume, cached for the
// market-list TTL with stale-on-error fallback.
func (c *Client) Markets(ctx context.Context, limit int) ([]model.Market, error) {
	if limit <= 0 {
		limit = 500
	}
	key := fmt.Sprintf("market_list_polymarket_%d", limit)
	v, err := c.cache.Compute(key, cache.TTLMarketList, func() (interface{}, error) {
		u := fmt.Sprintf("%s/markets?active=true&closed=false&order=volume24hr&ascending=false&limit=%d", c.gammaURL, limit)
		raw, ok := c.fetcher.GetRaw(ctx, u)
		if !ok {
			return nil, fmt.Errorf("market list fetch failed")
		}
		markets := decodeMarkets(raw)
		if len(markets) == 0 {
			return nil, fmt.Errorf("market list empty or malformed")
		}
		return markets, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]model.Market), nil
}

// MarketBySlug resolves a single market by slug, for scorecard pricing.
func (c *Client) MarketBySlug(ctx context.Context, slug string) (model.Market, bool) {
	key := "slug_" + slug
	v, err := c.cache.Compute(key, cache.TTLSlug, func() (interface{}, error) {
		u := fmt.Sprintf("%s/markets?slug=%s", c.gammaURL, url.QueryEscape(slug))
		raw, ok := c.fetcher.GetRaw(ctx, u)
		if !ok {
			return nil, fmt.Errorf("slug fetch failed")
		}
		markets := decodeMarkets(raw)
		if len(markets) == 0 {
			return nil, fmt.Errorf("slug not found")
		}
		return markets[0], nil
	})
	if err != nil {
		return model.Market{}, false
	}
	return v.(model.Market), true
}

// Trades returns recent trades for a market, newest first as the venue
// reports them, cached for the trades TTL.
func (c *Client) Trades(ctx context.Context, m model.Market, limit int) ([]model.Trade, error) {
	if limit <= 0 {
		limit = 300
	}
	key := fmt.Sprintf("trades_%s_%d", m.ID, limit)
	v, err := c.cache.Compute(key, cache.TTLTrades, func() (interface{}, error) {
		u := fmt.Sprintf("%s/trades?market=%s&limit=%d", c.dataURL, url.QueryEscape(m.ID), limit)
		raw, ok := c.fetcher.GetRaw(ctx, u)
		if !ok {
			return nil, fmt.Errorf("trades fetch failed")
		}
		return decodeTrades(raw, m.ID), nil
	})
	if err != nil {
		// Soft degrade: a market without trades scores as insufficient data.
		log.Warn().Str("market", m.ID).Err(err).Msg("trades unavailable")
		return nil, nil
	}
	return v.([]model.Trade), nil
}

// Holders returns top token holders for whale intelligence.
func (c *Client) Holders(ctx context.Context, marketID string) ([]model.Holder, error) {
	key := "holders_" + marketID
	v, err := c.cache.Compute(key, cache.TTLHolders, func() (interface{}, error) {
		u := fmt.Sprintf("%s/holders?market=%s", c.dataURL, url.QueryEscape(marketID))
		raw, ok := c.fetcher.GetRaw(ctx, u)
		if !ok {
			return nil, fmt.Errorf("holders fetch failed")
		}
		return decodeHolders(raw), nil
	})
	if err != nil {
		return nil, nil
	}
	return v.([]model.Holder), nil
}

// Positions returns open positions with PnL for whale intelligence.
func (c *Client) Positions(ctx context.Context, marketID string) ([]model.Position, error) {
	key := "positions_" + marketID
	v, err := c.cache.Compute(key, cache.TTLPositions, func() (interface{}, error) {
		u := fmt.Sprintf("%s/positions?market=%s", c.dataURL, url.QueryEscape(marketID))
		raw, ok := c.fetcher.GetRaw(ctx, u)
		if !ok {
			return nil, fmt.Errorf("positions fetch failed")
		}
		return decodePositions(raw), nil
	})
	if err != nil {
		return nil, nil
	}
	return v.([]model.Position), nil
}

// WhaleTrades returns the large recent trades used for counter-flow checks.
func (c *Client) WhaleTrades(ctx context.Context, marketID string) ([]model.Trade, error) {
	key := "whale_trades_" + marketID
	v, err := c.cache.Compute(key, cache.TTLWhaleTrades, func() (interface{}, error) {
		u := fmt.Sprintf("%s/trades?market=%s&filterType=CASH&filterAmount=1000", c.dataURL, url.QueryEscape(marketID))
		raw, ok := c.fetcher.GetRaw(ctx, u)
		if !ok {
			return nil, fmt.Errorf("whale trades fetch failed")
		}
		return decodeTrades(raw, marketID), nil
	})
	if err != nil {
		return nil, nil
	}
	return v.([]model.Trade), nil
}

// WalletActivity profiles one wallet across markets.
func (c *Client) WalletActivity(ctx context.Context, wallet string) (model.ActivitySummary, error) {
	key := "activity_" + wallet
	v, err := c.cache.Compute(key, cache.TTLActivity, func() (interface{}, error) {
		u := fmt.Sprintf("%s/activity?user=%s&limit=500", c.dataURL, url.QueryEscape(wallet))
		raw, ok := c.fetcher.GetRaw(ctx, u)
		if !ok {
			return nil, fmt.Errorf("activity fetch failed")
		}
		return summarizeActivity(wallet, raw), nil
	})
	if err != nil {
		return model.ActivitySummary{Wallet: wallet}, err
	}
	return v.(model.ActivitySummary), nil
}
