// Package kalshi adapts the Kalshi trade API into the canonical model.
// Prices arrive in cents and are divided by 100. Trades carry no real
// wallet identity; the adapter synthesizes a unique per-trade pseudo
// wallet ("k_"+trade_id), which makes wallet-based signals meaningless on
// this venue. Markets are therefore flagged HasWalletIdentity=false so
// consumers can filter.
package kalshi

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/polysentry/polysentry/internal/cache"
	"github.com/polysentry/polysentry/internal/fetch"
	"github.com/polysentry/polysentry/internal/model"
	"github.com/polysentry/polysentry/internal/venue"
)

// DefaultBaseURL is the Kalshi trade API root.
const DefaultBaseURL = "https://api.elections.kalshi.com/trade-api/v2"

const (
	// pageDelay spaces cursor pages; the venue rate-limits aggressively.
	pageDelay = 150 * time.Millisecond
	// marketBatchSize/marketBatchDelay bound per-event market fetches.
	marketBatchSize  = 25
	marketBatchDelay = 120 * time.Millisecond
	// maxPages bounds a runaway cursor crawl.
	maxPages = 40
)

// sportTickerRe matches single-game sport series tickers, which are
// excluded in-adapter: they dominate the open-market set and are handled
// by the live-event zero-out anyway.
var sportTickerRe = regexp.MustCompile(`^KX(NBA|NHL|NFL|MLB|NCAA|EPL|UCL|LALIGA|SERIEA|UFC|ATP|WTA|PGA|F1)`)

// Client is the Kalshi adapter. Market ID is the ticker.
type Client struct {
	baseURL string
	fetcher *fetch.Client
	cache   *cache.Store
}

// New creates a Kalshi adapter.
func New(fetcher *fetch.Client, store *cache.Store, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{baseURL: baseURL, fetcher: fetcher, cache: store}
}

func (c *Client) Name() string            { return venue.Kalshi }
func (c *Client) HasWalletIdentity() bool { return false }

// Markets crawls open events with cursor pagination (150ms between pages,
// until an empty page or null cursor) and flattens their markets. Events
// without nested markets are filled in with batched per-event fetches.
func (c *Client) Markets(ctx context.Context, limit int) ([]model.Market, error) {
	if limit <= 0 {
		limit = 500
	}
	key := fmt.Sprintf("market_list_kalshi_%d", limit)
	v, err := c.cache.Compute(key, cache.TTLMarketList, func() (interface{}, error) {
		return c.crawlMarkets(ctx, limit)
	})
	if err != nil {
		return nil, err
	}
	return v.([]model.Market), nil
}

func (c *Client) crawlMarkets(ctx context.Context, limit int) ([]model.Market, error) {
	var markets []model.Market
	var bare []eventRef // events that came back without nested markets
	cursor := ""
	filtered := 0

	for page := 0; page < maxPages && len(markets) < limit; page++ {
		u := fmt.Sprintf("%s/events?status=open&with_nested_markets=true&limit=100", c.baseURL)
		if cursor != "" {
			u += "&cursor=" + url.QueryEscape(cursor)
		}
		raw, ok := c.fetcher.GetRaw(ctx, u)
		if !ok {
			break
		}
		o := model.DecodeObj(raw)
		if o == nil {
			break
		}
		events := model.DecodeArr(o["events"])
		if len(events) == 0 {
			break
		}

		for _, ev := range events {
			ticker := ev.Str("event_ticker", "ticker")
			if sportTickerRe.MatchString(ticker) {
				filtered++
				continue
			}
			title := ev.Str("title")
			sub := ev.Str("sub_title", "subtitle")
			nested := model.DecodeArr(ev["markets"])
			if len(nested) == 0 {
				bare = append(bare, eventRef{ticker: ticker, title: title, subtitle: sub})
				continue
			}
			for _, mo := range nested {
				if m, ok := decodeMarket(mo, title, sub); ok {
					markets = append(markets, m)
				}
			}
		}

		cursor = o.Str("cursor")
		if cursor == "" {
			break
		}
		select {
		case <-ctx.Done():
			return markets, nil
		case <-time.After(pageDelay):
		}
	}

	if len(bare) > 0 && len(markets) < limit {
		markets = append(markets, c.fetchEventMarkets(ctx, bare)...)
	}
	if filtered > 0 {
		log.Debug().Int("filtered", filtered).Msg("kalshi sport tickers excluded")
	}
	if len(markets) == 0 {
		return nil, fmt.Errorf("kalshi market crawl empty")
	}
	if len(markets) > limit {
		markets = markets[:limit]
	}
	return markets, nil
}

type eventRef struct {
	ticker   string
	title    string
	subtitle string
}

// fetchEventMarkets fills markets for events that lacked nested payloads,
// in batches of 25 with a 120ms gap between batches.
func (c *Client) fetchEventMarkets(ctx context.Context, events []eventRef) []model.Market {
	var mu sync.Mutex
	var out []model.Market

	fetch.Batch(ctx, events, marketBatchSize, marketBatchDelay, func(ctx context.Context, ev eventRef) {
		u := fmt.Sprintf("%s/markets?event_ticker=%s", c.baseURL, url.QueryEscape(ev.ticker))
		raw, ok := c.fetcher.GetRaw(ctx, u)
		if !ok {
			return
		}
		o := model.DecodeObj(raw)
		if o == nil {
			return
		}
		for _, mo := range model.DecodeArr(o["markets"]) {
			if m, ok := decodeMarket(mo, ev.title, ev.subtitle); ok {
				mu.Lock()
				out = append(out, m)
				mu.Unlock()
			}
		}
	})
	return out
}

// Trades returns recent trades for the market with synthesized pseudo-wallets.
func (c *Client) Trades(ctx context.Context, m model.Market, limit int) ([]model.Trade, error) {
	if limit <= 0 {
		limit = 300
	}
	key := fmt.Sprintf("trades_%s_%d", m.ID, limit)
	v, err := c.cache.Compute(key, cache.TTLTrades, func() (interface{}, error) {
		u := fmt.Sprintf("%s/markets/%s/trades?limit=%d", c.baseURL, url.PathEscape(m.ID), limit)
		raw, ok := c.fetcher.GetRaw(ctx, u)
		if !ok {
			return nil, fmt.Errorf("kalshi trades fetch failed")
		}
		o := model.DecodeObj(raw)
		if o == nil {
			return nil, fmt.Errorf("kalshi trades malformed")
		}
		return decodeTrades(model.DecodeArr(o["trades"]), m.ID), nil
	})
	if err != nil {
		log.Warn().Str("market", m.ID).Err(err).Msg("trades unavailable")
		return nil, nil
	}
	return v.([]model.Trade), nil
}
