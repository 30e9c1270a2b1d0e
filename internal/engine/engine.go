// Package engine wires the process-wide state into one injected value:
// cache, velocity rings, fetcher, venues and the persistence store. The
// orchestrator and the HTTP layer receive an Engine instead of reaching
// for globals.
package engine

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/polysentry/polysentry/internal/cache"
	"github.com/polysentry/polysentry/internal/config"
	"github.com/polysentry/polysentry/internal/fetch"
	"github.com/polysentry/polysentry/internal/persist"
	"github.com/polysentry/polysentry/internal/velocity"
	"github.com/polysentry/polysentry/internal/venue"
	"github.com/polysentry/polysentry/internal/venue/kalshi"
	"github.com/polysentry/polysentry/internal/venue/polymarket"
	"github.com/polysentry/polysentry/internal/whale"
)

// Engine is the shared dependency container, created once at startup.
type Engine struct {
	Cache    *cache.Store
	Velocity *velocity.Store
	Fetcher  *fetch.Client
	Venues   []venue.Source
	Whales   *whale.Analyzer
	Resolver venue.Resolver
	Persist  *persist.Store
	Config   config.Config

	// Clock is swappable for tests; defaults to time.Now.
	Clock func() time.Time
}

// New builds an engine from configuration.
func New(cfg config.Config) (*Engine, error) {
	store, err := persist.NewStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("persist store: %w", err)
	}

	c := cache.NewStore(4096)
	fetcher := fetch.NewClient(fetch.Config{
		Timeout:        cfg.Fetch.Timeout,
		MaxConcurrency: cfg.Fetch.MaxConcurrent,
		HostRPS:        cfg.Fetch.RatePerSecond,
		HostBurst:      cfg.Fetch.RateBurst,
	})

	eng := &Engine{
		Cache:    c,
		Velocity: velocity.NewStore(),
		Fetcher:  fetcher,
		Persist:  store,
		Config:   cfg,
		Clock:    time.Now,
	}

	if cfg.Venues.Polymarket.Enabled {
		pm := polymarket.New(fetcher, c, cfg.Venues.Polymarket.GammaAPIURL, cfg.Venues.Polymarket.DataAPIURL)
		eng.Venues = append(eng.Venues, pm)
		eng.Whales = whale.NewAnalyzer(pm)
		eng.Resolver = pm
	}
	if cfg.Venues.Kalshi.Enabled {
		eng.Venues = append(eng.Venues, kalshi.New(fetcher, c, cfg.Venues.Kalshi.APIURL))
	}
	if len(eng.Venues) == 0 {
		return nil, fmt.Errorf("no venues enabled")
	}

	log.Info().Int("venues", len(eng.Venues)).Str("data_dir", cfg.DataDir).Msg("engine ready")
	return eng, nil
}

// Now returns the engine clock's current time in UTC.
func (e *Engine) Now() time.Time { return e.Clock().UTC() }

// VenuesFor filters the venue list by an exchange name; "all" or empty
// keeps everything.
func (e *Engine) VenuesFor(exchange string) []venue.Source {
	if exchange == "" || exchange == "all" {
		return e.Venues
	}
	var out []venue.Source
	for _, v := range e.Venues {
		if v.Name() == exchange {
			out = append(out, v)
		}
	}
	return out
}
