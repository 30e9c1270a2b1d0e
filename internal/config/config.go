// Package config loads the scanner configuration from YAML with sane
// defaults for every field, so a missing file still yields a runnable
// setup.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Venues  VenuesConfig  `yaml:"venues"`
	Fetch   FetchConfig   `yaml:"fetch"`
	Scan    ScanOptions   `yaml:"scan"`
	Signals SignalOptions `yaml:"signals"`
	DataDir string        `yaml:"data_dir"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// VenuesConfig holds per-venue endpoints and switches.
type VenuesConfig struct {
	Polymarket PolymarketConfig `yaml:"polymarket"`
	Kalshi     KalshiConfig     `yaml:"kalshi"`
}

// PolymarketConfig points at the gamma and data APIs.
type PolymarketConfig struct {
	Enabled     bool   `yaml:"enabled"`
	GammaAPIURL string `yaml:"gamma_api_url"`
	DataAPIURL  string `yaml:"data_api_url"`
	StreamURL   string `yaml:"stream_url"`
}

// KalshiConfig points at the trade API.
type KalshiConfig struct {
	Enabled bool   `yaml:"enabled"`
	APIURL  string `yaml:"api_url"`
}

// FetchConfig bounds the shared HTTP client.
type FetchConfig struct {
	Timeout       time.Duration `yaml:"timeout"`
	MaxConcurrent int           `yaml:"max_concurrent"`
	RatePerSecond float64       `yaml:"rate_per_second"`
	RateBurst     int           `yaml:"rate_burst"`
}

// ScanOptions bound one scan run.
type ScanOptions struct {
	Limit    int    `yaml:"limit"`
	Exchange string `yaml:"exchange"`
	Slug     string `yaml:"slug"`
}

// SignalOptions filter the signal feed.
type SignalOptions struct {
	MinConfidence string  `yaml:"min_confidence"`
	ActionFilter  string  `yaml:"action_filter"`
	MaxDays       int     `yaml:"max_days"`
	MinEdge       float64 `yaml:"min_edge"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:           ":8090",
			RequestTimeout: 120 * time.Second,
		},
		Venues: VenuesConfig{
			Polymarket: PolymarketConfig{
				Enabled:     true,
				GammaAPIURL: "https://gamma-api.polymarket.com",
				DataAPIURL:  "https://data-api.polymarket.com",
				StreamURL:   "wss://ws-subscriptions-clob.polymarket.com/ws/market",
			},
			Kalshi: KalshiConfig{
				Enabled: true,
				APIURL:  "https://api.elections.kalshi.com/trade-api/v2",
			},
		},
		Fetch: FetchConfig{
			Timeout:       8 * time.Second,
			MaxConcurrent: 12,
			RatePerSecond: 10,
			RateBurst:     20,
		},
		Scan: ScanOptions{
			Limit:    50,
			Exchange: "all",
		},
		Signals: SignalOptions{
			MinConfidence: "LOW",
			MaxDays:       365,
		},
		DataDir: "data",
	}
}

// Load reads a YAML config file over the defaults. An empty path returns
// the defaults untouched.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
