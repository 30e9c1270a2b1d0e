package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/polysentry/polysentry/internal/metrics"
)

// Client performs rate-limited, timeout-bounded venue fetches. Failures of
// any kind (non-2xx, timeout, parse error, open breaker) surface as a soft
// null, never an error: the caller decides whether stale cache or an empty
// collection is the right fallback.
type Client struct {
	http      *http.Client
	sem       chan struct{}
	userAgent string

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	breakers map[string]*gobreaker.CircuitBreaker
	rps      float64
	burst    int
}

// Config bounds the client. Defaults follow observed venue limits.
type Config struct {
	Timeout        time.Duration `yaml:"timeout"`
	MaxConcurrency int           `yaml:"max_concurrency"`
	HostRPS        float64       `yaml:"host_rps"`
	HostBurst      int           `yaml:"host_burst"`
	UserAgent      string        `yaml:"user_agent"`
}

// DefaultConfig returns production-ready fetch bounds: 8s hard timeout,
// 32 in-flight requests, 10 rps per host.
func DefaultConfig() Config {
	return Config{
		Timeout:        8 * time.Second,
		MaxConcurrency: 32,
		HostRPS:        10,
		HostBurst:      20,
		UserAgent:      "polysentry/1.0",
	}
}

// NewClient creates a fetch client from config, filling zero fields with defaults.
func NewClient(cfg Config) *Client {
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = def.MaxConcurrency
	}
	if cfg.HostRPS <= 0 {
		cfg.HostRPS = def.HostRPS
	}
	if cfg.HostBurst <= 0 {
		cfg.HostBurst = def.HostBurst
	}
	return &Client{
		http:      &http.Client{Timeout: cfg.Timeout},
		sem:       make(chan struct{}, cfg.MaxConcurrency),
		userAgent: cfg.UserAgent,
		limiters:  make(map[string]*rate.Limiter),
		breakers:  make(map[string]*gobreaker.CircuitBreaker),
		rps:       cfg.HostRPS,
		burst:     cfg.HostBurst,
	}
}

// GetJSON fetches rawURL and decodes the body into v. Returns false on any
// failure; v is left untouched in that case.
func (c *Client) GetJSON(ctx context.Context, rawURL string, v interface{}) bool {
	raw, ok := c.GetRaw(ctx, rawURL)
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, v); err != nil {
		log.Warn().Str("url", rawURL).Err(err).Msg("malformed venue payload")
		metrics.FetchTotal.WithLabelValues(hostOf(rawURL), "parse_error").Inc()
		return false
	}
	return true
}

// GetRaw fetches rawURL and returns the undecoded body.
func (c *Client) GetRaw(ctx context.Context, rawURL string) (json.RawMessage, bool) {
	host := hostOf(rawURL)

	select {
	case c.sem <- struct{}{}:
		defer func() { <-c.sem }()
	case <-ctx.Done():
		return nil, false
	}

	if err := c.limiter(host).Wait(ctx); err != nil {
		return nil, false
	}

	start := time.Now()
	out, err := c.breaker(host).Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		if c.userAgent != "" {
			req.Header.Set("User-Agent", c.userAgent)
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
			return nil, fmt.Errorf("http %d", resp.StatusCode)
		}
		return io.ReadAll(resp.Body)
	})
	metrics.FetchDuration.WithLabelValues(host).Observe(time.Since(start).Seconds())

	if err != nil {
		log.Debug().Str("url", rawURL).Err(err).Msg("fetch soft-null")
		metrics.FetchTotal.WithLabelValues(host, "error").Inc()
		return nil, false
	}
	metrics.FetchTotal.WithLabelValues(host, "ok").Inc()
	return out.([]byte), true
}

func (c *Client) limiter(host string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.limiters[host]
	if !ok {
		l = rate.NewLimiter(rate.Limit(c.rps), c.burst)
		c.limiters[host] = l
	}
	return l
}

func (c *Client) breaker(host string) *gobreaker.CircuitBreaker {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.breakers[host]
	if !ok {
		st := gobreaker.Settings{Name: host}
		st.Interval = 60 * time.Second
		st.Timeout = 30 * time.Second
		st.ReadyToTrip = func(counts gobreaker.Counts) bool {
			if counts.ConsecutiveFailures >= 5 {
				return true
			}
			total := counts.Requests
			if total < 20 {
				return false
			}
			return float64(counts.TotalFailures)/float64(total) > 0.25
		}
		b = gobreaker.NewCircuitBreaker(st)
		c.breakers[host] = b
	}
	return b
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "unknown"
	}
	return u.Host
}
