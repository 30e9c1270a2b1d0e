package polymarket

import (
	"context"
	"encoding/json"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/polysentry/polysentry/internal/model"
)

// DefaultStreamURL is the Polymarket market-channel websocket endpoint.
const DefaultStreamURL = "wss://ws-subscriptions-clob.polymarket.com/ws/market"

// Reconnection policy for the live trade stream.
const (
	streamInitialBackoff = 1 * time.Second
	streamMaxBackoff     = 60 * time.Second
	streamWriteTimeout   = 10 * time.Second
)

// Stream subscribes to the Polymarket market channel and forwards live trades
// between scans. It reconnects with jittered exponential backoff; dropped
// messages are acceptable because scans re-derive everything from REST.
type Stream struct {
	url     string
	out     chan<- model.Trade
	backoff time.Duration

	mu       sync.Mutex
	assetIDs []string
}

// NewStream creates a live trade stream feeding out.
func NewStream(url string, out chan<- model.Trade) *Stream {
	if url == "" {
		url = DefaultStreamURL
	}
	return &Stream{url: url, out: out, backoff: streamInitialBackoff}
}

// SetAssetIDs replaces the subscription set; takes effect on next (re)connect.
func (s *Stream) SetAssetIDs(ids []string) {
	s.mu.Lock()
	s.assetIDs = ids
	s.mu.Unlock()
}

// Run connects and reads until ctx is cancelled, reconnecting on failure.
func (s *Stream) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		conn, err := s.connect(ctx)
		if err != nil {
			log.Warn().Err(err).Dur("backoff", s.backoff).Msg("stream connect failed")
			if !s.waitBackoff(ctx) {
				return
			}
			continue
		}
		s.backoff = streamInitialBackoff

		if err := s.readLoop(ctx, conn); err != nil {
			log.Debug().Err(err).Msg("stream read ended")
		}
		conn.Close()

		if !s.waitBackoff(ctx) {
			return
		}
	}
}

func (s *Stream) connect(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	ids := make([]string, len(s.assetIDs))
	copy(ids, s.assetIDs)
	s.mu.Unlock()

	sub := map[string]interface{}{"type": "market", "assets_ids": ids}
	conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
	if err := conn.WriteJSON(sub); err != nil {
		conn.Close()
		return nil, err
	}
	log.Info().Int("assets", len(ids)).Msg("stream subscribed")
	return conn, nil
}

func (s *Stream) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		for _, t := range decodeStreamTrades(msg) {
			select {
			case s.out <- t:
			default:
				// Consumer behind; drop rather than block the read loop.
			}
		}
	}
}

// waitBackoff sleeps the current backoff with 20% jitter; false on cancel.
func (s *Stream) waitBackoff(ctx context.Context) bool {
	jitter := time.Duration(rand.Float64() * 0.2 * float64(s.backoff))
	select {
	case <-ctx.Done():
		return false
	case <-time.After(s.backoff + jitter):
	}
	s.backoff *= 2
	if s.backoff > streamMaxBackoff {
		s.backoff = streamMaxBackoff
	}
	return true
}

// decodeStreamTrades extracts last-trade events from a market-channel
// message, which may be a single event or an array.
func decodeStreamTrades(msg []byte) []model.Trade {
	var events []json.RawMessage
	if err := json.Unmarshal(msg, &events); err != nil {
		events = []json.RawMessage{msg}
	}

	var out []model.Trade
	for _, raw := range events {
		o := model.DecodeObj(raw)
		if o == nil {
			continue
		}
		if o.Str("event_type") != "last_trade_price" {
			continue
		}
		side := strings.ToUpper(o.Str("side"))
		if side != model.SideBuy && side != model.SideSell {
			continue
		}
		t := model.Trade{
			Timestamp: o.UnixSec("timestamp", "time"),
			MarketID:  o.Str("market", "condition_id"),
			Outcome:   o.Str("outcome"),
			Side:      side,
			Size:      o.Num("size", "amount", "tokens", "tokenAmount"),
			Price:     o.Num("price"),
			Wallet:    o.Str("wallet", "address", "proxyWallet"),
		}
		if t.Size <= 0 || t.Price <= 0 {
			continue
		}
		if t.Timestamp == 0 {
			t.Timestamp = time.Now().Unix()
		}
		out = append(out, t)
	}
	return out
}
