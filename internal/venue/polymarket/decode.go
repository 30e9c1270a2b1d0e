package polymarket

import (
	"encoding/json"
	"strings"

	"github.com/polysentry/polysentry/internal/model"
)

// decodeMarkets maps the gamma market array into canonical markets.
// Field shapes vary between API revisions; every field decodes through the
// variant helpers and degrades to zero on mismatch.
func decodeMarkets(raw json.RawMessage) []model.Market {
	objs := model.DecodeArr(raw)
	out := make([]model.Market, 0, len(objs))
	for _, o := range objs {
		id := o.Str("conditionId", "condition_id", "id")
		if id == "" {
			continue
		}
		m := model.Market{
			ID:                id,
			Slug:              o.Str("slug"),
			Venue:             "polymarket",
			Question:          o.Str("question", "title"),
			Description:       o.Str("description"),
			Outcomes:          o.StrSlice("outcomes"),
			OutcomePrices:     o.NumSlice("outcomePrices", "outcome_prices"),
			Volume24h:         o.Num("volume24hr", "volume24hrClob", "volume_24h"),
			VolumeTotal:       o.Num("volumeNum", "volume"),
			Liquidity:         o.Num("liquidityNum", "liquidity"),
			CreatedAt:         o.Time("createdAt", "created_at"),
			EndDate:           o.Time("endDate", "end_date_iso"),
			ClosedTime:        o.Time("closedTime", "closed_time"),
			HasWalletIdentity: true,
		}
		// Comma-separated fallback for the legacy "YES,NO" encoding.
		if len(m.Outcomes) == 0 {
			if s := o.Str("outcomes"); s != "" && !strings.HasPrefix(s, "[") {
				m.Outcomes = strings.Split(s, ",")
			}
		}
		if tags := o.StrSlice("tags"); len(tags) > 0 {
			m.Tags = tags
		}
		m.TokenIDs = o.StrSlice("clobTokenIds", "clob_token_ids")
		out = append(out, m)
	}
	return out
}

// decodeTrades maps data-api trades. Wallet resolution tries the known
// field aliases in fixed priority order.
func decodeTrades(raw json.RawMessage, marketID string) []model.Trade {
	objs := model.DecodeArr(raw)
	out := make([]model.Trade, 0, len(objs))
	for _, o := range objs {
		side := strings.ToUpper(o.Str("side"))
		if side != model.SideBuy && side != model.SideSell {
			continue
		}
		t := model.Trade{
			Timestamp: o.UnixSec("timestamp", "time"),
			MarketID:  marketID,
			Outcome:   o.Str("outcome"),
			Side:      side,
			Size:      o.Num("size", "amount", "tokens", "tokenAmount"),
			Price:     o.Num("price"),
			Wallet:    o.Str("wallet", "address", "proxyWallet"),
		}
		if t.Size <= 0 || t.Price <= 0 {
			continue
		}
		out = append(out, t)
	}
	return out
}

func decodeHolders(raw json.RawMessage) []model.Holder {
	objs := model.DecodeArr(raw)
	out := make([]model.Holder, 0, len(objs))
	for _, o := range objs {
		h := model.Holder{
			Wallet: o.Str("wallet", "address", "proxyWallet"),
			Tokens: o.Num("amount", "tokens", "tokenAmount"),
		}
		if h.Wallet == "" || h.Tokens <= 0 {
			continue
		}
		out = append(out, h)
	}
	return out
}

func decodePositions(raw json.RawMessage) []model.Position {
	objs := model.DecodeArr(raw)
	out := make([]model.Position, 0, len(objs))
	for _, o := range objs {
		p := model.Position{
			Wallet:     o.Str("wallet", "address", "proxyWallet"),
			Size:       o.Num("size", "amount", "tokens", "tokenAmount"),
			AvgPrice:   o.Num("avgPrice", "avg_price"),
			CashPnL:    o.Num("cashPnl", "cash_pnl", "pnl"),
			Outcome:    o.Str("outcome"),
			InitialUSD: o.Num("initialValue", "initial_value"),
		}
		if p.Wallet == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

// summarizeActivity folds the raw activity feed into a wallet profile.
func summarizeActivity(wallet string, raw json.RawMessage) model.ActivitySummary {
	objs := model.DecodeArr(raw)
	sum := model.ActivitySummary{Wallet: wallet}
	markets := make(map[string]struct{})
	var firstSeen int64
	for _, o := range objs {
		typ := strings.ToUpper(o.Str("type"))
		if typ != "" && typ != "TRADE" {
			continue
		}
		sum.TotalTrades++
		usd := o.Num("usdcSize", "usd_size")
		if usd == 0 {
			usd = o.Num("size", "amount") * o.Num("price")
		}
		sum.TotalVolume += usd
		if id := o.Str("conditionId", "condition_id", "market"); id != "" {
			markets[id] = struct{}{}
		}
		if ts := o.UnixSec("timestamp", "time"); ts > 0 && (firstSeen == 0 || ts < firstSeen) {
			firstSeen = ts
		}
	}
	sum.MarketCount = len(markets)
	sum.FirstSeen = firstSeen
	return sum
}
