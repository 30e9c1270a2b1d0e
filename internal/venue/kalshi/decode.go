package kalshi

import (
	"strings"

	"github.com/polysentry/polysentry/internal/model"
)

// decodeMarket maps one Kalshi market object. Prices come back in cents.
func decodeMarket(o model.Obj, eventTitle, eventSubtitle string) (model.Market, bool) {
	ticker := o.Str("ticker")
	if ticker == "" {
		return model.Market{}, false
	}

	question := o.Str("title")
	if question == "" {
		question = eventTitle
	}
	sub := o.Str("subtitle", "yes_sub_title")
	desc := eventSubtitle
	if sub != "" {
		if desc != "" {
			desc += " — "
		}
		desc += sub
	}

	// Yes price: prefer last trade, fall back to bid/ask midpoint.
	yes := o.Num("last_price")
	if yes == 0 {
		bid, ask := o.Num("yes_bid"), o.Num("yes_ask")
		if bid > 0 || ask > 0 {
			yes = (bid + ask) / 2
		}
	}
	yesProb := yes / 100
	if yesProb < 0 {
		yesProb = 0
	}
	if yesProb > 1 {
		yesProb = 1
	}

	m := model.Market{
		ID:                ticker,
		Slug:              strings.ToLower(ticker),
		Venue:             "kalshi",
		Question:          question,
		Description:       desc,
		Outcomes:          []string{"Yes", "No"},
		OutcomePrices:     []float64{yesProb, 1 - yesProb},
		Volume24h:         o.Num("volume_24h"),
		VolumeTotal:       o.Num("volume"),
		Liquidity:         o.Num("liquidity") / 100,
		CreatedAt:         o.Time("open_time", "created_time"),
		EndDate:           o.Time("close_time", "expiration_time"),
		HasWalletIdentity: false,
	}
	return m, true
}

// decodeTrades maps Kalshi trades. The taker side determines the bought
// outcome; every trade gets a unique pseudo-wallet keyed by trade ID, an
// acknowledged limitation that disables wallet-cluster analysis here.
func decodeTrades(objs []model.Obj, marketID string) []model.Trade {
	out := make([]model.Trade, 0, len(objs))
	for _, o := range objs {
		tradeID := o.Str("trade_id", "id")
		if tradeID == "" {
			continue
		}
		count := o.Num("count", "size")
		if count <= 0 {
			continue
		}

		outcome := "Yes"
		price := o.Num("yes_price") / 100
		if strings.EqualFold(o.Str("taker_side"), "no") {
			outcome = "No"
			price = o.Num("no_price") / 100
			if price == 0 {
				price = 1 - o.Num("yes_price")/100
			}
		}
		if price <= 0 || price >= 1 {
			continue
		}

		out = append(out, model.Trade{
			Timestamp: o.UnixSec("created_time", "ts"),
			MarketID:  marketID,
			Outcome:   outcome,
			Side:      model.SideBuy, // taker buys the taker side
			Size:      count,
			Price:     price,
			Wallet:    "k_" + tradeID,
		})
	}
	return out
}
