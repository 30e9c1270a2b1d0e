package scan

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/polysentry/polysentry/internal/archetype"
	"github.com/polysentry/polysentry/internal/fetch"
	"github.com/polysentry/polysentry/internal/model"
	"github.com/polysentry/polysentry/internal/persist"
)

// A market is treated as resolved when its winning side trades at or
// beyond this price.
const resolvedPrice = 0.99

// ScorecardStats aggregates the call history.
type ScorecardStats struct {
	TotalCalls    int     `json:"total_calls"`
	Resolved      int     `json:"resolved"`
	Open          int     `json:"open"`
	Wins          int     `json:"wins"`
	Losses        int     `json:"losses"`
	WinRate       float64 `json:"win_rate"`
	CumulativePnL float64 `json:"cumulative_pnl"`
}

// ScorecardResult is the scorecard document. WalletProfiles is the
// archetype post-mortem over wallets seen in the analyzed markets.
type ScorecardResult struct {
	Stats          ScorecardStats          `json:"stats"`
	Calls          []persist.ScorecardCall `json:"calls"`
	WalletProfiles []archetype.Profile     `json:"wallet_profiles,omitempty"`
	UpdatedAt      time.Time               `json:"updated_at"`
}

// Scorecard replays the post log against current prices. Every call is
// tracked in place: P&L-to-date on each replay, the 24h and 48h
// checkpoint P&L captured by the first replay past each mark, and a
// resolution receipt once the market settles. Re-running is safe;
// receipts are idempotent by slug and resolved calls are frozen.
func (o *Orchestrator) Scorecard(ctx context.Context) (*ScorecardResult, error) {
	posts, err := o.eng.Persist.Posts()
	if err != nil {
		return nil, err
	}
	existing, err := o.eng.Persist.Calls()
	if err != nil {
		return nil, err
	}
	bySlug := make(map[string]*persist.ScorecardCall, len(existing))
	for i := range existing {
		bySlug[existing[i].Slug] = &existing[i]
	}

	now := o.eng.Now()
	res := &ScorecardResult{UpdatedAt: now}
	res.Stats.TotalCalls = len(posts)

	for _, post := range posts {
		if post.Slug == "" || o.eng.Resolver == nil {
			res.Stats.Open++
			continue
		}
		m, ok := o.eng.Resolver.MarketBySlug(ctx, post.Slug)
		if !ok {
			res.Stats.Open++
			continue
		}

		exit, resolved := exitPrice(&m, post)
		pnl := round2(exit - entryPrice(post))
		won := pnl > 0

		call := trackCall(bySlug[post.Slug], post, exit, pnl, resolved, won, now)
		if err := o.eng.Persist.UpsertCall(call); err != nil {
			log.Warn().Str("slug", post.Slug).Err(err).Msg("scorecard upsert failed")
		}

		if !resolved {
			res.Stats.Open++
			res.Stats.CumulativePnL += pnl
			continue
		}

		res.Stats.Resolved++
		if call.Won {
			res.Stats.Wins++
		} else {
			res.Stats.Losses++
		}
		res.Stats.CumulativePnL += call.PnL

		if _, err := o.eng.Persist.AppendReceipt(receiptFor(post, &m, exit, pnl, won, now)); err != nil {
			log.Warn().Str("slug", post.Slug).Err(err).Msg("receipt append failed")
		}
	}

	if res.Stats.Resolved > 0 {
		res.Stats.WinRate = round2(float64(res.Stats.Wins) / float64(res.Stats.Resolved))
	}
	res.Stats.CumulativePnL = round2(res.Stats.CumulativePnL)

	res.Calls, err = o.eng.Persist.Calls()
	if err != nil {
		return nil, err
	}
	res.WalletProfiles = o.walletPostMortem(ctx, now)
	return res, nil
}

// Markets covered by the wallet post-mortem pass.
const postMortemMarkets = 20

// walletPostMortem builds archetype profiles from trades in the top
// markets of the wallet-identity venue. Pseudo-wallet venues contribute
// nothing here; every profile would be a single-trade wallet.
func (o *Orchestrator) walletPostMortem(ctx context.Context, now time.Time) []archetype.Profile {
	for _, v := range o.eng.Venues {
		if !v.HasWalletIdentity() {
			continue
		}
		markets, err := v.Markets(ctx, postMortemMarkets)
		if err != nil {
			return nil
		}

		entries := make(chan []archetype.Entry, len(markets))
		idx := make([]*model.Market, len(markets))
		for i := range markets {
			idx[i] = &markets[i]
		}
		fetch.Batch(ctx, idx, scanBatchSize, scanBatchDelay, func(ctx context.Context, m *model.Market) {
			trades, err := v.Trades(ctx, *m, model.TradeCapScan)
			if err != nil {
				return
			}
			resolved := m.MaxPrice() >= resolvedPrice || !m.ClosedTime.IsZero()
			batch := make([]archetype.Entry, 0, len(trades))
			for _, t := range trades {
				batch = append(batch, archetype.EntryFromTrade(t, m, resolved))
			}
			entries <- batch
		})
		close(entries)

		var all []archetype.Entry
		for batch := range entries {
			all = append(all, batch...)
		}
		profiles := archetype.Classify(all, now)
		if len(profiles) > 25 {
			profiles = profiles[:25]
		}
		return profiles
	}
	return nil
}

// trackCall merges one replay observation into the tracked call for a
// post. Checkpoint P&L is written once, by the first replay at or past
// the mark; a resolved call never changes again.
func trackCall(prev *persist.ScorecardCall, post persist.PostRecord, exit, pnl float64, resolved, won bool, now time.Time) persist.ScorecardCall {
	if prev != nil && prev.Resolved {
		return *prev
	}
	call := persist.ScorecardCall{
		Slug:       post.Slug,
		Question:   post.Question,
		Action:     actionOf(post),
		EntryPrice: entryPrice(post),
		ExitPrice:  exit,
		PnL:        pnl,
		PostedAt:   post.Timestamp,
	}
	if prev != nil {
		call.PnL24h = prev.PnL24h
		call.PnL48h = prev.PnL48h
	}
	age := now.Sub(post.Timestamp)
	if call.PnL24h == nil && age >= 24*time.Hour {
		v := pnl
		call.PnL24h = &v
	}
	if call.PnL48h == nil && age >= 48*time.Hour {
		v := pnl
		call.PnL48h = &v
	}
	if resolved {
		call.Resolved = true
		call.Won = won
		call.ResolvedAt = now
	}
	return call
}

// receiptFor builds the settled counterpart of a post.
func receiptFor(post persist.PostRecord, m *model.Market, exit, pnl float64, won bool, now time.Time) persist.Receipt {
	return persist.Receipt{
		Slug:        post.Slug,
		Question:    post.Question,
		Outcome:     winner(m),
		YesPrice:    post.YesPrice,
		FinalPrice:  exit,
		ScoreAtPost: post.Score,
		Won:         won,
		PnL:         pnl,
		DaysAhead:   round2(now.Sub(post.Timestamp).Hours() / 24),
		ResolvedAt:  now,
	}
}

// entryPrice is the price the call was effectively made at: the minority
// side at post time.
func entryPrice(post persist.PostRecord) float64 {
	if post.YesPrice <= 0.5 {
		return post.YesPrice
	}
	return round2(1 - post.YesPrice)
}

// exitPrice returns the current price of the posted side and whether the
// market has resolved.
func exitPrice(m *model.Market, post persist.PostRecord) (float64, bool) {
	resolved := m.MaxPrice() >= resolvedPrice || !m.ClosedTime.IsZero()
	cur := yesPrice(m)
	if post.YesPrice > 0.5 {
		cur = round2(1 - cur)
	}
	return cur, resolved
}

// winner names the outcome trading at the resolved price, empty when the
// market is still open.
func winner(m *model.Market) string {
	for i, p := range m.OutcomePrices {
		if p >= resolvedPrice && i < len(m.Outcomes) {
			return m.Outcomes[i]
		}
	}
	return ""
}

func actionOf(post persist.PostRecord) string {
	if post.YesPrice <= 0.5 {
		return ActionBuyYes
	}
	return ActionBuyNo
}
