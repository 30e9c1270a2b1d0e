// Package archetype classifies wallets by their trading history and scores
// long-horizon prescience for resolved-market post-mortems. Resolved
// outcomes give hard wins and losses; unresolved markets contribute soft
// wins and losses from price drift since entry.
package archetype

import (
	"math"
	"sort"
	"time"

	"github.com/polysentry/polysentry/internal/model"
)

// Archetype labels.
const (
	FreshInsider = "fresh_insider"
	YieldFarmer  = "yield_farmer"
	Scalper      = "scalper"
	Insider      = "insider"
	Whale        = "whale"
	Retail       = "retail"
)

// Confidence labels by sample size.
const (
	ConfidenceHigh    = "HIGH"
	ConfidenceMedium  = "MEDIUM"
	ConfidenceLow     = "LOW"
	ConfidenceMinimal = "MINIMAL"
)

// Entry is one observed wallet position in one market.
type Entry struct {
	MarketID     string
	Wallet       string
	Outcome      string
	EntryPrice   float64
	CurrentPrice float64
	USD          float64
	Liquidity    float64
	EnteredAt    time.Time
	MarketEnd    time.Time
	Resolved     bool
	Won          bool
	Category     string
}

// Profile is the archetype assessment for one wallet.
type Profile struct {
	Wallet       string  `json:"wallet"`
	Archetype    string  `json:"archetype"`
	Trades       int     `json:"trades"`
	Markets      int     `json:"markets"`
	Wins         int     `json:"wins"`
	Losses       int     `json:"losses"`
	SoftWins     int     `json:"soft_wins"`
	SoftLosses   int     `json:"soft_losses"`
	WinRate      float64 `json:"blended_win_rate"`
	AvgBetUSD    float64 `json:"avg_bet_usd"`
	TotalUSD     float64 `json:"total_usd"`
	AgeDays      float64 `json:"age_days"`
	Prescience   int     `json:"prescience_score"`
	Confidence   string  `json:"confidence"`
}

// Prescience weights; the components sum to 100 at full marks.
const (
	weightAge           = 15
	weightTiming        = 20
	weightWinRate       = 25
	weightLiquiditySize = 15
	weightDomainEdge    = 10
	weightConcentration = 10
	weightVolume        = 5
)

// Archetype score caps: some cohorts can never reach the top of the scale
// no matter how the components add up.
var archetypeCaps = map[string]int{
	YieldFarmer: 40,
	Scalper:     50,
	Retail:      70,
}

// Classify builds profiles for every wallet with at least two entries.
// Output is sorted by prescience descending, stable on wallet.
func Classify(entries []Entry, now time.Time) []Profile {
	byWallet := make(map[string][]Entry)
	for _, e := range entries {
		if e.Wallet == "" {
			continue
		}
		byWallet[e.Wallet] = append(byWallet[e.Wallet], e)
	}

	var profiles []Profile
	for wallet, es := range byWallet {
		if len(es) < 2 {
			continue
		}
		profiles = append(profiles, profile(wallet, es, now))
	}
	sort.Slice(profiles, func(i, j int) bool {
		if profiles[i].Prescience != profiles[j].Prescience {
			return profiles[i].Prescience > profiles[j].Prescience
		}
		return profiles[i].Wallet < profiles[j].Wallet
	})
	return profiles
}

func profile(wallet string, es []Entry, now time.Time) Profile {
	p := Profile{Wallet: wallet, Trades: len(es)}

	markets := make(map[string]struct{})
	categories := make(map[string]int)
	var totalUSD, firstSeen float64
	var shortMarkets int
	var resolvedTotal, softTotal int
	for _, e := range es {
		markets[e.MarketID] = struct{}{}
		totalUSD += e.USD
		if e.Category != "" {
			categories[e.Category]++
		}
		if !e.MarketEnd.IsZero() && e.MarketEnd.Sub(e.EnteredAt) < 7*24*time.Hour {
			shortMarkets++
		}
		age := now.Sub(e.EnteredAt).Hours() / 24
		if firstSeen == 0 || age > firstSeen {
			firstSeen = age
		}
		if e.Resolved {
			resolvedTotal++
			if e.Won {
				p.Wins++
			} else {
				p.Losses++
			}
			continue
		}
		// Soft outcome from price drift since entry.
		drift := e.CurrentPrice - e.EntryPrice
		switch {
		case drift >= 0.05:
			p.SoftWins++
			softTotal++
		case drift <= -0.05:
			p.SoftLosses++
			softTotal++
		}
	}
	p.Markets = len(markets)
	p.TotalUSD = round2(totalUSD)
	p.AvgBetUSD = round2(totalUSD / float64(len(es)))
	p.AgeDays = math.Round(firstSeen*10) / 10

	denom := float64(resolvedTotal) + 0.5*float64(softTotal)
	if denom > 0 {
		p.WinRate = round2((float64(p.Wins) + 0.5*float64(p.SoftWins)) / denom)
	}

	p.Archetype = archetypeOf(p, es, shortMarkets)
	p.Prescience = prescience(p, es, categories, now)
	p.Confidence = confidence(resolvedTotal + softTotal)
	return p
}

// archetypeOf applies the classification ladder; first match wins.
func archetypeOf(p Profile, es []Entry, shortMarkets int) string {
	shortPref := float64(shortMarkets) / float64(len(es))
	liqHeavy := 0
	for _, e := range es {
		if e.Liquidity > 0 && e.USD/e.Liquidity > 0.05 {
			liqHeavy++
		}
	}

	switch {
	case p.AgeDays < 7 && p.AvgBetUSD >= 1000:
		return FreshInsider
	case shortPref > 0.8 && p.AvgBetUSD < 100:
		return Scalper
	case p.WinRate > 0 && p.WinRate < 0.55 && p.Markets >= 20 && p.AvgBetUSD < 200:
		return YieldFarmer
	case p.WinRate >= 0.75 && p.Markets <= 5 && liqHeavy > 0:
		return Insider
	case p.TotalUSD >= 50000:
		return Whale
	default:
		return Retail
	}
}

// prescience is the 0-100 weighted sum, then expiry discount and the
// archetype cap.
func prescience(p Profile, es []Entry, categories map[string]int, now time.Time) int {
	var score float64

	// Wallet age: older books earn more trust, saturating at a year.
	score += weightAge * clamp01(p.AgeDays/365)

	// Timing: early entries relative to resolution.
	var timing float64
	var timed int
	for _, e := range es {
		if e.MarketEnd.IsZero() || !e.MarketEnd.After(e.EnteredAt) {
			continue
		}
		lead := e.MarketEnd.Sub(e.EnteredAt).Hours() / 24
		timing += clamp01(lead / 30)
		timed++
	}
	if timed > 0 {
		score += weightTiming * (timing / float64(timed))
	}

	score += weightWinRate * clamp01(p.WinRate)

	// Liquidity-relative size: big bets into thin books.
	var liqSize float64
	var sized int
	for _, e := range es {
		if e.Liquidity > 0 {
			liqSize += clamp01(e.USD / e.Liquidity / 0.10)
			sized++
		}
	}
	if sized > 0 {
		score += weightLiquiditySize * (liqSize / float64(sized))
	}

	// Domain edge: concentration in one category.
	if len(categories) > 0 {
		best := 0
		for _, n := range categories {
			if n > best {
				best = n
			}
		}
		score += weightDomainEdge * clamp01(float64(best)/float64(p.Trades))
	}

	// Concentration: few markets, big positions.
	score += weightConcentration * clamp01(2/float64(p.Markets))

	score += weightVolume * clamp01(p.TotalUSD/100000)

	// Expiry discount: a book of mostly near-expiry entries is riding
	// consensus, not foresight.
	nearExpiry := 0
	for _, e := range es {
		if !e.MarketEnd.IsZero() && e.MarketEnd.Sub(e.EnteredAt) < 48*time.Hour {
			nearExpiry++
		}
	}
	if frac := float64(nearExpiry) / float64(len(es)); frac > 0.5 {
		score *= 0.6
	}

	out := int(math.Round(score))
	if hardCap, ok := archetypeCaps[p.Archetype]; ok && out > hardCap {
		out = hardCap
	}
	if out < 0 {
		out = 0
	}
	if out > 100 {
		out = 100
	}
	return out
}

func confidence(samples int) string {
	switch {
	case samples >= 20:
		return ConfidenceHigh
	case samples >= 10:
		return ConfidenceMedium
	case samples >= 5:
		return ConfidenceLow
	default:
		return ConfidenceMinimal
	}
}

// EntryFromTrade builds an Entry from a trade against its market.
func EntryFromTrade(t model.Trade, m *model.Market, resolved bool) Entry {
	e := Entry{
		MarketID:   m.ID,
		Wallet:     t.Wallet,
		Outcome:    t.Outcome,
		EntryPrice: t.Price,
		USD:        t.USD(),
		Liquidity:  m.Liquidity,
		EnteredAt:  time.Unix(t.Timestamp, 0),
		MarketEnd:  m.EndDate,
		Resolved:   resolved,
	}
	for i, name := range m.Outcomes {
		if name == t.Outcome && i < len(m.OutcomePrices) {
			e.CurrentPrice = m.OutcomePrices[i]
			if resolved {
				e.Won = m.OutcomePrices[i] >= 0.99
			}
		}
	}
	return e
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
