// Package classify assigns each market a topic category and detects live
// events. Priority rules matter: descriptions are polluted with generic
// words ("avalanche" is a hockey team and a crypto project), so strong
// question-level matches always win over description-level keyword counts.
package classify

import (
	"regexp"
	"strings"

	"github.com/polysentry/polysentry/internal/model"
)

// Strong sports keywords checked against the question only.
var strongSportsKeywords = []string{
	"nba", "nfl", "nhl", "mlb", "ncaa", "premier league", "champions league",
	"super bowl", "world series", "stanley cup", "playoffs", "grand slam",
	"wimbledon", "ufc", "heavyweight", "grand prix", "world cup",
}

// Primary crypto identifiers checked against the question only.
var primaryCryptoKeywords = []string{
	"bitcoin", "btc", "ethereum", "eth ", "solana", "sol ", "dogecoin",
	"xrp", "crypto", "binance", "coinbase", "stablecoin", "airdrop",
}

// Sports regex patterns checked against question+description.
var sportsPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b[A-Z][a-z]+ (vs\.?|@) [A-Z][a-z]+\b`),
	regexp.MustCompile(`(?i)\bwin the (title|championship|finals|cup|series)\b`),
	regexp.MustCompile(`(?i)\b(final score|point spread|moneyline|over/under)\b`),
	regexp.MustCompile(`(?i)\b(lakers|celtics|warriors|knicks|yankees|dodgers|chiefs|cowboys|avalanche|rangers|bruins)\b`),
	regexp.MustCompile(`(?i)\bgame \d+\b`),
}

// Weighted keyword lists scored over question+description. The lists
// overlap with the dampening lists elsewhere on purpose; do not merge them.
var (
	geopoliticalKeywords = []string{
		"ceasefire", "invasion", "military", "nato", "sanctions", "nuclear",
		"missile", "ukraine", "russia", "israel", "iran", "china", "taiwan",
		"north korea", "treaty", "border", "war",
	}
	politicalKeywords = []string{
		"election", "president", "senate", "congress", "governor", "primary",
		"nominee", "impeach", "cabinet", "supreme court", "parliament",
		"prime minister", "approval rating", "veto", "legislation",
	}
	cryptoKeywords = []string{
		"bitcoin", "ethereum", "solana", "token", "blockchain", "defi",
		"etf approval", "halving", "mining", "wallet", "exchange", "sec",
		"avalanche", "cardano", "altcoin",
	}
)

// Category returns the topic for a market. First match wins:
//  1. strong sports keyword in the question
//  2. primary crypto identifier in the question
//  3. sports regex over question+description
//  4. keyword scoring over question+description (>=2 hits wins; a single
//     hit wins only if unique, tie-break geopolitical > political > crypto)
//  5. general
func Category(question, description string) string {
	q := strings.ToLower(question)
	full := q + " " + strings.ToLower(description)

	for _, kw := range strongSportsKeywords {
		if strings.Contains(q, kw) {
			return model.CategorySports
		}
	}
	for _, kw := range primaryCryptoKeywords {
		if strings.Contains(q, kw) {
			return model.CategoryCrypto
		}
	}
	combined := question + " " + description
	for _, re := range sportsPatterns {
		if re.MatchString(combined) {
			return model.CategorySports
		}
	}

	geo := countHits(full, geopoliticalKeywords)
	pol := countHits(full, politicalKeywords)
	cry := countHits(full, cryptoKeywords)

	// Two or more hits is decisive; ties break geopolitical first.
	if geo >= 2 && geo >= pol && geo >= cry {
		return model.CategoryGeopolitical
	}
	if pol >= 2 && pol >= cry {
		return model.CategoryPolitical
	}
	if cry >= 2 {
		return model.CategoryCrypto
	}
	if geo == 1 {
		return model.CategoryGeopolitical
	}
	if pol == 1 {
		return model.CategoryPolitical
	}
	if cry == 1 {
		return model.CategoryCrypto
	}
	return model.CategoryGeneral
}

func countHits(text string, keywords []string) int {
	hits := 0
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			hits++
		}
	}
	return hits
}
