package score

import (
	"strings"
	"time"

	"github.com/polysentry/polysentry/internal/model"
)

// Category-style dampening rules. These keyword lists deliberately overlap
// with the classifier's (a word can be both a team and a token); the
// classifier's priority rules decide the category, this file only decides
// how hard to discount the score. Do not merge the lists.

var memeKeywords = []string{
	"meme", "doge", "shiba", "pepe", "mention", "tweet", "say the word",
}

var entertainmentKeywords = []string{
	"movie", "film", "album", "billboard", "box office", "oscars", "grammy",
	"emmy", "bachelor", "celebrity", "taylor swift", "spotify",
}

// Dampening factors per rule. The largest fired factor is applied once.
const (
	factorSports        = 0.5
	factorMeme          = 0.4
	factorDaily         = 0.4
	factorEntertainment = 0.3
	factorImminent      = 0.3
)

// dampenFactor returns the strongest fired dampening factor and its rule
// name, or (0, "") when nothing fires.
func dampenFactor(in Input, daysToEnd float64) (float64, string) {
	q := strings.ToLower(in.Market.Question)

	factor, name := 0.0, ""
	apply := func(f float64, n string) {
		if f > factor {
			factor, name = f, n
		}
	}

	if in.Category == model.CategorySports {
		apply(factorSports, "sports_dampened")
	}
	if containsAny(q, memeKeywords) {
		apply(factorMeme, "meme_dampened")
	}
	if containsAny(q, entertainmentKeywords) {
		apply(factorEntertainment, "entertainment_dampened")
	}
	if isDaily(in) {
		apply(factorDaily, "daily_market_dampened")
	}
	if daysToEnd > 0 && daysToEnd < 1 {
		apply(factorImminent, "imminent_expiry_dampened")
	}
	return factor, name
}

// isDaily flags recurring intraday markets ("...today", "...by 11:59 PM")
// whose churn looks like anomaly but is just the daily reset.
func isDaily(in Input) bool {
	q := strings.ToLower(in.Market.Question)
	if strings.Contains(q, "today") || strings.Contains(q, "by 11:59") {
		return true
	}
	m := in.Market
	if !m.CreatedAt.IsZero() && !m.EndDate.IsZero() {
		if m.EndDate.Sub(m.CreatedAt) <= 24*time.Hour {
			return true
		}
	}
	return false
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
