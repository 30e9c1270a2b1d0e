package scan

import (
	"math"
	"sort"
	"strings"

	"github.com/polysentry/polysentry/internal/model"
)

// Jaccard threshold for treating two questions as the same event.
const crossVenueSimilarity = 0.6

var stopwords = map[string]struct{}{
	"the": {}, "will": {}, "win": {}, "be": {}, "a": {}, "an": {}, "of": {},
	"in": {}, "on": {}, "by": {}, "to": {}, "for": {}, "at": {}, "and": {},
	"or": {}, "is": {}, "before": {}, "after": {}, "than": {}, "this": {},
}

// matchAcrossVenues pairs markets from different venues whose question
// keyword sets overlap at Jaccard >= 0.6. The match set is symmetric:
// both sides of a pair get annotated. Each market keeps its best match.
func matchAcrossVenues(markets []model.Market) map[[2]string]*CrossVenueMatch {
	type entry struct {
		m    *model.Market
		kw   map[string]struct{}
	}
	entries := make([]entry, 0, len(markets))
	for i := range markets {
		entries = append(entries, entry{m: &markets[i], kw: keywords(markets[i].Question)})
	}

	best := make(map[[2]string]*CrossVenueMatch)
	bestSim := make(map[[2]string]float64)

	for i := 0; i < len(entries); i++ {
		for j := i + 1; j < len(entries); j++ {
			a, b := entries[i], entries[j]
			if a.m.Venue == b.m.Venue {
				continue
			}
			sim := jaccard(a.kw, b.kw)
			if sim < crossVenueSimilarity {
				continue
			}
			keyA := [2]string{a.m.Venue, a.m.ID}
			keyB := [2]string{b.m.Venue, b.m.ID}
			if sim > bestSim[keyA] {
				bestSim[keyA] = sim
				best[keyA] = matchRecord(a.m, b.m, sim)
			}
			if sim > bestSim[keyB] {
				bestSim[keyB] = sim
				best[keyB] = matchRecord(b.m, a.m, sim)
			}
		}
	}
	return best
}

func matchRecord(here, there *model.Market, sim float64) *CrossVenueMatch {
	hereYes := yesPrice(here)
	thereYes := yesPrice(there)
	return &CrossVenueMatch{
		Venue:         there.Venue,
		MarketID:      there.ID,
		Question:      there.Question,
		Similarity:    math.Round(sim*100) / 100,
		YesPriceHere:  hereYes,
		YesPriceThere: thereYes,
		Divergence:    math.Round(math.Abs(hereYes-thereYes)*100) / 100,
	}
}

// yesPrice is the price of the "Yes" outcome, or the first outcome when
// the market is not a plain yes/no.
func yesPrice(m *model.Market) float64 {
	for i, name := range m.Outcomes {
		if strings.EqualFold(name, "yes") && i < len(m.OutcomePrices) {
			return m.OutcomePrices[i]
		}
	}
	if len(m.OutcomePrices) > 0 {
		return m.OutcomePrices[0]
	}
	return 0
}

// keywords tokenizes a question into its distinctive lowercase terms.
func keywords(question string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, tok := range strings.FieldsFunc(strings.ToLower(question), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	}) {
		if len(tok) < 3 {
			continue
		}
		if _, stop := stopwords[tok]; stop {
			continue
		}
		out[tok] = struct{}{}
	}
	return out
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// sortedKeywords is used by tests to assert tokenization.
func sortedKeywords(question string) []string {
	kw := keywords(question)
	out := make([]string, 0, len(kw))
	for k := range kw {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
