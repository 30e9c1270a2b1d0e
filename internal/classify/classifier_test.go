package classify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/polysentry/polysentry/internal/model"
)

func TestCategory_PriorityOrder(t *testing.T) {
	cases := []struct {
		name        string
		question    string
		description string
		want        string
	}{
		{
			name:     "strong sports keyword in question wins",
			question: "Will the Nuggets make the NBA playoffs?",
			want:     model.CategorySports,
		},
		{
			name:        "strong sports beats crypto-looking description",
			question:    "Super Bowl winner announced by February?",
			description: "bitcoin ethereum token blockchain",
			want:        model.CategorySports,
		},
		{
			name:     "primary crypto identifier in question",
			question: "Will Bitcoin close above $100K this year?",
			want:     model.CategoryCrypto,
		},
		{
			name:     "team-vs-team pattern",
			question: "Celtics vs Lakers: over 220 total points?",
			want:     model.CategorySports,
		},
		{
			name:     "win-the-title pattern",
			question: "Will the Lakers win the title?",
			want:     model.CategorySports,
		},
		{
			name:        "avalanche as team beats avalanche as chain",
			question:    "Will the Avalanche sweep the series?",
			description: "avalanche",
			want:        model.CategorySports,
		},
		{
			name:     "two geopolitical hits",
			question: "Will Russia and Ukraine sign a ceasefire?",
			want:     model.CategoryGeopolitical,
		},
		{
			name:     "two political hits",
			question: "Will the senate confirm the nominee?",
			want:     model.CategoryPolitical,
		},
		{
			name:        "geopolitical outranks political on ties",
			question:    "Will sanctions pass the senate vote on the treaty?",
			description: "nato legislation",
			want:        model.CategoryGeopolitical,
		},
		{
			name:     "single hit still classifies",
			question: "New governor inaugurated on schedule?",
			want:     model.CategoryPolitical,
		},
		{
			name:     "nothing matches",
			question: "Will it rain in Seattle tomorrow?",
			want:     model.CategoryGeneral,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Category(tc.question, tc.description))
		})
	}
}

func TestLiveEvent(t *testing.T) {
	now := time.Date(2025, 6, 17, 23, 0, 0, 0, time.UTC)

	// Sports market ending within 8 hours reads as in progress.
	assert.True(t, LiveEvent("Celtics vs Lakers final score > 220", "",
		now.Add(2*time.Hour), now))

	// Same market a week out is just scheduled.
	assert.False(t, LiveEvent("Celtics vs Lakers final score > 220", "",
		now.Add(7*24*time.Hour), now))

	// Non-sports market ending soon is not live.
	assert.False(t, LiveEvent("Will the bill pass this week?", "",
		now.Add(2*time.Hour), now))

	// A start-time token a few hours back flags live even without an
	// end date. 23:00 UTC in June is 19:00 EDT, so a 6 PM ET tip-off
	// started an hour ago.
	assert.True(t, LiveEvent("Knicks game tonight", "Tip-off 6:00 PM ET",
		time.Time{}, now))
}
