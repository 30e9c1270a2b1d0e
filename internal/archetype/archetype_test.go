package archetype

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polysentry/polysentry/internal/model"
)

var archNow = time.Date(2025, 6, 17, 12, 0, 0, 0, time.UTC)

func TestBlendedWinRate(t *testing.T) {
	es := []Entry{
		{Wallet: "w", MarketID: "m1", USD: 100, EnteredAt: archNow.Add(-30 * 24 * time.Hour), Resolved: true, Won: true},
		{Wallet: "w", MarketID: "m2", USD: 100, EnteredAt: archNow.Add(-20 * 24 * time.Hour), Resolved: true, Won: true},
		{Wallet: "w", MarketID: "m3", USD: 100, EnteredAt: archNow.Add(-10 * 24 * time.Hour), Resolved: true, Won: false},
		// Soft win: price drifted +0.10 since entry.
		{Wallet: "w", MarketID: "m4", USD: 100, EnteredAt: archNow.Add(-5 * 24 * time.Hour), EntryPrice: 0.30, CurrentPrice: 0.40},
		// Soft loss.
		{Wallet: "w", MarketID: "m5", USD: 100, EnteredAt: archNow.Add(-5 * 24 * time.Hour), EntryPrice: 0.30, CurrentPrice: 0.20},
		// Inside the 0.05 drift band, counted neither way.
		{Wallet: "w", MarketID: "m6", USD: 100, EnteredAt: archNow.Add(-5 * 24 * time.Hour), EntryPrice: 0.30, CurrentPrice: 0.31},
	}

	profiles := Classify(es, archNow)
	require.Len(t, profiles, 1)
	p := profiles[0]

	assert.Equal(t, 2, p.Wins)
	assert.Equal(t, 1, p.Losses)
	assert.Equal(t, 1, p.SoftWins)
	assert.Equal(t, 1, p.SoftLosses)
	// (2 + 0.5*1) / (3 + 0.5*2) = 0.625, rounded to cents.
	assert.InDelta(t, 0.63, p.WinRate, 1e-9)
	// 3 hard + 2 soft samples.
	assert.Equal(t, ConfidenceLow, p.Confidence)
}

func TestClassify_DropsSingleEntryWalletsAndSorts(t *testing.T) {
	strong := []Entry{
		{Wallet: "strong", MarketID: "m1", USD: 1000, Liquidity: 10000, EnteredAt: archNow.Add(-300 * 24 * time.Hour), MarketEnd: archNow.Add(-270 * 24 * time.Hour), Resolved: true, Won: true},
		{Wallet: "strong", MarketID: "m2", USD: 1000, Liquidity: 10000, EnteredAt: archNow.Add(-200 * 24 * time.Hour), MarketEnd: archNow.Add(-170 * 24 * time.Hour), Resolved: true, Won: true},
	}
	weak := []Entry{
		{Wallet: "weak", MarketID: "m1", USD: 10, EnteredAt: archNow.Add(-1 * 24 * time.Hour)},
		{Wallet: "weak", MarketID: "m2", USD: 10, EnteredAt: archNow.Add(-1 * 24 * time.Hour)},
	}
	lone := []Entry{
		{Wallet: "lone", MarketID: "m1", USD: 5000, EnteredAt: archNow, Resolved: true, Won: true},
	}

	profiles := Classify(append(append(strong, weak...), lone...), archNow)
	require.Len(t, profiles, 2)
	assert.Equal(t, "strong", profiles[0].Wallet)
	assert.Equal(t, "weak", profiles[1].Wallet)
	assert.Greater(t, profiles[0].Prescience, profiles[1].Prescience)
}

func TestArchetypeLadder(t *testing.T) {
	day := 24 * time.Hour
	cases := []struct {
		name    string
		entries []Entry
		want    string
	}{
		{
			"fresh insider: young wallet, big bets",
			[]Entry{
				{MarketID: "m1", USD: 2000, EnteredAt: archNow.Add(-2 * day), Resolved: true, Won: true},
				{MarketID: "m2", USD: 1500, EnteredAt: archNow.Add(-1 * day), Resolved: true, Won: false},
			},
			FreshInsider,
		},
		{
			"scalper: small bets on short-dated markets",
			[]Entry{
				{MarketID: "m1", USD: 50, EnteredAt: archNow.Add(-30 * day), MarketEnd: archNow.Add(-28 * day)},
				{MarketID: "m2", USD: 40, EnteredAt: archNow.Add(-20 * day), MarketEnd: archNow.Add(-19 * day)},
			},
			Scalper,
		},
		{
			"insider: high win rate, few markets, thin books",
			[]Entry{
				{MarketID: "m1", USD: 1000, Liquidity: 10000, EnteredAt: archNow.Add(-60 * day), Resolved: true, Won: true},
				{MarketID: "m2", USD: 1000, Liquidity: 10000, EnteredAt: archNow.Add(-50 * day), Resolved: true, Won: true},
				{MarketID: "m3", USD: 1000, Liquidity: 10000, EnteredAt: archNow.Add(-40 * day), Resolved: true, Won: true},
				{MarketID: "m4", USD: 1000, Liquidity: 10000, EnteredAt: archNow.Add(-30 * day), Resolved: true, Won: false},
			},
			Insider,
		},
		{
			"whale: pure size",
			[]Entry{
				{MarketID: "m1", USD: 30000, EnteredAt: archNow.Add(-100 * day)},
				{MarketID: "m2", USD: 30000, EnteredAt: archNow.Add(-90 * day)},
			},
			Whale,
		},
		{
			"retail: none of the above",
			[]Entry{
				{MarketID: "m1", USD: 50, EnteredAt: archNow.Add(-100 * day)},
				{MarketID: "m2", USD: 60, EnteredAt: archNow.Add(-90 * day)},
			},
			Retail,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for i := range tc.entries {
				tc.entries[i].Wallet = "w"
			}
			profiles := Classify(tc.entries, archNow)
			require.Len(t, profiles, 1)
			assert.Equal(t, tc.want, profiles[0].Archetype)
		})
	}
}

func TestArchetypeLadder_YieldFarmer(t *testing.T) {
	// Many small bets across many markets at a break-even win rate.
	var es []Entry
	for i := 0; i < 20; i++ {
		es = append(es, Entry{
			Wallet:    "farmer",
			MarketID:  fmt.Sprintf("m%d", i),
			USD:       100,
			EnteredAt: archNow.Add(-100 * 24 * time.Hour),
			Resolved:  true,
			Won:       i%2 == 0,
		})
	}
	profiles := Classify(es, archNow)
	require.Len(t, profiles, 1)
	assert.Equal(t, YieldFarmer, profiles[0].Archetype)
	assert.LessOrEqual(t, profiles[0].Prescience, 40, "yield farmers are score-capped")
}

func TestPrescience_FullMarksAndCap(t *testing.T) {
	perfect := Profile{Archetype: Insider, AgeDays: 365, WinRate: 1, Markets: 2, Trades: 2, TotalUSD: 100000}
	es := []Entry{
		{MarketID: "m1", USD: 1000, Liquidity: 10000, Category: "politics",
			EnteredAt: archNow.Add(-40 * 24 * time.Hour), MarketEnd: archNow.Add(-5 * 24 * time.Hour)},
		{MarketID: "m2", USD: 1000, Liquidity: 10000, Category: "politics",
			EnteredAt: archNow.Add(-40 * 24 * time.Hour), MarketEnd: archNow.Add(-5 * 24 * time.Hour)},
	}
	cats := map[string]int{"politics": 2}

	assert.Equal(t, 100, prescience(perfect, es, cats, archNow))

	capped := perfect
	capped.Archetype = Scalper
	assert.Equal(t, 50, prescience(capped, es, cats, archNow))
}

func TestPrescience_ExpiryDiscount(t *testing.T) {
	p := Profile{Archetype: Insider, AgeDays: 365, WinRate: 1, Markets: 2, Trades: 2, TotalUSD: 100000}
	// Both entries placed a day before expiry: consensus-riding, not foresight.
	es := []Entry{
		{MarketID: "m1", USD: 1000, Liquidity: 10000, Category: "politics",
			EnteredAt: archNow.Add(-2 * 24 * time.Hour), MarketEnd: archNow.Add(-1 * 24 * time.Hour)},
		{MarketID: "m2", USD: 1000, Liquidity: 10000, Category: "politics",
			EnteredAt: archNow.Add(-2 * 24 * time.Hour), MarketEnd: archNow.Add(-1 * 24 * time.Hour)},
	}
	cats := map[string]int{"politics": 2}

	// Timing collapses to 1/30 of full marks and the whole score takes the
	// 0.6 discount: (15 + 20/30 + 25 + 15 + 10 + 10 + 5) * 0.6 = 48.4.
	assert.Equal(t, 48, prescience(p, es, cats, archNow))
}

func TestConfidenceTiers(t *testing.T) {
	assert.Equal(t, ConfidenceHigh, confidence(20))
	assert.Equal(t, ConfidenceMedium, confidence(19))
	assert.Equal(t, ConfidenceMedium, confidence(10))
	assert.Equal(t, ConfidenceLow, confidence(9))
	assert.Equal(t, ConfidenceLow, confidence(5))
	assert.Equal(t, ConfidenceMinimal, confidence(4))
}

func TestEntryFromTrade(t *testing.T) {
	m := &model.Market{
		ID:            "m1",
		Outcomes:      []string{"Yes", "No"},
		OutcomePrices: []float64{0.01, 0.99},
		Liquidity:     25000,
		EndDate:       archNow.Add(24 * time.Hour),
	}
	tr := model.Trade{Wallet: "0xw", Outcome: "No", Price: 0.35, Size: 200, Timestamp: archNow.Add(-48 * time.Hour).Unix()}

	e := EntryFromTrade(tr, m, true)
	assert.Equal(t, "0xw", e.Wallet)
	assert.InDelta(t, 70, e.USD, 1e-9)
	assert.InDelta(t, 0.99, e.CurrentPrice, 1e-9)
	assert.True(t, e.Resolved)
	assert.True(t, e.Won)

	losing := EntryFromTrade(model.Trade{Wallet: "0xw", Outcome: "Yes", Price: 0.35, Size: 200}, m, true)
	assert.False(t, losing.Won)
}
