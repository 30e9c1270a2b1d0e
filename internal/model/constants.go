package model

// Compatibility floor. These constants are wire-compatible with the
// historical scoring behavior and must not drift.
const (
	// Fresh wallet qualification.
	FreshWalletMaxAgeDays   = 7.0
	FreshWalletMinVolumeUSD = 50.0

	// Large position qualification.
	LargePositionUSD = 1000.0

	// Baseline fresh-wallet ratio; the capped baseline applies when the
	// venue returned a truncated trade sample.
	FreshBaselineRatio       = 0.30
	FreshBaselineRatioCapped = 0.60

	// Trade-sample truncation detection. The scan and pulse paths use
	// different caps; both are load-bearing and intentionally distinct.
	TradeCapScan  = 295
	TradeCapPulse = 195

	// Deep-scan volume floor.
	VolumeFloorWallets = 10
	VolumeFloorUSD     = 500.0

	// Minimum trades for a market to be deep-scored at all.
	MinTradesForScore = 3

	// Conviction weights; total weight is 11.
	WeightFlow      = 5.0
	WeightLargePos  = 3.0
	WeightFresh     = 2.0
	WeightVolLiq    = 1.0
	WeightTotal     = 11.0

	// Threat level bands.
	BandCritical = 70
	BandHigh     = 45
	BandModerate = 25

	// Velocity ring capacity: one snapshot per hour, one week deep.
	SnapshotCap = 168

	// Extreme longshot price floor.
	ExtremeLongshotPrice = 0.02

	// Favorite-longshot-bias empirical loss rate for sub-10c favorites.
	FLBLossRate = 0.60

	// Off-hours UTC window [start, end). Intended to approximate
	// 22:00-06:00 US-Eastern; the UTC window is kept simple on purpose
	// and does not track DST.
	OffHoursStartUTC = 3
	OffHoursEndUTC   = 11

	// Off-hours trades at or above this notional count toward the
	// large off-hours volume tally. The bar is deliberately low; the
	// 5000/1000 off-hours multiplier thresholds are calibrated against
	// a tally that includes almost every off-hours trade.
	OffHoursLargeTradeUSD = 5.0
)
