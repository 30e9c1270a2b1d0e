package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Engine-wide Prometheus collectors. Registered once at init via promauto;
// handlers expose them on /metrics.
var (
	FetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polysentry_fetch_total",
		Help: "Venue fetches by host and outcome (ok, error, parse_error)",
	}, []string{"host", "status"})

	FetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "polysentry_fetch_duration_seconds",
		Help:    "Venue fetch latency in seconds",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 8.0},
	}, []string{"host"})

	ScansTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polysentry_scans_total",
		Help: "Completed deep scans",
	})

	ScanDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "polysentry_scan_duration_seconds",
		Help:    "End-to-end scan duration in seconds",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
	})

	MarketsScored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polysentry_markets_scored_total",
		Help: "Markets that passed the volume floor and were deep-scored",
	})

	MarketsFiltered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polysentry_markets_filtered_total",
		Help: "Markets excluded from deep scoring by reason",
	}, []string{"reason"})

	ThreatLevelGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "polysentry_threat_level_markets",
		Help: "Markets at each threat level after the most recent scan",
	}, []string{"level"})
)
