// Package velocity keeps a per-market ring of hourly snapshots and scores
// how fast a market is changing: volume spikes, fresh-wallet velocity and
// flow-direction shifts.
package velocity

import (
	"math"
	"sync"
	"time"

	"github.com/polysentry/polysentry/internal/model"
)

// Snapshot is one hourly observation of a market.
type Snapshot struct {
	TS               time.Time `json:"ts"`
	Volume24h        float64   `json:"volume_24h"`
	TotalWallets     int       `json:"total_wallets"`
	FreshWallets     int       `json:"fresh_wallets"`
	FlowDirection    string    `json:"flow_direction_v2"`
	MinoritySideFlow float64   `json:"minority_side_flow"`
	MajoritySideFlow float64   `json:"majority_side_flow"`
	ThreatScore      int       `json:"threat_score"`
}

// Score is the velocity assessment for one scan.
type Score struct {
	VolumeSpike      int     `json:"volume_spike"`
	VolumeSpikeRatio float64 `json:"volume_spike_ratio,omitempty"`
	WalletVelocity   int     `json:"wallet_velocity"`
	FlowShift        int     `json:"flow_shift"`
	FlowShiftFrom    string  `json:"flow_shift_from,omitempty"`
	Composite        int     `json:"composite"`
	SnapshotCount    int     `json:"snapshot_count"`
}

// Store holds the process-wide snapshot rings. Rings hold at most 168
// entries (a week of hours); at most one snapshot lands per hour per
// market and the oldest entry is evicted past capacity.
type Store struct {
	mu    sync.Mutex
	rings map[string][]Snapshot
}

// NewStore creates an empty velocity store.
func NewStore() *Store {
	return &Store{rings: make(map[string][]Snapshot)}
}

// Record appends a snapshot unless one already exists for the same hour;
// recording twice within an hour is a no-op on the ring.
func (s *Store) Record(marketID string, snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ring := s.rings[marketID]
	if n := len(ring); n > 0 {
		if snap.TS.Sub(ring[n-1].TS) < time.Hour {
			return
		}
	}
	ring = append(ring, snap)
	if len(ring) > model.SnapshotCap {
		ring = ring[len(ring)-model.SnapshotCap:]
	}
	s.rings[marketID] = ring
}

// Snapshots returns a copy of the ring for a market.
func (s *Store) Snapshots(marketID string) []Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	ring := s.rings[marketID]
	out := make([]Snapshot, len(ring))
	copy(out, ring)
	return out
}

// Markets returns how many markets have rings.
func (s *Store) Markets() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rings)
}

// Assess scores the current observation against the ring. The snapshot is
// NOT recorded here; the caller records after scoring so the comparison
// baseline never includes the current hour.
func (s *Store) Assess(marketID string, cur Snapshot) Score {
	history := s.Snapshots(marketID)
	out := Score{SnapshotCount: len(history)}

	out.VolumeSpike, out.VolumeSpikeRatio = volumeSpike(history, cur)
	out.WalletVelocity = walletVelocity(history, cur)
	out.FlowShift, out.FlowShiftFrom = flowShift(history, cur)

	sum := out.VolumeSpike + out.WalletVelocity + out.FlowShift
	if sum > 100 {
		sum = 100
	}
	out.Composite = sum
	return out
}

// volumeSpike compares current 24h volume to the average of snapshots
// older than six hours, bucketing the ratio.
func volumeSpike(history []Snapshot, cur Snapshot) (int, float64) {
	cutoff := cur.TS.Add(-6 * time.Hour)
	var sum float64
	var n int
	for _, snap := range history {
		if snap.TS.Before(cutoff) && snap.Volume24h > 0 {
			sum += snap.Volume24h
			n++
		}
	}
	if n == 0 || sum == 0 {
		return 0, 0
	}
	ratio := cur.Volume24h / (sum / float64(n))
	switch {
	case ratio >= 10:
		return 40, round1(ratio)
	case ratio >= 5:
		return 30, round1(ratio)
	case ratio >= 3:
		return 20, round1(ratio)
	case ratio >= 2:
		return 10, round1(ratio)
	case ratio >= 1.5:
		return 5, round1(ratio)
	}
	return 0, round1(ratio)
}

// walletVelocity compares the current fresh-per-hour rate to the ring
// baseline.
func walletVelocity(history []Snapshot, cur Snapshot) int {
	var sum float64
	var n int
	for _, snap := range history {
		sum += float64(snap.FreshWallets) / 24
		n++
	}
	if n == 0 || sum == 0 {
		return 0
	}
	baseline := sum / float64(n)
	rate := float64(cur.FreshWallets) / 24
	if baseline <= 0 {
		return 0
	}
	ratio := rate / baseline
	switch {
	case ratio >= 10:
		return 30
	case ratio >= 5:
		return 20
	case ratio >= 3:
		return 10
	case ratio >= 2:
		return 5
	}
	return 0
}

// flowShiftScores maps (previous -> current) flow-direction transitions.
// Rotation toward the minority side scores highest.
var flowShiftScores = map[[2]string]int{
	{model.FlowMajorityAligned, model.FlowMinorityHeavy}: 30,
	{model.FlowNeutral, model.FlowMinorityHeavy}:         20,
	{model.FlowMixed, model.FlowMinorityHeavy}:           15,
	{model.FlowMajorityAligned, model.FlowMixed}:         10,
	{model.FlowNeutral, model.FlowMixed}:                 5,
	{model.FlowMinorityHeavy, model.FlowMajorityAligned}: 5,
}

// flowShift compares the current direction to the most recent snapshot
// younger than 24h.
func flowShift(history []Snapshot, cur Snapshot) (int, string) {
	cutoff := cur.TS.Add(-24 * time.Hour)
	for i := len(history) - 1; i >= 0; i-- {
		snap := history[i]
		if snap.TS.Before(cutoff) {
			break
		}
		if snap.FlowDirection == "" || snap.FlowDirection == cur.FlowDirection {
			return 0, ""
		}
		return flowShiftScores[[2]string{snap.FlowDirection, cur.FlowDirection}], snap.FlowDirection
	}
	return 0, ""
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
