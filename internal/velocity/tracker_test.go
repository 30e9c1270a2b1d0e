package velocity

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polysentry/polysentry/internal/model"
)

var velNow = time.Date(2025, 6, 17, 12, 0, 0, 0, time.UTC)

func TestVolumeSpikeBuckets(t *testing.T) {
	s := NewStore()
	// One baseline snapshot 7h back: $10K of 24h volume.
	s.Record("m1", Snapshot{TS: velNow.Add(-7 * time.Hour), Volume24h: 10000})

	cur := Snapshot{TS: velNow, Volume24h: 120000}
	sc := s.Assess("m1", cur)

	// 120K against a 10K baseline is a 12x spike, top bucket.
	assert.InDelta(t, 12.0, sc.VolumeSpikeRatio, 0.01)
	assert.Equal(t, 40, sc.VolumeSpike)
	assert.GreaterOrEqual(t, sc.Composite, 40)
}

func TestVolumeSpikeIgnoresRecentSnapshots(t *testing.T) {
	s := NewStore()
	// Only snapshots older than 6h form the baseline; this one is too new.
	s.Record("m1", Snapshot{TS: velNow.Add(-2 * time.Hour), Volume24h: 10000})

	sc := s.Assess("m1", Snapshot{TS: velNow, Volume24h: 120000})
	assert.Equal(t, 0, sc.VolumeSpike)
}

func TestRecordSameHourNoOp(t *testing.T) {
	s := NewStore()
	s.Record("m1", Snapshot{TS: velNow, Volume24h: 100})
	s.Record("m1", Snapshot{TS: velNow.Add(10 * time.Minute), Volume24h: 200})

	snaps := s.Snapshots("m1")
	require.Len(t, snaps, 1)
	assert.InDelta(t, 100, snaps[0].Volume24h, 0.01)

	// An hour later the next snapshot lands.
	s.Record("m1", Snapshot{TS: velNow.Add(time.Hour), Volume24h: 200})
	assert.Len(t, s.Snapshots("m1"), 2)
}

func TestRingEvictsOldestAtCapacity(t *testing.T) {
	s := NewStore()
	start := velNow.Add(-time.Duration(model.SnapshotCap+10) * time.Hour)
	for i := 0; i < model.SnapshotCap; i++ {
		s.Record("m1", Snapshot{TS: start.Add(time.Duration(i) * time.Hour), Volume24h: float64(i)})
	}
	require.Len(t, s.Snapshots("m1"), model.SnapshotCap)

	s.Record("m1", Snapshot{TS: start.Add(time.Duration(model.SnapshotCap) * time.Hour), Volume24h: 999})
	snaps := s.Snapshots("m1")
	require.Len(t, snaps, model.SnapshotCap)
	// Index 0 (volume 0) is gone; the ring now starts at the second entry.
	assert.InDelta(t, 1, snaps[0].Volume24h, 0.01)
	assert.InDelta(t, 999, snaps[len(snaps)-1].Volume24h, 0.01)
}

func TestFlowShiftScoring(t *testing.T) {
	cases := []struct {
		prev string
		cur  string
		want int
	}{
		{model.FlowMajorityAligned, model.FlowMinorityHeavy, 30},
		{model.FlowNeutral, model.FlowMinorityHeavy, 20},
		{model.FlowMixed, model.FlowMinorityHeavy, 15},
		{model.FlowMajorityAligned, model.FlowMixed, 10},
		{model.FlowMinorityHeavy, model.FlowMinorityHeavy, 0},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%s to %s", tc.prev, tc.cur), func(t *testing.T) {
			s := NewStore()
			s.Record("m1", Snapshot{TS: velNow.Add(-2 * time.Hour), FlowDirection: tc.prev})
			sc := s.Assess("m1", Snapshot{TS: velNow, FlowDirection: tc.cur})
			assert.Equal(t, tc.want, sc.FlowShift)
		})
	}
}

func TestFlowShiftIgnoresStaleSnapshots(t *testing.T) {
	s := NewStore()
	s.Record("m1", Snapshot{TS: velNow.Add(-30 * time.Hour), FlowDirection: model.FlowMajorityAligned})
	sc := s.Assess("m1", Snapshot{TS: velNow, FlowDirection: model.FlowMinorityHeavy})
	assert.Equal(t, 0, sc.FlowShift)
}

func TestCompositeClampedAt100(t *testing.T) {
	s := NewStore()
	s.Record("m1", Snapshot{
		TS:            velNow.Add(-8 * time.Hour),
		Volume24h:     100,
		FreshWallets:  1,
		FlowDirection: model.FlowMajorityAligned,
	})
	sc := s.Assess("m1", Snapshot{
		TS:            velNow,
		Volume24h:     1e7, // massive spike
		FreshWallets:  500,
		FlowDirection: model.FlowMinorityHeavy,
	})
	assert.Equal(t, 100, sc.Composite)
	assert.LessOrEqual(t, sc.Composite, 100)
}
