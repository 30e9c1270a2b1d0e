package persist

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestPostLogAppendsInOrder(t *testing.T) {
	s := newTestStore(t)
	now := time.Date(2025, 6, 17, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.AppendPost(PostRecord{Slug: "a", Score: 50, Timestamp: now}))
	require.NoError(t, s.AppendPost(PostRecord{Slug: "b", Score: 72, Timestamp: now.Add(time.Minute)}))

	posts, err := s.Posts()
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "a", posts[0].Slug)
	assert.Equal(t, "b", posts[1].Slug)
	assert.True(t, posts[1].Timestamp.Equal(now.Add(time.Minute)))
}

func TestReceiptsIdempotentBySlug(t *testing.T) {
	s := newTestStore(t)

	recorded, err := s.AppendReceipt(Receipt{Slug: "market-1", Won: true, PnL: 0.4})
	require.NoError(t, err)
	assert.True(t, recorded)

	// The same slug a second time is a silent no-op.
	recorded, err = s.AppendReceipt(Receipt{Slug: "market-1", Won: false, PnL: -1})
	require.NoError(t, err)
	assert.False(t, recorded)

	receipts, err := s.Receipts()
	require.NoError(t, err)
	require.Len(t, receipts, 1)
	assert.True(t, receipts[0].Won, "first write wins")
}

func TestUpsertCallReplacesBySlug(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.UpsertCall(ScorecardCall{Slug: "m1", PnL: 0.05}))
	require.NoError(t, s.UpsertCall(ScorecardCall{Slug: "m2", PnL: 0.10}))

	// Replaying m1 replaces it in place instead of appending.
	require.NoError(t, s.UpsertCall(ScorecardCall{Slug: "m1", PnL: 0.40, Resolved: true}))

	calls, err := s.Calls()
	require.NoError(t, err)
	require.Len(t, calls, 2)
	assert.Equal(t, "m1", calls[0].Slug)
	assert.InDelta(t, 0.40, calls[0].PnL, 1e-9)
	assert.True(t, calls[0].Resolved)
}

func TestMissingFilesReadAsEmpty(t *testing.T) {
	s := newTestStore(t)

	posts, err := s.Posts()
	require.NoError(t, err)
	assert.Empty(t, posts)

	calls, err := s.Calls()
	require.NoError(t, err)
	assert.Empty(t, calls)
}

func TestCorruptFileStartsFresh(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, PostLogFile), []byte("{not json"), 0o644))

	s, err := NewStore(dir)
	require.NoError(t, err)

	posts, err := s.Posts()
	require.NoError(t, err)
	assert.Empty(t, posts)

	// The damaged copy is preserved for inspection.
	_, statErr := os.Stat(filepath.Join(dir, PostLogFile+".corrupt"))
	assert.NoError(t, statErr)

	require.NoError(t, s.AppendPost(PostRecord{Slug: "fresh-start"}))
	posts, err = s.Posts()
	require.NoError(t, err)
	assert.Len(t, posts, 1)
}
