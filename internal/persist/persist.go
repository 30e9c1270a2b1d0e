// Package persist owns the append-only JSON state files: the signal post
// log, resolution receipts and scorecard data. One appender at a time;
// files are rewritten whole on each append so a crash never leaves a
// half-written array.
package persist

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// File names under the data directory.
const (
	PostLogFile    = "telegram-post-log.json"
	ReceiptsFile   = "resolution-receipts.json"
	ScorecardFile  = "scorecard-data.json"
)

// PostRecord is one signal post, the unit of the backtest log.
type PostRecord struct {
	Slug          string    `json:"slug"`
	Question      string    `json:"question"`
	Score         int       `json:"score"`
	YesPrice      float64   `json:"yesPrice"`
	FlowDirection string    `json:"flowDirection"`
	Timestamp     time.Time `json:"timestamp"`
}

// Receipt is a resolved-market record, keyed by slug. FinalPrice is the
// settled price of the posted side; DaysAhead is how far before
// resolution the call was made.
type Receipt struct {
	Slug       string    `json:"slug"`
	Question   string    `json:"question"`
	Outcome    string    `json:"outcome"`
	YesPrice   float64   `json:"yesPrice"`
	FinalPrice float64   `json:"finalPrice"`
	ScoreAtPost int      `json:"scoreAtPost"`
	Won        bool      `json:"won"`
	PnL        float64   `json:"pnl"`
	DaysAhead  float64   `json:"daysAhead"`
	ResolvedAt time.Time `json:"resolvedAt"`
}

// ScorecardCall is one tracked call in the scorecard array, updated in
// place on each replay: P&L-to-date always, the 24h and 48h checkpoint
// P&L the first replay past each mark, the outcome once resolved.
type ScorecardCall struct {
	Slug       string    `json:"slug"`
	Question   string    `json:"question"`
	Action     string    `json:"action"`
	EntryPrice float64   `json:"entryPrice"`
	ExitPrice  float64   `json:"exitPrice"`
	PnL        float64   `json:"pnl"`
	PnL24h     *float64  `json:"pnl24h,omitempty"`
	PnL48h     *float64  `json:"pnl48h,omitempty"`
	Won        bool      `json:"won"`
	Resolved   bool      `json:"resolved"`
	PostedAt   time.Time `json:"postedAt"`
	ResolvedAt time.Time `json:"resolvedAt,omitempty"`
}

// Store reads and appends the state files under one directory.
type Store struct {
	mu  sync.Mutex
	dir string
}

// NewStore creates the data directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// AppendPost appends to the signal post log.
func (s *Store) AppendPost(rec PostRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var posts []PostRecord
	if err := s.read(PostLogFile, &posts); err != nil {
		return err
	}
	posts = append(posts, rec)
	return s.write(PostLogFile, posts)
}

// Posts returns the full signal post log.
func (s *Store) Posts() ([]PostRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var posts []PostRecord
	err := s.read(PostLogFile, &posts)
	return posts, err
}

// AppendReceipt records a resolution once; a slug already present is
// skipped so replays are idempotent.
func (s *Store) AppendReceipt(rec Receipt) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var receipts []Receipt
	if err := s.read(ReceiptsFile, &receipts); err != nil {
		return false, err
	}
	for _, r := range receipts {
		if r.Slug == rec.Slug {
			log.Debug().Str("slug", rec.Slug).Msg("receipt already recorded")
			return false, nil
		}
	}
	receipts = append(receipts, rec)
	if err := s.write(ReceiptsFile, receipts); err != nil {
		return false, err
	}
	return true, nil
}

// Receipts returns all resolution receipts.
func (s *Store) Receipts() ([]Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var receipts []Receipt
	err := s.read(ReceiptsFile, &receipts)
	return receipts, err
}

// UpsertCall inserts or replaces the scorecard entry for the call's slug.
func (s *Store) UpsertCall(call ScorecardCall) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var calls []ScorecardCall
	if err := s.read(ScorecardFile, &calls); err != nil {
		return err
	}
	for i := range calls {
		if calls[i].Slug == call.Slug {
			calls[i] = call
			return s.write(ScorecardFile, calls)
		}
	}
	calls = append(calls, call)
	return s.write(ScorecardFile, calls)
}

// Calls returns the scorecard array.
func (s *Store) Calls() ([]ScorecardCall, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var calls []ScorecardCall
	err := s.read(ScorecardFile, &calls)
	return calls, err
}

// read unmarshals a state file into out; a missing file is an empty array.
func (s *Store) read(name string, out any) error {
	raw, err := os.ReadFile(filepath.Join(s.dir, name))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		// A corrupt state file should not brick the scanner; start over
		// and keep the damaged copy for inspection.
		log.Warn().Str("file", name).Err(err).Msg("state file corrupt, starting fresh")
		_ = os.Rename(filepath.Join(s.dir, name), filepath.Join(s.dir, name+".corrupt"))
		return nil
	}
	return nil
}

// write rewrites a state file atomically via a temp file.
func (s *Store) write(name string, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", name, err)
	}
	return nil
}
