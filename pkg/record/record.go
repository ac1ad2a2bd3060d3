package record

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/pebble"

	"callbridge/pkg/logger"
	"callbridge/pkg/models"
)

// Store is a pebble-backed journal of invocation outcomes. It is an audit
// trail for diagnostics, not a response cache: nothing is ever read back
// into the invocation path.
type Store struct {
	db  *pebble.DB
	seq uint64
}

// Entry is one journaled invocation.
type Entry struct {
	Operation  string `json:"operation"`
	Kind       string `json:"kind"`
	StatusCode int    `json:"status_code,omitempty"`
	Reason     string `json:"reason,omitempty"`
	DurationMS int64  `json:"duration_ms"`
	TS         int64  `json:"ts"`
}

// Open opens (or creates) the journal database at path.
func Open(path string) (*Store, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open record db at %s: %w", path, err)
	}
	logger.Info("record_db_opened", "path", path)
	return &Store{db: db}, nil
}

// Close closes the journal.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Append journals one terminal outcome for an operation.
// Key format: op:<operation>:<unix_nano_padded>-<seq>
func (s *Store) Append(opKey string, out *models.Outcome, d time.Duration) error {
	if s.db == nil {
		return fmt.Errorf("record store not opened")
	}
	e := Entry{
		Operation:  opKey,
		Kind:       out.Kind.String(),
		StatusCode: out.StatusCode,
		Reason:     string(out.Reason),
		DurationMS: d.Milliseconds(),
		TS:         time.Now().UTC().UnixNano(),
	}
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal record entry: %w", err)
	}
	n := atomic.AddUint64(&s.seq, 1)
	key := fmt.Sprintf("op:%s:%020d-%06d", opKey, e.TS, n)
	if err := s.db.Set([]byte(key), b, pebble.NoSync); err != nil {
		return fmt.Errorf("append record: %w", err)
	}
	return nil
}

// Recent returns up to limit newest entries for an operation, newest
// first.
func (s *Store) Recent(opKey string, limit int) ([]Entry, error) {
	if s.db == nil {
		return nil, fmt.Errorf("record store not opened")
	}
	if limit <= 0 {
		limit = 50
	}
	prefix := []byte("op:" + opKey + ":")
	upper := append(append([]byte(nil), prefix...), 0xff)
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: upper})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []Entry
	for ok := iter.Last(); ok && len(out) < limit; ok = iter.Prev() {
		var e Entry
		if err := json.Unmarshal(iter.Value(), &e); err != nil {
			continue
		}
		// Operation keys may themselves contain ':', so the prefix scan
		// alone is not an exact match.
		if e.Operation != opKey {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// Observer adapts the store to the invoker's observer hook. Journal
// failures are logged and dropped; they never affect the invocation.
func (s *Store) Observer() func(string, *models.Outcome, time.Duration) {
	return func(opKey string, out *models.Outcome, d time.Duration) {
		if err := s.Append(opKey, out, d); err != nil {
			logger.Warn("record_append_failed", "operation", opKey, "error", err)
		}
	}
}
