// Package history persists summaries of orchestration runs in a bbolt database.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/ducnote/ducnote/internal/core"
)

const runsBucketName = "runs"

var (
	ErrStoreClosed = errors.New("history store is closed")
	ErrNotFound    = errors.New("run not found")
)

// Record is the persisted form of one installation record.
type Record struct {
	Locator    string       `json:"locator"`
	Category   string       `json:"category"`
	Kind       string       `json:"kind"`
	Outcome    core.Outcome `json:"outcome"`
	Error      string       `json:"error,omitempty"`
	Bytes      int64        `json:"bytes"`
	DurationMS int64        `json:"durationMs"`
}

// Entry is the persisted summary of one run.
type Entry struct {
	ID          string          `json:"id"`
	Outcome     core.RunOutcome `json:"outcome"`
	Destination string          `json:"destination"`
	PublicURL   string          `json:"publicUrl,omitempty"`
	Error       string          `json:"error,omitempty"`
	StartedAt   time.Time       `json:"startedAt"`
	FinishedAt  time.Time       `json:"finishedAt"`
	Records     []Record        `json:"records"`
	Warnings    []string        `json:"warnings,omitempty"`
}

// Count returns the number of records with the given outcome.
func (e Entry) Count(o core.Outcome) int {
	n := 0
	for _, r := range e.Records {
		if r.Outcome == o {
			n++
		}
	}
	return n
}

// Duration returns how long the run took.
func (e Entry) Duration() time.Duration {
	return e.FinishedAt.Sub(e.StartedAt)
}

// Store is a run history database. Run IDs are time-ordered, so key order
// is chronological.
type Store struct {
	mu     sync.RWMutex
	db     *bolt.DB
	path   string
	closed bool
}

// OpenStore opens or creates the history database at path.
func OpenStore(path string) (*Store, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, fmt.Errorf("history path is required")
	}
	if err := os.MkdirAll(filepath.Dir(trimmed), 0o755); err != nil {
		return nil, fmt.Errorf("ensure history dir: %w", err)
	}
	options := &bolt.Options{Timeout: time.Second}
	db, err := bolt.Open(trimmed, 0o600, options)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(runsBucketName))
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create history bucket: %w", err)
	}
	return &Store{db: db, path: trimmed}, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// Record stores a run result. It satisfies core.RunRecorder.
func (s *Store) Record(res *core.RunResult) error {
	if res == nil || res.ID == "" {
		return fmt.Errorf("run id is required")
	}
	entry := EntryFromResult(res)
	value, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode run %s: %w", entry.ID, err)
	}
	return s.update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(runsBucketName)).Put([]byte(entry.ID), value)
	})
}

// List returns up to limit entries, newest first. A limit of 0 returns all.
func (s *Store) List(limit int) ([]Entry, error) {
	var entries []Entry
	err := s.view(func(tx *bolt.Tx) error {
		c := tx.Bucket([]byte(runsBucketName)).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("decode run %s: %w", k, err)
			}
			entries = append(entries, e)
			if limit > 0 && len(entries) >= limit {
				break
			}
		}
		return nil
	})
	return entries, err
}

// Get returns one entry by run ID.
func (s *Store) Get(id string) (Entry, error) {
	var e Entry
	err := s.view(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(runsBucketName)).Get([]byte(id))
		if v == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return json.Unmarshal(v, &e)
	})
	return e, err
}

// Prune keeps the newest keep entries and deletes the rest. It returns the
// number of deleted entries.
func (s *Store) Prune(keep int) (int, error) {
	deleted := 0
	err := s.update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(runsBucketName))
		var stale [][]byte
		c := b.Cursor()
		seen := 0
		for k, _ := c.Last(); k != nil; k, _ = c.Prev() {
			seen++
			if seen > keep {
				stale = append(stale, append([]byte(nil), k...))
			}
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return fmt.Errorf("delete run %s: %w", k, err)
			}
			deleted++
		}
		return nil
	})
	return deleted, err
}

// EntryFromResult converts a run result into its persisted form.
func EntryFromResult(res *core.RunResult) Entry {
	e := Entry{
		ID:          res.ID,
		Outcome:     res.Outcome,
		Destination: res.Destination,
		PublicURL:   res.PublicURL,
		StartedAt:   res.StartedAt,
		FinishedAt:  res.FinishedAt,
		Warnings:    append([]string(nil), res.Warnings...),
		Records:     make([]Record, 0, len(res.Records)),
	}
	if res.Err != nil {
		e.Error = res.Err.Error()
	}
	for _, r := range res.Records {
		rec := Record{
			Locator:    r.Locator,
			Category:   r.Category,
			Kind:       r.Kind.String(),
			Outcome:    r.Outcome,
			Bytes:      r.Bytes,
			DurationMS: r.Duration.Milliseconds(),
		}
		if r.Err != nil {
			rec.Error = r.Err.Error()
		}
		e.Records = append(e.Records, rec)
	}
	return e
}

func (s *Store) view(fn func(*bolt.Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return s.db.View(fn)
}

func (s *Store) update(fn func(*bolt.Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return s.db.Update(fn)
}

var _ core.RunRecorder = (*Store)(nil)
