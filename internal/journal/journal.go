// Package journal persists completed campaign run reports in BoltDB so past
// runs can be listed and inspected later.
package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	bucketRuns  = []byte("runs")
	bucketIndex = []byte("runs_by_time")
)

// Entry is one archived campaign run.
type Entry struct {
	RunID     string          `json:"run_id"`
	Campaign  string          `json:"campaign"`
	StartedAt time.Time       `json:"started_at"`
	Outcome   string          `json:"outcome"` // completed, completed_with_errors, no_clients
	Total     int             `json:"total"`
	Processed int             `json:"processed"`
	Approved  int             `json:"approved"`
	Rejected  int             `json:"rejected"`
	Errors    int             `json:"errors"`
	Report    json.RawMessage `json:"report"` // Full machine-readable report
}

// Store is the BoltDB-backed run journal.
type Store struct {
	db *bolt.DB
}

// NewStore opens the journal database.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{
		Timeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketRuns, bucketIndex} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Save archives one run.
func (s *Store) Save(entry *Entry) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("failed to marshal run entry: %w", err)
		}

		if err := tx.Bucket(bucketRuns).Put([]byte(entry.RunID), data); err != nil {
			return fmt.Errorf("failed to store run entry: %w", err)
		}

		indexKey := makeIndexKey(entry.StartedAt, entry.RunID)
		if err := tx.Bucket(bucketIndex).Put(indexKey, []byte(entry.RunID)); err != nil {
			return fmt.Errorf("failed to index run entry: %w", err)
		}
		return nil
	})
}

// Get returns one archived run by ID.
func (s *Store) Get(runID string) (*Entry, error) {
	var entry *Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketRuns).Get([]byte(runID))
		if data == nil {
			return fmt.Errorf("run %s not found", runID)
		}
		entry = &Entry{}
		return json.Unmarshal(data, entry)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// List returns archived runs, most recent first, up to limit (0 = all).
func (s *Store) List(limit int) ([]*Entry, error) {
	var entries []*Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		runs := tx.Bucket(bucketRuns)
		c := tx.Bucket(bucketIndex).Cursor()

		for k, id := c.Last(); k != nil; k, id = c.Prev() {
			data := runs.Get(id)
			if data == nil {
				continue
			}
			entry := &Entry{}
			if err := json.Unmarshal(data, entry); err != nil {
				return fmt.Errorf("failed to unmarshal run entry: %w", err)
			}
			entries = append(entries, entry)
			if limit > 0 && len(entries) >= limit {
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Close closes the journal database.
func (s *Store) Close() error {
	return s.db.Close()
}

// makeIndexKey builds a time-ordered key so the cursor walks runs
// chronologically.
func makeIndexKey(t time.Time, id string) []byte {
	return []byte(fmt.Sprintf("%020d_%s", t.UnixNano(), id))
}
