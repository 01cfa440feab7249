// Package auditlog is a durable, append-only record of every migration
// attempt, kept in its own bbolt database so the history survives metadata
// store corruption and never contends with the store's write lock.
package auditlog

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

var entriesBucket = []byte("migrations")

// Outcome is the recorded result of one migration attempt.
type Outcome string

const (
	OutcomeSucceeded       Outcome = "succeeded"
	OutcomeRetried         Outcome = "retried"
	OutcomePermanentFailed Outcome = "permanent_failed"
)

// Entry is one durable record in the ledger.
type Entry struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	RelativePath string    `json:"relative_path"`
	SourceTier   string    `json:"source_tier"`
	TargetTier   string    `json:"target_tier"`
	Retries      int       `json:"retries"`
	Outcome      Outcome   `json:"outcome"`
	Error        string    `json:"error,omitempty"`
}

// Ledger is a bbolt-backed append-only audit store.
type Ledger struct {
	db *bolt.DB
}

// Open opens (creating if absent) a bbolt database at path and ensures the
// entries bucket exists.
func Open(path string) (*Ledger, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open audit ledger: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(entriesBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create audit bucket: %w", err)
	}

	return &Ledger{db: db}, nil
}

// Record appends a new Entry, keyed by a random uuid. The keys carry no
// insertion order; Recent orders entries by Timestamp instead.
func (l *Ledger) Record(e Entry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}

	return l.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(entriesBucket)
		return b.Put([]byte(e.ID), data)
	})
}

// Recent returns up to limit entries, newest Timestamp first.
// bbolt iterates keys in lexicographic byte order; since IDs are random
// uuids this is not a true recency order, so Recent sorts by Timestamp
// after collecting candidates.
func (l *Ledger) Recent(limit int) ([]Entry, error) {
	var entries []Entry

	err := l.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(entriesBucket)
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return err
			}
			entries = append(entries, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Close releases the underlying database file.
func (l *Ledger) Close() error {
	return l.db.Close()
}
