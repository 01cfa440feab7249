// Package pebblestore is the cockroachdb/pebble-backed implementation of
// store.Store: a single key-prefixed keyspace, gob-encoded values, and
// pebble.Sync writes for the Store's explicit-flush contract.
package pebblestore

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"strings"
	"sync"

	"github.com/cockroachdb/pebble"

	"github.com/openendpoint/tieringd/internal/store"
)

const recordPrefix = "rec:"

// Store is a Pebble-backed store.Store. All mutating operations take one
// global write lock, which is plenty at this store's write rate.
type Store struct {
	db *pebble.DB
	mu sync.RWMutex
}

// Open opens (creating if absent) a Pebble database rooted at path.
func Open(path string) (*Store, error) {
	opts := &pebble.Options{
		Cache:           pebble.NewCache(64 << 20),
		MaxOpenFiles:    1000,
		BytesPerSync:    512 << 10,
		WALBytesPerSync: 512 << 10,
		MemTableSize:    8 << 20,
	}

	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("open pebble metadata store: %w", err)
	}

	return &Store{db: db}, nil
}

func recordKey(relPath string) []byte {
	return []byte(recordPrefix + relPath)
}

func (s *Store) Get(_ context.Context, relPath string) (store.FileRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, closer, err := s.db.Get(recordKey(relPath))
	if err == pebble.ErrNotFound {
		return store.FileRecord{}, false, nil
	}
	if err != nil {
		return store.FileRecord{}, false, err
	}
	defer closer.Close()

	var rec store.FileRecord
	if err := decode(data, &rec); err != nil {
		return store.FileRecord{}, false, err
	}
	return rec, true, nil
}

func (s *Store) Put(_ context.Context, rec store.FileRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := encode(rec)
	if err != nil {
		return err
	}
	return s.db.Set(recordKey(rec.RelativePath), data, pebble.Sync)
}

func (s *Store) Delete(_ context.Context, relPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Delete(recordKey(relPath), pebble.Sync)
}

func (s *Store) Scan(_ context.Context, fn func(store.FileRecord) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(recordPrefix),
		UpperBound: []byte("rec;"), // ';' follows ':' in ASCII, closes the prefix range
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		var rec store.FileRecord
		if err := decode(iter.Value(), &rec); err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return iter.Error()
}

func (s *Store) ScanTier(ctx context.Context, tier store.Tier, fn func(store.FileRecord) error) error {
	return s.Scan(ctx, func(rec store.FileRecord) error {
		if rec.Tier != tier {
			return nil
		}
		return fn(rec)
	})
}

func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Flush()
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

func encode(v store.FileRecord) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := gob.NewEncoder(buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decode(data []byte, v *store.FileRecord) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

// relPathFromKey strips the record prefix from a raw Pebble key. The
// package's tests use it to check the on-disk key shape.
func relPathFromKey(key []byte) string {
	return strings.TrimPrefix(string(key), recordPrefix)
}
