package pebblestore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/openendpoint/tieringd/internal/store"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "metadata"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rec := store.FileRecord{
		RelativePath:   "a/b/c.bin",
		Tier:           store.TierHot,
		LastAccessTime: 1000,
		AccessCount:    2,
		FileSize:       4096,
	}
	if err := s.Put(ctx, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok, err := s.Get(ctx, "a/b/c.bin")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("expected record to be found")
	}
	if got != rec {
		t.Errorf("got %+v, want %+v", got, rec)
	}
}

func TestGetMissing(t *testing.T) {
	s := openTestStore(t)
	_, ok, err := s.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Error("expected ok=false for missing key")
	}
}

func TestDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rec := store.FileRecord{RelativePath: "x", Tier: store.TierWarm}
	if err := s.Put(ctx, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Delete(ctx, "x"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	_, ok, err := s.Get(ctx, "x")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Error("expected record to be gone after Delete")
	}

	// Deleting an untracked key is not an error.
	if err := s.Delete(ctx, "never-existed"); err != nil {
		t.Errorf("Delete of untracked key returned error: %v", err)
	}
}

func TestScanAndScanTier(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	records := []store.FileRecord{
		{RelativePath: "hot1", Tier: store.TierHot},
		{RelativePath: "hot2", Tier: store.TierHot},
		{RelativePath: "warm1", Tier: store.TierWarm},
		{RelativePath: "cold1", Tier: store.TierCold},
	}
	for _, rec := range records {
		if err := s.Put(ctx, rec); err != nil {
			t.Fatalf("Put(%s): %v", rec.RelativePath, err)
		}
	}

	var all []string
	if err := s.Scan(ctx, func(rec store.FileRecord) error {
		all = append(all, rec.RelativePath)
		return nil
	}); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(all) != len(records) {
		t.Fatalf("Scan returned %d records, want %d", len(all), len(records))
	}

	var hot []string
	if err := s.ScanTier(ctx, store.TierHot, func(rec store.FileRecord) error {
		hot = append(hot, rec.RelativePath)
		return nil
	}); err != nil {
		t.Fatalf("ScanTier: %v", err)
	}
	if len(hot) != 2 {
		t.Errorf("ScanTier(hot) returned %d records, want 2", len(hot))
	}
}

func TestScanStopsOnError(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, p := range []string{"a", "b", "c"} {
		if err := s.Put(ctx, store.FileRecord{RelativePath: p}); err != nil {
			t.Fatalf("Put(%s): %v", p, err)
		}
	}

	sentinel := errStop
	count := 0
	err := s.Scan(ctx, func(store.FileRecord) error {
		count++
		if count == 2 {
			return sentinel
		}
		return nil
	})
	if err != sentinel {
		t.Fatalf("Scan error = %v, want sentinel", err)
	}
	if count != 2 {
		t.Errorf("Scan visited %d records before stopping, want 2", count)
	}
}

func TestFlushAndKeyPrefix(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, store.FileRecord{RelativePath: "k"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	if got := relPathFromKey(recordKey("a/b")); got != "a/b" {
		t.Errorf("relPathFromKey roundtrip = %q, want %q", got, "a/b")
	}
}

type stopError struct{}

func (stopError) Error() string { return "stop" }

var errStop error = stopError{}
