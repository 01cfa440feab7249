package auditlog

import (
	"path/filepath"
	"testing"
	"time"
)

func TestRecordAndRecent(t *testing.T) {
	l, err := Open(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer l.Close()

	base := time.Now()
	if err := l.Record(Entry{RelativePath: "a", Outcome: OutcomeSucceeded, Timestamp: base}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := l.Record(Entry{RelativePath: "b", Outcome: OutcomeRetried, Timestamp: base.Add(time.Second)}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := l.Record(Entry{RelativePath: "c", Outcome: OutcomePermanentFailed, Timestamp: base.Add(2 * time.Second)}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	entries, err := l.Recent(2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].RelativePath != "c" || entries[1].RelativePath != "b" {
		t.Errorf("got order %s, %s; want c, b", entries[0].RelativePath, entries[1].RelativePath)
	}
}

func TestRecordAssignsIDAndTimestamp(t *testing.T) {
	l, err := Open(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer l.Close()

	if err := l.Record(Entry{RelativePath: "x", Outcome: OutcomeSucceeded}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	entries, err := l.Recent(1)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].ID == "" {
		t.Error("expected ID to be auto-assigned")
	}
	if entries[0].Timestamp.IsZero() {
		t.Error("expected Timestamp to be auto-assigned")
	}
}
