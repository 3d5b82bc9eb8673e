// Package testutil provides shared helpers for tests that need an export ledger.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/Veraticus/merchctl/internal/export"
	"github.com/Veraticus/merchctl/internal/storage"
)

// SetupTestLedger creates a migrated in-memory ledger that is closed when the test ends.
func SetupTestLedger(t *testing.T) *storage.SQLiteStorage {
	t.Helper()

	store, err := storage.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("failed to create test ledger: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return store
}

// RunSeed describes a ledger entry to create.
type RunSeed struct {
	Kind     string
	Filename string
	Failures []export.Failure
	Rows     int
	Age      time.Duration
}

// SeedRuns records runs in order, each created Age before now.
func SeedRuns(t *testing.T, store *storage.SQLiteStorage, seeds ...RunSeed) []*storage.Run {
	t.Helper()

	now := time.Now().UTC()
	runs := make([]*storage.Run, 0, len(seeds))
	for _, s := range seeds {
		run := storage.NewRun(s.Kind, "default", s.Filename, export.Result{
			Path: "/tmp/" + s.Filename,
			Rows: s.Rows,
		})
		run.Failures = s.Failures
		run.CreatedAt = now.Add(-s.Age)
		if err := store.RecordRun(context.Background(), run); err != nil {
			t.Fatalf("failed to seed run %q: %v", s.Filename, err)
		}
		runs = append(runs, run)
	}
	return runs
}
