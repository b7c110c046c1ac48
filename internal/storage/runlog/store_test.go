package runlog

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/proofstream/proofstream/internal/stream"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestInsertAndRecent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	ttfb := 120 * time.Millisecond
	sess := &stream.Session{
		TTFB:             &ttfb,
		TTC:              900 * time.Millisecond,
		PromptTokens:     8,
		CompletionTokens: 15,
		StallCount:       1,
	}

	run := NewRun(uuid.New().String(), "ambient", "test-model", sess)
	if err := store.Insert(ctx, run); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	runs, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("len(runs) = %d, want 1", len(runs))
	}

	got := runs[0]
	if got.ID != run.ID {
		t.Errorf("ID = %q, want %q", got.ID, run.ID)
	}
	if got.Provider != "ambient" || got.Model != "test-model" {
		t.Errorf("identity = %s/%s", got.Provider, got.Model)
	}
	if got.TTFBMillis == nil || *got.TTFBMillis != 120 {
		t.Errorf("ttfb_ms = %v, want 120", got.TTFBMillis)
	}
	if got.PromptTokens != 8 || got.CompletionTokens != 15 {
		t.Errorf("tokens = (%d, %d)", got.PromptTokens, got.CompletionTokens)
	}
}

func TestRecentOrderAndLimit(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		run := NewRun(uuid.New().String(), "p", "m", &stream.Session{TTC: time.Second})
		// Distinct timestamps so ordering is deterministic.
		run.CreatedAt = time.Date(2026, 1, 1, 0, 0, i, 0, time.UTC).Format(time.RFC3339)
		run.ID = fmt.Sprintf("run-%d", i)
		if err := store.Insert(ctx, run); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	runs, err := store.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("len(runs) = %d, want 3", len(runs))
	}
	if runs[0].ID != "run-4" || runs[2].ID != "run-2" {
		t.Errorf("unexpected order: %s, %s, %s", runs[0].ID, runs[1].ID, runs[2].ID)
	}
}

func TestNewRunErrorSession(t *testing.T) {
	sess := &stream.Session{TTC: 40 * time.Millisecond, Error: "request failed"}
	run := NewRun("id", "p", "m", sess)

	if run.TTFBMillis != nil {
		t.Errorf("ttfb_ms = %v, want nil for frameless sessions", run.TTFBMillis)
	}
	if run.Error != "request failed" {
		t.Errorf("Error = %q", run.Error)
	}
}

func TestOpenIdempotentSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	for i := 0; i < 2; i++ {
		store, err := Open(path)
		if err != nil {
			t.Fatalf("Open #%d failed: %v", i+1, err)
		}
		store.Close()
	}
}
