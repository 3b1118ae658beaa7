package session

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/spigell/cv-screener/internal/screening"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "state.json"), zap.NewNop())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)

	if err := store.SaveFiles([]string{"A.pdf", "B.pdf"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.SaveJobTitle("backend-engineer.pdf"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.SaveResults([]*screening.Outcome{
		{Filename: "A.pdf", Feedback: &screening.Feedback{MatchPercentage: 82, Similarities: []string{"Go"}}},
		{Filename: "B.pdf", Error: "unreadable"},
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A fresh store over the same path simulates a restart.
	state := New(store.path, zap.NewNop()).Load()

	if len(state.FileNames) != 2 || state.FileNames[0] != "A.pdf" || state.FileNames[1] != "B.pdf" {
		t.Fatalf("unexpected file names: %v", state.FileNames)
	}
	if state.JobTitle != "backend-engineer.pdf" {
		t.Fatalf("unexpected job title: %q", state.JobTitle)
	}
	if len(state.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(state.Results))
	}
	if state.Results[0].Feedback == nil || state.Results[0].Feedback.MatchPercentage != 82 {
		t.Fatalf("unexpected first result: %+v", state.Results[0])
	}
	if state.Results[1].Error != "unreadable" {
		t.Fatalf("unexpected second result: %+v", state.Results[1])
	}
}

func TestSaveUpsertsSingleFacet(t *testing.T) {
	store := newTestStore(t)

	if err := store.SaveFiles([]string{"A.pdf"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.SaveJobTitle("jd.pdf"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Overwriting one facet must not touch the others.
	if err := store.SaveFiles([]string{"A.pdf", "C.pdf"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	state := store.Load()
	if state.JobTitle != "jd.pdf" {
		t.Fatalf("expected job title kept, got %q", state.JobTitle)
	}
	if len(state.FileNames) != 2 || state.FileNames[1] != "C.pdf" {
		t.Fatalf("unexpected file names: %v", state.FileNames)
	}
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	store := newTestStore(t)

	state := store.Load()
	if len(state.FileNames) != 0 || state.JobTitle != "" || len(state.Results) != 0 {
		t.Fatalf("expected empty defaults, got %+v", state)
	}
}

func TestLoadCorruptFileYieldsDefaults(t *testing.T) {
	store := newTestStore(t)

	if err := os.WriteFile(store.path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	state := store.Load()
	if len(state.FileNames) != 0 || state.JobTitle != "" || len(state.Results) != 0 {
		t.Fatalf("expected empty defaults for corrupt state, got %+v", state)
	}
}

func TestClearErasesAllFacets(t *testing.T) {
	store := newTestStore(t)

	if err := store.SaveFiles([]string{"A.pdf"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.SaveJobTitle("jd.pdf"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	state := store.Load()
	if len(state.FileNames) != 0 || state.JobTitle != "" || len(state.Results) != 0 {
		t.Fatalf("expected empty defaults after clear, got %+v", state)
	}

	// Clearing an already cleared session is a no-op.
	if err := store.Clear(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
