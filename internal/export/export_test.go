package export

import (
	"archive/zip"
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/spigell/cv-screener/internal/screening"
)

func rankedEntries(outcomes ...*screening.Outcome) []screening.RankedEntry {
	results := screening.NewResults()
	results.Replace(outcomes)
	return screening.Classify(results, 70)
}

func TestArchiveContainsPassingDocuments(t *testing.T) {
	registry := screening.NewRegistry()
	registry.Add(
		&screening.Document{Name: "A.pdf", Content: []byte("content a")},
		&screening.Document{Name: "B.pdf", Content: []byte("content b")},
		&screening.Document{Name: "C.pdf", Content: []byte("content c")},
	)

	entries := rankedEntries(
		&screening.Outcome{Filename: "A.pdf", Feedback: &screening.Feedback{MatchPercentage: 82}},
		&screening.Outcome{Filename: "B.pdf", Feedback: &screening.Feedback{MatchPercentage: 90}},
		&screening.Outcome{Filename: "C.pdf", Feedback: &screening.Feedback{MatchPercentage: 10}},
	)

	data, err := Archive(registry, entries)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("reading archive: %v", err)
	}

	if len(reader.File) != 2 {
		t.Fatalf("expected 2 files in archive, got %d", len(reader.File))
	}

	contents := make(map[string]string)
	for _, file := range reader.File {
		rc, err := file.Open()
		if err != nil {
			t.Fatalf("opening %s: %v", file.Name, err)
		}
		raw, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("reading %s: %v", file.Name, err)
		}
		contents[file.Name] = string(raw)
	}

	if contents["A.pdf"] != "content a" || contents["B.pdf"] != "content b" {
		t.Fatalf("unexpected archive contents: %v", contents)
	}
	if _, ok := contents["C.pdf"]; ok {
		t.Fatalf("did not expect failing CV in archive")
	}
}

func TestArchiveNoResults(t *testing.T) {
	registry := screening.NewRegistry()

	if _, err := Archive(registry, nil); !errors.Is(err, ErrNoResults) {
		t.Fatalf("expected ErrNoResults, got %v", err)
	}
}

func TestArchiveNothingPassing(t *testing.T) {
	registry := screening.NewRegistry()
	registry.Add(&screening.Document{Name: "A.pdf", Content: []byte("a")})

	entries := rankedEntries(
		&screening.Outcome{Filename: "A.pdf", Feedback: &screening.Feedback{MatchPercentage: 30}},
	)

	if _, err := Archive(registry, entries); !errors.Is(err, ErrNothingPassing) {
		t.Fatalf("expected ErrNothingPassing, got %v", err)
	}
}

func TestArchiveSkipsRemovedDocuments(t *testing.T) {
	registry := screening.NewRegistry()
	registry.Add(&screening.Document{Name: "kept.pdf", Content: []byte("kept")})

	// removed.pdf has a stale outcome but is gone from the registry.
	entries := rankedEntries(
		&screening.Outcome{Filename: "kept.pdf", Feedback: &screening.Feedback{MatchPercentage: 95}},
		&screening.Outcome{Filename: "removed.pdf", Feedback: &screening.Feedback{MatchPercentage: 99}},
	)

	data, err := Archive(registry, entries)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("reading archive: %v", err)
	}
	if len(reader.File) != 1 || reader.File[0].Name != "kept.pdf" {
		t.Fatalf("unexpected archive contents: %v", reader.File)
	}
}

func TestArchiveName(t *testing.T) {
	if got := ArchiveName(70); got != "cv-screener-passing-70.zip" {
		t.Fatalf("unexpected archive name: %q", got)
	}
}
