// Package export bundles the CVs passing the cutoff into a zip archive.
package export

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"

	"github.com/spigell/cv-screener/internal/screening"
)

var (
	// ErrNoResults means no analysis has run yet.
	ErrNoResults = errors.New("no analysis results to export")
	// ErrNothingPassing means the analysis ran but no CV clears the cutoff.
	ErrNothingPassing = errors.New("no CVs passing the cutoff")
)

// ArchiveName returns the download name with the cutoff embedded.
func ArchiveName(cutoff int) string {
	return fmt.Sprintf("cv-screener-passing-%d.zip", cutoff)
}

// Archive packs the raw content of every passing document under its
// original name and returns the archive bytes. Stale outcomes whose
// document was removed from the registry are skipped.
func Archive(registry *screening.Registry, entries []screening.RankedEntry) ([]byte, error) {
	if len(entries) == 0 {
		return nil, ErrNoResults
	}

	var docs []*screening.Document
	for _, name := range screening.PassingNames(entries) {
		if doc := registry.Get(name); doc != nil {
			docs = append(docs, doc)
		}
	}
	if len(docs) == 0 {
		return nil, ErrNothingPassing
	}

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, doc := range docs {
		file, err := w.Create(doc.Name)
		if err != nil {
			return nil, fmt.Errorf("adding %s to archive: %w", doc.Name, err)
		}
		if _, err := file.Write(doc.Content); err != nil {
			return nil, fmt.Errorf("writing %s to archive: %w", doc.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
