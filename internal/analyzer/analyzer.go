// Package analyzer coordinates the submission of CVs to an analysis
// backend in fixed-size batches.
package analyzer

import (
	"context"
	"errors"

	"github.com/spigell/cv-screener/internal/screening"
)

// ChunkSize is the number of CVs carried by one backend request.
const ChunkSize = 5

var (
	ErrSubmitInFlight   = errors.New("a submission is already in flight")
	ErrNoJobDescription = errors.New("job description is required")
	ErrNoDocuments      = errors.New("at least one CV is required")
)

// Backend performs one batch analysis request. Implementations return one
// outcome per analyzable CV; a per-CV failure is reported inside the
// outcome, a returned error means the whole request failed.
type Backend interface {
	Name() string
	AnalyzeBatch(ctx context.Context, job *screening.JobDescription, docs []*screening.Document, selected []string) ([]*screening.Outcome, error)
}
