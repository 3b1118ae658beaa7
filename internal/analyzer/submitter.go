package analyzer

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/cv-screener/internal/screening"
)

// Submitter chunks the CVs and issues one backend request per chunk,
// strictly in order with a single request in flight. Any chunk failure
// aborts the whole submission and discards outcomes from prior chunks.
type Submitter struct {
	backend Backend
	logger  *zap.Logger
	busy    atomic.Bool
}

func NewSubmitter(backend Backend, logger *zap.Logger) *Submitter {
	return &Submitter{
		backend: backend,
		logger:  logger,
	}
}

// Busy reports whether a submission is currently in flight.
func (s *Submitter) Busy() bool {
	return s.busy.Load()
}

// Submit analyzes all documents against the job description and returns the
// accumulated outcomes in response order. On success the returned list is
// meant to replace any prior result store content wholesale.
func (s *Submitter) Submit(ctx context.Context, job *screening.JobDescription, docs []*screening.Document, selection *screening.Selection) ([]*screening.Outcome, error) {
	if job == nil || len(job.Content) == 0 {
		return nil, ErrNoJobDescription
	}
	if len(docs) == 0 {
		return nil, ErrNoDocuments
	}

	if !s.busy.CompareAndSwap(false, true) {
		return nil, ErrSubmitInFlight
	}
	defer s.busy.Store(false)

	selected := selection.Identifiers()
	chunks := (len(docs) + ChunkSize - 1) / ChunkSize

	logger := s.logger.With(
		zap.String("submission_id", uuid.NewString()),
		zap.String("backend", s.backend.Name()),
	)

	logger.Info("starting submission",
		zap.String("job_description", job.DisplayName),
		zap.Int("documents", len(docs)),
		zap.Int("chunks", chunks),
		zap.Strings("selected_dimensions", selected),
	)

	var outcomes []*screening.Outcome
	for idx := 0; idx < chunks; idx++ {
		start := idx * ChunkSize
		end := start + ChunkSize
		if end > len(docs) {
			end = len(docs)
		}
		chunk := docs[start:end]

		logger.Debug("submitting chunk",
			zap.Int("chunk", idx+1),
			zap.Int("documents", len(chunk)),
		)

		got, err := s.backend.AnalyzeBatch(ctx, job, chunk, selected)
		if err != nil {
			// Outcomes accumulated so far are discarded with the error.
			return nil, fmt.Errorf("chunk %d/%d: %w", idx+1, chunks, err)
		}

		outcomes = append(outcomes, got...)
	}

	logger.Info("submission finished", zap.Int("outcomes", len(outcomes)))

	return outcomes, nil
}
