// Package session persists the screening session state across runs: the
// uploaded CV names, the job description display name and the latest
// analysis results. The whole state is erased when the user finishes the
// session.
package session

import (
	"encoding/json"
	"errors"
	"os"

	"go.uber.org/zap"

	"github.com/spigell/cv-screener/internal/screening"
)

// The three facets are stored as keyed string entries inside one file, so
// clearing the file erases them atomically.
const (
	filesKey   = "cv-files"
	jobKey     = "job-description-name"
	resultsKey = "analysis-results"
)

type fileEntry struct {
	Name string `json:"name"`
}

// State is the reconstructed session content. Missing facets come back as
// empty defaults.
type State struct {
	FileNames []string
	JobTitle  string
	Results   []*screening.Outcome
}

// Store reads and writes the session state file.
type Store struct {
	path   string
	logger *zap.Logger
}

func New(path string, logger *zap.Logger) *Store {
	return &Store{
		path:   path,
		logger: logger,
	}
}

// SaveFiles upserts the CV name projection.
func (s *Store) SaveFiles(names []string) error {
	entries := make([]fileEntry, 0, len(names))
	for _, name := range names {
		entries = append(entries, fileEntry{Name: name})
	}

	value, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return s.save(filesKey, string(value))
}

// SaveJobTitle upserts the job description display name.
func (s *Store) SaveJobTitle(title string) error {
	return s.save(jobKey, title)
}

// SaveResults upserts the result store snapshot.
func (s *Store) SaveResults(outcomes []*screening.Outcome) error {
	value, err := json.Marshal(outcomes)
	if err != nil {
		return err
	}
	return s.save(resultsKey, string(value))
}

// Load reconstructs the session state. A missing or unreadable state file
// never fails the startup; the affected facets fall back to empty defaults.
func (s *Store) Load() *State {
	state := &State{}

	entries, err := s.read()
	if err != nil {
		s.logger.Debug("no previous session state", zap.Error(err))
		return state
	}

	if raw, ok := entries[filesKey]; ok {
		var files []fileEntry
		if err := json.Unmarshal([]byte(raw), &files); err == nil {
			for _, entry := range files {
				state.FileNames = append(state.FileNames, entry.Name)
			}
		}
	}

	state.JobTitle = entries[jobKey]

	if raw, ok := entries[resultsKey]; ok {
		var outcomes []*screening.Outcome
		if err := json.Unmarshal([]byte(raw), &outcomes); err == nil {
			state.Results = outcomes
		}
	}

	return state
}

// Clear erases all facets at once by removing the state file.
func (s *Store) Clear() error {
	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *Store) save(key, value string) error {
	entries, err := s.read()
	if err != nil {
		entries = make(map[string]string)
	}

	entries[key] = value

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.path, data, 0o644)
}

func (s *Store) read() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}

	var entries map[string]string
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	if entries == nil {
		entries = make(map[string]string)
	}

	return entries, nil
}
