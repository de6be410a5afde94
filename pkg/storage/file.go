package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/absmach/flotilla/round"
)

const filePermissions = 0o644

// fileStore keeps the metrics history as a single JSON array on disk. The
// whole ordered history is rewritten on every append, so the file is always
// a complete, self-contained record of the run.
type fileStore struct {
	sync.Mutex

	path    string
	records []round.MetricsRecord
}

// NewFileStore opens (or creates) a JSON metrics history at path. An
// existing file is loaded so a restarted coordinator keeps appending to the
// same history.
func NewFileStore(path string) (MetricsStore, error) {
	s := &fileStore{path: path}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read metrics history: %w", err)
	}

	if err := json.Unmarshal(data, &s.records); err != nil {
		return nil, fmt.Errorf("failed to parse metrics history %q: %w", path, err)
	}

	return s, nil
}

func (s *fileStore) Append(_ context.Context, rec round.MetricsRecord) error {
	s.Lock()
	defer s.Unlock()

	s.records = append(s.records, rec)
	if err := s.flush(); err != nil {
		s.records = s.records[:len(s.records)-1]

		return err
	}

	return nil
}

func (s *fileStore) List(_ context.Context, offset, limit uint64) (round.MetricsPage, error) {
	s.Lock()
	defer s.Unlock()

	return pageRecords(s.records, offset, limit), nil
}

func (s *fileStore) flush() error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create metrics directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metrics history: %w", err)
	}

	if err := os.WriteFile(s.path, data, filePermissions); err != nil {
		return fmt.Errorf("failed to write metrics history: %w", err)
	}

	return nil
}
