package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/absmach/flotilla/params"
	"github.com/absmach/flotilla/pkg/errors"
	"github.com/fxamacker/cbor/v2"
)

// Checkpoint is the coordinator state that survives a restart: the round
// counter, the global parameters and the momentum accumulator.
type Checkpoint struct {
	Round    int                 `json:"round"`
	Method   string              `json:"method"`
	Global   params.ParameterSet `json:"global"`
	Momentum params.ParameterSet `json:"momentum"`
	SavedAt  time.Time           `json:"saved_at"`
}

// CheckpointStore persists coordinator snapshots between rounds.
type CheckpointStore interface {
	Save(ctx context.Context, cp Checkpoint) error
	Load(ctx context.Context) (Checkpoint, error)
	Exists() bool
}

// checkpointStore writes CBOR-encoded snapshots to a single file. Writes go
// through a temp file and rename so a crash mid-write never corrupts the
// previous checkpoint.
type checkpointStore struct {
	mu   sync.RWMutex
	path string
}

func NewCheckpointStore(path string) CheckpointStore {
	return &checkpointStore{path: path}
}

func (s *checkpointStore) Save(_ context.Context, cp Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create checkpoint directory: %w", err)
		}
	}

	data, err := cbor.Marshal(cp)
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, filePermissions); err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to install checkpoint: %w", err)
	}

	return nil
}

func (s *checkpointStore) Load(_ context.Context) (Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Checkpoint{}, errors.ErrNotFound
		}

		return Checkpoint{}, fmt.Errorf("failed to read checkpoint: %w", err)
	}

	var cp Checkpoint
	if err := cbor.Unmarshal(data, &cp); err != nil {
		return Checkpoint{}, fmt.Errorf("failed to decode checkpoint %q: %w", s.path, err)
	}

	return cp, nil
}

func (s *checkpointStore) Exists() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, err := os.Stat(s.path)

	return err == nil
}
