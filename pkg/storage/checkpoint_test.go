package storage_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/absmach/flotilla/params"
	pkgerrors "github.com/absmach/flotilla/pkg/errors"
	"github.com/absmach/flotilla/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testParams() params.ParameterSet {
	w := params.NewTensor(2, 3)
	for i := range w.Data {
		w.Data[i] = float32(i) * 0.25
	}
	b := params.NewTensor(3)
	b.Data[1] = -1.5

	return params.ParameterSet{w, b}
}

func TestCheckpointRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoints", "state.cbor")
	store := storage.NewCheckpointStore(path)
	ctx := context.Background()

	assert.False(t, store.Exists())

	global := testParams()
	cp := storage.Checkpoint{
		Round:    4,
		Method:   "fedavgm",
		Global:   global,
		Momentum: params.Zeros(global),
		SavedAt:  time.Now().UTC(),
	}
	require.NoError(t, store.Save(ctx, cp))
	assert.True(t, store.Exists())

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, loaded.Round)
	assert.Equal(t, "fedavgm", loaded.Method)
	require.Len(t, loaded.Global, 2)
	assert.Equal(t, []int{2, 3}, loaded.Global[0].Shape)
	assert.InDelta(t, 0.25, loaded.Global[0].Data[1], 1e-6)
	assert.InDelta(t, -1.5, loaded.Global[1].Data[1], 1e-6)
}

func TestCheckpointOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.cbor")
	store := storage.NewCheckpointStore(path)
	ctx := context.Background()

	global := testParams()
	require.NoError(t, store.Save(ctx, storage.Checkpoint{Round: 1, Global: global}))
	require.NoError(t, store.Save(ctx, storage.Checkpoint{Round: 2, Global: global}))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Round)
}

func TestCheckpointLoadMissing(t *testing.T) {
	store := storage.NewCheckpointStore(filepath.Join(t.TempDir(), "absent.cbor"))

	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, pkgerrors.ErrNotFound)
}
