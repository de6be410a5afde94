package trainer_test

import (
	"context"
	"testing"

	"github.com/absmach/flotilla/params"
	"github.com/absmach/flotilla/round"
	"github.com/absmach/flotilla/trainer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func modelConfig() round.ModelConfig {
	return round.ModelConfig{
		InputShape:   []int{2},
		NumClasses:   2,
		LearningRate: 0.5,
	}
}

// separable builds a linearly separable two-class dataset: class is decided
// by the sign of the first feature.
func separable(n int) ([][]float32, []int) {
	x := make([][]float32, 0, n)
	y := make([]int, 0, n)
	for i := 0; i < n; i++ {
		v := float32(i%10)/10 + 0.1
		if i%2 == 0 {
			x = append(x, []float32{v, 0})
			y = append(y, 0)
		} else {
			x = append(x, []float32{-v, 0})
			y = append(y, 1)
		}
	}

	return x, y
}

func TestInitShapes(t *testing.T) {
	cfg := round.DefaultModelConfig()
	p := trainer.Init(cfg, 42)

	require.Len(t, p, 2)
	assert.Equal(t, []int{8, 4}, p[0].Shape)
	assert.Equal(t, []int{4}, p[1].Shape)

	var nonZero bool
	for _, v := range p[0].Data {
		if v != 0 {
			nonZero = true
		}
	}
	assert.True(t, nonZero, "Glorot init should not be all zeros")
	for _, v := range p[1].Data {
		assert.Zero(t, v)
	}
}

func TestInitDeterministic(t *testing.T) {
	cfg := round.DefaultModelConfig()
	assert.Equal(t, trainer.Init(cfg, 7), trainer.Init(cfg, 7))
}

func TestTrainImprovesAccuracy(t *testing.T) {
	x, y := separable(100)
	tr := trainer.New(x, y, 20, 10, 1)
	require.NoError(t, tr.Configure(modelConfig()))

	initial := trainer.Init(modelConfig(), 1)

	trained, n, steps, err := tr.Train(context.Background(), initial)
	require.NoError(t, err)
	assert.Equal(t, 100, n)
	// 10 batches per epoch, 20 epochs.
	assert.Equal(t, 200, steps)

	after, loss, err := tr.Evaluate(context.Background(), trained)
	require.NoError(t, err)
	assert.Greater(t, after, 0.9)
	assert.Less(t, loss, 0.7)
}

func TestTrainDoesNotMutateInput(t *testing.T) {
	x, y := separable(20)
	tr := trainer.New(x, y, 1, 5, 1)
	require.NoError(t, tr.Configure(modelConfig()))

	initial := trainer.Init(modelConfig(), 1)
	snapshot := initial.Clone()

	_, _, _, err := tr.Train(context.Background(), initial)
	require.NoError(t, err)
	assert.Equal(t, snapshot, initial)
}

func TestTrainErrors(t *testing.T) {
	x, y := separable(10)

	cases := []struct {
		desc    string
		trainer *trainer.Softmax
		setup   func(tr *trainer.Softmax) error
		params  params.ParameterSet
		err     error
	}{
		{
			desc:    "not configured",
			trainer: trainer.New(x, y, 1, 5, 1),
			params:  trainer.Init(modelConfig(), 1),
			err:     trainer.ErrNotConfigured,
		},
		{
			desc:    "no data",
			trainer: trainer.New(nil, nil, 1, 5, 1),
			setup: func(tr *trainer.Softmax) error {
				return tr.Configure(modelConfig())
			},
			params: trainer.Init(modelConfig(), 1),
			err:    trainer.ErrNoData,
		},
		{
			desc:    "shape mismatch",
			trainer: trainer.New(x, y, 1, 5, 1),
			setup: func(tr *trainer.Softmax) error {
				return tr.Configure(modelConfig())
			},
			params: trainer.Init(round.DefaultModelConfig(), 1),
			err:    params.ErrShapeMismatch,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			if tc.setup != nil {
				require.NoError(t, tc.setup(tc.trainer))
			}
			_, _, _, err := tc.trainer.Train(context.Background(), tc.params)
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestConfigureDimensionMismatch(t *testing.T) {
	x, y := separable(10)
	tr := trainer.New(x, y, 1, 5, 1)

	err := tr.Configure(round.DefaultModelConfig())
	assert.ErrorIs(t, err, trainer.ErrDimensionMismatch)
}

func TestConfigureLabelOutOfRange(t *testing.T) {
	x, y := separable(10)
	y[3] = modelConfig().NumClasses

	tr := trainer.New(x, y, 1, 5, 1)

	err := tr.Configure(modelConfig())
	assert.ErrorIs(t, err, trainer.ErrLabelOutOfRange)
}
