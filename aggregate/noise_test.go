package aggregate_test

import (
	"math"
	"testing"

	"github.com/absmach/flotilla/aggregate"
	"github.com/absmach/flotilla/params"
	"github.com/absmach/flotilla/round"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithNoiseDisabled(t *testing.T) {
	base := aggregate.NewFedAvg()
	assert.Equal(t, base, aggregate.WithNoise(base, 0))
	assert.Equal(t, base, aggregate.WithNoise(base, -1))
}

func TestWithNoisePerturbation(t *testing.T) {
	const sigma = 0.01

	prev := params.ParameterSet{params.NewTensor(64)}
	p := params.ParameterSet{params.NewTensor(64)}
	for i := range p[0].Data {
		p[0].Data[i] = 1.0
	}
	updates := []round.Update{{
		ClientID:   "client-0",
		Params:     p,
		NumSamples: 10,
		Steps:      1,
	}}

	noisy := aggregate.WithNoise(aggregate.NewFedAvg(), sigma)
	next, _, err := noisy.Aggregate(prev, nil, updates)
	require.Nil(t, err)

	perturbed := 0
	for _, v := range next[0].Data {
		diff := math.Abs(float64(v) - 1.0)
		assert.Less(t, diff, sigma*8, "noise magnitude bounded")
		if diff > 0 {
			perturbed++
		}
	}
	assert.Greater(t, perturbed, 0, "noise applied to some elements")
}

func TestWithNoiseKeepsMomentumClean(t *testing.T) {
	updates := []round.Update{{
		ClientID:   "client-0",
		Params:     params.ParameterSet{params.NewTensor()},
		NumSamples: 10,
		Steps:      1,
	}}
	updates[0].Params[0].Data[0] = 1.0

	prev := params.ParameterSet{params.NewTensor()}
	noisy := aggregate.WithNoise(aggregate.NewFedAvgM(0.9, 1.0), 0.5)

	_, momentum, err := noisy.Aggregate(prev, params.Zeros(prev), updates)
	require.Nil(t, err)

	// gradient is exactly 1.0; momentum must not carry any noise.
	assert.Equal(t, float32(1.0), momentum[0].Data[0])
}

func TestWithNoiseErrorPassthrough(t *testing.T) {
	noisy := aggregate.WithNoise(aggregate.NewFedAvg(), 0.1)
	_, _, err := noisy.Aggregate(params.ParameterSet{params.NewTensor()}, nil, nil)
	assert.ErrorIs(t, err, aggregate.ErrNoUpdates)
}
