package aggregate

import (
	"math/rand"
	"time"

	"github.com/absmach/flotilla/params"
	"github.com/absmach/flotilla/round"
)

// noise adds zero-mean gaussian noise to every aggregated element, for
// differential-privacy hardening. It runs after the wrapped method and
// before the result is installed; the momentum accumulator stays clean.
type noise struct {
	next  Aggregator
	sigma float64
	rng   *rand.Rand
}

// WithNoise wraps agg with gaussian noise of standard deviation sigma.
// Sigma <= 0 disables the wrapper. The returned aggregator is not safe for
// concurrent use; the coordinator aggregates inside its critical section.
func WithNoise(agg Aggregator, sigma float64) Aggregator {
	if sigma <= 0 {
		return agg
	}

	return &noise{
		next:  agg,
		sigma: sigma,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (n *noise) Aggregate(prev, momentum params.ParameterSet, updates []round.Update) (params.ParameterSet, params.ParameterSet, error) {
	next, newMomentum, err := n.next.Aggregate(prev, momentum, updates)
	if err != nil {
		return nil, nil, err
	}

	for i := range next {
		data := next[i].Data
		for j := range data {
			data[j] += float32(n.rng.NormFloat64() * n.sigma)
		}
	}

	return next, newMomentum, nil
}
