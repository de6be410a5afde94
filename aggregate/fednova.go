package aggregate

import (
	"github.com/absmach/flotilla/params"
	"github.com/absmach/flotilla/round"
)

// fedNova implements normalized averaging (Wang et al., 2020): client
// deltas are divided by their local step counts before the weighted sum, so
// clients running more optimization steps do not dominate the round.
type fedNova struct {
	eta float32
}

func NewFedNova(eta float64) Aggregator {
	return fedNova{eta: float32(eta)}
}

func (a fedNova) Aggregate(prev, momentum params.ParameterSet, updates []round.Update) (params.ParameterSet, params.ParameterSet, error) {
	total, err := validate(prev, updates)
	if err != nil {
		return nil, nil, err
	}

	next := params.Zeros(prev)
	for i := range prev {
		pd := prev[i].Data
		acc := make([]float32, len(pd))
		for _, u := range updates {
			steps := u.Steps
			if steps < 1 {
				steps = 1
			}
			inv := float32(1) / float32(steps)
			w := float32(float64(u.NumSamples) / total)
			src := u.Params[i].Data
			for j := range acc {
				acc[j] += (src[j] - pd[j]) * inv * w
			}
		}
		for j := range pd {
			next[i].Data[j] = pd[j] + a.eta*acc[j]
		}
	}

	return next, momentum, nil
}
