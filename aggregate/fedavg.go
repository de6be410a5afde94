package aggregate

import (
	"github.com/absmach/flotilla/params"
	"github.com/absmach/flotilla/round"
)

// fedAvg implements federated averaging (McMahan et al., 2017): the
// sample-count-weighted mean of the client parameters.
type fedAvg struct{}

func NewFedAvg() Aggregator {
	return fedAvg{}
}

func (fedAvg) Aggregate(prev, momentum params.ParameterSet, updates []round.Update) (params.ParameterSet, params.ParameterSet, error) {
	next, err := weightedMean(prev, updates)
	if err != nil {
		return nil, nil, err
	}

	return next, momentum, nil
}

// weightedMean is shared with the momentum method, which averages first and
// applies server momentum on top.
func weightedMean(prev params.ParameterSet, updates []round.Update) (params.ParameterSet, error) {
	total, err := validate(prev, updates)
	if err != nil {
		return nil, err
	}

	out := params.Zeros(prev)
	for _, u := range updates {
		w := float32(float64(u.NumSamples) / total)
		for i := range out {
			dst := out[i].Data
			src := u.Params[i].Data
			for j := range dst {
				dst[j] += src[j] * w
			}
		}
	}

	return out, nil
}
