package aggregate

import (
	"github.com/absmach/flotilla/params"
	"github.com/absmach/flotilla/round"
)

// fedAvgM implements FedAvg with server momentum (Hsu et al., 2019). The
// momentum accumulator is owned by the caller and fed back each round.
type fedAvgM struct {
	beta float32
	eta  float32
}

func NewFedAvgM(beta, eta float64) Aggregator {
	return fedAvgM{
		beta: float32(beta),
		eta:  float32(eta),
	}
}

func (a fedAvgM) Aggregate(prev, momentum params.ParameterSet, updates []round.Update) (params.ParameterSet, params.ParameterSet, error) {
	aggregated, err := weightedMean(prev, updates)
	if err != nil {
		return nil, nil, err
	}

	if len(momentum) == 0 {
		momentum = params.Zeros(prev)
	}
	if err := params.Compatible(prev, momentum); err != nil {
		return nil, nil, err
	}

	next := params.Zeros(prev)
	newMomentum := params.Zeros(prev)
	for i := range prev {
		pd := prev[i].Data
		ad := aggregated[i].Data
		md := momentum[i].Data
		for j := range pd {
			gradient := ad[j] - pd[j]
			m := a.beta*md[j] + gradient
			newMomentum[i].Data[j] = m
			next[i].Data[j] = pd[j] + a.eta*m
		}
	}

	return next, newMomentum, nil
}
