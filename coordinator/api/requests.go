package api

import (
	"github.com/absmach/flotilla/pkg/apiutil"
)

type registerReq struct {
	ClientID string `json:"client_id"`
}

func (r *registerReq) validate() error {
	if r.ClientID == "" {
		return apiutil.ErrMissingClientID
	}

	return nil
}

type submitUpdateReq struct {
	ClientID      string `json:"client_id"`
	Weights       []any  `json:"weights"`
	NumSamples    int    `json:"num_samples"`
	TrainingSteps int    `json:"training_steps"`
}

func (r *submitUpdateReq) validate() error {
	if r.ClientID == "" {
		return apiutil.ErrMissingClientID
	}
	if len(r.Weights) == 0 {
		return apiutil.ErrMissingWeights
	}
	if r.NumSamples <= 0 {
		return apiutil.ErrInvalidSampleCount
	}
	if r.TrainingSteps < 1 {
		return apiutil.ErrInvalidTrainingSteps
	}

	return nil
}

type listMetricsReq struct {
	offset, limit uint64
}

type emptyReq struct{}
