package round

import (
	"time"

	"github.com/absmach/flotilla/params"
)

// Phase is the coarse round lifecycle state derived from a Status
// snapshot. Aggregating happens inside the coordinator's round lock, so a
// snapshot never reports it.
type Phase uint8

const (
	Idle Phase = iota
	Open
	Aggregating
	Closed
	Finished
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "Idle"
	case Open:
		return "Open"
	case Aggregating:
		return "Aggregating"
	case Closed:
		return "Closed"
	case Finished:
		return "Finished"
	default:
		return "Unknown"
	}
}

// ModelConfig is served to clients alongside the global parameters so they
// can build their local trainer before the first round.
type ModelConfig struct {
	InputShape   []int   `json:"input_shape"`
	NumClasses   int     `json:"num_classes"`
	LearningRate float64 `json:"learning_rate"`
}

func DefaultModelConfig() ModelConfig {
	return ModelConfig{
		InputShape:   []int{8},
		NumClasses:   4,
		LearningRate: 0.001,
	}
}

// Update is one client's contribution to the current round. It lives only
// until the round's aggregation completes.
type Update struct {
	ClientID   string              `json:"client_id"`
	Params     params.ParameterSet `json:"-"`
	NumSamples int                 `json:"num_samples"`
	Steps      int                 `json:"training_steps"`
	ReceivedAt time.Time           `json:"received_at"`
}

// Status is the coordinator state snapshot every barrier decision is made
// from.
type Status struct {
	CurrentRound      int  `json:"current_round"`
	TotalRounds       int  `json:"total_rounds"`
	IsTraining        bool `json:"is_training"`
	RegisteredClients int  `json:"registered_clients"`
	ExpectedClients   int  `json:"expected_clients"`
	UpdatesReceived   int  `json:"updates_received"`
	AggregationDone   bool `json:"aggregation_done"`
}

// Complete reports whether the run has finished: every round played and the
// last aggregation closed.
func (s Status) Complete() bool {
	return s.CurrentRound >= s.TotalRounds && !s.IsTraining
}

// Phase maps the snapshot onto the round lifecycle.
func (s Status) Phase() Phase {
	switch {
	case s.IsTraining:
		return Open
	case s.CurrentRound == 0:
		return Idle
	case s.CurrentRound >= s.TotalRounds:
		return Finished
	default:
		return Closed
	}
}

type Registration struct {
	ClientID        string `json:"client_id"`
	TotalRegistered int    `json:"total_registered"`
}

type StartResult struct {
	Started     bool `json:"started"`
	Round       int  `json:"round"`
	TotalRounds int  `json:"total_rounds"`
}

// ModelSnapshot is the read side of the global model: the round it belongs
// to, the codec-encoded weights and the model configuration.
type ModelSnapshot struct {
	Round       int         `json:"round"`
	Weights     []any       `json:"weights"`
	ModelConfig ModelConfig `json:"model_params"`
}

type Ack struct {
	Round           int `json:"round"`
	UpdatesReceived int `json:"updates_received"`
}

// MetricsRecord is one round's evaluation result. Records are append-only;
// the full ordered history is rewritten to the durable store after every
// round.
type MetricsRecord struct {
	Round     int       `json:"round"`
	Accuracy  float64   `json:"accuracy"`
	Loss      float64   `json:"loss"`
	Timestamp time.Time `json:"timestamp"`
}

type MetricsPage struct {
	Offset  uint64          `json:"offset"`
	Limit   uint64          `json:"limit"`
	Total   uint64          `json:"total"`
	Metrics []MetricsRecord `json:"metrics"`
}
