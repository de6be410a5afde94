package aggregate

import (
	"fmt"

	"github.com/absmach/flotilla/params"
	"github.com/absmach/flotilla/round"
)

const (
	DefaultBeta = 0.9
	DefaultEta  = 1.0
)

// Method is the closed set of aggregation algorithms. It is resolved from
// configuration once at startup, never per request.
type Method uint8

const (
	FedAvg Method = iota
	FedAvgM
	FedNova
)

func (m Method) String() string {
	switch m {
	case FedAvg:
		return "fedavg"
	case FedAvgM:
		return "fedavgm"
	case FedNova:
		return "fednova"
	default:
		return "unknown"
	}
}

func ParseMethod(name string) (Method, error) {
	switch name {
	case "fedavg":
		return FedAvg, nil
	case "fedavgm":
		return FedAvgM, nil
	case "fednova":
		return FedNova, nil
	default:
		return FedAvg, fmt.Errorf("%w: %q", ErrUnknownMethod, name)
	}
}

func (m Method) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Method) UnmarshalText(text []byte) error {
	parsed, err := ParseMethod(string(text))
	if err != nil {
		return err
	}
	*m = parsed

	return nil
}

// Aggregator combines one round's client updates into new global
// parameters. prev is the current global ParameterSet, momentum the
// caller-owned accumulator; both are returned updated. Implementations do
// not mutate their inputs and fail without partial results.
type Aggregator interface {
	Aggregate(prev, momentum params.ParameterSet, updates []round.Update) (params.ParameterSet, params.ParameterSet, error)
}

type Config struct {
	Method Method
	Beta   float64
	Eta    float64
	Sigma  float64
}

// New builds the configured aggregator, wrapped with gaussian noise when
// Sigma is positive. Zero Beta/Eta fall back to the defaults.
func New(cfg Config) Aggregator {
	beta := cfg.Beta
	if beta == 0 {
		beta = DefaultBeta
	}
	eta := cfg.Eta
	if eta == 0 {
		eta = DefaultEta
	}

	var agg Aggregator
	switch cfg.Method {
	case FedAvgM:
		agg = NewFedAvgM(beta, eta)
	case FedNova:
		agg = NewFedNova(eta)
	default:
		agg = NewFedAvg()
	}

	return WithNoise(agg, cfg.Sigma)
}

func validate(prev params.ParameterSet, updates []round.Update) (float64, error) {
	if len(updates) == 0 {
		return 0, ErrNoUpdates
	}

	var total float64
	for _, u := range updates {
		if err := params.Compatible(prev, u.Params); err != nil {
			return 0, fmt.Errorf("client %s: %w", u.ClientID, err)
		}
		total += float64(u.NumSamples)
	}
	if total <= 0 {
		return 0, ErrZeroSamples
	}

	return total, nil
}
