package coordinator

import (
	"context"

	"github.com/absmach/flotilla/aggregate"
	"github.com/absmach/flotilla/params"
	"github.com/absmach/flotilla/round"
)

// Service is the round coordinator: it owns the canonical global model,
// runs the round state machine and aggregates client updates.
type Service interface {
	// Register adds a client to the registry. Registration is permanent;
	// a duplicate ID is rejected without touching existing registrations.
	Register(ctx context.Context, clientID string) (round.Registration, error)

	// StartRound opens the next training round. It is rejected until every
	// expected client has registered. Once all configured rounds have run
	// it reports completion without changing state.
	StartRound(ctx context.Context) (round.StartResult, error)

	// GlobalParameters returns the current global model, available before
	// the first round opens.
	GlobalParameters(ctx context.Context) (round.ModelSnapshot, error)

	// SubmitUpdate stores one client's locally trained parameters for the
	// open round. The submission that completes the expected set triggers
	// aggregation synchronously, exactly once per round.
	SubmitUpdate(ctx context.Context, update round.Update) (round.Ack, error)

	// Status reports the round state snapshot clients poll for barrier
	// decisions.
	Status(ctx context.Context) (round.Status, error)

	// Metrics pages through the persisted per-round evaluation history.
	Metrics(ctx context.Context, offset, limit uint64) (round.MetricsPage, error)
}

// Evaluator scores global parameters after each aggregation, typically on a
// held-out dataset. A nil evaluator disables evaluation: no metrics record
// is written for the round. Evaluation failures are logged and skip the
// metrics record; they never fail the round itself.
type Evaluator interface {
	Evaluate(ctx context.Context, p params.ParameterSet) (accuracy, loss float64, err error)
}

// Config carries the round-coordination parameters fixed at startup.
type Config struct {
	ExpectedClients int
	TotalRounds     int
	Model           round.ModelConfig
	Aggregation     aggregate.Config
}
