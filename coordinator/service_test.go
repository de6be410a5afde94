package coordinator_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/absmach/flotilla/aggregate"
	"github.com/absmach/flotilla/coordinator"
	"github.com/absmach/flotilla/params"
	"github.com/absmach/flotilla/pkg/errors"
	"github.com/absmach/flotilla/pkg/mqtt"
	"github.com/absmach/flotilla/pkg/mqtt/mocks"
	"github.com/absmach/flotilla/pkg/storage"
	"github.com/absmach/flotilla/round"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tolerance = 1e-5

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func scalar(v float32) params.ParameterSet {
	return params.ParameterSet{{Shape: []int{1}, Data: []float32{v}}}
}

func testConfig(clients, rounds int, method aggregate.Method) coordinator.Config {
	return coordinator.Config{
		ExpectedClients: clients,
		TotalRounds:     rounds,
		Model:           round.DefaultModelConfig(),
		Aggregation:     aggregate.Config{Method: method},
	}
}

func newTestService(t *testing.T, cfg coordinator.Config, opts ...func(*deps)) coordinator.Service {
	t.Helper()

	d := &deps{
		initial:   scalar(0),
		agg:       aggregate.New(cfg.Aggregation),
		evaluator: nil,
		metrics:   storage.NewMemoryStore(),
	}
	for _, opt := range opts {
		opt(d)
	}

	// A typed-nil *mocks.PubSub must not reach the interface parameter: the
	// service's nil check would pass and publishing would hit a nil receiver.
	var pubsub mqtt.PubSub
	if d.pubsub != nil {
		pubsub = d.pubsub
	}

	svc, err := coordinator.NewService(cfg, d.initial, d.agg, d.evaluator, d.metrics, d.ckpts, pubsub, testLogger())
	require.NoError(t, err)

	return svc
}

type deps struct {
	initial   params.ParameterSet
	agg       aggregate.Aggregator
	evaluator coordinator.Evaluator
	metrics   storage.MetricsStore
	ckpts     storage.CheckpointStore
	pubsub    *mocks.PubSub
}

func registerClients(t *testing.T, svc coordinator.Service, n int) []string {
	t.Helper()

	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("client-%d", i)
		_, err := svc.Register(context.Background(), ids[i])
		require.NoError(t, err)
	}

	return ids
}

func submit(t *testing.T, svc coordinator.Service, clientID string, value float32, samples int) round.Ack {
	t.Helper()

	ack, err := svc.SubmitUpdate(context.Background(), round.Update{
		ClientID:   clientID,
		Params:     scalar(value),
		NumSamples: samples,
		Steps:      1,
	})
	require.NoError(t, err)

	return ack
}

func globalValue(t *testing.T, svc coordinator.Service) float32 {
	t.Helper()

	snapshot, err := svc.GlobalParameters(context.Background())
	require.NoError(t, err)

	p, err := params.Decode(snapshot.Weights)
	require.NoError(t, err)
	require.Len(t, p, 1)
	require.Len(t, p[0].Data, 1)

	return p[0].Data[0]
}

func TestRegister(t *testing.T) {
	svc := newTestService(t, testConfig(3, 1, aggregate.FedAvg))

	cases := []struct {
		desc     string
		clientID string
		total    int
		err      error
	}{
		{
			desc:     "first client",
			clientID: "client-0",
			total:    1,
		},
		{
			desc:     "second client",
			clientID: "client-1",
			total:    2,
		},
		{
			desc:     "duplicate client",
			clientID: "client-0",
			err:      errors.ErrEntityExists,
		},
		{
			desc:     "empty client id",
			clientID: "",
			err:      errors.ErrEmptyKey,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			reg, err := svc.Register(context.Background(), tc.clientID)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)

				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.clientID, reg.ClientID)
			assert.Equal(t, tc.total, reg.TotalRegistered)
		})
	}
}

func TestStartRoundGate(t *testing.T) {
	svc := newTestService(t, testConfig(2, 1, aggregate.FedAvg))

	_, err := svc.StartRound(context.Background())
	var gateErr *round.GateError
	require.ErrorAs(t, err, &gateErr)
	assert.Equal(t, 0, gateErr.Registered)
	assert.Equal(t, 2, gateErr.Expected)

	_, err = svc.Register(context.Background(), "client-0")
	require.NoError(t, err)

	_, err = svc.StartRound(context.Background())
	require.ErrorAs(t, err, &gateErr)
	assert.Equal(t, 1, gateErr.Registered)

	_, err = svc.Register(context.Background(), "client-1")
	require.NoError(t, err)

	res, err := svc.StartRound(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Started)
	assert.Equal(t, 1, res.Round)
}

func TestRoundLifecycle(t *testing.T) {
	svc := newTestService(t, testConfig(2, 2, aggregate.FedAvg))
	ids := registerClients(t, svc, 2)

	status, err := svc.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, status.CurrentRound)
	assert.False(t, status.IsTraining)
	assert.Equal(t, 2, status.RegisteredClients)

	res, err := svc.StartRound(context.Background())
	require.NoError(t, err)
	require.True(t, res.Started)

	status, err = svc.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, status.CurrentRound)
	assert.True(t, status.IsTraining)
	assert.False(t, status.AggregationDone)

	ack := submit(t, svc, ids[0], 1, 100)
	assert.Equal(t, 1, ack.UpdatesReceived)

	status, err = svc.Status(context.Background())
	require.NoError(t, err)
	assert.True(t, status.IsTraining)
	assert.Equal(t, 1, status.UpdatesReceived)

	ack = submit(t, svc, ids[1], 3, 300)
	assert.Equal(t, 2, ack.UpdatesReceived)

	status, err = svc.Status(context.Background())
	require.NoError(t, err)
	assert.False(t, status.IsTraining)
	assert.True(t, status.AggregationDone)
	assert.Equal(t, 2, status.UpdatesReceived)
	assert.False(t, status.Complete())

	// Weighted mean: (1*100 + 3*300) / 400 = 2.5.
	assert.InDelta(t, 2.5, globalValue(t, svc), tolerance)

	res, err = svc.StartRound(context.Background())
	require.NoError(t, err)
	require.True(t, res.Started)
	assert.Equal(t, 2, res.Round)

	status, err = svc.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, status.UpdatesReceived)
	assert.False(t, status.AggregationDone)

	submit(t, svc, ids[0], 5, 100)
	submit(t, svc, ids[1], 5, 100)

	status, err = svc.Status(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Complete())

	res, err = svc.StartRound(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Started)
	assert.Equal(t, 2, res.Round)
}

func TestSubmitUpdateNoActiveRound(t *testing.T) {
	svc := newTestService(t, testConfig(1, 1, aggregate.FedAvg))
	registerClients(t, svc, 1)

	_, err := svc.SubmitUpdate(context.Background(), round.Update{
		ClientID:   "client-0",
		Params:     scalar(1),
		NumSamples: 10,
		Steps:      1,
	})
	assert.ErrorIs(t, err, round.ErrNoActiveRound)
}

func TestSubmitUpdateResubmission(t *testing.T) {
	svc := newTestService(t, testConfig(2, 1, aggregate.FedAvg))
	ids := registerClients(t, svc, 2)

	_, err := svc.StartRound(context.Background())
	require.NoError(t, err)

	ack := submit(t, svc, ids[0], 1, 100)
	assert.Equal(t, 1, ack.UpdatesReceived)

	// Resubmission overwrites, it does not increase the count.
	ack = submit(t, svc, ids[0], 2, 100)
	assert.Equal(t, 1, ack.UpdatesReceived)

	submit(t, svc, ids[1], 4, 100)

	// The overwritten value is the one aggregated: (2+4)/2 = 3.
	assert.InDelta(t, 3.0, globalValue(t, svc), tolerance)
}

func TestLateSubmissionAfterAggregation(t *testing.T) {
	svc := newTestService(t, testConfig(2, 1, aggregate.FedAvg))
	ids := registerClients(t, svc, 2)

	_, err := svc.StartRound(context.Background())
	require.NoError(t, err)

	submit(t, svc, ids[0], 1, 100)
	submit(t, svc, ids[1], 3, 100)

	before := globalValue(t, svc)

	// The round is closed, so a straggler is rejected and the result stands.
	_, err = svc.SubmitUpdate(context.Background(), round.Update{
		ClientID:   ids[0],
		Params:     scalar(100),
		NumSamples: 100,
		Steps:      1,
	})
	assert.ErrorIs(t, err, round.ErrNoActiveRound)
	assert.InDelta(t, before, globalValue(t, svc), tolerance)
}

// countingAggregator records how many times Aggregate ran.
type countingAggregator struct {
	calls atomic.Int64
	inner aggregate.Aggregator
}

func (a *countingAggregator) Aggregate(prev, momentum params.ParameterSet, updates []round.Update) (params.ParameterSet, params.ParameterSet, error) {
	a.calls.Add(1)

	return a.inner.Aggregate(prev, momentum, updates)
}

func TestConcurrentSubmissionsAggregateOnce(t *testing.T) {
	const clients = 16

	agg := &countingAggregator{inner: aggregate.NewFedAvg()}
	svc := newTestService(t, testConfig(clients, 1, aggregate.FedAvg), func(d *deps) {
		d.agg = agg
	})
	ids := registerClients(t, svc, clients)

	_, err := svc.StartRound(context.Background())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(id string, v float32) {
			defer wg.Done()
			_, err := svc.SubmitUpdate(context.Background(), round.Update{
				ClientID:   id,
				Params:     scalar(v),
				NumSamples: 10,
				Steps:      1,
			})
			assert.NoError(t, err)
		}(id, float32(i))
	}
	wg.Wait()

	assert.Equal(t, int64(1), agg.calls.Load())

	status, err := svc.Status(context.Background())
	require.NoError(t, err)
	assert.False(t, status.IsTraining)
	assert.True(t, status.AggregationDone)
	assert.Equal(t, clients, status.UpdatesReceived)

	// Uniform sample counts: plain mean of 0..15 is 7.5.
	assert.InDelta(t, 7.5, globalValue(t, svc), tolerance)
}

func TestFedAvgMAcrossRounds(t *testing.T) {
	svc := newTestService(t, testConfig(1, 2, aggregate.FedAvgM))
	ids := registerClients(t, svc, 1)

	_, err := svc.StartRound(context.Background())
	require.NoError(t, err)
	submit(t, svc, ids[0], 1, 10)

	// Round 1: gradient 1.0, momentum 1.0, global 1.0.
	assert.InDelta(t, 1.0, globalValue(t, svc), tolerance)

	_, err = svc.StartRound(context.Background())
	require.NoError(t, err)
	submit(t, svc, ids[0], 2, 10)

	// Round 2: gradient 1.0, momentum 0.9*1.0+1.0=1.9, global 1.0+1.9=2.9.
	assert.InDelta(t, 2.9, globalValue(t, svc), tolerance)
}

// failingAggregator always fails, leaving the round without a result.
type failingAggregator struct{}

func (failingAggregator) Aggregate(_, _ params.ParameterSet, _ []round.Update) (params.ParameterSet, params.ParameterSet, error) {
	return nil, nil, aggregate.ErrZeroSamples
}

func TestAggregationFailureLeavesGlobalUnchanged(t *testing.T) {
	svc := newTestService(t, testConfig(1, 1, aggregate.FedAvg), func(d *deps) {
		d.initial = scalar(42)
		d.agg = failingAggregator{}
	})
	registerClients(t, svc, 1)

	_, err := svc.StartRound(context.Background())
	require.NoError(t, err)

	_, err = svc.SubmitUpdate(context.Background(), round.Update{
		ClientID:   "client-0",
		Params:     scalar(1),
		NumSamples: 10,
		Steps:      1,
	})
	assert.ErrorIs(t, err, aggregate.ErrZeroSamples)

	status, err := svc.Status(context.Background())
	require.NoError(t, err)
	assert.False(t, status.IsTraining)
	assert.InDelta(t, 42.0, globalValue(t, svc), tolerance)
}

// fixedEvaluator returns the same score for every round.
type fixedEvaluator struct {
	accuracy, loss float64
}

func (e fixedEvaluator) Evaluate(_ context.Context, _ params.ParameterSet) (float64, float64, error) {
	return e.accuracy, e.loss, nil
}

func TestMetricsRecordedPerRound(t *testing.T) {
	metrics := storage.NewMemoryStore()
	svc := newTestService(t, testConfig(1, 2, aggregate.FedAvg), func(d *deps) {
		d.metrics = metrics
		d.evaluator = fixedEvaluator{accuracy: 0.75, loss: 0.5}
	})
	ids := registerClients(t, svc, 1)

	for i := 0; i < 2; i++ {
		_, err := svc.StartRound(context.Background())
		require.NoError(t, err)
		submit(t, svc, ids[0], float32(i), 10)
	}

	page, err := svc.Metrics(context.Background(), 0, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), page.Total)
	require.Len(t, page.Metrics, 2)
	assert.Equal(t, 1, page.Metrics[0].Round)
	assert.Equal(t, 2, page.Metrics[1].Round)
	assert.InDelta(t, 0.75, page.Metrics[0].Accuracy, tolerance)
	assert.InDelta(t, 0.5, page.Metrics[0].Loss, tolerance)
}

func TestNoEvaluatorRecordsNoMetrics(t *testing.T) {
	metrics := storage.NewMemoryStore()
	svc := newTestService(t, testConfig(1, 1, aggregate.FedAvg), func(d *deps) {
		d.metrics = metrics
	})
	ids := registerClients(t, svc, 1)

	_, err := svc.StartRound(context.Background())
	require.NoError(t, err)
	submit(t, svc, ids[0], 1, 10)

	page, err := svc.Metrics(context.Background(), 0, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), page.Total)
	assert.Empty(t, page.Metrics)
}

func TestRoundEventsPublished(t *testing.T) {
	pubsub := mocks.NewPubSub()
	svc := newTestService(t, testConfig(1, 1, aggregate.FedAvg), func(d *deps) {
		d.pubsub = pubsub
	})
	ids := registerClients(t, svc, 1)

	_, err := svc.StartRound(context.Background())
	require.NoError(t, err)
	submit(t, svc, ids[0], 1, 10)

	published := pubsub.Published()
	require.Len(t, published, 2)
	assert.Equal(t, coordinator.RoundStartTopic, published[0].Topic)
	assert.Equal(t, coordinator.RoundCompleteTopic, published[1].Topic)

	complete, ok := published[1].Payload.(coordinator.RoundEvent)
	require.True(t, ok)
	assert.Equal(t, 1, complete.Round)
	assert.Equal(t, 1, complete.Updates)
}

func TestRoundWithoutBroker(t *testing.T) {
	svc := newTestService(t, testConfig(1, 1, aggregate.FedAvg))
	ids := registerClients(t, svc, 1)

	res, err := svc.StartRound(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Started)

	ack := submit(t, svc, ids[0], 1, 10)
	assert.Equal(t, 1, ack.Round)

	status, err := svc.Status(context.Background())
	require.NoError(t, err)
	assert.False(t, status.IsTraining)
	assert.True(t, status.Complete())
}

func TestCheckpointResume(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.cbor")
	ckpts := storage.NewCheckpointStore(path)

	svc := newTestService(t, testConfig(1, 3, aggregate.FedAvg), func(d *deps) {
		d.ckpts = ckpts
	})
	ids := registerClients(t, svc, 1)

	_, err := svc.StartRound(context.Background())
	require.NoError(t, err)
	submit(t, svc, ids[0], 7, 10)

	resumed := newTestService(t, testConfig(1, 3, aggregate.FedAvg), func(d *deps) {
		d.ckpts = ckpts
	})

	status, err := resumed.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, status.CurrentRound)
	assert.InDelta(t, 7.0, globalValue(t, resumed), tolerance)
}

func TestCheckpointShapeMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.cbor")
	ckpts := storage.NewCheckpointStore(path)

	require.NoError(t, ckpts.Save(context.Background(), storage.Checkpoint{
		Round:  1,
		Global: params.ParameterSet{{Shape: []int{2}, Data: []float32{1, 2}}},
	}))

	_, err := coordinator.NewService(testConfig(1, 1, aggregate.FedAvg), scalar(0), aggregate.NewFedAvg(), nil, storage.NewMemoryStore(), ckpts, nil, testLogger())
	assert.ErrorIs(t, err, params.ErrShapeMismatch)
}

func TestNewServiceValidation(t *testing.T) {
	cases := []struct {
		desc    string
		cfg     coordinator.Config
		initial params.ParameterSet
	}{
		{
			desc:    "zero expected clients",
			cfg:     testConfig(0, 1, aggregate.FedAvg),
			initial: scalar(0),
		},
		{
			desc:    "zero total rounds",
			cfg:     testConfig(1, 0, aggregate.FedAvg),
			initial: scalar(0),
		},
		{
			desc:    "empty initial parameters",
			cfg:     testConfig(1, 1, aggregate.FedAvg),
			initial: nil,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			_, err := coordinator.NewService(tc.cfg, tc.initial, aggregate.NewFedAvg(), nil, nil, nil, nil, testLogger())
			assert.ErrorIs(t, err, errors.ErrInvalidData)
		})
	}
}
