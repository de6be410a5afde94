package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/absmach/flotilla/aggregate"
	"github.com/absmach/flotilla/params"
	"github.com/absmach/flotilla/pkg/errors"
	"github.com/absmach/flotilla/pkg/mqtt"
	"github.com/absmach/flotilla/pkg/storage"
	"github.com/absmach/flotilla/round"
)

// service is the mutex-guarded round state machine. Every mutation runs
// under the write lock; the aggregation trigger is a check-and-set inside
// that critical section, so concurrent submissions cannot aggregate twice.
type service struct {
	mu sync.RWMutex

	cfg       Config
	agg       aggregate.Aggregator
	evaluator Evaluator
	metrics   storage.MetricsStore
	ckpts     storage.CheckpointStore
	pubsub    mqtt.PubSub
	logger    *slog.Logger

	currentRound    int
	isTraining      bool
	aggregationDone bool
	registered      map[string]struct{}
	pending         map[string]round.Update
	global          params.ParameterSet
	momentum        params.ParameterSet
}

// NewService builds a coordinator serving initial as the round-zero global
// parameters. The evaluator, checkpoint store and pubsub are optional; when
// a checkpoint exists at startup the run resumes from it instead of the
// initial parameters.
func NewService(cfg Config, initial params.ParameterSet, agg aggregate.Aggregator, evaluator Evaluator, metrics storage.MetricsStore, ckpts storage.CheckpointStore, pubsub mqtt.PubSub, logger *slog.Logger) (Service, error) {
	if cfg.ExpectedClients < 1 {
		return nil, fmt.Errorf("%w: expected clients must be positive", errors.ErrInvalidData)
	}
	if cfg.TotalRounds < 1 {
		return nil, fmt.Errorf("%w: total rounds must be positive", errors.ErrInvalidData)
	}
	if len(initial) == 0 {
		return nil, fmt.Errorf("%w: initial parameters are empty", errors.ErrInvalidData)
	}

	svc := &service{
		cfg:        cfg,
		agg:        agg,
		evaluator:  evaluator,
		metrics:    metrics,
		ckpts:      ckpts,
		pubsub:     pubsub,
		logger:     logger,
		registered: make(map[string]struct{}),
		pending:    make(map[string]round.Update),
		global:     initial.Clone(),
		momentum:   params.Zeros(initial),
	}

	if ckpts != nil && ckpts.Exists() {
		cp, err := ckpts.Load(context.Background())
		if err != nil {
			return nil, fmt.Errorf("failed to resume from checkpoint: %w", err)
		}
		if err := params.Compatible(initial, cp.Global); err != nil {
			return nil, fmt.Errorf("checkpoint does not match configured model: %w", err)
		}
		svc.currentRound = cp.Round
		svc.global = cp.Global
		svc.momentum = cp.Momentum
		if len(svc.momentum) == 0 {
			svc.momentum = params.Zeros(cp.Global)
		}
		logger.Info("resumed from checkpoint",
			slog.Int("round", cp.Round),
			slog.String("method", cp.Method),
		)
	}

	return svc, nil
}

func (svc *service) Register(ctx context.Context, clientID string) (round.Registration, error) {
	if clientID == "" {
		return round.Registration{}, errors.ErrEmptyKey
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	if _, ok := svc.registered[clientID]; ok {
		return round.Registration{}, fmt.Errorf("%w: client %s", errors.ErrEntityExists, clientID)
	}
	svc.registered[clientID] = struct{}{}

	return round.Registration{
		ClientID:        clientID,
		TotalRegistered: len(svc.registered),
	}, nil
}

func (svc *service) StartRound(ctx context.Context) (round.StartResult, error) {
	svc.mu.Lock()

	if len(svc.registered) < svc.cfg.ExpectedClients {
		err := &round.GateError{
			Registered: len(svc.registered),
			Expected:   svc.cfg.ExpectedClients,
		}
		svc.mu.Unlock()

		return round.StartResult{}, err
	}

	if svc.currentRound >= svc.cfg.TotalRounds {
		res := round.StartResult{
			Started:     false,
			Round:       svc.currentRound,
			TotalRounds: svc.cfg.TotalRounds,
		}
		svc.mu.Unlock()

		return res, nil
	}

	svc.currentRound++
	svc.isTraining = true
	svc.aggregationDone = false
	svc.pending = make(map[string]round.Update)

	res := round.StartResult{
		Started:     true,
		Round:       svc.currentRound,
		TotalRounds: svc.cfg.TotalRounds,
	}
	cp := svc.checkpointLocked()
	svc.mu.Unlock()

	svc.saveCheckpoint(ctx, cp)
	svc.publish(ctx, RoundStartTopic, RoundEvent{
		Round:       res.Round,
		TotalRounds: res.TotalRounds,
		Method:      svc.cfg.Aggregation.Method.String(),
	})

	return res, nil
}

func (svc *service) GlobalParameters(ctx context.Context) (round.ModelSnapshot, error) {
	svc.mu.RLock()
	defer svc.mu.RUnlock()

	return round.ModelSnapshot{
		Round:       svc.currentRound,
		Weights:     params.Encode(svc.global),
		ModelConfig: svc.cfg.Model,
	}, nil
}

func (svc *service) SubmitUpdate(ctx context.Context, update round.Update) (round.Ack, error) {
	if update.ClientID == "" {
		return round.Ack{}, errors.ErrEmptyKey
	}
	update.ReceivedAt = time.Now().UTC()

	svc.mu.Lock()

	if !svc.isTraining {
		svc.mu.Unlock()

		return round.Ack{}, round.ErrNoActiveRound
	}

	// Resubmission within a round overwrites; the count never exceeds one
	// entry per client.
	svc.pending[update.ClientID] = update

	ack := round.Ack{
		Round:           svc.currentRound,
		UpdatesReceived: len(svc.pending),
	}

	if len(svc.pending) < svc.cfg.ExpectedClients || svc.aggregationDone {
		svc.mu.Unlock()

		return ack, nil
	}

	// The guard is set before any aggregation math so a racing late
	// submission observes it and becomes a plain store.
	svc.aggregationDone = true

	updates := make([]round.Update, 0, len(svc.pending))
	for _, u := range svc.pending {
		updates = append(updates, u)
	}

	next, momentum, err := svc.agg.Aggregate(svc.global, svc.momentum, updates)
	if err != nil {
		// Failed aggregation closes the round without installing a partial
		// result; global parameters and momentum stay as they were.
		svc.isTraining = false
		svc.mu.Unlock()

		return round.Ack{}, fmt.Errorf("aggregation failed for round %d: %w", ack.Round, err)
	}

	// Buffered updates stay visible in the status counts until the next
	// round opens; clients read them in their exit-barrier condition.
	svc.global = next
	svc.momentum = momentum
	svc.isTraining = false

	completedRound := svc.currentRound
	evalParams := svc.global
	cp := svc.checkpointLocked()
	svc.mu.Unlock()

	svc.finishRound(ctx, completedRound, ack.UpdatesReceived, evalParams, cp)

	return ack, nil
}

func (svc *service) Status(ctx context.Context) (round.Status, error) {
	svc.mu.RLock()
	defer svc.mu.RUnlock()

	return round.Status{
		CurrentRound:      svc.currentRound,
		TotalRounds:       svc.cfg.TotalRounds,
		IsTraining:        svc.isTraining,
		RegisteredClients: len(svc.registered),
		ExpectedClients:   svc.cfg.ExpectedClients,
		UpdatesReceived:   len(svc.pending),
		AggregationDone:   svc.aggregationDone,
	}, nil
}

func (svc *service) Metrics(ctx context.Context, offset, limit uint64) (round.MetricsPage, error) {
	if svc.metrics == nil {
		return round.MetricsPage{Offset: offset, Limit: limit}, nil
	}

	return svc.metrics.List(ctx, offset, limit)
}

// finishRound runs the post-aggregation tail outside the critical section:
// evaluation, metrics persistence, checkpointing and the completion event.
// None of these can fail the already-closed round. Without an evaluator
// there is nothing to score, so no metrics record is written.
func (svc *service) finishRound(ctx context.Context, completedRound, updates int, p params.ParameterSet, cp storage.Checkpoint) {
	if svc.evaluator != nil {
		accuracy, loss, err := svc.evaluator.Evaluate(ctx, p)
		switch {
		case err != nil:
			svc.logger.Warn("evaluation failed, skipping metrics record",
				slog.Int("round", completedRound),
				slog.Any("error", err),
			)
		case svc.metrics != nil:
			rec := round.MetricsRecord{
				Round:     completedRound,
				Accuracy:  accuracy,
				Loss:      loss,
				Timestamp: time.Now().UTC(),
			}
			if err := svc.metrics.Append(ctx, rec); err != nil {
				svc.logger.Warn("failed to persist metrics record",
					slog.Int("round", completedRound),
					slog.Any("error", err),
				)
			}
		}
	}

	svc.saveCheckpoint(ctx, cp)
	svc.publish(ctx, RoundCompleteTopic, RoundEvent{
		Round:       completedRound,
		TotalRounds: svc.cfg.TotalRounds,
		Method:      svc.cfg.Aggregation.Method.String(),
		Updates:     updates,
	})
}

func (svc *service) checkpointLocked() storage.Checkpoint {
	return storage.Checkpoint{
		Round:    svc.currentRound,
		Method:   svc.cfg.Aggregation.Method.String(),
		Global:   svc.global,
		Momentum: svc.momentum,
		SavedAt:  time.Now().UTC(),
	}
}

func (svc *service) saveCheckpoint(ctx context.Context, cp storage.Checkpoint) {
	if svc.ckpts == nil {
		return
	}
	if err := svc.ckpts.Save(ctx, cp); err != nil {
		svc.logger.Warn("failed to save checkpoint",
			slog.Int("round", cp.Round),
			slog.Any("error", err),
		)
	}
}
