package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/absmach/flotilla/params"
	pkgmqtt "github.com/absmach/flotilla/pkg/mqtt"
	"github.com/absmach/flotilla/pkg/sdk"
	"github.com/absmach/flotilla/round"
)

var aliveTopicTemplate = "flotilla/agents/%s/alive"

// Trainer runs one round of local training. Configure is called once, with
// the model configuration served alongside the first fetched parameters.
type Trainer interface {
	Configure(cfg round.ModelConfig) error

	// Train returns the locally trained parameters, the number of training
	// samples and the number of optimizer steps taken.
	Train(ctx context.Context, p params.ParameterSet) (params.ParameterSet, int, int, error)
}

// Agent is the client side of the round protocol: a sequential loop of
// register, barrier-in, train, submit, barrier-out. All coordination goes
// through status polling; MQTT presence is observability only.
type Agent struct {
	cfg        Config
	sdk        sdk.SDK
	trainer    Trainer
	pubsub     pkgmqtt.PubSub
	logger     *slog.Logger
	configured bool
}

func New(cfg Config, s sdk.SDK, trainer Trainer, pubsub pkgmqtt.PubSub, logger *slog.Logger) *Agent {
	cfg.setDefaults()

	return &Agent{
		cfg:     cfg,
		sdk:     s,
		trainer: trainer,
		pubsub:  pubsub,
		logger:  logger,
	}
}

// Run drives the full training lifetime and returns when the coordinator
// reports all rounds complete, or when registration permanently fails, or
// on context cancellation.
func (a *Agent) Run(ctx context.Context) error {
	if err := a.register(ctx); err != nil {
		return err
	}

	if a.pubsub != nil {
		go a.presenceLoop(ctx)
	}

	a.logger.Info("registered, waiting before first round",
		slog.String("client_id", a.cfg.ClientID),
		slog.Duration("warm_up", a.cfg.WarmUp),
	)
	if err := sleep(ctx, a.cfg.WarmUp); err != nil {
		return err
	}

	for {
		status, err := a.sdk.Status()
		if err != nil {
			a.logger.Warn("status poll failed", slog.Any("error", err))
			if err := sleep(ctx, a.cfg.EntryPoll); err != nil {
				return err
			}

			continue
		}

		if status.Complete() {
			a.logger.Info("training complete",
				slog.Int("rounds", status.CurrentRound),
			)

			return nil
		}

		// Entry barrier: wait for the coordinator to open a round.
		if !status.IsTraining {
			if err := sleep(ctx, a.cfg.EntryPoll); err != nil {
				return err
			}

			continue
		}

		if err := a.runRound(ctx, status); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			a.logger.Warn("round failed, rejoining at next poll",
				slog.Int("round", status.CurrentRound),
				slog.Any("error", err),
			)
		}

		if err := sleep(ctx, a.cfg.SettleDelay); err != nil {
			return err
		}
	}
}

func (a *Agent) register(ctx context.Context) error {
	var lastErr error
	for attempt := 1; attempt <= a.cfg.RegisterAttempts; attempt++ {
		reg, err := a.sdk.Register(a.cfg.ClientID)
		if err == nil {
			a.logger.Info("registration accepted",
				slog.String("client_id", reg.ClientID),
				slog.Int("total_registered", reg.TotalRegistered),
			)

			return nil
		}

		var sdkErr *sdk.Error
		if errors.As(err, &sdkErr) && sdkErr.StatusCode == http.StatusBadRequest {
			return fmt.Errorf("registration rejected for %s: %w", a.cfg.ClientID, err)
		}

		lastErr = err
		a.logger.Warn("registration attempt failed",
			slog.Int("attempt", attempt),
			slog.Any("error", err),
		)
		if err := sleep(ctx, a.cfg.RegisterDelay); err != nil {
			return err
		}
	}

	return fmt.Errorf("registration failed after %d attempts: %w", a.cfg.RegisterAttempts, lastErr)
}

// runRound executes one open round: fetch, train, submit, exit barrier. The
// round number always comes from the server status, never a local counter.
func (a *Agent) runRound(ctx context.Context, status round.Status) error {
	currentRound := status.CurrentRound

	snapshot, err := a.sdk.GetWeights()
	if err != nil {
		return fmt.Errorf("failed to fetch global parameters: %w", err)
	}

	if !a.configured {
		if err := a.trainer.Configure(snapshot.ModelConfig); err != nil {
			return fmt.Errorf("failed to configure trainer: %w", err)
		}
		a.configured = true
	}

	global, err := params.Decode(snapshot.Weights)
	if err != nil {
		return fmt.Errorf("failed to decode global parameters: %w", err)
	}

	a.logger.Info("training",
		slog.Int("round", currentRound),
		slog.Int("total_rounds", status.TotalRounds),
	)

	trained, numSamples, steps, err := a.trainer.Train(ctx, global)
	if err != nil {
		return fmt.Errorf("local training failed: %w", err)
	}

	ack, err := a.sdk.SubmitUpdate(sdk.UpdateRequest{
		ClientID:      a.cfg.ClientID,
		Weights:       params.Encode(trained),
		NumSamples:    numSamples,
		TrainingSteps: steps,
	})
	if err != nil {
		return fmt.Errorf("failed to submit update: %w", err)
	}

	a.logger.Info("update accepted",
		slog.Int("round", ack.Round),
		slog.Int("updates_received", ack.UpdatesReceived),
	)

	a.exitBarrier(ctx, currentRound)

	return nil
}

// exitBarrier waits until the submitted round has been aggregated: the
// server round moved past ours, or the full update set is in with
// aggregation done and training closed. Bounded; timing out is a warning,
// not an error, since the next entry barrier re-synchronizes.
func (a *Agent) exitBarrier(ctx context.Context, currentRound int) {
	deadline := time.Now().Add(a.cfg.ExitTimeout)
	for time.Now().Before(deadline) {
		if err := sleep(ctx, a.cfg.ExitPoll); err != nil {
			return
		}

		status, err := a.sdk.Status()
		if err != nil {
			a.logger.Warn("status poll failed during exit barrier", slog.Any("error", err))

			continue
		}

		if status.CurrentRound > currentRound {
			return
		}
		if status.UpdatesReceived >= status.ExpectedClients && status.AggregationDone && !status.IsTraining {
			return
		}
	}

	a.logger.Warn("exit barrier timed out, proceeding",
		slog.Int("round", currentRound),
		slog.Duration("timeout", a.cfg.ExitTimeout),
	)
}

func (a *Agent) presenceLoop(ctx context.Context) {
	topic := fmt.Sprintf(aliveTopicTemplate, a.cfg.ClientID)
	ticker := time.NewTicker(a.cfg.PresencePeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("stopping presence updates")

			return
		case <-ticker.C:
			payload := map[string]any{
				"status":    "alive",
				"client_id": a.cfg.ClientID,
			}
			if err := a.pubsub.Publish(ctx, topic, payload); err != nil {
				a.logger.Error("failed to publish presence message", slog.Any("error", err))
			}
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
