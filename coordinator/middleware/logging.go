package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/absmach/flotilla/coordinator"
	"github.com/absmach/flotilla/round"
)

var _ coordinator.Service = (*loggingMiddleware)(nil)

type loggingMiddleware struct {
	logger *slog.Logger
	svc    coordinator.Service
}

func Logging(logger *slog.Logger, svc coordinator.Service) coordinator.Service {
	return &loggingMiddleware{
		logger: logger,
		svc:    svc,
	}
}

func (lm *loggingMiddleware) Register(ctx context.Context, clientID string) (resp round.Registration, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("client",
				slog.String("id", clientID),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Register client failed", args...)

			return
		}
		args = append(args, slog.Int("total_registered", resp.TotalRegistered))
		lm.logger.Info("Register client completed successfully", args...)
	}(time.Now())

	return lm.svc.Register(ctx, clientID)
}

func (lm *loggingMiddleware) StartRound(ctx context.Context) (resp round.StartResult, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("round",
				slog.Int("number", resp.Round),
				slog.Int("total", resp.TotalRounds),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Start round failed", args...)

			return
		}
		if !resp.Started {
			lm.logger.Info("Start round skipped: training complete", args...)

			return
		}
		lm.logger.Info("Start round completed successfully", args...)
	}(time.Now())

	return lm.svc.StartRound(ctx)
}

func (lm *loggingMiddleware) GlobalParameters(ctx context.Context) (resp round.ModelSnapshot, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Int("round", resp.Round),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Get global parameters failed", args...)

			return
		}
		lm.logger.Info("Get global parameters completed successfully", args...)
	}(time.Now())

	return lm.svc.GlobalParameters(ctx)
}

func (lm *loggingMiddleware) SubmitUpdate(ctx context.Context, update round.Update) (resp round.Ack, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("update",
				slog.String("client_id", update.ClientID),
				slog.Int("num_samples", update.NumSamples),
				slog.Int("training_steps", update.Steps),
			),
			slog.Int("round", resp.Round),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Submit update failed", args...)

			return
		}
		args = append(args, slog.Int("updates_received", resp.UpdatesReceived))
		lm.logger.Info("Submit update completed successfully", args...)
	}(time.Now())

	return lm.svc.SubmitUpdate(ctx, update)
}

func (lm *loggingMiddleware) Status(ctx context.Context) (resp round.Status, err error) {
	defer func(begin time.Time) {
		if err != nil {
			lm.logger.Warn("Get status failed",
				slog.String("duration", time.Since(begin).String()),
				slog.Any("error", err),
			)

			return
		}
		// Debug level: clients poll status every few seconds.
		lm.logger.Debug("Get status completed successfully",
			slog.String("duration", time.Since(begin).String()),
			slog.String("phase", resp.Phase().String()),
			slog.Int("round", resp.CurrentRound),
		)
	}(time.Now())

	return lm.svc.Status(ctx)
}

func (lm *loggingMiddleware) Metrics(ctx context.Context, offset, limit uint64) (resp round.MetricsPage, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Uint64("offset", offset),
			slog.Uint64("limit", limit),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("List metrics failed", args...)

			return
		}
		lm.logger.Info("List metrics completed successfully", args...)
	}(time.Now())

	return lm.svc.Metrics(ctx, offset, limit)
}
