package coordinator

import (
	"context"
	"errors"
	"log/slog"

	"github.com/absmach/flotilla/round"
	"github.com/robfig/cron/v3"
)

// Scheduler starts rounds on a cron schedule, as an alternative to an
// external driver calling the start endpoint. Ticks that land while a round
// is still open, or before every client has registered, are skipped.
type Scheduler struct {
	svc    Service
	cron   *cron.Cron
	logger *slog.Logger
}

func NewScheduler(svc Service, spec string, logger *slog.Logger) (*Scheduler, error) {
	s := &Scheduler{
		svc:    svc,
		cron:   cron.New(),
		logger: logger,
	}

	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}

func (s *Scheduler) tick() {
	ctx := context.Background()

	status, err := s.svc.Status(ctx)
	if err != nil {
		s.logger.Warn("scheduled round: status check failed", slog.Any("error", err))

		return
	}
	if status.IsTraining {
		s.logger.Debug("scheduled round skipped: round still open",
			slog.Int("round", status.CurrentRound),
		)

		return
	}

	res, err := s.svc.StartRound(ctx)
	switch {
	case errors.Is(err, round.ErrNotAllRegistered):
		s.logger.Debug("scheduled round skipped: registration incomplete")
	case err != nil:
		s.logger.Warn("scheduled round start failed", slog.Any("error", err))
	case !res.Started:
		s.logger.Info("scheduled rounds finished: all rounds complete",
			slog.Int("total_rounds", res.TotalRounds),
		)
		s.cron.Stop()
	default:
		s.logger.Info("scheduled round started",
			slog.Int("round", res.Round),
			slog.Int("total_rounds", res.TotalRounds),
		)
	}
}
