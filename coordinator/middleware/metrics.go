package middleware

import (
	"context"
	"time"

	"github.com/absmach/flotilla/coordinator"
	"github.com/absmach/flotilla/round"
	"github.com/go-kit/kit/metrics"
)

var _ coordinator.Service = (*metricsMiddleware)(nil)

type metricsMiddleware struct {
	counter metrics.Counter
	latency metrics.Histogram
	svc     coordinator.Service
}

func Metrics(counter metrics.Counter, latency metrics.Histogram, svc coordinator.Service) coordinator.Service {
	return &metricsMiddleware{
		counter: counter,
		latency: latency,
		svc:     svc,
	}
}

func (mm *metricsMiddleware) Register(ctx context.Context, clientID string) (round.Registration, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "register").Add(1)
		mm.latency.With("method", "register").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Register(ctx, clientID)
}

func (mm *metricsMiddleware) StartRound(ctx context.Context) (round.StartResult, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "start-round").Add(1)
		mm.latency.With("method", "start-round").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.StartRound(ctx)
}

func (mm *metricsMiddleware) GlobalParameters(ctx context.Context) (round.ModelSnapshot, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "get-weights").Add(1)
		mm.latency.With("method", "get-weights").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.GlobalParameters(ctx)
}

func (mm *metricsMiddleware) SubmitUpdate(ctx context.Context, update round.Update) (round.Ack, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "submit-update").Add(1)
		mm.latency.With("method", "submit-update").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.SubmitUpdate(ctx, update)
}

func (mm *metricsMiddleware) Status(ctx context.Context) (round.Status, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "status").Add(1)
		mm.latency.With("method", "status").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Status(ctx)
}

func (mm *metricsMiddleware) Metrics(ctx context.Context, offset, limit uint64) (round.MetricsPage, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "list-metrics").Add(1)
		mm.latency.With("method", "list-metrics").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Metrics(ctx, offset, limit)
}
