package middleware

import (
	"context"

	"github.com/absmach/flotilla/coordinator"
	"github.com/absmach/flotilla/round"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var _ coordinator.Service = (*tracing)(nil)

type tracing struct {
	tracer trace.Tracer
	svc    coordinator.Service
}

func Tracing(tracer trace.Tracer, svc coordinator.Service) coordinator.Service {
	return &tracing{tracer, svc}
}

func (tm *tracing) Register(ctx context.Context, clientID string) (round.Registration, error) {
	ctx, span := tm.tracer.Start(ctx, "register", trace.WithAttributes(
		attribute.String("client_id", clientID),
	))
	defer span.End()

	return tm.svc.Register(ctx, clientID)
}

func (tm *tracing) StartRound(ctx context.Context) (round.StartResult, error) {
	ctx, span := tm.tracer.Start(ctx, "start-round")
	defer span.End()

	return tm.svc.StartRound(ctx)
}

func (tm *tracing) GlobalParameters(ctx context.Context) (round.ModelSnapshot, error) {
	ctx, span := tm.tracer.Start(ctx, "get-weights")
	defer span.End()

	return tm.svc.GlobalParameters(ctx)
}

func (tm *tracing) SubmitUpdate(ctx context.Context, update round.Update) (round.Ack, error) {
	ctx, span := tm.tracer.Start(ctx, "submit-update", trace.WithAttributes(
		attribute.String("client_id", update.ClientID),
		attribute.Int("num_samples", update.NumSamples),
		attribute.Int("training_steps", update.Steps),
	))
	defer span.End()

	return tm.svc.SubmitUpdate(ctx, update)
}

func (tm *tracing) Status(ctx context.Context) (round.Status, error) {
	ctx, span := tm.tracer.Start(ctx, "status")
	defer span.End()

	return tm.svc.Status(ctx)
}

func (tm *tracing) Metrics(ctx context.Context, offset, limit uint64) (round.MetricsPage, error) {
	ctx, span := tm.tracer.Start(ctx, "list-metrics", trace.WithAttributes(
		attribute.Int64("offset", int64(offset)),
		attribute.Int64("limit", int64(limit)),
	))
	defer span.End()

	return tm.svc.Metrics(ctx, offset, limit)
}
