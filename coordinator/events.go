package coordinator

import (
	"context"
	"log/slog"
)

// Round lifecycle topics. Events are observer-facing: clients drive the
// protocol by polling status, never by consuming these.
const (
	RoundStartTopic    = "flotilla/rounds/start"
	RoundCompleteTopic = "flotilla/rounds/complete"
)

type RoundEvent struct {
	Round       int    `json:"round"`
	TotalRounds int    `json:"total_rounds"`
	Method      string `json:"method"`
	Updates     int    `json:"updates,omitempty"`
}

func (svc *service) publish(ctx context.Context, topic string, event RoundEvent) {
	if svc.pubsub == nil {
		return
	}

	if err := svc.pubsub.Publish(ctx, topic, event); err != nil {
		svc.logger.Warn("failed to publish round event",
			slog.String("topic", topic),
			slog.Int("round", event.Round),
			slog.Any("error", err),
		)
	}
}
