package storage

import (
	"context"

	"github.com/absmach/flotilla/round"
)

// MetricsStore persists the ordered history of per-round evaluation
// results. Records are append-only; backends must return them ordered by
// round number.
type MetricsStore interface {
	Append(ctx context.Context, rec round.MetricsRecord) error
	List(ctx context.Context, offset, limit uint64) (round.MetricsPage, error)
}
