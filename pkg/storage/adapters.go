package storage

import (
	"context"

	"github.com/absmach/flotilla/pkg/storage/badger"
	"github.com/absmach/flotilla/pkg/storage/postgres"
	"github.com/absmach/flotilla/pkg/storage/sqlite"
	"github.com/absmach/flotilla/round"
)

type sqliteAdapter struct {
	repo sqlite.MetricsRepository
}

func (a *sqliteAdapter) Append(ctx context.Context, rec round.MetricsRecord) error {
	return a.repo.Append(ctx, rec)
}

func (a *sqliteAdapter) List(ctx context.Context, offset, limit uint64) (round.MetricsPage, error) {
	records, total, err := a.repo.List(ctx, offset, limit)
	if err != nil {
		return round.MetricsPage{}, err
	}

	return round.MetricsPage{
		Offset:  offset,
		Limit:   limit,
		Total:   total,
		Metrics: records,
	}, nil
}

type postgresAdapter struct {
	repo postgres.MetricsRepository
}

func (a *postgresAdapter) Append(ctx context.Context, rec round.MetricsRecord) error {
	return a.repo.Append(ctx, rec)
}

func (a *postgresAdapter) List(ctx context.Context, offset, limit uint64) (round.MetricsPage, error) {
	records, total, err := a.repo.List(ctx, offset, limit)
	if err != nil {
		return round.MetricsPage{}, err
	}

	return round.MetricsPage{
		Offset:  offset,
		Limit:   limit,
		Total:   total,
		Metrics: records,
	}, nil
}

type badgerAdapter struct {
	repo badger.MetricsRepository
}

func (a *badgerAdapter) Append(ctx context.Context, rec round.MetricsRecord) error {
	return a.repo.Append(ctx, rec)
}

func (a *badgerAdapter) List(ctx context.Context, offset, limit uint64) (round.MetricsPage, error) {
	records, total, err := a.repo.List(ctx, offset, limit)
	if err != nil {
		return round.MetricsPage{}, err
	}

	return round.MetricsPage{
		Offset:  offset,
		Limit:   limit,
		Total:   total,
		Metrics: records,
	}, nil
}
