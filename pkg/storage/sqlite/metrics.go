package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/absmach/flotilla/round"
)

type metricsRepo struct {
	db *Database
}

func NewMetricsRepository(db *Database) MetricsRepository {
	return &metricsRepo{db: db}
}

type dbMetrics struct {
	Round     int       `db:"round"`
	Accuracy  float64   `db:"accuracy"`
	Loss      float64   `db:"loss"`
	Timestamp time.Time `db:"timestamp"`
}

func (r *metricsRepo) Append(ctx context.Context, rec round.MetricsRecord) error {
	query := `INSERT INTO round_metrics (round, accuracy, loss, timestamp)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(round) DO UPDATE SET accuracy = excluded.accuracy, loss = excluded.loss, timestamp = excluded.timestamp`

	if _, err := r.db.ExecContext(ctx, query, rec.Round, rec.Accuracy, rec.Loss, rec.Timestamp); err != nil {
		return fmt.Errorf("%w: %w", ErrCreate, err)
	}

	return nil
}

func (r *metricsRepo) List(ctx context.Context, offset, limit uint64) ([]round.MetricsRecord, uint64, error) {
	var total uint64
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM round_metrics`); err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}

	query := `SELECT round, accuracy, loss, timestamp FROM round_metrics ORDER BY round LIMIT ? OFFSET ?`
	var rows []dbMetrics
	if err := r.db.SelectContext(ctx, &rows, query, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}

	records := make([]round.MetricsRecord, len(rows))
	for i, row := range rows {
		records[i] = round.MetricsRecord{
			Round:     row.Round,
			Accuracy:  row.Accuracy,
			Loss:      row.Loss,
			Timestamp: row.Timestamp,
		}
	}

	return records, total, nil
}
