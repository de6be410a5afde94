package badger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/absmach/flotilla/round"
)

type metricsRepo struct {
	db *Database
}

func NewMetricsRepository(db *Database) MetricsRepository {
	return &metricsRepo{db: db}
}

// Keys are zero-padded round numbers so the badger iterator returns the
// history in round order.
func metricsKey(r int) []byte {
	return fmt.Appendf([]byte{}, "rm:%010d", r)
}

func (r *metricsRepo) Append(ctx context.Context, rec round.MetricsRecord) error {
	val, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}

	return r.db.set(metricsKey(rec.Round), val)
}

func (r *metricsRepo) List(ctx context.Context, offset, limit uint64) ([]round.MetricsRecord, uint64, error) {
	prefix := []byte("rm:")
	total, err := r.db.countWithPrefix(prefix)
	if err != nil {
		return nil, 0, err
	}
	values, err := r.db.listWithPrefix(prefix, offset, limit)
	if err != nil {
		return nil, 0, err
	}

	records := make([]round.MetricsRecord, len(values))
	for i, val := range values {
		var rec round.MetricsRecord
		if err := json.Unmarshal(val, &rec); err != nil {
			return nil, 0, fmt.Errorf("unmarshal error: %w", err)
		}
		records[i] = rec
	}

	return records, total, nil
}
