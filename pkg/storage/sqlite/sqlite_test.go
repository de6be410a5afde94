package sqlite_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/absmach/flotilla/pkg/storage/sqlite"
	"github.com/absmach/flotilla/round"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var db *sqlite.Database

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "flotilla-sqlite-test")
	if err != nil {
		os.Exit(1)
	}

	db, err = sqlite.NewDatabase(filepath.Join(dir, "test.db"))
	if err != nil {
		os.RemoveAll(dir)
		os.Exit(1)
	}

	code := m.Run()

	db.Close()
	os.RemoveAll(dir)
	os.Exit(code)
}

func TestMetricsAppendAndList(t *testing.T) {
	repo := sqlite.NewMetricsRepository(db)
	ctx := context.Background()

	for i := 1; i <= 4; i++ {
		err := repo.Append(ctx, round.MetricsRecord{
			Round:     i,
			Accuracy:  float64(i) * 0.2,
			Loss:      2.0 - float64(i)*0.3,
			Timestamp: time.Now().UTC(),
		})
		require.NoError(t, err)
	}

	records, total, err := repo.List(ctx, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), total)
	require.Len(t, records, 4)
	assert.Equal(t, 1, records[0].Round)
	assert.Equal(t, 4, records[3].Round)
	assert.InDelta(t, 0.8, records[3].Accuracy, 1e-9)
}

func TestMetricsAppendSameRoundOverwrites(t *testing.T) {
	repo := sqlite.NewMetricsRepository(db)
	ctx := context.Background()

	first := round.MetricsRecord{Round: 99, Accuracy: 0.1, Loss: 1.0, Timestamp: time.Now().UTC()}
	require.NoError(t, repo.Append(ctx, first))

	second := first
	second.Accuracy = 0.9
	require.NoError(t, repo.Append(ctx, second))

	records, _, err := repo.List(ctx, 0, 1000)
	require.NoError(t, err)

	seen := 0
	for _, rec := range records {
		if rec.Round == 99 {
			seen++
			assert.InDelta(t, 0.9, rec.Accuracy, 1e-9)
		}
	}
	assert.Equal(t, 1, seen)
}

func TestMetricsListPagination(t *testing.T) {
	repo := sqlite.NewMetricsRepository(db)
	ctx := context.Background()

	for i := 200; i < 210; i++ {
		require.NoError(t, repo.Append(ctx, round.MetricsRecord{
			Round:     i,
			Accuracy:  0.5,
			Loss:      0.5,
			Timestamp: time.Now().UTC(),
		}))
	}

	records, total, err := repo.List(ctx, total200Offset(ctx, t, repo), 3)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, total, uint64(10))
	require.Len(t, records, 3)
	assert.Equal(t, 200, records[0].Round)
	assert.Equal(t, 202, records[2].Round)
}

// total200Offset finds the offset of round 200 so the pagination assertion
// stays independent of records created by other tests.
func total200Offset(ctx context.Context, t *testing.T, repo sqlite.MetricsRepository) uint64 {
	t.Helper()

	records, _, err := repo.List(ctx, 0, 100000)
	require.NoError(t, err)
	for i, rec := range records {
		if rec.Round == 200 {
			return uint64(i)
		}
	}
	t.Fatal("round 200 not found")

	return 0
}
