package storage

import (
	"fmt"
	"io"

	"github.com/absmach/flotilla/pkg/storage/badger"
	"github.com/absmach/flotilla/pkg/storage/postgres"
	"github.com/absmach/flotilla/pkg/storage/sqlite"
)

type Config struct {
	Type string `env:"STORAGE_TYPE" envDefault:"file"`

	MetricsPath string `env:"METRICS_PATH" envDefault:"results/metrics.json"`

	PostgresHost    string `env:"POSTGRES_HOST"    envDefault:"localhost"`
	PostgresPort    string `env:"POSTGRES_PORT"    envDefault:"5432"`
	PostgresUser    string `env:"POSTGRES_USER"    envDefault:"flotilla"`
	PostgresPass    string `env:"POSTGRES_PASS"    envDefault:"flotilla"`
	PostgresDB      string `env:"POSTGRES_DB"      envDefault:"flotilla"`
	PostgresSSLMode string `env:"POSTGRES_SSLMODE" envDefault:"disable"`

	SQLitePath string `env:"SQLITE_PATH" envDefault:"./flotilla.db"`

	BadgerPath string `env:"BADGER_PATH" envDefault:"./data/badger"`
}

// NewMetricsStore builds the configured metrics history backend. The
// returned Closer shuts down the underlying database connection and is nil
// for the file and memory backends.
func NewMetricsStore(cfg Config) (MetricsStore, io.Closer, error) {
	switch cfg.Type {
	case "file":
		store, err := NewFileStore(cfg.MetricsPath)

		return store, nil, err
	case "memory":
		return NewMemoryStore(), nil, nil
	case "sqlite":
		db, err := sqlite.NewDatabase(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}

		return &sqliteAdapter{repo: sqlite.NewMetricsRepository(db)}, db, nil
	case "postgres":
		db, err := postgres.NewDatabase(
			cfg.PostgresHost,
			cfg.PostgresPort,
			cfg.PostgresUser,
			cfg.PostgresPass,
			cfg.PostgresDB,
			cfg.PostgresSSLMode,
		)
		if err != nil {
			return nil, nil, err
		}

		return &postgresAdapter{repo: postgres.NewMetricsRepository(db)}, db, nil
	case "badger":
		db, err := badger.NewDatabase(cfg.BadgerPath)
		if err != nil {
			return nil, nil, err
		}

		return &badgerAdapter{repo: badger.NewMetricsRepository(db)}, db, nil
	default:
		return nil, nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}
