package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/absmach/flotilla/round"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	migrate "github.com/rubenv/sql-migrate"
)

var (
	ErrDBConnection = errors.New("database connection error")
	ErrDBQuery      = errors.New("database query error")
	ErrCreate       = errors.New("create error")
	ErrNotFound     = errors.New("not found")
)

type MetricsRepository interface {
	Append(ctx context.Context, rec round.MetricsRecord) error
	List(ctx context.Context, offset, limit uint64) ([]round.MetricsRecord, uint64, error)
}

type Database struct {
	*sqlx.DB
}

func NewDatabase(host, port, user, pass, name, sslMode string) (*Database, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s", host, port, user, pass, name, sslMode)
	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDBConnection, err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	database := &Database{DB: db}

	if err := database.Migrate(); err != nil {
		return nil, err
	}

	return database, nil
}

func (db *Database) Migrate() error {
	migrations := &migrate.MemoryMigrationSource{
		Migrations: []*migrate.Migration{
			{
				Id: "1_create_round_metrics",
				Up: []string{
					`CREATE TABLE IF NOT EXISTS round_metrics (
						round BIGINT PRIMARY KEY,
						accuracy DOUBLE PRECISION NOT NULL,
						loss DOUBLE PRECISION NOT NULL,
						timestamp TIMESTAMPTZ NOT NULL
					)`,
					`CREATE INDEX IF NOT EXISTS idx_round_metrics_timestamp ON round_metrics(timestamp)`,
				},
				Down: []string{
					`DROP INDEX IF EXISTS idx_round_metrics_timestamp`,
					`DROP TABLE IF EXISTS round_metrics`,
				},
			},
		},
	}

	if _, err := migrate.Exec(db.DB.DB, "postgres", migrations, migrate.Up); err != nil {
		return fmt.Errorf("database migration error: %w", err)
	}

	return nil
}
