package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// migrations contains all database migrations in order.
// Each migration has a version key and SQL to execute.
var migrations = []struct {
	Version string
	SQL     string
}{
	{
		Version: "000001_create_activities",
		SQL: `
			CREATE TABLE IF NOT EXISTS activities (
				id               VARCHAR(36)      PRIMARY KEY,
				user_id          VARCHAR(64)      NOT NULL,
				type             VARCHAR(255)     NOT NULL DEFAULT '',
				value            DOUBLE PRECISION NOT NULL DEFAULT 0,
				carbon_footprint DOUBLE PRECISION NOT NULL DEFAULT 0,
				date             TIMESTAMPTZ      NOT NULL,
				created_at       TIMESTAMPTZ      NOT NULL DEFAULT NOW(),
				updated_at       TIMESTAMPTZ      NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_activities_user_created ON activities(user_id, created_at DESC);
			CREATE INDEX IF NOT EXISTS idx_activities_user_date ON activities(user_id, date DESC);
		`,
	},
}

// DB owns the Postgres pool behind Repository.
type DB struct {
	Pool *pgxpool.Pool
}

// New creates a new database connection pool.
func New(ctx context.Context, databaseURL string) (*DB, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	config.MaxConnIdleTime = 60 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	slog.Info("connected to database", "driver", "postgres")
	return &DB{Pool: pool}, nil
}

// RunMigrations applies pending migrations, each in its own transaction.
func (db *DB) RunMigrations(ctx context.Context) error {
	_, err := db.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    VARCHAR(255) PRIMARY KEY,
			applied_at TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	for _, m := range migrations {
		applied := false
		err := pgx.BeginFunc(ctx, db.Pool, func(tx pgx.Tx) error {
			tag, err := tx.Exec(ctx,
				"INSERT INTO schema_migrations (version) VALUES ($1) ON CONFLICT DO NOTHING",
				m.Version,
			)
			if err != nil {
				return fmt.Errorf("failed to record migration: %w", err)
			}
			if tag.RowsAffected() == 0 {
				return nil
			}
			if _, err := tx.Exec(ctx, m.SQL); err != nil {
				return fmt.Errorf("failed to execute migration: %w", err)
			}
			applied = true
			return nil
		})
		if err != nil {
			return fmt.Errorf("migration %s: %w", m.Version, err)
		}
		if applied {
			slog.Info("applied migration", "version", m.Version)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is alive.
func (db *DB) HealthCheck(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// Close shuts down the connection pool.
func (db *DB) Close() {
	db.Pool.Close()
}
