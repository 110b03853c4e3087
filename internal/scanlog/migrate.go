package scanlog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// migrations are applied in order on startup. Statements must be idempotent.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS scans (
		id         BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		mode       TEXT NOT NULL,
		text       TEXT NOT NULL,
		extracted  TEXT NOT NULL DEFAULT '',
		confidence DOUBLE PRECISION NOT NULL,
		accepted   BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS scans_created_at_idx ON scans (created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS transcripts (
		id         BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		text       TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// Migrate ensures the journal schema exists.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for i, stmt := range migrations {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("scanlog: migration %d: %w", i, err)
		}
	}
	return nil
}
