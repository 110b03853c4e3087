// Package scanlog persists a journal of scan and transcription outcomes so
// technicians and back-office staff can review what was captured on site.
// The journal is optional: when no database is configured the app runs with
// a [Noop] journal.
package scanlog

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Entry is one journalled scan.
type Entry struct {
	ID         int64
	Mode       string
	Text       string
	Extracted  string
	Confidence float64
	Accepted   bool
	CreatedAt  time.Time
}

// Transcript is one journalled voice transcription.
type Transcript struct {
	ID        int64
	Text      string
	CreatedAt time.Time
}

// Journal records scan and transcription outcomes.
type Journal interface {
	// RecordScan journals one recognition outcome.
	RecordScan(ctx context.Context, e Entry) error
	// RecordTranscript journals one resolved transcription.
	RecordTranscript(ctx context.Context, text string) error
	// RecentScans returns up to limit entries, newest first.
	RecentScans(ctx context.Context, limit int) ([]Entry, error)
	// Close releases the journal's resources.
	Close()
}

// Compile-time interface checks.
var (
	_ Journal = (*Store)(nil)
	_ Journal = Noop{}
)

// Store is the PostgreSQL-backed journal. All operations are safe for
// concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore establishes a connection pool to the database at dsn and runs
// [Migrate] to ensure the journal tables exist.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("scanlog: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("scanlog: ping: %w", err)
	}
	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("scanlog: migrate: %w", err)
	}
	return &Store{pool: pool}, nil
}

// RecordScan implements [Journal].
func (s *Store) RecordScan(ctx context.Context, e Entry) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO scans (mode, text, extracted, confidence, accepted) VALUES ($1, $2, $3, $4, $5)`,
		e.Mode, e.Text, e.Extracted, e.Confidence, e.Accepted,
	)
	if err != nil {
		return fmt.Errorf("scanlog: record scan: %w", err)
	}
	return nil
}

// RecordTranscript implements [Journal].
func (s *Store) RecordTranscript(ctx context.Context, text string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO transcripts (text) VALUES ($1)`, text,
	)
	if err != nil {
		return fmt.Errorf("scanlog: record transcript: %w", err)
	}
	return nil
}

// RecentScans implements [Journal].
func (s *Store) RecentScans(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, mode, text, extracted, confidence, accepted, created_at
		 FROM scans ORDER BY created_at DESC LIMIT $1`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("scanlog: recent scans: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Mode, &e.Text, &e.Extracted, &e.Confidence, &e.Accepted, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanlog: scan row: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scanlog: iterate rows: %w", err)
	}
	return out, nil
}

// Ping reports whether the database is reachable. Used by readiness checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close implements [Journal].
func (s *Store) Close() {
	s.pool.Close()
}

// Noop is the journal used when no database is configured. All writes
// succeed and reads return nothing.
type Noop struct{}

// RecordScan implements [Journal].
func (Noop) RecordScan(context.Context, Entry) error { return nil }

// RecordTranscript implements [Journal].
func (Noop) RecordTranscript(context.Context, string) error { return nil }

// RecentScans implements [Journal].
func (Noop) RecentScans(context.Context, int) ([]Entry, error) { return nil, nil }

// Close implements [Journal].
func (Noop) Close() {}
