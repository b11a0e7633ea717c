package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists the document audit trail in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS generated_documents (
			id TEXT PRIMARY KEY,
			workflow TEXT NOT NULL,
			file_name TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_generated_documents_created ON generated_documents (created_at);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) Record(ctx context.Context, rec DocumentRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO generated_documents (id, workflow, file_name, created_at)
		 VALUES ($1, $2, $3, $4)`,
		rec.ID,
		rec.Workflow,
		rec.FileName,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record document: %w", err)
	}
	return nil
}

func (s *PostgresStore) Stats(ctx context.Context) (Stats, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT workflow, COUNT(*) FROM generated_documents GROUP BY workflow`)
	if err != nil {
		return Stats{}, fmt.Errorf("archive stats: %w", err)
	}
	defer rows.Close()

	stats := Stats{ByWorkflow: make(map[string]int)}
	for rows.Next() {
		var workflow string
		var count int
		if err := rows.Scan(&workflow, &count); err != nil {
			return Stats{}, fmt.Errorf("archive stats: %w", err)
		}
		stats.ByWorkflow[workflow] = count
		stats.Total += count
	}
	if err := rows.Err(); err != nil {
		return Stats{}, fmt.Errorf("archive stats: %w", err)
	}
	return stats, nil
}

func (s *PostgresStore) Close(context.Context) error {
	s.pool.Close()
	return nil
}
