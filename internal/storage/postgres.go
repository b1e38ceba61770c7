package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const defaultPostgresDSN = "postgres://localhost:5432/mixwatch?sslmode=disable"

// PostgresKV stores client state in a shared Postgres database so several
// workstations see the same seen sets.
type PostgresKV struct {
	db *sql.DB
}

// NewPostgresKV connects to dsn and creates the kv table if needed.
func NewPostgresKV(ctx context.Context, dsn string) (*PostgresKV, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = defaultPostgresDSN
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	kv := &PostgresKV{db: db}
	if err := kv.init(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return kv, nil
}

func (p *PostgresKV) init(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS mixwatch_kv (
		key TEXT PRIMARY KEY,
		value BYTEA NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("creating mixwatch_kv table: %w", err)
	}
	return nil
}

func (p *PostgresKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := p.db.QueryRowContext(ctx, "SELECT value FROM mixwatch_kv WHERE key = $1", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: reading %q: %v", ErrPersistence, key, err)
	}
	return value, true, nil
}

func (p *PostgresKV) Set(ctx context.Context, key string, value []byte) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO mixwatch_kv (key, value, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`, key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("%w: writing %q: %v", ErrPersistence, key, err)
	}
	return nil
}

func (p *PostgresKV) Delete(ctx context.Context, key string) error {
	if _, err := p.db.ExecContext(ctx, "DELETE FROM mixwatch_kv WHERE key = $1", key); err != nil {
		return fmt.Errorf("%w: deleting %q: %v", ErrPersistence, key, err)
	}
	return nil
}

func (p *PostgresKV) Close() error {
	return p.db.Close()
}
