package storage

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nixlim/mixwatch/internal/config"
)

const connectTimeout = 5 * time.Second

// NewKV builds the configured key-value store. When the configured backend
// cannot be opened it falls back to an in-memory store and reports false.
// An error is returned only for an unknown driver.
func NewKV(cfg config.StorageConfig) (KV, bool, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "postgres", "postgresql":
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		pg, err := NewPostgresKV(ctx, cfg.DSN)
		if err != nil {
			log.Printf("WARNING: Postgres storage unavailable (%v), falling back to in-memory store", err)
			return NewMemoryKV(), false, nil
		}
		return pg, true, nil
	case "", "sqlite":
		if cfg.DBPath == "" {
			return NewMemoryKV(), false, nil
		}
		s, err := NewSQLiteKV(expandTilde(cfg.DBPath))
		if err != nil {
			log.Printf("WARNING: SQLite storage unavailable (%v), falling back to in-memory store", err)
			return NewMemoryKV(), false, nil
		}
		return s, true, nil
	case "memory":
		return NewMemoryKV(), false, nil
	default:
		return nil, false, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func expandTilde(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
