package storage

import (
	"path/filepath"
	"testing"

	"github.com/nixlim/mixwatch/internal/config"
)

func TestFallback_SQLiteSuccess(t *testing.T) {
	cfg := config.StorageConfig{
		Driver: "sqlite",
		DBPath: filepath.Join(t.TempDir(), "state.db"),
	}

	kv, isPersistent, err := NewKV(cfg)
	if err != nil {
		t.Fatalf("NewKV failed: %v", err)
	}
	defer func() { _ = kv.Close() }()

	if !isPersistent {
		t.Error("expected isPersistent=true for valid DB path")
	}
	if _, ok := kv.(*SQLiteKV); !ok {
		t.Errorf("expected *SQLiteKV, got %T", kv)
	}
}

func TestFallback_UnwritablePath(t *testing.T) {
	cfg := config.StorageConfig{
		Driver: "sqlite",
		DBPath: "/nonexistent/deeply/nested/unwritable/path/state.db",
	}

	kv, isPersistent, err := NewKV(cfg)
	if err != nil {
		t.Fatalf("NewKV should not return error on fallback: %v", err)
	}
	defer func() { _ = kv.Close() }()

	if isPersistent {
		t.Error("expected isPersistent=false for unwritable path")
	}
	if _, ok := kv.(*MemoryKV); !ok {
		t.Errorf("expected *MemoryKV fallback, got %T", kv)
	}
}

func TestFallback_ExplicitInMemory(t *testing.T) {
	for _, cfg := range []config.StorageConfig{
		{Driver: "sqlite", DBPath: ""},
		{Driver: "memory"},
	} {
		kv, isPersistent, err := NewKV(cfg)
		if err != nil {
			t.Fatalf("NewKV(%+v) failed: %v", cfg, err)
		}
		if isPersistent {
			t.Errorf("expected isPersistent=false for %+v", cfg)
		}
		if _, ok := kv.(*MemoryKV); !ok {
			t.Errorf("expected *MemoryKV for %+v, got %T", cfg, kv)
		}
	}
}

func TestFallback_PostgresUnreachable(t *testing.T) {
	cfg := config.StorageConfig{
		Driver: "postgres",
		DSN:    "postgres://mixwatch@127.0.0.1:1/mixwatch?sslmode=disable&connect_timeout=1",
	}

	kv, isPersistent, err := NewKV(cfg)
	if err != nil {
		t.Fatalf("NewKV should not return error on fallback: %v", err)
	}
	defer func() { _ = kv.Close() }()

	if isPersistent {
		t.Error("expected isPersistent=false for unreachable postgres")
	}
	if _, ok := kv.(*MemoryKV); !ok {
		t.Errorf("expected *MemoryKV fallback, got %T", kv)
	}
}

func TestFallback_UnknownDriver(t *testing.T) {
	if _, _, err := NewKV(config.StorageConfig{Driver: "redis"}); err == nil {
		t.Error("expected error for unknown driver")
	}
}
