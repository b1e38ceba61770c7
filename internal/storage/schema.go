package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// migration moves the state database from version-1 to version. The
// version is kept in PRAGMA user_version and bumped in the same transaction.
type migration struct {
	version int
	name    string
	apply   func(tx *sql.Tx) error
}

var migrations = []migration{
	{version: 1, name: "create kv", apply: createKV},
	{version: 2, name: "kv without rowid", apply: rebuildKVWithoutRowID},
}

func schemaVersion() int { return migrations[len(migrations)-1].version }

// OpenDB opens the SQLite state database at dbPath, creating parent
// directories and migrating the schema as needed.
func OpenDB(dbPath string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("creating parent directories: %w", err)
	}

	// Pragmas in the DSN apply to every pooled connection.
	dsn := "file:" + dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	version, err := readVersion(db)
	if err == nil {
		err = migrate(db, version, dbPath)
	}
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// readVersion returns PRAGMA user_version. Databases written before the
// version moved there carry it in a schema_version table instead.
func readVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("reading user_version: %w", err)
	}
	if version != 0 {
		return version, nil
	}

	var n int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("checking legacy schema_version table: %w", err)
	}
	if n == 0 {
		return 0, nil
	}
	err = db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading legacy schema version: %w", err)
	}
	return version, nil
}

func migrate(db *sql.DB, from int, dbPath string) error {
	if from > schemaVersion() {
		return fmt.Errorf(
			"state database schema version %d is newer than this mixwatch supports (max: %d); upgrade mixwatch or delete %s to start fresh",
			from, schemaVersion(), dbPath,
		)
	}

	for _, m := range migrations {
		if m.version <= from {
			continue
		}
		if err := applyStep(db, m); err != nil {
			return fmt.Errorf("migration v%d→v%d (%s): %w", m.version-1, m.version, m.name, err)
		}
	}
	return nil
}

func applyStep(db *sql.DB, m migration) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := m.apply(tx); err != nil {
		return err
	}
	// PRAGMA arguments cannot be bound.
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.version)); err != nil {
		return fmt.Errorf("setting user_version: %w", err)
	}
	return tx.Commit()
}

func createKV(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value BLOB NOT NULL,
			updated_at TEXT NOT NULL
		)
	`)
	return err
}

// rebuildKVWithoutRowID copies kv into a clustered table keyed by key and
// drops the legacy schema_version table.
func rebuildKVWithoutRowID(tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE kv_v2 (
			key TEXT PRIMARY KEY,
			value BLOB NOT NULL,
			updated_at TEXT NOT NULL
		) WITHOUT ROWID`,
		`INSERT INTO kv_v2 (key, value, updated_at) SELECT key, value, updated_at FROM kv`,
		`DROP TABLE kv`,
		`ALTER TABLE kv_v2 RENAME TO kv`,
		`DROP TABLE IF EXISTS schema_version`,
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
