package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// serviceName is used for state directory paths. The daemon and the CLI
// share one database, so both use the default.
var serviceName = "xrealmd"

// SetServiceName sets the name used for state directory paths. Call at
// startup before Open if a tool needs an isolated database.
func SetServiceName(name string) {
	serviceName = name
}

// Store provides principal and attribute registry operations.
type Store struct {
	db *sql.DB
}

// DefaultPath returns the default database path following XDG spec.
func DefaultPath() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, _ := os.UserHomeDir()
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, serviceName, serviceName+".db")
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// WAL mode allows the daemon to read committed attribute changes
	// immediately while the CLI writes them from another process.
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Without a busy timeout, concurrent writes immediately return
	// SQLITE_BUSY instead of waiting for the other writer.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate creates the schema if it doesn't exist.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS principals (
		name TEXT PRIMARY KEY,
		created_at INTEGER DEFAULT (strftime('%s', 'now'))
	);

	CREATE TABLE IF NOT EXISTS principal_attributes (
		principal TEXT NOT NULL REFERENCES principals(name) ON DELETE CASCADE,
		attr_key TEXT NOT NULL,
		attr_value TEXT NOT NULL DEFAULT '',
		created_at INTEGER DEFAULT (strftime('%s', 'now')),
		PRIMARY KEY (principal, attr_key)
	);
	CREATE INDEX IF NOT EXISTS idx_principal_attributes_principal ON principal_attributes(principal);

	CREATE TABLE IF NOT EXISTS decision_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp INTEGER NOT NULL,
		request_id TEXT DEFAULT '',
		client TEXT NOT NULL,
		origin_realm TEXT NOT NULL,
		service TEXT NOT NULL,
		edge TEXT NOT NULL,
		outcome TEXT NOT NULL,
		reason TEXT NOT NULL,
		rule TEXT DEFAULT '',
		enforcing INTEGER NOT NULL,
		duration_us INTEGER NOT NULL,
		created_at INTEGER DEFAULT (strftime('%s', 'now'))
	);
	CREATE INDEX IF NOT EXISTS idx_decision_log_timestamp ON decision_log(timestamp);
	CREATE INDEX IF NOT EXISTS idx_decision_log_outcome ON decision_log(outcome);
	CREATE INDEX IF NOT EXISTS idx_decision_log_edge ON decision_log(edge);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection.
// This should only be used in tests to manipulate state for testing edge cases.
func (s *Store) DB() *sql.DB {
	return s.db
}
