package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/nerrad567/gray-logic-dialogue/internal/infrastructure/config"
)

const (
	dirPermissions    = 0750
	filePermissions   = 0600
	msPerSecond       = 1000
	connectionTimeout = 5 * time.Second
	connMaxIdleTime   = 30 * time.Minute
)

// DB wraps a sql.DB connection to the dialogue service's SQLite store.
// It holds the cached inventory snapshot tables and the migration ledger.
type DB struct {
	*sql.DB
	path string
}

// Open creates a new database connection from the database section of config.yaml.
//
// It creates the parent directory, applies busy timeout, foreign keys and
// (optionally) WAL pragmas through the connection string, limits the pool to
// a single writer and verifies the connection with a ping.
func Open(cfg config.DatabaseConfig) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), dirPermissions); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	// See: https://github.com/mattn/go-sqlite3#connection-string
	connStr := fmt.Sprintf("file:%s?_busy_timeout=%d&_foreign_keys=on",
		cfg.Path,
		cfg.BusyTimeout*msPerSecond,
	)
	if cfg.WALMode {
		connStr += "&_journal_mode=WAL&_synchronous=NORMAL"
	}

	db, err := open(connStr, cfg.Path)
	if err != nil {
		return nil, err
	}

	// Ignore error - the file may only appear after the first write
	_ = os.Chmod(cfg.Path, filePermissions) //nolint:errcheck // first run creates file later

	return db, nil
}

// OpenMemory opens a private in-memory database. The CLI uses it for
// one-shot runs and tests use it in place of a file.
func OpenMemory() (*DB, error) {
	return open("file::memory:?_foreign_keys=on", ":memory:")
}

func open(connStr, path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite only supports one writer; a single connection also keeps an
	// in-memory database alive for the lifetime of the pool.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	db := &DB{DB: sqlDB, path: path}

	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		sqlDB.Close() //nolint:errcheck // best effort cleanup on error path
		return nil, fmt.Errorf("verifying database connection: %w", err)
	}

	return db, nil
}

// Close closes the database connection gracefully.
func (db *DB) Close() error {
	if db.DB == nil {
		return nil
	}
	if err := db.DB.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

// Path returns the filesystem path to the database file.
func (db *DB) Path() string {
	return db.path
}

// HealthCheck verifies the database is accessible and functioning.
func (db *DB) HealthCheck(ctx context.Context) error {
	var result int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}
