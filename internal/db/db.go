// Package db opens the lifecycle database and owns its schema.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// Dialect identifies the SQL database behind a connection.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// ParseDialect converts a configured driver name into a Dialect.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sqlite", "sqlite3":
		return DialectSQLite, nil
	case "postgres", "postgresql", "pgx":
		return DialectPostgres, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q (want sqlite or postgres)", s)
	}
}

// driverName returns the database/sql driver registered for the dialect.
func (d Dialect) driverName() string {
	if d == DialectPostgres {
		return "pgx"
	}
	return "sqlite3"
}

// Options configures Open.
type Options struct {
	Dialect     Dialect
	DSN         string        // file path for sqlite, connection URL for postgres
	BusyTimeout time.Duration // sqlite only
	MaxConns    int
}

// Open connects to the database and applies pending migrations.
// The caller owns the returned handle.
func Open(ctx context.Context, opts Options) (*sql.DB, error) {
	dsn := opts.DSN
	if opts.Dialect == DialectSQLite {
		if dsn == "" {
			path, err := DefaultPath()
			if err != nil {
				return nil, err
			}
			dsn = path
		}
		if dsn != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		dsn = SQLiteDSN(dsn, opts.BusyTimeout)
	}

	database, err := sql.Open(opts.Dialect.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if opts.MaxConns > 0 {
		database.SetMaxOpenConns(opts.MaxConns)
	}
	if err := database.PingContext(ctx); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := Migrate(ctx, database, opts.Dialect); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return database, nil
}

// SQLiteDSN decorates a sqlite path with the connection options the store
// relies on: foreign keys, a busy timeout, and immediate write transactions
// so that concurrent writers queue instead of failing on lock upgrade.
func SQLiteDSN(path string, busyTimeout time.Duration) string {
	if busyTimeout <= 0 {
		busyTimeout = 5 * time.Second
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s_foreign_keys=on&_busy_timeout=%d&_txlock=immediate", path, sep, busyTimeout.Milliseconds())
}

// DefaultPath returns the path of the default sqlite database file.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".doclife", "doclife.db"), nil
}
