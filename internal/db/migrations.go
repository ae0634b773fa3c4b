package db

import (
	"context"
	"database/sql"
	"fmt"
)

// Migrate applies every migration newer than the recorded schema version.
// Each migration runs in its own transaction together with its version row.
func Migrate(ctx context.Context, database *sql.DB, dialect Dialect) error {
	_, err := database.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	current, err := CurrentVersion(ctx, database)
	if err != nil {
		return err
	}

	insertVersion := "INSERT INTO schema_version (version) VALUES (?)"
	if dialect == DialectPostgres {
		insertVersion = "INSERT INTO schema_version (version) VALUES ($1)"
	}

	for _, migration := range migrations {
		if migration.Version <= current {
			continue
		}

		tx, err := database.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", migration.Version, err)
		}

		for _, stmt := range migration.statements(dialect) {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				tx.Rollback()
				return fmt.Errorf("migration %d (%s) failed: %w", migration.Version, migration.Name, err)
			}
		}

		if _, err := tx.ExecContext(ctx, insertVersion, migration.Version); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}

// CurrentVersion returns the highest applied migration version, 0 for a fresh database.
func CurrentVersion(ctx context.Context, database *sql.DB) (int, error) {
	var current int
	err := database.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&current)
	if err != nil {
		return 0, fmt.Errorf("failed to get current schema version: %w", err)
	}
	return current, nil
}
