// Package sqlstore_test contains integration tests for the SQL store.
//
// # Schema Protection
//
// This file is the SINGLE POINT where the database schema is loaded for tests.
// All test setup functions use db.GetSchemaSQL() to ensure tests run against
// the authoritative schema, preventing drift between test and production.
package sqlstore_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/Mmartinrusso/Orvit-sub062/internal/adapters/sqlstore"
	"github.com/Mmartinrusso/Orvit-sub062/internal/core/lifecycle"
	"github.com/Mmartinrusso/Orvit-sub062/internal/db"
	"github.com/Mmartinrusso/Orvit-sub062/internal/ports/secondary"
)

var bothScopes = []lifecycle.Scope{lifecycle.ScopeStandard, lifecycle.ScopeExtended}

// setupTestDB creates an in-memory database with the authoritative schema.
// A single connection keeps every statement on the same in-memory database.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	testDB, err := sql.Open("sqlite3", db.SQLiteDSN(":memory:", time.Second))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	testDB.SetMaxOpenConns(1)

	if _, err := testDB.Exec(db.GetSchemaSQL(db.DialectSQLite)); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	t.Cleanup(func() {
		testDB.Close()
	})

	return testDB
}

func setupTestStore(t *testing.T) *sqlstore.Store {
	t.Helper()
	return sqlstore.New(setupTestDB(t), db.DialectSQLite, zerolog.Nop())
}

// inTx runs fn in a committed transaction and fails the test on error.
func inTx(t *testing.T, store *sqlstore.Store, fn func(ctx context.Context, tx secondary.Tx) error) {
	t.Helper()
	if err := store.WithinTx(context.Background(), fn); err != nil {
		t.Fatalf("transaction failed: %v", err)
	}
}

// seedDocument inserts a document and returns it.
func seedDocument(t *testing.T, store *sqlstore.Store, doc *lifecycle.Document) *lifecycle.Document {
	t.Helper()
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	if doc.TenantID == "" {
		doc.TenantID = "t1"
	}
	if doc.Type == "" {
		doc.Type = lifecycle.TypeWorkOrder
	}
	if doc.State == "" {
		doc.State = "ABIERTA"
	}
	if doc.Scope == "" {
		doc.Scope = lifecycle.ScopeStandard
	}
	if doc.Version == 0 {
		doc.Version = 1
	}
	if doc.CreatedBy == "" {
		doc.CreatedBy = "ana"
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = doc.CreatedAt
	doc.EffectiveDate = doc.CreatedAt

	inTx(t, store, func(ctx context.Context, tx secondary.Tx) error {
		return tx.Documents().Insert(ctx, doc)
	})
	return doc
}
