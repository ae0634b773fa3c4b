package sqlstore_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mmartinrusso/Orvit-sub062/internal/adapters/sqlstore"
	"github.com/Mmartinrusso/Orvit-sub062/internal/core/lifecycle"
	"github.com/Mmartinrusso/Orvit-sub062/internal/db"
	"github.com/Mmartinrusso/Orvit-sub062/internal/ports/secondary"
)

func newPostgresMock(t *testing.T) (*sqlstore.Store, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return sqlstore.New(mockDB, db.DialectPostgres, zerolog.Nop()), mock
}

func TestPostgres_TransactionsAreSerializable(t *testing.T) {
	store, mock := newPostgresMock(t)
	opts := store.TxOptions()
	require.NotNil(t, opts)
	assert.Equal(t, sql.LevelSerializable, opts.Isolation)
	assert.False(t, opts.ReadOnly)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO period_locks`).
		WillReturnError(&pgconn.PgError{Code: "40001", Message: "could not serialize access"})
	mock.ExpectRollback()

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx secondary.Tx) error {
		return tx.PeriodLocks().Upsert(ctx, &lifecycle.PeriodLock{TenantID: "t1", PeriodKey: "2026-03", Closed: true})
	})
	assert.ErrorIs(t, err, lifecycle.ErrConcurrentModification)
	assert.NoError(t, mock.ExpectationsWereMet())

	sqliteStore := sqlstore.New(nil, db.DialectSQLite, zerolog.Nop())
	assert.Nil(t, sqliteStore.TxOptions())
}

func TestPostgres_UpdateUsesDollarPlaceholdersAndVersionCheck(t *testing.T) {
	store, mock := newPostgresMock(t)
	doc := &lifecycle.Document{
		ID: "PR-1", TenantID: "t1", Type: lifecycle.TypePurchaseRequest,
		State: "APROBADA", Scope: lifecycle.ScopeStandard, Version: 3,
		UpdatedAt: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
	}

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE documents SET .* WHERE id = \$\d+ AND tenant_id = \$\d+ AND version = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx secondary.Tx) error {
		return tx.Documents().Update(ctx, doc, 2)
	})

	assert.ErrorIs(t, err, lifecycle.ErrConcurrentModification)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SerializationFailureIsConcurrentModification(t *testing.T) {
	store, mock := newPostgresMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO inventory_movements`).
		WillReturnError(&pgconn.PgError{Code: "40001", Message: "could not serialize access"})
	mock.ExpectRollback()

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx secondary.Tx) error {
		_, err := tx.Inventory().ApplyMovement(ctx, &lifecycle.InventoryMovement{
			TenantID: "t1", DocumentID: "LO-1", ItemID: "I-1", Delta: -2,
		})
		return err
	})

	assert.ErrorIs(t, err, lifecycle.ErrConcurrentModification)
	assert.True(t, lifecycle.IsRetryable(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CommitFailureIsClassified(t *testing.T) {
	store, mock := newPostgresMock(t)

	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(&pgconn.PgError{Code: "40P01"})

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx secondary.Tx) error {
		return nil
	})
	assert.ErrorIs(t, err, lifecycle.ErrConcurrentModification)
}

func TestPostgres_ForeignErrorsPassThrough(t *testing.T) {
	store, mock := newPostgresMock(t)
	boom := errors.New("connection reset")

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM documents WHERE`).WillReturnError(boom)
	mock.ExpectRollback()

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx secondary.Tx) error {
		_, err := tx.Documents().Get(ctx, "t1", "PR-1", []lifecycle.Scope{lifecycle.ScopeStandard})
		return err
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, lifecycle.KindInternal, lifecycle.KindOf(err))
}

func TestIsConflict(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "serialization failure", err: &pgconn.PgError{Code: "40001"}, want: true},
		{name: "unique violation", err: &pgconn.PgError{Code: "23505"}, want: true},
		{name: "check violation", err: &pgconn.PgError{Code: "23514"}, want: false},
		{name: "plain error", err: errors.New("nope"), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sqlstore.IsConflict(tt.err))
		})
	}
}
