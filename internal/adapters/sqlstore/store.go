// Package sqlstore implements the persistence ports on database/sql for
// SQLite (mattn/go-sqlite3) and PostgreSQL (pgx stdlib). Queries are composed
// with squirrel so both dialects share one set of repositories.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/rs/zerolog"

	"github.com/Mmartinrusso/Orvit-sub062/internal/db"
	"github.com/Mmartinrusso/Orvit-sub062/internal/ports/secondary"
)

// Store implements secondary.Store.
type Store struct {
	db      *sql.DB
	dialect db.Dialect
	sb      sq.StatementBuilderType
	logger  zerolog.Logger
}

var _ secondary.Store = (*Store)(nil)

// New creates a store over an open, migrated database.
func New(database *sql.DB, dialect db.Dialect, logger zerolog.Logger) *Store {
	var placeholder sq.PlaceholderFormat = sq.Question
	if dialect == db.DialectPostgres {
		placeholder = sq.Dollar
	}
	return &Store{
		db:      database,
		dialect: dialect,
		sb:      sq.StatementBuilder.PlaceholderFormat(placeholder),
		logger:  logger.With().Str("component", "sqlstore").Logger(),
	}
}

// Dialect names the backing database.
func (s *Store) Dialect() string { return string(s.dialect) }

// TxOptions returns the options every transaction begins with. PostgreSQL
// runs serializable so the uniqueness scan and the period lock read cannot
// race a concurrent commit; conflicts surface as SQLSTATE 40001. SQLite
// transactions already hold the write lock from BEGIN IMMEDIATE.
func (s *Store) TxOptions() *sql.TxOptions {
	if s.dialect == db.DialectPostgres {
		return &sql.TxOptions{Isolation: sql.LevelSerializable}
	}
	return nil
}

// WithinTx runs fn inside one transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx secondary.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, s.TxOptions())
	if err != nil {
		return classify(fmt.Errorf("failed to begin transaction: %w", err))
	}

	if err := fn(ctx, s.bind(sqlTx)); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			s.logger.Warn().Err(rbErr).Msg("rollback failed")
		}
		return classify(err)
	}

	if err := sqlTx.Commit(); err != nil {
		return classify(fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

func (s *Store) bind(sqlTx *sql.Tx) *txn {
	base := repoBase{tx: sqlTx, sb: s.sb}
	return &txn{
		documents: &DocumentRepository{repoBase: base},
		events:    &EventRepository{repoBase: base},
		rules:     &ApprovalRuleRepository{repoBase: base},
		policies:  &DuplicatePolicyRepository{repoBase: base},
		locks:     &PeriodLockRepository{repoBase: base},
		inventory: &InventoryRepository{repoBase: base},
		records:   &DerivedRecordRepository{repoBase: base},
	}
}

type txn struct {
	documents *DocumentRepository
	events    *EventRepository
	rules     *ApprovalRuleRepository
	policies  *DuplicatePolicyRepository
	locks     *PeriodLockRepository
	inventory *InventoryRepository
	records   *DerivedRecordRepository
}

func (t *txn) Documents() secondary.DocumentRepository                { return t.documents }
func (t *txn) Events() secondary.EventRepository                      { return t.events }
func (t *txn) Rules() secondary.ApprovalRuleRepository                { return t.rules }
func (t *txn) DuplicatePolicies() secondary.DuplicatePolicyRepository { return t.policies }
func (t *txn) PeriodLocks() secondary.PeriodLockRepository            { return t.locks }
func (t *txn) Inventory() secondary.InventoryRepository               { return t.inventory }
func (t *txn) Records() secondary.DerivedRecordRepository             { return t.records }

// repoBase is embedded by every repository: the open transaction and a
// statement builder using the dialect's placeholder format.
type repoBase struct {
	tx *sql.Tx
	sb sq.StatementBuilderType
}

type sqlizer interface {
	ToSql() (string, []any, error)
}

func (r repoBase) exec(ctx context.Context, q sqlizer) (sql.Result, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	return r.tx.ExecContext(ctx, query, args...)
}

func (r repoBase) query(ctx context.Context, q sqlizer) (*sql.Rows, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	return r.tx.QueryContext(ctx, query, args...)
}

func (r repoBase) queryRow(ctx context.Context, q sqlizer) (*sql.Row, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	return r.tx.QueryRowContext(ctx, query, args...), nil
}
