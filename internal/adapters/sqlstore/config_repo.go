package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/Mmartinrusso/Orvit-sub062/internal/core/lifecycle"
	"github.com/Mmartinrusso/Orvit-sub062/internal/ports/secondary"
)

// ApprovalRuleRepository implements secondary.ApprovalRuleRepository.
type ApprovalRuleRepository struct {
	repoBase
}

var _ secondary.ApprovalRuleRepository = (*ApprovalRuleRepository)(nil)

// Get returns the rule for the type, nil when none is configured.
func (r *ApprovalRuleRepository) Get(ctx context.Context, tenantID string, docType lifecycle.DocumentType) (*lifecycle.ApprovalRule, error) {
	row, err := r.queryRow(ctx, r.sb.
		Select("threshold_amount", "urgency_triggers_json", "require_catalog_reference", "updated_by", "updated_at").
		From("approval_rules").
		Where(sq.Eq{"tenant_id": tenantID, "doc_type": string(docType)}))
	if err != nil {
		return nil, err
	}

	rule := &lifecycle.ApprovalRule{TenantID: tenantID, DocumentType: docType}
	var (
		triggers  string
		updatedAt time.Time
	)
	err = row.Scan(&rule.ThresholdAmount, &triggers, &rule.RequireCatalogReference, &rule.UpdatedBy, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get approval rule: %w", err)
	}
	rule.UpdatedAt = updatedAt.UTC()
	if err := decodeJSON(triggers, &rule.UrgencyTriggers); err != nil {
		return nil, err
	}
	return rule, nil
}

// Upsert creates or replaces the rule.
func (r *ApprovalRuleRepository) Upsert(ctx context.Context, rule *lifecycle.ApprovalRule) error {
	triggers, err := encodeJSON(rule.UrgencyTriggers, "[]")
	if err != nil {
		return err
	}
	q := r.sb.Insert("approval_rules").
		Columns("tenant_id", "doc_type", "threshold_amount", "urgency_triggers_json", "require_catalog_reference", "updated_by", "updated_at").
		Values(rule.TenantID, string(rule.DocumentType), rule.ThresholdAmount, triggers, rule.RequireCatalogReference, rule.UpdatedBy, utc(rule.UpdatedAt)).
		Suffix(`ON CONFLICT (tenant_id, doc_type) DO UPDATE SET
			threshold_amount = excluded.threshold_amount,
			urgency_triggers_json = excluded.urgency_triggers_json,
			require_catalog_reference = excluded.require_catalog_reference,
			updated_by = excluded.updated_by,
			updated_at = excluded.updated_at`)
	if _, err := r.exec(ctx, q); err != nil {
		return fmt.Errorf("failed to save approval rule: %w", err)
	}
	return nil
}

// DuplicatePolicyRepository implements secondary.DuplicatePolicyRepository.
type DuplicatePolicyRepository struct {
	repoBase
}

var _ secondary.DuplicatePolicyRepository = (*DuplicatePolicyRepository)(nil)

// Get returns the policy for the type, nil when none is configured.
func (r *DuplicatePolicyRepository) Get(ctx context.Context, tenantID string, docType lifecycle.DocumentType) (*lifecycle.DuplicatePolicy, error) {
	row, err := r.queryRow(ctx, r.sb.
		Select("window_seconds", "cutoff").
		From("duplicate_policies").
		Where(sq.Eq{"tenant_id": tenantID, "doc_type": string(docType)}))
	if err != nil {
		return nil, err
	}

	var (
		windowSeconds int64
		cutoff        float64
	)
	err = row.Scan(&windowSeconds, &cutoff)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get duplicate policy: %w", err)
	}
	return &lifecycle.DuplicatePolicy{
		TenantID:     tenantID,
		DocumentType: docType,
		Window:       time.Duration(windowSeconds) * time.Second,
		Cutoff:       cutoff,
	}, nil
}

// Upsert creates or replaces the policy.
func (r *DuplicatePolicyRepository) Upsert(ctx context.Context, policy *lifecycle.DuplicatePolicy) error {
	q := r.sb.Insert("duplicate_policies").
		Columns("tenant_id", "doc_type", "window_seconds", "cutoff").
		Values(policy.TenantID, string(policy.DocumentType), int64(policy.Window/time.Second), policy.Cutoff).
		Suffix(`ON CONFLICT (tenant_id, doc_type) DO UPDATE SET
			window_seconds = excluded.window_seconds,
			cutoff = excluded.cutoff`)
	if _, err := r.exec(ctx, q); err != nil {
		return fmt.Errorf("failed to save duplicate policy: %w", err)
	}
	return nil
}

// PeriodLockRepository implements secondary.PeriodLockRepository.
type PeriodLockRepository struct {
	repoBase
}

var _ secondary.PeriodLockRepository = (*PeriodLockRepository)(nil)

var periodLockColumns = []string{"tenant_id", "period_key", "closed", "closed_by", "closed_at", "updated_at"}

// Get returns the lock row, nil when the period was never locked.
func (r *PeriodLockRepository) Get(ctx context.Context, tenantID, periodKey string) (*lifecycle.PeriodLock, error) {
	row, err := r.queryRow(ctx, r.sb.
		Select(periodLockColumns...).
		From("period_locks").
		Where(sq.Eq{"tenant_id": tenantID, "period_key": periodKey}))
	if err != nil {
		return nil, err
	}
	lock, err := scanPeriodLock(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get period lock: %w", err)
	}
	return lock, nil
}

// Upsert creates or replaces the lock row.
func (r *PeriodLockRepository) Upsert(ctx context.Context, lock *lifecycle.PeriodLock) error {
	q := r.sb.Insert("period_locks").
		Columns(periodLockColumns...).
		Values(lock.TenantID, lock.PeriodKey, lock.Closed, lock.ClosedBy, nullTime(lock.ClosedAt), utc(lock.UpdatedAt)).
		Suffix(`ON CONFLICT (tenant_id, period_key) DO UPDATE SET
			closed = excluded.closed,
			closed_by = excluded.closed_by,
			closed_at = excluded.closed_at,
			updated_at = excluded.updated_at`)
	if _, err := r.exec(ctx, q); err != nil {
		return fmt.Errorf("failed to save period lock: %w", err)
	}
	return nil
}

// List returns every lock row of the tenant ordered by period.
func (r *PeriodLockRepository) List(ctx context.Context, tenantID string) ([]*lifecycle.PeriodLock, error) {
	rows, err := r.query(ctx, r.sb.
		Select(periodLockColumns...).
		From("period_locks").
		Where(sq.Eq{"tenant_id": tenantID}).
		OrderBy("period_key"))
	if err != nil {
		return nil, fmt.Errorf("failed to list period locks: %w", err)
	}
	defer rows.Close()

	var locks []*lifecycle.PeriodLock
	for rows.Next() {
		lock, err := scanPeriodLock(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan period lock: %w", err)
		}
		locks = append(locks, lock)
	}
	return locks, rows.Err()
}

func scanPeriodLock(row rowScanner) (*lifecycle.PeriodLock, error) {
	var (
		lock      lifecycle.PeriodLock
		closedAt  sql.NullTime
		updatedAt time.Time
	)
	if err := row.Scan(&lock.TenantID, &lock.PeriodKey, &lock.Closed, &lock.ClosedBy, &closedAt, &updatedAt); err != nil {
		return nil, err
	}
	lock.ClosedAt = timePtr(closedAt)
	lock.UpdatedAt = updatedAt.UTC()
	return &lock, nil
}
