package primary

import (
	"context"

	"github.com/Mmartinrusso/Orvit-sub062/internal/core/lifecycle"
)

// PeriodService defines the primary port for closing and reopening accounting periods.
type PeriodService interface {
	// ClosePeriod freezes every mutation dated inside the period.
	ClosePeriod(ctx context.Context, tenantID string, actor lifecycle.Actor, periodKey string) (*lifecycle.PeriodLock, error)

	// ReopenPeriod lifts the lock of a closed period.
	ReopenPeriod(ctx context.Context, tenantID string, actor lifecycle.Actor, periodKey string) (*lifecycle.PeriodLock, error)

	// PeriodStatus returns the lock state of the period; a never-locked period is open.
	PeriodStatus(ctx context.Context, tenantID, periodKey string) (*lifecycle.PeriodLock, error)

	// ListPeriods returns every period that has a lock row.
	ListPeriods(ctx context.Context, tenantID string) ([]*lifecycle.PeriodLock, error)
}

// ConfigService defines the primary port for tenant guard configuration.
type ConfigService interface {
	// SetApprovalRule creates or replaces the approval rule of a document type.
	SetApprovalRule(ctx context.Context, actor lifecycle.Actor, rule lifecycle.ApprovalRule) error

	// GetApprovalRule returns the approval rule of a document type, nil when none exists.
	GetApprovalRule(ctx context.Context, tenantID string, docType lifecycle.DocumentType) (*lifecycle.ApprovalRule, error)

	// SetDuplicatePolicy creates or replaces the duplicate policy of a document type.
	SetDuplicatePolicy(ctx context.Context, actor lifecycle.Actor, policy lifecycle.DuplicatePolicy) error

	// GetDuplicatePolicy returns the effective duplicate policy, defaults included.
	GetDuplicatePolicy(ctx context.Context, tenantID string, docType lifecycle.DocumentType) (lifecycle.DuplicatePolicy, error)
}

// InventoryService defines the primary port for the stock ledger.
type InventoryService interface {
	// SetStock overwrites the stock level of an item.
	SetStock(ctx context.Context, tenantID string, actor lifecycle.Actor, itemID string, quantity int64) error

	// Stock returns every stock level of the tenant.
	Stock(ctx context.Context, tenantID string) (map[string]int64, error)

	// Movements returns the stock movements a document caused.
	Movements(ctx context.Context, tenantID, documentID string) ([]*lifecycle.InventoryMovement, error)
}
