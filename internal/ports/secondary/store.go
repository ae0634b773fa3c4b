// Package secondary defines the secondary ports (driven adapters) for the application.
// These are the interfaces through which the application drives external systems.
package secondary

import (
	"context"
	"time"

	"github.com/Mmartinrusso/Orvit-sub062/internal/core/lifecycle"
)

// Store is the transactional persistence port. Every read and write of a
// transition happens inside one WithinTx call; if fn returns an error the
// transaction is rolled back and nothing it wrote is visible.
type Store interface {
	// WithinTx runs fn in a single database transaction and commits when fn
	// returns nil. Lock conflicts and serialization failures surface as
	// CONCURRENT_MODIFICATION.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	// Dialect names the backing database ("sqlite" or "postgres").
	Dialect() string
}

// Tx exposes the repositories bound to one open transaction.
type Tx interface {
	Documents() DocumentRepository
	Events() EventRepository
	Rules() ApprovalRuleRepository
	DuplicatePolicies() DuplicatePolicyRepository
	PeriodLocks() PeriodLockRepository
	Inventory() InventoryRepository
	Records() DerivedRecordRepository
}

// DocumentRepository persists lifecycle documents.
// Every read takes the caller's visible scopes; documents outside them do not exist.
type DocumentRepository interface {
	// Insert persists a new document at its current version.
	Insert(ctx context.Context, doc *lifecycle.Document) error

	// Get retrieves a visible document, or a NOT_FOUND error.
	Get(ctx context.Context, tenantID, id string, scopes []lifecycle.Scope) (*lifecycle.Document, error)

	// Update writes state, version and mutable fields only if the stored
	// version still equals expectedVersion; otherwise CONCURRENT_MODIFICATION.
	Update(ctx context.Context, doc *lifecycle.Document, expectedVersion int64) error

	// List retrieves visible documents matching the filters.
	List(ctx context.Context, filters DocumentFilters) ([]*lifecycle.Document, error)

	// OpenCandidates lists visible documents in one of openStates sharing the
	// entity key, created at or after since.
	OpenCandidates(ctx context.Context, query CandidateQuery) ([]*lifecycle.Document, error)
}

// DocumentFilters contains filter options for listing documents.
type DocumentFilters struct {
	TenantID string
	Type     lifecycle.DocumentType
	State    lifecycle.State
	Scopes   []lifecycle.Scope
	Limit    int
}

// CandidateQuery selects the documents the uniqueness guard compares against.
type CandidateQuery struct {
	TenantID   string
	Type       lifecycle.DocumentType
	EntityKey  string
	OpenStates []lifecycle.State
	Since      time.Time
	Scopes     []lifecycle.Scope
}

// EventRepository is the append-only audit trail.
type EventRepository interface {
	// Append assigns the next sequence number of the document and persists the event.
	Append(ctx context.Context, event *lifecycle.TransitionEvent) error

	// History returns events of the document with Seq > AfterSeq, ordered by Seq.
	History(ctx context.Context, tenantID, documentID string, query HistoryQuery) ([]*lifecycle.TransitionEvent, error)
}

// HistoryQuery pages through a document's audit trail.
type HistoryQuery struct {
	AfterSeq int64
	Limit    int
}

// ApprovalRuleRepository stores tenant approval rules.
type ApprovalRuleRepository interface {
	// Get returns the rule for the type, or nil when none is configured.
	Get(ctx context.Context, tenantID string, docType lifecycle.DocumentType) (*lifecycle.ApprovalRule, error)
	Upsert(ctx context.Context, rule *lifecycle.ApprovalRule) error
}

// DuplicatePolicyRepository stores tenant duplicate-detection policies.
type DuplicatePolicyRepository interface {
	// Get returns the policy for the type, or nil when none is configured.
	Get(ctx context.Context, tenantID string, docType lifecycle.DocumentType) (*lifecycle.DuplicatePolicy, error)
	Upsert(ctx context.Context, policy *lifecycle.DuplicatePolicy) error
}

// PeriodLockRepository stores accounting period locks.
type PeriodLockRepository interface {
	// Get returns the lock row for the period, or nil when the period was never locked.
	Get(ctx context.Context, tenantID, periodKey string) (*lifecycle.PeriodLock, error)
	Upsert(ctx context.Context, lock *lifecycle.PeriodLock) error
	List(ctx context.Context, tenantID string) ([]*lifecycle.PeriodLock, error)
}

// InventoryRepository is the stock ledger side effects adjust.
type InventoryRepository interface {
	// ApplyMovement records the movement and adjusts the level. A movement
	// for the same document and item is applied at most once; applied is
	// false when it had already been recorded.
	ApplyMovement(ctx context.Context, movement *lifecycle.InventoryMovement) (applied bool, err error)

	// SetLevel overwrites the stock level of an item.
	SetLevel(ctx context.Context, tenantID, itemID string, quantity int64) error

	// Levels returns the stock level of every item of the tenant.
	Levels(ctx context.Context, tenantID string) (map[string]int64, error)

	// Movements returns the movements caused by a document.
	Movements(ctx context.Context, tenantID, documentID string) ([]*lifecycle.InventoryMovement, error)
}

// DerivedRecordRepository stores records appended by side effects.
type DerivedRecordRepository interface {
	Append(ctx context.Context, record *lifecycle.DerivedRecord) error
	ListByDocument(ctx context.Context, tenantID, documentID string) ([]*lifecycle.DerivedRecord, error)
}
