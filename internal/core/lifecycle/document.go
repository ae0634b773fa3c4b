// Package lifecycle holds the domain types shared by every layer of the
// document lifecycle engine: documents, actors, payloads, audit events and
// tenant configuration. This is part of the Functional Core - no I/O.
package lifecycle

import (
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"
	"time"
)

// DocumentType identifies a family of business documents sharing one state machine.
type DocumentType string

const (
	TypePurchaseRequest   DocumentType = "PURCHASE_REQUEST"
	TypeLoadOrder         DocumentType = "LOAD_ORDER"
	TypeDelivery          DocumentType = "DELIVERY"
	TypeCreditNoteRequest DocumentType = "CREDIT_NOTE_REQUEST"
	TypeWorkOrder         DocumentType = "WORK_ORDER"
)

// State is a lifecycle state name as declared in the registry.
type State string

// NoState is the pseudo-state creation edges start from.
const NoState State = ""

// Scope is the visibility classification of a document.
type Scope string

const (
	ScopeStandard Scope = "STANDARD"
	ScopeExtended Scope = "EXTENDED"
)

// ParseScope converts user input into a Scope. Empty input means Standard.
func ParseScope(s string) (Scope, error) {
	switch Scope(strings.ToUpper(strings.TrimSpace(s))) {
	case "", ScopeStandard:
		return ScopeStandard, nil
	case ScopeExtended:
		return ScopeExtended, nil
	default:
		return "", fmt.Errorf("unknown visibility scope %q (want STANDARD or EXTENDED)", s)
	}
}

// LineItem is a single line of a document (inventory item and quantity).
type LineItem struct {
	ItemID     string `json:"item_id"`
	Quantity   int64  `json:"quantity"`
	CatalogRef string `json:"catalog_ref,omitempty"`
}

// Document is a business document governed by the lifecycle engine.
// State and Version are written only by the transition executor.
type Document struct {
	ID            string
	TenantID      string
	Type          DocumentType
	State         State
	Scope         Scope
	Version       int64
	Links         map[string]string // role -> linked document ID
	Title         string
	Amount        int64 // minor currency units
	Urgency       string
	EntityRefs    map[string]string // e.g. machine -> M-01, component -> C-07
	Lines         []LineItem
	Attributes    map[string]string
	EffectiveDate time.Time
	ConfirmedAt   *time.Time
	CreatedBy     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	c := *d
	c.Links = maps.Clone(d.Links)
	c.EntityRefs = maps.Clone(d.EntityRefs)
	c.Attributes = maps.Clone(d.Attributes)
	c.Lines = slices.Clone(d.Lines)
	if d.ConfirmedAt != nil {
		at := *d.ConfirmedAt
		c.ConfirmedAt = &at
	}
	return &c
}

// EntityKey returns the canonical form of the document's entity references,
// used to group duplicate candidates ("component=C-07;machine=M-01").
func (d *Document) EntityKey() string {
	return EntityKey(d.EntityRefs)
}

// EntityKey canonicalizes a set of entity references.
func EntityKey(refs map[string]string) string {
	if len(refs) == 0 {
		return ""
	}
	normalized := make(map[string]string, len(refs))
	for k, v := range refs {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		normalized[strings.ToLower(strings.TrimSpace(k))] = v
	}
	keys := slices.Collect(maps.Keys(normalized))
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + normalized[k]
	}
	return strings.Join(parts, ";")
}

// Actor is the verified caller identity supplied by the authentication layer.
type Actor struct {
	ID          string
	Permissions []string
	Scope       Scope
}

// Has reports whether the actor holds the named permission.
func (a Actor) Has(permission string) bool {
	return slices.Contains(a.Permissions, permission)
}

// Payload carries the caller-supplied data of a transition request.
type Payload struct {
	Title         string
	Amount        int64
	Urgency       string
	Lines         []LineItem
	EntityRefs    map[string]string
	Links         map[string]string
	Attributes    map[string]string
	EffectiveDate *time.Time
	Scope         Scope

	// ConfirmedNotDuplicate bypasses the uniqueness guard for this one call.
	// It is honored only for actors holding the duplicate override permission.
	ConfirmedNotDuplicate bool
}

// TransitionEvent is one immutable row of the audit trail.
type TransitionEvent struct {
	ID           string
	TenantID     string
	DocumentType DocumentType
	DocumentID   string
	Seq          int64
	FromState    State
	ToState      State
	Edge         string
	ActorID      string
	Timestamp    time.Time
	Reason       string
	Metadata     map[string]string
}

// ApprovalRule is the tenant configuration consulted by the threshold guard.
type ApprovalRule struct {
	TenantID                string
	DocumentType            DocumentType
	ThresholdAmount         int64
	UrgencyTriggers         []string
	RequireCatalogReference bool
	UpdatedBy               string
	UpdatedAt               time.Time
}

// DuplicatePolicy is the tenant configuration consulted by the uniqueness guard.
type DuplicatePolicy struct {
	TenantID     string
	DocumentType DocumentType
	Window       time.Duration
	Cutoff       float64
}

// PeriodLock freezes every mutation whose effective date falls in the period.
// A period without a row is open.
type PeriodLock struct {
	TenantID  string
	PeriodKey string
	Closed    bool
	ClosedBy  string
	ClosedAt  *time.Time
	UpdatedAt time.Time
}

// DerivedRecord is a record appended by a side effect (cost record, issued credit note...).
type DerivedRecord struct {
	ID         string
	TenantID   string
	DocumentID string
	Kind       string
	Data       map[string]string
	CreatedAt  time.Time
}

// InventoryMovement is one ledger adjustment caused by a document.
type InventoryMovement struct {
	TenantID   string
	ItemID     string
	DocumentID string
	Delta      int64
	CreatedAt  time.Time
}
