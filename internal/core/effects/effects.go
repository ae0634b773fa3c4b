// Package effects defines the side-effect catalog as data.
// A side effect never performs I/O: it inspects the transitioned document and
// returns intents describing what should happen. The transition executor
// interprets the intents inside the same transaction as the state write.
package effects

import (
	"time"

	"github.com/Mmartinrusso/Orvit-sub062/internal/core/lifecycle"
	"github.com/Mmartinrusso/Orvit-sub062/internal/core/registry"
)

// Intent is the base interface for all intents.
type Intent interface {
	// IntentType returns a string identifier for the intent type.
	IntentType() string
}

// AdvanceLinked moves the document linked under Role through Edge of its own
// type's registry. The linked document gets its own audit event.
type AdvanceLinked struct {
	Role string
	Edge string
}

func (i AdvanceLinked) IntentType() string { return "advance_linked" }

// AdjustInventory applies Delta to the tenant's stock of ItemID.
type AdjustInventory struct {
	ItemID string
	Delta  int64
}

func (i AdjustInventory) IntentType() string { return "adjust_inventory" }

// StampConfirmed records the confirmation instant on the document itself.
type StampConfirmed struct {
	At time.Time
}

func (i StampConfirmed) IntentType() string { return "stamp_confirmed" }

// AppendRecord appends a derived record (cost record, issued note...).
type AppendRecord struct {
	Kind string
	Data map[string]string
}

func (i AppendRecord) IntentType() string { return "append_record" }

// Context is what a side effect may know beyond the documents themselves.
type Context struct {
	TenantID string
	Actor    lifecycle.Actor
	Edge     registry.Edge
	Payload  lifecycle.Payload
	Now      time.Time
}

// SideEffect computes the intents of one catalog entry. doc is the document
// after the state change; linked holds the documents it links to, by role,
// resolved within the same tenant.
type SideEffect func(doc *lifecycle.Document, linked map[string]*lifecycle.Document, ctx Context) ([]Intent, error)

// Action is a resolved catalog entry.
type Action struct {
	ID     string
	Effect SideEffect
}
