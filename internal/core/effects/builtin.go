package effects

import (
	"fmt"
	"strconv"

	"github.com/Mmartinrusso/Orvit-sub062/internal/core/lifecycle"
)

// Built-in effect IDs referenced by the embedded registry.
const (
	ReserveBudget   = "purchaserequest.reserve_budget"
	CommitStock     = "loadorder.commit_stock"
	StampConfirm    = "loadorder.stamp_confirmed"
	AdvanceDelivery = "loadorder.advance_delivery"
	RecordCost      = "workorder.record_cost"
	IssueCreditNote = "creditnote.issue_record"
)

// Derived record kinds.
const (
	RecordBudgetCommitment = "budget_commitment"
	RecordMaintenanceCost  = "maintenance_cost"
	RecordCreditNote       = "credit_note"
)

// RoleDelivery is the link role of the delivery a load order feeds.
const RoleDelivery = "delivery"

// EdgeStartTransit is the delivery edge a dispatched load order triggers.
const EdgeStartTransit = "start_transit"

// Default returns the catalog of built-in side effects.
func Default() *Catalog {
	c := NewCatalog()
	c.Register(ReserveBudget, reserveBudget)
	c.Register(CommitStock, commitStock)
	c.Register(StampConfirm, stampConfirmed)
	c.Register(AdvanceDelivery, advanceDelivery)
	c.Register(RecordCost, recordCost)
	c.Register(IssueCreditNote, issueCreditNote)
	return c
}

func reserveBudget(doc *lifecycle.Document, _ map[string]*lifecycle.Document, ctx Context) ([]Intent, error) {
	return []Intent{AppendRecord{
		Kind: RecordBudgetCommitment,
		Data: map[string]string{
			"purchase_request": doc.ID,
			"amount":           strconv.FormatInt(doc.Amount, 10),
			"committed_by":     ctx.Actor.ID,
		},
	}}, nil
}

// commitStock removes the load order lines from inventory. It is a no-op for
// a load order that was already confirmed.
func commitStock(doc *lifecycle.Document, _ map[string]*lifecycle.Document, _ Context) ([]Intent, error) {
	if doc.ConfirmedAt != nil {
		return nil, nil
	}
	intents := make([]Intent, 0, len(doc.Lines))
	for _, l := range doc.Lines {
		if l.Quantity <= 0 {
			return nil, fmt.Errorf("line %s has non-positive quantity %d", l.ItemID, l.Quantity)
		}
		intents = append(intents, AdjustInventory{ItemID: l.ItemID, Delta: -l.Quantity})
	}
	return intents, nil
}

func stampConfirmed(doc *lifecycle.Document, _ map[string]*lifecycle.Document, ctx Context) ([]Intent, error) {
	if doc.ConfirmedAt != nil {
		return nil, nil
	}
	return []Intent{StampConfirmed{At: ctx.Now}}, nil
}

func advanceDelivery(doc *lifecycle.Document, linked map[string]*lifecycle.Document, _ Context) ([]Intent, error) {
	if _, ok := doc.Links[RoleDelivery]; !ok {
		return nil, fmt.Errorf("load order %s is not linked to a delivery", doc.ID)
	}
	if _, ok := linked[RoleDelivery]; !ok {
		return nil, fmt.Errorf("delivery %s linked from %s not found", doc.Links[RoleDelivery], doc.ID)
	}
	return []Intent{AdvanceLinked{Role: RoleDelivery, Edge: EdgeStartTransit}}, nil
}

func recordCost(doc *lifecycle.Document, _ map[string]*lifecycle.Document, ctx Context) ([]Intent, error) {
	cost := doc.Attributes["cost"]
	if cost == "" {
		cost = "0"
	}
	if _, err := strconv.ParseInt(cost, 10, 64); err != nil {
		return nil, fmt.Errorf("work order %s has invalid cost %q", doc.ID, cost)
	}
	return []Intent{AppendRecord{
		Kind: RecordMaintenanceCost,
		Data: map[string]string{
			"work_order": doc.ID,
			"entity_key": doc.EntityKey(),
			"cost":       cost,
			"resolution": doc.Attributes["resolution"],
			"closed_by":  ctx.Actor.ID,
		},
	}}, nil
}

func issueCreditNote(doc *lifecycle.Document, _ map[string]*lifecycle.Document, ctx Context) ([]Intent, error) {
	invoice, ok := doc.Links["invoice"]
	if !ok {
		return nil, fmt.Errorf("credit note request %s does not reference an invoice", doc.ID)
	}
	return []Intent{AppendRecord{
		Kind: RecordCreditNote,
		Data: map[string]string{
			"credit_note_request": doc.ID,
			"invoice":             invoice,
			"amount":              strconv.FormatInt(doc.Amount, 10),
			"issued_by":           ctx.Actor.ID,
		},
	}}, nil
}
