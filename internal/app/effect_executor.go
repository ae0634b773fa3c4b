// Package app contains the application layer - service implementations and
// the transition executor that interprets side-effect intents.
package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/Mmartinrusso/Orvit-sub062/internal/core/effects"
	"github.com/Mmartinrusso/Orvit-sub062/internal/core/guard"
	"github.com/Mmartinrusso/Orvit-sub062/internal/core/lifecycle"
	"github.com/Mmartinrusso/Orvit-sub062/internal/core/registry"
	"github.com/Mmartinrusso/Orvit-sub062/internal/ports/secondary"
)

// allScopes is used to resolve linked documents. Side effects act on behalf
// of the system, so the caller's visibility does not hide link targets; the
// tenant boundary still applies.
var allScopes = []lifecycle.Scope{lifecycle.ScopeStandard, lifecycle.ScopeExtended}

// effectRun carries one transition's side effects from planning to application.
type effectRun struct {
	tx      secondary.Tx
	edge    registry.Edge
	doc     *lifecycle.Document
	actor   lifecycle.Actor
	payload lifecycle.Payload
	now     time.Time

	actions []effects.Action
	linked  map[string]*lifecycle.Document
	planned []plannedIntent

	linkedEvents []*lifecycle.TransitionEvent
	linkedDocs   []*lifecycle.Document
}

type plannedIntent struct {
	actionID string
	intent   effects.Intent
}

// planEffects resolves the edge's catalog entries and evaluates them against
// the transitioned document. Stamps are applied to the document right away
// so they are part of the state write; every other intent waits for
// applyIntents.
func (e *TransitionExecutor) planEffects(ctx context.Context, run *effectRun) error {
	actions, err := e.catalog.ActionsFor(run.edge)
	if err != nil {
		return lifecycle.Internal("side effect catalog is inconsistent with the registry", err)
	}
	run.actions = actions
	if len(actions) == 0 {
		return nil
	}

	run.linked = make(map[string]*lifecycle.Document, len(run.doc.Links))
	for role, id := range run.doc.Links {
		linked, err := run.tx.Documents().Get(ctx, run.doc.TenantID, id, allScopes)
		if errors.Is(err, lifecycle.ErrNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to load %s %s linked from %s: %w", role, id, run.doc.ID, err)
		}
		run.linked[role] = linked
	}

	effCtx := effects.Context{
		TenantID: run.doc.TenantID,
		Actor:    run.actor,
		Edge:     run.edge,
		Payload:  run.payload,
		Now:      run.now,
	}
	for _, action := range actions {
		intents, err := action.Effect(run.doc, run.linked, effCtx)
		if err != nil {
			return lifecycle.SideEffectFailed(action.ID, err)
		}
		for _, intent := range intents {
			if stamp, ok := intent.(effects.StampConfirmed); ok {
				at := stamp.At.UTC().Truncate(time.Microsecond)
				run.doc.ConfirmedAt = &at
				continue
			}
			run.planned = append(run.planned, plannedIntent{actionID: action.ID, intent: intent})
		}
	}
	return nil
}

// applyIntents interprets the planned intents inside the transaction.
// Inventory adjustments for the same item are merged into one movement.
func (e *TransitionExecutor) applyIntents(ctx context.Context, run *effectRun) error {
	type movement struct {
		actionID string
		delta    int64
	}
	var (
		itemOrder []string
		movements = make(map[string]*movement)
	)
	for _, p := range run.planned {
		adj, ok := p.intent.(effects.AdjustInventory)
		if !ok {
			continue
		}
		if m, seen := movements[adj.ItemID]; seen {
			m.delta += adj.Delta
			continue
		}
		itemOrder = append(itemOrder, adj.ItemID)
		movements[adj.ItemID] = &movement{actionID: p.actionID, delta: adj.Delta}
	}
	for _, item := range itemOrder {
		m := movements[item]
		_, err := run.tx.Inventory().ApplyMovement(ctx, &lifecycle.InventoryMovement{
			TenantID:   run.doc.TenantID,
			ItemID:     item,
			DocumentID: run.doc.ID,
			Delta:      m.delta,
			CreatedAt:  run.now,
		})
		if err != nil {
			return effectError(m.actionID, err)
		}
	}

	for _, p := range run.planned {
		var err error
		switch intent := p.intent.(type) {
		case effects.AdjustInventory:
			continue
		case effects.AdvanceLinked:
			err = e.advanceLinked(ctx, run, intent)
		case effects.AppendRecord:
			err = run.tx.Records().Append(ctx, &lifecycle.DerivedRecord{
				TenantID:   run.doc.TenantID,
				DocumentID: run.doc.ID,
				Kind:       intent.Kind,
				Data:       intent.Data,
				CreatedAt:  run.now,
			})
		default:
			err = fmt.Errorf("unknown intent type: %T", p.intent)
		}
		if err != nil {
			return effectError(p.actionID, err)
		}
	}
	return nil
}

// advanceLinked moves a linked document through an edge of its own type and
// records the linked document's own audit event.
func (e *TransitionExecutor) advanceLinked(ctx context.Context, run *effectRun, intent effects.AdvanceLinked) error {
	target, ok := run.linked[intent.Role]
	if !ok {
		return fmt.Errorf("%s %s has no linked %s", run.doc.Type, run.doc.ID, intent.Role)
	}
	if target.TenantID != run.doc.TenantID {
		return fmt.Errorf("linked %s %s belongs to another tenant", intent.Role, target.ID)
	}

	edge, ok := e.registry.Edge(target.Type, target.State, intent.Edge)
	if !ok {
		return lifecycle.InvalidTransition(target.Type, target.State, intent.Edge)
	}
	// The advancement acts for the system, so the caller's permissions do
	// not apply to the linked document.
	checked := edge
	checked.Guards = slices.DeleteFunc(slices.Clone(edge.Guards), func(id registry.GuardID) bool {
		return id == registry.GuardPermission
	})
	if len(checked.Guards) > 0 {
		_, err := guard.Run(ctx, e.guards, guard.Input{
			Edge:     checked,
			Document: target,
			Actor:    run.actor,
			Payload:  lifecycle.Payload{EffectiveDate: run.payload.EffectiveDate},
			Tx:       e.txContext(run.tx, run.doc.TenantID, allScopes, run.now),
		})
		if err != nil {
			return err
		}
	}

	next := target.Clone()
	next.State = edge.To
	next.Version = target.Version + 1
	next.UpdatedAt = run.now
	if err := run.tx.Documents().Update(ctx, next, target.Version); err != nil {
		return err
	}

	event := e.newEvent(next, target.State, edge, run.actor,
		fmt.Sprintf("%s of %s %s", run.edge.Name, run.doc.Type, run.doc.ID), run.now,
		map[string]string{
			MetaRegistryVersion: e.registry.Version(),
			MetaTriggeredBy:     string(run.doc.Type) + "/" + run.doc.ID,
			MetaTriggerEdge:     run.edge.Name,
		})
	if err := run.tx.Events().Append(ctx, event); err != nil {
		return fmt.Errorf("failed to record linked transition: %w", err)
	}

	run.linked[intent.Role] = next
	run.linkedEvents = append(run.linkedEvents, event)
	run.linkedDocs = append(run.linkedDocs, next)
	return nil
}

// effectError keeps retryable kinds so callers can still reload and retry,
// and keeps period locks hit by a linked document; everything else becomes
// SIDE_EFFECT_FAILED.
func effectError(actionID string, err error) error {
	if lifecycle.IsRetryable(err) || lifecycle.GuardKindOf(err) == lifecycle.GuardPeriodLocked {
		return err
	}
	return lifecycle.SideEffectFailed(actionID, err)
}
