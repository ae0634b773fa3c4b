package guard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Mmartinrusso/Orvit-sub062/internal/core/duplicate"
	"github.com/Mmartinrusso/Orvit-sub062/internal/core/lifecycle"
	"github.com/Mmartinrusso/Orvit-sub062/internal/core/period"
	"github.com/Mmartinrusso/Orvit-sub062/internal/core/registry"
)

// TxContext is the read-only view of the enclosing transaction that guards
// consult. Implementations are bound to one tenant and one caller, so every
// lookup is already tenant- and visibility-scoped.
type TxContext interface {
	// ApprovalRule returns the tenant's rule for the type, or nil when none is configured.
	ApprovalRule(ctx context.Context, docType lifecycle.DocumentType) (*lifecycle.ApprovalRule, error)
	// DuplicatePolicy returns the tenant's policy for the type, falling back to defaults.
	DuplicatePolicy(ctx context.Context, docType lifecycle.DocumentType) (lifecycle.DuplicatePolicy, error)
	// OpenCandidates lists open documents of the type sharing the entity key created at or after since.
	OpenCandidates(ctx context.Context, docType lifecycle.DocumentType, entityKey string, since time.Time) ([]duplicate.Existing, error)
	// PeriodLock reads the lock row for the period inside the transaction, nil when open.
	PeriodLock(ctx context.Context, periodKey string) (*lifecycle.PeriodLock, error)
	Now() time.Time
}

// Input is everything a guard may look at. Document is the persisted document
// for ordinary edges and the not-yet-persisted candidate for creation edges.
type Input struct {
	Edge     registry.Edge
	Document *lifecycle.Document
	Actor    lifecycle.Actor
	Payload  lifecycle.Payload
	Tx       TxContext
}

// Func evaluates one guard. A non-nil error means the guard could not be
// evaluated at all; a denied Result is an ordinary business outcome.
type Func func(ctx context.Context, in Input) (Result, error)

// Library maps guard IDs to their implementations.
type Library map[registry.GuardID]Func

// DefaultLibrary returns the built-in guards.
func DefaultLibrary() Library {
	return Library{
		registry.GuardPermission:   permissionGuard,
		registry.GuardSoD:          segregationGuard,
		registry.GuardPrecondition: preconditionGuard,
		registry.GuardThreshold:    thresholdGuard,
		registry.GuardUniqueness:   uniquenessGuard,
		registry.GuardPeriodLock:   periodLockGuard,
	}
}

// Outcome aggregates the non-failing signals raised while running the guards.
type Outcome struct {
	RouteToApproval bool
	RouteReason     string

	DuplicateOverride    bool
	OverriddenCandidates []lifecycle.Candidate

	Evaluated []registry.GuardID
}

// Run evaluates the edge's guards in declared order. The first failure
// short-circuits and is returned as a *lifecycle.Error.
func Run(ctx context.Context, lib Library, in Input) (Outcome, error) {
	var out Outcome
	for _, id := range in.Edge.Guards {
		fn, ok := lib[id]
		if !ok {
			return out, lifecycle.Internal(fmt.Sprintf("guard %s is not in the library", id), nil)
		}
		res, err := fn(ctx, in)
		if err != nil {
			var le *lifecycle.Error
			if errors.As(err, &le) {
				return out, le
			}
			return out, lifecycle.Internal(fmt.Sprintf("guard %s failed to evaluate", id), err)
		}
		out.Evaluated = append(out.Evaluated, id)
		if !res.Allowed {
			return out, res.Error()
		}
		if res.Routed {
			out.RouteToApproval = true
			out.RouteReason = res.Reason
		}
		if res.Overridden {
			out.DuplicateOverride = true
			out.OverriddenCandidates = res.Candidates
		}
	}
	return out, nil
}

func permissionGuard(_ context.Context, in Input) (Result, error) {
	return CheckPermission(PermissionContext{
		Edge:       in.Edge.Name,
		Permission: in.Edge.Permission,
		Actor:      in.Actor,
	}), nil
}

func segregationGuard(_ context.Context, in Input) (Result, error) {
	creator := ""
	if in.Document != nil {
		creator = in.Document.CreatedBy
	}
	return CheckSegregation(SegregationContext{
		Edge:      in.Edge.Name,
		Sensitive: in.Edge.Sensitive(),
		ActorID:   in.Actor.ID,
		CreatorID: creator,
	}), nil
}

func preconditionGuard(_ context.Context, in Input) (Result, error) {
	return CheckPreconditions(PreconditionContext{
		Preconditions: in.Edge.Preconditions,
		Activation:    Activation(in.Document, in.Payload, in.Actor),
	}), nil
}

func thresholdGuard(ctx context.Context, in Input) (Result, error) {
	if !in.Edge.Creation {
		return allow(), nil
	}
	rule, err := in.Tx.ApprovalRule(ctx, in.Edge.DocumentType)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load approval rule: %w", err)
	}
	return EvaluateThreshold(ThresholdContext{
		Rule:    rule,
		Amount:  in.Document.Amount,
		Urgency: in.Document.Urgency,
		Lines:   in.Document.Lines,
	}), nil
}

func uniquenessGuard(ctx context.Context, in Input) (Result, error) {
	policy, err := in.Tx.DuplicatePolicy(ctx, in.Edge.DocumentType)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load duplicate policy: %w", err)
	}
	sig := duplicate.SignatureOf(in.Document)
	since := in.Tx.Now().Add(-policy.Window)

	existing, err := in.Tx.OpenCandidates(ctx, in.Edge.DocumentType, sig.EntityKey, since)
	if err != nil {
		return Result{}, fmt.Errorf("failed to scan duplicate candidates: %w", err)
	}
	return CheckUniqueness(UniquenessContext{
		Candidate:         sig,
		Existing:          existing,
		Since:             since,
		Cutoff:            policy.Cutoff,
		OverrideRequested: in.Payload.ConfirmedNotDuplicate,
		OverrideAllowed:   in.Actor.Has(PermDuplicateOverride),
	}), nil
}

// periodLockGuard rejects the mutation when the document's period, or the
// period of a date supplied with the request, is closed.
func periodLockGuard(ctx context.Context, in Input) (Result, error) {
	var stored time.Time
	if in.Document != nil {
		stored = in.Document.EffectiveDate
	}
	for _, key := range period.Keys(stored, in.Payload.EffectiveDate, in.Tx.Now()) {
		lock, err := in.Tx.PeriodLock(ctx, key)
		if err != nil {
			return Result{}, fmt.Errorf("failed to read period lock: %w", err)
		}
		if res := CheckPeriod(PeriodContext{PeriodKey: key, Lock: lock}); !res.Allowed {
			return res, nil
		}
	}
	return allow(), nil
}
