// Package guard contains the guard library: pure predicates evaluated, in the
// order an edge declares them, before any write of a transition.
// Guards are pure functions that evaluate preconditions without side effects;
// whatever data they need is handed to them through a context struct.
package guard

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/Mmartinrusso/Orvit-sub062/internal/core/duplicate"
	"github.com/Mmartinrusso/Orvit-sub062/internal/core/lifecycle"
	"github.com/Mmartinrusso/Orvit-sub062/internal/core/registry"
)

// PermDuplicateOverride allows a caller to create a document the uniqueness
// guard flagged, after confirming it is not a duplicate.
const PermDuplicateOverride = "duplicates.override"

// Result represents the outcome of a guard evaluation.
type Result struct {
	Allowed    bool
	Kind       lifecycle.GuardKind
	Reason     string
	Candidates []lifecycle.Candidate

	// Routed is set by the threshold guard: the document is allowed but must
	// enter the approval sub-state.
	Routed bool
	// Overridden is set when the uniqueness guard matched candidates and the
	// caller confirmed the document is not a duplicate.
	Overridden bool
}

// Error converts the guard result to an error if not allowed.
func (r Result) Error() error {
	if r.Allowed {
		return nil
	}
	if r.Kind == lifecycle.GuardDuplicateDetected {
		return lifecycle.DuplicateDetected(r.Candidates)
	}
	return lifecycle.GuardFailed(r.Kind, r.Reason)
}

func allow() Result { return Result{Allowed: true} }

func deny(kind lifecycle.GuardKind, format string, args ...any) Result {
	return Result{Allowed: false, Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// PermissionContext provides context for the permission guard.
type PermissionContext struct {
	Edge       string
	Permission string
	Actor      lifecycle.Actor
}

// CheckPermission evaluates whether the actor may traverse the edge.
// Rules:
// - The actor must hold the edge permission
func CheckPermission(ctx PermissionContext) Result {
	if ctx.Permission == "" {
		return deny(lifecycle.GuardPermissionDenied, "edge %s declares no permission", ctx.Edge)
	}
	if !ctx.Actor.Has(ctx.Permission) {
		return deny(lifecycle.GuardPermissionDenied, "actor %s lacks permission %s for %s", ctx.Actor.ID, ctx.Permission, ctx.Edge)
	}
	return allow()
}

// SegregationContext provides context for the segregation-of-duties guard.
type SegregationContext struct {
	Edge      string
	Sensitive bool
	ActorID   string
	CreatorID string
}

// CheckSegregation evaluates whether the actor may approve their own document.
// Rules:
// - On sensitive edges the actor must not be the document creator
func CheckSegregation(ctx SegregationContext) Result {
	if !ctx.Sensitive {
		return allow()
	}
	if ctx.ActorID != "" && ctx.ActorID == ctx.CreatorID {
		return deny(lifecycle.GuardSoDViolation, "actor %s created this document and cannot %s it", ctx.ActorID, ctx.Edge)
	}
	return allow()
}

// PreconditionContext provides context for the precondition guard.
type PreconditionContext struct {
	Preconditions []registry.Precondition
	Activation    map[string]any
}

// CheckPreconditions evaluates every compiled precondition in order.
// Rules:
// - Each expression must evaluate to true
// - An expression that fails to evaluate (missing key, wrong type) is not met
func CheckPreconditions(ctx PreconditionContext) Result {
	for _, p := range ctx.Preconditions {
		if p.Program == nil {
			return deny(lifecycle.GuardPreconditionNotMet, "%s (uncompiled expression %q)", p.Message, p.Expr)
		}
		out, _, err := p.Program.Eval(ctx.Activation)
		if err != nil {
			return deny(lifecycle.GuardPreconditionNotMet, "%s (%v)", p.Message, err)
		}
		ok, isBool := out.Value().(bool)
		if !isBool || !ok {
			return deny(lifecycle.GuardPreconditionNotMet, "%s", p.Message)
		}
	}
	return allow()
}

// ThresholdContext provides context for the threshold guard.
type ThresholdContext struct {
	Rule    *lifecycle.ApprovalRule
	Amount  int64
	Urgency string
	Lines   []lifecycle.LineItem
}

// EvaluateThreshold decides whether a new document needs approval.
// Rules:
// - No rule means no routing
// - Amount at or above a positive threshold routes
// - Urgency matching a trigger (case-insensitive) routes
// - A line without a catalog reference routes when the rule requires one
//
// Routing is never a failure: the result is always allowed.
func EvaluateThreshold(ctx ThresholdContext) Result {
	if ctx.Rule == nil {
		return allow()
	}
	var reasons []string
	if ctx.Rule.ThresholdAmount > 0 && ctx.Amount >= ctx.Rule.ThresholdAmount {
		reasons = append(reasons, fmt.Sprintf("amount %d reaches threshold %d", ctx.Amount, ctx.Rule.ThresholdAmount))
	}
	if ctx.Urgency != "" && slices.ContainsFunc(ctx.Rule.UrgencyTriggers, func(t string) bool {
		return strings.EqualFold(t, ctx.Urgency)
	}) {
		reasons = append(reasons, fmt.Sprintf("urgency %s requires approval", ctx.Urgency))
	}
	if ctx.Rule.RequireCatalogReference {
		for _, l := range ctx.Lines {
			if strings.TrimSpace(l.CatalogRef) == "" {
				reasons = append(reasons, fmt.Sprintf("line %s has no catalog reference", l.ItemID))
				break
			}
		}
	}
	if len(reasons) == 0 {
		return allow()
	}
	return Result{
		Allowed: true,
		Kind:    lifecycle.GuardThresholdRouted,
		Reason:  strings.Join(reasons, "; "),
		Routed:  true,
	}
}

// UniquenessContext provides context for the uniqueness guard.
type UniquenessContext struct {
	Candidate duplicate.Signature
	Existing  []duplicate.Existing
	Since     time.Time
	Cutoff    float64

	OverrideRequested bool
	OverrideAllowed   bool
}

// CheckUniqueness evaluates whether the candidate duplicates an open document.
// Rules:
// - Requesting the override requires the override permission
// - Any open document scoring at or above the cutoff within the window is a match
// - Matches fail the guard unless the override was requested
func CheckUniqueness(ctx UniquenessContext) Result {
	if ctx.OverrideRequested && !ctx.OverrideAllowed {
		return deny(lifecycle.GuardPermissionDenied, "confirming a document is not a duplicate requires permission %s", PermDuplicateOverride)
	}
	matches := duplicate.Matches(ctx.Candidate, ctx.Existing, ctx.Since, ctx.Cutoff)
	if len(matches) == 0 {
		return allow()
	}
	if ctx.OverrideRequested {
		return Result{
			Allowed:    true,
			Kind:       lifecycle.GuardDuplicateDetected,
			Reason:     "duplicate warning overridden by caller",
			Candidates: matches,
			Overridden: true,
		}
	}
	return Result{
		Allowed:    false,
		Kind:       lifecycle.GuardDuplicateDetected,
		Reason:     "possible duplicate",
		Candidates: matches,
	}
}

// PeriodContext provides context for the period-lock guard.
type PeriodContext struct {
	PeriodKey string
	Lock      *lifecycle.PeriodLock
}

// CheckPeriod evaluates whether the effective period accepts mutations.
// Rules:
// - A period without a lock row is open
// - A closed period rejects every mutation dated inside it
func CheckPeriod(ctx PeriodContext) Result {
	if ctx.Lock == nil || !ctx.Lock.Closed {
		return allow()
	}
	return deny(lifecycle.GuardPeriodLocked, "period %s is closed", ctx.PeriodKey)
}
