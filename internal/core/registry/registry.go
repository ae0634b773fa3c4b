// Package registry is the static state specification of every document type:
// states, initial and approval states, and the edges with their ordered guards
// and side effects. The registry is loaded once from an embedded definition and
// is immutable afterwards; edges are never synthesized from caller input.
package registry

import (
	"slices"

	"github.com/Masterminds/semver/v3"
	"github.com/google/cel-go/cel"

	"github.com/Mmartinrusso/Orvit-sub062/internal/core/lifecycle"
)

// GuardID names a guard in the guard library.
type GuardID string

const (
	GuardPermission   GuardID = "permission"
	GuardSoD          GuardID = "sod"
	GuardPrecondition GuardID = "precondition"
	GuardThreshold    GuardID = "threshold"
	GuardUniqueness   GuardID = "uniqueness"
	GuardPeriodLock   GuardID = "period_lock"
)

// KnownGuards lists every guard ID the registry accepts.
var KnownGuards = []GuardID{
	GuardPermission,
	GuardSoD,
	GuardPrecondition,
	GuardThreshold,
	GuardUniqueness,
	GuardPeriodLock,
}

// Precondition is a compiled document invariant attached to an edge.
type Precondition struct {
	Expr    string
	Message string
	Program cel.Program
}

// Edge is one permitted transition of a document type.
type Edge struct {
	DocumentType  lifecycle.DocumentType
	Name          string
	From          lifecycle.State // NoState for creation edges
	To            lifecycle.State
	Permission    string
	Creation      bool
	System        bool // reachable only through side effects of another document
	Guards        []GuardID
	Effects       []string
	Preconditions []Precondition
}

// HasGuard reports whether the edge declares the guard.
func (e Edge) HasGuard(id GuardID) bool {
	return slices.Contains(e.Guards, id)
}

// Sensitive reports whether the edge is subject to segregation of duties.
func (e Edge) Sensitive() bool {
	return e.HasGuard(GuardSoD)
}

// TypeSpec is the state machine of one document type.
type TypeSpec struct {
	Type     lifecycle.DocumentType
	States   []lifecycle.State
	Initial  lifecycle.State
	Approval lifecycle.State // optional approval sub-state used by threshold routing
	Edges    []Edge
	terminal map[lifecycle.State]bool
}

// Registry holds the state specification of every document type.
type Registry struct {
	version *semver.Version
	types   map[lifecycle.DocumentType]*TypeSpec
	order   []lifecycle.DocumentType
}

// InitialContext influences which initial state a new document enters.
type InitialContext struct {
	RequiresApproval bool
}

// Version returns the registry definition version.
func (r *Registry) Version() string {
	return r.version.String()
}

// Types returns the registered document types in declaration order.
func (r *Registry) Types() []lifecycle.DocumentType {
	return slices.Clone(r.order)
}

// Spec returns the state machine of a document type.
func (r *Registry) Spec(t lifecycle.DocumentType) (*TypeSpec, bool) {
	spec, ok := r.types[t]
	return spec, ok
}

// HasState reports whether state is a declared state of the type.
func (r *Registry) HasState(t lifecycle.DocumentType, state lifecycle.State) bool {
	spec, ok := r.types[t]
	if !ok {
		return false
	}
	return slices.Contains(spec.States, state)
}

// EdgesFor returns the edges leaving from for the type.
func (r *Registry) EdgesFor(t lifecycle.DocumentType, from lifecycle.State) []Edge {
	spec, ok := r.types[t]
	if !ok {
		return nil
	}
	var edges []Edge
	for _, e := range spec.Edges {
		if e.From == from {
			edges = append(edges, e)
		}
	}
	return edges
}

// Edge locates the edge named name leaving from.
func (r *Registry) Edge(t lifecycle.DocumentType, from lifecycle.State, name string) (Edge, bool) {
	for _, e := range r.EdgesFor(t, from) {
		if e.Name == name {
			return e, true
		}
	}
	return Edge{}, false
}

// CreationEdge returns the creation-equivalent edge of the type.
func (r *Registry) CreationEdge(t lifecycle.DocumentType) (Edge, bool) {
	spec, ok := r.types[t]
	if !ok {
		return Edge{}, false
	}
	for _, e := range spec.Edges {
		if e.Creation {
			return e, true
		}
	}
	return Edge{}, false
}

// IsTerminal reports whether the state has no outgoing edges.
func (r *Registry) IsTerminal(t lifecycle.DocumentType, state lifecycle.State) bool {
	spec, ok := r.types[t]
	if !ok {
		return false
	}
	return spec.terminal[state]
}

// IsOpen reports whether a document in state is still unresolved.
func (r *Registry) IsOpen(t lifecycle.DocumentType, state lifecycle.State) bool {
	return r.HasState(t, state) && !r.IsTerminal(t, state)
}

// OpenStates returns the non-terminal states of the type.
func (r *Registry) OpenStates(t lifecycle.DocumentType) []lifecycle.State {
	spec, ok := r.types[t]
	if !ok {
		return nil
	}
	var open []lifecycle.State
	for _, s := range spec.States {
		if !spec.terminal[s] {
			open = append(open, s)
		}
	}
	return open
}

// TerminalStates returns the terminal states of the type.
func (r *Registry) TerminalStates(t lifecycle.DocumentType) []lifecycle.State {
	spec, ok := r.types[t]
	if !ok {
		return nil
	}
	var terminal []lifecycle.State
	for _, s := range spec.States {
		if spec.terminal[s] {
			terminal = append(terminal, s)
		}
	}
	return terminal
}

// InitialState returns the state a new document enters. When the context
// requires approval and the type declares an approval sub-state, that state
// replaces the default initial state.
func (r *Registry) InitialState(t lifecycle.DocumentType, ctx InitialContext) (lifecycle.State, bool) {
	spec, ok := r.types[t]
	if !ok {
		return lifecycle.NoState, false
	}
	if ctx.RequiresApproval && spec.Approval != lifecycle.NoState {
		return spec.Approval, true
	}
	return spec.Initial, true
}
