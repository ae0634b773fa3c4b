package lifecycle

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a transition failure.
type Kind string

const (
	KindInvalidTransition      Kind = "INVALID_TRANSITION"
	KindGuardFailed            Kind = "GUARD_FAILED"
	KindConcurrentModification Kind = "CONCURRENT_MODIFICATION"
	KindNotFound               Kind = "NOT_FOUND"
	KindSideEffectFailed       Kind = "SIDE_EFFECT_FAILED"
	KindTimeout                Kind = "TIMEOUT"
	KindInternal               Kind = "INTERNAL"
)

// GuardKind is the sub-kind of a GUARD_FAILED error.
type GuardKind string

const (
	GuardPermissionDenied   GuardKind = "PERMISSION_DENIED"
	GuardSoDViolation       GuardKind = "SOD_VIOLATION"
	GuardPreconditionNotMet GuardKind = "PRECONDITION_NOT_MET"
	GuardThresholdRouted    GuardKind = "THRESHOLD_ROUTED"
	GuardDuplicateDetected  GuardKind = "DUPLICATE_DETECTED"
	GuardPeriodLocked       GuardKind = "PERIOD_LOCKED"
)

// Candidate is an existing open document the uniqueness guard matched.
type Candidate struct {
	DocumentID string
	Score      float64
}

// Error is the structured failure returned by the engine. Guard failures and
// invalid transitions are expected business outcomes; callers inspect Kind
// (or use errors.Is with the sentinels below) to build user-facing messages.
type Error struct {
	Kind       Kind
	GuardKind  GuardKind
	Detail     string
	Candidates []Candidate
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.GuardKind != "" {
		b.WriteString("(" + string(e.GuardKind) + ")")
	}
	if e.Detail != "" {
		b.WriteString(": " + e.Detail)
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinels by kind, and by guard kind when the sentinel has one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.GuardKind == "" || t.GuardKind == e.GuardKind
}

// Sentinels for errors.Is.
var (
	ErrInvalidTransition      = &Error{Kind: KindInvalidTransition}
	ErrGuardFailed            = &Error{Kind: KindGuardFailed}
	ErrPermissionDenied       = &Error{Kind: KindGuardFailed, GuardKind: GuardPermissionDenied}
	ErrSoDViolation           = &Error{Kind: KindGuardFailed, GuardKind: GuardSoDViolation}
	ErrPreconditionNotMet     = &Error{Kind: KindGuardFailed, GuardKind: GuardPreconditionNotMet}
	ErrDuplicateDetected      = &Error{Kind: KindGuardFailed, GuardKind: GuardDuplicateDetected}
	ErrPeriodLocked           = &Error{Kind: KindGuardFailed, GuardKind: GuardPeriodLocked}
	ErrConcurrentModification = &Error{Kind: KindConcurrentModification}
	ErrNotFound               = &Error{Kind: KindNotFound}
	ErrSideEffectFailed       = &Error{Kind: KindSideEffectFailed}
	ErrTimeout                = &Error{Kind: KindTimeout}
	ErrInternal               = &Error{Kind: KindInternal}
)

// InvalidTransition reports that no edge named edge leaves from for the type.
func InvalidTransition(docType DocumentType, from State, edge string) *Error {
	fromLabel := string(from)
	if from == NoState {
		fromLabel = "<new>"
	}
	return &Error{
		Kind:   KindInvalidTransition,
		Detail: fmt.Sprintf("%s has no %q transition from state %s", docType, edge, fromLabel),
	}
}

// GuardFailed builds a guard failure of the given sub-kind.
func GuardFailed(kind GuardKind, detail string) *Error {
	return &Error{Kind: KindGuardFailed, GuardKind: kind, Detail: detail}
}

// DuplicateDetected builds the uniqueness guard failure.
func DuplicateDetected(candidates []Candidate) *Error {
	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = fmt.Sprintf("%s (%.2f)", c.DocumentID, c.Score)
	}
	return &Error{
		Kind:       KindGuardFailed,
		GuardKind:  GuardDuplicateDetected,
		Detail:     "possible duplicate of " + strings.Join(ids, ", "),
		Candidates: candidates,
	}
}

// ConcurrentModification reports that a concurrent writer advanced the document first.
func ConcurrentModification(detail string, err error) *Error {
	return &Error{Kind: KindConcurrentModification, Detail: detail, Err: err}
}

// NotFound reports a document that does not exist or is not visible to the caller.
func NotFound(what, id string) *Error {
	return &Error{Kind: KindNotFound, Detail: fmt.Sprintf("%s %s not found", what, id)}
}

// SideEffectFailed wraps a side-effect failure; the enclosing transaction is always rolled back.
func SideEffectFailed(effect string, err error) *Error {
	return &Error{Kind: KindSideEffectFailed, Detail: effect, Err: err}
}

// Timeout reports that the transaction exceeded its time budget.
func Timeout(err error) *Error {
	return &Error{Kind: KindTimeout, Detail: "transaction timed out", Err: err}
}

// Internal wraps an unexpected persistence or evaluation failure.
func Internal(detail string, err error) *Error {
	return &Error{Kind: KindInternal, Detail: detail, Err: err}
}

// KindOf returns the kind of err, KindInternal for foreign errors, and the
// empty kind for nil.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var le *Error
	if errors.As(err, &le) {
		return le.Kind
	}
	return KindInternal
}

// GuardKindOf returns the guard sub-kind of err, if any.
func GuardKindOf(err error) GuardKind {
	var le *Error
	if errors.As(err, &le) {
		return le.GuardKind
	}
	return ""
}

// IsRetryable reports whether the caller may reload and retry.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindConcurrentModification, KindTimeout:
		return true
	}
	return false
}
