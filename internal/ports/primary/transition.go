package primary

import (
	"context"

	"github.com/Mmartinrusso/Orvit-sub062/internal/core/lifecycle"
)

// TransitionService defines the primary port for moving documents through
// their lifecycle. It is the only way a document's state changes.
type TransitionService interface {
	// Apply traverses a named edge from the document's current state.
	Apply(ctx context.Context, req ApplyRequest) (*TransitionResult, error)

	// Create creates a document through its type's creation edge.
	Create(ctx context.Context, req CreateRequest) (*TransitionResult, error)
}

// ApplyRequest contains parameters for applying a transition.
type ApplyRequest struct {
	TenantID     string
	Actor        lifecycle.Actor
	DocumentType lifecycle.DocumentType
	DocumentID   string
	Edge         string
	Payload      lifecycle.Payload
	Reason       string

	// ExpectedVersion, when non-zero, must equal the stored version or the
	// request fails with CONCURRENT_MODIFICATION.
	ExpectedVersion int64
}

// CreateRequest contains parameters for creating a document.
type CreateRequest struct {
	TenantID     string
	Actor        lifecycle.Actor
	DocumentType lifecycle.DocumentType
	DocumentID   string // Optional - generated when empty
	Payload      lifecycle.Payload
	Reason       string
}

// TransitionResult describes a committed transition.
type TransitionResult struct {
	Document *lifecycle.Document
	Event    *lifecycle.TransitionEvent

	// Routed is set when the threshold guard sent a new document to the
	// approval sub-state instead of the default initial state.
	Routed      bool
	RouteReason string

	// DuplicateOverride is set when the caller confirmed the document is not a duplicate.
	DuplicateOverride bool

	// LinkedEvents are the events written for documents advanced by side effects.
	LinkedEvents []*lifecycle.TransitionEvent

	// LinkedDocuments are the documents advanced by side effects, after the change.
	LinkedDocuments []*lifecycle.Document
}
