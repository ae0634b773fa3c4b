package primary

import (
	"context"

	"github.com/Mmartinrusso/Orvit-sub062/internal/core/lifecycle"
)

// DocumentService defines the primary port for reading documents.
// Every read is restricted to the caller's visibility scope.
type DocumentService interface {
	// GetDocument retrieves a document the caller can see.
	GetDocument(ctx context.Context, tenantID string, actor lifecycle.Actor, id string) (*lifecycle.Document, error)

	// ListDocuments lists documents the caller can see.
	ListDocuments(ctx context.Context, actor lifecycle.Actor, filters DocumentFilters) ([]*lifecycle.Document, error)

	// DerivedRecords lists the records side effects appended for a document.
	DerivedRecords(ctx context.Context, tenantID string, actor lifecycle.Actor, id string) ([]*lifecycle.DerivedRecord, error)
}

// DocumentFilters contains filter options for listing documents.
type DocumentFilters struct {
	TenantID string
	Type     lifecycle.DocumentType
	State    lifecycle.State
	Limit    int
}

// AuditService defines the primary port for reading the audit trail.
type AuditService interface {
	// History returns one page of a document's transition events, oldest first.
	History(ctx context.Context, req HistoryRequest) (*HistoryPage, error)
}

// HistoryRequest contains parameters for reading a document's history.
type HistoryRequest struct {
	TenantID   string
	Actor      lifecycle.Actor
	DocumentID string
	AfterSeq   int64 // cursor; 0 starts from the first event
	Limit      int
}

// HistoryPage is one page of history. NextAfterSeq resumes after the last event.
type HistoryPage struct {
	Events       []*lifecycle.TransitionEvent
	NextAfterSeq int64
	HasMore      bool
}
