package app

import (
	"context"

	"github.com/Mmartinrusso/Orvit-sub062/internal/core/lifecycle"
	"github.com/Mmartinrusso/Orvit-sub062/internal/core/visibility"
	"github.com/Mmartinrusso/Orvit-sub062/internal/ports/primary"
	"github.com/Mmartinrusso/Orvit-sub062/internal/ports/secondary"
)

// History page sizes.
const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500
)

// DocumentServiceImpl implements primary.DocumentService and primary.AuditService.
type DocumentServiceImpl struct {
	store secondary.Store
}

var (
	_ primary.DocumentService = (*DocumentServiceImpl)(nil)
	_ primary.AuditService    = (*DocumentServiceImpl)(nil)
)

// NewDocumentService creates a new DocumentService with injected dependencies.
func NewDocumentService(store secondary.Store) *DocumentServiceImpl {
	return &DocumentServiceImpl{store: store}
}

// GetDocument retrieves a document the caller can see.
func (s *DocumentServiceImpl) GetDocument(ctx context.Context, tenantID string, actor lifecycle.Actor, id string) (*lifecycle.Document, error) {
	var doc *lifecycle.Document
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx secondary.Tx) error {
		var err error
		doc, err = tx.Documents().Get(ctx, tenantID, id, visibility.Allowed(actor))
		return err
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// ListDocuments lists documents the caller can see, newest first.
func (s *DocumentServiceImpl) ListDocuments(ctx context.Context, actor lifecycle.Actor, filters primary.DocumentFilters) ([]*lifecycle.Document, error) {
	var docs []*lifecycle.Document
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx secondary.Tx) error {
		var err error
		docs, err = tx.Documents().List(ctx, secondary.DocumentFilters{
			TenantID: filters.TenantID,
			Type:     filters.Type,
			State:    filters.State,
			Scopes:   visibility.Allowed(actor),
			Limit:    filters.Limit,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// DerivedRecords lists the records side effects appended for a visible document.
func (s *DocumentServiceImpl) DerivedRecords(ctx context.Context, tenantID string, actor lifecycle.Actor, id string) ([]*lifecycle.DerivedRecord, error) {
	var records []*lifecycle.DerivedRecord
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx secondary.Tx) error {
		if _, err := tx.Documents().Get(ctx, tenantID, id, visibility.Allowed(actor)); err != nil {
			return err
		}
		var err error
		records, err = tx.Records().ListByDocument(ctx, tenantID, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// History returns one page of a visible document's audit trail.
func (s *DocumentServiceImpl) History(ctx context.Context, req primary.HistoryRequest) (*primary.HistoryPage, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	limit = min(limit, MaxHistoryLimit)

	var events []*lifecycle.TransitionEvent
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx secondary.Tx) error {
		if _, err := tx.Documents().Get(ctx, req.TenantID, req.DocumentID, visibility.Allowed(req.Actor)); err != nil {
			return err
		}
		var err error
		events, err = tx.Events().History(ctx, req.TenantID, req.DocumentID, secondary.HistoryQuery{
			AfterSeq: req.AfterSeq,
			Limit:    limit + 1,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	page := &primary.HistoryPage{NextAfterSeq: req.AfterSeq}
	if len(events) > limit {
		page.HasMore = true
		events = events[:limit]
	}
	page.Events = events
	if n := len(events); n > 0 {
		page.NextAfterSeq = events[n-1].Seq
	}
	return page, nil
}
