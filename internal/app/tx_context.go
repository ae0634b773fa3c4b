package app

import (
	"context"
	"time"

	"github.com/Mmartinrusso/Orvit-sub062/internal/core/duplicate"
	"github.com/Mmartinrusso/Orvit-sub062/internal/core/guard"
	"github.com/Mmartinrusso/Orvit-sub062/internal/core/lifecycle"
	"github.com/Mmartinrusso/Orvit-sub062/internal/core/registry"
	"github.com/Mmartinrusso/Orvit-sub062/internal/ports/secondary"
)

// txContext is the guard.TxContext of one transition: bound to the open
// transaction, the tenant and the caller's visible scopes.
type txContext struct {
	tx       secondary.Tx
	tenantID string
	scopes   []lifecycle.Scope
	configs  *ConfigCache
	registry *registry.Registry
	now      time.Time
}

var _ guard.TxContext = (*txContext)(nil)

func (c *txContext) ApprovalRule(ctx context.Context, docType lifecycle.DocumentType) (*lifecycle.ApprovalRule, error) {
	return c.configs.ApprovalRule(ctx, c.tx, c.tenantID, docType)
}

func (c *txContext) DuplicatePolicy(ctx context.Context, docType lifecycle.DocumentType) (lifecycle.DuplicatePolicy, error) {
	return c.configs.DuplicatePolicy(ctx, c.tx, c.tenantID, docType)
}

func (c *txContext) OpenCandidates(ctx context.Context, docType lifecycle.DocumentType, entityKey string, since time.Time) ([]duplicate.Existing, error) {
	docs, err := c.tx.Documents().OpenCandidates(ctx, secondary.CandidateQuery{
		TenantID:   c.tenantID,
		Type:       docType,
		EntityKey:  entityKey,
		OpenStates: c.registry.OpenStates(docType),
		Since:      since,
		Scopes:     c.scopes,
	})
	if err != nil {
		return nil, err
	}
	existing := make([]duplicate.Existing, len(docs))
	for i, d := range docs {
		existing[i] = duplicate.Existing{
			DocumentID: d.ID,
			Signature:  duplicate.SignatureOf(d),
			CreatedAt:  d.CreatedAt,
		}
	}
	return existing, nil
}

// PeriodLock always reads through the transaction; locks are never cached.
func (c *txContext) PeriodLock(ctx context.Context, periodKey string) (*lifecycle.PeriodLock, error) {
	return c.tx.PeriodLocks().Get(ctx, c.tenantID, periodKey)
}

func (c *txContext) Now() time.Time {
	return c.now
}
