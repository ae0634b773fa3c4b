package app

import (
	"context"
	"fmt"
	"time"

	"github.com/Mmartinrusso/Orvit-sub062/internal/core/lifecycle"
	"github.com/Mmartinrusso/Orvit-sub062/internal/core/registry"
	"github.com/Mmartinrusso/Orvit-sub062/internal/ports/primary"
	"github.com/Mmartinrusso/Orvit-sub062/internal/ports/secondary"
)

// ConfigServiceImpl implements primary.ConfigService.
// Writes commit first and invalidate the config cache afterwards.
type ConfigServiceImpl struct {
	store    secondary.Store
	registry *registry.Registry
	configs  *ConfigCache
	clock    Clock
}

var _ primary.ConfigService = (*ConfigServiceImpl)(nil)

// NewConfigService creates a new ConfigService with injected dependencies.
func NewConfigService(store secondary.Store, reg *registry.Registry, configs *ConfigCache, clock Clock) *ConfigServiceImpl {
	if clock == nil {
		clock = time.Now
	}
	return &ConfigServiceImpl{store: store, registry: reg, configs: configs, clock: clock}
}

func (s *ConfigServiceImpl) checkType(docType lifecycle.DocumentType) error {
	if _, ok := s.registry.Spec(docType); !ok {
		return fmt.Errorf("unknown document type %s", docType)
	}
	return nil
}

// SetApprovalRule creates or replaces the approval rule of a document type.
func (s *ConfigServiceImpl) SetApprovalRule(ctx context.Context, actor lifecycle.Actor, rule lifecycle.ApprovalRule) error {
	if err := requirePermission(actor, "set_approval_rule", PermConfigManage); err != nil {
		return err
	}
	if err := s.checkType(rule.DocumentType); err != nil {
		return err
	}
	if rule.TenantID == "" {
		return fmt.Errorf("approval rule needs a tenant")
	}
	if rule.ThresholdAmount < 0 {
		return fmt.Errorf("threshold must not be negative, got %d", rule.ThresholdAmount)
	}

	rule.UpdatedBy = actor.ID
	rule.UpdatedAt = s.clock().UTC()
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx secondary.Tx) error {
		return tx.Rules().Upsert(ctx, &rule)
	})
	if err != nil {
		return fmt.Errorf("failed to save approval rule: %w", err)
	}
	s.configs.InvalidateApprovalRule(ctx, rule.TenantID, rule.DocumentType)
	return nil
}

// GetApprovalRule returns the approval rule of a document type, nil when none exists.
func (s *ConfigServiceImpl) GetApprovalRule(ctx context.Context, tenantID string, docType lifecycle.DocumentType) (*lifecycle.ApprovalRule, error) {
	var rule *lifecycle.ApprovalRule
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx secondary.Tx) error {
		var err error
		rule, err = tx.Rules().Get(ctx, tenantID, docType)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rule, nil
}

// SetDuplicatePolicy creates or replaces the duplicate policy of a document type.
func (s *ConfigServiceImpl) SetDuplicatePolicy(ctx context.Context, actor lifecycle.Actor, policy lifecycle.DuplicatePolicy) error {
	if err := requirePermission(actor, "set_duplicate_policy", PermConfigManage); err != nil {
		return err
	}
	if err := s.checkType(policy.DocumentType); err != nil {
		return err
	}
	if policy.TenantID == "" {
		return fmt.Errorf("duplicate policy needs a tenant")
	}
	if policy.Window < time.Second {
		return fmt.Errorf("duplicate window must be at least one second, got %s", policy.Window)
	}
	if policy.Cutoff <= 0 || policy.Cutoff > 1 {
		return fmt.Errorf("duplicate cutoff must be in (0, 1], got %g", policy.Cutoff)
	}

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx secondary.Tx) error {
		return tx.DuplicatePolicies().Upsert(ctx, &policy)
	})
	if err != nil {
		return fmt.Errorf("failed to save duplicate policy: %w", err)
	}
	s.configs.InvalidateDuplicatePolicy(ctx, policy.TenantID, policy.DocumentType)
	return nil
}

// GetDuplicatePolicy returns the effective duplicate policy, defaults included.
func (s *ConfigServiceImpl) GetDuplicatePolicy(ctx context.Context, tenantID string, docType lifecycle.DocumentType) (lifecycle.DuplicatePolicy, error) {
	var policy lifecycle.DuplicatePolicy
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx secondary.Tx) error {
		var err error
		policy, err = s.configs.DuplicatePolicy(ctx, tx, tenantID, docType)
		return err
	})
	return policy, err
}
