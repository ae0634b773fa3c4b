package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/Mmartinrusso/Orvit-sub062/internal/core/lifecycle"
	"github.com/Mmartinrusso/Orvit-sub062/internal/ports/secondary"
)

// DuplicateDefaults applies when a tenant has no duplicate policy for a type.
type DuplicateDefaults struct {
	Window time.Duration
	Cutoff float64
}

// DefaultDuplicateDefaults is a 48 hour window with a 0.85 similarity cutoff.
var DefaultDuplicateDefaults = DuplicateDefaults{Window: 48 * time.Hour, Cutoff: 0.85}

// ConfigCache fronts approval rules and duplicate policies with a
// secondary.Cache. Concurrent misses for one key share a single load.
// Cache failures degrade to reading through the transaction.
type ConfigCache struct {
	cache    secondary.Cache
	group    singleflight.Group
	defaults DuplicateDefaults
	logger   zerolog.Logger
}

// NewConfigCache creates a config cache over the given backend.
func NewConfigCache(cache secondary.Cache, defaults DuplicateDefaults, logger zerolog.Logger) *ConfigCache {
	if defaults.Window <= 0 {
		defaults.Window = DefaultDuplicateDefaults.Window
	}
	if defaults.Cutoff <= 0 || defaults.Cutoff > 1 {
		defaults.Cutoff = DefaultDuplicateDefaults.Cutoff
	}
	return &ConfigCache{
		cache:    cache,
		defaults: defaults,
		logger:   logger.With().Str("component", "config_cache").Logger(),
	}
}

// Defaults returns the fallback duplicate settings.
func (c *ConfigCache) Defaults() DuplicateDefaults {
	return c.defaults
}

func approvalRuleKey(tenantID string, docType lifecycle.DocumentType) string {
	return fmt.Sprintf("approval_rule:%s:%s", tenantID, docType)
}

func duplicatePolicyKey(tenantID string, docType lifecycle.DocumentType) string {
	return fmt.Sprintf("duplicate_policy:%s:%s", tenantID, docType)
}

// ApprovalRule returns the tenant's rule for the type, nil when none exists.
func (c *ConfigCache) ApprovalRule(ctx context.Context, tx secondary.Tx, tenantID string, docType lifecycle.DocumentType) (*lifecycle.ApprovalRule, error) {
	var rule *lifecycle.ApprovalRule
	err := c.load(ctx, approvalRuleKey(tenantID, docType), &rule, func() (any, error) {
		return tx.Rules().Get(ctx, tenantID, docType)
	})
	if err != nil {
		return nil, err
	}
	return rule, nil
}

// DuplicatePolicy returns the tenant's policy for the type with defaults filled in.
func (c *ConfigCache) DuplicatePolicy(ctx context.Context, tx secondary.Tx, tenantID string, docType lifecycle.DocumentType) (lifecycle.DuplicatePolicy, error) {
	var stored *lifecycle.DuplicatePolicy
	err := c.load(ctx, duplicatePolicyKey(tenantID, docType), &stored, func() (any, error) {
		return tx.DuplicatePolicies().Get(ctx, tenantID, docType)
	})
	if err != nil {
		return lifecycle.DuplicatePolicy{}, err
	}

	policy := lifecycle.DuplicatePolicy{
		TenantID:     tenantID,
		DocumentType: docType,
		Window:       c.defaults.Window,
		Cutoff:       c.defaults.Cutoff,
	}
	if stored != nil {
		if stored.Window > 0 {
			policy.Window = stored.Window
		}
		if stored.Cutoff > 0 {
			policy.Cutoff = stored.Cutoff
		}
	}
	return policy, nil
}

// InvalidateApprovalRule drops the cached rule.
func (c *ConfigCache) InvalidateApprovalRule(ctx context.Context, tenantID string, docType lifecycle.DocumentType) {
	c.invalidate(ctx, approvalRuleKey(tenantID, docType))
}

// InvalidateDuplicatePolicy drops the cached policy.
func (c *ConfigCache) InvalidateDuplicatePolicy(ctx context.Context, tenantID string, docType lifecycle.DocumentType) {
	c.invalidate(ctx, duplicatePolicyKey(tenantID, docType))
}

func (c *ConfigCache) invalidate(ctx context.Context, key string) {
	c.group.Forget(key)
	if err := c.cache.Delete(ctx, key); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache invalidation failed")
	}
}

// load decodes the cached JSON for key into out, or calls fetch, caches its
// JSON encoding and decodes that. A nil result is cached as JSON null.
func (c *ConfigCache) load(ctx context.Context, key string, out any, fetch func() (any, error)) error {
	if raw, ok, err := c.cache.Get(ctx, key); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache read failed")
	} else if ok {
		if err := json.Unmarshal(raw, out); err == nil {
			return nil
		}
		c.logger.Warn().Str("key", key).Msg("discarding undecodable cache entry")
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		value, err := fetch()
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", key, err)
		}
		if err := c.cache.Set(ctx, key, raw); err != nil {
			c.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
		}
		return raw, nil
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(v.([]byte), out)
}
