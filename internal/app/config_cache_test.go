package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Mmartinrusso/Orvit-sub062/internal/adapters/cache"
	"github.com/Mmartinrusso/Orvit-sub062/internal/core/lifecycle"
	"github.com/Mmartinrusso/Orvit-sub062/internal/ports/secondary"
)

// countingRules is an ApprovalRuleRepository that counts reads and can
// hold them until release is closed.
type countingRules struct {
	reads   atomic.Int32
	release chan struct{}
	rule    *lifecycle.ApprovalRule
}

func (r *countingRules) Get(ctx context.Context, tenantID string, docType lifecycle.DocumentType) (*lifecycle.ApprovalRule, error) {
	r.reads.Add(1)
	if r.release != nil {
		<-r.release
	}
	return r.rule, nil
}

func (r *countingRules) Upsert(ctx context.Context, rule *lifecycle.ApprovalRule) error {
	r.rule = rule
	return nil
}

// rulesOnlyTx exposes a single repository; every other accessor panics.
type rulesOnlyTx struct {
	secondary.Tx
	rules secondary.ApprovalRuleRepository
}

func (tx rulesOnlyTx) Rules() secondary.ApprovalRuleRepository { return tx.rules }

// failingCache fails every operation.
type failingCache struct{}

func (failingCache) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("cache down")
}
func (failingCache) Set(context.Context, string, []byte) error { return errors.New("cache down") }
func (failingCache) Delete(context.Context, ...string) error { return errors.New("cache down") }

func TestConfigCache_ServesFromCacheUntilInvalidated(t *testing.T) {
	repo := &countingRules{rule: &lifecycle.ApprovalRule{TenantID: testTenant, DocumentType: lifecycle.TypePurchaseRequest, ThresholdAmount: 10}}
	tx := rulesOnlyTx{rules: repo}
	configs := NewConfigCache(cache.NewMemory(16, time.Minute), DefaultDuplicateDefaults, zerolog.Nop())
	ctx := context.Background()

	for range 3 {
		rule, err := configs.ApprovalRule(ctx, tx, testTenant, lifecycle.TypePurchaseRequest)
		if err != nil {
			t.Fatalf("ApprovalRule: %v", err)
		}
		if rule.ThresholdAmount != 10 {
			t.Fatalf("expected threshold 10, got %d", rule.ThresholdAmount)
		}
	}
	if got := repo.reads.Load(); got != 1 {
		t.Errorf("expected 1 repository read, got %d", got)
	}

	repo.rule = &lifecycle.ApprovalRule{TenantID: testTenant, DocumentType: lifecycle.TypePurchaseRequest, ThresholdAmount: 20}
	rule, _ := configs.ApprovalRule(ctx, tx, testTenant, lifecycle.TypePurchaseRequest)
	if rule.ThresholdAmount != 10 {
		t.Errorf("expected stale cached threshold 10, got %d", rule.ThresholdAmount)
	}

	configs.InvalidateApprovalRule(ctx, testTenant, lifecycle.TypePurchaseRequest)
	rule, _ = configs.ApprovalRule(ctx, tx, testTenant, lifecycle.TypePurchaseRequest)
	if rule.ThresholdAmount != 20 {
		t.Errorf("expected threshold 20 after invalidation, got %d", rule.ThresholdAmount)
	}
}

func TestConfigCache_CachesMissingRule(t *testing.T) {
	repo := &countingRules{}
	tx := rulesOnlyTx{rules: repo}
	configs := NewConfigCache(cache.NewMemory(16, time.Minute), DefaultDuplicateDefaults, zerolog.Nop())

	for range 2 {
		rule, err := configs.ApprovalRule(context.Background(), tx, testTenant, lifecycle.TypeWorkOrder)
		if err != nil {
			t.Fatalf("ApprovalRule: %v", err)
		}
		if rule != nil {
			t.Fatalf("expected nil rule, got %+v", rule)
		}
	}
	if got := repo.reads.Load(); got != 1 {
		t.Errorf("expected the miss to be cached, got %d reads", got)
	}
}

func TestConfigCache_ConcurrentMissesShareOneLoad(t *testing.T) {
	repo := &countingRules{release: make(chan struct{}), rule: &lifecycle.ApprovalRule{ThresholdAmount: 5}}
	tx := rulesOnlyTx{rules: repo}
	configs := NewConfigCache(cache.NewMemory(16, time.Minute), DefaultDuplicateDefaults, zerolog.Nop())

	const callers = 10
	var wg sync.WaitGroup
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := configs.ApprovalRule(context.Background(), tx, testTenant, lifecycle.TypePurchaseRequest); err != nil {
				t.Errorf("ApprovalRule: %v", err)
			}
		}()
	}
	time.Sleep(100 * time.Millisecond)
	close(repo.release)
	wg.Wait()

	if got := repo.reads.Load(); got >= callers {
		t.Errorf("expected concurrent misses to share loads, got %d reads", got)
	}
}

func TestConfigCache_BackendFailureReadsThrough(t *testing.T) {
	repo := &countingRules{rule: &lifecycle.ApprovalRule{ThresholdAmount: 7}}
	tx := rulesOnlyTx{rules: repo}
	configs := NewConfigCache(failingCache{}, DefaultDuplicateDefaults, zerolog.Nop())

	rule, err := configs.ApprovalRule(context.Background(), tx, testTenant, lifecycle.TypePurchaseRequest)
	if err != nil {
		t.Fatalf("expected read-through on cache failure, got %v", err)
	}
	if rule.ThresholdAmount != 7 {
		t.Errorf("expected threshold 7, got %d", rule.ThresholdAmount)
	}
	configs.InvalidateApprovalRule(context.Background(), testTenant, lifecycle.TypePurchaseRequest)
}

func TestConfigCache_DuplicatePolicyDefaults(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	policy, err := env.settings.GetDuplicatePolicy(ctx, testTenant, lifecycle.TypeWorkOrder)
	if err != nil {
		t.Fatalf("GetDuplicatePolicy: %v", err)
	}
	if policy.Window != 48*time.Hour || policy.Cutoff != 0.85 {
		t.Errorf("expected defaults 48h/0.85, got %s/%g", policy.Window, policy.Cutoff)
	}

	if err := env.settings.SetDuplicatePolicy(ctx, env.admin("admin"), lifecycle.DuplicatePolicy{
		TenantID: testTenant, DocumentType: lifecycle.TypeWorkOrder, Window: 6 * time.Hour, Cutoff: 0.9,
	}); err != nil {
		t.Fatalf("SetDuplicatePolicy: %v", err)
	}
	policy, _ = env.settings.GetDuplicatePolicy(ctx, testTenant, lifecycle.TypeWorkOrder)
	if policy.Window != 6*time.Hour || policy.Cutoff != 0.9 {
		t.Errorf("expected 6h/0.9 after update, got %s/%g", policy.Window, policy.Cutoff)
	}
}

func TestConfigService_RuleChangeTakesEffectImmediately(t *testing.T) {
	env := newTestEnv(t)
	admin := env.admin("admin")
	ctx := context.Background()
	setThreshold := func(v int64) {
		t.Helper()
		if err := env.settings.SetApprovalRule(ctx, admin, lifecycle.ApprovalRule{
			TenantID: testTenant, DocumentType: lifecycle.TypePurchaseRequest, ThresholdAmount: v,
		}); err != nil {
			t.Fatalf("SetApprovalRule: %v", err)
		}
	}
	payload := lifecycle.Payload{Title: "Filtros", Amount: 500, Lines: []lifecycle.LineItem{{ItemID: "F", Quantity: 1}}}

	setThreshold(1000)
	if res := env.create(t, admin, lifecycle.TypePurchaseRequest, "PR-1", payload); res.Routed {
		t.Errorf("PR-1 should not route under threshold 1000")
	}

	setThreshold(100)
	if res := env.create(t, admin, lifecycle.TypePurchaseRequest, "PR-2", payload); !res.Routed {
		t.Errorf("PR-2 should route under threshold 100")
	}

	rule, err := env.settings.GetApprovalRule(ctx, testTenant, lifecycle.TypePurchaseRequest)
	if err != nil {
		t.Fatalf("GetApprovalRule: %v", err)
	}
	if rule.UpdatedBy != "admin" || !rule.UpdatedAt.Equal(testNow) {
		t.Errorf("unexpected audit fields %q %v", rule.UpdatedBy, rule.UpdatedAt)
	}
}

func TestConfigService_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.admin("admin")

	ruleTests := []struct {
		name  string
		actor lifecycle.Actor
		rule  lifecycle.ApprovalRule
	}{
		{name: "missing permission", actor: actor("clerk"), rule: lifecycle.ApprovalRule{TenantID: testTenant, DocumentType: lifecycle.TypePurchaseRequest}},
		{name: "unknown type", actor: admin, rule: lifecycle.ApprovalRule{TenantID: testTenant, DocumentType: "INVOICE"}},
		{name: "missing tenant", actor: admin, rule: lifecycle.ApprovalRule{DocumentType: lifecycle.TypePurchaseRequest}},
		{name: "negative threshold", actor: admin, rule: lifecycle.ApprovalRule{TenantID: testTenant, DocumentType: lifecycle.TypePurchaseRequest, ThresholdAmount: -1}},
	}
	for _, tt := range ruleTests {
		t.Run("rule "+tt.name, func(t *testing.T) {
			if err := env.settings.SetApprovalRule(ctx, tt.actor, tt.rule); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}

	policyTests := []struct {
		name   string
		policy lifecycle.DuplicatePolicy
	}{
		{name: "window too short", policy: lifecycle.DuplicatePolicy{TenantID: testTenant, DocumentType: lifecycle.TypeWorkOrder, Window: time.Millisecond, Cutoff: 0.5}},
		{name: "zero cutoff", policy: lifecycle.DuplicatePolicy{TenantID: testTenant, DocumentType: lifecycle.TypeWorkOrder, Window: time.Hour}},
		{name: "cutoff above one", policy: lifecycle.DuplicatePolicy{TenantID: testTenant, DocumentType: lifecycle.TypeWorkOrder, Window: time.Hour, Cutoff: 1.2}},
	}
	for _, tt := range policyTests {
		t.Run("policy "+tt.name, func(t *testing.T) {
			if err := env.settings.SetDuplicatePolicy(ctx, admin, tt.policy); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}

	err := env.settings.SetApprovalRule(ctx, actor("clerk"), lifecycle.ApprovalRule{TenantID: testTenant, DocumentType: lifecycle.TypePurchaseRequest})
	wantGuard(t, err, lifecycle.GuardPermissionDenied)
}
