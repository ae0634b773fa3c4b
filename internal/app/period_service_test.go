package app

import (
	"context"
	"testing"
	"time"

	"github.com/Mmartinrusso/Orvit-sub062/internal/core/lifecycle"
)

func TestPeriodService_CloseAndReopen(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	controller := actor("controller", PermPeriodClose)

	status, err := env.periods.PeriodStatus(ctx, testTenant, "2026-02")
	if err != nil {
		t.Fatalf("PeriodStatus: %v", err)
	}
	if status.Closed {
		t.Error("a period without a lock row should be open")
	}

	lock, err := env.periods.ClosePeriod(ctx, testTenant, controller, "2026-02")
	if err != nil {
		t.Fatalf("ClosePeriod: %v", err)
	}
	if !lock.Closed || lock.ClosedBy != "controller" || lock.ClosedAt == nil {
		t.Errorf("unexpected lock %+v", lock)
	}

	env.clock.Advance(time.Hour)
	again, err := env.periods.ClosePeriod(ctx, testTenant, actor("other", PermPeriodClose), "2026-02")
	if err != nil {
		t.Fatalf("second ClosePeriod: %v", err)
	}
	if again.ClosedBy != "controller" || !again.ClosedAt.Equal(testNow) {
		t.Errorf("closing a closed period should keep the original closer, got %+v", again)
	}

	reopened, err := env.periods.ReopenPeriod(ctx, testTenant, controller, "2026-02")
	if err != nil {
		t.Fatalf("ReopenPeriod: %v", err)
	}
	if reopened.Closed || reopened.ClosedBy != "" || reopened.ClosedAt != nil {
		t.Errorf("unexpected reopened lock %+v", reopened)
	}

	locks, err := env.periods.ListPeriods(ctx, testTenant)
	if err != nil {
		t.Fatalf("ListPeriods: %v", err)
	}
	if len(locks) != 1 || locks[0].PeriodKey != "2026-02" {
		t.Errorf("expected one lock row for 2026-02, got %+v", locks)
	}
}

func TestPeriodService_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.periods.ClosePeriod(ctx, testTenant, actor("clerk"), "2026-02")
	wantGuard(t, err, lifecycle.GuardPermissionDenied)

	tests := []string{"2026-13", "26-01", "2026/01", ""}
	for _, key := range tests {
		t.Run(key, func(t *testing.T) {
			if _, err := env.periods.ClosePeriod(ctx, testTenant, env.admin("admin"), key); err == nil {
				t.Errorf("expected error for period key %q", key)
			}
			if _, err := env.periods.PeriodStatus(ctx, testTenant, key); err == nil {
				t.Errorf("expected status error for period key %q", key)
			}
		})
	}
}

func TestPeriodService_LocksAreTenantScoped(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	if _, err := env.periods.ClosePeriod(ctx, "other", env.admin("admin"), "2026-03"); err != nil {
		t.Fatalf("ClosePeriod: %v", err)
	}

	env.create(t, env.admin("admin"), lifecycle.TypeCreditNoteRequest, "CN-1", lifecycle.Payload{
		Amount: 10,
		Links:  map[string]string{"invoice": "INV-1"},
	})
}
