package cli

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/Mmartinrusso/Orvit-sub062/internal/core/lifecycle"
	"github.com/Mmartinrusso/Orvit-sub062/internal/ports/primary"
)

// AdminAdapter translates CLI operations to the period, configuration and
// inventory services.
type AdminAdapter struct {
	periods   primary.PeriodService
	configs   primary.ConfigService
	inventory primary.InventoryService
	out       io.Writer
}

// NewAdminAdapter creates a new AdminAdapter.
func NewAdminAdapter(periods primary.PeriodService, configs primary.ConfigService, inventory primary.InventoryService, out io.Writer) *AdminAdapter {
	return &AdminAdapter{
		periods:   periods,
		configs:   configs,
		inventory: inventory,
		out:       out,
	}
}

// ClosePeriod closes an accounting period.
func (a *AdminAdapter) ClosePeriod(ctx context.Context, tenantID string, actor lifecycle.Actor, periodKey string) error {
	lock, err := a.periods.ClosePeriod(ctx, tenantID, actor, periodKey)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "✓ Period %s closed by %s\n", lock.PeriodKey, lock.ClosedBy)
	return nil
}

// ReopenPeriod reopens an accounting period.
func (a *AdminAdapter) ReopenPeriod(ctx context.Context, tenantID string, actor lifecycle.Actor, periodKey string) error {
	lock, err := a.periods.ReopenPeriod(ctx, tenantID, actor, periodKey)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "✓ Period %s reopened\n", lock.PeriodKey)
	return nil
}

// PeriodStatus prints whether a period is closed.
func (a *AdminAdapter) PeriodStatus(ctx context.Context, tenantID, periodKey string) (*lifecycle.PeriodLock, error) {
	lock, err := a.periods.PeriodStatus(ctx, tenantID, periodKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get period status: %w", err)
	}
	fmt.Fprintf(a.out, "Period %s: %s\n", lock.PeriodKey, periodState(lock))
	return lock, nil
}

// ListPeriods prints every period with a lock row.
func (a *AdminAdapter) ListPeriods(ctx context.Context, tenantID string) ([]*lifecycle.PeriodLock, error) {
	locks, err := a.periods.ListPeriods(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list periods: %w", err)
	}

	if len(locks) == 0 {
		fmt.Fprintln(a.out, "No closed periods")
		return locks, nil
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PERIOD\tSTATUS\tUPDATED")
	for _, lock := range locks {
		fmt.Fprintf(w, "%s\t%s\t%s\n", lock.PeriodKey, periodState(lock), lock.UpdatedAt.Format(timeLayout))
	}
	w.Flush()
	return locks, nil
}

func periodState(lock *lifecycle.PeriodLock) string {
	if !lock.Closed {
		return "open"
	}
	state := color.New(color.FgRed).Sprint("closed")
	if lock.ClosedBy != "" {
		state += " by " + lock.ClosedBy
	}
	if lock.ClosedAt != nil {
		state += " at " + lock.ClosedAt.Format(timeLayout)
	}
	return state
}

// SetRule replaces the approval rule of a document type.
func (a *AdminAdapter) SetRule(ctx context.Context, actor lifecycle.Actor, rule lifecycle.ApprovalRule) error {
	if err := a.configs.SetApprovalRule(ctx, actor, rule); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "✓ Approval rule for %s updated (threshold %d)\n", rule.DocumentType, rule.ThresholdAmount)
	return nil
}

// ShowRule prints the approval rule of a document type.
func (a *AdminAdapter) ShowRule(ctx context.Context, tenantID string, docType lifecycle.DocumentType) (*lifecycle.ApprovalRule, error) {
	rule, err := a.configs.GetApprovalRule(ctx, tenantID, docType)
	if err != nil {
		return nil, fmt.Errorf("failed to get approval rule: %w", err)
	}
	if rule == nil {
		fmt.Fprintf(a.out, "No approval rule for %s (routing disabled)\n", docType)
		return nil, nil
	}

	fmt.Fprintf(a.out, "\nApproval rule: %s\n", rule.DocumentType)
	if rule.ThresholdAmount == 0 {
		fmt.Fprintln(a.out, "Threshold: disabled")
	} else {
		fmt.Fprintf(a.out, "Threshold: %d\n", rule.ThresholdAmount)
	}
	if len(rule.UrgencyTriggers) > 0 {
		fmt.Fprintf(a.out, "Urgency:   %s\n", strings.Join(rule.UrgencyTriggers, ", "))
	}
	fmt.Fprintf(a.out, "Catalog reference required: %t\n", rule.RequireCatalogReference)
	if rule.UpdatedBy != "" {
		fmt.Fprintf(a.out, "Updated:   %s by %s\n", rule.UpdatedAt.Format(timeLayout), rule.UpdatedBy)
	}
	fmt.Fprintln(a.out)
	return rule, nil
}

// SetPolicy replaces the duplicate policy of a document type.
func (a *AdminAdapter) SetPolicy(ctx context.Context, actor lifecycle.Actor, policy lifecycle.DuplicatePolicy) error {
	if err := a.configs.SetDuplicatePolicy(ctx, actor, policy); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "✓ Duplicate policy for %s updated (window %s, cutoff %.2f)\n", policy.DocumentType, policy.Window, policy.Cutoff)
	return nil
}

// ShowPolicy prints the effective duplicate policy of a document type.
func (a *AdminAdapter) ShowPolicy(ctx context.Context, tenantID string, docType lifecycle.DocumentType) (lifecycle.DuplicatePolicy, error) {
	policy, err := a.configs.GetDuplicatePolicy(ctx, tenantID, docType)
	if err != nil {
		return policy, fmt.Errorf("failed to get duplicate policy: %w", err)
	}
	fmt.Fprintf(a.out, "Duplicate policy %s: window %s, cutoff %.2f\n", docType, policy.Window, policy.Cutoff)
	return policy, nil
}

// SetStock overwrites the stock level of an item.
func (a *AdminAdapter) SetStock(ctx context.Context, tenantID string, actor lifecycle.Actor, itemID string, quantity int64) error {
	if err := a.inventory.SetStock(ctx, tenantID, actor, itemID, quantity); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "✓ Stock of %s set to %d\n", itemID, quantity)
	return nil
}

// ShowStock prints every stock level of the tenant.
func (a *AdminAdapter) ShowStock(ctx context.Context, tenantID string) (map[string]int64, error) {
	stock, err := a.inventory.Stock(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to read stock: %w", err)
	}

	if len(stock) == 0 {
		fmt.Fprintln(a.out, "No stock recorded")
		return stock, nil
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ITEM\tQUANTITY")
	for _, item := range slices.Sorted(maps.Keys(stock)) {
		qty := fmt.Sprint(stock[item])
		if stock[item] < 0 {
			qty = color.New(color.FgRed).Sprint(qty)
		}
		fmt.Fprintf(w, "%s\t%s\n", item, qty)
	}
	w.Flush()
	return stock, nil
}

// Movements prints the stock movements a document caused.
func (a *AdminAdapter) Movements(ctx context.Context, tenantID, documentID string) ([]*lifecycle.InventoryMovement, error) {
	moves, err := a.inventory.Movements(ctx, tenantID, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to read movements: %w", err)
	}

	if len(moves) == 0 {
		fmt.Fprintf(a.out, "No stock movements for %s\n", documentID)
		return moves, nil
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ITEM\tDELTA\tTIME")
	for _, m := range moves {
		fmt.Fprintf(w, "%s\t%+d\t%s\n", m.ItemID, m.Delta, m.CreatedAt.Format(timeLayout))
	}
	w.Flush()
	return moves, nil
}
