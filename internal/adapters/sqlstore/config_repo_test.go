package sqlstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Mmartinrusso/Orvit-sub062/internal/core/lifecycle"
	"github.com/Mmartinrusso/Orvit-sub062/internal/ports/secondary"
)

func TestApprovalRuleRepository(t *testing.T) {
	store := setupTestStore(t)
	at := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	inTx(t, store, func(ctx context.Context, tx secondary.Tx) error {
		rule, err := tx.Rules().Get(ctx, "t1", lifecycle.TypePurchaseRequest)
		if err != nil {
			return err
		}
		if rule != nil {
			t.Errorf("Get() on empty table = %+v, want nil", rule)
		}

		for _, threshold := range []int64{10000, 25000} {
			err := tx.Rules().Upsert(ctx, &lifecycle.ApprovalRule{
				TenantID:                "t1",
				DocumentType:            lifecycle.TypePurchaseRequest,
				ThresholdAmount:         threshold,
				UrgencyTriggers:         []string{"URGENTE"},
				RequireCatalogReference: true,
				UpdatedBy:               "admin",
				UpdatedAt:               at,
			})
			if err != nil {
				return err
			}
		}

		rule, err = tx.Rules().Get(ctx, "t1", lifecycle.TypePurchaseRequest)
		if err != nil {
			return err
		}
		if rule == nil || rule.ThresholdAmount != 25000 || !rule.RequireCatalogReference || len(rule.UrgencyTriggers) != 1 {
			t.Errorf("Get() = %+v", rule)
		}
		return nil
	})
}

func TestDuplicatePolicyRepository(t *testing.T) {
	store := setupTestStore(t)

	inTx(t, store, func(ctx context.Context, tx secondary.Tx) error {
		if err := tx.DuplicatePolicies().Upsert(ctx, &lifecycle.DuplicatePolicy{
			TenantID:     "t1",
			DocumentType: lifecycle.TypeWorkOrder,
			Window:       72 * time.Hour,
			Cutoff:       0.9,
		}); err != nil {
			return err
		}
		policy, err := tx.DuplicatePolicies().Get(ctx, "t1", lifecycle.TypeWorkOrder)
		if err != nil {
			return err
		}
		if policy == nil || policy.Window != 72*time.Hour || policy.Cutoff != 0.9 {
			t.Errorf("Get() = %+v", policy)
		}
		return nil
	})

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx secondary.Tx) error {
		return tx.DuplicatePolicies().Upsert(ctx, &lifecycle.DuplicatePolicy{
			TenantID: "t1", DocumentType: lifecycle.TypeWorkOrder, Window: time.Hour, Cutoff: 1.5,
		})
	})
	if err == nil {
		t.Error("cutoff above 1 should violate the table constraint")
	}
}

func TestPeriodLockRepository(t *testing.T) {
	store := setupTestStore(t)
	closedAt := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	inTx(t, store, func(ctx context.Context, tx secondary.Tx) error {
		lock, err := tx.PeriodLocks().Get(ctx, "t1", "2026-03")
		if err != nil {
			return err
		}
		if lock != nil {
			t.Errorf("never-locked period = %+v, want nil", lock)
		}

		if err := tx.PeriodLocks().Upsert(ctx, &lifecycle.PeriodLock{
			TenantID: "t1", PeriodKey: "2026-03", Closed: true, ClosedBy: "contador", ClosedAt: &closedAt, UpdatedAt: closedAt,
		}); err != nil {
			return err
		}
		lock, err = tx.PeriodLocks().Get(ctx, "t1", "2026-03")
		if err != nil {
			return err
		}
		if lock == nil || !lock.Closed || lock.ClosedBy != "contador" || lock.ClosedAt == nil {
			t.Errorf("closed lock = %+v", lock)
		}

		if err := tx.PeriodLocks().Upsert(ctx, &lifecycle.PeriodLock{
			TenantID: "t1", PeriodKey: "2026-03", Closed: false, UpdatedAt: closedAt.Add(time.Hour),
		}); err != nil {
			return err
		}
		locks, err := tx.PeriodLocks().List(ctx, "t1")
		if err != nil {
			return err
		}
		if len(locks) != 1 || locks[0].Closed {
			t.Errorf("List() after reopen = %+v", locks)
		}
		return nil
	})
}

func TestInventoryRepository_MovementIsIdempotent(t *testing.T) {
	store := setupTestStore(t)
	at := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	inTx(t, store, func(ctx context.Context, tx secondary.Tx) error {
		if err := tx.Inventory().SetLevel(ctx, "t1", "I-1", 10); err != nil {
			return err
		}
		move := &lifecycle.InventoryMovement{TenantID: "t1", DocumentID: "LO-1", ItemID: "I-1", Delta: -4, CreatedAt: at}

		applied, err := tx.Inventory().ApplyMovement(ctx, move)
		if err != nil {
			return err
		}
		if !applied {
			t.Error("first movement was not applied")
		}
		applied, err = tx.Inventory().ApplyMovement(ctx, move)
		if err != nil {
			return err
		}
		if applied {
			t.Error("repeated movement was applied twice")
		}

		levels, err := tx.Inventory().Levels(ctx, "t1")
		if err != nil {
			return err
		}
		if levels["I-1"] != 6 {
			t.Errorf("level = %d, want 6", levels["I-1"])
		}
		movements, err := tx.Inventory().Movements(ctx, "t1", "LO-1")
		if err != nil {
			return err
		}
		if len(movements) != 1 || movements[0].Delta != -4 {
			t.Errorf("Movements = %+v", movements)
		}
		return nil
	})
}

func TestDerivedRecordRepository(t *testing.T) {
	store := setupTestStore(t)

	inTx(t, store, func(ctx context.Context, tx secondary.Tx) error {
		rec := &lifecycle.DerivedRecord{
			TenantID:   "t1",
			DocumentID: "WO-1",
			Kind:       "maintenance_cost",
			Data:       map[string]string{"cost": "1200"},
			CreatedAt:  time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		}
		if err := tx.Records().Append(ctx, rec); err != nil {
			return err
		}
		if rec.ID == "" {
			t.Error("Append did not assign an ID")
		}
		records, err := tx.Records().ListByDocument(ctx, "t1", "WO-1")
		if err != nil {
			return err
		}
		if len(records) != 1 || records[0].Data["cost"] != "1200" {
			t.Errorf("ListByDocument = %+v", records)
		}
		return nil
	})
}

func TestWithinTx_RollsBackOnError(t *testing.T) {
	store := setupTestStore(t)
	boom := errors.New("boom")

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx secondary.Tx) error {
		if err := tx.Inventory().SetLevel(ctx, "t1", "I-1", 99); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}

	inTx(t, store, func(ctx context.Context, tx secondary.Tx) error {
		levels, err := tx.Inventory().Levels(ctx, "t1")
		if err != nil {
			return err
		}
		if len(levels) != 0 {
			t.Errorf("rolled back write is visible: %v", levels)
		}
		return nil
	})
}
