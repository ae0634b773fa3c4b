package app

import (
	"context"
	"fmt"

	"github.com/Mmartinrusso/Orvit-sub062/internal/core/lifecycle"
	"github.com/Mmartinrusso/Orvit-sub062/internal/ports/primary"
	"github.com/Mmartinrusso/Orvit-sub062/internal/ports/secondary"
)

// InventoryServiceImpl implements primary.InventoryService.
type InventoryServiceImpl struct {
	store secondary.Store
}

var _ primary.InventoryService = (*InventoryServiceImpl)(nil)

// NewInventoryService creates a new InventoryService with injected dependencies.
func NewInventoryService(store secondary.Store) *InventoryServiceImpl {
	return &InventoryServiceImpl{store: store}
}

// SetStock overwrites the stock level of an item.
func (s *InventoryServiceImpl) SetStock(ctx context.Context, tenantID string, actor lifecycle.Actor, itemID string, quantity int64) error {
	if err := requirePermission(actor, "set_stock", PermInventoryAdjust); err != nil {
		return err
	}
	if itemID == "" {
		return fmt.Errorf("item id is required")
	}
	if quantity < 0 {
		return fmt.Errorf("stock must not be negative, got %d", quantity)
	}
	return s.store.WithinTx(ctx, func(ctx context.Context, tx secondary.Tx) error {
		return tx.Inventory().SetLevel(ctx, tenantID, itemID, quantity)
	})
}

// Stock returns every stock level of the tenant.
func (s *InventoryServiceImpl) Stock(ctx context.Context, tenantID string) (map[string]int64, error) {
	var levels map[string]int64
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx secondary.Tx) error {
		var err error
		levels, err = tx.Inventory().Levels(ctx, tenantID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return levels, nil
}

// Movements returns the stock movements a document caused.
func (s *InventoryServiceImpl) Movements(ctx context.Context, tenantID, documentID string) ([]*lifecycle.InventoryMovement, error) {
	var movements []*lifecycle.InventoryMovement
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx secondary.Tx) error {
		var err error
		movements, err = tx.Inventory().Movements(ctx, tenantID, documentID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return movements, nil
}
