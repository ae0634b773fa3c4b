package sqlstore

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/Mmartinrusso/Orvit-sub062/internal/core/lifecycle"
	"github.com/Mmartinrusso/Orvit-sub062/internal/ports/secondary"
)

// InventoryRepository implements secondary.InventoryRepository.
type InventoryRepository struct {
	repoBase
}

var _ secondary.InventoryRepository = (*InventoryRepository)(nil)

// ApplyMovement records the movement once per document and item, then adjusts the level.
func (r *InventoryRepository) ApplyMovement(ctx context.Context, m *lifecycle.InventoryMovement) (bool, error) {
	res, err := r.exec(ctx, r.sb.Insert("inventory_movements").
		Columns("tenant_id", "document_id", "item_id", "delta", "created_at").
		Values(m.TenantID, m.DocumentID, m.ItemID, m.Delta, utc(m.CreatedAt)).
		Suffix("ON CONFLICT (tenant_id, document_id, item_id) DO NOTHING"))
	if err != nil {
		return false, fmt.Errorf("failed to record inventory movement: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check inventory movement: %w", err)
	}
	if n == 0 {
		return false, nil
	}

	_, err = r.exec(ctx, r.sb.Insert("inventory_levels").
		Columns("tenant_id", "item_id", "quantity", "updated_at").
		Values(m.TenantID, m.ItemID, m.Delta, utc(m.CreatedAt)).
		Suffix(`ON CONFLICT (tenant_id, item_id) DO UPDATE SET
			quantity = inventory_levels.quantity + excluded.quantity,
			updated_at = excluded.updated_at`))
	if err != nil {
		return false, fmt.Errorf("failed to adjust inventory level: %w", err)
	}
	return true, nil
}

// SetLevel overwrites the stock level of an item.
func (r *InventoryRepository) SetLevel(ctx context.Context, tenantID, itemID string, quantity int64) error {
	_, err := r.exec(ctx, r.sb.Insert("inventory_levels").
		Columns("tenant_id", "item_id", "quantity", "updated_at").
		Values(tenantID, itemID, quantity, utc(time.Now())).
		Suffix(`ON CONFLICT (tenant_id, item_id) DO UPDATE SET
			quantity = excluded.quantity,
			updated_at = excluded.updated_at`))
	if err != nil {
		return fmt.Errorf("failed to set inventory level: %w", err)
	}
	return nil
}

// Levels returns every stock level of the tenant.
func (r *InventoryRepository) Levels(ctx context.Context, tenantID string) (map[string]int64, error) {
	rows, err := r.query(ctx, r.sb.
		Select("item_id", "quantity").
		From("inventory_levels").
		Where(sq.Eq{"tenant_id": tenantID}))
	if err != nil {
		return nil, fmt.Errorf("failed to read inventory levels: %w", err)
	}
	defer rows.Close()

	levels := make(map[string]int64)
	for rows.Next() {
		var (
			item string
			qty  int64
		)
		if err := rows.Scan(&item, &qty); err != nil {
			return nil, fmt.Errorf("failed to scan inventory level: %w", err)
		}
		levels[item] = qty
	}
	return levels, rows.Err()
}

// Movements returns the movements caused by a document.
func (r *InventoryRepository) Movements(ctx context.Context, tenantID, documentID string) ([]*lifecycle.InventoryMovement, error) {
	rows, err := r.query(ctx, r.sb.
		Select("tenant_id", "document_id", "item_id", "delta", "created_at").
		From("inventory_movements").
		Where(sq.Eq{"tenant_id": tenantID, "document_id": documentID}).
		OrderBy("item_id"))
	if err != nil {
		return nil, fmt.Errorf("failed to read inventory movements: %w", err)
	}
	defer rows.Close()

	var movements []*lifecycle.InventoryMovement
	for rows.Next() {
		var (
			m         lifecycle.InventoryMovement
			createdAt time.Time
		)
		if err := rows.Scan(&m.TenantID, &m.DocumentID, &m.ItemID, &m.Delta, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan inventory movement: %w", err)
		}
		m.CreatedAt = createdAt.UTC()
		movements = append(movements, &m)
	}
	return movements, rows.Err()
}

// DerivedRecordRepository implements secondary.DerivedRecordRepository.
type DerivedRecordRepository struct {
	repoBase
}

var _ secondary.DerivedRecordRepository = (*DerivedRecordRepository)(nil)

// Append persists a derived record, assigning an ID when empty.
func (r *DerivedRecordRepository) Append(ctx context.Context, rec *lifecycle.DerivedRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	data, err := encodeJSON(rec.Data, "{}")
	if err != nil {
		return err
	}
	_, err = r.exec(ctx, r.sb.Insert("derived_records").
		Columns("id", "tenant_id", "document_id", "kind", "data_json", "created_at").
		Values(rec.ID, rec.TenantID, rec.DocumentID, rec.Kind, data, utc(rec.CreatedAt)))
	if err != nil {
		return fmt.Errorf("failed to append derived record: %w", err)
	}
	return nil
}

// ListByDocument returns the records of a document, oldest first.
func (r *DerivedRecordRepository) ListByDocument(ctx context.Context, tenantID, documentID string) ([]*lifecycle.DerivedRecord, error) {
	rows, err := r.query(ctx, r.sb.
		Select("id", "tenant_id", "document_id", "kind", "data_json", "created_at").
		From("derived_records").
		Where(sq.Eq{"tenant_id": tenantID, "document_id": documentID}).
		OrderBy("created_at", "id"))
	if err != nil {
		return nil, fmt.Errorf("failed to list derived records: %w", err)
	}
	defer rows.Close()

	var records []*lifecycle.DerivedRecord
	for rows.Next() {
		var (
			rec       lifecycle.DerivedRecord
			data      string
			createdAt time.Time
		)
		if err := rows.Scan(&rec.ID, &rec.TenantID, &rec.DocumentID, &rec.Kind, &data, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan derived record: %w", err)
		}
		rec.CreatedAt = createdAt.UTC()
		if err := decodeJSON(data, &rec.Data); err != nil {
			return nil, err
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}
