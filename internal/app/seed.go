package app

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/Mmartinrusso/Orvit-sub062/internal/core/guard"
	"github.com/Mmartinrusso/Orvit-sub062/internal/core/lifecycle"
	"github.com/Mmartinrusso/Orvit-sub062/internal/core/registry"
	"github.com/Mmartinrusso/Orvit-sub062/internal/core/visibility"
	"github.com/Mmartinrusso/Orvit-sub062/internal/ports/primary"
)

// ErrAlreadySeeded is returned when the tenant already holds the demo data.
var ErrAlreadySeeded = errors.New("tenant already contains demo data")

// AllPermissions returns every permission the registry and the administrative
// operations reference, sorted.
func AllPermissions(reg *registry.Registry) []string {
	perms := []string{
		PermPeriodClose,
		PermConfigManage,
		PermInventoryAdjust,
		guard.PermDuplicateOverride,
		visibility.PermCrossScope,
	}
	for _, t := range reg.Types() {
		spec, _ := reg.Spec(t)
		for _, e := range spec.Edges {
			if e.Permission != "" && !slices.Contains(perms, e.Permission) {
				perms = append(perms, e.Permission)
			}
		}
	}
	slices.Sort(perms)
	return perms
}

// Seeder loads a small demo data set through the public services, so every
// seeded document has a full audit trail.
type Seeder struct {
	registry    *registry.Registry
	transitions primary.TransitionService
	documents   primary.DocumentService
	configs     primary.ConfigService
	inventory   primary.InventoryService
}

// NewSeeder creates a Seeder with injected dependencies.
func NewSeeder(reg *registry.Registry, transitions primary.TransitionService, documents primary.DocumentService, configs primary.ConfigService, inventory primary.InventoryService) *Seeder {
	return &Seeder{
		registry:    reg,
		transitions: transitions,
		documents:   documents,
		configs:     configs,
		inventory:   inventory,
	}
}

// SeedReport lists what Seed created.
type SeedReport struct {
	Documents []*lifecycle.Document
	Routed    []string
}

// Seed creates the demo data set for tenantID as actorID.
func (s *Seeder) Seed(ctx context.Context, tenantID, actorID string) (*SeedReport, error) {
	admin := lifecycle.Actor{
		ID:          actorID,
		Permissions: AllPermissions(s.registry),
		Scope:       lifecycle.ScopeExtended,
	}

	if _, err := s.documents.GetDocument(ctx, tenantID, admin, "DEL-0001"); err == nil {
		return nil, ErrAlreadySeeded
	} else if !errors.Is(err, lifecycle.ErrNotFound) {
		return nil, err
	}

	for item, qty := range map[string]int64{"ITEM-A": 100, "ITEM-B": 40} {
		if err := s.inventory.SetStock(ctx, tenantID, admin, item, qty); err != nil {
			return nil, fmt.Errorf("failed to seed stock: %w", err)
		}
	}
	if err := s.configs.SetApprovalRule(ctx, admin, lifecycle.ApprovalRule{
		TenantID:        tenantID,
		DocumentType:    lifecycle.TypePurchaseRequest,
		ThresholdAmount: 100000,
		UrgencyTriggers: []string{"URGENTE"},
	}); err != nil {
		return nil, fmt.Errorf("failed to seed approval rule: %w", err)
	}
	if err := s.configs.SetApprovalRule(ctx, admin, lifecycle.ApprovalRule{
		TenantID:        tenantID,
		DocumentType:    lifecycle.TypeCreditNoteRequest,
		ThresholdAmount: 50000,
	}); err != nil {
		return nil, fmt.Errorf("failed to seed approval rule: %w", err)
	}

	report := &SeedReport{}
	create := func(docType lifecycle.DocumentType, id string, payload lifecycle.Payload) error {
		res, err := s.transitions.Create(ctx, primary.CreateRequest{
			TenantID:     tenantID,
			Actor:        admin,
			DocumentType: docType,
			DocumentID:   id,
			Payload:      payload,
			Reason:       "demo data",
		})
		if err != nil {
			return fmt.Errorf("failed to seed %s %s: %w", docType, id, err)
		}
		report.Documents = append(report.Documents, res.Document)
		if res.Routed {
			report.Routed = append(report.Routed, id)
		}
		return nil
	}

	steps := []func() error{
		func() error {
			return create(lifecycle.TypeDelivery, "DEL-0001", lifecycle.Payload{
				Title:      "Entrega cliente Norte",
				EntityRefs: map[string]string{"customer": "C-100"},
			})
		},
		func() error {
			_, err := s.transitions.Apply(ctx, primary.ApplyRequest{
				TenantID:     tenantID,
				Actor:        admin,
				DocumentType: lifecycle.TypeDelivery,
				DocumentID:   "DEL-0001",
				Edge:         "mark_ready",
				Reason:       "demo data",
			})
			return err
		},
		func() error {
			return create(lifecycle.TypeLoadOrder, "LO-0001", lifecycle.Payload{
				Title: "Carga camion 12",
				Links: map[string]string{"delivery": "DEL-0001"},
				Lines: []lifecycle.LineItem{
					{ItemID: "ITEM-A", Quantity: 10},
					{ItemID: "ITEM-B", Quantity: 5},
				},
			})
		},
		func() error {
			return create(lifecycle.TypePurchaseRequest, "PR-0001", lifecycle.Payload{
				Title:  "Rodamientos",
				Amount: 45000,
				Lines:  []lifecycle.LineItem{{ItemID: "ITEM-A", Quantity: 20, CatalogRef: "CAT-ROD-6204"}},
			})
		},
		func() error {
			return create(lifecycle.TypePurchaseRequest, "PR-0002", lifecycle.Payload{
				Title:  "Compresor de reemplazo",
				Amount: 250000,
				Lines:  []lifecycle.LineItem{{ItemID: "COMP-1", Quantity: 1}},
			})
		},
		func() error {
			return create(lifecycle.TypeWorkOrder, "WO-0001", lifecycle.Payload{
				Title:      "Fuga de aceite en bomba 2",
				EntityRefs: map[string]string{"machine": "M-01", "component": "BOMBA-2"},
			})
		},
		func() error {
			return create(lifecycle.TypeCreditNoteRequest, "CN-0001", lifecycle.Payload{
				Title:  "Devolucion parcial",
				Amount: 12000,
				Links:  map[string]string{"invoice": "INV-0077"},
				Scope:  lifecycle.ScopeExtended,
			})
		},
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}
	return report, nil
}
