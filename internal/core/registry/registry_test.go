package registry

import (
	"strings"
	"testing"

	"github.com/Mmartinrusso/Orvit-sub062/internal/core/lifecycle"
)

func mustDefault(t *testing.T) *Registry {
	t.Helper()
	reg, err := Default()
	if err != nil {
		t.Fatalf("Default failed: %v", err)
	}
	return reg
}

func TestDefaultRegistry(t *testing.T) {
	reg := mustDefault(t)

	if reg.Version() != "1.4.0" {
		t.Errorf("Version() = %q, want 1.4.0", reg.Version())
	}
	want := []lifecycle.DocumentType{
		lifecycle.TypePurchaseRequest,
		lifecycle.TypeLoadOrder,
		lifecycle.TypeDelivery,
		lifecycle.TypeCreditNoteRequest,
		lifecycle.TypeWorkOrder,
	}
	got := reg.Types()
	if len(got) != len(want) {
		t.Fatalf("Types() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Types()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestEdge(t *testing.T) {
	reg := mustDefault(t)

	tests := []struct {
		name     string
		docType  lifecycle.DocumentType
		from     lifecycle.State
		edge     string
		wantOK   bool
		wantTo   lifecycle.State
		wantSoD  bool
		wantSyst bool
	}{
		{name: "purchase request approval", docType: lifecycle.TypePurchaseRequest, from: "PENDIENTE_APROBACION", edge: "approve", wantOK: true, wantTo: "APROBADA", wantSoD: true},
		{name: "approve from wrong state", docType: lifecycle.TypePurchaseRequest, from: "PENDIENTE", edge: "approve", wantOK: false},
		{name: "process expands from multiple states", docType: lifecycle.TypePurchaseRequest, from: "APROBADA", edge: "process", wantOK: true, wantTo: "EN_PROCESO"},
		{name: "delivery system edge", docType: lifecycle.TypeDelivery, from: "LISTA_PARA_DESPACHO", edge: "start_transit", wantOK: true, wantTo: "EN_TRANSITO", wantSyst: true},
		{name: "unknown edge", docType: lifecycle.TypeWorkOrder, from: "ABIERTA", edge: "teleport", wantOK: false},
		{name: "unknown type", docType: "INVOICE", from: "X", edge: "create", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, ok := reg.Edge(tt.docType, tt.from, tt.edge)
			if ok != tt.wantOK {
				t.Fatalf("Edge() ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if e.To != tt.wantTo {
				t.Errorf("To = %s, want %s", e.To, tt.wantTo)
			}
			if e.Sensitive() != tt.wantSoD {
				t.Errorf("Sensitive() = %v, want %v", e.Sensitive(), tt.wantSoD)
			}
			if e.System != tt.wantSyst {
				t.Errorf("System = %v, want %v", e.System, tt.wantSyst)
			}
		})
	}
}

func TestTerminalAndOpenStates(t *testing.T) {
	reg := mustDefault(t)

	tests := []struct {
		docType      lifecycle.DocumentType
		wantTerminal []lifecycle.State
	}{
		{lifecycle.TypePurchaseRequest, []lifecycle.State{"RECHAZADA", "COMPLETADA", "CANCELADA"}},
		{lifecycle.TypeLoadOrder, []lifecycle.State{"DESPACHADA", "CANCELADA"}},
		{lifecycle.TypeDelivery, []lifecycle.State{"ENTREGADA", "CANCELADA"}},
		{lifecycle.TypeCreditNoteRequest, []lifecycle.State{"RECHAZADA", "EMITIDA", "ANULADA"}},
		{lifecycle.TypeWorkOrder, []lifecycle.State{"CERRADA", "CANCELADA"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.docType), func(t *testing.T) {
			got := reg.TerminalStates(tt.docType)
			if strings.Join(stateNames(got), ",") != strings.Join(stateNames(tt.wantTerminal), ",") {
				t.Errorf("TerminalStates() = %v, want %v", got, tt.wantTerminal)
			}
			for _, s := range got {
				if reg.IsOpen(tt.docType, s) {
					t.Errorf("IsOpen(%s) = true for terminal state", s)
				}
				if len(reg.EdgesFor(tt.docType, s)) != 0 {
					t.Errorf("terminal state %s has outgoing edges", s)
				}
			}
		})
	}
}

func TestInitialState(t *testing.T) {
	reg := mustDefault(t)

	tests := []struct {
		name    string
		docType lifecycle.DocumentType
		ctx     InitialContext
		want    lifecycle.State
	}{
		{name: "default initial", docType: lifecycle.TypePurchaseRequest, want: "PENDIENTE"},
		{name: "routed to approval", docType: lifecycle.TypePurchaseRequest, ctx: InitialContext{RequiresApproval: true}, want: "PENDIENTE_APROBACION"},
		{name: "type without approval state ignores routing", docType: lifecycle.TypeWorkOrder, ctx: InitialContext{RequiresApproval: true}, want: "ABIERTA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := reg.InitialState(tt.docType, tt.ctx)
			if !ok {
				t.Fatal("InitialState() ok = false")
			}
			if got != tt.want {
				t.Errorf("InitialState() = %s, want %s", got, tt.want)
			}
		})
	}

	if _, ok := reg.InitialState("INVOICE", InitialContext{}); ok {
		t.Error("InitialState() for unknown type should fail")
	}
}

func TestCreationEdge(t *testing.T) {
	reg := mustDefault(t)
	for _, docType := range reg.Types() {
		e, ok := reg.CreationEdge(docType)
		if !ok {
			t.Errorf("%s has no creation edge", docType)
			continue
		}
		if e.From != lifecycle.NoState || !e.Creation {
			t.Errorf("%s creation edge = %+v", docType, e)
		}
		initial, _ := reg.InitialState(docType, InitialContext{})
		if e.To != initial {
			t.Errorf("%s creation edge targets %s, want %s", docType, e.To, initial)
		}
	}
}

func stateNames(states []lifecycle.State) []string {
	out := make([]string, len(states))
	for i, s := range states {
		out[i] = string(s)
	}
	return out
}

func TestDefaultRegistry_EveryEdgeChecksPeriodLock(t *testing.T) {
	reg := mustDefault(t)
	for _, docType := range reg.Types() {
		spec, _ := reg.Spec(docType)
		for _, e := range spec.Edges {
			if !e.HasGuard(GuardPeriodLock) {
				t.Errorf("%s edge %s from %q does not check the period lock", docType, e.Name, e.From)
			}
			if e.HasGuard(GuardPermission) && e.Guards[1] != GuardPeriodLock {
				t.Errorf("%s edge %s: period_lock should directly follow permission, got %v", docType, e.Name, e.Guards)
			}
		}
	}
}
