package lifecycle

import (
	"testing"
	"time"
)

func TestEntityKey(t *testing.T) {
	tests := []struct {
		name string
		refs map[string]string
		want string
	}{
		{name: "empty", refs: nil, want: ""},
		{name: "sorted", refs: map[string]string{"machine": "M-01", "component": "C-07"}, want: "component=C-07;machine=M-01"},
		{name: "normalized keys", refs: map[string]string{" Machine ": " M-01 "}, want: "machine=M-01"},
		{name: "blank values dropped", refs: map[string]string{"machine": "M-01", "component": "  "}, want: "machine=M-01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EntityKey(tt.refs); got != tt.want {
				t.Errorf("EntityKey = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDocument_Clone(t *testing.T) {
	confirmed := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	doc := &Document{
		ID:          "LO-1",
		Links:       map[string]string{"delivery": "DEL-1"},
		Attributes:  map[string]string{"driver": "ana"},
		Lines:       []LineItem{{ItemID: "ITEM-A", Quantity: 10}},
		ConfirmedAt: &confirmed,
	}

	c := doc.Clone()
	c.Links["delivery"] = "DEL-2"
	c.Attributes["driver"] = "luis"
	c.Lines[0].Quantity = 99
	*c.ConfirmedAt = confirmed.Add(time.Hour)

	if doc.Links["delivery"] != "DEL-1" || doc.Attributes["driver"] != "ana" {
		t.Error("clone shares maps with the original")
	}
	if doc.Lines[0].Quantity != 10 {
		t.Error("clone shares lines with the original")
	}
	if !doc.ConfirmedAt.Equal(confirmed) {
		t.Error("clone shares the confirmation time with the original")
	}
	if (*Document)(nil).Clone() != nil {
		t.Error("expected nil clone of nil document")
	}
}

func TestParseScope(t *testing.T) {
	for in, want := range map[string]Scope{"": ScopeStandard, "standard": ScopeStandard, " EXTENDED ": ScopeExtended} {
		got, err := ParseScope(in)
		if err != nil || got != want {
			t.Errorf("ParseScope(%q) = %s, %v; want %s", in, got, err, want)
		}
	}
	if _, err := ParseScope("secret"); err == nil {
		t.Error("expected error for unknown scope")
	}
}

func TestActor_Has(t *testing.T) {
	a := Actor{ID: "ana", Permissions: []string{"load_order.confirm"}}
	if !a.Has("load_order.confirm") || a.Has("load_order.dispatch") {
		t.Errorf("unexpected permission check for %+v", a)
	}
}
