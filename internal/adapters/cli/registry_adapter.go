package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/Mmartinrusso/Orvit-sub062/internal/core/lifecycle"
	"github.com/Mmartinrusso/Orvit-sub062/internal/core/registry"
)

// RegistryAdapter prints the state machines of the registry.
type RegistryAdapter struct {
	registry *registry.Registry
	out      io.Writer
}

// NewRegistryAdapter creates a new RegistryAdapter.
func NewRegistryAdapter(reg *registry.Registry, out io.Writer) *RegistryAdapter {
	return &RegistryAdapter{registry: reg, out: out}
}

// Show prints every document type, or only docType when it is set.
func (a *RegistryAdapter) Show(docType lifecycle.DocumentType) error {
	types := a.registry.Types()
	if docType != "" {
		if _, ok := a.registry.Spec(docType); !ok {
			return fmt.Errorf("unknown document type %q", docType)
		}
		types = []lifecycle.DocumentType{docType}
	}

	fmt.Fprintf(a.out, "Registry version %s\n", a.registry.Version())
	for _, t := range types {
		spec, _ := a.registry.Spec(t)
		fmt.Fprintf(a.out, "\n%s\n", color.New(color.Bold).Sprint(t))
		fmt.Fprintf(a.out, "Initial:  %s\n", spec.Initial)
		if spec.Approval != lifecycle.NoState {
			fmt.Fprintf(a.out, "Approval: %s\n", spec.Approval)
		}
		fmt.Fprintf(a.out, "Terminal: %s\n", joinStates(a.registry.TerminalStates(t)))

		w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "EDGE\tFROM\tTO\tPERMISSION\tGUARDS\tEFFECTS")
		for _, e := range spec.Edges {
			from := string(e.From)
			if e.Creation {
				from = "(new)"
			}
			name := e.Name
			if e.System {
				name += " [system]"
			}
			guards := make([]string, len(e.Guards))
			for i, g := range e.Guards {
				guards[i] = string(g)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				name, from, e.To, e.Permission, dashIfEmpty(guards), dashIfEmpty(e.Effects))
		}
		w.Flush()
	}
	return nil
}

func joinStates(states []lifecycle.State) string {
	parts := make([]string, len(states))
	for i, s := range states {
		parts[i] = string(s)
	}
	return dashIfEmpty(parts)
}

func dashIfEmpty(parts []string) string {
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ",")
}
