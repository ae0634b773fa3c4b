package effects

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Mmartinrusso/Orvit-sub062/internal/core/registry"
)

// Catalog maps effect IDs to side effects. It is built explicitly and
// injected into the executor; there is no global catalog.
type Catalog struct {
	effects map[string]SideEffect
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{effects: make(map[string]SideEffect)}
}

// Register adds or replaces a side effect.
func (c *Catalog) Register(id string, fn SideEffect) {
	c.effects[id] = fn
}

// IDs returns the registered effect IDs, sorted.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.effects))
	for id := range c.effects {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ActionsFor resolves the edge's effects in declared order.
func (c *Catalog) ActionsFor(edge registry.Edge) ([]Action, error) {
	actions := make([]Action, 0, len(edge.Effects))
	for _, id := range edge.Effects {
		fn, ok := c.effects[id]
		if !ok {
			return nil, fmt.Errorf("edge %s/%s references unknown effect %s", edge.DocumentType, edge.Name, id)
		}
		actions = append(actions, Action{ID: id, Effect: fn})
	}
	return actions, nil
}

// Validate checks that every effect the registry references is registered.
func (c *Catalog) Validate(reg *registry.Registry) error {
	var errs []error
	for _, t := range reg.Types() {
		spec, _ := reg.Spec(t)
		for _, e := range spec.Edges {
			for _, id := range e.Effects {
				if _, ok := c.effects[id]; !ok {
					errs = append(errs, fmt.Errorf("%s/%s: unknown effect %s", t, e.Name, id))
				}
			}
		}
	}
	return errors.Join(errs...)
}

// Has reports whether the effect is registered.
func (c *Catalog) Has(id string) bool {
	_, ok := c.effects[id]
	return ok
}
