package registry

import (
	_ "embed"
	"fmt"
	"slices"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/google/cel-go/cel"
	"gopkg.in/yaml.v3"

	"github.com/Mmartinrusso/Orvit-sub062/internal/core/lifecycle"
)

//go:embed registry.yaml
var defaultDefinition []byte

var loadDefault = sync.OnceValues(func() (*Registry, error) {
	return Load(defaultDefinition)
})

// Default returns the registry built from the embedded definition.
// Changing it requires redeploying the binary.
func Default() (*Registry, error) {
	return loadDefault()
}

type definition struct {
	Version string           `yaml:"version"`
	Types   []typeDefinition `yaml:"types"`
}

type typeDefinition struct {
	Name     string           `yaml:"name"`
	States   []string         `yaml:"states"`
	Initial  string           `yaml:"initial"`
	Approval string           `yaml:"approval"`
	Edges    []edgeDefinition `yaml:"edges"`
}

type edgeDefinition struct {
	Name          string                   `yaml:"name"`
	From          []string                 `yaml:"from"`
	To            string                   `yaml:"to"`
	Permission    string                   `yaml:"permission"`
	Creation      bool                     `yaml:"creation"`
	System        bool                     `yaml:"system"`
	Guards        []string                 `yaml:"guards"`
	Effects       []string                 `yaml:"effects"`
	Preconditions []preconditionDefinition `yaml:"preconditions"`
}

type preconditionDefinition struct {
	Expr    string `yaml:"expr"`
	Message string `yaml:"message"`
}

// Load parses and validates a registry definition.
func Load(data []byte) (*Registry, error) {
	var def definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to parse registry definition: %w", err)
	}

	version, err := semver.StrictNewVersion(def.Version)
	if err != nil {
		return nil, fmt.Errorf("invalid registry version %q: %w", def.Version, err)
	}

	env, err := NewExpressionEnv()
	if err != nil {
		return nil, err
	}

	reg := &Registry{
		version: version,
		types:   make(map[lifecycle.DocumentType]*TypeSpec),
	}
	for _, td := range def.Types {
		spec, err := buildTypeSpec(env, td)
		if err != nil {
			return nil, fmt.Errorf("document type %s: %w", td.Name, err)
		}
		if _, dup := reg.types[spec.Type]; dup {
			return nil, fmt.Errorf("document type %s declared twice", spec.Type)
		}
		reg.types[spec.Type] = spec
		reg.order = append(reg.order, spec.Type)
	}
	if len(reg.order) == 0 {
		return nil, fmt.Errorf("registry declares no document types")
	}
	return reg, nil
}

func buildTypeSpec(env *cel.Env, td typeDefinition) (*TypeSpec, error) {
	if td.Name == "" {
		return nil, fmt.Errorf("missing type name")
	}
	spec := &TypeSpec{
		Type:     lifecycle.DocumentType(td.Name),
		Initial:  lifecycle.State(td.Initial),
		Approval: lifecycle.State(td.Approval),
		terminal: make(map[lifecycle.State]bool),
	}
	for _, s := range td.States {
		state := lifecycle.State(s)
		if state == lifecycle.NoState {
			return nil, fmt.Errorf("empty state name")
		}
		if slices.Contains(spec.States, state) {
			return nil, fmt.Errorf("state %s declared twice", state)
		}
		spec.States = append(spec.States, state)
	}
	if !slices.Contains(spec.States, spec.Initial) {
		return nil, fmt.Errorf("initial state %q is not a declared state", spec.Initial)
	}
	if spec.Approval != lifecycle.NoState {
		if !slices.Contains(spec.States, spec.Approval) {
			return nil, fmt.Errorf("approval state %q is not a declared state", spec.Approval)
		}
		if spec.Approval == spec.Initial {
			return nil, fmt.Errorf("approval state must differ from the initial state")
		}
	}

	for _, ed := range td.Edges {
		edges, err := buildEdges(env, spec, ed)
		if err != nil {
			return nil, fmt.Errorf("edge %s: %w", ed.Name, err)
		}
		for _, e := range edges {
			for _, existing := range spec.Edges {
				if existing.Name == e.Name && existing.From == e.From {
					return nil, fmt.Errorf("edge %s from %s declared twice", e.Name, e.From)
				}
			}
			spec.Edges = append(spec.Edges, e)
		}
	}

	if err := validateGraph(spec); err != nil {
		return nil, err
	}
	return spec, nil
}

func buildEdges(env *cel.Env, spec *TypeSpec, ed edgeDefinition) ([]Edge, error) {
	if ed.Name == "" {
		return nil, fmt.Errorf("missing edge name")
	}
	to := lifecycle.State(ed.To)
	if !slices.Contains(spec.States, to) {
		return nil, fmt.Errorf("target %q is not a declared state", ed.To)
	}

	guards := make([]GuardID, 0, len(ed.Guards))
	for _, g := range ed.Guards {
		id := GuardID(g)
		if !slices.Contains(KnownGuards, id) {
			return nil, fmt.Errorf("unknown guard %q", g)
		}
		if slices.Contains(guards, id) {
			return nil, fmt.Errorf("guard %q listed twice", g)
		}
		guards = append(guards, id)
	}

	switch {
	case ed.Creation && len(ed.From) > 0:
		return nil, fmt.Errorf("creation edge cannot declare from states")
	case !ed.Creation && len(ed.From) == 0:
		return nil, fmt.Errorf("missing from states")
	case ed.Creation && ed.System:
		return nil, fmt.Errorf("creation edge cannot be a system edge")
	case ed.Creation && to != spec.Initial:
		return nil, fmt.Errorf("creation edge must target the initial state %s", spec.Initial)
	case !ed.Creation && to == spec.Initial:
		return nil, fmt.Errorf("initial state %s cannot be re-entered", spec.Initial)
	case !slices.Contains(guards, GuardPeriodLock):
		return nil, fmt.Errorf("missing %s guard", GuardPeriodLock)
	case ed.System && len(guards) > 1:
		return nil, fmt.Errorf("system edge may only declare the %s guard", GuardPeriodLock)
	}

	for _, id := range guards {
		switch id {
		case GuardThreshold:
			if !ed.Creation {
				return nil, fmt.Errorf("threshold guard is only valid on creation edges")
			}
			if spec.Approval == lifecycle.NoState {
				return nil, fmt.Errorf("threshold guard requires an approval state")
			}
		case GuardUniqueness:
			if !ed.Creation {
				return nil, fmt.Errorf("uniqueness guard is only valid on creation edges")
			}
		case GuardSoD:
			if ed.Creation {
				return nil, fmt.Errorf("sod guard needs an existing creator and cannot guard creation")
			}
		case GuardPermission:
			if ed.Permission == "" {
				return nil, fmt.Errorf("permission guard without a permission")
			}
		}
	}

	hasPrecondGuard := slices.Contains(guards, GuardPrecondition)
	if hasPrecondGuard != (len(ed.Preconditions) > 0) {
		return nil, fmt.Errorf("precondition guard and preconditions must be declared together")
	}
	preconditions := make([]Precondition, 0, len(ed.Preconditions))
	for _, pd := range ed.Preconditions {
		p, err := CompilePrecondition(env, pd.Expr, pd.Message)
		if err != nil {
			return nil, err
		}
		preconditions = append(preconditions, p)
	}

	base := Edge{
		DocumentType:  spec.Type,
		Name:          ed.Name,
		To:            to,
		Permission:    ed.Permission,
		Creation:      ed.Creation,
		System:        ed.System,
		Guards:        guards,
		Effects:       slices.Clone(ed.Effects),
		Preconditions: preconditions,
	}
	if ed.Creation {
		return []Edge{base}, nil
	}

	edges := make([]Edge, 0, len(ed.From))
	for _, f := range ed.From {
		from := lifecycle.State(f)
		if !slices.Contains(spec.States, from) {
			return nil, fmt.Errorf("source %q is not a declared state", f)
		}
		e := base
		e.From = from
		e.Guards = slices.Clone(base.Guards)
		e.Effects = slices.Clone(base.Effects)
		edges = append(edges, e)
	}
	return edges, nil
}

// validateGraph checks the graph invariants: one creation edge, a non-empty
// terminal set, and every state reachable from the entry states.
func validateGraph(spec *TypeSpec) error {
	creations := 0
	outgoing := make(map[lifecycle.State]int)
	for _, e := range spec.Edges {
		if e.Creation {
			creations++
			continue
		}
		outgoing[e.From]++
	}
	if creations != 1 {
		return fmt.Errorf("expected exactly one creation edge, found %d", creations)
	}

	for _, s := range spec.States {
		if outgoing[s] == 0 {
			spec.terminal[s] = true
		}
	}
	if len(spec.terminal) == 0 {
		return fmt.Errorf("no terminal state")
	}
	if spec.terminal[spec.Initial] {
		return fmt.Errorf("initial state %s cannot be terminal", spec.Initial)
	}

	reached := map[lifecycle.State]bool{spec.Initial: true}
	queue := []lifecycle.State{spec.Initial}
	if spec.Approval != lifecycle.NoState {
		reached[spec.Approval] = true
		queue = append(queue, spec.Approval)
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, e := range spec.Edges {
			if !e.Creation && e.From == cur && !reached[e.To] {
				reached[e.To] = true
				queue = append(queue, e.To)
			}
		}
	}
	for _, s := range spec.States {
		if !reached[s] {
			return fmt.Errorf("state %s is unreachable", s)
		}
	}
	return nil
}
