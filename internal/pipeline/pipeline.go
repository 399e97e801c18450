package pipeline

import (
	"context"
	"sort"
)

// Stage base orders. A plugin's order places it within a stage; offsets
// within ±0.5 of a base order keep it in that stage while forcing a
// sub-order, e.g. ValidatorOrder-0.1 runs before every plain validator.
const (
	CollectorOrder = 0.0
	ValidatorOrder = 1.0
	ExtractorOrder = 2.0
)

// GenericFamily is the implicit catch-all family every instance carries.
const GenericFamily = "generic"

// Plugin is the common surface of all pipeline plugins.
type Plugin interface {
	Label() string
	Order() float64
}

// ContextPlugin processes the run as a whole, typically collecting
// instances or validating run-wide state.
type ContextPlugin interface {
	Plugin
	ProcessContext(ctx context.Context, run *Run) error
}

// InstancePlugin processes each collected instance whose family set
// intersects the plugin's families. An empty family list matches every
// instance.
type InstancePlugin interface {
	Plugin
	Families() []string
	ProcessInstance(ctx context.Context, run *Run, inst *Instance) error
}

// Fixer is the optional auto-fix capability of a validator. The capability
// is discovered with an explicit interface check; a validator without it
// degrades to an informational skip when a fix is requested.
type Fixer interface {
	Fix(ctx context.Context, run *Run, inst *Instance) error
}

// Instance is one collected item moving through the pipeline.
type Instance struct {
	Name string
	Data map[string]any

	families map[string]struct{}
	failed   bool
}

func newInstance(name string, families ...string) *Instance {
	inst := &Instance{
		Name:     name,
		Data:     make(map[string]any),
		families: map[string]struct{}{GenericFamily: {}},
	}
	for _, family := range families {
		if family != "" {
			inst.families[family] = struct{}{}
		}
	}
	return inst
}

// AddFamily tags the instance with another category label.
func (i *Instance) AddFamily(family string) {
	if family != "" {
		i.families[family] = struct{}{}
	}
}

// HasFamily reports whether the instance carries the given label.
func (i *Instance) HasFamily(family string) bool {
	_, ok := i.families[family]
	return ok
}

// Families returns the instance's labels, sorted.
func (i *Instance) Families() []string {
	out := make([]string, 0, len(i.families))
	for family := range i.families {
		out = append(out, family)
	}
	sort.Strings(out)
	return out
}

// Failed reports whether a validator has failed this instance, blocking its
// extraction.
func (i *Instance) Failed() bool { return i.failed }

// Run is the shared state of one pipeline execution.
type Run struct {
	ID   string
	Data map[string]any

	instances []*Instance
	failed    bool
}

// CreateInstance collects a new instance into the run. The implicit generic
// family is always present.
func (r *Run) CreateInstance(name string, families ...string) *Instance {
	inst := newInstance(name, families...)
	r.instances = append(r.instances, inst)
	return inst
}

// Instances returns the collected instances in collection order.
func (r *Run) Instances() []*Instance {
	out := make([]*Instance, len(r.instances))
	copy(out, r.instances)
	return out
}

// Failed reports whether a run-wide validator failed, blocking every
// instance's extraction.
func (r *Run) Failed() bool { return r.failed }
