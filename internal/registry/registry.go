// Package registry holds the immutable, process-wide mapping of semantic
// tables and flows (spec.md §4.2, component C3). A Registry is built once
// from a fully-formed set of tables/flows and never mutated afterward;
// callers that need to reload definitions build a new Registry and swap it
// into a Holder, which is safe to read from any number of concurrent
// planning goroutines (spec.md §5).
package registry

import (
	"fmt"
	"sync/atomic"

	"github.com/semaflow/semaflow/internal/semmodel"
)

// Registry is an O(1) lookup table of semantic tables and flows, keyed by
// name. Zero value is not usable; construct with New.
type Registry struct {
	tables map[string]semmodel.SemanticTable
	flows  map[string]semmodel.SemanticFlow
}

// New builds a Registry from the given tables and flows. Duplicate names
// within either slice are rejected — the registry itself does not run full
// validation (internal/validate does that); it only guards its own
// invariant that lookups are unambiguous.
func New(tables []semmodel.SemanticTable, flows []semmodel.SemanticFlow) (*Registry, error) {
	r := &Registry{
		tables: make(map[string]semmodel.SemanticTable, len(tables)),
		flows:  make(map[string]semmodel.SemanticFlow, len(flows)),
	}
	for _, t := range tables {
		if _, ok := r.tables[t.Name]; ok {
			return nil, fmt.Errorf("duplicate semantic table name %q", t.Name)
		}
		r.tables[t.Name] = t
	}
	for _, f := range flows {
		if _, ok := r.flows[f.Name]; ok {
			return nil, fmt.Errorf("duplicate semantic flow name %q", f.Name)
		}
		r.flows[f.Name] = f
	}
	return r, nil
}

// Table looks up a semantic table by name.
func (r *Registry) Table(name string) (semmodel.SemanticTable, bool) {
	t, ok := r.tables[name]
	return t, ok
}

// Flow looks up a semantic flow by name.
func (r *Registry) Flow(name string) (semmodel.SemanticFlow, bool) {
	f, ok := r.flows[name]
	return f, ok
}

// Tables returns every table in the registry, in no particular order.
// Callers that need deterministic order should sort by Name.
func (r *Registry) Tables() []semmodel.SemanticTable {
	out := make([]semmodel.SemanticTable, 0, len(r.tables))
	for _, t := range r.tables {
		out = append(out, t)
	}
	return out
}

// Flows returns every flow in the registry, in no particular order.
func (r *Registry) Flows() []semmodel.SemanticFlow {
	out := make([]semmodel.SemanticFlow, 0, len(r.flows))
	for _, f := range r.flows {
		out = append(out, f)
	}
	return out
}

// Holder is the "shared holder" of spec.md §5: a single atomically-swapped
// pointer to the current Registry. A planner call loads the pointer once
// at the start of a request and uses that snapshot for the whole
// compilation, so an in-flight planner is unaffected by a concurrent
// reload.
type Holder struct {
	ptr atomic.Pointer[Registry]
}

// NewHolder creates a Holder initialised to the given registry (which may
// be nil; Load then returns nil until the first Store).
func NewHolder(initial *Registry) *Holder {
	h := &Holder{}
	h.ptr.Store(initial)
	return h
}

// Load returns the current registry snapshot.
func (h *Holder) Load() *Registry {
	return h.ptr.Load()
}

// Store atomically replaces the current registry. In-flight planners that
// already called Load keep their old snapshot.
func (h *Holder) Store(r *Registry) {
	h.ptr.Store(r)
}
