// Package planner is the top-level entry point of spec.md §2's dataflow:
// Resolver -> Grain Analysis + Join Planner -> Plan Builder -> Renderer,
// run in that order against one Registry snapshot. Nothing outside this
// package calls the component packages directly except tests and
// diagnostic tooling (cmd/semaflow's "explain" subcommand, which wants the
// intermediate QueryComponents/Plan values too).
package planner

import (
	"github.com/semaflow/semaflow/internal/grain"
	"github.com/semaflow/semaflow/internal/joinplan"
	"github.com/semaflow/semaflow/internal/planbuild"
	"github.com/semaflow/semaflow/internal/planerr"
	"github.com/semaflow/semaflow/internal/registry"
	"github.com/semaflow/semaflow/internal/render"
	"github.com/semaflow/semaflow/internal/resolver"
	"github.com/semaflow/semaflow/internal/semmodel"
	"github.com/semaflow/semaflow/internal/sqlast"
)

// Options configures a Compile call beyond what's carried in the request
// itself: which dialect to render for, and the row limit to apply when the
// request specifies none (spec.md §6's DefaultRowLimit, set per-deployment
// in internal/config).
type Options struct {
	Dialect         sqlast.Dialect
	DefaultRowLimit *int
}

// Compile runs the full planner pipeline against req and returns the
// rendered SQL plus its result column mapping. It is the only function
// most callers (internal/apiserver, cmd/semaflow) need.
func Compile(reg *registry.Registry, req semmodel.QueryRequest, opts Options) (*render.Result, error) {
	stages, err := Plan(reg, req)
	if err != nil {
		return nil, err
	}
	return render.Render(stages.Plan, opts.Dialect, opts.DefaultRowLimit)
}

// Stages is every intermediate value the pipeline produces, exposed for
// callers that want to inspect a compilation rather than just its final
// SQL (spec.md §4.9's "explain" surface: showing pruned aliases, the
// multi-grain decision, and the resolved field list alongside the plan).
type Stages struct {
	Flow       semmodel.SemanticFlow
	Components *resolver.QueryComponents
	Grain      *grain.Analysis
	Joins      *joinplan.Plan
	Plan       *planbuild.Plan
}

// Plan runs every stage up to (but not including) rendering, returning the
// full intermediate trail.
func Plan(reg *registry.Registry, req semmodel.QueryRequest) (*Stages, error) {
	qc, err := resolver.Resolve(reg, req)
	if err != nil {
		return nil, err
	}

	flow, ok := reg.Flow(req.Flow)
	if !ok {
		// resolver.Resolve already checked this; unreachable in practice, but
		// returning a typed error keeps Plan safe to call on its own.
		return nil, planerr.New(planerr.KindUnknownFlow, "flow %q is not registered", req.Flow).WithFlow(req.Flow)
	}

	tables, err := aliasTables(reg, &flow, qc)
	if err != nil {
		return nil, err
	}

	ga := grain.Analyze(&flow, tables, qc)
	jp := joinplan.Plan(&flow, tables, qc.RequiredAliases)

	p, err := planbuild.Build(tables, &flow, qc, jp, ga)
	if err != nil {
		return nil, err
	}

	return &Stages{Flow: flow, Components: qc, Grain: ga, Joins: jp, Plan: p}, nil
}

// aliasTables resolves every alias in qc.AliasToTable to its SemanticTable,
// the alias-keyed lookup every downstream stage needs.
func aliasTables(reg *registry.Registry, flow *semmodel.SemanticFlow, qc *resolver.QueryComponents) (map[string]semmodel.SemanticTable, error) {
	tables := make(map[string]semmodel.SemanticTable, len(qc.AliasToTable))
	for alias, tableName := range qc.AliasToTable {
		t, ok := reg.Table(tableName)
		if !ok {
			return nil, planerr.New(planerr.KindUnknownFlow, "flow %q alias %q references unregistered table %q", flow.Name, alias, tableName).WithFlow(flow.Name)
		}
		tables[alias] = t
	}
	return tables, nil
}
