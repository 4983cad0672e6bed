// Package planbuild implements spec.md §4.7 (component C9): choosing
// between the Flat and MultiGrain plan shapes and assembling the typed SQL
// AST (internal/sqlast) for whichever shape the grain analysis selects.
package planbuild

import "github.com/semaflow/semaflow/internal/sqlast"

// FlatPlan mirrors a single SelectQuery (spec.md §3).
type FlatPlan struct {
	Query *sqlast.SelectQuery
}

// GrainedAggPlan is one per-alias pre-aggregated CTE of a MultiGrainPlan.
type GrainedAggPlan struct {
	Alias string
	Query *sqlast.SelectQuery
}

// FinalQueryPlan is the outer query that joins a MultiGrainPlan's CTEs and
// projects the requested dimensions/measures.
type FinalQueryPlan struct {
	Query *sqlast.SelectQuery
}

// MultiGrainPlan holds an ordered list of per-table CTEs plus the final
// query that joins and projects across them (spec.md §3).
type MultiGrainPlan struct {
	CTEs  []GrainedAggPlan
	Final FinalQueryPlan
}

// Plan is the discriminated union of spec.md §3: exactly one of Flat or
// MultiGrain is set.
type Plan struct {
	Flat       *FlatPlan
	MultiGrain *MultiGrainPlan
}
