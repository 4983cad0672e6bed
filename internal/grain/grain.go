// Package grain implements spec.md §4.5 (component C7): deciding whether a
// request needs the MultiGrain plan shape, and computing the grain (the
// minimal uniquely-keying column set) of each alias that contributes
// measures. It never builds SQL itself — internal/planbuild consumes its
// output to assemble the CTEs.
package grain

import (
	"sort"

	"github.com/semaflow/semaflow/internal/resolver"
	"github.com/semaflow/semaflow/internal/semmodel"
)

// TableGrain is the join-key column set an alias's CTE must group by and
// project in order to be joined back to the rest of the graph (spec.md
// §4.5); internal/planbuild unions in any dimension columns the alias
// itself supplies before using this as a GROUP BY.
type TableGrain struct {
	Alias   string
	Columns []string
}

// Analysis is the MultiGrainAnalysis of spec.md §4.5/§3.
type Analysis struct {
	NeedsMultiGrain bool
	TableGrains     map[string]TableGrain // alias -> grain, one entry per measure-contributing alias
}

// Analyze runs the three-rule cascade of spec.md §4.5 against qc: measures
// spanning more than one alias always force MultiGrain; otherwise a filter
// reaching a non-base alias through a join whose cardinality isn't proven
// safe forces it; otherwise Flat suffices.
func Analyze(flow *semmodel.SemanticFlow, tables map[string]semmodel.SemanticTable, qc *resolver.QueryComponents) *Analysis {
	contributing := map[string]bool{}
	for _, m := range qc.Measures {
		// BaseDeps are depth-1 base measures on the same alias as the
		// derived measure that references them (spec.md §4.4), so they
		// never introduce a new contributing alias by themselves.
		contributing[m.Alias] = true
	}

	needsMultiGrain := len(contributing) >= 2

	if !needsMultiGrain {
		for _, f := range qc.Filters {
			if f.Field.Alias == flow.BaseTableRef.Alias {
				continue
			}
			if !pathSafeTowardBase(flow, tables, f.Field.Alias) {
				needsMultiGrain = true
				break
			}
		}
	}

	grains := map[string]TableGrain{}
	for alias := range contributing {
		grains[alias] = computeTableGrain(flow, alias)
	}

	return &Analysis{NeedsMultiGrain: needsMultiGrain, TableGrains: grains}
}

// pathSafeTowardBase reports whether every join on the path from alias back
// to the flow's base is safe *toward the base* (spec.md §4.5 rule 2), so a
// filter on alias cannot multiply or silently drop base rows before
// aggregation.
//
// This is the mirror image of join *pruning* safety (internal/joinplan),
// which asks "is each row of the parent matched by at most one row of the
// child" (right-hand join keys cover the child's primary key) — the
// condition that makes a join safe to omit from a flat query. Rule 2 asks
// the opposite question: "is each row of the child matched by at most one
// row of the parent", i.e. does the join shrink going the other way. A
// standard fact-to-dimension join (many fact rows per dimension row) is
// pruning-safe but is NOT rule-2-safe: a filter on the dimension side of
// such a join, applied directly in a flat query's WHERE, would silently
// turn the LEFT JOIN into an INNER JOIN and drop unmatched fact rows
// (spec.md §8 scenario 3) — so filtering it forces MultiGrain regardless of
// how safe the same join is to prune.
func pathSafeTowardBase(flow *semmodel.SemanticFlow, tables map[string]semmodel.SemanticTable, alias string) bool {
	base := flow.BaseTableRef.Alias
	for alias != base {
		j, ok := flow.Joins[alias]
		if !ok {
			return false
		}
		parentTable, ok := tables[j.ToAlias]
		if !ok {
			return false
		}
		if !safeTowardBase(j, parentTable) {
			return false
		}
		alias = j.ToAlias
	}
	return true
}

// safeTowardBase reports whether j is many-to-one or one-to-one toward its
// parent (to_alias) side — i.e. whether the relationship, read from the
// joined alias toward its parent, shrinks rather than fans out. An explicit
// cardinality hint is read in the same toward-the-joined-side sense it is
// declared in (spec.md §4.5): OneToMany/OneToOne are safe toward the base,
// ManyToOne/ManyToMany are not. Absent a hint, the join is safe toward its
// parent iff its left-hand (parent-side) join-key columns exactly cover the
// parent table's primary key.
func safeTowardBase(j semmodel.FlowJoin, parentTable semmodel.SemanticTable) bool {
	switch j.Cardinality {
	case semmodel.CardinalityOneToMany, semmodel.CardinalityOneToOne:
		return true
	case semmodel.CardinalityManyToOne, semmodel.CardinalityManyToMany:
		return false
	default:
		return keysCoverParentPrimaryKey(j.JoinKeys, parentTable.PrimaryKey)
	}
}

func keysCoverParentPrimaryKey(keys []semmodel.JoinKey, parentPK []string) bool {
	if len(keys) == 0 || len(keys) != len(parentPK) {
		return false
	}
	left := make(map[string]bool, len(keys))
	for _, k := range keys {
		left[k.LeftColumn] = true
	}
	for _, c := range parentPK {
		if !left[c] {
			return false
		}
	}
	return true
}

// computeTableGrain computes the grain columns for alias: the columns it
// uses to join to its own parent, plus the columns any other alias uses to
// join into it — exactly the columns needed to rejoin the CTE to the rest
// of the graph. It deliberately does NOT include the alias's own primary
// key: spec.md §8 scenario 3's o_agg CTE groups orders by customer_id
// alone, not by the order's own id, because nothing downstream needs
// per-order identity — only the join key back to the customer CTE.
// internal/planbuild additionally groups by any dimension columns the
// alias itself supplies (spec.md §4.7), which is where a selected
// alias-own-grain dimension (e.g. the PK itself) would enter the GROUP BY.
func computeTableGrain(flow *semmodel.SemanticFlow, alias string) TableGrain {
	seen := map[string]bool{}
	var cols []string
	add := func(c string) {
		if c == "" || seen[c] {
			return
		}
		seen[c] = true
		cols = append(cols, c)
	}

	if j, ok := flow.Joins[alias]; ok {
		for _, jk := range j.JoinKeys {
			add(jk.RightColumn)
		}
	}
	for _, otherAlias := range flow.JoinOrder {
		j := flow.Joins[otherAlias]
		if j.ToAlias == alias {
			for _, jk := range j.JoinKeys {
				add(jk.LeftColumn)
			}
		}
	}

	return TableGrain{Alias: alias, Columns: cols}
}

// SortedAliases returns the grain map's aliases in lexical order, for
// deterministic CTE emission.
func SortedAliases(a *Analysis) []string {
	out := make([]string, 0, len(a.TableGrains))
	for alias := range a.TableGrains {
		out = append(out, alias)
	}
	sort.Strings(out)
	return out
}
