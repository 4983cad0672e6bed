// Package joinplan implements spec.md §4.6 (component C8): expanding a
// request's required aliases into their full join-graph ancestry, pruning
// the LEFT joins proven not to affect the result, and emitting the
// remaining joins in an order safe to render (every to_alias before the
// join that references it).
package joinplan

import (
	"sort"

	"github.com/semaflow/semaflow/internal/semmodel"
)

// PlannedJoin is one join the plan builder must emit, in final order.
type PlannedJoin struct {
	Alias string
	Join  semmodel.FlowJoin
}

// Plan is the output of Plan: the ordered, pruned join list plus the
// aliases that were dropped (kept for "explain"-style diagnostics).
type Plan struct {
	BaseAlias     string
	Joins         []PlannedJoin
	PrunedAliases []string
}

// Plan computes the planned join set for flow given the aliases the
// resolver marked required. tables must contain every alias reachable in
// flow's join graph (alias -> its SemanticTable), used to check whether a
// join's keys cover its joined table's primary key.
func Plan(flow *semmodel.SemanticFlow, tables map[string]semmodel.SemanticTable, required map[string]bool) *Plan {
	base := flow.BaseTableRef.Alias

	included := map[string]bool{base: true}
	for alias := range required {
		walkAncestors(flow, alias, included)
	}

	// Iteratively drop prunable leaves: alias not originally required, LEFT
	// join, keys exactly cover the joined table's primary key, and nothing
	// still-included depends on it as an ancestor (spec.md §4.6: "other
	// unreferenced joins are retained only if they are ancestors of a
	// referenced one").
	for {
		dependents := map[string]int{}
		for alias := range included {
			if alias == base {
				continue
			}
			dependents[flow.Joins[alias].ToAlias]++
		}

		pruned := false
		for alias := range included {
			if alias == base || required[alias] || dependents[alias] > 0 {
				continue
			}
			j := flow.Joins[alias]
			if j.JoinType != semmodel.JoinLeft {
				continue
			}
			joinedTable, ok := tables[alias]
			if !ok || !keysCoverPrimaryKey(j.JoinKeys, joinedTable.PrimaryKey) {
				continue
			}
			delete(included, alias)
			pruned = true
		}
		if !pruned {
			break
		}
	}

	var joins []PlannedJoin
	var prunedAliases []string
	for _, alias := range flow.JoinOrder {
		if included[alias] {
			joins = append(joins, PlannedJoin{Alias: alias, Join: flow.Joins[alias]})
		} else {
			prunedAliases = append(prunedAliases, alias)
		}
	}
	sort.Strings(prunedAliases)

	return &Plan{BaseAlias: base, Joins: joins, PrunedAliases: prunedAliases}
}

// walkAncestors marks alias and every ancestor reachable via to_alias as
// included, stopping at the base.
func walkAncestors(flow *semmodel.SemanticFlow, alias string, included map[string]bool) {
	base := flow.BaseTableRef.Alias
	for alias != base {
		if included[alias] {
			return
		}
		included[alias] = true
		j, ok := flow.Joins[alias]
		if !ok {
			return
		}
		alias = j.ToAlias
	}
}

func keysCoverPrimaryKey(keys []semmodel.JoinKey, pk []string) bool {
	if len(keys) == 0 || len(keys) != len(pk) {
		return false
	}
	right := make(map[string]bool, len(keys))
	for _, k := range keys {
		right[k.RightColumn] = true
	}
	for _, c := range pk {
		if !right[c] {
			return false
		}
	}
	return true
}
