// Package render implements spec.md §4.7/§4.8 (component C10): the last
// step of the pipeline. It sanitizes every public "alias.field" SELECT
// alias into the flat "alias__field" identifier form the rendered SQL
// actually carries (spec.md §8, "round-trip of qualified names"), folds a
// MultiGrainPlan's separate CTE list into one sqlast.SelectQuery the
// renderer can walk, applies a configured default row limit when the
// request didn't set one, and calls internal/sqlast.Render for the final
// SQL string.
package render

import (
	"strings"

	"github.com/semaflow/semaflow/internal/planbuild"
	"github.com/semaflow/semaflow/internal/sqlast"
)

// Result is the rendered SQL plus the mapping a result decoder needs to
// translate each returned column back to the public name the request used.
type Result struct {
	SQL string
	// ColumnMap maps the sanitized "alias__field" column name the query
	// actually returns back to its canonical "alias.field" public name.
	ColumnMap map[string]string
}

// Render flattens plan into one sqlast.SelectQuery and renders it for d.
// defaultLimit, when non-nil, is applied only if the plan carries no LIMIT
// of its own (a request-supplied limit always wins).
func Render(plan *planbuild.Plan, d sqlast.Dialect, defaultLimit *int) (*Result, error) {
	q, err := flatten(plan)
	if err != nil {
		return nil, err
	}

	if q.Limit == nil && defaultLimit != nil {
		limit := *defaultLimit
		q.Limit = &limit
	}

	colMap := sanitizeSelectAliases(q)

	return &Result{
		SQL:       sqlast.Render(q, d),
		ColumnMap: colMap,
	}, nil
}

// flatten returns the single SelectQuery the renderer should walk: the
// Flat plan's query as-is, or, for MultiGrain, the final query with its
// CTEs populated from the plan's separately-tracked GrainedAggPlan list.
func flatten(plan *planbuild.Plan) (*sqlast.SelectQuery, error) {
	if plan.Flat != nil {
		return plan.Flat.Query, nil
	}

	mg := plan.MultiGrain
	q := *mg.Final.Query // shallow copy: the plan's own CTE list is left untouched
	q.CTEs = make([]sqlast.CTE, len(mg.CTEs))
	for i, cte := range mg.CTEs {
		q.CTEs[i] = sqlast.CTE{Name: cte.Alias + "_agg", Query: cte.Query}
	}
	return &q, nil
}

// sanitizeSelectAliases rewrites every top-level SELECT item's alias from
// its public "alias.field" form to "alias__field" in place, and returns the
// reverse mapping. Only the outermost query's SELECT list is part of the
// result row shape a consumer ever sees, so nested CTE column names are
// left as their raw physical names (already collision-free: they are
// unique per CTE, not re-exposed under a public name).
func sanitizeSelectAliases(q *sqlast.SelectQuery) map[string]string {
	colMap := make(map[string]string, len(q.Select))
	for i, item := range q.Select {
		if item.Alias == "" {
			continue
		}
		sanitized := strings.ReplaceAll(item.Alias, ".", "__")
		colMap[sanitized] = item.Alias
		q.Select[i].Alias = sanitized
	}
	return colMap
}
