package planbuild

import (
	"fmt"
	"sort"
	"time"

	"github.com/semaflow/semaflow/internal/exprlang"
	"github.com/semaflow/semaflow/internal/grain"
	"github.com/semaflow/semaflow/internal/joinplan"
	"github.com/semaflow/semaflow/internal/planerr"
	"github.com/semaflow/semaflow/internal/resolver"
	"github.com/semaflow/semaflow/internal/semmodel"
	"github.com/semaflow/semaflow/internal/sqlast"
)

// Build chooses between the Flat and MultiGrain shapes per ga.NeedsMultiGrain
// and assembles the corresponding sqlast.SelectQuery tree(s) (spec.md §4.7).
// tables must contain every alias qc references.
func Build(tables map[string]semmodel.SemanticTable, flow *semmodel.SemanticFlow, qc *resolver.QueryComponents, jp *joinplan.Plan, ga *grain.Analysis) (*Plan, error) {
	if ga.NeedsMultiGrain {
		mg, err := buildMultiGrain(tables, flow, qc, jp, ga)
		if err != nil {
			return nil, err
		}
		return &Plan{MultiGrain: mg}, nil
	}
	flat, err := buildFlat(tables, qc, jp)
	if err != nil {
		return nil, err
	}
	return &Plan{Flat: flat}, nil
}

// buildFlat assembles the single-SELECT shape of spec.md §4.7: base table
// plus the planner's ordered joins, dimensions and measures projected
// side-by-side, filters in WHERE, dimension expressions repeated in GROUP
// BY. Derived measures are inlined as a full expression over their base
// measures' own aggregate calls, since a flat SELECT cannot reference a
// sibling SELECT-list alias.
func buildFlat(tables map[string]semmodel.SemanticTable, qc *resolver.QueryComponents, jp *joinplan.Plan) (*FlatPlan, error) {
	q := &sqlast.SelectQuery{
		From:  tableRef(tables, jp.BaseAlias),
		Joins: buildJoins(tables, jp, nil),
	}

	for _, d := range qc.Dimensions {
		q.Select = append(q.Select, sqlast.SelectItem{Expr: d.Expr, Alias: d.PublicName})
		q.GroupBy = append(q.GroupBy, d.Expr)
	}

	for _, rm := range qc.Measures {
		expr, err := inlineMeasureExpr(tables, rm)
		if err != nil {
			return nil, err
		}
		q.Select = append(q.Select, sqlast.SelectItem{Expr: expr, Alias: rm.PublicName})
	}

	for _, rf := range qc.Filters {
		expr, err := buildFilterExpr(rf)
		if err != nil {
			return nil, err
		}
		q.Where = append(q.Where, expr)
	}

	orderBy, err := buildOrderBy(qc, func(rm resolver.ResolvedMeasure) (exprlang.Expr, error) {
		return inlineMeasureExpr(tables, rm)
	})
	if err != nil {
		return nil, err
	}
	q.OrderBy = orderBy
	q.Limit = qc.Limit
	q.Offset = qc.Offset

	return &FlatPlan{Query: q}, nil
}

// inlineMeasureExpr returns the full SELECT-list expression for a resolved
// measure: a plain aggregate for a base measure, or, for a derived measure,
// its post-expression with every MeasureRef replaced by the referenced base
// measure's own aggregate call (depth-1 only; internal/validate rejects
// derived-of-derived before a request ever reaches this stage).
func inlineMeasureExpr(tables map[string]semmodel.SemanticTable, rm resolver.ResolvedMeasure) (exprlang.Expr, error) {
	if !rm.Measure.IsDerived() {
		return baseAggregate(tables, rm.Alias, rm.Name)
	}
	var buildErr error
	result := substituteMeasureRefs(rm.Expr, func(depName string) exprlang.Expr {
		e, err := baseAggregate(tables, rm.Alias, depName)
		if err != nil {
			buildErr = err
			return &exprlang.Literal{Value: exprlang.NullValue}
		}
		return e
	})
	if buildErr != nil {
		return nil, buildErr
	}
	return result, nil
}

// baseAggregate builds the Aggregate expression for the base measure named
// name on alias, qualifying its expression and filter against alias. Base
// measures resolve to an unwrapped inner expression (internal/resolver), so
// every consumer that wants the full aggregate call — here and in
// MultiGrain's CTE builder — wraps it the same way.
func baseAggregate(tables map[string]semmodel.SemanticTable, alias, name string) (exprlang.Expr, error) {
	table, ok := tables[alias]
	if !ok {
		return nil, planerr.New(planerr.KindUnknownField, "alias %q has no table bound while materializing measure %q", alias, name)
	}
	m, ok := table.Measure(name)
	if !ok {
		return nil, planerr.New(planerr.KindUnknownField, "base measure %q does not exist on table %q", name, table.Name).WithTable(table.Name)
	}
	return &exprlang.Aggregate{
		Agg:    m.Agg,
		Expr:   resolver.Qualify(m.Expr, alias),
		Filter: resolver.Qualify(m.Filter, alias),
	}, nil
}

// substituteMeasureRefs rebuilds expr, replacing every MeasureRef leaf via
// resolve. It mirrors resolver.Qualify's recursive-rebuild shape since
// exprlang expressions are immutable (internal/exprlang package doc).
func substituteMeasureRefs(expr exprlang.Expr, resolve func(name string) exprlang.Expr) exprlang.Expr {
	if expr == nil {
		return nil
	}
	switch e := expr.(type) {
	case *exprlang.Column:
		return e
	case *exprlang.Literal:
		return e
	case *exprlang.Case:
		branches := make([]exprlang.CaseBranch, len(e.Branches))
		for i, b := range e.Branches {
			branches[i] = exprlang.CaseBranch{
				Cond: substituteMeasureRefs(b.Cond, resolve),
				Then: substituteMeasureRefs(b.Then, resolve),
			}
		}
		return &exprlang.Case{Branches: branches, Else: substituteMeasureRefs(e.Else, resolve)}
	case *exprlang.BinaryOp:
		return &exprlang.BinaryOp{Op: e.Op, Left: substituteMeasureRefs(e.Left, resolve), Right: substituteMeasureRefs(e.Right, resolve)}
	case *exprlang.UnaryOp:
		return &exprlang.UnaryOp{Op: e.Op, Expr: substituteMeasureRefs(e.Expr, resolve)}
	case *exprlang.Function:
		args := make([]exprlang.Expr, len(e.Args))
		for i, a := range e.Args {
			args[i] = substituteMeasureRefs(a, resolve)
		}
		return &exprlang.Function{Name: e.Name, Args: args}
	case *exprlang.Aggregate:
		return &exprlang.Aggregate{Agg: e.Agg, Expr: substituteMeasureRefs(e.Expr, resolve), Filter: substituteMeasureRefs(e.Filter, resolve)}
	case *exprlang.MeasureRef:
		return resolve(e.Name)
	default:
		return e
	}
}

// buildMultiGrain assembles the per-alias pre-aggregated CTEs plus the
// final query that joins and projects across them (spec.md §4.7). An alias
// gets its own GrainedAggPlan when it contributes a measure or carries a
// request filter (see internal/grain's doc comment on pathSafeTowardBase
// for why a plain filtered dimension alias needs this too); any other
// required alias is joined directly into the final query, unaggregated.
func buildMultiGrain(tables map[string]semmodel.SemanticTable, flow *semmodel.SemanticFlow, qc *resolver.QueryComponents, jp *joinplan.Plan, ga *grain.Analysis) (*MultiGrainPlan, error) {
	filtersByAlias := map[string][]resolver.ResolvedFilter{}
	for _, f := range qc.Filters {
		filtersByAlias[f.Field.Alias] = append(filtersByAlias[f.Field.Alias], f)
	}
	dimsByAlias := map[string][]resolver.ResolvedField{}
	for _, d := range qc.Dimensions {
		dimsByAlias[d.Alias] = append(dimsByAlias[d.Alias], d)
	}
	measuresByAlias := map[string][]resolver.ResolvedMeasure{}
	for _, m := range qc.Measures {
		measuresByAlias[m.Alias] = append(measuresByAlias[m.Alias], m)
	}

	cteAliases := map[string]string{} // alias -> CTE name
	for alias := range ga.TableGrains {
		cteAliases[alias] = alias + "_agg"
	}
	for alias := range qc.RequiredAliases {
		if alias == qc.BaseAlias {
			continue
		}
		if _, ok := cteAliases[alias]; ok {
			continue
		}
		if len(filtersByAlias[alias]) > 0 {
			cteAliases[alias] = alias + "_agg"
		}
	}

	var aliasOrder []string
	for alias := range cteAliases {
		aliasOrder = append(aliasOrder, alias)
	}
	sort.Strings(aliasOrder)

	var ctes []GrainedAggPlan
	for _, alias := range aliasOrder {
		g, ok := ga.TableGrains[alias]
		if !ok {
			g = grainFor(flow, alias)
		}
		cte, err := buildGrainedAgg(tables, alias, g, dimsByAlias[alias], measuresByAlias[alias], filtersByAlias[alias])
		if err != nil {
			return nil, err
		}
		ctes = append(ctes, GrainedAggPlan{Alias: alias, Query: cte})
	}

	final, err := buildFinalQuery(tables, qc, jp, cteAliases)
	if err != nil {
		return nil, err
	}

	return &MultiGrainPlan{CTEs: ctes, Final: FinalQueryPlan{Query: final}}, nil
}

// grainFor recomputes an alias's grain outside of ga.TableGrains, for a
// dimension-only alias that needs a CTE (filtered, but contributing no
// measure) and so was never added by internal/grain's Analyze, which only
// computes grains for measure-contributing aliases.
func grainFor(flow *semmodel.SemanticFlow, alias string) grain.TableGrain {
	return computeGrainColumns(flow, alias)
}

// computeGrainColumns duplicates internal/grain's join-key-only grain
// computation for a single alias, since that helper is unexported and this
// is the one call site outside the grain package that needs it (a
// dimension-only alias that was never a measure contributor).
func computeGrainColumns(flow *semmodel.SemanticFlow, alias string) grain.TableGrain {
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
	return grain.TableGrain{Alias: alias, Columns: cols}
}

// buildGrainedAgg builds one CTE: its own table as FROM, its grain columns
// plus any dimensions it supplies in SELECT/GROUP BY, its own measures as
// aggregate SELECT items (including each derived measure's base
// dependencies, which need their own aggregated column here even though
// they were not themselves requested), and its own filters in WHERE. An
// alias with no measures (a filtered dimension-only alias) gets no GROUP
// BY at all — just a filtered passthrough select, per spec.md §8 scenario 3.
func buildGrainedAgg(tables map[string]semmodel.SemanticTable, alias string, g grain.TableGrain, dims []resolver.ResolvedField, measures []resolver.ResolvedMeasure, filters []resolver.ResolvedFilter) (*sqlast.SelectQuery, error) {
	table, ok := tables[alias]
	if !ok {
		return nil, planerr.New(planerr.KindUnknownField, "alias %q has no bound table", alias)
	}

	q := &sqlast.SelectQuery{From: sqlast.TableRef{Table: table.Table, Alias: alias}}

	var groupBy []exprlang.Expr
	for _, col := range g.Columns {
		expr := &exprlang.Column{Table: alias, Name: col}
		q.Select = append(q.Select, sqlast.SelectItem{Expr: expr})
		groupBy = append(groupBy, expr)
	}
	for _, d := range dims {
		q.Select = append(q.Select, sqlast.SelectItem{Expr: d.Expr, Alias: d.Name})
		groupBy = append(groupBy, d.Expr)
	}

	neededAggs := map[string]bool{}
	var aggOrder []string
	noteAgg := func(name string) {
		if !neededAggs[name] {
			neededAggs[name] = true
			aggOrder = append(aggOrder, name)
		}
	}
	for _, rm := range measures {
		if rm.Measure.IsDerived() {
			for _, dep := range rm.BaseDeps {
				noteAgg(dep)
			}
		} else {
			noteAgg(rm.Name)
		}
	}
	for _, name := range aggOrder {
		expr, err := baseAggregate(tables, alias, name)
		if err != nil {
			return nil, err
		}
		q.Select = append(q.Select, sqlast.SelectItem{Expr: expr, Alias: name})
	}

	if len(measures) > 0 {
		q.GroupBy = groupBy
	}

	for _, f := range filters {
		expr, err := buildFilterExpr(f)
		if err != nil {
			return nil, err
		}
		q.Where = append(q.Where, expr)
	}

	return q, nil
}

// buildFinalQuery assembles the outer query of a MultiGrainPlan: the same
// ordered join set internal/joinplan computed for the Flat shape, with any
// CTE-ified alias's physical table swapped for its CTE name, projecting
// dimensions and measures by reading straight from whichever source
// carries them (no second aggregation — cteAliases columns are already
// aggregated).
func buildFinalQuery(tables map[string]semmodel.SemanticTable, qc *resolver.QueryComponents, jp *joinplan.Plan, cteAliases map[string]string) (*sqlast.SelectQuery, error) {
	q := &sqlast.SelectQuery{
		From:  tableRefOrCTE(tables, jp.BaseAlias, cteAliases),
		Joins: buildJoins(tables, jp, cteAliases),
	}

	for _, d := range qc.Dimensions {
		q.Select = append(q.Select, sqlast.SelectItem{Expr: finalDimensionExpr(d, cteAliases), Alias: d.PublicName})
	}

	for _, rm := range qc.Measures {
		q.Select = append(q.Select, sqlast.SelectItem{Expr: finalMeasureExpr(rm), Alias: rm.PublicName})
	}

	for _, f := range qc.Filters {
		if _, isCTE := cteAliases[f.Field.Alias]; isCTE {
			continue // already applied inside that alias's own CTE
		}
		expr, err := buildFilterExpr(f)
		if err != nil {
			return nil, err
		}
		q.Where = append(q.Where, expr)
	}

	orderBy, err := buildOrderBy(qc, func(rm resolver.ResolvedMeasure) (exprlang.Expr, error) {
		return finalMeasureExpr(rm), nil
	})
	if err != nil {
		return nil, err
	}
	q.OrderBy = orderBy
	q.Limit = qc.Limit
	q.Offset = qc.Offset

	return q, nil
}

// finalDimensionExpr projects a dimension in the final MultiGrain query.
// A CTE-backed alias exposes its dimension under a plain column named
// d.Name (buildGrainedAgg selects it with that alias), so a Column
// reference is correct there; a direct-table alias was never rewritten
// into a CTE, so its dimension must be projected by its own expression
// (e.g. a renamed physical column) the same way the Flat path does.
func finalDimensionExpr(d resolver.ResolvedField, cteAliases map[string]string) exprlang.Expr {
	if _, isCTE := cteAliases[d.Alias]; isCTE {
		return &exprlang.Column{Table: d.Alias, Name: d.Name}
	}
	return d.Expr
}

// finalMeasureExpr projects a measure in the final MultiGrain query: every
// measure alias is CTE-backed by construction (buildMultiGrain adds every
// measure-contributing alias to cteAliases), so a base measure reads
// straight off its CTE's aggregate output column and a derived measure's
// post-expression is rewritten over its base deps' own CTE columns — no
// second aggregation.
func finalMeasureExpr(rm resolver.ResolvedMeasure) exprlang.Expr {
	if rm.Measure.IsDerived() {
		return substituteMeasureRefs(rm.Expr, func(depName string) exprlang.Expr {
			return &exprlang.Column{Table: rm.Alias, Name: depName}
		})
	}
	return &exprlang.Column{Table: rm.Alias, Name: rm.Name}
}

func tableRef(tables map[string]semmodel.SemanticTable, alias string) sqlast.TableRef {
	return sqlast.TableRef{Table: tables[alias].Table, Alias: alias}
}

func tableRefOrCTE(tables map[string]semmodel.SemanticTable, alias string, cteAliases map[string]string) sqlast.TableRef {
	if name, ok := cteAliases[alias]; ok {
		return sqlast.TableRef{Table: name, Alias: alias}
	}
	return tableRef(tables, alias)
}

func buildJoins(tables map[string]semmodel.SemanticTable, jp *joinplan.Plan, cteAliases map[string]string) []sqlast.Join {
	var joins []sqlast.Join
	for _, pj := range jp.Joins {
		var on []sqlast.JoinCondition
		for _, jk := range pj.Join.JoinKeys {
			on = append(on, sqlast.JoinCondition{
				Left:  &exprlang.Column{Table: pj.Join.ToAlias, Name: jk.LeftColumn},
				Right: &exprlang.Column{Table: pj.Alias, Name: jk.RightColumn},
			})
		}
		joins = append(joins, sqlast.Join{
			Type: sqlast.JoinType(pj.Join.JoinType),
			Ref:  tableRefOrCTE(tables, pj.Alias, cteAliases),
			On:   on,
		})
	}
	return joins
}

// buildFilterExpr renders a resolved request filter as a sqlast/exprlang
// expression. Filter values are embedded as exprlang.Literal rather than
// routed through Dialect.Placeholder: every worked example in spec.md §8
// shows the value embedded directly in the rendered SQL text (e.g. scenario
// 4's "= 'US'"), and exprlang.Expr has no bound-parameter node kind to
// express a placeholder with — see DESIGN.md.
func buildFilterExpr(f resolver.ResolvedFilter) (exprlang.Expr, error) {
	switch f.Op {
	case semmodel.OpIn, semmodel.OpNotIn:
		list := make([]exprlang.Expr, len(f.Value.List))
		for i, v := range f.Value.List {
			lit, err := literalFor(v)
			if err != nil {
				return nil, err
			}
			list[i] = lit
		}
		return &exprlang.InExpr{Expr: f.Field.Expr, List: list, Negate: f.Op == semmodel.OpNotIn}, nil

	case semmodel.OpLike, semmodel.OpILike:
		lit, err := literalFor(f.Value.Scalar)
		if err != nil {
			return nil, err
		}
		return &exprlang.LikeExpr{Expr: f.Field.Expr, Pattern: lit, CaseInsensitive: f.Op == semmodel.OpILike}, nil

	default:
		lit, err := literalFor(f.Value.Scalar)
		if err != nil {
			return nil, err
		}
		return &exprlang.BinaryOp{Op: binaryTokenFor(f.Op), Left: f.Field.Expr, Right: lit}, nil
	}
}

func binaryTokenFor(op semmodel.FilterOp) exprlang.TokenType {
	switch op {
	case semmodel.OpEq:
		return exprlang.TokenEq
	case semmodel.OpNeq:
		return exprlang.TokenNeq
	case semmodel.OpGt:
		return exprlang.TokenGt
	case semmodel.OpGte:
		return exprlang.TokenGte
	case semmodel.OpLt:
		return exprlang.TokenLt
	case semmodel.OpLte:
		return exprlang.TokenLte
	default:
		panic(fmt.Sprintf("planbuild: unhandled scalar filter operator %q", op))
	}
}

func literalFor(v interface{}) (*exprlang.Literal, error) {
	switch x := v.(type) {
	case nil:
		return &exprlang.Literal{Value: exprlang.NullValue}, nil
	case bool:
		return &exprlang.Literal{Value: exprlang.BoolValue(x)}, nil
	case int:
		return &exprlang.Literal{Value: exprlang.IntValue(int64(x))}, nil
	case int64:
		return &exprlang.Literal{Value: exprlang.IntValue(x)}, nil
	case float64:
		return &exprlang.Literal{Value: exprlang.FloatValue(x)}, nil
	case string:
		return &exprlang.Literal{Value: exprlang.StringValue(x)}, nil
	case time.Time:
		return &exprlang.Literal{Value: exprlang.TimestampValue(x)}, nil
	default:
		return nil, planerr.New(planerr.KindInvalidOperator, "filter value of type %T is not a supported literal kind", v)
	}
}

// buildOrderBy resolves each ResolvedOrder back to its selected field's
// expression and public name, preserving request order as the tie-break
// (spec.md §4.7). measureExpr builds the SELECT-list expression for a
// measure the same way the caller's own query shape does — a Flat query
// must re-run the measure's aggregate (there is no sibling SELECT-list
// alias to reference), while a MultiGrain final query reads the measure
// straight off its CTE's output column.
func buildOrderBy(qc *resolver.QueryComponents, measureExpr func(resolver.ResolvedMeasure) (exprlang.Expr, error)) ([]sqlast.OrderByItem, error) {
	var items []sqlast.OrderByItem
	for _, o := range qc.Order {
		expr, err := exprForPublicName(qc, o.PublicName, o.IsMeasure, measureExpr)
		if err != nil {
			return nil, err
		}
		items = append(items, sqlast.OrderByItem{Expr: expr, Desc: o.Direction == semmodel.OrderDesc})
	}
	return items, nil
}

func exprForPublicName(qc *resolver.QueryComponents, publicName string, isMeasure bool, measureExpr func(resolver.ResolvedMeasure) (exprlang.Expr, error)) (exprlang.Expr, error) {
	if isMeasure {
		for _, m := range qc.Measures {
			if m.PublicName == publicName {
				return measureExpr(m)
			}
		}
	} else {
		for _, d := range qc.Dimensions {
			if d.PublicName == publicName {
				return d.Expr, nil
			}
		}
	}
	return nil, planerr.New(planerr.KindUnknownField, "order column %q does not refer to a selected field", publicName)
}
