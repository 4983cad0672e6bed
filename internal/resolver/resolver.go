package resolver

import (
	"strings"

	"github.com/semaflow/semaflow/internal/exprlang"
	"github.com/semaflow/semaflow/internal/planerr"
	"github.com/semaflow/semaflow/internal/registry"
	"github.com/semaflow/semaflow/internal/semmodel"
)

// Resolve turns req into QueryComponents against the flow it names,
// looked up in reg. Errors short-circuit at the first offender (spec.md
// §7: "request-time errors short-circuit... because later stages depend
// on earlier resolution").
func Resolve(reg *registry.Registry, req semmodel.QueryRequest) (*QueryComponents, error) {
	flow, ok := reg.Flow(req.Flow)
	if !ok {
		return nil, planerr.New(planerr.KindUnknownFlow, "flow %q is not registered", req.Flow).WithFlow(req.Flow)
	}

	aliasOrder := append([]string{flow.BaseTableRef.Alias}, flow.JoinOrder...)
	aliasToTable := map[string]string{flow.BaseTableRef.Alias: flow.BaseTableRef.SemanticTable}
	joinLookup := map[string]semmodel.FlowJoin{}
	for _, alias := range flow.JoinOrder {
		j := flow.Joins[alias]
		aliasToTable[alias] = j.SemanticTable
		joinLookup[alias] = j
	}

	tables := map[string]semmodel.SemanticTable{}
	for alias, tableName := range aliasToTable {
		t, ok := reg.Table(tableName)
		if !ok {
			return nil, planerr.New(planerr.KindUnknownFlow, "flow %q alias %q references unregistered table %q", req.Flow, alias, tableName).WithFlow(req.Flow)
		}
		tables[alias] = t
	}

	r := &resolution{
		flowName:     req.Flow,
		aliasOrder:   aliasOrder,
		aliasToTable: aliasToTable,
		tables:       tables,
	}

	components := &QueryComponents{
		BaseAlias:       flow.BaseTableRef.Alias,
		BaseTableRef:    flow.BaseTableRef,
		AliasToTable:    aliasToTable,
		JoinLookup:      joinLookup,
		RequiredAliases: map[string]bool{},
		Limit:           req.Limit,
		Offset:          req.Offset,
	}

	selectedByPublicName := map[string]bool{} // for order-term matching: value true = measure

	for _, name := range req.Dimensions {
		rf, err := r.resolveDimension(name)
		if err != nil {
			return nil, err
		}
		components.Dimensions = append(components.Dimensions, rf)
		components.RequiredAliases[rf.Alias] = true
		selectedByPublicName[rf.PublicName] = false
	}

	for _, name := range req.Measures {
		rm, err := r.resolveMeasure(name)
		if err != nil {
			return nil, err
		}
		components.Measures = append(components.Measures, rm)
		components.RequiredAliases[rm.Alias] = true
		selectedByPublicName[rm.PublicName] = true
	}

	for _, f := range req.Filters {
		rf, err := r.resolveFilterField(f.Field)
		if err != nil {
			return nil, err
		}
		if !semmodel.ValidFilterOps[f.Op] {
			return nil, planerr.New(planerr.KindInvalidOperator, "filter operator %q is not supported", f.Op).WithFlow(req.Flow).WithField(f.Field)
		}
		wantsList := f.Op == semmodel.OpIn || f.Op == semmodel.OpNotIn
		if wantsList != f.Value.IsList {
			return nil, planerr.New(planerr.KindInvalidOperator, "filter %q: operator %q requires %s value", f.Field, f.Op, listOrScalar(wantsList)).WithFlow(req.Flow).WithField(f.Field)
		}
		components.Filters = append(components.Filters, ResolvedFilter{Field: rf, Op: f.Op, Value: f.Value})
		components.RequiredAliases[rf.Alias] = true
	}

	for _, o := range req.Order {
		isMeasure, ok := lookupSelected(selectedByPublicName, o.Column, components)
		if !ok {
			return nil, planerr.New(planerr.KindUnknownField, "order column %q does not refer to a selected dimension or measure", o.Column).WithFlow(req.Flow).WithField(o.Column)
		}
		components.Order = append(components.Order, ResolvedOrder{PublicName: canonicalPublicName(o.Column, components), IsMeasure: isMeasure, Direction: o.Direction})
	}

	return components, nil
}

func listOrScalar(wantsList bool) string {
	if wantsList {
		return "a list"
	}
	return "a scalar"
}

// lookupSelected reports whether column (bare or qualified) matches
// exactly one selected dimension or measure, and whether it is a measure.
func lookupSelected(selected map[string]bool, column string, c *QueryComponents) (bool, bool) {
	if strings.Contains(column, ".") {
		isMeasure, ok := selected[column]
		return isMeasure, ok
	}
	var matches []string
	for pub := range selected {
		_, name, _ := strings.Cut(pub, ".")
		if name == column {
			matches = append(matches, pub)
		}
	}
	if len(matches) != 1 {
		return false, false
	}
	return selected[matches[0]], true
}

func canonicalPublicName(column string, c *QueryComponents) string {
	if strings.Contains(column, ".") {
		return column
	}
	for _, d := range c.Dimensions {
		if d.Name == column {
			return d.PublicName
		}
	}
	for _, m := range c.Measures {
		if m.Name == column {
			return m.PublicName
		}
	}
	return column
}

// resolution holds the lookup tables shared by every field resolution
// call within one Resolve invocation.
type resolution struct {
	flowName     string
	aliasOrder   []string
	aliasToTable map[string]string
	tables       map[string]semmodel.SemanticTable
}

func (r *resolution) resolveDimension(name string) (ResolvedField, error) {
	alias, fieldName, err := r.resolveBareOrQualified(name, func(t semmodel.SemanticTable, n string) bool {
		_, ok := t.Dimension(n)
		return ok
	})
	if err != nil {
		return ResolvedField{}, err
	}
	dim, _ := r.tables[alias].Dimension(fieldName)
	return ResolvedField{
		PublicName: alias + "." + fieldName,
		Alias:      alias,
		Name:       fieldName,
		Expr:       Qualify(dim.Expr, alias),
	}, nil
}

func (r *resolution) resolveMeasure(name string) (ResolvedMeasure, error) {
	alias, fieldName, err := r.resolveBareOrQualified(name, func(t semmodel.SemanticTable, n string) bool {
		_, ok := t.Measure(n)
		return ok
	})
	if err != nil {
		return ResolvedMeasure{}, err
	}
	meas, _ := r.tables[alias].Measure(fieldName)

	var deps []string
	if meas.IsDerived() {
		for _, ref := range exprlang.MeasureRefs(meas.PostExpr) {
			deps = append(deps, ref.Name)
		}
	}

	var expr exprlang.Expr
	if meas.IsDerived() {
		expr = Qualify(meas.PostExpr, alias)
	} else {
		expr = Qualify(meas.Expr, alias)
	}

	return ResolvedMeasure{
		ResolvedField: ResolvedField{
			PublicName: alias + "." + fieldName,
			Alias:      alias,
			Name:       fieldName,
			Expr:       expr,
		},
		Measure:  meas,
		BaseDeps: deps,
	}, nil
}

// resolveFilterField resolves a filter's field, which must be a dimension;
// resolving to a measure produces InvalidFilterTarget rather than treating
// it as not found.
func (r *resolution) resolveFilterField(name string) (ResolvedField, error) {
	rf, dimErr := r.resolveDimension(name)
	if dimErr == nil {
		return rf, nil
	}
	if pe, ok := dimErr.(*planerr.PlanError); ok && pe.Kind == planerr.KindUnknownField {
		if _, measErr := r.resolveMeasure(name); measErr == nil {
			return ResolvedField{}, planerr.New(planerr.KindInvalidFilterTarget, "filter field %q resolves to a measure, not a dimension", name).WithFlow(r.flowName).WithField(name)
		}
	}
	return ResolvedField{}, dimErr
}

// resolveBareOrQualified implements the shared alias-resolution algorithm
// of spec.md §4.4: a qualified "alias.name" is looked up directly; a bare
// name is searched across aliases in definition order (base first), and
// is rejected with AmbiguousField if present on more than one alias.
func (r *resolution) resolveBareOrQualified(name string, has func(semmodel.SemanticTable, string) bool) (alias, fieldName string, err error) {
	if before, after, found := strings.Cut(name, "."); found {
		alias, fieldName = before, after
		table, ok := r.tables[alias]
		if !ok {
			return "", "", planerr.New(planerr.KindUnknownField, "unknown alias %q in field %q", alias, name).WithFlow(r.flowName).WithField(name)
		}
		if !has(table, fieldName) {
			return "", "", planerr.New(planerr.KindUnknownField, "field %q does not exist on alias %q", fieldName, alias).WithFlow(r.flowName).WithTable(table.Name).WithField(name)
		}
		return alias, fieldName, nil
	}

	var matches []string
	for _, a := range r.aliasOrder {
		if has(r.tables[a], name) {
			matches = append(matches, a)
		}
	}
	switch len(matches) {
	case 0:
		return "", "", planerr.New(planerr.KindUnknownField, "field %q does not exist on any alias of flow %q", name, r.flowName).WithFlow(r.flowName).WithField(name)
	case 1:
		return matches[0], name, nil
	default:
		return "", "", planerr.New(planerr.KindAmbiguousField, "field %q exists on multiple aliases: %s", name, strings.Join(matches, ", ")).WithFlow(r.flowName).WithField(name)
	}
}

// Qualify returns a copy of expr with every unqualified Column stamped
// with alias, leaving already-qualified columns untouched. Expressions are
// immutable (exprlang package doc), so this builds new nodes rather than
// mutating in place. Exported so internal/planbuild can qualify
// base-measure expressions the same way when inlining a derived measure's
// dependencies.
func Qualify(expr exprlang.Expr, alias string) exprlang.Expr {
	if expr == nil {
		return nil
	}
	switch e := expr.(type) {
	case *exprlang.Column:
		if e.Table != "" {
			return e
		}
		return &exprlang.Column{Table: alias, Name: e.Name}
	case *exprlang.Literal:
		return e
	case *exprlang.Case:
		branches := make([]exprlang.CaseBranch, len(e.Branches))
		for i, b := range e.Branches {
			branches[i] = exprlang.CaseBranch{Cond: Qualify(b.Cond, alias), Then: Qualify(b.Then, alias)}
		}
		return &exprlang.Case{Branches: branches, Else: Qualify(e.Else, alias)}
	case *exprlang.BinaryOp:
		return &exprlang.BinaryOp{Op: e.Op, Left: Qualify(e.Left, alias), Right: Qualify(e.Right, alias)}
	case *exprlang.UnaryOp:
		return &exprlang.UnaryOp{Op: e.Op, Expr: Qualify(e.Expr, alias)}
	case *exprlang.Function:
		args := make([]exprlang.Expr, len(e.Args))
		for i, a := range e.Args {
			args[i] = Qualify(a, alias)
		}
		return &exprlang.Function{Name: e.Name, Args: args}
	case *exprlang.Aggregate:
		return &exprlang.Aggregate{Agg: e.Agg, Expr: Qualify(e.Expr, alias), Filter: Qualify(e.Filter, alias)}
	case *exprlang.MeasureRef:
		return e
	default:
		return e
	}
}
