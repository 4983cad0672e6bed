// Package semmodel defines the semantic model: tables, dimensions,
// measures, flows, and joins (spec.md §3, component C2). These types are
// built once per registry load and are treated as immutable thereafter —
// nothing in the planner mutates a SemanticTable or SemanticFlow after
// construction.
package semmodel

import "github.com/semaflow/semaflow/internal/exprlang"

// Dimension is a named, projectable expression used for grouping or
// filtering.
type Dimension struct {
	Expr        exprlang.Expr
	DataType    string // optional; empty when not declared
	Description string
}

// Measure is an aggregatable metric. A *base* measure sets Agg and leaves
// PostExpr nil; a *derived* measure sets PostExpr and leaves Agg at its
// zero value. Validation (internal/validate) enforces this split and the
// no-derived-of-derived invariant.
type Measure struct {
	Expr        exprlang.Expr
	Agg         exprlang.Agg
	HasAgg      bool // true for base measures; false for derived measures
	Filter      exprlang.Expr
	PostExpr    exprlang.Expr // non-nil for derived measures
	DataType    string
	Description string
}

// IsDerived reports whether the measure is defined in terms of other
// base measures rather than a direct aggregation.
func (m Measure) IsDerived() bool { return m.PostExpr != nil }

// SemanticTable is the unit of physical binding: one data source, one
// physical table, a primary key, and ordered dimension/measure maps.
//
// Dimensions and Measures are accompanied by an explicit Order slice so
// iteration is always definition-order, never Go's randomized map
// iteration (spec.md §9, "Deterministic emission").
type SemanticTable struct {
	Name            string
	DataSource      string
	Table           string
	PrimaryKey      []string
	TimeDimension   string // optional; empty when not declared

	DimensionOrder []string
	Dimensions     map[string]Dimension

	MeasureOrder []string
	Measures     map[string]Measure
}

// Dimension looks up a dimension by name, reporting whether it exists.
func (t *SemanticTable) Dimension(name string) (Dimension, bool) {
	d, ok := t.Dimensions[name]
	return d, ok
}

// Measure looks up a measure by name, reporting whether it exists.
func (t *SemanticTable) Measure(name string) (Measure, bool) {
	m, ok := t.Measures[name]
	return m, ok
}

// HasColumn reports whether name is a dimension or the primary key/time
// dimension column. Used by validation to check that expressions only
// reference columns that exist (spec.md §4.3); since SemanticTable does
// not separately enumerate raw physical columns, "column" here means any
// name validation considers in-scope for the table (its declared
// dimensions plus its key/time columns). Base-table physical column
// existence below the dimension layer is the job of the external
// SchemaProvider (spec.md §6), not this in-memory check.
func (t *SemanticTable) HasColumn(name string) bool {
	if _, ok := t.Dimensions[name]; ok {
		return true
	}
	for _, pk := range t.PrimaryKey {
		if pk == name {
			return true
		}
	}
	return t.TimeDimension != "" && t.TimeDimension == name
}

// JoinType enumerates the supported join kinds for a FlowJoin.
type JoinType int

const (
	JoinLeft JoinType = iota
	JoinInner
	JoinRight
	JoinFull
)

// String renders the SQL keyword for the join type.
func (j JoinType) String() string {
	switch j {
	case JoinLeft:
		return "LEFT"
	case JoinInner:
		return "INNER"
	case JoinRight:
		return "RIGHT"
	case JoinFull:
		return "FULL"
	default:
		return "LEFT"
	}
}

// Cardinality is an optional explicit hint on a FlowJoin's cardinality
// toward the joined (right-hand) side.
type Cardinality int

const (
	CardinalityUnspecified Cardinality = iota
	CardinalityManyToOne
	CardinalityOneToOne
	CardinalityOneToMany
	CardinalityManyToMany
)

// JoinKey is one (left_column, right_column) equality pair in a join's ON
// clause.
type JoinKey struct {
	LeftColumn  string
	RightColumn string
}

// FlowJoin is one edge of a SemanticFlow's join graph: SemanticTable
// "SemanticTable" is joined in under alias "Alias", attached to the
// previously-defined alias "ToAlias".
type FlowJoin struct {
	SemanticTable string
	Alias         string
	ToAlias       string
	JoinType      JoinType
	JoinKeys      []JoinKey
	Cardinality   Cardinality
}

// BaseTableRef names the flow's anchor table and the alias it is bound
// under.
type BaseTableRef struct {
	SemanticTable string
	Alias         string
}

// SemanticFlow binds a base table and zero or more joins into a queryable
// unit. JoinOrder preserves YAML/definition order for deterministic
// emission; Joins is keyed by alias for O(1) lookup.
type SemanticFlow struct {
	Name         string
	BaseTableRef BaseTableRef
	JoinOrder    []string
	Joins        map[string]FlowJoin
	Description  string
}

// Join looks up a join by alias.
func (f *SemanticFlow) Join(alias string) (FlowJoin, bool) {
	j, ok := f.Joins[alias]
	return j, ok
}
