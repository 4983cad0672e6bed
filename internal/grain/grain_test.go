package grain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semaflow/semaflow/internal/exprlang"
	"github.com/semaflow/semaflow/internal/registry"
	"github.com/semaflow/semaflow/internal/resolver"
	"github.com/semaflow/semaflow/internal/semmodel"
)

// The fixtures mirror internal/resolver's sales flow (orders "o" LEFT
// joined to customers "c" on o.customer_id = c.id) so grain's fanout
// analysis exercises the same join graph spec.md §8's worked scenarios do.

func ordersTable() semmodel.SemanticTable {
	return semmodel.SemanticTable{
		Name:           "orders",
		DataSource:     "warehouse",
		Table:          "orders",
		PrimaryKey:     []string{"id"},
		DimensionOrder: []string{"order_date"},
		Dimensions: map[string]semmodel.Dimension{
			"order_date": {Expr: &exprlang.Column{Name: "order_date"}},
		},
		MeasureOrder: []string{"order_total"},
		Measures: map[string]semmodel.Measure{
			"order_total": {Expr: &exprlang.Column{Name: "amount"}, Agg: exprlang.AggSum, HasAgg: true},
		},
	}
}

func customersTable() semmodel.SemanticTable {
	return semmodel.SemanticTable{
		Name:           "customers",
		DataSource:     "warehouse",
		Table:          "customers",
		PrimaryKey:     []string{"id"},
		DimensionOrder: []string{"country"},
		Dimensions: map[string]semmodel.Dimension{
			"country": {Expr: &exprlang.Column{Name: "country"}},
		},
		MeasureOrder: []string{"customer_count"},
		Measures: map[string]semmodel.Measure{
			"customer_count": {Expr: &exprlang.Column{Name: "id"}, Agg: exprlang.AggCountDistinct, HasAgg: true},
		},
	}
}

func salesFlow(cardinality semmodel.Cardinality) semmodel.SemanticFlow {
	return semmodel.SemanticFlow{
		Name:         "sales",
		BaseTableRef: semmodel.BaseTableRef{SemanticTable: "orders", Alias: "o"},
		JoinOrder:    []string{"c"},
		Joins: map[string]semmodel.FlowJoin{
			"c": {
				SemanticTable: "customers",
				Alias:         "c",
				ToAlias:       "o",
				JoinType:      semmodel.JoinLeft,
				JoinKeys:      []semmodel.JoinKey{{LeftColumn: "customer_id", RightColumn: "id"}},
				Cardinality:   cardinality,
			},
		},
	}
}

func buildRegistry(t *testing.T, flow semmodel.SemanticFlow) *registry.Registry {
	t.Helper()
	reg, err := registry.New(
		[]semmodel.SemanticTable{ordersTable(), customersTable()},
		[]semmodel.SemanticFlow{flow},
	)
	require.NoError(t, err)
	return reg
}

func tablesFor(flow semmodel.SemanticFlow, reg *registry.Registry) map[string]semmodel.SemanticTable {
	tables := map[string]semmodel.SemanticTable{}
	t, _ := reg.Table(flow.BaseTableRef.SemanticTable)
	tables[flow.BaseTableRef.Alias] = t
	for alias, j := range flow.Joins {
		jt, _ := reg.Table(j.SemanticTable)
		tables[alias] = jt
	}
	return tables
}

func resolveOrFail(t *testing.T, reg *registry.Registry, req semmodel.QueryRequest) *resolver.QueryComponents {
	t.Helper()
	qc, err := resolver.Resolve(reg, req)
	require.NoError(t, err)
	return qc
}

func TestAnalyze_SingleAliasMeasureNoFilter_Flat(t *testing.T) {
	flow := salesFlow(semmodel.CardinalityUnspecified)
	reg := buildRegistry(t, flow)
	qc := resolveOrFail(t, reg, semmodel.QueryRequest{Flow: "sales", Measures: []string{"o.order_total"}})

	a := Analyze(&flow, tablesFor(flow, reg), qc)
	assert.False(t, a.NeedsMultiGrain)
	assert.Len(t, a.TableGrains, 1)
}

func TestAnalyze_MeasuresSpanTwoAliases_ForcesMultiGrain(t *testing.T) {
	flow := salesFlow(semmodel.CardinalityUnspecified)
	reg := buildRegistry(t, flow)
	qc := resolveOrFail(t, reg, semmodel.QueryRequest{Flow: "sales", Measures: []string{"o.order_total", "c.customer_count"}})

	a := Analyze(&flow, tablesFor(flow, reg), qc)
	assert.True(t, a.NeedsMultiGrain)
	assert.Len(t, a.TableGrains, 2)
}

func TestAnalyze_FilterOnBaseAlias_NeverForcesMultiGrain(t *testing.T) {
	flow := salesFlow(semmodel.CardinalityUnspecified)
	reg := buildRegistry(t, flow)
	qc := resolveOrFail(t, reg, semmodel.QueryRequest{
		Flow:     "sales",
		Measures: []string{"o.order_total"},
		Filters:  []semmodel.RequestFilter{{Field: "o.order_date", Op: semmodel.OpGt, Value: semmodel.FilterValue{Scalar: "2024-01-01"}}},
	})

	a := Analyze(&flow, tablesFor(flow, reg), qc)
	assert.False(t, a.NeedsMultiGrain)
}

// This is spec.md §8 scenario 3: a dimension filter reaching the joined
// customers alias through a join whose keys don't cover the base table's
// primary key (orders.id), so the relationship is not proven safe toward
// the base. Filtering it forces MultiGrain even though only one alias
// supplies a measure.
func TestAnalyze_FilterOnUnsafeJoinedAlias_ForcesMultiGrain(t *testing.T) {
	flow := salesFlow(semmodel.CardinalityUnspecified)
	reg := buildRegistry(t, flow)
	qc := resolveOrFail(t, reg, semmodel.QueryRequest{
		Flow:       "sales",
		Dimensions: []string{"c.country"},
		Measures:   []string{"o.order_total"},
		Filters:    []semmodel.RequestFilter{{Field: "c.country", Op: semmodel.OpEq, Value: semmodel.FilterValue{Scalar: "US"}}},
	})

	a := Analyze(&flow, tablesFor(flow, reg), qc)
	assert.True(t, a.NeedsMultiGrain)
}

func TestAnalyze_ExplicitOneToOneCardinality_MakesFilterSafe(t *testing.T) {
	flow := salesFlow(semmodel.CardinalityOneToOne)
	reg := buildRegistry(t, flow)
	qc := resolveOrFail(t, reg, semmodel.QueryRequest{
		Flow:       "sales",
		Dimensions: []string{"c.country"},
		Measures:   []string{"o.order_total"},
		Filters:    []semmodel.RequestFilter{{Field: "c.country", Op: semmodel.OpEq, Value: semmodel.FilterValue{Scalar: "US"}}},
	})

	a := Analyze(&flow, tablesFor(flow, reg), qc)
	assert.False(t, a.NeedsMultiGrain)
}

func TestAnalyze_ExplicitManyToOneCardinality_StaysUnsafe(t *testing.T) {
	flow := salesFlow(semmodel.CardinalityManyToOne)
	reg := buildRegistry(t, flow)
	qc := resolveOrFail(t, reg, semmodel.QueryRequest{
		Flow:       "sales",
		Dimensions: []string{"c.country"},
		Measures:   []string{"o.order_total"},
		Filters:    []semmodel.RequestFilter{{Field: "c.country", Op: semmodel.OpEq, Value: semmodel.FilterValue{Scalar: "US"}}},
	})

	a := Analyze(&flow, tablesFor(flow, reg), qc)
	assert.True(t, a.NeedsMultiGrain)
}

func TestAnalyze_TableGrain_CoversJoinKeyColumns(t *testing.T) {
	flow := salesFlow(semmodel.CardinalityUnspecified)
	reg := buildRegistry(t, flow)
	qc := resolveOrFail(t, reg, semmodel.QueryRequest{Flow: "sales", Measures: []string{"o.order_total", "c.customer_count"}})

	a := Analyze(&flow, tablesFor(flow, reg), qc)
	require.Contains(t, a.TableGrains, "o")
	assert.Equal(t, []string{"customer_id"}, a.TableGrains["o"].Columns)
	require.Contains(t, a.TableGrains, "c")
	assert.Equal(t, []string{"id"}, a.TableGrains["c"].Columns)
}

func TestSortedAliases_IsLexicalAndStable(t *testing.T) {
	a := &Analysis{TableGrains: map[string]TableGrain{"c": {}, "o": {}, "b": {}}}
	assert.Equal(t, []string{"b", "c", "o"}, SortedAliases(a))
}
