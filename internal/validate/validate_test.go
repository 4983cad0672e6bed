package validate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semaflow/semaflow/internal/exprlang"
	"github.com/semaflow/semaflow/internal/planerr"
	"github.com/semaflow/semaflow/internal/registry"
	"github.com/semaflow/semaflow/internal/schema"
	"github.com/semaflow/semaflow/internal/semmodel"
)

func ordersTable() semmodel.SemanticTable {
	return semmodel.SemanticTable{
		Name:           "orders",
		DataSource:     "warehouse",
		Table:          "orders",
		PrimaryKey:     []string{"id"},
		TimeDimension:  "order_date",
		DimensionOrder: []string{"order_date"},
		Dimensions: map[string]semmodel.Dimension{
			"order_date": {Expr: &exprlang.Column{Name: "order_date"}},
		},
		MeasureOrder: []string{"order_total", "avg_order_value"},
		Measures: map[string]semmodel.Measure{
			"order_total": {Expr: &exprlang.Column{Name: "amount"}, Agg: exprlang.AggSum, HasAgg: true},
			"order_count": {Expr: &exprlang.Column{Name: "id"}, Agg: exprlang.AggCount, HasAgg: true},
			"avg_order_value": {
				PostExpr: &exprlang.BinaryOp{
					Op:    exprlang.TokenSlash,
					Left:  &exprlang.MeasureRef{Name: "order_total"},
					Right: &exprlang.MeasureRef{Name: "order_count"},
				},
			},
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
	}
}

func salesFlow() semmodel.SemanticFlow {
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
			},
		},
	}
}

func buildRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	r, err := registry.New(
		[]semmodel.SemanticTable{ordersTable(), customersTable()},
		[]semmodel.SemanticFlow{salesFlow()},
	)
	require.NoError(t, err)
	return r
}

func TestValidate_CleanRegistryHasNoStructuralErrors(t *testing.T) {
	r := buildRegistry(t)
	errs := Validate(context.Background(), r, nil)
	assert.Empty(t, errs)
}

func TestValidate_UnknownColumnOnDimension(t *testing.T) {
	bad := ordersTable()
	bad.Dimensions["order_date"] = semmodel.Dimension{Expr: &exprlang.Column{Name: "not_a_column"}}
	r, err := registry.New([]semmodel.SemanticTable{bad}, nil)
	require.NoError(t, err)

	errs := Validate(context.Background(), r, nil)
	require.NotEmpty(t, errs)
	assert.Equal(t, planerr.KindUnknownField, errs[0].Kind)
}

func TestValidate_DerivedOfDerivedRejected(t *testing.T) {
	bad := ordersTable()
	bad.Measures["double_derived"] = semmodel.Measure{
		PostExpr: &exprlang.MeasureRef{Name: "avg_order_value"},
	}
	bad.MeasureOrder = append(bad.MeasureOrder, "double_derived")
	r, err := registry.New([]semmodel.SemanticTable{bad}, nil)
	require.NoError(t, err)

	errs := Validate(context.Background(), r, nil)
	var found bool
	for _, e := range errs {
		if e.Kind == planerr.KindDerivedOfDerived {
			found = true
		}
	}
	assert.True(t, found, "expected a DerivedOfDerived finding, got %v", errs)
}

func TestValidate_MixedDataSourcesRejected(t *testing.T) {
	other := customersTable()
	other.DataSource = "other_warehouse"
	r, err := registry.New(
		[]semmodel.SemanticTable{ordersTable(), other},
		[]semmodel.SemanticFlow{salesFlow()},
	)
	require.NoError(t, err)

	errs := Validate(context.Background(), r, nil)
	var found bool
	for _, e := range errs {
		if e.Kind == planerr.KindMixedDataSources {
			found = true
		}
	}
	assert.True(t, found)
}

func TestValidate_UnknownToAliasRejected(t *testing.T) {
	flow := salesFlow()
	j := flow.Joins["c"]
	j.ToAlias = "nope"
	flow.Joins["c"] = j
	r, err := registry.New(
		[]semmodel.SemanticTable{ordersTable(), customersTable()},
		[]semmodel.SemanticFlow{flow},
	)
	require.NoError(t, err)

	errs := Validate(context.Background(), r, nil)
	var found bool
	for _, e := range errs {
		if e.Kind == planerr.KindUnknownJoinAlias {
			found = true
		}
	}
	assert.True(t, found)
}

func TestValidate_CompositeJoinKeyRequiresCardinality(t *testing.T) {
	flow := salesFlow()
	j := flow.Joins["c"]
	j.JoinKeys = append(j.JoinKeys, semmodel.JoinKey{LeftColumn: "region", RightColumn: "country"})
	flow.Joins["c"] = j
	r, err := registry.New(
		[]semmodel.SemanticTable{ordersTable(), customersTable()},
		[]semmodel.SemanticFlow{flow},
	)
	require.NoError(t, err)

	errs := Validate(context.Background(), r, nil)
	var found bool
	for _, e := range errs {
		if e.Kind == planerr.KindCardinalityRequired {
			found = true
		}
	}
	assert.True(t, found)
}

type fakeProvider struct {
	schemas map[string]*schema.TableSchema
}

func (f *fakeProvider) FetchTableSchema(_ context.Context, dataSource, table string) (*schema.TableSchema, error) {
	return f.schemas[dataSource+"."+table], nil
}

func TestValidate_SchemaAwarePrimaryKeyMissing(t *testing.T) {
	r := buildRegistry(t)
	sp := &fakeProvider{schemas: map[string]*schema.TableSchema{
		"warehouse.orders": {
			Columns: []schema.ColumnInfo{{Name: "amount"}, {Name: "order_date"}}, // no "id"
		},
		"warehouse.customers": {
			Columns: []schema.ColumnInfo{{Name: "id"}, {Name: "country"}},
		},
	}}

	errs := Validate(context.Background(), r, sp)
	var found bool
	for _, e := range errs {
		if e.Kind == planerr.KindSchemaMismatch && e.Field == "id" {
			found = true
		}
	}
	assert.True(t, found, "expected a missing primary-key finding, got %v", errs)
}
