// Package validate runs the structural and schema-aware checks spec.md
// §4.3 requires of a registry before it is safe to plan against: every
// dimension expression resolves to an in-scope column, every base measure's
// columns exist physically (when a schema provider is given), every join
// alias and key is well-formed, derived measures only reference base
// measures on the same table, and a flow never mixes data sources. It mirrors
// the teacher's internal/domain validation helpers (one function per
// invariant, errors collected rather than returned on first failure) rather
// than a generic validator library.
package validate

import (
	"context"

	"github.com/semaflow/semaflow/internal/exprlang"
	"github.com/semaflow/semaflow/internal/planerr"
	"github.com/semaflow/semaflow/internal/registry"
	"github.com/semaflow/semaflow/internal/schema"
	"github.com/semaflow/semaflow/internal/semmodel"
)

// Mode selects what the caller does with the findings: Strict treats any
// finding as a load failure, Warn logs and proceeds. Validate itself always
// returns the full finding list; applying the mode is the loader's job
// (internal/loader), matching spec.md §4.3's "the core exposes the mode as
// a configuration option" rather than baking the decision into validation.
type Mode string

const (
	ModeStrict Mode = "strict"
	ModeWarn   Mode = "warn"
)

// Validate runs every structural check against reg, plus the schema-aware
// checks when sp is non-nil. Passing a nil Provider skips physical-column
// checks (primary keys, time dimensions, and leaf Column references) — useful for a first validation pass before a schema cache is
// warm, per spec.md §4.3's "again on a schema cache miss".
func Validate(ctx context.Context, reg *registry.Registry, sp schema.Provider) planerr.ValidationErrors {
	var errs planerr.ValidationErrors

	tables := reg.Tables()
	for i := range tables {
		errs = append(errs, validateTable(&tables[i])...)
		if sp != nil {
			errs = append(errs, validateTableSchema(ctx, &tables[i], sp)...)
		}
	}

	flows := reg.Flows()
	for i := range flows {
		errs = append(errs, validateFlow(reg, &flows[i])...)
	}

	return errs
}

// validateTable checks the in-model invariants of one table: every
// dimension expression only references in-scope columns (base measures'
// columns are physical and are checked by validateTableSchema), no aggregate appears inside a dimension, derived measures only
// reference base measures on the same table (no derived-of-derived), and a
// derived measure's PostExpr contains no raw Column reference (it combines
// measures, not columns).
func validateTable(t *semmodel.SemanticTable) planerr.ValidationErrors {
	var errs planerr.ValidationErrors

	for _, name := range t.DimensionOrder {
		dim := t.Dimensions[name]
		if exprlang.ContainsAggregate(dim.Expr) {
			errs = append(errs, planerr.NewValidation(planerr.KindSchemaMismatch,
				"dimension %q on table %q must not contain an aggregate", name, t.Name).WithTable(t.Name).WithField(name))
		}
		for _, col := range exprlang.Columns(dim.Expr) {
			if col.Table != "" && col.Table != t.Name {
				continue // qualified references are resolved against the flow, not this table
			}
			if !t.HasColumn(col.Name) {
				errs = append(errs, planerr.NewValidation(planerr.KindUnknownField,
					"dimension %q on table %q references unknown column %q", name, t.Name, col.Name).WithTable(t.Name).WithField(name))
			}
		}
	}

	for _, name := range t.MeasureOrder {
		meas := t.Measures[name]
		if meas.IsDerived() {
			for _, ref := range exprlang.MeasureRefs(meas.PostExpr) {
				base, ok := t.Measures[ref.Name]
				if !ok {
					errs = append(errs, planerr.NewValidation(planerr.KindUnknownField,
						"derived measure %q on table %q references unknown measure %q", name, t.Name, ref.Name).WithTable(t.Name).WithField(name))
					continue
				}
				if base.IsDerived() {
					errs = append(errs, planerr.NewValidation(planerr.KindDerivedOfDerived,
						"derived measure %q on table %q references derived measure %q", name, t.Name, ref.Name).WithTable(t.Name).WithField(name))
				}
			}
			if len(exprlang.Columns(meas.PostExpr)) > 0 {
				errs = append(errs, planerr.NewValidation(planerr.KindSchemaMismatch,
					"derived measure %q on table %q references a raw column in post_expr; only measure references are allowed", name, t.Name).WithTable(t.Name).WithField(name))
			}
			continue
		}
		if meas.Filter != nil && exprlang.ContainsAggregate(meas.Filter) {
			errs = append(errs, planerr.NewValidation(planerr.KindSchemaMismatch,
				"measure %q on table %q has an aggregate inside its filter", name, t.Name).WithTable(t.Name).WithField(name))
		}
	}

	if len(t.PrimaryKey) == 0 {
		errs = append(errs, planerr.NewValidation(planerr.KindSchemaMismatch,
			"table %q declares no primary_key", t.Name).WithTable(t.Name))
	}

	return errs
}

// validateTableSchema checks primary-key, time-dimension, and base-column
// references against the table's physical schema, as reported by sp.
func validateTableSchema(ctx context.Context, t *semmodel.SemanticTable, sp schema.Provider) planerr.ValidationErrors {
	var errs planerr.ValidationErrors

	phys, err := sp.FetchTableSchema(ctx, t.DataSource, t.Table)
	if err != nil {
		errs = append(errs, planerr.NewValidation(planerr.KindSchemaMismatch,
			"could not fetch physical schema for table %q: %v", t.Name, err).WithTable(t.Name))
		return errs
	}

	for _, pk := range t.PrimaryKey {
		if !phys.HasColumn(pk) {
			errs = append(errs, planerr.NewValidation(planerr.KindSchemaMismatch,
				"table %q primary_key column %q does not exist in %s.%s", t.Name, pk, t.DataSource, t.Table).WithTable(t.Name).WithField(pk))
		}
	}
	if t.TimeDimension != "" {
		if _, ok := t.Dimensions[t.TimeDimension]; !ok {
			errs = append(errs, planerr.NewValidation(planerr.KindSchemaMismatch,
				"table %q time_dimension %q is not a declared dimension", t.Name, t.TimeDimension).WithTable(t.Name).WithField(t.TimeDimension))
		}
	}

	checkLeafColumns := func(field string, expr exprlang.Expr) {
		for _, col := range exprlang.Columns(expr) {
			if col.Table != "" && col.Table != t.Name {
				continue
			}
			if _, isDim := t.Dimensions[col.Name]; isDim {
				continue // dimension-to-dimension references are checked elsewhere
			}
			if !phys.HasColumn(col.Name) {
				errs = append(errs, planerr.NewValidation(planerr.KindSchemaMismatch,
					"table %q field %q references column %q not present in %s.%s", t.Name, field, col.Name, t.DataSource, t.Table).WithTable(t.Name).WithField(field))
			}
		}
	}
	for _, name := range t.DimensionOrder {
		checkLeafColumns(name, t.Dimensions[name].Expr)
	}
	for _, name := range t.MeasureOrder {
		meas := t.Measures[name]
		if !meas.IsDerived() {
			checkLeafColumns(name, meas.Expr)
		}
	}

	return errs
}

// validateFlow checks the join graph of one flow: alias uniqueness, every
// to_alias resolves to a previously-defined alias, every join key's right
// column is known to the joined table's model (a dimension or primary-key
// column), a composite join key declares an explicit cardinality, and every
// joined table shares the base table's data source (spec.md §4.6/§4.9).
func validateFlow(reg *registry.Registry, f *semmodel.SemanticFlow) planerr.ValidationErrors {
	var errs planerr.ValidationErrors

	baseTable, ok := reg.Table(f.BaseTableRef.SemanticTable)
	if !ok {
		errs = append(errs, planerr.NewValidation(planerr.KindUnknownFlow,
			"flow %q base table %q is not a registered semantic table", f.Name, f.BaseTableRef.SemanticTable).WithFlow(f.Name))
		return errs
	}

	seenAliases := map[string]string{f.BaseTableRef.Alias: baseTable.DataSource}
	dataSource := baseTable.DataSource

	for _, alias := range f.JoinOrder {
		j, ok := f.Joins[alias]
		if !ok {
			continue
		}
		if _, dup := seenAliases[alias]; dup {
			errs = append(errs, planerr.NewValidation(planerr.KindUnknownJoinAlias,
				"flow %q declares alias %q more than once", f.Name, alias).WithFlow(f.Name).WithField(alias))
			continue
		}
		if _, ok := seenAliases[j.ToAlias]; !ok {
			errs = append(errs, planerr.NewValidation(planerr.KindUnknownJoinAlias,
				"flow %q join %q has to_alias %q which is not previously defined", f.Name, alias, j.ToAlias).WithFlow(f.Name).WithField(alias))
		}

		joinedTable, ok := reg.Table(j.SemanticTable)
		if !ok {
			errs = append(errs, planerr.NewValidation(planerr.KindUnknownFlow,
				"flow %q join %q references unregistered table %q", f.Name, alias, j.SemanticTable).WithFlow(f.Name).WithField(alias))
			seenAliases[alias] = dataSource
			continue
		}
		if joinedTable.DataSource != dataSource {
			errs = append(errs, planerr.NewValidation(planerr.KindMixedDataSources,
				"flow %q mixes data sources: %q is %q but base is %q", f.Name, alias, joinedTable.DataSource, dataSource).WithFlow(f.Name).WithField(alias))
		}

		for _, jk := range j.JoinKeys {
			if !joinedTable.HasColumn(jk.RightColumn) {
				errs = append(errs, planerr.NewValidation(planerr.KindJoinKeyUnknownColumn,
					"flow %q join %q key right column %q does not exist on table %q", f.Name, alias, jk.RightColumn, j.SemanticTable).WithFlow(f.Name).WithField(alias))
			}
		}
		if len(j.JoinKeys) > 1 && j.Cardinality == semmodel.CardinalityUnspecified {
			errs = append(errs, planerr.NewValidation(planerr.KindCardinalityRequired,
				"flow %q join %q has a composite key and must declare an explicit cardinality", f.Name, alias).WithFlow(f.Name).WithField(alias))
		}

		seenAliases[alias] = joinedTable.DataSource
	}

	return errs
}
