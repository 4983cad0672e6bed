package registry

import (
	"fmt"
	"sort"
)

// FieldSchema describes one publicly-addressable dimension or measure of a
// flow, for introspection callers (e.g. a catalog UI or a metadata API) —
// not used by planning itself.
type FieldSchema struct {
	QualifiedName string // "alias.name"
	Alias         string
	Name          string
	Description   string
	DataType      string
	IsTimeDim     bool
}

// FlowSchema is the introspectable view of a flow: its public dimensions
// and measures across the base table and every join, without exposing the
// underlying join graph (spec.md §4.2: "internal joins are not exposed").
type FlowSchema struct {
	FlowName    string
	Description string
	Dimensions  []FieldSchema
	Measures    []FieldSchema
}

// FlowSchema builds the introspectable schema view for a flow. It returns
// an error if the flow or any of its referenced tables is missing from the
// registry (which would indicate an unvalidated registry).
func (r *Registry) FlowSchema(flowName string) (*FlowSchema, error) {
	flow, ok := r.Flow(flowName)
	if !ok {
		return nil, fmt.Errorf("unknown flow %q", flowName)
	}

	aliases := []string{flow.BaseTableRef.Alias}
	tableByAlias := map[string]string{flow.BaseTableRef.Alias: flow.BaseTableRef.SemanticTable}
	for _, alias := range flow.JoinOrder {
		j := flow.Joins[alias]
		aliases = append(aliases, alias)
		tableByAlias[alias] = j.SemanticTable
	}

	schema := &FlowSchema{FlowName: flow.Name, Description: flow.Description}
	for _, alias := range aliases {
		tableName := tableByAlias[alias]
		table, ok := r.Table(tableName)
		if !ok {
			return nil, fmt.Errorf("flow %q references unknown table %q", flowName, tableName)
		}
		for _, dimName := range table.DimensionOrder {
			dim := table.Dimensions[dimName]
			schema.Dimensions = append(schema.Dimensions, FieldSchema{
				QualifiedName: alias + "." + dimName,
				Alias:         alias,
				Name:          dimName,
				Description:   dim.Description,
				DataType:      dim.DataType,
				IsTimeDim:     table.TimeDimension == dimName,
			})
		}
		for _, measName := range table.MeasureOrder {
			meas := table.Measures[measName]
			schema.Measures = append(schema.Measures, FieldSchema{
				QualifiedName: alias + "." + measName,
				Alias:         alias,
				Name:          measName,
				Description:   meas.Description,
				DataType:      meas.DataType,
			})
		}
	}

	sort.SliceStable(schema.Dimensions, func(i, j int) bool {
		return schema.Dimensions[i].QualifiedName < schema.Dimensions[j].QualifiedName
	})
	sort.SliceStable(schema.Measures, func(i, j int) bool {
		return schema.Measures[i].QualifiedName < schema.Measures[j].QualifiedName
	})
	return schema, nil
}
