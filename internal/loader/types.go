// Package loader reads the on-disk semantic model format spec.md §6
// describes (YAML tables under tables/, flows under flows/) into
// semmodel types, builds a registry.Registry, and runs
// internal/validate against it. It is the "external loader" spec.md §6
// explicitly places outside the core: nothing here is imported by
// internal/planner or any component upstream of it.
package loader

import "gopkg.in/yaml.v3"

// tableFile is the on-disk shape of one tables/*.yaml file (spec.md §6).
type tableFile struct {
	Name          string   `yaml:"name"`
	DataSource    string   `yaml:"data_source"`
	Table         string   `yaml:"table"`
	PrimaryKey    []string `yaml:"primary_key"`
	PrimaryKeys   []string `yaml:"primary_keys"`
	TimeDimension string   `yaml:"time_dimension"`
	Description   string   `yaml:"description"`
	Dimensions    yaml.Node `yaml:"dimensions"`
	Measures      yaml.Node `yaml:"measures"`
}

// dimensionFile is one entry of a table's dimensions map. It may be
// written as a bare string (shorthand for {expression: <string>}) or as a
// full mapping.
type dimensionFile struct {
	Expression  string `yaml:"expression"`
	DataType    string `yaml:"data_type"`
	Description string `yaml:"description"`
}

// measureFile is one entry of a table's measures map.
type measureFile struct {
	Expression  string `yaml:"expression"`
	Agg         string `yaml:"agg"`
	Filter      string `yaml:"filter"`
	PostExpr    string `yaml:"post_expr"`
	DataType    string `yaml:"data_type"`
	Description string `yaml:"description"`
}

// flowFile is the on-disk shape of one flows/*.yaml file (spec.md §6).
type flowFile struct {
	Name        string             `yaml:"name"`
	BaseTable   baseTableFile      `yaml:"base_table"`
	Joins       yaml.Node          `yaml:"joins"`
	Description string             `yaml:"description"`
}

type baseTableFile struct {
	SemanticTable string `yaml:"semantic_table"`
	Alias         string `yaml:"alias"`
}

// joinFile is one entry of a flow's joins map. ToTable is the wire name
// spec.md §6 uses for what the model calls ToAlias — it names the
// previously-defined alias this join attaches to, not a physical table.
type joinFile struct {
	SemanticTable string         `yaml:"semantic_table"`
	ToTable       string         `yaml:"to_table"`
	JoinType      string         `yaml:"join_type"`
	JoinKeys      []joinKeyFile  `yaml:"join_keys"`
	Cardinality   string         `yaml:"cardinality"`
}

type joinKeyFile struct {
	Left  string `yaml:"left"`
	Right string `yaml:"right"`
}
