// Package schema declares the two external collaborator interfaces the
// planner core depends on but never implements itself (spec.md §6):
// SchemaProvider answers "does this physical column exist, and what type is
// it", and ConnectionRegistry answers "what dialect and connection does this
// data source use". The core only ever calls through these interfaces —
// concrete implementations (schema/duckdbprovider, schema/sqlitecache) live
// in their own packages and are wired at the application edge, mirroring how
// the teacher's engine.InformationSchemaProvider sits behind a narrow
// factory interface rather than being constructed inline by its callers.
package schema

import "context"

// ColumnInfo describes one physical column as reported by a SchemaProvider.
type ColumnInfo struct {
	Name     string
	DataType string
	Nullable bool
}

// TableSchema is the physical shape of one table in one data source.
type TableSchema struct {
	DataSource string
	Table      string
	Columns    []ColumnInfo
}

// HasColumn reports whether name is a physical column of this table.
func (s *TableSchema) HasColumn(name string) bool {
	for _, c := range s.Columns {
		if c.Name == name {
			return true
		}
	}
	return false
}

// Provider resolves the physical schema of a (data_source, table) pair.
// Implementations are expected to cache: spec.md §4.3 notes that
// validation runs once per registry load and again "on a schema cache
// miss", implying repeated calls for the same pair are cheap in practice.
type Provider interface {
	FetchTableSchema(ctx context.Context, dataSource, table string) (*TableSchema, error)
}

// ConnectionInfo is what a ConnectionRegistry reports for one data source:
// enough for the render stage to pick a Dialect and for a query executor to
// open a connection. The core never opens a connection itself — rendering a
// plan and executing it are separate concerns (spec.md §1, Non-goals).
type ConnectionInfo struct {
	DataSource string
	Dialect    string // "duckdb", "mysql", "odbc", ...
	DSN        string
}

// ConnectionRegistry resolves a data source name to its connection
// metadata.
type ConnectionRegistry interface {
	Connection(ctx context.Context, dataSource string) (*ConnectionInfo, error)
}
