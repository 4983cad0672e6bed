// Package duckdbprovider implements schema.Provider by querying
// information_schema.columns over a live DuckDB connection, the same way
// the teacher's model.Service.validateContract queries information_schema
// to check a materialized model's actual output columns (the DuckDB
// driver dependency is listed in SPEC_FULL.md §B).
package duckdbprovider

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2" // registers the "duckdb" sql driver

	"github.com/semaflow/semaflow/internal/schema"
)

// ConnOpener opens a *sql.DB for a given data source name. SemaFlow never
// hardcodes a single DuckDB file: each data_source in the semantic model
// may point at a different database, so the provider asks a
// schema.ConnectionRegistry which DSN to dial.
type ConnOpener interface {
	Connection(ctx context.Context, dataSource string) (*schema.ConnectionInfo, error)
}

// Provider is a schema.Provider backed by live DuckDB connections, one per
// distinct data source, cached for the lifetime of the Provider.
type Provider struct {
	conns ConnOpener

	mu   chan struct{} // binary semaphore guarding dbs
	dbs  map[string]*sql.DB
}

// New constructs a Provider. conns supplies the DSN for each data source
// named in the semantic model.
func New(conns ConnOpener) *Provider {
	p := &Provider{
		conns: conns,
		mu:    make(chan struct{}, 1),
		dbs:   make(map[string]*sql.DB),
	}
	p.mu <- struct{}{}
	return p
}

// Close closes every connection this Provider has opened.
func (p *Provider) Close() error {
	<-p.mu
	defer func() { p.mu <- struct{}{} }()

	var firstErr error
	for _, db := range p.dbs {
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (p *Provider) dbFor(ctx context.Context, dataSource string) (*sql.DB, error) {
	<-p.mu
	defer func() { p.mu <- struct{}{} }()

	if db, ok := p.dbs[dataSource]; ok {
		return db, nil
	}

	info, err := p.conns.Connection(ctx, dataSource)
	if err != nil {
		return nil, fmt.Errorf("resolve connection for data source %q: %w", dataSource, err)
	}
	if info.Dialect != "duckdb" {
		return nil, fmt.Errorf("data source %q is dialect %q, not duckdb", dataSource, info.Dialect)
	}

	db, err := sql.Open("duckdb", info.DSN)
	if err != nil {
		return nil, fmt.Errorf("open duckdb data source %q: %w", dataSource, err)
	}
	p.dbs[dataSource] = db
	return db, nil
}

// FetchTableSchema queries information_schema.columns for table within
// dataSource and returns its physical column list.
func (p *Provider) FetchTableSchema(ctx context.Context, dataSource, table string) (*schema.TableSchema, error) {
	db, err := p.dbFor(ctx, dataSource)
	if err != nil {
		return nil, err
	}

	schemaName, tableName := splitQualified(table)

	query := `
SELECT column_name, data_type, is_nullable
FROM information_schema.columns
WHERE table_name = ?`
	args := []interface{}{tableName}
	if schemaName != "" {
		query += ` AND table_schema = ?`
		args = append(args, schemaName)
	}
	query += ` ORDER BY ordinal_position`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query information_schema.columns for %s.%s: %w", dataSource, table, err)
	}
	defer func() { _ = rows.Close() }()

	ts := &schema.TableSchema{DataSource: dataSource, Table: table}
	for rows.Next() {
		var name, dataType, isNullable string
		if err := rows.Scan(&name, &dataType, &isNullable); err != nil {
			return nil, fmt.Errorf("scan column info: %w", err)
		}
		ts.Columns = append(ts.Columns, schema.ColumnInfo{
			Name:     name,
			DataType: strings.ToUpper(dataType),
			Nullable: strings.EqualFold(isNullable, "YES"),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns for %s.%s: %w", dataSource, table, err)
	}
	if len(ts.Columns) == 0 {
		return nil, fmt.Errorf("table %s.%s not found or has no columns", dataSource, table)
	}
	return ts, nil
}

// splitQualified splits "schema.table" into its parts; an unqualified name
// returns an empty schema.
func splitQualified(table string) (schemaName, tableName string) {
	if i := strings.LastIndex(table, "."); i >= 0 {
		return table[:i], table[i+1:]
	}
	return "", table
}
