// Package sqlitecache wraps a schema.Provider with a SQLite-backed cache
// keyed on (data_source, table), amortizing the information_schema round
// trip spec.md §4.3 says only needs to happen "once per registry load and
// again on a schema cache miss". It is built the way the teacher's
// internal/db.OpenSQLite opens a hardened single-writer SQLite pool
// (the mattn/go-sqlite3 dependency is listed in SPEC_FULL.md §B).
package sqlitecache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/semaflow/semaflow/internal/schema"
)

const (
	defaultBusyTimeout = "5000"
	defaultSynchronous = "NORMAL"
	defaultJournalMode = "WAL"
)

// Cache wraps an underlying schema.Provider, caching its FetchTableSchema
// results in a SQLite database. A zero TTL means entries never expire.
type Cache struct {
	next schema.Provider
	db   *sql.DB
	ttl  time.Duration
}

// Open opens (creating if necessary) a SQLite cache database at path and
// wraps next with it. ttl of zero disables expiry.
func Open(path string, next schema.Provider, ttl time.Duration) (*Cache, error) {
	dsn := buildDSN(path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open schema cache %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping schema cache %s: %w", path, err)
	}

	if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate schema cache %s: %w", path, err)
	}

	return &Cache{next: next, db: db, ttl: ttl}, nil
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS table_schema_cache (
	data_source TEXT NOT NULL,
	table_name  TEXT NOT NULL,
	columns_json TEXT NOT NULL,
	fetched_at  INTEGER NOT NULL,
	PRIMARY KEY (data_source, table_name)
)`

// Close closes the cache database. It does not close the wrapped provider.
func (c *Cache) Close() error {
	return c.db.Close()
}

// FetchTableSchema returns the cached schema for (dataSource, table) if
// present and unexpired, otherwise delegates to the wrapped provider and
// stores the result.
func (c *Cache) FetchTableSchema(ctx context.Context, dataSource, table string) (*schema.TableSchema, error) {
	if ts, ok, err := c.lookup(ctx, dataSource, table); err != nil {
		return nil, err
	} else if ok {
		return ts, nil
	}

	ts, err := c.next.FetchTableSchema(ctx, dataSource, table)
	if err != nil {
		return nil, err
	}

	if err := c.store(ctx, dataSource, table, ts); err != nil {
		return nil, err
	}
	return ts, nil
}

// Invalidate removes any cached entry for (dataSource, table), forcing the
// next FetchTableSchema to hit the wrapped provider.
func (c *Cache) Invalidate(ctx context.Context, dataSource, table string) error {
	_, err := c.db.ExecContext(ctx,
		`DELETE FROM table_schema_cache WHERE data_source = ? AND table_name = ?`,
		dataSource, table)
	return err
}

func (c *Cache) lookup(ctx context.Context, dataSource, table string) (*schema.TableSchema, bool, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT columns_json, fetched_at FROM table_schema_cache WHERE data_source = ? AND table_name = ?`,
		dataSource, table)

	var columnsJSON string
	var fetchedAt int64
	switch err := row.Scan(&columnsJSON, &fetchedAt); err {
	case sql.ErrNoRows:
		return nil, false, nil
	case nil:
	default:
		return nil, false, fmt.Errorf("lookup schema cache for %s.%s: %w", dataSource, table, err)
	}

	if c.ttl > 0 && time.Since(time.Unix(fetchedAt, 0)) > c.ttl {
		return nil, false, nil
	}

	var cols []schema.ColumnInfo
	if err := json.Unmarshal([]byte(columnsJSON), &cols); err != nil {
		return nil, false, fmt.Errorf("decode cached schema for %s.%s: %w", dataSource, table, err)
	}
	return &schema.TableSchema{DataSource: dataSource, Table: table, Columns: cols}, true, nil
}

func (c *Cache) store(ctx context.Context, dataSource, table string, ts *schema.TableSchema) error {
	colsJSON, err := json.Marshal(ts.Columns)
	if err != nil {
		return fmt.Errorf("encode schema for %s.%s: %w", dataSource, table, err)
	}
	_, err = c.db.ExecContext(ctx,
		`INSERT INTO table_schema_cache (data_source, table_name, columns_json, fetched_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (data_source, table_name) DO UPDATE SET columns_json = excluded.columns_json, fetched_at = excluded.fetched_at`,
		dataSource, table, string(colsJSON), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("store schema cache for %s.%s: %w", dataSource, table, err)
	}
	return nil
}

func buildDSN(path string) string {
	params := url.Values{}
	params.Set("_journal_mode", defaultJournalMode)
	params.Set("_busy_timeout", defaultBusyTimeout)
	params.Set("_synchronous", defaultSynchronous)
	return path + "?" + params.Encode()
}
