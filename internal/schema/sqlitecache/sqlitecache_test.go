package sqlitecache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semaflow/semaflow/internal/schema"
)

type countingProvider struct {
	calls int
	ts    *schema.TableSchema
}

func (p *countingProvider) FetchTableSchema(_ context.Context, dataSource, table string) (*schema.TableSchema, error) {
	p.calls++
	return p.ts, nil
}

func newTestCache(t *testing.T, next schema.Provider, ttl time.Duration) *Cache {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schema_cache.sqlite")
	c, err := Open(path, next, ttl)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCache_CachesAfterFirstFetch(t *testing.T) {
	inner := &countingProvider{ts: &schema.TableSchema{
		DataSource: "warehouse",
		Table:      "orders",
		Columns:    []schema.ColumnInfo{{Name: "id", DataType: "INTEGER"}},
	}}
	c := newTestCache(t, inner, 0)

	ctx := context.Background()
	ts1, err := c.FetchTableSchema(ctx, "warehouse", "orders")
	require.NoError(t, err)
	ts2, err := c.FetchTableSchema(ctx, "warehouse", "orders")
	require.NoError(t, err)

	assert.Equal(t, 1, inner.calls, "second fetch should hit the cache, not the wrapped provider")
	assert.Equal(t, ts1.Columns, ts2.Columns)
}

func TestCache_InvalidateForcesRefetch(t *testing.T) {
	inner := &countingProvider{ts: &schema.TableSchema{DataSource: "warehouse", Table: "orders"}}
	c := newTestCache(t, inner, 0)

	ctx := context.Background()
	_, err := c.FetchTableSchema(ctx, "warehouse", "orders")
	require.NoError(t, err)
	require.NoError(t, c.Invalidate(ctx, "warehouse", "orders"))
	_, err = c.FetchTableSchema(ctx, "warehouse", "orders")
	require.NoError(t, err)

	assert.Equal(t, 2, inner.calls)
}

func TestCache_TTLExpiry(t *testing.T) {
	inner := &countingProvider{ts: &schema.TableSchema{DataSource: "warehouse", Table: "orders"}}
	c := newTestCache(t, inner, time.Millisecond)

	ctx := context.Background()
	_, err := c.FetchTableSchema(ctx, "warehouse", "orders")
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	_, err = c.FetchTableSchema(ctx, "warehouse", "orders")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls, "expired entry should be refetched")
}

func TestCache_DistinctKeysDoNotCollide(t *testing.T) {
	inner := &countingProvider{ts: &schema.TableSchema{DataSource: "warehouse", Table: "orders"}}
	c := newTestCache(t, inner, 0)

	ctx := context.Background()
	_, err := c.FetchTableSchema(ctx, "warehouse", "orders")
	require.NoError(t, err)
	_, err = c.FetchTableSchema(ctx, "warehouse", "customers")
	require.NoError(t, err)
	_, err = c.FetchTableSchema(ctx, "other_source", "orders")
	require.NoError(t, err)

	assert.Equal(t, 3, inner.calls)
}
