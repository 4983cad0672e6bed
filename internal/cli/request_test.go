package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semaflow/semaflow/internal/semmodel"
)

func TestCoerceScalar(t *testing.T) {
	assert.Equal(t, int64(42), coerceScalar("42"))
	assert.Equal(t, 3.5, coerceScalar("3.5"))
	assert.Equal(t, true, coerceScalar("true"))
	assert.Equal(t, false, coerceScalar("false"))
	assert.Equal(t, "open", coerceScalar("open"))
}

func TestParseFilterFlag_ScalarOp(t *testing.T) {
	rf, err := parseFilterFlag("o.status == open")
	require.NoError(t, err)
	assert.Equal(t, "o.status", rf.Field)
	assert.Equal(t, semmodel.OpEq, rf.Op)
	assert.Equal(t, "open", rf.Value.Scalar)
}

func TestParseFilterFlag_ValueMayContainSpaces(t *testing.T) {
	rf, err := parseFilterFlag("o.note == hello world")
	require.NoError(t, err)
	assert.Equal(t, "hello world", rf.Value.Scalar)
}

func TestParseFilterFlag_InOpSplitsCommaList(t *testing.T) {
	rf, err := parseFilterFlag("o.status in open, closed, 1")
	require.NoError(t, err)
	assert.Equal(t, semmodel.OpIn, rf.Op)
	require.True(t, rf.Value.IsList)
	assert.Equal(t, []interface{}{"open", "closed", int64(1)}, rf.Value.List)
}

func TestParseFilterFlag_RejectsMalformedOrUnknownOp(t *testing.T) {
	_, err := parseFilterFlag("o.status")
	assert.Error(t, err)

	_, err = parseFilterFlag("o.status ?? open")
	assert.Error(t, err)
}

func TestRequestFlags_Build_RequiresFlowWithoutRequestFile(t *testing.T) {
	f := &requestFlags{}
	_, err := f.build()
	assert.Error(t, err)
}

func TestRequestFlags_Build_FromFlags(t *testing.T) {
	f := &requestFlags{
		flow:       "sales",
		dimensions: []string{"c.country"},
		measures:   []string{"o.order_total"},
		filters:    []string{"c.country == US"},
		order:      []string{"o.order_total:desc", "c.country"},
		limit:      10,
		offset:     5,
	}
	qr, err := f.build()
	require.NoError(t, err)
	assert.Equal(t, "sales", qr.Flow)
	assert.Equal(t, []string{"c.country"}, qr.Dimensions)
	assert.Equal(t, []string{"o.order_total"}, qr.Measures)
	require.Len(t, qr.Filters, 1)
	assert.Equal(t, "c.country", qr.Filters[0].Field)
	require.NotNil(t, qr.Limit)
	assert.Equal(t, 10, *qr.Limit)
	require.NotNil(t, qr.Offset)
	assert.Equal(t, 5, *qr.Offset)
	require.Len(t, qr.Order, 2)
	assert.Equal(t, semmodel.OrderDesc, qr.Order[0].Direction)
	assert.Equal(t, semmodel.OrderAsc, qr.Order[1].Direction)
}

func TestRequestFlags_Build_RequestFileOverridesFlags(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "req.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"flow": "sales",
		"dimensions": ["c.country"],
		"measures": ["o.order_total"],
		"filters": [{"field": "c.country", "op": "in", "value": ["US", "CA"]}],
		"order": [{"column": "o.order_total", "direction": "desc"}],
		"limit": 25
	}`), 0o600))

	f := &requestFlags{flow: "ignored", requestFile: path}
	qr, err := f.build()
	require.NoError(t, err)
	assert.Equal(t, "sales", qr.Flow)
	require.Len(t, qr.Filters, 1)
	assert.Equal(t, semmodel.OpIn, qr.Filters[0].Op)
	assert.True(t, qr.Filters[0].Value.IsList)
	require.NotNil(t, qr.Limit)
	assert.Equal(t, 25, *qr.Limit)
	require.Len(t, qr.Order, 1)
	assert.Equal(t, semmodel.OrderDesc, qr.Order[0].Direction)
}

func TestLoadRequestFile_RejectsUnknownFilterOp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "req.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"flow":"sales","filters":[{"field":"o.status","op":"nope","value":"x"}]}`), 0o600))

	_, err := loadRequestFile(path)
	assert.Error(t, err)
}

func TestLoadRequestFile_MissingFile(t *testing.T) {
	_, err := loadRequestFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
