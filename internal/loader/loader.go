package loader

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/semaflow/semaflow/internal/exprlang"
	"github.com/semaflow/semaflow/internal/planerr"
	"github.com/semaflow/semaflow/internal/registry"
	"github.com/semaflow/semaflow/internal/schema"
	"github.com/semaflow/semaflow/internal/semmodel"
	"github.com/semaflow/semaflow/internal/validate"
)

// loadConcurrency bounds how many YAML files are parsed in parallel,
// mirroring the bounded errgroup used by the teacher's
// internal/service/catalog/registration.go AttachAll.
const loadConcurrency = 8

// Result is the outcome of a directory load: the built registry, and any
// validation findings (populated even when err is nil, in ModeWarn).
type Result struct {
	Registry *registry.Registry
	Findings planerr.ValidationErrors
}

// LoadDir reads every tables/*.yaml and flows/*.yaml file under dir,
// builds a registry.Registry, and runs internal/validate against it
// (schema-aware when sp is non-nil). In validate.ModeStrict, any finding
// fails the load; in validate.ModeWarn, findings are logged through
// logger and the load succeeds anyway (spec.md §4.3).
func LoadDir(ctx context.Context, dir string, sp schema.Provider, mode validate.Mode, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}

	tableFiles, err := globFiles(filepath.Join(dir, "tables"))
	if err != nil {
		return nil, err
	}
	flowFiles, err := globFiles(filepath.Join(dir, "flows"))
	if err != nil {
		return nil, err
	}

	tables, err := loadTables(ctx, tableFiles)
	if err != nil {
		return nil, err
	}
	flows, err := loadFlows(ctx, flowFiles)
	if err != nil {
		return nil, err
	}

	reg, err := registry.New(tables, flows)
	if err != nil {
		return nil, fmt.Errorf("build registry: %w", err)
	}

	findings := validate.Validate(ctx, reg, sp)
	if len(findings) > 0 {
		if mode == validate.ModeWarn {
			for _, f := range findings {
				logger.Warn("semantic model validation finding", "kind", f.Kind, "flow", f.Flow, "table", f.Table, "field", f.Field, "message", f.Message)
			}
		} else {
			return &Result{Registry: reg, Findings: findings}, findings
		}
	}

	logger.Info("semantic model loaded", "tables", len(tables), "flows", len(flows), "findings", len(findings))
	return &Result{Registry: reg, Findings: findings}, nil
}

func globFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") {
			out = append(out, filepath.Join(dir, name))
		}
	}
	sort.Strings(out) // deterministic load order regardless of directory iteration order
	return out, nil
}

// loadTables parses every table file concurrently (bounded), then
// converts each to a semmodel.SemanticTable in file order — parsing is
// parallel, but the resulting slice order is deterministic.
func loadTables(ctx context.Context, files []string) ([]semmodel.SemanticTable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw := make([]*tableFile, len(files))
	var g errgroup.Group
	g.SetLimit(loadConcurrency)
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			tf, err := parseYAMLFile[tableFile](f)
			if err != nil {
				return fmt.Errorf("%s: %w", f, err)
			}
			raw[i] = tf
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	tables := make([]semmodel.SemanticTable, len(raw))
	for i, tf := range raw {
		t, err := convertTable(tf)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", files[i], err)
		}
		tables[i] = t
	}
	return tables, nil
}

func loadFlows(ctx context.Context, files []string) ([]semmodel.SemanticFlow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw := make([]*flowFile, len(files))
	var g errgroup.Group
	g.SetLimit(loadConcurrency)
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			ff, err := parseYAMLFile[flowFile](f)
			if err != nil {
				return fmt.Errorf("%s: %w", f, err)
			}
			raw[i] = ff
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	flows := make([]semmodel.SemanticFlow, len(raw))
	for i, ff := range raw {
		f, err := convertFlow(ff)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", files[i], err)
		}
		flows[i] = f
	}
	return flows, nil
}

func parseYAMLFile[T any](path string) (*T, error) {
	b, err := os.ReadFile(path) //nolint:gosec // path comes from our own directory scan
	if err != nil {
		return nil, err
	}
	var v T
	if err := yaml.Unmarshal(b, &v); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return &v, nil
}

// mappingPairs walks a yaml.Node known to be a mapping and returns its
// key/value node pairs in file order, so dimension/measure/join order
// matches the YAML author's order rather than Go's randomized map
// iteration (spec.md §9, "Deterministic emission").
func mappingPairs(n yaml.Node) [][2]*yaml.Node {
	if n.Kind != yaml.MappingNode {
		return nil
	}
	var pairs [][2]*yaml.Node
	for i := 0; i+1 < len(n.Content); i += 2 {
		pairs = append(pairs, [2]*yaml.Node{n.Content[i], n.Content[i+1]})
	}
	return pairs
}

func convertTable(tf *tableFile) (semmodel.SemanticTable, error) {
	pk := tf.PrimaryKey
	if len(pk) == 0 {
		pk = tf.PrimaryKeys
	}

	t := semmodel.SemanticTable{
		Name:          tf.Name,
		DataSource:    tf.DataSource,
		Table:         tf.Table,
		PrimaryKey:    pk,
		TimeDimension: tf.TimeDimension,
		Dimensions:    map[string]semmodel.Dimension{},
		Measures:      map[string]semmodel.Measure{},
	}

	for _, pair := range mappingPairs(tf.Dimensions) {
		name := pair[0].Value
		var df dimensionFile
		if pair[1].Kind == yaml.ScalarNode {
			df.Expression = pair[1].Value
		} else if err := pair[1].Decode(&df); err != nil {
			return t, fmt.Errorf("dimension %q: %w", name, err)
		}
		expr, err := exprlang.Parse(df.Expression, nil)
		if err != nil {
			return t, fmt.Errorf("dimension %q: parse expression %q: %w", name, df.Expression, err)
		}
		t.DimensionOrder = append(t.DimensionOrder, name)
		t.Dimensions[name] = semmodel.Dimension{Expr: expr, DataType: df.DataType, Description: df.Description}
	}

	// Measure parsing needs the set of measure names up front (so
	// post_expr formulas can reference sibling measures via MeasureRef),
	// so the mapping is walked twice: once to collect names, once to
	// parse expressions.
	pairs := mappingPairs(tf.Measures)
	measureNames := map[string]bool{}
	for _, pair := range pairs {
		measureNames[pair[0].Value] = true
	}

	for _, pair := range pairs {
		name := pair[0].Value
		var mf measureFile
		if err := pair[1].Decode(&mf); err != nil {
			return t, fmt.Errorf("measure %q: %w", name, err)
		}
		m, err := convertMeasure(mf, measureNames)
		if err != nil {
			return t, fmt.Errorf("measure %q: %w", name, err)
		}
		t.MeasureOrder = append(t.MeasureOrder, name)
		t.Measures[name] = m
	}

	return t, nil
}

func convertMeasure(mf measureFile, measureNames map[string]bool) (semmodel.Measure, error) {
	m := semmodel.Measure{DataType: mf.DataType, Description: mf.Description}

	if mf.PostExpr != "" {
		postExpr, err := exprlang.Parse(mf.PostExpr, measureNames)
		if err != nil {
			return m, fmt.Errorf("parse post_expr %q: %w", mf.PostExpr, err)
		}
		m.PostExpr = postExpr
		return m, nil
	}

	expr, err := exprlang.Parse(mf.Expression, nil)
	if err != nil {
		return m, fmt.Errorf("parse expression %q: %w", mf.Expression, err)
	}
	m.Expr = expr
	m.HasAgg = true
	agg, err := parseAgg(mf.Agg)
	if err != nil {
		return m, err
	}
	m.Agg = agg

	if mf.Filter != "" {
		filterExpr, err := exprlang.Parse(mf.Filter, nil)
		if err != nil {
			return m, fmt.Errorf("parse filter %q: %w", mf.Filter, err)
		}
		m.Filter = filterExpr
	}

	return m, nil
}

func parseAgg(s string) (exprlang.Agg, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sum":
		return exprlang.AggSum, nil
	case "count":
		return exprlang.AggCount, nil
	case "count_distinct", "countdistinct":
		return exprlang.AggCountDistinct, nil
	case "min":
		return exprlang.AggMin, nil
	case "max":
		return exprlang.AggMax, nil
	case "avg", "average":
		return exprlang.AggAvg, nil
	default:
		return 0, fmt.Errorf("unknown aggregation %q", s)
	}
}

func convertFlow(ff *flowFile) (semmodel.SemanticFlow, error) {
	f := semmodel.SemanticFlow{
		Name:        ff.Name,
		Description: ff.Description,
		BaseTableRef: semmodel.BaseTableRef{
			SemanticTable: ff.BaseTable.SemanticTable,
			Alias:         ff.BaseTable.Alias,
		},
		Joins: map[string]semmodel.FlowJoin{},
	}

	for _, pair := range mappingPairs(ff.Joins) {
		alias := pair[0].Value
		var jf joinFile
		if err := pair[1].Decode(&jf); err != nil {
			return f, fmt.Errorf("join %q: %w", alias, err)
		}
		jt, err := parseJoinType(jf.JoinType)
		if err != nil {
			return f, fmt.Errorf("join %q: %w", alias, err)
		}
		card, err := parseCardinality(jf.Cardinality)
		if err != nil {
			return f, fmt.Errorf("join %q: %w", alias, err)
		}
		keys := make([]semmodel.JoinKey, len(jf.JoinKeys))
		for i, k := range jf.JoinKeys {
			keys[i] = semmodel.JoinKey{LeftColumn: k.Left, RightColumn: k.Right}
		}
		f.JoinOrder = append(f.JoinOrder, alias)
		f.Joins[alias] = semmodel.FlowJoin{
			SemanticTable: jf.SemanticTable,
			Alias:         alias,
			ToAlias:       jf.ToTable,
			JoinType:      jt,
			JoinKeys:      keys,
			Cardinality:   card,
		}
	}

	return f, nil
}

func parseJoinType(s string) (semmodel.JoinType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "left":
		return semmodel.JoinLeft, nil
	case "inner":
		return semmodel.JoinInner, nil
	case "right":
		return semmodel.JoinRight, nil
	case "full":
		return semmodel.JoinFull, nil
	default:
		return 0, fmt.Errorf("unknown join_type %q", s)
	}
}

func parseCardinality(s string) (semmodel.Cardinality, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return semmodel.CardinalityUnspecified, nil
	case "many_to_one":
		return semmodel.CardinalityManyToOne, nil
	case "one_to_one":
		return semmodel.CardinalityOneToOne, nil
	case "one_to_many":
		return semmodel.CardinalityOneToMany, nil
	case "many_to_many":
		return semmodel.CardinalityManyToMany, nil
	default:
		return 0, fmt.Errorf("unknown cardinality %q", s)
	}
}
