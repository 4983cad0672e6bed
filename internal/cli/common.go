package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/semaflow/semaflow/internal/loader"
	"github.com/semaflow/semaflow/internal/registry"
	"github.com/semaflow/semaflow/internal/sqlast"
	"github.com/semaflow/semaflow/internal/sqlast/dialect"
	"github.com/semaflow/semaflow/internal/validate"
)

// cliLogger writes findings to stderr-equivalent at warn level through
// slog's text handler, so each line carries time, level and message as
// key=value pairs; the CLI is a one-shot command, not a long-running
// process, so a plain text handler is enough.
func cliLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

// loadRegistry loads modelDir in validate.ModeWarn with no schema provider:
// the CLI runs offline, so schema-aware checks (which need a live data
// source connection) are skipped the same way the teacher's "plan" command
// skips its own live-catalog checks when run disconnected.
func loadRegistry(ctx context.Context, modelDir string, logger *slog.Logger) (*registry.Registry, error) {
	res, err := loader.LoadDir(ctx, modelDir, nil, validate.ModeWarn, logger)
	if err != nil {
		return nil, fmt.Errorf("load model directory %q: %w", modelDir, err)
	}
	return res.Registry, nil
}

// dialectByName resolves a --dialect flag value to its sqlast.Dialect,
// mirroring internal/apiserver.DialectByName so the CLI and HTTP surface
// agree on accepted names.
func dialectByName(name string) (sqlast.Dialect, error) {
	switch name {
	case "", "duckdb":
		return dialect.DuckDB{}, nil
	case "mysql":
		return dialect.MySQL{}, nil
	case "odbc":
		return dialect.ODBC{}, nil
	default:
		return nil, fmt.Errorf("unknown dialect %q (want duckdb, mysql, or odbc)", name)
	}
}
