// Package registryrefresh periodically reloads the on-disk semantic model
// and swaps it into a registry.Holder, the way the teacher's
// pipeline.Scheduler periodically re-triggers scheduled work via
// robfig/cron/v3 (the cron dependency is listed in SPEC_FULL.md §B).
package registryrefresh

import (
	"context"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/semaflow/semaflow/internal/loader"
	"github.com/semaflow/semaflow/internal/registry"
	"github.com/semaflow/semaflow/internal/schema"
	"github.com/semaflow/semaflow/internal/validate"
)

// Refresher reloads a model directory on a cron schedule and stores the
// result in a registry.Holder. Validation failures during a scheduled
// reload are logged and the previous registry is kept in place — a bad
// edit to the model directory never takes an already-running planner
// offline.
type Refresher struct {
	cron   *cron.Cron
	holder *registry.Holder
	dir    string
	schema schema.Provider
	mode   validate.Mode
	logger *slog.Logger

	mu      sync.Mutex
	entryID cron.EntryID
	started bool
}

// New constructs a Refresher. It does not load or start anything until
// Start is called.
func New(holder *registry.Holder, dir string, sp schema.Provider, mode validate.Mode, logger *slog.Logger) *Refresher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Refresher{
		cron:   cron.New(),
		holder: holder,
		dir:    dir,
		schema: sp,
		mode:   mode,
		logger: logger,
	}
}

// Start performs an initial load — returning its error, since an
// unreadable model directory at startup should fail fast — then schedules
// subsequent reloads on spec (a standard cron expression, e.g. "@every
// 5m") and starts the cron scheduler.
func (r *Refresher) Start(ctx context.Context, spec string) error {
	if err := r.Reload(ctx); err != nil {
		return err
	}

	entryID, err := r.cron.AddFunc(spec, func() {
		if err := r.Reload(context.Background()); err != nil {
			r.logger.Warn("registry reload failed, keeping previous registry", "error", err)
		}
	})
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.entryID = entryID
	r.started = true
	r.mu.Unlock()

	r.cron.Start()
	r.logger.Info("registry refresher started", "dir", r.dir, "schedule", spec)
	return nil
}

// Stop halts the cron scheduler. Safe to call even if Start was never
// called.
func (r *Refresher) Stop() {
	r.mu.Lock()
	started := r.started
	r.mu.Unlock()
	if !started {
		return
	}
	ctx := r.cron.Stop()
	<-ctx.Done()
	r.logger.Info("registry refresher stopped")
}

// Reload loads the model directory once and, if it loads and validates
// cleanly, swaps it into the Holder. Findings logged at warn mode do not
// block the swap; a load/parse error or a strict-mode validation failure
// does.
func (r *Refresher) Reload(ctx context.Context) error {
	res, err := loader.LoadDir(ctx, r.dir, r.schema, r.mode, r.logger)
	if err != nil {
		return err
	}
	for _, f := range res.Findings {
		r.logger.Warn("semantic model validation finding", "kind", f.Kind, "flow", f.Flow, "table", f.Table, "field", f.Field, "message", f.Message)
	}
	r.holder.Store(res.Registry)
	r.logger.Info("registry reloaded", "dir", r.dir, "tables", len(res.Registry.Tables()), "flows", len(res.Registry.Flows()))
	return nil
}
