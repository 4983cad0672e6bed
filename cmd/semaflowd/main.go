// Command semaflowd is the HTTP entry point for SemaFlow: it loads the
// semantic model once at startup, keeps it fresh on a cron schedule, and
// serves internal/apiserver's compile endpoint until told to stop, the way
// the teacher's cmd/server/main.go wires config -> logger -> scheduler ->
// chi router -> graceful shutdown.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/semaflow/semaflow/internal/apiserver"
	"github.com/semaflow/semaflow/internal/config"
	"github.com/semaflow/semaflow/internal/registry"
	"github.com/semaflow/semaflow/internal/registryrefresh"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "warn: could not load .env: %v\n", err)
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	for _, w := range cfg.Warnings {
		logger.Warn("config warning", "detail", w)
	}

	holder := registry.NewHolder(nil)

	// No live schema.Provider is wired here: startup/reload validation runs
	// in the same reduced mode the CLI uses (spec.md §4.3's structural
	// checks only), not schema-aware checks against a connected warehouse.
	refresher := registryrefresh.New(holder, cfg.ModelDir, nil, cfg.ValidationMode, logger)
	schedule := "@every " + cfg.SchemaRefreshInterval.String()
	if err := refresher.Start(ctx, schedule); err != nil {
		return fmt.Errorf("initial model load: %w", err)
	}
	defer refresher.Stop()

	router, err := apiserver.NewRouter(ctx, cfg, holder, logger)
	if err != nil {
		return fmt.Errorf("build router: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("semaflowd listening", "addr", cfg.ListenAddr, "model_dir", cfg.ModelDir, "dialect", cfg.Dialect)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}
