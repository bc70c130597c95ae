package main

import (
	"context"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/taskmill/internal/config"
	"github.com/fyrsmithlabs/taskmill/internal/logging"
)

var watchCmd = &cobra.Command{
	Use:   "watch [targets...]",
	Short: "Re-run targets whenever the manifest changes",
	Long: `Run the requested targets, then keep watching the manifest file and run
them again on every change. Each cycle builds a fresh task graph, so edited
tasks re-execute even if an earlier cycle already resolved them. A failing
cycle is logged and watching continues.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	// Fail fast on a broken manifest before entering the watch loop.
	_, log, err := loadManifest()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory, not the file: editors typically write a temp file
	// and rename it over the original, which drops a file-level watch.
	manifest, err := filepath.Abs(configPath)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(manifest)); err != nil {
		return err
	}

	// Coalesce editor write bursts into one cycle.
	limiter := rate.NewLimiter(rate.Every(500*time.Millisecond), 1)

	runCycle(ctx, log, args)

	for {
		select {
		case <-ctx.Done():
			log.Info(ctx, "watch stopped")
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			changed, err := filepath.Abs(event.Name)
			if err != nil || changed != manifest {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if !limiter.Allow() {
				continue
			}
			log.Info(ctx, "manifest changed", zap.String("path", configPath))
			runCycle(ctx, log, args)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn(ctx, "watch error", zap.Error(err))
		}
	}
}

// runCycle loads the manifest, builds a fresh graph, and executes one batch.
// Errors keep the watch alive.
func runCycle(ctx context.Context, log *logging.Logger, tokens []string) {
	cfg, cycleLog, err := loadManifest()
	if err != nil {
		log.Error(ctx, "manifest reload failed", zap.Error(err))
		return
	}
	defer func() { _ = cycleLog.Sync() }()

	manager, err := config.Build(cfg, cycleLog)
	if err != nil {
		log.Error(ctx, "graph build failed", zap.Error(err))
		return
	}

	if err := executeBatch(ctx, manager, cycleLog, tokens, false, true); err != nil {
		log.Error(ctx, "batch failed", zap.Error(err))
	}
}
