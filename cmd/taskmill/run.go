package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/taskmill/internal/config"
	"github.com/fyrsmithlabs/taskmill/internal/logging"
	"github.com/fyrsmithlabs/taskmill/internal/metrics"
	"github.com/fyrsmithlabs/taskmill/internal/task"
)

var (
	runDryRun            bool
	runTolerateUnmatched bool
	runTimeout           time.Duration
	runMetricsListen     string
)

var runCmd = &cobra.Command{
	Use:   "run [targets...]",
	Short: "Execute the requested targets and their dependencies",
	Long: `Execute one batch: every target token is resolved against the manifest's
task registry, and every resolved task dispatches concurrently with its
dependency closure. The first failure cancels the batch.

Examples:
  # Run a literal target
  taskmill run build

  # Run a dynamic target; {variant} captures "release"
  taskmill run build-release

  # Validate and warm the graph without executing anything
  taskmill run --dry-run build-release`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "resolve and warm the graph without executing task bodies")
	runCmd.Flags().BoolVar(&runTolerateUnmatched, "tolerate-unmatched", false, "exit zero even when some targets match nothing")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "abort the batch after this duration (0 = no timeout)")
	runCmd.Flags().StringVar(&runMetricsListen, "metrics-listen", "", "serve Prometheus metrics on this address while running")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadManifest()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	var opts []task.ManagerOption
	var m *metrics.Metrics
	if runMetricsListen != "" {
		m = metrics.New(prometheus.NewRegistry())
		opts = append(opts, task.WithManagerHooks(m.Hooks()))
	}

	manager, err := config.Build(cfg, log, opts...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, runTimeout)
		defer cancel()
	}

	if m != nil {
		srv := &http.Server{Addr: runMetricsListen, Handler: m.Handler()}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error(ctx, "metrics server failed", zap.Error(err))
			}
		}()
		defer srv.Close()
	}

	return executeBatch(ctx, manager, log, args, runDryRun, runTolerateUnmatched)
}

// executeBatch runs one batch and applies the unmatched-target policy.
func executeBatch(ctx context.Context, manager *task.Manager, log *logging.Logger, tokens []string, dryRun, tolerateUnmatched bool) error {
	execute := manager.Execute
	if dryRun {
		execute = manager.ExecuteDryRun
	}

	unmatched, err := execute(ctx, tokens)
	for _, token := range unmatched {
		log.Warn(ctx, "target matched nothing", zap.String("target", token))
	}
	if err != nil {
		return err
	}
	if len(unmatched) > 0 && !tolerateUnmatched {
		return fmt.Errorf("%d target(s) matched nothing", len(unmatched))
	}
	return nil
}
