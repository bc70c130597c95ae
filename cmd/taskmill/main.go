// Package main implements the taskmill CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/taskmill/internal/config"
	"github.com/fyrsmithlabs/taskmill/internal/logging"
)

var (
	configPath string
	logLevel   string

	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "taskmill",
	Short: "Dependency-driven task runner with dynamic targets",
	Long: `taskmill executes task graphs declared in a manifest. Task names are
target templates: "build-{variant}" matches build-debug, build-release, and
any other rendering, with the captured values handed to the task as
substitutions. Every rendered identity runs at most once per batch, no matter
how many tasks depend on it.`,
	Version:      version,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "taskmill.yaml", "manifest file (YAML or TOML)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override manifest log level (trace, debug, info, warn, error)")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the taskmill version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version)
	},
}

// loadManifest reads the manifest and applies CLI overrides.
func loadManifest() (*config.Config, *logging.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	if logLevel != "" {
		level, err := logging.LevelFromString(logLevel)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid log level %q: %w", logLevel, err)
		}
		cfg.Logging.Level = level
	}

	log, err := logging.NewLogger(&cfg.Logging)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}
