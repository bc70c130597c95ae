package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/taskmill/internal/config"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the target templates registered by the manifest",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func runList(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadManifest()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	manager, err := config.Build(cfg, log)
	if err != nil {
		return err
	}

	for _, template := range manager.Templates() {
		fmt.Fprintln(cmd.OutOrStdout(), template)
	}
	return nil
}
