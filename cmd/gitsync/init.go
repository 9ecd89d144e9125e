// SPDX-License-Identifier: MIT
package gitsync

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/skaphos/gitsync/internal/cliio"
	"github.com/skaphos/gitsync/internal/config"
)

func newInitCmd(global *globalFlags) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init [DIRECTORY]",
		Short: "Bootstrap a gitsync configuration",
		Long: "Creates a gitsync config file in the current directory by default. " +
			"DIRECTORY (default: the current directory) becomes the root that is scanned for repositories.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := getwd()
			if err != nil {
				return err
			}

			cfgPath, err := config.InitConfigPath(global.config, cwd)
			if err != nil {
				return err
			}
			if _, err := os.Stat(cfgPath); err == nil && !force {
				if !isInteractive(cmd.InOrStdin()) {
					return fmt.Errorf("config already exists at %q (use --force to overwrite)", cfgPath)
				}
				ok, err := cliio.Confirm(cmd.ErrOrStderr(), cmd.InOrStdin(), fmt.Sprintf("Overwrite %s?", cfgPath), false)
				if err != nil {
					return err
				}
				if !ok {
					_, err := fmt.Fprintln(cmd.ErrOrStderr(), "init cancelled")
					return err
				}
			}

			directory := cwd
			if len(args) == 1 {
				directory = args[0]
			}
			cfg := config.DefaultConfig()
			cfg.Directory = absUnder(cwd, directory)
			if err := config.Save(&cfg, cfgPath); err != nil {
				return err
			}
			if _, err := fmt.Fprintf(cmd.OutOrStdout(), "Wrote config to %s\n", cfgPath); err != nil {
				return err
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing config without prompting")
	return cmd
}
