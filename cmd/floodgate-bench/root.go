/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "floodgate-bench",
		Short: "Compare floodgate with reference rate limiters on synthetic traffic",
		Long: `Compare floodgate with reference rate limiters (GCRA, sliding window, token bucket).

Every scenario sends events at a constant rate to a set of actors while a virtual clock advances,
so long scenarios that cover hours of traffic finish in seconds.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().String("config", "", "path to a YAML or JSON config file with floodgate, log and bench sections")

	rootCmd.AddCommand(newRunCommand(), newScenariosCommand(), newVersionCommand())
	return rootCmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "floodgate-bench %s (commit %s)\n", version, commit)
			return err
		},
	}
}
