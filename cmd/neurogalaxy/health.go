package main

import (
	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Show cluster naming availability and pipeline timings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := globalServer.Health()
		if err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), outputFormat, report)
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
