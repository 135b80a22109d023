package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spigell/resume-report/internal/analysis"
)

// Actual version can be specified in build command.
var version = "unknown"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s version: %s (response contract v%s)\n", app, version, analysis.ContractVersion)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
