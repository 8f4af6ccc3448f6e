package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// versionCmd is the only command an unprivileged caller may run.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the vpngate version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "vpngate %s (commit %s, built %s)\n",
			buildVersion, buildCommit, buildDate)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
