package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "wellspring",
	Short: "Temporal reasoning core for wellness tracking",
	Long:  "Wellspring fuses daily wellness logs into normalized day states, mines them for recurring patterns, promotes stable patterns into identity traits, and gates whether an assistant may comment on them.",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(recomputeCmd)
	rootCmd.AddCommand(gateCmd)
}
