package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "intelmarket",
	Short: "Agent intelligence marketplace",
	Long: `intelmarket runs an in-process agent intelligence marketplace:
agents register identities, publish priced intelligence listings, purchase
them through a commit/reveal transparency pipeline and rate the exchange.

Commands:
  demo     Run an end-to-end marketplace scenario and print the stats
  version  Show version information`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file (defaults to built-in settings)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
}
