package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "mailkeep",
	Short: "Mailkeep - email cleanup automation daemon",
	Long: `Mailkeep keeps mailboxes lean by archiving and deleting stale email
records under policy control.

It combines:
  - Access pattern tracking for every record open and search hit
  - Composite staleness scoring (age, importance, size, spam, access)
  - Policy-driven cleanup with a layered safety chain
  - Scheduled, continuous, and storage-pressure-triggered jobs
  - Durable job state that survives restarts`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
