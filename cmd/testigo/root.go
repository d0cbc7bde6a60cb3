package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version    = "dev"
	configPath string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "testigo",
	Short: "Testigo - Timed evidence session recorder for QA runs",
	Long: `Testigo records timed evidence sessions while a QA operator exercises a
web application: begin a session, capture screenshots as timestamped
evidence, pause and resume without corrupting elapsed time, and finalize
the session for reporting.`,
	Version: version,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default to status when no subcommand is provided
		return runStatus(cmd, args)
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "Path to configuration file")
}

func defaultConfigPath() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "testigo.yaml"
		}
		base = home + "/.config"
	}
	return base + "/testigo/config.yaml"
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
