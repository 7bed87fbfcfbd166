// Package main provides the entry point for the term sync CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "term_sync",
	Short: "Tag catalog courses with the terms they are offered in",
	Long: `term_sync signs in to the student information system, runs a class search for every
department prefix in the catalog and tags each course found with the configured term.

Configuration can be loaded from a JSON or YAML file using --config. Command-line flags
override config file values; credentials and the database URL fall back to the environment.`,
	SilenceUsage: true,
}

var (
	configPath string
	logLevel   string
	logFormat  string
	verbose    bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (.json, .yaml or .yml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format (console or json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print boxed per-prefix reports and a run summary")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
