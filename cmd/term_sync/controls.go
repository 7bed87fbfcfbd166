package main

import (
	"github.com/spf13/cobra"

	"github.com/jonathan/term-sync/internal/observability"
	"github.com/jonathan/term-sync/internal/site"
)

var controlsCommand = &cobra.Command{
	Use:   "controls",
	Short: "List the site controls and the locators tried for each",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		profile := site.PeopleSoft()
		observability.NewPrinter(cmd.OutOrStdout()).PrintControls(profile.Name, profile.Controls())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(controlsCommand)
}
