// Package cmd contains the CLI of the data explorer backend.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "data-explorer-backend",
	Short:        "REST backend for exploring and analyzing MongoDB deployments",
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}
