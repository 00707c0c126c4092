package cmd

import (
	"github.com/spf13/cobra"
)

// serveCmd is a placeholder for the HTTP surface that wraps the
// orchestrator in production; that surface is explicitly out of scope
// here (§1) and lives in a separate service that imports pkg/orchestrator.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Placeholder for the HTTP surface (out of scope of this module)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.Println("the HTTP surface is out of scope of this module; import pkg/orchestrator directly")
		return nil
	},
}

func init() {
	RootCmd.AddCommand(serveCmd)
}
