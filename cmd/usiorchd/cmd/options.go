package cmd

import (
	"context"
	"encoding/json"

	"github.com/nekozume/usiorchestrator/pkg/orchestrator"
	"github.com/spf13/cobra"
)

var optionsCmd = &cobra.Command{
	Use:   "options <engineId>",
	Short: "Print the USI options an engine advertises, starting it briefly if needed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engineID := args[0]
		return withOrchestrator(func(ctx context.Context, m *orchestrator.Manager) error {
			opts, err := m.InspectOptions(ctx, engineID)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(opts)
		})
	},
}

func init() {
	RootCmd.AddCommand(optionsCmd)
}
