package cmd

import (
	"context"

	"github.com/nekozume/usiorchestrator/pkg/orchestrator"
	"github.com/spf13/cobra"
)

var positionCmd = &cobra.Command{
	Use:   "position <sfen|startpos> [moves...]",
	Short: "Advance every assigned engine's shared view of the game",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sfen := args[0]
		moves := args[1:]
		return withOrchestrator(func(ctx context.Context, m *orchestrator.Manager) error {
			return m.UpdatePosition(sfen, moves)
		})
	},
}

func init() {
	positionCmd.Flags().SetInterspersed(false)
	RootCmd.AddCommand(positionCmd)
}
