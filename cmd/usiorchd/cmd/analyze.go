package cmd

import (
	"context"

	"github.com/nekozume/usiorchestrator/pkg/orchestrator"
	"github.com/spf13/cobra"
)

var (
	analyzeEngineID string
	analyzeMoveTime int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <sfen|startpos> [moves...]",
	Short: "Run a one-off analysis without disturbing the shared game view",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sfen := args[0]
		moves := args[1:]

		var engineID *string
		if analyzeEngineID != "" {
			engineID = &analyzeEngineID
		}
		movetime := analyzeMoveTime
		if movetime <= 0 {
			movetime = 1000
		}

		return withOrchestrator(func(ctx context.Context, m *orchestrator.Manager) error {
			bm, info, err := m.AnalyzePosition(ctx, sfen, moves, engineID, movetime, nil)
			if err != nil {
				return err
			}
			if bm == nil {
				cmd.Println("no engine available to analyze this position")
				return nil
			}
			return printMoveResult(cmd, bm, info)
		})
	},
}

func init() {
	analyzeCmd.Flags().SetInterspersed(false)
	analyzeCmd.Flags().StringVar(&analyzeEngineID, "engine", "", "engine id to use (default: infer side to move)")
	analyzeCmd.Flags().IntVar(&analyzeMoveTime, "movetime", 1000, "think time in ms")
	RootCmd.AddCommand(analyzeCmd)
}
