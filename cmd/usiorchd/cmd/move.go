package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nekozume/usiorchestrator/pkg/orchestrator"
	"github.com/nekozume/usiorchestrator/pkg/usi"
	"github.com/spf13/cobra"
)

var (
	moveBTime    int
	moveWTime    int
	moveByoyomi  int
	moveMoveTime int
)

var moveCmd = &cobra.Command{
	Use:   "move <black|white>",
	Short: "Request a move from the engine assigned to one side",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		side, err := parseRole(args[0])
		if err != nil {
			return err
		}
		if side != orchestrator.RoleBlack && side != orchestrator.RoleWhite {
			return fmt.Errorf("move requires black or white, not %s", side)
		}

		params := usi.GoParams{}
		if moveBTime > 0 {
			params.BTime, params.HasBTime = moveBTime, true
		}
		if moveWTime > 0 {
			params.WTime, params.HasWTime = moveWTime, true
		}
		if moveByoyomi > 0 {
			params.Byoyomi, params.HasByoyomi = moveByoyomi, true
		}
		if moveMoveTime > 0 {
			params.MoveTime, params.HasMoveTime = moveMoveTime, true
		}

		return withOrchestrator(func(ctx context.Context, m *orchestrator.Manager) error {
			bm, info, err := m.GetMove(ctx, side, params, nil)
			if err != nil {
				return err
			}
			if bm == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "no engine assigned to that role")
				return nil
			}
			return printMoveResult(cmd, bm, info)
		})
	},
}

func printMoveResult(cmd *cobra.Command, bm *usi.BestMove, info *usi.Info) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		BestMove string    `json:"bestMove"`
		Ponder   string    `json:"ponder,omitempty"`
		Info     *usi.Info `json:"info,omitempty"`
	}{BestMove: bm.Move, Ponder: bm.Ponder, Info: info})
}

func init() {
	moveCmd.Flags().IntVar(&moveBTime, "btime", 0, "black's remaining time in ms")
	moveCmd.Flags().IntVar(&moveWTime, "wtime", 0, "white's remaining time in ms")
	moveCmd.Flags().IntVar(&moveByoyomi, "byoyomi", 0, "byoyomi time in ms")
	moveCmd.Flags().IntVar(&moveMoveTime, "movetime", 0, "fixed think time in ms")
	RootCmd.AddCommand(moveCmd)
}
