package cmd

import (
	"context"

	"github.com/nekozume/usiorchestrator/pkg/orchestrator"
	"github.com/spf13/cobra"
)

var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Load or save the saved role assignment",
}

var prefsLoadCmd = &cobra.Command{
	Use:   "load",
	Short: "Print the role assignment as currently saved on disk",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withOrchestrator(func(ctx context.Context, m *orchestrator.Manager) error {
			for _, role := range []orchestrator.Role{orchestrator.RoleBlack, orchestrator.RoleWhite, orchestrator.RoleAnalysis} {
				slot := m.RoleSlotSnapshot(role)
				cmd.Printf("%s: engine=%q strength=%d enabled=%v\n", role, slot.EngineID, slot.StrengthLevel, slot.AnalysisEnabled)
			}
			return nil
		})
	},
}

var prefsSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Force a re-save of the current role assignment",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withOrchestrator(func(ctx context.Context, m *orchestrator.Manager) error {
			return nil // withOrchestrator always saves preferences on a clean exit
		})
	},
}

func init() {
	prefsCmd.AddCommand(prefsLoadCmd, prefsSaveCmd)
	RootCmd.AddCommand(prefsCmd)
}
