package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/nekozume/usiorchestrator/pkg/orchestrator"
	"github.com/spf13/cobra"
)

var (
	assignCustomOptions map[string]string
	assignEnabled       bool
)

var assignCmd = &cobra.Command{
	Use:   "assign <role> <engineId|clear> <strengthLevel>",
	Short: "Assign, clear, or re-strength the engine occupying a role",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		role, err := parseRole(args[0])
		if err != nil {
			return err
		}

		var engineID *string
		if args[1] != "clear" {
			id := args[1]
			engineID = &id
		}

		level, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("strengthLevel must be an integer: %w", err)
		}

		var enabled *bool
		if cmd.Flags().Changed("enabled") {
			enabled = &assignEnabled
		}

		return withOrchestrator(func(ctx context.Context, m *orchestrator.Manager) error {
			if err := m.SetEngine(ctx, role, engineID, level, assignCustomOptions, enabled); err != nil {
				return err
			}
			slot := m.RoleSlotSnapshot(role)
			fmt.Fprintf(cmd.OutOrStdout(), "role %s now %q at strength %d\n", role, slot.EngineID, slot.StrengthLevel)
			return nil
		})
	},
}

func init() {
	assignCmd.Flags().StringToStringVar(&assignCustomOptions, "option", nil, "custom USI option to apply (repeatable, name=value)")
	assignCmd.Flags().BoolVar(&assignEnabled, "enabled", false, "enable analysis (only meaningful for the analysis role)")
	RootCmd.AddCommand(assignCmd)
}
