package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/nekozume/usiorchestrator/pkg/engine/config"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Discover engines under --engines-root and print the catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		fs := afero.NewOsFs()
		descriptors, err := config.Discover(fs, enginesRoot(), nil)
		if err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), "discovery completed with errors:", err)
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(descriptors)
	},
}

func init() {
	RootCmd.AddCommand(discoverCmd)
}
