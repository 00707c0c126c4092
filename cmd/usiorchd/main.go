// Command usiorchd is the CLI front end for the USI engine orchestrator:
// it discovers engines on disk, assigns them to the black/white/analysis
// roles, drives position updates, move requests, and one-off analysis,
// and persists role assignments between runs.
package main

import (
	"os"

	"github.com/nekozume/usiorchestrator/cmd/usiorchd/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
