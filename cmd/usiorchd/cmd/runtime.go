package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nekozume/usiorchestrator/pkg/engine/process"
	"github.com/nekozume/usiorchestrator/pkg/orchestrator"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// withOrchestrator discovers the engine catalog, restores saved role
// assignments onto live handles, runs fn, persists whatever fn left the
// assignment as, and shuts every handle down before returning. Each
// usiorchd invocation is a short-lived process, so this brackets the
// otherwise long-lived orchestrator lifecycle around one operation.
func withOrchestrator(fn func(ctx context.Context, m *orchestrator.Manager) error) error {
	log := logrus.NewEntry(logrus.StandardLogger())
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	fs := afero.NewOsFs()
	m := orchestrator.NewManager(nil, orchestrator.DefaultSpawner(process.DefaultDeadlines(), log), process.DefaultDeadlines(), log)
	m.SetPreferenceStore(orchestrator.NewPreferenceStore(fs, prefsFile()))

	if err := m.DiscoverEngines(fs, enginesRoot()); err != nil {
		log.WithError(err).Warn("some engines failed to load during discovery")
	}

	if err := m.LoadPreferences(); err != nil {
		return fmt.Errorf("loading preferences: %w", err)
	}

	defer m.Shutdown(ctx)

	if err := restoreAssignedEngines(ctx, m); err != nil {
		return fmt.Errorf("restoring saved role assignments: %w", err)
	}

	if err := fn(ctx, m); err != nil {
		return err
	}

	if err := m.SavePreferences(); err != nil {
		return fmt.Errorf("saving preferences: %w", err)
	}
	return nil
}

// restoreAssignedEngines re-establishes a live handle for every role the
// preference file assigned an engine to, since LoadPreferences only
// populates the in-memory RoleAssignment, not any process.
func restoreAssignedEngines(ctx context.Context, m *orchestrator.Manager) error {
	for _, role := range []orchestrator.Role{orchestrator.RoleBlack, orchestrator.RoleWhite, orchestrator.RoleAnalysis} {
		slot := m.RoleSlotSnapshot(role)
		if slot.EngineID == "" {
			continue
		}
		id := slot.EngineID
		enabled := slot.AnalysisEnabled
		if err := m.SetEngine(ctx, role, &id, slot.StrengthLevel, slot.CustomOptions, &enabled); err != nil {
			return fmt.Errorf("role %s: %w", role, err)
		}
	}
	return nil
}

func parseRole(s string) (orchestrator.Role, error) {
	switch orchestrator.Role(s) {
	case orchestrator.RoleBlack, orchestrator.RoleWhite, orchestrator.RoleAnalysis:
		return orchestrator.Role(s), nil
	default:
		return "", fmt.Errorf("unknown role %q (want black, white, or analysis)", s)
	}
}
