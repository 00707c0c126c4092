package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nekozume/usiorchestrator/pkg/engine/config"
	"github.com/nekozume/usiorchestrator/pkg/engine/process"
	"github.com/nekozume/usiorchestrator/pkg/usi"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// Spawner starts a Process for a descriptor. Production code uses
// DefaultSpawner; tests substitute a factory that returns a fake Process
// double so no real engine binary is ever invoked.
type Spawner func(ctx context.Context, desc config.EngineDescriptor) (process.Process, error)

// DefaultSpawner returns a Spawner backed by real child processes.
func DefaultSpawner(deadlines process.Deadlines, log *logrus.Entry) Spawner {
	return func(ctx context.Context, desc config.EngineDescriptor) (process.Process, error) {
		return process.NewExecProcess(ctx, desc, deadlines, log)
	}
}

// Manager is the Role Manager: it owns the RoleAssignment and the live
// handle table, and is the only component that mutates either. Two
// locks exist in this package's design — Manager's own mu, acquired
// first, and each handle's internal gate, acquired only after mu is
// released for any call that may block on child I/O.
type Manager struct {
	mu         sync.Mutex
	assignment *RoleAssignment
	handles    map[string]*handleEntry
	catalog    []config.EngineDescriptor

	spawn     Spawner
	deadlines process.Deadlines
	log       *logrus.Entry
	prefs     *PreferenceStore
}

// SetPreferenceStore attaches the store LoadPreferences/SavePreferences
// use. Optional: a Manager with no store attached treats both calls as
// no-ops, which suits tests that don't exercise persistence.
func (m *Manager) SetPreferenceStore(store *PreferenceStore) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefs = store
}

// LoadPreferences populates role engine ids, strengths, and custom
// options from the preference store, without touching any live handle.
// Callers typically follow this with one setEngine per restored role to
// actually spawn the engines.
func (m *Manager) LoadPreferences() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.prefs == nil {
		return nil
	}
	return m.prefs.Load(m.assignment)
}

// SavePreferences persists the current role assignment.
func (m *Manager) SavePreferences() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.prefs == nil {
		return nil
	}
	return m.prefs.Save(m.assignment)
}

// NewManager builds a Role Manager over an already-discovered catalog.
// Call DiscoverEngines first (or pass a non-nil catalog) before routing
// any requests to it.
func NewManager(catalog []config.EngineDescriptor, spawn Spawner, deadlines process.Deadlines, log *logrus.Entry) *Manager {
	if log == nil {
		log = logrus.NewEntry(logrus.New())
	}
	return &Manager{
		assignment: NewRoleAssignment(),
		handles:    make(map[string]*handleEntry),
		catalog:    catalog,
		spawn:      spawn,
		deadlines:  deadlines,
		log:        log,
	}
}

// ListDescriptors returns the current catalog, as last discovered.
func (m *Manager) ListDescriptors() []config.EngineDescriptor {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]config.EngineDescriptor, len(m.catalog))
	copy(out, m.catalog)
	return out
}

// SetCatalog replaces the discovered catalog. Exposed separately from
// discovery itself (pkg/engine/config.Discover) so the Manager stays
// independent of any particular filesystem abstraction.
func (m *Manager) SetCatalog(catalog []config.EngineDescriptor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.catalog = catalog
}

// DiscoverEngines walks root on fs for engine descriptors and replaces
// the catalog with the result. Per-engine validation failures are
// logged and absorbed into the returned aggregate error (if any);
// discovery never aborts because of one bad engine.
func (m *Manager) DiscoverEngines(fs afero.Fs, root string) error {
	descriptors, err := config.Discover(fs, root, m.log.Logger)
	m.SetCatalog(descriptors)
	return err
}

func (m *Manager) findDescriptor(id string) (config.EngineDescriptor, bool) {
	for _, d := range m.catalog {
		if d.ID == id {
			return d, true
		}
	}
	return config.EngineDescriptor{}, false
}

// LiveHandleCount reports how many distinct engine ids currently have a
// running process. Used by tests to verify the refcount law (property 2).
func (m *Manager) LiveHandleCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.handles)
}

// RoleSlotSnapshot returns a copy of one role's current slot.
func (m *Manager) RoleSlotSnapshot(role Role) RoleSlot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.assignment.Slots[role]
}

// SetEngine is the central hot-swap operation (§4.4): assign, reassign,
// or clear the engine occupying role, applying strength and custom
// options and synchronizing the handle's game view as needed. A failure
// at any point leaves the prior assignment and handle table untouched.
func (m *Manager) SetEngine(ctx context.Context, role Role, engineID *string, strengthLevel int, customOptions map[string]string, enabled *bool) error {
	if !isValidRole(role) {
		return fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}

	var desc config.EngineDescriptor
	if engineID != nil {
		d, ok := m.findDescriptor(*engineID)
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownEngine, *engineID)
		}
		if d.Disabled {
			return fmt.Errorf("%w: %q", ErrEngineDisabled, *engineID)
		}
		desc = d
	}

	m.mu.Lock()
	slot := m.assignment.Slots[role]
	oldID := slot.EngineID

	if engineID == nil {
		slot.EngineID = ""
		slot.CustomOptions = cloneOptions(customOptions)
		if role == RoleAnalysis && enabled != nil {
			slot.AnalysisEnabled = *enabled
		}
		m.assignment.Slots[role] = slot
		m.mu.Unlock()
		if oldID != "" {
			m.releaseRef(oldID)
		}
		return nil
	}

	clampedLevel, wasClamped := clampLevel(strengthLevel, desc)
	if wasClamped {
		m.log.WithFields(logrus.Fields{
			"role":      role,
			"engine_id": *engineID,
			"requested": strengthLevel,
			"clamped":   clampedLevel,
		}).Warn("strength level clamped to engine's supported range")
	}

	if *engineID == oldID {
		entry := m.handles[oldID]
		m.mu.Unlock()
		if entry == nil {
			return fmt.Errorf("orchestrator: invariant violation: role %s assigned %q with no live handle", role, oldID)
		}
		if err := m.applyStrengthAndOptions(entry.proc, desc, clampedLevel, customOptions); err != nil {
			return err
		}
		m.mu.Lock()
		slot.StrengthLevel = clampedLevel
		slot.CustomOptions = cloneOptions(customOptions)
		if role == RoleAnalysis && enabled != nil {
			slot.AnalysisEnabled = *enabled
		}
		m.assignment.Slots[role] = slot
		m.mu.Unlock()
		return nil
	}

	entry, exists := m.handles[*engineID]
	if exists {
		entry.refcount++
		m.mu.Unlock()
	} else {
		m.mu.Unlock()
		proc, err := m.spawn(ctx, desc)
		if err != nil {
			return fmt.Errorf("orchestrator: starting engine %q for role %s: %w", *engineID, role, err)
		}
		m.mu.Lock()
		if existing, raced := m.handles[*engineID]; raced {
			// another caller won the race to start this engine; use theirs
			// and let ours be discarded.
			existing.refcount++
			entry = existing
			m.mu.Unlock()
			go func() { _ = proc.Quit(context.Background()) }()
		} else {
			entry = &handleEntry{proc: proc, refcount: 1}
			m.handles[*engineID] = entry
			m.mu.Unlock()
		}
	}

	if err := m.applyStrengthAndOptions(entry.proc, desc, clampedLevel, customOptions); err != nil {
		m.releaseRef(*engineID)
		return err
	}
	m.mu.Lock()
	position, moves := m.assignment.CurrentPosition, append([]string(nil), m.assignment.MoveHistory...)
	m.mu.Unlock()
	if err := entry.proc.NewGame(); err != nil {
		m.releaseRef(*engineID)
		return err
	}
	if err := entry.proc.SetPosition(position, moves); err != nil {
		m.releaseRef(*engineID)
		return err
	}

	m.mu.Lock()
	slot.EngineID = *engineID
	slot.StrengthLevel = clampedLevel
	slot.CustomOptions = cloneOptions(customOptions)
	if role == RoleAnalysis && enabled != nil {
		slot.AnalysisEnabled = *enabled
	}
	m.assignment.Slots[role] = slot
	m.mu.Unlock()

	if oldID != "" && oldID != *engineID {
		m.releaseRef(oldID)
	}
	return nil
}

func (m *Manager) applyStrengthAndOptions(proc process.Process, desc config.EngineDescriptor, level int, customOptions map[string]string) error {
	for _, cmd := range strengthCommands(desc, level) {
		if err := proc.SetOption(cmd.Name, cmd.Value); err != nil {
			return err
		}
	}
	for name, value := range customOptions {
		if err := proc.SetOption(name, value); err != nil {
			return err
		}
	}
	return nil
}

// releaseRef drops one reference to engineId's handle, tearing it down
// if that was the last one. The teardown itself (Quit, which blocks)
// always happens with the Manager lock released.
func (m *Manager) releaseRef(engineID string) {
	m.mu.Lock()
	entry, ok := m.handles[engineID]
	if !ok {
		m.mu.Unlock()
		return
	}
	entry.refcount--
	var toStop process.Process
	if entry.refcount <= 0 {
		delete(m.handles, engineID)
		toStop = entry.proc
	}
	m.mu.Unlock()

	if toStop != nil {
		ctx, cancel := context.WithTimeout(context.Background(), m.deadlines.Quit+time.Second)
		defer cancel()
		_ = toStop.Quit(ctx)
	}
}

// reapErrored removes engineId's handle from the table (without
// respecting refcount) and reverts every role pointing at it to
// unassigned. Called when a handle is observed in the Error state.
func (m *Manager) reapErrored(engineID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.handles, engineID)
	for _, r := range validRoles {
		slot := m.assignment.Slots[r]
		if slot.EngineID == engineID {
			slot.EngineID = ""
			m.assignment.Slots[r] = slot
		}
	}
}

// UpdatePosition overwrites the shared game view and broadcasts it to
// every live handle via usinewgame followed by position (property 3).
func (m *Manager) UpdatePosition(sfen string, moves []string) error {
	m.mu.Lock()
	m.assignment.CurrentPosition = sfen
	m.assignment.MoveHistory = append([]string(nil), moves...)
	procs := make([]process.Process, 0, len(m.handles))
	for _, e := range m.handles {
		procs = append(procs, e.proc)
	}
	m.mu.Unlock()

	var firstErr error
	for _, p := range procs {
		if err := p.NewGame(); err != nil && firstErr == nil {
			firstErr = err
		}
		if err := p.SetPosition(sfen, moves); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// GetMove locates the handle assigned to side and runs its search cycle.
// Returns (nil, nil, nil) if no engine occupies that role.
func (m *Manager) GetMove(ctx context.Context, side Role, params usi.GoParams, infoCB func(usi.Info)) (*usi.BestMove, *usi.Info, error) {
	if side != RoleBlack && side != RoleWhite {
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownRole, side)
	}

	m.mu.Lock()
	slot := m.assignment.Slots[side]
	var entry *handleEntry
	if slot.EngineID != "" {
		entry = m.handles[slot.EngineID]
	}
	m.mu.Unlock()

	if entry == nil {
		return nil, nil, nil
	}

	bm, info, err := entry.proc.Go(ctx, params, infoCB)
	if err != nil {
		if entry.proc.State() == process.Error {
			m.reapErrored(slot.EngineID)
		}
		return nil, nil, err
	}
	return &bm, &info, nil
}

// AnalyzePosition runs a one-off search on a position distinct from the
// live shared view, then restores that handle to the shared view so a
// subsequent GetMove is unaffected (property 4). If engineID is nil, the
// side to move is inferred from moves (even count => black, odd =>
// white) or, if moves is empty, from sfen's side-to-move field,
// defaulting to black if neither is available.
func (m *Manager) AnalyzePosition(ctx context.Context, sfen string, moves []string, engineID *string, movetime int, infoCB func(usi.Info)) (*usi.BestMove, *usi.Info, error) {
	m.mu.Lock()
	var entry *handleEntry
	var chosenRole Role
	if engineID != nil {
		entry = m.handles[*engineID]
	} else {
		side := sideToMove(sfen, moves)
		chosenRole = side
		slot := m.assignment.Slots[side]
		if slot.EngineID != "" {
			entry = m.handles[slot.EngineID]
		}
		if entry == nil {
			other := otherSide(side)
			slot = m.assignment.Slots[other]
			if slot.EngineID != "" {
				entry = m.handles[slot.EngineID]
			}
		}
	}
	sharedPos, sharedMoves := m.assignment.CurrentPosition, append([]string(nil), m.assignment.MoveHistory...)
	m.mu.Unlock()

	if entry == nil {
		return nil, nil, nil
	}
	_ = chosenRole

	if err := entry.proc.SetPosition(sfen, moves); err != nil {
		return nil, nil, err
	}

	params := usi.GoParams{MoveTime: movetime, HasMoveTime: true}
	bm, info, err := entry.proc.Go(ctx, params, infoCB)

	// restoration is mandatory even on search error, so the handle stays
	// synchronized for the next getMove.
	if restoreErr := entry.proc.SetPosition(sharedPos, sharedMoves); restoreErr != nil && err == nil {
		err = restoreErr
	}

	if err != nil {
		return nil, nil, err
	}
	return &bm, &info, nil
}

// InspectOptions returns engineId's reported USI options, starting the
// engine if it is not already running for some role and stopping it
// again afterward if this call was the one that started it. It shares
// the same refcount table setEngine uses, so inspecting an engine
// already live for a role never tears it down.
func (m *Manager) InspectOptions(ctx context.Context, engineID string) ([]usi.Option, error) {
	desc, ok := m.findDescriptor(engineID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, engineID)
	}

	m.mu.Lock()
	entry, exists := m.handles[engineID]
	if exists {
		entry.refcount++
		m.mu.Unlock()
	} else {
		m.mu.Unlock()
		proc, err := m.spawn(ctx, desc)
		if err != nil {
			return nil, fmt.Errorf("orchestrator: starting engine %q for inspection: %w", engineID, err)
		}
		m.mu.Lock()
		if existing, raced := m.handles[engineID]; raced {
			// a role started this engine meanwhile; share its handle
			existing.refcount++
			entry = existing
			m.mu.Unlock()
			go func() { _ = proc.Quit(context.Background()) }()
		} else {
			entry = &handleEntry{proc: proc, refcount: 1}
			m.handles[engineID] = entry
			m.mu.Unlock()
		}
	}

	opts := entry.proc.Options()
	m.releaseRef(engineID)
	return opts, nil
}

// Shutdown tears down every live handle, regardless of refcount.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	procs := make([]process.Process, 0, len(m.handles))
	for id, e := range m.handles {
		procs = append(procs, e.proc)
		delete(m.handles, id)
	}
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, p := range procs {
		wg.Add(1)
		go func(p process.Process) {
			defer wg.Done()
			_ = p.Quit(ctx)
		}(p)
	}
	wg.Wait()
}

func cloneOptions(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// sideToMove infers the side to move from a move list's parity, falling
// back to the SFEN's side-to-move field, defaulting to black if neither
// is informative.
func sideToMove(sfen string, moves []string) Role {
	if len(moves) > 0 {
		if len(moves)%2 == 0 {
			return RoleBlack
		}
		return RoleWhite
	}
	if side, ok := sfenSideToMove(sfen); ok {
		if side == "w" {
			return RoleWhite
		}
		return RoleBlack
	}
	return RoleBlack
}

func otherSide(r Role) Role {
	if r == RoleBlack {
		return RoleWhite
	}
	return RoleBlack
}

// sfenSideToMove extracts the second space-delimited field of a SFEN
// string ("b" or "w"), returning false if the SFEN is too short to
// contain one (e.g. the literal "startpos").
func sfenSideToMove(sfen string) (string, bool) {
	fields := strings.Fields(sfen)
	if len(fields) < 2 {
		return "", false
	}
	side := fields[1]
	if side != "b" && side != "w" {
		return "", false
	}
	return side, true
}
