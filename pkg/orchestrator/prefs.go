package orchestrator

import (
	"encoding/json"

	"github.com/spf13/afero"
)

// prefsEngineEntry is one role's entry in the preference file. enabled
// is only meaningful for the analysis role; its absence on load is
// treated as false, matching the two config.json shapes the source
// tolerated.
type prefsEngineEntry struct {
	EngineID      *string           `json:"engineId"`
	StrengthLevel int               `json:"strengthLevel"`
	Enabled       *bool             `json:"enabled,omitempty"`
	CustomOptions map[string]string `json:"customOptions,omitempty"`
}

type prefsDocument struct {
	Engines map[Role]prefsEngineEntry `json:"engines"`
}

// PreferenceStore persists the role assignment (minus the transient
// game position) to a JSON file. It intentionally does not go through
// viper: the document is whole-file overwritten on save and, on load, a
// missing or malformed file silently yields defaults rather than
// merging with viper's config-layer precedence rules.
type PreferenceStore struct {
	fs   afero.Fs
	path string
}

// NewPreferenceStore returns a store reading and writing path on fs.
func NewPreferenceStore(fs afero.Fs, path string) *PreferenceStore {
	return &PreferenceStore{fs: fs, path: path}
}

// Load reads the preference file and applies it to assignment's role
// slots, leaving CurrentPosition/MoveHistory untouched. A missing or
// malformed file resets every role to its zero-value default (no
// engine, strength 10, analysis disabled) rather than returning an error.
func (s *PreferenceStore) Load(assignment *RoleAssignment) error {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		resetToDefaults(assignment)
		return nil
	}

	var doc prefsDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		resetToDefaults(assignment)
		return nil
	}

	for _, role := range validRoles {
		entry, ok := doc.Engines[role]
		if !ok {
			assignment.Slots[role] = newRoleSlot()
			continue
		}
		slot := newRoleSlot()
		if entry.EngineID != nil {
			slot.EngineID = *entry.EngineID
		}
		if entry.StrengthLevel != 0 {
			slot.StrengthLevel = entry.StrengthLevel
		}
		if entry.CustomOptions != nil {
			slot.CustomOptions = entry.CustomOptions
		}
		if role == RoleAnalysis && entry.Enabled != nil {
			slot.AnalysisEnabled = *entry.Enabled
		}
		assignment.Slots[role] = slot
	}
	return nil
}

func resetToDefaults(assignment *RoleAssignment) {
	for _, role := range validRoles {
		assignment.Slots[role] = newRoleSlot()
	}
}

// Save writes assignment's role slots as a whole-file overwrite. The
// transient game position is deliberately excluded from the document.
func (s *PreferenceStore) Save(assignment *RoleAssignment) error {
	doc := prefsDocument{Engines: make(map[Role]prefsEngineEntry, len(validRoles))}
	for _, role := range validRoles {
		slot := assignment.Slots[role]
		entry := prefsEngineEntry{
			StrengthLevel: slot.StrengthLevel,
			CustomOptions: slot.CustomOptions,
		}
		if slot.EngineID != "" {
			id := slot.EngineID
			entry.EngineID = &id
		}
		if role == RoleAnalysis {
			enabled := slot.AnalysisEnabled
			entry.Enabled = &enabled
		}
		doc.Engines[role] = entry
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return afero.WriteFile(s.fs, s.path, data, 0o644)
}
