// Package config discovers and validates on-disk engine descriptors
// (config.json files) that make up the orchestrator's engine catalog.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ProtocolUSI is the only accepted value of EngineDescriptor.Protocol.
const ProtocolUSI = "USI"

// OptionKV is a single default-option entry, preserving the name/value
// pair order they appeared in config.json.
type OptionKV struct {
	Name  string
	Value string
}

// OptionList is an ordered set of default options. setoption commands at
// handshake time are sent in this declared order, since some engines'
// options interact (e.g. a "Threads" change clearing a previously sized
// hash table), so iteration order is part of the descriptor's contract
// and a plain map cannot preserve it.
type OptionList []OptionKV

// UnmarshalJSON decodes a JSON object into an OptionList while
// preserving key order, since encoding/json's native map decoding does
// not.
func (o *OptionList) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("defaultOptions: expected JSON object")
	}

	var out OptionList
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("defaultOptions: expected string key")
		}

		var value string
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("defaultOptions value for %q must be a string: %w", key, err)
		}
		out = append(out, OptionKV{Name: key, Value: value})
	}
	*o = out
	return nil
}

// MarshalJSON encodes the list back into a JSON object, preserving order
// (callers who re-marshal a descriptor, e.g. for a debug dump, see the
// same sequence they loaded).
func (o OptionList) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, kv := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := json.Marshal(kv.Name)
		if err != nil {
			return nil, err
		}
		valBytes, err := json.Marshal(kv.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')
		buf.Write(valBytes)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// RequiredFeatureKeys are the capability flags every descriptor must
// declare (all keys, any boolean value) for the descriptor to validate.
var RequiredFeatureKeys = []string{"nnue", "ponder", "multiPV", "skillLevel", "uciElo", "openingBook"}

// Features are the boolean capability flags a descriptor declares. It is
// a plain map, not a struct, so that a key's absence (a validation
// failure) is distinguishable from an explicit false value.
type Features map[string]bool

// NNUE reports whether the engine advertises NNUE evaluation support.
func (f Features) NNUE() bool { return f["nnue"] }

// Ponder reports whether the engine can ponder on the opponent's time.
func (f Features) Ponder() bool { return f["ponder"] }

// MultiPV reports whether the engine supports multi-PV search.
func (f Features) MultiPV() bool { return f["multiPV"] }

// SkillLevel reports whether the engine exposes a Skill Level option.
func (f Features) SkillLevel() bool { return f["skillLevel"] }

// UCIElo reports whether the engine exposes UCI_Elo strength limiting.
func (f Features) UCIElo() bool { return f["uciElo"] }

// OpeningBook reports whether the engine has its own opening book.
func (f Features) OpeningBook() bool { return f["openingBook"] }

// Strength is the descriptor's static strength metadata.
type Strength struct {
	EstimatedElo int    `json:"estimatedElo"`
	Level        int    `json:"level"`
	MinLevel     int    `json:"minLevel"`
	MaxLevel     int    `json:"maxLevel"`
	Notes        string `json:"notes"`
}

// StrengthMethod names a technique an engine supports for strength control.
type StrengthMethod string

// Recognized strength control methods.
const (
	MethodSkillLevel StrengthMethod = "skillLevel"
	MethodUCIElo     StrengthMethod = "uciElo"
	MethodTime       StrengthMethod = "time"
	MethodHash       StrengthMethod = "hash"
	MethodThreads    StrengthMethod = "threads"
)

// StrengthControl describes how (if at all) the orchestrator can dial an
// engine's playing strength.
type StrengthControl struct {
	Supported bool             `json:"supported"`
	Methods   []StrengthMethod `json:"methods"`
	Notes     string           `json:"notes"`
}

// UsageNotes carries catalog-visibility hints that don't affect whether
// an engine can be started, only whether it's offered for normal play.
type UsageNotes struct {
	NotForPlay bool `json:"notForPlay"`
}

// ExecutableAlternative is a fallback executable tried when the
// descriptor's primary Executable is absent for the running platform.
type ExecutableAlternative struct {
	OS         string `json:"os"`
	Arch       string `json:"arch,omitempty"`
	Executable string `json:"executable"`
}

// EngineDescriptor is the static, on-disk description of one engine, as
// declared by its config.json and resolved against its containing
// directory.
type EngineDescriptor struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Author      string `json:"author"`
	Version     string `json:"version"`
	Description string `json:"description"`
	License     string `json:"license"`

	Executable             string                   `json:"executable"`
	ExecutableAlternatives []ExecutableAlternative  `json:"executableAlternatives,omitempty"`
	Protocol               string                   `json:"protocol"`

	RequiredFiles  []string   `json:"requiredFiles"`
	OptionalFiles  []string   `json:"optionalFiles,omitempty"`
	DefaultOptions OptionList `json:"defaultOptions"`

	Features        Features        `json:"features"`
	Strength        Strength        `json:"strength"`
	StrengthControl StrengthControl `json:"strengthControl"`
	UsageNotes      UsageNotes      `json:"usageNotes,omitempty"`

	Disabled       bool              `json:"disabled,omitempty"`
	DisabledReason string            `json:"disabledReason,omitempty"`
	EngineType     string            `json:"engineType,omitempty"`
	OpeningBook    map[string]string `json:"openingBook,omitempty"`

	// Resolved at discovery time; absent from config.json.
	WorkingDirectory string `json:"-"`
	ExecutablePath   string `json:"-"`
}
