package config

import "fmt"

// Validate checks an EngineDescriptor against the rules in the engine
// catalog's data model: required fields present, protocol exactly
// "USI", every required feature flag declared, and a sane strength
// level range. It does not check the filesystem; see requiredFilesExist.
func Validate(d EngineDescriptor) error {
	required := map[string]string{
		"id":          d.ID,
		"name":        d.Name,
		"author":      d.Author,
		"version":     d.Version,
		"description": d.Description,
		"executable":  d.Executable,
		"license":     d.License,
	}
	for field, val := range required {
		if val == "" {
			return fmt.Errorf("%w: %s", ErrMissingField, field)
		}
	}

	if d.Protocol != ProtocolUSI {
		return fmt.Errorf("%w: got %q", ErrBadProtocol, d.Protocol)
	}

	for _, key := range RequiredFeatureKeys {
		if _, ok := d.Features[key]; !ok {
			return fmt.Errorf("%w: %s", ErrMissingFeature, key)
		}
	}

	if d.Strength.MinLevel < 1 || d.Strength.MinLevel > 10 ||
		d.Strength.MaxLevel < 1 || d.Strength.MaxLevel > 10 ||
		d.Strength.MinLevel > d.Strength.MaxLevel {
		return fmt.Errorf("%w: min=%d max=%d", ErrBadStrengthRange, d.Strength.MinLevel, d.Strength.MaxLevel)
	}

	return nil
}
