package config

import "errors"

// Sentinel validation failures. All are recovered by Discover: the
// offending subdirectory is skipped and discovery continues.
var (
	ErrMissingField    = errors.New("config: missing required field")
	ErrBadProtocol     = errors.New("config: protocol must be \"USI\"")
	ErrMissingFeature  = errors.New("config: missing required feature flag")
	ErrBadStrengthRange = errors.New("config: strength.minLevel/maxLevel invalid")
	ErrMissingFile     = errors.New("config: required file not found")
	ErrNoConfigJSON    = errors.New("config: no config.json in directory")
)
