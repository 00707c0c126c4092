package orchestrator

import "errors"

// Sentinel errors surfaced synchronously to orchestrator API callers.
// Handle-lifecycle failures (SpawnFailed, HandshakeTimeout, ...) bubble
// up from pkg/engine/process unchanged via %w wrapping.
var (
	ErrUnknownRole    = errors.New("orchestrator: unknown role")
	ErrUnknownEngine  = errors.New("orchestrator: unknown engine id")
	ErrEngineDisabled = errors.New("orchestrator: engine is administratively disabled")
)
