package process

import "errors"

// Sentinel errors matching the taxonomy in the orchestrator's error
// handling design. Use errors.Is to test for these across the %w chain.
var (
	ErrSpawnFailed      = errors.New("process: failed to spawn engine executable")
	ErrHandshakeTimeout = errors.New("process: handshake deadline exceeded")
	ErrUnexpectedExit   = errors.New("process: engine exited unexpectedly")
	ErrWriteFailed      = errors.New("process: failed to write to engine stdin")
	ErrNotReady         = errors.New("process: engine is not in a state that accepts this command")
	ErrSearchInProgress = errors.New("process: a search is already in progress on this handle")
)
