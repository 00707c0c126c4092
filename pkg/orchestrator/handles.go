package orchestrator

import "github.com/nekozume/usiorchestrator/pkg/engine/process"

// handleEntry pairs a live process with the number of roles currently
// pointing at its engine id. The invariant the Role Manager maintains:
// an entry exists iff refcount > 0.
type handleEntry struct {
	proc     process.Process
	refcount int
}
