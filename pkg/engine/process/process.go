package process

import (
	"context"
	"time"

	"github.com/nekozume/usiorchestrator/pkg/engine/config"
	"github.com/nekozume/usiorchestrator/pkg/usi"
)

// Process is the behavior the Role Manager depends on. ExecProcess is
// the production implementation, backed by a real spawned child; tests
// substitute a fake that records wire traffic without spawning anything.
type Process interface {
	Descriptor() config.EngineDescriptor
	State() State
	EngineName() string
	EngineAuthor() string
	Options() []usi.Option
	CurrentOptions() map[string]string

	SetOption(name, value string) error
	SetPosition(sfen string, moves []string) error
	NewGame() error
	// Go runs one search cycle. If infoCB is non-nil, it is invoked with
	// every parsed info line as it arrives, in addition to those lines
	// being merged into the accumulator this method returns.
	Go(ctx context.Context, params usi.GoParams, infoCB func(usi.Info)) (usi.BestMove, usi.Info, error)
	Stop() error
	Quit(ctx context.Context) error

	IsAlive() bool
}

// Deadlines bounds the suspension points of a process's lifecycle. Any
// duration is accepted; DefaultDeadlines sets Handshake and Ready long
// because real engines — especially NNUE engines loading multi-GB
// network files — can take tens of seconds just to answer "readyok".
type Deadlines struct {
	Handshake   time.Duration
	Ready       time.Duration
	Quit        time.Duration
	OptionDelay time.Duration
}

// DefaultDeadlines returns the deadlines used when none are specified:
// 10s handshake, 60s readyok, 2s quit wait, 50ms between default options.
func DefaultDeadlines() Deadlines {
	return Deadlines{
		Handshake:   10 * time.Second,
		Ready:       60 * time.Second,
		Quit:        2 * time.Second,
		OptionDelay: 50 * time.Millisecond,
	}
}
