package orchestrator

import (
	"context"
	"sync"

	"github.com/nekozume/usiorchestrator/pkg/engine/config"
	"github.com/nekozume/usiorchestrator/pkg/engine/process"
	"github.com/nekozume/usiorchestrator/pkg/usi"
)

// fakeProcess is a scripted Process double recording every command sent
// to it, so tests can assert on wire traffic without spawning a real
// engine binary.
type fakeProcess struct {
	mu       sync.Mutex
	desc     config.EngineDescriptor
	state    process.State
	wire     []string
	options  map[string]string
	bestmove usi.BestMove
	quit     bool

	// failGo, when set, is returned as the error from Go.
	failGo error
}

func newFakeProcess(desc config.EngineDescriptor) *fakeProcess {
	return &fakeProcess{
		desc:     desc,
		state:    process.Ready,
		options:  map[string]string{},
		bestmove: usi.BestMove{Move: "7g7f"},
	}
}

func (f *fakeProcess) Descriptor() config.EngineDescriptor { return f.desc }
func (f *fakeProcess) State() process.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}
func (f *fakeProcess) EngineName() string   { return f.desc.Name }
func (f *fakeProcess) EngineAuthor() string { return f.desc.Author }
func (f *fakeProcess) Options() []usi.Option {
	return nil
}
func (f *fakeProcess) CurrentOptions() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string, len(f.options))
	for k, v := range f.options {
		out[k] = v
	}
	return out
}

func (f *fakeProcess) SetOption(name, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.wire = append(f.wire, "setoption "+name+" "+value)
	f.options[name] = value
	return nil
}

func (f *fakeProcess) SetPosition(sfen string, moves []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	line := "position " + sfen
	for _, m := range moves {
		line += " " + m
	}
	f.wire = append(f.wire, line)
	return nil
}

func (f *fakeProcess) NewGame() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.wire = append(f.wire, "usinewgame")
	return nil
}

func (f *fakeProcess) Go(ctx context.Context, params usi.GoParams, infoCB func(usi.Info)) (usi.BestMove, usi.Info, error) {
	f.mu.Lock()
	f.wire = append(f.wire, "go")
	failErr := f.failGo
	bm := f.bestmove
	f.mu.Unlock()

	info := usi.Info{Depth: 10, HasDepth: true, Score: usi.Score{Cp: 25, HasCp: true}}
	if infoCB != nil {
		infoCB(info)
	}
	if failErr != nil {
		f.mu.Lock()
		f.state = process.Error
		f.mu.Unlock()
		return usi.BestMove{}, info, failErr
	}
	return bm, info, nil
}

func (f *fakeProcess) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.wire = append(f.wire, "stop")
	return nil
}

func (f *fakeProcess) Quit(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quit = true
	f.wire = append(f.wire, "quit")
	return nil
}

func (f *fakeProcess) IsAlive() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.quit
}

func (f *fakeProcess) wireLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.wire))
	copy(out, f.wire)
	return out
}

// fakeSpawner returns a Spawner that hands out one fakeProcess per
// engine id, recording every instance it creates for test assertions.
type fakeSpawner struct {
	mu        sync.Mutex
	instances map[string][]*fakeProcess
	failIDs   map[string]error
}

func newFakeSpawner() *fakeSpawner {
	return &fakeSpawner{
		instances: make(map[string][]*fakeProcess),
		failIDs:   make(map[string]error),
	}
}

func (s *fakeSpawner) spawn(ctx context.Context, desc config.EngineDescriptor) (process.Process, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.failIDs[desc.ID]; ok {
		return nil, err
	}
	p := newFakeProcess(desc)
	s.instances[desc.ID] = append(s.instances[desc.ID], p)
	return p, nil
}

func (s *fakeSpawner) latest(id string) *fakeProcess {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.instances[id]
	if len(list) == 0 {
		return nil
	}
	return list[len(list)-1]
}

func (s *fakeSpawner) spawnCount(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.instances[id])
}
