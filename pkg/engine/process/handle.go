package process

import (
	"context"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/nekozume/usiorchestrator/pkg/engine/config"
	"github.com/nekozume/usiorchestrator/pkg/usi"
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"
)

// searchSafetyTimeout bounds a Go() call even if the caller never sends
// Stop(): without it, a wedged engine would leak the calling goroutine
// forever. Callers enforce real time controls via Stop(), not this.
const searchSafetyTimeout = 5 * time.Minute

// ExecProcess is the production Process implementation: it owns one
// spawned child and is the only thing that touches its stdio.
type ExecProcess struct {
	desc      config.EngineDescriptor
	deadlines Deadlines
	log       *logrus.Entry

	cmd    *exec.Cmd
	stdin  *stdinWriter
	lines  chan string
	exited chan struct{}
	exitErr error

	state atomic.String

	// gate serializes reply-bearing commands (usi, isready, go) and the
	// fire-and-forget commands that must not interleave with them
	// (setoption, position, usinewgame). Stop and Quit intentionally
	// bypass it, since Stop must be able to interrupt an in-flight Go.
	gate sync.Mutex

	mu             sync.Mutex // guards the fields below
	engineName     string
	engineAuthor   string
	options        []usi.Option
	currentOptions map[string]string
}

// NewExecProcess spawns desc's executable and carries the USI handshake
// to completion, transitioning Idle -> Initializing -> Ready (or Error).
func NewExecProcess(ctx context.Context, desc config.EngineDescriptor, deadlines Deadlines, log *logrus.Entry) (*ExecProcess, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.New())
	}
	log = log.WithField("engine_id", desc.ID)

	p := &ExecProcess{
		desc:           desc,
		deadlines:      deadlines,
		log:            log,
		lines:          make(chan string, 256),
		exited:         make(chan struct{}),
		currentOptions: make(map[string]string),
	}
	p.state.Store(string(Idle))

	if err := p.spawn(); err != nil {
		p.state.Store(string(Error))
		return nil, fmt.Errorf("%w: %v", ErrSpawnFailed, err)
	}

	p.gate.Lock()
	defer p.gate.Unlock()

	p.state.Store(string(Initializing))
	if err := p.handshake(ctx); err != nil {
		p.state.Store(string(Error))
		p.killNow()
		return nil, err
	}

	p.state.Store(string(Ready))
	log.Info("engine ready")
	return p, nil
}

func (p *ExecProcess) spawn() error {
	cmd := exec.Command(p.desc.ExecutablePath)
	cmd.Dir = p.desc.WorkingDirectory

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return err
	}

	out := NewOutputStream(p.lines, 0)
	cmd.Stdout = out
	cmd.Stderr = out // merged into the same stream, per the USI transport contract

	if err := cmd.Start(); err != nil {
		return err
	}

	p.cmd = cmd
	p.stdin = &stdinWriter{w: stdin}

	go func() {
		err := cmd.Wait()
		p.exitErr = err
		close(p.exited)
	}()

	return nil
}

func (p *ExecProcess) handshake(ctx context.Context) error {
	if err := p.send(usi.FormatUSI()); err != nil {
		return err
	}

	deadline := time.NewTimer(p.deadlines.Handshake)
	defer deadline.Stop()

	for {
		line, err := p.readLine(ctx, deadline.C)
		if err != nil {
			if err == errDeadline {
				return ErrHandshakeTimeout
			}
			return err
		}

		switch {
		case line == "usiok":
			goto applyDefaults
		case hasPrefix(line, "id name "):
			p.mu.Lock()
			p.engineName = line[len("id name "):]
			p.mu.Unlock()
		case hasPrefix(line, "id author "):
			p.mu.Lock()
			p.engineAuthor = line[len("id author "):]
			p.mu.Unlock()
		case hasPrefix(line, "option "):
			if opt, ok := usi.ParseOption(line); ok {
				p.mu.Lock()
				p.options = append(p.options, opt)
				p.mu.Unlock()
			}
		default:
			p.log.WithField("line", line).Debug("ignoring unrecognized handshake line")
		}
	}

applyDefaults:
	for _, kv := range p.desc.DefaultOptions {
		if err := p.send(usi.FormatSetOption(kv.Name, kv.Value)); err != nil {
			return err
		}
		p.mu.Lock()
		p.currentOptions[kv.Name] = kv.Value
		p.mu.Unlock()
		time.Sleep(p.deadlines.OptionDelay)
	}

	if err := p.send(usi.FormatIsReady()); err != nil {
		return err
	}

	readyDeadline := time.NewTimer(p.deadlines.Ready)
	defer readyDeadline.Stop()

	for {
		line, err := p.readLine(ctx, readyDeadline.C)
		if err != nil {
			if err == errDeadline {
				return ErrHandshakeTimeout
			}
			return err
		}
		if line == "readyok" {
			return nil
		}
		p.log.WithField("line", line).Debug("ignoring line while awaiting readyok")
	}
}

// Descriptor returns the descriptor this process was started from.
func (p *ExecProcess) Descriptor() config.EngineDescriptor { return p.desc }

// State returns the current declared lifecycle state.
func (p *ExecProcess) State() State { return State(p.state.Load()) }

// EngineName returns the name the engine reported during handshake.
func (p *ExecProcess) EngineName() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.engineName
}

// EngineAuthor returns the author the engine reported during handshake.
func (p *ExecProcess) EngineAuthor() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.engineAuthor
}

// Options returns the USI options reported during handshake.
func (p *ExecProcess) Options() []usi.Option {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]usi.Option, len(p.options))
	copy(out, p.options)
	return out
}

// CurrentOptions returns the last-applied value of every option this
// handle has ever sent via setoption.
func (p *ExecProcess) CurrentOptions() map[string]string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]string, len(p.currentOptions))
	for k, v := range p.currentOptions {
		out[k] = v
	}
	return out
}

// SetOption sends setoption and records the applied value. No reply is
// awaited, but the command still waits its turn behind any in-flight
// reply-bearing command on this handle.
func (p *ExecProcess) SetOption(name, value string) error {
	p.gate.Lock()
	defer p.gate.Unlock()

	if err := p.send(usi.FormatSetOption(name, value)); err != nil {
		return err
	}
	p.mu.Lock()
	p.currentOptions[name] = value
	p.mu.Unlock()
	return nil
}

// SetPosition sends a position line. No reply is awaited.
func (p *ExecProcess) SetPosition(sfen string, moves []string) error {
	p.gate.Lock()
	defer p.gate.Unlock()
	return p.send(usi.FormatPosition(sfen, moves))
}

// NewGame sends usinewgame. No reply is awaited.
func (p *ExecProcess) NewGame() error {
	p.gate.Lock()
	defer p.gate.Unlock()
	return p.send(usi.FormatUSINewGame())
}

// Go runs one search cycle: sends "go" with params, then reads lines
// until "bestmove", forwarding every info line it can parse into the
// accumulator (later lines overwrite earlier fields) and returning it
// alongside the parsed bestmove. Go holds this handle's command gate for
// its entire duration; a caller wanting to cut the search short must call
// Stop() from another goroutine while Go is blocked here.
func (p *ExecProcess) Go(ctx context.Context, params usi.GoParams, infoCB func(usi.Info)) (usi.BestMove, usi.Info, error) {
	p.gate.Lock()
	defer p.gate.Unlock()

	p.state.Store(string(Thinking))

	if err := p.send(usi.FormatGo(params)); err != nil {
		p.state.Store(string(Error))
		return usi.BestMove{}, usi.Info{}, err
	}

	safety := time.NewTimer(searchSafetyTimeout)
	defer safety.Stop()

	var acc usi.Info
	for {
		line, err := p.readLineCtx(ctx, safety.C)
		if err != nil {
			if err == errDeadline {
				p.state.Store(string(Error))
				return usi.BestMove{}, acc, fmt.Errorf("process: search exceeded safety timeout without bestmove")
			}
			p.state.Store(string(Error))
			return usi.BestMove{}, acc, err
		}

		if hasPrefix(line, "info") {
			if info, ok := usi.ParseInfo(line); ok {
				acc.Merge(info)
				if infoCB != nil {
					infoCB(info)
				}
			}
			continue
		}
		if hasPrefix(line, "bestmove") {
			bm, ok := usi.ParseBestmove(line)
			p.state.Store(string(Ready))
			if !ok {
				return usi.BestMove{}, acc, fmt.Errorf("process: malformed bestmove line: %q", line)
			}
			return bm, acc, nil
		}
		// other lines (e.g. further id/option chatter) are ignored.
	}
}

// Stop sends "stop", bypassing the command gate so it can interrupt an
// in-flight Go(). The engine is expected to still emit bestmove, which
// the blocked Go() call consumes normally.
func (p *ExecProcess) Stop() error {
	return p.send(usi.FormatStop())
}

// Quit sends "quit", waits up to deadlines.Quit for the process to exit
// on its own, then forcefully kills it.
func (p *ExecProcess) Quit(ctx context.Context) error {
	_ = p.send(usi.FormatQuit())

	timer := time.NewTimer(p.deadlines.Quit)
	defer timer.Stop()

	select {
	case <-p.exited:
		return nil
	case <-timer.C:
		p.killNow()
		return nil
	case <-ctx.Done():
		p.killNow()
		return ctx.Err()
	}
}

// IsAlive reports whether the child process is still running.
func (p *ExecProcess) IsAlive() bool {
	select {
	case <-p.exited:
		return false
	default:
		return p.cmd != nil
	}
}

func (p *ExecProcess) killNow() {
	if p.cmd != nil && p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
	select {
	case <-p.exited:
	case <-time.After(time.Second):
	}
}

func (p *ExecProcess) send(line string) error {
	select {
	case <-p.exited:
		return fmt.Errorf("%w: engine process already exited", ErrUnexpectedExit)
	default:
	}
	if err := p.stdin.WriteLine(line); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	return nil
}

var errDeadline = fmt.Errorf("process: deadline exceeded")

// readLine reads the next line during the startup handshake, racing the
// supplied deadline channel and an unexpected process exit.
func (p *ExecProcess) readLine(ctx context.Context, deadline <-chan time.Time) (string, error) {
	select {
	case line := <-p.lines:
		return line, nil
	case <-p.exited:
		return "", fmt.Errorf("%w: %v", ErrUnexpectedExit, p.exitErr)
	case <-deadline:
		return "", errDeadline
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// readLineCtx is readLine's counterpart used during a search, where the
// deadline is the safety backstop rather than a hard handshake deadline.
func (p *ExecProcess) readLineCtx(ctx context.Context, deadline <-chan time.Time) (string, error) {
	return p.readLine(ctx, deadline)
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}
