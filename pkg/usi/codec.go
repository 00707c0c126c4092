// Package usi implements the wire-level USI (Universal Shogi Interface)
// protocol: formatting outbound command lines and parsing inbound ones.
// It performs no I/O and holds no state — every exported function is a
// pure transformation between Go values and a single USI line.
package usi

import (
	"strconv"
	"strings"
)

// OptionType is the tagged-variant kind of a USI option, as declared by
// an engine's "option name ... type ..." line.
type OptionType string

// The five USI option types.
const (
	OptionSpin   OptionType = "spin"
	OptionCheck  OptionType = "check"
	OptionCombo  OptionType = "combo"
	OptionButton OptionType = "button"
	OptionString OptionType = "string"
)

// Option is an engine-declared option, reported during the "usi" handshake.
// Min/Max are only meaningful for OptionSpin; Choices only for OptionCombo.
type Option struct {
	Name    string
	Type    OptionType
	Default string
	Min     int
	Max     int
	HasMin  bool
	HasMax  bool
	Choices []string
}

// BestMove is the parsed result of a "bestmove" line. Ponder is empty if
// the engine did not suggest one. Move may be a literal "resign", "win",
// or "pass" token instead of a coordinate move.
type BestMove struct {
	Move   string
	Ponder string
}

// Score is the evaluation carried by an "info" line: either a centipawn
// value (HasCp) or a mate-in-N count (HasMate), never both.
type Score struct {
	Cp     int
	HasCp  bool
	Mate   int
	HasMate bool
}

// Info is the running accumulation of fields parsed off one or more
// "info" lines. Later lines overwrite earlier fields; PV is replaced
// wholesale whenever a new "pv" token is seen.
type Info struct {
	Depth     int
	HasDepth  bool
	SelDepth  int
	HasSelDepth bool
	Nodes     int
	HasNodes  bool
	NPS       int
	HasNPS    bool
	Time      int
	HasTime   bool
	HashFull  int
	HasHashFull bool
	Score     Score
	PV        []string
}

// Merge overlays the fields other carries (those whose Has flag is set,
// plus a non-nil PV) onto i, even when their value is zero, matching the Engine
// Process accumulator semantics: a later info line updates only the
// fields it mentions, leaving the rest of the running result untouched.
func (i *Info) Merge(other Info) {
	if other.HasDepth {
		i.Depth = other.Depth
		i.HasDepth = true
	}
	if other.HasSelDepth {
		i.SelDepth = other.SelDepth
		i.HasSelDepth = true
	}
	if other.HasNodes {
		i.Nodes = other.Nodes
		i.HasNodes = true
	}
	if other.HasNPS {
		i.NPS = other.NPS
		i.HasNPS = true
	}
	if other.HasTime {
		i.Time = other.Time
		i.HasTime = true
	}
	if other.HasHashFull {
		i.HashFull = other.HashFull
		i.HasHashFull = true
	}
	if other.Score.HasCp {
		i.Score = Score{Cp: other.Score.Cp, HasCp: true}
	}
	if other.Score.HasMate {
		i.Score = Score{Mate: other.Score.Mate, HasMate: true}
	}
	if other.PV != nil {
		i.PV = other.PV
	}
}

// GoParams are the optional fields of a "go" command. Zero value and
// "not set" are distinguished by the Has* flags, since 0 is a legal
// value for several of these (e.g. an increment of zero).
type GoParams struct {
	BTime, WTime, BInc, WInc, Byoyomi, MoveTime, Depth, Nodes int
	HasBTime, HasWTime, HasBInc, HasWInc                      bool
	HasByoyomi, HasMoveTime, HasDepth, HasNodes                bool
	Infinite                                                   bool
}

// FormatUSI returns the "usi" handshake line.
func FormatUSI() string { return "usi" }

// FormatIsReady returns the "isready" line.
func FormatIsReady() string { return "isready" }

// FormatUSINewGame returns the "usinewgame" line.
func FormatUSINewGame() string { return "usinewgame" }

// FormatStop returns the "stop" line.
func FormatStop() string { return "stop" }

// FormatQuit returns the "quit" line.
func FormatQuit() string { return "quit" }

// FormatSetOption formats "setoption name <name> value <value>".
func FormatSetOption(name, value string) string {
	return "setoption name " + name + " value " + value
}

// FormatPosition formats a "position" line. sfen of "startpos" (or empty)
// produces "position startpos"; any other value produces
// "position sfen <sfen>". A non-empty moves list is appended as
// " moves <m1> <m2> ...".
func FormatPosition(sfen string, moves []string) string {
	var b strings.Builder
	b.WriteString("position ")
	if sfen == "" || sfen == "startpos" {
		b.WriteString("startpos")
	} else {
		b.WriteString("sfen ")
		b.WriteString(sfen)
	}
	if len(moves) > 0 {
		b.WriteString(" moves ")
		b.WriteString(strings.Join(moves, " "))
	}
	return b.String()
}

// FormatGo assembles a "go" line. If params.Infinite is true, only
// "infinite" is emitted; otherwise any combination of the supplied
// fields is appended in the fixed order defined by the USI wire format.
func FormatGo(params GoParams) string {
	parts := []string{"go"}

	if params.Infinite {
		parts = append(parts, "infinite")
		return strings.Join(parts, " ")
	}

	if params.HasBTime {
		parts = append(parts, "btime", strconv.Itoa(params.BTime))
	}
	if params.HasWTime {
		parts = append(parts, "wtime", strconv.Itoa(params.WTime))
	}
	if params.HasBInc {
		parts = append(parts, "binc", strconv.Itoa(params.BInc))
	}
	if params.HasWInc {
		parts = append(parts, "winc", strconv.Itoa(params.WInc))
	}
	if params.HasByoyomi {
		parts = append(parts, "byoyomi", strconv.Itoa(params.Byoyomi))
	}
	if params.HasMoveTime {
		parts = append(parts, "movetime", strconv.Itoa(params.MoveTime))
	}
	if params.HasDepth {
		parts = append(parts, "depth", strconv.Itoa(params.Depth))
	}
	if params.HasNodes {
		parts = append(parts, "nodes", strconv.Itoa(params.Nodes))
	}

	return strings.Join(parts, " ")
}

// ParseOption parses an "option name ... type ..." line. It returns
// false if the line is not a well-formed option line; malformed input
// is never fatal to the caller, only skipped.
func ParseOption(line string) (Option, bool) {
	const prefix = "option name "
	if !strings.HasPrefix(line, prefix) {
		return Option{}, false
	}
	rest := line[len(prefix):]

	typeIdx := strings.Index(rest, " type ")
	if typeIdx < 0 {
		return Option{}, false
	}
	name := strings.TrimSpace(rest[:typeIdx])
	rest = strings.TrimSpace(rest[typeIdx+len(" type "):])

	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return Option{}, false
	}

	opt := Option{Name: name, Type: OptionType(fields[0])}

	for i := 1; i < len(fields); i++ {
		switch fields[i] {
		case "default":
			i++
			if i < len(fields) {
				opt.Default = fields[i]
			}
		case "min":
			i++
			if i < len(fields) {
				if v, err := strconv.Atoi(fields[i]); err == nil && opt.Type == OptionSpin {
					opt.Min = v
					opt.HasMin = true
				}
			}
		case "max":
			i++
			if i < len(fields) {
				if v, err := strconv.Atoi(fields[i]); err == nil && opt.Type == OptionSpin {
					opt.Max = v
					opt.HasMax = true
				}
			}
		case "var":
			i++
			if i < len(fields) && opt.Type == OptionCombo {
				opt.Choices = append(opt.Choices, fields[i])
			}
		default:
			// Unrecognized token: ignored, not fatal.
		}
	}

	return opt, true
}

// ParseBestmove parses a "bestmove <move> [ponder <move>]" line.
func ParseBestmove(line string) (BestMove, bool) {
	const prefix = "bestmove "
	if !strings.HasPrefix(line, prefix) {
		return BestMove{}, false
	}
	fields := strings.Fields(line[len(prefix):])
	if len(fields) == 0 {
		return BestMove{}, false
	}

	bm := BestMove{Move: fields[0]}
	if len(fields) >= 3 && fields[1] == "ponder" {
		bm.Ponder = fields[2]
	}
	return bm, true
}

// ParseInfo extracts the recognized keyword fields from an "info" line.
// Keywords with no following token are skipped without error. "pv" must
// be last per USI convention and consumes all remaining tokens.
func ParseInfo(line string) (Info, bool) {
	const prefix = "info"
	if !strings.HasPrefix(line, prefix) {
		return Info{}, false
	}
	fields := strings.Fields(line)
	if len(fields) == 0 || fields[0] != "info" {
		return Info{}, false
	}

	var info Info

	for i := 1; i < len(fields); i++ {
		switch fields[i] {
		case "depth":
			if i+1 < len(fields) {
				if v, err := strconv.Atoi(fields[i+1]); err == nil {
					info.Depth, info.HasDepth = v, true
					i++
				}
			}
		case "seldepth":
			if i+1 < len(fields) {
				if v, err := strconv.Atoi(fields[i+1]); err == nil {
					info.SelDepth, info.HasSelDepth = v, true
					i++
				}
			}
		case "nodes":
			if i+1 < len(fields) {
				if v, err := strconv.Atoi(fields[i+1]); err == nil {
					info.Nodes, info.HasNodes = v, true
					i++
				}
			}
		case "nps":
			if i+1 < len(fields) {
				if v, err := strconv.Atoi(fields[i+1]); err == nil {
					info.NPS, info.HasNPS = v, true
					i++
				}
			}
		case "time":
			if i+1 < len(fields) {
				if v, err := strconv.Atoi(fields[i+1]); err == nil {
					info.Time, info.HasTime = v, true
					i++
				}
			}
		case "hashfull":
			if i+1 < len(fields) {
				if v, err := strconv.Atoi(fields[i+1]); err == nil {
					info.HashFull, info.HasHashFull = v, true
					i++
				}
			}
		case "score":
			if i+2 < len(fields) {
				kind, val := fields[i+1], fields[i+2]
				if v, err := strconv.Atoi(val); err == nil {
					switch kind {
					case "cp":
						info.Score = Score{Cp: v, HasCp: true}
					case "mate":
						info.Score = Score{Mate: v, HasMate: true}
					}
					i += 2
				}
			}
		case "pv":
			if i+1 < len(fields) {
				info.PV = append([]string{}, fields[i+1:]...)
			}
			i = len(fields)
		default:
			// Unrecognized keyword: skipped without error.
		}
	}

	return info, true
}
