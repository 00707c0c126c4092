package orchestrator

import (
	"math"
	"strconv"

	"github.com/nekozume/usiorchestrator/pkg/engine/config"
)

// eloTable is the fixed level-to-Elo mapping. Level 10 maps to 3000 even
// when a descriptor's own estimatedElo is lower; that field is
// informational only and never substituted into this table.
var eloTable = map[int]int{
	1: 600, 2: 850, 3: 1075, 4: 1225, 5: 1450,
	6: 1700, 7: 1950, 8: 2200, 9: 2550, 10: 3000,
}

// eloForLevel returns the fixed-table Elo for a 1..10 strength level.
func eloForLevel(level int) int {
	return eloTable[level]
}

// skillLevelForLevel maps a 1..10 strength level onto the 0..20
// Skill Level range engines like Stockfish/YaneuraOu expose.
func skillLevelForLevel(level int) int {
	return int(math.Round(float64(level-1) * 20 / 9))
}

// clampLevel restricts a requested strength level to the descriptor's
// advertised range, reporting whether clamping occurred.
func clampLevel(level int, desc config.EngineDescriptor) (clamped int, wasClamped bool) {
	lo, hi := desc.Strength.MinLevel, desc.Strength.MaxLevel
	if lo == 0 && hi == 0 {
		// descriptor declares no range; accept 1..10 verbatim.
		lo, hi = 1, 10
	}
	clamped = level
	if clamped < lo {
		clamped = lo
	}
	if clamped > hi {
		clamped = hi
	}
	return clamped, clamped != level
}

// strengthCommands picks a strength control method per the uciElo >
// skillLevel > (other, unimplemented) precedence and returns the
// setoption commands to apply it. Returns nil if strength control is
// unsupported or no recognized method is advertised.
func strengthCommands(desc config.EngineDescriptor, level int) []setOptionCmd {
	if !desc.StrengthControl.Supported {
		return nil
	}

	hasMethod := func(m config.StrengthMethod) bool {
		for _, x := range desc.StrengthControl.Methods {
			if x == m {
				return true
			}
		}
		return false
	}

	switch {
	case hasMethod(config.MethodUCIElo):
		return []setOptionCmd{
			{Name: "UCI_LimitStrength", Value: "true"},
			{Name: "UCI_Elo", Value: strconv.Itoa(eloForLevel(level))},
		}
	case hasMethod(config.MethodSkillLevel):
		return []setOptionCmd{
			{Name: "Skill Level", Value: strconv.Itoa(skillLevelForLevel(level))},
		}
	default:
		return nil
	}
}

type setOptionCmd struct {
	Name  string
	Value string
}
