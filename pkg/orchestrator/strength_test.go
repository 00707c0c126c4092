package orchestrator

import (
	"testing"

	"github.com/nekozume/usiorchestrator/pkg/engine/config"
	"github.com/stretchr/testify/require"
)

func TestEloForLevel_MatchesFixedTable(t *testing.T) {
	cases := map[int]int{1: 600, 2: 850, 3: 1075, 4: 1225, 5: 1450, 6: 1700, 7: 1950, 8: 2200, 9: 2550, 10: 3000}
	for level, elo := range cases {
		require.Equal(t, elo, eloForLevel(level))
	}
}

func TestSkillLevelForLevel_Range(t *testing.T) {
	require.Equal(t, 0, skillLevelForLevel(1))
	require.Equal(t, 20, skillLevelForLevel(10))
}

func TestStrengthCommands_PrefersUCIEloOverSkillLevel(t *testing.T) {
	desc := config.EngineDescriptor{
		StrengthControl: config.StrengthControl{
			Supported: true,
			Methods:   []config.StrengthMethod{config.MethodSkillLevel, config.MethodUCIElo},
		},
	}
	cmds := strengthCommands(desc, 7)
	require.Equal(t, []setOptionCmd{
		{Name: "UCI_LimitStrength", Value: "true"},
		{Name: "UCI_Elo", Value: "1950"},
	}, cmds)
}

func TestStrengthCommands_FallsBackToSkillLevel(t *testing.T) {
	desc := config.EngineDescriptor{
		StrengthControl: config.StrengthControl{
			Supported: true,
			Methods:   []config.StrengthMethod{config.MethodSkillLevel},
		},
	}
	cmds := strengthCommands(desc, 10)
	require.Equal(t, []setOptionCmd{{Name: "Skill Level", Value: "20"}}, cmds)
}

func TestStrengthCommands_UnsupportedYieldsNothing(t *testing.T) {
	desc := config.EngineDescriptor{StrengthControl: config.StrengthControl{Supported: false}}
	require.Nil(t, strengthCommands(desc, 5))
}

func TestClampLevel(t *testing.T) {
	desc := config.EngineDescriptor{Strength: config.Strength{MinLevel: 3, MaxLevel: 8}}

	clamped, wasClamped := clampLevel(1, desc)
	require.Equal(t, 3, clamped)
	require.True(t, wasClamped)

	clamped, wasClamped = clampLevel(5, desc)
	require.Equal(t, 5, clamped)
	require.False(t, wasClamped)

	clamped, wasClamped = clampLevel(10, desc)
	require.Equal(t, 8, clamped)
	require.True(t, wasClamped)
}
