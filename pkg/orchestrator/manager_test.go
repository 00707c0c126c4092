package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/nekozume/usiorchestrator/pkg/engine/config"
	"github.com/nekozume/usiorchestrator/pkg/engine/process"
	"github.com/nekozume/usiorchestrator/pkg/usi"
	"github.com/stretchr/testify/require"
)

func yaneuraouDescriptor() config.EngineDescriptor {
	return config.EngineDescriptor{
		ID:   "yaneuraou",
		Name: "YaneuraOu",
		Strength: config.Strength{
			MinLevel: 1,
			MaxLevel: 10,
		},
		StrengthControl: config.StrengthControl{
			Supported: true,
			Methods:   []config.StrengthMethod{config.MethodUCIElo, config.MethodSkillLevel},
		},
	}
}

func brokenDescriptor() config.EngineDescriptor {
	return config.EngineDescriptor{ID: "broken-engine", Name: "Broken"}
}

func newTestManager(catalog []config.EngineDescriptor, spawner *fakeSpawner) *Manager {
	return NewManager(catalog, spawner.spawn, process.DefaultDeadlines(), nil)
}

func ptr(s string) *string { return &s }

// S2: hot swap, shared refcount, strength re-application, teardown.
func TestSetEngine_HotSwapAndRefcountLaw(t *testing.T) {
	spawner := newFakeSpawner()
	m := newTestManager([]config.EngineDescriptor{yaneuraouDescriptor()}, spawner)
	ctx := context.Background()

	require.NoError(t, m.SetEngine(ctx, RoleBlack, ptr("yaneuraou"), 10, nil, nil))
	require.Equal(t, 1, m.LiveHandleCount())

	require.NoError(t, m.SetEngine(ctx, RoleWhite, ptr("yaneuraou"), 7, nil, nil))
	require.Equal(t, 1, m.LiveHandleCount(), "same engine id shares one handle")
	require.Equal(t, 1, spawner.spawnCount("yaneuraou"), "only spawned once")

	fp := spawner.latest("yaneuraou")
	require.Equal(t, "1950", fp.CurrentOptions()["UCI_Elo"])
	require.Equal(t, "true", fp.CurrentOptions()["UCI_LimitStrength"])

	require.NoError(t, m.SetEngine(ctx, RoleBlack, nil, 0, nil, nil))
	require.Equal(t, 1, m.LiveHandleCount(), "white still references it")

	require.NoError(t, m.SetEngine(ctx, RoleWhite, nil, 0, nil, nil))
	require.Equal(t, 0, m.LiveHandleCount(), "last reference dropped, handle stopped")
	require.True(t, fp.quit)
}

// Property 5: strength clamping.
func TestSetEngine_ClampsStrengthToDescriptorRange(t *testing.T) {
	spawner := newFakeSpawner()
	desc := yaneuraouDescriptor()
	desc.Strength.MinLevel = 3
	desc.Strength.MaxLevel = 8
	m := newTestManager([]config.EngineDescriptor{desc}, spawner)

	require.NoError(t, m.SetEngine(context.Background(), RoleBlack, ptr("yaneuraou"), 20, nil, nil))
	require.Equal(t, 8, m.RoleSlotSnapshot(RoleBlack).StrengthLevel)

	require.NoError(t, m.SetEngine(context.Background(), RoleWhite, ptr("yaneuraou"), 1, nil, nil))
	require.Equal(t, 3, m.RoleSlotSnapshot(RoleWhite).StrengthLevel)
}

// Property 3: position synchronization broadcast.
func TestUpdatePosition_BroadcastsToEveryLiveHandle(t *testing.T) {
	spawner := newFakeSpawner()
	m := newTestManager([]config.EngineDescriptor{yaneuraouDescriptor()}, spawner)
	ctx := context.Background()
	require.NoError(t, m.SetEngine(ctx, RoleBlack, ptr("yaneuraou"), 10, nil, nil))

	fp := spawner.latest("yaneuraou")
	before := len(fp.wireLog())

	require.NoError(t, m.UpdatePosition("startpos", []string{"7g7f", "3c3d"}))

	after := fp.wireLog()[before:]
	require.Equal(t, []string{"usinewgame", "position startpos 7g7f 3c3d"}, after)
}

// S5: failure isolation — a broken handshake must not disturb an
// existing, working assignment.
func TestSetEngine_FailureIsolatesOtherRoles(t *testing.T) {
	spawner := newFakeSpawner()
	spawner.failIDs["broken-engine"] = process.ErrHandshakeTimeout
	m := newTestManager([]config.EngineDescriptor{yaneuraouDescriptor(), brokenDescriptor()}, spawner)
	ctx := context.Background()

	require.NoError(t, m.SetEngine(ctx, RoleBlack, ptr("yaneuraou"), 10, nil, nil))

	err := m.SetEngine(ctx, RoleWhite, ptr("broken-engine"), 10, nil, nil)
	require.Error(t, err)
	require.True(t, errors.Is(err, process.ErrHandshakeTimeout))

	require.Equal(t, "yaneuraou", m.RoleSlotSnapshot(RoleBlack).EngineID)
	require.Equal(t, "", m.RoleSlotSnapshot(RoleWhite).EngineID)
	require.Equal(t, 1, m.LiveHandleCount())
}

func TestSetEngine_UnknownRoleAndEngineRejected(t *testing.T) {
	spawner := newFakeSpawner()
	m := newTestManager([]config.EngineDescriptor{yaneuraouDescriptor()}, spawner)
	ctx := context.Background()

	err := m.SetEngine(ctx, Role("referee"), ptr("yaneuraou"), 10, nil, nil)
	require.ErrorIs(t, err, ErrUnknownRole)

	err = m.SetEngine(ctx, RoleBlack, ptr("no-such-engine"), 10, nil, nil)
	require.ErrorIs(t, err, ErrUnknownEngine)
}

func TestSetEngine_RefusesDisabledDescriptor(t *testing.T) {
	spawner := newFakeSpawner()
	desc := yaneuraouDescriptor()
	desc.Disabled = true
	m := newTestManager([]config.EngineDescriptor{desc}, spawner)
	ctx := context.Background()

	err := m.SetEngine(ctx, RoleBlack, ptr("yaneuraou"), 10, nil, nil)
	require.ErrorIs(t, err, ErrEngineDisabled)
	require.Equal(t, 0, m.LiveHandleCount(), "disabled engine is never spawned")
	require.Equal(t, 0, spawner.spawnCount("yaneuraou"))
}

// S6: side-to-move inference from SFEN when moves is empty.

// S6: side-to-move inference from SFEN when moves is empty.
func TestAnalyzePosition_InfersSideFromSFEN(t *testing.T) {
	spawner := newFakeSpawner()
	m := newTestManager([]config.EngineDescriptor{yaneuraouDescriptor()}, spawner)
	ctx := context.Background()
	require.NoError(t, m.SetEngine(ctx, RoleWhite, ptr("yaneuraou"), 10, nil, nil))

	bm, info, err := m.AnalyzePosition(ctx, "lnsgkgsnl/9/ppppppppp/9/9/9/PPPPPPPPP/9/LNSGKGSNL w - 1", nil, nil, 1000, nil)
	require.NoError(t, err)
	require.NotNil(t, bm)
	require.NotNil(t, info)
}

// Property 4: analysis must restore the shared view afterward.
func TestAnalyzePosition_RestoresSharedViewForGetMove(t *testing.T) {
	spawner := newFakeSpawner()
	m := newTestManager([]config.EngineDescriptor{yaneuraouDescriptor()}, spawner)
	ctx := context.Background()
	require.NoError(t, m.SetEngine(ctx, RoleBlack, ptr("yaneuraou"), 10, nil, nil))
	require.NoError(t, m.UpdatePosition("startpos", []string{"7g7f"}))

	fp := spawner.latest("yaneuraou")
	before := len(fp.wireLog())

	_, _, err := m.AnalyzePosition(ctx, "startpos", []string{"7g7f", "3c3d"}, ptr("yaneuraou"), 500, nil)
	require.NoError(t, err)

	wire := fp.wireLog()[before:]
	require.Equal(t, "position startpos 7g7f 3c3d", wire[0])
	require.Equal(t, "go", wire[1])
	require.Equal(t, "position startpos 7g7f", wire[2], "shared view restored after analysis")
}

func TestAnalyzePosition_FallsBackToOtherSideWhenPrimaryUnassigned(t *testing.T) {
	spawner := newFakeSpawner()
	m := newTestManager([]config.EngineDescriptor{yaneuraouDescriptor()}, spawner)
	ctx := context.Background()
	require.NoError(t, m.SetEngine(ctx, RoleWhite, ptr("yaneuraou"), 10, nil, nil))

	bm, _, err := m.AnalyzePosition(ctx, "startpos", nil, nil, 500, nil)
	require.NoError(t, err)
	require.NotNil(t, bm, "falls back to white's engine since black is unassigned")
}

func TestAnalyzePosition_ReturnsNilWhenNoEngineAssigned(t *testing.T) {
	spawner := newFakeSpawner()
	m := newTestManager([]config.EngineDescriptor{yaneuraouDescriptor()}, spawner)

	bm, info, err := m.AnalyzePosition(context.Background(), "startpos", nil, nil, 500, nil)
	require.NoError(t, err)
	require.Nil(t, bm)
	require.Nil(t, info)
}

func TestGetMove_ReturnsNilWhenRoleUnassigned(t *testing.T) {
	spawner := newFakeSpawner()
	m := newTestManager([]config.EngineDescriptor{yaneuraouDescriptor()}, spawner)

	bm, info, err := m.GetMove(context.Background(), RoleBlack, usi.GoParams{}, nil)
	require.NoError(t, err)
	require.Nil(t, bm)
	require.Nil(t, info)
}

func TestInspectOptions_DoesNotTearDownAnAlreadyLiveHandle(t *testing.T) {
	spawner := newFakeSpawner()
	m := newTestManager([]config.EngineDescriptor{yaneuraouDescriptor()}, spawner)
	ctx := context.Background()
	require.NoError(t, m.SetEngine(ctx, RoleBlack, ptr("yaneuraou"), 10, nil, nil))

	_, err := m.InspectOptions(ctx, "yaneuraou")
	require.NoError(t, err)
	require.Equal(t, 1, m.LiveHandleCount(), "inspection shares the existing handle")

	fp := spawner.latest("yaneuraou")
	require.False(t, fp.quit, "still referenced by black")
}

func TestInspectOptions_StopsEngineItStartedSolelyForInspection(t *testing.T) {
	spawner := newFakeSpawner()
	m := newTestManager([]config.EngineDescriptor{yaneuraouDescriptor()}, spawner)

	_, err := m.InspectOptions(context.Background(), "yaneuraou")
	require.NoError(t, err)
	require.Equal(t, 0, m.LiveHandleCount())

	fp := spawner.latest("yaneuraou")
	require.True(t, fp.quit)
}
