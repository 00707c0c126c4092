package process

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/nekozume/usiorchestrator/pkg/engine/config"
	"github.com/nekozume/usiorchestrator/pkg/usi"
	"github.com/stretchr/testify/require"
)

// fakeEngineScript writes a tiny shell script to dir that speaks just
// enough USI to exercise ExecProcess without needing a real shogi engine
// binary in the test environment.
func fakeEngineScript(t *testing.T, dir string, extra string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake engine script requires a POSIX shell")
	}

	script := `#!/bin/sh
while IFS= read -r line; do
  case "$line" in
    usi)
      echo "id name FakeEngine"
      echo "id author Nekozume"
      echo "option name USI_Hash type spin default 16 min 1 max 1024"
      echo "usiok"
      ;;
    isready)
      echo "readyok"
      ;;
    "go"*)
      echo "info depth 1 score cp 25 pv 7g7f"
` + extra + `
      echo "bestmove 7g7f"
      ;;
    quit)
      exit 0
      ;;
  esac
done
`
	path := filepath.Join(dir, "fake_engine.sh")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func testDescriptor(executable string) config.EngineDescriptor {
	return config.EngineDescriptor{
		ID:               "fake",
		ExecutablePath:   executable,
		WorkingDirectory: filepath.Dir(executable),
	}
}

func fastDeadlines() Deadlines {
	return Deadlines{
		Handshake:   2 * time.Second,
		Ready:       2 * time.Second,
		Quit:        500 * time.Millisecond,
		OptionDelay: time.Millisecond,
	}
}

func TestNewExecProcess_HandshakeCompletesAndReportsIdentity(t *testing.T) {
	dir := t.TempDir()
	exe := fakeEngineScript(t, dir, "")

	p, err := NewExecProcess(context.Background(), testDescriptor(exe), fastDeadlines(), nil)
	require.NoError(t, err)
	defer p.Quit(context.Background())

	require.Equal(t, Ready, p.State())
	require.Equal(t, "FakeEngine", p.EngineName())
	require.Equal(t, "Nekozume", p.EngineAuthor())
	require.Len(t, p.Options(), 1)
	require.Equal(t, "USI_Hash", p.Options()[0].Name)
}

func TestExecProcess_GoReturnsBestmoveAndMergedInfo(t *testing.T) {
	dir := t.TempDir()
	exe := fakeEngineScript(t, dir, "")

	p, err := NewExecProcess(context.Background(), testDescriptor(exe), fastDeadlines(), nil)
	require.NoError(t, err)
	defer p.Quit(context.Background())

	bm, info, err := p.Go(context.Background(), usi.GoParams{MoveTime: 100, HasMoveTime: true}, nil)
	require.NoError(t, err)
	require.Equal(t, "7g7f", bm.Move)
	require.True(t, info.Score.HasCp)
	require.Equal(t, 25, info.Score.Cp)
	require.Equal(t, Ready, p.State())
}

func TestExecProcess_QuitKillsUnresponsiveEngine(t *testing.T) {
	dir := t.TempDir()
	// deliberately ignores quit, forcing the hard kill path
	script := `#!/bin/sh
while IFS= read -r line; do
  case "$line" in
    usi) echo "usiok" ;;
    isready) echo "readyok" ;;
  esac
done
`
	path := filepath.Join(dir, "stubborn_engine.sh")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))

	deadlines := fastDeadlines()
	p, err := NewExecProcess(context.Background(), testDescriptor(path), deadlines, nil)
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, p.Quit(context.Background()))
	require.Less(t, time.Since(start), 3*time.Second)
	require.False(t, p.IsAlive())
}

func TestExecProcess_HandshakeTimesOutWhenEngineIsSilent(t *testing.T) {
	dir := t.TempDir()
	script := "#!/bin/sh\nwhile IFS= read -r line; do :; done\n"
	path := filepath.Join(dir, "silent_engine.sh")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))

	deadlines := fastDeadlines()
	deadlines.Handshake = 200 * time.Millisecond

	_, err := NewExecProcess(context.Background(), testDescriptor(path), deadlines, nil)
	require.ErrorIs(t, err, ErrHandshakeTimeout)
}

func TestExecProcess_ApplyDefaultOptionsInDeclaredOrder(t *testing.T) {
	dir := t.TempDir()
	// logs every setoption line it receives, in receipt order, to a file
	logPath := filepath.Join(dir, "received.log")
	script := `#!/bin/sh
while IFS= read -r line; do
  case "$line" in
    usi) echo "usiok" ;;
    setoption*) echo "$line" >> "` + logPath + `" ;;
    isready) echo "readyok" ;;
  esac
done
`
	path := filepath.Join(dir, "ordered_engine.sh")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))

	desc := testDescriptor(path)
	desc.DefaultOptions = config.OptionList{
		{Name: "USI_Hash", Value: "256"},
		{Name: "Threads", Value: "4"},
		{Name: "USI_Ponder", Value: "false"},
	}

	p, err := NewExecProcess(context.Background(), desc, fastDeadlines(), nil)
	require.NoError(t, err)
	defer p.Quit(context.Background())

	time.Sleep(50 * time.Millisecond)
	data, err := os.ReadFile(logPath)
	require.NoError(t, err)

	got := string(data)
	hashIdx := indexOf(got, "USI_Hash")
	threadsIdx := indexOf(got, "Threads")
	ponderIdx := indexOf(got, "USI_Ponder")
	require.True(t, hashIdx < threadsIdx)
	require.True(t, threadsIdx < ponderIdx)
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}
