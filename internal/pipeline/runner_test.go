package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"huffdbg/internal/failure"
	"huffdbg/internal/flatten"
	"huffdbg/internal/launch"
	"huffdbg/internal/session"
	"huffdbg/internal/tactile"
	"huffdbg/internal/toolchain"
)

type fakeCompiler struct {
	// unit is the file content seen at compile time.
	unit string
	path string
	err  error
}

func (f *fakeCompiler) Compile(_ context.Context, path string) (string, error) {
	f.path = path
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	f.unit = string(b)
	return "0x600a", f.err
}

type fakeSimulator struct {
	reqs []toolchain.CreateRequest
	err  error
}

func (f *fakeSimulator) Create(_ context.Context, req toolchain.CreateRequest) (string, error) {
	f.reqs = append(f.reqs, req)
	return "0x00", f.err
}

type fakeState struct{ dirs []string }

func (f *fakeState) Reset(_ context.Context, dir string) error {
	f.dirs = append(f.dirs, dir)
	return nil
}

type fakeInstall struct {
	checked []string
	missing []string
}

func (f *fakeInstall) Check(tools ...string) error {
	f.checked = append(f.checked, tools...)
	if len(f.missing) > 0 {
		return &toolchain.MissingError{Tools: f.missing}
	}
	return nil
}

type fakeTerminal struct {
	name     string
	command  string
	err      error
	detached bool
}

func (f *fakeTerminal) Launch(_ context.Context, name, command string) error {
	f.name = name
	f.command = command
	return f.err
}

func (f *fakeTerminal) Detached() bool { return f.detached }

// okExecutor succeeds at everything without running anything.
type okExecutor struct{}

func (okExecutor) Execute(context.Context, tactile.Command) (*tactile.ExecutionResult, error) {
	return &tactile.ExecutionResult{Success: true}, nil
}

func (okExecutor) Capabilities() tactile.ExecutorCapabilities {
	return tactile.ExecutorCapabilities{Name: "ok"}
}

func (okExecutor) Validate(tactile.Command) error { return nil }

type fakeEncoder struct{ sig string }

func (f *fakeEncoder) Encode(sig string, _ []string) (string, error) {
	f.sig = sig
	return "0x18160ddd", nil
}

type harness struct {
	runner   *Runner
	compiler *fakeCompiler
	sim      *fakeSimulator
	state    *fakeState
	install  *fakeInstall
	term     *fakeTerminal
	dir      string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		compiler: &fakeCompiler{},
		sim:      &fakeSimulator{},
		state:    &fakeState{},
		install:  &fakeInstall{},
		term:     &fakeTerminal{},
		dir:      t.TempDir(),
	}
	h.runner = &Runner{
		Compiler:  h.compiler,
		Simulator: h.sim,
		State:     h.state,
		Install:   h.install,
		Launcher:  &launch.Launcher{Terminal: h.term},
		Tools:     Tools{Huffc: "huffc", Hevm: "hevm", Git: "git", Terminal: "sh"},
		Defaults:  session.DefaultOptions(),
		GOOS:      "linux",
	}
	return h
}

func (h *harness) write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(h.dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const stopContract = `#define macro MAIN() = takes(0) returns(0) {
    stop
}
`

func TestPrepareFileBare(t *testing.T) {
	h := newHarness(t)
	h.write(t, "stop.huff", stopContract)

	p, err := h.runner.PrepareFile(context.Background(), FileRequest{WorkDir: h.dir, File: "stop.huff"})
	require.NoError(t, err)

	cmd := p.Command
	assert.Equal(t, "hevm", cmd.Binary)
	assert.Equal(t, "exec", cmd.Args[0])
	code, _ := cmd.Value("--code")
	assert.Equal(t, "0x00", code)
	addr, _ := cmd.Value("--address")
	assert.Equal(t, session.DeriveAddress([]byte(stopContract)), addr)
	caller, _ := cmd.Value("--caller")
	assert.Equal(t, session.DefaultCaller, caller)
	gas, _ := cmd.Value("--gas")
	assert.Equal(t, "0xffffffff", gas)
	assert.True(t, cmd.Has("--debug"))
	assert.False(t, cmd.Has("--state"))
	assert.False(t, cmd.Has("--calldata"))
	assert.False(t, cmd.Has("--value"))

	assert.Equal(t, session.ModeBare, p.Config.Mode)
	assert.Len(t, h.sim.reqs, 1, "bare sessions skip the constructor pass")
	assert.Empty(t, h.state.dirs)
	assert.Equal(t, []string{"huffc", "hevm"}, h.install.checked)

	assert.Equal(t, 1, strings.Count(h.compiler.unit, "#define macro MAIN()"))
	assert.Contains(t, h.compiler.unit, "stop")
	assert.NoFileExists(t, h.compiler.path, "the synthesized unit is removed after deploy")
}

func TestPrepareFileIncludesResolvedFirst(t *testing.T) {
	h := newHarness(t)
	h.write(t, "lib/utils.huff", "#define macro ONE() = takes(0) returns(1) {\n    0x01\n}\n")
	h.write(t, "main.huff", "#include \"./lib/utils.huff\"\n\n#define macro MAIN() = takes(0) returns(0) {\n    ONE() pop stop\n}\n")

	p, err := h.runner.PrepareFile(context.Background(), FileRequest{WorkDir: h.dir, File: "main.huff"})
	require.NoError(t, err)

	require.Len(t, p.Paths, 2)
	assert.Equal(t, filepath.Join(h.dir, "lib", "utils.huff"), p.Paths[0])
	assert.NotContains(t, p.Content, "#include")
	assert.Less(t, strings.Index(p.Content, "ONE()"), strings.Index(p.Content, "#define macro MAIN()"))
}

func TestPrepareFileStateMode(t *testing.T) {
	h := newHarness(t)
	h.write(t, "stop.huff", stopContract)

	p, err := h.runner.PrepareFile(context.Background(), FileRequest{
		WorkDir: h.dir,
		File:    "stop.huff",
		Options: session.Patch{session.KeyPreserveState: true},
	})
	require.NoError(t, err)

	assert.Equal(t, session.ModeWithState, p.Config.Mode)
	statePath := filepath.Join(h.dir, "cache", "state")
	assert.Equal(t, []string{statePath}, h.state.dirs)
	require.Len(t, h.sim.reqs, 2)
	assert.Equal(t, statePath, h.sim.reqs[0].StatePath)
	state, ok := p.Command.Value("--state")
	require.True(t, ok)
	assert.Equal(t, statePath, state)
	assert.Contains(t, h.install.checked, "git")
}

func TestPrepareFileStorageOverrides(t *testing.T) {
	h := newHarness(t)
	h.write(t, "stop.huff", stopContract)

	p, err := h.runner.PrepareFile(context.Background(), FileRequest{
		WorkDir: h.dir,
		File:    "stop.huff",
		Options: session.Patch{session.KeyStorage: []flatten.StorageOverride{
			{Slot: "0", Value: "0x2a"},
			{Slot: "1", Value: "255"},
		}},
	})
	require.NoError(t, err)

	assert.Equal(t, session.ModeWithStorageOverrides, p.Config.Mode)
	assert.Equal(t, []flatten.StorageOverride{{Slot: "0x0", Value: "0x2a"}, {Slot: "0x1", Value: "0xff"}}, p.Config.Storage)
	assert.Contains(t, h.compiler.unit, "0x2a 0x0 sstore")
	assert.Contains(t, h.compiler.unit, "0xff 0x1 sstore")
	assert.Contains(t, h.compiler.unit, "#define macro CONSTRUCTOR()")
	assert.True(t, p.Command.Has("--state"))
}

func TestPrepareFileCalldataAndValue(t *testing.T) {
	h := newHarness(t)
	h.write(t, "stop.huff", stopContract)

	p, err := h.runner.PrepareFile(context.Background(), FileRequest{
		WorkDir: h.dir,
		File:    "stop.huff",
		Options: session.Patch{
			session.KeyCalldata:         "0x123",
			session.KeyCallValue:        "0x10",
			session.KeyCallValueChecked: true,
		},
	})
	require.NoError(t, err)

	data, _ := p.Command.Value("--calldata")
	assert.Equal(t, "0x0123", data)
	value, _ := p.Command.Value("--value")
	assert.Equal(t, "0x10", value)
}

func TestPrepareFileSignature(t *testing.T) {
	h := newHarness(t)
	enc := &fakeEncoder{}
	h.runner.Encoder = enc
	h.write(t, "stop.huff", stopContract)

	p, err := h.runner.PrepareFile(context.Background(), FileRequest{
		WorkDir:   h.dir,
		File:      "stop.huff",
		Signature: "totalSupply()",
	})
	require.NoError(t, err)
	assert.Equal(t, "totalSupply()", enc.sig)
	data, _ := p.Command.Value("--calldata")
	assert.Equal(t, "0x18160ddd", data)

	_, err = h.runner.PrepareFile(context.Background(), FileRequest{
		WorkDir:   h.dir,
		File:      "stop.huff",
		Options:   session.Patch{session.KeyCalldata: "0x01"},
		Signature: "totalSupply()",
	})
	assert.True(t, failure.Is(err, failure.ConfigFailure))
}

func TestPrepareMacro(t *testing.T) {
	h := newHarness(t)
	src := `#define macro ADD_TWO(a, b) = takes(0) returns(1) {
    add dup1 iszero <fail> jumpi
}

#define macro MAIN() = takes(0) returns(0) {
    0x01 0x02 ADD_TWO() stop
}
`
	h.write(t, "math.huff", src)

	p, err := h.runner.PrepareMacro(context.Background(), MacroRequest{
		WorkDir: h.dir,
		File:    "math.huff",
		Macro:   "ADD_TWO",
		Args:    []string{"5", "0x06"},
	})
	require.NoError(t, err)

	unit := h.compiler.unit
	assert.Equal(t, 1, strings.Count(unit, "#define macro MAIN()"))
	assert.NotContains(t, unit, "0x01 0x02 ADD_TWO()")
	assert.Contains(t, unit, "0x06 0x5\n")
	assert.Contains(t, unit, "iszero error jumpi")
	assert.Equal(t, 1, strings.Count(unit, "error:"))

	addr, _ := p.Command.Value("--address")
	assert.NotEqual(t, session.DeriveAddress([]byte(src)), addr, "macro sessions are addressed by the macro")
}

func TestPrepareMacroStop(t *testing.T) {
	h := newHarness(t)
	h.write(t, "halt.huff", "#define macro HALT() = takes(0) returns(0) {\n    stop\n}\n")

	p, err := h.runner.PrepareMacro(context.Background(), MacroRequest{
		WorkDir: h.dir,
		File:    "halt.huff",
		Macro:   "HALT",
	})
	require.NoError(t, err)

	cmd := p.Command
	for _, flag := range []string{"--code", "--address", "--caller"} {
		assert.True(t, cmd.Has(flag), flag)
	}
	gas, _ := cmd.Value("--gas")
	assert.Equal(t, "0xffffffff", gas)
	assert.True(t, cmd.Has("--debug"))
	assert.False(t, cmd.Has("--state"))
	assert.False(t, cmd.Has("--calldata"))
	assert.False(t, cmd.Has("--value"))

	assert.Equal(t, session.ModeBare, p.Config.Mode)
	assert.NotContains(t, h.compiler.unit, "error:")
}

func TestPrepareMacroErrors(t *testing.T) {
	h := newHarness(t)
	h.write(t, "stop.huff", stopContract)
	ctx := context.Background()

	_, err := h.runner.PrepareMacro(ctx, MacroRequest{WorkDir: h.dir, File: "stop.huff"})
	assert.True(t, failure.Is(err, failure.ConfigFailure))

	_, err = h.runner.PrepareMacro(ctx, MacroRequest{WorkDir: h.dir, File: "stop.huff", Macro: "NOPE"})
	assert.True(t, failure.Is(err, failure.ConfigFailure))

	_, err = h.runner.PrepareMacro(ctx, MacroRequest{
		WorkDir: h.dir, File: "stop.huff", Macro: "MAIN",
		Args: []string{"0x" + strings.Repeat("f", 65)},
	})
	assert.True(t, failure.Is(err, failure.EncodingFailure))
}

func TestPrepareFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("missing file", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.runner.PrepareFile(ctx, FileRequest{WorkDir: h.dir, File: "absent.huff"})
		require.Error(t, err)
		assert.True(t, failure.Is(err, failure.ReadFailure))
		var fe *failure.Error
		require.True(t, errors.As(err, &fe))
		assert.Equal(t, filepath.Join(h.dir, "absent.huff"), fe.Path)
	})

	t.Run("missing include", func(t *testing.T) {
		h := newHarness(t)
		h.write(t, "main.huff", "#include \"./gone.huff\"\n"+stopContract)
		_, err := h.runner.PrepareFile(ctx, FileRequest{WorkDir: h.dir, File: "main.huff"})
		assert.True(t, failure.Is(err, failure.ReadFailure))
		assert.Empty(t, h.sim.reqs)
	})

	t.Run("no entry point", func(t *testing.T) {
		h := newHarness(t)
		h.write(t, "lib.huff", "#define macro X() = takes(0) returns(0) {}\n")
		_, err := h.runner.PrepareFile(ctx, FileRequest{WorkDir: h.dir, File: "lib.huff"})
		assert.True(t, failure.Is(err, failure.CompileFailure))
	})

	t.Run("tool missing", func(t *testing.T) {
		h := newHarness(t)
		h.install.missing = []string{"hevm"}
		h.write(t, "stop.huff", stopContract)
		_, err := h.runner.PrepareFile(ctx, FileRequest{WorkDir: h.dir, File: "stop.huff"})
		assert.True(t, failure.Is(err, failure.ToolMissing))
		assert.Empty(t, h.compiler.path)
	})

	t.Run("unknown option", func(t *testing.T) {
		h := newHarness(t)
		h.write(t, "stop.huff", stopContract)
		_, err := h.runner.PrepareFile(ctx, FileRequest{
			WorkDir: h.dir, File: "stop.huff",
			Options: session.Patch{"gas_limit": "0x1"},
		})
		assert.True(t, failure.Is(err, failure.ConfigFailure))
	})

	t.Run("state path over workspace", func(t *testing.T) {
		h := newHarness(t)
		h.runner.State = &toolchain.GitState{Binary: "git", Exec: okExecutor{}}
		main := h.write(t, "Main.huff", stopContract)
		other := h.write(t, "Other.huff", "#define macro OTHER() = takes(0) returns(0) {}\n")

		_, err := h.runner.PrepareFile(ctx, FileRequest{
			WorkDir: h.dir, File: "Main.huff",
			Options: session.Patch{session.KeyStatePath: ".", session.KeyPreserveState: true},
		})
		assert.True(t, failure.Is(err, failure.ConfigFailure))
		assert.FileExists(t, main)
		assert.FileExists(t, other)
		assert.Empty(t, h.sim.reqs)
	})

	t.Run("compile failure", func(t *testing.T) {
		h := newHarness(t)
		h.compiler.err = errors.New("unexpected token")
		h.write(t, "stop.huff", stopContract)
		_, err := h.runner.PrepareFile(ctx, FileRequest{WorkDir: h.dir, File: "stop.huff"})
		assert.True(t, failure.Is(err, failure.CompileFailure))
		assert.Empty(t, h.sim.reqs)
	})

	t.Run("bad storage literal", func(t *testing.T) {
		h := newHarness(t)
		h.write(t, "stop.huff", stopContract)
		_, err := h.runner.PrepareFile(ctx, FileRequest{
			WorkDir: h.dir, File: "stop.huff",
			Options: session.Patch{session.KeyStorage: []flatten.StorageOverride{{Slot: "zero", Value: "1"}}},
		})
		assert.True(t, failure.Is(err, failure.EncodingFailure))
	})
}

func TestDebugFileLaunches(t *testing.T) {
	h := newHarness(t)
	h.write(t, "stop.huff", stopContract)

	p, err := h.runner.DebugFile(context.Background(), FileRequest{WorkDir: h.dir, File: "stop.huff"})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(h.term.name, "huffdbg-"))
	cachePath := filepath.Join(p.Config.CacheDir, "huffdbg-"+p.Config.SessionID+".cmd")
	assert.Equal(t, launch.WrapperCommand(cachePath), h.term.command)
	assert.NoFileExists(t, cachePath)
	assert.Contains(t, h.install.checked, "sh")
	assert.Equal(t, h.term.name, p.Session)
	assert.False(t, p.Detached)
}

func TestDebugFileDetached(t *testing.T) {
	h := newHarness(t)
	h.term.detached = true
	h.write(t, "stop.huff", stopContract)

	p, err := h.runner.DebugFile(context.Background(), FileRequest{WorkDir: h.dir, File: "stop.huff"})
	require.NoError(t, err)
	assert.True(t, p.Detached)
	assert.Equal(t, h.term.name, p.Session)
}

func TestDebugFileLaunchFailure(t *testing.T) {
	h := newHarness(t)
	h.term.err = errors.New("no terminal")
	h.write(t, "stop.huff", stopContract)

	p, err := h.runner.DebugFile(context.Background(), FileRequest{WorkDir: h.dir, File: "stop.huff"})
	assert.True(t, failure.Is(err, failure.LaunchFailure))
	require.NotNil(t, p)
	assert.NoFileExists(t, filepath.Join(p.Config.CacheDir, "huffdbg-"+p.Config.SessionID+".cmd"))
}

func TestSynthesizeRunsNoTools(t *testing.T) {
	h := newHarness(t)
	h.write(t, "stop.huff", stopContract)

	u, err := h.runner.SynthesizeFile(FileRequest{WorkDir: h.dir, File: "stop.huff"})
	require.NoError(t, err)
	assert.Contains(t, u.Content, "#define macro MAIN() = takes(0) returns(0) {\n    stop\n}\n")
	assert.Empty(t, h.install.checked)
	assert.Empty(t, h.compiler.path)
}

func TestMountedDriveOnWindows(t *testing.T) {
	h := newHarness(t)
	h.runner.GOOS = "windows"
	h.write(t, "stop.huff", stopContract)

	u, err := h.runner.SynthesizeFile(FileRequest{WorkDir: h.dir, File: "stop.huff"})
	require.NoError(t, err)
	// Temp dirs on Linux have no drive letter.
	assert.Empty(t, u.Config.MountedDrive)
}

func TestNormalizeArgs(t *testing.T) {
	got, err := normalizeArgs([]string{"10", "0xAB", "[OWNER_SLOT]", "calldatasize"})
	require.NoError(t, err)
	assert.Equal(t, []string{"0xa", "0xab", "[OWNER_SLOT]", "calldatasize"}, got)

	_, err = normalizeArgs([]string{"1" + strings.Repeat("0", 80)})
	assert.Error(t, err)
}
