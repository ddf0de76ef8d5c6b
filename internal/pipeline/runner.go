// Package pipeline runs a debug session end to end: resolve and flatten
// the sources, deploy the result to the local simulator, compose the hevm
// debug command and launch it.
package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"

	"huffdbg/internal/calldata"
	"huffdbg/internal/deploy"
	"huffdbg/internal/failure"
	"huffdbg/internal/flatten"
	"huffdbg/internal/hevmcmd"
	"huffdbg/internal/huff"
	"huffdbg/internal/launch"
	"huffdbg/internal/logging"
	"huffdbg/internal/session"
	"huffdbg/internal/source"
	"huffdbg/internal/toolchain"
)

// Tools names the executables a session may need.
type Tools struct {
	Huffc string
	Hevm  string
	Git   string
	// Terminal is the binary the launcher runs (sh or tmux).
	Terminal string
}

// Runner wires the session steps together. Every collaborator is an
// interface so tests can substitute fakes.
type Runner struct {
	Compiler  toolchain.Compiler
	Simulator toolchain.Simulator
	State     toolchain.StateStore
	Install   toolchain.InstallCheck
	Launcher  *launch.Launcher
	Encoder   calldata.Encoder

	Tools    Tools
	Defaults session.Options

	// SourceCacheSize bounds the per-session source cache.
	SourceCacheSize int
	// GOOS selects mount-path handling, runtime.GOOS when empty.
	GOOS string
}

// FileRequest debugs a whole file through its MAIN macro.
type FileRequest struct {
	WorkDir string
	File    string
	Options session.Patch

	// Signature and SignatureArgs, when set, are ABI-encoded into the
	// session calldata.
	Signature     string
	SignatureArgs []string
}

// MacroRequest debugs a single macro with explicit stack arguments.
type MacroRequest struct {
	WorkDir string
	File    string
	Macro   string
	// Args are stack inputs in declaration order.
	Args    []string
	Options session.Patch

	Signature     string
	SignatureArgs []string
}

// Unit is a synthesized, self-contained source ready to compile.
type Unit struct {
	Config  session.Config
	Paths   []string // resolution order
	Content string
}

// Prepared is a deployed session whose command has not been launched.
type Prepared struct {
	Unit
	Artifact deploy.Artifact
	Command  hevmcmd.Command

	// Set once launched. Detached means the debugger is still running in
	// the terminal named Session.
	Session  string
	Detached bool
}

type target struct {
	workDir   string
	file      string
	macro     string
	args      []string
	options   session.Patch
	signature string
	sigArgs   []string
}

func (r FileRequest) target() target {
	return target{
		workDir:   r.WorkDir,
		file:      r.File,
		options:   r.Options,
		signature: r.Signature,
		sigArgs:   r.SignatureArgs,
	}
}

func (r MacroRequest) target() target {
	return target{
		workDir:   r.WorkDir,
		file:      r.File,
		macro:     r.Macro,
		args:      r.Args,
		options:   r.Options,
		signature: r.Signature,
		sigArgs:   r.SignatureArgs,
	}
}

// SynthesizeFile builds the flattened unit for a file session without
// running any external tool.
func (r *Runner) SynthesizeFile(req FileRequest) (*Unit, error) {
	return r.synthesize(req.target())
}

// SynthesizeMacro builds the flattened unit for a macro session without
// running any external tool.
func (r *Runner) SynthesizeMacro(req MacroRequest) (*Unit, error) {
	if req.Macro == "" {
		return nil, failure.New(failure.ConfigFailure, "macro", errors.New("macro name is required"))
	}
	return r.synthesize(req.target())
}

// PrepareFile runs a file session up to the composed debug command.
func (r *Runner) PrepareFile(ctx context.Context, req FileRequest) (*Prepared, error) {
	return r.prepare(ctx, req.target(), false)
}

// PrepareMacro runs a macro session up to the composed debug command.
func (r *Runner) PrepareMacro(ctx context.Context, req MacroRequest) (*Prepared, error) {
	if req.Macro == "" {
		return nil, failure.New(failure.ConfigFailure, "macro", errors.New("macro name is required"))
	}
	return r.prepare(ctx, req.target(), false)
}

// DebugFile runs a file session and launches the debugger.
func (r *Runner) DebugFile(ctx context.Context, req FileRequest) (*Prepared, error) {
	p, err := r.prepare(ctx, req.target(), true)
	if err != nil {
		return nil, err
	}
	return p, r.launch(ctx, p)
}

// DebugMacro runs a macro session and launches the debugger.
func (r *Runner) DebugMacro(ctx context.Context, req MacroRequest) (*Prepared, error) {
	if req.Macro == "" {
		return nil, failure.New(failure.ConfigFailure, "macro", errors.New("macro name is required"))
	}
	p, err := r.prepare(ctx, req.target(), true)
	if err != nil {
		return nil, err
	}
	return p, r.launch(ctx, p)
}

func (r *Runner) prepare(ctx context.Context, t target, launching bool) (*Prepared, error) {
	timer := logging.StartTimer(logging.CategoryBoot, "prepare session")
	defer timer.StopWithInfo()

	if err := r.checkInstall(t, launching); err != nil {
		return nil, err
	}

	unit, err := r.synthesize(t)
	if err != nil {
		return nil, err
	}
	cfg := unit.Config

	if err := os.MkdirAll(cfg.CacheDir, 0755); err != nil {
		return nil, failure.WithPath(failure.CompileFailure, "create cache directory", cfg.CacheDir, err)
	}
	unitPath := filepath.Join(cfg.CacheDir, "huffdbg-"+cfg.SessionID+".huff")
	if err := os.WriteFile(unitPath, []byte(unit.Content), 0644); err != nil {
		return nil, failure.WithPath(failure.CompileFailure, "write unit", unitPath, err)
	}
	defer func() {
		if err := os.Remove(unitPath); err != nil && !os.IsNotExist(err) {
			logging.Get(logging.CategoryBoot).Warn("Failed to remove %s: %v", unitPath, err)
		}
	}()

	orch := &deploy.Orchestrator{Compiler: r.Compiler, Simulator: r.Simulator, State: r.State}
	artifact, err := orch.Deploy(ctx, cfg, unitPath)
	if err != nil {
		return nil, err
	}

	cmd, err := hevmcmd.Compose(r.hevmBinary(), cfg, artifact.RuntimeBytecode)
	if err != nil {
		return nil, err
	}
	logging.BootDebug("Debug command: %s", cmd)

	return &Prepared{Unit: *unit, Artifact: artifact, Command: cmd}, nil
}

func (r *Runner) launch(ctx context.Context, p *Prepared) error {
	file, err := launch.NewCacheFile(p.Config.CacheDir, p.Config.SessionID)
	if err != nil {
		return failure.New(failure.LaunchFailure, "cache file", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logging.LaunchWarn("Failed to remove %s: %v", file.Path(), err)
		}
	}()

	p.Session = sessionName(p.Config.SessionID)
	if err := r.Launcher.Launch(ctx, p.Session, file, p.Command); err != nil {
		return failure.New(failure.LaunchFailure, "launch", err)
	}
	p.Detached = r.Launcher.Terminal.Detached()
	return nil
}

func (r *Runner) checkInstall(t target, launching bool) error {
	if r.Install == nil {
		return nil
	}
	opts, err := r.Defaults.Apply(t.options)
	if err != nil {
		return failure.New(failure.ConfigFailure, "options", err)
	}

	tools := []string{r.Tools.Huffc, r.hevmBinary()}
	if session.SelectMode(opts).UsesState() {
		tools = append(tools, r.Tools.Git)
	}
	if launching {
		tools = append(tools, r.Tools.Terminal)
	}
	if err := r.Install.Check(tools...); err != nil {
		return failure.New(failure.ToolMissing, "install check", err)
	}
	return nil
}

// synthesize reads the sources, builds the session config and produces
// the flattened unit, with storage injected when the mode calls for it.
func (r *Runner) synthesize(t target) (*Unit, error) {
	workDir, err := filepath.Abs(t.workDir)
	if err != nil {
		return nil, failure.New(failure.ConfigFailure, "working directory", err)
	}

	reader, err := source.NewReader(r.SourceCacheSize)
	if err != nil {
		return nil, failure.New(failure.ConfigFailure, "source cache", err)
	}

	patch, err := r.buildPatch(t)
	if err != nil {
		return nil, err
	}

	filePath := t.file
	if !filepath.IsAbs(filePath) {
		filePath = filepath.Join(workDir, filePath)
	}
	root, err := reader.Read(filePath)
	if err != nil {
		return nil, readFailure("read", filePath, err)
	}

	var (
		entry   flatten.Entry
		address string
	)
	if t.macro == "" {
		entry, err = flatten.FileEntry(root.Content)
		if err != nil {
			return nil, failure.WithPath(failure.CompileFailure, "entry point", root.Path, err)
		}
		address = session.DeriveAddress([]byte(root.Content))
	} else {
		m, err := huff.FindMacro(root.Content, t.macro)
		if err != nil {
			return nil, failure.WithPath(failure.ConfigFailure, "macro", root.Path, err)
		}
		args, err := normalizeArgs(t.args)
		if err != nil {
			return nil, failure.New(failure.EncodingFailure, "macro arguments", err)
		}
		entry = flatten.IsolateMacro(m, args)
		if address, err = session.MacroAddress(m); err != nil {
			return nil, failure.New(failure.EncodingFailure, "macro fingerprint", err)
		}
	}

	cfg, err := session.Build(r.Defaults, patch, session.Derived{
		ContractAddress: address,
		WorkDir:         workDir,
		MountedDrive:    session.DetectMountedDrive(r.goos(), workDir),
	})
	if err != nil {
		return nil, failure.New(failure.ConfigFailure, "session", err)
	}

	paths, err := source.Closure(reader, workDir, root.Path)
	if err != nil {
		return nil, readFailure("resolve includes", root.Path, err)
	}

	content, err := flatten.Flatten(reader, paths, entry)
	if err != nil {
		return nil, err
	}
	if cfg.Mode == session.ModeWithStorageOverrides {
		content = flatten.InjectStorage(content, cfg.Storage)
	}

	logging.Flatten("Synthesized %d bytes from %d files (mode %s)", len(content), len(paths), cfg.Mode)
	return &Unit{Config: cfg, Paths: paths, Content: content}, nil
}

// buildPatch copies the request options, encodes the call signature into
// calldata and normalizes storage literals.
func (r *Runner) buildPatch(t target) (session.Patch, error) {
	patch := make(session.Patch, len(t.options)+1)
	for k, v := range t.options {
		patch[k] = v
	}

	if t.signature != "" {
		if s, ok := patch[session.KeyCalldata].(string); ok && s != "" {
			return nil, failure.New(failure.ConfigFailure, "calldata",
				errors.New("raw calldata and a function signature are mutually exclusive"))
		}
		enc := r.Encoder
		if enc == nil {
			enc = calldata.ABIEncoder{}
		}
		data, err := enc.Encode(t.signature, t.sigArgs)
		if err != nil {
			return nil, failure.New(failure.EncodingFailure, "calldata", err)
		}
		patch[session.KeyCalldata] = data
	}

	if overrides, ok := patch[session.KeyStorage].([]flatten.StorageOverride); ok {
		normalized := make([]flatten.StorageOverride, 0, len(overrides))
		for _, o := range overrides {
			slot, err := calldata.NormalizeLiteral(o.Slot)
			if err != nil {
				return nil, failure.New(failure.EncodingFailure, "storage slot", err)
			}
			value, err := calldata.NormalizeLiteral(o.Value)
			if err != nil {
				return nil, failure.New(failure.EncodingFailure, "storage value", err)
			}
			normalized = append(normalized, flatten.StorageOverride{Slot: slot, Value: value})
		}
		patch[session.KeyStorage] = normalized
	}
	return patch, nil
}

func (r *Runner) hevmBinary() string {
	if r.Tools.Hevm == "" {
		return "hevm"
	}
	return r.Tools.Hevm
}

func (r *Runner) goos() string {
	if r.GOOS == "" {
		return runtime.GOOS
	}
	return r.GOOS
}

func readFailure(op, path string, err error) error {
	var re *source.ReadError
	if errors.As(err, &re) {
		return failure.WithPath(failure.ReadFailure, op, re.Path, re.Err)
	}
	return failure.WithPath(failure.ReadFailure, op, path, err)
}

// normalizeArgs converts numeric stack arguments to hex literals. Anything
// else, such as a constant reference, is passed through untouched.
func normalizeArgs(args []string) ([]string, error) {
	out := append([]string(nil), args...)
	var idx []int
	var numeric []string
	for i, a := range args {
		if isNumeric(a) {
			idx = append(idx, i)
			numeric = append(numeric, a)
		}
	}
	lits, err := calldata.NormalizeLiterals(numeric)
	if err != nil {
		return nil, err
	}
	for j, i := range idx {
		out[i] = lits[j]
	}
	return out, nil
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	if len(s) > 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return true
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func sessionName(id string) string {
	if len(id) > 8 {
		id = id[:8]
	}
	return "huffdbg-" + id
}
