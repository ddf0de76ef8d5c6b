// Package deploy compiles a synthesized unit and deploys it to the local
// simulator, producing the runtime code the debugger runs.
package deploy

import (
	"context"

	"huffdbg/internal/failure"
	"huffdbg/internal/logging"
	"huffdbg/internal/session"
	"huffdbg/internal/toolchain"
)

// DebugGas is the gas ceiling for every simulator run. Sessions are never
// gas constrained.
const DebugGas = "0xffffffff"

// Artifact is the output of a deployment.
type Artifact struct {
	// Bytecode is the compiler's deploy code.
	Bytecode string
	// RuntimeBytecode is the code left at the address after construction.
	RuntimeBytecode string
}

// Orchestrator runs compile, the optional constructor pass and the
// runtime pass, in that order.
type Orchestrator struct {
	Compiler  toolchain.Compiler
	Simulator toolchain.Simulator
	State     toolchain.StateStore
}

// Deploy compiles unitPath and deploys it at cfg.ContractAddress. When the
// session mode uses state, the state directory is reset and a constructor
// pass persists its storage before the runtime pass reads it back. Any
// failure aborts with a CompileFailure or DeployFailure.
func (o *Orchestrator) Deploy(ctx context.Context, cfg session.Config, unitPath string) (Artifact, error) {
	timer := logging.StartTimer(logging.CategoryDeploy, "Deploy")
	defer timer.Stop()

	bytecode, err := o.Compiler.Compile(ctx, unitPath)
	if err != nil {
		return Artifact{}, failure.WithPath(failure.CompileFailure, "compile", unitPath, err)
	}

	req := toolchain.CreateRequest{
		Code:    bytecode,
		Address: cfg.ContractAddress,
		Caller:  cfg.Caller,
		Gas:     DebugGas,
	}

	switch cfg.Mode {
	case session.ModeWithState, session.ModeWithStorageOverrides:
		if err := o.State.Reset(ctx, cfg.StatePath); err != nil {
			return Artifact{}, failure.WithPath(failure.DeployFailure, "prepare state", cfg.StatePath, err)
		}
		req.StatePath = cfg.StatePath
		if _, err := o.Simulator.Create(ctx, req); err != nil {
			return Artifact{}, failure.New(failure.DeployFailure, "constructor pass", err)
		}
		logging.Deploy("Constructor pass persisted state for %s (%s)", cfg.ContractAddress, cfg.Mode)
	case session.ModeBare:
	}

	runtime, err := o.Simulator.Create(ctx, req)
	if err != nil {
		return Artifact{}, failure.New(failure.DeployFailure, "runtime pass", err)
	}

	logging.Deploy("Deployed %s: %d bytes deploy code, %d bytes runtime code",
		cfg.ContractAddress, hexLen(bytecode), hexLen(runtime))
	return Artifact{Bytecode: bytecode, RuntimeBytecode: runtime}, nil
}

func hexLen(h string) int {
	if len(h) >= 2 && h[:2] == "0x" {
		h = h[2:]
	}
	return len(h) / 2
}
