package toolchain

import (
	"context"
	"fmt"

	"huffdbg/internal/logging"
	"huffdbg/internal/tactile"
)

// HuffCompiler runs `huffc <file> --bytecode`.
type HuffCompiler struct {
	Binary string
	Exec   tactile.Executor
	// Limits optionally bounds each compile.
	Limits *tactile.ResourceLimits
}

// Compile implements Compiler.
func (c *HuffCompiler) Compile(ctx context.Context, path string) (string, error) {
	timer := logging.StartTimer(logging.CategoryDeploy, "huffc compile")
	defer timer.Stop()

	res, err := run(ctx, c.Exec, c.Binary, tactile.Command{
		Binary:    c.Binary,
		Arguments: []string{path, "--bytecode"},
		Limits:    c.Limits,
	})
	if err != nil {
		return "", err
	}

	code := lastLine(res.Stdout)
	if code == "" {
		return "", &ToolError{Tool: c.Binary, Output: res.Output(), Reason: "no bytecode in output"}
	}
	logging.DeployDebug("Compiled %s to %d hex characters", path, len(code))
	return with0x(code), nil
}

// Version returns the compiler's self-reported version.
func (c *HuffCompiler) Version(ctx context.Context) (string, error) {
	res, err := run(ctx, c.Exec, c.Binary, tactile.Command{Binary: c.Binary, Arguments: []string{"--version"}})
	if err != nil {
		return "", fmt.Errorf("failed to query compiler version: %w", err)
	}
	return lastLine(res.Stdout), nil
}
