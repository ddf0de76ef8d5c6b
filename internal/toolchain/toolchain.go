// Package toolchain wraps the external executables a debug session needs:
// the Huff compiler, the hevm simulator and git for the state store.
package toolchain

import (
	"context"
	"fmt"
	"strings"

	"huffdbg/internal/tactile"
)

// Compiler turns a Huff source file into deployable bytecode.
type Compiler interface {
	Compile(ctx context.Context, path string) (string, error)
}

// Simulator runs a create-mode deployment and returns the runtime code it
// leaves at the address.
type Simulator interface {
	Create(ctx context.Context, req CreateRequest) (string, error)
}

// StateStore prepares the directory the simulator persists state into.
type StateStore interface {
	Reset(ctx context.Context, dir string) error
}

// CreateRequest describes one simulator create pass.
type CreateRequest struct {
	Code    string
	Address string
	Caller  string
	Gas     string
	// StatePath is passed as --state when not empty.
	StatePath string
}

// ToolError reports an external tool that ran and failed.
type ToolError struct {
	Tool     string
	ExitCode int
	Output   string
	Reason   string // kill reason or infrastructure error, if any
}

func (e *ToolError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s failed", e.Tool)
	if e.Reason != "" {
		fmt.Fprintf(&b, " (%s)", e.Reason)
	} else if e.ExitCode > 0 {
		fmt.Fprintf(&b, " with exit code %d", e.ExitCode)
	}
	if out := strings.TrimSpace(e.Output); out != "" {
		b.WriteString(": ")
		b.WriteString(out)
	}
	return b.String()
}

// run executes cmd and turns any failed outcome into a *ToolError.
func run(ctx context.Context, exec tactile.Executor, tool string, cmd tactile.Command) (*tactile.ExecutionResult, error) {
	res, err := exec.Execute(ctx, cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to run %s: %w", tool, err)
	}
	if res.Failed() {
		reason := res.Error
		if res.Killed {
			reason = res.KillReason
		}
		return res, &ToolError{Tool: tool, ExitCode: res.ExitCode, Output: res.Output(), Reason: reason}
	}
	return res, nil
}

// lastLine returns the last non-blank line of out, trimmed.
func lastLine(out string) string {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}

func with0x(s string) string {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return "0x" + s[2:]
	}
	return "0x" + s
}
