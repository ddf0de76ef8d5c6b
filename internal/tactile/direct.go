package tactile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"

	"huffdbg/internal/logging"
)

const defaultMaxOutputBytes = 10 * 1024 * 1024

// DirectExecutor executes commands directly on the host using os/exec.
type DirectExecutor struct {
	mu     sync.RWMutex
	config ExecutorConfig

	// auditCallback is called for execution events
	auditCallback func(AuditEvent)
}

// NewDirectExecutor creates a new direct executor with default config.
func NewDirectExecutor() *DirectExecutor {
	logging.TactileDebug("Creating new DirectExecutor with default config")
	return NewDirectExecutorWithConfig(DefaultExecutorConfig())
}

// NewDirectExecutorWithConfig creates a new direct executor with custom config.
func NewDirectExecutorWithConfig(config ExecutorConfig) *DirectExecutor {
	logging.TactileDebug("Creating DirectExecutor with config: timeout=%s, maxOutput=%d bytes",
		config.DefaultTimeout, config.MaxOutputBytes)
	return &DirectExecutor{
		config:        config,
		auditCallback: config.AuditCallback,
	}
}

// SetAuditCallback sets the callback for audit events.
func (e *DirectExecutor) SetAuditCallback(callback func(AuditEvent)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.auditCallback = callback
}

// LogAudit writes ev to the tactile debug log. Install it with
// SetAuditCallback to trace every toolchain invocation.
func LogAudit(ev AuditEvent) {
	l := logging.Get(logging.CategoryTactile).With("event", string(ev.Type), "session", ev.SessionID)
	if ev.Result == nil {
		l.Debug("audit %s: %s %v", ev.Type, ev.Command.Binary, ev.Command.Arguments)
		return
	}
	l.Debug("audit %s: %s exit=%d duration=%s", ev.Type, ev.Command.Binary, ev.Result.ExitCode, ev.Result.Duration)
}

// emitAudit emits an audit event if a callback is registered.
func (e *DirectExecutor) emitAudit(eventType AuditEventType, cmd Command, result *ExecutionResult) {
	e.mu.RLock()
	callback := e.auditCallback
	e.mu.RUnlock()

	if callback != nil {
		callback(AuditEvent{
			Type:         eventType,
			Timestamp:    time.Now(),
			Command:      cmd,
			Result:       result,
			SessionID:    cmd.SessionID,
			ExecutorName: "direct",
		})
	}
}

// Capabilities returns what this executor supports.
func (e *DirectExecutor) Capabilities() ExecutorCapabilities {
	return ExecutorCapabilities{
		Name:                "direct",
		Platform:            runtime.GOOS,
		SupportsStdin:       true,
		SupportsInteractive: true,
		MaxTimeout:          e.config.MaxTimeout,
		DefaultTimeout:      e.config.DefaultTimeout,
	}
}

// Validate checks if a command can be executed.
func (e *DirectExecutor) Validate(cmd Command) error {
	if cmd.Binary == "" {
		return fmt.Errorf("binary is required")
	}
	if cmd.Interactive && cmd.Stdin != "" {
		return fmt.Errorf("interactive commands read the terminal, stdin must be empty")
	}
	return nil
}

// Execute runs a command directly on the host.
func (e *DirectExecutor) Execute(ctx context.Context, cmd Command) (*ExecutionResult, error) {
	timer := logging.StartTimer(logging.CategoryTactile, "Direct command execution")
	defer timer.Stop()

	logging.Tactile("Executing command: %s", cmd.CommandString())

	if err := e.Validate(cmd); err != nil {
		logging.TactileWarn("Command validation failed: %s %v - %v", cmd.Binary, cmd.Arguments, err)
		return nil, err
	}

	cmd = e.config.Merge(cmd)

	result := &ExecutionResult{
		ExitCode: -1,
		Command:  &cmd,
	}
	e.emitAudit(AuditEventStart, cmd, nil)

	timeout := e.config.DefaultTimeout
	if cmd.Limits != nil && cmd.Limits.TimeoutMs > 0 {
		timeout = time.Duration(cmd.Limits.TimeoutMs) * time.Millisecond
	}

	var (
		execCtx context.Context
		cancel  context.CancelFunc
	)
	if timeout > 0 {
		execCtx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		execCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	logging.TactileDebug("Executing: %s %v (dir=%s, timeout=%s, interactive=%t)",
		cmd.Binary, cmd.Arguments, cmd.WorkingDirectory, timeout, cmd.Interactive)

	execCmd := exec.CommandContext(execCtx, cmd.Binary, cmd.Arguments...)
	execCmd.Dir = cmd.WorkingDirectory
	execCmd.Env = e.buildEnvironment(cmd.Environment)

	var stdoutBuf, stderrBuf bytes.Buffer
	var stdoutLimited, stderrLimited *limitedWriter
	if cmd.Interactive {
		execCmd.Stdin = e.config.stdin()
		execCmd.Stdout = e.config.stdout()
		execCmd.Stderr = e.config.stderr()
	} else {
		if cmd.Stdin != "" {
			logging.TactileDebug("Providing stdin input (%d bytes)", len(cmd.Stdin))
			execCmd.Stdin = strings.NewReader(cmd.Stdin)
		}

		maxOutput := e.config.MaxOutputBytes
		if cmd.Limits != nil && cmd.Limits.MaxOutputBytes > 0 {
			maxOutput = cmd.Limits.MaxOutputBytes
		}
		if maxOutput <= 0 {
			maxOutput = defaultMaxOutputBytes
		}
		stdoutLimited = &limitedWriter{w: &stdoutBuf, max: maxOutput}
		stderrLimited = &limitedWriter{w: &stderrBuf, max: maxOutput}
		execCmd.Stdout = stdoutLimited
		execCmd.Stderr = stderrLimited
	}

	result.StartedAt = time.Now()
	err := execCmd.Run()
	result.FinishedAt = time.Now()
	result.Duration = result.FinishedAt.Sub(result.StartedAt)

	result.Stdout = stdoutBuf.String()
	result.Stderr = stderrBuf.String()
	result.Combined = result.Stdout
	if result.Stderr != "" {
		if result.Combined != "" {
			result.Combined += "\n"
		}
		result.Combined += result.Stderr
	}

	if stdoutLimited != nil && (stdoutLimited.truncated || stderrLimited.truncated) {
		result.Truncated = true
		result.TruncatedBytes = stdoutLimited.discarded + stderrLimited.discarded
		logging.TactileWarn("Command output truncated: %d bytes discarded", result.TruncatedBytes)
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		result.Success = true
		result.ExitCode = 0
		logging.TactileDebug("Command succeeded with exit code 0")
	case errors.Is(execCtx.Err(), context.DeadlineExceeded):
		result.Killed = true
		result.KillReason = fmt.Sprintf("timeout after %s", timeout)
		result.Success = true // Infrastructure worked, command was killed
		logging.TactileWarn("Command killed (timeout): %s after %s", cmd.Binary, timeout)
		e.emitAudit(AuditEventKilled, cmd, result)
	case errors.Is(execCtx.Err(), context.Canceled):
		result.Killed = true
		result.KillReason = "context canceled"
		result.Success = true
		logging.TactileDebug("Command canceled: %s", cmd.Binary)
		e.emitAudit(AuditEventKilled, cmd, result)
	case errors.As(err, &exitErr):
		result.Success = true // Command ran, just returned non-zero
		result.ExitCode = exitErr.ExitCode()
		logging.TactileDebug("Command exited non-zero: %s -> %d", cmd.Binary, result.ExitCode)
	default:
		result.Success = false
		result.Error = err.Error()
		logging.TactileError("Command failed: %s - %v", cmd.Binary, err)
		e.emitAudit(AuditEventError, cmd, result)
		return result, nil
	}

	e.emitAudit(AuditEventComplete, cmd, result)

	logging.Tactile("Command completed: %s -> exit=%d, duration=%s, stdout=%d bytes",
		cmd.Binary, result.ExitCode, result.Duration, len(result.Stdout))

	return result, nil
}

// buildEnvironment returns the parent environment with cmdEnv appended.
// hevm and huffc locate their own dependencies through it.
func (e *DirectExecutor) buildEnvironment(cmdEnv []string) []string {
	return append(os.Environ(), cmdEnv...)
}

// limitedWriter is an io.Writer that limits total bytes written.
type limitedWriter struct {
	w         io.Writer
	max       int64
	written   int64
	truncated bool
	discarded int64
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)

	if lw.written >= lw.max {
		lw.truncated = true
		lw.discarded += int64(n)
		return n, nil // Pretend we wrote it
	}

	remaining := lw.max - lw.written
	if int64(n) > remaining {
		lw.truncated = true
		toWrite := p[:remaining]
		lw.discarded += int64(n) - remaining
		written, err := lw.w.Write(toWrite)
		lw.written += int64(written)
		return n, err // Return original length to avoid "short write" errors
	}

	written, err := lw.w.Write(p)
	lw.written += int64(written)
	return written, err
}
