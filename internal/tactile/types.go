// Package tactile runs the external tools a debug session drives: the Huff
// compiler, the hevm simulator, git and the terminal shells. Every process
// goes through an Executor so the pipeline can be exercised with a fake.
//
// Tool runs are captured: stdout and stderr are buffered (with a size cap)
// and returned in an ExecutionResult. Interactive runs inherit the
// executor's standard streams instead and return only the exit status.
package tactile

import (
	"io"
	"os"
	"strings"
	"time"
)

// Command represents a command to be executed.
type Command struct {
	// Binary is the executable to run (e.g., "huffc", "hevm", "git").
	Binary string `json:"binary"`

	// Arguments are the command-line arguments.
	Arguments []string `json:"arguments"`

	// WorkingDirectory is the directory to execute in.
	// If empty, uses the executor's default working directory.
	WorkingDirectory string `json:"working_directory,omitempty"`

	// Environment variables to add (in KEY=VALUE format).
	Environment []string `json:"environment,omitempty"`

	// Stdin provides input to the command's standard input.
	Stdin string `json:"stdin,omitempty"`

	// Interactive attaches the process to the executor's terminal streams
	// instead of capturing output. Stdin is ignored.
	Interactive bool `json:"interactive,omitempty"`

	// Limits specifies resource constraints for execution.
	Limits *ResourceLimits `json:"limits,omitempty"`

	// SessionID links this execution to a debug session (for audit).
	SessionID string `json:"session_id,omitempty"`
}

// CommandString returns the full command as a string (for display/logging).
func (c Command) CommandString() string {
	if len(c.Arguments) == 0 {
		return c.Binary
	}
	return c.Binary + " " + strings.Join(c.Arguments, " ")
}

// ResourceLimits defines constraints on command execution.
type ResourceLimits struct {
	// TimeoutMs is the maximum execution time in milliseconds.
	// Zero means use the executor's default timeout.
	TimeoutMs int64 `json:"timeout_ms,omitempty"`

	// MaxOutputBytes limits captured stdout+stderr size.
	// Zero means use the executor's default.
	MaxOutputBytes int64 `json:"max_output_bytes,omitempty"`
}

// ExecutionResult is the output of a command execution.
type ExecutionResult struct {
	// Success indicates whether the command completed without error.
	// Note: A command that runs but returns non-zero exit code has Success=true.
	// Success=false means the execution infrastructure failed.
	Success bool `json:"success"`

	// ExitCode is the command's exit code (-1 if not available).
	ExitCode int `json:"exit_code"`

	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`

	// Combined is stdout followed by stderr.
	Combined string `json:"combined"`

	Duration   time.Duration `json:"duration"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`

	// Killed indicates the command was forcibly terminated.
	Killed     bool   `json:"killed"`
	KillReason string `json:"kill_reason,omitempty"`

	// Truncated indicates output was truncated due to size limits.
	Truncated      bool  `json:"truncated"`
	TruncatedBytes int64 `json:"truncated_bytes,omitempty"`

	// Error contains any infrastructure-level error message.
	Error string `json:"error,omitempty"`

	// Command is a copy of the command that was executed (for audit).
	Command *Command `json:"command,omitempty"`
}

// IsError returns true if the execution failed (infrastructure error).
func (r *ExecutionResult) IsError() bool {
	return !r.Success || r.Error != ""
}

// IsNonZeroExit returns true if the command ran but returned non-zero.
func (r *ExecutionResult) IsNonZeroExit() bool {
	return r.Success && r.ExitCode != 0
}

// Failed reports whether the run should be treated as a failed tool step:
// an infrastructure error, a kill, or a non-zero exit.
func (r *ExecutionResult) Failed() bool {
	return r.IsError() || r.Killed || r.ExitCode != 0
}

// Output returns Combined if available, otherwise Stdout+Stderr.
func (r *ExecutionResult) Output() string {
	if r.Combined != "" {
		return r.Combined
	}
	if r.Stderr == "" {
		return r.Stdout
	}
	if r.Stdout == "" {
		return r.Stderr
	}
	return r.Stdout + "\n" + r.Stderr
}

// ExecutorCapabilities describes what an executor can do.
type ExecutorCapabilities struct {
	Name     string `json:"name"`
	Platform string `json:"platform"`

	SupportsStdin       bool `json:"supports_stdin"`
	SupportsInteractive bool `json:"supports_interactive"`

	// MaxTimeout is the maximum allowed timeout (0 = unlimited).
	MaxTimeout time.Duration `json:"max_timeout"`

	// DefaultTimeout is used when no timeout is specified (0 = none).
	DefaultTimeout time.Duration `json:"default_timeout"`
}

// AuditEventType categorizes audit events.
type AuditEventType string

const (
	AuditEventStart    AuditEventType = "start"
	AuditEventComplete AuditEventType = "complete"
	AuditEventKilled   AuditEventType = "killed"
	AuditEventError    AuditEventType = "error"
)

// AuditEvent is emitted to the audit callback for each execution step.
type AuditEvent struct {
	Type      AuditEventType `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Command   Command        `json:"command"`

	// Result is the execution result (for complete/killed/error events).
	Result *ExecutionResult `json:"result,omitempty"`

	SessionID    string `json:"session_id,omitempty"`
	ExecutorName string `json:"executor_name"`
}

// ExecutorConfig is the configuration for creating executors.
type ExecutorConfig struct {
	// DefaultWorkingDir is used when Command.WorkingDirectory is empty.
	DefaultWorkingDir string `json:"default_working_dir"`

	// DefaultTimeout is used when no timeout is specified. Zero means the
	// command may run until it exits or the context is cancelled.
	DefaultTimeout time.Duration `json:"default_timeout"`

	// MaxTimeout caps all timeout values (0 = no cap).
	MaxTimeout time.Duration `json:"max_timeout"`

	// DefaultLimits is applied when Command.Limits is nil.
	DefaultLimits *ResourceLimits `json:"default_limits,omitempty"`

	// MaxOutputBytes caps output capture (default 10MB).
	MaxOutputBytes int64 `json:"max_output_bytes"`

	// Stdin, Stdout and Stderr are the streams interactive commands use.
	// Nil means the process's own.
	Stdin  io.Reader `json:"-"`
	Stdout io.Writer `json:"-"`
	Stderr io.Writer `json:"-"`

	// AuditCallback is called for each execution event (optional).
	AuditCallback func(AuditEvent) `json:"-"`
}

// DefaultExecutorConfig returns defaults for driving the toolchain: no
// timeout, full environment, 10MB output cap.
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		DefaultWorkingDir: ".",
		MaxOutputBytes:    defaultMaxOutputBytes,
	}
}

// Merge combines this config with command-specific settings.
// Command settings override config defaults.
func (c ExecutorConfig) Merge(cmd Command) Command {
	result := cmd

	if result.WorkingDirectory == "" {
		result.WorkingDirectory = c.DefaultWorkingDir
	}

	if result.Limits == nil && c.DefaultLimits != nil {
		limitsCopy := *c.DefaultLimits
		result.Limits = &limitsCopy
	} else if result.Limits != nil && c.DefaultLimits != nil {
		limitsCopy := *result.Limits
		if limitsCopy.TimeoutMs == 0 {
			limitsCopy.TimeoutMs = c.DefaultLimits.TimeoutMs
		}
		if limitsCopy.MaxOutputBytes == 0 {
			limitsCopy.MaxOutputBytes = c.DefaultLimits.MaxOutputBytes
		}
		result.Limits = &limitsCopy
	}

	// Cap timeout at max
	if result.Limits != nil && c.MaxTimeout > 0 {
		maxMs := int64(c.MaxTimeout / time.Millisecond)
		if result.Limits.TimeoutMs > maxMs {
			limitsCopy := *result.Limits
			limitsCopy.TimeoutMs = maxMs
			result.Limits = &limitsCopy
		}
	}

	return result
}

func (c ExecutorConfig) stdin() io.Reader {
	if c.Stdin != nil {
		return c.Stdin
	}
	return os.Stdin
}

func (c ExecutorConfig) stdout() io.Writer {
	if c.Stdout != nil {
		return c.Stdout
	}
	return os.Stdout
}

func (c ExecutorConfig) stderr() io.Writer {
	if c.Stderr != nil {
		return c.Stderr
	}
	return os.Stderr
}
