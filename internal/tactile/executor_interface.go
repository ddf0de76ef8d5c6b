package tactile

import (
	"context"
)

// Executor is the interface for command execution.
// All executor implementations must satisfy this interface.
type Executor interface {
	// Execute runs a command and returns its result. A non-nil error
	// means the command was rejected before it started; a command that
	// ran and failed is reported through the result.
	Execute(ctx context.Context, cmd Command) (*ExecutionResult, error)

	// Capabilities returns what this executor supports.
	Capabilities() ExecutorCapabilities

	// Validate checks if a command can be executed by this executor.
	// Returns nil if valid, or an error explaining why not.
	Validate(cmd Command) error
}
