// Package failure defines the error kinds a debug session can abort with.
// Every fatal condition in the pipeline is reported as an *Error carrying
// one Kind, so the CLI can render an actionable message instead of raw
// tool output.
package failure

import (
	"errors"
	"fmt"
	"strings"
)

// Kind categorizes a session failure.
type Kind string

const (
	// ReadFailure: a source or include path is missing or unreadable.
	ReadFailure Kind = "read_failure"
	// ToolMissing: a required external executable was not found.
	ToolMissing Kind = "tool_missing"
	// CompileFailure: the Huff compiler rejected the synthesized unit.
	CompileFailure Kind = "compile_failure"
	// DeployFailure: a simulator create pass failed.
	DeployFailure Kind = "deploy_failure"
	// EncodingFailure: calldata or a literal could not be encoded.
	EncodingFailure Kind = "encoding_failure"
	// ConfigFailure: session options were invalid.
	ConfigFailure Kind = "config_failure"
	// LaunchFailure: the debug command could not be persisted or handed off.
	LaunchFailure Kind = "launch_failure"
)

// Error is a classified session failure.
type Error struct {
	Kind Kind
	Op   string // pipeline step, e.g. "flatten", "compile"
	Path string // offending file, when there is one
	Err  error
}

// New wraps err with a kind and the step that produced it.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// WithPath wraps err and records the offending path.
func WithPath(kind Kind, op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Op != "" {
		b.WriteString(": ")
		b.WriteString(e.Op)
	}
	if e.Path != "" {
		b.WriteString(" ")
		b.WriteString(e.Path)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Message renders err for the user.
func Message(err error) string {
	var fe *Error
	if !errors.As(err, &fe) {
		return err.Error()
	}

	detail := ""
	if fe.Err != nil {
		detail = fe.Err.Error()
	}

	switch fe.Kind {
	case ReadFailure:
		return fmt.Sprintf("Could not read %s: %s", fe.Path, detail)
	case ToolMissing:
		return detail
	case CompileFailure:
		return fmt.Sprintf("Compilation failed: %s\n"+
			"The debugger build of your contract did not compile. If the file compiles on its own, "+
			"this is likely a bug in a pre-release feature; please report it.", detail)
	case DeployFailure:
		return fmt.Sprintf("Deployment to the local EVM failed: %s", detail)
	case EncodingFailure:
		return fmt.Sprintf("Could not encode call arguments: %s", detail)
	case ConfigFailure:
		return fmt.Sprintf("Invalid session options: %s", detail)
	case LaunchFailure:
		return fmt.Sprintf("Could not launch the debugger: %s", detail)
	default:
		return fe.Error()
	}
}
