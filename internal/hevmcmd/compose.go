// Package hevmcmd composes the interactive `hevm exec --debug` invocation
// for a deployed session.
package hevmcmd

import (
	"regexp"
	"strings"

	"huffdbg/internal/calldata"
	"huffdbg/internal/deploy"
	"huffdbg/internal/failure"
	"huffdbg/internal/session"
)

// Command is the final debugger invocation.
type Command struct {
	Binary string
	Args   []string
}

var shellSafe = regexp.MustCompile(`^[A-Za-z0-9_@%+=:,./-]+$`)

// String renders the command as a POSIX shell line.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, Quote(c.Binary))
	for _, a := range c.Args {
		parts = append(parts, Quote(a))
	}
	return strings.Join(parts, " ")
}

// Has reports whether flag appears in the argument list.
func (c Command) Has(flag string) bool {
	for _, a := range c.Args {
		if a == flag {
			return true
		}
	}
	return false
}

// Value returns the argument following flag, if any.
func (c Command) Value(flag string) (string, bool) {
	for i, a := range c.Args {
		if a == flag && i+1 < len(c.Args) {
			return c.Args[i+1], true
		}
	}
	return "", false
}

// Quote single-quotes s for sh unless it is made only of safe characters.
func Quote(s string) string {
	if s == "" {
		return "''"
	}
	if shellSafe.MatchString(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// Compose builds the debug command for cfg running runtime. The state
// clause appears only in modes that use state, calldata only when set,
// and value only when explicitly enabled. Filesystem arguments get the
// mount prefix here and nowhere else.
func Compose(binary string, cfg session.Config, runtime string) (Command, error) {
	args := []string{
		"exec",
		"--code", runtime,
		"--address", cfg.ContractAddress,
		"--caller", cfg.Caller,
		"--gas", deploy.DebugGas,
	}

	switch cfg.Mode {
	case session.ModeWithState, session.ModeWithStorageOverrides:
		args = append(args, "--state", MountPath(cfg.MountedDrive, cfg.StatePath))
	case session.ModeBare:
	}

	data, err := calldata.NormalizeHex(cfg.Calldata)
	if err != nil {
		return Command{}, failure.New(failure.EncodingFailure, "calldata", err)
	}
	if data != "" {
		args = append(args, "--calldata", data)
	}

	if cfg.CallValueChecked {
		args = append(args, "--value", cfg.CallValue)
	}

	args = append(args, "--debug")
	return Command{Binary: binary, Args: args}, nil
}

// MountPath maps a host path onto its WSL mount (/mnt/<drive>/...). With no
// drive the path is returned unchanged.
func MountPath(drive, p string) string {
	if drive == "" {
		return p
	}
	if len(p) >= 2 && p[1] == ':' {
		p = p[2:]
	}
	p = strings.ReplaceAll(p, `\`, "/")
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return "/mnt/" + drive + p
}
