package launch

import (
	"context"
	"fmt"
	"os"

	"huffdbg/internal/hevmcmd"
	"huffdbg/internal/logging"
	"huffdbg/internal/tactile"
)

// Terminal runs a shell command where the user can interact with it.
type Terminal interface {
	// Launch starts command in a terminal named name.
	Launch(ctx context.Context, name, command string) error
	// Detached reports whether Launch returns before the command finishes.
	Detached() bool
}

// WrapperCommand reads the command stored at path, removes the file and
// evaluates what it read.
func WrapperCommand(path string) string {
	q := hevmcmd.Quote(path)
	return fmt.Sprintf(`cmd=$(cat %s) && rm -f %s && eval "$cmd"`, q, q)
}

// InlineTerminal runs the command in the current terminal and waits.
type InlineTerminal struct {
	Exec  tactile.Executor
	Shell string // defaults to "sh"
}

// Launch implements Terminal.
func (t *InlineTerminal) Launch(ctx context.Context, name, command string) error {
	shell := t.Shell
	if shell == "" {
		shell = "sh"
	}
	logging.Launch("Starting %s in this terminal", name)
	res, err := t.Exec.Execute(ctx, tactile.Command{
		Binary:      shell,
		Arguments:   []string{"-c", command},
		Interactive: true,
	})
	if err != nil {
		return err
	}
	if res.Failed() {
		if res.Error != "" {
			return fmt.Errorf("%s: %s", shell, res.Error)
		}
		if res.Killed {
			return fmt.Errorf("debugger session %s", res.KillReason)
		}
		return fmt.Errorf("debugger exited with code %d", res.ExitCode)
	}
	return nil
}

// Detached implements Terminal.
func (t *InlineTerminal) Detached() bool { return false }

// TmuxTerminal opens the session in a tmux window. Inside tmux a new
// window is created and selected; outside, a new session is started and
// attached in the current terminal.
type TmuxTerminal struct {
	Exec   tactile.Executor
	Binary string // defaults to "tmux"
	// Getenv reads the environment, os.Getenv when nil.
	Getenv func(string) string
}

func (t *TmuxTerminal) insideTmux() bool {
	getenv := t.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	return getenv("TMUX") != ""
}

// Launch implements Terminal.
func (t *TmuxTerminal) Launch(ctx context.Context, name, command string) error {
	binary := t.Binary
	if binary == "" {
		binary = "tmux"
	}

	cmd := tactile.Command{Binary: binary}
	if t.insideTmux() {
		cmd.Arguments = []string{"new-window", "-n", name, command}
	} else {
		cmd.Arguments = []string{"new-session", "-s", name, "-n", name, command}
		cmd.Interactive = true
	}

	logging.Launch("Opening tmux %s %s", cmd.Arguments[0], name)
	res, err := t.Exec.Execute(ctx, cmd)
	if err != nil {
		return err
	}
	if res.Failed() {
		return fmt.Errorf("%s %s failed: %s", binary, cmd.Arguments[0], res.Output())
	}
	return nil
}

// Detached implements Terminal.
func (t *TmuxTerminal) Detached() bool { return t.insideTmux() }
