package launch

import (
	"context"
	"fmt"

	"huffdbg/internal/hevmcmd"
	"huffdbg/internal/logging"
)

// Launcher persists a debug command and starts it through a Terminal.
type Launcher struct {
	Terminal Terminal
}

// Launch writes cmd to file, then starts the wrapper in a terminal named
// name. The write completes before the terminal starts. A detached
// terminal takes ownership of the file, which its wrapper removes.
func (l *Launcher) Launch(ctx context.Context, name string, file *CacheFile, cmd hevmcmd.Command) error {
	if err := file.Write(cmd.String()); err != nil {
		return fmt.Errorf("failed to persist debug command: %w", err)
	}

	if err := l.Terminal.Launch(ctx, name, WrapperCommand(file.Path())); err != nil {
		return fmt.Errorf("failed to launch %s: %w", name, err)
	}
	if l.Terminal.Detached() {
		file.Handoff()
		logging.Launch("Debugger %s running in a separate window", name)
	} else {
		logging.LaunchDebug("Debugger %s exited", name)
	}
	return nil
}
