package toolchain

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"huffdbg/internal/logging"
	"huffdbg/internal/tactile"
)

// GitState keeps hevm's state directory as a fresh git repository, which
// is the layout `hevm exec --state` reads and commits into.
type GitState struct {
	Binary string
	Exec   tactile.Executor
}

// stateMarker is written inside .git so it is never part of a commit.
const stateMarker = "huffdbg-state"

// Reset removes dir, recreates it and initialises an empty repository
// with one commit. A non-empty dir is only cleared when an earlier Reset
// marked it.
func (g *GitState) Reset(ctx context.Context, dir string) error {
	if err := checkOwned(dir); err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to clear state directory %s: %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory %s: %w", dir, err)
	}

	steps := [][]string{
		{"init", "--quiet"},
		{"-c", "user.name=huffdbg", "-c", "user.email=huffdbg@localhost",
			"commit", "--quiet", "--allow-empty", "--no-gpg-sign", "-m", "huffdbg: initial state"},
	}
	for _, args := range steps {
		if _, err := run(ctx, g.Exec, g.Binary, tactile.Command{
			Binary:           g.Binary,
			Arguments:        args,
			WorkingDirectory: dir,
		}); err != nil {
			return err
		}
	}

	gitDir := filepath.Join(dir, ".git")
	if err := os.MkdirAll(gitDir, 0755); err != nil {
		return fmt.Errorf("failed to mark state directory %s: %w", dir, err)
	}
	if err := os.WriteFile(filepath.Join(gitDir, stateMarker), []byte("huffdbg\n"), 0644); err != nil {
		return fmt.Errorf("failed to mark state directory %s: %w", dir, err)
	}

	logging.Deploy("Initialised state repository at %s", dir)
	return nil
}

func checkOwned(dir string) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to inspect state directory %s: %w", dir, err)
	}
	if len(entries) == 0 {
		return nil
	}
	if _, err := os.Stat(filepath.Join(dir, ".git", stateMarker)); err == nil {
		return nil
	}
	return fmt.Errorf("refusing to clear %s: directory is not empty and was not created by huffdbg", dir)
}
