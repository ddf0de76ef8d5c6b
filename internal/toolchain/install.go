package toolchain

import (
	"fmt"
	"os/exec"
	"strings"

	"huffdbg/internal/logging"
)

// InstallCheck verifies that the named executables can be run.
type InstallCheck interface {
	Check(tools ...string) error
}

var installHints = map[string]string{
	"huffc": "install it with huffup: https://docs.huff.sh/get-started/installing/",
	"hevm":  "see https://github.com/ethereum/hevm#installation",
	"git":   "see https://git-scm.com/downloads",
	"tmux":  "install it with your package manager",
}

// MissingError lists executables that could not be found.
type MissingError struct {
	Tools []string
}

func (e *MissingError) Error() string {
	lines := make([]string, 0, len(e.Tools))
	for _, t := range e.Tools {
		line := fmt.Sprintf("%s is not installed or not on PATH", t)
		if hint, ok := installHints[baseName(t)]; ok {
			line += "; " + hint
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// PathCheck resolves tools with a LookPath function, exec.LookPath when nil.
type PathCheck struct {
	LookPath func(file string) (string, error)
}

// Check implements InstallCheck. Every missing tool is reported, not just
// the first one.
func (p PathCheck) Check(tools ...string) error {
	lookPath := p.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}

	var missing []string
	seen := make(map[string]bool)
	for _, t := range tools {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		if path, err := lookPath(t); err != nil {
			missing = append(missing, t)
		} else {
			logging.BootDebug("Found %s at %s", t, path)
		}
	}
	if len(missing) > 0 {
		return &MissingError{Tools: missing}
	}
	return nil
}

func baseName(tool string) string {
	if i := strings.LastIndexAny(tool, `/\`); i >= 0 {
		tool = tool[i+1:]
	}
	return strings.TrimSuffix(tool, ".exe")
}
