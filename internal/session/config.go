// Package session builds the immutable configuration of one debug session
// from defaults, caller options and computed fields.
package session

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"huffdbg/internal/flatten"
	"huffdbg/internal/logging"
)

// Derived holds the computed fields. They override any caller value for
// the same key.
type Derived struct {
	ContractAddress string
	WorkDir         string
	MountedDrive    string
}

// Config is the resolved session configuration. Build returns it by value
// and nothing mutates it afterwards.
type Config struct {
	SessionID       string
	WorkDir         string
	ContractAddress string
	MountedDrive    string

	Caller           string
	StatePath        string // absolute
	CacheDir         string // absolute
	Storage          []flatten.StorageOverride
	Calldata         string
	CallValue        string
	CallValueChecked bool

	Mode Mode
}

// Build merges defaults < patch < derived into a Config and selects its Mode.
func Build(defaults Options, patch Patch, derived Derived) (Config, error) {
	opts, err := defaults.Apply(patch)
	if err != nil {
		return Config{}, err
	}
	if derived.WorkDir == "" {
		return Config{}, fmt.Errorf("working directory is required")
	}
	if !common.IsHexAddress(opts.Caller) {
		return Config{}, fmt.Errorf("caller %q is not a 20-byte hex address", opts.Caller)
	}
	if opts.StatePath == "" {
		return Config{}, fmt.Errorf("state path must not be empty")
	}
	if opts.CallValueChecked && opts.CallValue == "" {
		return Config{}, fmt.Errorf("call value is enabled but empty")
	}

	statePath := absUnder(derived.WorkDir, opts.StatePath)
	cacheDir := absUnder(derived.WorkDir, opts.CacheDir)
	if within(statePath, derived.WorkDir) {
		return Config{}, fmt.Errorf("state path %s must not contain the working directory %s", statePath, derived.WorkDir)
	}
	if within(statePath, cacheDir) {
		return Config{}, fmt.Errorf("state path %s must not contain the cache directory %s", statePath, cacheDir)
	}

	cfg := Config{
		SessionID:        uuid.NewString(),
		WorkDir:          derived.WorkDir,
		ContractAddress:  derived.ContractAddress,
		MountedDrive:     derived.MountedDrive,
		Caller:           opts.Caller,
		StatePath:        statePath,
		CacheDir:         cacheDir,
		Storage:          opts.Storage,
		Calldata:         opts.Calldata,
		CallValue:        opts.CallValue,
		CallValueChecked: opts.CallValueChecked,
		Mode:             SelectMode(opts),
	}

	logging.Session("Session %s: mode=%s address=%s", cfg.SessionID, cfg.Mode, cfg.ContractAddress)
	logging.SessionDebug("Session %s: state=%s cache=%s caller=%s", cfg.SessionID, cfg.StatePath, cfg.CacheDir, cfg.Caller)
	return cfg, nil
}

func absUnder(workDir, p string) string {
	if p == "" {
		return workDir
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(workDir, p)
}

// within reports whether p is dir or lies beneath it. Both must be clean
// absolute paths.
func within(dir, p string) bool {
	rel, err := filepath.Rel(dir, p)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
