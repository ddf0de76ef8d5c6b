package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variables read by applyEnvOverrides.
const (
	EnvHuffc           = "HUFFDBG_HUFFC"
	EnvHevm            = "HUFFDBG_HEVM"
	EnvGit             = "HUFFDBG_GIT"
	EnvTmux            = "HUFFDBG_TMUX"
	EnvTimeout         = "HUFFDBG_TIMEOUT"
	EnvCaller          = "HUFFDBG_CALLER"
	EnvStatePath       = "HUFFDBG_STATE_PATH"
	EnvCacheDir        = "HUFFDBG_CACHE_DIR"
	EnvTerminal        = "HUFFDBG_TERMINAL"
	EnvSourceCacheSize = "HUFFDBG_SOURCE_CACHE_SIZE"
	EnvLogLevel        = "HUFFDBG_LOG_LEVEL"
	EnvLogFormat       = "HUFFDBG_LOG_FORMAT"
)

// LoadDotEnv loads <workDir>/.env into the process environment if it
// exists. Variables already set in the environment keep their values.
func LoadDotEnv(workDir string) error {
	path := filepath.Join(workDir, ".env")
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// LoadWorkspace loads <workDir>/.env, then the config file at path
// (relative paths resolve against workDir).
func LoadWorkspace(workDir, path string) (*Config, error) {
	if err := LoadDotEnv(workDir); err != nil {
		return nil, err
	}
	if path == "" {
		path = DefaultPath
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(workDir, path)
	}
	return Load(path)
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	setString(&c.Tools.Huffc, EnvHuffc)
	setString(&c.Tools.Hevm, EnvHevm)
	setString(&c.Tools.Git, EnvGit)
	setString(&c.Tools.Tmux, EnvTmux)
	setString(&c.Tools.Timeout, EnvTimeout)

	setString(&c.Session.Caller, EnvCaller)
	setString(&c.Session.StatePath, EnvStatePath)
	setString(&c.Session.CacheDir, EnvCacheDir)
	setString(&c.Session.Terminal, EnvTerminal)
	if v := os.Getenv(EnvSourceCacheSize); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Session.SourceCacheSize = n
		}
	}

	setString(&c.Logging.Level, EnvLogLevel)
	setString(&c.Logging.Format, EnvLogFormat)
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
