// Package config loads huffdbg settings from a YAML file, a workspace .env
// file and HUFFDBG_* environment variables, in increasing precedence.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"

	"huffdbg/internal/session"
)

// DefaultPath is the config file location relative to the workspace.
const DefaultPath = ".huffdbg/config.yaml"

// Config holds all huffdbg configuration.
type Config struct {
	Tools   ToolsConfig   `yaml:"tools"`
	Session SessionConfig `yaml:"session"`
	Logging LoggingConfig `yaml:"logging"`
}

// ToolsConfig names the external executables.
type ToolsConfig struct {
	Huffc string `yaml:"huffc"`
	Hevm  string `yaml:"hevm"`
	Git   string `yaml:"git"`
	Tmux  string `yaml:"tmux"`
	Shell string `yaml:"shell"`

	// Timeout bounds each compile and deploy run. Empty means none; the
	// interactive debugger is never bounded.
	Timeout string `yaml:"timeout"`
}

// SessionConfig holds session defaults.
type SessionConfig struct {
	Caller    string `yaml:"caller"`
	StatePath string `yaml:"state_path"`
	CacheDir  string `yaml:"cache_dir"`

	// Terminal is "inline" or "tmux".
	Terminal string `yaml:"terminal"`

	// SourceCacheSize bounds how many source files one session keeps in memory.
	SourceCacheSize int `yaml:"source_cache_size"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // console, json
}

// Terminal kinds.
const (
	TerminalInline = "inline"
	TerminalTmux   = "tmux"
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	defaults := session.DefaultOptions()
	return &Config{
		Tools: ToolsConfig{
			Huffc: "huffc",
			Hevm:  "hevm",
			Git:   "git",
			Tmux:  "tmux",
			Shell: "sh",
		},
		Session: SessionConfig{
			Caller:          defaults.Caller,
			StatePath:       defaults.StatePath,
			CacheDir:        defaults.CacheDir,
			Terminal:        TerminalInline,
			SourceCacheSize: 256,
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Unknown keys are rejected. Environment overrides are applied
// last.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// defaults
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// GetToolTimeout returns the tool timeout, zero when unset or invalid.
func (c *Config) GetToolTimeout() time.Duration {
	if c.Tools.Timeout == "" {
		return 0
	}
	d, err := time.ParseDuration(c.Tools.Timeout)
	if err != nil {
		return 0
	}
	return d
}

var (
	validLevels    = []string{"debug", "info", "warn", "error"}
	validFormats   = []string{"console", "json"}
	validTerminals = []string{TerminalInline, TerminalTmux}
)

// Validate validates the configuration.
func (c *Config) Validate() error {
	for name, bin := range map[string]string{
		"tools.huffc": c.Tools.Huffc,
		"tools.hevm":  c.Tools.Hevm,
		"tools.git":   c.Tools.Git,
		"tools.shell": c.Tools.Shell,
	} {
		if bin == "" {
			return fmt.Errorf("%s must not be empty", name)
		}
	}
	if c.Tools.Timeout != "" {
		d, err := time.ParseDuration(c.Tools.Timeout)
		if err != nil {
			return fmt.Errorf("invalid tools.timeout %q: %w", c.Tools.Timeout, err)
		}
		if d < 0 {
			return fmt.Errorf("tools.timeout must not be negative")
		}
	}

	if !common.IsHexAddress(c.Session.Caller) {
		return fmt.Errorf("invalid session.caller %q: expected a 20-byte hex address", c.Session.Caller)
	}
	if c.Session.StatePath == "" {
		return fmt.Errorf("session.state_path must not be empty")
	}
	if !contains(validTerminals, c.Session.Terminal) {
		return fmt.Errorf("invalid session.terminal: %s (valid: %v)", c.Session.Terminal, validTerminals)
	}
	if c.Session.Terminal == TerminalTmux && c.Tools.Tmux == "" {
		return fmt.Errorf("tools.tmux must be set when session.terminal is tmux")
	}
	if c.Session.SourceCacheSize < 0 {
		return fmt.Errorf("session.source_cache_size must not be negative")
	}

	if !contains(validLevels, c.Logging.Level) {
		return fmt.Errorf("invalid logging.level: %s (valid: %v)", c.Logging.Level, validLevels)
	}
	if !contains(validFormats, c.Logging.Format) {
		return fmt.Errorf("invalid logging.format: %s (valid: %v)", c.Logging.Format, validFormats)
	}
	return nil
}

// SessionDefaults returns the configured session defaults.
func (c *Config) SessionDefaults() session.Options {
	opts := session.DefaultOptions()
	opts.Caller = c.Session.Caller
	opts.StatePath = c.Session.StatePath
	if c.Session.CacheDir != "" {
		opts.CacheDir = c.Session.CacheDir
	}
	return opts
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
