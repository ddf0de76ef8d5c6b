package pipeline

import (
	"huffdbg/internal/calldata"
	"huffdbg/internal/config"
	"huffdbg/internal/launch"
	"huffdbg/internal/tactile"
	"huffdbg/internal/toolchain"
)

// New builds a Runner that drives the real toolchain through exec.
func New(cfg *config.Config, exec tactile.Executor) *Runner {
	var limits *tactile.ResourceLimits
	if d := cfg.GetToolTimeout(); d > 0 {
		limits = &tactile.ResourceLimits{TimeoutMs: d.Milliseconds()}
	}

	var (
		term         launch.Terminal
		terminalTool string
	)
	switch cfg.Session.Terminal {
	case config.TerminalTmux:
		term = &launch.TmuxTerminal{Exec: exec, Binary: cfg.Tools.Tmux}
		terminalTool = cfg.Tools.Tmux
	default:
		term = &launch.InlineTerminal{Exec: exec, Shell: cfg.Tools.Shell}
		terminalTool = cfg.Tools.Shell
	}

	return &Runner{
		Compiler:  &toolchain.HuffCompiler{Binary: cfg.Tools.Huffc, Exec: exec, Limits: limits},
		Simulator: &toolchain.Hevm{Binary: cfg.Tools.Hevm, Exec: exec, Limits: limits},
		State:     &toolchain.GitState{Binary: cfg.Tools.Git, Exec: exec},
		Install:   toolchain.PathCheck{},
		Launcher:  &launch.Launcher{Terminal: term},
		Encoder:   calldata.ABIEncoder{},
		Tools: Tools{
			Huffc:    cfg.Tools.Huffc,
			Hevm:     cfg.Tools.Hevm,
			Git:      cfg.Tools.Git,
			Terminal: terminalTool,
		},
		Defaults:        cfg.SessionDefaults(),
		SourceCacheSize: cfg.Session.SourceCacheSize,
	}
}
