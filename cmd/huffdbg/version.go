package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"huffdbg/internal/toolchain"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print huffdbg and compiler versions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s %s\n", labelStyle.Render("huffdbg"), version)

		huffc := &toolchain.HuffCompiler{Binary: cfg.Tools.Huffc, Exec: newExecutor()}
		v, err := huffc.Version(commandContext(cmd))
		if err != nil {
			fmt.Fprintf(out, "%s %s\n", labelStyle.Render(cfg.Tools.Huffc), mutedStyle.Render("not available"))
			return nil
		}
		fmt.Fprintf(out, "%s %s\n", labelStyle.Render(cfg.Tools.Huffc), v)
		return nil
	},
}
