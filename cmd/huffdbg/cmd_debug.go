package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"huffdbg/internal/pipeline"
)

var debugFlags sessionFlags

var debugCmd = &cobra.Command{
	Use:   "debug FILE",
	Short: "Debug a contract through its MAIN macro",
	Long: `Flattens FILE with everything it includes, deploys it and opens the
hevm debugger on the runtime code.

Examples:
  huffdbg debug src/Token.huff --sig "balanceOf(address)" --sig-args 0x00000000000000000000000000000000deadbeef
  huffdbg debug src/Counter.huff --storage 0=5 --calldata 0xd09de08a`,
	Args: cobra.ExactArgs(1),
	RunE: runDebug,
}

var macroFlags sessionFlags

var macroArgs []string

var macroCmd = &cobra.Command{
	Use:   "macro FILE NAME",
	Short: "Debug a single macro with chosen stack inputs",
	Long: `Runs macro NAME from FILE on its own. --args lists its stack inputs in
declaration order; the first ends up on top of the stack. Jump labels the
macro references from outside are redirected to a halt block.

Example:
  huffdbg macro src/Math.huff SAFE_ADD --args 0x01,0x02`,
	Args: cobra.ExactArgs(2),
	RunE: runMacro,
}

func init() {
	debugFlags.register(debugCmd)
	macroFlags.register(macroCmd)
	macroCmd.Flags().StringSliceVar(&macroArgs, "args", nil, "Stack inputs in declaration order")
}

func runDebug(cmd *cobra.Command, args []string) error {
	dir, err := workDir()
	if err != nil {
		return err
	}
	patch, err := debugFlags.patch(cmd)
	if err != nil {
		return err
	}

	req := pipeline.FileRequest{
		WorkDir:       dir,
		File:          args[0],
		Options:       patch,
		Signature:     debugFlags.signature,
		SignatureArgs: debugFlags.sigArgs,
	}

	runner := newRunner(cfg)
	ctx := commandContext(cmd)
	var p *pipeline.Prepared
	if dryRun {
		p, err = runner.PrepareFile(ctx, req)
	} else {
		p, err = runner.DebugFile(ctx, req)
	}
	if err != nil {
		return err
	}
	reportSession(cmd, p)
	return nil
}

func runMacro(cmd *cobra.Command, args []string) error {
	dir, err := workDir()
	if err != nil {
		return err
	}
	patch, err := macroFlags.patch(cmd)
	if err != nil {
		return err
	}

	req := pipeline.MacroRequest{
		WorkDir:       dir,
		File:          args[0],
		Macro:         args[1],
		Args:          macroArgs,
		Options:       patch,
		Signature:     macroFlags.signature,
		SignatureArgs: macroFlags.sigArgs,
	}

	runner := newRunner(cfg)
	ctx := commandContext(cmd)
	var p *pipeline.Prepared
	if dryRun {
		p, err = runner.PrepareMacro(ctx, req)
	} else {
		p, err = runner.DebugMacro(ctx, req)
	}
	if err != nil {
		return err
	}
	reportSession(cmd, p)
	return nil
}

func reportSession(cmd *cobra.Command, p *pipeline.Prepared) {
	out := cmd.OutOrStdout()
	if !dryRun {
		if p.Detached {
			fmt.Fprintf(out, "%s %s\n", successStyle.Render("Debug session started in tmux window"), p.Session)
			return
		}
		fmt.Fprintln(out, successStyle.Render("Debug session finished"))
		return
	}
	fmt.Fprintf(out, "%s %s\n", labelStyle.Render("Address:"), p.Config.ContractAddress)
	fmt.Fprintf(out, "%s %s\n", labelStyle.Render("Mode:"), p.Config.Mode)
	fmt.Fprintln(out, p.Command.String())
}
