package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"huffdbg/internal/failure"
	"huffdbg/internal/pipeline"
	"huffdbg/internal/watch"
)

var (
	flattenFlags sessionFlags
	flattenMacro string
	flattenArgs  []string
	flattenWatch bool
)

var flattenCmd = &cobra.Command{
	Use:   "flatten FILE",
	Short: "Print the unit a debug session would compile",
	Long: `Resolves FILE's includes and prints the single source huffdbg would
hand to the compiler. With --macro the entry point runs that macro alone.
No external tool is run. With --watch the unit is printed again whenever
one of its source files changes.`,
	Args: cobra.ExactArgs(1),
	RunE: runFlatten,
}

func init() {
	flattenFlags.register(flattenCmd)
	flattenCmd.Flags().StringVar(&flattenMacro, "macro", "", "Isolate this macro instead of MAIN")
	flattenCmd.Flags().StringSliceVar(&flattenArgs, "args", nil, "Stack inputs for --macro, in declaration order")
	flattenCmd.Flags().BoolVar(&flattenWatch, "watch", false, "Re-print when a source file changes")
}

func runFlatten(cmd *cobra.Command, args []string) error {
	dir, err := workDir()
	if err != nil {
		return err
	}
	patch, err := flattenFlags.patch(cmd)
	if err != nil {
		return err
	}

	runner := newRunner(cfg)
	synthesize := func() (*pipeline.Unit, error) {
		if flattenMacro != "" {
			return runner.SynthesizeMacro(pipeline.MacroRequest{
				WorkDir: dir,
				File:    args[0],
				Macro:   flattenMacro,
				Args:    flattenArgs,
				Options: patch,
			})
		}
		return runner.SynthesizeFile(pipeline.FileRequest{
			WorkDir: dir,
			File:    args[0],
			Options: patch,
		})
	}

	out := cmd.OutOrStdout()
	unit, err := synthesize()
	if err != nil {
		return err
	}
	fmt.Fprint(out, unit.Content)
	if !flattenWatch {
		return nil
	}

	var w *watch.Watcher
	w, err = watch.New(unit.Paths, 0, func(changed []string) {
		printRule(out, changed)
		next, err := synthesize()
		if err != nil {
			fmt.Fprintf(out, "%s %s\n", errorStyle.Render("Error:"), failure.Message(err))
			return
		}
		fmt.Fprint(out, next.Content)
		if err := w.SetPaths(next.Paths); err != nil {
			fmt.Fprintf(out, "%s %v\n", warnStyle.Render("Watch:"), err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to watch sources: %w", err)
	}
	ctx := commandContext(cmd)
	w.Start(ctx)
	defer w.Stop()

	fmt.Fprintln(cmd.ErrOrStderr(), mutedStyle.Render("Watching for changes, Ctrl-C to stop"))
	<-ctx.Done()
	return nil
}

func printRule(out io.Writer, changed []string) {
	fmt.Fprintf(out, "\n%s %v\n", labelStyle.Render("// changed:"), changed)
}
