package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"huffdbg/internal/config"
	"huffdbg/internal/failure"
	"huffdbg/internal/logging"
	"huffdbg/internal/pipeline"
	"huffdbg/internal/tactile"
)

var (
	// Global flags
	verbose    bool
	workspace  string
	configPath string
	dryRun     bool

	// Loaded in PersistentPreRunE
	cfg    *config.Config
	logger *zap.Logger
)

// sessionRunner is the part of pipeline.Runner the commands drive.
type sessionRunner interface {
	PrepareFile(ctx context.Context, req pipeline.FileRequest) (*pipeline.Prepared, error)
	PrepareMacro(ctx context.Context, req pipeline.MacroRequest) (*pipeline.Prepared, error)
	DebugFile(ctx context.Context, req pipeline.FileRequest) (*pipeline.Prepared, error)
	DebugMacro(ctx context.Context, req pipeline.MacroRequest) (*pipeline.Prepared, error)
	SynthesizeFile(req pipeline.FileRequest) (*pipeline.Unit, error)
	SynthesizeMacro(req pipeline.MacroRequest) (*pipeline.Unit, error)
}

// newRunner is replaced in tests.
var newRunner = func(c *config.Config) sessionRunner {
	return pipeline.New(c, newExecutor())
}

// newExecutor returns the host executor. Under --verbose every tool
// invocation is traced to the log.
func newExecutor() *tactile.DirectExecutor {
	exec := tactile.NewDirectExecutor()
	if verbose {
		exec.SetAuditCallback(tactile.LogAudit)
	}
	return exec
}

var rootCmd = &cobra.Command{
	Use:   "huffdbg",
	Short: "Debug Huff contracts and macros in hevm",
	Long: `huffdbg flattens a Huff contract (or a single macro with chosen stack
inputs) into one compilable unit, deploys it to a local hevm instance and
opens the interactive hevm debugger on it.

Storage can be seeded before execution and calldata can be given raw or
built from a function signature.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		dir, err := workDir()
		if err != nil {
			return err
		}
		cfg, err = config.LoadWorkspace(dir, configPath)
		if err != nil {
			return failure.New(failure.ConfigFailure, "load config", err)
		}
		if err := cfg.Validate(); err != nil {
			return failure.New(failure.ConfigFailure, "config", err)
		}

		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		logger, err = logging.New(level, cfg.Logging.Format, os.Stderr)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logging.Initialize(logger)
		logging.BootDebug("Workspace %s, config %s", dir, configPath)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: current)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Config file, relative to the workspace")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Deploy and print the debug command without launching it")

	rootCmd.AddCommand(debugCmd)
	rootCmd.AddCommand(macroCmd)
	rootCmd.AddCommand(flattenCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		printError(err)
		stop()
		os.Exit(1)
	}
}

// workDir returns the absolute workspace directory.
func workDir() (string, error) {
	if workspace == "" {
		return os.Getwd()
	}
	return filepath.Abs(workspace)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
