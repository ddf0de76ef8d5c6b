// Package logging provides categorized logging for huffdbg.
// Every pipeline stage logs through a category so a verbose run can be
// filtered per stage. The backing sink is a zap logger installed once at
// startup; until then all categories are no-ops.
package logging

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot    Category = "boot"    // CLI startup, config loading
	CategorySource  Category = "source"  // Include resolution and file reads
	CategoryFlatten Category = "flatten" // Flattening, macro isolation, storage injection
	CategorySession Category = "session" // Session option merge and derivation
	CategoryTactile Category = "tactile" // External command execution
	CategoryDeploy  Category = "deploy"  // Compiler and simulator passes
	CategoryLaunch  Category = "launch"  // Command persistence and terminal hand-off
)

// Log levels accepted by New.
var validLevels = map[string]zapcore.Level{
	"debug": zapcore.DebugLevel,
	"info":  zapcore.InfoLevel,
	"warn":  zapcore.WarnLevel,
	"error": zapcore.ErrorLevel,
}

// Logger is a category-scoped view over the installed zap logger.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
}

var (
	mu      sync.RWMutex
	base    = zap.NewNop()
	loggers = make(map[Category]*Logger)
)

// New builds a zap logger writing to w. Format is "json" or "console".
func New(level, format string, w io.Writer) (*zap.Logger, error) {
	lvl, ok := validLevels[strings.ToLower(level)]
	if !ok {
		return nil, fmt.Errorf("invalid log level %q (must be debug, info, warn, or error)", level)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	switch format {
	case "json":
		enc = zapcore.NewJSONEncoder(encCfg)
	case "console", "text", "":
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	default:
		return nil, fmt.Errorf("invalid log format %q (must be json or console)", format)
	}

	core := zapcore.NewCore(enc, zapcore.AddSync(w), zap.NewAtomicLevelAt(lvl))
	return zap.New(core), nil
}

// Initialize installs l as the sink for all categories. Passing nil
// restores the no-op logger.
func Initialize(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	mu.Lock()
	defer mu.Unlock()
	base = l
	loggers = make(map[Category]*Logger)
}

// Base returns the installed zap logger.
func Base() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// Sync flushes buffered entries of the installed logger.
func Sync() error {
	return Base().Sync()
}

// Get returns the logger for a category.
func Get(category Category) *Logger {
	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()

	// Double-check after acquiring write lock
	if l, ok := loggers[category]; ok {
		return l
	}
	l := &Logger{
		category: category,
		sugar:    base.With(zap.String("category", string(category))).Sugar(),
	}
	loggers[category] = l
	return l
}

// Debug logs a debug message.
func (l *Logger) Debug(format string, args ...interface{}) {
	l.sugar.Debugf(format, args...)
}

// Info logs an info message.
func (l *Logger) Info(format string, args ...interface{}) {
	l.sugar.Infof(format, args...)
}

// Warn logs a warning message.
func (l *Logger) Warn(format string, args ...interface{}) {
	l.sugar.Warnf(format, args...)
}

// Error logs an error message.
func (l *Logger) Error(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
}

// With returns a logger carrying extra structured key/value pairs.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{category: l.category, sugar: l.sugar.With(keysAndValues...)}
}

// =============================================================================
// Category shorthands
// =============================================================================

func Boot(format string, args ...interface{})      { Get(CategoryBoot).Info(format, args...) }
func BootDebug(format string, args ...interface{}) { Get(CategoryBoot).Debug(format, args...) }

func Source(format string, args ...interface{})      { Get(CategorySource).Info(format, args...) }
func SourceDebug(format string, args ...interface{}) { Get(CategorySource).Debug(format, args...) }

func Flatten(format string, args ...interface{})      { Get(CategoryFlatten).Info(format, args...) }
func FlattenDebug(format string, args ...interface{}) { Get(CategoryFlatten).Debug(format, args...) }

func Session(format string, args ...interface{})      { Get(CategorySession).Info(format, args...) }
func SessionDebug(format string, args ...interface{}) { Get(CategorySession).Debug(format, args...) }

func Tactile(format string, args ...interface{})      { Get(CategoryTactile).Info(format, args...) }
func TactileDebug(format string, args ...interface{}) { Get(CategoryTactile).Debug(format, args...) }
func TactileWarn(format string, args ...interface{})  { Get(CategoryTactile).Warn(format, args...) }
func TactileError(format string, args ...interface{}) { Get(CategoryTactile).Error(format, args...) }

func Deploy(format string, args ...interface{})      { Get(CategoryDeploy).Info(format, args...) }
func DeployDebug(format string, args ...interface{}) { Get(CategoryDeploy).Debug(format, args...) }

func Launch(format string, args ...interface{})      { Get(CategoryLaunch).Info(format, args...) }
func LaunchDebug(format string, args ...interface{}) { Get(CategoryLaunch).Debug(format, args...) }
func LaunchWarn(format string, args ...interface{})  { Get(CategoryLaunch).Warn(format, args...) }

// =============================================================================
// Timers
// =============================================================================

// Timer measures one operation and logs its duration on Stop.
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation
func StartTimer(category Category, operation string) *Timer {
	return &Timer{
		category: category,
		op:       operation,
		start:    time.Now(),
	}
}

// Stop ends the timer and logs the duration
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithInfo ends the timer and logs at info level
func (t *Timer) StopWithInfo() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Info("%s completed in %v", t.op, elapsed)
	return elapsed
}
