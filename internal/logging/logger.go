// Package logging provides config-driven categorized logging for satwatch.
// Logs go to stderr, or to a rotating file when a log file is configured.
// Logging is controlled by debug_mode - when false, every logger is a no-op.
//
// Logs describe what the watcher itself is doing. Findings about the watched
// saturation run are diagnostics and are printed on stdout, not logged.
package logging

import (
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Category represents a log category/subsystem
type Category string

const (
	CategoryBoot       Category = "boot"       // Startup, config, flag resolution
	CategoryConfig     Category = "config"     // Config loading and pattern reloads
	CategoryDecoder    Category = "decoder"    // Line classification
	CategoryTracker    Category = "tracker"    // Iteration accumulation and flushes
	CategoryCycles     Category = "cycles"     // Cycle detection
	CategoryChecker    Category = "checker"    // Suspicious fact patterns
	CategoryAncestry   Category = "ancestry"   // Ancestry reconstruction
	CategoryProvenance Category = "provenance" // Mangle provenance program
	CategoryMetrics    Category = "metrics"    // Prometheus endpoint
	CategoryWatch      Category = "watch"      // Main processing loop
)

// Options mirrors the relevant parts of config.LoggingConfig
// to avoid circular imports
type Options struct {
	DebugMode  bool
	Level      string // debug, info, warn, error
	Format     string // json, text
	File       string // empty = stderr
	Categories map[string]bool

	// Rotation, only used with File
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Logger is a category-scoped printf-style logger.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
	base     *zap.Logger
}

var (
	mu      sync.RWMutex
	root    = zap.NewNop()
	opts    Options
	loggers = make(map[Category]*Logger)
	rotator *lumberjack.Logger
)

// Initialize builds the root zap logger from options. Calling it again
// replaces the previous configuration; open log files are closed first.
func Initialize(o Options) error {
	mu.Lock()
	defer mu.Unlock()

	closeLocked()
	opts = o
	loggers = make(map[Category]*Logger)

	if !o.DebugMode {
		root = zap.NewNop()
		return nil
	}

	levelName := o.Level
	if levelName == "" {
		levelName = "info"
	}
	level, err := zapcore.ParseLevel(levelName)
	if err != nil {
		root = zap.NewNop()
		return fmt.Errorf("invalid log level %s: %w", levelName, err)
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "lvl",
		NameKey:        "cat",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeName:     zapcore.FullNameEncoder,
	}

	var encoder zapcore.Encoder
	if o.Format == "json" {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	var sink zapcore.WriteSyncer
	if o.File != "" {
		rotator = &lumberjack.Logger{
			Filename:   o.File,
			MaxSize:    o.MaxSizeMB,
			MaxBackups: o.MaxBackups,
			MaxAge:     o.MaxAgeDays,
			Compress:   o.Compress,
		}
		sink = zapcore.AddSync(rotator)
	} else {
		sink = zapcore.Lock(os.Stderr)
	}

	root = zap.New(zapcore.NewCore(encoder, sink, level))
	return nil
}

// IsDebugMode returns whether logging is enabled at all
func IsDebugMode() bool {
	mu.RLock()
	defer mu.RUnlock()
	return opts.DebugMode
}

// IsCategoryEnabled returns whether a specific category is enabled
func IsCategoryEnabled(category Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	return categoryEnabledLocked(category)
}

func categoryEnabledLocked(category Category) bool {
	if !opts.DebugMode {
		return false
	}
	if opts.Categories == nil {
		return true // All enabled by default in debug mode
	}
	enabled, exists := opts.Categories[string(category)]
	if !exists {
		return true
	}
	return enabled
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger if debug mode or the category is disabled.
func Get(category Category) *Logger {
	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()

	if l, ok := loggers[category]; ok {
		return l
	}

	base := zap.NewNop()
	if categoryEnabledLocked(category) {
		base = root.Named(string(category))
	}
	l := &Logger{category: category, base: base, sugar: base.Sugar()}
	loggers[category] = l
	return l
}

// Zap exposes the category's structured zap logger.
func (l *Logger) Zap() *zap.Logger {
	return l.base
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.sugar.Debugf(format, args...)
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	l.sugar.Infof(format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.sugar.Warnf(format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
}

// Sync flushes buffered entries.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = root.Sync()
}

// CloseAll flushes and closes the log file (call at shutdown)
func CloseAll() {
	mu.Lock()
	defer mu.Unlock()
	closeLocked()
	root = zap.NewNop()
	loggers = make(map[Category]*Logger)
}

func closeLocked() {
	_ = root.Sync()
	if rotator != nil {
		_ = rotator.Close()
		rotator = nil
	}
}

// =============================================================================
// CONVENIENCE FUNCTIONS - no-ops if the category is disabled
// =============================================================================

// Boot logs to the boot category
func Boot(format string, args ...interface{}) {
	Get(CategoryBoot).Info(format, args...)
}

// BootDebug logs debug to the boot category
func BootDebug(format string, args ...interface{}) {
	Get(CategoryBoot).Debug(format, args...)
}

// Config logs to the config category
func Config(format string, args ...interface{}) {
	Get(CategoryConfig).Info(format, args...)
}

// Decoder logs debug to the decoder category; it runs once per input line.
func Decoder(format string, args ...interface{}) {
	Get(CategoryDecoder).Debug(format, args...)
}

// Tracker logs to the tracker category
func Tracker(format string, args ...interface{}) {
	Get(CategoryTracker).Info(format, args...)
}

// TrackerDebug logs debug to the tracker category
func TrackerDebug(format string, args ...interface{}) {
	Get(CategoryTracker).Debug(format, args...)
}

// Cycles logs to the cycles category
func Cycles(format string, args ...interface{}) {
	Get(CategoryCycles).Info(format, args...)
}

// CyclesDebug logs debug to the cycles category
func CyclesDebug(format string, args ...interface{}) {
	Get(CategoryCycles).Debug(format, args...)
}

// Checker logs to the checker category
func Checker(format string, args ...interface{}) {
	Get(CategoryChecker).Info(format, args...)
}

// Ancestry logs to the ancestry category
func Ancestry(format string, args ...interface{}) {
	Get(CategoryAncestry).Info(format, args...)
}

// Provenance logs to the provenance category
func Provenance(format string, args ...interface{}) {
	Get(CategoryProvenance).Info(format, args...)
}

// Watch logs to the watch category
func Watch(format string, args ...interface{}) {
	Get(CategoryWatch).Info(format, args...)
}

// WatchDebug logs debug to the watch category
func WatchDebug(format string, args ...interface{}) {
	Get(CategoryWatch).Debug(format, args...)
}
