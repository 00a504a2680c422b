// Package logging provides config-driven categorized logging for hearsay on top of zap.
// Each category is a named child of one zap core. Category logging is controlled by
// debug_mode in the logging config (or --verbose): when false, category loggers are no-ops.
package logging

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"hearsay/internal/config"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot         Category = "boot"         // Boot/initialization
	CategoryGrammar      Category = "grammar"      // Grammar loading, sugar expansion, rule edits
	CategoryMorph        Category = "morph"        // Morphology tables and derivation
	CategoryParser       Category = "parser"       // Earley chart and ranking
	CategoryLexicon      Category = "lexicon"      // Vocabulary, typo fixes, category inference
	CategoryPerception   Category = "perception"   // Speech-act classification
	CategoryArticulation Category = "articulation" // Envelope and surface strings
	CategoryStore        Category = "store"        // Learned-lexicon journal
	CategoryWatcher      Category = "watcher"      // Grammar hot reload
	CategoryCLI          Category = "cli"          // Command line and console
)

// Logger wraps a zap sugared logger with a category
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
}

var (
	loggers   = make(map[Category]*Logger)
	loggersMu sync.RWMutex
	base      = zap.NewNop()
	settings  config.LoggingConfig
	configMu  sync.RWMutex
)

// Initialize builds the shared zap core from the logging config and returns it.
// verbose forces debug level and enables every category.
func Initialize(lc config.LoggingConfig, verbose bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if lc.Format != "json" {
		zc.Encoding = "console"
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	zc.Sampling = nil

	level, err := parseLevel(lc.Level)
	if err != nil {
		return nil, err
	}
	if verbose {
		level = zapcore.DebugLevel
		lc.DebugMode = true
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	if lc.File != "" {
		zc.OutputPaths = []string{lc.File}
	}

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	Install(logger, lc)

	Boot("logging initialized: level=%s format=%s debug_mode=%v", level, zc.Encoding, lc.DebugMode)
	if len(lc.Categories) > 0 {
		enabled := 0
		for cat, on := range lc.Categories {
			if on {
				enabled++
			}
			BootDebug("category %q: %v", cat, on)
		}
		Boot("enabled categories: %d/%d", enabled, len(lc.Categories))
	}

	return logger, nil
}

// Install replaces the shared core. Tests use it with zaptest/observer cores.
func Install(logger *zap.Logger, lc config.LoggingConfig) {
	configMu.Lock()
	base = logger
	settings = lc
	configMu.Unlock()

	loggersMu.Lock()
	loggers = make(map[Category]*Logger)
	loggersMu.Unlock()
}

func parseLevel(s string) (zapcore.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	}
	return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", s)
}

// IsCategoryEnabled returns whether a specific category is enabled
func IsCategoryEnabled(category Category) bool {
	configMu.RLock()
	defer configMu.RUnlock()
	return settings.IsCategoryEnabled(string(category))
}

// Get returns the logger of category, creating it on first use.
// Disabled categories get a no-op logger.
func Get(category Category) *Logger {
	if !IsCategoryEnabled(category) {
		return &Logger{category: category}
	}

	loggersMu.RLock()
	if l, ok := loggers[category]; ok {
		loggersMu.RUnlock()
		return l
	}
	loggersMu.RUnlock()

	loggersMu.Lock()
	defer loggersMu.Unlock()

	if l, ok := loggers[category]; ok {
		return l
	}

	configMu.RLock()
	named := base.Named(string(category))
	configMu.RUnlock()

	l := &Logger{category: category, sugar: named.Sugar()}
	loggers[category] = l
	return l
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Debugf(format, args...)
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Infof(format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Warnf(format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Errorf(format, args...)
}

// With returns a logger carrying structured key-value context.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	if l.sugar == nil {
		return l
	}
	return &Logger{category: l.category, sugar: l.sugar.With(keysAndValues...)}
}

// Sync flushes the shared core (call at shutdown)
func Sync() {
	configMu.RLock()
	defer configMu.RUnlock()
	_ = base.Sync()
}

// =============================================================================
// CATEGORY SHORTHANDS
// =============================================================================

// Boot logs to the boot category
func Boot(format string, args ...interface{}) {
	Get(CategoryBoot).Info(format, args...)
}

// BootDebug logs debug to the boot category
func BootDebug(format string, args ...interface{}) {
	Get(CategoryBoot).Debug(format, args...)
}

// Grammar logs to the grammar category
func Grammar(format string, args ...interface{}) {
	Get(CategoryGrammar).Info(format, args...)
}

// GrammarDebug logs debug to the grammar category
func GrammarDebug(format string, args ...interface{}) {
	Get(CategoryGrammar).Debug(format, args...)
}

// GrammarWarn logs a warning to the grammar category
func GrammarWarn(format string, args ...interface{}) {
	Get(CategoryGrammar).Warn(format, args...)
}

// Morph logs to the morph category
func Morph(format string, args ...interface{}) {
	Get(CategoryMorph).Info(format, args...)
}

// MorphWarn logs a warning to the morph category
func MorphWarn(format string, args ...interface{}) {
	Get(CategoryMorph).Warn(format, args...)
}

// Parser logs to the parser category
func Parser(format string, args ...interface{}) {
	Get(CategoryParser).Info(format, args...)
}

// ParserDebug logs debug to the parser category
func ParserDebug(format string, args ...interface{}) {
	Get(CategoryParser).Debug(format, args...)
}

// Lexicon logs to the lexicon category
func Lexicon(format string, args ...interface{}) {
	Get(CategoryLexicon).Info(format, args...)
}

// LexiconDebug logs debug to the lexicon category
func LexiconDebug(format string, args ...interface{}) {
	Get(CategoryLexicon).Debug(format, args...)
}

// Perception logs to the perception category
func Perception(format string, args ...interface{}) {
	Get(CategoryPerception).Info(format, args...)
}

// PerceptionDebug logs debug to the perception category
func PerceptionDebug(format string, args ...interface{}) {
	Get(CategoryPerception).Debug(format, args...)
}

// PerceptionError logs an error to the perception category
func PerceptionError(format string, args ...interface{}) {
	Get(CategoryPerception).Error(format, args...)
}

// Articulation logs to the articulation category
func Articulation(format string, args ...interface{}) {
	Get(CategoryArticulation).Info(format, args...)
}

// Store logs to the store category
func Store(format string, args ...interface{}) {
	Get(CategoryStore).Info(format, args...)
}

// StoreError logs an error to the store category
func StoreError(format string, args ...interface{}) {
	Get(CategoryStore).Error(format, args...)
}

// Watcher logs to the watcher category
func Watcher(format string, args ...interface{}) {
	Get(CategoryWatcher).Info(format, args...)
}

// WatcherWarn logs a warning to the watcher category
func WatcherWarn(format string, args ...interface{}) {
	Get(CategoryWatcher).Warn(format, args...)
}

// =============================================================================
// TIMERS
// =============================================================================

// Timer measures one operation.
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

// StopWithThreshold warns when the operation took longer than threshold.
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warn("%s took %v (threshold: %v)", t.op, elapsed, threshold)
	} else {
		Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	}
	return elapsed
}
