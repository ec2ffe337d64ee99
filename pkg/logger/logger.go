// Package logger provides the structured logging facade used across the
// echoryn realm's conductor runtime. It wraps logrus so every package logs
// through one configuration point instead of reaching for stdlib log.
package logger

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
)

// Config configures the default logger.
type Config struct {
	Level      string `json:"level" mapstructure:"level"`
	Format     string `json:"format" mapstructure:"format"` // "json" | "text"
	File       string `json:"file" mapstructure:"file"`
	DisableTTY bool   `json:"disable_tty" mapstructure:"disable_tty"`
}

var (
	mu      sync.RWMutex
	std     = logrus.StandardLogger()
	logFile *os.File
)

func init() {
	std.SetLevel(logrus.InfoLevel)
	std.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}

// Init configures the default logger from Config.
func Init(cfg Config) error {
	mu.Lock()
	defer mu.Unlock()

	lvl, err := ParseLevel(cfg.Level)
	if err != nil {
		return err
	}
	std.SetLevel(lvl)

	if cfg.Format == "json" {
		std.SetFormatter(&logrus.JSONFormatter{})
	} else {
		std.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if cfg.File != "" {
		f, err := OpenLogFile(cfg.File)
		if err != nil {
			return err
		}
		std.SetOutput(f)
	}
	return nil
}

// InitLog opens path and directs all subsequent logging there, matching the
// teacher's `logger.InitLog(logPath)` call from cmd/golem.
func InitLog(path string) error {
	f, err := OpenLogFile(path)
	if err != nil {
		return err
	}
	mu.Lock()
	std.SetOutput(f)
	mu.Unlock()
	return nil
}

// OpenLogFile opens (creating parent dirs as needed) path for append.
func OpenLogFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	mu.Lock()
	logFile = f
	mu.Unlock()
	return f, nil
}

// FlushLog syncs the active log file, if any; the file stays open.
func FlushLog() {
	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		_ = logFile.Sync()
	}
}

// Truncate clears the active log file in place.
func Truncate() error {
	mu.RLock()
	f := logFile
	mu.RUnlock()
	if f == nil {
		return nil
	}
	return f.Truncate(0)
}

// ParseLevel parses a level string, defaulting to info for empty input.
func ParseLevel(s string) (logrus.Level, error) {
	if s == "" {
		return logrus.InfoLevel, nil
	}
	return logrus.ParseLevel(s)
}

// Default returns the process-wide logrus logger.
func Default() *logrus.Logger { return std }

// Logger is a named sub-logger, constructed via `logger.Named(...)` or
// `logger.With(...)`.
type Logger struct {
	entry *logrus.Entry
}

// Named returns a Logger tagged with the given module/component name.
func Named(name string) *Logger {
	return &Logger{entry: std.WithField("module", name)}
}

// With returns a Logger with additional structured fields attached.
func With(fields LogFields) *Logger {
	return &Logger{entry: std.WithFields(logrus.Fields(fields))}
}

// WithLogFields returns a derived Logger with extra fields merged in.
func (l *Logger) WithLogFields(fields LogFields) *Logger {
	return &Logger{entry: l.entry.WithFields(logrus.Fields(fields))}
}

// LogFields is a structured field set attached to a log line.
type LogFields map[string]interface{}

func (l *Logger) Debug(format string, args ...interface{}) { l.entry.Debugf(format, args...) }
func (l *Logger) Info(format string, args ...interface{})  { l.entry.Infof(format, args...) }
func (l *Logger) Warn(format string, args ...interface{})  { l.entry.Warnf(format, args...) }
func (l *Logger) Error(format string, args ...interface{}) { l.entry.Errorf(format, args...) }

// --- package-level convenience functions ---

func Debug(format string, args ...interface{}) { std.Debugf(format, args...) }
func Info(format string, args ...interface{})  { std.Infof(format, args...) }
func Warn(format string, args ...interface{})  { std.Warnf(format, args...) }
func Error(format string, args ...interface{}) { std.Errorf(format, args...) }
func Fatalf(format string, args ...interface{}) { std.Fatalf(format, args...) }
func Printf(format string, args ...interface{}) { std.Printf(format, args...) }
func Println(args ...interface{})               { std.Println(args...) }

// X-suffixed variants tag the log line with an explicit module name, the
// convention used throughout internal/hivemind/service/agents for
// component-scoped logging (e.g. logger.InfoX(pkg.ModuleName, ...)).
func DebugX(module, format string, args ...interface{}) {
	std.WithField("module", module).Debugf(format, args...)
}
func InfoX(module, format string, args ...interface{}) {
	std.WithField("module", module).Infof(format, args...)
}
func WarnX(module, format string, args ...interface{}) {
	std.WithField("module", module).Warnf(format, args...)
}
func ErrorX(module, format string, args ...interface{}) {
	std.WithField("module", module).Errorf(format, args...)
}

type ctxKey struct{}

// InfoContext and ErrorContext log with fields pulled from a context-scoped
// Logger, falling back to the default logger.
func InfoContext(ctx context.Context, format string, args ...interface{}) {
	fromContext(ctx).Infof(format, args...)
}

func ErrorContext(ctx context.Context, format string, args ...interface{}) {
	fromContext(ctx).Errorf(format, args...)
}

// WithContext attaches a Logger to ctx for downstream InfoContext/ErrorContext calls.
func WithContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

func fromContext(ctx context.Context) *logrus.Entry {
	if l, ok := ctx.Value(ctxKey{}).(*Logger); ok && l != nil {
		return l.entry
	}
	return logrus.NewEntry(std)
}

// SetOutput redirects the default logger's output (used by tests).
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	std.SetOutput(w)
}
