package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/killallgit/strand/pkg/config"
)

// LogLevel represents the logging level
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

// String returns the string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// Logger provides a unified logging interface
type Logger struct {
	level       LogLevel
	logger      *log.Logger
	file        *os.File
	component   string
	initialized bool
}

var defaultLogger *Logger

// Init initializes the logger with configuration from global config
func Init() error {
	if defaultLogger != nil && defaultLogger.initialized {
		return nil // Already initialized
	}

	settings := config.Get()
	level := parseLevel(settings.Logging.Level)
	logFile := settings.Logging.LogFile
	preserve := settings.Logging.Preserve

	logger, err := New(level, logFile, preserve)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	defaultLogger = logger
	return nil
}

// New creates a new Logger instance
func New(level LogLevel, logFile string, preserve bool) (*Logger, error) {
	logPath := logFile
	if !filepath.IsAbs(logPath) {
		logFilename := filepath.Base(logPath)
		logPath = config.BuildSettingsPath(logFilename)
	}

	logDir := filepath.Dir(logPath)
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	var file *os.File
	var err error
	if preserve {
		file, err = os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	} else {
		file, err = os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	goLogger := log.New(file, "", log.LstdFlags)

	return &Logger{
		level:       level,
		logger:      goLogger,
		file:        file,
		initialized: true,
	}, nil
}

// WithComponent returns a logger scoped to a named component. Component
// loggers share the default logger's output and level.
func WithComponent(component string) *Logger {
	base := defaultLogger
	if base == nil {
		// No-op base so early callers never panic; output goes nowhere
		// until Init runs
		base = &Logger{level: LevelInfo, logger: log.New(io.Discard, "", log.LstdFlags)}
	}
	return &Logger{
		level:     base.level,
		logger:    base.logger,
		component: component,
	}
}

// Close closes the log file
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// parseLevel converts a string level to LogLevel
func parseLevel(levelStr string) LogLevel {
	switch levelStr {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	case "fatal":
		return LevelFatal
	default:
		return LevelInfo
	}
}

// shouldLog determines if a message should be logged based on level
func (l *Logger) shouldLog(level LogLevel) bool {
	return level >= l.level
}

// log writes a log message if the level is appropriate. Trailing
// arguments are alternating key-value pairs appended as key=value.
func (l *Logger) log(level LogLevel, message string, keysAndValues ...interface{}) {
	if !l.shouldLog(level) {
		return
	}

	var sb strings.Builder
	if l.component != "" {
		sb.WriteString("[")
		sb.WriteString(l.component)
		sb.WriteString("] ")
	}
	sb.WriteString(message)

	for i := 0; i+1 < len(keysAndValues); i += 2 {
		sb.WriteString(fmt.Sprintf(" %v=%v", keysAndValues[i], keysAndValues[i+1]))
	}
	if len(keysAndValues)%2 == 1 {
		sb.WriteString(fmt.Sprintf(" %v", keysAndValues[len(keysAndValues)-1]))
	}

	l.logger.Printf("[%s] %s", level.String(), sb.String())

	// Also write to stderr for errors and fatal messages
	if level >= LevelError {
		fmt.Fprintf(os.Stderr, "[%s] %s\n", level.String(), sb.String())
	}
}

// Debug logs a debug message
func (l *Logger) Debug(message string, keysAndValues ...interface{}) {
	l.log(LevelDebug, message, keysAndValues...)
}

// Info logs an info message
func (l *Logger) Info(message string, keysAndValues ...interface{}) {
	l.log(LevelInfo, message, keysAndValues...)
}

// Warn logs a warning message
func (l *Logger) Warn(message string, keysAndValues ...interface{}) {
	l.log(LevelWarn, message, keysAndValues...)
}

// Error logs an error message
func (l *Logger) Error(message string, keysAndValues ...interface{}) {
	l.log(LevelError, message, keysAndValues...)
}

// Fatal logs a fatal message and exits
func (l *Logger) Fatal(message string, keysAndValues ...interface{}) {
	l.log(LevelFatal, message, keysAndValues...)
	os.Exit(1)
}

// Package-level convenience functions using the default logger

// Debug logs a debug message using the default logger
func Debug(message string, keysAndValues ...interface{}) {
	if defaultLogger == nil {
		return
	}
	defaultLogger.Debug(message, keysAndValues...)
}

// Info logs an info message using the default logger
func Info(message string, keysAndValues ...interface{}) {
	if defaultLogger == nil {
		return
	}
	defaultLogger.Info(message, keysAndValues...)
}

// Warn logs a warning message using the default logger
func Warn(message string, keysAndValues ...interface{}) {
	if defaultLogger == nil {
		return
	}
	defaultLogger.Warn(message, keysAndValues...)
}

// Error logs an error message using the default logger
func Error(message string, keysAndValues ...interface{}) {
	if defaultLogger == nil {
		return
	}
	defaultLogger.Error(message, keysAndValues...)
}

// SetOutput sets the output writer for the logger (useful for testing)
func SetOutput(w io.Writer) {
	if defaultLogger != nil && defaultLogger.logger != nil {
		defaultLogger.logger.SetOutput(w)
	}
}

// Close closes the default logger
func Close() error {
	if defaultLogger != nil {
		return defaultLogger.Close()
	}
	return nil
}
