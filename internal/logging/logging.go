// Package logging provides the structured logger shared by every component
// of the orders service.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Fields carries structured key/value pairs attached to a log entry.
type Fields map[string]interface{}

// Config holds logging configuration.
type Config struct {
	Level      string
	Format     string // "json" or "console"
	File       bool
	FilePath   string
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
}

// DefaultConfig returns the configuration used until Configure is called.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "json",
		FilePath:   filepath.Join("logs", "orders.log"),
		MaxSize:    100,
		MaxBackups: 7,
		MaxAge:     30,
	}
}

var (
	mu   sync.RWMutex
	root = zerolog.New(os.Stdout).With().Timestamp().Logger()
)

// Configure replaces the root logger every LoggerV2 derives from.
// Loggers created before the call keep their previous output.
func Configure(cfg Config) {
	var writers []io.Writer

	if cfg.Format == "console" {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	} else {
		writers = append(writers, os.Stdout)
	}

	if cfg.File && cfg.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err == nil {
			writers = append(writers, &lumberjack.Logger{
				Filename:   cfg.FilePath,
				MaxSize:    cfg.MaxSize,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAge,
				Compress:   true,
			})
		}
	}

	var w io.Writer = writers[0]
	if len(writers) > 1 {
		w = zerolog.MultiLevelWriter(writers...)
	}

	SetOutput(w)
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))
}

// SetOutput points the root logger at w.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	root = zerolog.New(w).With().Timestamp().Logger()
}

func rootLogger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// LoggerV2 is a component-scoped structured logger.
type LoggerV2 struct {
	component string
	zl        zerolog.Logger
}

// NewLoggerV2 creates a logger tagged with the given component name.
func NewLoggerV2(component string) *LoggerV2 {
	return &LoggerV2{
		component: component,
		zl:        rootLogger().With().Str("component", component).Logger(),
	}
}

// With returns a child logger that always carries fields.
func (l *LoggerV2) With(fields Fields) *LoggerV2 {
	return &LoggerV2{
		component: l.component,
		zl:        l.zl.With().Fields(map[string]interface{}(fields)).Logger(),
	}
}

// Debug logs at debug level.
func (l *LoggerV2) Debug(msg string, fields ...Fields) {
	write(l.zl.Debug(), msg, fields)
}

// Info logs at info level.
func (l *LoggerV2) Info(msg string, fields ...Fields) {
	write(l.zl.Info(), msg, fields)
}

// Warn logs at warn level.
func (l *LoggerV2) Warn(msg string, fields ...Fields) {
	write(l.zl.Warn(), msg, fields)
}

// Error logs at error level.
func (l *LoggerV2) Error(msg string, fields ...Fields) {
	write(l.zl.Error(), msg, fields)
}

// Fatal logs at fatal level and exits the process.
func (l *LoggerV2) Fatal(msg string, fields ...Fields) {
	write(l.zl.Fatal(), msg, fields)
}

func write(ev *zerolog.Event, msg string, fields []Fields) {
	for _, f := range fields {
		ev = ev.Fields(map[string]interface{}(f))
	}
	ev.Msg(msg)
}

// Info logs through the root logger.
func Info(msg string, fields ...Fields) {
	l := rootLogger()
	write(l.Info(), msg, fields)
}

// Infof logs a formatted message through the root logger.
func Infof(format string, args ...interface{}) {
	l := rootLogger()
	l.Info().Msg(fmt.Sprintf(format, args...))
}
