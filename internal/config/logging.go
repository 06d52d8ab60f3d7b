package config

import (
	"io"
	"log/slog"
	"strings"
)

// LogLevel enumerates supported logging levels.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

var logLevels = map[string]LogLevel{
	"debug":   LogLevelDebug,
	"info":    LogLevelInfo,
	"warn":    LogLevelWarn,
	"warning": LogLevelWarn,
	"error":   LogLevelError,
}

// NormalizeLogLevel case-folds raw; empty input yields info and unknown input
// is returned unchanged so validation can report it.
func NormalizeLogLevel(raw string) LogLevel {
	key := strings.ToLower(strings.TrimSpace(raw))
	if key == "" {
		return LogLevelInfo
	}
	if lvl, ok := logLevels[key]; ok {
		return lvl
	}
	return LogLevel(raw)
}

// Slog maps the level to slog.
func (l LogLevel) Slog() slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LogFormat enumerates supported log output formats.
type LogFormat string

const (
	LogFormatJSON LogFormat = "json"
	LogFormatText LogFormat = "text"
)

// NormalizeLogFormat case-folds raw; empty input yields text.
func NormalizeLogFormat(raw string) LogFormat {
	switch key := strings.ToLower(strings.TrimSpace(raw)); key {
	case "":
		return LogFormatText
	case "json", "text":
		return LogFormat(key)
	}
	return LogFormat(raw)
}

// NewLogger builds a slog logger writing to w. Verbose forces debug level.
func (l LoggingConfig) NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level := l.Level.Slog()
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if l.Format == LogFormatJSON {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h)
}
