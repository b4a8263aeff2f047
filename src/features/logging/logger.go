package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

// ParseLevel maps a config level name to a charmbracelet level. Unknown names are info.
func ParseLevel(name string) log.Level {
	switch name {
	case "debug":
		return log.DebugLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// NewHandler builds the charmbracelet handler used behind slog.
func NewHandler(w io.Writer, level, format string) *log.Logger {
	var formatter log.Formatter
	switch format {
	case "json":
		formatter = log.JSONFormatter
	case "logfmt":
		formatter = log.LogfmtFormatter
	default:
		formatter = log.TextFormatter
	}

	lvl := ParseLevel(level)
	return log.NewWithOptions(w, log.Options{
		ReportCaller:    lvl == log.DebugLevel,
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
		Prefix:          "pew",
		Formatter:       formatter,
		Level:           lvl,
	})
}

// SetupLogger returns the slog logger used by every package.
func SetupLogger(level, format string) *slog.Logger {
	logger := slog.New(NewHandler(os.Stderr, level, format))
	logger.Debug("Logger initialized", "level", level, "format", format)
	return logger
}
