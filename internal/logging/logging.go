// Package logging builds the charmbracelet/log logger shared by a process.
package logging

import (
	"io"
	"strings"

	"github.com/charmbracelet/log"

	"gin-gonic-todos/internal/config"
)

// ParseLevel maps a config string to a level, defaulting to info.
func ParseLevel(level string) log.Level {
	switch strings.ToLower(level) {
	case "debug":
		return log.DebugLevel
	case "info":
		return log.InfoLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	case "fatal":
		return log.FatalLevel
	default:
		return log.InfoLevel
	}
}

// ParseFormatter maps a config string to a formatter, defaulting to text.
func ParseFormatter(format string) log.Formatter {
	switch strings.ToLower(format) {
	case "json":
		return log.JSONFormatter
	case "logfmt":
		return log.LogfmtFormatter
	default:
		return log.TextFormatter
	}
}

// New returns a logger writing to w and installs it as the package default,
// so that libraries logging through log.Default pick up the same settings.
func New(w io.Writer, cfg config.LogConfig, prefix string) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{
		Level:           ParseLevel(cfg.Level),
		Formatter:       ParseFormatter(cfg.Format),
		ReportTimestamp: cfg.Timestamps,
		ReportCaller:    cfg.Caller,
		Prefix:          prefix,
	})
	log.SetDefault(logger)
	return logger
}
