// Package logging provides the process-wide structured logger.
package logging

import (
	"log/slog"
	"os"
)

var (
	logLevel = new(slog.LevelVar)
	logger   *slog.Logger
)

func init() {
	logLevel.Set(parseLogLevel(os.Getenv("SENSORVIZ_DEBUG")))

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	logger = slog.New(handler)
}

// Logger returns the global logger instance.
func Logger() *slog.Logger {
	return logger
}

// For returns a logger tagged with a component name.
func For(component string) *slog.Logger {
	return logger.With("component", component)
}

// SetLogLevel sets the global log level.
func SetLogLevel(level slog.Level) {
	logLevel.Set(level)
}

// parseLogLevel converts SENSORVIZ_DEBUG values to slog levels.
// Mapping: 0=Error, 1=Warn, 2=Info, 3=Debug. Anything else is Warn.
func parseLogLevel(envVal string) slog.Level {
	switch envVal {
	case "0":
		return slog.LevelError
	case "1":
		return slog.LevelWarn
	case "2":
		return slog.LevelInfo
	case "3":
		return slog.LevelDebug
	default:
		return slog.LevelWarn
	}
}
