package app

import (
	"log/slog"
	"os"
	"strings"
)

// NewLogger builds the process logger. LOG_FORMAT=json selects JSON output and
// LOG_LEVEL sets the minimum level. Every record carries the service name and
// environment.
func NewLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true, Level: parseLevel("")}
	var handler slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	env := ""
	if cfg != nil {
		opts.Level = parseLevel(cfg.LogLevel)
		if cfg.LogFormat == "json" {
			handler = slog.NewJSONHandler(os.Stdout, opts)
		}
		env = cfg.AppEnv
	}
	return slog.New(handler).With(slog.String("service", "usagereg"), slog.String("env", env))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
