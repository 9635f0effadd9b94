package logging

import (
	"io"
	"os"
	"strings"

	"log/slog"

	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger builds a JSON slog logger. When filePath is non-empty, log
// lines also go to a size-rotated file.
func NewLogger(level, serviceName, env, filePath string) *slog.Logger {
	lvl := parseLevel(level)

	var writer io.Writer = os.Stdout
	if filePath != "" {
		writer = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   filePath,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		})
	}

	h := slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: lvl})
	logger := slog.New(h)
	return logger.With(
		slog.String("service", serviceName),
		slog.String("env", env),
	)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
