package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

func Init() {
	slog.SetDefault(New(os.Stderr, os.Getenv("LOG_LEVEL")))
}

// New builds the JSON logger used across the agent. level "debug" enables
// debug output; anything else logs at info.
func New(w io.Writer, level string) *slog.Logger {
	lvl := slog.LevelInfo
	if strings.EqualFold(level, "debug") {
		lvl = slog.LevelDebug
	}

	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: lvl,
	}))
}
