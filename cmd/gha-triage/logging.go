package main

import (
	"io"
	"log/slog"
)

// levelTrace is enabled by -v 4.
const levelTrace = slog.LevelDebug - 4

// verbosityLevel maps 0..4 to error, warn, info, debug and trace.
func verbosityLevel(v int) slog.Level {
	switch {
	case v <= 0:
		return slog.LevelError
	case v == 1:
		return slog.LevelWarn
	case v == 2:
		return slog.LevelInfo
	case v == 3:
		return slog.LevelDebug
	default:
		return levelTrace
	}
}

func newLogger(w io.Writer, verbosity int) *slog.Logger {
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: verbosityLevel(verbosity)}))
	if verbosity > 4 {
		logger.Warn("invalid verbosity level, using trace", "verbosity", verbosity)
	}
	return logger
}
