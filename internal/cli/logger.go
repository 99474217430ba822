package cli

import (
	"io"
	"log/slog"
)

// NewLogger returns a text logger for diagnostics on w. The default level
// is Warn; each verbose step lowers it (Info, then Debug) and quiet raises
// it to Error.
func NewLogger(w io.Writer, verbose int, quiet bool) *slog.Logger {
	level := slog.LevelWarn
	switch {
	case quiet:
		level = slog.LevelError
	case verbose >= 2:
		level = slog.LevelDebug
	case verbose == 1:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
