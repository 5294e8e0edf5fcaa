package cli

import (
	"io"
	"log/slog"
	"os"

	"github.com/rewritefs/rewritefs/internal/rewrite"
)

// newLogger builds the operator-facing diagnostic stream. Higher
// verbosity lowers the handler's floor into the engine's trace levels.
func newLogger(verbosity int) *slog.Logger {
	return newLoggerTo(os.Stderr, verbosity)
}

func newLoggerTo(w io.Writer, verbosity int) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: rewrite.VerbosityLevel(verbosity),
	}))
}
