// Package logging builds the slog loggers shared by the module. It must not
// depend on the OCCA packages; the host kernels import it.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// NewLogger creates the application logger writing text records to stderr,
// keeping stdout for results. The "error" key is shortened to "err".
func NewLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == "error" {
				a.Key = "err"
			}
			return a
		},
	}))
}

// NewNop returns a logger that discards everything
func NewNop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
