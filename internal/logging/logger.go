package logging

import (
	"io"
	"log/slog"
	"os"
)

// New builds the logger every parley process shares. Output goes to
// stderr so stdout stays free for transcripts and API responses, and
// the "error" attribute is shortened to "err" to keep lines compact.
func New(level slog.Level) *slog.Logger {
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

// NewNop returns a logger that discards everything, for tests and
// callers that opt out of logging.
func NewNop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
