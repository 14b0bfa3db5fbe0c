package utils

import (
	"io"
	"log/slog"
)

// CloseWithLog closes c and logs, rather than returns, any failure. It is
// meant for deferred cleanup where a close error must not mask the primary one.
func CloseWithLog(c io.Closer) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		slog.Warn("failed to close resource", "error", err.Error())
	}
}
