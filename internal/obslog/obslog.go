// Package obslog wraps log/slog the way the teacher threads a
// package-level *slog.Logger through command context (cmd/bd's
// daemonLogger wrapper, newSilentLogger for tests).
package obslog

import (
	"io"
	"log/slog"
)

// New constructs a structured JSON logger writing to w at the given
// level, with component/op_id/schema_id promoted to top-level fields via
// With(...) at call sites rather than baked in here.
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewText mirrors New but with slog's text handler, used for
// human-readable CLI stderr output (the teacher's `cmd/bd` default).
func NewText(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewSilent discards all output, mirroring the teacher's
// newSilentLogger() used in tests that don't want log noise.
func NewSilent() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// ForComponent returns a logger with a fixed "component" field, the
// teacher's `log.With("component", ...)` idiom.
func ForComponent(base *slog.Logger, component string) *slog.Logger {
	return base.With("component", component)
}

// ForOp returns a logger scoped to one operator-ledger commit, attaching
// op_id (and, when non-empty, schema_id) so every log line emitted while
// applying a SemanticOp is correlatable.
func ForOp(base *slog.Logger, opID, schemaID string) *slog.Logger {
	l := base.With("op_id", opID)
	if schemaID != "" {
		l = l.With("schema_id", schemaID)
	}
	return l
}
