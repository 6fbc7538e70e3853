package log

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"
)

// DefaultMaxValueLen is the default maximum length, in runes, of a string
// attribute value.
const DefaultMaxValueLen = 160

// MaskValue is the string used to replace sensitive values.
const MaskValue = "***REDACTED***"

// LineSeparator replaces newlines in collapsed values.
const LineSeparator = " ⏎ "

// Ellipsis marks a truncated value.
const Ellipsis = "…"

// sensitiveKeywords mark attribute keys whose values are masked. Transformer
// environments are logged on failure and may carry credentials.
var sensitiveKeywords = []string{
	"password", "passwd", "secret", "token", "credential", "api_key", "apikey",
}

// SnippetHandler wraps an slog.Handler and shortens string attributes so
// that source text and compiler output stay readable on one log line.
type SnippetHandler struct {
	// handler is the underlying slog handler that receives shortened records.
	handler slog.Handler

	// maxLen is the maximum value length in runes; zero disables truncation.
	maxLen int
}

// NewSnippetHandler creates a SnippetHandler wrapping handler.
// If handler is nil, slog.Default().Handler() is used. A non-positive
// maxLen disables truncation; newlines are still collapsed.
func NewSnippetHandler(handler slog.Handler, maxLen int) *SnippetHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	if maxLen < 0 {
		maxLen = 0
	}
	return &SnippetHandler{handler: handler, maxLen: maxLen}
}

// Enabled reports whether the handler handles records at the given level.
func (h *SnippetHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle shortens the record's attributes and passes it to the underlying handler.
func (h *SnippetHandler) Handle(ctx context.Context, r slog.Record) error {
	shortened := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)

	r.Attrs(func(a slog.Attr) bool {
		shortened.AddAttrs(h.shortenAttr(a))
		return true
	})

	return h.handler.Handle(ctx, shortened)
}

// WithAttrs returns a new handler with the given attributes added.
func (h *SnippetHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	shortened := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		shortened[i] = h.shortenAttr(a)
	}
	return &SnippetHandler{handler: h.handler.WithAttrs(shortened), maxLen: h.maxLen}
}

// WithGroup returns a new handler with the given group name.
func (h *SnippetHandler) WithGroup(name string) slog.Handler {
	return &SnippetHandler{handler: h.handler.WithGroup(name), maxLen: h.maxLen}
}

// shortenAttr shortens a single attribute, recursively handling groups.
func (h *SnippetHandler) shortenAttr(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()

	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		shortened := make([]slog.Attr, len(attrs))
		for i, groupAttr := range attrs {
			shortened[i] = h.shortenAttr(groupAttr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(shortened...)}
	}

	if isSensitiveKey(a.Key) {
		return slog.String(a.Key, MaskValue)
	}

	switch a.Value.Kind() {
	case slog.KindString:
		return slog.String(a.Key, Snippet(a.Value.String(), h.maxLen))
	case slog.KindAny:
		if err, ok := a.Value.Any().(error); ok {
			return slog.String(a.Key, Snippet(err.Error(), h.maxLen))
		}
	}
	return a
}

// isSensitiveKey reports whether key names a secret.
func isSensitiveKey(key string) bool {
	key = strings.ToLower(key)
	for _, keyword := range sensitiveKeywords {
		if strings.Contains(key, keyword) {
			return true
		}
	}
	return false
}

// Snippet collapses s to a single line and truncates it to maxLen runes,
// ellipsis included. A non-positive maxLen only collapses.
func Snippet(s string, maxLen int) string {
	if strings.ContainsAny(s, "\r\n") {
		s = strings.ReplaceAll(s, "\r\n", "\n")
		s = strings.TrimRight(s, "\n")
		s = strings.ReplaceAll(s, "\n", LineSeparator)
	}
	if maxLen <= 0 || utf8.RuneCountInString(s) <= maxLen {
		return s
	}

	keep := maxLen - utf8.RuneCountInString(Ellipsis)
	if keep <= 0 {
		return Ellipsis
	}
	n := 0
	for i := range s {
		if n == keep {
			return s[:i] + Ellipsis
		}
		n++
	}
	return s
}

// NewLogger creates a text logger that shortens long values.
//
// Parameters:
//   - w: The io.Writer to write log output to (typically os.Stderr)
//   - verbose: If true, sets log level to Debug; otherwise Warn
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: level(verbose),
	}
	return slog.New(NewSnippetHandler(slog.NewTextHandler(w, opts), DefaultMaxValueLen))
}

// NewJSONLogger creates a JSON logger that shortens long values.
// Useful for structured log aggregation.
func NewJSONLogger(w io.Writer, verbose bool) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: level(verbose),
	}
	return slog.New(NewSnippetHandler(slog.NewJSONHandler(w, opts), DefaultMaxValueLen))
}

func level(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return slog.LevelWarn
}
