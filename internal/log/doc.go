// Package log provides the logger used across codeflip, built on top of the
// standard slog package.
//
// Source blocks and compiler diagnostics end up in log attributes, and both
// are often long and span many lines. The SnippetHandler wraps any slog
// handler and shortens such values:
//   - multi-line strings are collapsed to one line with "⏎" separators
//   - strings longer than the limit are cut and suffixed with "…"
//   - values under secret-looking keys (password, token, secret) are masked
//
// # Usage
//
//	logger := log.NewLogger(os.Stderr, verbose)
//	logger.Debug("source block not converted",
//	    "source", block.Text, // collapsed and truncated
//	    "error", err,
//	)
//	slog.SetDefault(logger)
package log
