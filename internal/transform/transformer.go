package transform

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Transformer converts source text into a derived representation.
type Transformer interface {
	// Transform returns the derived text for source. Malformed input is
	// reported as a *CompilationError.
	Transform(ctx context.Context, source string) (string, error)
}

// Identifier is implemented by transformers that can name themselves.
// The name is part of the cache key, so two differently configured
// transformers never share cache entries.
type Identifier interface {
	ID() string
}

// CompilationError reports that the transformer rejected its input.
type CompilationError struct {
	// Message is the compiler diagnostic, usually its stderr output.
	Message string

	// Err is an optional underlying cause.
	Err error
}

// Error implements error.
func (e *CompilationError) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = "malformed source"
	}
	return "compilation failed: " + msg
}

// Unwrap returns the underlying cause.
func (e *CompilationError) Unwrap() error {
	return e.Err
}

// IsCompilationError reports whether err is, or wraps, a *CompilationError.
func IsCompilationError(err error) bool {
	var ce *CompilationError
	return errors.As(err, &ce)
}

// Func adapts a plain function to the Transformer interface.
type Func func(ctx context.Context, source string) (string, error)

// Transform implements Transformer.
func (f Func) Transform(ctx context.Context, source string) (string, error) {
	return f(ctx, source)
}

// Named attaches an identifier to a transformer that lacks one.
func Named(id string, t Transformer) Transformer {
	return &named{id: id, Transformer: t}
}

type named struct {
	Transformer
	id string
}

func (n *named) ID() string { return n.id }

// IDOf returns the identifier of t, or a type-based fallback.
func IDOf(t Transformer) string {
	if idr, ok := t.(Identifier); ok {
		return idr.ID()
	}
	return fmt.Sprintf("%T", t)
}
