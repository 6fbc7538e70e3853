package transform

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"testing"
	"time"
)

// memStore is an in-memory Store for tests.
type memStore struct {
	mu      sync.Mutex
	data    map[string]string
	getErr  error
	putErr  error
	putCall int
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string]string)}
}

func (m *memStore) GetTransform(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return "", false, m.getErr
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memStore) PutTransform(_ context.Context, key, output string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putCall++
	if m.putErr != nil {
		return m.putErr
	}
	m.data[key] = output
	return nil
}

// TestCompilationError tests error formatting and matching.
func TestCompilationError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  *CompilationError
		want string
	}{
		{
			name: "uses the message",
			err:  &CompilationError{Message: "  unexpected '#'\n"},
			want: "compilation failed: unexpected '#'",
		},
		{
			name: "falls back to the cause",
			err:  &CompilationError{Err: errors.New("exit status 1")},
			want: "compilation failed: exit status 1",
		},
		{
			name: "falls back to a generic message",
			err:  &CompilationError{},
			want: "compilation failed: malformed source",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.err.Error(); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}

	t.Run("is matched through wrapping", func(t *testing.T) {
		t.Parallel()

		wrapped := fmt.Errorf("block 3: %w", &CompilationError{Message: "bad"})
		if !IsCompilationError(wrapped) {
			t.Error("expected wrapped compilation error to match")
		}
		if IsCompilationError(errors.New("other")) {
			t.Error("plain errors must not match")
		}
	})
}

// TestFunc tests the function adapter and naming.
func TestFunc(t *testing.T) {
	t.Parallel()

	upper := Func(func(_ context.Context, s string) (string, error) {
		return strings.ToUpper(s), nil
	})

	got, err := upper.Transform(context.Background(), "x = 1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "X = 1" {
		t.Errorf("expected %q, got %q", "X = 1", got)
	}

	if id := IDOf(Named("upper", upper)); id != "upper" {
		t.Errorf("expected id 'upper', got %q", id)
	}
	if id := IDOf(upper); id != "transform.Func" {
		t.Errorf("expected type-based id, got %q", id)
	}
}

// TestCached tests the caching decorator.
func TestCached(t *testing.T) {
	t.Parallel()

	counting := func(calls *int) Transformer {
		return Named("counting", Func(func(_ context.Context, s string) (string, error) {
			*calls++
			if s == "###" {
				return "", &CompilationError{Message: "unexpected #"}
			}
			return "var " + s + ";", nil
		}))
	}

	t.Run("second call is served from the store", func(t *testing.T) {
		t.Parallel()

		calls := 0
		store := newMemStore()
		c := NewCached(counting(&calls), store, nil)

		for range 2 {
			got, err := c.Transform(context.Background(), "x = 1")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != "var x = 1;" {
				t.Errorf("unexpected output %q", got)
			}
		}
		if calls != 1 {
			t.Errorf("expected 1 inner call, got %d", calls)
		}
		if c.ID() != "counting" {
			t.Errorf("expected cached transformer to keep inner id, got %q", c.ID())
		}
	})

	t.Run("failures are not cached", func(t *testing.T) {
		t.Parallel()

		calls := 0
		store := newMemStore()
		c := NewCached(counting(&calls), store, nil)

		for range 2 {
			if _, err := c.Transform(context.Background(), "###"); !IsCompilationError(err) {
				t.Fatalf("expected compilation error, got %v", err)
			}
		}
		if calls != 2 {
			t.Errorf("expected 2 inner calls, got %d", calls)
		}
		if store.putCall != 0 {
			t.Errorf("expected no stores, got %d", store.putCall)
		}
	})

	t.Run("store errors fall through to the inner transformer", func(t *testing.T) {
		t.Parallel()

		calls := 0
		store := newMemStore()
		store.getErr = errors.New("disk on fire")
		store.putErr = errors.New("disk on fire")
		c := NewCached(counting(&calls), store, nil)

		got, err := c.Transform(context.Background(), "y = 2")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "var y = 2;" {
			t.Errorf("unexpected output %q", got)
		}
	})
}

// TestCacheKey tests key derivation.
func TestCacheKey(t *testing.T) {
	t.Parallel()

	a := CacheKey("coffee", "x = 1")
	if len(a) != 64 {
		t.Errorf("expected 64 hex characters, got %d", len(a))
	}
	if a != CacheKey("coffee", "x = 1") {
		t.Error("keys must be deterministic")
	}
	if a == CacheKey("coffee2", "x = 1") {
		t.Error("different transformers must not share keys")
	}
	if CacheKey("ab", "c") == CacheKey("a", "bc") {
		t.Error("id and source must be separated in the key")
	}
}

// TestNewCommand tests command line parsing.
func TestNewCommand(t *testing.T) {
	t.Parallel()

	t.Run("parses quoted arguments", func(t *testing.T) {
		t.Parallel()

		c, err := NewCommand(`coffee --compile --bare "--stdio"`, WithTimeout(time.Second))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c.ID() != "command:coffee --compile --bare --stdio" {
			t.Errorf("unexpected id %q", c.ID())
		}
		if c.timeout != time.Second {
			t.Errorf("expected timeout 1s, got %s", c.timeout)
		}
	})

	t.Run("rejects empty command", func(t *testing.T) {
		t.Parallel()

		if _, err := NewCommand("   "); !errors.Is(err, ErrEmptyCommand) {
			t.Errorf("expected ErrEmptyCommand, got %v", err)
		}
	})

	t.Run("rejects unterminated quotes", func(t *testing.T) {
		t.Parallel()

		if _, err := NewCommand(`coffee "--bare`); err == nil {
			t.Error("expected parse error")
		}
	})
}

// TestCommandTransform runs real programs when they are available.
func TestCommandTransform(t *testing.T) {
	t.Parallel()

	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	t.Run("stdout becomes the output", func(t *testing.T) {
		t.Parallel()

		c, err := NewCommand(`sh -c "printf 'var '; cat; printf ';'"`)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got, err := c.Transform(context.Background(), "x = 1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "var x = 1;" {
			t.Errorf("expected %q, got %q", "var x = 1;", got)
		}
	})

	t.Run("non-zero exit is a compilation error", func(t *testing.T) {
		t.Parallel()

		c, err := NewCommand(`sh -c "echo 'unexpected #' >&2; exit 1"`)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		_, err = c.Transform(context.Background(), "###")

		var ce *CompilationError
		if !errors.As(err, &ce) {
			t.Fatalf("expected compilation error, got %v", err)
		}
		if !strings.Contains(ce.Message, "unexpected #") {
			t.Errorf("expected stderr in message, got %q", ce.Message)
		}
	})

	t.Run("missing binary is not a compilation error", func(t *testing.T) {
		t.Parallel()

		c, err := NewCommand("codeflip-no-such-compiler")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		_, err = c.Transform(context.Background(), "x")
		if err == nil {
			t.Fatal("expected error")
		}
		if IsCompilationError(err) {
			t.Error("missing binary must not be reported as bad input")
		}
	})

	t.Run("timeout is not a compilation error", func(t *testing.T) {
		t.Parallel()

		c, err := NewCommand(`sh -c "exec sleep 5"`, WithTimeout(50*time.Millisecond))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		_, err = c.Transform(context.Background(), "x")
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected deadline exceeded, got %v", err)
		}
	})
}
