package transform

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/google/shlex"
)

// DefaultCommandTimeout bounds a single compiler invocation.
const DefaultCommandTimeout = 30 * time.Second

// ErrEmptyCommand is returned when a command line has no program name.
var ErrEmptyCommand = errors.New("transformer command is empty")

// Command runs an external program for each transform. The source text is
// written to the program's stdin and its stdout is the derived text.
// A non-zero exit status means the input was rejected.
type Command struct {
	name    string
	args    []string
	timeout time.Duration
	env     []string
}

// CommandOption configures a Command.
type CommandOption func(*Command)

// WithTimeout sets the per-invocation timeout. Non-positive values keep the default.
func WithTimeout(d time.Duration) CommandOption {
	return func(c *Command) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithEnv appends KEY=VALUE pairs to the program environment.
func WithEnv(env ...string) CommandOption {
	return func(c *Command) {
		c.env = append(c.env, env...)
	}
}

// NewCommand parses a shell-style command line such as
// "coffee --compile --bare --stdio" and returns a Command for it.
func NewCommand(commandLine string, opts ...CommandOption) (*Command, error) {
	parts, err := shlex.Split(commandLine)
	if err != nil {
		return nil, fmt.Errorf("parsing transformer command %q: %w", commandLine, err)
	}
	if len(parts) == 0 {
		return nil, ErrEmptyCommand
	}

	c := &Command{
		name:    parts[0],
		args:    parts[1:],
		timeout: DefaultCommandTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ID returns the normalized command line.
func (c *Command) ID() string {
	return "command:" + strings.Join(append([]string{c.name}, c.args...), " ")
}

// Transform implements Transformer.
func (c *Command) Transform(ctx context.Context, source string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.name, c.args...) //nolint:gosec // The command comes from the user's own configuration
	if len(c.env) > 0 {
		cmd.Env = append(cmd.Environ(), c.env...)
	}
	cmd.Stdin = strings.NewReader(source)
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return stdout.String(), nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", fmt.Errorf("running %s: %w", c.name, ctxErr)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return "", &CompilationError{Message: stderr.String(), Err: err}
	}
	return "", fmt.Errorf("running %s: %w", c.name, err)
}
