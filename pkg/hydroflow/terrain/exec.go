package terrain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Exec runs each request as one invocation of an external command. The
// request is written to stdin as JSON and the command answers with a JSON
// Response on stdout. Anything on stderr is kept for error reports.
type Exec struct {
	command string
	args    []string
	env     Env
	timeout time.Duration
	logger  *slog.Logger
}

var _ Runner = (*Exec)(nil)

// ExecOption configures Exec.
type ExecOption func(*Exec)

// NewExec creates a runner for command.
func NewExec(command string, opts ...ExecOption) *Exec {
	e := &Exec{
		command: command,
		timeout: 30 * time.Minute,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithArgs sets extra arguments passed before the request is piped in.
func WithArgs(args ...string) ExecOption {
	return func(e *Exec) { e.args = args }
}

// WithEnv sets the processing environment sent with every request.
func WithEnv(env Env) ExecOption {
	return func(e *Exec) { e.env = env }
}

// WithTimeout bounds a single operation. Zero disables the bound.
func WithTimeout(d time.Duration) ExecOption {
	return func(e *Exec) { e.timeout = d }
}

// WithLogger logs every operation at debug level.
func WithLogger(logger *slog.Logger) ExecOption {
	return func(e *Exec) { e.logger = logger }
}

// Run implements Runner.
func (e *Exec) Run(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	req.Env = e.env

	if req.Output != "" {
		if err := os.MkdirAll(filepath.Dir(req.Output), 0o755); err != nil {
			return nil, &Error{Op: req.Op, Err: err}
		}
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, &Error{Op: req.Op, Err: fmt.Errorf("encode request: %w", err)}
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, e.command, e.args...)
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, &Error{Op: req.Op, Stderr: strings.TrimSpace(stderr.String()), Err: ctx.Err()}
		}
		return nil, &Error{Op: req.Op, Stderr: strings.TrimSpace(stderr.String()), Err: err}
	}

	var resp Response
	if out := bytes.TrimSpace(stdout.Bytes()); len(out) > 0 {
		if err := json.Unmarshal(out, &resp); err != nil {
			return nil, &Error{Op: req.Op, Err: fmt.Errorf("decode response: %w", err)}
		}
	}
	if resp.Output == "" {
		resp.Output = req.Output
	}

	if e.logger != nil {
		e.logger.Debug("terrain operation completed",
			slog.String("op", req.Op),
			slog.String("output", resp.Output),
			slog.Duration("duration", time.Since(start)),
		)
	}
	return &resp, nil
}
