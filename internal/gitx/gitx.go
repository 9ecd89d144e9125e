// SPDX-License-Identifier: MIT

// Package gitx runs git commands against discovered repositories and parses
// their output. It shells out to the installed git binary.
package gitx

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/skaphos/gitsync/internal/model"
)

// Outcome is the result of one git invocation. A non-clean exit is never a
// Go error: callers inspect ExitedCleanly and Stderr.
type Outcome struct {
	ExitedCleanly bool
	Stdout        string
	Stderr        string
	// ExitCode is the process exit status, or -1 when the process did not run
	// to completion.
	ExitCode int
	// Err carries the underlying failure (exit error, start failure, or the
	// context error when the invocation was cut short). Nil on a clean exit.
	Err error
}

// TimedOut reports whether the invocation was stopped by its deadline.
func (o Outcome) TimedOut() bool {
	return errors.Is(o.Err, context.DeadlineExceeded)
}

// Canceled reports whether the invocation was stopped by cancellation.
func (o Outcome) Canceled() bool {
	return errors.Is(o.Err, context.Canceled)
}

// Diagnostic returns the most useful failure text for the operator.
func (o Outcome) Diagnostic() string {
	if msg := strings.TrimSpace(o.Stderr); msg != "" {
		return msg
	}
	if o.Err != nil {
		return o.Err.Error()
	}
	return ""
}

// Runner executes a git command against one repository.
// This interface allows faking in tests.
type Runner interface {
	// Run executes git with the repository's metadata directory and working
	// tree prepended to args. It delivers exactly one Outcome and never retries.
	Run(ctx context.Context, loc model.Location, args ...string) Outcome
}

// GitRunner is the default Runner implementation that shells out to git.
type GitRunner struct {
	// GitBin is the path to the git binary. Defaults to "git".
	GitBin string
	// Logger receives one debug record per invocation.
	Logger *zap.Logger
	// WaitDelay bounds how long Run waits for output pipes after the context
	// ends. Zero uses DefaultWaitDelay.
	WaitDelay time.Duration
}

// DefaultWaitDelay is how long a cancelled invocation may keep its pipes open
// (e.g. through an ssh or git-remote-https child) before Run gives up on it.
const DefaultWaitDelay = 2 * time.Second

// NewGitRunner returns a GitRunner that logs through logger.
func NewGitRunner(logger *zap.Logger) *GitRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GitRunner{Logger: logger}
}

// Run executes a git command.
func (g *GitRunner) Run(ctx context.Context, loc model.Location, args ...string) Outcome {
	bin := g.GitBin
	if bin == "" {
		bin = "git"
	}
	logger := g.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	cmd := exec.CommandContext(ctx, bin, append(BaseArgs(loc), args...)...)
	// Never block on credential prompts; keep diagnostics in a stable locale.
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0", "LC_ALL=C")
	cmd.WaitDelay = g.WaitDelay
	if cmd.WaitDelay <= 0 {
		cmd.WaitDelay = DefaultWaitDelay
	}
	// Cancellation kills the whole process group, transport helpers included.
	killProcessGroupOnCancel(cmd)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	started := time.Now()
	err := cmd.Run()
	out := Outcome{
		ExitedCleanly: err == nil,
		Stdout:        stdout.String(),
		Stderr:        stderr.String(),
	}
	if err != nil {
		out.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			out.ExitCode = exitErr.ExitCode()
		}
		out.Err = err
		if ctxErr := ctx.Err(); ctxErr != nil {
			out.Err = ctxErr
		}
	}

	logger.Debug("git command finished",
		zap.String("command", CommandLine(loc, args...)),
		zap.Bool("ok", out.ExitedCleanly),
		zap.Int("exit_code", out.ExitCode),
		zap.Duration("elapsed", time.Since(started)),
	)
	return out
}
