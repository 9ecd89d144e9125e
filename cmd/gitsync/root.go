// SPDX-License-Identifier: MIT

// Package gitsync contains the Cobra command tree for the gitsync CLI.
package gitsync

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/skaphos/gitsync/internal/cliio"
	"github.com/skaphos/gitsync/internal/gitx"
)

// Exit codes, by increasing severity.
const (
	exitOK      = 0
	exitWarning = 1
	exitError   = 2
	exitFatal   = 3
)

var (
	// isTerminalFD is overridable in tests.
	isTerminalFD = term.IsTerminal
	// exitFunc is overridable in tests.
	exitFunc = os.Exit
	// newRunner builds the git executor; overridable in tests.
	newRunner = func(logger *zap.Logger) gitx.Runner { return gitx.NewGitRunner(logger) }
	// getwd is overridable in tests.
	getwd = os.Getwd
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	verbose   bool
	quiet     bool
	config    string
	noColor   bool
	logFormat string
}

type runtimeState struct {
	// exitCode tracks the highest severity observed during a command run.
	exitCode int
	// colorOutputEnabled is set per command execution based on output format and TTY detection.
	colorOutputEnabled bool
}

type runtimeStateKey struct{}

func withRuntimeState(ctx context.Context, state *runtimeState) context.Context {
	return context.WithValue(ctx, runtimeStateKey{}, state)
}

func runtimeStateFor(cmd *cobra.Command) *runtimeState {
	ctx := cmd.Context()
	if ctx != nil {
		if state, ok := ctx.Value(runtimeStateKey{}).(*runtimeState); ok {
			return state
		}
	} else {
		ctx = context.Background()
	}
	state := &runtimeState{}
	cmd.SetContext(withRuntimeState(ctx, state))
	return state
}

func newRootCmd() *cobra.Command {
	global := &globalFlags{}
	syncOpts := &syncFlags{}

	root := &cobra.Command{
		Use:   "gitsync [ROOT]",
		Short: "Keep a tree of git repositories in sync with their remotes",
		Long: "gitsync finds every git repository under ROOT (or the configured directory), " +
			"fetches each one, fast-forwards branches that are only behind their remote, " +
			"optionally pushes branches that are only ahead, and flags diverged branches for manual resolution.",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			applyColorEnv(global)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, global, syncOpts, args)
		},
	}

	addGlobalFlags(root.PersistentFlags(), global)
	addSyncFlags(root.Flags(), syncOpts)
	root.AddCommand(newInitCmd(global), newVersionCmd())
	return root
}

// Run executes the CLI with args, where args[0] is the program name, and
// returns a shell-friendly exit code: 0 success, 1 warnings, 2 per-repository
// errors, 3 fatal.
func Run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	root := newRootCmd()
	if len(args) > 0 {
		args = args[1:]
	}
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	state := &runtimeState{}
	if err := root.ExecuteContext(withRuntimeState(ctx, state)); err != nil {
		_, _ = fmt.Fprintf(stderr, "gitsync: %v\n", err)
		return exitFatal
	}
	return state.exitCode
}

// Execute runs the root command against the process arguments and exits.
func Execute() {
	exitFunc(Run(os.Args, os.Stdin, os.Stdout, os.Stderr))
}

// applyColorEnv honours NO_COLOR, a standard opt-out that behaves like --no-color.
func applyColorEnv(global *globalFlags) {
	if strings.TrimSpace(os.Getenv("NO_COLOR")) != "" {
		global.noColor = true
	}
}

func raiseExitCode(cmd *cobra.Command, code int) {
	state := runtimeStateFor(cmd)
	// Keep the highest severity: 0 success, 1 warning, 2 error, 3 fatal.
	if code > state.exitCode {
		state.exitCode = code
	}
}

func shouldUseColorOutput(cmd *cobra.Command, format string, noColor bool) bool {
	if noColor || !isColorFormat(format) {
		return false
	}
	file, ok := cmd.OutOrStdout().(*os.File)
	if !ok {
		return false
	}
	return isTerminalFD(int(file.Fd()))
}

func setColorOutputMode(cmd *cobra.Command, format string, noColor bool) bool {
	enabled := shouldUseColorOutput(cmd, format, noColor)
	runtimeStateFor(cmd).colorOutputEnabled = enabled
	return enabled
}

func isColorFormat(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case cliio.FormatText, cliio.FormatTable:
		return true
	default:
		return false
	}
}

// isInteractive reports whether in is a terminal; overridable in tests.
var isInteractive = func(in io.Reader) bool {
	file, ok := in.(*os.File)
	if !ok {
		return false
	}
	return isTerminalFD(int(file.Fd()))
}
