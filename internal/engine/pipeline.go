// SPDX-License-Identifier: MIT
package engine

import (
	"context"

	"go.uber.org/zap"

	"github.com/skaphos/gitsync/internal/gitx"
	"github.com/skaphos/gitsync/internal/model"
)

// State is a position in the per-repository sync state machine.
type State int

const (
	StateStart State = iota
	StateFetching
	StateBranchResolving
	StateCountingAhead
	StateCountingBehind
	StateActing
	StateDone
	StateError
)

var stateNames = [...]string{
	StateStart:           "start",
	StateFetching:        "fetching",
	StateBranchResolving: "branch-resolving",
	StateCountingAhead:   "counting-ahead",
	StateCountingBehind:  "counting-behind",
	StateActing:          "acting",
	StateDone:            "done",
	StateError:           "error",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether no further steps run from s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateError
}

// Pipeline drives one repository from StateStart to StateDone or StateError.
// Each step issues at most one git command and a failed step always moves
// to StateError, so later steps never run on stale counts.
type Pipeline struct {
	runner gitx.Runner
	opts   model.Options
	logger *zap.Logger

	state State
	repo  model.RepoState
}

// NewPipeline prepares a pipeline for loc.
func NewPipeline(loc model.Location, runner gitx.Runner, opts model.Options, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		runner: runner,
		opts:   opts,
		logger: logger.With(zap.String("repo", loc.WorkTree)),
		state:  StateStart,
		repo:   model.RepoState{Location: loc, Outcome: model.OutcomePending},
	}
}

// State returns the current state.
func (p *Pipeline) State() State { return p.state }

// Repo returns a snapshot of the repository state.
func (p *Pipeline) Repo() model.RepoState { return p.repo }

// Run steps the pipeline until it reaches a terminal state.
func (p *Pipeline) Run(ctx context.Context) model.RepoState {
	for !p.state.Terminal() {
		p.Step(ctx)
	}
	return p.repo
}

// Step performs the work of the current state and transitions.
func (p *Pipeline) Step(ctx context.Context) State {
	if p.state.Terminal() {
		return p.state
	}
	from := p.state
	p.state = p.transition(ctx)
	p.logger.Debug("pipeline step", zap.Stringer("from", from), zap.Stringer("to", p.state))
	return p.state
}

func (p *Pipeline) transition(ctx context.Context) State {
	switch p.state {
	case StateStart:
		return StateFetching
	case StateFetching:
		return p.fetch(ctx)
	case StateBranchResolving:
		return p.resolveBranch(ctx)
	case StateCountingAhead:
		return p.countAhead(ctx)
	case StateCountingBehind:
		return p.countBehind(ctx)
	case StateActing:
		return p.act(ctx)
	default:
		return p.state
	}
}

func (p *Pipeline) fetch(ctx context.Context) State {
	out := p.exec(ctx, gitx.FetchArgs(p.opts.RemoteName())...)
	if !out.ExitedCleanly {
		return p.fail(model.ErrorFetchFailed, model.StepFetch, out)
	}
	return StateBranchResolving
}

func (p *Pipeline) resolveBranch(ctx context.Context) State {
	out := p.exec(ctx, gitx.CurrentBranchArgs()...)
	if !out.ExitedCleanly {
		return p.fail(model.ErrorBranchUnresolved, model.StepBranch, out)
	}
	branch, err := gitx.ParseBranch(out.Stdout)
	if err != nil {
		return p.failWith(model.ErrorBranchUnresolved, model.StepBranch, err.Error(), gitx.ClassUnknown)
	}
	p.repo.Branch = branch
	return StateCountingAhead
}

func (p *Pipeline) countAhead(ctx context.Context) State {
	args := gitx.AheadArgs(p.opts.RemoteName(), p.repo.Branch)
	n, ok := p.count(ctx, args, model.ErrorNoTrackingBranch, model.StepAhead)
	if !ok {
		return StateError
	}
	p.repo.Ahead = &n
	return StateCountingBehind
}

func (p *Pipeline) countBehind(ctx context.Context) State {
	args := gitx.BehindArgs(p.opts.RemoteName(), p.repo.Branch)
	n, ok := p.count(ctx, args, model.ErrorBehindCheckFailed, model.StepBehind)
	if !ok {
		return StateError
	}
	p.repo.Behind = &n
	return StateActing
}

func (p *Pipeline) count(ctx context.Context, args []string, kind model.ErrorKind, step model.Step) (int, bool) {
	out := p.exec(ctx, args...)
	if !out.ExitedCleanly {
		p.fail(kind, step, out)
		return 0, false
	}
	n, err := gitx.ParseCount(out.Stdout)
	if err != nil {
		p.failWith(kind, step, err.Error(), gitx.ClassUnknown)
		return 0, false
	}
	return n, true
}

func (p *Pipeline) act(ctx context.Context) State {
	remote := p.opts.RemoteName()
	branch := p.repo.Branch
	switch Classify(p.repo.AheadCount(), p.repo.BehindCount(), p.opts.Push) {
	case ActionFastForward:
		args := gitx.FastForwardArgs(remote, branch)
		p.repo.Action = gitx.CommandLine(p.repo.Location, args...)
		if out := p.exec(ctx, args...); !out.ExitedCleanly {
			return p.fail(model.ErrorMergeBlocked, model.StepMerge, out)
		}
		return p.settle(model.OutcomeBehindMerged)
	case ActionPush:
		args := gitx.PushArgs(remote, branch)
		p.repo.Action = gitx.CommandLine(p.repo.Location, args...)
		if out := p.exec(ctx, args...); !out.ExitedCleanly {
			return p.fail(model.ErrorPushFailed, model.StepPush, out)
		}
		return p.settle(model.OutcomeAheadPushed)
	case ActionReportPush:
		return p.settle(model.OutcomeAheadNeedsPush)
	case ActionFlagDiverged:
		return p.settle(model.OutcomeDiverged)
	default:
		return p.settle(model.OutcomeOK)
	}
}

// exec runs one git command under the per-invocation timeout.
func (p *Pipeline) exec(ctx context.Context, args ...string) gitx.Outcome {
	stepCtx := ctx
	if p.opts.Timeout > 0 {
		var cancel context.CancelFunc
		stepCtx, cancel = context.WithTimeout(ctx, p.opts.Timeout)
		defer cancel()
	}
	out := p.runner.Run(stepCtx, p.repo.Location, args...)
	if !out.ExitedCleanly {
		if err := stepCtx.Err(); err != nil {
			out.Err = err
		}
	}
	return out
}

func (p *Pipeline) settle(outcome model.Outcome) State {
	if p.repo.Outcome.Terminal() {
		return settledState(p.repo.Outcome)
	}
	p.repo.Outcome = outcome
	return StateDone
}

func (p *Pipeline) fail(kind model.ErrorKind, step model.Step, out gitx.Outcome) State {
	switch {
	case out.TimedOut():
		kind = model.ErrorTimeout
	case out.Canceled():
		kind = model.ErrorCanceled
	}
	return p.failWith(kind, step, out.Diagnostic(), gitx.ClassifyOutcome(out))
}

func (p *Pipeline) failWith(kind model.ErrorKind, step model.Step, detail, class string) State {
	if p.repo.Outcome.Terminal() {
		return settledState(p.repo.Outcome)
	}
	p.repo.Outcome = model.OutcomeError
	p.repo.Failure = &model.Failure{Kind: kind, Step: step, Detail: detail, Class: class}
	p.logger.Debug("pipeline failed", zap.String("kind", string(kind)), zap.String("step", string(step)), zap.String("class", class))
	return StateError
}

// settledState maps an already-settled outcome back to its terminal state;
// outcomes are never revisited.
func settledState(outcome model.Outcome) State {
	if outcome == model.OutcomeError {
		return StateError
	}
	return StateDone
}
