// SPDX-License-Identifier: MIT

// Package model defines the core data types used throughout gitsync.
package model

import (
	"fmt"
	"path/filepath"
	"time"
)

// GitDirName is the metadata directory marker that identifies a repository.
const GitDirName = ".git"

// Location identifies one discovered repository. It is immutable once built.
type Location struct {
	// GitDir is the absolute path to the repository metadata directory.
	GitDir string `json:"git_dir" yaml:"git_dir"`
	// WorkTree is the working tree root, the parent of GitDir.
	WorkTree string `json:"work_tree" yaml:"work_tree"`
}

// NewLocation derives a Location from the path of a metadata directory.
func NewLocation(gitDir string) Location {
	gitDir = filepath.Clean(gitDir)
	return Location{GitDir: gitDir, WorkTree: filepath.Dir(gitDir)}
}

// Options is the process-wide sync configuration. It is built once at
// startup and passed by value into the engine and every pipeline.
type Options struct {
	// Push enables pushing branches that are only ahead of their remote.
	Push bool
	// Verbose echoes raw command diagnostics for failed steps.
	Verbose bool
	// Remote is the remote whose tracking branch is compared. Defaults to "origin".
	Remote string
	// Timeout bounds every single git invocation. Zero disables the bound.
	Timeout time.Duration
	// Concurrency caps in-flight pipelines. Zero means unbounded.
	Concurrency int
	// Ordered flushes reports in discovery order instead of completion order.
	Ordered bool
}

// RemoteName returns the configured remote or "origin".
func (o Options) RemoteName() string {
	if o.Remote == "" {
		return "origin"
	}
	return o.Remote
}

// Outcome enumerates the states a repository sync can settle in.
type Outcome string

const (
	OutcomePending        Outcome = "Pending"
	OutcomeOK             Outcome = "Ok"
	OutcomeAheadNeedsPush Outcome = "AheadNeedsPush"
	OutcomeAheadPushed    Outcome = "AheadPushed"
	OutcomeBehindMerged   Outcome = "BehindMerged"
	OutcomeDiverged       Outcome = "Diverged"
	OutcomeError          Outcome = "Error"
)

// Terminal reports whether o is a settled outcome.
func (o Outcome) Terminal() bool {
	return o != OutcomePending && o != ""
}

// ErrorKind identifies which pipeline step failed.
type ErrorKind string

const (
	ErrorFetchFailed       ErrorKind = "FetchFailed"
	ErrorBranchUnresolved  ErrorKind = "BranchUnresolved"
	ErrorNoTrackingBranch  ErrorKind = "NoTrackingBranch"
	ErrorBehindCheckFailed ErrorKind = "BehindCheckFailed"
	ErrorMergeBlocked      ErrorKind = "MergeBlocked"
	ErrorPushFailed        ErrorKind = "PushFailed"
	ErrorTimeout           ErrorKind = "Timeout"
	ErrorCanceled          ErrorKind = "Canceled"
)

// Step names a git invocation issued by the pipeline.
type Step string

const (
	StepFetch  Step = "fetch"
	StepBranch Step = "branch"
	StepAhead  Step = "ahead"
	StepBehind Step = "behind"
	StepMerge  Step = "merge"
	StepPush   Step = "push"
)

// Failure describes why a repository pipeline stopped early.
type Failure struct {
	// Kind is the step-identified error category.
	Kind ErrorKind `json:"kind" yaml:"kind"`
	// Step is the git step that failed.
	Step Step `json:"step" yaml:"step"`
	// Detail is the raw diagnostic text of the failing command.
	Detail string `json:"detail,omitempty" yaml:"detail,omitempty"`
	// Class is a coarse category (auth, network, timeout, ...).
	Class string `json:"class,omitempty" yaml:"class,omitempty"`
}

// Tag returns the status-line tag for the failure.
func (f Failure) Tag() string {
	if f.Kind == ErrorTimeout || f.Kind == ErrorCanceled {
		return fmt.Sprintf("%s(%s)", f.Kind, f.Step)
	}
	return string(f.Kind)
}

// RepoState is the evolving state of one repository's pipeline.
type RepoState struct {
	Location Location `json:"location" yaml:"location"`
	// Branch is empty until resolved.
	Branch string `json:"branch,omitempty" yaml:"branch,omitempty"`
	// Ahead is nil until counted.
	Ahead *int `json:"ahead,omitempty" yaml:"ahead,omitempty"`
	// Behind is nil until counted.
	Behind  *int     `json:"behind,omitempty" yaml:"behind,omitempty"`
	Outcome Outcome  `json:"outcome" yaml:"outcome"`
	Failure *Failure `json:"failure,omitempty" yaml:"failure,omitempty"`
	// Action is the git command issued by the acting step, if any.
	Action string `json:"action,omitempty" yaml:"action,omitempty"`
}

// Tag returns the outcome tag shown to the operator.
func (s RepoState) Tag() string {
	if s.Outcome == OutcomeError && s.Failure != nil {
		return s.Failure.Tag()
	}
	return string(s.Outcome)
}

// AheadCount returns the ahead count or zero when unknown.
func (s RepoState) AheadCount() int {
	if s.Ahead == nil {
		return 0
	}
	return *s.Ahead
}

// BehindCount returns the behind count or zero when unknown.
func (s RepoState) BehindCount() int {
	if s.Behind == nil {
		return 0
	}
	return *s.Behind
}

// Report is the final, emitted form of a repository's sync.
type Report struct {
	RepoState `json:",inline" yaml:",inline"`
	// Index is the discovery position of the repository.
	Index int `json:"index" yaml:"index"`
	// Duration is the wall time the pipeline took.
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// Summary counts reports per tag.
type Summary struct {
	Total  int            `json:"total" yaml:"total"`
	ByTag  map[string]int `json:"by_tag" yaml:"by_tag"`
	Errors int            `json:"errors" yaml:"errors"`
	// Warnings counts repositories that need operator attention but did not fail.
	Warnings int `json:"warnings" yaml:"warnings"`
}

// Summarize tallies reports.
func Summarize(reports []Report) Summary {
	sum := Summary{Total: len(reports), ByTag: make(map[string]int)}
	for _, r := range reports {
		sum.ByTag[r.Tag()]++
		switch r.Outcome {
		case OutcomeError:
			sum.Errors++
		case OutcomeAheadNeedsPush, OutcomeDiverged:
			sum.Warnings++
		}
	}
	return sum
}
