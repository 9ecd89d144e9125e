// SPDX-License-Identifier: MIT
package gitx

import (
	"strings"

	"github.com/skaphos/gitsync/internal/model"
)

// BaseArgs points git at the repository explicitly so commands do not depend
// on the process working directory.
func BaseArgs(loc model.Location) []string {
	args := []string{"--git-dir", loc.GitDir}
	if loc.WorkTree != "" {
		args = append(args, "--work-tree", loc.WorkTree)
	}
	return args
}

// CommandLine renders a shell-like description of a git invocation.
func CommandLine(loc model.Location, args ...string) string {
	return "git " + strings.Join(append(BaseArgs(loc), args...), " ")
}

// FetchArgs updates remote-tracking refs for remote. Options end before the
// remote name so it is never parsed as a flag.
func FetchArgs(remote string) []string {
	return []string{"-c", "fetch.recurseSubmodules=false", "fetch", "--no-recurse-submodules", "--", remote}
}

// CurrentBranchArgs resolves the checked-out branch. Fails on a detached HEAD.
func CurrentBranchArgs() []string {
	return []string{"symbolic-ref", "--quiet", "--short", "HEAD"}
}

// TrackingRef is the remote-tracking counterpart of branch.
func TrackingRef(remote, branch string) string {
	return remote + "/" + branch
}

// AheadArgs counts commits on branch that the remote counterpart lacks.
func AheadArgs(remote, branch string) []string {
	return []string{"rev-list", "--count", TrackingRef(remote, branch) + ".." + branch}
}

// BehindArgs counts commits on the remote counterpart that branch lacks.
func BehindArgs(remote, branch string) []string {
	return []string{"rev-list", "--count", branch + ".." + TrackingRef(remote, branch)}
}

// FastForwardArgs merges the remote counterpart only when no merge commit is needed.
func FastForwardArgs(remote, branch string) []string {
	return []string{"merge", "--ff-only", TrackingRef(remote, branch)}
}

// PushArgs publishes branch to remote.
func PushArgs(remote, branch string) []string {
	return []string{"push", "--", remote, branch}
}
