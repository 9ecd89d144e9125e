// SPDX-License-Identifier: MIT
package gitx

import (
	"context"
	"errors"
	"strings"
)

// Failure classes attached to per-repository errors.
const (
	ClassAuth          = "auth"
	ClassNetwork       = "network"
	ClassTimeout       = "timeout"
	ClassCorrupt       = "corrupt"
	ClassMissingRemote = "missing_remote"
	ClassDirty         = "dirty"
	ClassUnknown       = "unknown"
)

var (
	// ErrAuthFailure marks authentication/authorization failures.
	ErrAuthFailure = errors.New("git auth error")
	// ErrNetworkFailure marks network/transport failures.
	ErrNetworkFailure = errors.New("git network error")
	// ErrCorruptRepo marks corrupt or invalid-repository failures.
	ErrCorruptRepo = errors.New("git corrupt repository")
	// ErrMissingRemoteRef marks missing upstream/ref/remote failures.
	ErrMissingRemoteRef = errors.New("git missing remote")
)

var sentinelClasses = []struct {
	err   error
	class string
}{
	{context.DeadlineExceeded, ClassTimeout},
	{context.Canceled, ClassTimeout},
	{ErrAuthFailure, ClassAuth},
	{ErrNetworkFailure, ClassNetwork},
	{ErrCorruptRepo, ClassCorrupt},
	{ErrMissingRemoteRef, ClassMissingRemote},
}

// First match wins, so broader phrases sit below the specific ones.
var textRules = []struct {
	class   string
	needles []string
}{
	{ClassAuth, []string{"permission denied", "authentication failed", "access denied", "publickey", "could not read username", "credential", "could not read from remote"}},
	{ClassNetwork, []string{"could not resolve host", "network is unreachable", "connection timed out", "connection refused", "failed to connect", "temporary failure in name resolution", "tls handshake timeout", "unable to access"}},
	{ClassTimeout, []string{"timeout", "timed out", "deadline exceeded"}},
	{ClassCorrupt, []string{"not a git repository", "bad object", "corrupt", "object file"}},
	{ClassMissingRemote, []string{"repository not found", "couldn't find remote ref", "remote ref does not exist", "no such remote", "unknown revision", "ambiguous argument"}},
	{ClassDirty, []string{"local changes", "would be overwritten", "not possible to fast-forward", "uncommitted changes"}},
}

// ClassifyError maps git/process errors into broad actionable categories.
// A nil error has no class.
func ClassifyError(err error) string {
	if err == nil {
		return ""
	}
	for _, s := range sentinelClasses {
		if errors.Is(err, s.err) {
			return s.class
		}
	}
	return ClassifyText(err.Error())
}

// ClassifyOutcome categorizes a failed invocation from its stderr, falling
// back to the underlying error. A clean exit has no class.
func ClassifyOutcome(o Outcome) string {
	if o.ExitedCleanly {
		return ""
	}
	if o.TimedOut() || o.Canceled() {
		return ClassTimeout
	}
	if class := ClassifyText(o.Stderr); class != ClassUnknown {
		return class
	}
	if o.Err != nil {
		return ClassifyError(o.Err)
	}
	return ClassUnknown
}

// ClassifyText matches git diagnostic text against known phrases.
func ClassifyText(text string) string {
	msg := strings.ToLower(text)
	for _, rule := range textRules {
		for _, needle := range rule.needles {
			if strings.Contains(msg, needle) {
				return rule.class
			}
		}
	}
	return ClassUnknown
}
