// SPDX-License-Identifier: MIT
package gitx_test

import (
	"context"
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/skaphos/gitsync/internal/gitx"
)

var _ = Describe("ClassifyError", func() {
	DescribeTable("maps errors to classes",
		func(err error, want string) {
			Expect(gitx.ClassifyError(err)).To(Equal(want))
		},
		Entry("nil", nil, ""),
		Entry("deadline", context.DeadlineExceeded, gitx.ClassTimeout),
		Entry("cancellation", fmt.Errorf("run: %w", context.Canceled), gitx.ClassTimeout),
		Entry("wrapped sentinel", fmt.Errorf("fetch: %w", gitx.ErrNetworkFailure), gitx.ClassNetwork),
		Entry("auth text", errors.New("permission denied (publickey)"), gitx.ClassAuth),
		Entry("network text", errors.New("Could not resolve host: github.com"), gitx.ClassNetwork),
		Entry("corrupt text", errors.New("fatal: not a git repository"), gitx.ClassCorrupt),
		Entry("missing remote text", errors.New("fatal: couldn't find remote ref main"), gitx.ClassMissingRemote),
		Entry("anything else", errors.New("something odd"), gitx.ClassUnknown),
	)
})

var _ = Describe("ClassifyOutcome", func() {
	DescribeTable("prefers stderr over the process error",
		func(out gitx.Outcome, want string) {
			Expect(gitx.ClassifyOutcome(out)).To(Equal(want))
		},
		Entry("clean exit", gitx.Outcome{ExitedCleanly: true}, ""),
		Entry("deadline", gitx.Outcome{Err: context.DeadlineExceeded}, gitx.ClassTimeout),
		Entry("missing tracking ref",
			gitx.Outcome{Stderr: "fatal: ambiguous argument 'origin/dev..dev': unknown revision"}, gitx.ClassMissingRemote),
		Entry("merge blocked by local edits",
			gitx.Outcome{Stderr: "error: Your local changes to the following files would be overwritten by merge"}, gitx.ClassDirty),
		Entry("non fast-forward", gitx.Outcome{Stderr: "fatal: Not possible to fast-forward, aborting."}, gitx.ClassDirty),
		Entry("push rejected for credentials",
			gitx.Outcome{Stderr: "fatal: could not read Username for 'https://example.com'", Err: errors.New("exit status 128")}, gitx.ClassAuth),
		Entry("falls back to the error", gitx.Outcome{Err: errors.New("exec: \"git\": executable file not found")}, gitx.ClassUnknown),
		Entry("no detail", gitx.Outcome{}, gitx.ClassUnknown),
	)
})

var _ = Describe("ClassifyText", func() {
	It("is case-insensitive", func() {
		Expect(gitx.ClassifyText("FATAL: REPOSITORY NOT FOUND")).To(Equal(gitx.ClassMissingRemote))
	})

	It("checks auth phrases before network phrases", func() {
		Expect(gitx.ClassifyText("fatal: Could not read from remote repository.\nunable to access")).To(Equal(gitx.ClassAuth))
	})
})
