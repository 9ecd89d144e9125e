// SPDX-License-Identifier: MIT
package engine_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/skaphos/gitsync/internal/engine"
	"github.com/skaphos/gitsync/internal/gitx"
	"github.com/skaphos/gitsync/internal/model"
)

var _ = Describe("Pipeline", func() {
	const wt = "/src/app"
	var (
		loc    model.Location
		runner *recordingRunner
	)

	BeforeEach(func() {
		loc = model.NewLocation(wt + "/.git")
		runner = newRecordingRunner()
	})

	run := func(opts model.Options) model.RepoState {
		return engine.NewPipeline(loc, runner, opts, nil).Run(context.Background())
	}

	It("settles Ok when the branch matches its remote", func() {
		runner.scriptCounts(wt, "main", "0", "0")
		state := run(model.Options{})
		Expect(state.Outcome).To(Equal(model.OutcomeOK))
		Expect(state.Branch).To(Equal("main"))
		Expect(state.AheadCount()).To(Equal(0))
		Expect(state.BehindCount()).To(Equal(0))
		Expect(state.Failure).To(BeNil())
		Expect(runner.Calls()).To(Equal([]string{
			fetchKey(wt), branchKey(wt), aheadKey(wt, "main"), behindKey(wt, "main"),
		}))
	})

	It("walks the states in order", func() {
		runner.scriptCounts(wt, "main", "0", "0")
		p := engine.NewPipeline(loc, runner, model.Options{}, nil)
		Expect(p.State()).To(Equal(engine.StateStart))

		var seen []engine.State
		for !p.State().Terminal() {
			seen = append(seen, p.Step(context.Background()))
		}
		Expect(seen).To(Equal([]engine.State{
			engine.StateFetching,
			engine.StateBranchResolving,
			engine.StateCountingAhead,
			engine.StateCountingBehind,
			engine.StateActing,
			engine.StateDone,
		}))
		Expect(p.Step(context.Background())).To(Equal(engine.StateDone))
		Expect(engine.StateBranchResolving.String()).To(Equal("branch-resolving"))
	})

	It("fast-forwards a branch that is only behind", func() {
		runner.scriptCounts(wt, "main", "0", "3").on(mergeKey(wt, "main"), ok(""))
		state := run(model.Options{})
		Expect(state.Outcome).To(Equal(model.OutcomeBehindMerged))
		Expect(state.BehindCount()).To(Equal(3))
		Expect(state.Action).To(Equal(gitx.CommandLine(loc, gitx.FastForwardArgs("origin", "main")...)))
		Expect(runner.Calls()).To(HaveLen(5))
	})

	It("reports MergeBlocked when the fast-forward fails", func() {
		runner.scriptCounts(wt, "main", "0", "1").
			on(mergeKey(wt, "main"), failed("error: Your local changes to the following files would be overwritten by merge"))
		state := run(model.Options{})
		Expect(state.Outcome).To(Equal(model.OutcomeError))
		Expect(state.Tag()).To(Equal("MergeBlocked"))
		Expect(state.Failure.Step).To(Equal(model.StepMerge))
		Expect(state.Failure.Class).To(Equal("dirty"))
		Expect(state.Failure.Detail).To(ContainSubstring("would be overwritten"))
	})

	It("reports AheadNeedsPush without pushing when push is disabled", func() {
		runner.scriptCounts(wt, "main", "2", "0")
		state := run(model.Options{})
		Expect(state.Outcome).To(Equal(model.OutcomeAheadNeedsPush))
		Expect(state.Action).To(BeEmpty())
		Expect(runner.Calls()).NotTo(ContainElement(pushKey(wt, "main")))
	})

	It("pushes a branch that is only ahead when push is enabled", func() {
		runner.scriptCounts(wt, "main", "2", "0").on(pushKey(wt, "main"), ok(""))
		state := run(model.Options{Push: true})
		Expect(state.Outcome).To(Equal(model.OutcomeAheadPushed))
		Expect(runner.Calls()).To(ContainElement(pushKey(wt, "main")))
	})

	It("reports PushFailed when the push is rejected", func() {
		runner.scriptCounts(wt, "main", "1", "0").
			on(pushKey(wt, "main"), failed("fatal: Authentication failed for 'https://example.com/app.git/'"))
		state := run(model.Options{Push: true})
		Expect(state.Tag()).To(Equal("PushFailed"))
		Expect(state.Failure.Class).To(Equal("auth"))
	})

	It("flags a diverged branch and issues no merge or push", func() {
		runner.scriptCounts(wt, "main", "3", "2")
		state := run(model.Options{Push: true})
		Expect(state.Outcome).To(Equal(model.OutcomeDiverged))
		Expect(state.AheadCount()).To(Equal(3))
		Expect(state.BehindCount()).To(Equal(2))
		Expect(runner.Calls()).To(HaveLen(4))
		Expect(runner.Calls()).NotTo(ContainElement(mergeKey(wt, "main")))
		Expect(runner.Calls()).NotTo(ContainElement(pushKey(wt, "main")))
	})

	It("accepts CRLF-terminated output", func() {
		runner.on(fetchKey(wt), ok("")).
			on(branchKey(wt), ok("feature/x\r\n")).
			on(aheadKey(wt, "feature/x"), ok("0\r\n")).
			on(behindKey(wt, "feature/x"), ok("0\r\n"))
		state := run(model.Options{})
		Expect(state.Branch).To(Equal("feature/x"))
		Expect(state.Outcome).To(Equal(model.OutcomeOK))
	})

	It("uses the configured remote", func() {
		runner.on(callKey(wt, gitx.FetchArgs("upstream")...), ok("")).
			on(branchKey(wt), ok("main\n")).
			on(callKey(wt, gitx.AheadArgs("upstream", "main")...), ok("0\n")).
			on(callKey(wt, gitx.BehindArgs("upstream", "main")...), ok("0\n"))
		state := run(model.Options{Remote: "upstream"})
		Expect(state.Outcome).To(Equal(model.OutcomeOK))
	})

	Context("halting at the failing step", func() {
		It("stops after a failed fetch", func() {
			runner.on(fetchKey(wt), failed("fatal: could not resolve host: example.com"))
			state := run(model.Options{})
			Expect(state.Tag()).To(Equal("FetchFailed"))
			Expect(state.Failure.Class).To(Equal("network"))
			Expect(state.Branch).To(BeEmpty())
			Expect(runner.Calls()).To(Equal([]string{fetchKey(wt)}))
		})

		It("stops after an unresolved branch (detached HEAD)", func() {
			runner.on(fetchKey(wt), ok("")).
				on(branchKey(wt), failed("fatal: ref HEAD is not a symbolic ref"))
			state := run(model.Options{})
			Expect(state.Tag()).To(Equal("BranchUnresolved"))
			Expect(state.Ahead).To(BeNil())
			Expect(state.Behind).To(BeNil())
			Expect(runner.Calls()).To(Equal([]string{fetchKey(wt), branchKey(wt)}))
		})

		It("treats an empty branch name as unresolved", func() {
			runner.on(fetchKey(wt), ok("")).on(branchKey(wt), ok("\n"))
			state := run(model.Options{})
			Expect(state.Tag()).To(Equal("BranchUnresolved"))
			Expect(runner.Calls()).To(HaveLen(2))
		})

		It("stops after a missing tracking branch", func() {
			runner.on(fetchKey(wt), ok("")).
				on(branchKey(wt), ok("topic\n")).
				on(aheadKey(wt, "topic"), failed("fatal: ambiguous argument 'origin/topic..topic': unknown revision"))
			state := run(model.Options{})
			Expect(state.Tag()).To(Equal("NoTrackingBranch"))
			Expect(state.Failure.Step).To(Equal(model.StepAhead))
			Expect(state.Failure.Class).To(Equal("missing_remote"))
			Expect(runner.Calls()).To(HaveLen(3))
		})

		It("stops after a failed behind count", func() {
			runner.on(fetchKey(wt), ok("")).
				on(branchKey(wt), ok("main\n")).
				on(aheadKey(wt, "main"), ok("1\n")).
				on(behindKey(wt, "main"), failed("fatal: bad object"))
			state := run(model.Options{Push: true})
			Expect(state.Tag()).To(Equal("BehindCheckFailed"))
			Expect(state.AheadCount()).To(Equal(1))
			Expect(state.Behind).To(BeNil())
			Expect(runner.Calls()).NotTo(ContainElement(pushKey(wt, "main")))
		})

		It("fails the step on an unparseable count", func() {
			runner.on(fetchKey(wt), ok("")).
				on(branchKey(wt), ok("main\n")).
				on(aheadKey(wt, "main"), ok("lots\n"))
			state := run(model.Options{})
			Expect(state.Tag()).To(Equal("NoTrackingBranch"))
			Expect(state.Failure.Detail).To(ContainSubstring("unparseable count"))
			Expect(state.Ahead).To(BeNil())
			Expect(runner.Calls()).To(HaveLen(3))
		})
	})

	Context("time bounds", func() {
		It("reports a timed out fetch with its step", func() {
			runner.block[fetchKey(wt)] = true
			state := run(model.Options{Timeout: 20 * time.Millisecond})
			Expect(state.Tag()).To(Equal("Timeout(fetch)"))
			Expect(state.Failure.Kind).To(Equal(model.ErrorTimeout))
			Expect(state.Failure.Class).To(Equal("timeout"))
			Expect(runner.Calls()).To(HaveLen(1))
		})

		It("bounds each invocation rather than the whole pipeline", func() {
			runner.scriptCounts(wt, "main", "0", "0")
			state := run(model.Options{Timeout: time.Second})
			Expect(state.Outcome).To(Equal(model.OutcomeOK))
		})

		It("reports cancellation of the parent context", func() {
			runner.scriptCounts(wt, "main", "0", "0")
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			state := engine.NewPipeline(loc, runner, model.Options{Timeout: time.Second}, nil).Run(ctx)
			Expect(state.Tag()).To(Equal("Canceled(fetch)"))
			Expect(state.Failure.Kind).To(Equal(model.ErrorCanceled))
		})
	})
})
