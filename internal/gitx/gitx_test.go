// SPDX-License-Identifier: MIT
package gitx_test

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/skaphos/gitsync/internal/gitx"
	"github.com/skaphos/gitsync/internal/model"
)

var _ = Describe("GitRunner.Run", func() {
	var (
		runner *gitx.GitRunner
		loc    model.Location
	)

	BeforeEach(func() {
		if _, err := exec.LookPath("git"); err != nil {
			Skip("git not installed")
		}
		runner = gitx.NewGitRunner(nil)
		repo := filepath.Join(GinkgoT().TempDir(), "repo")
		Expect(exec.Command("git", "init", repo).Run()).To(Succeed())
		loc = model.NewLocation(filepath.Join(repo, ".git"))
	})

	It("captures stdout for a clean exit", func() {
		out := runner.Run(context.Background(), loc, gitx.CurrentBranchArgs()...)
		Expect(out.ExitedCleanly).To(BeTrue())
		Expect(out.Err).NotTo(HaveOccurred())
		Expect(out.ExitCode).To(Equal(0))
		Expect(gitx.TrimLineTerminator(out.Stdout)).NotTo(BeEmpty())
	})

	It("reports a non-clean exit with stderr instead of panicking", func() {
		out := runner.Run(context.Background(), loc, "rev-list", "--count", "origin/main..main")
		Expect(out.ExitedCleanly).To(BeFalse())
		Expect(out.ExitCode).To(BeNumerically(">", 0))
		Expect(out.Diagnostic()).NotTo(BeEmpty())
	})

	It("errors for a nonexistent metadata directory", func() {
		missing := model.NewLocation(filepath.Join(GinkgoT().TempDir(), "nope", ".git"))
		out := runner.Run(context.Background(), missing, "rev-parse", "HEAD")
		Expect(out.ExitedCleanly).To(BeFalse())
		Expect(gitx.ClassifyOutcome(out)).To(Equal("corrupt"))
	})

	It("respects context cancellation", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		out := runner.Run(ctx, loc, "status")
		Expect(out.ExitedCleanly).To(BeFalse())
		Expect(out.Canceled()).To(BeTrue())
		Expect(gitx.ClassifyOutcome(out)).To(Equal("timeout"))
	})
})

var _ = Describe("GitRunner.Run with a stalled transport", func() {
	It("returns near the deadline while a child still holds the pipes", func() {
		if runtime.GOOS == "windows" {
			Skip("requires a POSIX shell")
		}
		// Stands in for git waiting on an ssh child that never answers.
		script := filepath.Join(GinkgoT().TempDir(), "git")
		Expect(os.WriteFile(script, []byte("#!/bin/sh\nsleep 30 &\nwait\necho done\n"), 0o755)).To(Succeed())
		runner := &gitx.GitRunner{GitBin: script, WaitDelay: 500 * time.Millisecond}

		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()
		started := time.Now()
		out := runner.Run(ctx, model.Location{GitDir: "/src/repo/.git", WorkTree: "/src/repo"}, gitx.FetchArgs("origin")...)

		Expect(time.Since(started)).To(BeNumerically("<", 5*time.Second))
		Expect(out.ExitedCleanly).To(BeFalse())
		Expect(out.TimedOut()).To(BeTrue())
		Expect(out.Stdout).NotTo(ContainSubstring("done"))
	})
})

var _ = Describe("Outcome", func() {
	It("detects deadline expiry", func() {
		out := gitx.Outcome{Err: context.DeadlineExceeded}
		Expect(out.TimedOut()).To(BeTrue())
		Expect(out.Canceled()).To(BeFalse())
	})

	It("prefers stderr for diagnostics", func() {
		out := gitx.Outcome{Stderr: "  fatal: boom\n", Err: errors.New("exit status 128")}
		Expect(out.Diagnostic()).To(Equal("fatal: boom"))
		out.Stderr = ""
		Expect(out.Diagnostic()).To(Equal("exit status 128"))
	})
})

var _ = Describe("Command arguments", func() {
	loc := model.Location{GitDir: "/src/repo/.git", WorkTree: "/src/repo"}

	It("prefixes the metadata directory and working tree", func() {
		Expect(gitx.BaseArgs(loc)).To(Equal([]string{"--git-dir", "/src/repo/.git", "--work-tree", "/src/repo"}))
		Expect(gitx.BaseArgs(model.Location{GitDir: "/bare.git"})).To(Equal([]string{"--git-dir", "/bare.git"}))
	})

	It("renders a shell-like command line", func() {
		Expect(gitx.CommandLine(loc, gitx.PushArgs("origin", "main")...)).
			To(Equal("git --git-dir /src/repo/.git --work-tree /src/repo push -- origin main"))
	})

	It("counts in both directions against the tracking ref", func() {
		Expect(gitx.AheadArgs("origin", "dev")).To(Equal([]string{"rev-list", "--count", "origin/dev..dev"}))
		Expect(gitx.BehindArgs("origin", "dev")).To(Equal([]string{"rev-list", "--count", "dev..origin/dev"}))
	})

	It("only fast-forwards", func() {
		Expect(gitx.FastForwardArgs("origin", "dev")).To(ContainElement("--ff-only"))
		Expect(gitx.FetchArgs("upstream")).To(HaveExactElements("-c", "fetch.recurseSubmodules=false", "fetch", "--no-recurse-submodules", "--", "upstream"))
	})

	It("ends options before the remote name", func() {
		Expect(gitx.FetchArgs("--upload-pack=touch /tmp/x")).To(HaveExactElements(
			"-c", "fetch.recurseSubmodules=false", "fetch", "--no-recurse-submodules", "--", "--upload-pack=touch /tmp/x"))
		Expect(gitx.PushArgs("--receive-pack=x", "main")).To(HaveExactElements("push", "--", "--receive-pack=x", "main"))
	})
})
