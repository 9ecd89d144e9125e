// SPDX-License-Identifier: MIT
package gitsync

import (
	"github.com/spf13/pflag"

	"github.com/skaphos/gitsync/internal/cliio"
	"github.com/skaphos/gitsync/internal/config"
	"github.com/skaphos/gitsync/internal/logging"
	"github.com/skaphos/gitsync/internal/strutil"
)

const (
	formatUsage    = "output format: text, table, json, or yaml"
	logFormatUsage = "diagnostic log format on stderr: console or json"
	excludeUsage   = "comma-separated doublestar globs of directories to skip"
)

// syncFlags are the flags of a sync run. Each one overrides the config
// value of the same name only when set on the command line.
type syncFlags struct {
	push        bool
	ordered     bool
	format      string
	timeout     int
	concurrency int
	exclude     string
	remote      string
}

func addGlobalFlags(fs *pflag.FlagSet, f *globalFlags) {
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "print the raw git diagnostics of failed steps and debug logs")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only log errors")
	fs.StringVar(&f.config, "config", "", "override config file path")
	fs.BoolVar(&f.noColor, "no-color", false, "disable colored output")
	fs.StringVar(&f.logFormat, "log-format", string(logging.FormatConsole), logFormatUsage)
}

func addSyncFlags(fs *pflag.FlagSet, f *syncFlags) {
	fs.BoolVarP(&f.push, "push", "p", false, "push branches that are only ahead of their remote")
	fs.BoolVar(&f.ordered, "ordered", false, "print repositories in discovery order instead of completion order")
	fs.StringVarP(&f.format, "format", "o", cliio.FormatText, formatUsage)
	fs.IntVar(&f.timeout, "timeout", 60, "timeout in seconds for each git command (0 disables)")
	fs.IntVar(&f.concurrency, "concurrency", 0, "max repositories synced at once (0 = unbounded)")
	fs.StringVar(&f.exclude, "exclude", "", excludeUsage)
	fs.StringVar(&f.remote, "remote", "origin", "remote whose tracking branch is compared")
}

// applySyncFlags copies explicitly set flags over cfg.
func applySyncFlags(fs *pflag.FlagSet, global *globalFlags, f *syncFlags, cfg *config.Config) {
	if fs.Changed("verbose") {
		cfg.Verbose = global.verbose
	}
	if fs.Changed("push") {
		cfg.Push = f.push
	}
	if fs.Changed("ordered") {
		cfg.Ordered = f.ordered
	}
	if fs.Changed("timeout") {
		cfg.TimeoutSeconds = f.timeout
	}
	if fs.Changed("concurrency") {
		cfg.Concurrency = f.concurrency
	}
	if fs.Changed("exclude") {
		cfg.Exclude = append(cfg.Exclude, strutil.SplitCSV(f.exclude)...)
	}
	if fs.Changed("remote") {
		cfg.Remote = f.remote
	}
}
