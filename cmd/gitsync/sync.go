// SPDX-License-Identifier: MIT
package gitsync

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/skaphos/gitsync/internal/cliio"
	"github.com/skaphos/gitsync/internal/config"
	"github.com/skaphos/gitsync/internal/engine"
	"github.com/skaphos/gitsync/internal/logging"
	"github.com/skaphos/gitsync/internal/model"
)

func runSync(cmd *cobra.Command, global *globalFlags, f *syncFlags, args []string) error {
	format := strings.ToLower(strings.TrimSpace(f.format))
	if !cliio.ValidFormat(format) {
		return fmt.Errorf("unsupported format %q (expected one of %s)", f.format, strings.Join(cliio.Formats, ", "))
	}

	cfg, err := loadConfig(cmd, global, f, args)
	if err != nil {
		return err
	}

	logger, err := logging.New(cmd.ErrOrStderr(), logging.LevelFor(cfg.Verbose, global.quiet), logging.Format(global.logFormat))
	if err != nil {
		return err
	}
	defer func() { _ = logging.Flush(logger) }()
	logger.Debug("configuration loaded",
		zap.String("config_file", cfg.Path),
		zap.String("directory", cfg.Directory),
		zap.Bool("push", cfg.Push),
		zap.Int("timeout_seconds", cfg.TimeoutSeconds),
		zap.Int("concurrency", cfg.Concurrency),
	)

	color := setColorOutputMode(cmd, format, global.noColor)
	var (
		lines     *cliio.LineWriter
		collector *cliio.Collector
		sink      engine.Sink
	)
	if cliio.Streaming(format) {
		lines = cliio.NewLineWriter(cmd.OutOrStdout(), cliio.FormatOptions{Color: color, Verbose: cfg.Verbose})
		sink = lines
	} else {
		collector = &cliio.Collector{}
		sink = collector
	}

	start := time.Now()
	eng := engine.New(newRunner(logger), cfg.Options(), logger)
	scan := cfg.Scan()
	scan.Logger = logger
	reports, err := eng.Run(cmd.Context(), scan, sink)
	if err != nil {
		return err
	}

	switch format {
	case cliio.FormatText:
		if err := lines.Err(); err != nil {
			return err
		}
	case cliio.FormatTable:
		for _, notice := range collector.Notices() {
			if _, err := fmt.Fprintln(cmd.OutOrStdout(), notice); err != nil {
				return err
			}
		}
		if len(reports) > 0 {
			if err := cliio.WriteReportTable(cmd.OutOrStdout(), reports, color, false); err != nil {
				return err
			}
		}
	case cliio.FormatJSON, cliio.FormatYAML:
		doc := cliio.Document{
			Root:    cfg.Directory,
			Repos:   reports,
			Summary: model.Summarize(reports),
			Notices: collector.Notices(),
		}
		write := cliio.WriteJSON
		if format == cliio.FormatYAML {
			write = cliio.WriteYAML
		}
		if err := write(cmd.OutOrStdout(), doc); err != nil {
			return err
		}
	}

	for _, r := range reports {
		raiseExitCode(cmd, exitCodeFor(r))
	}
	sum := model.Summarize(reports)
	logger.Info("sync completed",
		zap.Int("repos", sum.Total),
		zap.Int("errors", sum.Errors),
		zap.Int("warnings", sum.Warnings),
		zap.Any("outcomes", sum.ByTag),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// exitCodeFor maps a report to its exit severity. Branches that need a
// push or a manual merge are warnings; failed steps are errors.
func exitCodeFor(r model.Report) int {
	switch r.Outcome {
	case model.OutcomeError:
		return exitError
	case model.OutcomeAheadNeedsPush, model.OutcomeDiverged:
		return exitWarning
	default:
		return exitOK
	}
}

// loadConfig resolves and loads the config file, then applies the ROOT
// argument and explicitly set flags. A config file found only by the
// implicit search may be absent; an explicit --config or GITSYNC_CONFIG
// path must exist.
func loadConfig(cmd *cobra.Command, global *globalFlags, f *syncFlags, args []string) (*config.Config, error) {
	cwd, err := getwd()
	if err != nil {
		return nil, err
	}
	path, err := config.ResolveConfigPath(global.config, cwd)
	if err != nil {
		return nil, err
	}
	explicit := global.config != "" || os.Getenv(config.EnvConfigPath) != ""
	if !explicit {
		if _, statErr := os.Stat(path); statErr != nil {
			if !errors.Is(statErr, os.ErrNotExist) {
				return nil, statErr
			}
			path = ""
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if len(args) == 1 {
		cfg.Directory = absUnder(cwd, args[0])
	}
	applySyncFlags(cmd.Flags(), global, f, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// absUnder resolves dir against cwd unless it is already absolute.
func absUnder(cwd, dir string) string {
	dir = config.ResolveDirectory("", dir)
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(cwd, dir)
}
