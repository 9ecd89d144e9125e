// SPDX-License-Identifier: MIT

// Package engine orchestrates a fleet sync: discovery, one pipeline per
// repository, and report delivery.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/skaphos/gitsync/internal/discovery"
	"github.com/skaphos/gitsync/internal/gitx"
	"github.com/skaphos/gitsync/internal/model"
	"github.com/skaphos/gitsync/internal/sortutil"
)

const maxWorkerChannelBuffer = 100

// Sink receives reports as repositories finish.
// Calls are made from a single coordinator goroutine, so implementations
// can write terminal output without additional synchronization.
type Sink interface {
	Report(model.Report)
	Notice(msg string)
}

type nopSink struct{}

func (nopSink) Report(model.Report) {}
func (nopSink) Notice(string)       {}

// SinkFuncs adapts plain functions to a Sink. Nil fields are ignored.
type SinkFuncs struct {
	OnReport func(model.Report)
	OnNotice func(string)
}

func (s SinkFuncs) Report(r model.Report) {
	if s.OnReport != nil {
		s.OnReport(r)
	}
}

func (s SinkFuncs) Notice(msg string) {
	if s.OnNotice != nil {
		s.OnNotice(msg)
	}
}

// Engine is the fleet orchestrator.
type Engine struct {
	runner gitx.Runner
	opts   model.Options
	logger *zap.Logger
}

// New creates an Engine. A nil runner uses the git binary.
func New(runner gitx.Runner, opts model.Options, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if runner == nil {
		runner = gitx.NewGitRunner(logger)
	}
	return &Engine{runner: runner, opts: opts, logger: logger}
}

// Options returns the engine's sync options.
func (e *Engine) Options() model.Options { return e.opts }

// NoReposNotice is the message delivered when discovery finds nothing.
func NoReposNotice(root string) string {
	return fmt.Sprintf("No git repositories found under %s; nothing to synchronize.", root)
}

// Run discovers repositories under scan.Root and syncs all of them.
// A discovery failure is fatal and no git command is issued. When no
// repository is found the sink gets a single notice and Run returns nil.
func (e *Engine) Run(ctx context.Context, scan discovery.Options, sink Sink) ([]model.Report, error) {
	if sink == nil {
		sink = nopSink{}
	}
	if scan.Logger == nil {
		scan.Logger = e.logger
	}
	locs, err := discovery.Scan(ctx, scan)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("discovery finished", zap.String("root", scan.Root), zap.Int("repos", len(locs)))
	if len(locs) == 0 {
		sink.Notice(NoReposNotice(scan.Root))
		return nil, nil
	}
	return e.Sync(ctx, locs, sink), nil
}

// Sync runs one pipeline per location concurrently and returns the reports
// in discovery order. Each report reaches the sink exactly once, in
// completion order or, with Options.Ordered, in discovery order.
func (e *Engine) Sync(ctx context.Context, locs []model.Location, sink Sink) []model.Report {
	if sink == nil {
		sink = nopSink{}
	}
	if len(locs) == 0 {
		return nil
	}

	out := make(chan model.Report, workerChannelBufferSize(len(locs)))
	go e.launch(ctx, locs, out)

	results := make([]model.Report, 0, len(locs))
	pending := make(map[int]model.Report)
	next := 0
	for range locs {
		res := <-out
		results = append(results, res)
		if !e.opts.Ordered {
			sink.Report(res)
			continue
		}
		pending[res.Index] = res
		for {
			ready, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			sink.Report(ready)
			next++
		}
	}
	sortutil.SortReports(results)
	return results
}

// launch starts the pipelines. It runs apart from the coordinator so a
// full result buffer never stalls while the semaphore is held.
func (e *Engine) launch(ctx context.Context, locs []model.Location, out chan<- model.Report) {
	var sem chan struct{}
	if e.opts.Concurrency > 0 {
		sem = make(chan struct{}, e.opts.Concurrency)
	}
	var wg sync.WaitGroup
	for i, loc := range locs {
		if sem != nil {
			sem <- struct{}{}
		}
		wg.Add(1)
		go func(index int, loc model.Location) {
			defer wg.Done()
			if sem != nil {
				defer func() { <-sem }()
			}
			out <- e.syncOne(ctx, index, loc)
		}(i, loc)
	}
	wg.Wait()
}

func (e *Engine) syncOne(ctx context.Context, index int, loc model.Location) model.Report {
	start := time.Now()
	state := NewPipeline(loc, e.runner, e.opts, e.logger).Run(ctx)
	report := model.Report{RepoState: state, Index: index, Duration: time.Since(start)}
	e.logger.Debug("repository synced",
		zap.String("repo", loc.WorkTree),
		zap.String("outcome", report.Tag()),
		zap.Duration("duration", report.Duration),
	)
	return report
}

func workerChannelBufferSize(entryCount int) int {
	if entryCount <= 0 {
		return 1
	}
	if entryCount > maxWorkerChannelBuffer {
		return maxWorkerChannelBuffer
	}
	return entryCount
}
