// SPDX-License-Identifier: MIT

// Package discovery walks a root directory to find git repositories.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"github.com/skaphos/gitsync/internal/model"
)

var (
	// ErrRootMissing is returned when the scan root does not exist.
	ErrRootMissing = errors.New("root does not exist")
	// ErrRootNotDir is returned when the scan root is not a directory.
	ErrRootNotDir = errors.New("root is not a directory")
	// ErrRootUnreadable is returned when the scan root cannot be listed.
	ErrRootUnreadable = errors.New("root is not readable")
)

// DefaultSkipNames are dependency-cache directories that are never descended into.
var DefaultSkipNames = []string{"node_modules"}

// Error is the fatal discovery failure for a scan root.
type Error struct {
	Root string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("discover %s: %v", e.Root, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Options configures the discovery scan.
type Options struct {
	Root string
	// SkipNames are directory names skipped entirely. Nil uses DefaultSkipNames.
	SkipNames []string
	// Exclude holds doublestar globs matched against absolute slash paths.
	Exclude []string
	Logger  *zap.Logger
}

// Scan walks Root depth-first in lexical order and returns one Location per
// .git directory found. Descent stops at each .git directory, at skipped
// names, and at excluded paths. Symlinks are not followed.
func Scan(ctx context.Context, opts Options) ([]model.Location, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	skip := opts.SkipNames
	if skip == nil {
		skip = DefaultSkipNames
	}
	skipSet := make(map[string]struct{}, len(skip))
	for _, name := range skip {
		skipSet[name] = struct{}{}
	}

	root, err := checkRoot(opts.Root)
	if err != nil {
		return nil, err
	}

	var results []model.Location
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == root {
				return &Error{Root: root, Err: errors.Join(ErrRootUnreadable, err)}
			}
			// Unreadable subtrees are not fatal; the rest of the fleet still syncs.
			logger.Debug("skipping unreadable directory", zap.String("path", path), zap.Error(err))
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.IsDir() || path == root {
			return nil
		}

		name := d.Name()
		if name == model.GitDirName {
			results = append(results, model.NewLocation(path))
			return fs.SkipDir
		}
		if _, ok := skipSet[name]; ok {
			return fs.SkipDir
		}
		if MatchesExclude(path, opts.Exclude) {
			logger.Debug("excluded directory", zap.String("path", path))
			return fs.SkipDir
		}
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}
	return results, nil
}

// MatchesExclude checks whether a path matches any of the given exclude
// glob patterns.
func MatchesExclude(path string, patterns []string) bool {
	if len(patterns) == 0 {
		return false
	}
	slashPath := filepath.ToSlash(path)
	for _, pattern := range patterns {
		pattern = filepath.ToSlash(pattern)
		match, err := doublestar.Match(pattern, slashPath)
		if err != nil {
			continue
		}
		if match {
			return true
		}
	}
	return false
}

func checkRoot(root string) (string, error) {
	if root == "" {
		return "", &Error{Root: root, Err: ErrRootMissing}
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", &Error{Root: root, Err: err}
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", &Error{Root: abs, Err: ErrRootMissing}
		}
		return "", &Error{Root: abs, Err: errors.Join(ErrRootUnreadable, err)}
	}
	if !info.IsDir() {
		return "", &Error{Root: abs, Err: ErrRootNotDir}
	}
	// WalkDir does not descend through a symlinked root.
	if linfo, err := os.Lstat(abs); err == nil && linfo.Mode()&os.ModeSymlink != 0 {
		if resolved, err := filepath.EvalSymlinks(abs); err == nil {
			abs = resolved
		}
	}
	return abs, nil
}
