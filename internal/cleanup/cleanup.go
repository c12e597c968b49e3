// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cleanup removes downloaded files that have aged past a cutoff.
package cleanup

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// Options controls one sweep.
type Options struct {
	// MaxAge is the age past which a file is removed.
	MaxAge time.Duration

	// DryRun reports what would be removed without touching the tree.
	DryRun bool

	Logger *zap.Logger

	// Now defaults to time.Now.
	Now func() time.Time
}

// Result summarizes a sweep.
type Result struct {
	Files int
	Bytes int64
	Paths []string
}

// OlderThan walks dir and removes regular files whose modification time is
// before now minus MaxAge. A missing dir yields an empty result.
func OlderThan(dir string, opts Options) (Result, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	if opts.MaxAge < 0 {
		return Result{}, fmt.Errorf("max age must not be negative, got %s", opts.MaxAge)
	}
	cutoff := now().Add(-opts.MaxAge)

	var res Result
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == dir && errors.Is(walkErr, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return walkErr
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if !info.ModTime().Before(cutoff) {
			return nil
		}
		if !opts.DryRun {
			if err := os.Remove(path); err != nil {
				return fmt.Errorf("removing %s: %w", path, err)
			}
		}
		res.Files++
		res.Bytes += info.Size()
		res.Paths = append(res.Paths, path)
		log.Debug("old file", zap.String("path", path), zap.Bool("dry_run", opts.DryRun))
		return nil
	})
	if err != nil {
		return res, fmt.Errorf("cleaning %s: %w", dir, err)
	}
	log.Info("cleanup finished",
		zap.String("dir", dir),
		zap.Int("files", res.Files),
		zap.Int64("bytes", res.Bytes),
		zap.Bool("dry_run", opts.DryRun),
	)
	return res, nil
}
