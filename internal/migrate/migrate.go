// Package migrate copies the task list and theme preference from one
// storage backend to another.
package migrate

import (
	"context"
	"errors"
	"fmt"

	"todolite/backend"
	"todolite/internal/task"
	"todolite/internal/utils"
)

// Options controls a migration.
type Options struct {
	// Key is the blob key of the task list on both sides.
	Key string
	// DryRun counts what would be copied without writing.
	DryRun bool
}

// Result summarises a migration.
type Result struct {
	Source   int  `json:"source"`   // tasks in the source list
	Migrated int  `json:"migrated"` // tasks added to the target
	Skipped  int  `json:"skipped"`  // tasks whose id already existed in the target
	DarkMode bool `json:"darkMode"` // theme preference copied
	DryRun   bool `json:"dryRun"`
}

// Run merges the source task list into the target. Tasks whose id already
// exists in the target are left alone, so running a migration twice adds
// nothing the second time. The dark-mode preference is copied only when the
// target has none.
func Run(ctx context.Context, src, dst backend.BlobStore, opts Options) (Result, error) {
	key := opts.Key
	if key == "" {
		key = backend.DefaultTasksKey
	}

	from, err := task.Open(ctx, src, task.WithKey(key))
	if err != nil {
		return Result{}, fmt.Errorf("failed to open source: %w", err)
	}
	to, err := task.Open(ctx, dst, task.WithKey(key))
	if err != nil {
		return Result{}, fmt.Errorf("failed to open target: %w", err)
	}

	snap := from.Export()
	res := Result{Source: len(snap.Tasks), DryRun: opts.DryRun}

	copyTheme, err := needsDarkMode(ctx, src, dst)
	if err != nil {
		return Result{}, err
	}

	if opts.DryRun {
		for _, t := range snap.Tasks {
			if _, exists := to.Get(t.ID); exists {
				res.Skipped++
			} else {
				res.Migrated++
			}
		}
		res.DarkMode = copyTheme
		return res, nil
	}

	if len(snap.Tasks) > 0 {
		data, err := task.MarshalSnapshot(snap)
		if err != nil {
			return Result{}, err
		}
		added, err := to.Import(ctx, data)
		if err != nil {
			return Result{}, fmt.Errorf("failed to write target: %w", err)
		}
		res.Migrated = added
		res.Skipped = res.Source - added
	}

	if copyTheme {
		if err := to.SetDarkMode(ctx, from.DarkMode()); err != nil {
			return res, fmt.Errorf("failed to copy theme: %w", err)
		}
		res.DarkMode = true
	}

	utils.Debugf("migrated %d of %d tasks", res.Migrated, res.Source)
	return res, nil
}

// needsDarkMode reports whether the source has a theme preference and the
// target does not.
func needsDarkMode(ctx context.Context, src, dst backend.BlobStore) (bool, error) {
	if _, err := src.Get(ctx, backend.DarkModeKey); err != nil {
		if errors.Is(err, backend.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read source theme: %w", err)
	}
	if _, err := dst.Get(ctx, backend.DarkModeKey); err != nil {
		if errors.Is(err, backend.ErrNotFound) {
			return true, nil
		}
		return false, fmt.Errorf("failed to read target theme: %w", err)
	}
	return false, nil
}
