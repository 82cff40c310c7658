package engine

import (
	"context"

	"github.com/rdmcfg/rdm/git"
	"github.com/rdmcfg/rdm/rdmerr"
)

var (
	statusErrs = rdmerr.Component("status")
	addErrs    = rdmerr.Component("add")
	updateErrs = rdmerr.Component("update")
)

// Status returns the non-current entries of the configuration tree, or of
// path when it is non-empty. Untracked files are included in whole-tree
// scans only when untracked is set.
func (e *Engine) Status(ctx context.Context, path string, untracked bool) ([]git.StatusEntry, error) {
	entries, err := e.repo.Status(ctx, git.StatusOptions{Path: path, Untracked: untracked})
	if err != nil {
		return nil, classify(statusErrs, err)
	}

	changed := entries[:0]
	for _, entry := range entries {
		if entry.IsCurrent() {
			continue
		}
		changed = append(changed, entry)
	}
	return changed, nil
}

// Add stages path if it is untracked or differs from the index.
func (e *Engine) Add(ctx context.Context, path string) ([]string, error) {
	staged, err := e.repo.Add(ctx, path)
	if err != nil {
		return staged, classify(addErrs, err)
	}
	return staged, nil
}

// Update stages modifications and deletions of tracked files under paths,
// or across the whole tree when no path is given.
func (e *Engine) Update(ctx context.Context, paths ...string) ([]string, error) {
	staged, err := e.repo.Update(ctx, paths...)
	if err != nil {
		return staged, classify(updateErrs, err)
	}
	return staged, nil
}
