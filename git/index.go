package git

import (
	"context"
)

// Stage records the worktree state of path in the index, including
// deletions. The index is written before Stage returns.
func (r *Repository) Stage(ctx context.Context, path string) error {
	if err := r.run(ctx, "add", "-A", "--", path); err != nil {
		return err
	}
	r.log.Debug("staged path", "path", path)
	return nil
}

// Add stages every untracked or worktree-changed path under path and
// returns the staged paths. Paths that are already current are logged and
// left alone.
func (r *Repository) Add(ctx context.Context, path string) ([]string, error) {
	entries, err := r.Status(ctx, StatusOptions{Path: path})
	if err != nil {
		return nil, err
	}
	return r.stageEntries(ctx, path, entries, true)
}

// Update stages worktree modifications and deletions of tracked files.
// With no paths the whole worktree is scanned. Untracked files are never
// staged. Each path is staged with its own index write, so a failure part
// way through leaves the earlier paths staged.
func (r *Repository) Update(ctx context.Context, paths ...string) ([]string, error) {
	if len(paths) == 0 {
		entries, err := r.Status(ctx, StatusOptions{})
		if err != nil {
			return nil, err
		}
		return r.stageEntries(ctx, "", entries, false)
	}

	var staged []string
	for _, p := range paths {
		entries, err := r.Status(ctx, StatusOptions{Path: p})
		if err != nil {
			return staged, err
		}
		done, err := r.stageEntries(ctx, p, entries, false)
		staged = append(staged, done...)
		if err != nil {
			return staged, err
		}
	}
	return staged, nil
}

func (r *Repository) stageEntries(ctx context.Context, requested string, entries []StatusEntry, includeUntracked bool) ([]string, error) {
	var staged []string
	untracked := false
	for _, e := range entries {
		switch {
		case e.Worktree.IsWorktreeChange():
		case e.Worktree == Untracked:
			if !includeUntracked {
				untracked = true
				continue
			}
		case e.Worktree == Ignored:
			r.log.Warn(e.Path + " is ignored, not adding")
			continue
		default:
			continue
		}

		if err := r.Stage(ctx, e.Path); err != nil {
			return staged, err
		}
		staged = append(staged, e.Path)
	}

	switch {
	case len(staged) > 0:
	case requested == "":
		r.log.Info("No changes to update")
	case untracked:
		r.log.Info(requested + " is untracked, nothing to update")
	default:
		r.log.Info(requested + " already added")
	}
	return staged, nil
}
