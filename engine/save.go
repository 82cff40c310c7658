package engine

import (
	"context"
	"fmt"

	"github.com/rdmcfg/rdm/git"
	"github.com/rdmcfg/rdm/rdmerr"
)

var saveErrs = rdmerr.Component("save")

var errNoChanges = saveErrs.Text(rdmerr.NoChangesToSave,
	"No changes were saved to the config, try to run `rdm config update'.")

// SaveResult describes a saved revision.
type SaveResult struct {
	Revision uint32
	Commit   string
	// Changes lists the staged paths recorded by the revision, classified
	// by their index status.
	Changes []git.StatusEntry
}

// Save commits the index as the next revision on top of HEAD.
//
// The ledger is advanced only once the commit object exists, and rolled
// back if HEAD cannot be moved to it, so the revision counter never runs
// ahead of the saved history.
func (e *Engine) Save(ctx context.Context) (*SaveResult, error) {
	entries, err := e.repo.Status(ctx, git.StatusOptions{})
	if err != nil {
		return nil, classify(saveErrs, err)
	}

	var pending, changes []git.StatusEntry
	for _, entry := range entries {
		if entry.IsCurrent() || entry.Worktree == git.Ignored || entry.Worktree == git.Untracked {
			continue
		}
		pending = append(pending, entry)
		if entry.Index.IsStaged() {
			changes = append(changes, entry)
		}
	}
	if len(pending) == 0 {
		return nil, errNoChanges
	}

	rev, err := e.ledger.Next()
	if err != nil {
		return nil, saveErrs.Wrap(rdmerr.LedgerFailure, err)
	}

	tree, err := e.repo.WriteTree(ctx)
	if err != nil {
		return nil, classify(saveErrs, err)
	}
	head, err := e.repo.Head(ctx)
	if err != nil {
		return nil, classify(saveErrs, err)
	}

	var parents []string
	if head != "" {
		headTree, err := e.repo.TreeOf(ctx, head)
		if err != nil {
			return nil, classify(saveErrs, err)
		}
		if headTree == tree {
			// Only unsaved worktree changes; the index matches HEAD.
			return nil, errNoChanges
		}
		parents = []string{head}
	}

	message := fmt.Sprintf("Revision #%d", rev)
	commit, err := e.repo.CommitTree(ctx, tree, parents, message)
	if err != nil {
		return nil, classify(saveErrs, err)
	}

	if err := e.ledger.Commit(rev); err != nil {
		return nil, saveErrs.Wrapf(rdmerr.LedgerFailure, err, "failed to record revision #%d", rev)
	}

	if err := e.repo.UpdateRef(ctx, "HEAD", commit, head, message); err != nil {
		if rerr := e.ledger.Revert(rev - 1); rerr != nil {
			e.log.Error("failed to roll back ledger", "revision", rev, "error", rerr)
		}
		return nil, classify(saveErrs, err)
	}

	e.log.Debug("saved revision", "revision", rev, "commit", commit, "parent", head)
	e.log.Info(fmt.Sprintf("The revision #%d of your config was saved with the following changes:", rev))
	return &SaveResult{Revision: rev, Commit: commit, Changes: changes}, nil
}
