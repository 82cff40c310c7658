package engine

import (
	"context"
	"fmt"
	"slices"

	"github.com/rdmcfg/rdm/git"
	"github.com/rdmcfg/rdm/ledger"
	"github.com/rdmcfg/rdm/rdmerr"
)

var pullErrs = rdmerr.Component("pull")

// PullResult describes how a pull resolved.
type PullResult struct {
	Remote   string
	Branch   string
	Analysis git.Analysis
	// Local and Fetched are the branch head before the pull and the
	// fetched commit. Local is empty on an unborn branch.
	Local   string
	Fetched string
	// Head is the branch head after the pull. It is unchanged when the
	// merge conflicted.
	Head string
	// Conflicts lists the paths left with conflict markers.
	Conflicts []string
}

// Conflicted reports whether the pull stopped on merge conflicts.
func (r *PullResult) Conflicted() bool {
	return len(r.Conflicts) > 0
}

// Pull fetches the tracked branch of the current branch and integrates it.
//
// A fast-forward moves the branch and force-checks out the new tree. A
// diverged history is merged; when the merge conflicts, the merged tree is
// checked out with conflict markers, nothing is committed and the
// conflicting paths are returned without an error. The ledger file keeps
// this machine's binding across every checkout and its revision becomes
// the higher of the local and pulled revisions.
func (e *Engine) Pull(ctx context.Context) (*PullResult, error) {
	branch, remote, url, err := e.upstream(ctx, pullErrs)
	if err != nil {
		return nil, err
	}
	env, err := e.transportEnv(ctx, pullErrs, url)
	if err != nil {
		return nil, err
	}

	e.log.Info(fmt.Sprintf("Fetching %s/%s", remote, branch))
	fetched, err := e.repo.Fetch(ctx, remote, branch, env, e.OnProgress)
	if err != nil {
		return nil, pullErrs.Wrap(rdmerr.TransportFailure, err)
	}

	local, err := e.repo.Head(ctx)
	if err != nil {
		return nil, classify(pullErrs, err)
	}
	analysis, err := e.repo.Analyze(ctx, local, fetched)
	if err != nil {
		return nil, classify(pullErrs, err)
	}
	e.log.Debug("analyzed fetch", "local", local, "fetched", fetched, "analysis", analysis)

	result := &PullResult{
		Remote:   remote,
		Branch:   branch,
		Analysis: analysis,
		Local:    local,
		Fetched:  fetched,
		Head:     local,
	}

	if analysis == git.UpToDate {
		e.log.Info("Your configuration is already up to date.")
		return result, nil
	}

	entry := e.ledgerEntry()
	pulled := e.pulledRevision(ctx, fetched, entry)

	if analysis == git.FastForward {
		if err := e.fastForward(ctx, branch, local, fetched); err != nil {
			return nil, classify(pullErrs, err)
		}
		result.Head = fetched
	} else if err := e.merge(ctx, result, entry); err != nil {
		return nil, classify(pullErrs, err)
	}

	// Every checkout above may have rewritten the tracked ledger file.
	if entry != "" {
		if err := e.ledger.Adopt(pulled); err != nil {
			return nil, pullErrs.Wrap(rdmerr.LedgerFailure, err)
		}
	}

	if analysis == git.FastForward {
		e.log.Info("Fast forwarded to FETCH_HEAD.")
	}
	return result, nil
}

// ledgerEntry returns the worktree-relative path of the ledger file, or ""
// when the ledger lives outside the worktree.
func (e *Engine) ledgerEntry() string {
	path := e.ledger.Path()
	if path == "" {
		return ""
	}
	rel, err := e.repo.RelPath(path)
	if err != nil {
		return ""
	}
	return rel
}

// pulledRevision reads the revision recorded by the ledger copy in commit.
// A missing or unreadable copy counts as revision 0.
func (e *Engine) pulledRevision(ctx context.Context, commit, entry string) uint32 {
	if entry == "" {
		return 0
	}
	data, ok, err := e.repo.ReadFile(ctx, commit, entry)
	if err != nil || !ok {
		return 0
	}
	l, err := ledger.Decode(data)
	if err != nil {
		e.log.Warn("ignoring unreadable ledger in fetched commit", "commit", commit, "error", err)
		return 0
	}
	return l.Revision
}

// fastForward points the branch at fetched, creating it when unborn, and
// makes the index and worktree match it.
func (e *Engine) fastForward(ctx context.Context, branch, local, fetched string) error {
	ref := git.BranchRef(branch)
	message := fmt.Sprintf("Setting %s to %s", ref, fetched)
	if err := e.repo.UpdateRef(ctx, ref, fetched, local, message); err != nil {
		return err
	}
	if err := e.repo.SetHead(ctx, ref); err != nil {
		return err
	}
	return e.repo.ForceCheckout(ctx, fetched)
}

// merge three-way merges the fetched commit into the local branch and
// records the outcome in result. The ledger entry always keeps the local
// side, so it never conflicts.
func (e *Engine) merge(ctx context.Context, result *PullResult, entry string) error {
	base, err := e.repo.MergeBase(ctx, result.Local, result.Fetched)
	if err != nil {
		return err
	}
	merged, err := e.repo.MergeTrees(ctx, result.Local, result.Fetched)
	if err != nil {
		return err
	}
	e.log.Debug("merged trees", "base", base, "tree", merged.Tree, "conflicts", len(merged.Conflicts))

	tree := merged.Tree
	conflicts := merged.Conflicts
	if entry != "" {
		if tree, err = e.repo.PinEntry(ctx, tree, result.Local, entry); err != nil {
			return err
		}
		conflicts = slices.DeleteFunc(slices.Clone(conflicts), func(p string) bool { return p == entry })
	}

	if len(conflicts) > 0 {
		e.log.Warn("Merge conflicts detected...")
		if err := e.repo.CheckoutMergedTree(ctx, tree); err != nil {
			return err
		}
		result.Conflicts = conflicts
		return nil
	}

	message := fmt.Sprintf("Merge: %s into %s", result.Fetched, result.Local)
	commit, err := e.repo.CommitTree(ctx, tree, []string{result.Local, result.Fetched}, message)
	if err != nil {
		return err
	}
	// The worktree moves first so a refused checkout leaves the branch
	// where it was.
	if err := e.repo.SwitchTree(ctx, result.Local, commit); err != nil {
		return err
	}
	if err := e.repo.UpdateRef(ctx, git.BranchRef(result.Branch), commit, result.Local, message); err != nil {
		return err
	}

	result.Head = commit
	e.log.Info("Successfully merged FETCH_HEAD into " + result.Branch)
	return nil
}
