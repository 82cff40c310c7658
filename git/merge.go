package git

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	pexec "github.com/rdmcfg/rdm/exec"
)

// Analysis is the relationship between the local head and a fetched head.
type Analysis int

const (
	// UpToDate means the fetched commit is already contained in local.
	UpToDate Analysis = iota
	// FastForward means local can move forward to the fetched commit.
	FastForward
	// Normal means the histories diverged and need a three-way merge.
	Normal
)

func (a Analysis) String() string {
	switch a {
	case UpToDate:
		return "up-to-date"
	case FastForward:
		return "fast-forward"
	case Normal:
		return "normal"
	default:
		return fmt.Sprintf("Analysis(%d)", int(a))
	}
}

// Analyze classifies local against fetched. An empty local means the
// branch is unborn.
func (r *Repository) Analyze(ctx context.Context, local, fetched string) (Analysis, error) {
	if local == "" {
		return FastForward, nil
	}
	if local == fetched {
		return UpToDate, nil
	}

	contained, err := r.IsAncestor(ctx, fetched, local)
	if err != nil {
		return Normal, err
	}
	if contained {
		return UpToDate, nil
	}

	behind, err := r.IsAncestor(ctx, local, fetched)
	if err != nil {
		return Normal, err
	}
	if behind {
		return FastForward, nil
	}
	return Normal, nil
}

// MergeResult is the outcome of a three-way merge of two commits.
type MergeResult struct {
	// Tree is the merged tree. When Conflicts is non-empty the tree holds
	// the conflicted files with conflict markers.
	Tree      string
	Conflicts []string
}

// MergeTrees three-way merges the trees of ours and theirs using their
// merge base, without touching the index, worktree or any reference.
func (r *Repository) MergeTrees(ctx context.Context, ours, theirs string) (*MergeResult, error) {
	args := []string{"merge-tree", "--write-tree", "--name-only", "-z", "--no-messages", ours, theirs}
	stdout, stderr, err := r.executor.Run(ctx, r.Worktree, "git", r.args(args)...)

	code := pexec.ExitCode(err)
	if code != 0 && code != 1 {
		return nil, commandError(args, stderr, err)
	}

	result, perr := parseMergeTree(stdout)
	if perr != nil {
		return nil, perr
	}
	if code == 1 && len(result.Conflicts) == 0 {
		return nil, fmt.Errorf("git merge-tree reported conflicts without naming any paths")
	}
	return result, nil
}

// parseMergeTree reads "<tree>\0<path>\0<path>\0..." output.
func parseMergeTree(out []byte) (*MergeResult, error) {
	fields := bytes.Split(bytes.TrimRight(out, "\x00\n"), []byte{0})
	if len(fields) == 0 || len(fields[0]) == 0 {
		return nil, fmt.Errorf("git merge-tree produced no tree")
	}

	result := &MergeResult{Tree: string(bytes.TrimSpace(fields[0]))}
	seen := make(map[string]bool)
	for _, f := range fields[1:] {
		path := string(f)
		if path == "" || seen[path] {
			continue
		}
		seen[path] = true
		result.Conflicts = append(result.Conflicts, path)
	}
	return result, nil
}

// ForceCheckout makes the index and worktree match commit, discarding any
// local modifications to tracked files.
func (r *Repository) ForceCheckout(ctx context.Context, commit string) error {
	return r.run(ctx, "read-tree", "--reset", "-u", commit)
}

// SwitchTree moves the index and worktree from the tree of from to the
// tree of to, keeping unrelated local modifications.
func (r *Repository) SwitchTree(ctx context.Context, from, to string) error {
	return r.run(ctx, "read-tree", "-m", "-u", from, to)
}

// CheckoutMergedTree writes every file of a merged tree into the worktree,
// conflict markers included, through a scratch index. Neither HEAD nor the
// repository index moves, so the conflicted files show up as unsaved
// modifications and only an explicit update stages the resolution.
func (r *Repository) CheckoutMergedTree(ctx context.Context, tree string) error {
	err := r.withIndex(ctx, tree, func(env []string) error {
		_, err := r.outputEnv(ctx, env, "checkout-index", "-a", "-f")
		return err
	})
	if err != nil {
		return err
	}
	r.log.Debug("checked out merged tree", "tree", tree)
	return nil
}

// PinEntry returns a tree equal to tree except that path carries the entry
// it has in commit, or is absent when commit lacks it.
func (r *Repository) PinEntry(ctx context.Context, tree, commit, path string) (string, error) {
	mode, id, ok, err := r.TreeEntry(ctx, commit, path)
	if err != nil {
		return "", err
	}

	var pinned string
	err = r.withIndex(ctx, tree, func(env []string) error {
		update := []string{"update-index", "--force-remove", "--", path}
		if ok {
			update = []string{"update-index", "--add", "--cacheinfo", mode + "," + id + "," + path}
		}
		if _, err := r.outputEnv(ctx, env, update...); err != nil {
			return err
		}
		out, err := r.outputEnv(ctx, env, "write-tree")
		pinned = strings.TrimSpace(string(out))
		return err
	})
	if err != nil {
		return "", err
	}
	return pinned, nil
}

// withIndex loads tree into a scratch index file inside the repository and
// runs fn with the environment that points git at it.
func (r *Repository) withIndex(ctx context.Context, tree string, fn func(env []string) error) error {
	f, err := os.CreateTemp(r.GitDir, "rdm-index-*")
	if err != nil {
		return fmt.Errorf("failed to create scratch index: %w", err)
	}
	name := f.Name()
	f.Close()
	// git refuses an empty index file but creates a missing one.
	os.Remove(name)
	defer os.Remove(name)

	env := []string{"GIT_INDEX_FILE=" + name}
	if _, err := r.outputEnv(ctx, env, "read-tree", tree); err != nil {
		return err
	}
	return fn(env)
}

// TreeEntry returns the mode and object id of path in commit. ok is false
// when commit does not contain path.
func (r *Repository) TreeEntry(ctx context.Context, commit, path string) (mode, id string, ok bool, err error) {
	out, err := r.output(ctx, "ls-tree", "-z", commit, "--", path)
	if err != nil {
		return "", "", false, err
	}
	entry := strings.TrimRight(string(out), "\x00")
	meta, name, found := strings.Cut(entry, "\t")
	if !found || name != path {
		return "", "", false, nil
	}
	fields := strings.Fields(meta)
	if len(fields) != 3 || fields[1] != "blob" {
		return "", "", false, nil
	}
	return fields[0], fields[2], true, nil
}

// ReadFile returns the content of path in commit. ok is false when commit
// does not contain path.
func (r *Repository) ReadFile(ctx context.Context, commit, path string) (data []byte, ok bool, err error) {
	_, id, ok, err := r.TreeEntry(ctx, commit, path)
	if err != nil || !ok {
		return nil, false, err
	}
	data, err = r.output(ctx, "cat-file", "blob", id)
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}
