package git

import (
	"context"
	"fmt"
	"strings"
)

const branchPrefix = "refs/heads/"

// CurrentBranch returns the short name of the branch HEAD points at.
// Returns ErrDetachedHead if HEAD is not a symbolic reference to a branch.
func (r *Repository) CurrentBranch(ctx context.Context) (string, error) {
	ok, out, err := r.test(ctx, "symbolic-ref", "-q", "HEAD")
	if err != nil {
		return "", err
	}
	ref := strings.TrimSpace(string(out))
	if !ok || !strings.HasPrefix(ref, branchPrefix) {
		return "", ErrDetachedHead
	}
	return strings.TrimPrefix(ref, branchPrefix), nil
}

// ResolveCommit returns the commit id rev points at. ok is false if rev
// does not resolve, e.g. on an unborn branch.
func (r *Repository) ResolveCommit(ctx context.Context, rev string) (id string, ok bool, err error) {
	ok, out, err := r.test(ctx, "rev-parse", "-q", "--verify", rev+"^{commit}")
	if err != nil || !ok {
		return "", false, err
	}
	return strings.TrimSpace(string(out)), true, nil
}

// Head returns the commit HEAD points at, or "" on an unborn branch.
func (r *Repository) Head(ctx context.Context) (string, error) {
	id, _, err := r.ResolveCommit(ctx, "HEAD")
	return id, err
}

// UpdateRef points ref at newID, recording message in the reflog. When
// oldID is non-empty the update only succeeds if ref currently holds oldID.
func (r *Repository) UpdateRef(ctx context.Context, ref, newID, oldID, message string) error {
	args := []string{"update-ref", "-m", message, ref, newID}
	if oldID != "" {
		args = append(args, oldID)
	}
	if err := r.run(ctx, args...); err != nil {
		return err
	}
	r.log.Debug("updated reference", "ref", ref, "new", newID, "old", oldID)
	return nil
}

// SetHead points HEAD at the given full reference name.
func (r *Repository) SetHead(ctx context.Context, ref string) error {
	return r.run(ctx, "symbolic-ref", "HEAD", ref)
}

// IsAncestor reports whether ancestor is reachable from descendant.
func (r *Repository) IsAncestor(ctx context.Context, ancestor, descendant string) (bool, error) {
	ok, _, err := r.test(ctx, "merge-base", "--is-ancestor", ancestor, descendant)
	return ok, err
}

// MergeBase returns the best common ancestor of a and b.
func (r *Repository) MergeBase(ctx context.Context, a, b string) (string, error) {
	ok, out, err := r.test(ctx, "merge-base", a, b)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%s and %s have no common ancestor", a, b)
	}
	return strings.TrimSpace(string(out)), nil
}

// ConfigGet reads a single repository config value. ok is false when the
// key is not set.
func (r *Repository) ConfigGet(ctx context.Context, key string) (value string, ok bool, err error) {
	ok, out, err := r.test(ctx, "config", "--get", key)
	if err != nil || !ok {
		return "", false, err
	}
	return strings.TrimSpace(string(out)), true, nil
}

// ConfigSet writes a repository config value.
func (r *Repository) ConfigSet(ctx context.Context, key, value string) error {
	return r.run(ctx, "config", key, value)
}

// BranchRef returns the full reference name of a branch.
func BranchRef(branch string) string {
	return branchPrefix + branch
}
