package git

import (
	"context"
	"strings"
)

// WriteTree writes the index as a tree object and returns its id.
func (r *Repository) WriteTree(ctx context.Context) (string, error) {
	return r.line(ctx, "write-tree")
}

// TreeOf returns the tree id of a commit.
func (r *Repository) TreeOf(ctx context.Context, commit string) (string, error) {
	return r.line(ctx, "rev-parse", commit+"^{tree}")
}

// CommitTree creates a commit object for tree with the given parents and
// message. It does not move any reference.
func (r *Repository) CommitTree(ctx context.Context, tree string, parents []string, message string) (string, error) {
	args := []string{"commit-tree", tree}
	for _, p := range parents {
		args = append(args, "-p", p)
	}
	args = append(args, "-m", message)

	id, err := r.line(ctx, args...)
	if err != nil {
		return "", err
	}
	r.log.Debug("created commit", "id", id, "tree", tree, "parents", parents)
	return id, nil
}

// Parents returns the parent ids of a commit.
func (r *Repository) Parents(ctx context.Context, commit string) ([]string, error) {
	out, err := r.line(ctx, "rev-list", "--parents", "-n", "1", commit)
	if err != nil {
		return nil, err
	}
	fields := strings.Fields(out)
	if len(fields) == 0 {
		return nil, nil
	}
	return fields[1:], nil
}

// CommitMessage returns the full message of a commit.
func (r *Repository) CommitMessage(ctx context.Context, commit string) (string, error) {
	return r.line(ctx, "log", "-1", "--format=%B", commit)
}
