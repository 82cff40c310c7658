package git

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	pexec "github.com/rdmcfg/rdm/exec"
)

// Repository is a handle on a bare repository and the worktree it tracks.
// Every command runs as `git --git-dir=<GitDir> --work-tree=<Worktree> ...`
// from inside the worktree, so change detection is always evaluated
// relative to the worktree.
type Repository struct {
	GitDir   string
	Worktree string

	executor pexec.CommandExecutor
	log      *slog.Logger
}

// Open creates a handle on an existing bare repository.
func Open(gitDir, worktree string, executor pexec.CommandExecutor, log *slog.Logger) *Repository {
	return &Repository{
		GitDir:   gitDir,
		Worktree: worktree,
		executor: executor,
		log:      log.With("component", "git"),
	}
}

// InitBare creates a bare repository at gitDir whose initial branch is
// branch, with reference logging enabled, and returns a handle pairing it
// with worktree.
func InitBare(ctx context.Context, gitDir, worktree, branch string, executor pexec.CommandExecutor, log *slog.Logger) (*Repository, error) {
	if output, err := executor.CombinedOutput(ctx, worktree, "git", "init", "--bare", "--initial-branch="+branch, gitDir); err != nil {
		return nil, fmt.Errorf("git init failed: %s - %w", strings.TrimSpace(string(output)), err)
	}
	r := Open(gitDir, worktree, executor, log)
	// Bare repositories skip the reflog unless asked.
	if err := r.ConfigSet(ctx, "core.logAllRefUpdates", "true"); err != nil {
		return nil, err
	}
	r.log.Debug("initialized bare repository", "gitDir", gitDir, "worktree", worktree, "branch", branch)
	return r, nil
}

func (r *Repository) args(args []string) []string {
	return append([]string{"--git-dir=" + r.GitDir, "--work-tree=" + r.Worktree}, args...)
}

// output runs a git subcommand and returns its stdout.
func (r *Repository) output(ctx context.Context, args ...string) ([]byte, error) {
	return r.outputEnv(ctx, nil, args...)
}

func (r *Repository) outputEnv(ctx context.Context, env []string, args ...string) ([]byte, error) {
	stdout, stderr, err := r.executor.RunEnv(ctx, r.Worktree, env, "git", r.args(args)...)
	if err != nil {
		return stdout, commandError(args, stderr, err)
	}
	return stdout, nil
}

// run runs a git subcommand, discarding its output.
func (r *Repository) run(ctx context.Context, args ...string) error {
	_, err := r.output(ctx, args...)
	return err
}

// line runs a git subcommand and returns its first line of output.
func (r *Repository) line(ctx context.Context, args ...string) (string, error) {
	out, err := r.output(ctx, args...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// test runs a git subcommand that answers yes or no through its exit
// status: 0 means yes, 1 means no, anything else is a failure.
func (r *Repository) test(ctx context.Context, args ...string) (bool, []byte, error) {
	stdout, stderr, err := r.executor.Run(ctx, r.Worktree, "git", r.args(args)...)
	switch pexec.ExitCode(err) {
	case 0:
		return true, stdout, nil
	case 1:
		return false, stdout, nil
	default:
		return false, stdout, commandError(args, stderr, err)
	}
}

func commandError(args []string, stderr []byte, err error) error {
	sub := "command"
	if len(args) > 0 {
		sub = args[0]
	}
	return fmt.Errorf("git %s failed: %s - %w", sub, strings.TrimSpace(string(stderr)), err)
}

// RelPath converts an absolute path, or one relative to the worktree, into
// a worktree-relative path using forward slashes.
func (r *Repository) RelPath(path string) (string, error) {
	if !filepath.IsAbs(path) {
		return filepath.ToSlash(filepath.Clean(path)), nil
	}

	rel, err := filepath.Rel(r.Worktree, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, "../") {
		// The worktree is stored canonicalized; the caller's spelling may
		// still go through a symlink.
		if resolved, ok := resolveSymlinks(path); ok {
			rel, err = filepath.Rel(r.Worktree, resolved)
		}
	}
	if err != nil || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("%w: %s", ErrOutsideWorktree, path)
	}
	return filepath.ToSlash(rel), nil
}

// resolveSymlinks resolves path, or its parent directory when path itself
// no longer exists.
func resolveSymlinks(path string) (string, bool) {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved, true
	}
	dir, err := filepath.EvalSymlinks(filepath.Dir(path))
	if err != nil {
		return "", false
	}
	return filepath.Join(dir, filepath.Base(path)), true
}
