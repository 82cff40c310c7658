package git

import "errors"

// Error types for git operations.
var (
	// ErrDetachedHead indicates HEAD does not reference a branch.
	ErrDetachedHead = errors.New("detached HEAD state")

	// ErrRemoteNotFound indicates the remote was not found.
	ErrRemoteNotFound = errors.New("remote not found")

	// ErrRemoteExists indicates a remote with the same name is registered.
	ErrRemoteExists = errors.New("remote already exists")

	// ErrNoTrackedRemote indicates the branch has no tracked remote configured.
	ErrNoTrackedRemote = errors.New("branch has no tracked remote")

	// ErrOutsideWorktree indicates a path does not live under the worktree.
	ErrOutsideWorktree = errors.New("path is outside the worktree")

	// ErrNoAgent indicates no SSH agent is reachable.
	ErrNoAgent = errors.New("SSH agent not running")
)
