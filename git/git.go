// Package git drives the git command line against a bare repository paired
// with a separate worktree.
//
// The package is organized into focused modules:
//   - repository.go: Repository handle, command plumbing
//   - refs.go: HEAD, branch references, ancestry, config keys
//   - status.go: porcelain status classification
//   - index.go: staging (Add, Update)
//   - commit.go: tree and commit objects
//   - remote.go: named remotes and branch tracking
//   - merge.go: merge analysis, three-way merge, checkouts
//   - transport.go: fetch and push
//   - progress.go: transfer progress parsing and phase tracking
//   - credentials.go: transport credential providers
package git
