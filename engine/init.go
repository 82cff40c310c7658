package engine

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	pexec "github.com/rdmcfg/rdm/exec"
	"github.com/rdmcfg/rdm/git"
	"github.com/rdmcfg/rdm/ledger"
	"github.com/rdmcfg/rdm/paths"
	"github.com/rdmcfg/rdm/rdmerr"
)

var initErrs = rdmerr.Component("init")

// DefaultBranch is the branch a new repository starts on.
const DefaultBranch = "main"

// InitOptions configures Init. Empty fields take their defaults.
type InitOptions struct {
	// RepoPath is the bare repository directory. Defaults to the data
	// directory's repo.
	RepoPath string
	// ConfigFile is the user's rdm.lua. The ledger is created next to it.
	// Defaults to rdm.lua in the config directory.
	ConfigFile string
	// Worktree is the directory whose files are tracked. Defaults to the
	// home directory.
	Worktree string
	// Branch defaults to DefaultBranch.
	Branch string
}

func (o InitOptions) withDefaults() (InitOptions, error) {
	if o.RepoPath == "" {
		dir, err := paths.DefaultRepoDir()
		if err != nil {
			return o, err
		}
		o.RepoPath = dir
	}
	if o.ConfigFile == "" {
		dir, err := paths.ConfigDir()
		if err != nil {
			return o, err
		}
		o.ConfigFile = filepath.Join(dir, "rdm.lua")
	}
	if o.Worktree == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return o, err
		}
		o.Worktree = home
	}
	if o.Branch == "" {
		o.Branch = DefaultBranch
	}
	o.RepoPath = paths.Expand(o.RepoPath)
	o.ConfigFile = paths.Expand(o.ConfigFile)
	o.Worktree = paths.Expand(o.Worktree)
	return o, nil
}

// InitResult is a freshly initialized configuration repository.
type InitResult struct {
	Repo   *git.Repository
	Ledger *ledger.Ledger
	Commit string
}

// Init creates a bare repository tracking the worktree, writes the ledger
// at revision 0 and records the ledger, rdm.lua and .gitignore in an
// initial commit.
func Init(ctx context.Context, opts InitOptions, executor pexec.CommandExecutor, log *slog.Logger) (*InitResult, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, initErrs.Wrap(rdmerr.StorageFailure, err)
	}
	if filepath.Ext(opts.ConfigFile) != ".lua" {
		return nil, initErrs.Format(rdmerr.InvalidInput, "The path `%s' does not point to a lua file.", opts.ConfigFile)
	}

	repoPath, err := ensureDir(opts.RepoPath, log)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(filepath.Join(repoPath, "HEAD")); err == nil {
		return nil, initErrs.Format(rdmerr.InvalidInput, "The path `%s' already holds a repository.", repoPath)
	}
	worktree, err := ensureDir(opts.Worktree, log)
	if err != nil {
		return nil, err
	}

	configFile, err := ensureFile(opts.ConfigFile, log)
	if err != nil {
		return nil, err
	}
	ledgerPath, err := paths.LedgerPath(filepath.Dir(configFile))
	if err != nil {
		return nil, initErrs.Wrap(rdmerr.StorageFailure, err)
	}
	l, err := ledger.Create(ledgerPath, repoPath, worktree)
	if err != nil {
		return nil, initErrs.Wrap(rdmerr.LedgerFailure, err)
	}
	if !l.Bound(repoPath, worktree) {
		return nil, initErrs.Format(rdmerr.LedgerFailure, "The ledger %s belongs to the repository at %s.", ledgerPath, l.RepoPath)
	}

	log.Info("Creating bare repository at " + repoPath)
	repo, err := git.InitBare(ctx, repoPath, worktree, opts.Branch, executor, log)
	if err != nil {
		return nil, initErrs.Wrap(rdmerr.StorageFailure, err)
	}
	if err := repo.ConfigSet(ctx, "status.showUntrackedFiles", "no"); err != nil {
		return nil, initErrs.Wrap(rdmerr.StorageFailure, err)
	}
	log.Info("Bare repository created at " + repoPath)

	ignoreFile, err := ignoreRepo(worktree, repoPath, log)
	if err != nil {
		return nil, err
	}

	for _, path := range []string{ledgerPath, configFile, ignoreFile} {
		rel, err := repo.RelPath(path)
		if errors.Is(err, git.ErrOutsideWorktree) {
			log.Warn(path + " is outside the worktree, not adding")
			continue
		}
		if err != nil {
			return nil, initErrs.Wrap(rdmerr.StorageFailure, err)
		}
		if err := repo.Stage(ctx, rel); err != nil {
			return nil, initErrs.Wrap(rdmerr.StorageFailure, err)
		}
	}

	commit, err := initialCommit(ctx, repo)
	if err != nil {
		return nil, initErrs.Wrap(rdmerr.StorageFailure, err)
	}
	log.Info("Initial commit created.")
	return &InitResult{Repo: repo, Ledger: l, Commit: commit}, nil
}

func initialCommit(ctx context.Context, repo *git.Repository) (string, error) {
	const message = "Initial commit"
	tree, err := repo.WriteTree(ctx)
	if err != nil {
		return "", err
	}
	commit, err := repo.CommitTree(ctx, tree, nil, message)
	if err != nil {
		return "", err
	}
	if err := repo.UpdateRef(ctx, "HEAD", commit, "", message); err != nil {
		return "", err
	}
	return commit, nil
}

// ensureDir creates path if needed and returns it canonicalized.
func ensureDir(path string, log *slog.Logger) (string, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.Info("Creating directory " + path)
		if err := os.MkdirAll(path, 0755); err != nil {
			return "", initErrs.Wrap(rdmerr.StorageFailure, err)
		}
	}
	canonical, err := paths.Canonical(path)
	if err != nil {
		return "", initErrs.Wrap(rdmerr.StorageFailure, err)
	}
	if info, err := os.Stat(canonical); err != nil || !info.IsDir() {
		return "", initErrs.Format(rdmerr.InvalidInput, "The path `%s' does not point to a directory.", canonical)
	}
	return canonical, nil
}

// ensureFile creates an empty file at path unless one exists and returns
// it canonicalized.
func ensureFile(path string, log *slog.Logger) (string, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return "", initErrs.Wrap(rdmerr.StorageFailure, err)
		}
		log.Info("Creating file " + path)
		if err := os.WriteFile(path, nil, 0644); err != nil {
			return "", initErrs.Wrap(rdmerr.StorageFailure, err)
		}
	}
	canonical, err := paths.Canonical(path)
	if err != nil {
		return "", initErrs.Wrap(rdmerr.StorageFailure, err)
	}
	return canonical, nil
}

// ignoreRepo adds the repository directory, relative to the worktree, to
// the worktree's .gitignore and returns the .gitignore path. Existing
// entries are kept.
func ignoreRepo(worktree, repoPath string, log *slog.Logger) (string, error) {
	ignoreFile := filepath.Join(worktree, ".gitignore")
	rel, err := filepath.Rel(worktree, repoPath)
	if err != nil {
		return "", initErrs.Wrap(rdmerr.StorageFailure, err)
	}
	entry := filepath.ToSlash(rel)

	existing, err := os.ReadFile(ignoreFile)
	if err != nil && !os.IsNotExist(err) {
		return "", initErrs.Wrap(rdmerr.StorageFailure, err)
	}
	scanner := bufio.NewScanner(bytes.NewReader(existing))
	for scanner.Scan() {
		if scanner.Text() == entry {
			return ignoreFile, nil
		}
	}

	log.Info("Adding repo directory to " + ignoreFile)
	var buf bytes.Buffer
	buf.Write(existing)
	if len(existing) > 0 && existing[len(existing)-1] != '\n' {
		buf.WriteByte('\n')
	}
	fmt.Fprintln(&buf, entry)
	if err := os.WriteFile(ignoreFile, buf.Bytes(), 0644); err != nil {
		return "", initErrs.Wrap(rdmerr.StorageFailure, err)
	}
	return ignoreFile, nil
}
