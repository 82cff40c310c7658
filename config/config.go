// Package config loads the session every rdm command except init runs
// against: the revision ledger and the repository it is bound to.
package config

import (
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

var configErrs = rdmerr.Component("config")

// Script file names looked up in the config directory.
const (
	InitScript      = "init.lua"
	BootstrapScript = "bootstrap.lua"
)

// Options configures Load.
type Options struct {
	// Dir is the config directory holding rdm.lock. Empty selects the
	// default config directory.
	Dir      string
	Executor pexec.CommandExecutor
	Log      *slog.Logger
}

// Config is the loaded session.
type Config struct {
	Dir    string
	Ledger *ledger.Ledger
	Repo   *git.Repository
}

// Load reads the ledger from the config directory and opens the repository
// it records.
func Load(opts Options) (*Config, error) {
	log := opts.Log
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	executor := opts.Executor
	if executor == nil {
		executor = pexec.NewRealExecutor()
	}

	dir := opts.Dir
	if dir == "" {
		var err error
		if dir, err = paths.ConfigDir(); err != nil {
			return nil, configErrs.Wrap(rdmerr.StorageFailure, err)
		}
	} else {
		dir = paths.Expand(dir)
	}

	ledgerPath, err := paths.LedgerPath(dir)
	if err != nil {
		return nil, configErrs.Wrap(rdmerr.StorageFailure, err)
	}

	l, err := ledger.Load(ledgerPath)
	if errors.Is(err, ledger.ErrNotFound) {
		log.Error("Lockfile not found", "path", ledgerPath)
		return nil, configErrs.Format(rdmerr.MissingLedger, "The `%s' file was not found at %s.", paths.LedgerFileName, dir)
	}
	if err != nil {
		return nil, configErrs.Wrap(rdmerr.LedgerFailure, err)
	}
	log.Debug("ledger loaded", "path", ledgerPath, "revision", l.Revision)

	cfg := &Config{
		Dir:    dir,
		Ledger: l,
		Repo:   git.Open(l.RepoPath, l.WorktreePath, executor, log),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the repository and worktree recorded in the ledger
// still exist.
func (c *Config) Validate() error {
	if c.Ledger == nil || c.Repo == nil {
		return configErrs.Text(rdmerr.LedgerFailure, "The session has no ledger.")
	}
	if _, err := os.Stat(filepath.Join(c.Ledger.RepoPath, "HEAD")); err != nil {
		return configErrs.Format(rdmerr.StorageFailure, "No repository found at %s, run `rdm init' first.", c.Ledger.RepoPath)
	}
	info, err := os.Stat(c.Ledger.WorktreePath)
	if err != nil || !info.IsDir() {
		return configErrs.Format(rdmerr.StorageFailure, "The worktree %s is not a directory.", c.Ledger.WorktreePath)
	}
	return nil
}

// ScriptPath returns the location of a script in the config directory.
func (c *Config) ScriptPath(name string) string {
	return filepath.Join(c.Dir, name)
}

// String describes the session for debug logging.
func (c *Config) String() string {
	return fmt.Sprintf("repo=%s worktree=%s revision=%d", c.Ledger.RepoPath, c.Ledger.WorktreePath, c.Ledger.Revision)
}
