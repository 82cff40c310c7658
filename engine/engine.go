// Package engine sequences the repository operations behind each rdm
// command. An Engine pairs an opened repository with its revision ledger
// and turns git-level failures into rdmerr errors the CLI can render.
package engine

import (
	"errors"
	"log/slog"

	"github.com/rdmcfg/rdm/git"
	"github.com/rdmcfg/rdm/rdmerr"
)

// Ledger is the revision counter a save advances. *ledger.Ledger
// implements it.
type Ledger interface {
	Next() (uint32, error)
	Commit(rev uint32) error
	Revert(rev uint32) error
	// Path is the ledger file, which may sit inside the worktree.
	Path() string
	// Adopt rewrites the ledger file after a checkout replaced it.
	Adopt(pulled uint32) error
}

// Engine runs rdm operations against one repository.
type Engine struct {
	repo   *git.Repository
	ledger Ledger
	creds  git.CredentialProvider
	log    *slog.Logger

	// OnProgress receives transfer progress during Pull and Push. May be nil.
	OnProgress func(git.Progress)
}

// New creates an engine. creds supplies the transport environment for
// Pull and Push.
func New(repo *git.Repository, ledger Ledger, creds git.CredentialProvider, log *slog.Logger) *Engine {
	return &Engine{
		repo:   repo,
		ledger: ledger,
		creds:  creds,
		log:    log.With("component", "engine"),
	}
}

// Repository returns the repository the engine operates on.
func (e *Engine) Repository() *git.Repository {
	return e.repo
}

// classify maps a git-level error onto the rdm error taxonomy under the
// given component prefix.
func classify(c rdmerr.Component, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, git.ErrDetachedHead):
		return c.Text(rdmerr.HeadDetached, "HEAD is not on a branch")
	case errors.Is(err, git.ErrRemoteNotFound), errors.Is(err, git.ErrNoTrackedRemote):
		return c.Wrap(rdmerr.RemoteNotFound, err)
	case errors.Is(err, git.ErrRemoteExists):
		return c.Wrap(rdmerr.RemoteAlreadyExists, err)
	case errors.Is(err, git.ErrOutsideWorktree):
		return c.Wrap(rdmerr.InvalidInput, err)
	default:
		return c.Wrap(rdmerr.StorageFailure, err)
	}
}
