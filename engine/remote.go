package engine

import (
	"context"
	"fmt"

	"github.com/rdmcfg/rdm/git"
	"github.com/rdmcfg/rdm/rdmerr"
)

var remoteErrs = rdmerr.Component("remote")

// AddRemote registers a remote. With setDefault the current branch is
// also set to track it.
func (e *Engine) AddRemote(ctx context.Context, name, url string, setDefault bool) error {
	var branch string
	if setDefault {
		var err error
		if branch, err = e.repo.CurrentBranch(ctx); err != nil {
			return classify(remoteErrs, err)
		}
	}

	if err := e.repo.AddRemote(ctx, name, url); err != nil {
		return classify(remoteErrs, err)
	}
	e.log.Info(fmt.Sprintf("Remote `%s' was added with url: %s", name, url))

	if setDefault {
		return e.track(ctx, branch, name)
	}
	return nil
}

// RemoveRemote deletes a remote along with any branch tracking it.
func (e *Engine) RemoveRemote(ctx context.Context, name string) error {
	if err := e.repo.RemoveRemote(ctx, name); err != nil {
		return classify(remoteErrs, err)
	}
	e.log.Info(fmt.Sprintf("Remote `%s' was removed", name))
	return nil
}

// Remotes lists the registered remotes sorted by name.
func (e *Engine) Remotes(ctx context.Context) ([]git.Remote, error) {
	remotes, err := e.repo.Remotes(ctx)
	if err != nil {
		return nil, classify(remoteErrs, err)
	}
	return remotes, nil
}

// SetDefaultRemote makes the current branch track the named remote.
func (e *Engine) SetDefaultRemote(ctx context.Context, name string) error {
	exists, err := e.repo.HasRemote(ctx, name)
	if err != nil {
		return classify(remoteErrs, err)
	}
	if !exists {
		return remoteErrs.Format(rdmerr.RemoteNotFound, "The remote %s was not found.", name)
	}

	branch, err := e.repo.CurrentBranch(ctx)
	if err != nil {
		return classify(remoteErrs, err)
	}
	return e.track(ctx, branch, name)
}

func (e *Engine) track(ctx context.Context, branch, name string) error {
	if err := e.repo.SetTracking(ctx, branch, name); err != nil {
		return classify(remoteErrs, err)
	}
	e.log.Info(fmt.Sprintf("Set the remote for %s to %s", branch, name))
	e.log.Info(fmt.Sprintf("Set the merge ref for %s to %s", branch, git.BranchRef(branch)))
	return nil
}

// upstream resolves the current branch and the remote it tracks, in the
// order pull and push check their preconditions.
func (e *Engine) upstream(ctx context.Context, c rdmerr.Component) (branch, remote, url string, err error) {
	if branch, err = e.repo.CurrentBranch(ctx); err != nil {
		return "", "", "", classify(c, err)
	}
	if remote, err = e.repo.TrackedRemote(ctx, branch); err != nil {
		return "", "", "", classify(c, err)
	}
	if url, err = e.repo.RemoteURL(ctx, remote); err != nil {
		return "", "", "", classify(c, err)
	}
	return branch, remote, url, nil
}

// transportEnv asks the credential provider for the environment a
// transport to url runs with.
func (e *Engine) transportEnv(ctx context.Context, c rdmerr.Component, url string) ([]string, error) {
	if e.creds == nil {
		return nil, nil
	}
	env, err := e.creds.TransportEnv(ctx, url)
	if err != nil {
		return nil, c.Wrap(rdmerr.TransportFailure, err)
	}
	return env, nil
}
