package engine

import (
	"context"
	"fmt"

	"github.com/rdmcfg/rdm/git"
	"github.com/rdmcfg/rdm/rdmerr"
)

var pushErrs = rdmerr.Component("push")

// PushResult describes a completed push.
type PushResult struct {
	Remote  string
	Branch  string
	Updates []git.RefUpdate
}

// Push sends the current branch to the branch of the same name on its
// tracked remote. A reference the remote refuses is reported as a
// TransportFailure carrying the remote's reason.
func (e *Engine) Push(ctx context.Context) (*PushResult, error) {
	branch, remote, url, err := e.upstream(ctx, pushErrs)
	if err != nil {
		return nil, err
	}
	env, err := e.transportEnv(ctx, pushErrs, url)
	if err != nil {
		return nil, err
	}

	e.log.Info(fmt.Sprintf("Pushing %s to %s/%s", branch, remote, branch))
	updates, err := e.repo.Push(ctx, remote, branch, env, e.OnProgress)
	if err != nil {
		return nil, pushErrs.Wrap(rdmerr.TransportFailure, err)
	}

	e.log.Info("Successfully pushed your configuration to " + remote)
	return &PushResult{Remote: remote, Branch: branch, Updates: updates}, nil
}
