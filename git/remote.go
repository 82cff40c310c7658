package git

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Remote is a named remote repository.
type Remote struct {
	Name string
	URL  string
}

// RemoteURL returns the URL of the named remote.
func (r *Repository) RemoteURL(ctx context.Context, name string) (string, error) {
	url, ok, err := r.ConfigGet(ctx, "remote."+name+".url")
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrRemoteNotFound, name)
	}
	return url, nil
}

// HasRemote reports whether a remote with the given name is registered.
func (r *Repository) HasRemote(ctx context.Context, name string) (bool, error) {
	_, ok, err := r.ConfigGet(ctx, "remote."+name+".url")
	return ok, err
}

// AddRemote registers a new remote.
func (r *Repository) AddRemote(ctx context.Context, name, url string) error {
	exists, err := r.HasRemote(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrRemoteExists, name)
	}
	if err := r.run(ctx, "remote", "add", name, url); err != nil {
		return err
	}
	r.log.Debug("added remote", "name", name, "url", url)
	return nil
}

// RemoveRemote deletes a remote and any configuration referring to it.
func (r *Repository) RemoveRemote(ctx context.Context, name string) error {
	exists, err := r.HasRemote(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrRemoteNotFound, name)
	}
	if err := r.run(ctx, "remote", "remove", name); err != nil {
		return err
	}
	r.log.Debug("removed remote", "name", name)
	return nil
}

// Remotes lists the registered remotes sorted by name.
func (r *Repository) Remotes(ctx context.Context) ([]Remote, error) {
	ok, out, err := r.test(ctx, "config", "--get-regexp", `^remote\..*\.url$`)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	var remotes []Remote
	for line := range strings.SplitSeq(strings.TrimSpace(string(out)), "\n") {
		key, url, found := strings.Cut(line, " ")
		if !found {
			continue
		}
		name := strings.TrimSuffix(strings.TrimPrefix(key, "remote."), ".url")
		remotes = append(remotes, Remote{Name: name, URL: url})
	}

	sort.Slice(remotes, func(i, j int) bool {
		return remotes[i].Name < remotes[j].Name
	})
	return remotes, nil
}

// TrackedRemote returns the remote recorded for branch. Returns
// ErrNoTrackedRemote if none is configured.
func (r *Repository) TrackedRemote(ctx context.Context, branch string) (string, error) {
	name, ok, err := r.ConfigGet(ctx, "branch."+branch+".remote")
	if err != nil {
		return "", err
	}
	if !ok || name == "" {
		return "", fmt.Errorf("%w: %s", ErrNoTrackedRemote, branch)
	}
	return name, nil
}

// SetTracking records remote as the tracked remote of branch, merging the
// remote branch of the same name.
func (r *Repository) SetTracking(ctx context.Context, branch, remote string) error {
	if err := r.ConfigSet(ctx, "branch."+branch+".remote", remote); err != nil {
		return err
	}
	if err := r.ConfigSet(ctx, "branch."+branch+".merge", BranchRef(branch)); err != nil {
		return err
	}
	r.log.Debug("set tracking", "branch", branch, "remote", remote)
	return nil
}
