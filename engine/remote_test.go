package engine

import (
	"testing"

	"github.com/rdmcfg/rdm/git"
	"github.com/rdmcfg/rdm/rdmerr"
)

func TestRemotes_AddListRemove(t *testing.T) {
	m := newMachine(t)

	if err := m.engine.AddRemote(ctx, "origin", "git@github.com:me/dots.git", false); err != nil {
		t.Fatalf("AddRemote: %v", err)
	}
	if err := m.engine.AddRemote(ctx, "backup", "/srv/git/dots.git", false); err != nil {
		t.Fatalf("AddRemote: %v", err)
	}

	err := m.engine.AddRemote(ctx, "origin", "git@example.com:other.git", false)
	assertKind(t, err, rdmerr.RemoteAlreadyExists)

	remotes, err := m.engine.Remotes(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := []git.Remote{
		{Name: "backup", URL: "/srv/git/dots.git"},
		{Name: "origin", URL: "git@github.com:me/dots.git"},
	}
	if len(remotes) != len(want) {
		t.Fatalf("remotes = %+v, want %+v", remotes, want)
	}
	for i := range want {
		if remotes[i] != want[i] {
			t.Errorf("remotes[%d] = %+v, want %+v", i, remotes[i], want[i])
		}
	}

	if err := m.engine.RemoveRemote(ctx, "backup"); err != nil {
		t.Fatalf("RemoveRemote: %v", err)
	}
	err = m.engine.RemoveRemote(ctx, "backup")
	assertKind(t, err, rdmerr.RemoteNotFound)

	remotes, _ = m.engine.Remotes(ctx)
	if len(remotes) != 1 || remotes[0].Name != "origin" {
		t.Errorf("remotes after remove = %+v", remotes)
	}
}

func TestRemotes_EmptyList(t *testing.T) {
	m := newMachine(t)

	remotes, err := m.engine.Remotes(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(remotes) != 0 {
		t.Errorf("remotes = %+v, want none", remotes)
	}
}

func TestAddRemote_Default(t *testing.T) {
	m := newMachine(t)

	if err := m.engine.AddRemote(ctx, "origin", "/srv/git/dots.git", true); err != nil {
		t.Fatal(err)
	}
	if got := m.git(t, "config", "--get", "branch.main.remote"); got != "origin" {
		t.Errorf("branch.main.remote = %q", got)
	}
	if got := m.git(t, "config", "--get", "branch.main.merge"); got != "refs/heads/main" {
		t.Errorf("branch.main.merge = %q", got)
	}
}

func TestSetDefaultRemote(t *testing.T) {
	m := newMachine(t)

	err := m.engine.SetDefaultRemote(ctx, "origin")
	assertKind(t, err, rdmerr.RemoteNotFound)

	if err := m.engine.AddRemote(ctx, "origin", "/srv/a.git", false); err != nil {
		t.Fatal(err)
	}
	if err := m.engine.AddRemote(ctx, "mirror", "/srv/b.git", true); err != nil {
		t.Fatal(err)
	}
	if err := m.engine.SetDefaultRemote(ctx, "origin"); err != nil {
		t.Fatalf("SetDefaultRemote: %v", err)
	}
	if got := m.git(t, "config", "--get", "branch.main.remote"); got != "origin" {
		t.Errorf("branch.main.remote = %q, want origin", got)
	}
}

func TestSetDefaultRemote_DetachedHead(t *testing.T) {
	m := newMachine(t)
	if err := m.engine.AddRemote(ctx, "origin", "/srv/a.git", false); err != nil {
		t.Fatal(err)
	}
	m.git(t, "update-ref", "--no-deref", "HEAD", m.head(t))

	err := m.engine.SetDefaultRemote(ctx, "origin")
	assertKind(t, err, rdmerr.HeadDetached)

	err = m.engine.AddRemote(ctx, "other", "/srv/b.git", true)
	assertKind(t, err, rdmerr.HeadDetached)
	remotes, _ := m.engine.Remotes(ctx)
	if len(remotes) != 1 {
		t.Errorf("a refused default add must not register the remote, got %+v", remotes)
	}
}
