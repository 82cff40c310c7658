package engine

import (
	"os/exec"
	"strings"
	"testing"

	"github.com/rdmcfg/rdm/git"
	"github.com/rdmcfg/rdm/rdmerr"
)

func remoteHead(t *testing.T, remote string) string {
	t.Helper()
	out, err := exec.Command("git", "--git-dir="+remote, "rev-parse", "refs/heads/main").CombinedOutput()
	if err != nil {
		t.Fatalf("rev-parse in remote: %v\n%s", err, out)
	}
	return strings.TrimSpace(string(out))
}

func TestPush(t *testing.T) {
	m := newMachine(t)
	remote := newRemote(t)
	m.saveFile(t, ".bashrc", "export EDITOR=vi\n")
	if err := m.engine.AddRemote(ctx, "origin", remote, true); err != nil {
		t.Fatal(err)
	}

	var phases []git.Phase
	m.engine.OnProgress = func(p git.Progress) { phases = append(phases, p.Phase) }

	res, err := m.engine.Push(ctx)
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	if res.Remote != "origin" || res.Branch != "main" {
		t.Errorf("result = %+v", res)
	}
	if len(res.Updates) != 1 || res.Updates[0].Dst != "refs/heads/main" {
		t.Errorf("updates = %+v", res.Updates)
	}
	if got := remoteHead(t, remote); got != m.head(t) {
		t.Errorf("remote main = %s, want %s", got, m.head(t))
	}
	if len(phases) == 0 || phases[len(phases)-1] != git.PhaseDone {
		t.Errorf("phases = %v, want to end in done", phases)
	}
	for _, p := range phases {
		if p == git.PhaseReceiving || p == git.PhaseResolving {
			t.Errorf("push reported download phase %s", p)
		}
	}
}

func TestPush_Rejected(t *testing.T) {
	a := newMachine(t)
	remote := newRemote(t)
	a.publish(t, remote)
	b := clone(t, remote)

	a.saveFile(t, ".vimrc", "set number\n")
	a.push(t)
	b.saveFile(t, ".zshrc", "bindkey -v\n")

	_, err := b.engine.Push(ctx)
	assertKind(t, err, rdmerr.TransportFailure)
	if !strings.Contains(err.Error(), "Failed to update reference refs/heads/main with message: fetch first") {
		t.Errorf("error = %q", err)
	}
	if got := remoteHead(t, remote); got != a.head(t) {
		t.Error("a rejected push must leave the remote alone")
	}

	// Pulling first makes the push go through.
	b.pull(t)
	if _, err := b.engine.Push(ctx); err != nil {
		t.Fatalf("Push after pull: %v", err)
	}
	if got := remoteHead(t, remote); got != b.head(t) {
		t.Errorf("remote main = %s, want %s", got, b.head(t))
	}
}

func TestPush_Preconditions(t *testing.T) {
	t.Run("detached head", func(t *testing.T) {
		m := newMachine(t)
		if err := m.engine.AddRemote(ctx, "origin", newRemote(t), true); err != nil {
			t.Fatal(err)
		}
		m.git(t, "update-ref", "--no-deref", "HEAD", m.head(t))

		_, err := m.engine.Push(ctx)
		assertKind(t, err, rdmerr.HeadDetached)
	})

	t.Run("no remote", func(t *testing.T) {
		m := newMachine(t)
		_, err := m.engine.Push(ctx)
		assertKind(t, err, rdmerr.RemoteNotFound)
	})
}
