package engine

import (
	"errors"
	"fmt"
	"testing"

	pexec "github.com/rdmcfg/rdm/exec"
	"github.com/rdmcfg/rdm/git"
	"github.com/rdmcfg/rdm/rdmerr"
)

// stubLedger is a Ledger whose writes can be made to fail.
type stubLedger struct {
	revision  uint32
	commitErr error
	reverted  bool
}

func (l *stubLedger) Next() (uint32, error) { return l.revision + 1, nil }

func (l *stubLedger) Commit(rev uint32) error {
	if l.commitErr != nil {
		return l.commitErr
	}
	l.revision = rev
	return nil
}

func (l *stubLedger) Revert(rev uint32) error {
	l.reverted = true
	l.revision = rev
	return nil
}

func (l *stubLedger) Path() string { return "" }

func (l *stubLedger) Adopt(pulled uint32) error {
	l.revision = max(l.revision, pulled)
	return nil
}

func TestSave_NoChanges(t *testing.T) {
	m := newMachine(t)
	head := m.head(t)

	_, err := m.engine.Save(ctx)
	assertKind(t, err, rdmerr.NoChangesToSave)

	if m.ledger.Revision != 0 || m.diskRevision(t) != 0 {
		t.Error("a refused save must not touch the ledger")
	}
	if m.head(t) != head {
		t.Error("a refused save must not move HEAD")
	}
}

func TestSave_UntrackedFilesAreNotChanges(t *testing.T) {
	m := newMachine(t)
	m.write(t, ".bashrc", "export EDITOR=vi\n")

	_, err := m.engine.Save(ctx)
	assertKind(t, err, rdmerr.NoChangesToSave)
}

func TestSave_OnlyUnsavedChanges(t *testing.T) {
	m := newMachine(t)
	m.saveFile(t, ".vimrc", "set number\n")
	m.write(t, ".vimrc", "set nonumber\n")

	_, err := m.engine.Save(ctx)
	assertKind(t, err, rdmerr.NoChangesToSave)
	if m.ledger.Revision != 1 {
		t.Errorf("revision = %d, want 1", m.ledger.Revision)
	}
}

func TestSave_AddedFile(t *testing.T) {
	m := newMachine(t)
	parent := m.head(t)

	m.write(t, ".bashrc", "export EDITOR=vi\n")
	staged, err := m.engine.Add(ctx, m.path(".bashrc"))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if len(staged) != 1 || staged[0] != ".bashrc" {
		t.Errorf("staged = %v", staged)
	}

	entries, err := m.engine.Status(ctx, m.path(".bashrc"), false)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Index != git.StagedNew {
		t.Fatalf("status after add = %+v, want staged_new", entries)
	}

	res, err := m.engine.Save(ctx)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if res.Revision != 1 {
		t.Errorf("revision = %d, want 1", res.Revision)
	}
	if len(res.Changes) != 1 || res.Changes[0].Path != ".bashrc" || res.Changes[0].Index != git.StagedNew {
		t.Errorf("changes = %+v", res.Changes)
	}

	if got := m.git(t, "log", "-1", "--format=%s", "HEAD"); got != "Revision #1" {
		t.Errorf("message = %q", got)
	}
	if got := m.git(t, "log", "-1", "--format=%P", "HEAD"); got != parent {
		t.Errorf("parents = %q, want exactly %s", got, parent)
	}
	if m.head(t) != res.Commit {
		t.Errorf("HEAD = %s, want %s", m.head(t), res.Commit)
	}
	if m.diskRevision(t) != 1 {
		t.Errorf("ledger on disk = %d, want 1", m.diskRevision(t))
	}
	if got := m.git(t, "log", "-g", "-1", "--format=%gs", "refs/heads/main"); got != "Revision #1" {
		t.Errorf("reflog = %q", got)
	}
}

func TestSave_UpdatedFile(t *testing.T) {
	m := newMachine(t)
	m.saveFile(t, ".vimrc", "set number\n")
	m.write(t, ".vimrc", "set relativenumber\n")

	if _, err := m.engine.Update(ctx); err != nil {
		t.Fatalf("Update: %v", err)
	}
	entries, _ := m.engine.Status(ctx, m.path(".vimrc"), false)
	if len(entries) != 1 || entries[0].Index != git.StagedModified {
		t.Fatalf("status after update = %+v, want staged_modified", entries)
	}

	res, err := m.engine.Save(ctx)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if res.Revision != 2 {
		t.Errorf("revision = %d, want 2", res.Revision)
	}

	var modified bool
	for _, c := range res.Changes {
		if c.Path == ".vimrc" && c.Index == git.StagedModified {
			modified = true
		}
	}
	if !modified {
		t.Errorf("changes = %+v, want .vimrc modified", res.Changes)
	}
}

func TestSave_RemovedFile(t *testing.T) {
	m := newMachine(t)
	m.saveFile(t, ".inputrc", "set bell-style none\n")
	m.git(t, "rm", "-q", "--cached", ".inputrc")

	res, err := m.engine.Save(ctx)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if len(res.Changes) != 1 || res.Changes[0].Index != git.StagedDeleted {
		t.Errorf("changes = %+v, want .inputrc removed", res.Changes)
	}
}

func TestSave_RevisionsAreSequential(t *testing.T) {
	m := newMachine(t)

	for i := 1; i <= 4; i++ {
		res := m.saveFile(t, fmt.Sprintf("file%d", i), "content\n")
		if res.Revision != uint32(i) {
			t.Fatalf("save %d produced revision %d", i, res.Revision)
		}
		want := fmt.Sprintf("Revision #%d", i)
		if got := m.git(t, "log", "-1", "--format=%s", res.Commit); got != want {
			t.Errorf("message = %q, want %q", got, want)
		}
		if got := m.git(t, "rev-list", "--count", "HEAD"); got != fmt.Sprint(i+1) {
			t.Errorf("history length = %s, want %d", got, i+1)
		}
	}
	if m.diskRevision(t) != 4 {
		t.Errorf("ledger on disk = %d, want 4", m.diskRevision(t))
	}
}

func TestSave_CommitFailureLeavesLedger(t *testing.T) {
	m := newMachine(t)
	m.write(t, ".zshrc", "bindkey -v\n")
	if _, err := m.engine.Add(ctx, m.path(".zshrc")); err != nil {
		t.Fatal(err)
	}
	head := m.head(t)

	mock := pexec.NewMockExecutor(pexec.NewRealExecutor())
	mock.AddContainsMatch("git", []string{"commit-tree"}, pexec.MockResponse{
		Stderr: []byte("fatal: unable to write commit object"),
		Err:    &pexec.ExitError{Code: 128},
	})

	_, err := m.withExecutor(mock, m.ledger).Save(ctx)
	assertKind(t, err, rdmerr.StorageFailure)

	if m.ledger.Revision != 0 || m.diskRevision(t) != 0 {
		t.Errorf("ledger advanced to %d after a failed commit", m.diskRevision(t))
	}
	if m.head(t) != head {
		t.Error("HEAD moved after a failed commit")
	}
}

func TestSave_LedgerFailureLeavesHead(t *testing.T) {
	m := newMachine(t)
	m.write(t, ".zshrc", "bindkey -v\n")
	if _, err := m.engine.Add(ctx, m.path(".zshrc")); err != nil {
		t.Fatal(err)
	}
	head := m.head(t)

	l := &stubLedger{commitErr: errors.New("disk full")}
	_, err := m.withExecutor(pexec.NewRealExecutor(), l).Save(ctx)
	assertKind(t, err, rdmerr.LedgerFailure)

	if m.head(t) != head {
		t.Error("HEAD moved although the revision was not recorded")
	}
	if l.revision != 0 {
		t.Errorf("revision = %d, want 0", l.revision)
	}
}

func TestSave_RefUpdateFailureRevertsLedger(t *testing.T) {
	m := newMachine(t)
	m.write(t, ".zshrc", "bindkey -v\n")
	if _, err := m.engine.Add(ctx, m.path(".zshrc")); err != nil {
		t.Fatal(err)
	}
	head := m.head(t)

	mock := pexec.NewMockExecutor(pexec.NewRealExecutor())
	mock.AddContainsMatch("git", []string{"update-ref"}, pexec.MockResponse{
		Stderr: []byte("fatal: cannot lock ref 'HEAD'"),
		Err:    &pexec.ExitError{Code: 128},
	})

	_, err := m.withExecutor(mock, m.ledger).Save(ctx)
	assertKind(t, err, rdmerr.StorageFailure)

	if m.ledger.Revision != 0 || m.diskRevision(t) != 0 {
		t.Errorf("ledger = %d after a failed reference update, want 0", m.diskRevision(t))
	}
	if m.head(t) != head {
		t.Error("HEAD moved")
	}

	// The next successful save reuses the revision number.
	res, err := m.engine.Save(ctx)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if res.Revision != 1 {
		t.Errorf("revision = %d, want 1", res.Revision)
	}
}

func TestSave_RefUpdateFailureCallsRevert(t *testing.T) {
	m := newMachine(t)
	m.write(t, ".zshrc", "bindkey -v\n")
	if _, err := m.engine.Add(ctx, m.path(".zshrc")); err != nil {
		t.Fatal(err)
	}

	mock := pexec.NewMockExecutor(pexec.NewRealExecutor())
	mock.AddContainsMatch("git", []string{"update-ref"}, pexec.MockResponse{Err: &pexec.ExitError{Code: 128}})

	l := &stubLedger{revision: 7}
	if _, err := m.withExecutor(mock, l).Save(ctx); err == nil {
		t.Fatal("expected error")
	}
	if !l.reverted || l.revision != 7 {
		t.Errorf("ledger = %+v, want reverted to 7", l)
	}
}
