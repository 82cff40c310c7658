package engine

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/rdmcfg/rdm/git"
	"github.com/rdmcfg/rdm/rdmerr"
)

func TestStatus_UntrackedOnlyOnRequest(t *testing.T) {
	m := newMachine(t)
	m.write(t, ".gitconfig", "[user]\n")

	entries, err := m.engine.Status(ctx, "", false)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("plain status = %+v, want nothing", entries)
	}

	entries, err = m.engine.Status(ctx, "", true)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Path != ".gitconfig" || entries[0].Worktree != git.Untracked {
		t.Errorf("untracked status = %+v", entries)
	}
}

func TestStatus_NamedIgnoredPath(t *testing.T) {
	m := newMachine(t)
	m.write(t, ".gitignore", m.read(t, ".gitignore")+".cache/\n")
	m.write(t, ".cache/thumbs", "x")

	entries, err := m.engine.Status(ctx, m.path(".cache/thumbs"), false)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Worktree != git.Ignored {
		t.Errorf("named ignored path = %+v, want ignored", entries)
	}

	all, _ := m.engine.Status(ctx, "", true)
	for _, e := range all {
		if e.Worktree == git.Ignored {
			t.Errorf("whole-tree scan reported ignored %s", e.Path)
		}
	}
}

func TestStatus_WorktreeChanges(t *testing.T) {
	m := newMachine(t)
	m.saveFile(t, ".vimrc", "set number\n")
	m.saveFile(t, ".tmux.conf", "set -g mouse on\n")

	m.write(t, ".vimrc", "set nonumber\n")
	if err := os.Remove(m.path(".tmux.conf")); err != nil {
		t.Fatal(err)
	}

	entries, err := m.engine.Status(ctx, "", false)
	if err != nil {
		t.Fatal(err)
	}
	got := map[string]git.FileStatus{}
	for _, e := range entries {
		got[e.Path] = e.Worktree
	}
	if got[".vimrc"] != git.WorktreeModifiedUnsaved {
		t.Errorf(".vimrc = %s, want worktree_modified_unsaved", got[".vimrc"])
	}
	if got[".tmux.conf"] != git.WorktreeDeletedUnsaved {
		t.Errorf(".tmux.conf = %s, want worktree_deleted_unsaved", got[".tmux.conf"])
	}
}

func TestAdd_AlreadyCurrent(t *testing.T) {
	m := newMachine(t)
	m.saveFile(t, ".vimrc", "set number\n")

	staged, err := m.engine.Add(ctx, m.path(".vimrc"))
	if err != nil {
		t.Fatal(err)
	}
	if len(staged) != 0 {
		t.Errorf("staged = %v, want nothing for a current file", staged)
	}
}

func TestAdd_Directory(t *testing.T) {
	m := newMachine(t)
	m.write(t, ".config/nvim/init.lua", "vim.o.number = true\n")
	m.write(t, ".config/nvim/lua/plugins.lua", "return {}\n")

	staged, err := m.engine.Add(ctx, m.path(".config/nvim"))
	if err != nil {
		t.Fatal(err)
	}
	slices.Sort(staged)
	want := []string{".config/nvim/init.lua", ".config/nvim/lua/plugins.lua"}
	if !slices.Equal(staged, want) {
		t.Errorf("staged = %v, want %v", staged, want)
	}
}

func TestAdd_OutsideWorktree(t *testing.T) {
	m := newMachine(t)

	_, err := m.engine.Add(ctx, filepath.Join(m.root, "elsewhere"))
	assertKind(t, err, rdmerr.InvalidInput)
}

func TestUpdate_NeverStagesUntracked(t *testing.T) {
	m := newMachine(t)
	m.saveFile(t, ".vimrc", "set number\n")
	m.write(t, ".vimrc", "set nonumber\n")
	m.write(t, ".new", "untracked\n")

	staged, err := m.engine.Update(ctx, m.path(".vimrc"), m.path(".new"))
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(staged, []string{".vimrc"}) {
		t.Errorf("staged = %v, want [.vimrc]", staged)
	}

	entries, _ := m.engine.Status(ctx, m.path(".new"), false)
	if len(entries) != 1 || entries[0].Worktree != git.Untracked {
		t.Errorf(".new = %+v, want still untracked", entries)
	}
}
