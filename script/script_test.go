package script

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/rdmcfg/rdm/git"
	"github.com/rdmcfg/rdm/logger"
	"github.com/rdmcfg/rdm/rdmerr"
)

// fakeHost records calls and serves canned results.
type fakeHost struct {
	added    []string
	staged   map[string][]string
	statuses map[string][]git.StatusEntry
	err      error
}

func (h *fakeHost) Add(_ context.Context, path string) ([]string, error) {
	h.added = append(h.added, path)
	return h.staged[path], h.err
}

func (h *fakeHost) Status(_ context.Context, path string, untracked bool) ([]git.StatusEntry, error) {
	if !untracked {
		return nil, errors.New("scripts should always see untracked files")
	}
	return h.statuses[path], h.err
}

func writeScript(t *testing.T, code string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "init.lua")
	if err := os.WriteFile(path, []byte(code), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRun_Add(t *testing.T) {
	host := &fakeHost{staged: map[string][]string{".vimrc": {".vimrc"}}}
	runner := New(host, Env{Worktree: "/home/u"}, logger.Discard())

	path := writeScript(t, `
assert(rdm.add(".vimrc") == true)
assert(rdm.add(".zshrc") == false)
`)
	if err := runner.Run(context.Background(), path); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if want := []string{".vimrc", ".zshrc"}; !reflect.DeepEqual(host.added, want) {
		t.Errorf("added = %v, want %v", host.added, want)
	}
}

func TestRun_Status(t *testing.T) {
	host := &fakeHost{statuses: map[string][]git.StatusEntry{
		".config": {
			{Path: ".config/a", Index: git.StagedModified, Worktree: git.WorktreeModifiedUnsaved},
			{Path: ".config/b", Index: git.StagedModified, Worktree: git.Current},
			{Path: ".config/c", Index: git.Untracked, Worktree: git.Untracked},
		},
	}}
	runner := New(host, Env{}, logger.Discard())

	err := runner.RunString(context.Background(), "test", `
local s = rdm.status(".config")
assert(#s == 3, "got " .. #s)
assert(s[1] == "staged_modified")
assert(s[2] == "worktree_modified_unsaved")
assert(s[3] == "untracked")

local clean = rdm.status(".bashrc")
assert(#clean == 1 and clean[1] == "current")
`)
	if err != nil {
		t.Fatalf("RunString: %v", err)
	}
}

func TestRun_Env(t *testing.T) {
	runner := New(&fakeHost{}, Env{Worktree: "/home/u", Revision: 7}, logger.Discard())

	err := runner.RunString(context.Background(), "test", `
assert(rdm.worktree == "/home/u")
assert(rdm.revision == 7)
`)
	if err != nil {
		t.Fatalf("RunString: %v", err)
	}
}

func TestRun_HostErrorFailsScript(t *testing.T) {
	host := &fakeHost{err: errors.New("path is outside the worktree")}
	runner := New(host, Env{}, logger.Discard())

	err := runner.RunString(context.Background(), "init.lua", `rdm.add("/etc/passwd")`)
	if !rdmerr.Is(err, rdmerr.ScriptFailure) {
		t.Fatalf("expected ScriptFailure, got %v", err)
	}
	if !strings.Contains(err.Error(), "outside the worktree") {
		t.Errorf("host error should be reported, got %v", err)
	}
}

func TestRun_MissingScript(t *testing.T) {
	runner := New(&fakeHost{}, Env{}, logger.Discard())
	missing := filepath.Join(t.TempDir(), "bootstrap.lua")

	err := runner.Run(context.Background(), missing)
	if !rdmerr.Is(err, rdmerr.ScriptFailure) {
		t.Fatalf("expected ScriptFailure, got %v", err)
	}
	if !strings.Contains(err.Error(), "The script "+missing+" was not found.") {
		t.Errorf("unexpected message: %v", err)
	}
}

func TestRun_SyntaxError(t *testing.T) {
	runner := New(&fakeHost{}, Env{}, logger.Discard())
	path := writeScript(t, "rdm.add(")

	if err := runner.Run(context.Background(), path); !rdmerr.Is(err, rdmerr.ScriptFailure) {
		t.Fatalf("expected ScriptFailure, got %v", err)
	}
}

func TestRun_Sandbox(t *testing.T) {
	runner := New(&fakeHost{}, Env{}, logger.Discard())

	for _, code := range []string{
		`os.execute("true")`,
		`io.open("/etc/passwd")`,
		`dofile("/etc/passwd")`,
		`require("os")`,
	} {
		t.Run(code, func(t *testing.T) {
			if err := runner.RunString(context.Background(), "test", code); err == nil {
				t.Errorf("%s should fail", code)
			}
		})
	}

	if err := runner.RunString(context.Background(), "test", `assert(string.upper("a") == "A" and math.max(1, 2) == 2 and #table.concat({"x"}) == 1)`); err != nil {
		t.Errorf("safe libraries should be available: %v", err)
	}
}

func TestRun_PrintLogs(t *testing.T) {
	var buf bytes.Buffer
	log, err := logger.New(logger.Options{Console: &buf})
	if err != nil {
		t.Fatal(err)
	}
	runner := New(&fakeHost{}, Env{}, log.Logger)

	if err := runner.RunString(context.Background(), "test", `print("hello", 42)`); err != nil {
		t.Fatalf("RunString: %v", err)
	}
	if !strings.Contains(buf.String(), "hello\t42") {
		t.Errorf("print output = %q", buf.String())
	}
}
