// Package script runs the user's Lua scripts (init.lua, bootstrap.lua)
// with a global rdm table bound to the configuration repository.
//
// Only the base, table, string and math libraries are opened; scripts
// cannot load other files or modules.
package script

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/rdmcfg/rdm/git"
	"github.com/rdmcfg/rdm/rdmerr"
)

var scriptErrs = rdmerr.Component("script")

// Host is the part of the engine a script can drive.
type Host interface {
	Add(ctx context.Context, path string) ([]string, error)
	Status(ctx context.Context, path string, untracked bool) ([]git.StatusEntry, error)
}

// Env is the read-only state exposed as rdm.worktree and rdm.revision.
type Env struct {
	Worktree string
	Revision uint32
}

// Runner executes scripts against one host.
type Runner struct {
	host Host
	env  Env
	log  *slog.Logger
}

// New creates a Runner.
func New(host Host, env Env, log *slog.Logger) *Runner {
	return &Runner{host: host, env: env, log: log.With("component", "script")}
}

// Run executes the script at path in a fresh interpreter.
func (r *Runner) Run(ctx context.Context, path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return scriptErrs.Format(rdmerr.ScriptFailure, "The script %s was not found.", path)
		}
		return scriptErrs.Wrap(rdmerr.ScriptFailure, err)
	}

	L := r.newState(ctx)
	defer L.Close()

	r.log.Debug("running script", "path", path)
	if err := doWithRecovery(func() error { return L.DoFile(path) }); err != nil {
		return scriptErrs.Wrapf(rdmerr.ScriptFailure, err, "The script %s failed.", path)
	}
	return nil
}

// RunString executes code in a fresh interpreter. name labels errors.
func (r *Runner) RunString(ctx context.Context, name, code string) error {
	L := r.newState(ctx)
	defer L.Close()

	if err := doWithRecovery(func() error { return L.DoString(code) }); err != nil {
		return scriptErrs.Wrapf(rdmerr.ScriptFailure, err, "The script %s failed.", name)
	}
	return nil
}

func doWithRecovery(fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("lua panic: %v", p)
		}
	}()
	return fn()
}

func (r *Runner) newState(ctx context.Context) *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.fn))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require", "module"} {
		L.SetGlobal(name, lua.LNil)
	}
	L.SetContext(ctx)

	L.SetGlobal("print", L.NewFunction(r.print))

	rdm := L.NewTable()
	L.SetFuncs(rdm, map[string]lua.LGFunction{
		"add":    r.add,
		"status": r.status,
	})
	rdm.RawSetString("worktree", lua.LString(r.env.Worktree))
	rdm.RawSetString("revision", lua.LNumber(r.env.Revision))
	L.SetGlobal("rdm", rdm)
	return L
}

// print sends its arguments to the log as one informational line.
func (r *Runner) print(L *lua.LState) int {
	parts := make([]string, L.GetTop())
	for i := range parts {
		parts[i] = L.ToStringMeta(L.Get(i + 1)).String()
	}
	r.log.Info(strings.Join(parts, "\t"))
	return 0
}

// add implements rdm.add(path) -> boolean.
func (r *Runner) add(L *lua.LState) int {
	path := L.CheckString(1)
	staged, err := r.host.Add(L.Context(), path)
	if err != nil {
		L.RaiseError("rdm.add(%q): %s", path, err.Error())
		return 0
	}
	L.Push(lua.LBool(len(staged) > 0))
	return 1
}

// status implements rdm.status(path) -> {status names}.
func (r *Runner) status(L *lua.LState) int {
	path := L.CheckString(1)
	entries, err := r.host.Status(L.Context(), path, true)
	if err != nil {
		L.RaiseError("rdm.status(%q): %s", path, err.Error())
		return 0
	}

	var names []string
	for _, entry := range entries {
		for _, s := range entry.Statuses() {
			if !slices.Contains(names, s.String()) {
				names = append(names, s.String())
			}
		}
	}
	if len(names) == 0 {
		names = append(names, git.Current.String())
	}

	out := L.NewTable()
	for _, name := range names {
		out.Append(lua.LString(name))
	}
	L.Push(out)
	return 1
}
