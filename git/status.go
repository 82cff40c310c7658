package git

import (
	"bytes"
	"context"
	"fmt"
)

// FileStatus classifies one side of a path's state.
type FileStatus int

const (
	Current FileStatus = iota
	StagedNew
	StagedModified
	StagedDeleted
	WorktreeModifiedUnsaved
	WorktreeDeletedUnsaved
	Untracked
	Ignored
)

// String returns the status name.
func (s FileStatus) String() string {
	switch s {
	case Current:
		return "current"
	case StagedNew:
		return "staged_new"
	case StagedModified:
		return "staged_modified"
	case StagedDeleted:
		return "staged_deleted"
	case WorktreeModifiedUnsaved:
		return "worktree_modified_unsaved"
	case WorktreeDeletedUnsaved:
		return "worktree_deleted_unsaved"
	case Untracked:
		return "untracked"
	case Ignored:
		return "ignored"
	default:
		return fmt.Sprintf("FileStatus(%d)", int(s))
	}
}

// IsStaged reports whether s describes a difference between the index and
// the last saved tree.
func (s FileStatus) IsStaged() bool {
	return s == StagedNew || s == StagedModified || s == StagedDeleted
}

// IsWorktreeChange reports whether s describes a difference between the
// worktree and the index that staging would record.
func (s FileStatus) IsWorktreeChange() bool {
	return s == WorktreeModifiedUnsaved || s == WorktreeDeletedUnsaved
}

// StatusEntry is the classification of one path. Index compares the index
// against the last saved tree; Worktree compares the worktree against the
// index. Untracked and ignored paths carry the same status on both sides.
type StatusEntry struct {
	Path     string
	Index    FileStatus
	Worktree FileStatus
}

// IsCurrent reports whether the path has no changes at all.
func (e StatusEntry) IsCurrent() bool {
	return e.Index == Current && e.Worktree == Current
}

// Statuses returns the distinct non-current statuses of the entry, index
// side first.
func (e StatusEntry) Statuses() []FileStatus {
	var out []FileStatus
	if e.Index != Current {
		out = append(out, e.Index)
	}
	if e.Worktree != Current && e.Worktree != e.Index {
		out = append(out, e.Worktree)
	}
	if len(out) == 0 {
		out = append(out, Current)
	}
	return out
}

// StatusOptions selects what Status reports.
type StatusOptions struct {
	// Path limits the scan to one file or directory. Empty scans the whole
	// worktree. A named path always reports untracked and ignored results.
	Path string
	// Untracked includes untracked files in whole-tree scans.
	Untracked bool
}

// Status classifies paths against the index and the last saved tree.
func (r *Repository) Status(ctx context.Context, opts StatusOptions) ([]StatusEntry, error) {
	args := []string{"status", "--porcelain=v1", "-z"}

	switch {
	case opts.Path != "":
		rel, err := r.RelPath(opts.Path)
		if err != nil {
			return nil, err
		}
		args = append(args, "--untracked-files=all", "--ignored=matching", "--", rel)
	case opts.Untracked:
		args = append(args, "--untracked-files=all")
	default:
		args = append(args, "--untracked-files=no")
	}

	out, err := r.output(ctx, args...)
	if err != nil {
		return nil, err
	}

	entries, err := ParsePorcelain(out)
	if err != nil {
		return nil, err
	}
	r.log.Debug("classified status", "path", opts.Path, "untracked", opts.Untracked, "entries", len(entries))
	return entries, nil
}

// ParsePorcelain parses `git status --porcelain=v1 -z` output. Renames and
// copies are reported under their new path.
func ParsePorcelain(out []byte) ([]StatusEntry, error) {
	var entries []StatusEntry

	records := bytes.Split(out, []byte{0})
	for i := 0; i < len(records); i++ {
		rec := records[i]
		if len(rec) == 0 {
			continue
		}
		if len(rec) < 4 || rec[2] != ' ' {
			return nil, fmt.Errorf("malformed status record %q", rec)
		}

		x, y := rec[0], rec[1]
		entry := StatusEntry{Path: string(rec[3:])}

		switch {
		case x == '?' && y == '?':
			entry.Index, entry.Worktree = Untracked, Untracked
		case x == '!' && y == '!':
			entry.Index, entry.Worktree = Ignored, Ignored
		default:
			entry.Index = indexStatus(x)
			entry.Worktree = worktreeStatus(y)
		}

		// The source path of a rename or copy follows as its own record.
		if x == 'R' || x == 'C' {
			i++
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func indexStatus(x byte) FileStatus {
	switch x {
	case 'A', 'R', 'C':
		return StagedNew
	case 'M', 'T', 'U':
		return StagedModified
	case 'D':
		return StagedDeleted
	default:
		return Current
	}
}

func worktreeStatus(y byte) FileStatus {
	switch y {
	case 'M', 'T', 'A', 'U':
		return WorktreeModifiedUnsaved
	case 'D':
		return WorktreeDeletedUnsaved
	default:
		return Current
	}
}
