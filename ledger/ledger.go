// Package ledger persists the revision counter that identifies successive
// saved states of the configuration tree. The ledger is bound to one
// (repository, worktree) pair and is stored as YAML next to the rest of the
// user's rdm configuration.
package ledger

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/rdmcfg/rdm/paths"
)

// ErrNotFound is returned by Load when no ledger file exists.
var ErrNotFound = errors.New("ledger not found")

// ErrOverflow is returned by Next when the revision counter is exhausted.
var ErrOverflow = errors.New("revision counter overflow")

// Ledger is the on-disk revision record.
type Ledger struct {
	Revision     uint32 `yaml:"revision"`
	RepoPath     string `yaml:"repo_path"`
	WorktreePath string `yaml:"worktree_path"`

	path string
}

// Load reads the ledger stored at path.
func Load(path string) (*Ledger, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}

	l, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("ledger %s: %w", path, err)
	}
	l.path = path
	return l, nil
}

// Decode parses ledger content that is not attached to a file, such as
// the copy stored in a fetched commit.
func Decode(data []byte) (*Ledger, error) {
	l := &Ledger{}
	if err := yaml.Unmarshal(data, l); err != nil {
		return nil, fmt.Errorf("failed to parse ledger: %w", err)
	}
	if l.RepoPath == "" || l.WorktreePath == "" {
		return nil, fmt.Errorf("missing repo_path or worktree_path")
	}
	return l, nil
}

// Create writes a fresh ledger at revision 0. An existing file is left
// untouched and loaded instead.
func Create(path, repoPath, worktreePath string) (*Ledger, error) {
	if l, err := Load(path); err == nil {
		return l, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	l := &Ledger{RepoPath: repoPath, WorktreePath: worktreePath, path: path}
	if err := l.write(0); err != nil {
		return nil, err
	}
	return l, nil
}

// Path returns the file the ledger is persisted to.
func (l *Ledger) Path() string {
	return l.path
}

// Bound reports whether the ledger belongs to the given repository and
// worktree.
func (l *Ledger) Bound(repoPath, worktreePath string) bool {
	return paths.SamePath(l.RepoPath, repoPath) && paths.SamePath(l.WorktreePath, worktreePath)
}

// Next returns the revision the next successful save will carry.
func (l *Ledger) Next() (uint32, error) {
	if l.Revision == math.MaxUint32 {
		return 0, ErrOverflow
	}
	return l.Revision + 1, nil
}

// Commit persists rev, which must be exactly one past the current revision.
func (l *Ledger) Commit(rev uint32) error {
	next, err := l.Next()
	if err != nil {
		return err
	}
	if rev != next {
		return fmt.Errorf("revision %d does not follow %d", rev, l.Revision)
	}
	return l.write(rev)
}

// Revert undoes a Commit whose commit could not be published. rev must be
// exactly one behind the current revision.
func (l *Ledger) Revert(rev uint32) error {
	if l.Revision == 0 || rev != l.Revision-1 {
		return fmt.Errorf("revision %d does not precede %d", rev, l.Revision)
	}
	return l.write(rev)
}

// Adopt rewrites the ledger file with this ledger's binding after a pull
// replaced it, moving the revision up to pulled when that is higher. The
// revision never decreases.
func (l *Ledger) Adopt(pulled uint32) error {
	return l.write(max(l.Revision, pulled))
}

// write atomically replaces the ledger file with one holding rev and
// updates the in-memory revision only when the rename succeeded.
func (l *Ledger) write(rev uint32) error {
	snapshot := *l
	snapshot.Revision = rev

	data, err := yaml.Marshal(&snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode ledger: %w", err)
	}

	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create ledger directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".rdm.lock-*")
	if err != nil {
		return fmt.Errorf("failed to write ledger: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write ledger: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write ledger: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("failed to write ledger: %w", err)
	}
	if err := os.Rename(tmpName, l.path); err != nil {
		return fmt.Errorf("failed to replace ledger %s: %w", l.path, err)
	}

	l.Revision = rev
	return nil
}
