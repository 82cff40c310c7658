// Package paths provides centralized path resolution for rdm's directories.
//
// rdm follows the XDG Base Directory Specification:
//
//   - Config (XDG_CONFIG_HOME): rdm.lock, rdm.lua, init.lua, bootstrap.lua
//   - Data (XDG_DATA_HOME): repo/, the default bare repository location
//   - State (XDG_STATE_HOME): logs/, debug log files
//
// Unset XDG variables fall back to ~/.config, ~/.local/share and
// ~/.local/state respectively.
package paths

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// LedgerFileName is the name of the revision ledger inside the config dir.
const LedgerFileName = "rdm.lock"

var (
	mu       sync.Mutex
	resolved *resolvedPaths
)

type resolvedPaths struct {
	home      string
	configDir string
	dataDir   string
	stateDir  string
}

// resolve computes the path layout once and caches it.
func resolve() (*resolvedPaths, error) {
	mu.Lock()
	defer mu.Unlock()

	if resolved != nil {
		return resolved, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	xdgData := os.Getenv("XDG_DATA_HOME")
	xdgState := os.Getenv("XDG_STATE_HOME")

	if xdgConfig == "" {
		xdgConfig = filepath.Join(home, ".config")
	}
	if xdgData == "" {
		xdgData = filepath.Join(home, ".local", "share")
	}
	if xdgState == "" {
		xdgState = filepath.Join(home, ".local", "state")
	}

	resolved = &resolvedPaths{
		home:      home,
		configDir: filepath.Join(xdgConfig, "rdm"),
		dataDir:   filepath.Join(xdgData, "rdm"),
		stateDir:  filepath.Join(xdgState, "rdm"),
	}
	return resolved, nil
}

// ConfigDir returns the active configuration directory.
func ConfigDir() (string, error) {
	r, err := resolve()
	if err != nil {
		return "", err
	}
	return r.configDir, nil
}

// DataDir returns the directory for persistent data.
func DataDir() (string, error) {
	r, err := resolve()
	if err != nil {
		return "", err
	}
	return r.dataDir, nil
}

// StateDir returns the directory for runtime state and logs.
func StateDir() (string, error) {
	r, err := resolve()
	if err != nil {
		return "", err
	}
	return r.stateDir, nil
}

// DefaultRepoDir returns the default location of the bare repository.
func DefaultRepoDir() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "repo"), nil
}

// LogsDir returns the directory for log files.
func LogsDir() (string, error) {
	dir, err := StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "logs"), nil
}

// LedgerPath returns the ledger location inside configDir. An empty
// configDir selects the default config directory.
func LedgerPath(configDir string) (string, error) {
	if configDir == "" {
		dir, err := ConfigDir()
		if err != nil {
			return "", err
		}
		configDir = dir
	}
	return filepath.Join(configDir, LedgerFileName), nil
}

// Expand replaces a leading "~" with the home directory and expands
// environment variables, repeating until the result stops changing.
func Expand(path string) string {
	const maxRounds = 8
	for range maxRounds {
		next := os.ExpandEnv(expandHome(path))
		if next == path {
			break
		}
		path = next
	}
	return path
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	r, err := resolve()
	if err != nil {
		return path
	}
	return filepath.Join(r.home, strings.TrimPrefix(path, "~"))
}

// Canonical expands path and returns its absolute form with symlinks
// resolved. The path must exist.
func Canonical(path string) (string, error) {
	abs, err := filepath.Abs(Expand(path))
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

// SamePath returns true if a and b refer to the same filesystem entry.
// It handles case-insensitive filesystems (e.g. macOS APFS) and symlinks
// by comparing device+inode via os.SameFile. Falls back to exact string
// comparison when either path cannot be stat'd.
func SamePath(a, b string) bool {
	if a == b {
		return true
	}
	infoA, errA := os.Stat(a)
	infoB, errB := os.Stat(b)
	if errA != nil || errB != nil {
		return false
	}
	return os.SameFile(infoA, infoB)
}

// Reset clears the cached path resolution. This is intended for testing only.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	resolved = nil
}
