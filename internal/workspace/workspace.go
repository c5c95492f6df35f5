// Package workspace resolves a repository's canonical root and the
// short content-addressed hash that keys its on-disk data directory
// and the daemon's socket name. Both the engine and the daemon derive
// their per-repo paths through this package so the two can never
// disagree about which repository they are talking about.
package workspace

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// CanonicalRoot resolves path to the repository root it belongs to:
// the nearest ancestor containing a .git entry, or the absolute,
// symlink-resolved form of path itself when no .git is found (an
// unversioned tree is still indexable).
func CanonicalRoot(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("workspace: resolve %q: %w", path, err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}

	dir := abs
	for {
		if fi, err := os.Stat(filepath.Join(dir, ".git")); err == nil && (fi.IsDir() || fi.Mode().IsRegular()) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return abs, nil
		}
		dir = parent
	}
}

// ShortHash returns the deterministic six-hex-digit hash of a
// canonical repository path, used for "<data_dir>/repos/<hash>" and
// the daemon's "omnicontext-<hash>" socket name. The path is
// normalized (Windows long-path prefix stripped, lowercased) before
// hashing so the same repository always maps to the same hash no
// matter how the caller spelled the path.
func ShortHash(canonicalRepoPath string) string {
	normalized := strings.ToLower(strings.TrimPrefix(canonicalRepoPath, `\\?\`))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])[:6]
}

// SocketPath returns the platform-native local socket address for the
// daemon serving the repository rooted at canonicalRepoPath:
// a named pipe on Windows, a Unix domain socket under XDG_RUNTIME_DIR
// (falling back to /tmp) elsewhere.
func SocketPath(canonicalRepoPath string) string {
	hash := ShortHash(canonicalRepoPath)
	if runtime.GOOS == "windows" {
		return `\\.\pipe\omnicontext-` + hash
	}
	runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
	if runtimeDir == "" {
		runtimeDir = os.TempDir()
	}
	return filepath.Join(runtimeDir, "omnicontext-"+hash+".sock")
}
