// Package git is the thin collaborator the engine consults for
// repository identity and commit recency. Everything here shells out
// to the git binary; callers treat failures as "not a git repository"
// rather than errors, since the engine indexes unversioned trees too.
package git

import (
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Operations is the injectable surface of this package: remote
// identity and worktree root feed the cache-key derivation, recent
// commit activity feeds the search recency boost.
type Operations interface {
	// RemoteURL returns the repository's remote URL, preferring
	// "origin" and falling back to the first configured remote.
	// Empty when no remote is configured.
	RemoteURL(projectPath string) string

	// WorktreeRoot returns the repository's top-level directory, or
	// projectPath itself outside a git repository.
	WorktreeRoot(projectPath string) string

	// RecentlyChanged returns repo-relative paths touched by commits
	// in the last `since` duration, most-recent-first, deduplicated.
	// Returns an empty slice, not an error, outside a git repository.
	RecentlyChanged(projectPath string, since time.Duration) ([]string, error)
}

type gitOps struct{}

// NewOperations returns the exec-backed implementation.
func NewOperations() Operations {
	return gitOps{}
}

// runGit runs one git command in dir and returns its trimmed stdout.
func runGit(dir string, args ...string) (string, bool) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(string(out)), true
}

func (gitOps) RemoteURL(projectPath string) string {
	if url, ok := runGit(projectPath, "remote", "get-url", "origin"); ok {
		return url
	}

	remotes, ok := runGit(projectPath, "remote")
	if !ok || remotes == "" {
		return ""
	}
	first := strings.SplitN(remotes, "\n", 2)[0]
	url, _ := runGit(projectPath, "remote", "get-url", first)
	return url
}

func (gitOps) WorktreeRoot(projectPath string) string {
	if root, ok := runGit(projectPath, "rev-parse", "--show-toplevel"); ok {
		return root
	}
	return projectPath
}

func (gitOps) RecentlyChanged(projectPath string, since time.Duration) ([]string, error) {
	out, ok := runGit(projectPath, "log",
		fmt.Sprintf("--since=%d.seconds", int64(since.Seconds())),
		"--name-only", "--pretty=format:")
	if !ok {
		return nil, nil
	}

	seen := make(map[string]bool)
	var paths []string
	for _, line := range strings.Split(out, "\n") {
		path := strings.TrimSpace(line)
		if path == "" || seen[path] {
			continue
		}
		seen[path] = true
		paths = append(paths, path)
	}
	return paths, nil
}
