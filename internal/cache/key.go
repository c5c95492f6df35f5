// Package cache decides where a repository's index data lives: a
// per-project key derived from git identity, and the settings file
// that pins it under .cortex/settings.local.json.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/steeltroops-ai/omnicontext/internal/git"
)

// componentHexLen is the width of each cache-key component. Two
// components (remote identity, worktree location) keep clones of the
// same repository apart while letting tooling spot siblings by their
// shared remote half.
const componentHexLen = 8

// noRemotePlaceholder stands in for the remote component of a
// repository with no configured remote, so the key format stays fixed.
const noRemotePlaceholder = "00000000"

// gitOps is swapped for a git.Mock in tests.
var gitOps git.Operations = git.NewOperations()

// GetCacheKey derives the project's cache identity:
// "<remoteHash>-<worktreeHash>". The remote half follows the
// repository across clones; the worktree half separates clones and
// worktrees of the same remote.
func GetCacheKey(projectPath string) (string, error) {
	return remoteComponent(projectPath) + "-" + worktreeComponent(projectPath), nil
}

func remoteComponent(projectPath string) string {
	remote := CanonicalRemote(gitOps.RemoteURL(projectPath))
	if remote == "" {
		return noRemotePlaceholder
	}
	return shortHash(remote)
}

func worktreeComponent(projectPath string) string {
	return shortHash(gitOps.WorktreeRoot(projectPath))
}

func shortHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:componentHexLen]
}

// CanonicalRemote reduces a git remote URL to a protocol-independent
// "host/path" form, so HTTPS and SSH spellings of the same repository
// hash identically:
//
//	https://github.com/user/repo.git -> github.com/user/repo
//	git@github.com:user/repo.git     -> github.com/user/repo
func CanonicalRemote(remote string) string {
	remote = strings.TrimSpace(remote)
	for _, scheme := range []string{"https://", "http://", "ssh://", "git://"} {
		remote = strings.TrimPrefix(remote, scheme)
	}
	remote = strings.TrimSuffix(remote, ".git")
	if rest, ok := strings.CutPrefix(remote, "git@"); ok {
		remote = strings.Replace(rest, ":", "/", 1)
	}
	return remote
}
