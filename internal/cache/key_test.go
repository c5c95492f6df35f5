package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steeltroops-ai/omnicontext/internal/git"
)

// stubGit swaps the package's git backend for a mock for one test.
func stubGit(t *testing.T, mock *git.Mock) {
	t.Helper()
	prev := gitOps
	gitOps = mock
	t.Cleanup(func() { gitOps = prev })
}

func TestCanonicalRemote(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"https://github.com/user/repo.git", "github.com/user/repo"},
		{"https://github.com/user/repo", "github.com/user/repo"},
		{"http://github.com/user/repo.git", "github.com/user/repo"},
		{"git@github.com:user/repo.git", "github.com/user/repo"},
		{"git@github.com:user/repo", "github.com/user/repo"},
		{"ssh://git@gitlab.example.com:team/repo.git", "gitlab.example.com/team/repo"},
		{"github.com/user/repo", "github.com/user/repo"},
		{"  https://github.com/user/repo.git  ", "github.com/user/repo"},
		{"", ""},
	}
	for _, tc := range cases {
		assert.Equalf(t, tc.want, CanonicalRemote(tc.in), "input %q", tc.in)
	}
}

func TestCanonicalRemoteUnifiesSSHAndHTTPS(t *testing.T) {
	https := CanonicalRemote("https://github.com/user/repo.git")
	ssh := CanonicalRemote("git@github.com:user/repo.git")
	assert.Equal(t, https, ssh)
}

func TestGetCacheKeyFormat(t *testing.T) {
	stubGit(t, &git.Mock{Remote: "https://github.com/user/repo.git", Root: "/home/dev/repo"})

	key, err := GetCacheKey("/home/dev/repo")
	require.NoError(t, err)
	require.Regexp(t, `^[0-9a-f]{8}-[0-9a-f]{8}$`, key)
}

func TestGetCacheKeyWithoutRemoteUsesPlaceholder(t *testing.T) {
	stubGit(t, &git.Mock{Root: "/home/dev/local-only"})

	key, err := GetCacheKey("/home/dev/local-only")
	require.NoError(t, err)
	assert.Regexp(t, `^00000000-[0-9a-f]{8}$`, key)
}

func TestGetCacheKeyDeterministic(t *testing.T) {
	stubGit(t, &git.Mock{Remote: "git@github.com:user/repo.git", Root: "/home/dev/repo"})

	key1, err1 := GetCacheKey("/home/dev/repo")
	key2, err2 := GetCacheKey("/home/dev/repo")
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, key1, key2)
}

func TestGetCacheKeySameRemoteDifferentWorktrees(t *testing.T) {
	mock := &git.Mock{Remote: "https://github.com/user/repo.git", Root: "/home/dev/repo-a"}
	stubGit(t, mock)
	keyA, err := GetCacheKey("/home/dev/repo-a")
	require.NoError(t, err)

	mock.Root = "/home/dev/repo-b"
	keyB, err := GetCacheKey("/home/dev/repo-b")
	require.NoError(t, err)

	assert.NotEqual(t, keyA, keyB)
	// The remote half is shared; only the worktree half differs.
	assert.Equal(t, keyA[:componentHexLen], keyB[:componentHexLen])
}

func TestGetCacheKeySpellingIndependent(t *testing.T) {
	mock := &git.Mock{Remote: "https://github.com/user/repo.git", Root: "/home/dev/repo"}
	stubGit(t, mock)
	httpsKey, err := GetCacheKey("/home/dev/repo")
	require.NoError(t, err)

	mock.Remote = "git@github.com:user/repo.git"
	sshKey, err := GetCacheKey("/home/dev/repo")
	require.NoError(t, err)

	assert.Equal(t, httpsKey, sshKey)
}

func TestShortHashWidthAndDeterminism(t *testing.T) {
	assert.Len(t, shortHash("github.com/user/repo"), componentHexLen)
	assert.Equal(t, shortHash("x"), shortHash("x"))
	assert.NotEqual(t, shortHash("x"), shortHash("y"))
}
