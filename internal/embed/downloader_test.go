package embed

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steeltroops-ai/omnicontext/internal/errs"
)

// fakeFetcher records the fetch and optionally plants files in destDir
// the way a real archive would.
type fakeFetcher struct {
	calls []string
	plant map[string][]byte
	err   error
}

func (f *fakeFetcher) Fetch(url, destDir string) error {
	f.calls = append(f.calls, url)
	if f.err != nil {
		return f.err
	}
	for name, content := range f.plant {
		if err := os.MkdirAll(destDir, 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(destDir, name), content, 0o755); err != nil {
			return err
		}
	}
	return nil
}

func TestPlatformString(t *testing.T) {
	t.Parallel()

	platform, err := platformString()
	if !supportedPlatforms[runtime.GOOS+"-"+runtime.GOARCH] {
		assert.ErrorIs(t, err, errs.ErrModelUnavailable)
		return
	}
	require.NoError(t, err)
	assert.Equal(t, runtime.GOOS+"-"+runtime.GOARCH, platform)
}

func TestReleaseURL(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		"https://github.com/steeltroops-ai/omnicontext/releases/download/"+
			EmbedServerVersion+"/cortex-embed-"+EmbedServerVersion+"-darwin-arm64.tar.gz",
		releaseURL("darwin-arm64"))
	assert.True(t, strings.HasSuffix(releaseURL("windows-amd64"), ".zip"))
}

func TestEnsureBinaryInstalled_ExistingBinarySkipsFetch(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	binDir := filepath.Join(home, ".cortex", "bin")
	require.NoError(t, os.MkdirAll(binDir, 0o755))
	existing := filepath.Join(binDir, binaryName())
	require.NoError(t, os.WriteFile(existing, []byte("#!/bin/sh\n"), 0o755))

	fetcher := &fakeFetcher{}
	path, err := EnsureBinaryInstalled(fetcher)
	require.NoError(t, err)
	assert.Equal(t, existing, path)
	assert.Empty(t, fetcher.calls, "existing binary must not trigger a download")
}

func TestEnsureBinaryInstalled_FetchesAndInstalls(t *testing.T) {
	platform, err := platformString()
	if err != nil {
		t.Skipf("unsupported test platform: %v", err)
	}
	home := t.TempDir()
	t.Setenv("HOME", home)

	unpackedName := "cortex-embed-" + platform
	if runtime.GOOS == "windows" {
		unpackedName += ".exe"
	}
	fetcher := &fakeFetcher{plant: map[string][]byte{
		unpackedName: []byte("#!/bin/sh\n"),
	}}

	path, err := EnsureBinaryInstalled(fetcher)
	require.NoError(t, err)
	require.Len(t, fetcher.calls, 1)
	assert.Equal(t, releaseURL(platform), fetcher.calls[0])

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, binaryName(), filepath.Base(path))
	if runtime.GOOS != "windows" {
		assert.NotZero(t, info.Mode()&0o111, "installed binary should be executable")
	}
}

func TestEnsureBinaryInstalled_FetchFailure(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	fetcher := &fakeFetcher{err: fmt.Errorf("network down")}
	_, err := EnsureBinaryInstalled(fetcher)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrModelUnavailable)
	assert.Contains(t, err.Error(), "network down")
}

func TestSecurePathRejectsTraversal(t *testing.T) {
	t.Parallel()

	dest := t.TempDir()
	_, err := securePath(dest, "../outside")
	assert.Error(t, err)

	ok, err := securePath(dest, "inner/cortex-embed")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ok, dest))
}

func TestUnpackTarGzRoundTrip(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	gzw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gzw)
	payload := []byte("binary contents")
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name:     "cortex-embed-test",
		Mode:     0o755,
		Size:     int64(len(payload)),
		Typeflag: tar.TypeReg,
	}))
	_, err := tw.Write(payload)
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, gzw.Close())

	archive := filepath.Join(t.TempDir(), "release.tar.gz")
	require.NoError(t, os.WriteFile(archive, buf.Bytes(), 0o644))

	dest := t.TempDir()
	require.NoError(t, unpackTarGz(archive, dest))

	got, err := os.ReadFile(filepath.Join(dest, "cortex-embed-test"))
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestUnpackTarGzRejectsEscapingEntry(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	gzw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gzw)
	payload := []byte("evil")
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name:     "../escape",
		Mode:     0o644,
		Size:     int64(len(payload)),
		Typeflag: tar.TypeReg,
	}))
	_, err := tw.Write(payload)
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, gzw.Close())

	archive := filepath.Join(t.TempDir(), "evil.tar.gz")
	require.NoError(t, os.WriteFile(archive, buf.Bytes(), 0o644))

	assert.Error(t, unpackTarGz(archive, t.TempDir()))
}
