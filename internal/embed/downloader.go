package embed

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/steeltroops-ai/omnicontext/internal/errs"
)

// EmbedServerVersion pins which cortex-embed release gets installed.
// Decoupled from the main binary's version so the ~150MB sidecar is
// re-downloaded only when the embedding stack actually changes.
const EmbedServerVersion = "v1.0.1"

// Fetcher retrieves a release archive from url and unpacks it into
// destDir. Injected so tests never touch the network.
type Fetcher interface {
	Fetch(url, destDir string) error
}

var supportedPlatforms = map[string]bool{
	"darwin-arm64":  true,
	"darwin-amd64":  true,
	"linux-amd64":   true,
	"linux-arm64":   true,
	"windows-amd64": true,
}

// EnsureBinaryInstalled returns the path to the cortex-embed binary,
// downloading and unpacking the release archive on first use. A nil
// fetcher selects the real HTTP implementation.
func EnsureBinaryInstalled(fetcher Fetcher) (string, error) {
	if fetcher == nil {
		fetcher = httpFetcher{client: &http.Client{Timeout: 10 * time.Minute}}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("%w: resolve home directory: %v", errs.ErrModelUnavailable, err)
	}
	binDir := filepath.Join(home, ".cortex", "bin")
	binaryPath := filepath.Join(binDir, binaryName())

	if _, err := os.Stat(binaryPath); err == nil {
		return binaryPath, nil
	}

	platform, err := platformString()
	if err != nil {
		return "", err
	}
	url := releaseURL(platform)

	fmt.Printf("Downloading embedding server %s for %s...\n", EmbedServerVersion, platform)
	if err := fetcher.Fetch(url, binDir); err != nil {
		return "", fmt.Errorf("%w: fetch %s: %v (manual download: %s)", errs.ErrModelUnavailable, platform, err, url)
	}

	// The archive ships a platform-suffixed binary; install it under
	// the generic name the rest of the engine looks for.
	unpacked := filepath.Join(binDir, "cortex-embed-"+platform)
	if runtime.GOOS == "windows" {
		unpacked += ".exe"
	}
	if _, err := os.Stat(unpacked); err != nil {
		return "", fmt.Errorf("%w: archive did not contain %s: %v", errs.ErrModelUnavailable, filepath.Base(unpacked), err)
	}
	if err := os.Rename(unpacked, binaryPath); err != nil {
		return "", fmt.Errorf("%w: install binary: %v", errs.ErrModelUnavailable, err)
	}
	if runtime.GOOS != "windows" {
		if err := os.Chmod(binaryPath, 0o755); err != nil {
			return "", fmt.Errorf("%w: mark binary executable: %v", errs.ErrModelUnavailable, err)
		}
	}

	fmt.Printf("Embedding server installed to %s\n", binaryPath)
	return binaryPath, nil
}

func binaryName() string {
	if runtime.GOOS == "windows" {
		return "cortex-embed.exe"
	}
	return "cortex-embed"
}

// platformString returns "goos-goarch", rejecting combinations no
// release is published for.
func platformString() (string, error) {
	platform := runtime.GOOS + "-" + runtime.GOARCH
	if !supportedPlatforms[platform] {
		return "", fmt.Errorf("%w: no cortex-embed release for %s", errs.ErrModelUnavailable, platform)
	}
	return platform, nil
}

// releaseURL builds the download URL for one platform's archive:
// cortex-embed-{version}-{platform}.tar.gz (.zip on Windows).
func releaseURL(platform string) string {
	ext := ".tar.gz"
	if strings.HasPrefix(platform, "windows") {
		ext = ".zip"
	}
	return fmt.Sprintf("https://github.com/steeltroops-ai/omnicontext/releases/download/%s/cortex-embed-%s-%s%s",
		EmbedServerVersion, EmbedServerVersion, platform, ext)
}

// httpFetcher is the production Fetcher: stream the archive to a temp
// file, then unpack.
type httpFetcher struct {
	client *http.Client
}

func (f httpFetcher) Fetch(url, destDir string) error {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", destDir, err)
	}

	resp, err := f.client.Get(url)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download: unexpected status %s", resp.Status)
	}

	tmp, err := os.CreateTemp("", "cortex-embed-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	written, err := io.Copy(tmp, resp.Body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	if resp.ContentLength > 0 && written != resp.ContentLength {
		return fmt.Errorf("download: got %d of %d bytes", written, resp.ContentLength)
	}

	if strings.HasSuffix(url, ".zip") {
		return unpackZip(tmp.Name(), destDir)
	}
	return unpackTarGz(tmp.Name(), destDir)
}

// securePath joins name under destDir, rejecting entries that would
// escape it (zip-slip).
func securePath(destDir, name string) (string, error) {
	target := filepath.Join(destDir, name)
	if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("archive entry escapes destination: %s", name)
	}
	return target, nil
}

func unpackTarGz(archivePath, destDir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()

	gzr, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("open gzip stream: %w", err)
	}
	defer gzr.Close()

	tr := tar.NewReader(gzr)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read tar: %w", err)
		}

		target, err := securePath(destDir, header.Name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, os.FileMode(header.Mode)); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := writeFileFrom(target, tr, os.FileMode(header.Mode)); err != nil {
				return err
			}
		}
		// Symlinks and other entry types are skipped; release archives
		// contain only the binary and its support files.
	}
}

func unpackZip(archivePath, destDir string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}
	defer r.Close()

	for _, entry := range r.File {
		target, err := securePath(destDir, entry.Name)
		if err != nil {
			return err
		}
		if entry.FileInfo().IsDir() {
			if err := os.MkdirAll(target, entry.Mode()); err != nil {
				return err
			}
			continue
		}
		rc, err := entry.Open()
		if err != nil {
			return fmt.Errorf("open %s in archive: %w", entry.Name, err)
		}
		err = writeFileFrom(target, rc, entry.Mode())
		rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func writeFileFrom(target string, src io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	_, err = io.Copy(out, src)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	return err
}
