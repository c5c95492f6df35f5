package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steeltroops-ai/omnicontext/internal/git"
)

func TestLoadOrCreateSettingsNew(t *testing.T) {
	t.Setenv("CORTEX_CACHE_ROOT", t.TempDir())
	tmpDir := t.TempDir()
	stubGit(t, &git.Mock{Remote: "https://github.com/user/repo.git", Root: tmpDir})

	settings, err := LoadOrCreateSettings(tmpDir)
	require.NoError(t, err)

	assert.Regexp(t, `^[0-9a-f]{8}-[0-9a-f]{8}$`, settings.CacheKey)
	assert.Contains(t, settings.CacheLocation, settings.CacheKey, "cache location should contain cache key")
	assert.Equal(t, "github.com/user/repo", settings.RemoteURL)
	assert.Equal(t, tmpDir, settings.WorktreePath)
	assert.Equal(t, "2.0", settings.SchemaVersion)
	assert.True(t, settings.LastIndexed.IsZero())
}

func TestLoadOrCreateSettingsExisting(t *testing.T) {
	tmpDir := t.TempDir()

	cortexDir := filepath.Join(tmpDir, ".cortex")
	require.NoError(t, os.MkdirAll(cortexDir, 0755))

	existing := &Settings{
		CacheKey:      "abcd1234-efgh5678",
		CacheLocation: "/home/user/.cortex/cache/abcd1234-efgh5678",
		RemoteURL:     "github.com/existing/repo",
		WorktreePath:  tmpDir,
		LastIndexed:   time.Now(),
		SchemaVersion: "2.0",
	}
	data, err := json.MarshalIndent(existing, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(cortexDir, "settings.local.json"), data, 0644))

	settings, err := LoadOrCreateSettings(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, existing.CacheKey, settings.CacheKey)
	assert.Equal(t, existing.CacheLocation, settings.CacheLocation)
	assert.Equal(t, existing.RemoteURL, settings.RemoteURL)
	assert.Equal(t, existing.WorktreePath, settings.WorktreePath)
	assert.Equal(t, existing.SchemaVersion, settings.SchemaVersion)
	assert.WithinDuration(t, existing.LastIndexed, settings.LastIndexed, time.Second)
}

func TestLoadOrCreateSettingsInvalidJSON(t *testing.T) {
	t.Setenv("CORTEX_CACHE_ROOT", t.TempDir())
	tmpDir := t.TempDir()
	stubGit(t, &git.Mock{Remote: "https://github.com/user/repo.git", Root: tmpDir})

	cortexDir := filepath.Join(tmpDir, ".cortex")
	require.NoError(t, os.MkdirAll(cortexDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(cortexDir, "settings.local.json"), []byte("invalid json {"), 0644))

	// Malformed settings are replaced, not an error.
	settings, err := LoadOrCreateSettings(tmpDir)
	require.NoError(t, err)

	assert.NotEmpty(t, settings.CacheKey)
	assert.Equal(t, "github.com/user/repo", settings.RemoteURL)
}

func TestSettingsSave(t *testing.T) {
	t.Parallel()
	tmpDir := t.TempDir()

	settings := &Settings{
		CacheKey:      "test1234-hash5678",
		CacheLocation: "/test/path",
		RemoteURL:     "github.com/test/repo",
		WorktreePath:  tmpDir,
		LastIndexed:   time.Now(),
		SchemaVersion: "2.0",
	}
	require.NoError(t, settings.Save(tmpDir))

	data, err := os.ReadFile(filepath.Join(tmpDir, ".cortex", "settings.local.json"))
	require.NoError(t, err)

	var loaded Settings
	require.NoError(t, json.Unmarshal(data, &loaded))
	assert.Equal(t, settings.CacheKey, loaded.CacheKey)
	assert.Equal(t, settings.CacheLocation, loaded.CacheLocation)
	assert.Equal(t, settings.RemoteURL, loaded.RemoteURL)
	assert.Equal(t, settings.WorktreePath, loaded.WorktreePath)
	assert.Equal(t, settings.SchemaVersion, loaded.SchemaVersion)
	assert.WithinDuration(t, settings.LastIndexed, loaded.LastIndexed, time.Second)
}

func TestSettingsSaveAtomic(t *testing.T) {
	t.Parallel()
	tmpDir := t.TempDir()

	initial := &Settings{CacheKey: "initial", CacheLocation: "/initial/path", SchemaVersion: "2.0"}
	require.NoError(t, initial.Save(tmpDir))

	updated := &Settings{CacheKey: "updated", CacheLocation: "/updated/path", SchemaVersion: "2.0"}
	require.NoError(t, updated.Save(tmpDir))

	settingsPath := filepath.Join(tmpDir, ".cortex", "settings.local.json")
	_, err := os.Stat(settingsPath + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file should be cleaned up")

	data, err := os.ReadFile(settingsPath)
	require.NoError(t, err)
	var loaded Settings
	require.NoError(t, json.Unmarshal(data, &loaded))
	assert.Equal(t, "updated", loaded.CacheKey)
	assert.Equal(t, "/updated/path", loaded.CacheLocation)
}

func TestSettingsSaveCreatesDirectory(t *testing.T) {
	t.Parallel()
	tmpDir := t.TempDir()

	cortexDir := filepath.Join(tmpDir, ".cortex")
	_, err := os.Stat(cortexDir)
	require.True(t, os.IsNotExist(err))

	settings := &Settings{CacheKey: "test1234", SchemaVersion: "2.0"}
	require.NoError(t, settings.Save(tmpDir))

	_, err = os.Stat(cortexDir)
	require.NoError(t, err)
}

func TestGetCachePath(t *testing.T) {
	cacheKey := "test1234-hash5678"

	t.Run("default location", func(t *testing.T) {
		t.Setenv("CORTEX_CACHE_ROOT", "")
		path := GetCachePath(cacheKey)

		assert.Contains(t, path, filepath.Join(".cortex", "cache"))
		assert.Contains(t, path, cacheKey)
		if home, err := os.UserHomeDir(); err == nil {
			assert.Contains(t, path, home)
		}
	})

	t.Run("custom cache root", func(t *testing.T) {
		customRoot := "/custom/cache/root"
		t.Setenv("CORTEX_CACHE_ROOT", customRoot)

		assert.Equal(t, filepath.Join(customRoot, cacheKey), GetCachePath(cacheKey))
	})
}

func TestSettingsRoundTrip(t *testing.T) {
	t.Setenv("CORTEX_CACHE_ROOT", t.TempDir())
	tmpDir := t.TempDir()
	stubGit(t, &git.Mock{Remote: "git@github.com:user/repo.git", Root: tmpDir})

	settings1, err := LoadOrCreateSettings(tmpDir)
	require.NoError(t, err)
	settings1.LastIndexed = time.Now()
	require.NoError(t, settings1.Save(tmpDir))

	settings2, err := LoadOrCreateSettings(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, settings1.CacheKey, settings2.CacheKey)
	assert.Equal(t, settings1.CacheLocation, settings2.CacheLocation)
	assert.Equal(t, settings1.RemoteURL, settings2.RemoteURL)
	assert.Equal(t, settings1.WorktreePath, settings2.WorktreePath)
	assert.Equal(t, settings1.SchemaVersion, settings2.SchemaVersion)
	assert.WithinDuration(t, settings1.LastIndexed, settings2.LastIndexed, time.Second)
}

func TestSettingsJSONFormat(t *testing.T) {
	t.Parallel()
	tmpDir := t.TempDir()

	settings := &Settings{
		CacheKey:      "a1b2c3d4-e5f6g7h8",
		CacheLocation: "~/.cortex/cache/a1b2c3d4-e5f6g7h8",
		RemoteURL:     "github.com/user/repo",
		WorktreePath:  "/home/dev/myproject",
		LastIndexed:   time.Date(2025, 10, 30, 10, 0, 0, 0, time.UTC),
		SchemaVersion: "2.0",
	}
	require.NoError(t, settings.Save(tmpDir))

	data, err := os.ReadFile(filepath.Join(tmpDir, ".cortex", "settings.local.json"))
	require.NoError(t, err)

	// Indented, snake_case field names.
	assert.Contains(t, string(data), "  \"cache_key\":")
	assert.Contains(t, string(data), "  \"remote_url\":")
	assert.Contains(t, string(data), "  \"schema_version\": \"2.0\"")

	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &parsed))
	assert.Equal(t, "a1b2c3d4-e5f6g7h8", parsed["cache_key"])
	assert.Equal(t, "github.com/user/repo", parsed["remote_url"])
	assert.Equal(t, "2.0", parsed["schema_version"])
}

func TestSettingsWithoutRemote(t *testing.T) {
	t.Setenv("CORTEX_CACHE_ROOT", t.TempDir())
	tmpDir := t.TempDir()
	stubGit(t, &git.Mock{Root: tmpDir})

	settings, err := LoadOrCreateSettings(tmpDir)
	require.NoError(t, err)

	assert.Regexp(t, `^00000000-[0-9a-f]{8}$`, settings.CacheKey)
	assert.Empty(t, settings.RemoteURL)
}
