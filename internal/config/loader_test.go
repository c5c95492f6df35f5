package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubUserConfig(t *testing.T, content string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte(content), 0644))

	prev := userConfigDir
	userConfigDir = func() string { return dir }
	t.Cleanup(func() { userConfigDir = prev })
}

func TestLoad_UserConfigOverridesDefaults(t *testing.T) {
	stubUserConfig(t, `
embedding:
  dimensions: 768
search:
  rrf_k: 30
`)

	cfg, err := NewLoader(t.TempDir()).Load()
	require.NoError(t, err)

	assert.Equal(t, 768, cfg.Embedding.Dimensions)
	assert.Equal(t, 30, cfg.Search.RRFK)
	// Untouched keys keep compiled defaults.
	assert.Equal(t, Default().Embedding.Provider, cfg.Embedding.Provider)
}

func TestLoad_ProjectConfigOverridesUserConfig(t *testing.T) {
	stubUserConfig(t, `
embedding:
  dimensions: 768
`)

	rootDir := t.TempDir()
	cortexDir := filepath.Join(rootDir, ".cortex")
	require.NoError(t, os.MkdirAll(cortexDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(cortexDir, "config.yml"), []byte(`
embedding:
  dimensions: 1024
`), 0644))

	cfg, err := NewLoader(rootDir).Load()
	require.NoError(t, err)

	assert.Equal(t, 1024, cfg.Embedding.Dimensions)
}

func TestLoad_MissingUserConfigIsSkipped(t *testing.T) {
	prev := userConfigDir
	userConfigDir = func() string { return filepath.Join(t.TempDir(), "does-not-exist") }
	t.Cleanup(func() { userConfigDir = prev })

	cfg, err := NewLoader(t.TempDir()).Load()
	require.NoError(t, err)
	assert.Equal(t, Default().Embedding.Dimensions, cfg.Embedding.Dimensions)
}
