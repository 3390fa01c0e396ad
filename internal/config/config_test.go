package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		EnvDatabaseDir, EnvDatabaseFile, EnvVectorFile, EnvIndexName,
		EnvEmbeddingProvider, EnvEmbeddingModel, EnvTopK, EnvPoolSize, EnvLogLevel,
	} {
		t.Setenv(k, "")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultBaseDir, cfg.BaseDir)
	assert.Equal(t, DefaultDatabaseFile, cfg.DatabaseFile)
	assert.Equal(t, DefaultIndexName, cfg.IndexName)
	assert.Equal(t, DefaultTopK, cfg.TopK)
	assert.Equal(t, DefaultPoolSize, cfg.PoolSize)
	assert.Equal(t, filepath.Join("data", "metadata.db"), cfg.MetadataPath())
	assert.Equal(t, filepath.Join("data", "vectors.db"), cfg.VectorPath())
}

func TestLoadFileThenEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlData := "base_dir: /srv/docs\ntop_k: 5\nembedding:\n  provider: openai\n  model: text-embedding-3-small\n"
	require.NoError(t, os.WriteFile(path, []byte(yamlData), 0o644))

	t.Setenv(EnvTopK, "12")
	t.Setenv(EnvDatabaseFile, "meta.db")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/docs", cfg.BaseDir)
	assert.Equal(t, "meta.db", cfg.DatabaseFile)
	assert.Equal(t, 12, cfg.TopK)
	assert.Equal(t, "openai", cfg.Embedding.Provider)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedding.Model)
}

func TestLoadRejectsBadInt(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv(EnvPoolSize, "many")

	_, err := Load("")
	assert.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	os.Unsetenv(EnvIndexName)
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(EnvIndexName+"=from_dotenv\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv(EnvIndexName) })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from_dotenv", cfg.IndexName)
}

func TestSaveRoundTrip(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.IndexName = "custom"
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "custom", loaded.IndexName)
}
