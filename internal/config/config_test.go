package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darianrosebrook/sterling/internal/config"
)

func TestLoadAppliesDefaultsWithNoConfigFile(t *testing.T) {
	dir := t.TempDir()

	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.StorageBackend)
	assert.True(t, cfg.StrictDefault)
	assert.Equal(t, 200, cfg.DefaultMaxClaims)
}

func TestLoadReadsSterlingYaml(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "sterling.yaml", "storage_backend: sql\nsql_dsn: \"root@/sterling\"\nstrict_default: false\ndefault_max_claims: 50\n")

	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "sql", cfg.StorageBackend)
	assert.Equal(t, "root@/sterling", cfg.SQLDSN)
	assert.False(t, cfg.StrictDefault)
	assert.Equal(t, 50, cfg.DefaultMaxClaims)
}

func TestLoadFallsBackToToml(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "sterling.toml", "storage_backend = \"sql\"\nsocket = \"/var/run/sterlingd.sock\"\n")

	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "sql", cfg.StorageBackend)
	assert.Equal(t, "/var/run/sterlingd.sock", cfg.Socket)
}

func TestLoadAppliesEnvironmentOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("STERLING_STORAGE_BACKEND", "sql")

	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "sql", cfg.StorageBackend)
}

func TestGetReturnsEmptyBeforeLoad(t *testing.T) {
	assert.Equal(t, "", config.Get("nonexistent.key.never.loaded"))
}

func TestLoadBootstrapReadsBootstrapOnlyKeys(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "sterling.yaml", "run_intent: replay\nsocket: /tmp/custom.sock\ndata_dir: /var/lib/sterling\n")

	b := config.LoadBootstrap(dir)
	assert.Equal(t, "replay", b.RunIntent)
	assert.Equal(t, "/tmp/custom.sock", b.Socket)
	assert.Equal(t, "/var/lib/sterling", b.DataDir)
}

func TestLoadBootstrapMissingFileReturnsZeroValue(t *testing.T) {
	b := config.LoadBootstrap(t.TempDir())
	assert.Equal(t, &config.Bootstrap{}, b)
}

func TestLoadBootstrapWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "sterling.yaml", "run_intent: normal\n")
	t.Setenv("STERLING_RUN_INTENT", "replay")

	b := config.LoadBootstrapWithEnv(dir)
	assert.Equal(t, "replay", b.RunIntent)
}

func TestIsBootstrapOnlyKey(t *testing.T) {
	assert.True(t, config.IsBootstrapOnlyKey("run_intent"))
	assert.True(t, config.IsBootstrapOnlyKey("socket"))
	assert.False(t, config.IsBootstrapOnlyKey("storage_backend"))
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}
