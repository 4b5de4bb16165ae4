package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsZeroValue(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.Equal(t, "memory", cfg.GetCacheBackend())
	require.Equal(t, 4096, cfg.GetMemoryMaxEntries())
}

func TestLoadParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.yaml")
	content := `
thread_budget: 4
cache:
  backend: disk
  disk_root_dir: /tmp/cache
dex:
  dex_tool: /usr/bin/dx
  extra_dex_args: "--no-optimize --core-library"
  xz_compression_level: 9
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 4, cfg.ThreadBudget)
	require.Equal(t, "disk", cfg.GetCacheBackend())
	require.Equal(t, "/tmp/cache", cfg.Cache.DiskRootDir)
	require.Equal(t, "/usr/bin/dx", cfg.Dex.DexTool)
	require.Equal(t, 9, cfg.Dex.XZCompressionLevel)

	args, err := cfg.Dex.GetExtraDexArgs()
	require.NoError(t, err)
	require.Equal(t, []string{"--no-optimize", "--core-library"}, args)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte("not: [valid"), 0644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestGetExtraDexArgsEmptyIsNil(t *testing.T) {
	var d DexConfig
	args, err := d.GetExtraDexArgs()
	require.NoError(t, err)
	require.Nil(t, args)
}
