package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveDefaults(t *testing.T) {
	var cfg Config
	cfg.Resolve(Flags{})

	assert.Equal(t, 30.0, cfg.PaddingUM)
	assert.Equal(t, 80.0, cfg.TipDropUM)
	assert.Equal(t, 100.0, cfg.ScaleDenominator)
	assert.Equal(t, 20.0, cfg.DefaultSiteWidth)
	assert.Greater(t, cfg.Workers, 0)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "converter.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"padding_um: 45\nworkers: 2\nlog_level: debug\nprobe_table: /data/probes.csv\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 45.0, cfg.PaddingUM)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/data/probes.csv", cfg.ProbeTable)

	cfg.Resolve(Flags{})
	assert.Equal(t, 45.0, cfg.PaddingUM, "file values survive Resolve")
	assert.Equal(t, 80.0, cfg.TipDropUM, "unset fields get defaults")
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("workers: [nope"), 0o644))
	_, err = Load(bad)
	require.Error(t, err)
}

func TestResolvePrecedence(t *testing.T) {
	t.Setenv("PINPOINT_LOG_LEVEL", "warn")
	t.Setenv("PINPOINT_WORKERS", "3")
	t.Setenv("PINPOINT_PROBE_TABLE", "/env/probes.csv")

	cfg := Config{LogLevel: "debug", Workers: 1, ProbeTable: "/file/probes.csv"}
	cfg.Resolve(Flags{LogLevel: "error"})

	assert.Equal(t, "error", cfg.LogLevel, "flag beats env beats file")
	assert.Equal(t, 3, cfg.Workers, "env beats file when no flag is set")
	assert.Equal(t, "/env/probes.csv", cfg.ProbeTable)
}

func TestResolveIgnoresBadEnvWorkers(t *testing.T) {
	t.Setenv("PINPOINT_WORKERS", "many")
	cfg := Config{Workers: 4}
	cfg.Resolve(Flags{})
	assert.Equal(t, 4, cfg.Workers)
}

func TestAssembleOptions(t *testing.T) {
	cfg := Config{PaddingUM: 10, TipDropUM: 20, ScaleDenominator: 50, DefaultSiteWidth: 12}
	opts := cfg.AssembleOptions()
	assert.Equal(t, 10.0, opts.Padding)
	assert.Equal(t, 20.0, opts.TipDrop)
	assert.Equal(t, 50.0, opts.Scale)
	assert.Equal(t, 12.0, opts.DefaultSiteWidth)
}
