package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinPixelsConversion(t *testing.T) {
	cfg := Default()
	cfg.Bin.MMWidth = 210
	cfg.Bin.MMHeight = 297
	cfg.Bin.DPI = 300

	w, h := cfg.BinPixels()
	assert.InDelta(t, 210*300/25.4, w, 1e-6)
	assert.InDelta(t, 297*300/25.4, h, 1e-6)
}

func TestOutsetDistanceCombinesMarginAndPadding(t *testing.T) {
	cfg := Default()
	cfg.Margins.MarginPx = 5
	cfg.Margins.PaddingPx = 3
	assert.Equal(t, 8, cfg.OutsetDistance())
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Algorithm.PopulationSize, cfg.Algorithm.PopulationSize)
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nest.yaml")
	require.NoError(t, os.WriteFile(path, []byte("algorithm:\n  population_size: 50\n  rotations: 8\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Algorithm.PopulationSize)
	assert.Equal(t, 8, cfg.Algorithm.Rotations)
}

func TestEnvOverridesWin(t *testing.T) {
	t.Setenv("NEST_N_WORKERS", "16")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.Algorithm.NWorkers)
}
