package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 2500, cfg.ParticleCount)
	assert.Equal(t, float32(2), cfg.InitialBoxSize)
	assert.Equal(t, float32(2), cfg.InitialMaxSpeedComponent)
	assert.Equal(t, float32(1000), cfg.AnchorMass)
	assert.Equal(t, float32(45), cfg.FovYDegrees)
	assert.Equal(t, float32(0.1), cfg.Near)
	assert.Equal(t, float32(100), cfg.Far)
	assert.Equal(t, float32(1), cfg.MinZoom)
	assert.Equal(t, float32(20), cfg.MaxZoom)
}

func TestConfigValidate(t *testing.T) {
	cases := map[string]func(c *Config){
		"count":       func(c *Config) { c.ParticleCount = 1 },
		"box":         func(c *Config) { c.InitialBoxSize = 0 },
		"speed":       func(c *Config) { c.InitialMaxSpeedComponent = -1 },
		"seed mass":   func(c *Config) { c.MaxSeedMass = 0 },
		"anchor mass": func(c *Config) { c.AnchorMass = -5 },
		"fov":         func(c *Config) { c.FovYDegrees = 180 },
		"near far":    func(c *Config) { c.Near, c.Far = 10, 1 },
		"zoom":        func(c *Config) { c.MinZoom, c.MaxZoom = 20, 1 },
		"gravity":     func(c *Config) { c.Gravity = 0 },
		"softening":   func(c *Config) { c.Softening = 0 },
		"dt":          func(c *Config) { c.TimeStep = 0 },
		"bound":       func(c *Config) { c.BoundRadius = 0 },
		"point size":  func(c *Config) { c.PointSize = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "particles.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"particle_count": 4096, "anchor_mass": 500}`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 4096, cfg.ParticleCount)
	assert.Equal(t, float32(500), cfg.AnchorMass)
	assert.Equal(t, DefaultConfig().Softening, cfg.Softening)
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadConfig(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"particle_count": `), 0o644))
	_, err = LoadConfig(bad)
	assert.Error(t, err)

	invalid := filepath.Join(dir, "invalid.json")
	require.NoError(t, os.WriteFile(invalid, []byte(`{"near": 0}`), 0o644))
	_, err = LoadConfig(invalid)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
