package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-fluid/engine/boundary"
	"github.com/Carmen-Shannon/oxy-fluid/engine/mpm"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "cpu", cfg.Engine.Backend)
	assert.Equal(t, 10000, cfg.Inject.Count)
	assert.Equal(t, float32(5), cfg.Inject.Radius)
	assert.Equal(t, float32(0.5), cfg.Culling.Radius)
	assert.Equal(t, mpm.DefaultParams(), cfg.Params())

	axis, err := cfg.Axis()
	require.NoError(t, err)
	assert.Equal(t, boundary.AxisZ, axis)
}

func TestLoadOverridesOnlyGivenKeys(t *testing.T) {
	path := writeFile(t, `
simulation:
  initial_particles: 500
physics:
  gravity: [0, -1, 0]
boundary:
  axis: x
  amplitude: 0.3
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 500, cfg.Simulation.InitialParticles)
	assert.Equal(t, 120000, cfg.Simulation.Capacity)
	assert.Equal(t, [3]float32{0, -1, 0}, cfg.Physics.Gravity)
	assert.Equal(t, float32(10), cfg.Physics.Stiffness)
	assert.Equal(t, float32(0.3), cfg.Boundary.Amplitude)

	axis, err := cfg.Axis()
	require.NoError(t, err)
	assert.Equal(t, boundary.AxisX, axis)
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "initial above capacity", body: "simulation:\n  capacity: 10\n  initial_particles: 11\n"},
		{name: "zero substeps", body: "simulation:\n  substeps: 0\n"},
		{name: "too many substeps", body: "simulation:\n  substeps: 5\n"},
		{name: "flat box", body: "simulation:\n  box: [48, 1, 32]\n"},
		{name: "bad axis", body: "boundary:\n  axis: w\n"},
		{name: "bad backend", body: "engine:\n  backend: vulkan\n"},
		{name: "negative stiffness", body: "physics:\n  stiffness: -1\n"},
		{name: "malformed yaml", body: "simulation: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	cfg.Simulation.Seed = 42

	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, cfg.WriteYAML(path))

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}
