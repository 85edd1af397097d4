// Package config loads the simulator configuration from YAML, layered over embedded defaults.
package config

import (
	_ "embed"
	"fmt"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Carmen-Shannon/oxy-fluid/engine/boundary"
	"github.com/Carmen-Shannon/oxy-fluid/engine/mpm"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds every tunable of the simulator.
type Config struct {
	Window     WindowConfig     `yaml:"window"`
	Engine     EngineConfig     `yaml:"engine"`
	Simulation SimulationConfig `yaml:"simulation"`
	Physics    PhysicsConfig    `yaml:"physics"`
	Boundary   BoundaryConfig   `yaml:"boundary"`
	Inject     InjectConfig     `yaml:"inject"`
	Culling    CullingConfig    `yaml:"culling"`
	Camera     CameraConfig     `yaml:"camera"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Profiler   ProfilerConfig   `yaml:"profiler"`
}

// WindowConfig holds the control window settings.
type WindowConfig struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Title  string `yaml:"title"`
}

// EngineConfig selects the compute backend and frame pacing.
type EngineConfig struct {
	Backend   string  `yaml:"backend"`
	FrameTime float32 `yaml:"frame_time"`
	Frames    int     `yaml:"frames"`
	Workers   int     `yaml:"workers"`
	ChunkSize int     `yaml:"chunk_size"`
}

// SimulationConfig sizes the particle store and lattice.
type SimulationConfig struct {
	Capacity         int        `yaml:"capacity"`
	InitialParticles int        `yaml:"initial_particles"`
	CellSize         float32    `yaml:"cell_size"`
	Box              [3]float32 `yaml:"box"`
	Substeps         int        `yaml:"substeps"`
	Spacing          float32    `yaml:"spacing"`
	Jitter           float32    `yaml:"jitter"`
	Seed             uint64     `yaml:"seed"`
	MaxBytes         int64      `yaml:"max_bytes"`
}

// PhysicsConfig mirrors mpm.Params.
type PhysicsConfig struct {
	TimeStep    float32    `yaml:"time_step"`
	Gravity     [3]float32 `yaml:"gravity"`
	Stiffness   float32    `yaml:"stiffness"`
	Viscosity   float32    `yaml:"viscosity"`
	RestDensity float32    `yaml:"rest_density"`
	MinVolume   float32    `yaml:"min_volume"`
	MaxVolume   float32    `yaml:"max_volume"`
}

// BoundaryConfig configures the moving wall.
type BoundaryConfig struct {
	Axis      string  `yaml:"axis"`
	Amplitude float32 `yaml:"amplitude"`
	Speed     float32 `yaml:"speed"`
	MinRatio  float32 `yaml:"min_ratio"`
	MaxRatio  float32 `yaml:"max_ratio"`
}

// InjectConfig is the sphere dropped by the inject control.
type InjectConfig struct {
	Count  int     `yaml:"count"`
	Radius float32 `yaml:"radius"`
}

// CullingConfig configures the visibility pass.
type CullingConfig struct {
	Enabled bool    `yaml:"enabled"`
	Radius  float32 `yaml:"radius"`
}

// CameraConfig places the orbit camera.
type CameraConfig struct {
	Radius     float32 `yaml:"radius"`
	Azimuth    float32 `yaml:"azimuth"`
	Elevation  float32 `yaml:"elevation"`
	FovDegrees float32 `yaml:"fov_degrees"`
}

// TelemetryConfig controls the CSV frame log.
type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Interval int    `yaml:"interval"`
	File     string `yaml:"file"`
}

// ProfilerConfig controls the periodic FPS and memory log.
type ProfilerConfig struct {
	Enabled         bool    `yaml:"enabled"`
	IntervalSeconds float64 `yaml:"interval_seconds"`
}

// Load reads configuration from a YAML file layered over the embedded defaults.
// If path is empty only the defaults are used.
//
// Parameters:
//   - path: optional YAML file path
//
// Returns:
//   - *Config: the merged, validated configuration
//   - error: read, parse or validation failure
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values the rest of the program cannot recover from.
//
// Returns:
//   - error: the first invalid setting, or nil
func (c *Config) Validate() error {
	s := c.Simulation
	switch {
	case s.Capacity <= 0:
		return fmt.Errorf("config: simulation.capacity must be > 0, got %d", s.Capacity)
	case s.InitialParticles < 0 || s.InitialParticles > s.Capacity:
		return fmt.Errorf("config: simulation.initial_particles %d outside [0, %d]", s.InitialParticles, s.Capacity)
	case !(s.CellSize > 0):
		return fmt.Errorf("config: simulation.cell_size must be > 0, got %v", s.CellSize)
	case s.Substeps < 1 || s.Substeps > 4:
		return fmt.Errorf("config: simulation.substeps must be in [1, 4], got %d", s.Substeps)
	}
	for d, v := range s.Box {
		if !(v >= 3*s.CellSize) {
			return fmt.Errorf("config: simulation.box[%d] must be at least three cells, got %v", d, v)
		}
	}
	if _, err := c.Axis(); err != nil {
		return err
	}
	switch c.Engine.Backend {
	case "cpu", "webgpu":
	default:
		return fmt.Errorf("config: engine.backend must be cpu or webgpu, got %q", c.Engine.Backend)
	}
	if err := c.Params().Validate(); err != nil {
		return fmt.Errorf("config: physics: %w", err)
	}
	return nil
}

// Params converts the physics section to solver parameters.
//
// Returns:
//   - mpm.Params: the solver parameter set
func (c *Config) Params() mpm.Params {
	p := c.Physics
	return mpm.Params{
		TimeStep:    p.TimeStep,
		Gravity:     p.Gravity,
		Stiffness:   p.Stiffness,
		Viscosity:   p.Viscosity,
		RestDensity: p.RestDensity,
		MinVolume:   p.MinVolume,
		MaxVolume:   p.MaxVolume,
	}
}

// Axis parses the moving wall axis.
//
// Returns:
//   - boundary.Axis: the parsed axis
//   - error: if the axis name is not x, y or z
func (c *Config) Axis() (boundary.Axis, error) {
	switch strings.ToLower(c.Boundary.Axis) {
	case "x":
		return boundary.AxisX, nil
	case "y":
		return boundary.AxisY, nil
	case "z", "":
		return boundary.AxisZ, nil
	}
	return 0, fmt.Errorf("config: boundary.axis must be x, y or z, got %q", c.Boundary.Axis)
}

// Fov returns the camera field of view in radians.
func (c *Config) Fov() float32 {
	return c.Camera.FovDegrees * math.Pi / 180
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
