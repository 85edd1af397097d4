// Package boundary drives the simulation domain over time. A Controller owns the
// authoritative domain extent and oscillates one axis (the moving wall) around its base
// size; the extent is pushed into the solver once per frame.
package boundary

import (
	"fmt"
	"math"

	"github.com/Carmen-Shannon/oxy-fluid/engine/mpm"
)

// Axis selects the domain axis the wall moves along.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

// Controller computes the domain extent each frame from a SimulationClock.
// It is not safe for concurrent use.
type Controller interface {
	// Advance moves the clock forward and recomputes the extent.
	//
	// Parameters:
	//   - dt: elapsed simulated time for this frame
	//
	// Returns:
	//   - [3]float32: the new domain extent
	Advance(dt float32) [3]float32

	// Extent returns the extent computed by the last Advance.
	//
	// Returns:
	//   - [3]float32: the current domain extent
	Extent() [3]float32

	// BaseExtent returns the extent at zero amplitude.
	//
	// Returns:
	//   - [3]float32: the base domain extent
	BaseExtent() [3]float32

	// MaxExtent returns the largest extent the controller can ever produce. The solver
	// lattice is sized from it.
	//
	// Returns:
	//   - [3]float32: the upper bound on Extent
	MaxExtent() [3]float32

	// Amplitude returns the wave amplitude.
	Amplitude() float32

	// SetAmplitude changes the wave amplitude from the next Advance onwards.
	//
	// Parameters:
	//   - a: relative oscillation amplitude (0 disables the wave)
	SetAmplitude(a float32)

	// SetPaused stops or resumes the wall.
	//
	// Parameters:
	//   - paused: true to freeze the wall at its current extent
	SetPaused(paused bool)

	// Reset rewinds the clock and restores the base extent.
	Reset()

	// Apply pushes the current extent into a solver.
	//
	// Parameters:
	//   - target: the solver (or any DomainSetter) to update
	//
	// Returns:
	//   - error: the setter's error, wrapped
	Apply(target mpm.DomainSetter) error
}

type controller struct {
	clock *SimulationClock

	base      [3]float32
	extent    [3]float32
	axis      Axis
	amplitude float32
	speed     float32
	minRatio  float32
	maxRatio  float32
	minExtent float32
}

var _ Controller = &controller{}

// NewController creates a controller whose wall rests at baseExtent.
//
// Parameters:
//   - baseExtent: the domain extent at zero amplitude
//   - options: functional options to configure the controller
//
// Returns:
//   - Controller: the new controller
func NewController(baseExtent [3]float32, options ...ControllerBuilderOption) Controller {
	c := &controller{
		base:      baseExtent,
		extent:    baseExtent,
		axis:      DefaultAxis,
		amplitude: 0,
		speed:     DefaultSpeed,
		minRatio:  DefaultMinRatio,
		maxRatio:  DefaultMaxRatio,
	}
	for _, option := range options {
		option(c)
	}
	c.clock = NewSimulationClock(float64(c.speed))
	c.extent = c.compute()
	return c
}

// compute returns the extent for the current clock phase.
func (c *controller) compute() [3]float32 {
	ratio := 1 + float32(math.Sin(c.clock.Phase()))*c.amplitude
	ratio = min(max(ratio, c.minRatio), c.maxRatio)

	e := c.base
	e[c.axis] = max(c.base[c.axis]*ratio, c.minExtent)
	return e
}

func (c *controller) Advance(dt float32) [3]float32 {
	c.clock.Advance(float64(dt))
	c.extent = c.compute()
	return c.extent
}

func (c *controller) Extent() [3]float32 {
	return c.extent
}

func (c *controller) BaseExtent() [3]float32 {
	return c.base
}

func (c *controller) MaxExtent() [3]float32 {
	e := c.base
	e[c.axis] = max(c.base[c.axis]*c.maxRatio, c.minExtent)
	return e
}

func (c *controller) Amplitude() float32 {
	return c.amplitude
}

func (c *controller) SetAmplitude(a float32) {
	c.amplitude = max(a, 0)
}

func (c *controller) SetPaused(paused bool) {
	c.clock.SetPaused(paused)
}

func (c *controller) Reset() {
	c.clock.Rewind()
	c.extent = c.compute()
}

func (c *controller) Apply(target mpm.DomainSetter) error {
	if err := target.ChangeDomain(c.extent); err != nil {
		return fmt.Errorf("boundary: apply extent %v: %w", c.extent, err)
	}
	return nil
}
