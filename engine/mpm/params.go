package mpm

import "fmt"

// Params are the numeric constants of the solver. All values are in world units, with
// time measured in simulation time units (not wall-clock seconds).
type Params struct {
	// TimeStep is the fixed dt of one substep.
	TimeStep float32
	// Gravity is the global acceleration applied to every grid node.
	Gravity [3]float32
	// Stiffness is the bulk modulus of the equation of state: pressure = Stiffness * (1 - J).
	Stiffness float32
	// Viscosity is the dynamic viscosity applied to the symmetric velocity gradient.
	Viscosity float32
	// RestDensity is the mass per unit volume of the seeded fluid.
	RestDensity float32
	// MinVolume and MaxVolume clamp J to keep compression and expansion bounded.
	MinVolume float32
	MaxVolume float32
}

// DefaultParams returns parameters that are stable for a unit cell size with up to four
// substeps per frame.
//
// Returns:
//   - Params: the default parameter set
func DefaultParams() Params {
	return Params{
		TimeStep:    0.1,
		Gravity:     [3]float32{0, -0.3, 0},
		Stiffness:   10,
		Viscosity:   0.05,
		RestDensity: 1,
		MinVolume:   0.6,
		MaxVolume:   1.4,
	}
}

// SettlingParams returns an overdamped parameter set for a fluid column released from rest
// onto the floor. The viscous term damps every compression mode of a column a few cells
// deep, so the mean height falls without rebounding.
//
// Returns:
//   - Params: the settling parameter set
func SettlingParams() Params {
	return Params{
		TimeStep:    0.01,
		Gravity:     [3]float32{0, -0.3, 0},
		Stiffness:   4,
		Viscosity:   6,
		RestDensity: 1,
		MinVolume:   0.6,
		MaxVolume:   1.4,
	}
}

// Validate checks the parameters for values the transfer kernels cannot handle.
//
// Returns:
//   - error: a description of the first invalid field, or nil
func (p Params) Validate() error {
	switch {
	case p.TimeStep < 0:
		return fmt.Errorf("mpm: time step must be >= 0, got %v", p.TimeStep)
	case p.Stiffness < 0:
		return fmt.Errorf("mpm: stiffness must be >= 0, got %v", p.Stiffness)
	case p.Viscosity < 0:
		return fmt.Errorf("mpm: viscosity must be >= 0, got %v", p.Viscosity)
	case p.RestDensity <= 0:
		return fmt.Errorf("mpm: rest density must be > 0, got %v", p.RestDensity)
	case p.MinVolume <= 0 || p.MaxVolume < p.MinVolume:
		return fmt.Errorf("mpm: volume clamp [%v, %v] is invalid", p.MinVolume, p.MaxVolume)
	}
	return nil
}
