package mpm

const (
	// DefaultSpacing is the seeding lattice spacing in cells (about six particles per cell).
	DefaultSpacing float32 = 0.55

	// DefaultJitter is the seeding jitter as a fraction of the spacing.
	DefaultJitter float32 = 0.2

	// DefaultSeed seeds the seeding and injection RNG.
	DefaultSeed uint64 = 1

	// DefaultMaxBytes is the memory ceiling for the particle store plus lattice.
	DefaultMaxBytes int64 = 4 << 30
)

// SolverBuilderOption is a functional option for configuring a solver in NewSolver.
type SolverBuilderOption func(*solver)

// WithParams replaces the full numeric parameter set.
//
// Parameters:
//   - p: the parameter set (validated by NewSolver)
//
// Returns:
//   - SolverBuilderOption: option function to apply
func WithParams(p Params) SolverBuilderOption {
	return func(s *solver) {
		s.params = p
	}
}

// WithTimeStep sets the fixed time step of one substep.
//
// Parameters:
//   - dt: time step in simulation time units
//
// Returns:
//   - SolverBuilderOption: option function to apply
func WithTimeStep(dt float32) SolverBuilderOption {
	return func(s *solver) {
		s.params.TimeStep = dt
	}
}

// WithGravity sets the global acceleration.
//
// Parameters:
//   - g: acceleration vector
//
// Returns:
//   - SolverBuilderOption: option function to apply
func WithGravity(g [3]float32) SolverBuilderOption {
	return func(s *solver) {
		s.params.Gravity = g
	}
}

// WithStiffness sets the bulk modulus of the equation of state.
//
// Parameters:
//   - k: stiffness
//
// Returns:
//   - SolverBuilderOption: option function to apply
func WithStiffness(k float32) SolverBuilderOption {
	return func(s *solver) {
		s.params.Stiffness = k
	}
}

// WithViscosity sets the dynamic viscosity.
//
// Parameters:
//   - mu: viscosity
//
// Returns:
//   - SolverBuilderOption: option function to apply
func WithViscosity(mu float32) SolverBuilderOption {
	return func(s *solver) {
		s.params.Viscosity = mu
	}
}

// WithSubsteps sets the initial substep count. Values < 1 are ignored.
//
// Parameters:
//   - n: substeps per Execute
//
// Returns:
//   - SolverBuilderOption: option function to apply
func WithSubsteps(n int) SolverBuilderOption {
	return func(s *solver) {
		if n >= 1 {
			s.substeps = n
		}
	}
}

// WithSpacing sets the seeding lattice spacing in cells. The spacing also fixes the rest
// volume, and therefore the mass, of every particle.
//
// Parameters:
//   - spacing: spacing in cells (> 0)
//
// Returns:
//   - SolverBuilderOption: option function to apply
func WithSpacing(spacing float32) SolverBuilderOption {
	return func(s *solver) {
		if spacing > 0 {
			s.spacing = spacing
		}
	}
}

// WithJitter sets the seeding jitter as a fraction of the spacing.
//
// Parameters:
//   - jitter: jitter fraction in [0, 1]
//
// Returns:
//   - SolverBuilderOption: option function to apply
func WithJitter(jitter float32) SolverBuilderOption {
	return func(s *solver) {
		s.jitter = jitter
	}
}

// WithSeed sets the RNG seed used by Reset and AddSphere.
//
// Parameters:
//   - seed: RNG seed
//
// Returns:
//   - SolverBuilderOption: option function to apply
func WithSeed(seed uint64) SolverBuilderOption {
	return func(s *solver) {
		s.seed = seed
	}
}

// WithMaxBytes sets the memory ceiling checked by NewSolver.
//
// Parameters:
//   - n: maximum bytes for the store and lattice
//
// Returns:
//   - SolverBuilderOption: option function to apply
func WithMaxBytes(n int64) SolverBuilderOption {
	return func(s *solver) {
		if n > 0 {
			s.maxBytes = n
		}
	}
}
