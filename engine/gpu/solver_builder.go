package gpu

import "github.com/Carmen-Shannon/oxy-fluid/engine/mpm"

// SolverBuilderOption is a functional option for configuring a solver in NewSolver.
type SolverBuilderOption func(*solver)

// WithParams replaces the full numeric parameter set.
//
// Parameters:
//   - p: the parameter set (validated by NewSolver)
//
// Returns:
//   - SolverBuilderOption: option function to apply
func WithParams(p mpm.Params) SolverBuilderOption {
	return func(s *solver) {
		s.params = p
	}
}

// WithSubsteps sets the initial substep count. Values < 1 are ignored.
func WithSubsteps(n int) SolverBuilderOption {
	return func(s *solver) {
		if n >= 1 {
			s.substeps = n
		}
	}
}

// WithSpacing sets the seeding lattice spacing in cells.
func WithSpacing(spacing float32) SolverBuilderOption {
	return func(s *solver) {
		if spacing > 0 {
			s.spacing = spacing
		}
	}
}

// WithJitter sets the seeding jitter as a fraction of the spacing.
func WithJitter(jitter float32) SolverBuilderOption {
	return func(s *solver) {
		s.jitter = jitter
	}
}

// WithSeed sets the RNG seed used by Reset and AddSphere.
func WithSeed(seed uint64) SolverBuilderOption {
	return func(s *solver) {
		s.seed = seed
	}
}

// WithMaxBytes sets the device memory ceiling checked by NewSolver.
func WithMaxBytes(n int64) SolverBuilderOption {
	return func(s *solver) {
		if n > 0 {
			s.maxBytes = n
		}
	}
}
