package mpm

import "errors"

var (
	// ErrAllocation is returned by NewSolver when the particle store or grid cannot be
	// allocated for the requested capacity and domain. It is fatal to the solver instance.
	ErrAllocation = errors.New("mpm: allocation failed")

	// ErrCapacityExceeded is returned by Reset when more particles are requested than the
	// store can hold. The solver state is left unchanged.
	ErrCapacityExceeded = errors.New("mpm: particle count exceeds capacity")

	// ErrPartialInsertion is returned by AddSphere when only part of the requested cluster
	// fits. The inserted count is still returned and the particles are live.
	ErrPartialInsertion = errors.New("mpm: partial insertion")

	// ErrInvalidSubsteps is returned by SetSubsteps for counts below one.
	ErrInvalidSubsteps = errors.New("mpm: substeps must be >= 1")

	// ErrDomainOutOfRange is returned when a domain extent is not positive or does not fit
	// inside the grid lattice allocated at construction.
	ErrDomainOutOfRange = errors.New("mpm: domain extent out of range")

	// ErrInvalidArgument is returned for malformed injection requests.
	ErrInvalidArgument = errors.New("mpm: invalid argument")
)
