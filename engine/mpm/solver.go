// Package mpm implements a Moving-Least-Squares Material Point Method fluid solver.
// Each substep scatters particle mass and momentum onto a lattice (P2G), integrates forces
// and wall constraints on the lattice, and gathers velocities back to the particles (G2P).
// All stages are recorded as passes on a compute.Batch and run when the batch is submitted.
package mpm

import (
	"fmt"
	"log"

	"github.com/Carmen-Shannon/oxy-fluid/engine/compute"
)

// DomainSetter is the part of a solver that a boundary controller drives.
type DomainSetter interface {
	// ChangeDomain sets the domain extent used from the next Execute onwards.
	//
	// Parameters:
	//   - extent: new domain extent in world units
	//
	// Returns:
	//   - error: ErrDomainOutOfRange if the extent does not fit the lattice
	ChangeDomain(extent [3]float32) error
}

// Solver is the MLS-MPM fluid solver. It owns the particle store and the grid workspace.
// Host-side methods are not safe for concurrent use; they must be called from the single
// thread that records and submits batches.
type Solver interface {
	DomainSetter

	// Reset reseeds the first particleCount slots on a deterministic jittered lattice inside
	// domainExtent and makes them the only live particles. The seeded state is uploaded as
	// the first pass of the next recorded batch.
	//
	// Parameters:
	//   - particleCount: number of particles to seed
	//   - domainExtent: domain extent to seed into (also becomes the current domain)
	//
	// Returns:
	//   - error: ErrCapacityExceeded or ErrDomainOutOfRange; the solver is unchanged on error
	Reset(particleCount int, domainExtent [3]float32) error

	// SetSubsteps sets the number of P2G/grid/G2P cycles recorded per Execute.
	//
	// Parameters:
	//   - n: substep count (>= 1)
	//
	// Returns:
	//   - error: ErrInvalidSubsteps if n < 1
	SetSubsteps(n int) error

	// Substeps returns the configured substep count.
	//
	// Returns:
	//   - int: substeps per Execute
	Substeps() int

	// Domain returns the domain extent that the next Execute will use.
	//
	// Returns:
	//   - [3]float32: domain extent in world units
	Domain() [3]float32

	// LatticeExtent returns the largest domain the grid can represent.
	//
	// Returns:
	//   - [3]float32: lattice extent in world units
	LatticeExtent() [3]float32

	// Execute records pending uploads followed by Substeps() cycles of grid clear, P2G, grid
	// update and G2P, then the presentation copy pass. It does not block; particle data is
	// updated when the batch is submitted and completes.
	//
	// Parameters:
	//   - batch: a host batch to record into
	//
	// Returns:
	//   - error: compute.ErrForeignBatch or compute.ErrBatchSubmitted
	Execute(batch compute.Batch) error

	// Sync records only the pending uploads (seeding and injection) into the batch.
	//
	// Parameters:
	//   - batch: a host batch to record into
	//
	// Returns:
	//   - error: compute.ErrForeignBatch or compute.ErrBatchSubmitted
	Sync(batch compute.Batch) error

	// AddSphere appends up to count particles jittered inside a sphere, clamped to the
	// remaining capacity.
	//
	// Parameters:
	//   - center: sphere center in world units
	//   - radius: sphere radius in world units
	//   - count: requested particle count
	//
	// Returns:
	//   - int: number of particles actually inserted
	//   - error: ErrPartialInsertion when clamped, ErrInvalidArgument for malformed requests
	AddSphere(center [3]float32, radius float32, count int) (int, error)

	// LiveCount returns the number of active particles.
	//
	// Returns:
	//   - int: live particle count
	LiveCount() int

	// Capacity returns the fixed particle capacity.
	//
	// Returns:
	//   - int: capacity
	Capacity() int

	// Particles returns the live slots of the particle store. The contents are only
	// consistent once the last submitted batch has completed.
	//
	// Returns:
	//   - []Particle: the live particles (shared, read-only for callers)
	Particles() []Particle

	// PosVel returns the presentation view written by the last completed copy pass.
	//
	// Returns:
	//   - []PosVel: one record per live particle (shared, read-only for callers)
	PosVel() []PosVel

	// Params returns the current numeric parameters.
	//
	// Returns:
	//   - Params: the parameter set
	Params() Params

	// SetParams replaces the numeric parameters from the next Execute onwards.
	//
	// Parameters:
	//   - p: the new parameter set
	//
	// Returns:
	//   - error: validation error, parameters unchanged
	SetParams(p Params) error

	// ParticleMass returns the mass carried by every particle.
	//
	// Returns:
	//   - float32: per-particle mass
	ParticleMass() float32
}

// solver is the host implementation of Solver.
type solver struct {
	arena *Arena

	particles []Particle
	posVel    []PosVel
	grid      *Grid

	cellSize float32
	lattice  [3]float32
	domain   [3]float32
	substeps int
	params   Params

	spacing  float32
	jitter   float32
	seed     uint64
	maxBytes int64

	clearGrid bool
}

var _ Solver = &solver{}

// NewSolver allocates the particle store and grid workspace.
//
// Parameters:
//   - capacity: fixed particle capacity (> 0)
//   - cellSize: lattice spacing in world units (> 0)
//   - domainExtent: largest domain the lattice must cover; also the initial domain
//   - options: functional options for parameters, seeding and memory limits
//
// Returns:
//   - Solver: the new solver with no live particles
//   - error: ErrAllocation (wrapped) if the store or lattice cannot be allocated
func NewSolver(capacity int, cellSize float32, domainExtent [3]float32, options ...SolverBuilderOption) (Solver, error) {
	s := &solver{
		cellSize: cellSize,
		domain:   domainExtent,
		substeps: 1,
		params:   DefaultParams(),
		spacing:  DefaultSpacing,
		jitter:   DefaultJitter,
		seed:     DefaultSeed,
		maxBytes: DefaultMaxBytes,
	}

	for _, opt := range options {
		opt(s)
	}

	if capacity <= 0 {
		return nil, fmt.Errorf("%w: capacity %d", ErrAllocation, capacity)
	}
	if !(cellSize > 0) {
		return nil, fmt.Errorf("%w: cell size %v", ErrAllocation, cellSize)
	}
	for d := 0; d < 3; d++ {
		if !(domainExtent[d] >= 2*cellSize) {
			return nil, fmt.Errorf("%w: domain extent %v", ErrAllocation, domainExtent)
		}
	}
	if err := s.params.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAllocation, err)
	}

	dims := LatticeDims(domainExtent, cellSize)
	need := int64(capacity)*int64(ParticleSize+PosVelSize) + gridBytes(dims)
	if need > s.maxBytes {
		return nil, fmt.Errorf("%w: need %d bytes, limit %d", ErrAllocation, need, s.maxBytes)
	}

	if err := s.allocate(capacity, domainExtent); err != nil {
		return nil, err
	}
	for d := 0; d < 3; d++ {
		s.lattice[d] = float32(dims[d]-1) * cellSize
	}
	s.arena = NewArena(capacity, cellSize, s.spacing, s.jitter, s.seed)

	log.Printf("[Solver] allocated %d particle slots, lattice %dx%dx%d (%.1f MB)",
		capacity, dims[0], dims[1], dims[2], float64(need)/1024/1024)

	return s, nil
}

// allocate creates the store and grid, converting an allocation panic into ErrAllocation.
func (s *solver) allocate(capacity int, extent [3]float32) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrAllocation, r)
		}
	}()

	s.particles = make([]Particle, capacity)
	s.posVel = make([]PosVel, capacity)
	s.grid, err = newGrid(extent, s.cellSize)
	return err
}

// validateDomain checks an extent against the lattice.
func (s *solver) validateDomain(extent [3]float32) error {
	for d := 0; d < 3; d++ {
		if !(extent[d] >= 2*s.cellSize) || extent[d] > s.lattice[d]+1e-4*s.cellSize {
			return fmt.Errorf("%w: %v (lattice %v)", ErrDomainOutOfRange, extent, s.lattice)
		}
	}
	return nil
}

func (s *solver) Reset(particleCount int, domainExtent [3]float32) error {
	if err := s.validateDomain(domainExtent); err != nil {
		return err
	}
	if err := s.arena.Reset(particleCount, domainExtent); err != nil {
		return err
	}
	s.domain = domainExtent
	s.clearGrid = true
	return nil
}

func (s *solver) SetSubsteps(n int) error {
	if n < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidSubsteps, n)
	}
	s.substeps = n
	return nil
}

func (s *solver) Substeps() int {
	return s.substeps
}

func (s *solver) ChangeDomain(extent [3]float32) error {
	if err := s.validateDomain(extent); err != nil {
		return err
	}
	s.domain = extent
	return nil
}

func (s *solver) Domain() [3]float32 {
	return s.domain
}

func (s *solver) LatticeExtent() [3]float32 {
	return s.lattice
}

func (s *solver) AddSphere(center [3]float32, radius float32, count int) (int, error) {
	return s.arena.AddSphere(center, radius, count, s.domain)
}

func (s *solver) LiveCount() int {
	return s.arena.Live()
}

func (s *solver) Capacity() int {
	return s.arena.Capacity()
}

func (s *solver) Particles() []Particle {
	return s.particles[:s.arena.Live()]
}

func (s *solver) PosVel() []PosVel {
	return s.posVel[:s.arena.Live()]
}

func (s *solver) Params() Params {
	return s.params
}

func (s *solver) SetParams(p Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.params = p
	return nil
}

func (s *solver) ParticleMass() float32 {
	return s.params.RestDensity * s.particleVolume()
}

// particleVolume is the rest volume represented by one particle.
func (s *solver) particleVolume() float32 {
	return ParticleVolume(s.spacing, s.cellSize)
}

func (s *solver) Sync(batch compute.Batch) error {
	hb, err := compute.AsHostBatch(batch)
	if err != nil {
		return err
	}
	return s.recordUploads(hb)
}

func (s *solver) Execute(batch compute.Batch) error {
	hb, err := compute.AsHostBatch(batch)
	if err != nil {
		return err
	}
	if err := s.recordUploads(hb); err != nil {
		return err
	}

	f := s.frame()
	cells := s.grid.Cells()
	for step := 0; step < s.substeps; step++ {
		if err := dispatchAll(hb,
			compute.Pass{Label: "mpm.clear_grid", Invocations: cells, Kernel: s.clearKernel()},
			compute.Pass{Label: "mpm.p2g", Invocations: f.live, Kernel: s.p2gKernel(f)},
			compute.Pass{Label: "mpm.update_grid", Invocations: cells, Kernel: s.gridKernel(f)},
			compute.Pass{Label: "mpm.g2p", Invocations: f.live, Kernel: s.g2pKernel(f)},
		); err != nil {
			return err
		}
	}
	return hb.Dispatch("mpm.copy_position", f.live, s.copyKernel())
}

// recordUploads moves staged seeding and injection data into the store, in staging order,
// ahead of any simulation pass of the same batch.
func (s *solver) recordUploads(hb *compute.HostBatch) error {
	if s.clearGrid {
		if err := hb.Dispatch("mpm.clear_grid", s.grid.Cells(), s.clearKernel()); err != nil {
			return err
		}
		s.clearGrid = false
	}
	if !s.arena.Pending() {
		return nil
	}
	for _, up := range s.arena.TakePending() {
		if err := hb.Dispatch("mpm.upload", len(up.Data), s.uploadKernel(up)); err != nil {
			return err
		}
	}
	return nil
}

func dispatchAll(hb *compute.HostBatch, passes ...compute.Pass) error {
	for _, p := range passes {
		if err := hb.Dispatch(p.Label, p.Invocations, p.Kernel); err != nil {
			return err
		}
	}
	return nil
}
