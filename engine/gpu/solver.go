package gpu

import (
	"fmt"
	"log"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Carmen-Shannon/oxy-fluid/common"
	"github.com/Carmen-Shannon/oxy-fluid/engine/compute"
	"github.com/Carmen-Shannon/oxy-fluid/engine/mpm"
)

// maxBufferSize is the smallest maxStorageBufferBindingSize a WebGPU adapter may report.
const maxBufferSize = 128 << 20

// Solver is the WebGPU implementation of mpm.Solver. Particle state lives in device
// buffers; Particles and PosVel read it back on demand.
type Solver interface {
	mpm.Solver

	// ParticleBuffer returns the device buffer holding the particle store, for passes that
	// read particles without a host round trip.
	//
	// Returns:
	//   - *wgpu.Buffer: the particle storage buffer
	ParticleBuffer() *wgpu.Buffer

	// Release frees the solver's buffers and pipelines.
	Release()
}

type solver struct {
	dev   Device
	arena *mpm.Arena

	cellSize float32
	dims     [3]int
	lattice  [3]float32
	domain   [3]float32
	substeps int
	params   mpm.Params

	spacing  float32
	jitter   float32
	seed     uint64
	maxBytes int64

	paramsBuf    *wgpu.Buffer
	particleBuf  *wgpu.Buffer
	posVelBuf    *wgpu.Buffer
	accumBuf     *wgpu.Buffer
	velocityBuf  *wgpu.Buffer
	clearKernel  *Kernel
	p2gKernel    *Kernel
	gridKernel   *Kernel
	g2pKernel    *Kernel
	copyKernel   *Kernel
	readbackPart []mpm.Particle
	readbackPV   []mpm.PosVel

	clearGrid bool
}

var _ Solver = &solver{}

// NewSolver allocates the particle store and lattice on the device and builds the
// transfer pipelines.
//
// Parameters:
//   - dev: the WebGPU device
//   - capacity: fixed particle capacity (> 0)
//   - cellSize: lattice spacing in world units (> 0)
//   - domainExtent: largest domain the lattice must cover; also the initial domain
//   - options: functional options for parameters, seeding and memory limits
//
// Returns:
//   - Solver: the new solver with no live particles
//   - error: mpm.ErrAllocation (wrapped) if a buffer or pipeline cannot be created
func NewSolver(dev Device, capacity int, cellSize float32, domainExtent [3]float32, options ...SolverBuilderOption) (Solver, error) {
	s := &solver{
		dev:      dev,
		cellSize: cellSize,
		domain:   domainExtent,
		substeps: 1,
		params:   mpm.DefaultParams(),
		spacing:  mpm.DefaultSpacing,
		jitter:   mpm.DefaultJitter,
		seed:     mpm.DefaultSeed,
		maxBytes: mpm.DefaultMaxBytes,
	}
	for _, opt := range options {
		opt(s)
	}

	if capacity <= 0 {
		return nil, fmt.Errorf("%w: capacity %d", mpm.ErrAllocation, capacity)
	}
	if !(cellSize > 0) {
		return nil, fmt.Errorf("%w: cell size %v", mpm.ErrAllocation, cellSize)
	}
	for d := 0; d < 3; d++ {
		if !(domainExtent[d] >= 2*cellSize) {
			return nil, fmt.Errorf("%w: domain extent %v", mpm.ErrAllocation, domainExtent)
		}
	}
	if err := s.params.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", mpm.ErrAllocation, err)
	}

	s.dims = mpm.LatticeDims(domainExtent, cellSize)
	nodes := uint64(s.dims[0]) * uint64(s.dims[1]) * uint64(s.dims[2])
	particleBytes := uint64(capacity) * uint64(mpm.ParticleSize)
	posVelBytes := uint64(capacity) * uint64(mpm.PosVelSize)
	accumBytes := nodes * 16
	velocityBytes := nodes * 16

	need := int64(particleBytes + posVelBytes + accumBytes + velocityBytes)
	if need > s.maxBytes {
		return nil, fmt.Errorf("%w: need %d bytes, limit %d", mpm.ErrAllocation, need, s.maxBytes)
	}
	for _, n := range []uint64{particleBytes, posVelBytes, accumBytes, velocityBytes} {
		if n > maxBufferSize {
			return nil, fmt.Errorf("%w: buffer of %d bytes exceeds the %d byte binding limit",
				mpm.ErrAllocation, n, maxBufferSize)
		}
	}
	for d := 0; d < 3; d++ {
		if s.dims[d] < 3 {
			return nil, fmt.Errorf("%w: lattice axis %d has %d nodes", mpm.ErrAllocation, d, s.dims[d])
		}
		s.lattice[d] = float32(s.dims[d]-1) * cellSize
	}

	if err := s.createResources(particleBytes, posVelBytes, accumBytes, velocityBytes); err != nil {
		s.Release()
		return nil, fmt.Errorf("%w: %v", mpm.ErrAllocation, err)
	}
	s.arena = mpm.NewArena(capacity, cellSize, s.spacing, s.jitter, s.seed)
	s.readbackPart = make([]mpm.Particle, 0, capacity)
	s.readbackPV = make([]mpm.PosVel, 0, capacity)

	log.Printf("[GPU] solver allocated %d particle slots, lattice %dx%dx%d (%.1f MB)",
		capacity, s.dims[0], s.dims[1], s.dims[2], float64(need)/1024/1024)
	return s, nil
}

func (s *solver) createResources(particleBytes, posVelBytes, accumBytes, velocityBytes uint64) error {
	storage := wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst | wgpu.BufferUsageCopySrc

	var err error
	if s.paramsBuf, err = s.dev.CreateBuffer("mpm.params", simParamsSize, wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst); err != nil {
		return err
	}
	if s.particleBuf, err = s.dev.CreateBuffer("mpm.particles", particleBytes, storage); err != nil {
		return err
	}
	if s.posVelBuf, err = s.dev.CreateBuffer("mpm.posvel", posVelBytes, storage); err != nil {
		return err
	}
	if s.accumBuf, err = s.dev.CreateBuffer("mpm.accum", accumBytes, storage); err != nil {
		return err
	}
	if s.velocityBuf, err = s.dev.CreateBuffer("mpm.velocity", velocityBytes, storage); err != nil {
		return err
	}

	kernels := []struct {
		shader  string
		target  **Kernel
		buffers []*wgpu.Buffer
	}{
		{shaderClearGrid, &s.clearKernel, []*wgpu.Buffer{s.paramsBuf, s.accumBuf, s.velocityBuf}},
		{shaderP2G, &s.p2gKernel, []*wgpu.Buffer{s.paramsBuf, s.particleBuf, s.accumBuf}},
		{shaderUpdateGrid, &s.gridKernel, []*wgpu.Buffer{s.paramsBuf, s.accumBuf, s.velocityBuf}},
		{shaderG2P, &s.g2pKernel, []*wgpu.Buffer{s.paramsBuf, s.particleBuf, s.velocityBuf}},
		{shaderCopyPosition, &s.copyKernel, []*wgpu.Buffer{s.paramsBuf, s.particleBuf, s.posVelBuf}},
	}
	for _, k := range kernels {
		cs, err := LoadComputeShader(k.shader)
		if err != nil {
			return err
		}
		if *k.target, err = s.dev.NewKernel(cs, k.buffers...); err != nil {
			return err
		}
	}
	return nil
}

func (s *solver) Release() {
	for _, k := range []*Kernel{s.clearKernel, s.p2gKernel, s.gridKernel, s.g2pKernel, s.copyKernel} {
		if k != nil {
			k.Release()
		}
	}
	for _, b := range []*wgpu.Buffer{s.paramsBuf, s.particleBuf, s.posVelBuf, s.accumBuf, s.velocityBuf} {
		if b != nil {
			b.Release()
		}
	}
}

func (s *solver) ParticleBuffer() *wgpu.Buffer {
	return s.particleBuf
}

func (s *solver) nodeCount() int {
	return s.dims[0] * s.dims[1] * s.dims[2]
}

func (s *solver) validateDomain(extent [3]float32) error {
	for d := 0; d < 3; d++ {
		if !(extent[d] >= 2*s.cellSize) || extent[d] > s.lattice[d]+1e-4*s.cellSize {
			return fmt.Errorf("%w: %v (lattice %v)", mpm.ErrDomainOutOfRange, extent, s.lattice)
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
		return fmt.Errorf("%w: got %d", mpm.ErrInvalidSubsteps, n)
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

func (s *solver) Params() mpm.Params {
	return s.params
}

func (s *solver) SetParams(p mpm.Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.params = p
	return nil
}

func (s *solver) ParticleMass() float32 {
	return s.params.RestDensity * mpm.ParticleVolume(s.spacing, s.cellSize)
}

// Particles reads the live slots back from the device. Pending uploads that have not been
// recorded yet are not included.
func (s *solver) Particles() []mpm.Particle {
	live := s.arena.Live()
	s.readbackPart = s.readbackPart[:0]
	if live == 0 {
		return s.readbackPart
	}
	b, err := s.dev.Read(s.particleBuf, uint64(live*mpm.ParticleSize))
	if err != nil {
		log.Printf("[GPU] readback failed: %v", err)
		return s.readbackPart
	}
	s.readbackPart = append(s.readbackPart, common.BytesToSlice[mpm.Particle](b)...)
	return s.readbackPart
}

func (s *solver) PosVel() []mpm.PosVel {
	live := s.arena.Live()
	s.readbackPV = s.readbackPV[:0]
	if live == 0 {
		return s.readbackPV
	}
	b, err := s.dev.Read(s.posVelBuf, uint64(live*mpm.PosVelSize))
	if err != nil {
		log.Printf("[GPU] readback failed: %v", err)
		return s.readbackPV
	}
	s.readbackPV = append(s.readbackPV, common.BytesToSlice[mpm.PosVel](b)...)
	return s.readbackPV
}

// batch unwraps b and checks that it was created by this solver's device.
func (s *solver) batch(b compute.Batch) (*Batch, error) {
	gb, err := AsBatch(b)
	if err != nil {
		return nil, err
	}
	if Device(gb.device) != s.dev {
		return nil, fmt.Errorf("%w: batch %q", compute.ErrForeignBatch, gb.label)
	}
	return gb, nil
}

func (s *solver) Sync(batch compute.Batch) error {
	gb, err := s.batch(batch)
	if err != nil {
		return err
	}
	s.writeParams()
	return s.recordUploads(gb)
}

// Execute writes the uniform block at record time, so every Execute recorded into the same
// batch runs with the parameters of the last one.
func (s *solver) Execute(batch compute.Batch) error {
	gb, err := s.batch(batch)
	if err != nil {
		return err
	}
	s.writeParams()
	if err := s.recordUploads(gb); err != nil {
		return err
	}

	live := s.arena.Live()
	nodes := s.nodeCount()
	for step := 0; step < s.substeps; step++ {
		for _, p := range []struct {
			k *Kernel
			n int
		}{
			{s.clearKernel, nodes},
			{s.p2gKernel, live},
			{s.gridKernel, nodes},
			{s.g2pKernel, live},
		} {
			if err := gb.Dispatch(p.k, p.n); err != nil {
				return err
			}
		}
	}
	return gb.Dispatch(s.copyKernel, live)
}

// recordUploads writes staged particles through the queue, which orders them ahead of the
// batch, and clears the lattice after a reset.
func (s *solver) recordUploads(gb *Batch) error {
	if gb.submitted {
		return compute.ErrBatchSubmitted
	}
	if s.clearGrid {
		if err := gb.Dispatch(s.clearKernel, s.nodeCount()); err != nil {
			return err
		}
		s.clearGrid = false
	}
	if !s.arena.Pending() {
		return nil
	}
	for _, up := range s.arena.TakePending() {
		s.dev.Write(s.particleBuf, uint64(up.First*mpm.ParticleSize), common.SliceToBytes(up.Data))
		gb.passes++
	}
	return nil
}

func (s *solver) writeParams() {
	p := s.params
	k := mpm.NewCoefficients(p, s.cellSize, mpm.ParticleVolume(s.spacing, s.cellSize))
	lo, hi := mpm.Interior(s.domain, s.cellSize)
	inv := 1 / s.cellSize

	u := gpuSimParams{
		Dims:    [4]uint32{uint32(s.dims[0]), uint32(s.dims[1]), uint32(s.dims[2]), uint32(s.arena.Live())},
		Extent:  [4]float32{s.domain[0] * inv, s.domain[1] * inv, s.domain[2] * inv, p.TimeStep},
		Lo:      [4]float32{lo[0], lo[1], lo[2], s.cellSize},
		Hi:      [4]float32{hi[0], hi[1], hi[2], inv},
		Gravity: [4]float32{p.Gravity[0], p.Gravity[1], p.Gravity[2], k.Mass},
		Coef:    [4]float32{k.Pressure, k.Viscosity, k.APIC, gpuFixedPointScale},
		Limits:  [4]float32{p.MinVolume, p.MaxVolume, mpm.MinNodeMass, mpm.BoundaryBand},
	}
	s.dev.Write(s.paramsBuf, 0, common.StructToBytes(&u))
}
