package gpu

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-fluid/common"
	"github.com/Carmen-Shannon/oxy-fluid/engine/compute"
	"github.com/Carmen-Shannon/oxy-fluid/engine/mpm"
)

func TestUniformLayoutsMatchShaders(t *testing.T) {
	assert.Equal(t, uint64(112), simParamsSize)
	assert.Equal(t, uint64(112), cullParamsSize)
	assert.Equal(t, uintptr(96), unsafe.Offsetof(gpuCullParams{}.Count))
	assert.Equal(t, 80, mpm.ParticleSize)
	assert.Equal(t, 32, mpm.PosVelSize)
}

func TestNewCullParamsPacksPlanes(t *testing.T) {
	f := common.ExtractFrustumFromMatrix(common.Identity())

	p := newCullParams(f, 42, 0.75)
	assert.Equal(t, uint32(42), p.Count)
	assert.Equal(t, float32(0.75), p.Radius)
	for i, pl := range f.Planes {
		assert.Equal(t, [4]float32{pl.Normal[0], pl.Normal[1], pl.Normal[2], pl.Distance}, p.Planes[i])
	}
}

func TestAsBatchRejectsHostBatch(t *testing.T) {
	dev := compute.NewHostDevice()
	defer dev.Close()

	_, err := AsBatch(dev.NewBatch("host"))
	assert.ErrorIs(t, err, compute.ErrForeignBatch)
}

// newTestDevice opens the software adapter, skipping when the machine has no WebGPU driver.
func newTestDevice(t *testing.T) Device {
	t.Helper()
	if testing.Short() {
		t.Skip("device tests disabled in short mode")
	}
	dev, err := NewDevice(WithForceFallbackAdapter(true), WithLabel("test"))
	if err != nil {
		t.Skipf("no WebGPU adapter: %v", err)
	}
	t.Cleanup(dev.Close)
	return dev
}

func submit(t *testing.T, dev Device, record func(compute.Batch) error) {
	t.Helper()
	b := dev.NewBatch("test")
	require.NoError(t, record(b))
	tok, err := dev.Submit(b)
	require.NoError(t, err)
	require.NoError(t, tok.Wait())
}

func TestSolverSeedsLikeHostSolver(t *testing.T) {
	dev := newTestDevice(t)
	extent := [3]float32{10, 10, 10}

	gs, err := NewSolver(dev, 500, 1, extent, WithSeed(7))
	require.NoError(t, err)
	defer gs.Release()
	hs, err := mpm.NewSolver(500, 1, extent, mpm.WithSeed(7))
	require.NoError(t, err)

	require.NoError(t, gs.Reset(300, extent))
	require.NoError(t, hs.Reset(300, extent))
	submit(t, dev, gs.Sync)

	host := compute.NewHostDevice()
	defer host.Close()
	b := host.NewBatch("host")
	require.NoError(t, hs.Sync(b))
	tok, err := host.Submit(b)
	require.NoError(t, err)
	require.NoError(t, tok.Wait())

	assert.Equal(t, hs.Particles(), gs.Particles())
}

func TestSolverFallsUnderGravity(t *testing.T) {
	dev := newTestDevice(t)
	extent := [3]float32{10, 10, 10}

	s, err := NewSolver(dev, 1000, 1, extent, WithSubsteps(2))
	require.NoError(t, err)
	defer s.Release()
	require.NoError(t, s.Reset(1000, extent))

	meanY := func() float64 {
		var sum float64
		pv := s.PosVel()
		for _, p := range pv {
			sum += float64(p.Position[1])
		}
		return sum / float64(len(pv))
	}

	submit(t, dev, s.Execute)
	start := meanY()
	for i := 0; i < 20; i++ {
		submit(t, dev, s.Execute)
	}
	assert.Less(t, meanY(), start)

	lo, hi := mpm.Interior(s.Domain(), 1)
	for _, p := range s.Particles() {
		for d := 0; d < 3; d++ {
			assert.GreaterOrEqual(t, p.Position[d], lo[d])
			assert.LessOrEqual(t, p.Position[d], hi[d])
		}
	}
}

func TestCullerMarksVisibility(t *testing.T) {
	dev := newTestDevice(t)
	extent := [3]float32{10, 10, 10}

	s, err := NewSolver(dev, 64, 1, extent)
	require.NoError(t, err)
	defer s.Release()
	c, err := NewCuller(dev, s, WithRadius(0.5))
	require.NoError(t, err)
	defer c.Release()

	assert.Equal(t, 64, c.VisibleCount(64))

	require.NoError(t, s.Reset(10, extent))
	// Shift clip x by 100 so every particle lies beyond the right plane.
	vp := common.Identity()
	vp[12] = 100
	submit(t, dev, func(b compute.Batch) error {
		if err := s.Sync(b); err != nil {
			return err
		}
		return c.Cull(b, 10, vp)
	})

	assert.Zero(t, c.VisibleCount(10))
	assert.Equal(t, uint32(1), c.Mask()[10])
}

func TestForeignBatchRejected(t *testing.T) {
	dev := newTestDevice(t)
	s, err := NewSolver(dev, 8, 1, [3]float32{4, 4, 4})
	require.NoError(t, err)
	defer s.Release()

	host := compute.NewHostDevice()
	defer host.Close()
	assert.ErrorIs(t, s.Execute(host.NewBatch("host")), compute.ErrForeignBatch)
}
