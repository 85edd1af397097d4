package culler

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-fluid/common"
	"github.com/Carmen-Shannon/oxy-fluid/engine/compute"
	"github.com/Carmen-Shannon/oxy-fluid/engine/mpm"
)

// lookAtOrigin returns a view-projection for an eye on +z looking at the origin.
func lookAtOrigin() [16]float32 {
	view := common.LookAt([3]float32{0, 0, 20}, [3]float32{}, [3]float32{0, 1, 0})
	proj := common.Perspective(float32(math.Pi/3), 1, 0.1, 100)
	return common.Mul4(proj, view)
}

func cull(t *testing.T, c Culler, particles []mpm.Particle, active int, vp [16]float32) {
	t.Helper()
	dev := compute.NewHostDevice(compute.WithWorkers(2))
	defer dev.Close()

	b := dev.NewBatch("cull")
	require.NoError(t, c.Execute(b, particles, active, vp))
	tok, err := dev.Submit(b)
	require.NoError(t, err)
	require.NoError(t, tok.Wait())
}

func TestNewCullerStartsAllVisible(t *testing.T) {
	c, err := NewCuller(64)
	require.NoError(t, err)
	assert.Len(t, c.Mask(), 64)
	assert.Equal(t, 64, c.VisibleCount(64))
	assert.Equal(t, DefaultRadius, c.Radius())

	_, err = NewCuller(0)
	assert.Error(t, err)
}

func TestExecuteMarksVisibility(t *testing.T) {
	c, err := NewCuller(8, WithRadius(0.5))
	require.NoError(t, err)

	particles := make([]mpm.Particle, 8)
	particles[0] = mpm.NewParticle([3]float32{0, 0, 0})    // look-at target
	particles[1] = mpm.NewParticle([3]float32{0, 0, 500})  // far behind the eye
	particles[2] = mpm.NewParticle([3]float32{0, 0, -200}) // beyond the far plane
	particles[3] = mpm.NewParticle([3]float32{300, 0, 0})  // far off to the side
	particles[4] = mpm.NewParticle([3]float32{2, -1, 5})   // off-centre but in view

	cull(t, c, particles, 5, lookAtOrigin())

	assert.Equal(t, []uint32{1, 0, 0, 0, 1}, c.Mask()[:5])
	assert.Equal(t, 2, c.VisibleCount(5))
}

func TestExecuteLeavesInactiveSlotsUntouched(t *testing.T) {
	c, err := NewCuller(6)
	require.NoError(t, err)

	particles := make([]mpm.Particle, 6)
	for i := range particles {
		particles[i] = mpm.NewParticle([3]float32{0, 0, 1000})
	}

	cull(t, c, particles, 2, lookAtOrigin())

	assert.Equal(t, []uint32{0, 0, 1, 1, 1, 1}, c.Mask())
}

func TestExecuteClampsActiveCount(t *testing.T) {
	c, err := NewCuller(4)
	require.NoError(t, err)

	particles := make([]mpm.Particle, 4)
	for i := range particles {
		particles[i] = mpm.NewParticle([3]float32{0, 0, 1000})
	}

	cull(t, c, particles, 100, lookAtOrigin())
	assert.Zero(t, c.VisibleCount(100))
}

func TestExecuteRadiusWidensTest(t *testing.T) {
	vp := common.Identity()

	// Under the identity the frustum is the clip box x,y in [-1, 1], z in [0, 1].
	particles := []mpm.Particle{mpm.NewParticle([3]float32{1.5, 0, 0.5})}

	narrow, err := NewCuller(1, WithRadius(0.25))
	require.NoError(t, err)
	cull(t, narrow, particles, 1, vp)
	assert.Equal(t, uint32(0), narrow.Mask()[0])

	wide, err := NewCuller(1, WithRadius(1))
	require.NoError(t, err)
	cull(t, wide, particles, 1, vp)
	assert.Equal(t, uint32(1), wide.Mask()[0])
}

func TestExecuteRejectsForeignBatch(t *testing.T) {
	c, err := NewCuller(1)
	require.NoError(t, err)
	err = c.Execute(nil, nil, 0, lookAtOrigin())
	assert.ErrorIs(t, err, compute.ErrForeignBatch)
}
