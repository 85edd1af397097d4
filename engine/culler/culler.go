// Package culler computes a per-particle visibility mask by testing each live particle's
// bounding sphere against the six planes of the camera frustum.
package culler

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-fluid/common"
	"github.com/Carmen-Shannon/oxy-fluid/engine/compute"
	"github.com/Carmen-Shannon/oxy-fluid/engine/mpm"
)

// Culler writes a visibility mask with one entry per particle slot: 1 when the particle's
// sphere intersects the view frustum, 0 otherwise.
type Culler interface {
	// Execute records the culling pass into a batch. Slots at or beyond activeCount keep
	// their previous mask values.
	//
	// Parameters:
	//   - batch: a host batch to record into
	//   - particles: the particle store the pass reads positions from when it runs
	//   - activeCount: number of leading slots to test, clamped to the capacity
	//   - viewProjection: column-major view-projection matrix with WebGPU clip depth
	//
	// Returns:
	//   - error: compute.ErrForeignBatch or compute.ErrBatchSubmitted
	Execute(batch compute.Batch, particles []mpm.Particle, activeCount int, viewProjection [16]float32) error

	// Mask returns the visibility mask. Contents are consistent once the batch completes.
	//
	// Returns:
	//   - []uint32: one entry per slot, sized to the capacity
	Mask() []uint32

	// VisibleCount counts the visible entries among the first activeCount slots.
	//
	// Parameters:
	//   - activeCount: number of leading slots to count
	//
	// Returns:
	//   - int: number of slots with mask value 1
	VisibleCount(activeCount int) int

	// Radius returns the world-space radius tested for each particle.
	//
	// Returns:
	//   - float32: particle sphere radius
	Radius() float32

	// Capacity returns the number of mask slots.
	//
	// Returns:
	//   - int: mask length
	Capacity() int
}

type culler struct {
	mask   []uint32
	radius float32
}

var _ Culler = &culler{}

// NewCuller creates a culler whose mask starts with every slot visible.
//
// Parameters:
//   - maxParticles: mask capacity (> 0)
//   - options: functional options to configure the culler
//
// Returns:
//   - Culler: the new culler
//   - error: if maxParticles is not positive
func NewCuller(maxParticles int, options ...CullerBuilderOption) (Culler, error) {
	if maxParticles <= 0 {
		return nil, fmt.Errorf("culler: capacity must be > 0, got %d", maxParticles)
	}
	c := &culler{
		mask:   make([]uint32, maxParticles),
		radius: DefaultRadius,
	}
	for _, option := range options {
		option(c)
	}
	for i := range c.mask {
		c.mask[i] = 1
	}
	return c, nil
}

func (c *culler) Execute(batch compute.Batch, particles []mpm.Particle, activeCount int, viewProjection [16]float32) error {
	hb, err := compute.AsHostBatch(batch)
	if err != nil {
		return err
	}
	n := min(max(activeCount, 0), len(c.mask), len(particles))

	frustum := common.ExtractFrustumFromMatrix(viewProjection)
	radius := c.radius
	mask := c.mask
	return hb.Dispatch("cull.visibility", n, func(i int) {
		if frustum.IntersectsSphere(particles[i].Position, radius) {
			mask[i] = 1
		} else {
			mask[i] = 0
		}
	})
}

func (c *culler) Mask() []uint32 {
	return c.mask
}

func (c *culler) VisibleCount(activeCount int) int {
	return CountVisible(c.mask, activeCount)
}

func (c *culler) Radius() float32 {
	return c.radius
}

func (c *culler) Capacity() int {
	return len(c.mask)
}

// CountVisible counts mask entries equal to 1 among the first activeCount slots.
//
// Parameters:
//   - mask: visibility mask
//   - activeCount: number of leading slots to count
//
// Returns:
//   - int: number of visible slots
func CountVisible(mask []uint32, activeCount int) int {
	n := min(max(activeCount, 0), len(mask))
	visible := 0
	for _, v := range mask[:n] {
		if v == 1 {
			visible++
		}
	}
	return visible
}
