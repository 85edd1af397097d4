package gpu

import (
	"fmt"
	"log"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Carmen-Shannon/oxy-fluid/common"
	"github.com/Carmen-Shannon/oxy-fluid/engine/compute"
	"github.com/Carmen-Shannon/oxy-fluid/engine/culler"
)

// Culler runs frustum culling on the device against a solver's particle buffer, so
// particles never leave device memory.
type Culler interface {
	// Cull records the culling pass into a batch.
	//
	// Parameters:
	//   - batch: a batch recorded by the culler's device
	//   - activeCount: number of leading slots to test, clamped to the capacity
	//   - viewProjection: column-major view-projection matrix with WebGPU clip depth
	//
	// Returns:
	//   - error: compute.ErrForeignBatch or compute.ErrBatchSubmitted
	Cull(batch compute.Batch, activeCount int, viewProjection [16]float32) error

	// Mask reads the visibility mask back from the device.
	//
	// Returns:
	//   - []uint32: one entry per slot, sized to the capacity
	Mask() []uint32

	// VisibleCount reads the mask back and counts the visible entries among the first
	// activeCount slots.
	VisibleCount(activeCount int) int

	// Radius returns the world-space radius tested for each particle.
	Radius() float32

	// Release frees the culler's buffers and pipeline.
	Release()
}

type gpuCuller struct {
	dev      Device
	capacity int
	radius   float32

	paramsBuf *wgpu.Buffer
	maskBuf   *wgpu.Buffer
	kernel    *Kernel
	mask      []uint32
}

var _ Culler = &gpuCuller{}

// NewCuller creates a device culler over the solver's particle buffer. The mask starts with
// every slot visible.
//
// Parameters:
//   - dev: the device the solver was created on
//   - s: the solver whose particles are tested
//   - options: functional options to configure the culler
//
// Returns:
//   - Culler: the new culler
//   - error: buffer or pipeline creation failure
func NewCuller(dev Device, s Solver, options ...CullerBuilderOption) (Culler, error) {
	c := &gpuCuller{
		dev:      dev,
		capacity: s.Capacity(),
		radius:   culler.DefaultRadius,
	}
	for _, opt := range options {
		opt(c)
	}

	var err error
	if c.paramsBuf, err = dev.CreateBuffer("cull.params", cullParamsSize, wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst); err != nil {
		return nil, err
	}
	maskBytes := uint64(c.capacity) * 4
	if c.maskBuf, err = dev.CreateBuffer("cull.mask", maskBytes, wgpu.BufferUsageStorage|wgpu.BufferUsageCopyDst|wgpu.BufferUsageCopySrc); err != nil {
		c.Release()
		return nil, err
	}

	cs, err := LoadComputeShader(shaderCull)
	if err != nil {
		c.Release()
		return nil, err
	}
	if c.kernel, err = dev.NewKernel(cs, c.paramsBuf, s.ParticleBuffer(), c.maskBuf); err != nil {
		c.Release()
		return nil, fmt.Errorf("gpu: culler: %w", err)
	}

	c.mask = make([]uint32, c.capacity)
	for i := range c.mask {
		c.mask[i] = 1
	}
	dev.Write(c.maskBuf, 0, common.SliceToBytes(c.mask))
	return c, nil
}

func (c *gpuCuller) Cull(batch compute.Batch, activeCount int, viewProjection [16]float32) error {
	gb, err := AsBatch(batch)
	if err != nil {
		return err
	}
	if Device(gb.device) != c.dev {
		return fmt.Errorf("%w: batch %q", compute.ErrForeignBatch, gb.label)
	}
	if gb.submitted {
		return compute.ErrBatchSubmitted
	}

	n := min(max(activeCount, 0), c.capacity)
	params := newCullParams(common.ExtractFrustumFromMatrix(viewProjection), n, c.radius)
	c.dev.Write(c.paramsBuf, 0, common.StructToBytes(&params))
	return gb.Dispatch(c.kernel, n)
}

func (c *gpuCuller) Mask() []uint32 {
	b, err := c.dev.Read(c.maskBuf, uint64(c.capacity)*4)
	if err != nil {
		log.Printf("[GPU] mask readback failed: %v", err)
		return c.mask
	}
	copy(c.mask, common.BytesToSlice[uint32](b))
	return c.mask
}

func (c *gpuCuller) VisibleCount(activeCount int) int {
	return culler.CountVisible(c.Mask(), activeCount)
}

func (c *gpuCuller) Radius() float32 {
	return c.radius
}

func (c *gpuCuller) Release() {
	if c.kernel != nil {
		c.kernel.Release()
	}
	for _, b := range []*wgpu.Buffer{c.paramsBuf, c.maskBuf} {
		if b != nil {
			b.Release()
		}
	}
}
