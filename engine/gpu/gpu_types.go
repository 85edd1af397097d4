package gpu

import (
	"unsafe"

	"github.com/Carmen-Shannon/oxy-fluid/common"
)

// gpuSimParams mirrors the SimParams uniform in sim_types.wgsl. Every row is a vec4 and the
// w lanes carry scalars.
type gpuSimParams struct {
	Dims    [4]uint32  // nodes per axis, w = live particles
	Extent  [4]float32 // domain extent in cells, w = dt
	Lo      [4]float32 // particle clamp minimum, w = dx
	Hi      [4]float32 // particle clamp maximum, w = 1 / dx
	Gravity [4]float32 // w = particle mass
	Coef    [4]float32 // pressure, viscosity, apic scale, fixed-point scale
	Limits  [4]float32 // min J, max J, min node mass, boundary band
}

// gpuCullParams mirrors the CullParams uniform in cull.wgsl.
type gpuCullParams struct {
	Planes [6][4]float32 // xyz = normal, w = distance
	Count  uint32
	Radius float32
	_      [2]uint32
}

const (
	simParamsSize  = uint64(unsafe.Sizeof(gpuSimParams{}))
	cullParamsSize = uint64(unsafe.Sizeof(gpuCullParams{}))
)

// gpuFixedPointScale converts node mass and momentum to i32 for atomic scatter. It is
// smaller than the host scale because WGSL has no 64-bit atomics.
const gpuFixedPointScale = 1e7

// newCullParams packs a frustum for the cull shader.
func newCullParams(f common.Frustum, count int, radius float32) gpuCullParams {
	p := gpuCullParams{Count: uint32(count), Radius: radius}
	for i, pl := range f.Planes {
		p.Planes[i] = [4]float32{pl.Normal[0], pl.Normal[1], pl.Normal[2], pl.Distance}
	}
	return p
}
