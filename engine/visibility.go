package engine

import (
	"github.com/Carmen-Shannon/oxy-fluid/engine/compute"
	"github.com/Carmen-Shannon/oxy-fluid/engine/culler"
	"github.com/Carmen-Shannon/oxy-fluid/engine/mpm"
)

// Visibility is the culling stage as the engine drives it. gpu.Culler satisfies it
// directly; NewHostVisibility adapts a host culler.
type Visibility interface {
	// Cull records the visibility pass for the first activeCount particles.
	//
	// Parameters:
	//   - batch: the frame batch
	//   - activeCount: live particle count
	//   - viewProjection: column-major view-projection matrix
	//
	// Returns:
	//   - error: recording failure
	Cull(batch compute.Batch, activeCount int, viewProjection [16]float32) error

	// Mask returns the mask written by the last completed pass.
	Mask() []uint32
}

type hostVisibility struct {
	culler culler.Culler
	solver mpm.Solver
}

// NewHostVisibility binds a host culler to the particle store of a host solver.
//
// Parameters:
//   - c: the culler
//   - s: the solver whose particles are tested
//
// Returns:
//   - Visibility: the adapter
func NewHostVisibility(c culler.Culler, s mpm.Solver) Visibility {
	return &hostVisibility{culler: c, solver: s}
}

func (v *hostVisibility) Cull(batch compute.Batch, activeCount int, viewProjection [16]float32) error {
	return v.culler.Execute(batch, v.solver.Particles(), activeCount, viewProjection)
}

func (v *hostVisibility) Mask() []uint32 {
	return v.culler.Mask()
}
