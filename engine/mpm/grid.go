package mpm

import (
	"fmt"
	"math"
	"sync/atomic"
)

// fixedPointScale converts float contributions to int64 fixed point for atomic scatter.
// Integer addition is associative, so the accumulated totals do not depend on the order in
// which concurrent particles land in a cell.
const fixedPointScale = 1e8

// Grid is the transient lattice workspace rebuilt every substep. Node (x, y, z) sits at
// world position (x, y, z) * cellSize. The resolution is fixed at construction; the current
// domain extent only decides which nodes form the boundary band.
type Grid struct {
	dims [3]int

	mass     []int64   // fixed point, one per node
	momentum []int64   // fixed point, three per node
	velocity []float32 // decoded by the grid-update pass, three per node
}

// LatticeDims returns the node count per axis needed to cover extent at cellSize.
//
// Parameters:
//   - extent: maximum domain extent in world units
//   - cellSize: lattice spacing in world units
//
// Returns:
//   - [3]int: nodes per axis
func LatticeDims(extent [3]float32, cellSize float32) [3]int {
	var dims [3]int
	for d := 0; d < 3; d++ {
		dims[d] = int(math.Ceil(float64(extent[d]/cellSize))) + 1
	}
	return dims
}

// newGrid allocates a lattice covering extent.
func newGrid(extent [3]float32, cellSize float32) (*Grid, error) {
	dims := LatticeDims(extent, cellSize)
	for d := 0; d < 3; d++ {
		// The quadratic stencil needs at least three nodes per axis.
		if dims[d] < 3 {
			return nil, fmt.Errorf("%w: lattice axis %d has %d nodes", ErrAllocation, d, dims[d])
		}
	}
	n := dims[0] * dims[1] * dims[2]
	return &Grid{
		dims:     dims,
		mass:     make([]int64, n),
		momentum: make([]int64, 3*n),
		velocity: make([]float32, 3*n),
	}, nil
}

// gridBytes estimates the memory held by a lattice of the given dimensions.
func gridBytes(dims [3]int) int64 {
	n := int64(dims[0]) * int64(dims[1]) * int64(dims[2])
	return n * (8 + 3*8 + 3*4)
}

// Cells returns the total number of nodes.
func (g *Grid) Cells() int {
	return len(g.mass)
}

// Index flattens node coordinates into a node index (x fastest).
func (g *Grid) Index(x, y, z int) int {
	return (z*g.dims[1]+y)*g.dims[0] + x
}

// Coords expands a node index back into coordinates.
func (g *Grid) Coords(idx int) (x, y, z int) {
	x = idx % g.dims[0]
	y = (idx / g.dims[0]) % g.dims[1]
	z = idx / (g.dims[0] * g.dims[1])
	return
}

// AtomicAddMass accumulates a mass contribution into a node. Safe for concurrent use.
func (g *Grid) AtomicAddMass(idx int, m float32) {
	atomic.AddInt64(&g.mass[idx], encodeFixed(m))
}

// AtomicAddMomentum accumulates a momentum contribution into a node. Safe for concurrent use.
func (g *Grid) AtomicAddMomentum(idx int, p [3]float32) {
	base := 3 * idx
	atomic.AddInt64(&g.momentum[base], encodeFixed(p[0]))
	atomic.AddInt64(&g.momentum[base+1], encodeFixed(p[1]))
	atomic.AddInt64(&g.momentum[base+2], encodeFixed(p[2]))
}

// Mass returns the accumulated mass of a node.
func (g *Grid) Mass(idx int) float32 {
	return decodeFixed(atomic.LoadInt64(&g.mass[idx]))
}

// Momentum returns the accumulated momentum of a node.
func (g *Grid) Momentum(idx int) [3]float32 {
	base := 3 * idx
	return [3]float32{
		decodeFixed(atomic.LoadInt64(&g.momentum[base])),
		decodeFixed(atomic.LoadInt64(&g.momentum[base+1])),
		decodeFixed(atomic.LoadInt64(&g.momentum[base+2])),
	}
}

// Velocity returns the node velocity produced by the last grid-update pass.
func (g *Grid) Velocity(idx int) [3]float32 {
	base := 3 * idx
	return [3]float32{g.velocity[base], g.velocity[base+1], g.velocity[base+2]}
}

func (g *Grid) setVelocity(idx int, v [3]float32) {
	base := 3 * idx
	g.velocity[base] = v[0]
	g.velocity[base+1] = v[1]
	g.velocity[base+2] = v[2]
}

// clearNode zeroes the accumulators and velocity of a node.
func (g *Grid) clearNode(idx int) {
	g.mass[idx] = 0
	base := 3 * idx
	g.momentum[base], g.momentum[base+1], g.momentum[base+2] = 0, 0, 0
	g.velocity[base], g.velocity[base+1], g.velocity[base+2] = 0, 0, 0
}

func encodeFixed(v float32) int64 {
	return int64(math.Round(float64(v) * fixedPointScale))
}

func decodeFixed(v int64) float32 {
	return float32(float64(v) / fixedPointScale)
}
