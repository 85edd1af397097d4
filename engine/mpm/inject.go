package mpm

import (
	"fmt"
	"math"
)

// AddSphere bump-allocates up to count slots after the cursor and stages particles jittered
// uniformly inside a sphere. Points falling outside the domain interior are clamped onto it.
// When the arena lacks headroom only the slots that fit are filled.
//
// Parameters:
//   - center: sphere center in world units
//   - radius: sphere radius in world units (> 0)
//   - count: requested particle count (> 0)
//   - domain: current domain extent, used for clamping
//
// Returns:
//   - int: number of particles actually inserted
//   - error: ErrPartialInsertion when fewer than count were inserted, ErrInvalidArgument for
//     malformed requests
func (a *Arena) AddSphere(center [3]float32, radius float32, count int, domain [3]float32) (int, error) {
	if count <= 0 {
		return 0, fmt.Errorf("%w: sphere particle count %d", ErrInvalidArgument, count)
	}
	if !(radius > 0) || math.IsInf(float64(radius), 0) {
		return 0, fmt.Errorf("%w: sphere radius %v", ErrInvalidArgument, radius)
	}
	for d := 0; d < 3; d++ {
		if !finite(center[d]) {
			return 0, fmt.Errorf("%w: sphere center %v", ErrInvalidArgument, center)
		}
	}

	n := min(count, a.Headroom())
	if n > 0 {
		lo, hi := Interior(domain, a.cellSize)
		data := make([]Particle, n)
		for i := range data {
			dir := a.unitBallPoint()
			var pos [3]float32
			for d := 0; d < 3; d++ {
				pos[d] = clampf(center[d]+radius*dir[d], lo[d], hi[d])
			}
			data[i] = NewParticle(pos)
		}
		a.pending = append(a.pending, Upload{First: a.live, Data: data})
		a.live += n
	}

	if n < count {
		return n, fmt.Errorf("%w: inserted %d of %d particles", ErrPartialInsertion, n, count)
	}
	return n, nil
}

// unitBallPoint draws a point uniformly from the unit ball by rejection sampling.
func (a *Arena) unitBallPoint() [3]float32 {
	for {
		x := 2*a.rng.Float32() - 1
		y := 2*a.rng.Float32() - 1
		z := 2*a.rng.Float32() - 1
		if x*x+y*y+z*z <= 1 {
			return [3]float32{x, y, z}
		}
	}
}
