package mpm

import (
	"fmt"
	"math/rand/v2"
)

// Upload is a staged host write of consecutive particle slots starting at First.
type Upload struct {
	First int
	Data  []Particle
}

// Arena is the fixed-capacity particle allocator shared by the solver backends. It tracks
// the live-count cursor and stages newly initialized slots until the backend copies them
// into device memory at the start of its next batch. Slots are bump-allocated and never
// freed individually; Reset rewinds the cursor.
type Arena struct {
	capacity int
	live     int
	pending  []Upload

	cellSize float32
	spacing  float32 // seeding lattice spacing, in cells
	jitter   float32 // seeding jitter, as a fraction of the spacing
	seed     uint64
	rng      *rand.Rand
}

// NewArena creates an empty arena.
//
// Parameters:
//   - capacity: maximum number of live particles
//   - cellSize: grid spacing in world units, used for the wall margin
//   - spacing: seeding lattice spacing in cells
//   - jitter: seeding jitter as a fraction of the spacing, in [0, 1]
//   - seed: RNG seed for seeding and injection
//
// Returns:
//   - *Arena: the new arena
func NewArena(capacity int, cellSize, spacing, jitter float32, seed uint64) *Arena {
	return &Arena{
		capacity: capacity,
		cellSize: cellSize,
		spacing:  spacing,
		jitter:   clampf(jitter, 0, 1),
		seed:     seed,
		rng:      rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Capacity returns the fixed slot count.
func (a *Arena) Capacity() int {
	return a.capacity
}

// Live returns the number of active slots, including staged slots not yet uploaded.
func (a *Arena) Live() int {
	return a.live
}

// Headroom returns the number of free slots.
func (a *Arena) Headroom() int {
	return a.capacity - a.live
}

// Pending reports whether staged uploads are waiting.
func (a *Arena) Pending() bool {
	return len(a.pending) > 0
}

// TakePending hands the staged uploads to the caller and clears the staging list.
//
// Returns:
//   - []Upload: staged uploads in the order they were made
func (a *Arena) TakePending() []Upload {
	p := a.pending
	a.pending = nil
	return p
}

// Interior returns the per-axis range particles are clamped to: the domain shrunk by one
// cell on every face.
//
// Parameters:
//   - domain: domain extent in world units
//   - cellSize: grid spacing in world units
//
// Returns:
//   - lo, hi: inclusive lower and upper bounds per axis
func Interior(domain [3]float32, cellSize float32) (lo, hi [3]float32) {
	for d := 0; d < 3; d++ {
		lo[d] = cellSize
		hi[d] = max(domain[d]-cellSize, cellSize)
	}
	return
}

// Reset rewinds the cursor and stages count particles seeded on a jittered lattice that
// fills the domain interior from the floor upwards. Seeding is deterministic for a given
// arena seed. Previously staged uploads are discarded.
//
// Parameters:
//   - count: number of particles to seed
//   - domain: domain extent the lattice must fit in
//
// Returns:
//   - error: ErrCapacityExceeded or ErrInvalidArgument, with no change to the arena
func (a *Arena) Reset(count int, domain [3]float32) error {
	if count < 0 {
		return fmt.Errorf("%w: negative particle count %d", ErrInvalidArgument, count)
	}
	if count > a.capacity {
		return fmt.Errorf("%w: requested %d, capacity %d", ErrCapacityExceeded, count, a.capacity)
	}

	data := a.seedLattice(count, domain)
	a.pending = []Upload{{First: 0, Data: data}}
	a.live = count
	return nil
}

// seedLattice lays count particles out in x, then z, then y order. The spacing shrinks
// until the interior holds every particle.
func (a *Arena) seedLattice(count int, domain [3]float32) []Particle {
	data := make([]Particle, count)
	if count == 0 {
		return data
	}

	lo, hi := Interior(domain, a.cellSize)
	spacing := a.spacing * a.cellSize
	var n [3]int
	for {
		for d := 0; d < 3; d++ {
			n[d] = max(int((hi[d]-lo[d])/spacing), 1)
		}
		if n[0]*n[1]*n[2] >= count || spacing < 1e-4*a.cellSize {
			break
		}
		spacing *= 0.9
	}

	rng := rand.New(rand.NewPCG(a.seed, a.seed^0xda942042e4dd58b5))
	for i := range data {
		ix := i % n[0]
		iz := (i / n[0]) % n[2]
		iy := (i / (n[0] * n[2])) % n[1]
		idx := [3]int{ix, iy, iz}

		var pos [3]float32
		for d := 0; d < 3; d++ {
			j := (rng.Float32() - 0.5) * a.jitter * spacing
			pos[d] = clampf(lo[d]+(float32(idx[d])+0.5)*spacing+j, lo[d], hi[d])
		}
		data[i] = NewParticle(pos)
	}
	return data
}
