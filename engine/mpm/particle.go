package mpm

import "math"

// NewParticle returns a particle at rest at pos with an undeformed volume.
//
// Parameters:
//   - pos: world-space position
//
// Returns:
//   - Particle: the initialized particle
func NewParticle(pos [3]float32) Particle {
	return Particle{Position: pos, Volume: 1}
}

// Affine returns element (row, col) of the particle's affine velocity gradient.
func (p *Particle) Affine(row, col int) float32 {
	return p.C[col*4+row]
}

// SetAffine sets element (row, col) of the particle's affine velocity gradient.
func (p *Particle) SetAffine(row, col int, v float32) {
	p.C[col*4+row] = v
}

// Momentum returns mass * velocity for a particle of the given mass.
func (p *Particle) Momentum(mass float32) [3]float32 {
	return [3]float32{p.Velocity[0] * mass, p.Velocity[1] * mass, p.Velocity[2] * mass}
}

// finite reports whether v is neither NaN nor infinite.
func finite(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func clampf(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
