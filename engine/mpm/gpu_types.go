package mpm

import "unsafe"

// Particle is the per-slot simulation state. Its layout matches the WGSL struct used by the
// GPU backend: vec3 fields are 16-byte aligned and the affine matrix is stored as three
// padded column vectors (mat3x3f), for 80 bytes per particle.
type Particle struct {
	// Position is the world-space location.
	Position [3]float32
	// Volume is the deformation/volume ratio J (determinant of the deformation gradient).
	// 1 is the rest state, < 1 compressed, > 1 expanded.
	Volume float32
	// Velocity is the world-space velocity.
	Velocity [3]float32
	_        float32
	// C is the APIC affine velocity gradient in column-major mat3x3f layout: element
	// (row, col) lives at C[col*4+row]; C[3], C[7] and C[11] are padding.
	C [12]float32
}

// PosVel is the per-particle record handed to the presentation layer: position and velocity,
// each padded to a 16-byte vector.
type PosVel struct {
	Position [3]float32
	_        float32
	Velocity [3]float32
	_        float32
}

// Byte sizes of the GPU layouts above.
const (
	ParticleSize = int(unsafe.Sizeof(Particle{}))
	PosVelSize   = int(unsafe.Sizeof(PosVel{}))
)
