package mpm

import "github.com/Carmen-Shannon/oxy-fluid/engine/compute"

// BoundaryBand is the number of lattice nodes next to each domain face whose outward
// velocity component is removed during the grid update.
const BoundaryBand = 2

// MinNodeMass is the accumulated mass below which a node is treated as empty. Fixed-point
// rounding on nearly empty nodes would otherwise turn into large velocities.
const MinNodeMass = 1e-6

// frame captures every value the kernels of one Execute read, so host-side setters made
// after recording do not affect recorded work.
type frame struct {
	live int

	dt, dx, invDx float32
	gravity       [3]float32
	mass          float32

	pressureCoef  float32 // multiplies (J - 1) on the affine diagonal
	viscosityCoef float32 // multiplies (C + C^T)
	apicScale     float32 // 4 / dx^2, the inverse inertia of the quadratic kernel

	minJ, maxJ float32

	extentCells [3]float32 // domain extent in cells
	lo, hi      [3]float32 // particle clamp range in world units
}

// Coefficients are the per-Execute constants of the transfer kernels, shared by every
// backend.
type Coefficients struct {
	// Mass is the mass of one particle.
	Mass float32
	// Pressure multiplies (J - 1) on the diagonal of the affine momentum.
	Pressure float32
	// Viscosity multiplies (C + C^T).
	Viscosity float32
	// APIC is 4 / dx^2, the inverse inertia of the quadratic kernel.
	APIC float32
}

// NewCoefficients derives the kernel constants from the parameters.
//
// Parameters:
//   - p: solver parameters
//   - cellSize: lattice spacing in world units
//   - volume: rest volume of one particle
//
// Returns:
//   - Coefficients: the derived constants
func NewCoefficients(p Params, cellSize, volume float32) Coefficients {
	apic := 4 / (cellSize * cellSize)
	return Coefficients{
		Mass:      p.RestDensity * volume,
		Pressure:  -p.TimeStep * apic * volume * p.Stiffness,
		Viscosity: -p.TimeStep * apic * volume * p.Viscosity,
		APIC:      apic,
	}
}

// ParticleVolume returns the rest volume one particle represents when seeded at spacing
// cells apart.
func ParticleVolume(spacing, cellSize float32) float32 {
	h := spacing * cellSize
	return h * h * h
}

func (s *solver) frame() frame {
	p := s.params
	dx := s.cellSize
	k := NewCoefficients(p, dx, s.particleVolume())

	f := frame{
		live:          s.arena.Live(),
		dt:            p.TimeStep,
		dx:            dx,
		invDx:         1 / dx,
		gravity:       p.Gravity,
		mass:          k.Mass,
		pressureCoef:  k.Pressure,
		viscosityCoef: k.Viscosity,
		apicScale:     k.APIC,
		minJ:          p.MinVolume,
		maxJ:          p.MaxVolume,
	}
	for d := 0; d < 3; d++ {
		f.extentCells[d] = s.domain[d] * f.invDx
	}
	f.lo, f.hi = Interior(s.domain, dx)
	return f
}

// stencil is the 3x3x3 quadratic B-spline neighbourhood of a particle.
type stencil struct {
	base [3]int
	fx   [3]float32
	w    [3][3]float32
}

// quadraticWeights returns the B-spline weights of the three nodes around a particle whose
// fractional offset from the first node is fx (in [0.5, 1.5) for in-range particles).
func quadraticWeights(fx float32) [3]float32 {
	a := 1.5 - fx
	b := fx - 1
	c := fx - 0.5
	return [3]float32{0.5 * a * a, 0.75 - b*b, 0.5 * c * c}
}

// stencilAt computes the neighbourhood of a world position. The base node is clamped into
// the lattice so a stray particle can never address memory outside the grid.
func (g *Grid) stencilAt(pos [3]float32, invDx float32) stencil {
	var st stencil
	for d := 0; d < 3; d++ {
		xg := pos[d] * invDx
		b := int(xg - 0.5)
		if xg-0.5 < 0 {
			b = 0
		}
		b = min(max(b, 0), g.dims[d]-3)
		st.base[d] = b
		st.fx[d] = xg - float32(b)
		st.w[d] = quadraticWeights(st.fx[d])
	}
	return st
}

func (s *solver) clearKernel() compute.Kernel {
	g := s.grid
	return func(idx int) {
		g.clearNode(idx)
	}
}

func (s *solver) uploadKernel(up Upload) compute.Kernel {
	particles := s.particles
	return func(i int) {
		particles[up.First+i] = up.Data[i]
	}
}

// p2gKernel scatters each particle's mass and MLS momentum onto its 27 neighbour nodes.
func (s *solver) p2gKernel(f frame) compute.Kernel {
	particles := s.particles
	g := s.grid
	return func(i int) {
		p := &particles[i]
		st := g.stencilAt(p.Position, f.invDx)

		pressure := f.pressureCoef * (p.Volume - 1)
		var affine [3][3]float32
		for r := 0; r < 3; r++ {
			for c := 0; c < 3; c++ {
				a := f.mass*p.Affine(r, c) + f.viscosityCoef*(p.Affine(r, c)+p.Affine(c, r))
				if r == c {
					a += pressure
				}
				affine[r][c] = a
			}
		}
		mv := p.Momentum(f.mass)

		for ox := 0; ox < 3; ox++ {
			for oy := 0; oy < 3; oy++ {
				for oz := 0; oz < 3; oz++ {
					w := st.w[0][ox] * st.w[1][oy] * st.w[2][oz]
					dpos := [3]float32{
						(float32(ox) - st.fx[0]) * f.dx,
						(float32(oy) - st.fx[1]) * f.dx,
						(float32(oz) - st.fx[2]) * f.dx,
					}
					var mom [3]float32
					for r := 0; r < 3; r++ {
						mom[r] = w * (mv[r] + affine[r][0]*dpos[0] + affine[r][1]*dpos[1] + affine[r][2]*dpos[2])
					}
					idx := g.Index(st.base[0]+ox, st.base[1]+oy, st.base[2]+oz)
					g.AtomicAddMass(idx, w*f.mass)
					g.AtomicAddMomentum(idx, mom)
				}
			}
		}
	}
}

// gridKernel turns node momentum into velocity, applies gravity and removes outward velocity
// in the boundary band of the current domain.
func (s *solver) gridKernel(f frame) compute.Kernel {
	g := s.grid
	return func(idx int) {
		m := g.Mass(idx)
		if m < MinNodeMass {
			g.setVelocity(idx, [3]float32{})
			return
		}

		mom := g.Momentum(idx)
		inv := 1 / m
		x, y, z := g.Coords(idx)
		node := [3]int{x, y, z}

		var v [3]float32
		for d := 0; d < 3; d++ {
			v[d] = mom[d]*inv + f.dt*f.gravity[d]
			if node[d] < BoundaryBand && v[d] < 0 {
				v[d] = 0
			}
			if float32(node[d]) > f.extentCells[d]-BoundaryBand && v[d] > 0 {
				v[d] = 0
			}
			if !finite(v[d]) {
				v[d] = 0
			}
		}
		g.setVelocity(idx, v)
	}
}

// g2pKernel gathers velocity and the affine gradient, advects the particle, evolves J and
// clamps the particle back inside the domain.
func (s *solver) g2pKernel(f frame) compute.Kernel {
	particles := s.particles
	g := s.grid
	return func(i int) {
		p := &particles[i]
		st := g.stencilAt(p.Position, f.invDx)

		var v [3]float32
		var b [3][3]float32
		for ox := 0; ox < 3; ox++ {
			for oy := 0; oy < 3; oy++ {
				for oz := 0; oz < 3; oz++ {
					w := st.w[0][ox] * st.w[1][oy] * st.w[2][oz]
					dpos := [3]float32{
						(float32(ox) - st.fx[0]) * f.dx,
						(float32(oy) - st.fx[1]) * f.dx,
						(float32(oz) - st.fx[2]) * f.dx,
					}
					gv := g.Velocity(g.Index(st.base[0]+ox, st.base[1]+oy, st.base[2]+oz))
					for r := 0; r < 3; r++ {
						wv := w * gv[r]
						v[r] += wv
						b[r][0] += wv * dpos[0]
						b[r][1] += wv * dpos[1]
						b[r][2] += wv * dpos[2]
					}
				}
			}
		}

		valid := true
		for r := 0; r < 3; r++ {
			if !finite(v[r]) {
				v = [3]float32{}
				break
			}
		}
		for r := 0; r < 3 && valid; r++ {
			for c := 0; c < 3; c++ {
				b[r][c] *= f.apicScale
				if !finite(b[r][c]) {
					valid = false
					break
				}
			}
		}
		if !valid {
			b = [3][3]float32{}
		}
		for r := 0; r < 3; r++ {
			for c := 0; c < 3; c++ {
				p.SetAffine(r, c, b[r][c])
			}
		}

		j := p.Volume * (1 + f.dt*(b[0][0]+b[1][1]+b[2][2]))
		if !finite(j) {
			j = 1
		}
		p.Volume = clampf(j, f.minJ, f.maxJ)

		for d := 0; d < 3; d++ {
			x := p.Position[d] + f.dt*v[d]
			if !finite(x) || x < f.lo[d] {
				x = f.lo[d]
				v[d] = 0
			} else if x > f.hi[d] {
				x = f.hi[d]
				v[d] = 0
			}
			p.Position[d] = x
		}
		p.Velocity = v
	}
}

func (s *solver) copyKernel() compute.Kernel {
	particles := s.particles
	posVel := s.posVel
	return func(i int) {
		posVel[i].Position = particles[i].Position
		posVel[i].Velocity = particles[i].Velocity
	}
}
