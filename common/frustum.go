package common

import (
	"math"
)

// Plane represents a plane in 3D space using the equation: ax + by + cz + d = 0
// where (a, b, c) is the normal and d is the distance from origin.
type Plane struct {
	Normal   [3]float32
	Distance float32
}

// Frustum represents the six planes of a view frustum for culling.
// Planes are oriented so that positive half-space is inside the frustum.
type Frustum struct {
	Planes [6]Plane // Left, Right, Bottom, Top, Near, Far
}

// FrustumPlane indices for clarity
const (
	FrustumLeft   = 0
	FrustumRight  = 1
	FrustumBottom = 2
	FrustumTop    = 3
	FrustumNear   = 4
	FrustumFar    = 5
)

// ExtractFrustumFromMatrix extracts the six planes of a combined Projection * View matrix
// with the Gribb/Hartmann method. Clip depth is WebGPU's [0, w], so the near plane is row 2
// alone rather than row 3 + row 2.
//
// Reference: https://www8.cs.umu.se/kurser/5DV051/HT12/lab/plane_extraction.pdf
//
// Parameters:
//   - viewProj: column-major view-projection matrix
//
// Returns:
//   - Frustum: the frustum with unit-length plane normals
func ExtractFrustumFromMatrix(viewProj [16]float32) Frustum {
	r0, r1, r2, r3 := matrixRow(viewProj, 0), matrixRow(viewProj, 1), matrixRow(viewProj, 2), matrixRow(viewProj, 3)

	var f Frustum
	f.Planes[FrustumLeft] = planeFrom(combineRows(r3, r0, 1))
	f.Planes[FrustumRight] = planeFrom(combineRows(r3, r0, -1))
	f.Planes[FrustumBottom] = planeFrom(combineRows(r3, r1, 1))
	f.Planes[FrustumTop] = planeFrom(combineRows(r3, r1, -1))
	f.Planes[FrustumNear] = planeFrom(r2)
	f.Planes[FrustumFar] = planeFrom(combineRows(r3, r2, -1))
	return f
}

// matrixRow returns row i of a column-major matrix.
func matrixRow(m [16]float32, i int) [4]float32 {
	return [4]float32{m[i], m[4+i], m[8+i], m[12+i]}
}

// combineRows returns a + sign*b.
func combineRows(a, b [4]float32, sign float32) [4]float32 {
	return [4]float32{a[0] + sign*b[0], a[1] + sign*b[1], a[2] + sign*b[2], a[3] + sign*b[3]}
}

// planeFrom turns plane coefficients (a, b, c, d) into a Plane with a unit normal. A
// degenerate row is kept as is.
func planeFrom(coef [4]float32) Plane {
	p := Plane{Normal: [3]float32{coef[0], coef[1], coef[2]}, Distance: coef[3]}
	l := float32(math.Sqrt(float64(dot3(p.Normal, p.Normal))))
	if l > 0 {
		p.Normal = [3]float32{p.Normal[0] / l, p.Normal[1] / l, p.Normal[2] / l}
		p.Distance /= l
	}
	return p
}

// SignedDistance returns the signed distance from a point to the plane. Positive values lie on the
// inside of a frustum plane.
//
// Parameters:
//   - p: world-space point
//
// Returns:
//   - float32: signed distance in world units
func (pl Plane) SignedDistance(p [3]float32) float32 {
	return pl.Normal[0]*p[0] + pl.Normal[1]*p[1] + pl.Normal[2]*p[2] + pl.Distance
}

// IntersectsSphere reports whether a sphere lies at least partly inside every plane.
//
// Parameters:
//   - center: sphere center in world space
//   - radius: sphere radius in world units
//
// Returns:
//   - bool: true if the sphere is not fully outside any plane
func (f *Frustum) IntersectsSphere(center [3]float32, radius float32) bool {
	for i := range f.Planes {
		if f.Planes[i].SignedDistance(center) < -radius {
			return false
		}
	}
	return true
}
