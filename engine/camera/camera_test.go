package camera

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Carmen-Shannon/oxy-fluid/common"
)

func distance(a, b [3]float32) float64 {
	dx := float64(a[0] - b[0])
	dy := float64(a[1] - b[1])
	dz := float64(a[2] - b[2])
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

func TestCameraOrbitKeepsRadius(t *testing.T) {
	target := [3]float32{32, 16, 16}
	c := NewCamera(WithTarget(target), WithRadius(50))

	assert.InDelta(t, 50, distance(c.Position(), target), 1e-3)
	c.Orbit(0.7, -0.2)
	assert.InDelta(t, 50, distance(c.Position(), target), 1e-3)
}

func TestCameraElevationClamped(t *testing.T) {
	c := NewCamera(WithAngles(0, 0), WithRadius(10))
	c.Orbit(0, 10)
	p := c.Position()
	assert.Less(t, p[1], float32(10))
	assert.Greater(t, p[1], float32(9.9))
}

func TestCameraZoomClamped(t *testing.T) {
	c := NewCamera(WithRadius(20), WithRadiusRange(5, 40))
	c.Zoom(100)
	assert.Equal(t, float32(5), c.Radius())
	c.Zoom(-100)
	assert.Equal(t, float32(40), c.Radius())
}

func TestCameraTargetIsInsideFrustum(t *testing.T) {
	target := [3]float32{10, 5, 8}
	c := NewCamera(WithTarget(target), WithRadius(30), WithAspect(16.0/9.0))

	f := common.ExtractFrustumFromMatrix(c.ViewProjectionMatrix())
	assert.True(t, f.IntersectsSphere(target, 0))

	behind := c.Position()
	for d := 0; d < 3; d++ {
		behind[d] += behind[d] - target[d]
	}
	assert.False(t, f.IntersectsSphere(behind, 0.5))
}
