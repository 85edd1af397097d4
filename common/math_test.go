package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMul4WithIdentity(t *testing.T) {
	id := Identity()
	m := [16]float32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	assert.Equal(t, m, Mul4(id, m))
	assert.Equal(t, m, Mul4(m, id))
}

func TestMul4ComposesTranslations(t *testing.T) {
	a, b := Identity(), Identity()
	a[12] = 2
	b[13] = -3

	out := Mul4(a, b)
	assert.Equal(t, float32(2), out[12])
	assert.Equal(t, float32(-3), out[13])
	assert.Equal(t, float32(1), out[15])
}

func TestLookAtMapsTargetOntoNegativeZ(t *testing.T) {
	view := LookAt([3]float32{3, 4, 10}, [3]float32{3, 4, 0}, [3]float32{0, 1, 0})

	// Transform the target (3, 4, 0, 1).
	x := view[0]*3 + view[4]*4 + view[12]
	y := view[1]*3 + view[5]*4 + view[13]
	z := view[2]*3 + view[6]*4 + view[14]
	assert.InDelta(t, 0, x, 1e-5)
	assert.InDelta(t, 0, y, 1e-5)
	assert.InDelta(t, -10, z, 1e-5)
}

func TestPerspectiveMapsNearAndFarToClipDepth(t *testing.T) {
	proj := Perspective(1, 1, 0.5, 50)
	depth := func(z float32) float32 {
		clipZ := proj[10]*z + proj[14]
		clipW := proj[11] * z
		return clipZ / clipW
	}
	assert.InDelta(t, 0, depth(-0.5), 1e-5)
	assert.InDelta(t, 1, depth(-50), 1e-5)
}

func TestBytesToSliceViewsFloats(t *testing.T) {
	src := []float32{1.5, -2, 3.25}
	got := BytesToSlice[float32](SliceToBytes(src))
	assert.Equal(t, src, got)

	assert.Nil(t, BytesToSlice[float32]([]byte{1, 2}))
	assert.Nil(t, BytesToSlice[float32](nil))
}
