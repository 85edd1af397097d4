package boundary

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSetter struct {
	got [3]float32
	err error
}

func (r *recordingSetter) ChangeDomain(extent [3]float32) error {
	if r.err != nil {
		return r.err
	}
	r.got = extent
	return nil
}

func TestControllerFollowsSineWave(t *testing.T) {
	base := [3]float32{40, 30, 20}
	c := NewController(base, WithAmplitude(0.5), WithSpeed(1))

	assert.Equal(t, base, c.Extent())

	e := c.Advance(float32(math.Pi / 2))
	assert.Equal(t, base[0], e[0])
	assert.Equal(t, base[1], e[1])
	assert.InDelta(t, 30, e[2], 1e-4)

	e = c.Advance(float32(math.Pi))
	assert.InDelta(t, 10, e[2], 1e-4)
}

func TestControllerClampsRatio(t *testing.T) {
	base := [3]float32{10, 10, 10}
	c := NewController(base, WithAmplitude(5), WithSpeed(1))

	e := c.Advance(float32(math.Pi / 2))
	assert.InDelta(t, 20, e[2], 1e-4)

	e = c.Advance(float32(math.Pi))
	assert.InDelta(t, 2, e[2], 1e-4)

	assert.Equal(t, [3]float32{10, 10, 20}, c.MaxExtent())
}

func TestControllerMinimumExtent(t *testing.T) {
	c := NewController([3]float32{10, 10, 10}, WithAmplitude(5), WithSpeed(1), WithMinimumExtent(3))
	e := c.Advance(float32(3 * math.Pi / 2))
	assert.Equal(t, float32(3), e[2])
}

func TestControllerAxisSelection(t *testing.T) {
	c := NewController([3]float32{10, 10, 10}, WithAxis(AxisY), WithAmplitude(0.5), WithSpeed(1))
	e := c.Advance(float32(math.Pi / 2))
	assert.Equal(t, [3]float32{10, 15, 10}, e)
	assert.Equal(t, [3]float32{10, 20, 10}, c.MaxExtent())
}

func TestControllerPauseFreezesWall(t *testing.T) {
	c := NewController([3]float32{10, 10, 10}, WithAmplitude(0.5), WithSpeed(1))
	first := c.Advance(0.3)

	c.SetPaused(true)
	assert.Equal(t, first, c.Advance(1))

	c.SetPaused(false)
	assert.NotEqual(t, first, c.Advance(1))

	c.Reset()
	assert.Equal(t, c.BaseExtent(), c.Extent())
}

func TestControllerZeroAmplitudeIsStatic(t *testing.T) {
	base := [3]float32{12, 8, 6}
	c := NewController(base)
	for i := 0; i < 10; i++ {
		assert.Equal(t, base, c.Advance(0.7))
	}
	c.SetAmplitude(-1)
	assert.Zero(t, c.Amplitude())
}

func TestControllerApply(t *testing.T) {
	c := NewController([3]float32{10, 10, 10}, WithAmplitude(0.5), WithSpeed(1))
	c.Advance(1)

	r := &recordingSetter{}
	require.NoError(t, c.Apply(r))
	assert.Equal(t, c.Extent(), r.got)

	sentinel := errors.New("out of range")
	r.err = sentinel
	assert.ErrorIs(t, c.Apply(r), sentinel)
}
