package window

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDragStateReportsDeltasWhileHeld(t *testing.T) {
	var d dragState

	_, _, ok := d.move(10, 10)
	assert.False(t, ok)

	d.begin(10, 20)
	dx, dy, ok := d.move(15, 18)
	assert.True(t, ok)
	assert.Equal(t, float32(5), dx)
	assert.Equal(t, float32(-2), dy)

	dx, dy, ok = d.move(15, 30)
	assert.True(t, ok)
	assert.Equal(t, float32(0), dx)
	assert.Equal(t, float32(12), dy)

	d.end()
	_, _, ok = d.move(0, 0)
	assert.False(t, ok)
}

func TestTitleQueue(t *testing.T) {
	w := &engineWindow{}

	_, ok := w.takeTitle()
	assert.False(t, ok)

	w.SetTitle("first")
	w.SetTitle("second")
	title, ok := w.takeTitle()
	assert.True(t, ok)
	assert.Equal(t, "second", title)

	_, ok = w.takeTitle()
	assert.False(t, ok)
	assert.False(t, w.IsRunning())
}
