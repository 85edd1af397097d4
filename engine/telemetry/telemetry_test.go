package telemetry

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-fluid/engine/mpm"
)

func TestSummarize(t *testing.T) {
	view := []mpm.PosVel{
		{Position: [3]float32{1, 2, 1}, Velocity: [3]float32{3, 4, 0}},
		{Position: [3]float32{1, 4, 1}, Velocity: [3]float32{0, 0, 0}},
		{Position: [3]float32{1, 6, 1}, Velocity: [3]float32{0, -1, 0}},
	}
	s := Summarize(7, view, 2, [3]float32{10, 20, 30}, 2, 16*time.Millisecond)

	assert.Equal(t, 7, s.Frame)
	assert.Equal(t, 3, s.Live)
	assert.Equal(t, 2, s.Visible)
	assert.Equal(t, float32(30), s.ExtentZ)
	assert.InDelta(t, 4, s.MeanHeight, 1e-9)
	assert.InDelta(t, 2, s.StdHeight, 1e-9)
	assert.InDelta(t, 6, s.P95Height, 1e-9)
	assert.InDelta(t, 2, s.MeanSpeed, 1e-9)
	assert.InDelta(t, 5, s.MaxSpeed, 1e-9)
	assert.InDelta(t, 16, s.FrameMs, 1e-9)
}

func TestSummarizeEmptyFrame(t *testing.T) {
	s := Summarize(0, nil, 0, [3]float32{1, 1, 1}, 1, 0)
	assert.Zero(t, s.Live)
	assert.Zero(t, s.MeanHeight)
}

func TestRecorderWritesHeaderOnce(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	r, err := NewRecorder(dir, "frames.csv", 2)
	require.NoError(t, err)

	for frame := 0; frame < 6; frame++ {
		if r.Due(frame) {
			require.NoError(t, r.Write(FrameStats{Frame: frame, Live: frame * 10}))
		}
	}
	require.NoError(t, r.Close())

	f, err := os.Open(filepath.Join(dir, "frames.csv"))
	require.NoError(t, err)
	defer f.Close()

	var rows []FrameStats
	require.NoError(t, gocsv.UnmarshalFile(f, &rows))
	require.Len(t, rows, 3)
	assert.Equal(t, []int{0, 2, 4}, []int{rows[0].Frame, rows[1].Frame, rows[2].Frame})
	assert.Equal(t, 40, rows[2].Live)
}

func TestNilRecorderIsDisabled(t *testing.T) {
	r, err := NewRecorder("", "frames.csv", 1)
	require.NoError(t, err)
	assert.Nil(t, r)
	assert.False(t, r.Due(0))
	assert.NoError(t, r.Write(FrameStats{}))
	assert.NoError(t, r.Close())
}
