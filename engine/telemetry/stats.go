// Package telemetry summarizes simulation frames and appends them to a CSV log.
package telemetry

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/Carmen-Shannon/oxy-fluid/engine/mpm"
)

// FrameStats is one row of the frame log.
type FrameStats struct {
	Frame      int     `csv:"frame"`
	Live       int     `csv:"live"`
	Visible    int     `csv:"visible"`
	Substeps   int     `csv:"substeps"`
	ExtentX    float32 `csv:"extent_x"`
	ExtentY    float32 `csv:"extent_y"`
	ExtentZ    float32 `csv:"extent_z"`
	MeanHeight float64 `csv:"mean_height"`
	StdHeight  float64 `csv:"std_height"`
	P95Height  float64 `csv:"p95_height"`
	MeanSpeed  float64 `csv:"mean_speed"`
	MaxSpeed   float64 `csv:"max_speed"`
	FrameMs    float64 `csv:"frame_ms"`
}

// Summarize reduces the presentation view of one frame to a stats row.
//
// Parameters:
//   - frame: frame number
//   - view: position/velocity records of the live particles
//   - visible: number of particles that passed culling
//   - extent: domain extent used by the frame
//   - substeps: substeps recorded for the frame
//   - elapsed: wall time spent on the frame
//
// Returns:
//   - FrameStats: the summary row
func Summarize(frame int, view []mpm.PosVel, visible int, extent [3]float32, substeps int, elapsed time.Duration) FrameStats {
	s := FrameStats{
		Frame:    frame,
		Live:     len(view),
		Visible:  visible,
		Substeps: substeps,
		ExtentX:  extent[0],
		ExtentY:  extent[1],
		ExtentZ:  extent[2],
		FrameMs:  float64(elapsed.Microseconds()) / 1000,
	}
	if len(view) == 0 {
		return s
	}

	heights := make([]float64, len(view))
	speeds := make([]float64, len(view))
	for i, pv := range view {
		v := pv.Velocity
		heights[i] = float64(pv.Position[1])
		speeds[i] = math.Sqrt(float64(v[0]*v[0] + v[1]*v[1] + v[2]*v[2]))
	}

	s.MeanHeight, s.StdHeight = stat.MeanStdDev(heights, nil)
	if math.IsNaN(s.StdHeight) {
		s.StdHeight = 0
	}
	sort.Float64s(heights)
	s.P95Height = stat.Quantile(0.95, stat.Empirical, heights, nil)

	s.MeanSpeed = stat.Mean(speeds, nil)
	for _, v := range speeds {
		s.MaxSpeed = max(s.MaxSpeed, v)
	}
	return s
}
