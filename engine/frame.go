package engine

import (
	"fmt"
	"time"

	"github.com/Carmen-Shannon/oxy-fluid/engine/mpm"
)

// Frame is what the presentation layer receives once a frame's batch has completed.
// PosVel and Mask alias solver and culler memory and are valid until the next frame starts.
type Frame struct {
	Index    int
	Live     int
	Visible  int
	Substeps int
	Paused   bool
	Extent   [3]float32
	PosVel   []mpm.PosVel
	// Mask is nil when culling is off, meaning every particle is visible.
	Mask    []uint32
	Elapsed time.Duration
}

// Uniforms is the block shared with the presentation layer. BoxSize is written by the
// engine from the boundary controller; TexelSize and SphereSize are opaque to the
// simulation.
type Uniforms struct {
	BoxSize    [3]float32
	TexelSize  [2]float32
	SphereSize float32
}

// Title formats the frame as a one-line status for a window title.
//
// Parameters:
//   - prefix: application name
//
// Returns:
//   - string: the status line
func (f Frame) Title(prefix string) string {
	state := ""
	if f.Paused {
		state = " [paused]"
	}
	return fmt.Sprintf("%s | frame %d | %d particles (%d visible) | %d substeps | box %.1f x %.1f x %.1f | %.1f ms%s",
		prefix, f.Index, f.Live, f.Visible, f.Substeps, f.Extent[0], f.Extent[1], f.Extent[2],
		float64(f.Elapsed.Microseconds())/1000, state)
}
