package engine

import (
	"time"

	"github.com/Carmen-Shannon/oxy-fluid/engine/camera"
	"github.com/Carmen-Shannon/oxy-fluid/engine/profiler"
	"github.com/Carmen-Shannon/oxy-fluid/engine/telemetry"
	"github.com/Carmen-Shannon/oxy-fluid/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled.Store(enabled)
	}
}

// WithProfiler replaces the default profiler.
//
// Parameters:
//   - p: a configured profiler
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiler(p *profiler.Profiler) EngineBuilderOption {
	return func(e *engine) {
		e.profiler = p
	}
}

// WithTickRate sets the windowed frame rate in frames per second.
// Values <= 0 will be treated as the default (60Hz).
//
// Parameters:
//   - fps: target frames per second (default 60)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			fps = 60.0
		}
		e.engineTickRate = time.Duration(float64(time.Second) / fps)
	}
}

// WithFrameTime sets how far the wall oscillation clock advances per frame, in simulation
// time units. The solver's own step is fixed by its parameters.
//
// Parameters:
//   - dt: clock advance per frame (>= 0)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithFrameTime(dt float32) EngineBuilderOption {
	return func(e *engine) {
		if dt >= 0 {
			e.frameTime = dt
		}
	}
}

// WithFrameLimit stops a headless Run after n frames. 0 runs until Quit.
//
// Parameters:
//   - n: frame count
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithFrameLimit(n int) EngineBuilderOption {
	return func(e *engine) {
		e.frameLimit = max(n, 0)
	}
}

// WithInitialParticles sets the particle count seeded at construction and on reset.
//
// Parameters:
//   - n: particle count
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithInitialParticles(n int) EngineBuilderOption {
	return func(e *engine) {
		e.initialParticles = n
	}
}

// WithInjection sets the sphere dropped by Controls.Inject.
//
// Parameters:
//   - count: particles per injection
//   - radius: sphere radius in world units
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithInjection(count int, radius float32) EngineBuilderOption {
	return func(e *engine) {
		e.injectCount = count
		e.injectRadius = radius
	}
}

// WithVisibility sets the culling stage. Without one every particle is presented.
//
// Parameters:
//   - v: the visibility stage, recording for the engine's device
//   - enabled: initial state of the culling control
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithVisibility(v Visibility, enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.visibility = v
		e.culling = enabled
	}
}

// WithCamera sets the camera that supplies the view-projection matrix.
//
// Parameters:
//   - c: the camera
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithCamera(c camera.Camera) EngineBuilderOption {
	return func(e *engine) {
		e.camera = c
	}
}

// WithWindow attaches a control window. Run then drives frames from a ticker while the
// calling goroutine runs the window message loop.
//
// Parameters:
//   - w: a window created on the main goroutine
//   - title: prefix of the status shown in the title bar
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window, title string) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
		if title != "" {
			e.title = title
		}
	}
}

// WithRecorder appends frame statistics to a telemetry recorder.
//
// Parameters:
//   - r: the recorder (nil disables telemetry)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRecorder(r *telemetry.Recorder) EngineBuilderOption {
	return func(e *engine) {
		e.recorder = r
	}
}

// WithSphereSize sets the sphere size published in the uniform block.
//
// Parameters:
//   - size: presentation sphere radius in world units
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithSphereSize(size float32) EngineBuilderOption {
	return func(e *engine) {
		e.uniforms.SphereSize = size
	}
}
