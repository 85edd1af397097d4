// Package engine runs the simulation host loop: each frame it applies the control surface,
// moves the boundary wall, records the solver substeps and the culling pass into one
// batch, submits it, and hands the finished frame to the presentation callback.
package engine

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-fluid/engine/boundary"
	"github.com/Carmen-Shannon/oxy-fluid/engine/camera"
	"github.com/Carmen-Shannon/oxy-fluid/engine/compute"
	"github.com/Carmen-Shannon/oxy-fluid/engine/culler"
	"github.com/Carmen-Shannon/oxy-fluid/engine/mpm"
	"github.com/Carmen-Shannon/oxy-fluid/engine/profiler"
	"github.com/Carmen-Shannon/oxy-fluid/engine/telemetry"
	"github.com/Carmen-Shannon/oxy-fluid/engine/window"
)

// ErrSimulationUnavailable is returned by Step and Run once the device has been lost. The
// engine issues no further frames.
var ErrSimulationUnavailable = errors.New("engine: simulation unavailable")

// engine implements the Engine interface.
type engine struct {
	tickRateChannel chan time.Duration

	running atomic.Bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once

	window   window.Window
	title    string
	camera   camera.Camera
	controls *controls

	profiler         *profiler.Profiler
	profilingEnabled atomic.Bool
	recorder         *telemetry.Recorder

	device     compute.Device
	solver     mpm.Solver
	controller boundary.Controller
	visibility Visibility

	engineTickRate   time.Duration
	frameTime        float32
	frameLimit       int
	initialParticles int
	injectCount      int
	injectRadius     float32
	culling          bool

	// stepMu serializes frames; Step may be called directly or from the tick goroutine.
	stepMu     sync.Mutex
	frameIndex int
	failure    error

	mu              sync.Mutex
	uniforms        Uniforms
	presentCallback func(Frame)
}

// Engine is the main entry point of the simulator.
type Engine interface {
	// Window returns the control window, or nil when running headless.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Camera returns the camera whose view-projection feeds the culling pass.
	//
	// Returns:
	//   - camera.Camera: the camera
	Camera() camera.Camera

	// Controls returns the host control surface.
	//
	// Returns:
	//   - Controls: pause, substeps, amplitude, culling, inject and reset
	Controls() Controls

	// Uniforms returns a copy of the presentation uniform block.
	//
	// Returns:
	//   - Uniforms: box, texel and sphere sizes
	Uniforms() Uniforms

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the windowed frame rate in frames per second.
	//
	// Parameters:
	//   - fps: target frames per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetPresentCallback registers the function that receives every completed frame.
	//
	// Parameters:
	//   - callback: presentation hook (or nil)
	SetPresentCallback(callback func(Frame))

	// Step runs one frame and blocks until its batch has completed. The presented frame
	// reads the host PosVel copy, which the next batch overwrites, so frames are not
	// pipelined: frame N+1 is recorded only after frame N has been presented.
	//
	// Returns:
	//   - Frame: the presented frame
	//   - error: ErrSimulationUnavailable once the device is lost, or a control error
	Step() (Frame, error)

	// Run drives frames until the window closes, Quit is called, or the frame limit is
	// reached when headless.
	//
	// Returns:
	//   - error: ErrSimulationUnavailable if a headless run lost its device
	Run() error

	// Quit signals the loop to stop. Safe to call multiple times.
	Quit()
}

// NewEngine wires the simulation components and seeds the initial particles.
//
// Parameters:
//   - device: the device the solver and visibility stage record for
//   - solver: the fluid solver; its lattice must cover controller.MaxExtent()
//   - controller: the boundary controller driving the domain
//   - options: functional options for the window, camera, culling, telemetry and pacing
//
// Returns:
//   - Engine: the newly created engine
//   - error: if the initial reset fails
func NewEngine(device compute.Device, solver mpm.Solver, controller boundary.Controller, options ...EngineBuilderOption) (Engine, error) {
	e := &engine{
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		title:           "oxy-fluid",
		device:          device,
		solver:          solver,
		controller:      controller,
		engineTickRate:  time.Second / 60,
		frameTime:       1,
		injectCount:     DefaultInjectCount,
		injectRadius:    DefaultInjectRadius,
		culling:         true,
	}
	for _, opt := range options {
		opt(e)
	}

	extent := controller.Extent()
	if e.camera == nil {
		e.camera = camera.NewCamera(camera.WithTarget([3]float32{extent[0] / 2, extent[1] / 2, extent[2] / 2}))
	}
	if e.profiler == nil {
		e.profiler = profiler.NewProfiler()
	}
	e.controls = newControls(solver.Substeps(), controller.Amplitude(), e.culling, e.injectCount, e.injectRadius)
	e.uniforms.BoxSize = extent
	if e.uniforms.SphereSize == 0 {
		e.uniforms.SphereSize = culler.DefaultRadius
	}

	if err := solver.Reset(e.initialParticles, extent); err != nil {
		return nil, fmt.Errorf("seeding %d particles: %w", e.initialParticles, err)
	}

	if e.window != nil {
		e.bindWindow()
	}
	return e, nil
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Camera() camera.Camera {
	return e.camera
}

func (e *engine) Controls() Controls {
	return e.controls
}

func (e *engine) Uniforms() Uniforms {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.uniforms
}

func (e *engine) EnableProfiler() {
	e.profilingEnabled.Store(true)
}

func (e *engine) DisableProfiler() {
	e.profilingEnabled.Store(false)
}

// SetTickRate sets the tick rate. If the engine is running, the change takes effect
// immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Duration(float64(time.Second) / fps)

	if !e.running.Load() {
		e.engineTickRate = newRate
		return
	}
	// Replace any pending update so the loop sees the newest rate.
	select {
	case e.tickRateChannel <- newRate:
	default:
		select {
		case <-e.tickRateChannel:
		default:
		}
		e.tickRateChannel <- newRate
	}
}

func (e *engine) SetPresentCallback(callback func(Frame)) {
	e.mu.Lock()
	e.presentCallback = callback
	e.mu.Unlock()
}

func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.running.Store(false)
		close(e.quitChannel)
	})
}

func (e *engine) Run() error {
	e.running.Store(true)
	defer func() {
		if err := e.recorder.Close(); err != nil {
			log.Printf("[Engine] closing telemetry: %v", err)
		}
	}()

	if e.window == nil {
		return e.runHeadless()
	}

	e.wg.Add(2)
	go e.handleEngine()
	go e.handleQuit()
	e.window.ProcessMessages()
	e.signalQuit()
	e.wg.Wait()
	return nil
}

// runHeadless steps frames back to back on the calling goroutine.
func (e *engine) runHeadless() error {
	for e.frameLimit <= 0 || e.frameIndex < e.frameLimit {
		select {
		case <-e.quitChannel:
			return nil
		default:
		}
		if _, err := e.Step(); err != nil {
			if errors.Is(err, ErrSimulationUnavailable) {
				return err
			}
			log.Printf("[Engine] frame %d: %v", e.frameIndex, err)
		}
	}
	log.Printf("[Engine] finished %d frames", e.frameIndex)
	return nil
}

// handleEngine runs the fixed-rate frame loop for the windowed mode. A lost device stops
// frames but leaves the window open with the failure shown in its title.
func (e *engine) handleEngine() {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Engine] frame loop recovered from panic: %v", r)
			e.signalQuit()
		}
	}()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			if _, err := e.Step(); err != nil && !errors.Is(err, ErrSimulationUnavailable) {
				log.Printf("[Engine] frame failed: %v", err)
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		}
	}
}

// handleQuit blocks until the quit channel is closed, then decrements the WaitGroup.
func (e *engine) handleQuit() {
	defer e.wg.Done()
	<-e.quitChannel
}

func (e *engine) Step() (Frame, error) {
	e.stepMu.Lock()
	defer e.stepMu.Unlock()

	if e.failure != nil {
		return Frame{}, e.failure
	}
	start := time.Now()
	ctl := e.controls.take()

	if err := e.applyControls(ctl); err != nil {
		return Frame{}, err
	}

	extent := e.controller.Advance(e.frameTime)
	if err := e.controller.Apply(e.solver); err != nil {
		return Frame{}, fmt.Errorf("applying domain: %w", err)
	}
	e.inject(ctl.injects)

	live := e.solver.LiveCount()
	culling := ctl.culling && e.visibility != nil

	batch := e.device.NewBatch(fmt.Sprintf("frame %d", e.frameIndex))
	var err error
	if ctl.paused {
		err = e.solver.Sync(batch)
	} else {
		err = e.solver.Execute(batch)
	}
	if err == nil && culling {
		err = e.visibility.Cull(batch, live, e.camera.ViewProjectionMatrix())
	}
	if err != nil {
		return Frame{}, e.checkLost(err)
	}
	recorded := time.Now()

	tok, err := e.device.Submit(batch)
	if err != nil {
		return Frame{}, e.checkLost(err)
	}
	if err := tok.Wait(); err != nil {
		return Frame{}, e.checkLost(err)
	}
	waited := time.Now()

	f := Frame{
		Index:    e.frameIndex,
		Live:     live,
		Visible:  live,
		Substeps: e.solver.Substeps(),
		Paused:   ctl.paused,
		Extent:   extent,
		PosVel:   e.solver.PosVel(),
		Elapsed:  waited.Sub(start),
	}
	if culling {
		f.Mask = e.visibility.Mask()
		f.Visible = culler.CountVisible(f.Mask, live)
	}
	e.frameIndex++

	e.mu.Lock()
	e.uniforms.BoxSize = extent
	present := e.presentCallback
	e.mu.Unlock()

	if e.recorder.Due(f.Index) {
		stats := telemetry.Summarize(f.Index, f.PosVel, f.Visible, extent, f.Substeps, f.Elapsed)
		if err := e.recorder.Write(stats); err != nil {
			log.Printf("[Engine] telemetry: %v", err)
		}
	}
	if e.profilingEnabled.Load() {
		e.profiler.Record("record", recorded.Sub(start))
		e.profiler.Record("wait", waited.Sub(recorded))
		e.profiler.SetParticles(live)
		e.profiler.Tick()
	}
	if e.window != nil {
		e.window.SetTitle(f.Title(e.title))
	}
	if present != nil {
		present(f)
	}
	return f, nil
}

// applyControls pushes the frame's control snapshot into the controller and solver.
func (e *engine) applyControls(ctl controlState) error {
	if ctl.reset {
		e.controller.Reset()
		if err := e.controller.Apply(e.solver); err != nil {
			return fmt.Errorf("reset: %w", err)
		}
		if err := e.solver.Reset(e.initialParticles, e.controller.Extent()); err != nil {
			return fmt.Errorf("reset: %w", err)
		}
		log.Printf("[Engine] reset to %d particles", e.initialParticles)
	}
	if ctl.substeps != e.solver.Substeps() {
		if err := e.solver.SetSubsteps(ctl.substeps); err != nil {
			return err
		}
	}
	e.controller.SetAmplitude(ctl.amplitude)
	e.controller.SetPaused(ctl.paused)
	return nil
}

// inject applies queued spheres. A clamped insertion keeps the particles that fit.
func (e *engine) inject(requests []injectRequest) {
	for _, r := range requests {
		center := r.center
		if r.atCenter {
			d := e.solver.Domain()
			center = [3]float32{d[0] / 2, d[1] / 2, d[2] / 2}
		}
		n, err := e.solver.AddSphere(center, r.radius, r.count)
		switch {
		case errors.Is(err, mpm.ErrPartialInsertion):
			log.Printf("[Engine] %v", err)
		case err != nil:
			log.Printf("[Engine] inject rejected: %v", err)
			continue
		}
		log.Printf("[Engine] injected %d particles at %v", n, center)
	}
}

// checkLost turns a device loss into the sticky unavailable state.
func (e *engine) checkLost(err error) error {
	if !errors.Is(err, compute.ErrDeviceLost) && !e.device.Lost() {
		return err
	}
	e.failure = fmt.Errorf("%w: %w", ErrSimulationUnavailable, err)
	log.Printf("[Engine] simulation unavailable: %v", err)
	if e.window != nil {
		e.window.SetTitle(e.title + " | simulation unavailable")
	}
	return e.failure
}
