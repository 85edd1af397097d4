package main

import (
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/Carmen-Shannon/oxy-fluid/config"
	"github.com/Carmen-Shannon/oxy-fluid/engine"
	"github.com/Carmen-Shannon/oxy-fluid/engine/boundary"
	"github.com/Carmen-Shannon/oxy-fluid/engine/camera"
	"github.com/Carmen-Shannon/oxy-fluid/engine/compute"
	"github.com/Carmen-Shannon/oxy-fluid/engine/culler"
	"github.com/Carmen-Shannon/oxy-fluid/engine/gpu"
	"github.com/Carmen-Shannon/oxy-fluid/engine/mpm"
	"github.com/Carmen-Shannon/oxy-fluid/engine/profiler"
	"github.com/Carmen-Shannon/oxy-fluid/engine/telemetry"
	"github.com/Carmen-Shannon/oxy-fluid/engine/window"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config (empty = built-in defaults)")
	windowed := flag.Bool("window", false, "Open the control window")
	backend := flag.String("backend", "", "Compute backend: cpu or webgpu (empty = config)")
	fallback := flag.Bool("fallback-adapter", false, "Use the software WebGPU adapter")
	frames := flag.Int("frames", -1, "Stop a headless run after N frames (0 = unlimited, -1 = config)")
	outputDir := flag.String("output-dir", "", "Directory for the telemetry CSV and config snapshot")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("[Main] %v", err)
	}
	if *backend != "" {
		cfg.Engine.Backend = *backend
	}
	if *frames >= 0 {
		cfg.Engine.Frames = *frames
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[Main] %v", err)
	}

	if err := run(cfg, *windowed, *fallback, *outputDir); err != nil {
		log.Printf("[Main] %v", err)
		os.Exit(1)
	}
}

// components are the backend-specific parts of the simulation.
type components struct {
	device     compute.Device
	solver     mpm.Solver
	visibility engine.Visibility
	release    func()
}

func run(cfg *config.Config, windowed, fallback bool, outputDir string) error {
	axis, err := cfg.Axis()
	if err != nil {
		return err
	}
	controller := boundary.NewController(cfg.Simulation.Box,
		boundary.WithAxis(axis),
		boundary.WithAmplitude(cfg.Boundary.Amplitude),
		boundary.WithSpeed(cfg.Boundary.Speed),
		boundary.WithRatioRange(cfg.Boundary.MinRatio, cfg.Boundary.MaxRatio),
		boundary.WithMinimumExtent(3*cfg.Simulation.CellSize),
	)

	var comp *components
	switch cfg.Engine.Backend {
	case "webgpu":
		comp, err = buildWebGPU(cfg, controller, fallback)
	default:
		comp, err = buildHost(cfg, controller)
	}
	if err != nil {
		return err
	}
	defer comp.release()

	var recorder *telemetry.Recorder
	if cfg.Telemetry.Enabled && outputDir != "" {
		if recorder, err = telemetry.NewRecorder(outputDir, cfg.Telemetry.File, cfg.Telemetry.Interval); err != nil {
			return err
		}
		if err := cfg.WriteYAML(filepath.Join(outputDir, "config.yaml")); err != nil {
			return err
		}
	}

	extent := controller.Extent()
	cam := camera.NewCamera(
		camera.WithTarget([3]float32{extent[0] / 2, extent[1] / 2, extent[2] / 2}),
		camera.WithRadius(cfg.Camera.Radius),
		camera.WithAngles(cfg.Camera.Azimuth, cfg.Camera.Elevation),
		camera.WithFov(cfg.Fov()),
		camera.WithAspect(float32(cfg.Window.Width)/float32(cfg.Window.Height)),
	)

	opts := []engine.EngineBuilderOption{
		engine.WithCamera(cam),
		engine.WithInitialParticles(cfg.Simulation.InitialParticles),
		engine.WithInjection(cfg.Inject.Count, cfg.Inject.Radius),
		engine.WithVisibility(comp.visibility, cfg.Culling.Enabled),
		engine.WithFrameTime(cfg.Engine.FrameTime),
		engine.WithFrameLimit(cfg.Engine.Frames),
		engine.WithRecorder(recorder),
		engine.WithSphereSize(cfg.Culling.Radius),
		engine.WithProfiling(cfg.Profiler.Enabled),
		engine.WithProfiler(profiler.NewProfiler(
			profiler.WithInterval(time.Duration(cfg.Profiler.IntervalSeconds * float64(time.Second))),
		)),
	}

	var win window.Window
	if windowed {
		win = window.NewWindow(
			window.WithTitle(cfg.Window.Title),
			window.WithSize(cfg.Window.Width, cfg.Window.Height),
		)
		opts = append(opts, engine.WithWindow(win, cfg.Window.Title), engine.WithTickRate(60))
	}

	eng, err := engine.NewEngine(comp.device, comp.solver, controller, opts...)
	if err != nil {
		return err
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	go func() {
		<-interrupt
		log.Printf("[Main] interrupted")
		eng.Quit()
	}()

	log.Printf("[Main] %s backend, %d/%d particles, box %v", cfg.Engine.Backend,
		cfg.Simulation.InitialParticles, cfg.Simulation.Capacity, cfg.Simulation.Box)
	err = eng.Run()
	if win != nil {
		// Already closed when the engine quit first.
		_ = win.Close()
	}
	if errors.Is(err, engine.ErrSimulationUnavailable) {
		return err
	}
	return nil
}

func buildHost(cfg *config.Config, controller boundary.Controller) (*components, error) {
	s := cfg.Simulation
	dev := compute.NewHostDevice(
		compute.WithWorkers(cfg.Engine.Workers),
		compute.WithChunkSize(cfg.Engine.ChunkSize),
	)
	solver, err := mpm.NewSolver(s.Capacity, s.CellSize, controller.MaxExtent(),
		mpm.WithParams(cfg.Params()),
		mpm.WithSubsteps(s.Substeps),
		mpm.WithSpacing(s.Spacing),
		mpm.WithJitter(s.Jitter),
		mpm.WithSeed(s.Seed),
		mpm.WithMaxBytes(s.MaxBytes),
	)
	if err != nil {
		dev.Close()
		return nil, err
	}
	c, err := culler.NewCuller(s.Capacity, culler.WithRadius(cfg.Culling.Radius))
	if err != nil {
		dev.Close()
		return nil, err
	}
	return &components{
		device:     dev,
		solver:     solver,
		visibility: engine.NewHostVisibility(c, solver),
		release:    dev.Close,
	}, nil
}

func buildWebGPU(cfg *config.Config, controller boundary.Controller, fallback bool) (*components, error) {
	s := cfg.Simulation
	dev, err := gpu.NewDevice(gpu.WithForceFallbackAdapter(fallback), gpu.WithLabel("oxy-fluid"))
	if err != nil {
		return nil, err
	}
	solver, err := gpu.NewSolver(dev, s.Capacity, s.CellSize, controller.MaxExtent(),
		gpu.WithParams(cfg.Params()),
		gpu.WithSubsteps(s.Substeps),
		gpu.WithSpacing(s.Spacing),
		gpu.WithJitter(s.Jitter),
		gpu.WithSeed(s.Seed),
		gpu.WithMaxBytes(s.MaxBytes),
	)
	if err != nil {
		dev.Close()
		return nil, err
	}
	c, err := gpu.NewCuller(dev, solver, gpu.WithRadius(cfg.Culling.Radius))
	if err != nil {
		solver.Release()
		dev.Close()
		return nil, err
	}
	return &components{
		device:     dev,
		solver:     solver,
		visibility: c,
		release: func() {
			c.Release()
			solver.Release()
			dev.Close()
		},
	}, nil
}
