package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gocarina/gocsv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-fluid/common"
	"github.com/Carmen-Shannon/oxy-fluid/engine/boundary"
	"github.com/Carmen-Shannon/oxy-fluid/engine/compute"
	"github.com/Carmen-Shannon/oxy-fluid/engine/culler"
	"github.com/Carmen-Shannon/oxy-fluid/engine/mpm"
	"github.com/Carmen-Shannon/oxy-fluid/engine/telemetry"
)

const (
	testCapacity = 2000
	testInitial  = 500
)

type fixture struct {
	engine *engine
	solver mpm.Solver
	device compute.Device
}

func newFixture(t *testing.T, controller boundary.Controller, options ...EngineBuilderOption) fixture {
	t.Helper()
	if controller == nil {
		controller = boundary.NewController([3]float32{12, 12, 12})
	}
	dev := compute.NewHostDevice(compute.WithWorkers(2), compute.WithChunkSize(64))
	t.Cleanup(dev.Close)

	s, err := mpm.NewSolver(testCapacity, 1, controller.MaxExtent(), mpm.WithSubsteps(2))
	require.NoError(t, err)
	c, err := culler.NewCuller(testCapacity)
	require.NoError(t, err)

	opts := append([]EngineBuilderOption{
		WithInitialParticles(testInitial),
		WithVisibility(NewHostVisibility(c, s), true),
		WithInjection(100, 2),
	}, options...)
	e, err := NewEngine(dev, s, controller, opts...)
	require.NoError(t, err)
	return fixture{engine: e.(*engine), solver: s, device: dev}
}

func snapshot(s mpm.Solver) []mpm.Particle {
	return append([]mpm.Particle(nil), s.Particles()...)
}

func TestStepPresentsFrame(t *testing.T) {
	fx := newFixture(t, nil)

	var presented []int
	fx.engine.SetPresentCallback(func(f Frame) {
		presented = append(presented, f.Index)
	})

	f, err := fx.engine.Step()
	require.NoError(t, err)
	assert.Equal(t, 0, f.Index)
	assert.Equal(t, testInitial, f.Live)
	assert.Len(t, f.PosVel, testInitial)
	assert.Len(t, f.Mask, testCapacity)
	assert.LessOrEqual(t, f.Visible, f.Live)
	assert.Equal(t, 2, f.Substeps)
	assert.Equal(t, [3]float32{12, 12, 12}, f.Extent)
	assert.Equal(t, f.Extent, fx.engine.Uniforms().BoxSize)

	f, err = fx.engine.Step()
	require.NoError(t, err)
	assert.Equal(t, 1, f.Index)
	assert.Equal(t, []int{0, 1}, presented)
}

func TestStepPresentsCompletedBatch(t *testing.T) {
	fx := newFixture(t, nil)
	before := snapshot(fx.solver)

	var presented []mpm.PosVel
	fx.engine.SetPresentCallback(func(f Frame) {
		presented = append([]mpm.PosVel(nil), f.PosVel...)
	})
	f, err := fx.engine.Step()
	require.NoError(t, err)

	after := fx.solver.Particles()
	require.Len(t, presented, testInitial)
	moved := false
	for i, pv := range presented {
		assert.Equal(t, after[i].Position, pv.Position, "particle %d", i)
		assert.Equal(t, after[i].Velocity, pv.Velocity, "particle %d", i)
		if before[i].Position != pv.Position {
			moved = true
		}
	}
	assert.True(t, moved, "presented positions must include this frame's substeps")
	assert.Equal(t, presented, f.PosVel)
}

func TestNewEngineRejectsOverCapacitySeed(t *testing.T) {
	controller := boundary.NewController([3]float32{8, 8, 8})
	dev := compute.NewHostDevice()
	defer dev.Close()
	s, err := mpm.NewSolver(10, 1, controller.MaxExtent())
	require.NoError(t, err)

	_, err = NewEngine(dev, s, controller, WithInitialParticles(11))
	assert.ErrorIs(t, err, mpm.ErrCapacityExceeded)
}

func TestPauseFreezesParticles(t *testing.T) {
	fx := newFixture(t, nil)
	_, err := fx.engine.Step()
	require.NoError(t, err)

	fx.engine.Controls().SetPaused(true)
	f, err := fx.engine.Step()
	require.NoError(t, err)
	assert.True(t, f.Paused)
	frozen := snapshot(fx.solver)

	_, err = fx.engine.Step()
	require.NoError(t, err)
	assert.Equal(t, frozen, snapshot(fx.solver))

	fx.engine.Controls().SetPaused(false)
	_, err = fx.engine.Step()
	require.NoError(t, err)
	assert.NotEqual(t, frozen, snapshot(fx.solver))
}

func TestSubstepControlIsClamped(t *testing.T) {
	fx := newFixture(t, nil)
	c := fx.engine.Controls()

	assert.Equal(t, MaxSubsteps, c.SetSubsteps(9))
	f, err := fx.engine.Step()
	require.NoError(t, err)
	assert.Equal(t, MaxSubsteps, f.Substeps)

	assert.Equal(t, MinSubsteps, c.SetSubsteps(0))
	f, err = fx.engine.Step()
	require.NoError(t, err)
	assert.Equal(t, MinSubsteps, f.Substeps)
}

func TestInjectAddsSphereAtDomainCenter(t *testing.T) {
	fx := newFixture(t, nil)
	fx.engine.Controls().Inject()

	f, err := fx.engine.Step()
	require.NoError(t, err)
	require.Equal(t, testInitial+100, f.Live)

	// One frame of motion is far below a cell.
	for _, p := range fx.solver.Particles()[testInitial:] {
		var d2 float32
		for k := 0; k < 3; k++ {
			d := p.Position[k] - 6
			d2 += d * d
		}
		assert.LessOrEqual(t, d2, float32(2.5*2.5))
	}
}

func TestPartialInjectionKeepsRunning(t *testing.T) {
	fx := newFixture(t, nil)
	fx.engine.Controls().InjectSphere([3]float32{6, 6, 6}, 4, 5000)

	f, err := fx.engine.Step()
	require.NoError(t, err)
	assert.Equal(t, testCapacity, f.Live)

	f, err = fx.engine.Step()
	require.NoError(t, err)
	assert.Equal(t, testCapacity, f.Live)
}

func TestResetReseedsInitialCount(t *testing.T) {
	controller := boundary.NewController([3]float32{12, 12, 12}, boundary.WithAmplitude(0.5), boundary.WithSpeed(1))
	fx := newFixture(t, controller)
	fx.engine.Controls().Inject()
	f, err := fx.engine.Step()
	require.NoError(t, err)
	require.Equal(t, testInitial+100, f.Live)
	require.NotEqual(t, controller.BaseExtent(), f.Extent)

	fx.engine.Controls().Reset()
	f, err = fx.engine.Step()
	require.NoError(t, err)
	assert.Equal(t, testInitial, f.Live)
}

func TestCullingToggle(t *testing.T) {
	fx := newFixture(t, nil)
	fx.engine.Controls().SetCulling(false)

	f, err := fx.engine.Step()
	require.NoError(t, err)
	assert.Nil(t, f.Mask)
	assert.Equal(t, f.Live, f.Visible)
}

func TestCullingHidesParticlesBehindCamera(t *testing.T) {
	fx := newFixture(t, nil)
	// Slide the camera along its view axis until the box is well behind the eye.
	cam := fx.engine.Camera()
	pos, target := cam.Position(), cam.Target()
	var away [3]float32
	for k := 0; k < 3; k++ {
		away[k] = target[k] - 4*(pos[k]-target[k])
	}
	cam.SetTarget(away)

	f, err := fx.engine.Step()
	require.NoError(t, err)
	assert.Zero(t, f.Visible)
}

func TestWallMovesSolverDomain(t *testing.T) {
	controller := boundary.NewController([3]float32{12, 12, 12}, boundary.WithAmplitude(0.5), boundary.WithSpeed(1))
	fx := newFixture(t, controller)

	f, err := fx.engine.Step()
	require.NoError(t, err)
	assert.Greater(t, f.Extent[2], float32(12))
	assert.Equal(t, f.Extent, fx.solver.Domain())
	assert.Equal(t, f.Extent, fx.engine.Uniforms().BoxSize)

	fx.engine.Controls().SetAmplitude(0)
	f, err = fx.engine.Step()
	require.NoError(t, err)
	assert.Equal(t, float32(12), f.Extent[2])
}

func TestDeviceLossStopsFrames(t *testing.T) {
	fx := newFixture(t, nil)
	fx.device.Close()

	_, err := fx.engine.Step()
	assert.ErrorIs(t, err, ErrSimulationUnavailable)
	assert.ErrorIs(t, err, compute.ErrDeviceLost)

	_, err = fx.engine.Step()
	assert.ErrorIs(t, err, ErrSimulationUnavailable)
	assert.ErrorIs(t, fx.engine.Run(), ErrSimulationUnavailable)
}

func TestRunHeadlessWritesTelemetry(t *testing.T) {
	dir := t.TempDir()
	rec, err := telemetry.NewRecorder(dir, "frames.csv", 2)
	require.NoError(t, err)

	fx := newFixture(t, nil, WithFrameLimit(5), WithRecorder(rec))
	require.NoError(t, fx.engine.Run())

	var rows []telemetry.FrameStats
	require.NoError(t, gocsv.UnmarshalFile(mustOpen(t, filepath.Join(dir, "frames.csv")), &rows))
	require.Len(t, rows, 3)
	assert.Equal(t, []int{0, 2, 4}, []int{rows[0].Frame, rows[1].Frame, rows[2].Frame})
	assert.Equal(t, testInitial, rows[2].Live)
}

func TestHandleKeyMapsControls(t *testing.T) {
	fx := newFixture(t, nil)
	e := fx.engine
	c := e.controls

	e.handleKey(common.Key3)
	assert.Equal(t, 3, c.Substeps())

	e.handleKey(common.KeyP)
	assert.True(t, c.Paused())
	e.handleKey(common.KeySpace)
	assert.False(t, c.Paused())

	e.handleKey(common.KeyC)
	assert.False(t, c.Culling())

	e.handleKey(common.KeyUp)
	assert.InDelta(t, amplitudeStep, c.Amplitude(), 1e-6)
	e.handleKey(common.KeyDown)
	e.handleKey(common.KeyDown)
	assert.Zero(t, c.Amplitude())

	e.handleKey(common.KeyI)
	e.handleKey(common.KeyR)
	st := c.take()
	assert.Len(t, st.injects, 1)
	assert.True(t, st.injects[0].atCenter)
	assert.True(t, st.reset)

	st = c.take()
	assert.Empty(t, st.injects)
	assert.False(t, st.reset)

	before := e.camera.Position()
	e.handleKey(common.KeyLeft)
	assert.NotEqual(t, before, e.camera.Position())

	e.handleKey(common.KeyEsc)
	select {
	case <-e.quitChannel:
	default:
		t.Fatal("escape did not signal quit")
	}
}

func TestFrameTitle(t *testing.T) {
	f := Frame{Index: 3, Live: 10, Visible: 7, Substeps: 2, Paused: true, Extent: [3]float32{1, 2, 3}}
	title := f.Title("oxy")
	assert.Contains(t, title, "frame 3")
	assert.Contains(t, title, "10 particles (7 visible)")
	assert.Contains(t, title, "[paused]")
}

func mustOpen(t *testing.T, path string) *os.File {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}
