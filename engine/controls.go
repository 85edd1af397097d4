package engine

import "sync"

const (
	// MinSubsteps and MaxSubsteps bound the substep control.
	MinSubsteps = 1
	MaxSubsteps = 4

	// DefaultInjectCount and DefaultInjectRadius describe the sphere dropped by Inject.
	DefaultInjectCount          = 10000
	DefaultInjectRadius float32 = 5
)

// Controls is the host control surface. Setters may be called from any goroutine; the
// engine applies them at the start of the next frame.
type Controls interface {
	// SetPaused stops or resumes the solver. A paused engine still culls and presents.
	SetPaused(paused bool)

	// TogglePause flips the pause flag.
	//
	// Returns:
	//   - bool: the new pause state
	TogglePause() bool

	// Paused reports the requested pause state.
	Paused() bool

	// SetSubsteps sets the substeps per frame, clamped to [MinSubsteps, MaxSubsteps].
	//
	// Parameters:
	//   - n: requested substep count
	//
	// Returns:
	//   - int: the clamped value that will be applied
	SetSubsteps(n int) int

	// Substeps returns the requested substep count.
	Substeps() int

	// SetAmplitude sets the wall oscillation amplitude. Negative values become 0.
	SetAmplitude(a float32)

	// Amplitude returns the requested wall oscillation amplitude.
	Amplitude() float32

	// SetCulling turns the visibility pass on or off. With culling off every particle is
	// presented.
	SetCulling(enabled bool)

	// Culling reports whether the visibility pass is requested.
	Culling() bool

	// Inject queues the default sphere at the center of the current domain.
	Inject()

	// InjectSphere queues a sphere with explicit parameters.
	//
	// Parameters:
	//   - center: sphere center in world units
	//   - radius: sphere radius in world units
	//   - count: particles to insert
	InjectSphere(center [3]float32, radius float32, count int)

	// Reset queues a reseed of the initial particle count and rewinds the wall.
	Reset()
}

// injectRequest is a queued sphere; atCenter places it at the domain center when applied.
type injectRequest struct {
	center   [3]float32
	radius   float32
	count    int
	atCenter bool
}

// controlState is the snapshot the engine applies once per frame.
type controlState struct {
	paused    bool
	substeps  int
	amplitude float32
	culling   bool
	injects   []injectRequest
	reset     bool
}

type controls struct {
	mu    sync.Mutex
	state controlState

	injectCount  int
	injectRadius float32
}

var _ Controls = &controls{}

func newControls(substeps int, amplitude float32, culling bool, injectCount int, injectRadius float32) *controls {
	return &controls{
		state: controlState{
			substeps:  clampSubsteps(substeps),
			amplitude: max(amplitude, 0),
			culling:   culling,
		},
		injectCount:  injectCount,
		injectRadius: injectRadius,
	}
}

func clampSubsteps(n int) int {
	return min(max(n, MinSubsteps), MaxSubsteps)
}

// take returns the current state and clears the one-shot requests.
func (c *controls) take() controlState {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.state
	c.state.injects = nil
	c.state.reset = false
	return s
}

func (c *controls) SetPaused(paused bool) {
	c.mu.Lock()
	c.state.paused = paused
	c.mu.Unlock()
}

func (c *controls) TogglePause() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.paused = !c.state.paused
	return c.state.paused
}

func (c *controls) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.paused
}

func (c *controls) SetSubsteps(n int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.substeps = clampSubsteps(n)
	return c.state.substeps
}

func (c *controls) Substeps() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.substeps
}

func (c *controls) SetAmplitude(a float32) {
	c.mu.Lock()
	c.state.amplitude = max(a, 0)
	c.mu.Unlock()
}

func (c *controls) Amplitude() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.amplitude
}

func (c *controls) SetCulling(enabled bool) {
	c.mu.Lock()
	c.state.culling = enabled
	c.mu.Unlock()
}

func (c *controls) Culling() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.culling
}

func (c *controls) Inject() {
	c.mu.Lock()
	c.state.injects = append(c.state.injects, injectRequest{
		radius:   c.injectRadius,
		count:    c.injectCount,
		atCenter: true,
	})
	c.mu.Unlock()
}

func (c *controls) InjectSphere(center [3]float32, radius float32, count int) {
	c.mu.Lock()
	c.state.injects = append(c.state.injects, injectRequest{center: center, radius: radius, count: count})
	c.mu.Unlock()
}

func (c *controls) Reset() {
	c.mu.Lock()
	c.state.reset = true
	c.mu.Unlock()
}
