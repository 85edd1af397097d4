package boundary

// SimulationClock is the phase accumulator driving the moving wall. It advances only while
// running and is independent of wall-clock time.
type SimulationClock struct {
	phase  float64
	speed  float64
	paused bool
}

// NewSimulationClock creates a running clock at phase zero.
//
// Parameters:
//   - speed: phase advanced per unit of simulated time
//
// Returns:
//   - *SimulationClock: the new clock
func NewSimulationClock(speed float64) *SimulationClock {
	return &SimulationClock{speed: speed}
}

// Advance moves the phase forward by dt * speed unless the clock is paused.
//
// Parameters:
//   - dt: elapsed simulated time
//
// Returns:
//   - float64: the phase after advancing
func (c *SimulationClock) Advance(dt float64) float64 {
	if !c.paused && dt > 0 {
		c.phase += dt * c.speed
	}
	return c.phase
}

// Phase returns the current phase in radians.
func (c *SimulationClock) Phase() float64 {
	return c.phase
}

// SetPaused stops or resumes the clock.
func (c *SimulationClock) SetPaused(paused bool) {
	c.paused = paused
}

// Rewind sets the phase back to zero.
func (c *SimulationClock) Rewind() {
	c.phase = 0
}
