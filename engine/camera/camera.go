// Package camera provides the orbit camera that frames the fluid tank and supplies the
// view-projection matrix consumed by the visibility culler.
package camera

import (
	"math"
	"sync"

	"github.com/Carmen-Shannon/oxy-fluid/common"
)

// Camera orbits a target point on a sphere of adjustable radius. Methods are safe for
// concurrent use: input callbacks steer the camera while the tick loop reads its matrices.
type Camera interface {
	// Position returns the eye position in world space.
	//
	// Returns:
	//   - [3]float32: eye position
	Position() [3]float32

	// Target returns the look-at point.
	//
	// Returns:
	//   - [3]float32: target position
	Target() [3]float32

	// SetTarget moves the look-at point, keeping the orbit angles and radius.
	//
	// Parameters:
	//   - target: new look-at point
	SetTarget(target [3]float32)

	// Orbit rotates the eye around the target. Elevation is clamped short of the poles.
	//
	// Parameters:
	//   - dAzimuth: change of the horizontal angle in radians
	//   - dElevation: change of the vertical angle in radians
	Orbit(dAzimuth, dElevation float32)

	// Zoom moves the eye toward (positive delta) or away from the target.
	//
	// Parameters:
	//   - delta: distance change in world units
	Zoom(delta float32)

	// Radius returns the distance between eye and target.
	Radius() float32

	// SetAspect sets the viewport aspect ratio (width / height).
	//
	// Parameters:
	//   - aspect: the aspect ratio (> 0)
	SetAspect(aspect float32)

	// ViewMatrix returns the column-major view matrix.
	ViewMatrix() [16]float32

	// ProjectionMatrix returns the column-major projection matrix with clip depth in [0, 1].
	ProjectionMatrix() [16]float32

	// ViewProjectionMatrix returns projection * view, column-major.
	//
	// Returns:
	//   - [16]float32: the combined matrix
	ViewProjectionMatrix() [16]float32
}

type camera struct {
	mu sync.Mutex

	target    [3]float32
	radius    float32
	azimuth   float32
	elevation float32

	minRadius, maxRadius       float32
	minElevation, maxElevation float32

	fov, aspect, near, far float32

	position       [3]float32
	view           [16]float32
	projection     [16]float32
	viewProjection [16]float32
}

var _ Camera = &camera{}

// NewCamera creates an orbit camera with default perspective settings looking at the origin.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the new camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &camera{
		radius:       60,
		azimuth:      float32(math.Pi / 4),
		elevation:    float32(math.Pi / 6),
		minRadius:    1,
		maxRadius:    1000,
		minElevation: float32(-math.Pi/2 + 0.05),
		maxElevation: float32(math.Pi/2 - 0.05),
		fov:          float32(45 * math.Pi / 180),
		aspect:       1,
		near:         0.1,
		far:          1000,
	}
	for _, option := range options {
		option(c)
	}
	c.clamp()
	c.update()
	return c
}

// clamp keeps radius and elevation inside their bounds. Caller must hold the mutex.
func (c *camera) clamp() {
	c.radius = min(max(c.radius, c.minRadius), c.maxRadius)
	c.elevation = min(max(c.elevation, c.minElevation), c.maxElevation)
}

// update recomputes the eye position and all matrices. Caller must hold the mutex.
func (c *camera) update() {
	cosElev := float32(math.Cos(float64(c.elevation)))
	sinElev := float32(math.Sin(float64(c.elevation)))
	cosAzim := float32(math.Cos(float64(c.azimuth)))
	sinAzim := float32(math.Sin(float64(c.azimuth)))

	c.position = [3]float32{
		c.target[0] + c.radius*cosElev*sinAzim,
		c.target[1] + c.radius*sinElev,
		c.target[2] + c.radius*cosElev*cosAzim,
	}

	c.view = common.LookAt(c.position, c.target, [3]float32{0, 1, 0})
	c.projection = common.Perspective(c.fov, c.aspect, c.near, c.far)
	c.viewProjection = common.Mul4(c.projection, c.view)
}

func (c *camera) Position() [3]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position
}

func (c *camera) Target() [3]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target
}

func (c *camera) SetTarget(target [3]float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.target = target
	c.update()
}

func (c *camera) Orbit(dAzimuth, dElevation float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.azimuth += dAzimuth
	c.elevation += dElevation
	c.clamp()
	c.update()
}

func (c *camera) Zoom(delta float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.radius -= delta
	c.clamp()
	c.update()
}

func (c *camera) Radius() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.radius
}

func (c *camera) SetAspect(aspect float32) {
	if !(aspect > 0) {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aspect = aspect
	c.update()
}

func (c *camera) ViewMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

func (c *camera) ProjectionMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projection
}

func (c *camera) ViewProjectionMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewProjection
}
