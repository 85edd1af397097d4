package camera

// CameraBuilderOption is a functional option for configuring a camera in NewCamera.
type CameraBuilderOption func(*camera)

// WithTarget sets the initial look-at point.
//
// Parameters:
//   - target: world-space target
//
// Returns:
//   - CameraBuilderOption: option function to apply
func WithTarget(target [3]float32) CameraBuilderOption {
	return func(c *camera) {
		c.target = target
	}
}

// WithRadius sets the initial distance between eye and target.
//
// Parameters:
//   - radius: orbit radius in world units
//
// Returns:
//   - CameraBuilderOption: option function to apply
func WithRadius(radius float32) CameraBuilderOption {
	return func(c *camera) {
		c.radius = radius
	}
}

// WithRadiusRange bounds the orbit radius.
//
// Parameters:
//   - lo, hi: smallest and largest radius
//
// Returns:
//   - CameraBuilderOption: option function to apply
func WithRadiusRange(lo, hi float32) CameraBuilderOption {
	return func(c *camera) {
		if lo > 0 && hi >= lo {
			c.minRadius, c.maxRadius = lo, hi
		}
	}
}

// WithAngles sets the initial azimuth (around +Y, 0 on the +Z axis) and elevation.
//
// Parameters:
//   - azimuth: horizontal angle in radians
//   - elevation: vertical angle in radians
//
// Returns:
//   - CameraBuilderOption: option function to apply
func WithAngles(azimuth, elevation float32) CameraBuilderOption {
	return func(c *camera) {
		c.azimuth = azimuth
		c.elevation = elevation
	}
}

// WithFov sets the vertical field of view in radians.
func WithFov(fov float32) CameraBuilderOption {
	return func(c *camera) {
		c.fov = fov
	}
}

// WithAspect sets the viewport aspect ratio.
func WithAspect(aspect float32) CameraBuilderOption {
	return func(c *camera) {
		if aspect > 0 {
			c.aspect = aspect
		}
	}
}

// WithClipPlanes sets the near and far clip distances.
//
// Parameters:
//   - near: near plane distance (> 0)
//   - far: far plane distance (> near)
//
// Returns:
//   - CameraBuilderOption: option function to apply
func WithClipPlanes(near, far float32) CameraBuilderOption {
	return func(c *camera) {
		if near > 0 && far > near {
			c.near, c.far = near, far
		}
	}
}
