package boundary

const (
	// DefaultAxis is the depth axis of the observed tank.
	DefaultAxis = AxisZ
	// DefaultSpeed is the wall phase advanced per unit of simulated time.
	DefaultSpeed float32 = 0.5
	// DefaultMinRatio and DefaultMaxRatio bound the moving axis relative to its base size.
	DefaultMinRatio float32 = 0.2
	DefaultMaxRatio float32 = 2.0
)

// ControllerBuilderOption is a functional option for configuring a controller in NewController.
type ControllerBuilderOption func(*controller)

// WithAxis selects the axis the wall moves along.
//
// Parameters:
//   - axis: AxisX, AxisY or AxisZ
//
// Returns:
//   - ControllerBuilderOption: option function to apply
func WithAxis(axis Axis) ControllerBuilderOption {
	return func(c *controller) {
		if axis >= AxisX && axis <= AxisZ {
			c.axis = axis
		}
	}
}

// WithAmplitude sets the initial wave amplitude.
//
// Parameters:
//   - a: relative amplitude (>= 0)
//
// Returns:
//   - ControllerBuilderOption: option function to apply
func WithAmplitude(a float32) ControllerBuilderOption {
	return func(c *controller) {
		c.amplitude = max(a, 0)
	}
}

// WithSpeed sets how fast the wave phase advances.
//
// Parameters:
//   - s: phase per unit of simulated time
//
// Returns:
//   - ControllerBuilderOption: option function to apply
func WithSpeed(s float32) ControllerBuilderOption {
	return func(c *controller) {
		c.speed = s
	}
}

// WithRatioRange overrides the clamp applied to the moving axis.
//
// Parameters:
//   - lo: smallest ratio of the base size (> 0)
//   - hi: largest ratio of the base size (>= lo)
//
// Returns:
//   - ControllerBuilderOption: option function to apply
func WithRatioRange(lo, hi float32) ControllerBuilderOption {
	return func(c *controller) {
		if lo > 0 && hi >= lo {
			c.minRatio = lo
			c.maxRatio = hi
		}
	}
}

// WithMinimumExtent sets an absolute floor on the moving axis, typically a few grid cells.
//
// Parameters:
//   - v: smallest extent in world units
//
// Returns:
//   - ControllerBuilderOption: option function to apply
func WithMinimumExtent(v float32) ControllerBuilderOption {
	return func(c *controller) {
		c.minExtent = max(v, 0)
	}
}
