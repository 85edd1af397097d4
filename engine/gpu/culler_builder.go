package gpu

// CullerBuilderOption is a functional option for configuring a culler in NewCuller.
type CullerBuilderOption func(*gpuCuller)

// WithRadius sets the particle sphere radius. Negative values are ignored.
//
// Parameters:
//   - r: radius in world units
//
// Returns:
//   - CullerBuilderOption: option function to apply
func WithRadius(r float32) CullerBuilderOption {
	return func(c *gpuCuller) {
		if r >= 0 {
			c.radius = r
		}
	}
}
