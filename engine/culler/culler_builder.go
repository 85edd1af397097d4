package culler

// DefaultRadius is the world-space radius of the sphere tested for each particle.
const DefaultRadius float32 = 0.5

// CullerBuilderOption is a functional option for configuring a culler in NewCuller.
type CullerBuilderOption func(*culler)

// WithRadius sets the particle sphere radius. Negative values are ignored.
//
// Parameters:
//   - r: radius in world units
//
// Returns:
//   - CullerBuilderOption: option function to apply
func WithRadius(r float32) CullerBuilderOption {
	return func(c *culler) {
		if r >= 0 {
			c.radius = r
		}
	}
}
