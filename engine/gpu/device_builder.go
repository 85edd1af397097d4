package gpu

// DefaultQueueDepth is the number of submitted batches that may be awaiting completion
// before Submit blocks.
const DefaultQueueDepth = 4

// DeviceBuilderOption is a functional option for configuring a device in NewDevice.
type DeviceBuilderOption func(*device)

// WithLabel sets the device debug label.
//
// Parameters:
//   - label: device label
//
// Returns:
//   - DeviceBuilderOption: option function to apply
func WithLabel(label string) DeviceBuilderOption {
	return func(d *device) {
		d.label = label
	}
}

// WithForceFallbackAdapter requests the software adapter, useful on machines without a GPU.
//
// Parameters:
//   - force: true to force the fallback adapter
//
// Returns:
//   - DeviceBuilderOption: option function to apply
func WithForceFallbackAdapter(force bool) DeviceBuilderOption {
	return func(d *device) {
		d.forceFallback = force
	}
}

// WithQueueDepth sets how many batches may be in flight.
//
// Parameters:
//   - n: queue depth (>= 1)
//
// Returns:
//   - DeviceBuilderOption: option function to apply
func WithQueueDepth(n int) DeviceBuilderOption {
	return func(d *device) {
		if n >= 1 {
			d.queueDepth = n
		}
	}
}
