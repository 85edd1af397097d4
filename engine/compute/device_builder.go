package compute

const (
	// DefaultChunkSize is the minimum number of invocations handed to a worker at once.
	DefaultChunkSize = 1024

	// DefaultQueueDepth is the number of submitted batches that may wait in the queue
	// before Submit applies back-pressure.
	DefaultQueueDepth = 4
)

// DeviceBuilderOption is a functional option for configuring a host device.
type DeviceBuilderOption func(*hostDevice)

// WithWorkers sets the number of pooled worker goroutines.
// Values <= 0 keep the default (NumCPU - 1, at least 1).
//
// Parameters:
//   - n: worker count
//
// Returns:
//   - DeviceBuilderOption: option function to apply
func WithWorkers(n int) DeviceBuilderOption {
	return func(d *hostDevice) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithChunkSize sets the minimum number of invocations per worker task.
//
// Parameters:
//   - n: minimum chunk size (values <= 0 keep the default)
//
// Returns:
//   - DeviceBuilderOption: option function to apply
func WithChunkSize(n int) DeviceBuilderOption {
	return func(d *hostDevice) {
		if n > 0 {
			d.chunkSize = n
		}
	}
}

// WithQueueDepth sets how many submitted batches may be pending at once.
//
// Parameters:
//   - n: queue depth (values <= 0 keep the default)
//
// Returns:
//   - DeviceBuilderOption: option function to apply
func WithQueueDepth(n int) DeviceBuilderOption {
	return func(d *hostDevice) {
		if n > 0 {
			d.queueDepth = n
		}
	}
}
