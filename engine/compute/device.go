// Package compute models a parallel device: work is recorded into a Batch of ordered
// data-parallel passes and submitted to the device queue as one unit. Passes inside a
// batch never overlap, and batches execute in submission order.
package compute

import "errors"

var (
	// ErrDeviceLost is returned once a device can no longer execute work, either because a
	// pass faulted or because the device was closed. It is not attributable to any single
	// pass or invocation.
	ErrDeviceLost = errors.New("compute: device lost")

	// ErrForeignBatch is returned when a batch recorded by one device is handed to another.
	ErrForeignBatch = errors.New("compute: batch belongs to a different device")

	// ErrBatchSubmitted is returned when a batch is recorded into or submitted after it has
	// already been submitted once.
	ErrBatchSubmitted = errors.New("compute: batch already submitted")
)

// Kernel is a single logical invocation of a data-parallel pass.
// The index is in [0, invocations) for the pass it was dispatched with.
type Kernel func(i int)

// Batch is an ordered list of passes recorded by the host and executed by a Device.
// Concrete batch types are device specific.
type Batch interface {
	// Label returns the debug label the batch was created with.
	//
	// Returns:
	//   - string: the batch label
	Label() string

	// PassCount returns the number of passes recorded so far.
	//
	// Returns:
	//   - int: number of recorded passes
	PassCount() int
}

// Token signals completion of a submitted batch.
type Token interface {
	// Done returns a channel that is closed once every pass of the batch has finished.
	//
	// Returns:
	//   - <-chan struct{}: completion channel
	Done() <-chan struct{}

	// Wait blocks until the batch has finished.
	//
	// Returns:
	//   - error: ErrDeviceLost if the batch did not run to completion, nil otherwise
	Wait() error
}

// Device is the submission surface of a parallel device.
type Device interface {
	// NewBatch creates an empty batch that can be recorded into and submitted to this device.
	//
	// Parameters:
	//   - label: debug label for the batch
	//
	// Returns:
	//   - Batch: the new batch
	NewBatch(label string) Batch

	// Submit enqueues the batch on the device queue and returns immediately.
	//
	// Parameters:
	//   - b: a batch created by this device's NewBatch
	//
	// Returns:
	//   - Token: completion token for the batch
	//   - error: ErrForeignBatch, ErrBatchSubmitted, or ErrDeviceLost
	Submit(b Batch) (Token, error)

	// Lost reports whether the device has stopped accepting work.
	//
	// Returns:
	//   - bool: true once the device is lost or closed
	Lost() bool

	// Close drains the queue and releases the device. Safe to call multiple times.
	Close()
}
