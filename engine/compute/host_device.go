package compute

import (
	"fmt"
	"log"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
)

// Pass is a single data-parallel stage recorded into a HostBatch.
type Pass struct {
	// Label identifies the pass in logs and fault reports.
	Label string
	// Invocations is the number of kernel invocations, one per particle or grid cell.
	Invocations int
	// Kernel is invoked once for every index in [0, Invocations).
	Kernel Kernel
}

// HostBatch is the batch type recorded for a host device.
// It is not safe for concurrent recording.
type HostBatch struct {
	device    *hostDevice
	label     string
	passes    []Pass
	submitted bool
}

var _ Batch = &HostBatch{}

func (b *HostBatch) Label() string {
	return b.label
}

func (b *HostBatch) PassCount() int {
	return len(b.passes)
}

// Passes returns the recorded passes in execution order.
//
// Returns:
//   - []Pass: the recorded passes (shared, do not modify)
func (b *HostBatch) Passes() []Pass {
	return b.passes
}

// Dispatch appends a pass to the batch. A pass with zero invocations is recorded but
// executes nothing.
//
// Parameters:
//   - label: debug label for the pass
//   - invocations: number of kernel invocations
//   - kernel: the per-invocation function
//
// Returns:
//   - error: ErrBatchSubmitted if the batch was already submitted
func (b *HostBatch) Dispatch(label string, invocations int, kernel Kernel) error {
	if b.submitted {
		return ErrBatchSubmitted
	}
	if invocations < 0 {
		invocations = 0
	}
	b.passes = append(b.passes, Pass{Label: label, Invocations: invocations, Kernel: kernel})
	return nil
}

// AsHostBatch unwraps a Batch recorded by a host device.
//
// Parameters:
//   - b: the batch to unwrap
//
// Returns:
//   - *HostBatch: the host batch
//   - error: ErrForeignBatch if b was not created by a host device
func AsHostBatch(b Batch) (*HostBatch, error) {
	hb, ok := b.(*HostBatch)
	if !ok || hb == nil {
		return nil, fmt.Errorf("%w: got %T", ErrForeignBatch, b)
	}
	return hb, nil
}

// hostToken implements Token for host submissions.
type hostToken struct {
	done chan struct{}
	err  error
}

func (t *hostToken) Done() <-chan struct{} {
	return t.done
}

func (t *hostToken) Wait() error {
	<-t.done
	return t.err
}

// submission pairs a batch with the token closed once it finishes.
type submission struct {
	batch *HostBatch
	token *hostToken
}

// hostDevice executes batches on the CPU. A single queue goroutine pulls submissions in
// order; each pass is split into chunks that fan out across a reusable worker pool, and the
// next pass starts only after every chunk of the current one has finished.
type hostDevice struct {
	mu sync.Mutex

	pool       worker.DynamicWorkerPool
	workers    int
	chunkSize  int
	queueDepth int

	queue     chan submission
	queueDone chan struct{}

	lost      atomic.Bool
	closed    bool
	closeOnce sync.Once
	taskID    atomic.Int64
}

var _ Device = &hostDevice{}

// NewHostDevice creates a CPU-backed Device and starts its queue goroutine.
//
// Parameters:
//   - options: functional options for worker count, chunk size and queue depth
//
// Returns:
//   - Device: the running device
func NewHostDevice(options ...DeviceBuilderOption) Device {
	d := &hostDevice{
		workers:    max(runtime.NumCPU()-1, 1),
		chunkSize:  DefaultChunkSize,
		queueDepth: DefaultQueueDepth,
		queueDone:  make(chan struct{}),
	}

	for _, opt := range options {
		opt(d)
	}

	// Idle workers exit after a second; frame-rate workloads keep them warm.
	d.pool = worker.NewDynamicWorkerPool(d.workers, 256, 1*time.Second)
	d.queue = make(chan submission, d.queueDepth)

	go d.handleQueue()

	return d
}

func (d *hostDevice) NewBatch(label string) Batch {
	return &HostBatch{device: d, label: label}
}

func (d *hostDevice) Submit(b Batch) (Token, error) {
	hb, err := AsHostBatch(b)
	if err != nil {
		return nil, err
	}
	if hb.device != d {
		return nil, fmt.Errorf("%w: batch %q", ErrForeignBatch, hb.label)
	}
	if hb.submitted {
		return nil, ErrBatchSubmitted
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed || d.lost.Load() {
		return nil, ErrDeviceLost
	}

	hb.submitted = true
	t := &hostToken{done: make(chan struct{})}
	d.queue <- submission{batch: hb, token: t}
	return t, nil
}

func (d *hostDevice) Lost() bool {
	return d.lost.Load()
}

func (d *hostDevice) Close() {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.queue)
		d.mu.Unlock()
		<-d.queueDone
	})
}

// handleQueue runs submissions strictly in order until the queue is closed.
func (d *hostDevice) handleQueue() {
	defer close(d.queueDone)

	for sub := range d.queue {
		if d.lost.Load() {
			sub.token.err = ErrDeviceLost
			close(sub.token.done)
			continue
		}
		sub.token.err = d.run(sub.batch)
		close(sub.token.done)
	}
}

// run executes every pass of the batch with a barrier between passes.
func (d *hostDevice) run(b *HostBatch) error {
	for _, p := range b.passes {
		if p.Invocations == 0 || p.Kernel == nil {
			continue
		}
		if fault := d.runPass(p); fault != nil {
			d.lost.Store(true)
			log.Printf("[Compute] batch %q pass %q faulted: %v", b.label, p.Label, fault)
			return ErrDeviceLost
		}
	}
	return nil
}

// runPass splits one pass into chunks and blocks until all of them finish.
// Returns the first recovered panic value, or nil.
func (d *hostDevice) runPass(p Pass) any {
	chunk := d.chunkFor(p.Invocations)
	if chunk >= p.Invocations {
		return runChunk(p.Kernel, 0, p.Invocations)
	}

	var (
		wg    sync.WaitGroup
		fault atomic.Value
	)
	for start := 0; start < p.Invocations; start += chunk {
		end := min(start+chunk, p.Invocations)
		wg.Add(1)
		s, e := start, end
		d.pool.SubmitTask(worker.Task{
			ID: int(d.taskID.Add(1)),
			Do: func() (any, error) {
				defer wg.Done()
				if r := runChunk(p.Kernel, s, e); r != nil {
					fault.CompareAndSwap(nil, fmt.Sprint(r))
				}
				return nil, nil
			},
		})
	}
	wg.Wait()

	return fault.Load()
}

// chunkFor sizes chunks so every worker receives a few of them for load balancing,
// never going below the configured minimum chunk size.
func (d *hostDevice) chunkFor(invocations int) int {
	perWorker := (invocations + d.workers*4 - 1) / (d.workers * 4)
	return max(perWorker, d.chunkSize)
}

// runChunk invokes kernel for [start, end) and converts a panic into a returned value.
func runChunk(kernel Kernel, start, end int) (fault any) {
	defer func() {
		if r := recover(); r != nil {
			fault = r
		}
	}()
	for i := start; i < end; i++ {
		kernel(i)
	}
	return nil
}
