// Package gpu runs the fluid solver and the visibility culler as WGSL compute shaders on a
// WebGPU device. It implements the same compute.Device, mpm.Solver and culling contracts as
// the host backend, so the engine can drive either one.
package gpu

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Carmen-Shannon/oxy-fluid/engine/compute"
)

const (
	// workgroupSize matches @workgroup_size in every embedded shader.
	workgroupSize = 64
	// maxWorkgroupsPerDim is the WebGPU default limit on workgroups per dispatch dimension.
	maxWorkgroupsPerDim = 65535
)

// Device is a headless WebGPU device usable as a compute.Device.
type Device interface {
	compute.Device

	// CreateBuffer allocates a device buffer.
	//
	// Parameters:
	//   - label: debug label
	//   - size: size in bytes (rounded up to a multiple of 4)
	//   - usage: wgpu buffer usage flags
	//
	// Returns:
	//   - *wgpu.Buffer: the new buffer
	//   - error: allocation failure
	CreateBuffer(label string, size uint64, usage wgpu.BufferUsage) (*wgpu.Buffer, error)

	// Write queues a host-to-device copy. It is ordered after every batch already submitted
	// and before every batch submitted later.
	//
	// Parameters:
	//   - buf: destination buffer
	//   - offset: destination offset in bytes
	//   - data: bytes to copy
	Write(buf *wgpu.Buffer, offset uint64, data []byte)

	// Read copies the first size bytes of a buffer back to the host, blocking until all
	// submitted work has finished.
	//
	// Parameters:
	//   - buf: source buffer (must include wgpu.BufferUsageCopySrc)
	//   - size: number of bytes to read (multiple of 4)
	//
	// Returns:
	//   - []byte: the buffer contents
	//   - error: mapping failure
	Read(buf *wgpu.Buffer, size uint64) ([]byte, error)

	// NewKernel builds a compute pipeline and binds buffers to its group-0 bindings in
	// binding order.
	//
	// Parameters:
	//   - shader: the parsed compute shader
	//   - buffers: one buffer per binding
	//
	// Returns:
	//   - *Kernel: the dispatchable kernel
	//   - error: pipeline or bind group creation failure
	NewKernel(shader *ComputeShader, buffers ...*wgpu.Buffer) (*Kernel, error)
}

// Kernel is a compute pipeline with its bind group.
type Kernel struct {
	label     string
	pipeline  *wgpu.ComputePipeline
	bindGroup *wgpu.BindGroup
}

// Release frees the pipeline and bind group.
func (k *Kernel) Release() {
	if k.bindGroup != nil {
		k.bindGroup.Release()
	}
	if k.pipeline != nil {
		k.pipeline.Release()
	}
}

// Batch records compute passes into a single command encoder.
type Batch struct {
	device    *device
	label     string
	encoder   *wgpu.CommandEncoder
	err       error
	passes    int
	submitted bool
}

var _ compute.Batch = &Batch{}

func (b *Batch) Label() string {
	return b.label
}

func (b *Batch) PassCount() int {
	return b.passes
}

// Dispatch records one compute pass running the kernel over invocations items.
//
// Parameters:
//   - k: the kernel to run
//   - invocations: number of items; the shader bounds-checks the padded tail
//
// Returns:
//   - error: a recording error, or compute.ErrBatchSubmitted
func (b *Batch) Dispatch(k *Kernel, invocations int) error {
	if b.submitted {
		return compute.ErrBatchSubmitted
	}
	if b.err != nil {
		return b.err
	}
	b.passes++
	g := workgroups(invocations)
	if g[0] == 0 {
		return nil
	}
	pass := b.encoder.BeginComputePass(&wgpu.ComputePassDescriptor{Label: k.label})
	pass.SetPipeline(k.pipeline)
	pass.SetBindGroup(0, k.bindGroup, nil)
	pass.DispatchWorkgroups(g[0], g[1], g[2])
	pass.End()
	pass.Release()
	return nil
}

// AsBatch unwraps a Batch recorded by a WebGPU device.
//
// Parameters:
//   - b: the batch to unwrap
//
// Returns:
//   - *Batch: the WebGPU batch
//   - error: compute.ErrForeignBatch if b was created by another device kind
func AsBatch(b compute.Batch) (*Batch, error) {
	gb, ok := b.(*Batch)
	if !ok || gb == nil {
		return nil, fmt.Errorf("%w: got %T", compute.ErrForeignBatch, b)
	}
	return gb, nil
}

// workgroups returns the dispatch size covering n invocations, folding into a second
// dimension when the first would exceed the per-dimension limit.
func workgroups(n int) [3]uint32 {
	if n <= 0 {
		return [3]uint32{}
	}
	groups := (n + workgroupSize - 1) / workgroupSize
	if groups <= maxWorkgroupsPerDim {
		return [3]uint32{uint32(groups), 1, 1}
	}
	y := (groups + maxWorkgroupsPerDim - 1) / maxWorkgroupsPerDim
	return [3]uint32{maxWorkgroupsPerDim, uint32(y), 1}
}

// gpuToken closes once the submission it tracks has completed on the device.
type gpuToken struct {
	done chan struct{}
	err  error
}

func (t *gpuToken) Done() <-chan struct{} {
	return t.done
}

func (t *gpuToken) Wait() error {
	<-t.done
	return t.err
}

type device struct {
	mu sync.Mutex

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	label         string
	forceFallback bool
	queueDepth    int

	inflight  chan *gpuToken
	pollDone  chan struct{}
	lost      atomic.Bool
	closed    bool
	closeOnce sync.Once
}

var _ Device = &device{}

// NewDevice requests an adapter and device without a surface.
//
// Parameters:
//   - options: functional options to configure the device
//
// Returns:
//   - Device: the WebGPU device
//   - error: if no adapter or device is available
func NewDevice(options ...DeviceBuilderOption) (Device, error) {
	d := &device{
		label:      "oxy-fluid compute",
		queueDepth: DefaultQueueDepth,
	}
	for _, option := range options {
		option(d)
	}

	d.instance = wgpu.CreateInstance(nil)
	a, err := d.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: d.forceFallback,
		PowerPreference:      wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		d.instance.Release()
		return nil, fmt.Errorf("gpu: request adapter: %w", err)
	}
	d.adapter = a

	limits := wgpu.DefaultLimits()
	dev, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: d.label,
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: limits,
		},
	})
	if err != nil {
		a.Release()
		d.instance.Release()
		return nil, fmt.Errorf("gpu: request device: %w", err)
	}
	d.device = dev
	d.queue = dev.GetQueue()

	d.inflight = make(chan *gpuToken, d.queueDepth)
	d.pollDone = make(chan struct{})
	go d.poll()

	log.Printf("[GPU] device %q ready", d.label)
	return d, nil
}

// poll completes tokens in submission order. A blocking Poll returns once all work
// submitted so far has finished, which covers the token at the head of the queue.
func (d *device) poll() {
	defer close(d.pollDone)
	for t := range d.inflight {
		d.device.Poll(true, nil)
		close(t.done)
	}
}

func (d *device) NewBatch(label string) compute.Batch {
	b := &Batch{device: d, label: label}
	enc, err := d.device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: label})
	if err != nil {
		b.err = fmt.Errorf("gpu: batch %q: %w", label, err)
		return b
	}
	b.encoder = enc
	return b
}

func (d *device) Submit(batch compute.Batch) (compute.Token, error) {
	gb, err := AsBatch(batch)
	if err != nil {
		return nil, err
	}
	if gb.device != d {
		return nil, fmt.Errorf("%w: batch %q belongs to another device", compute.ErrForeignBatch, gb.label)
	}
	if gb.submitted {
		return nil, compute.ErrBatchSubmitted
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed || d.lost.Load() {
		return nil, compute.ErrDeviceLost
	}
	gb.submitted = true
	if gb.err != nil {
		d.markLost(gb.label, gb.err)
		return nil, fmt.Errorf("%w: %v", compute.ErrDeviceLost, gb.err)
	}

	cb, err := gb.encoder.Finish(nil)
	gb.encoder.Release()
	if err != nil {
		d.markLost(gb.label, err)
		return nil, fmt.Errorf("%w: %v", compute.ErrDeviceLost, err)
	}
	d.queue.Submit(cb)
	cb.Release()

	t := &gpuToken{done: make(chan struct{})}
	d.inflight <- t
	return t, nil
}

// markLost records a fatal device error. Caller must hold the mutex.
func (d *device) markLost(label string, err error) {
	if d.lost.CompareAndSwap(false, true) {
		log.Printf("[GPU] batch %q failed, device lost: %v", label, err)
	}
}

func (d *device) Lost() bool {
	return d.lost.Load()
}

func (d *device) Close() {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.inflight)
		d.mu.Unlock()
		<-d.pollDone

		d.queue.Release()
		d.device.Release()
		d.adapter.Release()
		d.instance.Release()
	})
}

func (d *device) CreateBuffer(label string, size uint64, usage wgpu.BufferUsage) (*wgpu.Buffer, error) {
	size = max((size+3)&^3, 4)
	buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: usage,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create buffer %q (%d bytes): %w", label, size, err)
	}
	return buf, nil
}

func (d *device) Write(buf *wgpu.Buffer, offset uint64, data []byte) {
	if len(data) == 0 {
		return
	}
	d.queue.WriteBuffer(buf, offset, data)
}

func (d *device) Read(buf *wgpu.Buffer, size uint64) ([]byte, error) {
	if size == 0 {
		return nil, nil
	}
	staging, err := d.CreateBuffer("readback", size, wgpu.BufferUsageMapRead|wgpu.BufferUsageCopyDst)
	if err != nil {
		return nil, err
	}
	defer staging.Release()

	enc, err := d.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, fmt.Errorf("gpu: readback encoder: %w", err)
	}
	enc.CopyBufferToBuffer(buf, 0, staging, 0, size)
	cb, err := enc.Finish(nil)
	enc.Release()
	if err != nil {
		return nil, fmt.Errorf("gpu: readback encoder: %w", err)
	}
	d.queue.Submit(cb)
	cb.Release()

	var status wgpu.BufferMapAsyncStatus
	var mapped atomic.Bool
	staging.MapAsync(wgpu.MapModeRead, 0, size, func(s wgpu.BufferMapAsyncStatus) {
		status = s
		mapped.Store(true)
	})
	for !mapped.Load() {
		d.device.Poll(true, nil)
	}
	if status != wgpu.BufferMapAsyncStatusSuccess {
		return nil, fmt.Errorf("gpu: map readback buffer: status %v", status)
	}

	out := make([]byte, size)
	copy(out, staging.GetMappedRange(0, uint(size)))
	staging.Unmap()
	return out, nil
}

func (d *device) NewKernel(shader *ComputeShader, buffers ...*wgpu.Buffer) (*Kernel, error) {
	desc := shader.LayoutDescriptor()
	if len(desc.Entries) != len(buffers) {
		return nil, fmt.Errorf("gpu: kernel %q declares %d bindings, got %d buffers",
			shader.Label, len(desc.Entries), len(buffers))
	}

	module, err := d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: shader.Label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: shader.Source,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: compile %q: %w", shader.Label, err)
	}
	defer module.Release()

	bgl, err := d.device.CreateBindGroupLayout(&desc)
	if err != nil {
		return nil, fmt.Errorf("gpu: bind group layout %q: %w", shader.Label, err)
	}
	defer bgl.Release()

	layout, err := d.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            shader.Label,
		BindGroupLayouts: []*wgpu.BindGroupLayout{bgl},
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: pipeline layout %q: %w", shader.Label, err)
	}
	defer layout.Release()

	pipeline, err := d.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  shader.Label + " Compute Pipeline",
		Layout: layout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     module,
			EntryPoint: shader.EntryPoint,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: compute pipeline %q: %w", shader.Label, err)
	}

	entries := make([]wgpu.BindGroupEntry, len(buffers))
	for i, buf := range buffers {
		entries[i] = wgpu.BindGroupEntry{
			Binding: desc.Entries[i].Binding,
			Buffer:  buf,
			Offset:  0,
			Size:    wgpu.WholeSize,
		}
	}
	bindGroup, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   shader.Label + " Bind Group",
		Layout:  bgl,
		Entries: entries,
	})
	if err != nil {
		pipeline.Release()
		return nil, fmt.Errorf("gpu: bind group %q: %w", shader.Label, err)
	}

	return &Kernel{label: shader.Label, pipeline: pipeline, bindGroup: bindGroup}, nil
}
