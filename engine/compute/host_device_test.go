package compute

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHostDevicePassesRunInOrderWithBarrier(t *testing.T) {
	d := NewHostDevice(WithWorkers(4), WithChunkSize(16))
	defer d.Close()

	const n = 10_000
	src := make([]int, n)
	dst := make([]int, n)

	hb, err := AsHostBatch(d.NewBatch("order"))
	require.NoError(t, err)
	require.NoError(t, hb.Dispatch("fill", n, func(i int) { src[i] = i + 1 }))
	// Every invocation reads a neighbour written by a different chunk of the previous pass.
	require.NoError(t, hb.Dispatch("shift", n, func(i int) { dst[i] = src[(i+n/2)%n] }))
	assert.Equal(t, 2, hb.PassCount())

	tok, err := d.Submit(hb)
	require.NoError(t, err)
	require.NoError(t, tok.Wait())

	for i := range dst {
		if dst[i] != (i+n/2)%n+1 {
			t.Fatalf("dst[%d] = %d, want %d", i, dst[i], (i+n/2)%n+1)
		}
	}
}

func TestHostDeviceBatchesExecuteInSubmissionOrder(t *testing.T) {
	d := NewHostDevice(WithWorkers(2))
	defer d.Close()

	var log []int
	tokens := make([]Token, 0, 5)
	for k := 0; k < 5; k++ {
		hb, _ := AsHostBatch(d.NewBatch("seq"))
		id := k
		require.NoError(t, hb.Dispatch("append", 1, func(int) { log = append(log, id) }))
		tok, err := d.Submit(hb)
		require.NoError(t, err)
		tokens = append(tokens, tok)
	}
	require.NoError(t, tokens[len(tokens)-1].Wait())

	assert.Equal(t, []int{0, 1, 2, 3, 4}, log)
}

func TestHostDeviceKernelPanicLosesDevice(t *testing.T) {
	d := NewHostDevice(WithWorkers(2), WithChunkSize(1))
	defer d.Close()

	var after atomic.Int32
	hb, _ := AsHostBatch(d.NewBatch("fault"))
	require.NoError(t, hb.Dispatch("boom", 8, func(i int) {
		if i == 5 {
			panic("degenerate kernel")
		}
	}))
	require.NoError(t, hb.Dispatch("never", 8, func(int) { after.Add(1) }))

	tok, err := d.Submit(hb)
	require.NoError(t, err)
	assert.ErrorIs(t, tok.Wait(), ErrDeviceLost)
	assert.Zero(t, after.Load())
	assert.True(t, d.Lost())

	_, err = d.Submit(d.NewBatch("late"))
	assert.ErrorIs(t, err, ErrDeviceLost)
}

func TestHostDeviceRejectsForeignAndResubmittedBatches(t *testing.T) {
	a := NewHostDevice()
	defer a.Close()
	b := NewHostDevice()
	defer b.Close()

	_, err := a.Submit(b.NewBatch("foreign"))
	assert.ErrorIs(t, err, ErrForeignBatch)

	batch := a.NewBatch("once")
	tok, err := a.Submit(batch)
	require.NoError(t, err)
	require.NoError(t, tok.Wait())

	_, err = a.Submit(batch)
	assert.ErrorIs(t, err, ErrBatchSubmitted)

	hb, _ := AsHostBatch(batch)
	assert.ErrorIs(t, hb.Dispatch("late", 1, func(int) {}), ErrBatchSubmitted)
}

func TestHostDeviceCloseRejectsSubmit(t *testing.T) {
	d := NewHostDevice()
	d.Close()
	d.Close()

	_, err := d.Submit(d.NewBatch("closed"))
	assert.ErrorIs(t, err, ErrDeviceLost)
}
