package render

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFrameSlotPool(t *testing.T) {
	dev := newFakeDevice(&eventLog{})

	p, err := NewFrameSlotPool(dev, 3, 2)
	require.NoError(t, err)
	require.Equal(t, 3, p.Len())
	require.Equal(t, 2, p.BoundImageCount())

	for i := 0; i < p.Len(); i++ {
		s := p.Slot(i)
		require.NotNil(t, s.ImageAcquired)
		require.NotNil(t, s.RenderComplete)
		require.NotNil(t, s.CommandBuffer)
		require.True(t, s.InFlight.(*fakeFence).signaled)
		require.True(t, p.Owns(s.CommandBuffer))
	}
	require.False(t, p.Owns(nil))
	require.False(t, p.Owns(&fakeCommandBuffer{fakeObject: &fakeObject{}}))

	seen := []int{}
	for i := 0; i < 7; i++ {
		seen = append(seen, p.Index())
		require.Same(t, p.Slot(p.Index()), p.Current())
		p.Advance()
	}
	require.Equal(t, []int{0, 1, 2, 0, 1, 2, 0}, seen)

	p.Destroy()
	require.Empty(t, dev.leaked())
	require.Empty(t, dev.doubleDestroyed())
}

func TestFrameSlotPoolZeroSlotsPanics(t *testing.T) {
	dev := newFakeDevice(&eventLog{})
	require.Panics(t, func() { _, _ = NewFrameSlotPool(dev, 0, 2) })
}

func TestFrameSlotPoolReallocate(t *testing.T) {
	log := &eventLog{}
	dev := newFakeDevice(log)

	p, err := NewFrameSlotPool(dev, 2, 3)
	require.NoError(t, err)
	fences := []Fence{p.Slot(0).InFlight, p.Slot(1).InFlight}
	buffers := []CommandBuffer{p.Slot(0).CommandBuffer, p.Slot(1).CommandBuffer}

	changed, err := p.ReallocateCommandBuffers(3)
	require.NoError(t, err)
	require.False(t, changed)
	require.Equal(t, 1, log.countPrefix("allocate"))

	changed, err = p.ReallocateCommandBuffers(2)
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, 2, p.BoundImageCount())
	require.Equal(t, 2, log.countPrefix("allocate"))
	require.Equal(t, 1, log.count("free 2"))

	// One buffer per slot regardless of the image count.
	require.Equal(t, 2, len(dev.buffers)-len(buffers))
	for i := range buffers {
		require.False(t, p.Owns(buffers[i]))
		require.Equal(t, 1, buffers[i].(*fakeCommandBuffer).destroyed)
		require.Equal(t, fences[i], p.Slot(i).InFlight)
	}
}

func TestFrameSlotPoolCleansUpOnFailure(t *testing.T) {
	for idx, op := range []string{
		"CreateSemaphore",
		"CreateFence",
		"AllocateCommandBuffers",
	} {
		t.Run(fmt.Sprintf("%d/%s", idx, op), func(t *testing.T) {
			dev := newFakeDevice(&eventLog{})
			dev.failures[op] = errFake

			_, err := NewFrameSlotPool(dev, 2, 3)
			require.ErrorIs(t, err, errFake)
			require.Empty(t, dev.leaked())
			require.Empty(t, dev.doubleDestroyed())
		})
	}
}
