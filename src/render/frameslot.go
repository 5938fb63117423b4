package render

import (
	"fmt"
)

// FrameSlot is the per-frame-in-flight bundle. A slot is reusable once
// InFlight is signaled.
type FrameSlot struct {
	ImageAcquired  Semaphore
	RenderComplete Semaphore
	InFlight       Fence
	CommandBuffer  CommandBuffer
}

// FrameSlotPool is the ring of N frame slots.
type FrameSlotPool struct {
	device  Device
	slots   []FrameSlot
	current int

	// boundImageCount is the swapchain image count the command buffers
	// were last allocated against.
	boundImageCount int
}

// NewFrameSlotPool creates n slots. Fences start signaled so the first
// wait on each slot returns immediately.
func NewFrameSlotPool(device Device, n, imageCount int) (*FrameSlotPool, error) {
	mustState(n > 0, "NewFrameSlotPool", "slot count must be positive")

	p := &FrameSlotPool{device: device, slots: make([]FrameSlot, n), boundImageCount: imageCount}
	for i := range p.slots {
		s := &p.slots[i]
		var err error
		if s.ImageAcquired, err = device.CreateSemaphore(); err != nil {
			p.Destroy()
			return nil, fmt.Errorf("create image-acquired semaphore %d: %w", i, err)
		}
		if s.RenderComplete, err = device.CreateSemaphore(); err != nil {
			p.Destroy()
			return nil, fmt.Errorf("create render-complete semaphore %d: %w", i, err)
		}
		if s.InFlight, err = device.CreateFence(true); err != nil {
			p.Destroy()
			return nil, fmt.Errorf("create in-flight fence %d: %w", i, err)
		}
	}
	if err := p.allocateCommandBuffers(); err != nil {
		p.Destroy()
		return nil, err
	}
	return p, nil
}

func (p *FrameSlotPool) allocateCommandBuffers() error {
	buffers, err := p.device.AllocateCommandBuffers(len(p.slots))
	if err != nil {
		return fmt.Errorf("allocate command buffers: %w", err)
	}
	if len(buffers) != len(p.slots) {
		p.device.FreeCommandBuffers(buffers)
		return fmt.Errorf("allocate command buffers: got %d, want %d", len(buffers), len(p.slots))
	}
	for i := range p.slots {
		p.slots[i].CommandBuffer = buffers[i]
	}
	return nil
}

func (p *FrameSlotPool) freeCommandBuffers() {
	buffers := make([]CommandBuffer, 0, len(p.slots))
	for i := range p.slots {
		if cb := p.slots[i].CommandBuffer; cb != nil {
			buffers = append(buffers, cb)
			p.slots[i].CommandBuffer = nil
		}
	}
	if len(buffers) > 0 {
		p.device.FreeCommandBuffers(buffers)
	}
}

func (p *FrameSlotPool) Len() int { return len(p.slots) }

// Index returns the index of the current slot.
func (p *FrameSlotPool) Index() int { return p.current }

func (p *FrameSlotPool) Current() *FrameSlot { return &p.slots[p.current] }

func (p *FrameSlotPool) Slot(i int) *FrameSlot { return &p.slots[i] }

// Advance moves to the next slot in round-robin order.
func (p *FrameSlotPool) Advance() {
	p.current = (p.current + 1) % len(p.slots)
}

// Owns reports whether cb is one of the pool's command buffers.
func (p *FrameSlotPool) Owns(cb CommandBuffer) bool {
	if cb == nil {
		return false
	}
	for i := range p.slots {
		if p.slots[i].CommandBuffer == cb {
			return true
		}
	}
	return false
}

// BoundImageCount is the image count the command buffers were allocated
// against.
func (p *FrameSlotPool) BoundImageCount() int { return p.boundImageCount }

// ReallocateCommandBuffers frees and reallocates the command buffers when
// imageCount differs from the count they are bound to. Semaphores and
// fences are left untouched. The caller must have waited for the device
// to go idle.
func (p *FrameSlotPool) ReallocateCommandBuffers(imageCount int) (bool, error) {
	if imageCount == p.boundImageCount {
		return false, nil
	}
	p.freeCommandBuffers()
	if err := p.allocateCommandBuffers(); err != nil {
		return true, err
	}
	p.boundImageCount = imageCount
	return true, nil
}

// Destroy releases every slot. The device must be idle.
func (p *FrameSlotPool) Destroy() {
	p.freeCommandBuffers()
	for i := range p.slots {
		s := &p.slots[i]
		for _, d := range []Destroyer{s.ImageAcquired, s.RenderComplete, s.InFlight} {
			if d != nil {
				d.Destroy()
			}
		}
		*s = FrameSlot{}
	}
}
