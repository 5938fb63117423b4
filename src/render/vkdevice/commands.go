package vkdevice

import (
	"fmt"

	"github.com/vulkan-go/vulkan"

	"presenter/src/render"
)

type commandBuffer struct {
	d      *Device
	handle vulkan.CommandBuffer
}

func (c *commandBuffer) Reset() error {
	return wrap("reset command buffer", NewError(vulkan.ResetCommandBuffer(c.handle, 0)))
}

func (c *commandBuffer) Begin() error {
	return wrap("begin command buffer", NewError(vulkan.BeginCommandBuffer(c.handle, &vulkan.CommandBufferBeginInfo{
		SType: vulkan.StructureTypeCommandBufferBeginInfo,
		Flags: vulkan.CommandBufferUsageFlags(vulkan.CommandBufferUsageOneTimeSubmitBit),
	})))
}

func (c *commandBuffer) End() error {
	return wrap("end command buffer", NewError(vulkan.EndCommandBuffer(c.handle)))
}

// BeginRenderPass panics on objects from another device; the renderer
// only hands it objects this device created.
func (c *commandBuffer) BeginRenderPass(pass render.RenderPass, target render.Framebuffer, area render.Rect, clear render.ClearValues) {
	rp, ok := pass.(*renderPass)
	if !ok {
		panic(fmt.Errorf("begin render pass: %w", ErrForeignObject))
	}
	fb, ok := target.(*framebuffer)
	if !ok {
		panic(fmt.Errorf("begin render pass framebuffer: %w", ErrForeignObject))
	}
	values := []vulkan.ClearValue{
		vulkan.NewClearValue(clear.Color[:]),
		vulkan.NewClearDepthStencil(clear.Depth, clear.Stencil),
	}
	vulkan.CmdBeginRenderPass(c.handle, &vulkan.RenderPassBeginInfo{
		SType:           vulkan.StructureTypeRenderPassBeginInfo,
		RenderPass:      rp.handle,
		Framebuffer:     fb.handle,
		RenderArea:      toRect(area),
		ClearValueCount: uint32(len(values)),
		PClearValues:    values,
	}, vulkan.SubpassContentsInline)
}

func (c *commandBuffer) EndRenderPass() {
	vulkan.CmdEndRenderPass(c.handle)
}

func (c *commandBuffer) SetViewport(v render.Viewport) {
	vulkan.CmdSetViewport(c.handle, 0, 1, []vulkan.Viewport{{
		X:        v.X,
		Y:        v.Y,
		Width:    v.Width,
		Height:   v.Height,
		MinDepth: v.MinDepth,
		MaxDepth: v.MaxDepth,
	}})
}

func (c *commandBuffer) SetScissor(r render.Rect) {
	vulkan.CmdSetScissor(c.handle, 0, 1, []vulkan.Rect2D{toRect(r)})
}

// CommandBufferHandle returns the Vulkan handle behind cb, for draw code
// recording its own commands.
func CommandBufferHandle(cb render.CommandBuffer) (vulkan.CommandBuffer, bool) {
	c, ok := cb.(*commandBuffer)
	if !ok {
		return nil, false
	}
	return c.handle, true
}

func toRect(r render.Rect) vulkan.Rect2D {
	return vulkan.Rect2D{
		Offset: vulkan.Offset2D{X: r.X, Y: r.Y},
		Extent: fromExtent(r.Extent),
	}
}

func (d *Device) AllocateCommandBuffers(n int) ([]render.CommandBuffer, error) {
	handles := make([]vulkan.CommandBuffer, n)
	err := NewError(vulkan.AllocateCommandBuffers(d.device, &vulkan.CommandBufferAllocateInfo{
		SType:              vulkan.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        d.commandPool,
		Level:              vulkan.CommandBufferLevelPrimary,
		CommandBufferCount: uint32(n),
	}, handles))
	if err != nil {
		return nil, wrap("allocate command buffers", err)
	}
	out := make([]render.CommandBuffer, n)
	for i, h := range handles {
		out[i] = &commandBuffer{d: d, handle: h}
	}
	return out, nil
}

// FreeCommandBuffers returns buffers to the pool, skipping any this
// device did not allocate.
func (d *Device) FreeCommandBuffers(buffers []render.CommandBuffer) {
	handles := make([]vulkan.CommandBuffer, 0, len(buffers))
	for _, b := range buffers {
		if h, ok := CommandBufferHandle(b); ok {
			handles = append(handles, h)
		}
	}
	if len(handles) == 0 {
		return
	}
	vulkan.FreeCommandBuffers(d.device, d.commandPool, uint32(len(handles)), handles)
}

func (d *Device) Submit(cmd render.CommandBuffer, wait, signal render.Semaphore, f render.Fence) error {
	cb, ok := CommandBufferHandle(cmd)
	if !ok {
		return fmt.Errorf("submit: %w", ErrForeignObject)
	}
	waitSem, err := semaphoreHandle(wait)
	if err != nil {
		return err
	}
	signalSem, err := semaphoreHandle(signal)
	if err != nil {
		return err
	}
	fenceHandle := vulkan.NullFence
	if f != nil {
		ff, ok := f.(*fence)
		if !ok {
			return fmt.Errorf("submit fence: %w", ErrForeignObject)
		}
		fenceHandle = ff.handle
	}

	info := vulkan.SubmitInfo{
		SType:              vulkan.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vulkan.CommandBuffer{cb},
	}
	if waitSem != vulkan.NullSemaphore {
		info.WaitSemaphoreCount = 1
		info.PWaitSemaphores = []vulkan.Semaphore{waitSem}
		info.PWaitDstStageMask = []vulkan.PipelineStageFlags{
			vulkan.PipelineStageFlags(vulkan.PipelineStageColorAttachmentOutputBit),
		}
	}
	if signalSem != vulkan.NullSemaphore {
		info.SignalSemaphoreCount = 1
		info.PSignalSemaphores = []vulkan.Semaphore{signalSem}
	}
	return wrap("queue submit", NewError(vulkan.QueueSubmit(d.graphicsQueue, 1, []vulkan.SubmitInfo{info}, fenceHandle)))
}
