package vkdevice

import (
	"fmt"

	"github.com/vulkan-go/vulkan"

	"presenter/src/render"
)

// chain wraps a VkSwapchainKHR.
type chain struct {
	d      *Device
	handle vulkan.Swapchain
}

func (d *Device) CreatePresentationChain(info render.SwapchainCreateInfo) (render.PresentationChain, error) {
	var caps vulkan.SurfaceCapabilities
	if err := NewError(vulkan.GetPhysicalDeviceSurfaceCapabilities(d.physical, d.surface, &caps)); err != nil {
		return nil, wrap("surface capabilities", err)
	}
	caps.Deref()

	old := vulkan.NullSwapchain
	if info.Old != nil {
		prev, ok := info.Old.(*chain)
		if !ok {
			return nil, fmt.Errorf("old swapchain: %w", ErrForeignObject)
		}
		old = prev.handle
	}

	create := vulkan.SwapchainCreateInfo{
		SType:            vulkan.StructureTypeSwapchainCreateInfo,
		Surface:          d.surface,
		MinImageCount:    info.MinImageCount,
		ImageFormat:      vulkan.Format(info.SurfaceFormat.Format),
		ImageColorSpace:  vulkan.ColorSpace(info.SurfaceFormat.ColorSpace),
		ImageExtent:      fromExtent(info.Extent),
		ImageArrayLayers: 1,
		ImageUsage:       vulkan.ImageUsageFlags(vulkan.ImageUsageColorAttachmentBit),
		ImageSharingMode: vulkan.SharingModeExclusive,
		PreTransform:     caps.CurrentTransform,
		CompositeAlpha:   vulkan.CompositeAlphaOpaqueBit,
		PresentMode:      vulkan.PresentMode(info.PresentMode),
		Clipped:          vulkan.True,
		OldSwapchain:     old,
	}
	if d.graphicsFamily != d.presentFamily {
		create.ImageSharingMode = vulkan.SharingModeConcurrent
		create.QueueFamilyIndexCount = 2
		create.PQueueFamilyIndices = []uint32{d.graphicsFamily, d.presentFamily}
	}

	var handle vulkan.Swapchain
	if err := NewError(vulkan.CreateSwapchain(d.device, &create, nil, &handle)); err != nil {
		return nil, wrap("create swapchain", err)
	}
	return &chain{d: d, handle: handle}, nil
}

func (c *chain) Images() ([]render.Image, error) {
	var count uint32
	if err := NewError(vulkan.GetSwapchainImages(c.d.device, c.handle, &count, nil)); err != nil {
		return nil, wrap("swapchain images", err)
	}
	handles := make([]vulkan.Image, count)
	if err := NewError(vulkan.GetSwapchainImages(c.d.device, c.handle, &count, handles)); err != nil {
		return nil, wrap("swapchain images", err)
	}
	out := make([]render.Image, count)
	for i, h := range handles[:count] {
		out[i] = &image{d: c.d, handle: h, borrowed: true}
	}
	return out, nil
}

// resultStatus maps the presentation results the renderer reacts to.
func resultStatus(ret vulkan.Result) (render.Status, error) {
	switch ret {
	case vulkan.Success:
		return render.StatusOK, nil
	case vulkan.Suboptimal:
		return render.StatusSuboptimal, nil
	case vulkan.ErrorOutOfDate:
		return render.StatusOutOfDate, nil
	default:
		return render.StatusError, NewError(ret)
	}
}

func (c *chain) AcquireNextImage(signal render.Semaphore) (uint32, render.Status, error) {
	sem, err := semaphoreHandle(signal)
	if err != nil {
		return 0, render.StatusError, err
	}
	var index uint32
	ret := vulkan.AcquireNextImage(c.d.device, c.handle, vulkan.MaxUint64, sem, vulkan.NullFence, &index)
	status, err := resultStatus(ret)
	return index, status, err
}

func (c *chain) Present(index uint32, wait render.Semaphore) (render.Status, error) {
	sem, err := semaphoreHandle(wait)
	if err != nil {
		return render.StatusError, err
	}
	ret := vulkan.QueuePresent(c.d.presentQueue, &vulkan.PresentInfo{
		SType:              vulkan.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vulkan.Semaphore{sem},
		SwapchainCount:     1,
		PSwapchains:        []vulkan.Swapchain{c.handle},
		PImageIndices:      []uint32{index},
	})
	return resultStatus(ret)
}

func (c *chain) Destroy() {
	if c.handle == vulkan.NullSwapchain {
		return
	}
	vulkan.DestroySwapchain(c.d.device, c.handle, nil)
	c.handle = vulkan.NullSwapchain
}
