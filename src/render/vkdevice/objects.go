package vkdevice

import (
	"errors"
	"fmt"

	"github.com/vulkan-go/vulkan"

	"presenter/src/render"
)

var errNoMemoryType = errors.New("vkdevice: no device-local memory type for image")

type image struct {
	d      *Device
	handle vulkan.Image
	memory vulkan.DeviceMemory
	// borrowed images belong to the presentation engine.
	borrowed bool
}

func (i *image) Destroy() {
	if i.borrowed || i.handle == vulkan.NullImage {
		return
	}
	vulkan.DestroyImage(i.d.device, i.handle, nil)
	vulkan.FreeMemory(i.d.device, i.memory, nil)
	i.handle = vulkan.NullImage
	i.memory = vulkan.NullDeviceMemory
}

func (d *Device) CreateDepthImage(extent render.Extent, format render.Format) (render.Image, error) {
	img := &image{d: d}
	err := NewError(vulkan.CreateImage(d.device, &vulkan.ImageCreateInfo{
		SType:         vulkan.StructureTypeImageCreateInfo,
		ImageType:     vulkan.ImageType2d,
		Format:        vulkan.Format(format),
		Extent:        vulkan.Extent3D{Width: extent.Width, Height: extent.Height, Depth: 1},
		MipLevels:     1,
		ArrayLayers:   1,
		Samples:       vulkan.SampleCount1Bit,
		Tiling:        vulkan.ImageTilingOptimal,
		Usage:         vulkan.ImageUsageFlags(vulkan.ImageUsageDepthStencilAttachmentBit),
		SharingMode:   vulkan.SharingModeExclusive,
		InitialLayout: vulkan.ImageLayoutUndefined,
	}, nil, &img.handle))
	if err != nil {
		return nil, wrap("create depth image", err)
	}

	var req vulkan.MemoryRequirements
	vulkan.GetImageMemoryRequirements(d.device, img.handle, &req)
	req.Deref()
	memType, ok := d.findMemoryType(req.MemoryTypeBits, vulkan.MemoryPropertyDeviceLocalBit)
	if !ok {
		vulkan.DestroyImage(d.device, img.handle, nil)
		return nil, errNoMemoryType
	}
	err = NewError(vulkan.AllocateMemory(d.device, &vulkan.MemoryAllocateInfo{
		SType:           vulkan.StructureTypeMemoryAllocateInfo,
		AllocationSize:  req.Size,
		MemoryTypeIndex: memType,
	}, nil, &img.memory))
	if err != nil {
		vulkan.DestroyImage(d.device, img.handle, nil)
		return nil, wrap("allocate depth memory", err)
	}
	if err := NewError(vulkan.BindImageMemory(d.device, img.handle, img.memory, 0)); err != nil {
		img.Destroy()
		return nil, wrap("bind depth memory", err)
	}
	return img, nil
}

type imageView struct {
	d      *Device
	handle vulkan.ImageView
}

func (v *imageView) Destroy() {
	if v.handle == vulkan.NullImageView {
		return
	}
	vulkan.DestroyImageView(v.d.device, v.handle, nil)
	v.handle = vulkan.NullImageView
}

func aspectFlags(a render.Aspect, f render.Format) vulkan.ImageAspectFlags {
	if a == render.AspectColor {
		return vulkan.ImageAspectFlags(vulkan.ImageAspectColorBit)
	}
	flags := vulkan.ImageAspectFlags(vulkan.ImageAspectDepthBit)
	if f.HasStencil() {
		flags |= vulkan.ImageAspectFlags(vulkan.ImageAspectStencilBit)
	}
	return flags
}

func (d *Device) CreateImageView(img render.Image, format render.Format, aspect render.Aspect) (render.ImageView, error) {
	src, ok := img.(*image)
	if !ok {
		return nil, fmt.Errorf("image view: %w", ErrForeignObject)
	}
	view := &imageView{d: d}
	err := NewError(vulkan.CreateImageView(d.device, &vulkan.ImageViewCreateInfo{
		SType:    vulkan.StructureTypeImageViewCreateInfo,
		Image:    src.handle,
		ViewType: vulkan.ImageViewType2d,
		Format:   vulkan.Format(format),
		Components: vulkan.ComponentMapping{
			R: vulkan.ComponentSwizzleIdentity,
			G: vulkan.ComponentSwizzleIdentity,
			B: vulkan.ComponentSwizzleIdentity,
			A: vulkan.ComponentSwizzleIdentity,
		},
		SubresourceRange: vulkan.ImageSubresourceRange{
			AspectMask: aspectFlags(aspect, format),
			LevelCount: 1,
			LayerCount: 1,
		},
	}, nil, &view.handle))
	if err != nil {
		return nil, wrap("create image view", err)
	}
	return view, nil
}

type renderPass struct {
	d      *Device
	handle vulkan.RenderPass
}

func (p *renderPass) Destroy() {
	if p.handle == vulkan.NullRenderPass {
		return
	}
	vulkan.DestroyRenderPass(p.d.device, p.handle, nil)
	p.handle = vulkan.NullRenderPass
}

// CreateRenderPass builds the single-subpass pass used for every
// swapchain image: a cleared color attachment left ready to present and
// a cleared depth attachment.
func (d *Device) CreateRenderPass(color, depth render.Format) (render.RenderPass, error) {
	attachments := []vulkan.AttachmentDescription{{
		Format:         vulkan.Format(color),
		Samples:        vulkan.SampleCount1Bit,
		LoadOp:         vulkan.AttachmentLoadOpClear,
		StoreOp:        vulkan.AttachmentStoreOpStore,
		StencilLoadOp:  vulkan.AttachmentLoadOpDontCare,
		StencilStoreOp: vulkan.AttachmentStoreOpDontCare,
		InitialLayout:  vulkan.ImageLayoutUndefined,
		FinalLayout:    vulkan.ImageLayoutPresentSrc,
	}, {
		Format:         vulkan.Format(depth),
		Samples:        vulkan.SampleCount1Bit,
		LoadOp:         vulkan.AttachmentLoadOpClear,
		StoreOp:        vulkan.AttachmentStoreOpDontCare,
		StencilLoadOp:  vulkan.AttachmentLoadOpClear,
		StencilStoreOp: vulkan.AttachmentStoreOpDontCare,
		InitialLayout:  vulkan.ImageLayoutUndefined,
		FinalLayout:    vulkan.ImageLayoutDepthStencilAttachmentOptimal,
	}}
	colorRef := []vulkan.AttachmentReference{{
		Attachment: 0,
		Layout:     vulkan.ImageLayoutColorAttachmentOptimal,
	}}
	depthRef := vulkan.AttachmentReference{
		Attachment: 1,
		Layout:     vulkan.ImageLayoutDepthStencilAttachmentOptimal,
	}
	stages := vulkan.PipelineStageFlags(vulkan.PipelineStageColorAttachmentOutputBit | vulkan.PipelineStageEarlyFragmentTestsBit)

	pass := &renderPass{d: d}
	err := NewError(vulkan.CreateRenderPass(d.device, &vulkan.RenderPassCreateInfo{
		SType:           vulkan.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses: []vulkan.SubpassDescription{{
			PipelineBindPoint:       vulkan.PipelineBindPointGraphics,
			ColorAttachmentCount:    1,
			PColorAttachments:       colorRef,
			PDepthStencilAttachment: &depthRef,
		}},
		DependencyCount: 1,
		PDependencies: []vulkan.SubpassDependency{{
			SrcSubpass:    vulkan.SubpassExternal,
			DstSubpass:    0,
			SrcStageMask:  stages,
			DstStageMask:  stages,
			DstAccessMask: vulkan.AccessFlags(vulkan.AccessColorAttachmentWriteBit | vulkan.AccessDepthStencilAttachmentWriteBit),
		}},
	}, nil, &pass.handle))
	if err != nil {
		return nil, wrap("create render pass", err)
	}
	return pass, nil
}

type framebuffer struct {
	d      *Device
	handle vulkan.Framebuffer
}

func (f *framebuffer) Destroy() {
	if f.handle == vulkan.NullFramebuffer {
		return
	}
	vulkan.DestroyFramebuffer(f.d.device, f.handle, nil)
	f.handle = vulkan.NullFramebuffer
}

func (d *Device) CreateFramebuffer(pass render.RenderPass, attachments []render.ImageView, extent render.Extent) (render.Framebuffer, error) {
	rp, ok := pass.(*renderPass)
	if !ok {
		return nil, fmt.Errorf("framebuffer: %w", ErrForeignObject)
	}
	views := make([]vulkan.ImageView, len(attachments))
	for i, a := range attachments {
		v, ok := a.(*imageView)
		if !ok {
			return nil, fmt.Errorf("framebuffer attachment %d: %w", i, ErrForeignObject)
		}
		views[i] = v.handle
	}
	fb := &framebuffer{d: d}
	err := NewError(vulkan.CreateFramebuffer(d.device, &vulkan.FramebufferCreateInfo{
		SType:           vulkan.StructureTypeFramebufferCreateInfo,
		RenderPass:      rp.handle,
		AttachmentCount: uint32(len(views)),
		PAttachments:    views,
		Width:           extent.Width,
		Height:          extent.Height,
		Layers:          1,
	}, nil, &fb.handle))
	if err != nil {
		return nil, wrap("create framebuffer", err)
	}
	return fb, nil
}

type semaphore struct {
	d      *Device
	handle vulkan.Semaphore
}

func (s *semaphore) Destroy() {
	if s.handle == vulkan.NullSemaphore {
		return
	}
	vulkan.DestroySemaphore(s.d.device, s.handle, nil)
	s.handle = vulkan.NullSemaphore
}

func semaphoreHandle(s render.Semaphore) (vulkan.Semaphore, error) {
	if s == nil {
		return vulkan.NullSemaphore, nil
	}
	sem, ok := s.(*semaphore)
	if !ok {
		return vulkan.NullSemaphore, fmt.Errorf("semaphore: %w", ErrForeignObject)
	}
	return sem.handle, nil
}

func (d *Device) CreateSemaphore() (render.Semaphore, error) {
	s := &semaphore{d: d}
	err := NewError(vulkan.CreateSemaphore(d.device, &vulkan.SemaphoreCreateInfo{
		SType: vulkan.StructureTypeSemaphoreCreateInfo,
	}, nil, &s.handle))
	if err != nil {
		return nil, wrap("create semaphore", err)
	}
	return s, nil
}

type fence struct {
	d      *Device
	handle vulkan.Fence
}

func (f *fence) Wait() error {
	return wrap("wait fence", NewError(vulkan.WaitForFences(f.d.device, 1, []vulkan.Fence{f.handle}, vulkan.True, vulkan.MaxUint64)))
}

func (f *fence) Reset() error {
	return wrap("reset fence", NewError(vulkan.ResetFences(f.d.device, 1, []vulkan.Fence{f.handle})))
}

func (f *fence) Destroy() {
	if f.handle == vulkan.NullFence {
		return
	}
	vulkan.DestroyFence(f.d.device, f.handle, nil)
	f.handle = vulkan.NullFence
}

func (d *Device) CreateFence(signaled bool) (render.Fence, error) {
	info := vulkan.FenceCreateInfo{SType: vulkan.StructureTypeFenceCreateInfo}
	if signaled {
		info.Flags = vulkan.FenceCreateFlags(vulkan.FenceCreateSignaledBit)
	}
	f := &fence{d: d}
	if err := NewError(vulkan.CreateFence(d.device, &info, nil, &f.handle)); err != nil {
		return nil, wrap("create fence", err)
	}
	return f, nil
}
