package vkdevice

import (
	"github.com/vulkan-go/vulkan"

	"presenter/src/render"
)

func toExtent(e vulkan.Extent2D) render.Extent {
	e.Deref()
	return render.Extent{Width: e.Width, Height: e.Height}
}

func fromExtent(e render.Extent) vulkan.Extent2D {
	return vulkan.Extent2D{Width: e.Width, Height: e.Height}
}

// SurfaceCapabilities queries the surface limits, formats and present
// modes in one call.
func (d *Device) SurfaceCapabilities() (render.SurfaceCapabilities, error) {
	var caps vulkan.SurfaceCapabilities
	if err := NewError(vulkan.GetPhysicalDeviceSurfaceCapabilities(d.physical, d.surface, &caps)); err != nil {
		return render.SurfaceCapabilities{}, wrap("surface capabilities", err)
	}
	caps.Deref()
	out := render.SurfaceCapabilities{
		MinImageCount: caps.MinImageCount,
		MaxImageCount: caps.MaxImageCount,
		CurrentExtent: toExtent(caps.CurrentExtent),
		MinExtent:     toExtent(caps.MinImageExtent),
		MaxExtent:     toExtent(caps.MaxImageExtent),
	}

	var count uint32
	if err := NewError(vulkan.GetPhysicalDeviceSurfaceFormats(d.physical, d.surface, &count, nil)); err != nil {
		return out, wrap("surface formats", err)
	}
	formats := make([]vulkan.SurfaceFormat, count)
	if err := NewError(vulkan.GetPhysicalDeviceSurfaceFormats(d.physical, d.surface, &count, formats)); err != nil {
		return out, wrap("surface formats", err)
	}
	for i := range formats[:count] {
		formats[i].Deref()
		out.Formats = append(out.Formats, render.SurfaceFormat{
			Format:     render.Format(formats[i].Format),
			ColorSpace: render.ColorSpace(formats[i].ColorSpace),
		})
	}

	count = 0
	if err := NewError(vulkan.GetPhysicalDeviceSurfacePresentModes(d.physical, d.surface, &count, nil)); err != nil {
		return out, wrap("surface present modes", err)
	}
	modes := make([]vulkan.PresentMode, count)
	if err := NewError(vulkan.GetPhysicalDeviceSurfacePresentModes(d.physical, d.surface, &count, modes)); err != nil {
		return out, wrap("surface present modes", err)
	}
	for _, m := range modes[:count] {
		out.PresentModes = append(out.PresentModes, render.PresentMode(m))
	}
	return out, nil
}

// DepthFormatSupported reports whether f can back an optimally tiled
// depth attachment.
func (d *Device) DepthFormatSupported(f render.Format) bool {
	var props vulkan.FormatProperties
	vulkan.GetPhysicalDeviceFormatProperties(d.physical, vulkan.Format(f), &props)
	props.Deref()
	return props.OptimalTilingFeatures&vulkan.FormatFeatureFlags(vulkan.FormatFeatureDepthStencilAttachmentBit) != 0
}

func (d *Device) findMemoryType(typeBits uint32, flags vulkan.MemoryPropertyFlagBits) (uint32, bool) {
	want := vulkan.MemoryPropertyFlags(flags)
	for i := uint32(0); i < d.memory.MemoryTypeCount; i++ {
		if typeBits&(1<<i) == 0 {
			continue
		}
		d.memory.MemoryTypes[i].Deref()
		if d.memory.MemoryTypes[i].PropertyFlags&want == want {
			return i, true
		}
	}
	return 0, false
}
