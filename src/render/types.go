package render

import (
	"fmt"
	"math"
	"strconv"
)

// Extent is a size in pixels.
type Extent struct {
	Width  uint32
	Height uint32
}

// Zero reports whether either dimension is zero, as for a minimized
// window.
func (e Extent) Zero() bool {
	return e.Width == 0 || e.Height == 0
}

func (e Extent) AspectRatio() float32 {
	if e.Height == 0 {
		return 0
	}
	return float32(e.Width) / float32(e.Height)
}

// undefinedExtent is reported by surfaces whose size is decided by the
// swapchain rather than the window system.
const undefinedExtent = math.MaxUint32

// Defined reports whether the extent carries a real size rather than
// the "decided by the swapchain" marker.
func (e Extent) Defined() bool {
	return e.Width != undefinedExtent && e.Height != undefinedExtent
}

// Within reports whether e lies inside [min, max] in both dimensions.
func (e Extent) Within(min, max Extent) bool {
	return e.Width >= min.Width && e.Width <= max.Width &&
		e.Height >= min.Height && e.Height <= max.Height
}

type Viewport struct {
	X, Y          float32
	Width, Height float32
	MinDepth      float32
	MaxDepth      float32
}

type Rect struct {
	X, Y   int32
	Extent Extent
}

// FullViewport covers e with the default [0, 1] depth range.
func FullViewport(e Extent) Viewport {
	return Viewport{Width: float32(e.Width), Height: float32(e.Height), MaxDepth: 1}
}

func FullRect(e Extent) Rect {
	return Rect{Extent: e}
}

// Format values share their numbering with VkFormat so a backend can
// convert with a plain cast.
type Format int32

const (
	FormatUndefined       Format = 0
	FormatR8G8B8A8Unorm   Format = 37
	FormatR8G8B8A8Srgb    Format = 43
	FormatB8G8R8A8Unorm   Format = 44
	FormatB8G8R8A8Srgb    Format = 50
	FormatD16Unorm        Format = 124
	FormatD32Sfloat       Format = 126
	FormatD24UnormS8Uint  Format = 129
	FormatD32SfloatS8Uint Format = 130
)

var formatNames = map[Format]string{
	FormatUndefined:       "undefined",
	FormatR8G8B8A8Unorm:   "r8g8b8a8_unorm",
	FormatR8G8B8A8Srgb:    "r8g8b8a8_srgb",
	FormatB8G8R8A8Unorm:   "b8g8r8a8_unorm",
	FormatB8G8R8A8Srgb:    "b8g8r8a8_srgb",
	FormatD16Unorm:        "d16_unorm",
	FormatD32Sfloat:       "d32_sfloat",
	FormatD24UnormS8Uint:  "d24_unorm_s8_uint",
	FormatD32SfloatS8Uint: "d32_sfloat_s8_uint",
}

func (f Format) String() string {
	if s, ok := formatNames[f]; ok {
		return s
	}
	return "format(" + strconv.Itoa(int(f)) + ")"
}

// ParseFormat is the inverse of Format.String.
func ParseFormat(s string) (Format, bool) {
	for f, name := range formatNames {
		if name == s {
			return f, true
		}
	}
	return FormatUndefined, false
}

func (f Format) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f *Format) UnmarshalText(b []byte) error {
	v, ok := ParseFormat(string(b))
	if !ok {
		return fmt.Errorf("render: unknown format %q", b)
	}
	*f = v
	return nil
}

// HasStencil reports whether a depth format carries a stencil aspect.
func (f Format) HasStencil() bool {
	return f == FormatD24UnormS8Uint || f == FormatD32SfloatS8Uint
}

// ColorSpace shares its numbering with VkColorSpaceKHR.
type ColorSpace int32

const ColorSpaceSrgbNonlinear ColorSpace = 0

type SurfaceFormat struct {
	Format     Format
	ColorSpace ColorSpace
}

// PresentMode shares its numbering with VkPresentModeKHR.
type PresentMode int32

const (
	PresentModeImmediate   PresentMode = 0
	PresentModeMailbox     PresentMode = 1
	PresentModeFifo        PresentMode = 2
	PresentModeFifoRelaxed PresentMode = 3
)

var presentModeNames = map[PresentMode]string{
	PresentModeImmediate:   "immediate",
	PresentModeMailbox:     "mailbox",
	PresentModeFifo:        "fifo",
	PresentModeFifoRelaxed: "fifo_relaxed",
}

func (m PresentMode) String() string {
	if s, ok := presentModeNames[m]; ok {
		return s
	}
	return "present_mode(" + strconv.Itoa(int(m)) + ")"
}

func ParsePresentMode(s string) (PresentMode, bool) {
	for m, name := range presentModeNames {
		if name == s {
			return m, true
		}
	}
	return 0, false
}

func (m PresentMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *PresentMode) UnmarshalText(b []byte) error {
	v, ok := ParsePresentMode(string(b))
	if !ok {
		return fmt.Errorf("render: unknown present mode %q", b)
	}
	*m = v
	return nil
}

// Aspect selects the image aspect a view covers.
type Aspect int

const (
	AspectColor Aspect = iota
	AspectDepth
)

// ClearValues are the load-op clear values of the swapchain render pass.
type ClearValues struct {
	Color   [4]float32
	Depth   float32
	Stencil uint32
}
