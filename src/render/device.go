package render

// Window is the windowing collaborator consumed by the rebuild protocol.
type Window interface {
	// Extent returns the current drawable size in pixels. It is zero
	// while the window is minimized.
	Extent() Extent
	// WaitEvents blocks until at least one window event has been
	// processed.
	WaitEvents()
	// Resized reports whether a resize notification arrived since the
	// last ResetResized.
	Resized() bool
	ResetResized()
}

// Destroyer releases a device object.
type Destroyer interface {
	Destroy()
}

// Semaphore is a GPU-only ordering primitive between queue operations.
type Semaphore interface {
	Destroyer
}

// Fence is a CPU-observable completion signal for a batch of GPU work.
type Fence interface {
	Destroyer
	// Wait blocks until the fence is signaled.
	Wait() error
	// Reset returns the fence to the unsignaled state.
	Reset() error
}

// Image is a device image. Images owned by a presentation engine
// ignore Destroy.
type Image interface {
	Destroyer
}

type ImageView interface {
	Destroyer
}

type RenderPass interface {
	Destroyer
}

type Framebuffer interface {
	Destroyer
}

// CommandBuffer records GPU commands for one frame.
type CommandBuffer interface {
	Reset() error
	Begin() error
	End() error
	BeginRenderPass(pass RenderPass, target Framebuffer, area Rect, clear ClearValues)
	EndRenderPass()
	SetViewport(Viewport)
	SetScissor(Rect)
}

// SurfaceCapabilities describes what the presentation surface accepts.
type SurfaceCapabilities struct {
	MinImageCount uint32
	// MaxImageCount is zero when unbounded.
	MaxImageCount uint32
	// CurrentExtent is undefined (see Extent.Defined) when the swapchain
	// decides the size.
	CurrentExtent Extent
	MinExtent     Extent
	MaxExtent     Extent
	Formats       []SurfaceFormat
	PresentModes  []PresentMode
}

// SwapchainCreateInfo carries the negotiated parameters of one build.
type SwapchainCreateInfo struct {
	Extent        Extent
	MinImageCount uint32
	SurfaceFormat SurfaceFormat
	PresentMode   PresentMode
	// Old is the handle being replaced, or nil.
	Old PresentationChain
}

// PresentationChain is the presentation engine's image pool behind a
// Swapchain.
type PresentationChain interface {
	Destroyer
	Images() ([]Image, error)
	// AcquireNextImage asks for the next writable image. signal is raised
	// on the GPU once the image is actually available.
	AcquireNextImage(signal Semaphore) (uint32, Status, error)
	// Present queues index for display once wait is signaled.
	Present(index uint32, wait Semaphore) (Status, error)
}

// Device is the device/queue collaborator. All objects it creates are
// owned by the caller.
type Device interface {
	SurfaceCapabilities() (SurfaceCapabilities, error)
	DepthFormatSupported(Format) bool

	CreatePresentationChain(SwapchainCreateInfo) (PresentationChain, error)
	CreateDepthImage(extent Extent, format Format) (Image, error)
	CreateImageView(img Image, format Format, aspect Aspect) (ImageView, error)
	CreateRenderPass(color, depth Format) (RenderPass, error)
	CreateFramebuffer(pass RenderPass, attachments []ImageView, extent Extent) (Framebuffer, error)

	CreateSemaphore() (Semaphore, error)
	CreateFence(signaled bool) (Fence, error)
	AllocateCommandBuffers(n int) ([]CommandBuffer, error)
	FreeCommandBuffers([]CommandBuffer)

	// Submit queues cmd; execution waits for wait, and signal and fence
	// are raised on completion.
	Submit(cmd CommandBuffer, wait, signal Semaphore, fence Fence) error
	WaitIdle() error
}
