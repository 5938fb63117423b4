package render

// Context is the frame surface handed to draw code.
type Context interface {
	SetOnRebuild(onRebuild func(*Swapchain) error)
	BeginFrame() (CommandBuffer, error)
	BeginRenderPass(cb CommandBuffer)
	EndRenderPass(cb CommandBuffer)
	EndFrame() error
	FrameIndex() int
	FrameInProgress() bool
	Extent() Extent
	AspectRatio() float32
	RenderPass() RenderPass
	WaitIdle() error
}

var _ Context = (*Renderer)(nil)
