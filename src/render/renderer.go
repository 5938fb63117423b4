package render

import (
	"errors"
	"fmt"
	"log/slog"
)

type Option func(*Renderer)

// WithLogger sets the logger. Rendering is silent by default.
func WithLogger(l *slog.Logger) Option {
	return func(r *Renderer) { r.log = l }
}

// WithConfig replaces DefaultConfig.
func WithConfig(cfg Config) Option {
	return func(r *Renderer) { r.cfg = cfg }
}

// Renderer drives the frame lifecycle: it paces the CPU against the GPU
// through a ring of frame slots, hands out one command buffer per frame
// and rebuilds the swapchain whenever the surface changes.
//
// A Renderer is driven by a single goroutine and is not safe for
// concurrent use.
type Renderer struct {
	window Window
	device Device
	cfg    Config
	log    *slog.Logger

	swapchain *Swapchain
	frames    *FrameSlotPool
	onRebuild func(*Swapchain) error

	frameStarted   bool
	passActive     bool
	rebuildPending bool
	currentImage   uint32
	closed         bool
}

// NewRenderer builds the first swapchain generation and the frame slots.
// It blocks while the window has a zero extent.
func NewRenderer(window Window, device Device, opts ...Option) (*Renderer, error) {
	r := &Renderer{window: window, device: device, cfg: DefaultConfig()}
	for _, opt := range opts {
		opt(r)
	}
	r.log = loggerOrNop(r.log)
	if err := r.cfg.Validate(); err != nil {
		return nil, err
	}

	sc, err := r.buildSwapchain(r.awaitExtent(), nil)
	if err != nil {
		return nil, fmt.Errorf("build swapchain: %w", err)
	}
	frames, err := NewFrameSlotPool(device, r.cfg.MaxFramesInFlight, sc.ImageCount())
	if err != nil {
		sc.Destroy()
		return nil, fmt.Errorf("create frame slots: %w", err)
	}
	r.swapchain = sc
	r.frames = frames
	return r, nil
}

// SetOnRebuild registers a hook invoked after every successful swapchain
// rebuild, before the next frame starts. Its error is returned from the
// call that triggered the rebuild.
func (r *Renderer) SetOnRebuild(fn func(*Swapchain) error) {
	r.onRebuild = fn
}

// BeginFrame waits for the current frame slot to retire, acquires the next
// swapchain image and opens the slot's command buffer.
//
// A nil buffer with a nil error means no frame was started because the
// swapchain was out of date and has been rebuilt; the caller simply
// tries again on its next iteration.
func (r *Renderer) BeginFrame() (CommandBuffer, error) {
	if r.closed {
		return nil, ErrClosed
	}
	mustState(!r.frameStarted, "BeginFrame", "frame already in progress")

	slot := r.frames.Current()
	if err := slot.InFlight.Wait(); err != nil {
		return nil, fmt.Errorf("wait frame slot %d: %w", r.frames.Index(), err)
	}

	index, status, err := r.swapchain.AcquireNextImage(slot.ImageAcquired)
	switch status {
	case StatusOutOfDate:
		r.log.Debug("acquire reported out of date", "generation", r.swapchain.Generation())
		r.window.ResetResized()
		r.rebuildPending = false
		if err := r.rebuild("acquire out of date"); err != nil {
			return nil, err
		}
		return nil, nil
	case StatusSuboptimal:
		r.rebuildPending = true
	case StatusError:
		return nil, statusError("acquire next image", status, err)
	}

	if err := r.swapchain.ClaimImage(index, slot.InFlight); err != nil {
		return nil, err
	}
	// The slot fence stays signaled on every path that returns no frame.
	if err := slot.InFlight.Reset(); err != nil {
		return nil, fmt.Errorf("reset frame slot %d: %w", r.frames.Index(), err)
	}

	cb := slot.CommandBuffer
	if err := cb.Reset(); err != nil {
		return nil, fmt.Errorf("reset command buffer: %w", err)
	}
	if err := cb.Begin(); err != nil {
		return nil, fmt.Errorf("begin command buffer: %w", err)
	}

	r.currentImage = index
	r.frameStarted = true
	return cb, nil
}

// BeginRenderPass begins the swapchain render pass on cb against the
// acquired image and sets viewport and scissor to the current extent.
func (r *Renderer) BeginRenderPass(cb CommandBuffer) {
	mustState(r.frameStarted, "BeginRenderPass", "no frame in progress")
	mustState(r.frames.Owns(cb), "BeginRenderPass", "command buffer does not belong to this renderer")
	mustState(cb == r.frames.Current().CommandBuffer, "BeginRenderPass", "command buffer is not the current frame's")
	mustState(!r.passActive, "BeginRenderPass", "render pass already active")

	extent := r.swapchain.Extent()
	target := r.swapchain.Image(r.currentImage).Framebuffer
	cb.BeginRenderPass(r.swapchain.RenderPass(), target, FullRect(extent), r.cfg.clearValues())
	cb.SetViewport(FullViewport(extent))
	cb.SetScissor(FullRect(extent))
	r.passActive = true
}

func (r *Renderer) EndRenderPass(cb CommandBuffer) {
	mustState(r.frameStarted, "EndRenderPass", "no frame in progress")
	mustState(r.frames.Owns(cb), "EndRenderPass", "command buffer does not belong to this renderer")
	mustState(cb == r.frames.Current().CommandBuffer, "EndRenderPass", "command buffer is not the current frame's")
	mustState(r.passActive, "EndRenderPass", "no render pass active")

	cb.EndRenderPass()
	r.passActive = false
}

// EndFrame closes the command buffer, submits it and presents the image.
// An out-of-date or suboptimal present, a window resize and a suboptimal
// acquire all trigger a rebuild and are not reported as errors. The slot
// ring advances unless a fatal error is returned.
func (r *Renderer) EndFrame() error {
	mustState(r.frameStarted, "EndFrame", "no frame in progress")
	mustState(!r.passActive, "EndFrame", "render pass still active")
	r.frameStarted = false

	slot := r.frames.Current()
	if err := slot.CommandBuffer.End(); err != nil {
		return fmt.Errorf("end command buffer: %w", err)
	}
	status, err := r.swapchain.SubmitAndPresent(slot.CommandBuffer, r.currentImage,
		slot.ImageAcquired, slot.RenderComplete, slot.InFlight)
	if status == StatusError {
		return err
	}

	var reason string
	switch {
	case status == StatusOutOfDate:
		reason = "present out of date"
	case status == StatusSuboptimal:
		reason = "present suboptimal"
	case r.window.Resized():
		reason = "window resized"
	case r.rebuildPending:
		reason = "acquire suboptimal"
	}
	if reason != "" {
		if status != StatusOK {
			r.log.Warn("degraded presentation", "status", status, "generation", r.swapchain.Generation())
		}
		r.window.ResetResized()
		r.rebuildPending = false
		if err := r.rebuild(reason); err != nil {
			return err
		}
	}

	r.frames.Advance()
	return nil
}

// Recreate rebuilds the swapchain outside the frame cycle, for example
// after an explicit resize request.
func (r *Renderer) Recreate() error {
	mustState(!r.frameStarted, "Recreate", "frame in progress")
	if r.closed {
		return ErrClosed
	}
	r.window.ResetResized()
	r.rebuildPending = false
	return r.rebuild("requested")
}

func (r *Renderer) awaitExtent() Extent {
	extent := r.window.Extent()
	for extent.Zero() {
		r.log.Debug("surface has zero extent, waiting for events")
		r.window.WaitEvents()
		extent = r.window.Extent()
	}
	return extent
}

// buildSwapchain builds the next generation, waiting for events while the
// surface still reports a zero extent.
func (r *Renderer) buildSwapchain(extent Extent, previous *Swapchain) (*Swapchain, error) {
	for {
		sc, err := BuildSwapchain(r.device, extent, previous, r.cfg, r.log)
		if !errors.Is(err, ErrZeroExtent) {
			return sc, err
		}
		r.log.Debug("surface has zero extent, waiting for events")
		r.window.WaitEvents()
		extent = r.awaitExtent()
	}
}

func (r *Renderer) rebuild(reason string) error {
	extent := r.awaitExtent()

	if err := r.device.WaitIdle(); err != nil {
		return fmt.Errorf("wait device idle: %w", err)
	}

	previous := r.swapchain
	next, err := r.buildSwapchain(extent, previous)
	if err != nil {
		return fmt.Errorf("rebuild swapchain: %w", err)
	}
	compatible := previous.CompatibleWith(next)
	previous.Destroy()
	r.swapchain = next

	if !compatible {
		return fmt.Errorf("rebuild swapchain: color %s/depth %s became %s/%s: %w",
			previous.ColorFormat(), previous.DepthFormat(),
			next.ColorFormat(), next.DepthFormat(), ErrSwapFormatChanged)
	}

	reallocated, err := r.frames.ReallocateCommandBuffers(next.ImageCount())
	if err != nil {
		return fmt.Errorf("rebuild swapchain: %w", err)
	}
	if reallocated {
		r.log.Info("command buffers reallocated", "images", next.ImageCount())
	}

	r.log.Info("swapchain rebuilt", "reason", reason, "generation", next.Generation())
	if r.onRebuild != nil {
		return r.onRebuild(next)
	}
	return nil
}

// FrameIndex is the index of the current frame slot, for indexing
// per-frame resources of the caller.
func (r *Renderer) FrameIndex() int {
	mustState(r.frameStarted, "FrameIndex", "no frame in progress")
	return r.frames.Index()
}

func (r *Renderer) CurrentCommandBuffer() CommandBuffer {
	mustState(r.frameStarted, "CurrentCommandBuffer", "no frame in progress")
	return r.frames.Current().CommandBuffer
}

func (r *Renderer) FrameInProgress() bool { return r.frameStarted }

// ImageIndex is the swapchain image acquired for the current frame.
func (r *Renderer) ImageIndex() uint32 {
	mustState(r.frameStarted, "ImageIndex", "no frame in progress")
	return r.currentImage
}

func (r *Renderer) Extent() Extent { return r.swapchain.Extent() }

func (r *Renderer) AspectRatio() float32 { return r.swapchain.Extent().AspectRatio() }

func (r *Renderer) RenderPass() RenderPass { return r.swapchain.RenderPass() }

func (r *Renderer) Swapchain() *Swapchain { return r.swapchain }

func (r *Renderer) MaxFramesInFlight() int { return r.frames.Len() }

func (r *Renderer) WaitIdle() error { return r.device.WaitIdle() }

// Close waits for the device to go idle and releases the frame slots and
// the swapchain. It is safe to call more than once.
func (r *Renderer) Close() error {
	if r.closed {
		return nil
	}
	mustState(!r.frameStarted, "Close", "frame in progress")
	r.closed = true

	err := r.device.WaitIdle()
	if err != nil {
		err = fmt.Errorf("wait device idle: %w", err)
	}
	r.frames.Destroy()
	r.swapchain.Destroy()
	return err
}
