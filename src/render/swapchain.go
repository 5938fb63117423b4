package render

import (
	"fmt"
	"log/slog"
	"slices"
)

// PresentableImage is one image of a Swapchain generation together with
// the attachments rendered alongside it.
type PresentableImage struct {
	Index       uint32
	Image       Image
	ColorView   ImageView
	Depth       Image
	DepthView   ImageView
	Framebuffer Framebuffer
	Format      Format
	Extent      Extent
}

// Swapchain is one generation of the presentable-image pool. Apart from
// the per-image fence bindings it is immutable; a surface change is
// handled by building a new generation from the old one.
type Swapchain struct {
	device Device
	log    *slog.Logger

	chain         PresentationChain
	generation    uint64
	extent        Extent
	format        SurfaceFormat
	depthFormat   Format
	presentMode   PresentMode
	// minImageCount is the count requested from the presentation
	// engine, which may hand out more images than that.
	minImageCount uint32
	renderPass    RenderPass
	images        []PresentableImage

	// imageFences[i] is the submission fence of the last frame that
	// rendered into image i, or nil if the image was never submitted.
	imageFences []Fence
}

// BuildSwapchain creates a new generation sized to extent.
//
// When previous is non-nil its format, depth format, present mode and
// image count are reused as long as the surface still accepts them, and
// its presentation chain is handed to the device as the old chain. The
// caller retires previous after BuildSwapchain returns and must ensure
// no GPU work still targets its images.
func BuildSwapchain(device Device, extent Extent, previous *Swapchain, cfg Config, log *slog.Logger) (*Swapchain, error) {
	mustState(!extent.Zero(), "BuildSwapchain", "zero extent")
	log = loggerOrNop(log)

	caps, err := device.SurfaceCapabilities()
	if err != nil {
		return nil, fmt.Errorf("query surface capabilities: %w", err)
	}

	sc := &Swapchain{device: device, log: log, generation: 1}
	if previous != nil {
		sc.generation = previous.generation + 1
	}

	if sc.extent, err = chooseExtent(caps, extent); err != nil {
		return nil, err
	}
	if sc.format, err = chooseSurfaceFormat(caps, previous, cfg); err != nil {
		return nil, err
	}
	if sc.depthFormat, err = chooseDepthFormat(device, previous, cfg); err != nil {
		return nil, err
	}
	sc.presentMode = choosePresentMode(caps, previous, cfg)
	sc.minImageCount = chooseImageCount(caps, previous, cfg)

	info := SwapchainCreateInfo{
		Extent:        sc.extent,
		MinImageCount: sc.minImageCount,
		SurfaceFormat: sc.format,
		PresentMode:   sc.presentMode,
	}
	if previous != nil {
		info.Old = previous.chain
	}

	if sc.chain, err = device.CreatePresentationChain(info); err != nil {
		return nil, fmt.Errorf("create presentation chain: %w", err)
	}
	if err := sc.createImages(); err != nil {
		sc.Destroy()
		return nil, err
	}
	sc.imageFences = make([]Fence, len(sc.images))

	log.Info("swapchain built",
		"generation", sc.generation,
		"extent", fmt.Sprintf("%dx%d", sc.extent.Width, sc.extent.Height),
		"format", sc.format.Format,
		"depth", sc.depthFormat,
		"present_mode", sc.presentMode,
		"images", len(sc.images))
	return sc, nil
}

func (sc *Swapchain) createImages() error {
	images, err := sc.chain.Images()
	if err != nil {
		return fmt.Errorf("get swapchain images: %w", err)
	}
	if len(images) == 0 {
		return fmt.Errorf("get swapchain images: presentation engine returned none")
	}

	if sc.renderPass, err = sc.device.CreateRenderPass(sc.format.Format, sc.depthFormat); err != nil {
		return fmt.Errorf("create render pass: %w", err)
	}

	sc.images = make([]PresentableImage, 0, len(images))
	for i, img := range images {
		pi := PresentableImage{
			Index:  uint32(i),
			Image:  img,
			Format: sc.format.Format,
			Extent: sc.extent,
		}
		// Appended before the attachments exist so Destroy releases a
		// partially built image too.
		sc.images = append(sc.images, pi)
		p := &sc.images[i]

		if p.ColorView, err = sc.device.CreateImageView(img, sc.format.Format, AspectColor); err != nil {
			return fmt.Errorf("create color view %d: %w", i, err)
		}
		if p.Depth, err = sc.device.CreateDepthImage(sc.extent, sc.depthFormat); err != nil {
			return fmt.Errorf("create depth image %d: %w", i, err)
		}
		if p.DepthView, err = sc.device.CreateImageView(p.Depth, sc.depthFormat, AspectDepth); err != nil {
			return fmt.Errorf("create depth view %d: %w", i, err)
		}
		attachments := []ImageView{p.ColorView, p.DepthView}
		if p.Framebuffer, err = sc.device.CreateFramebuffer(sc.renderPass, attachments, sc.extent); err != nil {
			return fmt.Errorf("create framebuffer %d: %w", i, err)
		}
	}
	return nil
}

func chooseExtent(caps SurfaceCapabilities, requested Extent) (Extent, error) {
	if caps.CurrentExtent.Defined() {
		if caps.CurrentExtent.Zero() {
			return Extent{}, ErrZeroExtent
		}
		return caps.CurrentExtent, nil
	}
	if !requested.Within(caps.MinExtent, caps.MaxExtent) {
		return Extent{}, fmt.Errorf("%w: %dx%d outside [%dx%d, %dx%d]", ErrSurfaceIncompatible,
			requested.Width, requested.Height,
			caps.MinExtent.Width, caps.MinExtent.Height,
			caps.MaxExtent.Width, caps.MaxExtent.Height)
	}
	return requested, nil
}

func chooseSurfaceFormat(caps SurfaceCapabilities, previous *Swapchain, cfg Config) (SurfaceFormat, error) {
	switch {
	case len(caps.Formats) == 0:
		return SurfaceFormat{}, ErrNoSurfaceFormat
	case len(caps.Formats) == 1 && caps.Formats[0].Format == FormatUndefined:
		// The surface has no preference.
		return SurfaceFormat{Format: cfg.ColorFormat, ColorSpace: caps.Formats[0].ColorSpace}, nil
	}
	if previous != nil && slices.Contains(caps.Formats, previous.format) {
		return previous.format, nil
	}
	want := SurfaceFormat{Format: cfg.ColorFormat, ColorSpace: ColorSpaceSrgbNonlinear}
	if slices.Contains(caps.Formats, want) {
		return want, nil
	}
	return caps.Formats[0], nil
}

func chooseDepthFormat(device Device, previous *Swapchain, cfg Config) (Format, error) {
	if previous != nil && device.DepthFormatSupported(previous.depthFormat) {
		return previous.depthFormat, nil
	}
	for _, f := range cfg.DepthFormats {
		if device.DepthFormatSupported(f) {
			return f, nil
		}
	}
	return FormatUndefined, ErrNoDepthFormat
}

func choosePresentMode(caps SurfaceCapabilities, previous *Swapchain, cfg Config) PresentMode {
	if previous != nil && slices.Contains(caps.PresentModes, previous.presentMode) {
		return previous.presentMode
	}
	if cfg.VSync {
		return PresentModeFifo
	}
	for _, m := range cfg.PresentModes {
		if slices.Contains(caps.PresentModes, m) {
			return m
		}
	}
	// FIFO support is mandatory.
	return PresentModeFifo
}

func chooseImageCount(caps SurfaceCapabilities, previous *Swapchain, cfg Config) uint32 {
	var n uint32
	switch {
	case previous != nil:
		n = previous.minImageCount
	case cfg.ImageCount != 0:
		n = cfg.ImageCount
	default:
		n = caps.MinImageCount + 1
	}
	if n < caps.MinImageCount {
		n = caps.MinImageCount
	}
	if caps.MaxImageCount > 0 && n > caps.MaxImageCount {
		n = caps.MaxImageCount
	}
	return n
}

// Generation increases strictly with every build.
func (sc *Swapchain) Generation() uint64 { return sc.generation }

func (sc *Swapchain) Extent() Extent { return sc.extent }

func (sc *Swapchain) ColorFormat() Format { return sc.format.Format }

func (sc *Swapchain) DepthFormat() Format { return sc.depthFormat }

func (sc *Swapchain) PresentMode() PresentMode { return sc.presentMode }

func (sc *Swapchain) RenderPass() RenderPass { return sc.renderPass }

func (sc *Swapchain) ImageCount() int { return len(sc.images) }

func (sc *Swapchain) Image(index uint32) PresentableImage { return sc.images[index] }

// CompatibleWith reports whether other negotiated the same color and
// depth formats, so pipelines built against sc remain valid for other.
func (sc *Swapchain) CompatibleWith(other *Swapchain) bool {
	return sc.format.Format == other.format.Format && sc.depthFormat == other.depthFormat
}

// AcquireNextImage requests the next writable image. signal is raised
// on the GPU when the image is available; the returned index must not be
// used when the status is StatusOutOfDate or StatusError.
func (sc *Swapchain) AcquireNextImage(signal Semaphore) (uint32, Status, error) {
	index, status, err := sc.chain.AcquireNextImage(signal)
	if status == StatusError {
		return 0, status, err
	}
	if status != StatusOutOfDate && int(index) >= len(sc.images) {
		return 0, StatusError, fmt.Errorf("acquired image %d out of range [0, %d)", index, len(sc.images))
	}
	return index, status, nil
}

// ClaimImage binds fence to image index for this acquisition after
// waiting for the work last tracked on that image.
func (sc *Swapchain) ClaimImage(index uint32, fence Fence) error {
	if prev := sc.imageFences[index]; prev != nil {
		if err := prev.Wait(); err != nil {
			return fmt.Errorf("wait image %d: %w", index, err)
		}
	}
	sc.imageFences[index] = fence
	return nil
}

// ImageFence returns the fence bound to image index, or nil.
func (sc *Swapchain) ImageFence(index uint32) Fence {
	return sc.imageFences[index]
}

// SubmitAndPresent submits cmd gated on wait, raises signalOnDone and
// fence on completion and presents image index once signalOnDone fires.
func (sc *Swapchain) SubmitAndPresent(cmd CommandBuffer, index uint32, wait, signalOnDone Semaphore, fence Fence) (Status, error) {
	if err := sc.device.Submit(cmd, wait, signalOnDone, fence); err != nil {
		return StatusError, fmt.Errorf("submit: %w", err)
	}
	status, err := sc.chain.Present(index, signalOnDone)
	if status == StatusError {
		return status, fmt.Errorf("present image %d: %w", index, err)
	}
	return status, nil
}

// Destroy releases every resource of this generation. The images
// themselves belong to the presentation chain.
func (sc *Swapchain) Destroy() {
	for _, p := range sc.images {
		for _, d := range []Destroyer{p.Framebuffer, p.DepthView, p.Depth, p.ColorView} {
			if d != nil {
				d.Destroy()
			}
		}
	}
	sc.images = nil
	sc.imageFences = nil
	if sc.renderPass != nil {
		sc.renderPass.Destroy()
		sc.renderPass = nil
	}
	if sc.chain != nil {
		sc.chain.Destroy()
		sc.chain = nil
	}
}
