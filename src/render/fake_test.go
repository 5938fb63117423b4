package render

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
)

// eventLog records every device and window call in order.
type eventLog struct {
	events []string
}

func (l *eventLog) add(format string, args ...any) {
	l.events = append(l.events, fmt.Sprintf(format, args...))
}

// index returns the position of the first event at or after from that
// equals ev, or -1.
func (l *eventLog) index(ev string, from int) int {
	for i := from; i < len(l.events); i++ {
		if l.events[i] == ev {
			return i
		}
	}
	return -1
}

func (l *eventLog) count(ev string) int {
	n := 0
	for _, e := range l.events {
		if e == ev {
			n++
		}
	}
	return n
}

func (l *eventLog) countPrefix(prefix string) int {
	n := 0
	for _, e := range l.events {
		if strings.HasPrefix(e, prefix) {
			n++
		}
	}
	return n
}

func (l *eventLog) mark() int { return len(l.events) }

type fakeObject struct {
	log       *eventLog
	name      string
	destroyed int
}

func (o *fakeObject) Destroy() {
	o.destroyed++
	o.log.add("destroy %s", o.name)
}

type fakeSemaphore struct{ *fakeObject }

type fakeImage struct{ *fakeObject }

type fakeView struct{ *fakeObject }

type fakeRenderPass struct {
	*fakeObject
	color, depth Format
}

type fakeFramebuffer struct {
	*fakeObject
	extent Extent
}

type fakeFence struct {
	*fakeObject
	signaled bool
	// pending is set by a submit; the simulated GPU completes the work on
	// the next wait.
	pending bool
}

func (f *fakeFence) Wait() error {
	f.log.add("wait %s", f.name)
	if f.pending {
		f.pending = false
		f.signaled = true
	}
	if !f.signaled {
		return fmt.Errorf("fake: %s would never signal", f.name)
	}
	return nil
}

func (f *fakeFence) Reset() error {
	f.log.add("reset %s", f.name)
	f.signaled = false
	return nil
}

type fakePass struct {
	target Framebuffer
	area   Rect
	clear  ClearValues
}

type fakeCommandBuffer struct {
	*fakeObject
	recording bool
	inPass    bool
	passes    []fakePass
	viewports []Viewport
	scissors  []Rect
}

func (c *fakeCommandBuffer) Reset() error {
	c.recording = false
	c.inPass = false
	return nil
}

func (c *fakeCommandBuffer) Begin() error {
	if c.recording {
		return fmt.Errorf("fake: %s already recording", c.name)
	}
	c.recording = true
	c.log.add("begin %s", c.name)
	return nil
}

func (c *fakeCommandBuffer) End() error {
	if !c.recording || c.inPass {
		return fmt.Errorf("fake: %s cannot end", c.name)
	}
	c.recording = false
	c.log.add("end %s", c.name)
	return nil
}

func (c *fakeCommandBuffer) BeginRenderPass(pass RenderPass, target Framebuffer, area Rect, clear ClearValues) {
	c.inPass = true
	c.passes = append(c.passes, fakePass{target: target, area: area, clear: clear})
	c.log.add("begin pass %s", c.name)
}

func (c *fakeCommandBuffer) EndRenderPass() {
	c.inPass = false
	c.log.add("end pass %s", c.name)
}

func (c *fakeCommandBuffer) SetViewport(v Viewport) { c.viewports = append(c.viewports, v) }

func (c *fakeCommandBuffer) SetScissor(r Rect) { c.scissors = append(c.scissors, r) }

// fakeResult scripts one acquire or present outcome.
type fakeResult struct {
	status Status
	err    error
}

type fakeChain struct {
	*fakeObject
	dev    *fakeDevice
	info   SwapchainCreateInfo
	images []Image
	next   int
}

func (c *fakeChain) Images() ([]Image, error) {
	return c.images, c.dev.fail("Images")
}

func (c *fakeChain) AcquireNextImage(signal Semaphore) (uint32, Status, error) {
	status, err := StatusOK, error(nil)
	if len(c.dev.acquireScript) > 0 {
		status, err = c.dev.acquireScript[0].status, c.dev.acquireScript[0].err
		c.dev.acquireScript = c.dev.acquireScript[1:]
	}
	if status == StatusOutOfDate || status == StatusError {
		c.log.add("acquire %s %s", c.name, status)
		return math.MaxUint32, status, err
	}
	index := uint32(c.next % len(c.images))
	c.next++
	c.log.add("acquire %s image%d", c.name, index)
	return index, status, nil
}

func (c *fakeChain) Present(index uint32, wait Semaphore) (Status, error) {
	status, err := StatusOK, error(nil)
	if len(c.dev.presentScript) > 0 {
		status, err = c.dev.presentScript[0].status, c.dev.presentScript[0].err
		c.dev.presentScript = c.dev.presentScript[1:]
	}
	c.log.add("present %s image%d", c.name, index)
	return status, err
}

type fakeDevice struct {
	log  *eventLog
	caps SurfaceCapabilities
	// depth lists the supported depth formats.
	depth []Format

	acquireScript []fakeResult
	presentScript []fakeResult
	// surfaceExtents replaces caps.CurrentExtent on successive
	// capability queries; the last value sticks.
	surfaceExtents []Extent
	// extraImages is how many images a chain hands out beyond the
	// requested minimum.
	extraImages uint32
	// failures makes the named operation return the error.
	failures map[string]error

	objects  []*fakeObject
	chains   []*fakeChain
	fences   []*fakeFence
	buffers  []*fakeCommandBuffer
	submits  []*fakeCommandBuffer
	nextName map[string]int
}

func newFakeDevice(log *eventLog) *fakeDevice {
	return &fakeDevice{
		log: log,
		caps: SurfaceCapabilities{
			MinImageCount: 2,
			MaxImageCount: 3,
			CurrentExtent: Extent{Width: math.MaxUint32, Height: math.MaxUint32},
			MinExtent:     Extent{Width: 1, Height: 1},
			MaxExtent:     Extent{Width: 8192, Height: 8192},
			Formats: []SurfaceFormat{
				{Format: FormatB8G8R8A8Srgb, ColorSpace: ColorSpaceSrgbNonlinear},
				{Format: FormatB8G8R8A8Unorm, ColorSpace: ColorSpaceSrgbNonlinear},
			},
			PresentModes: []PresentMode{PresentModeFifo, PresentModeMailbox},
		},
		depth:    []Format{FormatD32Sfloat, FormatD24UnormS8Uint},
		failures: map[string]error{},
		nextName: map[string]int{},
	}
}

func (d *fakeDevice) fail(op string) error {
	return d.failures[op]
}

func (d *fakeDevice) object(kind string) *fakeObject {
	n := d.nextName[kind]
	d.nextName[kind] = n + 1
	o := &fakeObject{log: d.log, name: fmt.Sprintf("%s%d", kind, n)}
	d.objects = append(d.objects, o)
	return o
}

// leaked returns the names of objects created but never destroyed.
func (d *fakeDevice) leaked() []string {
	var names []string
	for _, o := range d.objects {
		if o.destroyed == 0 {
			names = append(names, o.name)
		}
	}
	return names
}

// doubleDestroyed returns the names of objects destroyed more than once.
func (d *fakeDevice) doubleDestroyed() []string {
	var names []string
	for _, o := range d.objects {
		if o.destroyed > 1 {
			names = append(names, o.name)
		}
	}
	return names
}

func (d *fakeDevice) chain() *fakeChain { return d.chains[len(d.chains)-1] }

func (d *fakeDevice) SurfaceCapabilities() (SurfaceCapabilities, error) {
	if len(d.surfaceExtents) > 0 {
		d.caps.CurrentExtent = d.surfaceExtents[0]
		d.surfaceExtents = d.surfaceExtents[1:]
	}
	return d.caps, d.fail("SurfaceCapabilities")
}

func (d *fakeDevice) DepthFormatSupported(f Format) bool {
	return slices.Contains(d.depth, f)
}

func (d *fakeDevice) CreatePresentationChain(info SwapchainCreateInfo) (PresentationChain, error) {
	if err := d.fail("CreatePresentationChain"); err != nil {
		return nil, err
	}
	c := &fakeChain{fakeObject: d.object("chain"), dev: d, info: info}
	for i := uint32(0); i < info.MinImageCount+d.extraImages; i++ {
		// Owned by the chain, not tracked for leaks.
		c.images = append(c.images, fakeImage{&fakeObject{log: d.log, name: fmt.Sprintf("%s/image%d", c.name, i)}})
	}
	d.chains = append(d.chains, c)
	d.log.add("create %s %dx%d", c.name, info.Extent.Width, info.Extent.Height)
	return c, nil
}

func (d *fakeDevice) CreateDepthImage(extent Extent, format Format) (Image, error) {
	if err := d.fail("CreateDepthImage"); err != nil {
		return nil, err
	}
	return fakeImage{d.object("depth")}, nil
}

func (d *fakeDevice) CreateImageView(img Image, format Format, aspect Aspect) (ImageView, error) {
	if err := d.fail("CreateImageView"); err != nil {
		return nil, err
	}
	return fakeView{d.object("view")}, nil
}

func (d *fakeDevice) CreateRenderPass(color, depth Format) (RenderPass, error) {
	if err := d.fail("CreateRenderPass"); err != nil {
		return nil, err
	}
	return &fakeRenderPass{fakeObject: d.object("pass"), color: color, depth: depth}, nil
}

func (d *fakeDevice) CreateFramebuffer(pass RenderPass, attachments []ImageView, extent Extent) (Framebuffer, error) {
	if err := d.fail("CreateFramebuffer"); err != nil {
		return nil, err
	}
	return &fakeFramebuffer{fakeObject: d.object("framebuffer"), extent: extent}, nil
}

func (d *fakeDevice) CreateSemaphore() (Semaphore, error) {
	if err := d.fail("CreateSemaphore"); err != nil {
		return nil, err
	}
	return fakeSemaphore{d.object("semaphore")}, nil
}

func (d *fakeDevice) CreateFence(signaled bool) (Fence, error) {
	if err := d.fail("CreateFence"); err != nil {
		return nil, err
	}
	f := &fakeFence{fakeObject: d.object("fence"), signaled: signaled}
	d.fences = append(d.fences, f)
	return f, nil
}

func (d *fakeDevice) AllocateCommandBuffers(n int) ([]CommandBuffer, error) {
	if err := d.fail("AllocateCommandBuffers"); err != nil {
		return nil, err
	}
	d.log.add("allocate %d", n)
	out := make([]CommandBuffer, n)
	for i := range out {
		cb := &fakeCommandBuffer{fakeObject: d.object("cb")}
		d.buffers = append(d.buffers, cb)
		out[i] = cb
	}
	return out, nil
}

func (d *fakeDevice) FreeCommandBuffers(buffers []CommandBuffer) {
	d.log.add("free %d", len(buffers))
	for _, cb := range buffers {
		cb.(*fakeCommandBuffer).destroyed++
	}
}

func (d *fakeDevice) Submit(cmd CommandBuffer, wait, signal Semaphore, fence Fence) error {
	if err := d.fail("Submit"); err != nil {
		return err
	}
	cb := cmd.(*fakeCommandBuffer)
	f := fence.(*fakeFence)
	if f.signaled || f.pending {
		return fmt.Errorf("fake: %s submitted while not reset", f.name)
	}
	f.pending = true
	d.submits = append(d.submits, cb)
	d.log.add("submit %s %s", cb.name, f.name)
	return nil
}

func (d *fakeDevice) WaitIdle() error {
	if err := d.fail("WaitIdle"); err != nil {
		return err
	}
	for _, f := range d.fences {
		if f.pending {
			f.pending = false
			f.signaled = true
		}
	}
	d.log.add("wait idle")
	return nil
}

// fakeWindow serves extents from a queue; the last one sticks.
type fakeWindow struct {
	log     *eventLog
	extents []Extent
	resized bool

	// closeAfter makes ShouldClose report true after that many polls.
	closeAfter int
	polls      int
}

func newFakeWindow(log *eventLog, w, h uint32) *fakeWindow {
	return &fakeWindow{log: log, extents: []Extent{{Width: w, Height: h}}, closeAfter: -1}
}

func (w *fakeWindow) Extent() Extent {
	e := w.extents[0]
	if len(w.extents) > 1 {
		w.extents = w.extents[1:]
	}
	w.log.add("extent %dx%d", e.Width, e.Height)
	return e
}

func (w *fakeWindow) WaitEvents() { w.log.add("wait events") }

func (w *fakeWindow) Resized() bool { return w.resized }

func (w *fakeWindow) ResetResized() { w.resized = false }

// resize queues the given extents and raises the resize flag.
func (w *fakeWindow) resize(extents ...Extent) {
	w.extents = extents
	w.resized = true
}

func (w *fakeWindow) ShouldClose() bool {
	return w.closeAfter >= 0 && w.polls >= w.closeAfter
}

func (w *fakeWindow) PollEvents() { w.polls++ }

var errFake = errors.New("fake: device lost")
