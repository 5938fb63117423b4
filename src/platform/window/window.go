// Package window is the glfw desktop window behind the frame loop.
package window

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/vulkan-go/vulkan"

	"presenter/src/render"
)

var ErrVulkanUnsupported = errors.New("window: vulkan is not supported by the window system")

type Config struct {
	Width     int    `toml:"width" yaml:"width"`
	Height    int    `toml:"height" yaml:"height"`
	Title     string `toml:"title" yaml:"title"`
	Resizable bool   `toml:"resizable" yaml:"resizable"`
}

func DefaultConfig() Config {
	return Config{Width: 1280, Height: 720, Title: "presenter", Resizable: true}
}

func (c Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("window: size %dx%d must be positive", c.Width, c.Height)
	}
	return nil
}

// Init starts glfw and points the Vulkan loader at it. Call it from the
// main thread before anything else touches glfw or Vulkan.
func Init() error {
	if err := glfw.Init(); err != nil {
		return fmt.Errorf("glfw init: %w", err)
	}
	if !glfw.VulkanSupported() {
		glfw.Terminate()
		return ErrVulkanUnsupported
	}
	vulkan.SetGetInstanceProcAddr(glfw.GetVulkanGetInstanceProcAddress())
	if err := vulkan.Init(); err != nil {
		glfw.Terminate()
		return fmt.Errorf("vulkan init: %w", err)
	}
	return nil
}

// Terminate shuts glfw down. Call it last, from the main thread.
func Terminate() {
	glfw.Terminate()
}

// Window implements render.Window and render.Display.
type Window struct {
	win     *glfw.Window
	log     *slog.Logger
	resized atomic.Bool
}

var _ render.Display = (*Window)(nil)

func New(cfg Config, log *slog.Logger) (*Window, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	resizable := glfw.False
	if cfg.Resizable {
		resizable = glfw.True
	}
	glfw.WindowHint(glfw.Resizable, resizable)

	win, err := glfw.CreateWindow(cfg.Width, cfg.Height, cfg.Title, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create window: %w", err)
	}
	w := &Window{win: win, log: log.With("component", "window")}
	win.SetFramebufferSizeCallback(w.framebufferResized)
	return w, nil
}

func (w *Window) framebufferResized(_ *glfw.Window, width, height int) {
	w.log.Debug("framebuffer resized", slog.Int("width", width), slog.Int("height", height))
	w.resized.Store(true)
}

// RequiredInstanceExtensions lists the instance extensions needed to
// present to this window.
func (w *Window) RequiredInstanceExtensions() []string {
	return w.win.GetRequiredInstanceExtensions()
}

// CreateSurface is a vkdevice.SurfaceFactory for this window.
func (w *Window) CreateSurface(instance vulkan.Instance) (vulkan.Surface, error) {
	ptr, err := w.win.CreateWindowSurface(instance, nil)
	if err != nil {
		return vulkan.NullSurface, fmt.Errorf("create window surface: %w", err)
	}
	return vulkan.SurfaceFromPointer(ptr), nil
}

func (w *Window) Extent() render.Extent {
	width, height := w.win.GetFramebufferSize()
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return render.Extent{Width: uint32(width), Height: uint32(height)}
}

func (w *Window) WaitEvents() {
	glfw.WaitEvents()
}

func (w *Window) PollEvents() {
	glfw.PollEvents()
}

func (w *Window) ShouldClose() bool {
	return w.win.ShouldClose()
}

func (w *Window) Resized() bool {
	return w.resized.Load()
}

func (w *Window) ResetResized() {
	w.resized.Store(false)
}

func (w *Window) SetTitle(title string) {
	w.win.SetTitle(title)
}

func (w *Window) Destroy() {
	if w.win == nil {
		return
	}
	w.win.Destroy()
	w.win = nil
}
