package render

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig wraps every Config validation failure.
var ErrInvalidConfig = errors.New("render: invalid config")

// MaxFramesInFlightLimit bounds Config.MaxFramesInFlight.
const MaxFramesInFlightLimit = 4

// Config holds the swapchain and frame pacing policy.
type Config struct {
	// MaxFramesInFlight is the number of frame slots, the bound on frames
	// recorded by the CPU but not yet completed by the GPU.
	MaxFramesInFlight int `toml:"max_frames_in_flight" yaml:"max_frames_in_flight"`
	// ImageCount is the requested number of presentable images, 2 or 3.
	// Zero asks for one more than the surface minimum.
	ImageCount uint32 `toml:"image_count" yaml:"image_count"`
	// PresentModes lists present modes in order of preference. FIFO is
	// always the fallback.
	PresentModes []PresentMode `toml:"present_modes" yaml:"present_modes"`
	// VSync forces FIFO presentation.
	VSync        bool     `toml:"vsync" yaml:"vsync"`
	ColorFormat  Format   `toml:"color_format" yaml:"color_format"`
	DepthFormats []Format `toml:"depth_formats" yaml:"depth_formats"`

	ClearColor [4]float32 `toml:"clear_color" yaml:"clear_color"`
	ClearDepth float32    `toml:"clear_depth" yaml:"clear_depth"`
}

func DefaultConfig() Config {
	return Config{
		MaxFramesInFlight: 2,
		PresentModes:      []PresentMode{PresentModeMailbox, PresentModeFifo},
		ColorFormat:       FormatB8G8R8A8Srgb,
		DepthFormats:      []Format{FormatD32Sfloat, FormatD32SfloatS8Uint, FormatD24UnormS8Uint},
		ClearColor:        [4]float32{0.01, 0.01, 0.01, 1},
		ClearDepth:        1,
	}
}

func (c *Config) Validate() error {
	if c.MaxFramesInFlight < 1 || c.MaxFramesInFlight > MaxFramesInFlightLimit {
		return fmt.Errorf("%w: max_frames_in_flight %d not in [1, %d]",
			ErrInvalidConfig, c.MaxFramesInFlight, MaxFramesInFlightLimit)
	}
	if c.ImageCount != 0 && (c.ImageCount < 2 || c.ImageCount > 3) {
		return fmt.Errorf("%w: image_count %d must be 0, 2 or 3", ErrInvalidConfig, c.ImageCount)
	}
	if len(c.DepthFormats) == 0 {
		return fmt.Errorf("%w: depth_formats is empty", ErrInvalidConfig)
	}
	for _, f := range c.DepthFormats {
		switch f {
		case FormatD16Unorm, FormatD32Sfloat, FormatD24UnormS8Uint, FormatD32SfloatS8Uint:
		default:
			return fmt.Errorf("%w: %s is not a depth format", ErrInvalidConfig, f)
		}
	}
	if c.ClearDepth < 0 || c.ClearDepth > 1 {
		return fmt.Errorf("%w: clear_depth %v not in [0, 1]", ErrInvalidConfig, c.ClearDepth)
	}
	return nil
}

func (c *Config) clearValues() ClearValues {
	return ClearValues{Color: c.ClearColor, Depth: c.ClearDepth}
}
