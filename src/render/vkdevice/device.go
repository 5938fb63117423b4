// Package vkdevice implements the render device collaborators on top of
// Vulkan.
package vkdevice

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/vulkan-go/vulkan"

	"presenter/src/render"
)

const (
	validationLayer    = "VK_LAYER_KHRONOS_validation"
	swapchainExtension = "VK_KHR_swapchain"
)

type Config struct {
	AppName    string `toml:"app_name" yaml:"app_name"`
	Validation bool   `toml:"validation" yaml:"validation"`
	// PreferDiscrete ranks discrete GPUs above integrated ones.
	PreferDiscrete bool `toml:"prefer_discrete" yaml:"prefer_discrete"`
}

func DefaultConfig() Config {
	return Config{AppName: "presenter", PreferDiscrete: true}
}

// SurfaceFactory creates the presentation surface for an instance.
type SurfaceFactory func(vulkan.Instance) (vulkan.Surface, error)

// Device owns the instance, surface, logical device and the graphics
// command pool. It implements render.Device.
type Device struct {
	log *slog.Logger

	instance vulkan.Instance
	surface  vulkan.Surface
	physical vulkan.PhysicalDevice
	device   vulkan.Device

	graphicsFamily uint32
	presentFamily  uint32
	graphicsQueue  vulkan.Queue
	presentQueue   vulkan.Queue

	commandPool vulkan.CommandPool
	memory      vulkan.PhysicalDeviceMemoryProperties
	name        string
}

var _ render.Device = (*Device)(nil)

// New creates a device able to present to the surface built by
// createSurface. instanceExtensions are the window system's required
// instance extensions. vulkan.Init must have been called.
func New(cfg Config, instanceExtensions []string, createSurface SurfaceFactory, log *slog.Logger) (d *Device, err error) {
	if log == nil {
		log = slog.Default()
	}
	d = &Device{log: log.With("component", "vkdevice")}
	defer func() {
		if err != nil {
			d = nil
		}
	}()
	defer CheckError(&err)

	OrPanic(d.createInstance(cfg, instanceExtensions))
	surface, serr := createSurface(d.instance)
	OrPanic(wrap("create surface", serr), d.Destroy)
	d.surface = surface

	OrPanic(d.pickPhysicalDevice(cfg.PreferDiscrete), d.Destroy)
	OrPanic(d.createLogicalDevice(), d.Destroy)
	OrPanic(NewError(vulkan.CreateCommandPool(d.device, &vulkan.CommandPoolCreateInfo{
		SType:            vulkan.StructureTypeCommandPoolCreateInfo,
		Flags:            vulkan.CommandPoolCreateFlags(vulkan.CommandPoolCreateResetCommandBufferBit),
		QueueFamilyIndex: d.graphicsFamily,
	}, nil, &d.commandPool)), d.Destroy)

	d.log.Info("device ready",
		slog.String("gpu", d.name),
		slog.Uint64("graphics_family", uint64(d.graphicsFamily)),
		slog.Uint64("present_family", uint64(d.presentFamily)))
	return d, nil
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

func safeString(s string) string {
	if strings.HasSuffix(s, "\x00") {
		return s
	}
	return s + "\x00"
}

func safeStrings(list []string) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = safeString(s)
	}
	return out
}

func (d *Device) createInstance(cfg Config, extensions []string) error {
	var layers []string
	if cfg.Validation {
		if d.layerAvailable(validationLayer) {
			layers = append(layers, safeString(validationLayer))
		} else {
			d.log.Warn("validation layer not available", slog.String("layer", validationLayer))
		}
	}
	extensions = safeStrings(extensions)

	var instance vulkan.Instance
	err := NewError(vulkan.CreateInstance(&vulkan.InstanceCreateInfo{
		SType: vulkan.StructureTypeInstanceCreateInfo,
		PApplicationInfo: &vulkan.ApplicationInfo{
			SType:              vulkan.StructureTypeApplicationInfo,
			PApplicationName:   safeString(cfg.AppName),
			ApplicationVersion: vulkan.MakeVersion(1, 0, 0),
			PEngineName:        "presenter\x00",
			EngineVersion:      vulkan.MakeVersion(1, 0, 0),
			ApiVersion:         vulkan.MakeVersion(1, 1, 0),
		},
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: extensions,
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     layers,
	}, nil, &instance))
	if err != nil {
		return wrap("create instance", err)
	}
	vulkan.InitInstance(instance)
	d.instance = instance
	return nil
}

func (d *Device) layerAvailable(name string) bool {
	var count uint32
	if IsError(vulkan.EnumerateInstanceLayerProperties(&count, nil)) || count == 0 {
		return false
	}
	props := make([]vulkan.LayerProperties, count)
	if IsError(vulkan.EnumerateInstanceLayerProperties(&count, props)) {
		return false
	}
	for i := range props {
		props[i].Deref()
		if vulkan.ToString(props[i].LayerName[:]) == name {
			return true
		}
	}
	return false
}

// candidate is a physical device able to render and present.
type candidate struct {
	dev      vulkan.PhysicalDevice
	name     string
	graphics uint32
	present  uint32
	score    int
}

func (d *Device) pickPhysicalDevice(preferDiscrete bool) error {
	var count uint32
	if err := NewError(vulkan.EnumeratePhysicalDevices(d.instance, &count, nil)); err != nil {
		return wrap("enumerate physical devices", err)
	}
	if count == 0 {
		return ErrNoPhysicalDevice
	}
	devices := make([]vulkan.PhysicalDevice, count)
	if err := NewError(vulkan.EnumeratePhysicalDevices(d.instance, &count, devices)); err != nil {
		return wrap("enumerate physical devices", err)
	}

	var best *candidate
	for _, dev := range devices {
		c, ok := d.evaluate(dev, preferDiscrete)
		if !ok {
			continue
		}
		d.log.Debug("physical device candidate", slog.String("gpu", c.name), slog.Int("score", c.score))
		if best == nil || c.score > best.score {
			best = &c
		}
	}
	if best == nil {
		return ErrNoPhysicalDevice
	}
	d.physical = best.dev
	d.name = best.name
	d.graphicsFamily = best.graphics
	d.presentFamily = best.present
	vulkan.GetPhysicalDeviceMemoryProperties(d.physical, &d.memory)
	d.memory.Deref()
	return nil
}

func (d *Device) evaluate(dev vulkan.PhysicalDevice, preferDiscrete bool) (candidate, bool) {
	var props vulkan.PhysicalDeviceProperties
	vulkan.GetPhysicalDeviceProperties(dev, &props)
	props.Deref()
	c := candidate{dev: dev, name: vulkan.ToString(props.DeviceName[:])}

	graphics, present, ok := d.queueFamilies(dev)
	if !ok || !supportsExtension(dev, swapchainExtension) {
		return c, false
	}
	var formats, modes uint32
	vulkan.GetPhysicalDeviceSurfaceFormats(dev, d.surface, &formats, nil)
	vulkan.GetPhysicalDeviceSurfacePresentModes(dev, d.surface, &modes, nil)
	if formats == 0 || modes == 0 {
		return c, false
	}

	c.graphics, c.present = graphics, present
	c.score = 1
	if graphics == present {
		c.score += 10
	}
	if preferDiscrete && props.DeviceType == vulkan.PhysicalDeviceTypeDiscreteGpu {
		c.score += 100
	}
	return c, true
}

func (d *Device) queueFamilies(dev vulkan.PhysicalDevice) (graphics, present uint32, ok bool) {
	var count uint32
	vulkan.GetPhysicalDeviceQueueFamilyProperties(dev, &count, nil)
	props := make([]vulkan.QueueFamilyProperties, count)
	vulkan.GetPhysicalDeviceQueueFamilyProperties(dev, &count, props)

	var haveGraphics, havePresent bool
	for i := uint32(0); i < count; i++ {
		props[i].Deref()
		isGraphics := props[i].QueueFlags&vulkan.QueueFlags(vulkan.QueueGraphicsBit) != 0
		var supported vulkan.Bool32
		vulkan.GetPhysicalDeviceSurfaceSupport(dev, i, d.surface, &supported)
		isPresent := supported == vulkan.True

		// A family doing both is preferred.
		if isGraphics && isPresent {
			return i, i, true
		}
		if isGraphics && !haveGraphics {
			graphics, haveGraphics = i, true
		}
		if isPresent && !havePresent {
			present, havePresent = i, true
		}
	}
	return graphics, present, haveGraphics && havePresent
}

func supportsExtension(dev vulkan.PhysicalDevice, name string) bool {
	var count uint32
	if IsError(vulkan.EnumerateDeviceExtensionProperties(dev, "", &count, nil)) {
		return false
	}
	props := make([]vulkan.ExtensionProperties, count)
	if IsError(vulkan.EnumerateDeviceExtensionProperties(dev, "", &count, props)) {
		return false
	}
	for i := range props {
		props[i].Deref()
		if vulkan.ToString(props[i].ExtensionName[:]) == name {
			return true
		}
	}
	return false
}

func (d *Device) createLogicalDevice() error {
	families := []uint32{d.graphicsFamily}
	if d.presentFamily != d.graphicsFamily {
		families = append(families, d.presentFamily)
	}
	queues := make([]vulkan.DeviceQueueCreateInfo, len(families))
	for i, f := range families {
		queues[i] = vulkan.DeviceQueueCreateInfo{
			SType:            vulkan.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: f,
			QueueCount:       1,
			PQueuePriorities: []float32{1},
		}
	}
	extensions := []string{safeString(swapchainExtension)}

	var device vulkan.Device
	err := NewError(vulkan.CreateDevice(d.physical, &vulkan.DeviceCreateInfo{
		SType:                   vulkan.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queues)),
		PQueueCreateInfos:       queues,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: extensions,
		PEnabledFeatures:        []vulkan.PhysicalDeviceFeatures{{}},
	}, nil, &device))
	if err != nil {
		return wrap("create device", err)
	}
	d.device = device

	var q vulkan.Queue
	vulkan.GetDeviceQueue(d.device, d.graphicsFamily, 0, &q)
	d.graphicsQueue = q
	vulkan.GetDeviceQueue(d.device, d.presentFamily, 0, &q)
	d.presentQueue = q
	return nil
}

// Name is the selected GPU's name.
func (d *Device) Name() string {
	return d.name
}

func (d *Device) WaitIdle() error {
	return wrap("device wait idle", NewError(vulkan.DeviceWaitIdle(d.device)))
}

// Destroy releases the command pool, device, surface and instance. All
// objects created from the device must already be destroyed.
func (d *Device) Destroy() {
	if d.device != nil {
		if d.commandPool != vulkan.NullCommandPool {
			vulkan.DestroyCommandPool(d.device, d.commandPool, nil)
			d.commandPool = vulkan.NullCommandPool
		}
		vulkan.DestroyDevice(d.device, nil)
		d.device = nil
	}
	if d.instance != nil {
		if d.surface != vulkan.NullSurface {
			vulkan.DestroySurface(d.instance, d.surface, nil)
			d.surface = vulkan.NullSurface
		}
		vulkan.DestroyInstance(d.instance, nil)
		d.instance = nil
	}
}
