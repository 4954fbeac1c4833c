// Package vulkan implements gpu.Device on top of vkngwrapper for an SDL2
// window.
package vulkan

import (
	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
	"github.com/veandco/go-sdl2/sdl"
	"github.com/vkngwrapper/bitmap/gpu"
	"github.com/vkngwrapper/core/v3"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/ext_debug_utils"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
	vkng_sdl2 "github.com/vkngwrapper/integrations/sdl2/v3"
)

type Options struct {
	ApplicationName string
	// Validation loads the Khronos validation layer and routes its messages
	// to Logger.
	Validation bool
	Logger     logrus.FieldLogger
}

type buffer struct {
	buffer core1_0.Buffer
	memory core1_0.DeviceMemory
	size   int
}

type image struct {
	image  core1_0.Image
	memory core1_0.DeviceMemory
	// Swapchain images are owned by their swapchain and never destroyed
	// directly.
	swapchain bool
}

// Context owns the instance, surface and logical device for one window, and
// every object created through it.
type Context struct {
	log    logrus.FieldLogger
	window *sdl.Window

	globalDriver   core1_0.GlobalDriver
	instanceDriver core1_0.CoreInstanceDriver
	deviceDriver   core1_0.CoreDeviceDriver

	debugDriver        ext_debug_utils.ExtensionDriver
	debugMessenger     ext_debug_utils.DebugUtilsMessenger
	surfaceExtension   khr_surface.ExtensionDriver
	surface            khr_surface.Surface
	swapchainExtension khr_swapchain.ExtensionDriver

	physicalDevice core1_0.PhysicalDevice
	device         *gpu.Candidate
	memoryTypes    []core1_0.MemoryType

	families     gpu.QueueFamilies
	queues       map[gpu.Queue]core1_0.Queue
	commandPools map[gpu.Queue]core1_0.CommandPool

	semaphores      *table[core1_0.Semaphore]
	fences          *table[core1_0.Fence]
	shaderModules   *table[core1_0.ShaderModule]
	swapchains      *table[khr_swapchain.Swapchain]
	swapchainImages map[gpu.Swapchain][]gpu.Image
	images          *table[image]
	imageViews      *table[core1_0.ImageView]
	renderPasses    *table[core1_0.RenderPass]
	pipelineLayouts *table[core1_0.PipelineLayout]
	pipelines       *table[core1_0.Pipeline]
	framebuffers    *table[core1_0.Framebuffer]
	commandBuffers  *table[core1_0.CommandBuffer]
	buffers         *table[buffer]
}

var _ gpu.Device = (*Context)(nil)

// New creates the instance and surface for window, selects a physical
// device and creates the logical device with its queues and command pools.
func New(window *sdl.Window, opts Options) (*Context, error) {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	c := &Context{
		log:             opts.Logger,
		window:          window,
		queues:          make(map[gpu.Queue]core1_0.Queue),
		commandPools:    make(map[gpu.Queue]core1_0.CommandPool),
		semaphores:      newTable[core1_0.Semaphore](),
		fences:          newTable[core1_0.Fence](),
		shaderModules:   newTable[core1_0.ShaderModule](),
		swapchains:      newTable[khr_swapchain.Swapchain](),
		swapchainImages: make(map[gpu.Swapchain][]gpu.Image),
		images:          newTable[image](),
		imageViews:      newTable[core1_0.ImageView](),
		renderPasses:    newTable[core1_0.RenderPass](),
		pipelineLayouts: newTable[core1_0.PipelineLayout](),
		pipelines:       newTable[core1_0.Pipeline](),
		framebuffers:    newTable[core1_0.Framebuffer](),
		commandBuffers:  newTable[core1_0.CommandBuffer](),
		buffers:         newTable[buffer](),
	}

	err := c.init(opts)
	if err != nil {
		c.Close()
		return nil, err
	}

	return c, nil
}

func (c *Context) init(opts Options) error {
	var err error
	c.globalDriver, err = core.CreateDriverFromProcAddr(sdl.VulkanGetVkGetInstanceProcAddr())
	if err != nil {
		return errors.Wrap(err, "load vulkan driver")
	}

	err = c.createInstance(opts)
	if err != nil {
		return err
	}

	if opts.Validation {
		err = c.setupDebugMessenger()
		if err != nil {
			return err
		}
	}

	err = c.createSurface()
	if err != nil {
		return err
	}

	err = c.pickPhysicalDevice()
	if err != nil {
		return err
	}

	err = c.createLogicalDevice()
	if err != nil {
		return err
	}

	return c.createCommandPools()
}

func (c *Context) createSurface() error {
	c.surfaceExtension = khr_surface.CreateExtensionDriverFromCoreDriver(c.instanceDriver)
	surface, err := vkng_sdl2.CreateSurface(c.instanceDriver.Instance(), c.surfaceExtension, c.window)
	if err != nil {
		return errors.Wrap(err, "create window surface")
	}

	c.surface = surface
	return nil
}

// Device describes the selected physical device.
func (c *Context) Device() *gpu.Candidate {
	return c.device
}

func (c *Context) QueueFamilies() gpu.QueueFamilies {
	return c.families
}

func (c *Context) SurfaceSupport() (gpu.SurfaceSupport, error) {
	var support gpu.SurfaceSupport
	var err error

	support.Capabilities, _, err = c.surfaceExtension.GetPhysicalDeviceSurfaceCapabilities(c.surface, c.physicalDevice)
	if err != nil {
		return support, errors.Wrap(err, "surface capabilities")
	}

	support.Formats, _, err = c.surfaceExtension.GetPhysicalDeviceSurfaceFormats(c.surface, c.physicalDevice)
	if err != nil {
		return support, errors.Wrap(err, "surface formats")
	}

	support.PresentModes, _, err = c.surfaceExtension.GetPhysicalDeviceSurfacePresentModes(c.surface, c.physicalDevice)
	if err != nil {
		return support, errors.Wrap(err, "surface present modes")
	}

	return support, nil
}

// Close waits for the device to go idle, destroys anything still alive and
// then the device, debug messenger, surface and instance, in that order. It
// is safe to call on a partially initialized Context and more than once.
func (c *Context) Close() {
	if c.deviceDriver != nil {
		_, err := c.deviceDriver.DeviceWaitIdle()
		if err != nil {
			c.log.WithError(err).Warn("wait idle before shutdown")
		}

		c.destroyLeaked()

		for queue, pool := range c.commandPools {
			c.deviceDriver.DestroyCommandPool(pool, nil)
			delete(c.commandPools, queue)
		}

		c.deviceDriver.DestroyDevice(nil)
		c.deviceDriver = nil
	}

	if c.debugMessenger.Initialized() {
		c.debugDriver.DestroyDebugUtilsMessenger(c.debugMessenger, nil)
		c.debugMessenger = ext_debug_utils.DebugUtilsMessenger{}
	}

	if c.surface.Initialized() {
		c.surfaceExtension.DestroySurface(c.surface, nil)
		c.surface = khr_surface.Surface{}
	}

	if c.instanceDriver != nil {
		c.instanceDriver.DestroyInstance(nil)
		c.instanceDriver = nil
	}
}

// destroyLeaked destroys objects the caller never released, dependents
// first, and logs how many there were.
func (c *Context) destroyLeaked() {
	leaked := logrus.Fields{}
	count := func(name string, n int) {
		if n > 0 {
			leaked[name] = n
		}
	}

	count("command buffers", c.commandBuffers.len())
	c.commandBuffers.each(func(id uint64, _ core1_0.CommandBuffer) { c.FreeCommandBuffers(gpu.CommandBuffer(id)) })

	count("framebuffers", c.framebuffers.len())
	c.framebuffers.each(func(id uint64, _ core1_0.Framebuffer) { c.DestroyFramebuffer(gpu.Framebuffer(id)) })

	count("pipelines", c.pipelines.len())
	c.pipelines.each(func(id uint64, _ core1_0.Pipeline) { c.DestroyPipeline(gpu.Pipeline(id)) })

	count("pipeline layouts", c.pipelineLayouts.len())
	c.pipelineLayouts.each(func(id uint64, _ core1_0.PipelineLayout) { c.DestroyPipelineLayout(gpu.PipelineLayout(id)) })

	count("render passes", c.renderPasses.len())
	c.renderPasses.each(func(id uint64, _ core1_0.RenderPass) { c.DestroyRenderPass(gpu.RenderPass(id)) })

	count("image views", c.imageViews.len())
	c.imageViews.each(func(id uint64, _ core1_0.ImageView) { c.DestroyImageView(gpu.ImageView(id)) })

	count("swapchains", c.swapchains.len())
	c.swapchains.each(func(id uint64, _ khr_swapchain.Swapchain) { c.DestroySwapchain(gpu.Swapchain(id)) })

	count("images", c.images.len())
	c.images.each(func(id uint64, _ image) { c.DestroyImage(gpu.Image(id)) })

	count("buffers", c.buffers.len())
	c.buffers.each(func(id uint64, _ buffer) { c.DestroyBuffer(gpu.Buffer(id)) })

	count("shader modules", c.shaderModules.len())
	c.shaderModules.each(func(id uint64, _ core1_0.ShaderModule) { c.DestroyShaderModule(gpu.ShaderModule(id)) })

	count("fences", c.fences.len())
	c.fences.each(func(id uint64, _ core1_0.Fence) { c.DestroyFence(gpu.Fence(id)) })

	count("semaphores", c.semaphores.len())
	c.semaphores.each(func(id uint64, _ core1_0.Semaphore) { c.DestroySemaphore(gpu.Semaphore(id)) })

	if len(leaked) > 0 {
		c.log.WithFields(leaked).Warn("destroyed objects that were still alive at shutdown")
	}
}
