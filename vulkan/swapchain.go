package vulkan

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/bitmap/gpu"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
)

func (c *Context) CreateSwapchain(info gpu.SwapchainInfo) (gpu.Swapchain, []gpu.Image, error) {
	swapchain, _, err := c.swapchainExtension.CreateSwapchain(nil, khr_swapchain.SwapchainCreateInfo{
		Surface: c.surface,

		MinImageCount:    info.MinImageCount,
		ImageFormat:      info.Format.Format,
		ImageColorSpace:  info.Format.ColorSpace,
		ImageExtent:      info.Extent,
		ImageArrayLayers: 1,
		ImageUsage:       core1_0.ImageUsageColorAttachment,

		ImageSharingMode:   info.SharingMode,
		QueueFamilyIndices: info.QueueFamilyIndices,

		PreTransform:   info.Capabilities.CurrentTransform,
		CompositeAlpha: khr_surface.CompositeAlphaOpaque,
		PresentMode:    info.PresentMode,
		Clipped:        true,
	})
	if err != nil {
		return 0, nil, errors.Wrap(err, "create swapchain")
	}

	images, _, err := c.swapchainExtension.GetSwapchainImages(swapchain)
	if err != nil {
		c.swapchainExtension.DestroySwapchain(swapchain, nil)
		return 0, nil, errors.Wrap(err, "get swapchain images")
	}

	handle := gpu.Swapchain(c.swapchains.add(swapchain))
	handles := make([]gpu.Image, 0, len(images))
	for _, img := range images {
		handles = append(handles, gpu.Image(c.images.add(image{image: img, swapchain: true})))
	}
	c.swapchainImages[handle] = handles

	return handle, handles, nil
}

func (c *Context) DestroySwapchain(swapchain gpu.Swapchain) {
	s, ok := c.swapchains.remove(uint64(swapchain))
	if !ok {
		return
	}

	for _, img := range c.swapchainImages[swapchain] {
		c.images.remove(uint64(img))
	}
	delete(c.swapchainImages, swapchain)

	c.swapchainExtension.DestroySwapchain(s, nil)
}

func swapchainStatus(res common.VkResult, err error) (gpu.Status, error) {
	switch res {
	case khr_swapchain.VKErrorOutOfDate:
		return gpu.StatusOutOfDate, nil
	case khr_swapchain.VKSuboptimal:
		return gpu.StatusSuboptimal, nil
	}
	return gpu.StatusSuccess, err
}

func (c *Context) AcquireNextImage(swapchain gpu.Swapchain, signal gpu.Semaphore) (int, gpu.Status, error) {
	s, ok := c.swapchains.get(uint64(swapchain))
	if !ok {
		return 0, gpu.StatusSuccess, errors.Newf("vulkan: unknown swapchain %d", swapchain)
	}
	semaphore, ok := c.semaphores.get(uint64(signal))
	if !ok {
		return 0, gpu.StatusSuccess, errors.Newf("vulkan: unknown semaphore %d", signal)
	}

	imageIndex, res, err := c.swapchainExtension.AcquireNextImage(s, common.NoTimeout, &semaphore, nil)
	status, err := swapchainStatus(res, err)
	if err != nil {
		return 0, status, errors.Wrap(err, "acquire next image")
	}
	return imageIndex, status, nil
}

func (c *Context) Submit(info gpu.SubmitInfo) error {
	buffer, ok := c.commandBuffers.get(uint64(info.CommandBuffer))
	if !ok {
		return errors.Newf("vulkan: unknown command buffer %d", info.CommandBuffer)
	}

	submit := core1_0.SubmitInfo{
		CommandBuffers: []core1_0.CommandBuffer{buffer},
	}
	if s, ok := c.semaphores.get(uint64(info.WaitSemaphore)); ok {
		submit.WaitSemaphores = []core1_0.Semaphore{s}
		submit.WaitDstStageMask = []core1_0.PipelineStageFlags{info.WaitStage}
	}
	if s, ok := c.semaphores.get(uint64(info.SignalSemaphore)); ok {
		submit.SignalSemaphores = []core1_0.Semaphore{s}
	}

	var fence *core1_0.Fence
	if f, ok := c.fences.get(uint64(info.Fence)); ok {
		fence = &f
	}

	_, err := c.deviceDriver.QueueSubmit(c.queues[gpu.QueueGraphics], fence, submit)
	return errors.Wrap(err, "queue submit")
}

func (c *Context) Present(info gpu.PresentInfo) (gpu.Status, error) {
	s, ok := c.swapchains.get(uint64(info.Swapchain))
	if !ok {
		return gpu.StatusSuccess, errors.Newf("vulkan: unknown swapchain %d", info.Swapchain)
	}

	present := khr_swapchain.PresentInfo{
		Swapchains:   []khr_swapchain.Swapchain{s},
		ImageIndices: []int{info.ImageIndex},
	}
	if semaphore, ok := c.semaphores.get(uint64(info.WaitSemaphore)); ok {
		present.WaitSemaphores = []core1_0.Semaphore{semaphore}
	}

	res, err := c.swapchainExtension.QueuePresent(c.queues[gpu.QueuePresent], present)
	status, err := swapchainStatus(res, err)
	if err != nil {
		return status, errors.Wrap(err, "queue present")
	}
	return status, nil
}
