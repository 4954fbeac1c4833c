package vulkan

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/bitmap/gpu"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_portability_subset"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
)

func (c *Context) createLogicalDevice() error {
	var queueFamilyOptions []core1_0.DeviceQueueCreateInfo
	queuePriority := float32(1.0)
	for _, queueFamily := range c.families.Unique() {
		queueFamilyOptions = append(queueFamilyOptions, core1_0.DeviceQueueCreateInfo{
			QueueFamilyIndex: queueFamily,
			QueuePriorities:  []float32{queuePriority},
		})
	}

	extensionNames := append([]string(nil), requiredDeviceExtensions...)

	// Required wherever the implementation is a portability layer.
	if _, supported := c.device.Extensions[khr_portability_subset.ExtensionName]; supported {
		extensionNames = append(extensionNames, khr_portability_subset.ExtensionName)
	}

	var err error
	c.deviceDriver, _, err = c.instanceDriver.CreateDevice(c.physicalDevice, nil, core1_0.DeviceCreateInfo{
		QueueCreateInfos:      queueFamilyOptions,
		EnabledExtensionNames: extensionNames,
	})
	if err != nil {
		return errors.Wrap(err, "create logical device")
	}

	c.queues[gpu.QueueGraphics] = c.deviceDriver.GetQueue(c.families.Graphics, 0)
	c.queues[gpu.QueueTransfer] = c.deviceDriver.GetQueue(c.families.Transfer, 0)
	c.queues[gpu.QueuePresent] = c.deviceDriver.GetQueue(c.families.Present, 0)

	c.swapchainExtension = khr_swapchain.CreateExtensionDriverFromCoreDriver(c.deviceDriver)
	return nil
}

// createCommandPools creates one pool for graphics work and, when transfer
// runs on a different family, one for transfer work.
func (c *Context) createCommandPools() error {
	pool, _, err := c.deviceDriver.CreateCommandPool(nil, core1_0.CommandPoolCreateInfo{
		QueueFamilyIndex: c.families.Graphics,
	})
	if err != nil {
		return errors.Wrap(err, "create graphics command pool")
	}
	c.commandPools[gpu.QueueGraphics] = pool

	if c.families.Transfer == c.families.Graphics {
		return nil
	}

	pool, _, err = c.deviceDriver.CreateCommandPool(nil, core1_0.CommandPoolCreateInfo{
		QueueFamilyIndex: c.families.Transfer,
	})
	if err != nil {
		return errors.Wrap(err, "create transfer command pool")
	}
	c.commandPools[gpu.QueueTransfer] = pool
	return nil
}

// commandPool returns the pool whose buffers may be submitted to queue.
func (c *Context) commandPool(queue gpu.Queue) core1_0.CommandPool {
	if pool, ok := c.commandPools[queue]; ok {
		return pool
	}
	return c.commandPools[gpu.QueueGraphics]
}

func (c *Context) queue(queue gpu.Queue) (core1_0.Queue, error) {
	q, ok := c.queues[queue]
	if !ok {
		return q, errors.Newf("vulkan: no %s queue", queue)
	}
	return q, nil
}

func (c *Context) WaitIdle() error {
	_, err := c.deviceDriver.DeviceWaitIdle()
	return errors.Wrap(err, "device wait idle")
}
