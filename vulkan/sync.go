package vulkan

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/bitmap/gpu"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
)

func (c *Context) CreateSemaphore() (gpu.Semaphore, error) {
	semaphore, _, err := c.deviceDriver.CreateSemaphore(nil, core1_0.SemaphoreCreateInfo{})
	if err != nil {
		return 0, errors.Wrap(err, "create semaphore")
	}
	return gpu.Semaphore(c.semaphores.add(semaphore)), nil
}

func (c *Context) DestroySemaphore(semaphore gpu.Semaphore) {
	if s, ok := c.semaphores.remove(uint64(semaphore)); ok {
		c.deviceDriver.DestroySemaphore(s, nil)
	}
}

func (c *Context) CreateFence(signaled bool) (gpu.Fence, error) {
	var options core1_0.FenceCreateInfo
	if signaled {
		options.Flags = core1_0.FenceCreateSignaled
	}

	fence, _, err := c.deviceDriver.CreateFence(nil, options)
	if err != nil {
		return 0, errors.Wrap(err, "create fence")
	}
	return gpu.Fence(c.fences.add(fence)), nil
}

func (c *Context) DestroyFence(fence gpu.Fence) {
	if f, ok := c.fences.remove(uint64(fence)); ok {
		c.deviceDriver.DestroyFence(f, nil)
	}
}

func (c *Context) fence(fence gpu.Fence) (core1_0.Fence, error) {
	f, ok := c.fences.get(uint64(fence))
	if !ok {
		return f, errors.Newf("vulkan: unknown fence %d", fence)
	}
	return f, nil
}

func (c *Context) WaitForFence(fence gpu.Fence) error {
	f, err := c.fence(fence)
	if err != nil {
		return err
	}
	_, err = c.deviceDriver.WaitForFences(true, common.NoTimeout, f)
	return errors.Wrap(err, "wait for fence")
}

func (c *Context) ResetFence(fence gpu.Fence) error {
	f, err := c.fence(fence)
	if err != nil {
		return err
	}
	_, err = c.deviceDriver.ResetFences(f)
	return errors.Wrap(err, "reset fence")
}
