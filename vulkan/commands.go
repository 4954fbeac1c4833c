package vulkan

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/bitmap/gpu"
	"github.com/vkngwrapper/core/v3/core1_0"
)

// AllocateCommandBuffers allocates primary command buffers for the graphics
// queue.
func (c *Context) AllocateCommandBuffers(count int) ([]gpu.CommandBuffer, error) {
	buffers, _, err := c.deviceDriver.AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
		CommandPool:        c.commandPool(gpu.QueueGraphics),
		Level:              core1_0.CommandBufferLevelPrimary,
		CommandBufferCount: count,
	})
	if err != nil {
		return nil, errors.Wrap(err, "allocate command buffers")
	}

	handles := make([]gpu.CommandBuffer, 0, len(buffers))
	for _, buffer := range buffers {
		handles = append(handles, gpu.CommandBuffer(c.commandBuffers.add(buffer)))
	}
	return handles, nil
}

func (c *Context) FreeCommandBuffers(buffers ...gpu.CommandBuffer) {
	var free []core1_0.CommandBuffer
	for _, buffer := range buffers {
		if b, ok := c.commandBuffers.remove(uint64(buffer)); ok {
			free = append(free, b)
		}
	}
	if len(free) > 0 {
		c.deviceDriver.FreeCommandBuffers(free...)
	}
}

// RecordDraw records a complete render pass drawing info.VertexCount
// vertices into the framebuffer.
func (c *Context) RecordDraw(buffer gpu.CommandBuffer, info gpu.DrawInfo) error {
	cmd, ok := c.commandBuffers.get(uint64(buffer))
	if !ok {
		return errors.Newf("vulkan: unknown command buffer %d", buffer)
	}
	renderPass, ok := c.renderPasses.get(uint64(info.RenderPass))
	if !ok {
		return errors.Newf("vulkan: unknown render pass %d", info.RenderPass)
	}
	framebuffer, ok := c.framebuffers.get(uint64(info.Framebuffer))
	if !ok {
		return errors.Newf("vulkan: unknown framebuffer %d", info.Framebuffer)
	}
	pipeline, ok := c.pipelines.get(uint64(info.Pipeline))
	if !ok {
		return errors.Newf("vulkan: unknown pipeline %d", info.Pipeline)
	}

	_, err := c.deviceDriver.BeginCommandBuffer(cmd, core1_0.CommandBufferBeginInfo{})
	if err != nil {
		return errors.Wrap(err, "begin command buffer")
	}

	err = c.deviceDriver.CmdBeginRenderPass(cmd, core1_0.SubpassContentsInline,
		core1_0.RenderPassBeginInfo{
			RenderPass:  renderPass,
			Framebuffer: framebuffer,
			RenderArea: core1_0.Rect2D{
				Offset: core1_0.Offset2D{X: 0, Y: 0},
				Extent: info.Extent,
			},
		})
	if err != nil {
		return errors.Wrap(err, "begin render pass")
	}

	c.deviceDriver.CmdBindPipeline(cmd, core1_0.PipelineBindPointGraphics, pipeline)
	if vertexBuffer, ok := c.buffers.get(uint64(info.VertexBuffer)); ok {
		c.deviceDriver.CmdBindVertexBuffers(cmd, 0, []core1_0.Buffer{vertexBuffer.buffer}, []int{0})
	}
	c.deviceDriver.CmdDraw(cmd, info.VertexCount, 1, 0, 0)
	c.deviceDriver.CmdEndRenderPass(cmd)

	_, err = c.deviceDriver.EndCommandBuffer(cmd)
	return errors.Wrap(err, "end command buffer")
}

func (c *Context) beginSingleTimeCommands(queue gpu.Queue) (core1_0.CommandBuffer, error) {
	buffers, _, err := c.deviceDriver.AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
		CommandPool:        c.commandPool(queue),
		Level:              core1_0.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	})
	if err != nil {
		return core1_0.CommandBuffer{}, errors.Wrap(err, "allocate one-time command buffer")
	}

	buffer := buffers[0]
	_, err = c.deviceDriver.BeginCommandBuffer(buffer, core1_0.CommandBufferBeginInfo{
		Flags: core1_0.CommandBufferUsageOneTimeSubmit,
	})
	if err != nil {
		c.deviceDriver.FreeCommandBuffers(buffer)
		return core1_0.CommandBuffer{}, errors.Wrap(err, "begin one-time command buffer")
	}
	return buffer, nil
}

// endSingleTimeCommands submits buffer to queue, waits for the queue to
// drain and frees the buffer.
func (c *Context) endSingleTimeCommands(queue gpu.Queue, buffer core1_0.CommandBuffer) error {
	defer c.deviceDriver.FreeCommandBuffers(buffer)

	_, err := c.deviceDriver.EndCommandBuffer(buffer)
	if err != nil {
		return errors.Wrap(err, "end one-time command buffer")
	}

	q, err := c.queue(queue)
	if err != nil {
		return err
	}

	_, err = c.deviceDriver.QueueSubmit(q, nil,
		core1_0.SubmitInfo{
			CommandBuffers: []core1_0.CommandBuffer{buffer},
		},
	)
	if err != nil {
		return errors.Wrapf(err, "submit to %s queue", queue)
	}

	_, err = c.deviceDriver.QueueWaitIdle(q)
	return errors.Wrapf(err, "wait for %s queue", queue)
}
