package vulkan

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/bitmap/gpu"
	"github.com/vkngwrapper/core/v3/core1_0"
)

func (c *Context) allocate(size int, typeFilter uint32, properties core1_0.MemoryPropertyFlags) (core1_0.DeviceMemory, error) {
	memoryTypeIndex, err := gpu.FindMemoryType(c.memoryTypes, typeFilter, properties)
	if err != nil {
		return core1_0.DeviceMemory{}, err
	}

	memory, _, err := c.deviceDriver.AllocateMemory(nil, core1_0.MemoryAllocateInfo{
		AllocationSize:  size,
		MemoryTypeIndex: memoryTypeIndex,
	})
	if err != nil {
		return core1_0.DeviceMemory{}, errors.Wrap(err, "allocate memory")
	}
	return memory, nil
}

func (c *Context) CreateBuffer(info gpu.BufferInfo) (gpu.Buffer, error) {
	b := buffer{size: info.Size}

	var err error
	b.buffer, _, err = c.deviceDriver.CreateBuffer(nil, core1_0.BufferCreateInfo{
		Size:        info.Size,
		Usage:       info.Usage,
		SharingMode: core1_0.SharingModeExclusive,
	})
	if err != nil {
		return 0, errors.Wrap(err, "create buffer")
	}

	memRequirements := c.deviceDriver.GetBufferMemoryRequirements(b.buffer)
	b.memory, err = c.allocate(memRequirements.Size, memRequirements.MemoryTypeBits, info.Properties)
	if err != nil {
		c.deviceDriver.DestroyBuffer(b.buffer, nil)
		return 0, errors.Wrap(err, "buffer memory")
	}

	_, err = c.deviceDriver.BindBufferMemory(b.buffer, b.memory, 0)
	if err != nil {
		c.destroyBuffer(b)
		return 0, errors.Wrap(err, "bind buffer memory")
	}

	return gpu.Buffer(c.buffers.add(b)), nil
}

func (c *Context) destroyBuffer(b buffer) {
	c.deviceDriver.DestroyBuffer(b.buffer, nil)
	c.deviceDriver.FreeMemory(b.memory, nil)
}

func (c *Context) DestroyBuffer(buf gpu.Buffer) {
	if b, ok := c.buffers.remove(uint64(buf)); ok {
		c.destroyBuffer(b)
	}
}

// WriteBuffer maps the buffer's memory, which must be host visible and
// coherent, and copies data in at offset.
func (c *Context) WriteBuffer(buf gpu.Buffer, offset int, data []byte) error {
	b, ok := c.buffers.get(uint64(buf))
	if !ok {
		return errors.Newf("vulkan: unknown buffer %d", buf)
	}
	if offset < 0 || offset+len(data) > b.size {
		return errors.Newf("vulkan: write of %d bytes at %d overflows buffer of %d", len(data), offset, b.size)
	}
	if len(data) == 0 {
		return nil
	}

	memoryPtr, _, err := c.deviceDriver.MapMemory(b.memory, offset, len(data), 0)
	if err != nil {
		return errors.Wrap(err, "map buffer memory")
	}
	defer c.deviceDriver.UnmapMemory(b.memory)

	copy(unsafe.Slice((*byte)(memoryPtr), len(data)), data)
	return nil
}

func (c *Context) CreateImage(info gpu.ImageInfo) (gpu.Image, error) {
	var i image
	var err error

	i.image, _, err = c.deviceDriver.CreateImage(nil, core1_0.ImageCreateInfo{
		ImageType: core1_0.ImageType2D,
		Extent: core1_0.Extent3D{
			Width:  info.Width,
			Height: info.Height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Format:        info.Format,
		Tiling:        core1_0.ImageTilingOptimal,
		InitialLayout: core1_0.ImageLayoutUndefined,
		Usage:         info.Usage,
		SharingMode:   core1_0.SharingModeExclusive,
		Samples:       core1_0.Samples1,
	})
	if err != nil {
		return 0, errors.Wrap(err, "create image")
	}

	memReqs := c.deviceDriver.GetImageMemoryRequirements(i.image)
	i.memory, err = c.allocate(memReqs.Size, memReqs.MemoryTypeBits, info.Properties)
	if err != nil {
		c.deviceDriver.DestroyImage(i.image, nil)
		return 0, errors.Wrap(err, "image memory")
	}

	_, err = c.deviceDriver.BindImageMemory(i.image, i.memory, 0)
	if err != nil {
		c.deviceDriver.DestroyImage(i.image, nil)
		c.deviceDriver.FreeMemory(i.memory, nil)
		return 0, errors.Wrap(err, "bind image memory")
	}

	return gpu.Image(c.images.add(i)), nil
}

func (c *Context) DestroyImage(img gpu.Image) {
	i, ok := c.images.get(uint64(img))
	if !ok || i.swapchain {
		return
	}
	c.images.remove(uint64(img))

	c.deviceDriver.DestroyImage(i.image, nil)
	c.deviceDriver.FreeMemory(i.memory, nil)
}

func colorBarrier(img core1_0.Image, oldLayout, newLayout core1_0.ImageLayout, srcAccess, dstAccess core1_0.AccessFlags) core1_0.ImageMemoryBarrier {
	return core1_0.ImageMemoryBarrier{
		OldLayout:           oldLayout,
		NewLayout:           newLayout,
		SrcQueueFamilyIndex: -1,
		DstQueueFamilyIndex: -1,
		Image:               img,
		SubresourceRange: core1_0.ImageSubresourceRange{
			AspectMask:     core1_0.ImageAspectColor,
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
		SrcAccessMask: srcAccess,
		DstAccessMask: dstAccess,
	}
}

// CopyBufferToImage records the transition to transfer-dst, the copy and
// the transition to shader-read-only into one command buffer and waits for
// queue to finish it.
func (c *Context) CopyBufferToImage(queue gpu.Queue, src gpu.Buffer, dst gpu.Image, width, height int) error {
	b, ok := c.buffers.get(uint64(src))
	if !ok {
		return errors.Newf("vulkan: unknown buffer %d", src)
	}
	i, ok := c.images.get(uint64(dst))
	if !ok {
		return errors.Newf("vulkan: unknown image %d", dst)
	}

	// A transfer-only queue has no fragment stage to hand the image to.
	var readStage core1_0.PipelineStageFlags = core1_0.PipelineStageBottomOfPipe
	var readAccess core1_0.AccessFlags
	if c.queueFamily(queue) == c.families.Graphics {
		readStage, readAccess = core1_0.PipelineStageFragmentShader, core1_0.AccessShaderRead
	}

	cmd, err := c.beginSingleTimeCommands(queue)
	if err != nil {
		return err
	}

	err = c.deviceDriver.CmdPipelineBarrier(cmd, core1_0.PipelineStageTopOfPipe, core1_0.PipelineStageTransfer, 0, nil, nil, []core1_0.ImageMemoryBarrier{
		colorBarrier(i.image, core1_0.ImageLayoutUndefined, core1_0.ImageLayoutTransferDstOptimal, 0, core1_0.AccessTransferWrite),
	})
	if err != nil {
		c.deviceDriver.FreeCommandBuffers(cmd)
		return errors.Wrap(err, "transition to transfer destination")
	}

	err = c.deviceDriver.CmdCopyBufferToImage(cmd, b.buffer, i.image, core1_0.ImageLayoutTransferDstOptimal,
		core1_0.BufferImageCopy{
			BufferOffset:      0,
			BufferRowLength:   0,
			BufferImageHeight: 0,

			ImageSubresource: core1_0.ImageSubresourceLayers{
				AspectMask:     core1_0.ImageAspectColor,
				MipLevel:       0,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
			ImageOffset: core1_0.Offset3D{X: 0, Y: 0, Z: 0},
			ImageExtent: core1_0.Extent3D{Width: width, Height: height, Depth: 1},
		},
	)
	if err != nil {
		c.deviceDriver.FreeCommandBuffers(cmd)
		return errors.Wrap(err, "copy buffer to image")
	}

	err = c.deviceDriver.CmdPipelineBarrier(cmd, core1_0.PipelineStageTransfer, readStage, 0, nil, nil, []core1_0.ImageMemoryBarrier{
		colorBarrier(i.image, core1_0.ImageLayoutTransferDstOptimal, core1_0.ImageLayoutShaderReadOnlyOptimal, core1_0.AccessTransferWrite, readAccess),
	})
	if err != nil {
		c.deviceDriver.FreeCommandBuffers(cmd)
		return errors.Wrap(err, "transition to shader read")
	}

	return c.endSingleTimeCommands(queue, cmd)
}

func (c *Context) queueFamily(queue gpu.Queue) int {
	switch queue {
	case gpu.QueueTransfer:
		return c.families.Transfer
	case gpu.QueuePresent:
		return c.families.Present
	}
	return c.families.Graphics
}
