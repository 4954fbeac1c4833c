package bitmap

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/bitmap/gpu"
	"github.com/vkngwrapper/core/v3/core1_0"
)

// Format is the layout of the uploaded image.
const Format = core1_0.FormatR8G8B8A8UnsignedNormalized

// Texture is a bitmap resident in device-local memory.
type Texture struct {
	Image   gpu.Image
	Staging gpu.Buffer
	Width   int
	Height  int
}

// Upload copies bmp into a new optimal-tiled image through a host-visible
// staging buffer. The copy runs on queue and has completed when Upload
// returns.
func Upload(dev gpu.Device, bmp *Bitmap, queue gpu.Queue) (*Texture, error) {
	err := bmp.validate()
	if err != nil {
		return nil, err
	}

	texture := &Texture{Width: bmp.Width, Height: bmp.Height}

	texture.Staging, err = dev.CreateBuffer(gpu.BufferInfo{
		Size:       bmp.Size(),
		Usage:      core1_0.BufferUsageTransferSrc,
		Properties: core1_0.MemoryPropertyHostVisible | core1_0.MemoryPropertyHostCoherent,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create staging buffer")
	}

	err = dev.WriteBuffer(texture.Staging, 0, bmp.Pixels)
	if err != nil {
		texture.Destroy(dev)
		return nil, errors.Wrap(err, "write staging buffer")
	}

	texture.Image, err = dev.CreateImage(gpu.ImageInfo{
		Width:      bmp.Width,
		Height:     bmp.Height,
		Format:     Format,
		Usage:      core1_0.ImageUsageTransferDst | core1_0.ImageUsageSampled,
		Properties: core1_0.MemoryPropertyDeviceLocal,
	})
	if err != nil {
		texture.Destroy(dev)
		return nil, errors.Wrap(err, "create texture image")
	}

	err = dev.CopyBufferToImage(queue, texture.Staging, texture.Image, bmp.Width, bmp.Height)
	if err != nil {
		texture.Destroy(dev)
		return nil, errors.Wrapf(err, "copy bitmap on %s queue", queue)
	}

	return texture, nil
}

// Destroy releases the image and the staging buffer. The caller must make
// sure the device no longer uses them.
func (t *Texture) Destroy(dev gpu.Device) {
	if t == nil {
		return
	}
	if t.Image.Initialized() {
		dev.DestroyImage(t.Image)
		t.Image = 0
	}
	if t.Staging.Initialized() {
		dev.DestroyBuffer(t.Staging)
		t.Staging = 0
	}
}
