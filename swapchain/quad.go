package swapchain

import (
	"bytes"
	"encoding/binary"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/vkngwrapper/bitmap/gpu"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
)

// QuadVertices covers the whole viewport with two clip-space triangles.
func QuadVertices() []mgl32.Vec3 {
	topLeft := mgl32.Vec3{-1, -1, 0}
	topRight := mgl32.Vec3{1, -1, 0}
	bottomLeft := mgl32.Vec3{-1, 1, 0}
	bottomRight := mgl32.Vec3{1, 1, 0}

	return []mgl32.Vec3{
		topLeft, bottomLeft, topRight,
		topRight, bottomLeft, bottomRight,
	}
}

// NewQuadBuffer creates a host-visible vertex buffer holding QuadVertices.
func NewQuadBuffer(dev gpu.Device) (gpu.Buffer, error) {
	buf := &bytes.Buffer{}
	err := binary.Write(buf, common.ByteOrder, QuadVertices())
	if err != nil {
		return 0, err
	}

	buffer, err := dev.CreateBuffer(gpu.BufferInfo{
		Size:       buf.Len(),
		Usage:      core1_0.BufferUsageVertexBuffer,
		Properties: core1_0.MemoryPropertyHostVisible | core1_0.MemoryPropertyHostCoherent,
	})
	if err != nil {
		return 0, errors.Wrap(err, "quad vertex buffer")
	}

	err = dev.WriteBuffer(buffer, 0, buf.Bytes())
	if err != nil {
		dev.DestroyBuffer(buffer)
		return 0, errors.Wrap(err, "quad vertex buffer")
	}

	return buffer, nil
}
