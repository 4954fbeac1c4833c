// Package gpu describes the device operations the renderer needs, independent
// of the Vulkan binding that carries them out. The vulkan package provides the
// real implementation and gputest a recording mock.
package gpu

import (
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
)

// Queue names one of the three queues the device was created with.
type Queue int

const (
	QueueGraphics Queue = iota
	QueueTransfer
	QueuePresent
)

func (q Queue) String() string {
	switch q {
	case QueueGraphics:
		return "graphics"
	case QueueTransfer:
		return "transfer"
	case QueuePresent:
		return "present"
	}
	return "unknown"
}

// Status is the outcome of an acquire or present that did not fail outright.
type Status int

const (
	StatusSuccess Status = iota
	// StatusSuboptimal means the swapchain still works but no longer matches
	// the surface exactly.
	StatusSuboptimal
	// StatusOutOfDate means the swapchain can no longer be used with the
	// surface and must be rebuilt.
	StatusOutOfDate
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusSuboptimal:
		return "suboptimal"
	case StatusOutOfDate:
		return "out of date"
	}
	return "unknown"
}

// SurfaceSupport is what the presentation layer reports for the selected
// physical device and the window surface.
type SurfaceSupport struct {
	Capabilities *khr_surface.SurfaceCapabilities
	Formats      []khr_surface.SurfaceFormat
	PresentModes []khr_surface.PresentMode
}

type SwapchainInfo struct {
	Capabilities  *khr_surface.SurfaceCapabilities
	MinImageCount int
	Format        khr_surface.SurfaceFormat
	Extent        core1_0.Extent2D
	PresentMode   khr_surface.PresentMode

	SharingMode        core1_0.SharingMode
	QueueFamilyIndices []int
}

type PipelineInfo struct {
	RenderPass RenderPass
	Layout     PipelineLayout
	Extent     core1_0.Extent2D

	VertexShader   ShaderModule
	FragmentShader ShaderModule

	Topology core1_0.PrimitiveTopology
	// VertexInput enables a single vec3 position attribute at binding 0.
	VertexInput bool
}

type FramebufferInfo struct {
	RenderPass RenderPass
	View       ImageView
	Extent     core1_0.Extent2D
}

// DrawInfo is the fixed content recorded into a per-framebuffer command buffer.
type DrawInfo struct {
	RenderPass  RenderPass
	Framebuffer Framebuffer
	Extent      core1_0.Extent2D
	Pipeline    Pipeline

	// VertexBuffer is bound at binding 0 when initialized.
	VertexBuffer Buffer
	VertexCount  int
}

type BufferInfo struct {
	Size       int
	Usage      core1_0.BufferUsageFlags
	Properties core1_0.MemoryPropertyFlags
}

type ImageInfo struct {
	Width      int
	Height     int
	Format     core1_0.Format
	Usage      core1_0.ImageUsageFlags
	Properties core1_0.MemoryPropertyFlags
}

type SubmitInfo struct {
	WaitSemaphore   Semaphore
	WaitStage       core1_0.PipelineStageFlags
	CommandBuffer   CommandBuffer
	SignalSemaphore Semaphore
	Fence           Fence
}

type PresentInfo struct {
	WaitSemaphore Semaphore
	Swapchain     Swapchain
	ImageIndex    int
}

// Device is a logical device bound to one window surface. Destroy methods
// accept the null handle and do nothing with it.
type Device interface {
	QueueFamilies() QueueFamilies
	SurfaceSupport() (SurfaceSupport, error)

	CreateSemaphore() (Semaphore, error)
	DestroySemaphore(semaphore Semaphore)
	CreateFence(signaled bool) (Fence, error)
	DestroyFence(fence Fence)
	// WaitForFence blocks until the fence is signaled.
	WaitForFence(fence Fence) error
	ResetFence(fence Fence) error

	CreateShaderModule(code []uint32) (ShaderModule, error)
	DestroyShaderModule(module ShaderModule)

	// CreateSwapchain returns the swapchain together with its images. The
	// images belong to the swapchain and go away with it.
	CreateSwapchain(info SwapchainInfo) (Swapchain, []Image, error)
	DestroySwapchain(swapchain Swapchain)
	CreateImageView(image Image, format core1_0.Format) (ImageView, error)
	DestroyImageView(view ImageView)
	CreateRenderPass(format core1_0.Format) (RenderPass, error)
	DestroyRenderPass(renderPass RenderPass)
	CreatePipelineLayout() (PipelineLayout, error)
	DestroyPipelineLayout(layout PipelineLayout)
	CreateGraphicsPipeline(info PipelineInfo) (Pipeline, error)
	DestroyPipeline(pipeline Pipeline)
	CreateFramebuffer(info FramebufferInfo) (Framebuffer, error)
	DestroyFramebuffer(framebuffer Framebuffer)
	AllocateCommandBuffers(count int) ([]CommandBuffer, error)
	FreeCommandBuffers(buffers ...CommandBuffer)
	RecordDraw(buffer CommandBuffer, info DrawInfo) error

	CreateBuffer(info BufferInfo) (Buffer, error)
	DestroyBuffer(buffer Buffer)
	WriteBuffer(buffer Buffer, offset int, data []byte) error
	CreateImage(info ImageInfo) (Image, error)
	DestroyImage(image Image)
	// CopyBufferToImage copies a tightly packed buffer into the whole image
	// on the given queue and leaves the image ready for shader reads. It
	// returns once the copy has completed.
	CopyBufferToImage(queue Queue, src Buffer, dst Image, width, height int) error

	AcquireNextImage(swapchain Swapchain, signal Semaphore) (int, Status, error)
	Submit(info SubmitInfo) error
	Present(info PresentInfo) (Status, error)
	// WaitIdle blocks until every queue of the device is idle.
	WaitIdle() error
}
