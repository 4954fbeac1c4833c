// Package swapchain builds and tears down everything that depends on the
// window surface: the swapchain, its image views, the render pass, the
// graphics pipeline, framebuffers and pre-recorded command buffers.
package swapchain

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/bitmap/gpu"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
)

// Window reports the current size of the drawable area in pixels.
type Window interface {
	DrawableSize() (width, height int)
}

// Draw selects what the pre-recorded command buffers draw.
type Draw int

const (
	// DrawStrip draws four vertices as a triangle strip with no vertex
	// input; the vertex shader derives positions from the vertex index.
	DrawStrip Draw = iota
	// DrawVertexBuffer draws QuadVertices from a vertex buffer as a
	// triangle list.
	DrawVertexBuffer
)

func (d Draw) topology() core1_0.PrimitiveTopology {
	if d == DrawVertexBuffer {
		return core1_0.PrimitiveTopologyTriangleList
	}
	return core1_0.PrimitiveTopologyTriangleStrip
}

func (d Draw) vertexCount() int {
	if d == DrawVertexBuffer {
		return 6
	}
	return 4
}

type Options struct {
	Draw           Draw
	VertexShader   gpu.ShaderModule
	FragmentShader gpu.ShaderModule
	// VertexBuffer must hold QuadVertices when Draw is DrawVertexBuffer.
	VertexBuffer gpu.Buffer
}

// Builder creates State values for one device and window.
type Builder struct {
	dev    gpu.Device
	window Window
	opts   Options
}

func NewBuilder(dev gpu.Device, window Window, opts Options) (*Builder, error) {
	if opts.Draw == DrawVertexBuffer && !opts.VertexBuffer.Initialized() {
		return nil, errors.New("swapchain: vertex buffer draw needs a vertex buffer")
	}
	return &Builder{dev: dev, window: window, opts: opts}, nil
}

// State is the set of surface-dependent objects. Exactly one framebuffer and
// one command buffer exist per swapchain image.
type State struct {
	Swapchain gpu.Swapchain
	Format    khr_surface.SurfaceFormat
	Extent    core1_0.Extent2D

	Images     []gpu.Image
	ImageViews []gpu.ImageView

	RenderPass     gpu.RenderPass
	PipelineLayout gpu.PipelineLayout
	Pipeline       gpu.Pipeline

	Framebuffers   []gpu.Framebuffer
	CommandBuffers []gpu.CommandBuffer
}

// Build creates a new State from freshly queried surface support. On failure
// everything created so far is destroyed again.
func (b *Builder) Build() (*State, error) {
	support, err := b.dev.SurfaceSupport()
	if err != nil {
		return nil, errors.Wrap(err, "query surface support")
	}

	width, height := b.window.DrawableSize()
	state := &State{
		Format: ChooseSurfaceFormat(support.Formats),
		Extent: ChooseExtent(support.Capabilities, width, height),
	}

	err = b.build(state, support)
	if err != nil {
		b.destroy(state)
		return nil, err
	}

	return state, nil
}

func (b *Builder) build(state *State, support gpu.SurfaceSupport) error {
	sharingMode, queueFamilyIndices := b.dev.QueueFamilies().SharingMode()

	var err error
	state.Swapchain, state.Images, err = b.dev.CreateSwapchain(gpu.SwapchainInfo{
		Capabilities:       support.Capabilities,
		MinImageCount:      ChooseImageCount(support.Capabilities),
		Format:             state.Format,
		Extent:             state.Extent,
		PresentMode:        ChoosePresentMode(support.PresentModes),
		SharingMode:        sharingMode,
		QueueFamilyIndices: queueFamilyIndices,
	})
	if err != nil {
		return errors.Wrap(err, "create swapchain")
	}

	for _, image := range state.Images {
		view, err := b.dev.CreateImageView(image, state.Format.Format)
		if err != nil {
			return errors.Wrap(err, "create swapchain image view")
		}
		state.ImageViews = append(state.ImageViews, view)
	}

	state.RenderPass, err = b.dev.CreateRenderPass(state.Format.Format)
	if err != nil {
		return errors.Wrap(err, "create render pass")
	}

	state.PipelineLayout, err = b.dev.CreatePipelineLayout()
	if err != nil {
		return errors.Wrap(err, "create pipeline layout")
	}

	state.Pipeline, err = b.dev.CreateGraphicsPipeline(gpu.PipelineInfo{
		RenderPass:     state.RenderPass,
		Layout:         state.PipelineLayout,
		Extent:         state.Extent,
		VertexShader:   b.opts.VertexShader,
		FragmentShader: b.opts.FragmentShader,
		Topology:       b.opts.Draw.topology(),
		VertexInput:    b.opts.Draw == DrawVertexBuffer,
	})
	if err != nil {
		return errors.Wrap(err, "create graphics pipeline")
	}

	for _, view := range state.ImageViews {
		framebuffer, err := b.dev.CreateFramebuffer(gpu.FramebufferInfo{
			RenderPass: state.RenderPass,
			View:       view,
			Extent:     state.Extent,
		})
		if err != nil {
			return errors.Wrap(err, "create framebuffer")
		}
		state.Framebuffers = append(state.Framebuffers, framebuffer)
	}

	state.CommandBuffers, err = b.dev.AllocateCommandBuffers(len(state.Framebuffers))
	if err != nil {
		return errors.Wrap(err, "allocate command buffers")
	}

	var vertexBuffer gpu.Buffer
	if b.opts.Draw == DrawVertexBuffer {
		vertexBuffer = b.opts.VertexBuffer
	}

	for i, buffer := range state.CommandBuffers {
		err = b.dev.RecordDraw(buffer, gpu.DrawInfo{
			RenderPass:   state.RenderPass,
			Framebuffer:  state.Framebuffers[i],
			Extent:       state.Extent,
			Pipeline:     state.Pipeline,
			VertexBuffer: vertexBuffer,
			VertexCount:  b.opts.Draw.vertexCount(),
		})
		if err != nil {
			return errors.Wrapf(err, "record command buffer %d", i)
		}
	}

	return nil
}

// Destroy waits for the device to go idle and destroys the state. Calling it
// again, or on a nil State, does nothing.
func (s *State) Destroy(dev gpu.Device) error {
	if s == nil || s.empty() {
		return nil
	}

	err := dev.WaitIdle()
	if err != nil {
		return errors.Wrap(err, "wait idle before swapchain teardown")
	}

	(&Builder{dev: dev}).destroy(s)
	return nil
}

func (s *State) empty() bool {
	return !s.Swapchain.Initialized() &&
		len(s.ImageViews) == 0 &&
		!s.RenderPass.Initialized() &&
		!s.PipelineLayout.Initialized() &&
		!s.Pipeline.Initialized() &&
		len(s.Framebuffers) == 0 &&
		len(s.CommandBuffers) == 0
}

func (b *Builder) destroy(s *State) {
	if len(s.CommandBuffers) > 0 {
		b.dev.FreeCommandBuffers(s.CommandBuffers...)
		s.CommandBuffers = nil
	}

	for _, framebuffer := range s.Framebuffers {
		b.dev.DestroyFramebuffer(framebuffer)
	}
	s.Framebuffers = nil

	if s.Pipeline.Initialized() {
		b.dev.DestroyPipeline(s.Pipeline)
		s.Pipeline = 0
	}

	if s.PipelineLayout.Initialized() {
		b.dev.DestroyPipelineLayout(s.PipelineLayout)
		s.PipelineLayout = 0
	}

	if s.RenderPass.Initialized() {
		b.dev.DestroyRenderPass(s.RenderPass)
		s.RenderPass = 0
	}

	for _, view := range s.ImageViews {
		b.dev.DestroyImageView(view)
	}
	s.ImageViews = nil

	if s.Swapchain.Initialized() {
		b.dev.DestroySwapchain(s.Swapchain)
		s.Swapchain = 0
	}
	s.Images = nil
}
