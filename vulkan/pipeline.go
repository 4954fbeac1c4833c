package vulkan

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/bitmap/gpu"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
)

// vertexStride is the size of one vec3 float position.
const vertexStride = 3 * 4

func (c *Context) CreateImageView(img gpu.Image, format core1_0.Format) (gpu.ImageView, error) {
	i, ok := c.images.get(uint64(img))
	if !ok {
		return 0, errors.Newf("vulkan: unknown image %d", img)
	}

	imageView, _, err := c.deviceDriver.CreateImageView(nil, core1_0.ImageViewCreateInfo{
		Image:    i.image,
		ViewType: core1_0.ImageViewType2D,
		Format:   format,
		SubresourceRange: core1_0.ImageSubresourceRange{
			AspectMask:     core1_0.ImageAspectColor,
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	})
	if err != nil {
		return 0, errors.Wrap(err, "create image view")
	}
	return gpu.ImageView(c.imageViews.add(imageView)), nil
}

func (c *Context) DestroyImageView(view gpu.ImageView) {
	if v, ok := c.imageViews.remove(uint64(view)); ok {
		c.deviceDriver.DestroyImageView(v, nil)
	}
}

// CreateRenderPass creates a single-subpass pass writing one color
// attachment that ends up ready for presentation. Every pixel is drawn each
// frame so the previous contents are not loaded.
func (c *Context) CreateRenderPass(format core1_0.Format) (gpu.RenderPass, error) {
	renderPass, _, err := c.deviceDriver.CreateRenderPass(nil, core1_0.RenderPassCreateInfo{
		Attachments: []core1_0.AttachmentDescription{
			{
				Format:         format,
				Samples:        core1_0.Samples1,
				LoadOp:         core1_0.AttachmentLoadOpDontCare,
				StoreOp:        core1_0.AttachmentStoreOpStore,
				StencilLoadOp:  core1_0.AttachmentLoadOpDontCare,
				StencilStoreOp: core1_0.AttachmentStoreOpDontCare,
				InitialLayout:  core1_0.ImageLayoutUndefined,
				FinalLayout:    khr_swapchain.ImageLayoutPresentSrc,
			},
		},
		Subpasses: []core1_0.SubpassDescription{
			{
				PipelineBindPoint: core1_0.PipelineBindPointGraphics,
				ColorAttachments: []core1_0.AttachmentReference{
					{
						Attachment: 0,
						Layout:     core1_0.ImageLayoutColorAttachmentOptimal,
					},
				},
			},
		},
		SubpassDependencies: []core1_0.SubpassDependency{
			{
				SrcSubpass: core1_0.SubpassExternal,
				DstSubpass: 0,

				SrcStageMask:  core1_0.PipelineStageColorAttachmentOutput,
				SrcAccessMask: 0,

				DstStageMask:  core1_0.PipelineStageColorAttachmentOutput,
				DstAccessMask: core1_0.AccessColorAttachmentWrite,
			},
		},
	})
	if err != nil {
		return 0, errors.Wrap(err, "create render pass")
	}
	return gpu.RenderPass(c.renderPasses.add(renderPass)), nil
}

func (c *Context) DestroyRenderPass(renderPass gpu.RenderPass) {
	if r, ok := c.renderPasses.remove(uint64(renderPass)); ok {
		c.deviceDriver.DestroyRenderPass(r, nil)
	}
}

func (c *Context) CreatePipelineLayout() (gpu.PipelineLayout, error) {
	layout, _, err := c.deviceDriver.CreatePipelineLayout(nil, core1_0.PipelineLayoutCreateInfo{})
	if err != nil {
		return 0, errors.Wrap(err, "create pipeline layout")
	}
	return gpu.PipelineLayout(c.pipelineLayouts.add(layout)), nil
}

func (c *Context) DestroyPipelineLayout(layout gpu.PipelineLayout) {
	if l, ok := c.pipelineLayouts.remove(uint64(layout)); ok {
		c.deviceDriver.DestroyPipelineLayout(l, nil)
	}
}

func vertexInputState(enabled bool) *core1_0.PipelineVertexInputStateCreateInfo {
	if !enabled {
		return &core1_0.PipelineVertexInputStateCreateInfo{}
	}

	return &core1_0.PipelineVertexInputStateCreateInfo{
		VertexBindingDescriptions: []core1_0.VertexInputBindingDescription{
			{
				Binding:   0,
				Stride:    vertexStride,
				InputRate: core1_0.VertexInputRateVertex,
			},
		},
		VertexAttributeDescriptions: []core1_0.VertexInputAttributeDescription{
			{
				Binding:  0,
				Location: 0,
				Format:   core1_0.FormatR32G32B32SignedFloat,
				Offset:   0,
			},
		},
	}
}

func (c *Context) CreateGraphicsPipeline(info gpu.PipelineInfo) (gpu.Pipeline, error) {
	vertShader, ok := c.shaderModules.get(uint64(info.VertexShader))
	if !ok {
		return 0, errors.Newf("vulkan: unknown vertex shader %d", info.VertexShader)
	}
	fragShader, ok := c.shaderModules.get(uint64(info.FragmentShader))
	if !ok {
		return 0, errors.Newf("vulkan: unknown fragment shader %d", info.FragmentShader)
	}
	renderPass, ok := c.renderPasses.get(uint64(info.RenderPass))
	if !ok {
		return 0, errors.Newf("vulkan: unknown render pass %d", info.RenderPass)
	}
	layout, ok := c.pipelineLayouts.get(uint64(info.Layout))
	if !ok {
		return 0, errors.Newf("vulkan: unknown pipeline layout %d", info.Layout)
	}

	inputAssembly := &core1_0.PipelineInputAssemblyStateCreateInfo{
		Topology:               info.Topology,
		PrimitiveRestartEnable: false,
	}

	vertStage := core1_0.PipelineShaderStageCreateInfo{
		Stage:  core1_0.StageVertex,
		Module: vertShader,
		Name:   "main",
	}

	fragStage := core1_0.PipelineShaderStageCreateInfo{
		Stage:  core1_0.StageFragment,
		Module: fragShader,
		Name:   "main",
	}

	viewport := &core1_0.PipelineViewportStateCreateInfo{
		Viewports: []core1_0.Viewport{
			{
				X:        0,
				Y:        0,
				Width:    float32(info.Extent.Width),
				Height:   float32(info.Extent.Height),
				MinDepth: 0,
				MaxDepth: 1,
			},
		},
		Scissors: []core1_0.Rect2D{
			{
				Offset: core1_0.Offset2D{X: 0, Y: 0},
				Extent: info.Extent,
			},
		},
	}

	// The quad covers the viewport whichever way it is wound.
	rasterization := &core1_0.PipelineRasterizationStateCreateInfo{
		DepthClampEnable:        false,
		RasterizerDiscardEnable: false,

		PolygonMode: core1_0.PolygonModeFill,
		CullMode:    core1_0.CullModeNone,
		FrontFace:   core1_0.FrontFaceClockwise,

		DepthBiasEnable: false,

		LineWidth: 1.0,
	}

	multisample := &core1_0.PipelineMultisampleStateCreateInfo{
		SampleShadingEnable:  false,
		RasterizationSamples: core1_0.Samples1,
		MinSampleShading:     1.0,
	}

	colorBlend := &core1_0.PipelineColorBlendStateCreateInfo{
		LogicOpEnabled: false,
		LogicOp:        core1_0.LogicOpCopy,

		BlendConstants: [4]float32{0, 0, 0, 0},
		Attachments: []core1_0.PipelineColorBlendAttachmentState{
			{
				BlendEnabled:   false,
				ColorWriteMask: core1_0.ColorComponentRed | core1_0.ColorComponentGreen | core1_0.ColorComponentBlue | core1_0.ColorComponentAlpha,
			},
		},
	}

	pipelines, _, err := c.deviceDriver.CreateGraphicsPipelines(nil, nil,
		core1_0.GraphicsPipelineCreateInfo{
			Stages: []core1_0.PipelineShaderStageCreateInfo{
				vertStage,
				fragStage,
			},
			VertexInputState:   vertexInputState(info.VertexInput),
			InputAssemblyState: inputAssembly,
			ViewportState:      viewport,
			RasterizationState: rasterization,
			MultisampleState:   multisample,
			ColorBlendState:    colorBlend,
			Layout:             layout,
			RenderPass:         renderPass,
			Subpass:            0,
			BasePipelineIndex:  -1,
		},
	)
	if err != nil {
		return 0, errors.Wrap(err, "create graphics pipeline")
	}
	return gpu.Pipeline(c.pipelines.add(pipelines[0])), nil
}

func (c *Context) DestroyPipeline(pipeline gpu.Pipeline) {
	if p, ok := c.pipelines.remove(uint64(pipeline)); ok {
		c.deviceDriver.DestroyPipeline(p, nil)
	}
}

func (c *Context) CreateFramebuffer(info gpu.FramebufferInfo) (gpu.Framebuffer, error) {
	renderPass, ok := c.renderPasses.get(uint64(info.RenderPass))
	if !ok {
		return 0, errors.Newf("vulkan: unknown render pass %d", info.RenderPass)
	}
	view, ok := c.imageViews.get(uint64(info.View))
	if !ok {
		return 0, errors.Newf("vulkan: unknown image view %d", info.View)
	}

	framebuffer, _, err := c.deviceDriver.CreateFramebuffer(nil, core1_0.FramebufferCreateInfo{
		RenderPass:  renderPass,
		Layers:      1,
		Attachments: []core1_0.ImageView{view},
		Width:       info.Extent.Width,
		Height:      info.Extent.Height,
	})
	if err != nil {
		return 0, errors.Wrap(err, "create framebuffer")
	}
	return gpu.Framebuffer(c.framebuffers.add(framebuffer)), nil
}

func (c *Context) DestroyFramebuffer(framebuffer gpu.Framebuffer) {
	if f, ok := c.framebuffers.remove(uint64(framebuffer)); ok {
		c.deviceDriver.DestroyFramebuffer(f, nil)
	}
}
