package gpu

// Handles are opaque, backend-assigned identifiers. The zero value of every
// handle type is the null handle.

type Semaphore uint64
type Fence uint64
type Swapchain uint64
type Image uint64
type ImageView uint64
type RenderPass uint64
type PipelineLayout uint64
type Pipeline uint64
type Framebuffer uint64
type CommandBuffer uint64
type ShaderModule uint64
type Buffer uint64

func (h Semaphore) Initialized() bool      { return h != 0 }
func (h Fence) Initialized() bool          { return h != 0 }
func (h Swapchain) Initialized() bool      { return h != 0 }
func (h Image) Initialized() bool          { return h != 0 }
func (h ImageView) Initialized() bool      { return h != 0 }
func (h RenderPass) Initialized() bool     { return h != 0 }
func (h PipelineLayout) Initialized() bool { return h != 0 }
func (h Pipeline) Initialized() bool       { return h != 0 }
func (h Framebuffer) Initialized() bool    { return h != 0 }
func (h CommandBuffer) Initialized() bool  { return h != 0 }
func (h ShaderModule) Initialized() bool   { return h != 0 }
func (h Buffer) Initialized() bool         { return h != 0 }
