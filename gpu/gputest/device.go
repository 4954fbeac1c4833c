// Package gputest provides a gpu.Device that records what it is asked to do
// and checks handle lifetimes and fence discipline without touching a GPU.
package gputest

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/bitmap/gpu"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
)

// Kind is the type of object behind a handle.
type Kind string

const (
	KindSemaphore      Kind = "semaphore"
	KindFence          Kind = "fence"
	KindShaderModule   Kind = "shader module"
	KindSwapchain      Kind = "swapchain"
	KindImageView      Kind = "image view"
	KindRenderPass     Kind = "render pass"
	KindPipelineLayout Kind = "pipeline layout"
	KindPipeline       Kind = "pipeline"
	KindFramebuffer    Kind = "framebuffer"
	KindCommandBuffer  Kind = "command buffer"
	KindBuffer         Kind = "buffer"
	KindImage          Kind = "image"
)

// ErrInjected is returned by a create call selected through FailCreate.
var ErrInjected = errors.New("gputest: injected failure")

type fenceState struct {
	signaled    bool
	outstanding int
}

// Device is a mock gpu.Device. The exported configuration fields may be
// changed between calls; the counters are only ever incremented.
type Device struct {
	Families gpu.QueueFamilies
	Support  gpu.SurfaceSupport

	// AcquireResults and PresentResults are consumed one per call; once
	// empty every call succeeds.
	AcquireResults []gpu.Status
	PresentResults []gpu.Status

	// FailCreate makes the next create call for that kind fail.
	FailCreate Kind

	SupportQueries int
	FenceWaits     int
	FenceResets    int
	Acquires       int
	Submits        int
	Presents       int
	IdleWaits      int
	Copies         int

	// SubmittedFences lists the fence of every submission in order.
	SubmittedFences []gpu.Fence
	// MaxOutstanding is the largest number of unfinished submissions seen
	// on any single fence.
	MaxOutstanding int
	// Violations lists every misuse detected: double destroys, reuse of an
	// in-flight fence or command buffer, semaphores signaled twice and so on.
	Violations []string

	SwapchainInfos []gpu.SwapchainInfo
	PipelineInfos  []gpu.PipelineInfo
	ImageInfos     []gpu.ImageInfo
	BufferInfos    map[gpu.Buffer]gpu.BufferInfo
	Contents       map[gpu.Buffer][]byte
	Recorded       map[gpu.CommandBuffer]gpu.DrawInfo

	next       uint64
	live       map[uint64]Kind
	fences     map[gpu.Fence]*fenceState
	semaphores map[gpu.Semaphore]bool
	// submitted is the fence of each command buffer's last submission.
	submitted  map[gpu.CommandBuffer]gpu.Fence
	images     map[gpu.Swapchain][]gpu.Image
	nextImage  map[gpu.Swapchain]int
}

var _ gpu.Device = (*Device)(nil)

// NewDevice returns a device whose surface reports a fixed 512x512 extent,
// two to three images and the preferred BGRA8 format, on a single queue
// family.
func NewDevice() *Device {
	return &Device{
		Families: gpu.QueueFamilies{Graphics: 0, Transfer: 0, Present: 0},
		Support: gpu.SurfaceSupport{
			Capabilities: &khr_surface.SurfaceCapabilities{
				MinImageCount:  2,
				MaxImageCount:  3,
				CurrentExtent:  core1_0.Extent2D{Width: 512, Height: 512},
				MinImageExtent: core1_0.Extent2D{Width: 1, Height: 1},
				MaxImageExtent: core1_0.Extent2D{Width: 4096, Height: 4096},
			},
			Formats: []khr_surface.SurfaceFormat{
				{Format: core1_0.FormatB8G8R8A8UnsignedNormalized, ColorSpace: khr_surface.ColorSpaceSRGBNonlinear},
			},
			PresentModes: []khr_surface.PresentMode{khr_surface.PresentModeFIFO, khr_surface.PresentModeMailbox},
		},
		BufferInfos: make(map[gpu.Buffer]gpu.BufferInfo),
		Contents:    make(map[gpu.Buffer][]byte),
		Recorded:    make(map[gpu.CommandBuffer]gpu.DrawInfo),
		live:        make(map[uint64]Kind),
		fences:      make(map[gpu.Fence]*fenceState),
		semaphores:  make(map[gpu.Semaphore]bool),
		submitted:   make(map[gpu.CommandBuffer]gpu.Fence),
		images:      make(map[gpu.Swapchain][]gpu.Image),
		nextImage:   make(map[gpu.Swapchain]int),
	}
}

func (d *Device) violation(format string, args ...interface{}) {
	d.Violations = append(d.Violations, fmt.Sprintf(format, args...))
}

func (d *Device) create(kind Kind) (uint64, error) {
	if d.FailCreate == kind {
		d.FailCreate = ""
		return 0, errors.Wrapf(ErrInjected, "create %s", kind)
	}
	d.next++
	d.live[d.next] = kind
	return d.next, nil
}

func (d *Device) destroy(kind Kind, id uint64) {
	if id == 0 {
		return
	}
	have, ok := d.live[id]
	if !ok {
		d.violation("destroy of %s %d which is not alive", kind, id)
		return
	}
	if have != kind {
		d.violation("destroy of %s %d as %s", have, id, kind)
		return
	}
	delete(d.live, id)
}

func (d *Device) alive(kind Kind, id uint64) bool {
	have, ok := d.live[id]
	return ok && have == kind
}

// Live returns how many objects of the given kind exist.
func (d *Device) Live(kind Kind) int {
	count := 0
	for _, k := range d.live {
		if k == kind {
			count++
		}
	}
	return count
}

// LiveTotal returns how many objects of any kind exist.
func (d *Device) LiveTotal() int {
	return len(d.live)
}

func (d *Device) QueueFamilies() gpu.QueueFamilies {
	return d.Families
}

func (d *Device) SurfaceSupport() (gpu.SurfaceSupport, error) {
	d.SupportQueries++
	return d.Support, nil
}

func (d *Device) CreateSemaphore() (gpu.Semaphore, error) {
	id, err := d.create(KindSemaphore)
	if err != nil {
		return 0, err
	}
	d.semaphores[gpu.Semaphore(id)] = false
	return gpu.Semaphore(id), nil
}

func (d *Device) DestroySemaphore(semaphore gpu.Semaphore) {
	d.destroy(KindSemaphore, uint64(semaphore))
	delete(d.semaphores, semaphore)
}

func (d *Device) CreateFence(signaled bool) (gpu.Fence, error) {
	id, err := d.create(KindFence)
	if err != nil {
		return 0, err
	}
	d.fences[gpu.Fence(id)] = &fenceState{signaled: signaled}
	return gpu.Fence(id), nil
}

func (d *Device) DestroyFence(fence gpu.Fence) {
	if state, ok := d.fences[fence]; ok && state.outstanding > 0 {
		d.violation("destroy of fence %d with %d submissions in flight", fence, state.outstanding)
	}
	d.destroy(KindFence, uint64(fence))
	delete(d.fences, fence)
}

// WaitForFence completes every submission tied to the fence.
func (d *Device) WaitForFence(fence gpu.Fence) error {
	d.FenceWaits++
	state, ok := d.fences[fence]
	if !ok {
		return errors.Newf("gputest: wait on unknown fence %d", fence)
	}
	if !state.signaled && state.outstanding == 0 {
		return errors.Newf("gputest: wait on fence %d would never return", fence)
	}
	state.outstanding = 0
	state.signaled = true
	return nil
}

func (d *Device) ResetFence(fence gpu.Fence) error {
	d.FenceResets++
	state, ok := d.fences[fence]
	if !ok {
		return errors.Newf("gputest: reset of unknown fence %d", fence)
	}
	if state.outstanding > 0 {
		d.violation("reset of fence %d with %d submissions in flight", fence, state.outstanding)
	}
	state.signaled = false
	return nil
}

func (d *Device) CreateShaderModule(code []uint32) (gpu.ShaderModule, error) {
	id, err := d.create(KindShaderModule)
	return gpu.ShaderModule(id), err
}

func (d *Device) DestroyShaderModule(module gpu.ShaderModule) {
	d.destroy(KindShaderModule, uint64(module))
}

// CreateSwapchain hands out MinImageCount images.
func (d *Device) CreateSwapchain(info gpu.SwapchainInfo) (gpu.Swapchain, []gpu.Image, error) {
	id, err := d.create(KindSwapchain)
	if err != nil {
		return 0, nil, err
	}
	d.SwapchainInfos = append(d.SwapchainInfos, info)

	swapchain := gpu.Swapchain(id)
	images := make([]gpu.Image, info.MinImageCount)
	for i := range images {
		d.next++
		images[i] = gpu.Image(d.next)
	}
	d.images[swapchain] = images
	d.nextImage[swapchain] = 0
	return swapchain, images, nil
}

func (d *Device) DestroySwapchain(swapchain gpu.Swapchain) {
	d.destroy(KindSwapchain, uint64(swapchain))
	delete(d.images, swapchain)
	delete(d.nextImage, swapchain)
}

func (d *Device) CreateImageView(image gpu.Image, format core1_0.Format) (gpu.ImageView, error) {
	id, err := d.create(KindImageView)
	return gpu.ImageView(id), err
}

func (d *Device) DestroyImageView(view gpu.ImageView) {
	d.destroy(KindImageView, uint64(view))
}

func (d *Device) CreateRenderPass(format core1_0.Format) (gpu.RenderPass, error) {
	id, err := d.create(KindRenderPass)
	return gpu.RenderPass(id), err
}

func (d *Device) DestroyRenderPass(renderPass gpu.RenderPass) {
	d.destroy(KindRenderPass, uint64(renderPass))
}

func (d *Device) CreatePipelineLayout() (gpu.PipelineLayout, error) {
	id, err := d.create(KindPipelineLayout)
	return gpu.PipelineLayout(id), err
}

func (d *Device) DestroyPipelineLayout(layout gpu.PipelineLayout) {
	d.destroy(KindPipelineLayout, uint64(layout))
}

func (d *Device) CreateGraphicsPipeline(info gpu.PipelineInfo) (gpu.Pipeline, error) {
	if !d.alive(KindRenderPass, uint64(info.RenderPass)) || !d.alive(KindPipelineLayout, uint64(info.Layout)) {
		d.violation("pipeline created against a dead render pass or layout")
	}
	id, err := d.create(KindPipeline)
	if err != nil {
		return 0, err
	}
	d.PipelineInfos = append(d.PipelineInfos, info)
	return gpu.Pipeline(id), nil
}

func (d *Device) DestroyPipeline(pipeline gpu.Pipeline) {
	d.destroy(KindPipeline, uint64(pipeline))
}

func (d *Device) CreateFramebuffer(info gpu.FramebufferInfo) (gpu.Framebuffer, error) {
	if !d.alive(KindImageView, uint64(info.View)) {
		d.violation("framebuffer created against dead image view %d", info.View)
	}
	id, err := d.create(KindFramebuffer)
	return gpu.Framebuffer(id), err
}

func (d *Device) DestroyFramebuffer(framebuffer gpu.Framebuffer) {
	d.destroy(KindFramebuffer, uint64(framebuffer))
}

func (d *Device) AllocateCommandBuffers(count int) ([]gpu.CommandBuffer, error) {
	buffers := make([]gpu.CommandBuffer, 0, count)
	for i := 0; i < count; i++ {
		id, err := d.create(KindCommandBuffer)
		if err != nil {
			d.FreeCommandBuffers(buffers...)
			return nil, err
		}
		buffers = append(buffers, gpu.CommandBuffer(id))
	}
	return buffers, nil
}

func (d *Device) FreeCommandBuffers(buffers ...gpu.CommandBuffer) {
	for _, buffer := range buffers {
		d.destroy(KindCommandBuffer, uint64(buffer))
		if state, ok := d.fences[d.submitted[buffer]]; ok && state.outstanding > 0 {
			d.violation("free of command buffer %d still pending on fence %d", buffer, d.submitted[buffer])
		}
		delete(d.Recorded, buffer)
		delete(d.submitted, buffer)
	}
}

func (d *Device) RecordDraw(buffer gpu.CommandBuffer, info gpu.DrawInfo) error {
	if !d.alive(KindCommandBuffer, uint64(buffer)) {
		return errors.Newf("gputest: record into unknown command buffer %d", buffer)
	}
	if !d.alive(KindFramebuffer, uint64(info.Framebuffer)) || !d.alive(KindPipeline, uint64(info.Pipeline)) {
		d.violation("command buffer %d records dead framebuffer or pipeline", buffer)
	}
	d.Recorded[buffer] = info
	return nil
}

func (d *Device) CreateBuffer(info gpu.BufferInfo) (gpu.Buffer, error) {
	id, err := d.create(KindBuffer)
	if err != nil {
		return 0, err
	}
	buffer := gpu.Buffer(id)
	d.BufferInfos[buffer] = info
	d.Contents[buffer] = make([]byte, info.Size)
	return buffer, nil
}

func (d *Device) DestroyBuffer(buffer gpu.Buffer) {
	d.destroy(KindBuffer, uint64(buffer))
	delete(d.BufferInfos, buffer)
	delete(d.Contents, buffer)
}

func (d *Device) WriteBuffer(buffer gpu.Buffer, offset int, data []byte) error {
	contents, ok := d.Contents[buffer]
	if !ok {
		return errors.Newf("gputest: write to unknown buffer %d", buffer)
	}
	if offset < 0 || offset+len(data) > len(contents) {
		return errors.Newf("gputest: write of %d bytes at %d overflows buffer of %d", len(data), offset, len(contents))
	}
	copy(contents[offset:], data)
	return nil
}

func (d *Device) CreateImage(info gpu.ImageInfo) (gpu.Image, error) {
	id, err := d.create(KindImage)
	if err != nil {
		return 0, err
	}
	d.ImageInfos = append(d.ImageInfos, info)
	return gpu.Image(id), nil
}

func (d *Device) DestroyImage(image gpu.Image) {
	d.destroy(KindImage, uint64(image))
}

func (d *Device) CopyBufferToImage(queue gpu.Queue, src gpu.Buffer, dst gpu.Image, width, height int) error {
	if !d.alive(KindBuffer, uint64(src)) || !d.alive(KindImage, uint64(dst)) {
		return errors.New("gputest: copy between dead objects")
	}
	if len(d.Contents[src]) < width*height*4 {
		return errors.Newf("gputest: buffer of %d bytes too small for %dx%d", len(d.Contents[src]), width, height)
	}
	d.Copies++
	return nil
}

func (d *Device) AcquireNextImage(swapchain gpu.Swapchain, signal gpu.Semaphore) (int, gpu.Status, error) {
	d.Acquires++
	images, ok := d.images[swapchain]
	if !ok || !d.alive(KindSwapchain, uint64(swapchain)) {
		return 0, gpu.StatusSuccess, errors.Newf("gputest: acquire from unknown swapchain %d", swapchain)
	}

	status := gpu.StatusSuccess
	if len(d.AcquireResults) > 0 {
		status = d.AcquireResults[0]
		d.AcquireResults = d.AcquireResults[1:]
	}
	if status == gpu.StatusOutOfDate {
		return 0, status, nil
	}

	if d.semaphores[signal] {
		d.violation("acquire signals semaphore %d which is already signaled", signal)
	}
	d.semaphores[signal] = true

	index := d.nextImage[swapchain]
	d.nextImage[swapchain] = (index + 1) % len(images)
	return index, status, nil
}

func (d *Device) Submit(info gpu.SubmitInfo) error {
	d.Submits++
	if _, ok := d.Recorded[info.CommandBuffer]; !ok {
		return errors.Newf("gputest: submit of unrecorded command buffer %d", info.CommandBuffer)
	}

	if state, ok := d.fences[d.submitted[info.CommandBuffer]]; ok && state.outstanding > 0 {
		d.violation("submit of command buffer %d still pending on fence %d", info.CommandBuffer, d.submitted[info.CommandBuffer])
	}
	d.submitted[info.CommandBuffer] = info.Fence

	if info.WaitSemaphore.Initialized() {
		if !d.semaphores[info.WaitSemaphore] {
			d.violation("submit waits on semaphore %d which nothing signals", info.WaitSemaphore)
		}
		d.semaphores[info.WaitSemaphore] = false
	}
	if info.SignalSemaphore.Initialized() {
		if d.semaphores[info.SignalSemaphore] {
			d.violation("submit signals semaphore %d which is already signaled", info.SignalSemaphore)
		}
		d.semaphores[info.SignalSemaphore] = true
	}

	d.SubmittedFences = append(d.SubmittedFences, info.Fence)
	if info.Fence.Initialized() {
		state, ok := d.fences[info.Fence]
		if !ok {
			return errors.Newf("gputest: submit with unknown fence %d", info.Fence)
		}
		if state.signaled {
			d.violation("submit with fence %d still signaled", info.Fence)
		}
		state.outstanding++
		if state.outstanding > d.MaxOutstanding {
			d.MaxOutstanding = state.outstanding
		}
	}
	return nil
}

func (d *Device) Present(info gpu.PresentInfo) (gpu.Status, error) {
	d.Presents++
	images, ok := d.images[info.Swapchain]
	if !ok {
		return gpu.StatusSuccess, errors.Newf("gputest: present to unknown swapchain %d", info.Swapchain)
	}
	if info.ImageIndex < 0 || info.ImageIndex >= len(images) {
		return gpu.StatusSuccess, errors.Newf("gputest: present of image %d out of %d", info.ImageIndex, len(images))
	}

	if info.WaitSemaphore.Initialized() {
		if !d.semaphores[info.WaitSemaphore] {
			d.violation("present waits on semaphore %d which nothing signals", info.WaitSemaphore)
		}
		d.semaphores[info.WaitSemaphore] = false
	}

	status := gpu.StatusSuccess
	if len(d.PresentResults) > 0 {
		status = d.PresentResults[0]
		d.PresentResults = d.PresentResults[1:]
	}
	return status, nil
}

// WaitIdle completes every outstanding submission.
func (d *Device) WaitIdle() error {
	d.IdleWaits++
	for _, state := range d.fences {
		if state.outstanding > 0 {
			state.outstanding = 0
			state.signaled = true
		}
	}
	return nil
}
