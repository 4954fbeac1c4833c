// Package frame drives the acquire, submit and present cycle over a small
// ring of synchronization slots, rebuilding the swapchain whenever the
// surface stops matching it.
package frame

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/loov/hrtime"
	"github.com/sirupsen/logrus"
	"github.com/vkngwrapper/bitmap/gpu"
	"github.com/vkngwrapper/bitmap/swapchain"
	"github.com/vkngwrapper/core/v3/core1_0"
)

// DefaultFramesInFlight is used when Options.FramesInFlight is not positive.
const DefaultFramesInFlight = 2

// minimizedDelay is how long Run sleeps between polls while nothing can be
// drawn.
const minimizedDelay = 10 * time.Millisecond

// Events is what happened in the window since the last poll.
type Events struct {
	Quit    bool
	Resized bool
}

// Window is the window the loop renders into and polls for events.
type Window interface {
	swapchain.Window
	PollEvents() Events
}

// Slot holds the synchronization objects of one frame in flight. Nothing in
// a slot is reused before InFlight has signaled.
type Slot struct {
	ImageAvailable gpu.Semaphore
	RenderFinished gpu.Semaphore
	InFlight       gpu.Fence
}

// Stats counts what the loop has done since New.
type Stats struct {
	Frames   int
	Rebuilds int
	Skipped  int
}

// Options configures New.
type Options struct {
	FramesInFlight int
	// StatsInterval is how often the frame rate is logged. Zero disables it.
	StatsInterval time.Duration
	Logger        logrus.FieldLogger
}

// imageUse is the last submission of a swapchain image's command buffer.
// A zero serial means the image has not been submitted since the last build.
type imageUse struct {
	slot   int
	serial uint64
}

// Loop renders frames into a window. It is not safe for concurrent use.
type Loop struct {
	dev     gpu.Device
	window  Window
	builder *swapchain.Builder
	log     logrus.FieldLogger

	state   *swapchain.State
	slots   []Slot
	current int
	stale   bool

	// serial numbers submissions. pending holds, per slot, the serial of its
	// last submission until the slot's fence is waited on, then zero.
	serial  uint64
	pending []uint64
	images  []imageUse

	stats         Stats
	statsInterval time.Duration
	statsStart    time.Duration
	statsFrames   int
}

// New creates the slot ring and the first swapchain state.
func New(dev gpu.Device, window Window, builder *swapchain.Builder, opts Options) (*Loop, error) {
	if opts.FramesInFlight <= 0 {
		opts.FramesInFlight = DefaultFramesInFlight
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	l := &Loop{
		dev:           dev,
		window:        window,
		builder:       builder,
		log:           opts.Logger,
		statsInterval: opts.StatsInterval,
		statsStart:    hrtime.Now(),
	}

	err := l.createSlots(opts.FramesInFlight)
	if err != nil {
		l.destroySlots()
		return nil, err
	}

	l.state, err = builder.Build()
	if err != nil {
		l.destroySlots()
		return nil, errors.Wrap(err, "build swapchain")
	}
	l.resetImages()

	return l, nil
}

func (l *Loop) createSlots(count int) error {
	for i := 0; i < count; i++ {
		var slot Slot
		var err error

		slot.ImageAvailable, err = l.dev.CreateSemaphore()
		if err != nil {
			return errors.Wrapf(err, "slot %d image available semaphore", i)
		}
		l.slots = append(l.slots, slot)

		l.slots[i].RenderFinished, err = l.dev.CreateSemaphore()
		if err != nil {
			return errors.Wrapf(err, "slot %d render finished semaphore", i)
		}

		// Signaled so the first wait on every slot returns at once.
		l.slots[i].InFlight, err = l.dev.CreateFence(true)
		if err != nil {
			return errors.Wrapf(err, "slot %d in flight fence", i)
		}
	}
	return nil
}

func (l *Loop) destroySlots() {
	for _, slot := range l.slots {
		l.dev.DestroyFence(slot.InFlight)
		l.dev.DestroySemaphore(slot.RenderFinished)
		l.dev.DestroySemaphore(slot.ImageAvailable)
	}
	l.slots = nil
	l.pending = nil
}

// resetImages forgets every image submission. It is only valid once the
// device has gone idle.
func (l *Loop) resetImages() {
	l.images = make([]imageUse, len(l.state.Images))
	l.pending = make([]uint64, len(l.slots))
}

// waitForImage waits until the last submission of the image's command
// buffer has finished, if it was made from another slot that has not been
// waited on since.
func (l *Loop) waitForImage(imageIndex int) error {
	use := l.images[imageIndex]
	if use.serial == 0 || l.pending[use.slot] != use.serial {
		return nil
	}

	err := l.dev.WaitForFence(l.slots[use.slot].InFlight)
	if err != nil {
		return errors.Wrapf(err, "wait for image %d in slot %d", imageIndex, use.slot)
	}
	l.pending[use.slot] = 0
	return nil
}

func (l *Loop) Slots() []Slot           { return l.slots }
func (l *Loop) Current() int            { return l.current }
func (l *Loop) State() *swapchain.State { return l.state }
func (l *Loop) Stats() Stats            { return l.stats }

// Invalidate schedules a swapchain rebuild before the next frame.
func (l *Loop) Invalidate() {
	l.stale = true
}

// Rebuild destroys the swapchain state, after the device has gone idle, and
// builds it again.
func (l *Loop) Rebuild() error {
	err := l.state.Destroy(l.dev)
	if err != nil {
		return err
	}
	l.state = nil

	l.state, err = l.builder.Build()
	if err != nil {
		return errors.Wrap(err, "rebuild swapchain")
	}
	l.resetImages()

	l.stale = false
	l.stats.Rebuilds++
	return nil
}

func (l *Loop) rebuildAfter(stage string, status gpu.Status) error {
	l.log.WithFields(logrus.Fields{
		"stage":  stage,
		"status": status,
		"frame":  l.stats.Frames,
	}).Debug("swapchain no longer matches surface, rebuilding")
	return l.Rebuild()
}

// Frame renders one frame in the current slot. It reports false when the
// swapchain had to be rebuilt before anything was submitted.
func (l *Loop) Frame() (bool, error) {
	if l.stale {
		err := l.Rebuild()
		if err != nil {
			return false, err
		}
	}

	slot := l.slots[l.current]

	err := l.dev.WaitForFence(slot.InFlight)
	if err != nil {
		return false, errors.Wrapf(err, "wait for slot %d", l.current)
	}
	l.pending[l.current] = 0

	imageIndex, status, err := l.dev.AcquireNextImage(l.state.Swapchain, slot.ImageAvailable)
	if err != nil {
		return false, errors.Wrap(err, "acquire next image")
	}
	if status == gpu.StatusOutOfDate {
		return false, l.rebuildAfter("acquire", status)
	}

	// Command buffers belong to images, not slots, so the image may still
	// be in use by another slot's submission.
	err = l.waitForImage(imageIndex)
	if err != nil {
		return false, err
	}

	err = l.dev.ResetFence(slot.InFlight)
	if err != nil {
		return false, errors.Wrapf(err, "reset slot %d", l.current)
	}

	err = l.dev.Submit(gpu.SubmitInfo{
		WaitSemaphore:   slot.ImageAvailable,
		WaitStage:       core1_0.PipelineStageColorAttachmentOutput,
		CommandBuffer:   l.state.CommandBuffers[imageIndex],
		SignalSemaphore: slot.RenderFinished,
		Fence:           slot.InFlight,
	})
	if err != nil {
		return false, errors.Wrapf(err, "submit image %d", imageIndex)
	}
	l.serial++
	l.pending[l.current] = l.serial
	l.images[imageIndex] = imageUse{slot: l.current, serial: l.serial}

	status, err = l.dev.Present(gpu.PresentInfo{
		WaitSemaphore: slot.RenderFinished,
		Swapchain:     l.state.Swapchain,
		ImageIndex:    imageIndex,
	})
	if err != nil {
		return false, errors.Wrapf(err, "present image %d", imageIndex)
	}

	l.current = (l.current + 1) % len(l.slots)
	l.stats.Frames++
	l.statsFrames++
	l.logFrameRate()

	if status != gpu.StatusSuccess {
		return true, l.rebuildAfter("present", status)
	}

	return true, nil
}

func (l *Loop) logFrameRate() {
	if l.statsInterval <= 0 {
		return
	}

	elapsed := hrtime.Since(l.statsStart)
	if elapsed < l.statsInterval {
		return
	}

	l.log.WithFields(logrus.Fields{
		"fps":      float64(l.statsFrames) / elapsed.Seconds(),
		"frames":   l.stats.Frames,
		"rebuilds": l.stats.Rebuilds,
	}).Info("frame rate")

	l.statsStart = hrtime.Now()
	l.statsFrames = 0
}

// Run renders until the window asks to quit, then waits for the device to
// finish all submitted work.
func (l *Loop) Run() error {
	for {
		events := l.window.PollEvents()
		if events.Quit {
			break
		}
		if events.Resized {
			l.Invalidate()
		}

		width, height := l.window.DrawableSize()
		if width == 0 || height == 0 {
			l.stats.Skipped++
			time.Sleep(minimizedDelay)
			continue
		}

		_, err := l.Frame()
		if err != nil {
			return err
		}
	}

	l.log.WithField("frames", l.stats.Frames).Info("frame loop exited")
	return l.dev.WaitIdle()
}

// Close waits for the device to go idle and destroys the swapchain state and
// the slot ring. It is safe to call more than once.
func (l *Loop) Close() error {
	if l.state == nil && len(l.slots) == 0 {
		return nil
	}

	err := l.dev.WaitIdle()
	if destroyErr := l.state.Destroy(l.dev); err == nil {
		err = destroyErr
	}
	l.state = nil
	l.destroySlots()
	return err
}
