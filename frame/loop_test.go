package frame

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/vkngwrapper/bitmap/gpu"
	"github.com/vkngwrapper/bitmap/gpu/gputest"
	"github.com/vkngwrapper/bitmap/swapchain"
)

type fakeWindow struct {
	width, height int
	quitAfter     int
	resizeAt      map[int]bool
	polls         int
}

func (w *fakeWindow) DrawableSize() (int, int) { return w.width, w.height }

func (w *fakeWindow) PollEvents() Events {
	w.polls++
	return Events{
		Quit:    w.polls > w.quitAfter,
		Resized: w.resizeAt[w.polls],
	}
}

func newLoop(t *testing.T, dev *gputest.Device, window *fakeWindow, framesInFlight int) (*Loop, *test.Hook) {
	t.Helper()

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	builder, err := swapchain.NewBuilder(dev, window, swapchain.Options{})
	if err != nil {
		t.Fatalf("swapchain.NewBuilder: %v", err)
	}

	loop, err := New(dev, window, builder, Options{FramesInFlight: framesInFlight, Logger: logger})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return loop, hook
}

// slotOf maps a submitted fence back to the index of the slot owning it.
func slotOf(t *testing.T, loop *Loop, fence gpu.Fence) int {
	t.Helper()
	for i, slot := range loop.Slots() {
		if slot.InFlight == fence {
			return i
		}
	}
	t.Fatalf("fence %d belongs to no slot", fence)
	return -1
}

func checkClean(t *testing.T, dev *gputest.Device) {
	t.Helper()
	if len(dev.Violations) > 0 {
		t.Errorf("violations:\n%v", dev.Violations)
	}
	if dev.MaxOutstanding > 1 {
		t.Errorf("MaxOutstanding\nhave %d\nwant <= 1", dev.MaxOutstanding)
	}
}

func TestFramesEndToEnd(t *testing.T) {
	const frames = 9

	dev := gputest.NewDevice()
	window := &fakeWindow{width: 512, height: 512, quitAfter: frames}
	loop, _ := newLoop(t, dev, window, DefaultFramesInFlight)

	if err := loop.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if dev.FenceWaits != frames || dev.Submits != frames || dev.Presents != frames {
		t.Errorf("fence waits/submits/presents\nhave %d/%d/%d\nwant %d/%d/%d",
			dev.FenceWaits, dev.Submits, dev.Presents, frames, frames, frames)
	}
	if loop.Stats().Frames != frames || loop.Stats().Rebuilds != 0 {
		t.Errorf("Stats\nhave %+v\nwant %d frames, no rebuilds", loop.Stats(), frames)
	}

	for i, fence := range dev.SubmittedFences {
		if have, want := slotOf(t, loop, fence), i%2; have != want {
			t.Errorf("submission %d slot\nhave %d\nwant %d", i, have, want)
		}
	}

	checkClean(t, dev)

	if err := loop.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if dev.LiveTotal() != 0 {
		t.Errorf("LiveTotal after Close\nhave %d\nwant 0", dev.LiveTotal())
	}
	checkClean(t, dev)
}

// pinImageCount makes the mock surface report exactly count images.
func pinImageCount(dev *gputest.Device, count int) {
	caps := *dev.Support.Capabilities
	caps.MinImageCount, caps.MaxImageCount = count, count
	dev.Support.Capabilities = &caps
}

func TestFenceDiscipline(t *testing.T) {
	for _, tc := range []struct {
		framesInFlight int
		images         int
	}{
		{1, 3},
		{2, 3},
		{3, 3},
		{3, 2},
		{4, 2},
		{8, 3},
		{2, 1},
	} {
		dev := gputest.NewDevice()
		pinImageCount(dev, tc.images)
		loop, _ := newLoop(t, dev, &fakeWindow{width: 512, height: 512}, tc.framesInFlight)

		if len(loop.State().Images) != tc.images {
			t.Fatalf("%d images: swapchain has %d", tc.images, len(loop.State().Images))
		}

		for i := 0; i < 20; i++ {
			if _, err := loop.Frame(); err != nil {
				t.Fatalf("%d in flight, %d images: Frame %d: %v", tc.framesInFlight, tc.images, i, err)
			}
			if have, want := loop.Current(), (i+1)%tc.framesInFlight; have != want {
				t.Errorf("%d in flight, %d images: Current after frame %d\nhave %d\nwant %d", tc.framesInFlight, tc.images, i, have, want)
			}
		}

		if len(loop.Slots()) != tc.framesInFlight {
			t.Errorf("len(Slots)\nhave %d\nwant %d", len(loop.Slots()), tc.framesInFlight)
		}
		if tc.framesInFlight <= tc.images && dev.FenceWaits != 20 {
			t.Errorf("%d in flight, %d images: FenceWaits\nhave %d\nwant 20", tc.framesInFlight, tc.images, dev.FenceWaits)
		}
		if tc.framesInFlight > tc.images && dev.FenceWaits <= 20 {
			t.Errorf("%d in flight, %d images: FenceWaits\nhave %d\nwant more than one per frame", tc.framesInFlight, tc.images, dev.FenceWaits)
		}
		checkClean(t, dev)
	}
}

func TestImageReuseAcrossRebuild(t *testing.T) {
	dev := gputest.NewDevice()
	pinImageCount(dev, 2)
	loop, _ := newLoop(t, dev, &fakeWindow{width: 512, height: 512}, 3)

	for i := 0; i < 4; i++ {
		if _, err := loop.Frame(); err != nil {
			t.Fatalf("Frame %d: %v", i, err)
		}
	}

	loop.Invalidate()
	waits := dev.FenceWaits
	for i := 0; i < 2; i++ {
		if _, err := loop.Frame(); err != nil {
			t.Fatalf("Frame %d after rebuild: %v", i, err)
		}
	}
	// The rebuild went idle, so the first two frames only wait on their slots.
	if have := dev.FenceWaits - waits; have != 2 {
		t.Errorf("FenceWaits after rebuild\nhave %d\nwant 2", have)
	}
	if loop.Stats().Rebuilds != 1 {
		t.Errorf("Rebuilds\nhave %d\nwant 1", loop.Stats().Rebuilds)
	}
	checkClean(t, dev)
}

func TestAcquireOutOfDate(t *testing.T) {
	dev := gputest.NewDevice()
	loop, hook := newLoop(t, dev, &fakeWindow{width: 512, height: 512}, DefaultFramesInFlight)
	dev.AcquireResults = []gpu.Status{gpu.StatusSuccess, gpu.StatusOutOfDate}

	presented, err := loop.Frame()
	if err != nil || !presented {
		t.Fatalf("first Frame\nhave %v, %v\nwant true, nil", presented, err)
	}

	oldSwapchain := loop.State().Swapchain
	presented, err = loop.Frame()
	if err != nil || presented {
		t.Fatalf("out of date Frame\nhave %v, %v\nwant false, nil", presented, err)
	}
	if dev.Submits != 1 {
		t.Errorf("Submits after out of date acquire\nhave %d\nwant 1", dev.Submits)
	}
	if loop.Current() != 1 {
		t.Errorf("Current after out of date acquire\nhave %d\nwant 1", loop.Current())
	}
	if loop.State().Swapchain == oldSwapchain {
		t.Errorf("swapchain was not rebuilt")
	}

	presented, err = loop.Frame()
	if err != nil || !presented {
		t.Fatalf("Frame after rebuild\nhave %v, %v\nwant true, nil", presented, err)
	}
	if slotOf(t, loop, dev.SubmittedFences[1]) != 1 {
		t.Errorf("frame after rebuild did not reuse slot 1")
	}

	if loop.Stats().Rebuilds != 1 {
		t.Errorf("Rebuilds\nhave %d\nwant 1", loop.Stats().Rebuilds)
	}
	entry := hook.LastEntry()
	if entry == nil || entry.Data["stage"] != "acquire" {
		t.Errorf("rebuild log entry\nhave %v\nwant stage=acquire", entry)
	}
	checkClean(t, dev)
}

func TestAcquireSuboptimalTolerated(t *testing.T) {
	dev := gputest.NewDevice()
	loop, _ := newLoop(t, dev, &fakeWindow{width: 512, height: 512}, DefaultFramesInFlight)
	dev.AcquireResults = []gpu.Status{gpu.StatusSuboptimal, gpu.StatusSuboptimal}

	for i := 0; i < 2; i++ {
		if _, err := loop.Frame(); err != nil {
			t.Fatalf("Frame: %v", err)
		}
	}
	if dev.Presents != 2 || loop.Stats().Rebuilds != 0 {
		t.Errorf("presents/rebuilds\nhave %d/%d\nwant 2/0", dev.Presents, loop.Stats().Rebuilds)
	}
	checkClean(t, dev)
}

func TestPresentRebuildsTwice(t *testing.T) {
	dev := gputest.NewDevice()
	loop, _ := newLoop(t, dev, &fakeWindow{width: 512, height: 512}, DefaultFramesInFlight)
	dev.PresentResults = []gpu.Status{gpu.StatusSuboptimal, gpu.StatusOutOfDate}

	for i := 0; i < 4; i++ {
		presented, err := loop.Frame()
		if err != nil || !presented {
			t.Fatalf("Frame %d\nhave %v, %v\nwant true, nil", i, presented, err)
		}
	}

	if loop.Stats().Rebuilds != 2 {
		t.Errorf("Rebuilds\nhave %d\nwant 2", loop.Stats().Rebuilds)
	}
	if dev.Presents != 4 || dev.Submits != 4 {
		t.Errorf("presents/submits\nhave %d/%d\nwant 4/4", dev.Presents, dev.Submits)
	}

	state := loop.State()
	for kind, want := range map[gputest.Kind]int{
		gputest.KindSwapchain:     1,
		gputest.KindFramebuffer:   len(state.Images),
		gputest.KindCommandBuffer: len(state.Images),
		gputest.KindImageView:     len(state.Images),
		gputest.KindPipeline:      1,
		gputest.KindFence:         DefaultFramesInFlight,
		gputest.KindSemaphore:     2 * DefaultFramesInFlight,
	} {
		if have := dev.Live(kind); have != want {
			t.Errorf("live %s\nhave %d\nwant %d", kind, have, want)
		}
	}
	checkClean(t, dev)
}

func TestRunResizeAndMinimize(t *testing.T) {
	dev := gputest.NewDevice()
	window := &fakeWindow{width: 512, height: 512, quitAfter: 4, resizeAt: map[int]bool{2: true}}
	loop, _ := newLoop(t, dev, window, DefaultFramesInFlight)

	if err := loop.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if loop.Stats().Rebuilds != 1 || loop.Stats().Frames != 4 {
		t.Errorf("Stats\nhave %+v\nwant 4 frames, 1 rebuild", loop.Stats())
	}

	window.width, window.height = 0, 0
	window.polls = 0
	window.quitAfter = 3
	submits := dev.Submits
	if err := loop.Run(); err != nil {
		t.Fatalf("Run minimized: %v", err)
	}
	if loop.Stats().Skipped != 3 || dev.Submits != submits {
		t.Errorf("minimized\nhave %d skipped, %d new submits\nwant 3 skipped, 0 submits", loop.Stats().Skipped, dev.Submits-submits)
	}

	if err := loop.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := loop.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if dev.LiveTotal() != 0 {
		t.Errorf("LiveTotal after Close\nhave %d\nwant 0", dev.LiveTotal())
	}
	checkClean(t, dev)
}

func TestNewCleansUpOnFailure(t *testing.T) {
	for _, kind := range []gputest.Kind{gputest.KindSemaphore, gputest.KindFence, gputest.KindPipeline} {
		dev := gputest.NewDevice()
		dev.FailCreate = kind
		window := &fakeWindow{width: 512, height: 512}

		builder, err := swapchain.NewBuilder(dev, window, swapchain.Options{})
		if err != nil {
			t.Fatalf("swapchain.NewBuilder: %v", err)
		}
		if _, err := New(dev, window, builder, Options{}); err == nil {
			t.Errorf("%s: New: want error", kind)
		}
		if dev.LiveTotal() != 0 {
			t.Errorf("%s: LiveTotal\nhave %d\nwant 0", kind, dev.LiveTotal())
		}
	}
}
