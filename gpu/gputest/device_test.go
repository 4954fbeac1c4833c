package gputest

import (
	"strings"
	"testing"

	"github.com/vkngwrapper/bitmap/gpu"
)

func recordedBuffer(t *testing.T, dev *Device) gpu.CommandBuffer {
	t.Helper()
	buffers, err := dev.AllocateCommandBuffers(1)
	if err != nil {
		t.Fatalf("AllocateCommandBuffers: %v", err)
	}
	if err := dev.RecordDraw(buffers[0], gpu.DrawInfo{}); err != nil {
		t.Fatalf("RecordDraw: %v", err)
	}
	return buffers[0]
}

func newFence(t *testing.T, dev *Device) gpu.Fence {
	t.Helper()
	fence, err := dev.CreateFence(false)
	if err != nil {
		t.Fatalf("CreateFence: %v", err)
	}
	return fence
}

func TestSubmitPendingCommandBuffer(t *testing.T) {
	dev := NewDevice()
	buffer := recordedBuffer(t, dev)
	first, second := newFence(t, dev), newFence(t, dev)

	if err := dev.Submit(gpu.SubmitInfo{CommandBuffer: buffer, Fence: first}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := dev.Submit(gpu.SubmitInfo{CommandBuffer: buffer, Fence: second}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	// The draw info records a dead framebuffer, so only look for the
	// resubmission.
	found := false
	for _, v := range dev.Violations {
		if strings.Contains(v, "still pending") {
			found = true
		}
	}
	if !found {
		t.Errorf("Violations\nhave %v\nwant resubmission of a pending command buffer", dev.Violations)
	}
}

func TestSubmitAfterWait(t *testing.T) {
	dev := NewDevice()
	buffer := recordedBuffer(t, dev)
	first, second := newFence(t, dev), newFence(t, dev)

	if err := dev.Submit(gpu.SubmitInfo{CommandBuffer: buffer, Fence: first}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := dev.WaitForFence(first); err != nil {
		t.Fatalf("WaitForFence: %v", err)
	}
	if err := dev.Submit(gpu.SubmitInfo{CommandBuffer: buffer, Fence: second}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	for _, v := range dev.Violations {
		if strings.Contains(v, "still pending") {
			t.Errorf("unexpected violation: %s", v)
		}
	}
}
