package swapchain

import (
	"testing"

	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
)

func TestChooseImageCount(t *testing.T) {
	for _, tc := range []struct {
		min, max int
		want     int
	}{
		{2, 2, 2},
		{3, 3, 3},
		{2, 3, 3},
		{2, 8, 3},
		{1, 0, 2},
		{3, 0, 4},
	} {
		caps := &khr_surface.SurfaceCapabilities{MinImageCount: tc.min, MaxImageCount: tc.max}
		if have := ChooseImageCount(caps); have != tc.want {
			t.Errorf("ChooseImageCount(min %d, max %d)\nhave %d\nwant %d", tc.min, tc.max, have, tc.want)
		}
	}
}

func TestChooseSurfaceFormat(t *testing.T) {
	srgb := khr_surface.SurfaceFormat{Format: core1_0.FormatB8G8R8A8SRGB, ColorSpace: khr_surface.ColorSpaceSRGBNonlinear}
	rgba := khr_surface.SurfaceFormat{Format: core1_0.FormatR8G8B8A8UnsignedNormalized, ColorSpace: khr_surface.ColorSpaceSRGBNonlinear}
	undefined := khr_surface.SurfaceFormat{Format: core1_0.FormatUndefined, ColorSpace: khr_surface.ColorSpaceSRGBNonlinear}

	for _, tc := range []struct {
		name    string
		formats []khr_surface.SurfaceFormat
		want    khr_surface.SurfaceFormat
	}{
		{"preferred listed last", []khr_surface.SurfaceFormat{srgb, rgba, PreferredFormat}, PreferredFormat},
		{"preferred only", []khr_surface.SurfaceFormat{PreferredFormat}, PreferredFormat},
		{"any format", []khr_surface.SurfaceFormat{undefined}, PreferredFormat},
		{"fallback to first", []khr_surface.SurfaceFormat{rgba, srgb}, rgba},
		{"empty", nil, PreferredFormat},
	} {
		if have := ChooseSurfaceFormat(tc.formats); have != tc.want {
			t.Errorf("%s: ChooseSurfaceFormat\nhave %+v\nwant %+v", tc.name, have, tc.want)
		}
	}
}

func TestChoosePresentMode(t *testing.T) {
	modes := []khr_surface.PresentMode{khr_surface.PresentModeMailbox, khr_surface.PresentModeImmediate, khr_surface.PresentModeFIFO}
	if have := ChoosePresentMode(modes); have != khr_surface.PresentModeFIFO {
		t.Errorf("ChoosePresentMode\nhave %v\nwant FIFO", have)
	}
}

func TestChooseExtent(t *testing.T) {
	bounds := func(current core1_0.Extent2D) *khr_surface.SurfaceCapabilities {
		return &khr_surface.SurfaceCapabilities{
			CurrentExtent:  current,
			MinImageExtent: core1_0.Extent2D{Width: 64, Height: 32},
			MaxImageExtent: core1_0.Extent2D{Width: 2048, Height: 1024},
		}
	}
	undefined := core1_0.Extent2D{Width: -1, Height: -1}

	for _, tc := range []struct {
		name          string
		caps          *khr_surface.SurfaceCapabilities
		width, height int
		want          core1_0.Extent2D
	}{
		{"defined extent wins", bounds(core1_0.Extent2D{Width: 800, Height: 600}), 512, 512, core1_0.Extent2D{Width: 800, Height: 600}},
		{"window inside bounds", bounds(undefined), 512, 512, core1_0.Extent2D{Width: 512, Height: 512}},
		{"window too small", bounds(undefined), 10, 10, core1_0.Extent2D{Width: 64, Height: 32}},
		{"window too large", bounds(undefined), 4000, 4000, core1_0.Extent2D{Width: 2048, Height: 1024}},
		{"mixed", bounds(undefined), 10, 4000, core1_0.Extent2D{Width: 64, Height: 1024}},
	} {
		if have := ChooseExtent(tc.caps, tc.width, tc.height); have != tc.want {
			t.Errorf("%s: ChooseExtent(%d, %d)\nhave %+v\nwant %+v", tc.name, tc.width, tc.height, have, tc.want)
		}
	}
}
