package gpu

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
)

var required = []string{khr_swapchain.ExtensionName}

func candidate(index int, devType core1_0.PhysicalDeviceType) Candidate {
	return Candidate{
		Index: index,
		Name:  "gpu",
		Type:  devType,
		QueueFamilies: []QueueFamily{
			{Flags: core1_0.QueueGraphics | core1_0.QueueTransfer, Present: true},
		},
		Extensions: map[string]struct{}{khr_swapchain.ExtensionName: {}},
		Capabilities: &khr_surface.SurfaceCapabilities{
			MinImageCount: 2,
			MaxImageCount: 3,
		},
		Formats: []khr_surface.SurfaceFormat{
			{Format: core1_0.FormatB8G8R8A8UnsignedNormalized, ColorSpace: khr_surface.ColorSpaceSRGBNonlinear},
		},
		PresentModes: []khr_surface.PresentMode{khr_surface.PresentModeFIFO},
	}
}

func TestSelectDevicePrefersDiscrete(t *testing.T) {
	candidates := []Candidate{
		candidate(0, core1_0.PhysicalDeviceTypeIntegratedGPU),
		candidate(1, core1_0.PhysicalDeviceTypeDiscreteGPU),
		candidate(2, core1_0.PhysicalDeviceTypeDiscreteGPU),
	}

	chosen, err := SelectDevice(candidates, required)
	if err != nil {
		t.Fatalf("SelectDevice: %v", err)
	}
	if chosen.Index != 1 {
		t.Errorf("SelectDevice: chosen.Index\nhave %d\nwant 1", chosen.Index)
	}
}

func TestSelectDeviceFirstQualifying(t *testing.T) {
	noPresent := candidate(0, core1_0.PhysicalDeviceTypeDiscreteGPU)
	noPresent.QueueFamilies[0].Present = false

	candidates := []Candidate{
		noPresent,
		candidate(1, core1_0.PhysicalDeviceTypeIntegratedGPU),
		candidate(2, core1_0.PhysicalDeviceTypeVirtualGPU),
	}

	chosen, err := SelectDevice(candidates, required)
	if err != nil {
		t.Fatalf("SelectDevice: %v", err)
	}
	if chosen.Index != 1 {
		t.Errorf("SelectDevice: chosen.Index\nhave %d\nwant 1", chosen.Index)
	}
}

func TestSelectDeviceNoneSuitable(t *testing.T) {
	noPresent := candidate(0, core1_0.PhysicalDeviceTypeDiscreteGPU)
	noPresent.QueueFamilies[0].Present = false

	noExtension := candidate(1, core1_0.PhysicalDeviceTypeDiscreteGPU)
	noExtension.Extensions = map[string]struct{}{}

	noFormats := candidate(2, core1_0.PhysicalDeviceTypeDiscreteGPU)
	noFormats.Formats = nil

	noModes := candidate(3, core1_0.PhysicalDeviceTypeDiscreteGPU)
	noModes.PresentModes = nil

	chosen, err := SelectDevice([]Candidate{noPresent, noExtension, noFormats, noModes}, required)
	if chosen != nil {
		t.Errorf("SelectDevice: chosen\nhave %v\nwant nil", chosen)
	}

	var noDevice *NoSuitableDeviceError
	if !errors.As(err, &noDevice) {
		t.Fatalf("SelectDevice: err\nhave %v\nwant *NoSuitableDeviceError", err)
	}
	if len(noDevice.Rejections) != 4 {
		t.Errorf("len(Rejections)\nhave %d\nwant 4", len(noDevice.Rejections))
	}
}

func TestSelectDeviceEmpty(t *testing.T) {
	_, err := SelectDevice(nil, required)
	var noDevice *NoSuitableDeviceError
	if !errors.As(err, &noDevice) {
		t.Fatalf("SelectDevice(nil): err\nhave %v\nwant *NoSuitableDeviceError", err)
	}
}

func TestFindQueueFamilies(t *testing.T) {
	for _, tc := range []struct {
		name     string
		families []QueueFamily
		want     QueueFamilies
	}{
		{
			name: "single family",
			families: []QueueFamily{
				{Flags: core1_0.QueueGraphics | core1_0.QueueTransfer, Present: true},
			},
			want: QueueFamilies{Graphics: 0, Transfer: 0, Present: 0},
		},
		{
			name: "split families",
			families: []QueueFamily{
				{Flags: core1_0.QueueCompute},
				{Flags: core1_0.QueueGraphics | core1_0.QueueTransfer},
				{Flags: core1_0.QueueTransfer, Present: true},
			},
			want: QueueFamilies{Graphics: 1, Transfer: 1, Present: 2},
		},
	} {
		have, err := FindQueueFamilies(tc.families)
		if err != nil {
			t.Errorf("%s: FindQueueFamilies: %v", tc.name, err)
			continue
		}
		if have != tc.want {
			t.Errorf("%s: FindQueueFamilies\nhave %+v\nwant %+v", tc.name, have, tc.want)
		}
	}
}

func TestFindQueueFamiliesMissing(t *testing.T) {
	_, err := FindQueueFamilies([]QueueFamily{{Flags: core1_0.QueueGraphics | core1_0.QueueTransfer}})
	if !errors.Is(err, ErrMissingQueueFamily) {
		t.Errorf("FindQueueFamilies: err\nhave %v\nwant ErrMissingQueueFamily", err)
	}
}

func TestQueueFamiliesSharing(t *testing.T) {
	same := QueueFamilies{Graphics: 0, Transfer: 1, Present: 0}
	mode, indices := same.SharingMode()
	if mode != core1_0.SharingModeExclusive || indices != nil {
		t.Errorf("SharingMode\nhave %v %v\nwant exclusive, no indices", mode, indices)
	}
	if u := same.Unique(); len(u) != 2 || u[0] != 0 || u[1] != 1 {
		t.Errorf("Unique\nhave %v\nwant [0 1]", u)
	}

	split := QueueFamilies{Graphics: 0, Transfer: 0, Present: 2}
	mode, indices = split.SharingMode()
	if mode != core1_0.SharingModeConcurrent || len(indices) != 2 || indices[0] != 0 || indices[1] != 2 {
		t.Errorf("SharingMode\nhave %v %v\nwant concurrent [0 2]", mode, indices)
	}
}

func TestFindMemoryType(t *testing.T) {
	types := []core1_0.MemoryType{
		{PropertyFlags: core1_0.MemoryPropertyDeviceLocal},
		{PropertyFlags: core1_0.MemoryPropertyHostVisible},
		{PropertyFlags: core1_0.MemoryPropertyHostVisible | core1_0.MemoryPropertyHostCoherent},
	}
	hostCoherent := core1_0.MemoryPropertyHostVisible | core1_0.MemoryPropertyHostCoherent

	idx, err := FindMemoryType(types, 0b111, hostCoherent)
	if err != nil || idx != 2 {
		t.Errorf("FindMemoryType(0b111)\nhave %d, %v\nwant 2, nil", idx, err)
	}

	idx, err = FindMemoryType(types, 0b111, core1_0.MemoryPropertyDeviceLocal)
	if err != nil || idx != 0 {
		t.Errorf("FindMemoryType(device local)\nhave %d, %v\nwant 0, nil", idx, err)
	}

	if _, err = FindMemoryType(types, 0b011, hostCoherent); err == nil {
		t.Error("FindMemoryType(0b011): want error")
	}
}
