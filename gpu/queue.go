package gpu

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
)

// QueueFamily is the part of a queue family's properties the selector looks
// at. Present reports whether the family can present to the window surface.
type QueueFamily struct {
	Flags   core1_0.QueueFlags
	Present bool
}

// QueueFamilies holds indices into a physical device's queue family list.
type QueueFamilies struct {
	Graphics int
	Transfer int
	Present  int
}

// FindQueueFamilies picks the first family with graphics support, the first
// with transfer support and the first able to present.
func FindQueueFamilies(families []QueueFamily) (QueueFamilies, error) {
	indices := QueueFamilies{Graphics: -1, Transfer: -1, Present: -1}

	for idx, family := range families {
		if indices.Graphics < 0 && family.Flags&core1_0.QueueGraphics == core1_0.QueueGraphics {
			indices.Graphics = idx
		}
		if indices.Transfer < 0 && family.Flags&core1_0.QueueTransfer == core1_0.QueueTransfer {
			indices.Transfer = idx
		}
		if indices.Present < 0 && family.Present {
			indices.Present = idx
		}
	}

	switch {
	case indices.Graphics < 0:
		return indices, errors.Wrap(ErrMissingQueueFamily, "graphics")
	case indices.Transfer < 0:
		return indices, errors.Wrap(ErrMissingQueueFamily, "transfer")
	case indices.Present < 0:
		return indices, errors.Wrap(ErrMissingQueueFamily, "present")
	}

	return indices, nil
}

// Unique returns the distinct family indices in graphics, transfer, present
// order, one per queue that has to be created.
func (f QueueFamilies) Unique() []int {
	unique := []int{f.Graphics}
	for _, idx := range []int{f.Transfer, f.Present} {
		seen := false
		for _, u := range unique {
			if u == idx {
				seen = true
				break
			}
		}
		if !seen {
			unique = append(unique, idx)
		}
	}
	return unique
}

// SharingMode is how swapchain images are shared between the graphics and
// present queues.
func (f QueueFamilies) SharingMode() (core1_0.SharingMode, []int) {
	if f.Graphics == f.Present {
		return core1_0.SharingModeExclusive, nil
	}
	return core1_0.SharingModeConcurrent, []int{f.Graphics, f.Present}
}
