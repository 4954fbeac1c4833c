package gpu

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
)

// Candidate is a physical device together with everything selection needs
// to know about it. Index is its position in enumeration order.
type Candidate struct {
	Index     int
	Name      string
	Type      core1_0.PhysicalDeviceType
	CacheUUID uuid.UUID

	QueueFamilies []QueueFamily
	Extensions    map[string]struct{}

	Capabilities *khr_surface.SurfaceCapabilities
	Formats      []khr_surface.SurfaceFormat
	PresentModes []khr_surface.PresentMode
}

func (c *Candidate) String() string {
	if c.Name == "" {
		return fmt.Sprintf("device %d", c.Index)
	}
	return fmt.Sprintf("%s (device %d)", c.Name, c.Index)
}

// Discrete reports whether the candidate is a discrete GPU.
func (c *Candidate) Discrete() bool {
	return c.Type == core1_0.PhysicalDeviceTypeDiscreteGPU
}

// unsuitable returns why c cannot drive the surface, or "" if it can.
func (c *Candidate) unsuitable(required []string) string {
	canPresent := false
	for _, family := range c.QueueFamilies {
		if family.Present {
			canPresent = true
			break
		}
	}
	if !canPresent {
		return "no queue family can present to the surface"
	}

	var missing []string
	for _, ext := range required {
		if _, ok := c.Extensions[ext]; !ok {
			missing = append(missing, ext)
		}
	}
	if len(missing) > 0 {
		return "missing extensions " + strings.Join(missing, ", ")
	}

	if len(c.Formats) == 0 || len(c.PresentModes) == 0 {
		return "no surface formats or present modes"
	}

	return ""
}

// SelectDevice returns the candidate to render with. A discrete GPU is
// preferred, otherwise the first qualifying candidate in order wins.
func SelectDevice(candidates []Candidate, required []string) (*Candidate, error) {
	var chosen *Candidate
	var rejections []Rejection

	for i := range candidates {
		candidate := &candidates[i]
		if reason := candidate.unsuitable(required); reason != "" {
			rejections = append(rejections, Rejection{Candidate: candidate.String(), Reason: reason})
			continue
		}

		if candidate.Discrete() {
			return candidate, nil
		}
		if chosen == nil {
			chosen = candidate
		}
	}

	if chosen == nil {
		return nil, &NoSuitableDeviceError{Required: required, Rejections: rejections}
	}
	return chosen, nil
}
