package gpu

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrMissingQueueFamily is returned when a physical device lacks a queue
// family the renderer needs.
var ErrMissingQueueFamily = errors.New("gpu: missing queue family")

// Rejection records why one candidate did not qualify.
type Rejection struct {
	Candidate string
	Reason    string
}

// NoSuitableDeviceError is returned when no physical device can drive the
// surface.
type NoSuitableDeviceError struct {
	Required   []string
	Rejections []Rejection
}

func (e *NoSuitableDeviceError) Error() string {
	if len(e.Rejections) == 0 {
		return "gpu: no suitable device: no physical devices available"
	}

	reasons := make([]string, 0, len(e.Rejections))
	for _, r := range e.Rejections {
		reasons = append(reasons, fmt.Sprintf("%s: %s", r.Candidate, r.Reason))
	}
	return "gpu: no suitable device: " + strings.Join(reasons, "; ")
}
