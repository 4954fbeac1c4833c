package vulkan

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/bitmap/gpu"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
)

func TestSwapchainStatus(t *testing.T) {
	failure := errors.New("device lost")

	for _, tc := range []struct {
		name    string
		res     common.VkResult
		err     error
		want    gpu.Status
		wantErr bool
	}{
		{"success", core1_0.VKSuccess, nil, gpu.StatusSuccess, false},
		{"suboptimal", khr_swapchain.VKSuboptimal, nil, gpu.StatusSuboptimal, false},
		{"out of date", khr_swapchain.VKErrorOutOfDate, failure, gpu.StatusOutOfDate, false},
		{"failure", core1_0.VKErrorDeviceLost, failure, gpu.StatusSuccess, true},
	} {
		have, err := swapchainStatus(tc.res, tc.err)
		if have != tc.want || (err != nil) != tc.wantErr {
			t.Errorf("%s: swapchainStatus\nhave %v, %v\nwant %v, error %v", tc.name, have, err, tc.want, tc.wantErr)
		}
	}
}
