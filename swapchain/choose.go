package swapchain

import (
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
)

// PreferredFormat is used whenever the surface lists it or accepts any format.
var PreferredFormat = khr_surface.SurfaceFormat{
	Format:     core1_0.FormatB8G8R8A8UnsignedNormalized,
	ColorSpace: khr_surface.ColorSpaceSRGBNonlinear,
}

// undefinedExtent is the CurrentExtent width reported when the surface size
// is determined by the swapchain.
const undefinedExtent = -1

// ChooseImageCount asks for one image more than the minimum, unless the
// surface pins the count.
func ChooseImageCount(capabilities *khr_surface.SurfaceCapabilities) int {
	if capabilities.MinImageCount == capabilities.MaxImageCount {
		return capabilities.MaxImageCount
	}
	return capabilities.MinImageCount + 1
}

func ChooseSurfaceFormat(formats []khr_surface.SurfaceFormat) khr_surface.SurfaceFormat {
	if len(formats) == 0 {
		return PreferredFormat
	}

	// The surface can use any format.
	if len(formats) == 1 && formats[0].Format == core1_0.FormatUndefined {
		return PreferredFormat
	}

	for _, format := range formats {
		if format == PreferredFormat {
			return format
		}
	}

	return formats[0]
}

// ChoosePresentMode always picks FIFO, which every surface supports.
func ChoosePresentMode(modes []khr_surface.PresentMode) khr_surface.PresentMode {
	return khr_surface.PresentModeFIFO
}

func ChooseExtent(capabilities *khr_surface.SurfaceCapabilities, width, height int) core1_0.Extent2D {
	if capabilities.CurrentExtent.Width != undefinedExtent {
		return capabilities.CurrentExtent
	}

	if width < capabilities.MinImageExtent.Width {
		width = capabilities.MinImageExtent.Width
	}
	if width > capabilities.MaxImageExtent.Width {
		width = capabilities.MaxImageExtent.Width
	}
	if height < capabilities.MinImageExtent.Height {
		height = capabilities.MinImageExtent.Height
	}
	if height > capabilities.MaxImageExtent.Height {
		height = capabilities.MaxImageExtent.Height
	}

	return core1_0.Extent2D{Width: width, Height: height}
}
