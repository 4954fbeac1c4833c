package bitmap

import (
	"bytes"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/bitmap/gpu"
	"github.com/vkngwrapper/bitmap/gpu/gputest"
	"github.com/vkngwrapper/core/v3/core1_0"
)

func TestGray(t *testing.T) {
	bmp := Gray(3, 2, 128)
	if bmp.Width != 3 || bmp.Height != 2 || bmp.Size() != 24 {
		t.Fatalf("Gray(3, 2)\nhave %dx%d, %d bytes\nwant 3x2, 24 bytes", bmp.Width, bmp.Height, bmp.Size())
	}
	for i := 0; i < bmp.Size(); i += 4 {
		if have, want := bmp.Pixels[i:i+4], []byte{128, 128, 128, 255}; !bytes.Equal(have, want) {
			t.Fatalf("pixel %d\nhave %v\nwant %v", i/4, have, want)
		}
	}
}

func TestUpload(t *testing.T) {
	dev := gputest.NewDevice()
	bmp := Gray(DefaultWidth, DefaultHeight, DefaultLevel)

	texture, err := Upload(dev, bmp, gpu.QueueTransfer)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	staging := dev.BufferInfos[texture.Staging]
	if staging.Size != DefaultWidth*DefaultHeight*4 || staging.Usage != core1_0.BufferUsageTransferSrc {
		t.Errorf("staging buffer\nhave %+v\nwant %d bytes, transfer src", staging, DefaultWidth*DefaultHeight*4)
	}
	if staging.Properties&core1_0.MemoryPropertyHostVisible == 0 {
		t.Errorf("staging buffer is not host visible")
	}
	if !bytes.Equal(dev.Contents[texture.Staging], bmp.Pixels) {
		t.Errorf("staging buffer does not hold the bitmap")
	}

	image := dev.ImageInfos[0]
	if image.Format != Format || image.Width != DefaultWidth || image.Height != DefaultHeight {
		t.Errorf("image\nhave %+v\nwant %dx%d %v", image, DefaultWidth, DefaultHeight, Format)
	}
	if image.Properties != core1_0.MemoryPropertyDeviceLocal {
		t.Errorf("image memory\nhave %v\nwant device local", image.Properties)
	}
	if dev.Copies != 1 {
		t.Errorf("Copies\nhave %d\nwant 1", dev.Copies)
	}

	texture.Destroy(dev)
	texture.Destroy(dev)
	if dev.LiveTotal() != 0 {
		t.Errorf("LiveTotal after Destroy\nhave %d\nwant 0", dev.LiveTotal())
	}
	if len(dev.Violations) > 0 {
		t.Errorf("violations: %v", dev.Violations)
	}
}

func TestUploadInvalid(t *testing.T) {
	for _, bmp := range []*Bitmap{
		{Width: 0, Height: 4},
		{Width: 2, Height: 2, Pixels: make([]byte, 15)},
	} {
		dev := gputest.NewDevice()
		if _, err := Upload(dev, bmp, gpu.QueueGraphics); err == nil {
			t.Errorf("Upload(%dx%d, %d bytes): want error", bmp.Width, bmp.Height, len(bmp.Pixels))
		}
		if dev.LiveTotal() != 0 {
			t.Errorf("LiveTotal\nhave %d\nwant 0", dev.LiveTotal())
		}
	}
}

func TestUploadFailureCleansUp(t *testing.T) {
	for _, kind := range []gputest.Kind{gputest.KindBuffer, gputest.KindImage} {
		dev := gputest.NewDevice()
		dev.FailCreate = kind

		_, err := Upload(dev, Gray(4, 4, 0), gpu.QueueGraphics)
		if !errors.Is(err, gputest.ErrInjected) {
			t.Errorf("%s: Upload err\nhave %v\nwant ErrInjected", kind, err)
		}
		if dev.LiveTotal() != 0 {
			t.Errorf("%s: LiveTotal\nhave %d\nwant 0", kind, dev.LiveTotal())
		}
	}
}
