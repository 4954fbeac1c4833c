// Package bitmap holds the RGBA8 pixel data shown by the program and uploads
// it into a device-local image.
package bitmap

import "github.com/cockroachdb/errors"

const bytesPerPixel = 4

const (
	DefaultWidth  = 512
	DefaultHeight = 512
	DefaultLevel  = 128
)

// Bitmap is a tightly packed RGBA8 image, rows top to bottom.
type Bitmap struct {
	Width  int
	Height int
	Pixels []byte
}

// Gray returns an opaque bitmap where every color channel is level.
func Gray(width, height int, level uint8) *Bitmap {
	pixels := make([]byte, width*height*bytesPerPixel)
	for i := 0; i < len(pixels); i += bytesPerPixel {
		pixels[i] = level
		pixels[i+1] = level
		pixels[i+2] = level
		pixels[i+3] = 0xff
	}
	return &Bitmap{Width: width, Height: height, Pixels: pixels}
}

func (b *Bitmap) Size() int {
	return len(b.Pixels)
}

func (b *Bitmap) validate() error {
	if b.Width <= 0 || b.Height <= 0 {
		return errors.Newf("bitmap: invalid size %dx%d", b.Width, b.Height)
	}
	if want := b.Width * b.Height * bytesPerPixel; len(b.Pixels) != want {
		return errors.Newf("bitmap: %dx%d needs %d bytes, have %d", b.Width, b.Height, want, len(b.Pixels))
	}
	return nil
}
