package cube

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"strings"

	"golang.org/x/image/bmp"
)

// Snapshot formats accepted by WriteSnapshot.
const (
	SnapshotPNG = "png"
	SnapshotBMP = "bmp"
)

// WriteSnapshot encodes a width x height RGBA8 framebuffer to w as PNG or
// BMP. pix holds rows top to bottom with no padding.
func WriteSnapshot(w io.Writer, format string, pix []byte, width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("snapshot: invalid size %dx%d", width, height)
	}
	if want := width * height * 4; len(pix) < want {
		return fmt.Errorf("snapshot: framebuffer has %d bytes, want %d", len(pix), want)
	}
	img := &image.RGBA{
		Pix:    pix[:width*height*4],
		Stride: width * 4,
		Rect:   image.Rect(0, 0, width, height),
	}
	switch strings.ToLower(format) {
	case SnapshotPNG:
		return png.Encode(w, img)
	case SnapshotBMP:
		return bmp.Encode(w, img)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedSnapshotFormat, format)
	}
}
