// Package codec turns raw clipboard pixels into PNG bytes ready for upload.
//
// Input is always interleaved, non-premultiplied 8-bit RGBA. Output is always
// PNG at the encoder's default compression level. There is no resizing, no
// colour-space conversion and no tuning knob.
package codec

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"math"
)

// PNGSignature is the fixed 8-byte header every PNG stream starts with.
var PNGSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

var (
	// ErrMalformedBuffer is returned when the pixel buffer does not hold
	// exactly Width*Height*4 bytes or the dimensions are not positive.
	ErrMalformedBuffer = errors.New("malformed pixel buffer")
	// ErrEncodeFailed wraps errors from the underlying PNG encoder.
	ErrEncodeFailed = errors.New("png encode failed")
)

// RawImage is an uncompressed RGBA pixel buffer as read from the clipboard.
type RawImage struct {
	Pix    []byte
	Width  int
	Height int
}

// Valid reports whether the buffer length matches the dimensions.
func (r RawImage) Valid() bool {
	n, ok := pixLen(r.Width, r.Height)
	return ok && len(r.Pix) == n
}

// pixLen returns width*height*4, or false when the dimensions are not
// positive or the product overflows int.
func pixLen(width, height int) (int, bool) {
	if width <= 0 || height <= 0 {
		return 0, false
	}
	if width > math.MaxInt/4/height {
		return 0, false
	}
	return width * height * 4, true
}

// EncodedImage is a complete PNG stream. It is handed to exactly one consumer.
type EncodedImage []byte

// Encode compresses raw into PNG. It never returns partial output.
func Encode(raw RawImage) (EncodedImage, error) {
	if !raw.Valid() {
		return nil, fmt.Errorf("%w: %d bytes for %dx%d", ErrMalformedBuffer, len(raw.Pix), raw.Width, raw.Height)
	}

	img := &image.NRGBA{
		Pix:    raw.Pix,
		Stride: raw.Width * 4,
		Rect:   image.Rect(0, 0, raw.Width, raw.Height),
	}

	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.DefaultCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncodeFailed, err)
	}
	return EncodedImage(buf.Bytes()), nil
}

// HasPNGSignature reports whether b starts with the PNG magic bytes.
func HasPNGSignature(b []byte) bool {
	return bytes.HasPrefix(b, PNGSignature)
}
