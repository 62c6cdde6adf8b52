package clip

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"go.klb.dev/pulse/internal/codec"
)

// MIMEOf sniffs the container format of data using the registered image
// decoders. It returns "" when no decoder recognises the bytes.
func MIMEOf(data []byte) string {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return ""
	}
	return "image/" + format
}

// DecodeRGBA decodes a PNG, BMP, TIFF or WebP container into a tightly
// packed, non-premultiplied RGBA buffer.
func DecodeRGBA(data []byte) (codec.RawImage, error) {
	if len(data) == 0 {
		return codec.RawImage{}, ErrEmpty
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return codec.RawImage{}, fmt.Errorf("decode clipboard image: %w", err)
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return codec.RawImage{}, fmt.Errorf("decode clipboard image: empty %s bounds", format)
	}

	pix := make([]byte, w*h*4)
	if m, ok := img.(*image.NRGBA); ok {
		for y := 0; y < h; y++ {
			src := m.Pix[m.PixOffset(b.Min.X, b.Min.Y+y):]
			copy(pix[y*w*4:(y+1)*w*4], src[:w*4])
		}
		return codec.RawImage{Pix: pix, Width: w, Height: h}, nil
	}

	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			pix[i], pix[i+1], pix[i+2], pix[i+3] = c.R, c.G, c.B, c.A
			i += 4
		}
	}
	return codec.RawImage{Pix: pix, Width: w, Height: h}, nil
}
