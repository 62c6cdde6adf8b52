package codec

import (
	"bytes"
	"image"
	"image/png"
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gradient(w, h int, alpha func(x, y int) uint8) RawImage {
	pix := make([]byte, w*h*4)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := (y*w + x) * 4
			pix[i] = uint8(x * 7)
			pix[i+1] = uint8(y * 13)
			pix[i+2] = uint8(x ^ y)
			pix[i+3] = alpha(x, y)
		}
	}
	return RawImage{Pix: pix, Width: w, Height: h}
}

func opaque(int, int) uint8 { return 0xff }

func TestEncodeSignature(t *testing.T) {
	for _, size := range [][2]int{{1, 1}, {3, 2}, {64, 17}, {200, 1}} {
		raw := gradient(size[0], size[1], opaque)
		out, err := Encode(raw)
		require.NoError(t, err)
		require.GreaterOrEqual(t, len(out), 8)
		assert.Equal(t, PNGSignature, []byte(out[:8]), "size %v", size)
		assert.True(t, HasPNGSignature(out))
	}
}

func TestEncodeMalformedBuffer(t *testing.T) {
	tests := []struct {
		name string
		raw  RawImage
	}{
		{"short", RawImage{Pix: make([]byte, 15), Width: 2, Height: 2}},
		{"long", RawImage{Pix: make([]byte, 17), Width: 2, Height: 2}},
		{"rgb only", RawImage{Pix: make([]byte, 12), Width: 2, Height: 2}},
		{"zero width", RawImage{Pix: nil, Width: 0, Height: 4}},
		{"negative", RawImage{Pix: make([]byte, 4), Width: -1, Height: -1}},
		{"nil pixels", RawImage{Width: 1, Height: 1}},
		{"overflowing dimensions", RawImage{Pix: make([]byte, 4), Width: math.MaxInt / 2, Height: 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Encode(tt.raw)
			require.ErrorIs(t, err, ErrMalformedBuffer)
			assert.Nil(t, out)
		})
	}
}

func TestPixLen(t *testing.T) {
	n, ok := pixLen(3, 2)
	assert.True(t, ok)
	assert.Equal(t, 24, n)

	_, ok = pixLen(math.MaxInt/4+1, 1)
	assert.False(t, ok)

	if strconv.IntSize == 64 {
		// 4 GiB worth of pixels is a legal size on 64-bit.
		n, ok = pixLen(1<<20, 1<<10)
		assert.True(t, ok)
		assert.Equal(t, int64(1)<<32, int64(n))
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		alpha func(x, y int) uint8
	}{
		{"opaque", opaque},
		{"translucent", func(x, y int) uint8 { return uint8(x*31 + y) }},
		{"transparent", func(int, int) uint8 { return 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := gradient(23, 11, tt.alpha)
			want := append([]byte(nil), raw.Pix...)

			out, err := Encode(raw)
			require.NoError(t, err)

			img, err := png.Decode(bytes.NewReader(out))
			require.NoError(t, err)
			assert.Equal(t, want, nrgbaPix(t, img))
		})
	}
}

// nrgbaPix flattens a decoded PNG back into non-premultiplied RGBA.
func nrgbaPix(t *testing.T, img image.Image) []byte {
	t.Helper()
	switch m := img.(type) {
	case *image.NRGBA:
		return m.Pix
	case *image.RGBA:
		// the encoder picks truecolour without alpha for fully opaque input
		for i := 3; i < len(m.Pix); i += 4 {
			require.Equal(t, uint8(0xff), m.Pix[i])
		}
		return m.Pix
	default:
		t.Fatalf("unexpected decoded type %T", img)
		return nil
	}
}

func TestEncodeDoesNotMutateInput(t *testing.T) {
	raw := gradient(8, 8, func(x, _ int) uint8 { return uint8(x * 30) })
	before := append([]byte(nil), raw.Pix...)
	_, err := Encode(raw)
	require.NoError(t, err)
	assert.Equal(t, before, raw.Pix)
}

func TestHasPNGSignature(t *testing.T) {
	assert.False(t, HasPNGSignature(nil))
	assert.False(t, HasPNGSignature([]byte("GIF89a..")))
	assert.False(t, HasPNGSignature(PNGSignature[:7]))
	assert.True(t, HasPNGSignature(append(append([]byte(nil), PNGSignature...), 0, 0)))
}
