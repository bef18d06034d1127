package encoder

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/jpfielding/rok4tile.go/pkg/raster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJPEGEncoder(t *testing.T) {
	tests := []struct {
		channels int
		color    []int
		model    color.Model
	}{
		{1, []int{128}, color.GrayModel},
		{3, []int{200, 100, 50}, color.YCbCrModel},
		{4, []int{200, 100, 50, 0}, color.YCbCrModel},
	}
	for _, tt := range tests {
		img := raster.NewEmptyImage(64, 32, tt.channels, tt.color, raster.Uint)
		e, err := NewJPEGEncoder(img)
		require.NoError(t, err)
		assert.Equal(t, "image/jpeg", e.Type())

		out := drain(t, e, MinJPEGRead)
		dec, err := jpeg.Decode(bytes.NewReader(out))
		require.NoError(t, err)
		assert.Equal(t, image.Rect(0, 0, 64, 32), dec.Bounds())
		assert.Equal(t, tt.model, dec.ColorModel())

		r, g, b, a := dec.At(10, 10).RGBA()
		assert.EqualValues(t, 0xFFFF, a, "alpha is dropped")
		want := tt.color
		if tt.channels == 1 {
			want = []int{128, 128, 128}
		}
		assert.InDelta(t, want[0], int(r>>8), 4)
		assert.InDelta(t, want[1], int(g>>8), 4)
		assert.InDelta(t, want[2], int(b>>8), 4)
	}
}

func TestJPEGMinimumRead(t *testing.T) {
	e, err := NewJPEGEncoder(pattern(16, 16, 3))
	require.NoError(t, err)
	assert.Zero(t, e.Read(make([]byte, MinJPEGRead-1)))
	assert.False(t, e.EOF())

	out := drain(t, e, MinJPEGRead)
	assert.Equal(t, []byte{0xFF, 0xD8}, out[:2])
	assert.Zero(t, e.Read(make([]byte, 4096)))
	assert.True(t, e.EOF())
}

func TestJPEGQuality(t *testing.T) {
	img := noise(64, 64, 3)
	low, err := NewJPEGEncoder(img, WithQuality(10))
	require.NoError(t, err)
	high, err := NewJPEGEncoder(img, WithQuality(95))
	require.NoError(t, err)
	assert.Less(t, len(drain(t, low, 4096)), len(drain(t, high, 4096)))
}

func TestJPEGRejects(t *testing.T) {
	_, err := NewJPEGEncoder(raster.NewEmptyImage(4, 4, 1, nil, raster.Float))
	assert.ErrorIs(t, err, ErrUnsupportedImage)
	_, err = NewJPEGEncoder(pattern(4, 4, 2))
	assert.ErrorIs(t, err, ErrUnsupportedImage)
}

func TestPNGEncoder(t *testing.T) {
	for _, ch := range []int{1, 3, 4} {
		img := pattern(70, 50, ch)
		for _, chunk := range []int{7, 4096} {
			e, err := NewPNGEncoder(img)
			require.NoError(t, err)
			out := drain(t, e, chunk)
			require.NoError(t, e.Err())

			dec, err := png.Decode(bytes.NewReader(out))
			require.NoError(t, err, "%d channels", ch)
			var pix []byte
			switch m := dec.(type) {
			case *image.Gray:
				pix = m.Pix
			case *image.NRGBA:
				pix = m.Pix
			case *image.RGBA:
				for i := 0; i < len(m.Pix); i += 4 {
					pix = append(pix, m.Pix[i:i+3]...)
				}
			default:
				t.Fatalf("unexpected %T", dec)
			}
			assert.Equal(t, img.Pix(), pix, "%d channels read by %d", ch, chunk)
		}
	}
}

func TestPNGLargeImageSplitsIDAT(t *testing.T) {
	img := noise(256, 256, 3)
	e, err := NewPNGEncoder(img)
	require.NoError(t, err)
	out := drain(t, e, 64<<10)
	assert.Greater(t, bytes.Count(out, []byte("IDAT")), 1)

	dec, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 256, dec.Bounds().Dx())
}

func TestPalettePNGEncoder(t *testing.T) {
	img := pattern(16, 16, 1)

	e, err := NewPalettePNGEncoder(img, [3]uint8{255, 0, 0}, false)
	require.NoError(t, err)
	dec, err := png.Decode(bytes.NewReader(drain(t, e, 4096)))
	require.NoError(t, err)
	pal, ok := dec.(*image.Paletted)
	require.True(t, ok)
	assert.Len(t, pal.Palette, 256)
	assert.Equal(t, color.RGBA{255, 0, 0, 255}, pal.Palette[0])
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, pal.Palette[255])
	assert.Equal(t, img.Pix(), pal.Pix)

	e, err = NewPalettePNGEncoder(img, [3]uint8{0, 0, 255}, true)
	require.NoError(t, err)
	dec, err = png.Decode(bytes.NewReader(drain(t, e, 4096)))
	require.NoError(t, err)
	pal = dec.(*image.Paletted)
	assert.Equal(t, color.NRGBA{0, 0, 255, 255}, pal.Palette[0])
	assert.Equal(t, color.NRGBA{0, 0, 255, 0}, pal.Palette[255])

	_, err = NewPalettePNGEncoder(pattern(4, 4, 3), [3]uint8{}, false)
	assert.ErrorIs(t, err, ErrUnsupportedImage)
}

func TestPNGShortLineFails(t *testing.T) {
	img := raster.NewRawImage(8, 8, 1, raster.Uint, make([]byte, 8*4))
	e, err := NewPNGEncoder(img)
	require.NoError(t, err)
	drain(t, e, 4096)
	assert.ErrorIs(t, e.Err(), ErrShortLine)
	assert.True(t, e.EOF())
}
