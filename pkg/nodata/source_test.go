package nodata_test

import (
	"bytes"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/jpfielding/rok4tile.go/pkg/compress"
	"github.com/jpfielding/rok4tile.go/pkg/encoder"
	"github.com/jpfielding/rok4tile.go/pkg/format"
	"github.com/jpfielding/rok4tile.go/pkg/nodata"
	"github.com/jpfielding/rok4tile.go/pkg/raster"
	"github.com/jpfielding/rok4tile.go/pkg/tiff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	xtiff "golang.org/x/image/tiff"
)

func params(f format.Format) nodata.Params {
	p := nodata.Params{Format: f, Width: 64, Height: 32, Channels: 3, Color: []int{10, 120, 250}}
	if f.SampleFormat() == raster.Float {
		p.Channels, p.Color = 1, []int{-99999}
	}
	return p
}

func TestSourceIsDeterministic(t *testing.T) {
	for _, f := range format.All() {
		t.Run(f.String(), func(t *testing.T) {
			a, err := nodata.New(params(f))
			require.NoError(t, err)
			b, err := nodata.New(params(f))
			require.NoError(t, err)
			require.NotEmpty(t, a.Data())
			assert.Equal(t, a.Data(), b.Data())
			assert.Equal(t, a.ID(), b.ID())
			assert.Equal(t, a.ETag(), b.ETag())
			assert.Equal(t, 200, a.HTTPStatus())
			assert.NotEmpty(t, a.Type())
		})
	}
}

func TestSourceIdentityFollowsParams(t *testing.T) {
	p := params(format.TiffRawInt8)
	a, err := nodata.New(p)
	require.NoError(t, err)
	p.Color = []int{0, 0, 0}
	b, err := nodata.New(p)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID(), b.ID())
	assert.NotEqual(t, a.ETag(), b.ETag())
	assert.Equal(t, len(a.Data()), len(b.Data()))
}

func TestSourceRawPixels(t *testing.T) {
	p := params(format.TiffRawInt8)
	src, err := nodata.New(p)
	require.NoError(t, err)
	hdr := tiff.HeaderSize(3)
	require.Len(t, src.Data(), hdr+64*32*3)
	for i := hdr; i < len(src.Data()); i += 3 {
		require.Equal(t, []byte{10, 120, 250}, src.Data()[i:i+3], "offset %d", i)
	}

	img, err := xtiff.Decode(bytes.NewReader(src.Data()))
	require.NoError(t, err)
	r, g, b, _ := img.At(63, 31).RGBA()
	assert.Equal(t, []uint32{10, 120, 250}, []uint32{r >> 8, g >> 8, b >> 8})
}

func TestSourceImageFormats(t *testing.T) {
	gray := nodata.Params{Width: 32, Height: 32, Channels: 1, Color: []int{200}}

	gray.Format = format.TiffPngInt8
	src, err := nodata.New(gray)
	require.NoError(t, err)
	assert.Equal(t, "image/png", src.Type())
	img, err := png.Decode(bytes.NewReader(src.Data()))
	require.NoError(t, err)
	v, _, _, _ := img.At(5, 5).RGBA()
	assert.Equal(t, uint32(200), v>>8)

	gray.Format = format.TiffJpgInt8
	src, err = nodata.New(gray, encoder.WithQuality(95))
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", src.Type())
	img, err = jpeg.Decode(bytes.NewReader(src.Data()))
	require.NoError(t, err)
	v, _, _, _ = img.At(5, 5).RGBA()
	assert.InDelta(t, 200, int(v>>8), 2)
}

func TestSourceRelease(t *testing.T) {
	src, err := nodata.New(params(format.TiffLzwInt8))
	require.NoError(t, err)
	etag := src.ETag()
	assert.True(t, src.Release())
	assert.Empty(t, src.Data())
	assert.Equal(t, etag, src.ETag())
}

func TestSourceRejects(t *testing.T) {
	tests := []struct {
		name string
		p    nodata.Params
	}{
		{"zero width", nodata.Params{Format: format.TiffRawInt8, Height: 4, Channels: 1}},
		{"zero channels", nodata.Params{Format: format.TiffRawInt8, Width: 4, Height: 4}},
		{"unknown format", nodata.Params{Width: 4, Height: 4, Channels: 1}},
		{"jpeg with two channels", nodata.Params{Format: format.TiffJpgInt8, Width: 4, Height: 4, Channels: 2}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := nodata.New(tc.p)
			assert.Error(t, err)
		})
	}
}

func TestSourceBufferLimit(t *testing.T) {
	p := nodata.Params{Format: format.TiffPkbInt8, Width: 256, Height: 256, Channels: 3}
	_, err := nodata.New(p, encoder.WithMaxBuffer(1024))
	assert.ErrorIs(t, err, compress.ErrBufferLimit)
}
