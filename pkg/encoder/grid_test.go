package encoder

import (
	"encoding/binary"
	"math"
	"strings"
	"testing"

	"github.com/jpfielding/rok4tile.go/pkg/crs"
	"github.com/jpfielding/rok4tile.go/pkg/raster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatImage(w, h, ch int, f func(x, y, c int) float32) *raster.RawImage {
	data := make([]byte, 4*w*h*ch)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			for c := 0; c < ch; c++ {
				i := (y*w+x)*ch + c
				binary.LittleEndian.PutUint32(data[4*i:], math.Float32bits(f(x, y, c)))
			}
		}
	}
	return raster.NewRawImage(w, h, ch, raster.Float, data)
}

func float32At(b []byte, i int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
}

func TestBilEncoder(t *testing.T) {
	img := floatImage(5, 3, 1, func(x, y, _ int) float32 { return float32(10*y + x) })
	e, err := NewBilEncoder(img)
	require.NoError(t, err)
	assert.Equal(t, "image/x-bil;bits=32", e.Type())
	assert.Equal(t, 20, e.RowSize())

	// whole lines only
	assert.Zero(t, e.Read(make([]byte, 19)))
	buf := make([]byte, 50)
	assert.Equal(t, 40, e.Read(buf))
	assert.False(t, e.EOF())
	assert.Equal(t, float32(14), float32At(buf, 9))
	assert.Equal(t, 20, e.Read(buf))
	assert.Equal(t, float32(22), float32At(buf, 2))
	assert.True(t, e.EOF())
	assert.Zero(t, e.Read(buf))
}

func TestBilEncoderBands(t *testing.T) {
	img := floatImage(2, 1, 3, func(x, _, c int) float32 { return float32(100*c + x) })
	e, err := NewBilEncoder(img)
	require.NoError(t, err)
	out := drain(t, e, 64)
	require.Len(t, out, 24)
	got := make([]float32, 6)
	for i := range got {
		got[i] = float32At(out, i)
	}
	assert.Equal(t, []float32{0, 1, 100, 101, 200, 201}, got)
}

func TestBilEncoderWidensUint(t *testing.T) {
	e, err := NewBilEncoder(raster.NewRawImage(2, 1, 1, raster.Uint, []byte{7, 255}))
	require.NoError(t, err)
	out := drain(t, e, 8)
	assert.Equal(t, float32(7), float32At(out, 0))
	assert.Equal(t, float32(255), float32At(out, 1))
}

func TestAscEncoder(t *testing.T) {
	img := raster.WithGeoref(
		floatImage(3, 2, 1, func(x, y, _ int) float32 { return float32(y) + float32(x)/4 }),
		raster.Georef{CRS: crs.MustParseProj4("+proj=longlat +ellps=WGS84"), BBox: crs.BBox{XMin: 1, YMin: 2, XMax: 4, YMax: 4}},
	)
	e, err := NewAscEncoder(img)
	require.NoError(t, err)
	out := string(drain(t, e, 4096))

	want := strings.Join([]string{
		"ncols        3",
		"nrows        2",
		"xllcorner    1.00000000",
		"yllcorner    2.00000000",
		"cellsize     1.00000000",
		"NODATA_value -99999.00",
		" 0.00 0.25 0.50",
		" 1.00 1.25 1.50",
		"",
	}, "\n")
	assert.Equal(t, want, out)
}

func TestAscEncoderWholeLines(t *testing.T) {
	img := raster.WithGeoref(pattern(4, 3, 1), raster.Georef{BBox: crs.BBox{XMax: 4, YMax: 3}})
	e, err := NewAscEncoder(img)
	require.NoError(t, err)

	// the header goes out together with the first row, about 150 bytes
	for i := 0; i < 3; i++ {
		assert.Zero(t, e.Read(make([]byte, 128)), "header and first row do not fit")
		assert.False(t, e.EOF())
	}
	out := drain(t, e, 256)
	lines := strings.Split(strings.TrimSuffix(string(out), "\n"), "\n")
	assert.Len(t, lines, 9)
	assert.Equal(t, "ncols        4", lines[0])
	assert.Equal(t, " 2.00 3.00 4.00 5.00", lines[8])

	whole, err := NewAscEncoder(img)
	require.NoError(t, err)
	assert.Equal(t, string(drain(t, whole, 4096)), string(out))
}

func TestAscEncoderNeedsGeoref(t *testing.T) {
	_, err := NewAscEncoder(pattern(2, 2, 1))
	assert.ErrorIs(t, err, ErrUnsupportedImage)
}
