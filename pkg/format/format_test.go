package format

import (
	"testing"

	"github.com/jpfielding/rok4tile.go/pkg/raster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	for _, f := range All() {
		t.Run(f.String(), func(t *testing.T) {
			got, err := Parse(f.String())
			require.NoError(t, err)
			assert.Equal(t, f, got)
		})
	}
	got, err := Parse(" tiff_pkb_int8 ")
	require.NoError(t, err)
	assert.Equal(t, TiffPkbInt8, got)

	_, err = Parse("TIFF_J2K_INT8")
	assert.Error(t, err)
}

func TestAttributes(t *testing.T) {
	tests := []struct {
		f           Format
		mime        string
		encoding    string
		compression Compression
		sample      raster.SampleFormat
	}{
		{TiffRawInt8, "image/tiff", "", CompressionNone, raster.Uint},
		{TiffJpgInt8, "image/jpeg", "", CompressionJPEG, raster.Uint},
		{TiffPngInt8, "image/png", "", CompressionPNG, raster.Uint},
		{TiffZipFloat32, "image/x-bil;bits=32", "deflate", CompressionDeflate, raster.Float},
		{TiffPkbFloat32, "image/tiff", "", CompressionPackBits, raster.Float},
		{Format(99), "UNKNOWN", "", CompressionUnknown, 0},
	}
	for _, tt := range tests {
		t.Run(tt.f.String(), func(t *testing.T) {
			assert.Equal(t, tt.mime, tt.f.MimeType())
			assert.Equal(t, tt.encoding, tt.f.Encoding())
			assert.Equal(t, tt.compression, tt.f.Compression())
			assert.Equal(t, tt.sample, tt.f.SampleFormat())
		})
	}
	assert.Equal(t, "LZW", CompressionLZW.String())
}
