// Package format enumerates the wire formats a tile can be served in.
package format

import (
	"fmt"
	"strings"

	"github.com/jpfielding/rok4tile.go/pkg/raster"
)

type Format int

const (
	Unknown Format = iota
	TiffRawInt8
	TiffJpgInt8
	TiffPngInt8
	TiffLzwInt8
	TiffZipInt8
	TiffPkbInt8
	TiffRawFloat32
	TiffLzwFloat32
	TiffZipFloat32
	TiffPkbFloat32
)

// Compression is the pixel compression carried by a format
type Compression int

const (
	CompressionUnknown Compression = iota
	CompressionNone
	CompressionDeflate
	CompressionJPEG
	CompressionPNG
	CompressionLZW
	CompressionPackBits
)

var compressionNames = [...]string{"UNKNOWN", "NONE", "DEFLATE", "JPEG", "PNG", "LZW", "PACKBITS"}

func (c Compression) String() string {
	if c < 0 || int(c) >= len(compressionNames) {
		return compressionNames[0]
	}
	return compressionNames[c]
}

type info struct {
	name        string
	mime        string
	encoding    string
	compression Compression
	sample      raster.SampleFormat
}

var formats = [...]info{
	Unknown:        {"UNKNOWN", "UNKNOWN", "", CompressionUnknown, 0},
	TiffRawInt8:    {"TIFF_RAW_INT8", "image/tiff", "", CompressionNone, raster.Uint},
	TiffJpgInt8:    {"TIFF_JPG_INT8", "image/jpeg", "", CompressionJPEG, raster.Uint},
	TiffPngInt8:    {"TIFF_PNG_INT8", "image/png", "", CompressionPNG, raster.Uint},
	TiffLzwInt8:    {"TIFF_LZW_INT8", "image/tiff", "", CompressionLZW, raster.Uint},
	TiffZipInt8:    {"TIFF_ZIP_INT8", "image/tiff", "", CompressionDeflate, raster.Uint},
	TiffPkbInt8:    {"TIFF_PKB_INT8", "image/tiff", "", CompressionPackBits, raster.Uint},
	TiffRawFloat32: {"TIFF_RAW_FLOAT32", "image/x-bil;bits=32", "", CompressionNone, raster.Float},
	TiffLzwFloat32: {"TIFF_LZW_FLOAT32", "image/tiff", "", CompressionLZW, raster.Float},
	TiffZipFloat32: {"TIFF_ZIP_FLOAT32", "image/x-bil;bits=32", "deflate", CompressionDeflate, raster.Float},
	TiffPkbFloat32: {"TIFF_PKB_FLOAT32", "image/tiff", "", CompressionPackBits, raster.Float},
}

func (f Format) info() info {
	if f < 0 || int(f) >= len(formats) {
		return formats[Unknown]
	}
	return formats[f]
}

func (f Format) String() string { return f.info().name }

// MimeType of the pyramid tiles stored in this format.
func (f Format) MimeType() string { return f.info().mime }

// Encoding is the HTTP content-encoding of stored tiles, usually "".
func (f Format) Encoding() string { return f.info().encoding }

func (f Format) Compression() Compression { return f.info().compression }

func (f Format) SampleFormat() raster.SampleFormat { return f.info().sample }

// Parse reads a format name such as "TIFF_LZW_INT8", case insensitively.
func Parse(name string) (Format, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	for i := len(formats) - 1; i > 0; i-- {
		if formats[i].name == name {
			return Format(i), nil
		}
	}
	return Unknown, fmt.Errorf("format: unknown format %q", name)
}

// All lists every known format.
func All() []Format {
	out := make([]Format, 0, len(formats)-1)
	for i := 1; i < len(formats); i++ {
		out = append(out, Format(i))
	}
	return out
}
