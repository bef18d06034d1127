// Package encoder turns scanline images into pull streams of encoded bytes:
// single strip TIFF (raw, LZW, deflate, PackBits), JPEG, PNG, BIL and ESRI
// ASCII grids.
package encoder

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jpfielding/rok4tile.go/pkg/datasource"
	"github.com/jpfielding/rok4tile.go/pkg/format"
	"github.com/jpfielding/rok4tile.go/pkg/raster"
)

var (
	ErrUnsupportedFormat = errors.New("encoder: unsupported format")
	ErrUnsupportedImage  = errors.New("encoder: unsupported image")
	ErrShortLine         = errors.New("encoder: image returned a short line")
)

// Encoder is a DataStream over an encoded image.
type Encoder interface {
	datasource.DataStream
}

// Constructor builds an encoder for an image.
type Constructor func(img raster.Image, opts ...Option) (Encoder, error)

func tiffFor(f format.Format) Constructor {
	return func(img raster.Image, opts ...Option) (Encoder, error) {
		cfg, err := newConfig(opts...)
		if err != nil {
			return nil, err
		}
		return wrap(NewTiffEncoder(img, f, cfg.GeoTIFF, opts...))
	}
}

// wrap keeps a failed constructor from returning a typed nil Encoder.
func wrap[E Encoder](e E, err error) (Encoder, error) {
	if err != nil {
		return nil, err
	}
	return e, nil
}

func jpegEncoder(img raster.Image, opts ...Option) (Encoder, error) {
	return wrap(NewJPEGEncoder(img, opts...))
}

func pngEncoder(img raster.Image, opts ...Option) (Encoder, error) {
	return wrap(NewPNGEncoder(img, opts...))
}

func bilEncoder(img raster.Image, opts ...Option) (Encoder, error) {
	return wrap(NewBilEncoder(img, opts...))
}

func ascEncoder(img raster.Image, opts ...Option) (Encoder, error) {
	return wrap(NewAscEncoder(img, opts...))
}

// encodersByFormat maps pyramid formats to their encoder
var encodersByFormat = map[format.Format]Constructor{
	format.TiffJpgInt8: jpegEncoder,
	format.TiffPngInt8: pngEncoder,
}

// encodersByName maps output names, including every format name, to their
// encoder
var encodersByName = map[string]Constructor{
	"jpeg": jpegEncoder,
	"jpg":  jpegEncoder,
	"png":  pngEncoder,
	"bil":  bilEncoder,
	"asc":  ascEncoder,
}

func init() {
	for _, f := range format.All() {
		switch f.Compression() {
		case format.CompressionNone, format.CompressionLZW, format.CompressionDeflate, format.CompressionPackBits:
			encodersByFormat[f] = tiffFor(f)
		}
		encodersByName[strings.ToLower(f.String())] = encodersByFormat[f]
	}
}

// New returns the encoder of a pyramid format.
func New(img raster.Image, f format.Format, opts ...Option) (Encoder, error) {
	ctor, ok := encodersByFormat[f]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
	}
	return ctor(img, opts...)
}

// ByName returns the encoder registered under name, a format name such as
// "TIFF_LZW_INT8" or one of "jpeg", "png", "bil", "asc".
func ByName(img raster.Image, name string, opts ...Option) (Encoder, error) {
	ctor, ok := encodersByName[strings.ToLower(strings.TrimSpace(name))]
	if !ok || ctor == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
	return ctor(img, opts...)
}

// Names lists the registered encoder names.
func Names() []string {
	out := make([]string, 0, len(encodersByName))
	for name, ctor := range encodersByName {
		if ctor != nil {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
