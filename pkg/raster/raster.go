// Package raster defines the scanline Image capability consumed by the
// encoders, and the simple in-memory and constant implementations.
package raster

import (
	"fmt"

	"github.com/jpfielding/rok4tile.go/pkg/crs"
)

// SampleFormat uses the TIFF SampleFormat codes
type SampleFormat uint16

const (
	Uint  SampleFormat = 1
	Float SampleFormat = 3
)

// BitsPerSample of the supported formats: 8 bit unsigned or 32 bit float.
func (s SampleFormat) BitsPerSample() int {
	if s == Float {
		return 32
	}
	return 8
}

// Size is the byte size of one sample.
func (s SampleFormat) Size() int { return s.BitsPerSample() / 8 }

func (s SampleFormat) String() string {
	switch s {
	case Uint:
		return "uint8"
	case Float:
		return "float32"
	default:
		return fmt.Sprintf("SampleFormat(%d)", uint16(s))
	}
}

// Image produces one scanline at a time. Samples are interleaved by pixel
// and float samples are little endian IEEE 754.
type Image interface {
	Width() int
	Height() int
	Channels() int
	SampleFormat() SampleFormat
	// GetLine writes row line into buf and returns the number of bytes written;
	// 0 signals a failure.
	GetLine(buf []byte, line int) int
}

// Georef places an image: its CRS, its extent and its pixel size.
type Georef struct {
	CRS  *crs.CRS
	BBox crs.BBox
	ResX float64
	ResY float64
}

// Georeferenced images expose a Georef; nil means no placement.
type Georeferenced interface {
	Image
	Georef() *Georef
}

// LineSize is the byte size of one scanline.
func LineSize(img Image) int {
	return img.Width() * img.Channels() * img.SampleFormat().Size()
}

// GeorefOf returns the placement of img when it has one.
func GeorefOf(img Image) *Georef {
	if g, ok := img.(Georeferenced); ok {
		return g.Georef()
	}
	return nil
}

type georeferenced struct {
	Image
	geo *Georef
}

func (g georeferenced) Georef() *Georef { return g.geo }

// WithGeoref attaches a placement to any image. When the resolution is zero it
// is derived from the bbox and the image size.
func WithGeoref(img Image, geo Georef) Georeferenced {
	if geo.ResX == 0 && img.Width() > 0 {
		geo.ResX = geo.BBox.Width() / float64(img.Width())
	}
	if geo.ResY == 0 && img.Height() > 0 {
		geo.ResY = geo.BBox.Height() / float64(img.Height())
	}
	return georeferenced{Image: img, geo: &geo}
}
