package raster

import (
	"encoding/binary"
	"math"
)

// EmptyImage has every pixel set to the same per channel value. Rows are
// identical, so the requested line is ignored.
type EmptyImage struct {
	width, height, channels int
	format                  SampleFormat
	pixel                   []byte
}

// NewEmptyImage builds a constant image. Missing colour components are 0 and
// uint8 components are truncated like a C cast.
func NewEmptyImage(width, height, channels int, color []int, format SampleFormat) *EmptyImage {
	pixel := make([]byte, channels*format.Size())
	for c := 0; c < channels; c++ {
		v := 0
		if c < len(color) {
			v = color[c]
		}
		if format == Float {
			binary.LittleEndian.PutUint32(pixel[c*4:], math.Float32bits(float32(v)))
		} else {
			pixel[c] = uint8(v)
		}
	}
	return &EmptyImage{width: width, height: height, channels: channels, format: format, pixel: pixel}
}

func (e *EmptyImage) Width() int                 { return e.width }
func (e *EmptyImage) Height() int                { return e.height }
func (e *EmptyImage) Channels() int              { return e.channels }
func (e *EmptyImage) SampleFormat() SampleFormat { return e.format }

func (e *EmptyImage) GetLine(buf []byte, _ int) int {
	size := e.width * len(e.pixel)
	if len(buf) < size {
		return 0
	}
	for off := 0; off < size; off += len(e.pixel) {
		copy(buf[off:], e.pixel)
	}
	return size
}
