package raster

// RawImage serves rows out of a contiguous pixel buffer.
type RawImage struct {
	width, height, channels int
	format                  SampleFormat
	data                    []byte
}

// NewRawImage wraps data, which must hold height full rows.
func NewRawImage(width, height, channels int, format SampleFormat, data []byte) *RawImage {
	return &RawImage{width: width, height: height, channels: channels, format: format, data: data}
}

func (r *RawImage) Width() int                 { return r.width }
func (r *RawImage) Height() int                { return r.height }
func (r *RawImage) Channels() int              { return r.channels }
func (r *RawImage) SampleFormat() SampleFormat { return r.format }

func (r *RawImage) GetLine(buf []byte, line int) int {
	size := LineSize(r)
	if line < 0 || line >= r.height || len(buf) < size || (line+1)*size > len(r.data) {
		return 0
	}
	return copy(buf, r.data[line*size:(line+1)*size])
}

// Pix returns the backing buffer.
func (r *RawImage) Pix() []byte { return r.data }
